package sqpack

import "strings"

// parsedPath is the result of splitting and normalizing a logical path.
type parsedPath struct {
	Category      string
	Repository    string
	Remainder     string
	NormalizedDir string // directory component hashed for the Index1 key
	NormalizedRel string // filename component hashed for the Index1 key
	Full          string // full normalized path hashed for the Index2 key
}

// parsePath splits a logical path into (category, repository, remainder)
// per the rule in the format: the first segment is always the category;
// the second segment is the repository only if it names a repository in
// knownRepos, otherwise defaultRepo is inserted between category and the
// remainder. The path is lowercased before any further processing, since
// hashing is case-insensitive.
func parsePath(path string, knownRepos map[string]struct{}, defaultRepo string) (parsedPath, error) {
	lower := strings.ToLower(path)
	segments := strings.Split(lower, "/")
	if len(segments) < 2 {
		return parsedPath{}, newInvalidPath(path)
	}

	category := segments[0]

	var repository string
	var rest []string
	if _, ok := knownRepos[segments[1]]; ok {
		repository = segments[1]
		rest = segments[2:]
	} else {
		repository = defaultRepo
		rest = segments[1:]
	}
	if len(rest) == 0 {
		return parsedPath{}, newInvalidPath(path)
	}

	full := category + "/" + repository + "/" + strings.Join(rest, "/")
	remainder := strings.Join(rest, "/")

	lastSlash := strings.LastIndexByte(full, '/')
	dir, file := full[:lastSlash], full[lastSlash+1:]

	return parsedPath{
		Category:      category,
		Repository:    repository,
		Remainder:     remainder,
		NormalizedDir: dir,
		NormalizedRel: file,
		Full:          full,
	}, nil
}
