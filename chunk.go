package sqpack

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// chunkFileName builds the on-disk file name for one file within a chunk,
// e.g. "0a0001.win32.index" for category 0x0a, repository 0x00, chunk 0x01.
func chunkFileName(categoryID, repositoryID, chunkID uint8, ext string) string {
	return fmt.Sprintf("%02x%02x%02x.win32.%s", categoryID, repositoryID, chunkID, ext)
}

// Backend is the capability set an archive facade depends on, per the
// polymorphic-backend design note: a direct-install backend and a
// patch-overlay (zipatch) backend can both implement it, and the facade
// stays agnostic to which one it is talking to.
type Backend interface {
	// Read returns length bytes at offset within the given chunk's dat
	// file ordinal.
	Read(ctx context.Context, categoryID, repositoryID, chunkID, datOrdinal uint8, offset int64, length int) ([]byte, error)
	// Index returns the parsed ".index" or ".index2" table for the given
	// chunk, whichever the backend prefers.
	Index(ctx context.Context, categoryID, repositoryID, chunkID uint8) (*index1Table, *index2Table, error)
	// Chunks lists the known chunk IDs for a category/repository pair, in
	// the order they should be searched.
	Chunks(ctx context.Context, categoryID, repositoryID uint8) ([]uint8, error)
}

// installBackend is the direct-install Backend: repositories and
// categories map straight onto a directory of SqPack files on disk. One
// *os.File handle is kept open per ".datN" file for the backend's
// lifetime; handleMu guards the handle map, and reads use positional
// ReadAt calls, which carry their own offset and so need no shared seek.
type installBackend struct {
	repositories map[string]Repository

	handleMu sync.Mutex
	handles  map[string]*os.File
}

// newInstallBackend builds a Backend rooted at the given repositories.
func newInstallBackend(repos []Repository) *installBackend {
	m := make(map[string]Repository, len(repos))
	for _, r := range repos {
		m[r.Name] = r
	}
	return &installBackend{repositories: m, handles: make(map[string]*os.File)}
}

// Close releases every open .datN handle.
func (b *installBackend) Close() error {
	b.handleMu.Lock()
	defer b.handleMu.Unlock()
	var firstErr error
	for _, f := range b.handles {
		if err := f.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	b.handles = make(map[string]*os.File)
	return firstErr
}

func (b *installBackend) datHandle(dir, name string) (*os.File, error) {
	b.handleMu.Lock()
	defer b.handleMu.Unlock()

	key := filepath.Join(dir, name)
	if f, ok := b.handles[key]; ok {
		return f, nil
	}
	f, err := os.Open(key)
	if err != nil {
		return nil, err
	}
	b.handles[key] = f
	return f, nil
}

func (b *installBackend) repoDir(repositoryID uint8) (string, error) {
	for _, r := range b.repositories {
		if r.ID == repositoryID {
			return r.Path, nil
		}
	}
	return "", newNotFound(fmt.Sprintf("Repository with ID %d", repositoryID))
}

func (b *installBackend) Read(ctx context.Context, categoryID, repositoryID, chunkID, datOrdinal uint8, offset int64, length int) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	dir, err := b.repoDir(repositoryID)
	if err != nil {
		return nil, err
	}
	name := chunkFileName(categoryID, repositoryID, chunkID, fmt.Sprintf("dat%d", datOrdinal))
	f, err := b.datHandle(dir, name)
	if err != nil {
		return nil, newIO(err)
	}

	buf := make([]byte, length)
	if _, err := f.ReadAt(buf, offset); err != nil {
		return nil, newIO(err)
	}
	return buf, nil
}

func (b *installBackend) Index(ctx context.Context, categoryID, repositoryID, chunkID uint8) (*index1Table, *index2Table, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	dir, err := b.repoDir(repositoryID)
	if err != nil {
		return nil, nil, err
	}

	indexName := filepath.Join(dir, chunkFileName(categoryID, repositoryID, chunkID, "index"))
	if data, err := os.ReadFile(indexName); err == nil {
		t, err := parseIndex1(data)
		if err != nil {
			return nil, nil, err
		}
		return t, nil, nil
	}

	index2Name := filepath.Join(dir, chunkFileName(categoryID, repositoryID, chunkID, "index2"))
	data, err := os.ReadFile(index2Name)
	if err != nil {
		return nil, nil, newIO(err)
	}
	t, err := parseIndex2(data)
	if err != nil {
		return nil, nil, err
	}
	return nil, t, nil
}

func (b *installBackend) Chunks(ctx context.Context, categoryID, repositoryID uint8) ([]uint8, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	dir, err := b.repoDir(repositoryID)
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, newIO(err)
	}

	prefix := fmt.Sprintf("%02x%02x", categoryID, repositoryID)
	seen := make(map[uint8]struct{})
	for _, e := range entries {
		name := e.Name()
		if !strings.HasPrefix(name, prefix) || len(name) < len(prefix)+2 {
			continue
		}
		var chunkID uint8
		if _, err := fmt.Sscanf(name[len(prefix):len(prefix)+2], "%02x", &chunkID); err != nil {
			continue
		}
		seen[chunkID] = struct{}{}
	}

	out := make([]uint8, 0, len(seen))
	for id := range seen {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	if len(out) == 0 {
		out = []uint8{0}
	}
	return out, nil
}
