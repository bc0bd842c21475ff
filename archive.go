package sqpack

import (
	"context"
	"fmt"
	"io"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"
)

// backendReader adapts a Backend's offset/length Read capability to the
// io.ReadSeeker shape the block decoder in block.go is written against, so
// block.go stays agnostic to whether bytes ultimately come from a direct
// install or a patch overlay. block.go has no context-cancellable seams of
// its own (it only ever operates on already-fetched bytes via Seek/Read),
// so the ctx a caller supplied to Archive.ReadFile is threaded through here
// and checked at each underlying Backend.Read call instead.
type backendReader struct {
	ctx                               context.Context
	backend                           Backend
	categoryID, repositoryID, chunkID uint8
	datOrdinal                        uint8
	pos                               int64
}

func (r *backendReader) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	data, err := r.backend.Read(r.ctx, r.categoryID, r.repositoryID, r.chunkID, r.datOrdinal, r.pos, len(p))
	if err != nil {
		return 0, err
	}
	n := copy(p, data)
	r.pos += int64(n)
	if n < len(p) {
		return n, io.ErrUnexpectedEOF
	}
	return n, nil
}

func (r *backendReader) Seek(offset int64, whence int) (int64, error) {
	switch whence {
	case io.SeekStart:
		r.pos = offset
	case io.SeekCurrent:
		r.pos += offset
	default:
		return 0, fmt.Errorf("sqpack: unsupported seek whence %d", whence)
	}
	return r.pos, nil
}

// chunkReader resolves hashes against every chunk registered for one
// (category, repository) pair, lazily loading each chunk's index table on
// first use and keeping it for the reader's lifetime — indices, like
// readers, are immutable once parsed.
type chunkReader struct {
	backend      Backend
	categoryID   uint8
	repositoryID uint8

	mu       sync.Mutex
	chunkIDs []uint8
	index1   map[uint8]*index1Table
	index2   map[uint8]*index2Table
}

func newChunkReader(ctx context.Context, backend Backend, categoryID, repositoryID uint8) (*chunkReader, error) {
	ids, err := backend.Chunks(ctx, categoryID, repositoryID)
	if err != nil {
		return nil, err
	}
	return &chunkReader{
		backend:      backend,
		categoryID:   categoryID,
		repositoryID: repositoryID,
		chunkIDs:     ids,
		index1:       make(map[uint8]*index1Table),
		index2:       make(map[uint8]*index2Table),
	}, nil
}

func (c *chunkReader) loadIndex(ctx context.Context, chunkID uint8) (*index1Table, *index2Table, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if t1, ok := c.index1[chunkID]; ok {
		return t1, c.index2[chunkID], nil
	}
	t1, t2, err := c.backend.Index(ctx, c.categoryID, c.repositoryID, chunkID)
	if err != nil {
		return nil, nil, err
	}
	c.index1[chunkID] = t1
	c.index2[chunkID] = t2
	return t1, t2, nil
}

// resolve searches every chunk registered for this (category, repository)
// pair, in order, for a hit on either hash key. The first hit wins;
// exactly one chunk is expected to contain any given path in a
// well-formed archive.
func (c *chunkReader) resolve(ctx context.Context, key1 uint64, key2 uint32) (uint8, indexEntry, error) {
	for _, id := range c.chunkIDs {
		t1, t2, err := c.loadIndex(ctx, id)
		if err != nil {
			continue
		}
		if t1 != nil {
			if e, err := t1.lookup(key1); err == nil {
				return id, e, nil
			}
		} else if t2 != nil {
			if e, err := t2.lookup(key2); err == nil {
				return id, e, nil
			}
		}
	}
	return 0, indexEntry{}, newNotFound("Index entry")
}

func (c *chunkReader) readFile(ctx context.Context, chunkID uint8, entry indexEntry) (decodedFile, error) {
	r := &backendReader{
		ctx:          ctx,
		backend:      c.backend,
		categoryID:   c.categoryID,
		repositoryID: c.repositoryID,
		chunkID:      chunkID,
		datOrdinal:   entry.DatOrdinal,
	}
	return readFile(r, int64(entry.Offset))
}

// Logger is the minimal structured-logging surface Archive and excel.Excel
// accept; satisfied directly by *zap.SugaredLogger. A nil Logger is valid
// and means "don't log", matching the teacher library's total absence of
// logging as the zero case.
type Logger interface {
	Debugw(msg string, keysAndValues ...interface{})
	Warnw(msg string, keysAndValues ...interface{})
}

type noopLogger struct{}

func (noopLogger) Debugw(string, ...interface{}) {}
func (noopLogger) Warnw(string, ...interface{})  {}

type readerCacheKey struct {
	Repository string
	Category   string
}

// Archive is the read-only SqPack facade: it resolves logical paths to
// bytes by coordinating path parsing, index lookup and block decoding, and
// caches one reader per (repository, category) pair for the lifetime of
// the Archive.
type Archive struct {
	backend            Backend
	defaultRepository  string
	repositories       map[string]Repository
	knownRepositorySet map[string]struct{}

	cache *lru.Cache[readerCacheKey, *chunkReader]
	group singleflight.Group

	log Logger
}

// Option configures an Archive at construction time.
type Option func(*Archive)

// WithLogger attaches a structured logger. Passing nil is equivalent to
// not calling WithLogger at all.
func WithLogger(l Logger) Option {
	return func(a *Archive) {
		if l != nil {
			a.log = l
		}
	}
}

// NewArchive constructs an Archive rooted at the given repositories, with
// defaultRepository used whenever a logical path's second segment does
// not name a known repository.
func NewArchive(defaultRepository string, repositories []Repository, opts ...Option) (*Archive, error) {
	if _, ok := findRepository(repositories, defaultRepository); !ok {
		return nil, newNotFound(fmt.Sprintf("Default repository %q", defaultRepository))
	}

	cache, err := lru.New[readerCacheKey, *chunkReader](4096)
	if err != nil {
		return nil, newResourcef(err, "Failed to construct Archive. Could not allocate reader cache.")
	}

	repoMap := make(map[string]Repository, len(repositories))
	knownSet := make(map[string]struct{}, len(repositories))
	for _, r := range repositories {
		repoMap[r.Name] = r
		knownSet[r.Name] = struct{}{}
	}

	a := &Archive{
		backend:            newInstallBackend(repositories),
		defaultRepository:  defaultRepository,
		repositories:       repoMap,
		knownRepositorySet: knownSet,
		cache:              cache,
		log:                noopLogger{},
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// NewArchiveWithBackend builds an Archive over a caller-supplied Backend,
// e.g. a zipatch overlay instead of a direct install.
func NewArchiveWithBackend(backend Backend, defaultRepository string, repositories []Repository, opts ...Option) (*Archive, error) {
	if _, ok := findRepository(repositories, defaultRepository); !ok {
		return nil, newNotFound(fmt.Sprintf("Default repository %q", defaultRepository))
	}
	cache, err := lru.New[readerCacheKey, *chunkReader](4096)
	if err != nil {
		return nil, newResourcef(err, "Failed to construct Archive. Could not allocate reader cache.")
	}
	repoMap := make(map[string]Repository, len(repositories))
	knownSet := make(map[string]struct{}, len(repositories))
	for _, r := range repositories {
		repoMap[r.Name] = r
		knownSet[r.Name] = struct{}{}
	}
	a := &Archive{
		backend:            backend,
		defaultRepository:  defaultRepository,
		repositories:       repoMap,
		knownRepositorySet: knownSet,
		cache:              cache,
		log:                noopLogger{},
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

func findRepository(repos []Repository, name string) (Repository, bool) {
	for _, r := range repos {
		if r.Name == name {
			return r, true
		}
	}
	return Repository{}, false
}

// getReader fetches or builds the chunkReader for (repository, category),
// coalescing concurrent first-misses for the same key through a
// singleflight.Group so only one goroutine ever opens a given chunk's
// index files, per the facade's "insertion is exclusive, hits are shared"
// concurrency contract.
func (a *Archive) getReader(ctx context.Context, repository Repository, category Category) (*chunkReader, error) {
	key := readerCacheKey{Repository: repository.Name, Category: category.Name}
	if r, ok := a.cache.Get(key); ok {
		return r, nil
	}

	v, err, _ := a.group.Do(fmt.Sprintf("%s/%s", repository.Name, category.Name), func() (interface{}, error) {
		if r, ok := a.cache.Get(key); ok {
			return r, nil
		}
		r, err := newChunkReader(ctx, a.backend, category.ID, repository.ID)
		if err != nil {
			return nil, err
		}
		a.cache.Add(key, r)
		return r, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*chunkReader), nil
}

// resolveFile resolves a logical path all the way to its decoded payload.
// ReadFile and ReadModel both go through this, differing only in which part
// of the decodedFile they expose to the caller.
func (a *Archive) resolveFile(ctx context.Context, path string) (decodedFile, error) {
	if err := ctx.Err(); err != nil {
		return decodedFile{}, err
	}

	parsed, err := parsePath(path, a.knownRepositorySet, a.defaultRepository)
	if err != nil {
		return decodedFile{}, err
	}

	// parsePath only ever returns a.defaultRepository or a name present in
	// a.knownRepositorySet, and the default was validated at construction,
	// so this lookup cannot miss.
	repo := a.repositories[parsed.Repository]

	cat, ok := categoryByName(parsed.Category)
	if !ok {
		return decodedFile{}, newNotFound(fmt.Sprintf("Category %q", parsed.Category))
	}

	reader, err := a.getReader(ctx, repo, cat)
	if err != nil {
		return decodedFile{}, err
	}

	key1 := index1Key(parsed.NormalizedDir, parsed.NormalizedRel)
	key2 := index2Key(parsed.Full)

	chunkID, entry, err := reader.resolve(ctx, key1, key2)
	if err != nil {
		a.log.Debugw("sqpack: file not found", "path", path)
		return decodedFile{}, newNotFound(fmt.Sprintf("File %q", path))
	}

	df, err := reader.readFile(ctx, chunkID, entry)
	if err != nil {
		a.log.Warnw("sqpack: file read failed", "path", path, "error", err)
		return decodedFile{}, err
	}
	return df, nil
}

// ReadFile resolves a logical path to its decoded bytes. ctx is checked
// before any I/O and threaded through to the Backend, so a canceled or
// expired context aborts the read instead of running it to completion.
func (a *Archive) ReadFile(ctx context.Context, path string) ([]byte, error) {
	df, err := a.resolveFile(ctx, path)
	if err != nil {
		return nil, err
	}
	return df.Data, nil
}

// ReadModel resolves a logical path to a Model file's section-split
// contents, preserving the stack/runtime/vertex/edge/index boundaries a
// flat ReadFile call would otherwise discard.
func (a *Archive) ReadModel(ctx context.Context, path string) (ModelSections, error) {
	df, err := a.resolveFile(ctx, path)
	if err != nil {
		return ModelSections{}, err
	}
	if df.Kind != FileKindModel {
		return ModelSections{}, NewInvalidOperation(fmt.Sprintf("File %q is not a Model file.", path))
	}
	return SplitModelSections(df.Data, df.ModelSizes)
}

// List reads a well-known manifest file (by convention "<category>/<name>.exl")
// and returns the first column of every data row, per the EXLT manifest
// format. It is not a directory walk.
func (a *Archive) List(ctx context.Context, category, name string) ([]string, error) {
	data, err := a.ReadFile(ctx, fmt.Sprintf("%s/%s.exl", category, name))
	if err != nil {
		return nil, err
	}
	return parseEXL(data)
}

// Close releases any resources held by the Archive's backend, such as
// open .datN file handles.
func (a *Archive) Close() error {
	if closer, ok := a.backend.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}
