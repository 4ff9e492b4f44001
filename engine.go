package movefcg

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sync"

	"github.com/jward/movefcg/internal/config"
	"github.com/jward/movefcg/internal/discover"
	"github.com/jward/movefcg/internal/manifest"
	"github.com/jward/movefcg/internal/model"
	"github.com/jward/movefcg/internal/move"
	"github.com/jward/movefcg/syntax"
)

// Engine builds project indexes and answers queries against the most recent
// one. Every build is a full rescan; the previous index is replaced whole
// and never mutated.
type Engine struct {
	workers     int
	newParser   func() syntax.Parser
	logger      *slog.Logger
	discover    discover.Options
	policy      AmbiguityPolicy
	cacheSize   int
	maxFileSize int64

	mu      sync.RWMutex
	root    string
	current *snapshot
}

// snapshot is an index together with the lookups built over it.
type snapshot struct {
	index    *Index
	resolver *Resolver
	graph    *CallGraph
}

// Option configures an Engine.
type Option func(*Engine)

// WithWorkers bounds parallel extraction. Values below one mean one worker
// per CPU.
func WithWorkers(n int) Option {
	return func(e *Engine) {
		e.workers = n
	}
}

// WithParser replaces the built-in Move parser. The factory is called once
// per worker and once per uncached call lookup.
func WithParser(newParser func() syntax.Parser) Option {
	return func(e *Engine) {
		e.newParser = newParser
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = l
	}
}

// WithExcludes skips files matching any of the glob patterns, relative to
// the project root.
func WithExcludes(patterns ...string) Option {
	return func(e *Engine) {
		e.discover.Exclude = append(e.discover.Exclude, patterns...)
	}
}

// WithSkipDirs replaces the directory names pruned during discovery.
func WithSkipDirs(names ...string) Option {
	return func(e *Engine) {
		e.discover.SkipDirs = names
	}
}

// WithGitignore controls whether the root .gitignore is honoured.
func WithGitignore(respect bool) Option {
	return func(e *Engine) {
		e.discover.RespectGitignore = respect
	}
}

func WithAmbiguityPolicy(p AmbiguityPolicy) Option {
	return func(e *Engine) {
		e.policy = p
	}
}

// WithCacheSize sets how many call lists are cached per index. Zero
// disables the cache.
func WithCacheSize(n int) Option {
	return func(e *Engine) {
		e.cacheSize = n
	}
}

// WithMaxFileSize skips source files larger than n bytes. Zero disables the
// limit.
func WithMaxFileSize(n int64) Option {
	return func(e *Engine) {
		e.maxFileSize = n
	}
}

// WithConfig applies a loaded project configuration. Options given after it
// take precedence.
func WithConfig(cfg config.Config) Option {
	return func(e *Engine) {
		e.workers = cfg.Workers
		e.discover = discover.Options{
			SkipDirs:         cfg.SkipDirs,
			Exclude:          cfg.Exclude,
			RespectGitignore: cfg.RespectGitignore,
		}
		e.policy = ParseAmbiguityPolicy(cfg.Ambiguity)
		e.cacheSize = cfg.CacheSize
		e.maxFileSize = cfg.MaxFileSize
	}
}

// New creates an Engine with the defaults of config.DefaultConfig and the
// built-in Move parser.
func New(opts ...Option) *Engine {
	e := &Engine{
		newParser: func() syntax.Parser { return move.NewParser() },
		logger:    slog.New(slog.DiscardHandler),
	}
	WithConfig(config.DefaultConfig())(e)
	for _, opt := range opts {
		opt(e)
	}
	if e.workers < 1 {
		e.workers = runtime.NumCPU()
	}
	return e
}

// IndexProject scans root and replaces the Engine's index with the result.
// It fails with ErrPathNotFound or ErrNotADirectory for a bad root; problems
// with individual files are recorded as diagnostics on the index.
func (e *Engine) IndexProject(ctx context.Context, root string) (*Index, error) {
	abs, err := checkRoot(root)
	if err != nil {
		return nil, err
	}

	idx, err := e.build(ctx, abs)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	e.root = abs
	e.current = e.snapshotOf(idx)
	e.mu.Unlock()
	return idx, nil
}

// Reindex rebuilds the index of the last indexed root.
func (e *Engine) Reindex(ctx context.Context) (*Index, error) {
	e.mu.RLock()
	root := e.root
	e.mu.RUnlock()
	if root == "" {
		return nil, errors.New("movefcg: reindex: no project indexed")
	}
	return e.IndexProject(ctx, root)
}

// Use installs an index built elsewhere, such as one loaded from a
// snapshot database.
func (e *Engine) Use(idx *Index) {
	e.mu.Lock()
	e.root = idx.Root
	e.current = e.snapshotOf(idx)
	e.mu.Unlock()
}

// Index returns the current index, or nil before the first build.
func (e *Engine) Index() *Index {
	s := e.snapshot()
	if s == nil {
		return nil
	}
	return s.index
}

func (e *Engine) snapshotOf(idx *Index) *snapshot {
	return &snapshot{
		index:    idx,
		resolver: NewResolver(idx, e.policy),
		graph:    NewCallGraph(idx, e.newParser, e.cacheSize),
	}
}

func (e *Engine) snapshot() *snapshot {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.current
}

var errNoIndex = errors.New("movefcg: no project indexed")

// QueryFunction resolves name in the current index and extracts its calls.
func (e *Engine) QueryFunction(ctx context.Context, name string) (*QueryResult, error) {
	s := e.snapshot()
	if s == nil {
		return nil, errNoIndex
	}
	return query(ctx, s.resolver, s.graph, name)
}

// QueryModuleFunctions lists the functions of a module in the current
// index.
func (e *Engine) QueryModuleFunctions(key string) ([]*Function, error) {
	s := e.snapshot()
	if s == nil {
		return nil, errNoIndex
	}
	m, err := s.resolver.Module(key)
	if err != nil {
		return nil, err
	}
	return m.Functions, nil
}

// Resolver returns the resolver over the current index, or nil before the
// first build.
func (e *Engine) Resolver() *Resolver {
	if s := e.snapshot(); s != nil {
		return s.resolver
	}
	return nil
}

// CallGraph returns the call graph over the current index, or nil before
// the first build.
func (e *Engine) CallGraph() *CallGraph {
	if s := e.snapshot(); s != nil {
		return s.graph
	}
	return nil
}

// Matcher returns the discovery filter the Engine applies under root.
func (e *Engine) Matcher(root string) (*discover.Matcher, error) {
	return discover.NewMatcher(root, e.discover)
}

// Files lists the source files an index build of root would parse, as
// sorted slash-separated paths relative to root.
func (e *Engine) Files(root string) ([]string, error) {
	files, err := discover.Files(root, e.discover)
	if err != nil {
		return nil, fmt.Errorf("movefcg: discover: %w", err)
	}
	return files, nil
}

func checkRoot(root string) (string, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return "", fmt.Errorf("movefcg: index %s: %w", root, err)
	}
	info, err := os.Stat(abs)
	if errors.Is(err, fs.ErrNotExist) {
		return "", fmt.Errorf("movefcg: index %s: %w", root, ErrPathNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("movefcg: index %s: %w", root, err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("movefcg: index %s: %w", root, ErrNotADirectory)
	}
	return abs, nil
}

// build runs discovery, manifest reading, extraction and the merge.
func (e *Engine) build(ctx context.Context, root string) (*Index, error) {
	files, err := discover.Files(root, e.discover)
	if err != nil {
		return nil, fmt.Errorf("movefcg: discover: %w", err)
	}

	var diags []Diagnostic
	mf, err := manifest.Read(root)
	if err != nil {
		e.logger.Warn("manifest unreadable, using defaults", "path", manifest.FileName, "error", err)
		diags = append(diags, Diagnostic{Kind: model.ManifestMalformed, File: manifest.FileName, Message: err.Error()})
	}

	results, err := e.extractFiles(ctx, root, files)
	if err != nil {
		return nil, err
	}

	idx := model.NewProjectIndex(root, mf.PackageName)
	idx.Dependencies = mf.Dependencies
	for k, v := range mf.Addresses {
		idx.Addresses[k] = v
	}
	idx.Diagnostics = diags
	e.merge(idx, results)

	e.logger.Debug("indexed project",
		"root", root,
		"files", len(idx.Files),
		"modules", len(idx.Modules),
		"functions", idx.FunctionCount(),
		"diagnostics", len(idx.Diagnostics),
	)
	return idx, nil
}
