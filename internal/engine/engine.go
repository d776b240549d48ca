package engine

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/roach88/concha/internal/remote"
	"github.com/roach88/concha/internal/trick"
	"github.com/roach88/concha/internal/tree"
)

// Default bounds.
const (
	DefaultMaxDepth      = 8
	DefaultMaxIterations = 256
)

// Parser turns text into a dependency tree.
type Parser interface {
	Parse(ctx context.Context, text string) (*tree.Tree, error)
}

// Caller performs the remote side effect of a trick.
type Caller interface {
	Call(ctx context.Context, method, uri string, body any) (*remote.Response, error)
}

// Source provides repository snapshots. Implemented by trick.Repository.
type Source interface {
	Snapshot() *trick.Snapshot
}

// Observer is told about every compile and every Link result. Used for
// metrics.
type Observer interface {
	Compiled(trickID int, method, status string)
	Linked(depth int, status string)
}

// Engine resolves sentences against a trick source.
//
// Thread-safety: an Engine is safe for concurrent use. Each Link call
// owns the trees it builds and reads one immutable Snapshot.
type Engine struct {
	source   Source
	parser   Parser
	caller   Caller
	observer Observer
	tokens   TokenGenerator
	logger   *slog.Logger

	maxDepth      int
	maxIterations int
	timeout       time.Duration

	randMu sync.Mutex
	rand   *rand.Rand // nil uses the global source
}

// EngineOption allows configuration of engine parameters.
type EngineOption func(*Engine)

// WithMaxDepth bounds nested Link calls.
func WithMaxDepth(n int) EngineOption {
	return func(e *Engine) { e.maxDepth = n }
}

// WithMaxIterations bounds compiles per Link call.
func WithMaxIterations(n int) EngineOption {
	return func(e *Engine) { e.maxIterations = n }
}

// WithTimeout bounds a whole Link call, remote calls and parsing
// included. Zero means no bound beyond the caller's context.
func WithTimeout(d time.Duration) EngineOption {
	return func(e *Engine) { e.timeout = d }
}

// WithRand sets the source used to break ties between artifacts.
func WithRand(r *rand.Rand) EngineOption {
	return func(e *Engine) { e.rand = r }
}

// WithSeed breaks ties with a source seeded by seed.
func WithSeed(seed uint64) EngineOption {
	return WithRand(rand.New(rand.NewPCG(seed, seed)))
}

// WithCaller sets the remote caller. Without one, remote methods answer
// "501".
func WithCaller(c Caller) EngineOption {
	return func(e *Engine) { e.caller = c }
}

// WithObserver registers an observer.
func WithObserver(o Observer) EngineOption {
	return func(e *Engine) { e.observer = o }
}

// WithTokens sets the resolution token generator.
func WithTokens(g TokenGenerator) EngineOption {
	return func(e *Engine) { e.tokens = g }
}

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) EngineOption {
	return func(e *Engine) { e.logger = l }
}

// New creates an Engine reading tricks from source and parsing answers
// with parser.
func New(source Source, parser Parser, opts ...EngineOption) *Engine {
	e := &Engine{
		source:        source,
		parser:        parser,
		tokens:        UUIDv7Generator{},
		logger:        slog.Default(),
		maxDepth:      DefaultMaxDepth,
		maxIterations: DefaultMaxIterations,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// pick returns a random index in [0, n).
func (e *Engine) pick(n int) int {
	if e.rand == nil {
		return rand.IntN(n)
	}
	e.randMu.Lock()
	defer e.randMu.Unlock()
	return e.rand.IntN(n)
}

func (e *Engine) newRun(ctx context.Context) (*run, context.Context, context.CancelFunc) {
	cancel := context.CancelFunc(func() {})
	if e.timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
	}
	token := e.tokens.Generate()
	return &run{
		e:     e,
		snap:  e.source.Snapshot(),
		token: token,
		log:   e.logger.With("resolution", token),
	}, ctx, cancel
}

// Link resolves tr against the default domain and returns the winning
// artifact. It fails only when ctx ends or a limit is exceeded at the
// top level; every other failure is an artifact status.
func (e *Engine) Link(ctx context.Context, tr *tree.Tree) (Artifact, error) {
	r, ctx, cancel := e.newRun(ctx)
	defer cancel()

	r.log.Debug("link started", "text", tr.Format())
	art, err := r.link(ctx, tr, r.snap.Default, 0)
	if err != nil {
		r.log.Warn("link failed", "error", err)
		return Artifact{}, err
	}
	r.log.Info("link resolved", "status", art.Status, "used", art.Used)
	return art, nil
}

// Compile applies the single trick id to tr.
func (e *Engine) Compile(ctx context.Context, tr *tree.Tree, id int) (Artifact, error) {
	r, ctx, cancel := e.newRun(ctx)
	defer cancel()

	t, dom, ok := r.snap.Lookup(id)
	if !ok {
		return Artifact{}, fmt.Errorf("%w: %d", ErrUnknownTrick, id)
	}
	return r.compile(ctx, tr, id, t, dom, 0)
}
