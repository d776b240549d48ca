package harness

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"sync"

	"github.com/roach88/concha/internal/engine"
	"github.com/roach88/concha/internal/loader"
	"github.com/roach88/concha/internal/remote"
	"github.com/roach88/concha/internal/testutil"
	"github.com/roach88/concha/internal/trick"
)

// Harness is the test execution engine.
// It runs scenarios with a scripted parser, a seeded random source and a
// fixed resolution token.
type Harness struct {
	repo     *trick.Repository
	engine   *engine.Engine
	parser   *testutil.ScriptedParser
	compiles *compileRecorder
}

// New builds a harness for scenario.
func New(scenario *Scenario) (*Harness, error) {
	repo, err := buildRepository(scenario)
	if err != nil {
		return nil, err
	}

	parser := testutil.NewScriptedParser(scenario.Sentences)
	rec := &compileRecorder{}
	opts := []engine.EngineOption{
		engine.WithSeed(scenario.Seed),
		engine.WithTokens(engine.NewFixedGenerator(scenario.Name)),
		engine.WithObserver(rec),
		engine.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))), // Suppress logs in tests
	}
	if scenario.MaxDepth != nil {
		opts = append(opts, engine.WithMaxDepth(*scenario.MaxDepth))
	}
	if len(scenario.Remote) > 0 {
		caller, err := newStubCaller(scenario.Remote)
		if err != nil {
			return nil, err
		}
		opts = append(opts, engine.WithCaller(caller))
	}

	return &Harness{
		repo:     repo,
		engine:   engine.New(repo, parser, opts...),
		parser:   parser,
		compiles: rec,
	}, nil
}

// Run executes a test scenario and returns the result.
//
// Execution flow:
// 1. Load the rules directory and inline tricks into a fresh repository
// 2. Say every turn, recording the trace and checking expect clauses
// 3. Evaluate assertions against the whole trace
func Run(scenario *Scenario) (*Result, error) {
	h, err := New(scenario)
	if err != nil {
		return nil, err
	}
	return h.Run(context.Background(), scenario)
}

// Run says every turn of scenario.
func (h *Harness) Run(ctx context.Context, scenario *Scenario) (*Result, error) {
	result := NewResult()
	for i, turn := range scenario.Turns {
		event, err := h.Say(ctx, turn.Say)
		if err != nil {
			return nil, fmt.Errorf("turn %d: %w", i, err)
		}
		event.Turn = i
		result.Trace = append(result.Trace, event)
		for _, msg := range checkExpect(i, turn.Expect, event) {
			result.AddError(msg)
		}
	}

	for _, msg := range EvaluateAssertions(result, scenario.Assertions) {
		result.AddError(msg)
	}
	return result, nil
}

// Say resolves one sentence. A limit exceeded at the top level is
// reported as a "508" answer.
func (h *Harness) Say(ctx context.Context, text string) (TraceEvent, error) {
	tr, err := h.parser.Parse(ctx, text)
	if err != nil {
		return TraceEvent{}, fmt.Errorf("failed to parse %q: %w", text, err)
	}

	h.compiles.take()
	art, err := h.engine.Link(ctx, tr)
	if err != nil {
		if !engine.IsLimitError(err) {
			return TraceEvent{}, fmt.Errorf("failed to resolve %q: %w", text, err)
		}
		art = engine.Artifact{Status: engine.StatusLimit}
	}

	return newTraceEvent(text, tr.Format(), h.compiles.take(), art), nil
}

// checkExpect compares a turn against its expect clause.
func checkExpect(i int, expect *ExpectClause, event TraceEvent) []string {
	if expect == nil {
		return nil
	}
	var errs []string
	if expect.Status != "" && expect.Status != event.Status {
		errs = append(errs, fmt.Sprintf("turn %d: expected status %q, got %q", i, expect.Status, event.Status))
	}
	if expect.Answer != "" && expect.Answer != event.Answer {
		errs = append(errs, fmt.Sprintf("turn %d: expected answer %q, got %q", i, expect.Answer, event.Answer))
	}
	if expect.Tricks != nil && !slices.Equal(expect.Tricks, event.Tricks) {
		errs = append(errs, fmt.Sprintf("turn %d: expected tricks %v, got %v", i, expect.Tricks, event.Tricks))
	}
	return errs
}

// buildRepository loads the rules directory, then the inline tricks.
func buildRepository(scenario *Scenario) (*trick.Repository, error) {
	repo := trick.NewRepository()
	if scenario.Rules != "" {
		loaded, errs := loader.Load(scenario.Rules, loader.LoadModeFailFast)
		if len(errs) > 0 {
			return nil, fmt.Errorf("failed to load rules: %w", errs[0])
		}
		repo.Replace(loaded.Tricks())
	}
	for i, raw := range scenario.Tricks {
		doc, err := loader.Document(raw)
		if err != nil {
			return nil, fmt.Errorf("trick %d: %w", i, err)
		}
		if _, _, err := repo.Create(doc); err != nil {
			return nil, fmt.Errorf("trick %d: %w", i, err)
		}
	}
	return repo, nil
}

// compileRecorder is an engine.Observer collecting compiles in order.
type compileRecorder struct {
	mu     sync.Mutex
	events []CompileEvent
}

func (r *compileRecorder) Compiled(trickID int, method, status string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, CompileEvent{Trick: trickID, Method: method, Status: status})
}

func (r *compileRecorder) Linked(int, string) {}

// take returns the recorded events and starts over.
func (r *compileRecorder) take() []CompileEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	events := r.events
	r.events = nil
	return events
}

// stubCaller answers remote calls from the scenario's remote section.
type stubCaller struct {
	answers map[string]*remote.Response
}

func newStubCaller(stubs []RemoteStub) (*stubCaller, error) {
	c := &stubCaller{answers: make(map[string]*remote.Response, len(stubs))}
	for i, stub := range stubs {
		var body any = ""
		if stub.Body != nil {
			data, err := loader.Document(stub.Body)
			if err != nil {
				return nil, fmt.Errorf("remote %d: %w", i, err)
			}
			if err := json.Unmarshal(data, &body); err != nil {
				return nil, fmt.Errorf("remote %d: %w", i, err)
			}
		}
		c.answers[stub.Method+" "+stub.URI] = &remote.Response{
			StatusCode:  stub.Status,
			ContentType: "application/json",
			Body:        body,
		}
	}
	return c, nil
}

func (c *stubCaller) Call(ctx context.Context, method, uri string, body any) (*remote.Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	resp, ok := c.answers[method+" "+uri]
	if !ok {
		return nil, fmt.Errorf("no remote stub for %s %s", method, uri)
	}
	return resp, nil
}
