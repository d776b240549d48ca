package harness

import "github.com/roach88/concha/internal/engine"

// CompileEvent is one trick application observed during a turn.
type CompileEvent struct {
	Trick  int    `json:"trick"`
	Method string `json:"method,omitempty"`
	Status string `json:"status"`
}

// TraceEvent records one turn of the conversation.
type TraceEvent struct {
	Turn     int            `json:"turn"`
	Say      string         `json:"say"`
	Request  string         `json:"request"`
	Compiled []CompileEvent `json:"compiled"`
	Answer   string         `json:"answer"`
	Tricks   []int          `json:"tricks"`
	Status   string         `json:"status"`
}

// Result is the outcome of a test scenario execution.
type Result struct {
	// Pass indicates overall test success.
	// True if every expect clause and assertion holds.
	Pass bool `json:"pass"`

	// Trace contains one event per turn, in order.
	Trace []TraceEvent `json:"trace"`

	// Errors contains validation error messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// newTraceEvent records the outcome of one turn.
func newTraceEvent(say, request string, compiled []CompileEvent, art engine.Artifact) TraceEvent {
	used := art.Used
	if used == nil {
		used = []int{}
	}
	if compiled == nil {
		compiled = []CompileEvent{}
	}
	return TraceEvent{
		Say:      say,
		Request:  request,
		Compiled: compiled,
		Answer:   art.Text(),
		Tricks:   used,
		Status:   art.Status,
	}
}
