package harness

import (
	"fmt"
	"strings"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	fmt.Fprintf(&buf, "\nFull trace:\n")
	for _, event := range e.Trace {
		fmt.Fprintf(&buf, "  [%d] %q -> %q (%s, tricks %v)\n", event.Turn, event.Say, event.Answer, event.Status, event.Tricks)
	}

	return buf.String()
}

// compileCounts counts compiles per trick across the trace.
func compileCounts(trace []TraceEvent) map[int]int {
	counts := make(map[int]int)
	for _, event := range trace {
		for _, c := range event.Compiled {
			counts[c.Trick]++
		}
	}
	return counts
}

// assertTrickUsed checks that the trick was compiled in some turn.
func assertTrickUsed(trace []TraceEvent, assertion Assertion) error {
	if compileCounts(trace)[assertion.Trick] > 0 {
		return nil
	}
	return &AssertionError{
		Type:     AssertTrickUsed,
		Expected: fmt.Sprintf("trick %d compiled", assertion.Trick),
		Actual:   "never compiled",
		Trace:    trace,
	}
}

// assertTrickCount checks that the trick was compiled exactly Count times.
func assertTrickCount(trace []TraceEvent, assertion Assertion) error {
	count := compileCounts(trace)[assertion.Trick]
	if count == assertion.Count {
		return nil
	}
	return &AssertionError{
		Type:     AssertTrickCount,
		Expected: fmt.Sprintf("%d compiles of trick %d", assertion.Count, assertion.Trick),
		Actual:   fmt.Sprintf("%d compiles", count),
		Trace:    trace,
	}
}

// assertCompileOrder checks that tricks were first compiled in the given
// order. Other tricks may be compiled in between.
func assertCompileOrder(trace []TraceEvent, assertion Assertion) error {
	// Step 1: Find first position of each trick
	positions := make(map[int]int)
	pos := 0
	for _, event := range trace {
		for _, c := range event.Compiled {
			pos++
			if positions[c.Trick] == 0 {
				positions[c.Trick] = pos // 1-indexed for readability
			}
		}
	}

	// Step 2: Verify all tricks found
	for _, id := range assertion.Order {
		if positions[id] == 0 {
			return &AssertionError{
				Type:     AssertCompileOrder,
				Expected: fmt.Sprintf("all tricks compiled: %v", assertion.Order),
				Actual:   fmt.Sprintf("trick %d never compiled", id),
				Trace:    trace,
			}
		}
	}

	// Step 3: Verify order
	for i := 1; i < len(assertion.Order); i++ {
		prev, curr := assertion.Order[i-1], assertion.Order[i]
		if positions[prev] >= positions[curr] {
			return &AssertionError{
				Type:     AssertCompileOrder,
				Expected: fmt.Sprintf("tricks in order: %v", assertion.Order),
				Actual: fmt.Sprintf("trick %d (pos %d) should be before trick %d (pos %d)",
					prev, positions[prev], curr, positions[curr]),
				Trace: trace,
			}
		}
	}
	return nil
}

// assertStatusCount checks how many turns answered with Status.
func assertStatusCount(trace []TraceEvent, assertion Assertion) error {
	count := 0
	for _, event := range trace {
		if event.Status == assertion.Status {
			count++
		}
	}
	if count == assertion.Count {
		return nil
	}
	return &AssertionError{
		Type:     AssertStatusCount,
		Expected: fmt.Sprintf("%d turns with status %s", assertion.Count, assertion.Status),
		Actual:   fmt.Sprintf("%d turns", count),
		Trace:    trace,
	}
}

// EvaluateAssertions runs every assertion and returns the failure
// messages.
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	var errs []string
	for i, assertion := range assertions {
		var err error
		switch assertion.Type {
		case AssertTrickUsed:
			err = assertTrickUsed(result.Trace, assertion)
		case AssertTrickCount:
			err = assertTrickCount(result.Trace, assertion)
		case AssertCompileOrder:
			err = assertCompileOrder(result.Trace, assertion)
		case AssertStatusCount:
			err = assertStatusCount(result.Trace, assertion)
		default:
			err = fmt.Errorf("unknown assertion type: %s", assertion.Type)
		}
		if err != nil {
			errs = append(errs, fmt.Sprintf("assertion %d: %v", i, err))
		}
	}
	return errs
}
