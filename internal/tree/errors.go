package tree

import (
	"fmt"
	"strings"
)

// ParseError reports structurally invalid parser output.
type ParseError struct {
	Input   string
	Message string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error: %s", e.Message)
}

// LookupError reports a path segment that does not exist in a tree.
type LookupError struct {
	Path    []string
	Segment string
}

func (e *LookupError) Error() string {
	var b strings.Builder
	for i, k := range e.Path {
		if i == 0 {
			b.WriteString(k)
			continue
		}
		b.WriteString("[" + k + "]")
	}
	return fmt.Sprintf("lookup %s: no %q", b.String(), e.Segment)
}
