package template

import (
	"errors"
	"fmt"
)

var (
	// ErrSyntax marks a malformed template or placeholder.
	ErrSyntax = errors.New("template syntax")
	// ErrUnknownName marks a placeholder whose name is not in the context.
	ErrUnknownName = errors.New("unknown name")
	// ErrNotFound marks a key that does not exist in the resolved value.
	ErrNotFound = errors.New("not found")
)

// Error reports a template that cannot be parsed or rendered.
type Error struct {
	Template    string
	Placeholder string
	Err         error
}

func (e *Error) Error() string {
	if e.Placeholder == "" {
		return fmt.Sprintf("template %q: %v", e.Template, e.Err)
	}
	return fmt.Sprintf("template %q: %s: %v", e.Template, e.Placeholder, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }
