package engine

import (
	"errors"
	"fmt"
)

// LimitKind names the bound a resolution exceeded.
type LimitKind string

const (
	// LimitDepth bounds nested Link calls.
	LimitDepth LimitKind = "depth"
	// LimitIterations bounds compiles within one Link call.
	LimitIterations LimitKind = "iterations"
)

// LimitError reports a resolution that exceeded a bound.
type LimitError struct {
	Kind  LimitKind
	Limit int
	Token string // resolution token, for log correlation
}

// Error implements the error interface.
func (e *LimitError) Error() string {
	if e.Token != "" {
		return fmt.Sprintf("resolution %s exceeded max %s (%d)", e.Token, e.Kind, e.Limit)
	}
	return fmt.Sprintf("resolution exceeded max %s (%d)", e.Kind, e.Limit)
}

// IsLimitError reports whether err is a LimitError.
// Uses errors.As to handle wrapped errors.
func IsLimitError(err error) bool {
	var le *LimitError
	return errors.As(err, &le)
}

// ErrUnknownTrick is returned by Compile for ids that are not in the
// repository.
var ErrUnknownTrick = errors.New("unknown trick")
