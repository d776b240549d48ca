package trick

import (
	"github.com/roach88/concha/internal/tree"
)

// Methods accepted in when.method.
const (
	MethodGet    = "GET"
	MethodPost   = "POST"
	MethodPut    = "PUT"
	MethodDelete = "DELETE"
	MethodTreat  = "TREAT"
	MethodError  = "ERROR"
)

// When is the side effect run before answering.
type When struct {
	Method string `json:"method"`
	URI    string `json:"uri,omitempty"`
	Body   any    `json:"body,omitempty"`
}

// Trick is one given/when/then rule.
type Trick struct {
	Given *tree.Pattern     `json:"given"`
	When  *When             `json:"when,omitempty"`
	Then  map[string]string `json:"then"`
}

// IsError reports whether the trick belongs to the error domain.
func (t *Trick) IsError() bool {
	return t.When != nil && t.When.Method == MethodError
}

// Matches reports whether tr satisfies the given pattern.
func (t *Trick) Matches(tr *tree.Tree) bool {
	return tr != nil && tr.Matches(t.Given)
}

// Method returns when.method, or "" for a trick without a side effect.
func (t *Trick) Method() string {
	if t.When == nil {
		return ""
	}
	return t.When.Method
}
