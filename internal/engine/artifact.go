package engine

import (
	"github.com/roach88/concha/internal/tree"
)

// Artifact statuses produced by the engine itself. Remote calls add
// their own HTTP codes.
const (
	StatusOK             = "200"
	StatusFailed         = "500" // template or parser failure while compiling
	StatusNotImplemented = "501" // unknown method, failed call, or no then entry
	StatusLimit          = "508" // nested resolution exhausted a limit
	StatusNoTrick        = "600" // nothing matched and no error tricks
)

// NoTrickForm is the form of the sentinel answer for unhandled input.
const NoTrickForm = "no-trick"

// Artifact is the outcome of one resolution attempt. Tree is nil when
// the attempt produced no answer.
type Artifact struct {
	Tree   *tree.Tree `json:"tree"`
	Used   []int      `json:"used"`
	Status string     `json:"status"`
}

// Text is the linearized answer, or "" when there is none.
func (a Artifact) Text() string {
	if a.Tree == nil {
		return ""
	}
	return a.Tree.Format()
}

// NoTrick is the sentinel artifact for input nothing could handle.
func NoTrick() Artifact {
	root := &tree.Node{Attributes: tree.Attributes{ID: 1, Form: NoTrickForm}}
	return Artifact{
		Tree:   tree.New(tree.RootLabel, root),
		Used:   []int{},
		Status: StatusNoTrick,
	}
}

func failed(id int, status string) Artifact {
	return Artifact{Used: []int{id}, Status: status}
}
