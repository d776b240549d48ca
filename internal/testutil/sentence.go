// Package testutil provides deterministic stand-ins for the external
// parser and helpers for writing sentences compactly in tests.
package testutil

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/roach88/concha/internal/tree"
)

// ParseSentence builds a tree from a compact description: one
// "form head label" triple per token, separated by semicolons, ids
// assigned in order.
//
//	ParseSentence("repite 0 root; tu 3 det; nombre 1 obj")
func ParseSentence(spec string) (*tree.Tree, error) {
	var tokens []tree.Token
	for i, seg := range strings.Split(spec, ";") {
		fields := strings.Fields(seg)
		if len(fields) != 3 {
			return nil, fmt.Errorf("token %d: want \"form head label\", got %q", i+1, strings.TrimSpace(seg))
		}
		head, err := strconv.Atoi(fields[1])
		if err != nil {
			return nil, fmt.Errorf("token %d: bad head %q", i+1, fields[1])
		}
		tokens = append(tokens, tree.Token{ID: i + 1, Form: fields[0], Head: head, Label: fields[2]})
	}
	return tree.Build(tokens, spec)
}

// Sentence is ParseSentence that panics on error.
func Sentence(spec string) *tree.Tree {
	t, err := ParseSentence(spec)
	if err != nil {
		panic(err)
	}
	return t
}

// Flat parses text as a sentence whose first word is the root and every
// other word hangs from it as "dep".
func Flat(text string) (*tree.Tree, error) {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil, &tree.ParseError{Input: text, Message: "empty text"}
	}
	tokens := make([]tree.Token, len(words))
	for i, w := range words {
		tokens[i] = tree.Token{ID: i + 1, Form: w, Head: 1, Label: "dep"}
	}
	tokens[0].Head = 0
	tokens[0].Label = tree.RootLabel
	return tree.Build(tokens, text)
}
