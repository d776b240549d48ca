package testutil

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/roach88/concha/internal/tree"
)

// ScriptedParser answers Parse from a fixed table of sentences. Text not
// in the table is parsed with Flat, unless Strict is set.
//
// Thread-safety: safe for concurrent use.
type ScriptedParser struct {
	Strict bool

	mu        sync.Mutex
	sentences map[string]string
	calls     []string
}

// NewScriptedParser creates a parser from text -> ParseSentence spec.
func NewScriptedParser(sentences map[string]string) *ScriptedParser {
	p := &ScriptedParser{sentences: make(map[string]string, len(sentences))}
	for text, spec := range sentences {
		p.sentences[normalize(text)] = spec
	}
	return p
}

// Add scripts one more sentence.
func (p *ScriptedParser) Add(text, spec string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sentences[normalize(text)] = spec
}

// Parse implements engine.Parser.
func (p *ScriptedParser) Parse(ctx context.Context, text string) (*tree.Tree, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p.mu.Lock()
	p.calls = append(p.calls, text)
	spec, ok := p.sentences[normalize(text)]
	strict := p.Strict
	p.mu.Unlock()

	if ok {
		return ParseSentence(spec)
	}
	if strict {
		return nil, fmt.Errorf("no scripted parse for %q", text)
	}
	return Flat(text)
}

// Calls returns every text passed to Parse, in order.
func (p *ScriptedParser) Calls() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.calls...)
}

func normalize(text string) string {
	return strings.Join(strings.Fields(text), " ")
}
