package parser

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/roach88/concha/internal/tree"
)

// punctuation is split from adjacent words before text reaches a local
// parser, which expects pre-tokenized input.
var punctuation = strings.NewReplacer(
	".", " . ",
	",", " , ",
	";", " ; ",
	":", " : ",
	"¿", " ¿ ",
	"?", " ? ",
	"¡", " ¡ ",
	"!", " ! ",
)

// Tokenize surrounds punctuation with spaces and collapses runs of
// whitespace.
func Tokenize(text string) string {
	return strings.Join(strings.Fields(punctuation.Replace(text)), " ")
}

// CommandParser runs a shell command that reads a sentence on stdin and
// writes CoNLL-U on stdout, e.g. "./parse.sh ../lang_models/Spanish".
type CommandParser struct {
	command string
	dir     string
}

// NewCommandParser creates a parser running command in dir.
func NewCommandParser(command, dir string) *CommandParser {
	return &CommandParser{command: command, dir: dir}
}

// Parse implements engine.Parser.
func (p *CommandParser) Parse(ctx context.Context, text string) (*tree.Tree, error) {
	cmd := exec.CommandContext(ctx, "sh", "-c", p.command)
	cmd.Dir = p.dir
	cmd.Stdin = strings.NewReader(Tokenize(text) + "\n")
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("parser command: %w: %s", err, strings.TrimSpace(stderr.String()))
	}
	return tree.ParseConllu(stdout.String())
}
