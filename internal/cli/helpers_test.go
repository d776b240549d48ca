package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// flatParser is a parser command emitting CoNLL-U where the first word
// is the root and every other word hangs from it as "dep".
const flatParser = `awk '{for (i = 1; i <= NF; i++) printf "%d\t%s\t%s\t_\t_\t_\t%d\t%s\t_\t_\n", i, $i, $i, (i == 1 ? 0 : 1), (i == 1 ? "root" : "dep")}'`

// execute runs the root command with args and returns stdout and stderr.
func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	out := &bytes.Buffer{}
	errOut := &bytes.Buffer{}
	cmd := NewRootCommand()
	cmd.SetOut(out)
	cmd.SetErr(errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), errOut.String(), err
}

// writeFiles creates files (relative path -> content) below a new
// temporary directory.
func writeFiles(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for rel, content := range files {
		path := filepath.Join(dir, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	}
	return dir
}

const (
	holaTrick   = `{"given": {"root": {"form": "hola"}}, "then": {"200": "buenos días"}}`
	adiosTrick  = "given:\n  root:\n    form: adiós\nthen:\n  200: hasta luego\n"
	errorTrick  = `{"given": {"root": {}}, "when": {"method": "ERROR"}, "then": {"501": "no te entiendo"}}`
	brokenTrick = `{"then": {"200": "sin given"}}`
)
