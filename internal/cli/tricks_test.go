package cli

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/concha/internal/store"
)

func TestTricksValidate_Valid(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		"hola.json":        holaTrick,
		"nested/adios.yml": adiosTrick,
	})

	out, _, err := execute(t, "tricks", "validate", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ 2 trick(s) in 2 file(s) valid")
}

func TestTricksValidate_ValidJSON(t *testing.T) {
	dir := writeFiles(t, map[string]string{"hola.json": holaTrick})

	out, _, err := execute(t, "--format", "json", "tricks", "validate", dir)
	require.NoError(t, err)

	var resp struct {
		Status string           `json:"status"`
		Data   ValidationResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.True(t, resp.Data.Valid)
	assert.Equal(t, 1, resp.Data.Tricks)
}

func TestTricksValidate_Invalid(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		"a.json": holaTrick,
		"b.json": brokenTrick,
		"c.yaml": "given: [unclosed\n",
	})

	out, _, err := execute(t, "tricks", "validate", dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "b.json[0] [E201]")
	assert.Contains(t, out, "c.yaml")
	assert.Contains(t, out, "problem(s) found")
}

func TestTricksValidate_InvalidJSON(t *testing.T) {
	dir := writeFiles(t, map[string]string{"b.json": brokenTrick})

	out, _, err := execute(t, "--format", "json", "tricks", "validate", dir)
	require.Error(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "E_VALIDATION", resp.Error.Code)
}

func TestTricksValidate_DirectoryErrors(t *testing.T) {
	tests := []struct {
		name string
		dir  func(t *testing.T) string
		code string
	}{
		{"missing", func(t *testing.T) string { return filepath.Join(t.TempDir(), "nope") }, "E005"},
		{"no rule files", func(t *testing.T) string { return writeFiles(t, map[string]string{"notes.txt": "x"}) }, "E003"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, _, err := execute(t, "tricks", "validate", tt.dir(t))
			require.Error(t, err)
			assert.Equal(t, ExitCommandError, GetExitCode(err))
			assert.Contains(t, out, "Error ["+tt.code+"]")
		})
	}
}

func TestTricksList_Dir(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		"a.json":      holaTrick,
		"b/c.yaml":    adiosTrick,
		"d/error.cue": `given: root: {}` + "\n" + `when: method: "ERROR"` + "\n" + `then: "501": "no te entiendo"` + "\n",
	})

	out, _, err := execute(t, "tricks", "list", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "   0  -       then 200  a.json")
	assert.Contains(t, out, "   1  -       then 200  b/c.yaml")
	assert.Contains(t, out, "   2  ERROR   then 501  d/error.cue")
}

func TestTricksList_DB(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "concha.db")
	st, err := store.Open(dbPath)
	require.NoError(t, err)
	ctx := context.Background()
	require.NoError(t, st.AppendTrick(ctx, 0, []byte(holaTrick)))
	require.NoError(t, st.AppendTrick(ctx, 1, []byte(errorTrick)))
	require.NoError(t, st.AppendTrickDeletion(ctx, 0))
	require.NoError(t, st.Close())

	out, _, err := execute(t, "--format", "json", "tricks", "list", "--db", dbPath)
	require.NoError(t, err)

	var resp struct {
		Status string         `json:"status"`
		Data   []TrickSummary `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.Len(t, resp.Data, 1)
	assert.Equal(t, 1, resp.Data[0].ID)
	assert.Equal(t, "ERROR", resp.Data[0].Method)
	assert.Equal(t, []string{"501"}, resp.Data[0].Statuses)
}

func TestTricksList_EmptyDB(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "concha.db")

	out, _, err := execute(t, "tricks", "list", "--db", dbPath)
	require.NoError(t, err)
	assert.Equal(t, "No tricks.\n", out)
}

func TestTricksList_NeedsOneSource(t *testing.T) {
	_, _, err := execute(t, "tricks", "list")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	_, _, err = execute(t, "tricks", "list", "--db", "x.db", t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "either a rules directory or --db")
}
