package cli

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/concha/internal/store"
)

func TestResolve_FromRules(t *testing.T) {
	dir := writeFiles(t, map[string]string{"hola.json": holaTrick})

	out, _, err := execute(t, "resolve", "--rules", dir, "--parser-command", flatParser, "hola")
	require.NoError(t, err)
	assert.Equal(t, "buenos días\nstatus 200, tricks [0]\n", out)
}

func TestResolve_JSON(t *testing.T) {
	dir := writeFiles(t, map[string]string{"hola.json": holaTrick})

	out, _, err := execute(t, "--format", "json", "resolve", "--rules", dir, "--parser-command", flatParser, "hola")
	require.NoError(t, err)

	var resp struct {
		Status string         `json:"status"`
		Data   map[string]any `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "hola", resp.Data["text"])
	assert.Equal(t, "buenos días", resp.Data["answer_text"])
	assert.Equal(t, "200", resp.Data["status"])
	assert.Equal(t, []any{float64(0)}, resp.Data["tricks"])
	assert.Contains(t, resp.Data["request"], "root")
}

func TestResolve_NoTrick(t *testing.T) {
	dir := writeFiles(t, map[string]string{"hola.json": holaTrick})

	out, _, err := execute(t, "resolve", "--rules", dir, "--parser-command", flatParser, "qué", "tal")
	require.NoError(t, err)
	assert.Equal(t, "no-trick\nstatus 600, tricks []\n", out)
}

func TestResolve_ErrorDomain(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		"hola.json":  holaTrick,
		"error.json": errorTrick,
	})

	out, _, err := execute(t, "resolve", "--rules", dir, "--parser-command", flatParser, "buenas noches")
	require.NoError(t, err)
	assert.Equal(t, "no te entiendo\nstatus 501, tricks [0]\n", out)
}

func TestResolve_FromDatabase(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "concha.db")
	st, err := store.Open(dbPath)
	require.NoError(t, err)
	require.NoError(t, st.AppendTrick(context.Background(), 0, []byte(holaTrick)))
	require.NoError(t, st.Close())

	out, _, err := execute(t, "resolve", "--db", dbPath, "--parser-command", flatParser, "hola")
	require.NoError(t, err)
	assert.Equal(t, "buenos días\nstatus 200, tricks [0]\n", out)
}

func TestResolve_ConfigFile(t *testing.T) {
	rules := writeFiles(t, map[string]string{"hola.json": holaTrick})
	cfgPath := filepath.Join(t.TempDir(), "concha.yaml")
	cfg := "rules:\n  dir: " + rules + "\nparser:\n  mode: command\n  command: |\n    " + flatParser + "\n"
	require.NoError(t, os.WriteFile(cfgPath, []byte(cfg), 0644))

	out, _, err := execute(t, "--config", cfgPath, "resolve", "hola")
	require.NoError(t, err)
	assert.Equal(t, "buenos días\nstatus 200, tricks [0]\n", out)
}

func TestResolve_EngineTimeout(t *testing.T) {
	slow := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(5 * time.Second):
		}
	}))
	defer slow.Close()

	rules := writeFiles(t, map[string]string{"estado.json": `{"given": {"root": {"form": "estado"}},
		"when": {"method": "GET", "uri": "` + slow.URL + `/v1/servers"}, "then": {"200": "bien"}}`})
	cfgPath := filepath.Join(t.TempDir(), "concha.yaml")
	cfg := "rules:\n  dir: " + rules + "\nengine:\n  timeout: 50ms\nparser:\n  mode: command\n  command: |\n    " + flatParser + "\n"
	require.NoError(t, os.WriteFile(cfgPath, []byte(cfg), 0644))

	_, _, err := execute(t, "--config", cfgPath, "resolve", "estado")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, err.Error(), "resolution failed")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestResolve_Errors(t *testing.T) {
	rules := writeFiles(t, map[string]string{"hola.json": holaTrick})
	broken := writeFiles(t, map[string]string{"b.json": brokenTrick})

	tests := []struct {
		name string
		args []string
		code int
		want string
	}{
		{"bad rules", []string{"resolve", "--rules", broken, "--parser-command", flatParser, "hola"}, ExitCommandError, "failed to load rules"},
		{"parser fails", []string{"resolve", "--rules", rules, "--parser-command", "exit 3", "hola"}, ExitFailure, "failed to parse sentence"},
		{"empty parser command", []string{"resolve", "--rules", rules, "--parser-command", " ", "hola"}, ExitCommandError, "parser.command is required"},
		{"missing config", []string{"--config", filepath.Join(t.TempDir(), "none.yaml"), "resolve", "hola"}, ExitCommandError, "invalid configuration"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := execute(t, tt.args...)
			require.Error(t, err)
			assert.Equal(t, tt.code, GetExitCode(err))
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestResolve_NeedsText(t *testing.T) {
	_, _, err := execute(t, "resolve")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "requires at least 1 arg")
}
