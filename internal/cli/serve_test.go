package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/concha/internal/config"
)

// startServe runs the API in the background and returns its base URL.
// The server stops when the test ends.
func startServe(t *testing.T, cfg config.Config) string {
	t.Helper()
	cmd := &cobra.Command{}
	cmd.SetErr(&bytes.Buffer{})

	ctx, cancel := context.WithCancel(context.Background())
	ready := make(chan net.Addr, 1)
	done := make(chan error, 1)
	go func() { done <- runServe(ctx, cmd, cfg, ready) }()

	select {
	case addr := <-ready:
		t.Cleanup(func() {
			cancel()
			assert.NoError(t, <-done)
		})
		return "http://" + addr.String()
	case err := <-done:
		cancel()
		t.Fatalf("serve exited early: %v", err)
	case <-time.After(10 * time.Second):
		cancel()
		t.Fatal("serve did not start")
	}
	return ""
}

func serveConfig(rules string) config.Config {
	cfg := config.Default()
	cfg.Listen = "127.0.0.1:0"
	cfg.Rules.Dir = rules
	cfg.Parser.Mode = config.ParserCommand
	cfg.Parser.Command = flatParser
	return cfg
}

func post(t *testing.T, url, body string) (int, map[string]any) {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp.StatusCode, out
}

func listTricks(t *testing.T, base string) []map[string]any {
	t.Helper()
	resp, err := http.Get(base + "/v1/tricks")
	require.NoError(t, err)
	defer resp.Body.Close()
	var out []map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func TestServe_Documents(t *testing.T) {
	rules := writeFiles(t, map[string]string{"hola.json": holaTrick})
	cfg := serveConfig(rules)
	cfg.Database = filepath.Join(t.TempDir(), "concha.db")
	base := startServe(t, cfg)

	status, body := post(t, base+"/v1/documents", `{"text": "hola"}`)
	assert.Equal(t, http.StatusCreated, status)
	assert.Equal(t, "buenos días", body["answer_text"])
	assert.Equal(t, "200", body["status"])

	status, body = post(t, base+"/v1/documents", `{"text": "qué tal"}`)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "600", body["status"])

	resp, err := http.Get(base + "/v1/documents")
	require.NoError(t, err)
	defer resp.Body.Close()
	var docs []map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&docs))
	require.Len(t, docs, 2)
	assert.Equal(t, "hola", docs[0]["text"])

	metrics, err := http.Get(base + "/metrics")
	require.NoError(t, err)
	defer metrics.Body.Close()
	data, err := io.ReadAll(metrics.Body)
	require.NoError(t, err)
	assert.Contains(t, string(data), `concha_resolutions_total{status="200"} 1`)
}

func TestServe_RestoresCreatedTricks(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "concha.db")

	cfg := serveConfig("")
	cfg.Database = dbPath
	func() {
		ctx, cancel := context.WithCancel(context.Background())
		ready := make(chan net.Addr, 1)
		done := make(chan error, 1)
		cmd := &cobra.Command{}
		cmd.SetErr(&bytes.Buffer{})
		go func() { done <- runServe(ctx, cmd, cfg, ready) }()
		addr := <-ready

		status, body := post(t, "http://"+addr.String()+"/v1/tricks", holaTrick)
		require.Equal(t, http.StatusCreated, status, "%v", body)
		cancel()
		require.NoError(t, <-done)
	}()

	base := startServe(t, cfg)
	require.Len(t, listTricks(t, base), 1)
	status, body := post(t, base+"/v1/documents", `{"text": "hola"}`)
	assert.Equal(t, http.StatusCreated, status)
	assert.Equal(t, "buenos días", body["answer_text"])
}

func TestServe_WatchReloadsRules(t *testing.T) {
	rules := writeFiles(t, map[string]string{"hola.json": holaTrick})
	cfg := serveConfig(rules)
	cfg.Rules.Watch = true
	base := startServe(t, cfg)

	require.Len(t, listTricks(t, base), 1)
	require.NoError(t, os.WriteFile(filepath.Join(rules, "adios.yaml"), []byte(adiosTrick), 0644))

	assert.Eventually(t, func() bool {
		return len(listTricks(t, base)) == 2
	}, 5*time.Second, 50*time.Millisecond)
}

func TestServe_BadRules(t *testing.T) {
	rules := writeFiles(t, map[string]string{"b.json": brokenTrick})
	cmd := &cobra.Command{}
	cmd.SetErr(&bytes.Buffer{})

	err := runServe(context.Background(), cmd, serveConfig(rules), nil)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestServe_ListenError(t *testing.T) {
	cfg := serveConfig("")
	cfg.Listen = "not an address"
	cmd := &cobra.Command{}
	cmd.SetErr(&bytes.Buffer{})

	err := runServe(context.Background(), cmd, cfg, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to listen")
}

func TestServeOptions_Apply(t *testing.T) {
	rules := t.TempDir()
	cmd := NewServeCommand(&RootOptions{Format: "text"})
	require.NoError(t, cmd.ParseFlags([]string{"--listen", ":9999", "--rules", rules, "--watch"}))

	cfg := config.Default()
	cfg.Database = "keep.db"
	opts := &ServeOptions{Listen: ":9999", Rules: rules, Watch: true}
	require.NoError(t, opts.apply(cmd, &cfg))

	assert.Equal(t, ":9999", cfg.Listen)
	assert.Equal(t, rules, cfg.Rules.Dir)
	assert.True(t, cfg.Rules.Watch)
	assert.Equal(t, "keep.db", cfg.Database)
}

func TestServeOptions_ApplyValidates(t *testing.T) {
	cmd := NewServeCommand(&RootOptions{Format: "text"})
	require.NoError(t, cmd.ParseFlags([]string{"--watch"}))

	cfg := config.Default()
	err := (&ServeOptions{Watch: true}).apply(cmd, &cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rules.watch needs rules.dir")
}
