package parser

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/concha/internal/tree"
)

const tokensResponse = `{"tokens": [
  {"text": {"content": "hola"}, "partOfSpeech": {"tag": "INTJ"}, "dependencyEdge": {"headTokenIndex": 0, "label": "ROOT"}, "lemma": "hola"},
  {"text": {"content": "mundo"}, "partOfSpeech": {"tag": "NOUN", "number": "SINGULAR"}, "dependencyEdge": {"headTokenIndex": 0, "label": "NSUBJ"}, "lemma": "mundo"}
]}`

const conllu = "1\thola\thola\tINTJ\t_\t_\t0\troot\t_\t_\n" +
	"2\tmundo\tmundo\tNOUN\t_\tNumber=Sing\t1\tnsubj\t_\t_\n"

func TestTokenize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"hola", "hola"},
		{"¿qué tal?", "¿ qué tal ?"},
		{"hola, mundo.", "hola , mundo ."},
		{"¡ya!  vale;  bien:", "¡ ya ! vale ; bien :"},
		{"  ", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, Tokenize(tt.in))
		})
	}
}

func TestHTTPParser(t *testing.T) {
	var got analyzeRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, AnalyzePath, r.URL.Path)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(tokensResponse))
	}))
	defer srv.Close()

	p := NewHTTPParser(srv.URL, "es", time.Second)
	tr, err := p.Parse(context.Background(), "hola mundo")
	require.NoError(t, err)

	assert.Equal(t, "PLAIN_TEXT", got.Document.Type)
	assert.Equal(t, "es", got.Document.Language)
	assert.Equal(t, "hola mundo", got.Document.Content)
	assert.Equal(t, "UTF8", got.EncodingType)

	assert.Equal(t, "root", tr.Label)
	assert.Equal(t, "hola mundo", tr.Format())
	child, _, ok := tr.Root.Child("nsubj")
	require.True(t, ok)
	assert.Equal(t, "mundo", child.Lemma)
}

func TestHTTPParser_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := NewHTTPParser(srv.URL, "es", time.Second).Parse(context.Background(), "hola")
	require.Error(t, err)
	var perr *tree.ParseError
	assert.ErrorAs(t, err, &perr)
	assert.Contains(t, err.Error(), "500")
}

func TestHTTPParser_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := NewHTTPParser(url, "es", time.Second).Parse(context.Background(), "hola")
	assert.Error(t, err)
}

func TestCommandParser(t *testing.T) {
	dir := t.TempDir()
	// The command ignores stdin and answers a fixed analysis.
	p := NewCommandParser("cat >/dev/null; printf '"+escapePrintf(conllu)+"'", dir)

	tr, err := p.Parse(context.Background(), "hola mundo")
	require.NoError(t, err)
	assert.Equal(t, "hola mundo", tr.Format())
	child, _, ok := tr.Root.Child("nsubj")
	require.True(t, ok)
	assert.Equal(t, "Sing", child.Feats["Number"])
}

func TestCommandParser_ReceivesTokenizedText(t *testing.T) {
	// Echo the input back as a one-token sentence.
	p := NewCommandParser(`read line; printf '1\t%s\t_\t_\t_\t_\t0\troot\t_\t_\n' "$line"`, "")

	tr, err := p.Parse(context.Background(), "¿hola?")
	require.NoError(t, err)
	assert.Equal(t, "¿ hola ?", tr.Root.Form)
}

func TestCommandParser_Failure(t *testing.T) {
	p := NewCommandParser("echo broken >&2; exit 3", "")
	_, err := p.Parse(context.Background(), "hola")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken")
}

func TestCommandParser_BadOutput(t *testing.T) {
	p := NewCommandParser("cat >/dev/null; echo 'not conllu'", "")
	_, err := p.Parse(context.Background(), "hola")
	var perr *tree.ParseError
	assert.ErrorAs(t, err, &perr)
}

func TestCommandParser_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewCommandParser("sleep 5", "").Parse(ctx, "hola")
	assert.ErrorIs(t, err, context.Canceled)
}

// escapePrintf turns tabs and newlines into printf escapes.
func escapePrintf(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '\t':
			out = append(out, '\\', 't')
		case '\n':
			out = append(out, '\\', 'n')
		default:
			out = append(out, s[i])
		}
	}
	return string(out)
}
