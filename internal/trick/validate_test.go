package trick

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// codes collects the codes of a failed Parse.
func codes(t *testing.T, err error) []string {
	t.Helper()
	var errs ValidationErrors
	require.ErrorAs(t, err, &errs)
	out := make([]string, len(errs))
	for i, e := range errs {
		out[i] = e.Code
	}
	return out
}

// =============================================================================
// Valid documents
// =============================================================================

func TestParseValid(t *testing.T) {
	docs := map[string]string{
		"plain": `{"given": {"root": {"form": "repite", "obj": {"form": "*algo"}}},
			"then": {"200": "{d[root][obj]}"}}`,
		"get": `{"given": {"root": {"form": "busca", "obj": {"form": "*"}}},
			"when": {"method": "GET", "uri": "http://localhost:5001/v1/servers/{d[root][obj][form]}"},
			"then": {"200": "encontrado {r[body][name]}", "404": "no encuentro {d[root][obj]}"}}`,
		"post with body": `{"given": {"root": {"form": "crea"}},
			"when": {"method": "POST", "uri": "http://localhost:5001/v1/servers", "body": {"name": "x", "n": 1}},
			"then": {"201": "creado"}}`,
		"treat": `{"given": {"root": {"form": "di", "obj": {"form": "*"}}},
			"when": {"method": "TREAT", "uri": "{d[root][obj]}"},
			"then": {"200": "{r[root]}"}}`,
		"error domain": `{"given": {}, "when": {"method": "ERROR"},
			"then": {"501": "no te entiendo: {d}"}}`,
		"feats": `{"given": {"root": {"form": "*", "feats": {"Mood": "Imp"}}},
			"then": {"200": "{d[root][feats][Mood]} {d[root][lemma]}"}}`,
		"literal braces": `{"given": {"root": {}}, "then": {"200": "{{hola}}"}}`,
	}
	for name, doc := range docs {
		t.Run(name, func(t *testing.T) {
			tr, err := Parse([]byte(doc))
			require.NoError(t, err)
			assert.NotNil(t, tr.Given)
			assert.NotEmpty(t, tr.Then)
		})
	}
}

func TestParseKeepsFields(t *testing.T) {
	tr, err := Parse([]byte(`{"given": {"root": {"form": "crea"}},
		"when": {"method": "POST", "uri": "http://x/", "body": {"name": "x"}},
		"then": {"201": "creado"}}`))
	require.NoError(t, err)

	assert.Equal(t, "crea", tr.Given.Children["root"].Attrs["form"])
	assert.Equal(t, MethodPost, tr.Method())
	assert.Equal(t, map[string]any{"name": "x"}, tr.When.Body)
	assert.False(t, tr.IsError())
}

// =============================================================================
// Schema errors (E201)
// =============================================================================

func TestParseSchemaErrors(t *testing.T) {
	docs := map[string]string{
		"not json":       `{"given":`,
		"unknown method": `{"given": {"root": {}}, "when": {"method": "PAST"}, "then": {"200": "x"}}`,
		"status key":     `{"given": {"root": {}}, "then": {"ok": "x"}}`,
		"then not text":  `{"given": {"root": {}}, "then": {"200": 3}}`,
		"given scalar":   `{"given": {"root": "hola"}, "then": {"200": "x"}}`,
		"extra field":    `{"given": {"root": {}}, "then": {"200": "x"}, "extra": 1}`,
		"array":          `[]`,
	}
	for name, doc := range docs {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(doc))
			require.Error(t, err)
			assert.True(t, IsValidationError(err))
			assert.Contains(t, codes(t, err), ErrSchema)
		})
	}
}

func TestParseMissingParts(t *testing.T) {
	for _, doc := range []string{
		`{"given": {"root": {"form": "hola"}}}`,
		`{"then": {"200": "hola"}}`,
		`{"given": {"root": {}}, "when": {"uri": "http://x/"}, "then": {"200": "x"}}`,
	} {
		_, err := Parse([]byte(doc))
		require.Error(t, err, doc)
		assert.True(t, IsValidationError(err), doc)
	}
}

// =============================================================================
// Semantic errors
// =============================================================================

func TestParseSemanticErrors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		code string
	}{
		{
			name: "wrong label in then",
			doc:  `{"given": {"root": {"form": "hola"}}, "then": {"200": "{d[root][wrong]}"}}`,
			code: ErrUnresolvedPath,
		},
		{
			name: "wrong top-level label",
			doc:  `{"given": {"root": {"form": "hola"}}, "then": {"200": "{d[ccomp]}"}}`,
			code: ErrUnresolvedPath,
		},
		{
			name: "keys after attribute",
			doc:  `{"given": {"root": {"form": "hola"}}, "then": {"200": "{d[root][form][x]}"}}`,
			code: ErrUnresolvedPath,
		},
		{
			name: "treat uri wrong",
			doc:  `{"given": {"root": {"form": "hola"}}, "when": {"method": "TREAT", "uri": "{d[root][wrong]}"}, "then": {"200": "x"}}`,
			code: ErrUnresolvedPath,
		},
		{
			name: "treat uri not a path",
			doc:  `{"given": {"root": {"obj": {}}}, "when": {"method": "TREAT", "uri": "di {d[root][obj]}"}, "then": {"200": "x"}}`,
			code: ErrURI,
		},
		{
			name: "treat uri is result",
			doc:  `{"given": {"root": {"obj": {}}}, "when": {"method": "TREAT", "uri": "{r[root]}"}, "then": {"200": "x"}}`,
			code: ErrURI,
		},
		{
			name: "treat uri ends in attribute",
			doc:  `{"given": {"root": {"obj": {"form": "*"}}}, "when": {"method": "TREAT", "uri": "{d[root][obj][form]}"}, "then": {"200": "{r[root]}"}}`,
			code: ErrURI,
		},
		{
			name: "treat uri through feats",
			doc:  `{"given": {"root": {"obj": {}}}, "when": {"method": "TREAT", "uri": "{d[root][obj][feats][Number]}"}, "then": {"200": "{r[root]}"}}`,
			code: ErrURI,
		},
		{
			name: "treat result starts with attribute",
			doc:  `{"given": {"root": {"obj": {}}}, "when": {"method": "TREAT", "uri": "{d[root][obj]}"}, "then": {"200": "{r[form]}"}}`,
			code: ErrUnresolvedPath,
		},
		{
			name: "remote result outside body",
			doc:  `{"given": {"root": {}}, "when": {"method": "GET", "uri": "http://x/"}, "then": {"200": "{r[name]}"}}`,
			code: ErrUnresolvedPath,
		},
		{
			name: "result in error trick",
			doc:  `{"given": {"root": {}}, "when": {"method": "ERROR"}, "then": {"501": "{r[body]}"}}`,
			code: ErrUnknownName,
		},
		{
			name: "get without uri",
			doc:  `{"given": {"root": {}}, "when": {"method": "GET"}, "then": {"200": "x"}}`,
			code: ErrURI,
		},
		{
			name: "uri uses result",
			doc:  `{"given": {"root": {}}, "when": {"method": "GET", "uri": "http://x/{r[body]}"}, "then": {"200": "x"}}`,
			code: ErrUnknownName,
		},
		{
			name: "result without when",
			doc:  `{"given": {"root": {}}, "then": {"200": "{r[body]}"}}`,
			code: ErrUnknownName,
		},
		{
			name: "unknown name",
			doc:  `{"given": {"root": {}}, "then": {"200": "{x[root]}"}}`,
			code: ErrUnknownName,
		},
		{
			name: "bad template",
			doc:  `{"given": {"root": {}}, "then": {"200": "hola {d[root]"}}`,
			code: ErrTemplateSyntax,
		},
		{
			name: "empty then",
			doc:  `{"given": {"root": {}}, "then": {}}`,
			code: ErrThen,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.doc))
			require.Error(t, err)
			assert.Contains(t, codes(t, err), tt.code)
		})
	}
}

func TestValidateCollectsAll(t *testing.T) {
	tr := &Trick{
		When: &When{Method: "PATCH"},
		Then: map[string]string{"2xx": "x", "200": "{d[root][x]} {q}"},
	}

	errs := Validate(tr)

	var got []string
	for _, e := range errs {
		got = append(got, e.Code)
	}
	assert.ElementsMatch(t, []string{ErrGiven, ErrUnresolvedPath, ErrUnknownName, ErrStatusKey, ErrMethod}, got)
}

func TestValidationErrorString(t *testing.T) {
	e := ValidationError{Field: "then.200", Code: ErrUnresolvedPath, Message: "{d[root][x]}: given has no \"x\" here"}
	assert.Equal(t, `[E207] then.200: {d[root][x]}: given has no "x" here`, e.Error())
	assert.Equal(t, e.Error()+"; "+e.Error(), ValidationErrors{e, e}.Error())
}
