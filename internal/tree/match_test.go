package tree

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pattern(t *testing.T, doc string) *Pattern {
	t.Helper()
	var p Pattern
	require.NoError(t, json.Unmarshal([]byte(doc), &p))
	return &p
}

func TestMatches(t *testing.T) {
	repite := mustConllu(t, "1\trepite\trepetir\tVERB\t_\tMood=Imp\t0\troot\t_\t_\n"+
		line(2, "tu", 3, "det")+line(3, "nombre", 1, "obj"))

	tests := []struct {
		name    string
		pattern string
		want    bool
	}{
		{"empty pattern", `{}`, true},
		{"exact form", `{"root": {"form": "repite"}}`, true},
		{"wrong form", `{"root": {"form": "repito"}}`, false},
		{"any form", `{"root": {"form": "repite", "obj": {"form": "*algo"}}}`, true},
		{"similar form", `{"root": {"form": "~repite"}}`, true},
		{"similar is exact", `{"root": {"form": "~repetir"}}`, false},
		{"missing label", `{"root": {"form": "repite", "nsubj": {"form": "*"}}}`, false},
		{"nested", `{"root": {"obj": {"det": {"form": "tu"}}}}`, true},
		{"nested miss", `{"root": {"obj": {"det": {"form": "mi"}}}}`, false},
		{"label only", `{"root": {"obj": {}}}`, true},
		{"wrong top-level label", `{"ccomp": {"form": "repite"}}`, false},
		{"lemma", `{"root": {"lemma": "repetir"}}`, true},
		{"lemma any", `{"root": {"lemma": "*"}}`, true},
		{"upostag", `{"root": {"upostag": "VERB", "obj": {"upostag": "*"}}}`, false},
		{"id", `{"root": {"id": 1, "obj": {"id": "3"}}}`, true},
		{"feats", `{"root": {"feats": {"Mood": "Imp"}}}`, true},
		{"feats miss", `{"root": {"feats": {"Mood": "Ind"}}}`, false},
		{"missing attribute", `{"root": {"obj": {"lemma": "*"}}}`, false},
		{"top-level attribute", `{"form": "repite"}`, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, repite.Matches(pattern(t, tt.pattern)))
		})
	}
}

func TestMatches_RepeatedLabels(t *testing.T) {
	casa := mustConllu(t, line(1, "casa", 0, "root")+line(2, "grande", 1, "amod")+line(3, "roja", 1, "amod"))

	assert.True(t, casa.Matches(pattern(t, `{"root": {"amod": {"form": "roja"}}}`)), "any sibling may match")
	assert.True(t, casa.Matches(pattern(t, `{"root": {"amod#2": {"form": "roja"}}}`)))
	assert.False(t, casa.Matches(pattern(t, `{"root": {"amod#2": {"form": "grande"}}}`)))
	assert.False(t, casa.Matches(pattern(t, `{"root": {"amod#3": {}}}`)))
}

func TestMatches_NormalizesForms(t *testing.T) {
	// "mamá" written with a combining acute accent
	decomposed := "mama\u0301"
	tr := mustConllu(t, line(1, decomposed, 0, "root"))

	assert.True(t, tr.Matches(pattern(t, `{"root": {"form": "mamá"}}`)))
	assert.True(t, tr.Matches(pattern(t, `{"root": {"form": "~mamá"}}`)))
}

func TestPatternJSON(t *testing.T) {
	p := pattern(t, `{"root": {"form": "repite", "id": 1, "feats": {"Mood": "Imp"}, "obj": {"form": "*algo"}}}`)

	root := p.Children["root"]
	require.NotNil(t, root)
	assert.Equal(t, map[string]string{"form": "repite", "id": "1"}, root.Attrs)
	assert.Equal(t, map[string]string{"Mood": "Imp"}, root.Feats)
	assert.Equal(t, "*algo", root.Children["obj"].Attrs["form"])
	assert.False(t, p.Empty())
	assert.True(t, (&Pattern{}).Empty())

	data, err := json.Marshal(p)
	require.NoError(t, err)
	assert.JSONEq(t, `{"root": {"form": "repite", "id": "1", "feats": {"Mood": "Imp"}, "obj": {"form": "*algo"}}}`, string(data))

	var bad Pattern
	assert.Error(t, json.Unmarshal([]byte(`{"root": {"form": ["a"]}}`), &bad))
	assert.Error(t, json.Unmarshal([]byte(`[]`), &bad))
}
