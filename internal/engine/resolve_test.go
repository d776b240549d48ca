package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func art(status string, used ...int) Artifact {
	return Artifact{Used: used, Status: status}
}

func TestCandidates(t *testing.T) {
	tests := []struct {
		name string
		in   []Artifact
		want []Artifact
	}{
		{
			name: "most tricks used wins",
			in:   []Artifact{art("200", 1), art("501", 2, 3), art("200", 4)},
			want: []Artifact{art("501", 2, 3)},
		},
		{
			name: "smallest status among equals",
			in:   []Artifact{art("600"), art("501"), art("501")},
			want: []Artifact{art("501"), art("501")},
		},
		{
			name: "status compares as text",
			in:   []Artifact{art("200", 1), art("1000", 2)},
			want: []Artifact{art("1000", 2)},
		},
		{
			name: "single",
			in:   []Artifact{art("200", 1)},
			want: []Artifact{art("200", 1)},
		},
		{
			name: "empty",
			in:   nil,
			want: nil,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Candidates(tt.in))
		})
	}
}

func TestCandidatesIgnoreOrder(t *testing.T) {
	a := []Artifact{art("404", 1, 2), art("200", 3), art("200", 4, 5), art("201", 6, 7)}
	b := []Artifact{art("201", 6, 7), art("200", 4, 5), art("200", 3), art("404", 1, 2)}

	assert.ElementsMatch(t, Candidates(a), Candidates(b))
	assert.Equal(t, []Artifact{art("200", 4, 5)}, Candidates(a))
}

func TestResolve(t *testing.T) {
	never := func(int) int {
		t.Fatal("pick called with a single candidate")
		return 0
	}
	assert.Equal(t, art("200", 1, 2), Resolve([]Artifact{art("200", 1), art("200", 1, 2)}, never))
	assert.Equal(t, StatusNoTrick, Resolve(nil, never).Status)

	var asked int
	last := func(n int) int { asked = n; return n - 1 }
	got := Resolve([]Artifact{art("200", 1), art("200", 2), art("500", 3)}, last)
	assert.Equal(t, 2, asked)
	assert.Equal(t, art("200", 2), got)
}

func TestNoTrick(t *testing.T) {
	a := NoTrick()
	assert.Equal(t, StatusNoTrick, a.Status)
	assert.Empty(t, a.Used)
	assert.Equal(t, "no-trick", a.Text())
	assert.Equal(t, 1, a.Tree.Root.ID)
	assert.Equal(t, "", Artifact{}.Text())
}

func TestLimitError(t *testing.T) {
	err := &LimitError{Kind: LimitDepth, Limit: 8}
	assert.Equal(t, "resolution exceeded max depth (8)", err.Error())
	assert.True(t, IsLimitError(err))
	assert.False(t, IsLimitError(ErrUnknownTrick))

	q := NewQuotaEnforcer(2)
	assert.NoError(t, q.Check("t"))
	assert.NoError(t, q.Check("t"))
	assert.Error(t, q.Check("t"))
	assert.Equal(t, 3, q.Current())
}

func TestFixedGenerator(t *testing.T) {
	g := NewFixedGenerator("a", "b")
	assert.Equal(t, "a", g.Generate())
	assert.Equal(t, "b", g.Generate())
	assert.Equal(t, "b", g.Generate())
	assert.Len(t, UUIDv7Generator{}.Generate(), 36)
}
