package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/concha/internal/engine"
)

func TestTraceJSON_Format(t *testing.T) {
	result := NewResult()
	result.Trace = append(result.Trace, newTraceEvent("nada", "nada", nil, engine.NoTrick()))

	got, err := TraceJSON("empty", result)
	require.NoError(t, err)

	want := `{
  "scenario_name": "empty",
  "trace": [
    {
      "turn": 0,
      "say": "nada",
      "request": "nada",
      "compiled": [],
      "answer": "no-trick",
      "tricks": [],
      "status": "600"
    }
  ]
}`
	assert.Equal(t, want, string(got))
}

func TestTraceJSON_Deterministic(t *testing.T) {
	scenario, err := LoadScenario("testdata/scenarios/treat.yaml")
	require.NoError(t, err)

	first, err := Run(scenario)
	require.NoError(t, err)
	second, err := Run(scenario)
	require.NoError(t, err)

	a, err := TraceJSON(scenario.Name, first)
	require.NoError(t, err)
	b, err := TraceJSON(scenario.Name, second)
	require.NoError(t, err)
	assert.Equal(t, string(a), string(b))
}

func TestAssertGolden_ExistingFile(t *testing.T) {
	scenario, err := LoadScenario("testdata/scenarios/greeting.yaml")
	require.NoError(t, err)

	result, err := Run(scenario)
	require.NoError(t, err)
	require.NoError(t, AssertGolden(t, scenario.Name, result))
}
