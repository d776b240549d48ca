package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Scenario is a scripted conversation with the expected answers.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Seed drives the random choice between equally good answers.
	Seed uint64 `yaml:"seed"`

	// MaxDepth overrides the engine's nesting bound when set.
	MaxDepth *int `yaml:"max_depth,omitempty"`

	// Rules is a directory of rule files loaded before Tricks.
	// Relative paths are resolved against the scenario file.
	Rules string `yaml:"rules,omitempty"`

	// Sentences maps text to a compact parse ("form head label; ...").
	Sentences map[string]string `yaml:"sentences,omitempty"`

	// Tricks are trick documents, numbered after the rules directory.
	Tricks []any `yaml:"tricks,omitempty"`

	// Remote holds canned answers for remote tricks.
	Remote []RemoteStub `yaml:"remote,omitempty"`

	// Turns is the conversation.
	Turns []Turn `yaml:"turns"`

	// Assertions validate the whole trace.
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// RemoteStub answers one remote call.
type RemoteStub struct {
	Method string `yaml:"method"`
	URI    string `yaml:"uri"`
	Status int    `yaml:"status"`
	Body   any    `yaml:"body,omitempty"`
}

// Turn is one sentence said to the engine.
type Turn struct {
	Say    string        `yaml:"say"`
	Expect *ExpectClause `yaml:"expect,omitempty"`
}

// ExpectClause specifies the expected answer. Unset fields are not
// checked.
type ExpectClause struct {
	Status string `yaml:"status,omitempty"`
	Answer string `yaml:"answer,omitempty"`
	Tricks []int  `yaml:"tricks,omitempty"`
}

// Assertion validates the trace of the whole conversation.
type Assertion struct {
	// Type specifies the assertion type:
	// - "trick_used": Trick was compiled at least once
	// - "trick_count": Trick was compiled exactly Count times
	// - "compile_order": Order lists tricks in order of first compile
	// - "status_count": exactly Count turns answered with Status
	Type string `yaml:"type"`

	Trick  int    `yaml:"trick,omitempty"`
	Order  []int  `yaml:"order,omitempty"`
	Status string `yaml:"status,omitempty"`
	Count  int    `yaml:"count,omitempty"`
}

// Assertion type constants.
const (
	AssertTrickUsed    = "trick_used"
	AssertTrickCount   = "trick_count"
	AssertCompileOrder = "compile_order"
	AssertStatusCount  = "status_count"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	scenario, err := ParseScenario(data)
	if err != nil {
		return nil, err
	}

	if scenario.Rules != "" && !filepath.IsAbs(scenario.Rules) {
		scenario.Rules = filepath.Join(filepath.Dir(path), scenario.Rules)
	}
	return scenario, nil
}

// ParseScenario parses and validates scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	// Strict field validation catches typos like "turn:" vs "turns:"
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if s.Rules == "" && len(s.Tricks) == 0 {
		return fmt.Errorf("rules or tricks are required")
	}

	if len(s.Turns) == 0 {
		return fmt.Errorf("turns list is required and must be non-empty")
	}

	for i, turn := range s.Turns {
		if turn.Say == "" {
			return fmt.Errorf("turn %d: say is required", i)
		}
		if turn.Expect != nil && turn.Expect.Status != "" {
			if _, err := strconv.Atoi(turn.Expect.Status); err != nil {
				return fmt.Errorf("turn %d: status %q is not numeric", i, turn.Expect.Status)
			}
		}
	}

	for i, stub := range s.Remote {
		switch stub.Method {
		case "GET", "POST", "PUT", "DELETE":
		default:
			return fmt.Errorf("remote %d: unsupported method %q", i, stub.Method)
		}
		if stub.URI == "" {
			return fmt.Errorf("remote %d: uri is required", i)
		}
		if stub.Status < 100 || stub.Status > 599 {
			return fmt.Errorf("remote %d: status %d out of range", i, stub.Status)
		}
	}

	for i, a := range s.Assertions {
		if err := validateAssertion(a); err != nil {
			return fmt.Errorf("assertion %d: %w", i, err)
		}
	}

	if s.MaxDepth != nil && *s.MaxDepth < 0 {
		return fmt.Errorf("max_depth must not be negative")
	}

	return nil
}

func validateAssertion(a Assertion) error {
	switch a.Type {
	case AssertTrickUsed:
	case AssertTrickCount:
		if a.Count < 0 {
			return fmt.Errorf("count must not be negative")
		}
	case AssertCompileOrder:
		if len(a.Order) == 0 {
			return fmt.Errorf("order is required")
		}
	case AssertStatusCount:
		if a.Status == "" {
			return fmt.Errorf("status is required")
		}
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
	return nil
}
