package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/roach88/timealgebra/internal/config"
)

// Scenario defines a simulation scenario: a configuration, a frame count and
// the assertions the recorded trace must satisfy.
type Scenario struct {
	// Name uniquely identifies this scenario. It also names the golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Config is an optional path to a CUE config file. Without it the
	// schema defaults apply.
	Config string `yaml:"config,omitempty"`

	// Overrides replaces simulation fields after Config is loaded, using the
	// same field names as the CUE schema.
	Overrides map[string]any `yaml:"overrides,omitempty"`

	// Frames is the number of frames to drive. 0 means frames.count.
	Frames int `yaml:"frames,omitempty"`

	// RunID is an optional fixed run ID. If empty, testutil.DefaultRunID.
	RunID string `yaml:"run_id,omitempty"`

	// StallLimit overrides engine.DefaultStallLimit when set.
	StallLimit *int `yaml:"stall_limit,omitempty"`

	// ExpectFault is the engine run error code (STALLED, FAULT, ...) or the
	// timed fault code (TAG_MISMATCH, ...) the run must stop with. Empty
	// means the run must complete.
	ExpectFault string `yaml:"expect_fault,omitempty"`

	// Assertions validate the recorded frames.
	Assertions []Assertion `yaml:"assertions"`
}

// Assertion validates the recorded frames.
type Assertion struct {
	// Type specifies the assertion type:
	// - "frame_count": Equals is the number of frames
	// - "substep_total": Equals, or Min/Max, bound the total physics steps
	// - "final_tag": the tag of Field in the last frame equals Equals
	// - "value_range": every value of Field lies in [Min, Max]
	// - "alpha_range": every alpha lies in [Min, Max]
	Type string `yaml:"type"`

	// Field names a sample: car_pos, car_vel, camera or input.
	Field string `yaml:"field,omitempty"`

	Equals *float64 `yaml:"equals,omitempty"`
	Min    *float64 `yaml:"min,omitempty"`
	Max    *float64 `yaml:"max,omitempty"`

	// Tolerance for equals comparisons. 0 means timed.Epsilon.
	Tolerance float64 `yaml:"tolerance,omitempty"`
}

// Assertion type constants.
const (
	AssertFrameCount   = "frame_count"
	AssertSubstepTotal = "substep_total"
	AssertFinalTag     = "final_tag"
	AssertValueRange   = "value_range"
	AssertAlphaRange   = "alpha_range"
)

// Sample field names.
const (
	FieldCarPos = "car_pos"
	FieldCarVel = "car_vel"
	FieldCamera = "camera"
	FieldInput  = "input"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	return LoadScenarioWithBasePath(path, "")
}

// LoadScenarioWithBasePath reads and parses a scenario YAML file,
// resolving a relative config path against basePath.
func LoadScenarioWithBasePath(path, basePath string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	// Strict field validation catches typos like "assertion:" vs "assertions:"
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if scenario.Config != "" && !filepath.IsAbs(scenario.Config) && basePath != "" {
		scenario.Config = filepath.Join(basePath, scenario.Config)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// ResolveConfig loads the scenario's config and applies its overrides.
func (s *Scenario) ResolveConfig() (config.Config, error) {
	cfg := config.Default()
	if s.Config != "" {
		var err error
		cfg, err = config.Load(s.Config)
		if err != nil {
			return config.Config{}, err
		}
	}
	return cfg.WithOverrides(s.Overrides)
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if s.Frames < 0 {
		return fmt.Errorf("frames must be non-negative, got %d", s.Frames)
	}

	if s.StallLimit != nil && *s.StallLimit < 0 {
		return fmt.Errorf("stall_limit must be non-negative, got %d", *s.StallLimit)
	}

	for i, a := range s.Assertions {
		if err := validateAssertion(a); err != nil {
			return fmt.Errorf("assertion %d: %w", i, err)
		}
	}

	return nil
}

func validateAssertion(a Assertion) error {
	switch a.Type {
	case AssertFrameCount:
		if a.Equals == nil {
			return fmt.Errorf("frame_count requires 'equals'")
		}
	case AssertSubstepTotal:
		if a.Equals == nil && a.Min == nil && a.Max == nil {
			return fmt.Errorf("substep_total requires 'equals', 'min' or 'max'")
		}
	case AssertFinalTag:
		if !validField(a.Field) {
			return fmt.Errorf("final_tag requires a sample field, got %q", a.Field)
		}
		if a.Equals == nil {
			return fmt.Errorf("final_tag requires 'equals'")
		}
	case AssertValueRange:
		if !validField(a.Field) {
			return fmt.Errorf("value_range requires a sample field, got %q", a.Field)
		}
		if a.Min == nil && a.Max == nil {
			return fmt.Errorf("value_range requires 'min' or 'max'")
		}
	case AssertAlphaRange:
		if a.Min == nil && a.Max == nil {
			return fmt.Errorf("alpha_range requires 'min' or 'max'")
		}
	case "":
		return fmt.Errorf("type is required")
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
	if a.Tolerance < 0 {
		return fmt.Errorf("tolerance must be non-negative")
	}
	return nil
}

func validField(f string) bool {
	switch f {
	case FieldCarPos, FieldCarVel, FieldCamera, FieldInput:
		return true
	}
	return false
}
