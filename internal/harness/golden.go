package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/timealgebra/internal/trace"
)

// GoldenDir is where golden snapshots live, relative to the test package.
const GoldenDir = "testdata/golden"

// Snapshot returns the canonical form of a result: its run outcome followed
// by one canonical JSON line per frame. Identical scenarios produce
// byte-identical snapshots.
func Snapshot(scenarioName string, result *Result) ([]byte, error) {
	header := map[string]any{
		"scenario": scenarioName,
		"run_id":   result.RunID,
		"frames":   len(result.Frames),
		"digest":   result.Summary.Digest,
	}
	if result.Fault != "" {
		header["fault"] = result.Fault
	}
	head, err := trace.MarshalCanonical(header)
	if err != nil {
		return nil, err
	}
	body, err := trace.MarshalFrames(result.Frames)
	if err != nil {
		return nil, err
	}
	out := make([]byte, 0, len(head)+1+len(body))
	out = append(out, head...)
	out = append(out, '\n')
	return append(out, body...), nil
}

// RunWithGolden executes a scenario and compares its snapshot against
// testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns error if scenario execution fails. Test failure (via goldie) occurs
// if the snapshot doesn't match the golden file.
func RunWithGolden(t *testing.T, scenario *Scenario, opts ...goldie.Option) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}
	return result, AssertGolden(t, scenario.Name, result, opts...)
}

// AssertGolden compares an already computed result against a golden file.
// opts are applied after the default fixture dir and suffix.
func AssertGolden(t *testing.T, scenarioName string, result *Result, opts ...goldie.Option) error {
	t.Helper()

	snapshot, err := Snapshot(scenarioName, result)
	if err != nil {
		return err
	}

	g := newGoldie(t, opts...)
	g.Assert(t, scenarioName, snapshot)
	return nil
}

func newGoldie(t *testing.T, opts ...goldie.Option) *goldie.Goldie {
	base := []goldie.Option{
		goldie.WithFixtureDir(GoldenDir),
		goldie.WithNameSuffix(".golden"),
	}
	return goldie.New(t, append(base, opts...)...)
}
