package harness

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnapshot_Format(t *testing.T) {
	result, err := Run(&Scenario{Name: "snap", Description: "d", Frames: 3})
	require.NoError(t, err)

	snap, err := Snapshot("snap", result)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSuffix(string(snap), "\n"), "\n")
	require.Len(t, lines, 4)
	assert.True(t, strings.HasPrefix(lines[0], `{"digest":"`))
	assert.Contains(t, lines[0], `"frames":3`)
	assert.Contains(t, lines[0], `"scenario":"snap"`)
	assert.NotContains(t, lines[0], `"fault"`)
	assert.Contains(t, lines[1], `"index":0`)
	assert.Contains(t, lines[3], `"index":2`)
}

func TestSnapshot_IncludesFault(t *testing.T) {
	result := NewResult()
	result.Fault = "STALLED"
	snap, err := Snapshot("f", result)
	require.NoError(t, err)
	assert.Contains(t, string(snap), `"fault":"STALLED"`)
}

func TestRunWithGolden_MatchesRecordedSnapshot(t *testing.T) {
	dir := t.TempDir()
	scenario := &Scenario{
		Name:        "golden_defaults",
		Description: "Default config, recorded then compared",
		Frames:      5,
	}

	// Record the golden file from a first run.
	first, err := Run(scenario)
	require.NoError(t, err)
	snap, err := Snapshot(scenario.Name, first)
	require.NoError(t, err)
	g := goldie.New(t, goldie.WithFixtureDir(dir), goldie.WithNameSuffix(".golden"))
	require.NoError(t, g.Update(t, scenario.Name, snap))

	_, err = os.Stat(filepath.Join(dir, "golden_defaults.golden"))
	require.NoError(t, err)

	// A second run must reproduce it byte for byte.
	result, err := RunWithGolden(t, scenario, goldie.WithFixtureDir(dir))
	require.NoError(t, err)
	assert.True(t, result.Pass)

	require.NoError(t, AssertGolden(t, scenario.Name, first, goldie.WithFixtureDir(dir)))
}

// zeroInputScenario keeps every value at zero and every time a multiple of
// 1/64, so its snapshot is exact and stable across platforms.
func zeroInputScenario() *Scenario {
	return &Scenario{
		Name:        "zero_input_dyadic_steps",
		Description: "A car at rest under zero input, 1/32 s frames over 1/64 s physics",
		Frames:      3,
		Overrides: map[string]any{
			"inner_step": 0.015625,
			"frames":     map[string]any{"step": 0.03125},
			"input":      map[string]any{"kind": "constant", "value": 0.0},
			"curve":      map[string]any{"slope": 0.0, "offset": 0.0},
		},
	}
}

func TestRunWithGolden_CommittedSnapshot(t *testing.T) {
	result, err := RunWithGolden(t, zeroInputScenario())
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
	assert.Equal(t, 6, result.Summary.Substeps)
	assert.InDelta(t, 0.09375, result.Summary.FinalTime, 1e-12)
}
