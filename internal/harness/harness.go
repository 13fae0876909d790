package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/timealgebra/internal/engine"
	"github.com/roach88/timealgebra/internal/store"
	"github.com/roach88/timealgebra/internal/testutil"
	"github.com/roach88/timealgebra/internal/timed"
)

// Run executes a scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database for isolation, with a
// fixed run ID and a logical clock starting at 1. Execution flow:
//
//  1. Resolve the config and apply overrides
//  2. Drive the frames, recording into the store
//  3. Read the frames back and verify them against the stored digest
//  4. Check the run ended as expected and evaluate assertions
//
// An error is returned only when the scenario cannot be executed at all; a
// run that stops early is reported through the result.
func Run(scenario *Scenario) (*Result, error) {
	cfg, err := scenario.ResolveConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve config: %w", err)
	}

	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	frames := scenario.Frames
	if frames == 0 {
		frames = cfg.Frames.Count
	}

	ctx := context.Background()
	sum, runErr := Execute(ctx, cfg, ExecuteOptions{
		Store:      st,
		Label:      scenario.Name,
		Frames:     frames,
		RunIDs:     testutil.NewFixedRunIDGenerator(scenario.RunID),
		Clock:      testutil.NewDeterministicClock(),
		StallLimit: scenario.StallLimit,
		Logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	if runErr != nil && engine.CodeOf(runErr) == "" {
		return nil, fmt.Errorf("failed to execute scenario: %w", runErr)
	}

	result := NewResult()
	result.RunID = sum.RunID
	result.Summary = sum
	if runErr != nil {
		result.Fault = faultCode(runErr)
	}

	result.Frames, err = st.ReadFrames(ctx, sum.RunID)
	if err != nil {
		return nil, fmt.Errorf("failed to read frames: %w", err)
	}

	v, err := st.VerifyRun(ctx, sum.RunID)
	if err != nil {
		return nil, fmt.Errorf("failed to verify run: %w", err)
	}
	if !v.OK() {
		result.AddError(fmt.Sprintf("stored trace does not match its header: digest %s, recomputed %s",
			v.StoredDigest, v.ComputedDigest))
	}

	switch {
	case scenario.ExpectFault == "" && runErr != nil:
		result.AddError(fmt.Sprintf("run stopped: %v", runErr))
	case scenario.ExpectFault != "" && runErr == nil:
		result.AddError(fmt.Sprintf("expected run to stop with %s, but it completed", scenario.ExpectFault))
	case scenario.ExpectFault != "" && !matchesFault(runErr, scenario.ExpectFault):
		result.AddError(fmt.Sprintf("expected run to stop with %s, got: %v", scenario.ExpectFault, runErr))
	}

	for _, msg := range EvaluateAssertions(result, scenario.Assertions) {
		result.AddError(msg)
	}

	return result, nil
}

// faultCode returns the most specific code of a run error: the timed fault
// code when the simulation faulted, else the engine code.
func faultCode(err error) string {
	if code := timed.CodeOf(err); code != "" {
		return string(code)
	}
	return string(engine.CodeOf(err))
}

func matchesFault(err error, want string) bool {
	return string(engine.CodeOf(err)) == want || string(timed.CodeOf(err)) == want
}
