// Package harness runs simulation scenarios and checks their traces.
//
// A scenario names a configuration, how many frames to drive, and what the
// recorded trace must satisfy. Runs are fully deterministic: a fixed run ID,
// a logical clock starting at 1, and a fresh in-memory store per scenario,
// so the same scenario always yields byte-identical trace snapshots.
//
// # Scenario Format
//
//	name: catch_up_cap
//	description: "Physics capped at one step falls behind and stalls"
//	config: configs/capped.cue      # optional, relative to the base path
//	overrides:                      # optional simulation fields
//	  max_substeps: 1
//	  frames: {step: 0.05}
//	frames: 20                      # optional, defaults to frames.count
//	run_id: capped-run              # optional, defaults to testutil.DefaultRunID
//	stall_limit: 5                  # optional, defaults to engine.DefaultStallLimit
//	expect_fault: STALLED           # optional engine or timed fault code
//	assertions:
//	  - type: frame_count
//	    equals: 6
//	  - type: value_range
//	    field: car_pos
//	    min: 0
//
// # Assertion Types
//
//   - frame_count: number of recorded frames equals N
//   - substep_total: total physics steps equals N, or lies in [min, max]
//   - final_tag: tag of a sample in the last frame equals a time
//   - value_range: every recorded value of a sample lies in [min, max]
//   - alpha_range: every interpolation factor lies in [min, max]
//
// Samples are car_pos, car_vel, camera and input.
//
// # Golden Snapshots
//
// RunWithGolden and AssertGolden compare the canonical JSON of a run's frames
// with testdata/golden/<name>.golden using goldie. Regenerate with
//
//	go test ./internal/harness -update
package harness
