// Package timed implements time-tagged scalars: float values that carry the
// simulation time at which they are valid, with arithmetic that refuses to
// combine samples taken at different times.
//
// # Tags
//
// A Scalar is either tagged (sampled at a time) or a constant. Binary
// operations follow one rule:
//
//   - both tagged: the tags must agree within Epsilon, the result keeps the
//     left operand's tag;
//   - one tagged: the result takes that tag;
//   - neither tagged: the result is a constant.
//
// Tags only move through Integrate, FinishedUpdate and Advance.
//
// # Clocks
//
// A clock is a Scalar whose value is a step size and whose tag is the time the
// step started. Physics, frame and camera each own their clock; there is no
// global current time.
//
// # Faults
//
// Disagreeing tags, time-advancing a constant and out-of-order velocity
// samples are programming errors. They panic with a *Fault. Hosts that prefer
// to log and abort wrap a call chain in Catch; render code probes values with
// Check before consuming them.
package timed
