// Package engine is the outer frame driver of a simulation run.
//
// The driver owns the frame clock: a Scalar whose value is the frame step and
// whose tag is the frame start. Every frame it
//
//  1. takes the next clock from the Schedule,
//  2. calls sim.Simulation.Update with it,
//  3. checks that the car state a renderer would read is valid at the
//     shutter time (frame start plus step),
//  4. stamps a trace.Frame with the next logical seq and hands it to every
//     Recorder.
//
// The frame clock is advanced with timed.Advance, so frame tags accumulate the
// same way the simulation's own clocks do.
//
// Recorded frames are ordered by seq from Clock, never by wall-clock time.
// The run digest covers frame content only, so two runs of the same
// configuration have the same digest whatever their IDs.
package engine
