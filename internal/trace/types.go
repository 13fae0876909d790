// Package trace defines the recorded form of a simulation run: a run header
// plus one record per frame, with a canonical JSON encoding and a content
// digest used to compare runs.
package trace

import (
	"context"

	"github.com/roach88/timealgebra/internal/timed"
)

// Sample is a recorded time-tagged value. Tag is nil for constants.
type Sample struct {
	Value float64  `json:"value"`
	Tag   *float64 `json:"tag,omitempty"`
}

// SampleOf records a Scalar.
func SampleOf(s timed.Scalar) Sample {
	out := Sample{Value: s.Value()}
	if tag, ok := s.Tag(); ok {
		out.Tag = &tag
	}
	return out
}

// Scalar rebuilds the recorded Scalar.
func (s Sample) Scalar() timed.Scalar {
	if s.Tag == nil {
		return timed.Const(s.Value)
	}
	return timed.At(s.Value, *s.Tag)
}

func (s Sample) object() map[string]any {
	obj := map[string]any{"value": s.Value}
	if s.Tag != nil {
		obj["tag"] = *s.Tag
	}
	return obj
}

// Frame is the record of one outer frame.
type Frame struct {
	RunID    string  `json:"run_id"`
	Index    int     `json:"index"`
	Seq      int64   `json:"seq"`      // Logical clock stamp
	Start    float64 `json:"start"`    // Frame clock tag
	Step     float64 `json:"step"`     // Frame clock value
	Shutter  float64 `json:"shutter"`  // Start + Step
	Substeps int     `json:"substeps"` // Physics steps run this frame
	Alpha    float64 `json:"alpha"`
	Capped   bool    `json:"capped"` // Physics hit the sub-step cap
	CarPos   Sample  `json:"car_pos"`
	CarVel   Sample  `json:"car_vel"`
	Camera   Sample  `json:"camera"`
	Input    Sample  `json:"input"`
}

// Object returns the frame as a canonical JSON object.
func (f Frame) Object() map[string]any {
	obj := f.content()
	obj["run_id"] = f.RunID
	obj["seq"] = f.Seq
	return obj
}

// content is the part of a frame that depends only on the simulation, not
// on the run identity or its position in the logical clock.
func (f Frame) content() map[string]any {
	return map[string]any{
		"index":    f.Index,
		"start":    f.Start,
		"step":     f.Step,
		"shutter":  f.Shutter,
		"substeps": f.Substeps,
		"alpha":    f.Alpha,
		"capped":   f.Capped,
		"car_pos":  f.CarPos.object(),
		"car_vel":  f.CarVel.object(),
		"camera":   f.Camera.object(),
		"input":    f.Input.object(),
	}
}

// Run is a run header.
type Run struct {
	ID         string `json:"id"`
	Scenario   string `json:"scenario"`    // Config path or scenario name
	Config     string `json:"config"`      // Canonical JSON of the resolved config
	FrameCount int    `json:"frame_count"` // Set when the run finishes
	Digest     string `json:"digest"`      // Set when the run finishes
	CreatedSeq int64  `json:"created_seq"`
}

// Finished reports whether the run has been closed with a digest.
func (r Run) Finished() bool {
	return r.Digest != ""
}

// Collector keeps every frame written to it in memory.
type Collector struct {
	Frames []Frame
}

// WriteFrame appends f.
func (c *Collector) WriteFrame(_ context.Context, f Frame) error {
	c.Frames = append(c.Frames, f)
	return nil
}
