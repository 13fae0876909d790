package sim

import (
	opensimplex "github.com/ojrac/opensimplex-go"
)

// InputSource is polled once per frame at the frame start time.
type InputSource interface {
	Sample(t float64) float64
}

// AnimationCurve is evaluated at a frame boundary.
type AnimationCurve interface {
	Sample(t float64) float64
}

// ConstantInput is an input held at a fixed value.
type ConstantInput float64

// Sample returns the held value.
func (c ConstantInput) Sample(float64) float64 { return float64(c) }

// NoiseInput is a smoothly wandering input driven by OpenSimplex noise, so
// consecutive frames see related values and input velocity is meaningful.
type NoiseInput struct {
	noise     opensimplex.Noise
	Offset    float64 // Centre value
	Amplitude float64 // Peak deviation from Offset
	Frequency float64 // Noise-space units per simulated second
}

// NewNoiseInput creates a deterministic noise input for seed.
func NewNoiseInput(seed int64, offset, amplitude, frequency float64) *NoiseInput {
	return &NoiseInput{
		noise:     opensimplex.New(seed),
		Offset:    offset,
		Amplitude: amplitude,
		Frequency: frequency,
	}
}

// Sample returns the input value at time t.
func (n *NoiseInput) Sample(t float64) float64 {
	return n.Offset + n.Amplitude*n.noise.Eval2(t*n.Frequency, 0)
}

// LinearCurve is an animation track that moves at a constant rate.
type LinearCurve struct {
	Slope  float64
	Offset float64
}

// Sample returns the curve value at time t.
func (c LinearCurve) Sample(t float64) float64 {
	return c.Offset + c.Slope*t
}
