// Package config loads simulation configuration written in CUE.
//
// A config file declares a top-level `simulation` struct which is unified
// with the embedded #Config schema. The schema is closed and supplies a
// default for every field, so `simulation: {}` is a complete configuration.
//
//	simulation: {
//		inner_step: 1 / 120
//		animation:  "end_frame"
//		frames: {count: 60, step: 1 / 60}
//	}
package config

import (
	_ "embed"
	"fmt"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"

	"github.com/roach88/timealgebra/internal/engine"
	"github.com/roach88/timealgebra/internal/sim"
	"github.com/roach88/timealgebra/internal/trace"
)

//go:embed schema.cue
var schemaSource string

// Input kinds.
const (
	InputConstant = "constant"
	InputNoise    = "noise"
)

// Config is a fully resolved simulation configuration.
type Config struct {
	InnerStep   float64 `json:"inner_step"`
	StartTime   float64 `json:"start_time"`
	Animation   string  `json:"animation"`
	MaxSubsteps int     `json:"max_substeps"`
	Camera      Camera  `json:"camera"`
	Input       Input   `json:"input"`
	Curve       Curve   `json:"curve"`
	Frames      Frames  `json:"frames"`
}

// Camera tunes the follow camera.
type Camera struct {
	FollowRate     float64 `json:"follow_rate"`
	SpeedInfluence float64 `json:"speed_influence"`
}

// Input selects and tunes the input source.
type Input struct {
	Kind      string  `json:"kind"`
	Value     float64 `json:"value"`
	Amplitude float64 `json:"amplitude"`
	Frequency float64 `json:"frequency"`
	Seed      int64   `json:"seed"`
}

// Curve is a linear animation track.
type Curve struct {
	Slope  float64 `json:"slope"`
	Offset float64 `json:"offset"`
}

// Frames describes the outer frame schedule.
type Frames struct {
	Count     int     `json:"count"`
	Step      float64 `json:"step"`
	Increment float64 `json:"increment"`
	Jitter    float64 `json:"jitter"`
	Seed      int64   `json:"seed"`
}

// Default returns the configuration produced by an empty simulation block.
// It panics if the embedded schema is broken.
func Default() Config {
	cfg, err := Parse([]byte("simulation: {}"), "default.cue")
	if err != nil {
		panic(fmt.Sprintf("config: embedded schema: %v", err))
	}
	return cfg
}

// Load reads and resolves a CUE config file.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	return Parse(data, path)
}

// Parse resolves CUE source against the schema. filename is used in error
// positions only.
func Parse(src []byte, filename string) (Config, error) {
	ctx := cuecontext.New()
	user := ctx.CompileBytes(src, cue.Filename(filename))
	if err := user.Err(); err != nil {
		return Config{}, formatCUEError(err)
	}
	return resolve(ctx, user)
}

// FromMap resolves a plain map, as decoded from YAML or JSON, holding the
// fields of a simulation block.
func FromMap(fields map[string]any) (Config, error) {
	ctx := cuecontext.New()
	if fields == nil {
		fields = map[string]any{}
	}
	user := ctx.Encode(map[string]any{"simulation": fields})
	if err := user.Err(); err != nil {
		return Config{}, formatCUEError(err)
	}
	return resolve(ctx, user)
}

// FromCanonical resolves a config previously produced by Canonical.
func FromCanonical(src string) (Config, error) {
	return Parse([]byte("simulation: "+src), "canonical.cue")
}

// Canonical returns the canonical JSON form of c, as stored with a run.
// Canonical JSON is valid CUE, so FromCanonical reads it back.
func (c Config) Canonical() (string, error) {
	data, err := trace.MarshalCanonical(c.Object())
	if err != nil {
		return "", fmt.Errorf("canonical config: %w", err)
	}
	return string(data), nil
}

// WithOverrides returns c with the given simulation fields replaced.
// Nested blocks merge field by field, so {"frames": {"count": 3}} keeps the
// rest of frames.
func (c Config) WithOverrides(overrides map[string]any) (Config, error) {
	if len(overrides) == 0 {
		return c, nil
	}
	obj := c.Object()
	mergeFields(obj, overrides)
	return FromMap(obj)
}

// Object returns c as a simulation block. Integer fields stay integers so
// the map resolves against the schema unchanged.
func (c Config) Object() map[string]any {
	return map[string]any{
		"inner_step":   c.InnerStep,
		"start_time":   c.StartTime,
		"animation":    c.Animation,
		"max_substeps": c.MaxSubsteps,
		"camera": map[string]any{
			"follow_rate":     c.Camera.FollowRate,
			"speed_influence": c.Camera.SpeedInfluence,
		},
		"input": map[string]any{
			"kind":      c.Input.Kind,
			"value":     c.Input.Value,
			"amplitude": c.Input.Amplitude,
			"frequency": c.Input.Frequency,
			"seed":      c.Input.Seed,
		},
		"curve": map[string]any{
			"slope":  c.Curve.Slope,
			"offset": c.Curve.Offset,
		},
		"frames": map[string]any{
			"count":     c.Frames.Count,
			"step":      c.Frames.Step,
			"increment": c.Frames.Increment,
			"jitter":    c.Frames.Jitter,
			"seed":      c.Frames.Seed,
		},
	}
}

func mergeFields(dst, src map[string]any) {
	for k, v := range src {
		sub, ok := v.(map[string]any)
		if existing, isMap := dst[k].(map[string]any); ok && isMap {
			mergeFields(existing, sub)
			continue
		}
		dst[k] = v
	}
}

func resolve(ctx *cue.Context, user cue.Value) (Config, error) {
	schema := ctx.CompileString(schemaSource, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return Config{}, formatCUEError(err)
	}

	v := schema.Unify(user).LookupPath(cue.ParsePath("simulation"))
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return Config{}, formatCUEError(err)
	}

	r := &reader{v: v}
	cfg := Config{
		InnerStep:   r.float("inner_step"),
		StartTime:   r.float("start_time"),
		Animation:   r.string("animation"),
		MaxSubsteps: r.int("max_substeps"),
		Camera: Camera{
			FollowRate:     r.float("camera.follow_rate"),
			SpeedInfluence: r.float("camera.speed_influence"),
		},
		Input: Input{
			Kind:      r.string("input.kind"),
			Value:     r.float("input.value"),
			Amplitude: r.float("input.amplitude"),
			Frequency: r.float("input.frequency"),
			Seed:      int64(r.int("input.seed")),
		},
		Curve: Curve{
			Slope:  r.float("curve.slope"),
			Offset: r.float("curve.offset"),
		},
		Frames: Frames{
			Count:     r.int("frames.count"),
			Step:      r.float("frames.step"),
			Increment: r.float("frames.increment"),
			Jitter:    r.float("frames.jitter"),
			Seed:      int64(r.int("frames.seed")),
		},
	}
	if r.err != nil {
		return Config{}, r.err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the constraints the schema cannot express.
func (c Config) Validate() error {
	if _, err := c.Sim(); err != nil {
		return &ConfigError{Field: "simulation", Message: err.Error()}
	}
	if c.Frames.Increment < 0 {
		last := c.Frames.Step + float64(c.Frames.Count-1)*c.Frames.Increment
		if last <= 0 {
			return &ConfigError{
				Field:   "frames.increment",
				Message: fmt.Sprintf("frame step reaches %g before frame %d", last, c.Frames.Count),
			}
		}
	}
	return nil
}

// Sim returns the simulation tunables.
func (c Config) Sim() (sim.Config, error) {
	mode, err := sim.ParseAnimationMode(c.Animation)
	if err != nil {
		return sim.Config{}, err
	}
	sc := sim.Config{
		InnerStep:      c.InnerStep,
		StartTime:      c.StartTime,
		Animation:      mode,
		MaxSubsteps:    c.MaxSubsteps,
		FollowRate:     c.Camera.FollowRate,
		SpeedInfluence: c.Camera.SpeedInfluence,
	}
	return sc, sc.Validate()
}

// SimOptions returns the input and curve options for sim.New.
func (c Config) SimOptions() []sim.Option {
	var in sim.InputSource = sim.ConstantInput(c.Input.Value)
	if c.Input.Kind == InputNoise {
		in = sim.NewNoiseInput(c.Input.Seed, c.Input.Value, c.Input.Amplitude, c.Input.Frequency)
	}
	return []sim.Option{
		sim.WithInput(in),
		sim.WithCurve(sim.LinearCurve{Slope: c.Curve.Slope, Offset: c.Curve.Offset}),
	}
}

// Schedule returns the frame schedule, starting at StartTime.
func (c Config) Schedule() engine.Schedule {
	return engine.Schedule{
		Start:     c.StartTime,
		Step:      c.Frames.Step,
		Increment: c.Frames.Increment,
		Jitter:    c.Frames.Jitter,
		Seed:      c.Frames.Seed,
	}
}

// reader extracts concrete fields from a resolved value, keeping the first
// error.
type reader struct {
	v   cue.Value
	err error
}

func (r *reader) lookup(path string) (cue.Value, bool) {
	if r.err != nil {
		return cue.Value{}, false
	}
	f := r.v.LookupPath(cue.ParsePath(path))
	if !f.Exists() {
		r.err = &ConfigError{Field: path, Message: "field is required"}
		return cue.Value{}, false
	}
	if d, ok := f.Default(); ok {
		f = d
	}
	return f, true
}

func (r *reader) fail(path string, f cue.Value, err error) {
	r.err = &ConfigError{Field: path, Message: err.Error(), Pos: f.Pos()}
}

func (r *reader) float(path string) float64 {
	f, ok := r.lookup(path)
	if !ok {
		return 0
	}
	x, err := f.Float64()
	if err != nil {
		r.fail(path, f, err)
	}
	return x
}

func (r *reader) int(path string) int {
	f, ok := r.lookup(path)
	if !ok {
		return 0
	}
	x, err := f.Int64()
	if err != nil {
		r.fail(path, f, err)
	}
	return int(x)
}

func (r *reader) string(path string) string {
	f, ok := r.lookup(path)
	if !ok {
		return ""
	}
	s, err := f.String()
	if err != nil {
		r.fail(path, f, err)
	}
	return s
}
