package store

import (
	"database/sql"

	"github.com/roach88/timealgebra/internal/trace"
)

// runRow mirrors the runs table.
type runRow struct {
	ID         string `db:"id"`
	Scenario   string `db:"scenario"`
	Config     string `db:"config"`
	FrameCount int    `db:"frame_count"`
	Digest     string `db:"digest"`
	CreatedSeq int64  `db:"created_seq"`
}

func runRowOf(r trace.Run) runRow {
	return runRow(r)
}

func (r runRow) run() trace.Run {
	return trace.Run(r)
}

// frameRow mirrors the frames table. Sample tags are nullable.
type frameRow struct {
	RunID     string          `db:"run_id"`
	Idx       int             `db:"idx"`
	Seq       int64           `db:"seq"`
	Start     float64         `db:"start"`
	Step      float64         `db:"step"`
	Shutter   float64         `db:"shutter"`
	Substeps  int             `db:"substeps"`
	Alpha     float64         `db:"alpha"`
	Capped    bool            `db:"capped"`
	CarPos    float64         `db:"car_pos"`
	CarPosTag sql.NullFloat64 `db:"car_pos_tag"`
	CarVel    float64         `db:"car_vel"`
	CarVelTag sql.NullFloat64 `db:"car_vel_tag"`
	Camera    float64         `db:"camera"`
	CameraTag sql.NullFloat64 `db:"camera_tag"`
	Input     float64         `db:"input"`
	InputTag  sql.NullFloat64 `db:"input_tag"`
}

const frameColumns = `run_id, idx, seq, start, step, shutter, substeps, alpha, capped,
	car_pos, car_pos_tag, car_vel, car_vel_tag, camera, camera_tag, input, input_tag`

func frameRowOf(f trace.Frame) frameRow {
	row := frameRow{
		RunID:    f.RunID,
		Idx:      f.Index,
		Seq:      f.Seq,
		Start:    f.Start,
		Step:     f.Step,
		Shutter:  f.Shutter,
		Substeps: f.Substeps,
		Alpha:    f.Alpha,
		Capped:   f.Capped,
	}
	row.CarPos, row.CarPosTag = splitSample(f.CarPos)
	row.CarVel, row.CarVelTag = splitSample(f.CarVel)
	row.Camera, row.CameraTag = splitSample(f.Camera)
	row.Input, row.InputTag = splitSample(f.Input)
	return row
}

func (r frameRow) frame() trace.Frame {
	return trace.Frame{
		RunID:    r.RunID,
		Index:    r.Idx,
		Seq:      r.Seq,
		Start:    r.Start,
		Step:     r.Step,
		Shutter:  r.Shutter,
		Substeps: r.Substeps,
		Alpha:    r.Alpha,
		Capped:   r.Capped,
		CarPos:   joinSample(r.CarPos, r.CarPosTag),
		CarVel:   joinSample(r.CarVel, r.CarVelTag),
		Camera:   joinSample(r.Camera, r.CameraTag),
		Input:    joinSample(r.Input, r.InputTag),
	}
}

func splitSample(s trace.Sample) (float64, sql.NullFloat64) {
	if s.Tag == nil {
		return s.Value, sql.NullFloat64{}
	}
	return s.Value, sql.NullFloat64{Float64: *s.Tag, Valid: true}
}

func joinSample(value float64, tag sql.NullFloat64) trace.Sample {
	s := trace.Sample{Value: value}
	if tag.Valid {
		t := tag.Float64
		s.Tag = &t
	}
	return s
}
