package trace

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash"
)

// DomainRun prefixes run digests. The version suffix allows the frame
// encoding to change without colliding with old digests.
const DomainRun = "timealgebra/run/v1"

// Digester accumulates frames into a run digest:
// SHA256(domain + 0x00 + frame_0 + 0x0a + frame_1 + 0x0a + ...), where each
// frame is its canonical content without run ID or seq. Two runs with the
// same configuration produce the same digest.
type Digester struct {
	h hash.Hash
	n int
}

// NewDigester creates an empty digester.
func NewDigester() *Digester {
	h := sha256.New()
	h.Write([]byte(DomainRun))
	h.Write([]byte{0x00})
	return &Digester{h: h}
}

// Add appends a frame.
func (d *Digester) Add(f Frame) error {
	data, err := MarshalCanonical(f.content())
	if err != nil {
		return fmt.Errorf("digest frame %d: %w", f.Index, err)
	}
	if d.n > 0 {
		d.h.Write([]byte{'\n'})
	}
	d.h.Write(data)
	d.n++
	return nil
}

// Sum returns the hex digest of the frames added so far.
func (d *Digester) Sum() string {
	return hex.EncodeToString(d.h.Sum(nil))
}

// Digest computes the run digest of frames in order.
func Digest(frames []Frame) (string, error) {
	d := NewDigester()
	for _, f := range frames {
		if err := d.Add(f); err != nil {
			return "", err
		}
	}
	return d.Sum(), nil
}

// MarshalFrames encodes frames as canonical JSON, one frame per line.
func MarshalFrames(frames []Frame) ([]byte, error) {
	var out []byte
	for _, f := range frames {
		data, err := MarshalCanonical(f.Object())
		if err != nil {
			return nil, fmt.Errorf("frame %d: %w", f.Index, err)
		}
		out = append(out, data...)
		out = append(out, '\n')
	}
	return out, nil
}
