package wgimage

import (
	"encoding/binary"
	"fmt"

	"github.com/chewxy/math32"
)

// MaxThreshold is the largest accepted threshold cutoff.
const MaxThreshold = 255

// thresholdUniformSize is the uniform buffer size; WGSL rounds a struct
// holding one f32 up to 16 bytes.
const thresholdUniformSize = 16

// Threshold maps pixels whose luma reaches the cutoff to white and all
// others to black, preserving alpha.
//
// Threshold is NOT safe for concurrent use.
type Threshold struct {
	*pointFilter
	cutoff uint32
}

// NewThreshold builds a threshold filter for width x height images.
// cutoff is on the 0..255 scale.
func NewThreshold(ctx *Context, width, height, cutoff uint32) (*Threshold, error) {
	if cutoff > MaxThreshold {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidThreshold, cutoff)
	}
	f, err := newPointFilter(ctx, thresholdSchema, thresholdShaderSource, width, height)
	if err != nil {
		return nil, err
	}

	buf, err := ctx.newUniformBuffer("threshold_settings", thresholdUniform(cutoff))
	if err != nil {
		f.Close()
		return nil, err
	}
	f.fixedBuf = append(f.fixedBuf, buf)

	bg, err := f.pipe.bindGroup(0, bufferEntry(0, buf, thresholdUniformSize))
	if err != nil {
		f.Close()
		return nil, err
	}
	f.fixed = append(f.fixed, bg)

	Logger().Info("wgimage: threshold filter ready", "width", width, "height", height, "cutoff", cutoff)
	return &Threshold{pointFilter: f, cutoff: cutoff}, nil
}

// Cutoff returns the cutoff on the 0..255 scale.
func (t *Threshold) Cutoff() uint32 { return t.cutoff }

// thresholdUniform encodes cutoff/255 as the kernel's settings struct.
func thresholdUniform(cutoff uint32) []byte {
	data := make([]byte, thresholdUniformSize)
	binary.LittleEndian.PutUint32(data, math32.Float32bits(float32(cutoff)/MaxThreshold))
	return data
}
