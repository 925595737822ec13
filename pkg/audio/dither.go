// ABOUTME: Quantization of float samples to integer formats with optional dither
// ABOUTME: Supports no dither, rectangular and triangular noise from a seeded source
package audio

import (
	"fmt"
	"math"
	"math/rand"
)

// Dither selects the noise added before quantization
type Dither int

const (
	DitherNone Dither = iota
	DitherRectangle
	DitherTriangle
)

func (d Dither) String() string {
	switch d {
	case DitherRectangle:
		return "rectangle"
	case DitherTriangle:
		return "triangle"
	default:
		return "none"
	}
}

// ParseDither maps a configuration name to a Dither
func ParseDither(name string) (Dither, error) {
	switch name {
	case "", "none":
		return DitherNone, nil
	case "rectangle":
		return DitherRectangle, nil
	case "triangle", "shaped":
		return DitherTriangle, nil
	}
	return DitherNone, fmt.Errorf("unknown dither type: %s", name)
}

// Quantizer converts float blocks to integer samples left-justified in the
// 24-bit range, so 16-bit output keeps the low 8 bits zero.
type Quantizer struct {
	format SampleFormat
	dither Dither
	rng    *rand.Rand
}

// NewQuantizer creates a quantizer; identical seeds give identical output
func NewQuantizer(format SampleFormat, dither Dither, seed int64) (*Quantizer, error) {
	if !format.IsInteger() {
		return nil, fmt.Errorf("cannot quantize to %s", format)
	}
	return &Quantizer{
		format: format,
		dither: dither,
		rng:    rand.New(rand.NewSource(seed)),
	}, nil
}

// Quantize fills out with len(in) samples
func (q *Quantizer) Quantize(in []float32, out []int32) {
	scale := float64(Max24Bit + 1)
	shift := uint(0)
	if q.format == Int16 {
		scale = float64(Max16Bit + 1)
		shift = 8
	}
	maxv := scale - 1
	minv := -scale

	// A silent block stays silent
	dither := q.dither
	if isSilent(in) {
		dither = DitherNone
	}

	for i, f := range in {
		v := float64(f) * scale
		switch dither {
		case DitherRectangle:
			v += q.rng.Float64() - 0.5
		case DitherTriangle:
			v += q.rng.Float64() - q.rng.Float64()
		}
		v = math.Round(v)
		if v > maxv {
			v = maxv
		} else if v < minv {
			v = minv
		}
		out[i] = int32(v) << shift
	}
}

func isSilent(in []float32) bool {
	for _, f := range in {
		if f != 0 {
			return false
		}
	}
	return true
}
