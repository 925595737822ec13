// ABOUTME: Linear resampler for converting audio sample rates
// ABOUTME: Interpolates at absolute source positions so block boundaries never drift
package resample

import "math"

// Resampler maps output sample indices to fractional input positions.
// Position of output sample k is base + k*ratio, computed from k directly.
type Resampler struct {
	inputRate  int
	outputRate int
	ratio      float64
	base       float64
}

// New creates a resampler whose output sample 0 lies at input position base
func New(inputRate, outputRate int, base float64) *Resampler {
	return &Resampler{
		inputRate:  inputRate,
		outputRate: outputRate,
		ratio:      float64(inputRate) / float64(outputRate),
		base:       base,
	}
}

// NewWithRatio creates a resampler advancing ratio input samples per output sample
func NewWithRatio(ratio, base float64) *Resampler {
	return &Resampler{
		ratio: ratio,
		base:  base,
	}
}

// Ratio returns input samples advanced per output sample
func (r *Resampler) Ratio() float64 {
	return r.ratio
}

// Position returns the input position of output sample k
func (r *Resampler) Position(k int64) float64 {
	return r.base + float64(k)*r.ratio
}

// Span returns the first input sample and the count needed to produce
// n output samples starting at output index k
func (r *Resampler) Span(k int64, n int) (first int64, count int) {
	if n <= 0 {
		return 0, 0
	}
	first = int64(math.Floor(r.Position(k)))
	last := int64(math.Floor(r.Position(k+int64(n-1)))) + 1
	return first, int(last-first) + 1
}

// Resample fills out with samples starting at output index k.
// src[0] holds input sample first, as returned by Span.
func (r *Resampler) Resample(src []float32, first int64, k int64, out []float32) {
	for i := range out {
		pos := r.Position(k+int64(i)) - float64(first)
		idx := int(math.Floor(pos))
		frac := float32(pos - float64(idx))

		var s1, s2 float32
		if idx >= 0 && idx < len(src) {
			s1 = src[idx]
		}
		if idx+1 >= 0 && idx+1 < len(src) {
			s2 = src[idx+1]
		}
		out[i] = s1*(1-frac) + s2*frac
	}
}

// OutputLength returns how many output samples cover n input samples
func OutputLength(n int64, inputRate, outputRate int) int64 {
	return int64(math.Floor(float64(n)*float64(outputRate)/float64(inputRate) + 0.5))
}

// Buffer converts a whole buffer between rates
func Buffer(in []float32, inputRate, outputRate int) []float32 {
	if inputRate == outputRate {
		out := make([]float32, len(in))
		copy(out, in)
		return out
	}
	n := OutputLength(int64(len(in)), inputRate, outputRate)
	out := make([]float32, n)
	New(inputRate, outputRate, 0).Resample(in, 0, 0, out)
	return out
}
