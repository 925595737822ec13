// ABOUTME: Block-wise mixdown of wave tracks over a time range
// ABOUTME: Sums gain/pan adjusted tracks, converts rates and quantizes to the output format
package mixer

import (
	"fmt"
	"math"
	"sync/atomic"

	"github.com/Resonate-Protocol/resonate-edit/pkg/audio"
	"github.com/Resonate-Protocol/resonate-edit/pkg/audio/resample"
	"github.com/Resonate-Protocol/resonate-edit/pkg/track"
	"github.com/viterin/vek/vek32"
)

// DefaultBlockSize is the number of frames produced per Process call
const DefaultBlockSize = 8192

// Options configures a mixdown
type Options struct {
	Tracks    []track.Track // non-wave tracks are ignored
	T0, T1    float64
	Channels  int
	Rate      int
	BlockSize int
	Format    audio.SampleFormat
	Dither    audio.Dither
	Seed      int64
}

// Mixer renders [T0, T1) of its tracks one block at a time.
// It only reads the tracks; callers must not edit them while mixing.
type Mixer struct {
	opts   Options
	inputs []*track.WaveTrack

	start int64 // output sample index of T0
	total int64
	pos   int64
	last  int

	produced atomic.Int64

	floats  [][]float32
	ints    [][]int32
	scratch []float32
	gained  []float32
	src     []float32
	quant   *audio.Quantizer
}

// New creates a mixer; an empty or reversed range produces nothing
func New(opts Options) (*Mixer, error) {
	if opts.Channels <= 0 {
		return nil, fmt.Errorf("invalid output channel count: %d", opts.Channels)
	}
	if opts.Rate <= 0 {
		return nil, fmt.Errorf("invalid output sample rate: %d", opts.Rate)
	}
	if opts.BlockSize <= 0 {
		opts.BlockSize = DefaultBlockSize
	}

	m := &Mixer{
		opts:    opts,
		inputs:  audible(opts.Tracks),
		start:   audio.TimeToSamples(opts.T0, opts.Rate),
		total:   TotalFrames(opts.T0, opts.T1, opts.Rate),
		floats:  make([][]float32, opts.Channels),
		ints:    make([][]int32, opts.Channels),
		scratch: make([]float32, opts.BlockSize),
		gained:  make([]float32, opts.BlockSize),
	}
	for ch := range m.floats {
		m.floats[ch] = make([]float32, opts.BlockSize)
		m.ints[ch] = make([]int32, opts.BlockSize)
	}

	if opts.Format.IsInteger() {
		q, err := audio.NewQuantizer(opts.Format, opts.Dither, opts.Seed)
		if err != nil {
			return nil, err
		}
		m.quant = q
	}
	return m, nil
}

// TotalFrames returns ceil((t1-t0)*rate), or 0 for an empty range
func TotalFrames(t0, t1 float64, rate int) int64 {
	if t1 <= t0 {
		return 0
	}
	exact := (t1 - t0) * float64(rate)
	n := math.Round(exact)
	// Products within rounding noise of an integer are not bumped up
	if math.Abs(exact-n) > 1e-9*math.Max(1, exact) {
		n = math.Ceil(exact)
	}
	return int64(n)
}

// audible picks wave tracks honouring mute and solo
func audible(tracks []track.Track) []*track.WaveTrack {
	var waves []*track.WaveTrack
	soloed := false
	for _, t := range tracks {
		if w, ok := t.(*track.WaveTrack); ok && !w.Mute() {
			waves = append(waves, w)
			soloed = soloed || w.Solo()
		}
	}
	if !soloed {
		return waves
	}
	var out []*track.WaveTrack
	for _, w := range waves {
		if w.Solo() {
			out = append(out, w)
		}
	}
	return out
}

// Process renders the next block and returns its frame count; 0 once the
// range is exhausted
func (m *Mixer) Process() (int, error) {
	n := int(min(int64(m.opts.BlockSize), m.total-m.pos))
	if n <= 0 {
		m.last = 0
		return 0, nil
	}

	for ch := range m.floats {
		clear(m.floats[ch][:n])
	}
	for _, w := range m.inputs {
		if err := m.mixTrack(w, n); err != nil {
			return 0, fmt.Errorf("failed to mix track %q: %w", w.Name(), err)
		}
	}

	if m.quant != nil {
		for ch := range m.floats {
			m.quant.Quantize(m.floats[ch][:n], m.ints[ch][:n])
		}
	} else {
		for ch := range m.floats {
			for i, f := range m.floats[ch][:n] {
				m.ints[ch][i] = audio.SampleFromFloat(f)
			}
		}
	}

	m.pos += int64(n)
	m.last = n
	m.produced.Add(int64(n))
	return n, nil
}

func (m *Mixer) mixTrack(w *track.WaveTrack, n int) error {
	out := m.opts.Channels
	for tc := 0; tc < w.Channels(); tc++ {
		buf := m.scratch[:n]
		if err := m.read(w, tc, buf); err != nil {
			return err
		}

		switch {
		case out == 1:
			m.accumulate(0, buf, w.Gain())
		case w.Channels() == 1:
			for oc := 0; oc < out; oc++ {
				m.accumulate(oc, buf, w.ChannelGain(oc))
			}
		case tc < out:
			m.accumulate(tc, buf, w.ChannelGain(tc))
		}
	}
	return nil
}

// read fills buf with channel tc of w for the current block at the output rate
func (m *Mixer) read(w *track.WaveTrack, tc int, buf []float32) error {
	if w.Rate() == m.opts.Rate {
		return w.Get(tc, audio.TimeToSamples(m.opts.T0, w.Rate())+m.pos, buf)
	}

	r := resample.New(w.Rate(), m.opts.Rate, 0)
	k := m.start + m.pos
	first, count := r.Span(k, len(buf))
	if cap(m.src) < count {
		m.src = make([]float32, count)
	}
	src := m.src[:count]
	if err := w.Get(tc, first, src); err != nil {
		return err
	}
	r.Resample(src, first, k, buf)
	return nil
}

func (m *Mixer) accumulate(ch int, buf []float32, gain float32) {
	dst := m.floats[ch][:len(buf)]
	switch gain {
	case 0:
	case 1:
		vek32.Add_Inplace(dst, buf)
	default:
		vek32.Add_Inplace(dst, vek32.MulNumber_Into(m.gained[:len(buf)], buf, gain))
	}
}

// Float returns channel ch of the last block as floats
func (m *Mixer) Float(ch int) []float32 {
	return m.floats[ch][:m.last]
}

// Int returns channel ch of the last block in the 24-bit range; integer
// formats are quantized with dither, float output is rounded
func (m *Mixer) Int(ch int) []int32 {
	return m.ints[ch][:m.last]
}

// Channels returns the output channel count
func (m *Mixer) Channels() int { return m.opts.Channels }

// Rate returns the output sample rate
func (m *Mixer) Rate() int { return m.opts.Rate }

// Format returns the output sample format
func (m *Mixer) Format() audio.SampleFormat { return m.opts.Format }

// Total returns the number of frames the range holds
func (m *Mixer) Total() int64 { return m.total }

// Produced returns frames produced so far; safe to call from any goroutine
func (m *Mixer) Produced() int64 { return m.produced.Load() }

// Position returns the timeline time of the next block
func (m *Mixer) Position() float64 {
	return m.opts.T0 + audio.SamplesToTime(m.pos, m.opts.Rate)
}

// Done reports whether the range is exhausted
func (m *Mixer) Done() bool { return m.pos >= m.total }

// Audible returns the number of tracks contributing to the mix
func (m *Mixer) Audible() int { return len(m.inputs) }
