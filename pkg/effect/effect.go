// ABOUTME: Per-track effect interface and the block loop applying it
// ABOUTME: Reads a range block by block, processes it and writes back copy-on-write
package effect

import (
	"fmt"

	"github.com/Resonate-Protocol/resonate-edit/pkg/audio"
	"github.com/Resonate-Protocol/resonate-edit/pkg/track"
)

// DefaultBlockSize is the frames handed to ProcessBlock at a time
const DefaultBlockSize = 8192

// Effect transforms planar float blocks
type Effect interface {
	// Name is used in history descriptions
	Name() string
	ProcessInitialize(rate, channels int) error
	// ProcessBlock writes len(in[0]) frames to out and returns that count
	ProcessBlock(in, out [][]float32) (int, error)
	ProcessFinalize() error
}

// Sized is implemented by effects that depend on the range length, such as fades
type Sized interface {
	SetLength(frames int64)
}

// Apply runs e over [t0, t1) of w. Gaps between clips are fed as silence
// and their output discarded.
func Apply(w *track.WaveTrack, t0, t1 float64, e Effect, blockSize int) error {
	if t1 < t0 {
		return fmt.Errorf("%w: [%.6f, %.6f)", track.ErrInvalidRange, t0, t1)
	}
	if blockSize <= 0 {
		blockSize = DefaultBlockSize
	}

	s0 := audio.TimeToSamples(max(t0, w.StartTime()), w.Rate())
	s1 := audio.TimeToSamples(min(t1, w.EndTime()), w.Rate())
	if s1 <= s0 {
		return nil
	}
	if sized, ok := e.(Sized); ok {
		sized.SetLength(audio.TimeToSamples(t1, w.Rate()) - audio.TimeToSamples(t0, w.Rate()))
	}

	channels := w.Channels()
	if err := e.ProcessInitialize(w.Rate(), channels); err != nil {
		return fmt.Errorf("failed to initialize %s: %w", e.Name(), err)
	}

	in := make([][]float32, channels)
	out := make([][]float32, channels)
	for ch := range in {
		in[ch] = make([]float32, blockSize)
		out[ch] = make([]float32, blockSize)
	}

	// Fades measure position from t0 even when the track starts later
	lead := s0 - audio.TimeToSamples(t0, w.Rate())
	if lead > 0 {
		if err := skip(e, lead, in, out); err != nil {
			return err
		}
	}

	for s := s0; s < s1; s += int64(blockSize) {
		n := int(min(int64(blockSize), s1-s))
		for ch := 0; ch < channels; ch++ {
			if err := w.Get(ch, s, in[ch][:n]); err != nil {
				return err
			}
		}

		got, err := e.ProcessBlock(view(in, n), view(out, n))
		if err != nil {
			return fmt.Errorf("%s failed: %w", e.Name(), err)
		}
		if got != n {
			return fmt.Errorf("%s produced %d frames, expected %d", e.Name(), got, n)
		}

		for ch := 0; ch < channels; ch++ {
			if err := w.Set(ch, s, out[ch][:n]); err != nil {
				return err
			}
		}
	}

	if err := e.ProcessFinalize(); err != nil {
		return fmt.Errorf("failed to finalize %s: %w", e.Name(), err)
	}
	return nil
}

// skip feeds n frames of silence through e and discards the result
func skip(e Effect, n int64, in, out [][]float32) error {
	blockSize := len(in[0])
	for ch := range in {
		clear(in[ch])
	}
	for n > 0 {
		k := int(min(int64(blockSize), n))
		if _, err := e.ProcessBlock(view(in, k), view(out, k)); err != nil {
			return fmt.Errorf("%s failed: %w", e.Name(), err)
		}
		n -= int64(k)
	}
	return nil
}

func view(bufs [][]float32, n int) [][]float32 {
	v := make([][]float32, len(bufs))
	for ch := range bufs {
		v[ch] = bufs[ch][:n]
	}
	return v
}
