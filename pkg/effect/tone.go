// ABOUTME: Sine tone generator usable as an effect or to render new audio
// ABOUTME: Keeps phase across blocks so tones are continuous at block edges
package effect

import (
	"fmt"
	"math"
)

const (
	DefaultToneFrequency = 440.0 // A4
	DefaultToneAmplitude = 0.5
)

// Tone replaces its input with a sine wave on every channel
type Tone struct {
	Frequency float64
	Amplitude float64

	rate  int
	index int64
}

// NewTone creates an A4 tone at half level
func NewTone() *Tone {
	return &Tone{Frequency: DefaultToneFrequency, Amplitude: DefaultToneAmplitude}
}

func (s *Tone) Name() string { return "Tone" }

func (s *Tone) ProcessInitialize(rate, channels int) error {
	if s.Frequency <= 0 || s.Frequency >= float64(rate)/2 {
		return fmt.Errorf("tone frequency %.1f Hz outside (0, %d)", s.Frequency, rate/2)
	}
	if s.Amplitude < 0 || s.Amplitude > 1 {
		return fmt.Errorf("tone amplitude %.3f outside [0, 1]", s.Amplitude)
	}
	s.rate = rate
	s.index = 0
	return nil
}

func (s *Tone) ProcessBlock(in, out [][]float32) (int, error) {
	n := len(in[0])
	for i := 0; i < n; i++ {
		t := float64(s.index+int64(i)) / float64(s.rate)
		v := float32(s.Amplitude * math.Sin(2*math.Pi*s.Frequency*t))
		for ch := range out {
			out[ch][i] = v
		}
	}
	s.index += int64(n)
	return n, nil
}

func (s *Tone) ProcessFinalize() error { return nil }

// Render runs e over frames of silence and returns the planar output
func Render(e Effect, rate, channels int, frames int64, blockSize int) ([][]float32, error) {
	if frames < 0 {
		return nil, fmt.Errorf("cannot render %d frames", frames)
	}
	if blockSize <= 0 {
		blockSize = DefaultBlockSize
	}
	if sized, ok := e.(Sized); ok {
		sized.SetLength(frames)
	}
	if err := e.ProcessInitialize(rate, channels); err != nil {
		return nil, fmt.Errorf("failed to initialize %s: %w", e.Name(), err)
	}

	result := make([][]float32, channels)
	for ch := range result {
		result[ch] = make([]float32, frames)
	}
	silence := make([][]float32, channels)
	for ch := range silence {
		silence[ch] = make([]float32, blockSize)
	}

	for off := int64(0); off < frames; off += int64(blockSize) {
		n := int(min(int64(blockSize), frames-off))
		out := make([][]float32, channels)
		for ch := range out {
			out[ch] = result[ch][off : off+int64(n)]
		}
		got, err := e.ProcessBlock(view(silence, n), out)
		if err != nil {
			return nil, fmt.Errorf("%s failed: %w", e.Name(), err)
		}
		if got != n {
			return nil, fmt.Errorf("%s produced %d frames, expected %d", e.Name(), got, n)
		}
	}

	if err := e.ProcessFinalize(); err != nil {
		return nil, fmt.Errorf("failed to finalize %s: %w", e.Name(), err)
	}
	return result, nil
}
