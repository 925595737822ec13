// ABOUTME: Built-in effects: amplify, fade in, fade out and invert
// ABOUTME: Stateless gains use vek32; fades track their position across blocks
package effect

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/viterin/vek/vek32"
)

// Amplify scales samples by a gain in decibels
type Amplify struct {
	DB float64

	gain float32
}

func (a *Amplify) Name() string { return "Amplify" }

func (a *Amplify) ProcessInitialize(rate, channels int) error {
	a.gain = float32(math.Pow(10, a.DB/20))
	return nil
}

func (a *Amplify) ProcessBlock(in, out [][]float32) (int, error) {
	for ch := range in {
		vek32.MulNumber_Into(out[ch], in[ch], a.gain)
	}
	return len(in[0]), nil
}

func (a *Amplify) ProcessFinalize() error { return nil }

// Invert flips the polarity of every sample
type Invert struct{}

func (Invert) Name() string                               { return "Invert" }
func (Invert) ProcessInitialize(rate, channels int) error { return nil }
func (Invert) ProcessFinalize() error                     { return nil }

func (Invert) ProcessBlock(in, out [][]float32) (int, error) {
	for ch := range in {
		vek32.MulNumber_Into(out[ch], in[ch], -1)
	}
	return len(in[0]), nil
}

// fade ramps linearly over the range; in selects the direction
type fade struct {
	in     bool
	length int64
	pos    int64
}

// NewFadeIn ramps from silence to full level
func NewFadeIn() Effect { return &fade{in: true} }

// NewFadeOut ramps from full level to silence
func NewFadeOut() Effect { return &fade{} }

func (f *fade) Name() string {
	if f.in {
		return "Fade In"
	}
	return "Fade Out"
}

func (f *fade) SetLength(frames int64) { f.length = frames }

func (f *fade) ProcessInitialize(rate, channels int) error {
	f.pos = 0
	return nil
}

func (f *fade) ProcessBlock(in, out [][]float32) (int, error) {
	n := len(in[0])
	for i := 0; i < n; i++ {
		g := float32(1)
		if f.length > 0 {
			g = float32(f.pos+int64(i)) / float32(f.length)
		}
		if !f.in {
			g = 1 - g
		}
		for ch := range in {
			out[ch][i] = in[ch][i] * g
		}
	}
	f.pos += int64(n)
	return n, nil
}

func (f *fade) ProcessFinalize() error { return nil }

// Parse builds a built-in effect from a script name such as "amplify:-6"
func Parse(spec string) (Effect, error) {
	name, arg, _ := strings.Cut(strings.ToLower(strings.TrimSpace(spec)), ":")
	switch name {
	case "amplify":
		db, err := strconv.ParseFloat(arg, 64)
		if err != nil {
			return nil, fmt.Errorf("amplify needs a gain in dB: %w", err)
		}
		return &Amplify{DB: db}, nil
	case "fadein", "fade-in":
		return NewFadeIn(), nil
	case "fadeout", "fade-out":
		return NewFadeOut(), nil
	case "invert":
		return Invert{}, nil
	case "tone":
		tone := NewTone()
		if arg != "" {
			hz, err := strconv.ParseFloat(arg, 64)
			if err != nil {
				return nil, fmt.Errorf("tone needs a frequency in Hz: %w", err)
			}
			tone.Frequency = hz
		}
		return tone, nil
	}
	return nil, fmt.Errorf("unknown effect: %s", spec)
}
