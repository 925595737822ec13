// ABOUTME: Audio output interface and the playback loop
// ABOUTME: Pulls planar mixer blocks, interleaves them and writes to a device
package output

import (
	"context"
	"fmt"
)

// Output represents an audio output device
type Output interface {
	// Open initializes the output device
	Open(sampleRate, channels int) error

	// Write outputs interleaved samples (blocks until written)
	Write(samples []int32) error

	// Close releases output resources
	Close() error
}

// Source produces planar blocks; *mixer.Mixer implements it
type Source interface {
	Process() (int, error)
	Int(ch int) []int32
	Channels() int
	Rate() int
}

// Play opens out at the source format and writes every block until the
// source is drained or ctx is cancelled. It returns the frames written.
func Play(ctx context.Context, src Source, out Output) (int64, error) {
	channels := src.Channels()
	if err := out.Open(src.Rate(), channels); err != nil {
		return 0, fmt.Errorf("failed to open output: %w", err)
	}
	defer out.Close()

	var played int64
	var buf []int32
	for {
		if err := ctx.Err(); err != nil {
			return played, err
		}
		n, err := src.Process()
		if err != nil {
			return played, fmt.Errorf("failed to mix block: %w", err)
		}
		if n == 0 {
			return played, nil
		}

		buf = interleave(buf, src, n, channels)
		if err := out.Write(buf); err != nil {
			return played, fmt.Errorf("failed to write block: %w", err)
		}
		played += int64(n)
	}
}

func interleave(buf []int32, src Source, frames, channels int) []int32 {
	size := frames * channels
	if cap(buf) < size {
		buf = make([]int32, size)
	}
	buf = buf[:size]
	for ch := 0; ch < channels; ch++ {
		samples := src.Int(ch)
		for i := 0; i < frames; i++ {
			buf[i*channels+ch] = samples[i]
		}
	}
	return buf
}
