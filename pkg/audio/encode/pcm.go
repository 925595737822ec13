// ABOUTME: Raw PCM audio encoder
// ABOUTME: Writes interleaved 16-bit or 24-bit little-endian PCM bytes
package encode

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/Resonate-Protocol/resonate-edit/pkg/audio"
)

// PCMEncoder encodes PCM audio
type PCMEncoder struct {
	w      io.Writer
	format audio.Format
	buf    []byte
	began  bool
}

// NewPCM creates a new PCM encoder writing to w
func NewPCM(w io.Writer) *PCMEncoder {
	return &PCMEncoder{w: w}
}

// Begin checks the format; raw PCM carries no header or tags
func (e *PCMEncoder) Begin(format audio.Format, tags audio.Tags) error {
	if err := checkFormat(format, "pcm", 16, 24); err != nil {
		return err
	}
	e.format = format
	e.began = true
	return nil
}

// Encode writes one interleaved block
func (e *PCMEncoder) Encode(block [][]int32) error {
	if !e.began {
		return errNotStarted
	}
	frames, err := checkBlock(block, e.format.Channels)
	if err != nil {
		return err
	}

	width := e.format.BitDepth / 8
	size := frames * e.format.Channels * width
	if cap(e.buf) < size {
		e.buf = make([]byte, size)
	}
	out := e.buf[:size]

	i := 0
	for f := 0; f < frames; f++ {
		for ch := range block {
			sample := block[ch][f]
			if width == 3 {
				b := audio.SampleTo24Bit(sample)
				copy(out[i:], b[:])
			} else {
				binary.LittleEndian.PutUint16(out[i:], uint16(audio.SampleToInt16(sample)))
			}
			i += width
		}
	}

	if _, err := e.w.Write(out); err != nil {
		return fmt.Errorf("failed to write PCM: %w", err)
	}
	return nil
}

// Finish has nothing to flush
func (e *PCMEncoder) Finish() error {
	if !e.began {
		return errNotStarted
	}
	return nil
}
