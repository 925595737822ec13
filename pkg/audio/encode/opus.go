// ABOUTME: Opus audio encoder
// ABOUTME: Encodes 20ms frames into a length-prefixed packet stream file
package encode

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/Resonate-Protocol/resonate-edit/pkg/audio"
	"gopkg.in/hraban/opus.v2"
)

// maxOpusPacket is the largest packet libopus produces
const maxOpusPacket = 4000

// OpusEncoder encodes Opus audio
type OpusEncoder struct {
	w         io.Writer
	encoder   *opus.Encoder
	channels  int
	frameSize int
	pcm       []int16 // interleaved frame being filled
	filled    int     // frames in pcm
	packet    []byte
}

// NewOpus creates a new Opus encoder writing a packet stream to w
func NewOpus(w io.Writer) *OpusEncoder {
	return &OpusEncoder{w: w}
}

// Begin writes the stream header; tags are not stored in packet streams
func (e *OpusEncoder) Begin(format audio.Format, tags audio.Tags) error {
	if err := checkFormat(format, "opus", 16, 24); err != nil {
		return err
	}
	if format.SampleRate != audio.OpusSampleRate {
		return fmt.Errorf("%w: opus streams require %d Hz, got %d",
			audio.ErrUnsupportedFormat, audio.OpusSampleRate, format.SampleRate)
	}
	if format.Channels > 2 {
		return fmt.Errorf("%w: opus supports 1 or 2 channels, got %d",
			audio.ErrUnsupportedFormat, format.Channels)
	}

	encoder, err := opus.NewEncoder(format.SampleRate, format.Channels, opus.AppAudio)
	if err != nil {
		return fmt.Errorf("failed to create opus encoder: %w", err)
	}

	header := append([]byte(audio.OpusStreamMagic), byte(format.Channels))
	if _, err := e.w.Write(header); err != nil {
		return fmt.Errorf("failed to write Opus header: %w", err)
	}

	e.encoder = encoder
	e.channels = format.Channels
	e.frameSize = format.SampleRate / 50 // 20ms frame
	e.pcm = make([]int16, e.frameSize*e.channels)
	e.packet = make([]byte, maxOpusPacket)
	e.filled = 0
	return nil
}

// Encode buffers samples and writes every complete frame
func (e *OpusEncoder) Encode(block [][]int32) error {
	if e.encoder == nil {
		return errNotStarted
	}
	frames, err := checkBlock(block, e.channels)
	if err != nil {
		return err
	}

	for f := 0; f < frames; f++ {
		for ch := range block {
			e.pcm[e.filled*e.channels+ch] = audio.SampleToInt16(block[ch][f])
		}
		e.filled++
		if e.filled == e.frameSize {
			if err := e.writeFrame(); err != nil {
				return err
			}
		}
	}
	return nil
}

func (e *OpusEncoder) writeFrame() error {
	n, err := e.encoder.Encode(e.pcm, e.packet)
	if err != nil {
		return fmt.Errorf("opus encode error: %w", err)
	}
	var size [2]byte
	binary.LittleEndian.PutUint16(size[:], uint16(n))
	if _, err := e.w.Write(size[:]); err != nil {
		return fmt.Errorf("failed to write Opus packet: %w", err)
	}
	if _, err := e.w.Write(e.packet[:n]); err != nil {
		return fmt.Errorf("failed to write Opus packet: %w", err)
	}
	e.filled = 0
	return nil
}

// Finish pads the last partial frame with silence and writes it
func (e *OpusEncoder) Finish() error {
	if e.encoder == nil {
		return errNotStarted
	}
	if e.filled == 0 {
		return nil
	}
	clear(e.pcm[e.filled*e.channels:])
	return e.writeFrame()
}
