// ABOUTME: Encoder interface definition and codec factory
// ABOUTME: Encoders receive metadata once, then planar int32 blocks, then a finish call
package encode

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/Resonate-Protocol/resonate-edit/pkg/audio"
)

// Encoder writes planar int32 samples in 24-bit range to a container
type Encoder interface {
	// Begin validates format and writes headers and metadata
	Begin(format audio.Format, tags audio.Tags) error

	// Encode writes one block; block[ch] holds that channel's frames
	Encode(block [][]int32) error

	// Finish flushes buffered frames and finalizes the container
	Finish() error
}

// Options tune codec specific behaviour
type Options struct {
	// FLACLevel is the compression level 0..8; out-of-range values use 5
	FLACLevel int
}

// DefaultFLACLevel is used when the configured level is out of range
const DefaultFLACLevel = 5

var errNotStarted = errors.New("encoder not started")

// Codecs lists the supported codec names
var Codecs = []string{"wav", "flac", "opus", "pcm"}

// New creates an encoder for codec writing to w
func New(codec string, w io.WriteSeeker, opts Options) (Encoder, error) {
	switch codec {
	case "wav":
		return NewWAV(w), nil
	case "flac":
		return NewFLAC(w, opts.FLACLevel), nil
	case "opus":
		return NewOpus(w), nil
	case "pcm":
		return NewPCM(w), nil
	default:
		return nil, fmt.Errorf("%w: codec %q", audio.ErrUnsupportedFormat, codec)
	}
}

// CodecForPath picks a codec from a file extension
func CodecForPath(path string) (string, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".wav":
		return "wav", nil
	case ".flac":
		return "flac", nil
	case ".opus":
		return "opus", nil
	case ".pcm", ".raw":
		return "pcm", nil
	default:
		return "", fmt.Errorf("%w: no codec for extension %q", audio.ErrUnsupportedFormat, ext)
	}
}

func checkFormat(format audio.Format, codec string, depths ...int) error {
	if format.Codec != codec {
		return fmt.Errorf("invalid codec for %s encoder: %s", strings.ToUpper(codec), format.Codec)
	}
	if format.Channels <= 0 {
		return fmt.Errorf("%w: %d channels", audio.ErrUnsupportedFormat, format.Channels)
	}
	if format.SampleRate <= 0 {
		return fmt.Errorf("%w: sample rate %d", audio.ErrUnsupportedFormat, format.SampleRate)
	}
	for _, d := range depths {
		if format.BitDepth == d {
			return nil
		}
	}
	return fmt.Errorf("unsupported bit depth: %d (supported: %v)", format.BitDepth, depths)
}

// checkBlock returns the frame count of a planar block
func checkBlock(block [][]int32, channels int) (int, error) {
	if len(block) != channels {
		return 0, fmt.Errorf("block has %d channels, expected %d", len(block), channels)
	}
	frames := len(block[0])
	for ch, data := range block {
		if len(data) != frames {
			return 0, fmt.Errorf("channel %d has %d frames, expected %d", ch, len(data), frames)
		}
	}
	return frames, nil
}

// toDepth narrows a 24-bit range sample to bits
func toDepth(sample int32, bits int) int32 {
	if bits == 16 {
		return int32(audio.SampleToInt16(sample))
	}
	return sample
}
