// ABOUTME: FLAC audio encoder
// ABOUTME: Writes fixed-size FLAC frames and a Vorbis comment block via mewkiz/flac
package encode

import (
	"fmt"
	"io"

	"github.com/Resonate-Protocol/resonate-edit/pkg/audio"
	"github.com/mewkiz/flac"
	"github.com/mewkiz/flac/frame"
	"github.com/mewkiz/flac/meta"
)

// FLACBlockSize is the number of frames per FLAC frame
const FLACBlockSize = 4096

// FLACVendor is written as the Vorbis comment vendor string
const FLACVendor = "resonate-edit"

// FLACEncoder encodes FLAC audio
type FLACEncoder struct {
	w       io.Writer
	level   int
	enc     *flac.Encoder
	format  audio.Format
	pending [][]int32 // per channel, fewer than FLACBlockSize frames
	num     uint64
}

// NewFLAC creates a FLAC encoder; level 0 writes only verbatim subframes
func NewFLAC(w io.Writer, level int) *FLACEncoder {
	if level < 0 || level > 8 {
		level = DefaultFLACLevel
	}
	return &FLACEncoder{w: w, level: level}
}

// Level returns the effective compression level
func (e *FLACEncoder) Level() int {
	return e.level
}

func (e *FLACEncoder) Begin(format audio.Format, tags audio.Tags) error {
	if err := checkFormat(format, "flac", 16, 24); err != nil {
		return err
	}
	if format.Channels > 8 {
		return fmt.Errorf("%w: flac supports up to 8 channels, got %d",
			audio.ErrUnsupportedFormat, format.Channels)
	}

	info := &meta.StreamInfo{
		BlockSizeMin:  FLACBlockSize,
		BlockSizeMax:  FLACBlockSize,
		SampleRate:    uint32(format.SampleRate),
		NChannels:     uint8(format.Channels),
		BitsPerSample: uint8(format.BitDepth),
	}

	var blocks []*meta.Block
	if comment := vorbisComment(tags); comment != nil {
		blocks = append(blocks, comment)
	}

	enc, err := flac.NewEncoder(e.w, info, blocks...)
	if err != nil {
		return fmt.Errorf("failed to create FLAC encoder: %w", err)
	}

	e.enc = enc
	e.format = format
	e.pending = make([][]int32, format.Channels)
	for ch := range e.pending {
		e.pending[ch] = make([]int32, 0, FLACBlockSize)
	}
	e.num = 0
	return nil
}

// vorbisComment maps tags to a Vorbis comment block, or nil without tags
func vorbisComment(tags audio.Tags) *meta.Block {
	if len(tags) == 0 {
		return nil
	}
	comment := &meta.VorbisComment{Vendor: FLACVendor}
	for _, tag := range tags {
		switch tag.Name {
		case audio.TagYear:
			comment.Tags = append(comment.Tags, [2]string{"DATE", tag.Value})
		case audio.TagComments:
			comment.Tags = append(comment.Tags,
				[2]string{"COMMENT", tag.Value},
				[2]string{"DESCRIPTION", tag.Value})
		default:
			comment.Tags = append(comment.Tags, [2]string{tag.Name, tag.Value})
		}
	}

	// The encoder writes the body only when the header length is set
	length := 4 + len(comment.Vendor) + 4
	for _, kv := range comment.Tags {
		length += 4 + len(kv[0]) + 1 + len(kv[1])
	}
	return &meta.Block{
		Header: meta.Header{Type: meta.TypeVorbisComment, Length: int64(length)},
		Body:   comment,
	}
}

func (e *FLACEncoder) Encode(block [][]int32) error {
	if e.enc == nil {
		return errNotStarted
	}
	frames, err := checkBlock(block, e.format.Channels)
	if err != nil {
		return err
	}

	for off := 0; off < frames; {
		take := min(FLACBlockSize-len(e.pending[0]), frames-off)
		for ch := range block {
			for _, s := range block[ch][off : off+take] {
				e.pending[ch] = append(e.pending[ch], toDepth(s, e.format.BitDepth))
			}
		}
		off += take
		if len(e.pending[0]) == FLACBlockSize {
			if err := e.writeFrame(); err != nil {
				return err
			}
		}
	}
	return nil
}

func (e *FLACEncoder) writeFrame() error {
	n := len(e.pending[0])
	subframes := make([]*frame.Subframe, len(e.pending))
	for ch, samples := range e.pending {
		pred := frame.PredVerbatim
		if e.level > 0 && isConstant(samples) {
			pred = frame.PredConstant
		}
		subframes[ch] = &frame.Subframe{
			SubHeader: frame.SubHeader{Pred: pred},
			Samples:   append([]int32(nil), samples...),
			NSamples:  n,
		}
	}

	f := &frame.Frame{
		Header: frame.Header{
			HasFixedBlockSize: true,
			BlockSize:         uint16(n),
			SampleRate:        uint32(e.format.SampleRate),
			Channels:          flacChannels(e.format.Channels),
			BitsPerSample:     uint8(e.format.BitDepth),
			Num:               e.num,
		},
		Subframes: subframes,
	}
	if err := e.enc.WriteFrame(f); err != nil {
		return fmt.Errorf("failed to write FLAC frame: %w", err)
	}

	e.num++
	for ch := range e.pending {
		e.pending[ch] = e.pending[ch][:0]
	}
	return nil
}

// Finish writes the final short frame and patches the stream info
func (e *FLACEncoder) Finish() error {
	if e.enc == nil {
		return errNotStarted
	}
	if len(e.pending[0]) > 0 {
		if err := e.writeFrame(); err != nil {
			return err
		}
	}
	if err := e.enc.Close(); err != nil {
		return fmt.Errorf("failed to finalize FLAC: %w", err)
	}
	return nil
}

func isConstant(samples []int32) bool {
	for _, s := range samples[1:] {
		if s != samples[0] {
			return false
		}
	}
	return true
}

func flacChannels(n int) frame.Channels {
	switch n {
	case 1:
		return frame.ChannelsMono
	case 2:
		return frame.ChannelsLR
	case 3:
		return frame.ChannelsLRC
	case 4:
		return frame.ChannelsLRLsRs
	case 5:
		return frame.ChannelsLRCLsRs
	case 6:
		return frame.ChannelsLRCLfeLsRs
	case 7:
		return frame.ChannelsLRCLfeCsSlSr
	default:
		return frame.ChannelsLRCLfeLsRsSlSr
	}
}
