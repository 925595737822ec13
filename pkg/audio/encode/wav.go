// ABOUTME: WAV audio encoder
// ABOUTME: Writes RIFF/WAVE PCM with an INFO metadata chunk via go-audio/wav
package encode

import (
	"fmt"
	"io"

	"github.com/Resonate-Protocol/resonate-edit/pkg/audio"
	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// WAVEncoder encodes WAV files
type WAVEncoder struct {
	ws     io.WriteSeeker
	enc    *wav.Encoder
	format audio.Format
	buf    *goaudio.IntBuffer
}

// NewWAV creates a WAV encoder; the header is patched on Finish, so ws must seek
func NewWAV(ws io.WriteSeeker) *WAVEncoder {
	return &WAVEncoder{ws: ws}
}

func (e *WAVEncoder) Begin(format audio.Format, tags audio.Tags) error {
	if err := checkFormat(format, "wav", 16, 24); err != nil {
		return err
	}
	e.format = format
	e.enc = wav.NewEncoder(e.ws, format.SampleRate, format.BitDepth, format.Channels, 1)
	if len(tags) > 0 {
		e.enc.Metadata = wavMetadata(tags)
	}
	e.buf = &goaudio.IntBuffer{
		Format: &goaudio.Format{
			NumChannels: format.Channels,
			SampleRate:  format.SampleRate,
		},
		SourceBitDepth: format.BitDepth,
	}
	return nil
}

func wavMetadata(tags audio.Tags) *wav.Metadata {
	m := &wav.Metadata{}
	for _, tag := range tags {
		switch tag.Name {
		case audio.TagTitle:
			m.Title = tag.Value
		case audio.TagArtist:
			m.Artist = tag.Value
		case audio.TagAlbum:
			m.Product = tag.Value
		case audio.TagTrack:
			m.TrackNbr = tag.Value
		case audio.TagYear:
			m.CreationDate = tag.Value
		case audio.TagGenre:
			m.Genre = tag.Value
		case audio.TagComments:
			m.Comments = tag.Value
		case audio.TagSoftware:
			m.Software = tag.Value
		}
	}
	return m
}

func (e *WAVEncoder) Encode(block [][]int32) error {
	if e.enc == nil {
		return errNotStarted
	}
	frames, err := checkBlock(block, e.format.Channels)
	if err != nil {
		return err
	}

	n := frames * e.format.Channels
	if cap(e.buf.Data) < n {
		e.buf.Data = make([]int, n)
	}
	e.buf.Data = e.buf.Data[:n]
	i := 0
	for f := 0; f < frames; f++ {
		for ch := range block {
			e.buf.Data[i] = int(toDepth(block[ch][f], e.format.BitDepth))
			i++
		}
	}

	if err := e.enc.Write(e.buf); err != nil {
		return fmt.Errorf("failed to write WAV: %w", err)
	}
	return nil
}

// Finish patches the RIFF sizes and writes metadata
func (e *WAVEncoder) Finish() error {
	if e.enc == nil {
		return errNotStarted
	}
	if err := e.enc.Close(); err != nil {
		return fmt.Errorf("failed to finalize WAV: %w", err)
	}
	return nil
}
