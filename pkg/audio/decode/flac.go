// ABOUTME: FLAC file source
// ABOUTME: Decodes FLAC frames to interleaved int32 samples
package decode

import (
	"fmt"
	"io"
	"log"
	"os"

	"github.com/Resonate-Protocol/resonate-edit/pkg/audio"
	"github.com/mewkiz/flac"
	"github.com/mewkiz/flac/meta"
)

// FLACSource reads from a FLAC file
type FLACSource struct {
	file       *os.File
	stream     *flac.Stream
	sampleRate int
	channels   int
	bitDepth   int
	title      string
	artist     string
	album      string

	// decoded samples of the current frame not yet returned
	pending []int32
}

// NewFLACSource creates a new FLAC audio source
func NewFLACSource(filePath string) (*FLACSource, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open FLAC file: %w", err)
	}

	stream, err := flac.Parse(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to decode FLAC: %w", err)
	}

	info := stream.Info
	s := &FLACSource{
		file:       f,
		stream:     stream,
		sampleRate: int(info.SampleRate),
		channels:   int(info.NChannels),
		bitDepth:   int(info.BitsPerSample),
		title:      titleFromPath(filePath),
	}
	for _, block := range stream.Blocks {
		comment, ok := block.Body.(*meta.VorbisComment)
		if !ok {
			continue
		}
		for _, kv := range comment.Tags {
			switch audio.CanonicalTagName(kv[0]) {
			case audio.TagTitle:
				s.title = kv[1]
			case audio.TagArtist:
				s.artist = kv[1]
			case audio.TagAlbum:
				s.album = kv[1]
			}
		}
	}

	log.Printf("Loaded FLAC: %s (sample rate: %d Hz, channels: %d, bit depth: %d)",
		s.title, s.sampleRate, s.channels, s.bitDepth)
	return s, nil
}

func (s *FLACSource) Read(samples []int32) (int, error) {
	n := 0
	for n < len(samples) {
		if len(s.pending) == 0 {
			frame, err := s.stream.ParseNext()
			if err == io.EOF {
				if n > 0 {
					return n, nil
				}
				return 0, io.EOF
			}
			if err != nil {
				return n, fmt.Errorf("failed to decode FLAC frame: %w", err)
			}

			// Interleave and scale to 24-bit range
			blockSize := int(frame.BlockSize)
			buf := s.pending[:0]
			for i := 0; i < blockSize; i++ {
				for ch := 0; ch < s.channels; ch++ {
					buf = append(buf, scaleTo24(frame.Subframes[ch].Samples[i], s.bitDepth))
				}
			}
			s.pending = buf
		}
		c := copy(samples[n:], s.pending)
		s.pending = s.pending[c:]
		n += c
	}
	return n, nil
}

func (s *FLACSource) SampleRate() int { return s.sampleRate }
func (s *FLACSource) Channels() int   { return s.channels }

// BitDepth returns the stored sample width
func (s *FLACSource) BitDepth() int { return s.bitDepth }

func (s *FLACSource) Metadata() (string, string, string) {
	return s.title, s.artist, s.album
}

func (s *FLACSource) Close() error {
	return s.file.Close()
}
