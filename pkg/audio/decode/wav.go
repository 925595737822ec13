// ABOUTME: WAV file source
// ABOUTME: Streams RIFF/WAVE PCM through go-audio/wav into 24-bit range int32 samples
package decode

import (
	"fmt"
	"io"
	"log"
	"os"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// WAVSource reads from a WAV file
type WAVSource struct {
	file     *os.File
	decoder  *wav.Decoder
	format   *goaudio.Format
	bitDepth int
	title    string
	buf      *goaudio.IntBuffer
}

// NewWAVSource creates a new WAV audio source
func NewWAVSource(filePath string) (*WAVSource, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open WAV file: %w", err)
	}

	decoder := wav.NewDecoder(f)
	if !decoder.IsValidFile() {
		f.Close()
		return nil, fmt.Errorf("invalid WAV file: %s", filePath)
	}
	if err := decoder.FwdToPCM(); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to find WAV data: %w", err)
	}

	bitDepth := int(decoder.SampleBitDepth())
	switch bitDepth {
	case 8, 16, 24, 32:
	default:
		f.Close()
		return nil, fmt.Errorf("unsupported WAV bit depth: %d", bitDepth)
	}

	s := &WAVSource{
		file:     f,
		decoder:  decoder,
		format:   decoder.Format(),
		bitDepth: bitDepth,
		title:    titleFromPath(filePath),
	}
	log.Printf("Loaded WAV: %s (sample rate: %d Hz, channels: %d, bit depth: %d)",
		s.title, s.format.SampleRate, s.format.NumChannels, bitDepth)
	return s, nil
}

func (s *WAVSource) Read(samples []int32) (int, error) {
	if s.buf == nil || len(s.buf.Data) < len(samples) {
		s.buf = &goaudio.IntBuffer{
			Format:         s.format,
			Data:           make([]int, len(samples)),
			SourceBitDepth: s.bitDepth,
		}
	}
	s.buf.Data = s.buf.Data[:len(samples)]

	n, err := s.decoder.PCMBuffer(s.buf)
	if err != nil {
		return 0, fmt.Errorf("wav decode error: %w", err)
	}
	if n == 0 {
		return 0, io.EOF
	}

	for i, v := range s.buf.Data[:n] {
		if s.bitDepth == 8 {
			// 8-bit WAV is unsigned
			v -= 128
		}
		samples[i] = scaleTo24(int32(v), s.bitDepth)
	}
	return n, nil
}

func (s *WAVSource) SampleRate() int { return s.format.SampleRate }
func (s *WAVSource) Channels() int   { return s.format.NumChannels }

// BitDepth returns the stored sample width
func (s *WAVSource) BitDepth() int { return s.bitDepth }

func (s *WAVSource) Metadata() (string, string, string) {
	title, artist, album := s.title, "", ""
	if s.decoder.Metadata != nil {
		if s.decoder.Metadata.Title != "" {
			title = s.decoder.Metadata.Title
		}
		artist = s.decoder.Metadata.Artist
		album = s.decoder.Metadata.Product
	}
	return title, artist, album
}

func (s *WAVSource) Close() error {
	return s.file.Close()
}
