// ABOUTME: MP3 file source
// ABOUTME: Decodes MP3 to stereo int32 samples in 24-bit range
package decode

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/Resonate-Protocol/resonate-edit/pkg/audio"
	"github.com/hajimehoshi/go-mp3"
)

// MP3Source reads from an MP3 file
type MP3Source struct {
	file       *os.File
	decoder    *mp3.Decoder
	sampleRate int
	title      string
	buf        []byte
	done       bool
}

// NewMP3Source creates a new MP3 audio source
func NewMP3Source(filePath string) (*MP3Source, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open MP3 file: %w", err)
	}

	decoder, err := mp3.NewDecoder(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to decode MP3: %w", err)
	}

	s := &MP3Source{
		file:       f,
		decoder:    decoder,
		sampleRate: decoder.SampleRate(),
		title:      titleFromPath(filePath),
	}
	log.Printf("Loaded MP3: %s (sample rate: %d Hz)", s.title, s.sampleRate)
	return s, nil
}

func (s *MP3Source) Read(samples []int32) (int, error) {
	if s.done {
		return 0, io.EOF
	}

	// The decoder emits 16-bit little-endian stereo
	numBytes := len(samples) * 2
	if cap(s.buf) < numBytes {
		s.buf = make([]byte, numBytes)
	}
	buf := s.buf[:numBytes]

	n, err := io.ReadFull(s.decoder, buf)
	switch {
	case err == io.EOF:
		s.done = true
		return 0, io.EOF
	case errors.Is(err, io.ErrUnexpectedEOF):
		s.done = true
	case err != nil:
		return 0, fmt.Errorf("mp3 decode error: %w", err)
	}

	numSamples := n / 2
	for i := 0; i < numSamples; i++ {
		sample16 := int16(binary.LittleEndian.Uint16(buf[i*2 : i*2+2]))
		samples[i] = audio.SampleFromInt16(sample16)
	}
	return numSamples, nil
}

func (s *MP3Source) SampleRate() int { return s.sampleRate }
func (s *MP3Source) Channels() int   { return 2 }
func (s *MP3Source) Metadata() (string, string, string) {
	return s.title, "", ""
}
func (s *MP3Source) Close() error {
	return s.file.Close()
}
