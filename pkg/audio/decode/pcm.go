// ABOUTME: PCM audio decoder and raw PCM file source
// ABOUTME: Decodes 16-bit and 24-bit little-endian PCM to int32 samples
package decode

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/Resonate-Protocol/resonate-edit/pkg/audio"
)

// PCMDecoder decodes PCM audio
type PCMDecoder struct {
	bitDepth int
}

// NewPCM creates a new PCM decoder
func NewPCM(format audio.Format) (Decoder, error) {
	if format.Codec != "pcm" {
		return nil, fmt.Errorf("invalid codec for PCM decoder: %s", format.Codec)
	}

	if format.BitDepth != 16 && format.BitDepth != 24 {
		return nil, fmt.Errorf("unsupported bit depth: %d (supported: 16, 24)", format.BitDepth)
	}

	return &PCMDecoder{
		bitDepth: format.BitDepth,
	}, nil
}

// Decode converts PCM bytes to int32 samples
func (d *PCMDecoder) Decode(data []byte) ([]int32, error) {
	if d.bitDepth == 24 {
		numSamples := len(data) / 3
		samples := make([]int32, numSamples)
		for i := 0; i < numSamples; i++ {
			b := [3]byte{data[i*3], data[i*3+1], data[i*3+2]}
			samples[i] = audio.SampleFrom24Bit(b)
		}
		return samples, nil
	}

	numSamples := len(data) / 2
	samples := make([]int32, numSamples)
	for i := 0; i < numSamples; i++ {
		sample16 := int16(binary.LittleEndian.Uint16(data[i*2:]))
		samples[i] = audio.SampleFromInt16(sample16)
	}
	return samples, nil
}

// Close releases resources
func (d *PCMDecoder) Close() error {
	return nil
}

// PCMSource reads a headerless PCM file whose layout is given up front
type PCMSource struct {
	file    *os.File
	decoder Decoder
	format  audio.Format
	title   string
	buf     []byte
}

// OpenRaw creates a source for a raw PCM file in format
func OpenRaw(filePath string, format audio.Format) (*PCMSource, error) {
	if format.Codec == "" {
		format.Codec = "pcm"
	}
	if format.SampleRate <= 0 || format.Channels <= 0 {
		return nil, fmt.Errorf("raw PCM needs a sample rate and channel count")
	}
	decoder, err := NewPCM(format)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open PCM file: %w", err)
	}
	return &PCMSource{
		file:    f,
		decoder: decoder,
		format:  format,
		title:   titleFromPath(filePath),
	}, nil
}

func (s *PCMSource) Read(samples []int32) (int, error) {
	width := s.format.BitDepth / 8
	numBytes := len(samples) * width
	if cap(s.buf) < numBytes {
		s.buf = make([]byte, numBytes)
	}

	n, err := io.ReadFull(s.file, s.buf[:numBytes])
	if err == io.EOF {
		return 0, io.EOF
	}
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) {
		return 0, fmt.Errorf("failed to read PCM: %w", err)
	}

	decoded, err := s.decoder.Decode(s.buf[:n-n%width])
	if err != nil {
		return 0, err
	}
	return copy(samples, decoded), nil
}

func (s *PCMSource) SampleRate() int { return s.format.SampleRate }
func (s *PCMSource) Channels() int   { return s.format.Channels }
func (s *PCMSource) Metadata() (string, string, string) {
	return s.title, "", ""
}
func (s *PCMSource) Close() error {
	return s.file.Close()
}
