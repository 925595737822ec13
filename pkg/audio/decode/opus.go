// ABOUTME: Opus audio decoder and packet-stream file source
// ABOUTME: Decodes Opus packets to int32 samples; reads length-prefixed packet files
package decode

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/Resonate-Protocol/resonate-edit/pkg/audio"
	"gopkg.in/hraban/opus.v2"
)

// OpusDecoder decodes Opus audio
type OpusDecoder struct {
	decoder *opus.Decoder
	format  audio.Format
	pcm16   []int16
}

// NewOpus creates a new Opus decoder
func NewOpus(format audio.Format) (Decoder, error) {
	if format.Codec != "opus" {
		return nil, fmt.Errorf("invalid codec for Opus decoder: %s", format.Codec)
	}

	dec, err := opus.NewDecoder(format.SampleRate, format.Channels)
	if err != nil {
		return nil, fmt.Errorf("failed to create opus decoder: %w", err)
	}

	return &OpusDecoder{
		decoder: dec,
		format:  format,
		pcm16:   make([]int16, 5760*format.Channels), // 120ms, the largest Opus frame
	}, nil
}

// Decode converts Opus bytes to int32 samples
func (d *OpusDecoder) Decode(data []byte) ([]int32, error) {
	n, err := d.decoder.Decode(data, d.pcm16)
	if err != nil {
		return nil, fmt.Errorf("opus decode failed: %w", err)
	}

	actualSamples := n * d.format.Channels
	pcm32 := make([]int32, actualSamples)
	for i := 0; i < actualSamples; i++ {
		pcm32[i] = audio.SampleFromInt16(d.pcm16[i])
	}
	return pcm32, nil
}

// Close releases decoder resources
func (d *OpusDecoder) Close() error {
	return nil
}

// OpusSource reads a packet stream: the magic, one channel-count byte, then
// packets each prefixed by a little-endian uint16 length
type OpusSource struct {
	file     *os.File
	reader   *bufio.Reader
	decoder  Decoder
	channels int
	title    string
	pending  []int32
}

// NewOpusSource opens an Opus packet stream file
func NewOpusSource(filePath string) (*OpusSource, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open Opus file: %w", err)
	}
	r := bufio.NewReader(f)

	header := make([]byte, len(audio.OpusStreamMagic)+1)
	if _, err := io.ReadFull(r, header); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to read Opus header: %w", err)
	}
	if string(header[:len(audio.OpusStreamMagic)]) != audio.OpusStreamMagic {
		f.Close()
		return nil, fmt.Errorf("%w: not an Opus packet stream", audio.ErrUnsupportedFormat)
	}
	channels := int(header[len(audio.OpusStreamMagic)])

	decoder, err := NewOpus(audio.Format{Codec: "opus", SampleRate: audio.OpusSampleRate, Channels: channels, BitDepth: 16})
	if err != nil {
		f.Close()
		return nil, err
	}
	return &OpusSource{
		file:     f,
		reader:   r,
		decoder:  decoder,
		channels: channels,
		title:    titleFromPath(filePath),
	}, nil
}

func (s *OpusSource) Read(samples []int32) (int, error) {
	n := 0
	for n < len(samples) {
		if len(s.pending) == 0 {
			var size uint16
			err := binary.Read(s.reader, binary.LittleEndian, &size)
			if err == io.EOF {
				if n > 0 {
					return n, nil
				}
				return 0, io.EOF
			}
			if err != nil {
				return n, fmt.Errorf("failed to read Opus packet length: %w", err)
			}
			packet := make([]byte, size)
			if _, err := io.ReadFull(s.reader, packet); err != nil {
				if errors.Is(err, io.EOF) {
					err = io.ErrUnexpectedEOF
				}
				return n, fmt.Errorf("failed to read Opus packet: %w", err)
			}
			if s.pending, err = s.decoder.Decode(packet); err != nil {
				return n, err
			}
		}
		c := copy(samples[n:], s.pending)
		s.pending = s.pending[c:]
		n += c
	}
	return n, nil
}

func (s *OpusSource) SampleRate() int { return audio.OpusSampleRate }
func (s *OpusSource) Channels() int   { return s.channels }
func (s *OpusSource) Metadata() (string, string, string) {
	return s.title, "", ""
}
func (s *OpusSource) Close() error {
	return s.file.Close()
}
