// ABOUTME: Decoder and Source interfaces plus file-type dispatch
// ABOUTME: Sources stream interleaved int32 samples in 24-bit range until io.EOF
package decode

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/Resonate-Protocol/resonate-edit/pkg/audio"
)

// Decoder decodes audio packets in various formats to PCM int32 samples
type Decoder interface {
	// Decode converts encoded audio data to PCM samples
	Decode(data []byte) ([]int32, error)

	// Close releases decoder resources
	Close() error
}

// Source provides interleaved PCM samples from a file
type Source interface {
	// Read fills samples and returns how many were written; io.EOF once exhausted
	Read(samples []int32) (int, error)
	SampleRate() int
	Channels() int
	// Metadata returns title, artist, album
	Metadata() (title, artist, album string)
	Close() error
}

// Open creates a source for a local file chosen by extension
func Open(path string) (Source, error) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("audio file not found: %s", path)
	}

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".wav":
		return NewWAVSource(path)
	case ".mp3":
		return NewMP3Source(path)
	case ".flac":
		return NewFLACSource(path)
	case ".opus":
		return NewOpusSource(path)
	default:
		return nil, fmt.Errorf("%w: %s (supported: .wav, .mp3, .flac, .opus)", audio.ErrUnsupportedFormat, ext)
	}
}

// ReadAll drains src into planar float samples, one slice per channel
func ReadAll(src Source) ([][]float32, error) {
	channels := src.Channels()
	if channels <= 0 {
		return nil, fmt.Errorf("source reports %d channels", channels)
	}
	out := make([][]float32, channels)
	buf := make([]int32, 4096*channels)

	var carry []int32
	for {
		n, err := src.Read(buf)
		if n > 0 {
			samples := append(carry, buf[:n]...)
			frames := len(samples) / channels
			for i := 0; i < frames; i++ {
				for ch := 0; ch < channels; ch++ {
					out[ch] = append(out[ch], audio.SampleToFloat(samples[i*channels+ch]))
				}
			}
			carry = append(carry[:0], samples[frames*channels:]...)
		}
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return nil, err
		}
	}
}

func titleFromPath(path string) string {
	filename := filepath.Base(path)
	return strings.TrimSuffix(filename, filepath.Ext(filename))
}

// scaleTo24 moves a sample of the given bit depth into the 24-bit range
func scaleTo24(sample int32, bits int) int32 {
	switch {
	case bits == 24:
		return sample
	case bits < 24:
		return sample << (24 - bits)
	default:
		return sample >> (bits - 24)
	}
}
