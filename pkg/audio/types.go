// ABOUTME: Audio type definitions
// ABOUTME: Defines audio formats, sample formats and integer/float sample conversions
package audio

import "math"

const (
	// 24-bit audio range constants
	Max24Bit = 8388607  // 2^23 - 1
	Min24Bit = -8388608 // -2^23

	// 16-bit audio range constants
	Max16Bit = 32767
	Min16Bit = -32768
)

const (
	// OpusSampleRate is the rate Opus packet streams are written at
	OpusSampleRate = 48000

	// OpusStreamMagic starts every Opus packet stream file
	OpusStreamMagic = "RSOP"
)

// Format describes audio stream format
type Format struct {
	Codec       string
	SampleRate  int
	Channels    int
	BitDepth    int
	CodecHeader []byte // For FLAC, Opus, etc.
}

// SampleFormat is the numeric representation of mixed output samples
type SampleFormat int

const (
	Float32 SampleFormat = iota
	Int16
	Int24
)

// Bits returns the integer width of the format (32 for Float32)
func (f SampleFormat) Bits() int {
	switch f {
	case Int16:
		return 16
	case Int24:
		return 24
	default:
		return 32
	}
}

// IsInteger reports whether samples must be quantized
func (f SampleFormat) IsInteger() bool {
	return f == Int16 || f == Int24
}

func (f SampleFormat) String() string {
	switch f {
	case Int16:
		return "int16"
	case Int24:
		return "int24"
	default:
		return "float32"
	}
}

// SampleFormatForBits maps an encoder bit depth to a sample format
func SampleFormatForBits(bits int) (SampleFormat, error) {
	switch bits {
	case 16:
		return Int16, nil
	case 24:
		return Int24, nil
	case 32:
		return Float32, nil
	}
	return Float32, errUnsupportedBits(bits)
}

// Buffer holds interleaved PCM audio
type Buffer struct {
	Samples []int32 // PCM samples (int32 to support both 16-bit and 24-bit)
	Format  Format
}

// Frames returns the number of sample frames held by the buffer
func (b Buffer) Frames() int {
	if b.Format.Channels == 0 {
		return 0
	}
	return len(b.Samples) / b.Format.Channels
}

// SampleToInt16 converts int32 sample to int16 (for 16-bit playback)
func SampleToInt16(sample int32) int16 {
	// Right-shift to convert 24-bit (or 16-bit) to 16-bit range
	return int16(sample >> 8)
}

// SampleFromInt16 converts int16 sample to int32 (left-justified in 24-bit)
func SampleFromInt16(sample int16) int32 {
	// Left-shift to position 16-bit value in upper bits
	return int32(sample) << 8
}

// SampleTo24Bit converts int32 to 24-bit packed bytes (little-endian)
func SampleTo24Bit(sample int32) [3]byte {
	// Take lower 24 bits, pack little-endian
	return [3]byte{
		byte(sample),
		byte(sample >> 8),
		byte(sample >> 16),
	}
}

// SampleFrom24Bit converts 24-bit packed bytes to int32 (little-endian)
func SampleFrom24Bit(b [3]byte) int32 {
	// Reconstruct 24-bit value and sign-extend to 32-bit
	val := int32(b[0]) | int32(b[1])<<8 | int32(b[2])<<16
	// Sign extend from 24-bit to 32-bit
	if val&0x800000 != 0 {
		val |= ^0xFFFFFF // Set upper 8 bits to 1 for negative values
	}
	return val
}

// SampleToFloat converts a 24-bit range sample to [-1, 1)
func SampleToFloat(sample int32) float32 {
	return float32(sample) / (Max24Bit + 1)
}

// SampleFromFloat converts a float sample to the 24-bit range with clipping
func SampleFromFloat(f float32) int32 {
	v := math.Round(float64(f) * (Max24Bit + 1))
	if v > Max24Bit {
		v = Max24Bit
	} else if v < Min24Bit {
		v = Min24Bit
	}
	return int32(v)
}

// TimeToSamples quantizes a time in seconds to the nearest sample index
func TimeToSamples(t float64, rate int) int64 {
	return int64(math.Floor(t*float64(rate) + 0.5))
}

// SamplesToTime converts a sample count to seconds
func SamplesToTime(n int64, rate int) float64 {
	return float64(n) / float64(rate)
}
