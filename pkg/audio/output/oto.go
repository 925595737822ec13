// ABOUTME: Oto-based audio output implementation
// ABOUTME: Streams 16-bit PCM through one persistent oto player with software volume
package output

import (
	"encoding/binary"
	"fmt"
	"io"
	"log"

	"github.com/Resonate-Protocol/resonate-edit/pkg/audio"
	"github.com/ebitengine/oto/v3"
)

// Oto plays through the system device. oto allows one context per
// process, so the first Open fixes the format.
type Oto struct {
	otoCtx     *oto.Context
	player     *oto.Player
	pipeReader *io.PipeReader
	pipeWriter *io.PipeWriter
	sampleRate int
	channels   int
	volume     int
	muted      bool
	ready      bool
	scaled     []int32
	buf        []byte
}

// NewOto creates a new Oto output at full volume
func NewOto() *Oto {
	return &Oto{volume: 100}
}

// Open starts a player; reopening with the first format resumes the device
func (o *Oto) Open(sampleRate, channels int) error {
	if o.ready {
		return fmt.Errorf("output already open")
	}
	if o.otoCtx != nil && (o.sampleRate != sampleRate || o.channels != channels) {
		return fmt.Errorf("output fixed at %dHz %dch, cannot switch to %dHz %dch",
			o.sampleRate, o.channels, sampleRate, channels)
	}

	if o.otoCtx == nil {
		ctx, readyChan, err := oto.NewContext(&oto.NewContextOptions{
			SampleRate:   sampleRate,
			ChannelCount: channels,
			Format:       oto.FormatSignedInt16LE,
		})
		if err != nil {
			return fmt.Errorf("failed to create oto context: %w", err)
		}
		<-readyChan

		o.otoCtx = ctx
		o.sampleRate = sampleRate
		o.channels = channels
		log.Printf("Audio output initialized: %dHz, %d channels", sampleRate, channels)
	} else if err := o.otoCtx.Resume(); err != nil {
		return fmt.Errorf("failed to resume output: %w", err)
	}

	// Persistent player fed through a pipe
	o.pipeReader, o.pipeWriter = io.Pipe()
	o.player = o.otoCtx.NewPlayer(o.pipeReader)
	o.player.Play()
	o.ready = true
	return nil
}

// Write outputs interleaved 24-bit samples (blocks until written)
func (o *Oto) Write(samples []int32) error {
	if !o.ready {
		return fmt.Errorf("output not initialized")
	}

	o.scaled = applyVolume(o.scaled, samples, o.volume, o.muted)
	o.buf = encodePCM16(o.buf, o.scaled)

	// Blocks until the player has consumed the bytes
	if _, err := o.pipeWriter.Write(o.buf); err != nil {
		return fmt.Errorf("pipe write failed: %w", err)
	}
	return nil
}

// Close stops the player and suspends the device
func (o *Oto) Close() error {
	if !o.ready {
		return nil
	}
	o.pipeWriter.Close()
	err := o.player.Close()
	o.pipeReader.Close()
	o.player, o.pipeReader, o.pipeWriter = nil, nil, nil
	o.ready = false

	if serr := o.otoCtx.Suspend(); serr != nil && err == nil {
		err = serr
	}
	return err
}

// SetVolume sets the volume (0-100)
func (o *Oto) SetVolume(volume int) {
	o.volume = max(0, min(100, volume))
}

func (o *Oto) SetMuted(muted bool) { o.muted = muted }
func (o *Oto) Volume() int         { return o.volume }
func (o *Oto) Muted() bool         { return o.muted }

// applyVolume scales samples into dst, clamping to the 24-bit range
func applyVolume(dst, samples []int32, volume int, muted bool) []int32 {
	multiplier := 0.0
	if !muted {
		multiplier = float64(volume) / 100.0
	}

	if cap(dst) < len(samples) {
		dst = make([]int32, len(samples))
	}
	dst = dst[:len(samples)]
	for i, sample := range samples {
		scaled := int64(float64(sample) * multiplier)
		dst[i] = int32(max(audio.Min24Bit, min(audio.Max24Bit, scaled)))
	}
	return dst
}

// encodePCM16 converts 24-bit samples to little-endian 16-bit bytes
func encodePCM16(buf []byte, samples []int32) []byte {
	size := len(samples) * 2
	if cap(buf) < size {
		buf = make([]byte, size)
	}
	buf = buf[:size]
	for i, s := range samples {
		binary.LittleEndian.PutUint16(buf[i*2:], uint16(audio.SampleToInt16(s)))
	}
	return buf
}
