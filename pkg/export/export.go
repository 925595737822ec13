// ABOUTME: Export pipeline pulling mixer blocks into an encoder
// ABOUTME: Handles cancellation, stage errors and cleanup of the output file
package export

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/Resonate-Protocol/resonate-edit/pkg/audio"
	"github.com/Resonate-Protocol/resonate-edit/pkg/audio/encode"
	"github.com/Resonate-Protocol/resonate-edit/pkg/mixer"
	"github.com/Resonate-Protocol/resonate-edit/pkg/track"
)

// Source produces planar integer blocks; *mixer.Mixer implements it
type Source interface {
	Process() (int, error)
	Int(ch int) []int32
	Channels() int
	Rate() int
	Total() int64
}

// Options describes the encoded stream
type Options struct {
	Codec    string
	BitDepth int
	Tags     audio.Tags

	// Progress, if set, is called after every block with frames done and total
	Progress func(done, total int64)
}

// Run drives src into enc until src is exhausted, ctx is cancelled or a
// stage fails. The encoder is finished on every path.
func Run(ctx context.Context, src Source, enc encode.Encoder, opts Options) (Result, error) {
	format := audio.Format{
		Codec:      opts.Codec,
		SampleRate: src.Rate(),
		Channels:   src.Channels(),
		BitDepth:   opts.BitDepth,
	}
	if err := enc.Begin(format, opts.Tags); err != nil {
		return Error, stageError(StageInit, err)
	}

	block := make([][]int32, src.Channels())
	var done int64
	for {
		select {
		case <-ctx.Done():
			abort(enc)
			return Cancelled, ctx.Err()
		default:
		}

		n, err := src.Process()
		if err != nil {
			abort(enc)
			return Error, stageError(StageWrite, err)
		}
		if n == 0 {
			break
		}

		for ch := range block {
			block[ch] = src.Int(ch)
		}
		if err := enc.Encode(block); err != nil {
			abort(enc)
			return Error, stageError(StageWrite, err)
		}

		done += int64(n)
		if opts.Progress != nil {
			opts.Progress(done, src.Total())
		}
	}

	if err := enc.Finish(); err != nil {
		return Error, stageError(StageFinalize, err)
	}
	return Success, nil
}

// abort finishes the encoder so whatever was written stays a readable file
func abort(enc encode.Encoder) {
	if err := enc.Finish(); err != nil {
		log.Printf("Export cleanup: failed to finish encoder: %v", err)
	}
}

// FileOptions configures File
type FileOptions struct {
	Options

	T0, T1    float64
	Channels  int
	Rate      int
	BlockSize int
	Dither    audio.Dither
	Seed      int64
	FLACLevel int
}

// File mixes tracks over [T0, T1) and writes them to path. On cancellation
// or failure the partial file is closed and left for the caller.
func File(ctx context.Context, path string, tracks []track.Track, opts FileOptions) (Result, error) {
	if opts.Codec == "" {
		codec, err := encode.CodecForPath(path)
		if err != nil {
			return Error, stageError(StageInit, err)
		}
		opts.Codec = codec
	}
	if opts.Codec == "opus" {
		opts.Rate = audio.OpusSampleRate
	}

	format, err := audio.SampleFormatForBits(opts.BitDepth)
	if err != nil || !format.IsInteger() {
		return Error, stageError(StageInit, fmt.Errorf("%w: bit depth %d", audio.ErrUnsupportedFormat, opts.BitDepth))
	}

	m, err := mixer.New(mixer.Options{
		Tracks:    tracks,
		T0:        opts.T0,
		T1:        opts.T1,
		Channels:  opts.Channels,
		Rate:      opts.Rate,
		BlockSize: opts.BlockSize,
		Format:    format,
		Dither:    opts.Dither,
		Seed:      opts.Seed,
	})
	if err != nil {
		return Error, stageError(StageInit, err)
	}

	f, err := os.Create(path)
	if err != nil {
		return Error, stageError(StageInit, fmt.Errorf("failed to create output file: %w", err))
	}

	enc, err := encode.New(opts.Codec, f, encode.Options{FLACLevel: opts.FLACLevel})
	if err != nil {
		f.Close()
		return Error, stageError(StageInit, err)
	}

	log.Printf("Exporting %.2fs to %s (%s, %d Hz, %d channels, %d-bit)",
		opts.T1-opts.T0, path, opts.Codec, opts.Rate, opts.Channels, opts.BitDepth)

	result, err := Run(ctx, m, enc, opts.Options)

	// The FLAC encoder closes the file itself
	if cerr := f.Close(); cerr != nil && !errors.Is(cerr, os.ErrClosed) && err == nil {
		return Error, stageError(StageFinalize, fmt.Errorf("failed to close output file: %w", cerr))
	}

	switch result {
	case Success:
		log.Printf("Export finished: %s (%d frames)", path, m.Produced())
	case Cancelled:
		log.Printf("Export cancelled after %d of %d frames", m.Produced(), m.Total())
	default:
		log.Printf("Export failed: %v", err)
	}
	return result, err
}
