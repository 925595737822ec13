// ABOUTME: Import of audio and MIDI files as new project tracks
// ABOUTME: Files decode concurrently and land in argument order as one undo step
package project

import (
	"context"
	"fmt"
	"log"
	"path/filepath"
	"strings"

	"github.com/Resonate-Protocol/resonate-edit/pkg/audio"
	"github.com/Resonate-Protocol/resonate-edit/pkg/audio/decode"
	"github.com/Resonate-Protocol/resonate-edit/pkg/history"
	"github.com/Resonate-Protocol/resonate-edit/pkg/track"
	"golang.org/x/sync/errgroup"
)

// decoded is one file read into memory, not yet stored
type decoded struct {
	name    string
	rate    int
	samples [][]float32
	notes   *track.NoteTrack
}

func isMIDI(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".mid", ".midi":
		return true
	}
	return false
}

func decodeFile(path string) (decoded, error) {
	if isMIDI(path) {
		nt, err := track.ReadMIDI(path)
		if err != nil {
			return decoded{}, err
		}
		return decoded{name: nt.Name(), notes: nt}, nil
	}

	src, err := decode.Open(path)
	if err != nil {
		return decoded{}, err
	}
	defer src.Close()
	return readSource(src)
}

func readSource(src decode.Source) (decoded, error) {
	samples, err := decode.ReadAll(src)
	if err != nil {
		return decoded{}, fmt.Errorf("failed to decode: %w", err)
	}
	title, _, _ := src.Metadata()
	return decoded{name: title, rate: src.SampleRate(), samples: samples}, nil
}

// Import adds one file as a new track
func (p *Project) Import(ctx context.Context, path string) error {
	return p.ImportFiles(ctx, path)
}

// ImportFiles decodes every file concurrently and appends one track per
// file in argument order. Any failure leaves the project unchanged.
func (p *Project) ImportFiles(ctx context.Context, paths ...string) error {
	if len(paths) == 0 {
		return nil
	}
	results := make([]decoded, len(paths))

	g, ctx := errgroup.WithContext(ctx)
	for i, path := range paths {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			d, err := decodeFile(path)
			if err != nil {
				return fmt.Errorf("failed to import %s: %w", path, err)
			}
			results[i] = d
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	long := "Imported " + strings.Join(names(results), ", ")
	if err := p.addDecoded(long, "Import", results); err != nil {
		return err
	}
	log.Printf("Imported %d file(s)", len(paths))
	return nil
}

// ImportRaw adds a headerless PCM file laid out as format
func (p *Project) ImportRaw(path string, format audio.Format) error {
	src, err := decode.OpenRaw(path, format)
	if err != nil {
		return err
	}
	defer src.Close()

	d, err := readSource(src)
	if err != nil {
		return fmt.Errorf("failed to import %s: %w", path, err)
	}
	return p.addDecoded("Imported "+d.name, "Import", []decoded{d})
}

// addDecoded stores decoded files as new tracks in one transaction
func (p *Project) addDecoded(long, short string, files []decoded) error {
	return p.transact(long, short, func(l *track.List) (history.Selection, error) {
		var created []track.Track
		for _, d := range files {
			if d.notes != nil {
				created = append(created, d.notes)
				continue
			}
			w := track.NewWaveTrack(p.store, d.rate, len(d.samples), p.cfg.MaxBlock)
			w.SetName(d.name)
			if len(d.samples[0]) > 0 {
				if _, err := w.NewClipFromSamples(0, d.samples); err != nil {
					w.Release()
					for _, t := range created {
						t.Release()
					}
					return p.sel, fmt.Errorf("failed to store %s: %w", d.name, err)
				}
			}
			created = append(created, w)
		}
		for _, t := range created {
			l.Add(t)
		}
		return p.sel, nil
	})
}

func names(files []decoded) []string {
	out := make([]string, len(files))
	for i, d := range files {
		out[i] = d.name
	}
	return out
}
