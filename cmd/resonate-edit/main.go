// ABOUTME: Entry point for the Resonate audio editor
// ABOUTME: Imports files, runs an edit script, then exports and/or plays the result
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/Resonate-Protocol/resonate-edit/internal/command"
	"github.com/Resonate-Protocol/resonate-edit/internal/config"
	"github.com/Resonate-Protocol/resonate-edit/internal/ui"
	"github.com/Resonate-Protocol/resonate-edit/internal/version"
	"github.com/Resonate-Protocol/resonate-edit/pkg/audio"
	"github.com/Resonate-Protocol/resonate-edit/pkg/audio/encode"
	"github.com/Resonate-Protocol/resonate-edit/pkg/audio/output"
	"github.com/Resonate-Protocol/resonate-edit/pkg/export"
	"github.com/Resonate-Protocol/resonate-edit/pkg/mixer"
	"github.com/Resonate-Protocol/resonate-edit/pkg/project"
	"github.com/Resonate-Protocol/resonate-edit/pkg/track"
)

var (
	configPath = flag.String("config", "", "Config file (default: user config dir, if present)")
	logFile    = flag.String("log-file", "resonate-edit.log", "Log file path")
	noTUI      = flag.Bool("no-tui", false, "Disable TUI, use streaming logs instead")
	scriptPath = flag.String("script", "", "Edit script to run after import")
	inline     = flag.String("e", "", "Inline edit commands separated by ';'")
	outPath    = flag.String("out", "", "Export the project to this file")
	codec      = flag.String("codec", "", "Export codec: wav, flac, opus or pcm (default: from file extension)")
	bits       = flag.Int("bits", 0, "Export bit depth: 16 or 24 (default: from config)")
	play       = flag.Bool("play", false, "Play the project after editing")
	volume     = flag.Int("volume", 100, "Playback volume (0-100)")
	title      = flag.String("title", "", "Title tag for the exported file")
	artist     = flag.String("artist", "", "Artist tag for the exported file")
	album      = flag.String("album", "", "Album tag for the exported file")
)

func main() {
	flag.Parse()

	// TUI only makes sense while exporting
	useTUI := !*noTUI && *outPath != ""

	// Set up logging
	f, err := os.OpenFile(*logFile, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
	if err != nil {
		log.Fatalf("error opening log file: %v", err)
	}
	defer func() { _ = f.Close() }()

	if useTUI {
		// TUI mode: log only to file
		log.SetOutput(f)
	} else {
		log.SetOutput(io.MultiWriter(os.Stdout, f))
	}

	if err := run(useTUI); err != nil {
		log.Printf("Error: %v", err)
		fmt.Fprintf(os.Stderr, "resonate-edit: %v\n", err)
		_ = f.Close()
		os.Exit(1)
	}
}

func run(useTUI bool) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if *codec != "" {
		cfg.Export.Codec = *codec
	}
	if *bits != 0 {
		cfg.Export.BitDepth = *bits
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := cfg.Store()
	if err != nil {
		return err
	}
	p := project.New(store, nil, cfg.ProjectOptions())
	defer p.Close()

	log.Printf("Starting %s (%d Hz, %d channels)", version.Software(), p.Rate(), cfg.Project.Channels)

	if flag.NArg() > 0 {
		if err := p.ImportFiles(ctx, flag.Args()...); err != nil {
			return err
		}
	}

	if err := runScripts(ctx, p); err != nil {
		return err
	}

	tracks := p.Snapshot()
	defer tracks.Release()

	t0, t1 := exportRange(p, tracks)
	if *outPath != "" {
		if err := exportProject(ctx, cfg, tracks, t0, t1, useTUI); err != nil {
			return err
		}
	}
	if *play {
		if err := playProject(ctx, cfg, tracks, t0, t1); err != nil {
			return err
		}
	}
	return nil
}

// loadConfig reads -config, or the user config file when it exists
func loadConfig() (config.Config, error) {
	path := *configPath
	if path == "" {
		if user, err := config.UserPath(); err == nil {
			if _, err := os.Stat(user); err == nil {
				path = user
			}
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to load config: %w", err)
	}
	if path != "" {
		log.Printf("Loaded config from %s", path)
	}
	return cfg, nil
}

func runScripts(ctx context.Context, p *project.Project) error {
	in := command.New(p, os.Stdout)
	if *scriptPath != "" {
		sf, err := os.Open(*scriptPath)
		if err != nil {
			return fmt.Errorf("failed to open script: %w", err)
		}
		defer sf.Close()
		if err := in.Run(ctx, sf); err != nil {
			return fmt.Errorf("%s: %w", *scriptPath, err)
		}
	}
	if *inline != "" {
		if err := in.Run(ctx, strings.NewReader(*inline)); err != nil {
			return fmt.Errorf("-e: %w", err)
		}
	}
	return nil
}

// exportRange is the time selection when it is a range, otherwise the whole project
func exportRange(p *project.Project, tracks *track.List) (float64, float64) {
	sel := p.Selection()
	if sel.T1 > sel.T0 {
		return sel.T0, sel.T1
	}
	return min(0, tracks.StartTime()), tracks.EndTime()
}

func exportTags() audio.Tags {
	tags := audio.Tags{}
	if *title != "" {
		tags = tags.Set(audio.TagTitle, *title)
	}
	if *artist != "" {
		tags = tags.Set(audio.TagArtist, *artist)
	}
	if *album != "" {
		tags = tags.Set(audio.TagAlbum, *album)
	}
	return tags.Set(audio.TagSoftware, version.Software())
}

func exportProject(ctx context.Context, cfg config.Config, tracks *track.List, t0, t1 float64, useTUI bool) error {
	dither, err := audio.ParseDither(cfg.Export.Dither)
	if err != nil {
		return err
	}
	opts := export.FileOptions{
		Options: export.Options{
			Codec:    cfg.Export.Codec,
			BitDepth: cfg.Export.BitDepth,
			Tags:     exportTags(),
		},
		T0:        t0,
		T1:        t1,
		Channels:  cfg.Project.Channels,
		Rate:      cfg.Project.Rate,
		BlockSize: cfg.Export.BlockSize,
		Dither:    dither,
		FLACLevel: cfg.Export.FLACLevel,
	}

	if !useTUI {
		opts.Progress = logProgress()
		_, err := export.File(ctx, *outPath, tracks.Tracks(), opts)
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	info := ui.ExportInfo{
		Path:       *outPath,
		Codec:      opts.Codec,
		SampleRate: opts.Rate,
		Channels:   opts.Channels,
		BitDepth:   opts.BitDepth,
		Title:      *title,
		Artist:     *artist,
		Album:      *album,
	}
	if info.Codec == "" {
		info.Codec, _ = encode.CodecForPath(*outPath)
	}
	if info.Codec == "opus" {
		info.SampleRate = audio.OpusSampleRate
	}

	tui := ui.NewExportTUI(info, cancel)
	opts.Progress = tui.Progress

	done := make(chan error, 1)
	go func() {
		tui.Stage("export")
		result, err := export.File(ctx, *outPath, tracks.Tracks(), opts)
		tui.Finish(result.String(), err)
		done <- err
	}()

	if err := tui.Run(); err != nil {
		cancel()
		<-done
		return fmt.Errorf("TUI error: %w", err)
	}
	return <-done
}

// logProgress logs every tenth of the export
func logProgress() func(done, total int64) {
	last := int64(-1)
	return func(done, total int64) {
		if total <= 0 {
			return
		}
		step := done * 10 / total
		if step != last {
			last = step
			log.Printf("Export progress: %d%% (%d/%d frames)", step*10, done, total)
		}
	}
}

func playProject(ctx context.Context, cfg config.Config, tracks *track.List, t0, t1 float64) error {
	dither, err := audio.ParseDither(cfg.Export.Dither)
	if err != nil {
		return err
	}
	m, err := mixer.New(mixer.Options{
		Tracks:    tracks.Tracks(),
		T0:        t0,
		T1:        t1,
		Channels:  cfg.Project.Channels,
		Rate:      cfg.Project.Rate,
		BlockSize: cfg.Export.BlockSize,
		Format:    audio.Int16,
		Dither:    dither,
	})
	if err != nil {
		return err
	}

	out := output.NewOto()
	out.SetVolume(*volume)

	log.Printf("Playing %.2fs from %d track(s)", t1-t0, m.Audible())
	frames, err := output.Play(ctx, m, out)
	if err != nil && ctx.Err() == nil {
		return fmt.Errorf("playback failed: %w", err)
	}
	log.Printf("Played %d frames", frames)
	return nil
}
