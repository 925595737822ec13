// ABOUTME: Tests for importing audio and MIDI files into a project
// ABOUTME: Writes WAV, raw PCM and MIDI fixtures to a temp dir
package project

import (
	"context"
	"encoding/binary"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Resonate-Protocol/resonate-edit/pkg/audio"
	"github.com/Resonate-Protocol/resonate-edit/pkg/track"
	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"
)

func writeWAV(t *testing.T, path string, rate, channels int, data []int) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	enc := wav.NewEncoder(f, rate, 16, channels, 1)
	buf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: channels, SampleRate: rate},
		Data:           data,
		SourceBitDepth: 16,
	}
	if err := enc.Write(buf); err != nil {
		t.Fatalf("failed to write WAV fixture: %v", err)
	}
	if err := enc.Close(); err != nil {
		t.Fatalf("failed to close WAV fixture: %v", err)
	}
}

func writeMIDI(t *testing.T, path string) {
	t.Helper()
	var tr smf.Track
	tr.Add(0, midi.NoteOn(0, 60, 100))
	tr.Add(960, midi.NoteOff(0, 60))
	tr.Close(0)

	s := smf.New()
	if err := s.Add(tr); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if err := s.WriteFile(path); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
}

func TestImportFiles(t *testing.T) {
	dir := t.TempDir()
	wavPath := filepath.Join(dir, "take.wav")
	writeWAV(t, wavPath, 8000, 2, []int{4096, -8192, 4096, -8192, 4096, -8192})
	midPath := filepath.Join(dir, "melody.mid")
	writeMIDI(t, midPath)

	p := newProject(t, Config{})
	if err := p.ImportFiles(context.Background(), wavPath, midPath); err != nil {
		t.Fatalf("ImportFiles failed: %v", err)
	}
	if p.Tracks().Len() != 2 {
		t.Fatalf("Expected 2 tracks, got %d", p.Tracks().Len())
	}

	w := wave(t, p, 0)
	if w.Name() != "take" || w.Rate() != 8000 || w.Channels() != 2 {
		t.Errorf("Unexpected wave track %q rate %d channels %d", w.Name(), w.Rate(), w.Channels())
	}
	left := make([]float32, 3)
	right := make([]float32, 3)
	if err := w.Get(0, 0, left); err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if err := w.Get(1, 0, right); err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if left[2] != 0.125 || right[2] != -0.25 {
		t.Errorf("Unexpected samples %v / %v", left, right)
	}

	nt, ok := p.Tracks().At(1).(*track.NoteTrack)
	if !ok {
		t.Fatalf("Expected a note track, got %T", p.Tracks().At(1))
	}
	if nt.Name() != "melody" || len(nt.Notes()) != 1 {
		t.Errorf("Unexpected note track %q with %d notes", nt.Name(), len(nt.Notes()))
	}

	s, _ := p.History().Current()
	if s.Short != "Import" || s.Long != "Imported take, melody" {
		t.Errorf("Unexpected history entry %q / %q", s.Long, s.Short)
	}
	if p.History().Len() != 2 {
		t.Errorf("Expected one import state, history length %d", p.History().Len())
	}
}

func TestImportFilesFailureLeavesProject(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "good.wav")
	writeWAV(t, good, 8000, 1, []int{1, 2, 3})

	p := newProject(t, Config{})
	err := p.ImportFiles(context.Background(), good, filepath.Join(dir, "missing.wav"))
	if err == nil {
		t.Fatal("Expected an error for a missing file")
	}
	if !strings.Contains(err.Error(), "missing.wav") {
		t.Errorf("Expected the failing path in %q", err)
	}
	if p.Tracks().Len() != 0 || p.History().Len() != 1 {
		t.Errorf("Failed import changed the project: %d tracks, %d states", p.Tracks().Len(), p.History().Len())
	}
}

func TestImportRaw(t *testing.T) {
	path := filepath.Join(t.TempDir(), "capture.raw")
	data := make([]byte, 8)
	for i, v := range []int16{4096, -8192, 0, 16384} {
		binary.LittleEndian.PutUint16(data[i*2:], uint16(v))
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}

	p := newProject(t, Config{})
	format := audio.Format{SampleRate: 16000, Channels: 1, BitDepth: 16}
	if err := p.ImportRaw(path, format); err != nil {
		t.Fatalf("ImportRaw failed: %v", err)
	}
	w := wave(t, p, 0)
	if w.Name() != "capture" || w.Rate() != 16000 {
		t.Errorf("Unexpected track %q at %d Hz", w.Name(), w.Rate())
	}
	got := make([]float32, 4)
	if err := w.Get(0, 0, got); err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	want := []float32{0.125, -0.25, 0, 0.5}
	if !equal(got, want) {
		t.Errorf("Expected %v, got %v", want, got)
	}
}
