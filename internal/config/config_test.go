// ABOUTME: Tests for configuration loading
// ABOUTME: Covers embedded defaults, file overrides, environment overrides and validation
package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Resonate-Protocol/resonate-edit/pkg/audio"
	"github.com/Resonate-Protocol/resonate-edit/pkg/project"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDefaults(t *testing.T) {
	c := Defaults()
	if c.Project.Rate != 44100 || c.Project.Channels != 2 {
		t.Errorf("Unexpected project defaults %+v", c.Project)
	}
	if c.Edit.PastePolicy != "ask" || c.Export.BitDepth != 16 || c.Export.FLACLevel != 5 {
		t.Errorf("Unexpected defaults %+v / %+v", c.Edit, c.Export)
	}
	if err := c.Validate(); err != nil {
		t.Errorf("Defaults do not validate: %v", err)
	}
}

func TestLoadFileOverrides(t *testing.T) {
	path := writeConfig(t, `
project:
  rate: 48000
edit:
  sync_lock: true
  paste_policy: discard
export:
  codec: flac
  bit_depth: 24
`)
	c, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if c.Project.Rate != 48000 || c.Project.Channels != 2 {
		t.Errorf("Expected rate override with default channels, got %+v", c.Project)
	}

	opts := c.ProjectOptions()
	if !opts.SyncLock || opts.PastePolicy != project.PasteDiscard || opts.Rate != 48000 {
		t.Errorf("Unexpected project options %+v", opts)
	}
	if f, err := c.SampleFormat(); err != nil || f != audio.Int24 {
		t.Errorf("Expected Int24, got %v (%v)", f, err)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	path := writeConfig(t, "project:\n  rate: 48000\n")
	t.Setenv("RESONATE_EDIT_RATE", "96000")
	t.Setenv("RESONATE_EDIT_CUT_LINES", "true")
	t.Setenv("RESONATE_EDIT_DISJOIN_MIN_SILENCE", "0.25")
	t.Setenv("RESONATE_EDIT_BLOCK_SIZE", "not a number")

	c, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if c.Project.Rate != 96000 {
		t.Errorf("Expected environment to win, got rate %d", c.Project.Rate)
	}
	if !c.Edit.CutLines || c.Edit.DisjoinMinSilence != 0.25 {
		t.Errorf("Unexpected edit config %+v", c.Edit)
	}
	if c.Export.BlockSize != 8192 {
		t.Errorf("Expected an unparsable value to be ignored, got %d", c.Export.BlockSize)
	}
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"unknown key", "project:\n  sample_rate: 48000\n", "sample_rate"},
		{"bad paste policy", "edit:\n  paste_policy: sometimes\n", "paste_policy"},
		{"bad bit depth", "export:\n  bit_depth: 12\n", "bit_depth"},
		{"bad codec", "export:\n  codec: mp3\n", "export.codec"},
		{"bad dither", "export:\n  dither: loud\n", "export.dither"},
		{"zero rate", "project:\n  rate: 0\n", "project.rate"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body))
			if err == nil {
				t.Fatal("Expected an error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Expected %q in %q", tt.want, err)
			}
		})
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.yml")); err == nil {
		t.Error("Expected an explicit missing file to fail")
	}
}

func TestStore(t *testing.T) {
	c := Defaults()
	c.Project.StorageDir = t.TempDir()
	store, err := c.Store()
	if err != nil {
		t.Fatalf("Store failed: %v", err)
	}
	b, err := store.Create([]float32{0.5, -0.5})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	defer b.Release()

	entries, err := os.ReadDir(c.Project.StorageDir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) == 0 {
		t.Error("Expected the block on disk")
	}
}
