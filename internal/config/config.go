// ABOUTME: Editor configuration from embedded defaults, a YAML file and the environment
// ABOUTME: Later sources override earlier ones; the result maps onto project and export options
package config

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strconv"

	"github.com/Resonate-Protocol/resonate-edit/pkg/audio"
	"github.com/Resonate-Protocol/resonate-edit/pkg/audio/encode"
	"github.com/Resonate-Protocol/resonate-edit/pkg/project"
	"github.com/Resonate-Protocol/resonate-edit/pkg/sampleblock"
	"gopkg.in/yaml.v3"
)

//go:embed defaults.yml
var defaultsYAML []byte

// EnvPrefix starts every environment override
const EnvPrefix = "RESONATE_EDIT_"

type (
	Config struct {
		Project ProjectConfig `yaml:"project"`
		Edit    EditConfig    `yaml:"edit"`
		Export  ExportConfig  `yaml:"export"`
	}

	ProjectConfig struct {
		Rate            int    `yaml:"rate"`
		Channels        int    `yaml:"channels"`
		MaxBlockSamples int    `yaml:"max_block_samples"`
		StorageDir      string `yaml:"storage_dir"`
	}

	EditConfig struct {
		SyncLock          bool    `yaml:"sync_lock"`
		CutLines          bool    `yaml:"cut_lines"`
		PastePolicy       string  `yaml:"paste_policy"`
		DisjoinMinSilence float64 `yaml:"disjoin_min_silence"`
		HistoryDepth      int     `yaml:"history_depth"`
	}

	ExportConfig struct {
		Codec     string `yaml:"codec"`
		BitDepth  int    `yaml:"bit_depth"`
		BlockSize int    `yaml:"block_size"`
		Dither    string `yaml:"dither"`
		FLACLevel int    `yaml:"flac_level"`
	}
)

// Defaults returns the embedded configuration
func Defaults() Config {
	var c Config
	if err := decode(defaultsYAML, &c); err != nil {
		panic(fmt.Errorf("failed to unmarshal default config: %w", err))
	}
	return c
}

// decode rejects unknown keys so typos in a config file are reported
func decode(data []byte, target *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(target); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// UserPath is the config file read when no path is given
func UserPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "resonate-edit", "config.yml"), nil
}

// Load applies defaults, then the file at path (or the user file if path
// is empty and it exists), then environment overrides
func Load(path string) (Config, error) {
	c := Defaults()

	explicit := path != ""
	if !explicit {
		if p, err := UserPath(); err == nil {
			path = p
		}
	}
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := decode(data, &c); err != nil {
				return c, fmt.Errorf("failed to parse config %s: %w", path, err)
			}
		case explicit || !errors.Is(err, os.ErrNotExist):
			return c, fmt.Errorf("failed to read config: %w", err)
		}
	}

	c.applyEnv()
	if err := c.Validate(); err != nil {
		return c, err
	}
	return c, nil
}

func (c *Config) applyEnv() {
	c.Project.Rate = envInt("RATE", c.Project.Rate)
	c.Project.Channels = envInt("CHANNELS", c.Project.Channels)
	c.Project.MaxBlockSamples = envInt("MAX_BLOCK_SAMPLES", c.Project.MaxBlockSamples)
	c.Project.StorageDir = envStr("STORAGE_DIR", c.Project.StorageDir)

	c.Edit.SyncLock = envBool("SYNC_LOCK", c.Edit.SyncLock)
	c.Edit.CutLines = envBool("CUT_LINES", c.Edit.CutLines)
	c.Edit.PastePolicy = envStr("PASTE_POLICY", c.Edit.PastePolicy)
	c.Edit.DisjoinMinSilence = envFloat("DISJOIN_MIN_SILENCE", c.Edit.DisjoinMinSilence)
	c.Edit.HistoryDepth = envInt("HISTORY_DEPTH", c.Edit.HistoryDepth)

	c.Export.Codec = envStr("CODEC", c.Export.Codec)
	c.Export.BitDepth = envInt("BIT_DEPTH", c.Export.BitDepth)
	c.Export.BlockSize = envInt("BLOCK_SIZE", c.Export.BlockSize)
	c.Export.Dither = envStr("DITHER", c.Export.Dither)
	c.Export.FLACLevel = envInt("FLAC_LEVEL", c.Export.FLACLevel)
}

// Validate checks ranges and names
func (c Config) Validate() error {
	if c.Project.Rate <= 0 {
		return fmt.Errorf("project.rate must be positive, got %d", c.Project.Rate)
	}
	if c.Project.Channels <= 0 {
		return fmt.Errorf("project.channels must be positive, got %d", c.Project.Channels)
	}
	if c.Project.MaxBlockSamples <= 0 {
		return fmt.Errorf("project.max_block_samples must be positive, got %d", c.Project.MaxBlockSamples)
	}
	if _, err := project.ParsePastePolicy(c.Edit.PastePolicy); err != nil {
		return fmt.Errorf("edit.paste_policy: %w", err)
	}
	if c.Edit.HistoryDepth < 0 {
		return fmt.Errorf("edit.history_depth must not be negative, got %d", c.Edit.HistoryDepth)
	}
	if _, err := c.SampleFormat(); err != nil {
		return err
	}
	if c.Export.BlockSize <= 0 {
		return fmt.Errorf("export.block_size must be positive, got %d", c.Export.BlockSize)
	}
	if _, err := audio.ParseDither(c.Export.Dither); err != nil {
		return fmt.Errorf("export.dither: %w", err)
	}
	if c.Export.Codec != "" && !slices.Contains(encode.Codecs, c.Export.Codec) {
		return fmt.Errorf("export.codec: %w: %q", audio.ErrUnsupportedFormat, c.Export.Codec)
	}
	return nil
}

// SampleFormat maps export.bit_depth to an integer sample format
func (c Config) SampleFormat() (audio.SampleFormat, error) {
	switch c.Export.BitDepth {
	case 16:
		return audio.Int16, nil
	case 24:
		return audio.Int24, nil
	}
	return 0, fmt.Errorf("export.bit_depth must be 16 or 24, got %d", c.Export.BitDepth)
}

// ProjectOptions returns the editing options for project.New
func (c Config) ProjectOptions() project.Config {
	policy, _ := project.ParsePastePolicy(c.Edit.PastePolicy)
	return project.Config{
		Rate:              c.Project.Rate,
		Channels:          c.Project.Channels,
		MaxBlock:          c.Project.MaxBlockSamples,
		SyncLock:          c.Edit.SyncLock,
		CutLines:          c.Edit.CutLines,
		PastePolicy:       policy,
		DisjoinMinSilence: c.Edit.DisjoinMinSilence,
		HistoryDepth:      c.Edit.HistoryDepth,
	}
}

// Store opens the sample block store: on disk when storage_dir is set
func (c Config) Store() (*sampleblock.Store, error) {
	if c.Project.StorageDir == "" {
		return sampleblock.NewMemoryStore(), nil
	}
	backend, err := sampleblock.NewDirBackend(c.Project.StorageDir)
	if err != nil {
		return nil, fmt.Errorf("failed to open block storage: %w", err)
	}
	return sampleblock.NewStore(backend), nil
}

func envStr(key, fallback string) string {
	if v := os.Getenv(EnvPrefix + key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(EnvPrefix + key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(EnvPrefix + key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(EnvPrefix + key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}
