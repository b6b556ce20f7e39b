// Package config loads vdenoise settings. Values come from built-in defaults,
// then an optional TOML file, then VDENOISE_* environment variables; flags
// are applied on top by the CLI.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"github.com/forPelevin/vdenoise/internal/logging"
)

//go:embed sample_config.toml
var sampleConfig string

// SampleConfig returns the annotated example configuration.
func SampleConfig() string { return sampleConfig }

type Tools struct {
	FFmpeg     string `toml:"ffmpeg"`
	FFprobe    string `toml:"ffprobe"`
	DeepFilter string `toml:"deep_filter"`
}

type Audio struct {
	Codec   string `toml:"codec"`
	Bitrate string `toml:"bitrate"`
}

type Work struct {
	TempDir        string `toml:"temp_dir"`
	TimeoutMinutes int    `toml:"timeout_minutes"`
}

type Logging struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

type Config struct {
	Tools   Tools   `toml:"tools"`
	Audio   Audio   `toml:"audio"`
	Work    Work    `toml:"work"`
	Logging Logging `toml:"logging"`
}

func Default() Config {
	return Config{
		Tools: Tools{
			FFmpeg:     "ffmpeg",
			FFprobe:    "ffprobe",
			DeepFilter: "deep-filter",
		},
		Audio: Audio{
			Codec:   "aac",
			Bitrate: "192k",
		},
		Work: Work{
			TimeoutMinutes: 180,
		},
		Logging: Logging{
			Level:  "info",
			Format: "auto",
		},
	}
}

// DefaultPath is ~/.config/vdenoise/config.toml (or the platform equivalent).
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "vdenoise", "config.toml"), nil
}

// Load reads path (or VDENOISE_CONFIG, or the default location) when it
// exists, applies environment overrides from getenv and validates the
// result. An explicitly named file that does not exist is an error; a
// missing default file is not.
func Load(path string, getenv func(string) string) (Config, string, error) {
	if getenv == nil {
		getenv = os.Getenv
	}
	cfg := Default()

	explicit := true
	if path == "" {
		path = getenv("VDENOISE_CONFIG")
	}
	if path == "" {
		explicit = false
		p, err := DefaultPath()
		if err != nil {
			return Config{}, "", err
		}
		path = p
	}
	path, err := expandHome(path)
	if err != nil {
		return Config{}, "", err
	}

	loaded := ""
	f, err := os.Open(path)
	switch {
	case err == nil:
		defer f.Close()
		dec := toml.NewDecoder(f)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&cfg); err != nil {
			return Config{}, "", fmt.Errorf("parse config %s: %w", path, err)
		}
		loaded = path
	case errors.Is(err, fs.ErrNotExist) && !explicit:
	default:
		return Config{}, "", fmt.Errorf("open config: %w", err)
	}

	if err := cfg.applyEnv(getenv); err != nil {
		return Config{}, "", err
	}
	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return Config{}, "", err
	}
	return cfg, loaded, nil
}

func (c *Config) applyEnv(getenv func(string) string) error {
	set := func(dst *string, key string) {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			*dst = v
		}
	}
	set(&c.Tools.FFmpeg, "VDENOISE_FFMPEG")
	set(&c.Tools.FFprobe, "VDENOISE_FFPROBE")
	set(&c.Tools.DeepFilter, "VDENOISE_DEEP_FILTER")
	set(&c.Audio.Codec, "VDENOISE_AUDIO_CODEC")
	set(&c.Audio.Bitrate, "VDENOISE_AUDIO_BITRATE")
	set(&c.Work.TempDir, "VDENOISE_TEMP_DIR")
	set(&c.Logging.Level, "VDENOISE_LOG_LEVEL")
	set(&c.Logging.Format, "VDENOISE_LOG_FORMAT")

	if v := strings.TrimSpace(getenv("VDENOISE_TIMEOUT_MINUTES")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("VDENOISE_TIMEOUT_MINUTES: %w", err)
		}
		c.Work.TimeoutMinutes = n
	}
	return nil
}

func (c *Config) normalize() {
	c.Tools.FFmpeg = strings.TrimSpace(c.Tools.FFmpeg)
	c.Tools.FFprobe = strings.TrimSpace(c.Tools.FFprobe)
	c.Tools.DeepFilter = strings.TrimSpace(c.Tools.DeepFilter)
	c.Audio.Codec = strings.TrimSpace(c.Audio.Codec)
	c.Audio.Bitrate = strings.TrimSpace(c.Audio.Bitrate)
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if p, err := expandHome(strings.TrimSpace(c.Work.TempDir)); err == nil {
		c.Work.TempDir = p
	}
}

func (c Config) Validate() error {
	if c.Tools.FFmpeg == "" {
		return errors.New("tools.ffmpeg must not be empty")
	}
	if c.Tools.FFprobe == "" {
		return errors.New("tools.ffprobe must not be empty")
	}
	if c.Tools.DeepFilter == "" {
		return errors.New("tools.deep_filter must not be empty")
	}
	if c.Audio.Codec == "" {
		return errors.New("audio.codec must not be empty")
	}
	if c.Work.TimeoutMinutes <= 0 {
		return fmt.Errorf("work.timeout_minutes must be > 0, got %d", c.Work.TimeoutMinutes)
	}
	if !logging.ValidLevel(c.Logging.Level) {
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "", "auto", "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	return nil
}

func expandHome(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("expand %s: %w", path, err)
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
}
