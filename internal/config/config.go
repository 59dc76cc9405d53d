package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"

	"github.com/lazypower/chronoscope/internal/compose"
	"github.com/lazypower/chronoscope/internal/decay"
	"github.com/lazypower/chronoscope/internal/noise"
)

// Config holds all chronoscope configuration.
type Config struct {
	Server     ServerConfig     `toml:"server"`
	Database   DatabaseConfig   `toml:"database"`
	Epochs     EpochsConfig     `toml:"epochs"`
	Decay      DecayConfig      `toml:"decay"`
	Noise      NoiseConfig      `toml:"noise"`
	Compositor CompositorConfig `toml:"compositor"`
	Limits     LimitsConfig     `toml:"limits"`
	Log        LogConfig        `toml:"log"`
}

type ServerConfig struct {
	Bind string `toml:"bind"`
	Port int    `toml:"port"`
}

type DatabaseConfig struct {
	Path string `toml:"path"`
}

type EpochsConfig struct {
	Catalogue string `toml:"catalogue"` // extra YAML catalogue registered after the built-ins
}

type DecayConfig struct {
	HalfLifeYears float64 `toml:"half_life_years"` // distance at which weight halves; tau is this over ln 2
}

type NoiseConfig struct {
	Octaves     int     `toml:"octaves"`
	Persistence float64 `toml:"persistence"`
	Lacunarity  float64 `toml:"lacunarity"`
	BaseCell    int     `toml:"base_cell"`
	Partials    int     `toml:"partials"`
	SampleRate  int     `toml:"sample_rate"`
}

type CompositorConfig struct {
	ClipDrive         float64 `toml:"clip_drive"`
	DissolveThreshold float64 `toml:"dissolve_threshold"`
	AmbientLevel      float64 `toml:"ambient_level"`
}

type LimitsConfig struct {
	MaxWidth   int     `toml:"max_width"`
	MaxHeight  int     `toml:"max_height"`
	MaxSamples int     `toml:"max_samples"`
	RatePerSec float64 `toml:"rate_per_sec"` // synthesis requests per second on the HTTP API
	Burst      int     `toml:"burst"`
}

type LogConfig struct {
	Level string `toml:"level"` // "debug", "info", "warn", "error"
	JSON  bool   `toml:"json"`
}

// Default returns a Config with sensible defaults.
func Default() Config {
	np := noise.DefaultParams()
	cp := compose.DefaultParams()
	return Config{
		Server: ServerConfig{
			Bind: "127.0.0.1",
			Port: 37778,
		},
		Database: DatabaseConfig{
			Path: "", // resolved at runtime via store.DefaultDBPath()
		},
		Decay: DecayConfig{
			HalfLifeYears: decay.DefaultHalfLife,
		},
		Noise: NoiseConfig{
			Octaves:     np.Octaves,
			Persistence: np.Persistence,
			Lacunarity:  np.Lacunarity,
			BaseCell:    np.BaseCell,
			Partials:    np.Partials,
			SampleRate:  np.SampleRate,
		},
		Compositor: CompositorConfig{
			ClipDrive:         cp.ClipDrive,
			DissolveThreshold: cp.DissolveThreshold,
			AmbientLevel:      cp.AmbientLevel,
		},
		Limits: LimitsConfig{
			MaxWidth:   4096,
			MaxHeight:  4096,
			MaxSamples: 48000 * 120,
			RatePerSec: 4,
			Burst:      8,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// DefaultPath returns the default config path: ~/.chronoscope/config.toml
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home dir: %w", err)
	}
	return filepath.Join(home, ".chronoscope", "config.toml"), nil
}

// Load reads a TOML config from path on top of Default(). A missing file is
// not an error; unknown keys are.
func Load(path string) (Config, error) {
	cfg := Default()

	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()

	dec := toml.NewDecoder(f).DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks that every tunable is usable.
func (c *Config) Validate() error {
	if _, err := decay.New(c.Decay.HalfLifeYears); err != nil {
		return fmt.Errorf("decay: %w", err)
	}
	if err := c.NoiseParams().Validate(); err != nil {
		return fmt.Errorf("noise: %w", err)
	}
	if err := c.ComposeParams().Validate(); err != nil {
		return fmt.Errorf("compositor: %w", err)
	}
	if c.Limits.MaxWidth < 1 || c.Limits.MaxHeight < 1 || c.Limits.MaxSamples < 1 {
		return fmt.Errorf("limits: max dimensions must be positive")
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log: unknown level %q", c.Log.Level)
	}
	return nil
}

// ListenAddr returns the bind:port address string.
func (c *Config) ListenAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.Bind, c.Server.Port)
}

// NoiseParams converts the noise section to generator params.
func (c *Config) NoiseParams() noise.Params {
	return noise.Params{
		Octaves:     c.Noise.Octaves,
		Persistence: c.Noise.Persistence,
		Lacunarity:  c.Noise.Lacunarity,
		BaseCell:    c.Noise.BaseCell,
		Partials:    c.Noise.Partials,
		SampleRate:  c.Noise.SampleRate,
	}
}

// ComposeParams converts the compositor section to blending params.
func (c *Config) ComposeParams() compose.Params {
	return compose.Params{
		ClipDrive:         c.Compositor.ClipDrive,
		DissolveThreshold: c.Compositor.DissolveThreshold,
		AmbientLevel:      c.Compositor.AmbientLevel,
	}
}
