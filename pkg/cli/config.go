package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/goccy/go-yaml"

	"github.com/cognitivitydev/Chronal-sub002/pkg/audio/resampler"
	"github.com/cognitivitydev/Chronal-sub002/pkg/storage"
	"github.com/cognitivitydev/Chronal-sub002/pkg/timeline"
)

const (
	// EnvConfigDir overrides the configuration directory.
	EnvConfigDir = "CHRONAL_CONFIG_DIR"

	// DefaultConfigFile is the configuration filename.
	DefaultConfigFile = "config.yaml"

	appDir = "chronal"
)

// ErrUnknownKey is returned by Set for a key that is not a config field.
var ErrUnknownKey = errors.New("cli: unknown config key")

// Config is the chronal configuration file.
type Config struct {
	// Tempo is the default tempo in beats per minute.
	Tempo float64 `yaml:"tempo" json:"tempo"`

	// LeadInMs is silence inserted before the first click.
	LeadInMs float64 `yaml:"lead_in_ms,omitempty" json:"lead_in_ms,omitempty"`

	// MaxDurationMs clamps rendered timelines. Zero means unlimited.
	MaxDurationMs float64 `yaml:"max_duration_ms,omitempty" json:"max_duration_ms,omitempty"`

	// Click and AccentClick are optional WAV files replacing the built-in
	// click sounds.
	Click       string `yaml:"click,omitempty" json:"click,omitempty"`
	AccentClick string `yaml:"accent_click,omitempty" json:"accent_click,omitempty"`

	ClickGain   float32 `yaml:"click_gain" json:"click_gain"`
	BackingGain float32 `yaml:"backing_gain" json:"backing_gain"`

	// ResampleQuality is "linear" or "high".
	ResampleQuality string `yaml:"resample_quality" json:"resample_quality"`

	// ChunkMs is the live engine mix period.
	ChunkMs int `yaml:"chunk_ms" json:"chunk_ms"`

	Presets PresetConfig `yaml:"presets" json:"presets"`
	Renders RenderConfig `yaml:"renders" json:"renders"`

	path string
}

// PresetConfig selects the preset store.
type PresetConfig struct {
	// Driver is "badger" or "memory".
	Driver string `yaml:"driver" json:"driver"`
	Dir    string `yaml:"dir,omitempty" json:"dir,omitempty"`
}

// RenderConfig selects where rendered WAV files are cached. S3 is used when
// S3.Bucket is set, otherwise Dir.
type RenderConfig struct {
	Dir string            `yaml:"dir,omitempty" json:"dir,omitempty"`
	S3  storage.S3Config `yaml:"s3,omitempty" json:"s3,omitempty"`
}

// DefaultConfig returns the configuration used when no file exists.
func DefaultConfig() *Config {
	return &Config{
		Tempo:           120,
		ClickGain:       1,
		BackingGain:     1,
		ResampleQuality: resampler.QualityLinear.String(),
		ChunkMs:         20,
		Presets:         PresetConfig{Driver: "badger"},
	}
}

// ConfigDir returns the configuration directory.
func ConfigDir() (string, error) {
	if dir := os.Getenv(EnvConfigDir); dir != "" {
		return dir, nil
	}
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine config directory: %w", err)
	}
	return filepath.Join(base, appDir), nil
}

// LoadConfig loads the configuration from the default location.
func LoadConfig() (*Config, error) {
	dir, err := ConfigDir()
	if err != nil {
		return nil, err
	}
	return LoadConfigFrom(filepath.Join(dir, DefaultConfigFile))
}

// LoadConfigFrom loads the configuration at path. A missing file yields the
// defaults.
func LoadConfigFrom(path string) (*Config, error) {
	cfg := DefaultConfig()
	cfg.path = path

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	cfg.path = path
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Save writes the configuration to disk.
func (c *Config) Save() error {
	if err := c.Validate(); err != nil {
		return err
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(c.path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(c.path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// Path returns the config file path.
func (c *Config) Path() string {
	return c.path
}

// Dir returns the config directory.
func (c *Config) Dir() string {
	return filepath.Dir(c.path)
}

// PresetDir returns the badger directory for presets.
func (c *Config) PresetDir() string {
	if c.Presets.Dir != "" {
		return c.Presets.Dir
	}
	return filepath.Join(c.Dir(), "presets")
}

// RenderDir returns the local render cache directory.
func (c *Config) RenderDir() string {
	if c.Renders.Dir != "" {
		return c.Renders.Dir
	}
	return filepath.Join(c.Dir(), "renders")
}

// Quality returns the configured resampler quality.
func (c *Config) Quality() resampler.Quality {
	q, err := resampler.ParseQuality(c.ResampleQuality)
	if err != nil {
		return resampler.QualityLinear
	}
	return q
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	var errs []error
	if err := timeline.CheckTempo(c.Tempo); err != nil {
		errs = append(errs, fmt.Errorf("tempo: %w", err))
	}
	if err := (timeline.Options{LeadInMs: c.LeadInMs, MaxEndMs: c.MaxDurationMs}).Validate(); err != nil {
		errs = append(errs, err)
	}
	if c.ClickGain < 0 || c.ClickGain > 1 {
		errs = append(errs, fmt.Errorf("click_gain must be in [0, 1], got %v", c.ClickGain))
	}
	if c.BackingGain < 0 || c.BackingGain > 1 {
		errs = append(errs, fmt.Errorf("backing_gain must be in [0, 1], got %v", c.BackingGain))
	}
	if _, err := resampler.ParseQuality(c.ResampleQuality); err != nil {
		errs = append(errs, err)
	}
	if c.ChunkMs <= 0 {
		errs = append(errs, fmt.Errorf("chunk_ms must be positive, got %d", c.ChunkMs))
	}
	switch c.Presets.Driver {
	case "badger", "memory":
	default:
		errs = append(errs, fmt.Errorf("presets.driver must be badger or memory, got %q", c.Presets.Driver))
	}
	return errors.Join(errs...)
}

// Keys lists the keys accepted by Set.
func Keys() []string {
	return []string{
		"tempo", "lead_in_ms", "max_duration_ms", "click", "accent_click",
		"click_gain", "backing_gain", "resample_quality", "chunk_ms",
		"presets.driver", "presets.dir", "renders.dir",
		"renders.s3.bucket", "renders.s3.prefix", "renders.s3.region", "renders.s3.endpoint",
	}
}

// Set assigns a single key from its string form and validates the result.
// The previous value is restored when validation fails.
func (c *Config) Set(key, value string) error {
	old := *c
	if err := c.set(key, strings.TrimSpace(value)); err != nil {
		*c = old
		return err
	}
	if err := c.Validate(); err != nil {
		*c = old
		return err
	}
	return nil
}

func (c *Config) set(key, value string) error {
	var err error
	switch key {
	case "tempo":
		c.Tempo, err = strconv.ParseFloat(value, 64)
	case "lead_in_ms":
		c.LeadInMs, err = strconv.ParseFloat(value, 64)
	case "max_duration_ms":
		c.MaxDurationMs, err = strconv.ParseFloat(value, 64)
	case "click":
		c.Click = value
	case "accent_click":
		c.AccentClick = value
	case "click_gain":
		c.ClickGain, err = parseFloat32(value)
	case "backing_gain":
		c.BackingGain, err = parseFloat32(value)
	case "resample_quality":
		c.ResampleQuality = value
	case "chunk_ms":
		c.ChunkMs, err = strconv.Atoi(value)
	case "presets.driver":
		c.Presets.Driver = value
	case "presets.dir":
		c.Presets.Dir = value
	case "renders.dir":
		c.Renders.Dir = value
	case "renders.s3.bucket":
		c.Renders.S3.Bucket = value
	case "renders.s3.prefix":
		c.Renders.S3.Prefix = value
	case "renders.s3.region":
		c.Renders.S3.Region = value
	case "renders.s3.endpoint":
		c.Renders.S3.Endpoint = value
	default:
		return fmt.Errorf("%w: %q", ErrUnknownKey, key)
	}
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	return nil
}

func parseFloat32(s string) (float32, error) {
	f, err := strconv.ParseFloat(s, 32)
	return float32(f), err
}
