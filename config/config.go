// Package config loads analysis, decoder, server and logging settings from
// a TOML file with environment overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"

	"github.com/RyanBlaney/sonido-tempo/algorithms/filters"
	"github.com/RyanBlaney/sonido-tempo/algorithms/temporal"
	"github.com/RyanBlaney/sonido-tempo/algorithms/windowing"
)

// EnvPrefix prefixes every environment override
const EnvPrefix = "SONIDO_TEMPO_"

// MaxChannels bounds the decoder channel setting
const MaxChannels = 8

// Config is the full application configuration
type Config struct {
	Analysis AnalysisConfig `toml:"analysis"`
	Decoder  DecoderConfig  `toml:"decoder"`
	Server   ServerConfig   `toml:"server"`
	Log      LogConfig      `toml:"log"`
}

// AnalysisConfig holds the tempo pipeline parameters
type AnalysisConfig struct {
	MinBPM         int     `toml:"min_bpm"`
	MaxBPM         int     `toml:"max_bpm"`
	Sensitivity    int     `toml:"sensitivity"`
	HighPassCutoff float64 `toml:"highpass_cutoff"`
	MinInterOnset  float64 `toml:"min_inter_onset"`
	Window         string  `toml:"window"`
}

// DecoderConfig holds the ffmpeg decoder settings
type DecoderConfig struct {
	SampleRate      int      `toml:"sample_rate"`
	Channels        int      `toml:"channels"`         // 0 keeps the source layout
	MaxDuration     Duration `toml:"max_duration"`     // 0 decodes the whole input
	ResampleQuality string   `toml:"resample_quality"` // "fast", "medium" or "high"
	FFmpegPath      string   `toml:"ffmpeg_path"`
	FFprobePath     string   `toml:"ffprobe_path"`
	Timeout         Duration `toml:"timeout"`
}

// ServerConfig holds the HTTP service settings
type ServerConfig struct {
	Listen         string `toml:"listen"`
	MaxUploadBytes int64  `toml:"max_upload_bytes"`
}

// LogConfig selects log level and output format ("text" or "json")
type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// Duration is a time.Duration that decodes from strings like "30s"
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler
func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = parsed
	return nil
}

// MarshalText implements encoding.TextMarshaler
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Default returns the built-in configuration
func Default() Config {
	return Config{
		Analysis: AnalysisConfig{
			MinBPM:         60,
			MaxBPM:         200,
			Sensitivity:    5,
			HighPassCutoff: filters.DefaultHighPassCutoff,
			MinInterOnset:  temporal.DefaultMinInterOnset,
			Window:         windowing.TypeRectangular,
		},
		Decoder: DecoderConfig{
			SampleRate:      44100,
			ResampleQuality: "medium",
			FFmpegPath:      "ffmpeg",
			FFprobePath:     "ffprobe",
			Timeout:         Duration{30 * time.Second},
		},
		Server: ServerConfig{
			Listen:         ":8080",
			MaxUploadBytes: 64 << 20,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads a TOML config on top of the defaults. A missing file is not an
// error; an empty path skips the file entirely.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("failed to stat config: %w", err)
	}

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to decode config: %w", err)
	}
	return cfg, nil
}

// LoadDotEnv loads variables from the given .env files into the process
// environment without overriding variables that are already set. Missing
// files are ignored.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if _, err := os.Stat(f); err != nil {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return fmt.Errorf("failed to load %s: %w", f, err)
		}
	}
	return nil
}

// ApplyEnv overrides fields from SONIDO_TEMPO_* variables found by lookup
// (os.LookupEnv in production).
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	var errs []error

	setInt := func(key string, dst *int) {
		if v, ok := lookup(EnvPrefix + key); ok {
			n, err := strconv.Atoi(strings.TrimSpace(v))
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, key, err))
				return
			}
			*dst = n
		}
	}
	setFloat := func(key string, dst *float64) {
		if v, ok := lookup(EnvPrefix + key); ok {
			f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, key, err))
				return
			}
			*dst = f
		}
	}
	setString := func(key string, dst *string) {
		if v, ok := lookup(EnvPrefix + key); ok {
			*dst = strings.TrimSpace(v)
		}
	}
	setDuration := func(key string, dst *Duration) {
		if v, ok := lookup(EnvPrefix + key); ok {
			if err := dst.UnmarshalText([]byte(strings.TrimSpace(v))); err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, key, err))
			}
		}
	}

	setInt("MIN_BPM", &c.Analysis.MinBPM)
	setInt("MAX_BPM", &c.Analysis.MaxBPM)
	setInt("SENSITIVITY", &c.Analysis.Sensitivity)
	setFloat("HIGHPASS_CUTOFF", &c.Analysis.HighPassCutoff)
	setFloat("MIN_INTER_ONSET", &c.Analysis.MinInterOnset)
	setString("WINDOW", &c.Analysis.Window)
	setInt("SAMPLE_RATE", &c.Decoder.SampleRate)
	setInt("CHANNELS", &c.Decoder.Channels)
	setDuration("MAX_DURATION", &c.Decoder.MaxDuration)
	setString("RESAMPLE_QUALITY", &c.Decoder.ResampleQuality)
	setString("FFMPEG_PATH", &c.Decoder.FFmpegPath)
	setString("FFPROBE_PATH", &c.Decoder.FFprobePath)
	setString("LISTEN", &c.Server.Listen)
	setString("LOG_LEVEL", &c.Log.Level)
	setString("LOG_FORMAT", &c.Log.Format)
	setDuration("TIMEOUT", &c.Decoder.Timeout)

	return errors.Join(errs...)
}

// Validate checks the configuration for values the pipeline cannot run with
func (c Config) Validate() error {
	a := c.Analysis
	if a.MinBPM <= 0 || a.MinBPM >= a.MaxBPM {
		return fmt.Errorf("invalid BPM range %d-%d", a.MinBPM, a.MaxBPM)
	}
	if a.Sensitivity < temporal.MinSensitivity || a.Sensitivity > temporal.MaxSensitivity {
		return fmt.Errorf("sensitivity must be between %d and %d: %d", temporal.MinSensitivity, temporal.MaxSensitivity, a.Sensitivity)
	}
	if a.HighPassCutoff <= 0 {
		return fmt.Errorf("highpass cutoff must be positive: %g", a.HighPassCutoff)
	}
	if a.MinInterOnset < 0 {
		return fmt.Errorf("min inter-onset interval cannot be negative: %g", a.MinInterOnset)
	}
	if _, err := windowing.New(a.Window, temporal.FrameSize); err != nil {
		return err
	}
	if c.Decoder.SampleRate <= 0 {
		return fmt.Errorf("decoder sample rate must be positive: %d", c.Decoder.SampleRate)
	}
	if c.Decoder.Channels < 0 || c.Decoder.Channels > MaxChannels {
		return fmt.Errorf("decoder channels must be between 0 and %d: %d", MaxChannels, c.Decoder.Channels)
	}
	if c.Decoder.MaxDuration.Duration < 0 {
		return fmt.Errorf("decoder max duration cannot be negative: %v", c.Decoder.MaxDuration.Duration)
	}
	switch c.Decoder.ResampleQuality {
	case "fast", "medium", "high":
	default:
		return fmt.Errorf("unknown resample quality %q", c.Decoder.ResampleQuality)
	}
	if c.Decoder.Timeout.Duration <= 0 {
		return fmt.Errorf("decoder timeout must be positive: %v", c.Decoder.Timeout.Duration)
	}
	if c.Server.MaxUploadBytes <= 0 {
		return fmt.Errorf("max upload bytes must be positive: %d", c.Server.MaxUploadBytes)
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("unknown log format %q", c.Log.Format)
	}
	return nil
}
