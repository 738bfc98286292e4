// Package config loads the footscan YAML configuration.
package config

import (
	"bytes"
	"fmt"
	"log/slog"

	"gopkg.in/yaml.v3"

	"github.com/cwbudde/algo-stepdetect/dsp/footstep"
)

// LogLevel controls log verbosity.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is a recognised log level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// Slog maps l onto an slog level. Unknown or empty levels map to info.
func (l LogLevel) Slog() slog.Level {
	switch l {
	case LogDebug:
		return slog.LevelDebug
	case LogWarn:
		return slog.LevelWarn
	case LogError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Config is the root configuration.
type Config struct {
	LogLevel LogLevel `yaml:"log_level"`

	// Preset names the base detector configuration.
	Preset string `yaml:"preset"`

	// Sensitivity in [0, 1]; higher detects more.
	Sensitivity float64 `yaml:"sensitivity"`

	// BlockSize is the number of samples handed to the detector per call.
	BlockSize int `yaml:"block_size"`

	// Detector overrides individual fields of the preset. Unset fields keep
	// the preset value.
	Detector yaml.Node `yaml:"detector"`

	Gain     GainConfig     `yaml:"gain"`
	Output   OutputConfig   `yaml:"output"`
	Analysis AnalysisConfig `yaml:"analysis"`
}

// GainConfig configures the enhancement applied around detected events.
type GainConfig struct {
	Target    float64 `yaml:"target"`
	AttackMs  float64 `yaml:"attack_ms"`
	HoldMs    float64 `yaml:"hold_ms"`
	ReleaseMs float64 `yaml:"release_ms"`
}

// OutputConfig controls enhanced file output.
type OutputConfig struct {
	// Suffix is appended to the input base name of enhanced files.
	Suffix string `yaml:"suffix"`

	// BitDepth of enhanced files; 0 keeps the input depth.
	BitDepth int `yaml:"bit_depth"`

	// Bypass writes the input unmodified.
	Bypass bool `yaml:"bypass"`
}

// AnalysisConfig controls the per-event spectrum report.
type AnalysisConfig struct {
	// WindowMs is the segment length analyzed from each event onset.
	WindowMs float64 `yaml:"window_ms"`

	// FFTSize of the event spectrum; 0 picks the next power of two.
	FFTSize int `yaml:"fft_size"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		LogLevel:    LogInfo,
		Preset:      "balanced",
		Sensitivity: 0.5,
		BlockSize:   512,
		Gain: GainConfig{
			Target:    3,
			AttackMs:  2,
			HoldMs:    150,
			ReleaseMs: 120,
		},
		Output: OutputConfig{
			Suffix: "_enhanced",
		},
		Analysis: AnalysisConfig{
			WindowMs: 40,
		},
	}
}

// DetectorConfig resolves the preset and applies the detector overrides.
func (c *Config) DetectorConfig() (footstep.Config, error) {
	det, err := footstep.Preset(c.Preset)
	if err != nil {
		return footstep.Config{}, err
	}
	if c.Detector.Kind == 0 {
		return det, nil
	}

	// Round-trip the node so the overrides get strict field checking.
	raw, err := yaml.Marshal(&c.Detector)
	if err != nil {
		return footstep.Config{}, fmt.Errorf("config: detector overrides: %w", err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&det); err != nil {
		return footstep.Config{}, fmt.Errorf("config: detector overrides: %w", err)
	}
	if err := det.Validate(); err != nil {
		return footstep.Config{}, err
	}
	return det, nil
}
