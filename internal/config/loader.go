package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/cwbudde/algo-stepdetect/dsp/core"
	"github.com/cwbudde/algo-stepdetect/dsp/effects/dynamics"
	"github.com/cwbudde/algo-stepdetect/dsp/footstep"
)

const maxBlockSize = 1 << 16

// Load reads the YAML configuration file at path and returns a validated [Config].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes YAML from r on top of [Default] and validates the
// result. An empty document yields the defaults.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.LogLevel != "" && !cfg.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("log_level %q is invalid; valid values: debug, info, warn, error", cfg.LogLevel))
	}

	if !(cfg.Sensitivity >= 0 && cfg.Sensitivity <= 1) {
		errs = append(errs, fmt.Errorf("sensitivity %v is out of range [0, 1]", cfg.Sensitivity))
	} else if cfg.Sensitivity == 0 || cfg.Sensitivity == 1 {
		slog.Warn("sensitivity is at the end of its range", "sensitivity", cfg.Sensitivity)
	}

	if cfg.BlockSize < 1 || cfg.BlockSize > maxBlockSize {
		errs = append(errs, fmt.Errorf("block_size %d is out of range [1, %d]", cfg.BlockSize, maxBlockSize))
	}

	if _, err := cfg.DetectorConfig(); err != nil {
		if errors.Is(err, footstep.ErrInvalidConfig) && !validPreset(cfg.Preset) {
			errs = append(errs, fmt.Errorf("preset %q is unknown; valid values: %s", cfg.Preset, strings.Join(footstep.Presets(), ", ")))
		} else {
			errs = append(errs, fmt.Errorf("detector: %w", err))
		}
	}

	errs = append(errs, validateGain(cfg.Gain)...)
	if cfg.Gain.Target == 1 && !cfg.Output.Bypass {
		slog.Warn("gain.target is 1; enhanced output will equal the input")
	}

	if strings.TrimSpace(cfg.Output.Suffix) == "" {
		errs = append(errs, errors.New("output.suffix is required"))
	} else if strings.ContainsAny(cfg.Output.Suffix, `/\`) {
		errs = append(errs, fmt.Errorf("output.suffix %q must not contain path separators", cfg.Output.Suffix))
	}
	switch cfg.Output.BitDepth {
	case 0, 8, 16, 24, 32:
	default:
		errs = append(errs, fmt.Errorf("output.bit_depth %d is invalid; valid values: 0, 8, 16, 24, 32", cfg.Output.BitDepth))
	}

	if !(cfg.Analysis.WindowMs > 0) || !core.IsFinite(cfg.Analysis.WindowMs) {
		errs = append(errs, fmt.Errorf("analysis.window_ms %v must be positive", cfg.Analysis.WindowMs))
	} else if cfg.Analysis.WindowMs > 500 {
		slog.Warn("analysis.window_ms is long; event spectra will mix neighbouring events", "window_ms", cfg.Analysis.WindowMs)
	}
	if n := cfg.Analysis.FFTSize; n != 0 && (n < 8 || n&(n-1) != 0) {
		errs = append(errs, fmt.Errorf("analysis.fft_size %d must be 0 or a power of two >= 8", n))
	}

	return errors.Join(errs...)
}

// NewGainEnvelope builds the envelope described by g at sampleRate.
func (g GainConfig) NewGainEnvelope(sampleRate float64) (*dynamics.GainEnvelope, error) {
	env, err := dynamics.NewGainEnvelope(sampleRate)
	if err != nil {
		return nil, err
	}
	if err := errors.Join(
		env.SetTarget(g.Target),
		env.SetAttack(g.AttackMs),
		env.SetHold(g.HoldMs),
		env.SetRelease(g.ReleaseMs),
	); err != nil {
		return nil, err
	}
	return env, nil
}

func validateGain(g GainConfig) []error {
	env, err := dynamics.NewGainEnvelope(core.DefaultSampleRate)
	if err != nil {
		return []error{err}
	}

	var errs []error
	for _, check := range []struct {
		name string
		err  error
	}{
		{"gain.target", env.SetTarget(g.Target)},
		{"gain.attack_ms", env.SetAttack(g.AttackMs)},
		{"gain.hold_ms", env.SetHold(g.HoldMs)},
		{"gain.release_ms", env.SetRelease(g.ReleaseMs)},
	} {
		if check.err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", check.name, check.err))
		}
	}
	return errs
}

func validPreset(name string) bool {
	return slices.Contains(footstep.Presets(), name)
}
