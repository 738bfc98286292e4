package footstep

import (
	"errors"
	"math"
	"slices"
	"strings"
	"testing"

	"github.com/cwbudde/algo-stepdetect/dsp/filter/bank"
)

func TestDefaultConfigValid(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Fatalf("DefaultConfig().Validate() = %v", err)
	}
}

func TestPresets(t *testing.T) {
	names := Presets()
	want := []string{"balanced", "conservative", "permissive"}
	if !slices.Equal(names, want) {
		t.Fatalf("Presets() = %v, want %v", names, want)
	}

	for _, name := range names {
		cfg, err := Preset(name)
		if err != nil {
			t.Fatalf("Preset(%q) error: %v", name, err)
		}
		if err := cfg.Validate(); err != nil {
			t.Fatalf("Preset(%q).Validate() = %v", name, err)
		}
	}

	if _, err := Preset("aggressive"); !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("Preset(unknown) err = %v, want ErrInvalidConfig", err)
	}
}

func TestPresetThresholdOrdering(t *testing.T) {
	cons, _ := Preset("conservative")
	bal, _ := Preset("balanced")
	perm, _ := Preset("permissive")

	if !(cons.Threshold.Max > bal.Threshold.Max && bal.Threshold.Max > perm.Threshold.Max) {
		t.Fatalf("threshold maxima not ordered: %v %v %v",
			cons.Threshold.Max, bal.Threshold.Max, perm.Threshold.Max)
	}
}

func TestValidateRejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"no bands", func(c *Config) { c.Bands = nil }},
		{"inverted band", func(c *Config) { c.Bands[2].LowHz, c.Bands[2].HighHz = 450, 300 }},
		{"role out of range", func(c *Config) { c.Roles.Detail = 7 }},
		{"duplicate role", func(c *Config) { c.Roles.Harmonic = c.Roles.Primary }},
		{"zero band window", func(c *Config) { c.BandWindowMs = 0 }},
		{"short spectral history", func(c *Config) { c.Spectral.HistorySize = 1 }},
		{"nan tolerance", func(c *Config) { c.Spectral.Tolerance = math.NaN() }},
		{"percentile above one", func(c *Config) { c.Noise.Percentile = 1.5 }},
		{"noise min above max", func(c *Config) { c.Noise.Min, c.Noise.Max = 0.9, 0.1 }},
		{"negative weight", func(c *Config) { c.Weights.Onset = -0.1 }},
		{"zero weights", func(c *Config) { c.Weights = ScoreWeights{} }},
		{"zero likelihood weights", func(c *Config) {
			c.Likelihood.ShareWeight, c.Likelihood.OrderWeight = 0, 0
			c.Likelihood.LevelWeight, c.Likelihood.RatioWeight = 0, 0
		}},
		{"zero reference level", func(c *Config) { c.Likelihood.ReferenceLevel = 0 }},
		{"noise factor min zero", func(c *Config) { c.NoiseFactor.Min = 0 }},
		{"step window inverted", func(c *Config) { c.Temporal.MinStepMs, c.Temporal.MaxStepMs = 200, 50 }},
		{"threshold min above max", func(c *Config) { c.Threshold.Min, c.Threshold.Max = 0.9, 0.2 }},
		{"threshold above one", func(c *Config) { c.Threshold.Max = 1.2 }},
		{"empty energy gate", func(c *Config) { c.EnergyGate.Max = c.EnergyGate.Min }},
		{"negative concentration", func(c *Config) { c.EnergyGate.MinConcentration = -0.5 }},
		{"zero cooldown", func(c *Config) { c.CooldownMs = 0 }},
		{"zero max sample", func(c *Config) { c.MaxAbsSample = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			if err := cfg.Validate(); !errors.Is(err, ErrInvalidConfig) {
				t.Fatalf("Validate() = %v, want ErrInvalidConfig", err)
			}
		})
	}
}

func TestValidateJoinsAllErrors(t *testing.T) {
	cfg := DefaultConfig()
	cfg.CooldownMs = 0
	cfg.MaxAbsSample = -1

	err := cfg.Validate()
	if err == nil {
		t.Fatal("Validate() = nil")
	}
	msg := err.Error()
	for _, want := range []string{"cooldown_ms", "max_abs_sample"} {
		if !strings.Contains(msg, want) {
			t.Fatalf("error %q does not mention %s", msg, want)
		}
	}
}

func TestExplicitCoefficientsSkipEdgeValidation(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Bands[3] = bank.BandSpec{Name: "legacy", Coefficients: &bank.Coefficients{A0: 0.02, A2: -0.02, A3: 0.95}}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() = %v", err)
	}
}

func TestCloneIsDeep(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Bands[0].Coefficients = &bank.Coefficients{A0: 1}

	clone := cfg.Clone()
	clone.Bands[1].LowHz = 1
	clone.Bands[0].Coefficients.A0 = 2

	if cfg.Bands[1].LowHz == 1 || cfg.Bands[0].Coefficients.A0 == 2 {
		t.Fatal("Clone() shares band storage with the original")
	}
}
