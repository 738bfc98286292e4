package footstep

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/cwbudde/algo-stepdetect/dsp/core"
	"github.com/cwbudde/algo-stepdetect/dsp/filter/bank"
)

// ErrInvalidConfig wraps every validation failure reported by Config.Validate.
var ErrInvalidConfig = errors.New("footstep: invalid config")

// Config holds every tunable of the detector. The zero value is not usable;
// start from DefaultConfig or Preset and override fields.
type Config struct {
	Bands        []bank.BandSpec `yaml:"bands"`
	Roles        BandRoles       `yaml:"roles"`
	BandWindowMs float64         `yaml:"band_window_ms"`

	Spectral    SpectralConfig    `yaml:"spectral"`
	Onset       OnsetConfig       `yaml:"onset"`
	Noise       NoiseConfig       `yaml:"noise"`
	Likelihood  LikelihoodConfig  `yaml:"likelihood"`
	Weights     ScoreWeights      `yaml:"weights"`
	NoiseFactor NoiseFactorConfig `yaml:"noise_factor"`
	Temporal    TemporalConfig    `yaml:"temporal"`
	Threshold   ThresholdConfig   `yaml:"threshold"`
	EnergyGate  EnergyGateConfig  `yaml:"energy_gate"`

	CooldownMs   float64 `yaml:"cooldown_ms"`
	MaxAbsSample float64 `yaml:"max_abs_sample"`
}

// BandRoles maps the four analysed roles onto band indices.
type BandRoles struct {
	Fundamental int `yaml:"fundamental"`
	Primary     int `yaml:"primary"`
	Harmonic    int `yaml:"harmonic"`
	Detail      int `yaml:"detail"`
}

// SpectralConfig tunes the coarse spectral-centroid score. Ring slot k of
// the magnitude history stands in for the frequency k*fs/(2*HistorySize).
type SpectralConfig struct {
	HistorySize  int     `yaml:"history_size"`
	TargetLowHz  float64 `yaml:"target_low_hz"`
	TargetHighHz float64 `yaml:"target_high_hz"`
	TargetWeight float64 `yaml:"target_weight"`
	// AnalysisMaxHz normalizes the centroid; 0 means fs/2.
	AnalysisMaxHz   float64 `yaml:"analysis_max_hz"`
	OptimalFraction float64 `yaml:"optimal_fraction"`
	Tolerance       float64 `yaml:"tolerance"`
}

// OnsetConfig tunes the recency-weighted energy-rise score.
type OnsetConfig struct {
	HistorySize int     `yaml:"history_size"`
	Gain        float64 `yaml:"gain"`
}

// NoiseConfig tunes the adaptive background level.
type NoiseConfig struct {
	HistorySize   int     `yaml:"history_size"`
	Percentile    float64 `yaml:"percentile"`
	BaseThreshold float64 `yaml:"base_threshold"`
	Gain          float64 `yaml:"gain"`
	AdaptationMs  float64 `yaml:"adaptation_ms"`
	Min           float64 `yaml:"min"`
	Max           float64 `yaml:"max"`
}

// LikelihoodConfig tunes the band-energy likelihood.
type LikelihoodConfig struct {
	MinPrimaryShare float64 `yaml:"min_primary_share"`

	ShareWeight float64 `yaml:"share_weight"`
	OrderWeight float64 `yaml:"order_weight"`
	LevelWeight float64 `yaml:"level_weight"`
	RatioWeight float64 `yaml:"ratio_weight"`

	NearOrderCredit float64 `yaml:"near_order_credit"`
	LowOrderCredit  float64 `yaml:"low_order_credit"`
	ReferenceLevel  float64 `yaml:"reference_level"`

	// Target energy ratios relative to the primary band.
	FundamentalRatio float64 `yaml:"fundamental_ratio"`
	HarmonicRatio    float64 `yaml:"harmonic_ratio"`
}

// ScoreWeights combines the four sub-scores. Weights are normalized to sum
// to one when the scorer is built.
type ScoreWeights struct {
	Likelihood float64 `yaml:"likelihood"`
	Spectral   float64 `yaml:"spectral"`
	Onset      float64 `yaml:"onset"`
	Temporal   float64 `yaml:"temporal"`
}

// NoiseFactorConfig scales confidence by Reference/background, clamped.
type NoiseFactorConfig struct {
	Reference float64 `yaml:"reference"`
	Min       float64 `yaml:"min"`
	Max       float64 `yaml:"max"`
}

// TemporalConfig tunes the step-duration score.
type TemporalConfig struct {
	ActivityLevel float64 `yaml:"activity_level"`
	MinStepMs     float64 `yaml:"min_step_ms"`
	MaxStepMs     float64 `yaml:"max_step_ms"`
	LowCredit     float64 `yaml:"low_credit"`
	PartialCredit float64 `yaml:"partial_credit"`
}

// ThresholdConfig maps sensitivity to a decision threshold:
// Max - s*(Max-Min) + NoiseCoupling*(background - Noise.Min).
type ThresholdConfig struct {
	Min           float64 `yaml:"min"`
	Max           float64 `yaml:"max"`
	NoiseCoupling float64 `yaml:"noise_coupling"`
}

// EnergyGateConfig bounds the total band energy of an accepted event.
// MinConcentration is the lowest accepted ratio of total band energy to the
// broadband input RMS over the band window; 0 disables the check.
type EnergyGateConfig struct {
	Min              float64 `yaml:"min"`
	Max              float64 `yaml:"max"`
	MinConcentration float64 `yaml:"min_concentration"`
}

// DefaultConfig returns the balanced preset.
func DefaultConfig() Config {
	return Config{
		Bands:        bank.DefaultBands(),
		Roles:        BandRoles{Fundamental: 0, Primary: 1, Harmonic: 2, Detail: 3},
		BandWindowMs: 30,
		Spectral: SpectralConfig{
			HistorySize:     64,
			TargetLowHz:     100,
			TargetHighHz:    1000,
			TargetWeight:    1.5,
			OptimalFraction: 0.4,
			Tolerance:       0.5,
		},
		Onset: OnsetConfig{
			HistorySize: 32,
			Gain:        1000,
		},
		Noise: NoiseConfig{
			HistorySize:   256,
			Percentile:    0.15,
			BaseThreshold: 0.1,
			Gain:          8,
			AdaptationMs:  250,
			Min:           0.1,
			Max:           0.9,
		},
		Likelihood: LikelihoodConfig{
			MinPrimaryShare:  0.35,
			ShareWeight:      0.3,
			OrderWeight:      0.3,
			LevelWeight:      0.2,
			RatioWeight:      0.2,
			NearOrderCredit:  0.5,
			LowOrderCredit:   0.1,
			ReferenceLevel:   0.08,
			FundamentalRatio: 0.8,
			HarmonicRatio:    0.6,
		},
		Weights: ScoreWeights{
			Likelihood: 0.5,
			Spectral:   0.2,
			Onset:      0.2,
			Temporal:   0.1,
		},
		NoiseFactor: NoiseFactorConfig{
			Reference: 0.15,
			Min:       0.8,
			Max:       1.5,
		},
		Temporal: TemporalConfig{
			ActivityLevel: 0.005,
			MinStepMs:     50,
			MaxStepMs:     200,
			LowCredit:     0.3,
			PartialCredit: 0.4,
		},
		Threshold: ThresholdConfig{
			Min:           0.35,
			Max:           0.85,
			NoiseCoupling: 0.5,
		},
		EnergyGate: EnergyGateConfig{
			Min:              0.003,
			Max:              0.6,
			MinConcentration: 0.8,
		},
		CooldownMs:   150,
		MaxAbsSample: 8,
	}
}

var presets = map[string]func() Config{
	"balanced": DefaultConfig,
	"conservative": func() Config {
		cfg := DefaultConfig()
		cfg.Threshold.Min = 0.5
		cfg.Threshold.Max = 0.9
		cfg.Likelihood.MinPrimaryShare = 0.4
		cfg.CooldownMs = 200
		return cfg
	},
	"permissive": func() Config {
		cfg := DefaultConfig()
		cfg.Threshold.Min = 0.2
		cfg.Threshold.Max = 0.6
		cfg.Likelihood.MinPrimaryShare = 0.3
		cfg.CooldownMs = 120
		return cfg
	},
}

// Preset returns a named configuration. Known names are listed by Presets.
func Preset(name string) (Config, error) {
	p, ok := presets[name]
	if !ok {
		return Config{}, fmt.Errorf("%w: unknown preset %q", ErrInvalidConfig, name)
	}
	return p(), nil
}

// Presets returns the preset names in sorted order.
func Presets() []string {
	names := make([]string, 0, len(presets))
	for name := range presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Clone returns a deep copy of c.
func (c Config) Clone() Config {
	out := c
	out.Bands = make([]bank.BandSpec, len(c.Bands))
	for i, b := range c.Bands {
		out.Bands[i] = b
		if b.Coefficients != nil {
			coeffs := *b.Coefficients
			out.Bands[i].Coefficients = &coeffs
		}
	}
	return out
}

// Validate reports every invalid field, joined, wrapped in ErrInvalidConfig.
// Band edges are checked against the Nyquist frequency later, by Prepare.
func (c Config) Validate() error {
	var errs []error
	check := func(ok bool, format string, args ...any) {
		if !ok {
			errs = append(errs, fmt.Errorf(format, args...))
		}
	}

	check(len(c.Bands) > 0, "bands: at least one band is required")
	for i, b := range c.Bands {
		if b.Coefficients != nil {
			continue
		}
		check(b.LowHz > 0 && b.HighHz > b.LowHz && core.IsFinite(b.HighHz),
			"bands[%d] (%s): need 0 < low_hz < high_hz, got %v..%v", i, b.Name, b.LowHz, b.HighHz)
	}

	roles := map[string]int{
		"fundamental": c.Roles.Fundamental,
		"primary":     c.Roles.Primary,
		"harmonic":    c.Roles.Harmonic,
		"detail":      c.Roles.Detail,
	}
	seen := make(map[int]string, len(roles))
	for _, name := range []string{"fundamental", "primary", "harmonic", "detail"} {
		idx := roles[name]
		check(idx >= 0 && idx < len(c.Bands), "roles.%s: index %d out of range [0, %d)", name, idx, len(c.Bands))
		if other, dup := seen[idx]; dup {
			errs = append(errs, fmt.Errorf("roles.%s: index %d already used by %s", name, idx, other))
		}
		seen[idx] = name
	}

	check(c.BandWindowMs > 0 && core.IsFinite(c.BandWindowMs), "band_window_ms must be > 0: %v", c.BandWindowMs)

	s := c.Spectral
	check(s.HistorySize >= 2, "spectral.history_size must be >= 2: %d", s.HistorySize)
	check(s.TargetLowHz >= 0 && s.TargetHighHz > s.TargetLowHz,
		"spectral: need 0 <= target_low_hz < target_high_hz, got %v..%v", s.TargetLowHz, s.TargetHighHz)
	check(s.TargetWeight > 0, "spectral.target_weight must be > 0: %v", s.TargetWeight)
	check(s.AnalysisMaxHz >= 0, "spectral.analysis_max_hz must be >= 0: %v", s.AnalysisMaxHz)
	check(inUnit(s.OptimalFraction), "spectral.optimal_fraction must be in [0, 1]: %v", s.OptimalFraction)
	check(s.Tolerance > 0, "spectral.tolerance must be > 0: %v", s.Tolerance)

	check(c.Onset.HistorySize >= 1, "onset.history_size must be >= 1: %d", c.Onset.HistorySize)
	check(c.Onset.Gain >= 0 && core.IsFinite(c.Onset.Gain), "onset.gain must be >= 0: %v", c.Onset.Gain)

	n := c.Noise
	check(n.HistorySize >= 1, "noise.history_size must be >= 1: %d", n.HistorySize)
	check(inUnit(n.Percentile), "noise.percentile must be in [0, 1]: %v", n.Percentile)
	check(n.Gain >= 0, "noise.gain must be >= 0: %v", n.Gain)
	check(n.AdaptationMs >= 0, "noise.adaptation_ms must be >= 0: %v", n.AdaptationMs)
	check(n.Min >= 0 && n.Max >= n.Min && core.IsFinite(n.Max), "noise: need 0 <= min <= max, got %v..%v", n.Min, n.Max)

	l := c.Likelihood
	check(inUnit(l.MinPrimaryShare), "likelihood.min_primary_share must be in [0, 1]: %v", l.MinPrimaryShare)
	check(nonNegative(l.ShareWeight, l.OrderWeight, l.LevelWeight, l.RatioWeight) &&
		l.ShareWeight+l.OrderWeight+l.LevelWeight+l.RatioWeight > 0,
		"likelihood weights must be >= 0 with a positive sum")
	check(inUnit(l.NearOrderCredit) && inUnit(l.LowOrderCredit), "likelihood order credits must be in [0, 1]")
	check(l.ReferenceLevel > 0, "likelihood.reference_level must be > 0: %v", l.ReferenceLevel)
	check(l.FundamentalRatio >= 0 && l.HarmonicRatio >= 0, "likelihood target ratios must be >= 0")

	w := c.Weights
	check(nonNegative(w.Likelihood, w.Spectral, w.Onset, w.Temporal) && w.sum() > 0,
		"weights must be >= 0 with a positive sum")

	f := c.NoiseFactor
	check(f.Reference > 0, "noise_factor.reference must be > 0: %v", f.Reference)
	check(f.Min > 0 && f.Max >= f.Min && core.IsFinite(f.Max), "noise_factor: need 0 < min <= max, got %v..%v", f.Min, f.Max)

	tc := c.Temporal
	check(tc.ActivityLevel >= 0, "temporal.activity_level must be >= 0: %v", tc.ActivityLevel)
	check(tc.MinStepMs >= 0 && tc.MaxStepMs > tc.MinStepMs,
		"temporal: need 0 <= min_step_ms < max_step_ms, got %v..%v", tc.MinStepMs, tc.MaxStepMs)
	check(inUnit(tc.LowCredit) && inUnit(tc.PartialCredit), "temporal credits must be in [0, 1]")

	th := c.Threshold
	check(inUnit(th.Min) && inUnit(th.Max) && th.Min <= th.Max,
		"threshold: need 0 <= min <= max <= 1, got %v..%v", th.Min, th.Max)
	check(th.NoiseCoupling >= 0 && core.IsFinite(th.NoiseCoupling), "threshold.noise_coupling must be >= 0: %v", th.NoiseCoupling)

	g := c.EnergyGate
	check(g.Min >= 0 && g.Max > g.Min, "energy_gate: need 0 <= min < max, got %v..%v", g.Min, g.Max)
	check(g.MinConcentration >= 0 && core.IsFinite(g.MinConcentration),
		"energy_gate.min_concentration must be >= 0: %v", g.MinConcentration)

	check(c.CooldownMs > 0 && core.IsFinite(c.CooldownMs), "cooldown_ms must be > 0: %v", c.CooldownMs)
	check(c.MaxAbsSample > 0, "max_abs_sample must be > 0: %v", c.MaxAbsSample)

	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
}

func (w ScoreWeights) sum() float64 {
	return w.Likelihood + w.Spectral + w.Onset + w.Temporal
}

func inUnit(v float64) bool {
	return v >= 0 && v <= 1
}

func nonNegative(vs ...float64) bool {
	for _, v := range vs {
		if !(v >= 0) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
