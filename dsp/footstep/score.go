package footstep

import (
	"math"

	"github.com/cwbudde/algo-stepdetect/dsp/core"
)

// Scorer fuses band energies and the per-sample scores into one bounded
// confidence value.
type Scorer struct {
	roles   BandRoles
	lk      LikelihoodConfig
	lkNorm  float64
	weights ScoreWeights
	factor  NoiseFactorConfig
}

// NewScorer builds a scorer from cfg. Both weight sets are normalized to
// sum to one.
func NewScorer(cfg Config) Scorer {
	s := Scorer{
		roles:   cfg.Roles,
		lk:      cfg.Likelihood,
		weights: cfg.Weights,
		factor:  cfg.NoiseFactor,
	}

	lkSum := s.lk.ShareWeight + s.lk.OrderWeight + s.lk.LevelWeight + s.lk.RatioWeight
	if lkSum > 0 {
		s.lkNorm = 1 / lkSum
	}

	if sum := s.weights.sum(); sum > 0 {
		s.weights.Likelihood /= sum
		s.weights.Spectral /= sum
		s.weights.Onset /= sum
		s.weights.Temporal /= sum
	}

	return s
}

// BandLikelihood scores how closely the band energies match a footfall
// profile. It is 0 when the energy is zero or the primary band does not
// hold at least MinPrimaryShare of the total.
func (s *Scorer) BandLikelihood(energies []float64) float64 {
	total := 0.0
	for _, e := range energies {
		total += e
	}
	if !(total > 0) {
		return 0
	}

	p := energies[s.roles.Primary]
	f := energies[s.roles.Fundamental]
	h := energies[s.roles.Harmonic]
	d := energies[s.roles.Detail]

	share := p / total
	if share < s.lk.MinPrimaryShare || p <= 0 {
		return 0
	}

	var order float64
	switch relations := boolCount(p > f, f > h, h >= d); relations {
	case 3:
		order = 1
	case 2:
		order = s.lk.NearOrderCredit
	default:
		order = s.lk.LowOrderCredit
	}

	level := core.Clamp01(total / s.lk.ReferenceLevel)

	ratio := (ratioMatch(f/p, s.lk.FundamentalRatio) + ratioMatch(h/p, s.lk.HarmonicRatio)) / 2

	score := s.lk.ShareWeight*share +
		s.lk.OrderWeight*order +
		s.lk.LevelWeight*level +
		s.lk.RatioWeight*ratio

	return core.Clamp01(score * s.lkNorm)
}

// NoiseFactor returns the confidence multiplier for a background level.
func (s *Scorer) NoiseFactor(background float64) float64 {
	if !(background > 0) {
		return s.factor.Max
	}
	return core.Clamp(s.factor.Reference/background, s.factor.Min, s.factor.Max)
}

// Score returns the confidence in [0, 1] for the given band energies and
// per-sample scores.
func (s *Scorer) Score(energies []float64, spectral, onset, temporal, background float64) float64 {
	return s.Fuse(s.BandLikelihood(energies), spectral, onset, temporal, background)
}

// Fuse combines an already computed band likelihood with the other scores.
func (s *Scorer) Fuse(likelihood, spectral, onset, temporal, background float64) float64 {
	raw := s.weights.Likelihood*likelihood +
		s.weights.Spectral*spectral +
		s.weights.Onset*onset +
		s.weights.Temporal*temporal

	return core.Clamp01(raw * s.NoiseFactor(background))
}

func ratioMatch(actual, target float64) float64 {
	m := 1 - math.Abs(target-actual)
	if m < 0 {
		return 0
	}
	return m
}

func boolCount(bs ...bool) int {
	n := 0
	for _, b := range bs {
		if b {
			n++
		}
	}
	return n
}

// TemporalScorer rewards activity whose duration so far falls inside the
// expected footstep window. The counter runs only while the band energy is
// above ActivityLevel; once activity outlasts MaxStepMs the scorer reports
// PartialCredit until the activity ends.
type TemporalScorer struct {
	cfg        TemporalConfig
	minSamples int
	maxSamples int
	count      int
	sustained  bool
}

// Configure converts the step window to samples and resets the counter.
func (t *TemporalScorer) Configure(cfg TemporalConfig, sampleRate float64) {
	t.cfg = cfg
	t.minSamples = core.MsToSamples(cfg.MinStepMs, sampleRate)
	t.maxSamples = core.MsToSamples(cfg.MaxStepMs, sampleRate)
	if t.maxSamples <= t.minSamples {
		t.maxSamples = t.minSamples + 1
	}
	t.Reset()
}

// Reset clears the duration counter.
func (t *TemporalScorer) Reset() {
	t.count = 0
	t.sustained = false
}

// Update advances the scorer by one sample given the total band energy and
// returns the temporal score.
func (t *TemporalScorer) Update(energy float64) float64 {
	if !(energy > t.cfg.ActivityLevel) {
		t.Reset()
		return 0
	}
	if t.sustained {
		return t.cfg.PartialCredit
	}

	t.count++
	switch {
	case t.count > t.maxSamples:
		t.count = 0
		t.sustained = true
		return t.cfg.PartialCredit
	case t.count < t.minSamples:
		return t.cfg.LowCredit
	default:
		return 1
	}
}

// Active reports whether activity is currently being timed.
func (t *TemporalScorer) Active() bool { return t.count > 0 || t.sustained }

// Sustained reports whether the current activity outlasted the step window.
func (t *TemporalScorer) Sustained() bool { return t.sustained }

// Count returns the number of active samples timed so far.
func (t *TemporalScorer) Count() int { return t.count }
