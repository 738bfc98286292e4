package footstep

import (
	"fmt"
	"math"

	"github.com/cwbudde/algo-stepdetect/dsp/core"
	"github.com/cwbudde/algo-stepdetect/dsp/filter/bank"
)

const defaultSensitivity = 0.5

// Features is a snapshot of the detector's per-sample analysis. Energies
// aliases detector storage and is only valid until the next Detect call.
type Features struct {
	Energies      []float64
	TotalEnergy   float64
	Concentration float64
	Likelihood    float64
	Spectral      float64
	Onset         float64
	Temporal      float64
	Background    float64
	NoiseFactor   float64
	Confidence    float64
	Threshold     float64
	State         State
	Cooldown      int
}

// Stats counts detector activity since the last Prepare.
type Stats struct {
	Samples    uint64 // accepted samples
	Rejected   uint64 // NaN, Inf or out-of-range samples
	Detections uint64
	Filtered   uint64 // above threshold, band gates passed, outside the energy gate
}

// Option configures a Detector.
type Option func(*Detector)

// WithDebugHook calls fn with the current Features every `every` accepted
// samples, from the goroutine calling Detect. Non-positive intervals or a
// nil fn disable the hook.
func WithDebugHook(every int, fn func(Features)) Option {
	return func(d *Detector) {
		if every > 0 && fn != nil {
			d.debugEvery = every
			d.debugFn = fn
		}
	}
}

// WithProcessorOptions sets the sample rate and block size New prepares
// for.
func WithProcessorOptions(opts ...core.ProcessorOption) Option {
	return func(d *Detector) {
		d.proc = core.ApplyProcessorOptions(opts...)
	}
}

// Detector is the streaming footstep detector. A Detector is not safe for
// concurrent use; run one per channel.
type Detector struct {
	cfg  Config
	proc core.ProcessorConfig

	filters  bank.Bank
	spectral SpectralEstimator
	noise    NoiseFloorEstimator
	scorer   Scorer
	temporal TemporalScorer
	machine  StateMachine

	features Features
	stats    Stats

	debugEvery int
	debugFn    func(Features)
	debugCount int
}

// New validates cfg and returns a detector prepared for the default sample
// rate (or the one set with WithProcessorOptions).
func New(cfg Config, opts ...Option) (*Detector, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	d := &Detector{
		cfg:  cfg.Clone(),
		proc: core.DefaultProcessorConfig(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(d)
		}
	}
	d.scorer = NewScorer(d.cfg)

	if err := d.Prepare(d.proc.SampleRate, d.proc.BlockSize); err != nil {
		return nil, err
	}
	return d, nil
}

// Prepare sizes all state for sampleRate and resets it, including Stats.
// Unusable sample rates fall back to 44.1 kHz and non-positive block hints
// to 512. A rate at which the band layout cannot be realized also falls back
// to 44.1 kHz and is reported as an error; the state is reset either way.
func (d *Detector) Prepare(sampleRate float64, blockSizeHint int) error {
	proc := core.ApplyProcessorOptions(core.WithSampleRate(sampleRate), core.WithBlockSize(blockSizeHint))

	err := d.configureBank(proc.SampleRate)
	if err != nil {
		err = fmt.Errorf("footstep: prepare at %.0f Hz: %w", proc.SampleRate, err)
		proc.SampleRate = core.DefaultSampleRate
		if d.configureBank(proc.SampleRate) != nil {
			// Not realizable at the default rate either: clear the last good bank.
			proc.SampleRate = d.filters.SampleRate()
			d.filters.Reset()
		}
		if !(proc.SampleRate > 0) {
			return err
		}
	}

	d.proc = proc
	d.spectral.Configure(d.cfg.Spectral, d.cfg.Onset, proc.SampleRate)
	d.noise.Configure(d.cfg.Noise, proc.SampleRate)
	d.temporal.Configure(d.cfg.Temporal, proc.SampleRate)
	d.machine.SetCooldown(core.MsToSamples(d.cfg.CooldownMs, proc.SampleRate))
	d.machine.Reset()

	d.features = Features{
		Energies:    d.filters.Energies(),
		Background:  d.noise.Level(),
		NoiseFactor: d.scorer.NoiseFactor(d.noise.Level()),
		Threshold:   d.threshold(defaultSensitivity),
	}
	d.stats = Stats{}
	d.debugCount = 0

	return err
}

func (d *Detector) configureBank(sampleRate float64) error {
	window := core.MsToSamples(d.cfg.BandWindowMs, sampleRate)
	return d.filters.Configure(d.cfg.Bands, sampleRate, window)
}

// Reset clears all analysis state without changing the sample rate.
func (d *Detector) Reset() {
	_ = d.Prepare(d.proc.SampleRate, d.proc.BlockSize)
}

// Detect consumes one sample and reports whether a footstep event starts at
// it. sensitivity is clamped to [0, 1]; NaN selects 0.5. Invalid samples
// return false and leave the detection state untouched.
func (d *Detector) Detect(sample, sensitivity float32) bool {
	x := float64(sample)
	if !core.IsFinite(x) || math.Abs(x) > d.cfg.MaxAbsSample {
		d.stats.Rejected++
		return false
	}
	d.stats.Samples++

	energies := d.filters.Update(x)
	total := d.filters.Total()
	spectral, onset := d.spectral.Update(x)
	background := d.noise.Update(x)
	temporal := d.temporal.Update(total)

	likelihood := d.scorer.BandLikelihood(energies)
	confidence := d.scorer.Fuse(likelihood, spectral, onset, temporal, background)
	threshold := d.threshold(sanitizeSensitivity(sensitivity))

	gate := d.cfg.EnergyGate
	concentration := d.filters.Concentration()
	bandOK := likelihood > 0 && concentration >= gate.MinConcentration
	energyOK := total >= gate.Min && total <= gate.Max
	detected, filtered := d.machine.Step(confidence, threshold, bandOK, energyOK)
	if detected {
		d.stats.Detections++
	}
	if filtered {
		d.stats.Filtered++
	}

	f := &d.features
	f.Energies = energies
	f.TotalEnergy = total
	f.Concentration = concentration
	f.Likelihood = likelihood
	f.Spectral = spectral
	f.Onset = onset
	f.Temporal = temporal
	f.Background = background
	f.NoiseFactor = d.scorer.NoiseFactor(background)
	f.Confidence = confidence
	f.Threshold = threshold
	f.State = d.machine.State()
	f.Cooldown = d.machine.Remaining()

	if d.debugFn != nil {
		d.debugCount++
		if d.debugCount >= d.debugEvery {
			d.debugCount = 0
			d.debugFn(*f)
		}
	}

	return detected
}

// DetectBlock runs Detect over samples. When out is non-nil, out[i] receives
// the decision for samples[i] for as many entries as out holds. It returns
// the number of detections.
func (d *Detector) DetectBlock(samples []float32, sensitivity float32, out []bool) int {
	count := 0
	for i, x := range samples {
		hit := d.Detect(x, sensitivity)
		if hit {
			count++
		}
		if i < len(out) {
			out[i] = hit
		}
	}
	return count
}

// Threshold returns the decision threshold for sensitivity at the current
// background level.
func (d *Detector) Threshold(sensitivity float32) float64 {
	return d.threshold(sanitizeSensitivity(sensitivity))
}

func (d *Detector) threshold(s float64) float64 {
	th := d.cfg.Threshold
	base := th.Max - s*(th.Max-th.Min)
	return core.Clamp01(base + th.NoiseCoupling*(d.noise.Level()-d.cfg.Noise.Min))
}

func sanitizeSensitivity(s float32) float64 {
	v := float64(s)
	if math.IsNaN(v) {
		return defaultSensitivity
	}
	return core.Clamp01(v)
}

// LastConfidence returns the confidence computed for the latest accepted
// sample.
func (d *Detector) LastConfidence() float32 { return float32(d.features.Confidence) }

// LastEnergy returns the total band energy for the latest accepted sample.
func (d *Detector) LastEnergy() float32 { return float32(d.features.TotalEnergy) }

// BackgroundNoise returns the current background level.
func (d *Detector) BackgroundNoise() float32 { return float32(d.noise.Level()) }

// IsInCooldown reports whether events are currently suppressed.
func (d *Detector) IsInCooldown() bool { return d.machine.State() == Cooldown }

// CooldownSamples returns the cooldown length at the prepared sample rate.
func (d *Detector) CooldownSamples() int { return d.machine.CooldownSamples() }

// SampleRate returns the prepared sample rate.
func (d *Detector) SampleRate() float64 { return d.proc.SampleRate }

// BlockSize returns the prepared block size hint.
func (d *Detector) BlockSize() int { return d.proc.BlockSize }

// Features returns the latest analysis snapshot.
func (d *Detector) Features() Features { return d.features }

// Stats returns the counters since the last Prepare.
func (d *Detector) Stats() Stats { return d.stats }

// Config returns a copy of the detector configuration.
func (d *Detector) Config() Config { return d.cfg.Clone() }
