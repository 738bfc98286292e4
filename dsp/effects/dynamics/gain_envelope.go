package dynamics

import (
	"fmt"

	"github.com/cwbudde/algo-stepdetect/dsp/core"
)

const (
	defaultGainEnvelopeTarget    = 3.0
	defaultGainEnvelopeAttackMs  = 2.0
	defaultGainEnvelopeHoldMs    = 150.0
	defaultGainEnvelopeReleaseMs = 120.0

	minGainEnvelopeTarget    = 1.0
	maxGainEnvelopeTarget    = 5.0
	minGainEnvelopeAttackMs  = 0.1
	maxGainEnvelopeAttackMs  = 50.0
	minGainEnvelopeHoldMs    = 0.0
	maxGainEnvelopeHoldMs    = 1000.0
	minGainEnvelopeReleaseMs = 1.0
	maxGainEnvelopeReleaseMs = 2000.0

	settleEpsilon = 1e-9
)

// GainEnvelope turns event decisions into a continuous gain. A detection
// starts an attack toward the target gain, which is held for the hold time
// and then released back to unity. Output samples are clamped to [-1, 1].
type GainEnvelope struct {
	target     float64
	attackMs   float64
	holdMs     float64
	releaseMs  float64
	sampleRate float64

	attackCoeff  float64
	releaseCoeff float64
	holdSamples  int

	gain        float64
	holdCounter int
}

// NewGainEnvelope creates a gain envelope with defaults: target 3, attack
// 2 ms, hold 150 ms, release 120 ms.
func NewGainEnvelope(sampleRate float64) (*GainEnvelope, error) {
	if err := validateSampleRate(sampleRate); err != nil {
		return nil, fmt.Errorf("gain envelope %w", err)
	}

	g := &GainEnvelope{
		target:     defaultGainEnvelopeTarget,
		attackMs:   defaultGainEnvelopeAttackMs,
		holdMs:     defaultGainEnvelopeHoldMs,
		releaseMs:  defaultGainEnvelopeReleaseMs,
		sampleRate: sampleRate,
	}
	g.updateCoefficients()
	g.Reset()

	return g, nil
}

// SetTarget sets the gain applied during an event, in [1, 5].
func (g *GainEnvelope) SetTarget(gain float64) error {
	if gain < minGainEnvelopeTarget || gain > maxGainEnvelopeTarget || !core.IsFinite(gain) {
		return fmt.Errorf("gain envelope target must be in [%f, %f]: %f",
			minGainEnvelopeTarget, maxGainEnvelopeTarget, gain)
	}

	g.target = gain

	return nil
}

// SetAttack sets the attack time constant in milliseconds.
func (g *GainEnvelope) SetAttack(ms float64) error {
	if ms < minGainEnvelopeAttackMs || ms > maxGainEnvelopeAttackMs || !core.IsFinite(ms) {
		return fmt.Errorf("gain envelope attack must be in [%f, %f]: %f",
			minGainEnvelopeAttackMs, maxGainEnvelopeAttackMs, ms)
	}

	g.attackMs = ms
	g.updateCoefficients()

	return nil
}

// SetHold sets how long the target gain is held after a detection.
func (g *GainEnvelope) SetHold(ms float64) error {
	if ms < minGainEnvelopeHoldMs || ms > maxGainEnvelopeHoldMs || !core.IsFinite(ms) {
		return fmt.Errorf("gain envelope hold must be in [%f, %f]: %f",
			minGainEnvelopeHoldMs, maxGainEnvelopeHoldMs, ms)
	}

	g.holdMs = ms
	g.updateCoefficients()

	return nil
}

// SetRelease sets the release time constant in milliseconds.
func (g *GainEnvelope) SetRelease(ms float64) error {
	if ms < minGainEnvelopeReleaseMs || ms > maxGainEnvelopeReleaseMs || !core.IsFinite(ms) {
		return fmt.Errorf("gain envelope release must be in [%f, %f]: %f",
			minGainEnvelopeReleaseMs, maxGainEnvelopeReleaseMs, ms)
	}

	g.releaseMs = ms
	g.updateCoefficients()

	return nil
}

// SetSampleRate updates the sample rate and time-dependent coefficients.
func (g *GainEnvelope) SetSampleRate(sampleRate float64) error {
	if err := validateSampleRate(sampleRate); err != nil {
		return fmt.Errorf("gain envelope %w", err)
	}

	g.sampleRate = sampleRate
	g.updateCoefficients()

	return nil
}

// Target returns the event gain.
func (g *GainEnvelope) Target() float64 { return g.target }

// Attack returns the attack time in milliseconds.
func (g *GainEnvelope) Attack() float64 { return g.attackMs }

// Hold returns the hold time in milliseconds.
func (g *GainEnvelope) Hold() float64 { return g.holdMs }

// Release returns the release time in milliseconds.
func (g *GainEnvelope) Release() float64 { return g.releaseMs }

// SampleRate returns the sample rate in Hz.
func (g *GainEnvelope) SampleRate() float64 { return g.sampleRate }

// Gain returns the current gain.
func (g *GainEnvelope) Gain() float64 { return g.gain }

// Holding reports whether the envelope is inside a hold period.
func (g *GainEnvelope) Holding() bool { return g.holdCounter > 0 }

// Reset returns the gain to unity and cancels any hold.
func (g *GainEnvelope) Reset() {
	g.gain = 1
	g.holdCounter = 0
}

// Process advances the envelope by one sample and returns the gain.
func (g *GainEnvelope) Process(detected bool) float64 {
	if detected {
		g.holdCounter = g.holdSamples
		if g.holdCounter < 1 {
			g.holdCounter = 1
		}
	}

	want := 1.0
	if g.holdCounter > 0 {
		want = g.target
		g.holdCounter--
	}

	coeff := g.releaseCoeff
	if want > g.gain {
		coeff = g.attackCoeff
	}
	g.gain += coeff * (want - g.gain)
	if want == 1 && g.gain-1 < settleEpsilon {
		g.gain = 1
	}

	return g.gain
}

// ProcessSample applies the envelope to input and clamps to [-1, 1].
func (g *GainEnvelope) ProcessSample(input float64, detected bool) float64 {
	return core.Clamp(input*g.Process(detected), -1, 1)
}

// ProcessInPlace applies the envelope to buf. detected[i] is the decision
// for buf[i]; missing entries count as false.
func (g *GainEnvelope) ProcessInPlace(buf []float64, detected []bool) {
	for i := range buf {
		hit := i < len(detected) && detected[i]
		buf[i] = g.ProcessSample(buf[i], hit)
	}
}

func (g *GainEnvelope) updateCoefficients() {
	g.attackCoeff = core.TimeConstantCoeff(g.attackMs, g.sampleRate)
	g.releaseCoeff = core.TimeConstantCoeff(g.releaseMs, g.sampleRate)
	g.holdSamples = core.MsToSamples(g.holdMs, g.sampleRate)
}

func validateSampleRate(sampleRate float64) error {
	if sampleRate <= 0 || !core.IsFinite(sampleRate) {
		return fmt.Errorf("sample rate must be positive and finite: %f", sampleRate)
	}

	return nil
}
