package footstep

import (
	"math"

	"github.com/cwbudde/algo-stepdetect/dsp/buffer"
	"github.com/cwbudde/algo-stepdetect/dsp/core"
)

// NoiseFloorEstimator tracks the background level from a low percentile of
// recent squared samples. The level follows BaseThreshold + floor*Gain
// with a one-pole smoother and is reported clamped to [Min, Max].
type NoiseFloorEstimator struct {
	cfg     NoiseConfig
	history buffer.SortedRing
	coeff   float64
	floor   float64
	level   float64
}

// Configure sizes the history, derives the smoothing coefficient for
// sampleRate and resets the level to Min.
func (n *NoiseFloorEstimator) Configure(cfg NoiseConfig, sampleRate float64) {
	n.cfg = cfg
	n.history.Resize(cfg.HistorySize)
	n.coeff = core.TimeConstantCoeff(cfg.AdaptationMs, sampleRate)
	n.Reset()
}

// Reset clears the history and restores the initial level.
func (n *NoiseFloorEstimator) Reset() {
	n.history.Reset()
	n.floor = 0
	n.level = n.cfg.Min
}

// Update consumes one sample and returns the background level.
func (n *NoiseFloorEstimator) Update(x float64) float64 {
	n.history.Push(x * x)
	n.floor = math.Sqrt(n.history.Quantile(n.cfg.Percentile))

	target := n.cfg.BaseThreshold + n.floor*n.cfg.Gain
	n.level = core.Clamp(n.level+n.coeff*(target-n.level), n.cfg.Min, n.cfg.Max)
	return n.level
}

// Level returns the current background level.
func (n *NoiseFloorEstimator) Level() float64 { return n.level }

// Floor returns the instantaneous percentile floor (RMS units).
func (n *NoiseFloorEstimator) Floor() float64 { return n.floor }
