package footstep

import (
	"math"

	"github.com/cwbudde/algo-stepdetect/dsp/buffer"
	"github.com/cwbudde/algo-stepdetect/dsp/core"
)

const sumEpsilon = 1e-12

// SpectralEstimator derives two cheap per-sample scores from the raw input:
// a coarse centroid score over a short magnitude history and an onset score
// from recent positive energy rises. Both are O(1) per sample.
type SpectralEstimator struct {
	spectral SpectralConfig
	onset    OnsetConfig

	mags         buffer.Ring
	weights      []float64 // per slot
	freqWeights  []float64 // per slot, weight * nominal frequency
	sumWM        float64
	sumFWM       float64
	normHz       float64
	centroidNorm float64

	rises      buffer.Ring
	riseSum    float64
	riseWSum   float64
	riseWTotal float64
	prevSq     float64

	spectralScore float64
	onsetScore    float64
}

// Configure sizes the histories for sampleRate and clears all state.
func (e *SpectralEstimator) Configure(spectral SpectralConfig, onset OnsetConfig, sampleRate float64) {
	e.spectral = spectral
	e.onset = onset

	n := spectral.HistorySize
	e.mags.Resize(n)
	if cap(e.weights) >= n {
		e.weights = e.weights[:n]
		e.freqWeights = e.freqWeights[:n]
	} else {
		e.weights = make([]float64, n)
		e.freqWeights = make([]float64, n)
	}

	binHz := sampleRate / float64(2*n)
	for k := 0; k < n; k++ {
		f := float64(k) * binHz
		w := 1.0
		if f >= spectral.TargetLowHz && f <= spectral.TargetHighHz {
			w = spectral.TargetWeight
		}
		e.weights[k] = w
		e.freqWeights[k] = w * f
	}

	e.normHz = sampleRate / 2
	if spectral.AnalysisMaxHz > 0 {
		e.normHz = spectral.AnalysisMaxHz
	}

	m := onset.HistorySize
	e.rises.Resize(m)
	e.riseWTotal = float64(m*(m+1)) / 2

	e.Reset()
}

// Reset clears the histories and scores.
func (e *SpectralEstimator) Reset() {
	e.mags.Reset()
	e.rises.Reset()
	e.sumWM, e.sumFWM = 0, 0
	e.centroidNorm = 0
	e.riseSum, e.riseWSum = 0, 0
	e.prevSq = 0
	e.spectralScore, e.onsetScore = 0, 0
}

// Update consumes one sample and returns the spectral and onset scores,
// both in [0, 1].
func (e *SpectralEstimator) Update(x float64) (spectral, onset float64) {
	e.updateSpectral(math.Abs(x))
	e.updateOnset(x * x)
	return e.spectralScore, e.onsetScore
}

func (e *SpectralEstimator) updateSpectral(m float64) {
	slot := e.mags.Pos()
	evicted := e.mags.Push(m)

	if e.mags.Wrapped() {
		e.sumWM, e.sumFWM = 0, 0
		for k := 0; k < e.mags.Len(); k++ {
			v := e.mags.Slot(k)
			e.sumWM += e.weights[k] * v
			e.sumFWM += e.freqWeights[k] * v
		}
	} else {
		d := m - evicted
		e.sumWM += e.weights[slot] * d
		e.sumFWM += e.freqWeights[slot] * d
	}

	if e.sumWM <= sumEpsilon {
		e.centroidNorm = 0
		e.spectralScore = 0
		return
	}

	e.centroidNorm = core.Clamp01(e.sumFWM / e.sumWM / e.normHz)
	dev := math.Abs(e.centroidNorm - e.spectral.OptimalFraction)
	e.spectralScore = core.Clamp01(1 - dev/e.spectral.Tolerance)
}

func (e *SpectralEstimator) updateOnset(sq float64) {
	rise := sq - e.prevSq
	if rise < 0 {
		rise = 0
	}
	e.prevSq = sq

	m := float64(e.rises.Len())
	evicted := e.rises.Push(rise)

	if e.rises.Wrapped() {
		e.riseSum, e.riseWSum = 0, 0
		n := e.rises.Len()
		for age := 0; age < n; age++ {
			v := e.rises.At(age)
			e.riseSum += v
			e.riseWSum += float64(n-age) * v
		}
	} else {
		// Every older entry loses one unit of weight; the newest enters at m.
		e.riseWSum += m*rise - e.riseSum
		e.riseSum += rise - evicted
	}

	mean := e.riseWSum / e.riseWTotal
	if mean <= 0 {
		e.onsetScore = 0
		return
	}
	e.onsetScore = core.Clamp01(mean * e.onset.Gain)
}

// SpectralScore returns the latest centroid score.
func (e *SpectralEstimator) SpectralScore() float64 { return e.spectralScore }

// OnsetScore returns the latest onset score.
func (e *SpectralEstimator) OnsetScore() float64 { return e.onsetScore }

// Centroid returns the latest normalized centroid in [0, 1].
func (e *SpectralEstimator) Centroid() float64 { return e.centroidNorm }
