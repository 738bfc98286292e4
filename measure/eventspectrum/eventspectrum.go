package eventspectrum

import (
	"errors"
	"fmt"
	"math"

	algofft "github.com/MeKo-Christian/algo-fft"
	vecmath "github.com/cwbudde/algo-vecmath"

	"github.com/cwbudde/algo-stepdetect/dsp/core"
	"github.com/cwbudde/algo-stepdetect/dsp/filter/bank"
)

const (
	defaultFFTSize  = 2048
	defaultRolloff  = 0.85
	minimumFFTSize  = 8
	maximumFFTSize  = 1 << 20
	energyThreshold = 1e-20
)

var (
	// ErrInvalidSampleRate is returned for non-positive or non-finite rates.
	ErrInvalidSampleRate = errors.New("eventspectrum: invalid sample rate")
	// ErrInvalidFFTSize is returned when the FFT size is not a power of two
	// in the supported range.
	ErrInvalidFFTSize = errors.New("eventspectrum: invalid FFT size")
	// ErrInvalidRolloff is returned when the rolloff fraction is outside (0, 1).
	ErrInvalidRolloff = errors.New("eventspectrum: invalid rolloff fraction")
)

// Config holds analysis parameters.
type Config struct {
	SampleRate float64
	// FFTSize is the transform length. Zero selects 2048. Longer segments
	// are truncated, shorter ones are zero padded.
	FFTSize int
	// Rolloff is the cumulative energy fraction reported as Profile.Rolloff.
	// Zero selects 0.85.
	Rolloff float64
	// Bands is the partition used for Profile.BandShares. Nil selects
	// [bank.DefaultBands].
	Bands []bank.BandSpec
}

// Profile is the spectral summary of one segment.
type Profile struct {
	FFTSize  int
	Samples  int     // segment samples actually analyzed
	Energy   float64 // sum of squared bin magnitudes
	PeakHz   float64
	Centroid float64 // Hz
	Rolloff  float64 // Hz
	// BandShares[i] is the fraction of Energy inside Bands[i].
	BandShares []float64
	// InBand is the fraction of Energy inside any configured band.
	InBand float64
}

// Dominant returns the index of the band with the largest share, or -1 when
// the profile has no energy.
func (p Profile) Dominant() int {
	best := -1
	bestShare := 0.0
	for i, s := range p.BandShares {
		if s > bestShare {
			best = i
			bestShare = s
		}
	}
	return best
}

// Analyzer holds a reusable FFT plan and scratch buffers. It is not safe for
// concurrent use.
type Analyzer struct {
	cfg   Config
	plan  *algofft.Plan[complex128]
	win   []float64
	frame []float64
	in    []complex128
	out   []complex128
	re    []float64
	im    []float64
	mag   []float64
	pow   []float64
}

// NewAnalyzer validates cfg and allocates an Analyzer.
func NewAnalyzer(cfg Config) (*Analyzer, error) {
	if cfg.FFTSize == 0 {
		cfg.FFTSize = defaultFFTSize
	}
	if cfg.Rolloff == 0 {
		cfg.Rolloff = defaultRolloff
	}
	if cfg.Bands == nil {
		cfg.Bands = bank.DefaultBands()
	}

	if cfg.SampleRate <= 0 || !core.IsFinite(cfg.SampleRate) {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSampleRate, cfg.SampleRate)
	}
	if cfg.FFTSize < minimumFFTSize || cfg.FFTSize > maximumFFTSize || cfg.FFTSize&(cfg.FFTSize-1) != 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidFFTSize, cfg.FFTSize)
	}
	if !(cfg.Rolloff > 0 && cfg.Rolloff < 1) {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRolloff, cfg.Rolloff)
	}
	for _, b := range cfg.Bands {
		if !(b.LowHz >= 0 && b.HighHz > b.LowHz) {
			return nil, fmt.Errorf("%w: %q [%v, %v]", bank.ErrInvalidBand, b.Name, b.LowHz, b.HighHz)
		}
	}

	plan, err := algofft.NewPlan64(cfg.FFTSize)
	if err != nil {
		return nil, fmt.Errorf("eventspectrum: fft plan: %w", err)
	}

	n := cfg.FFTSize
	bins := n/2 + 1
	bands := make([]bank.BandSpec, len(cfg.Bands))
	copy(bands, cfg.Bands)
	cfg.Bands = bands

	return &Analyzer{
		cfg:   cfg,
		plan:  plan,
		win:   make([]float64, n),
		frame: make([]float64, n),
		in:    make([]complex128, n),
		out:   make([]complex128, n),
		re:    make([]float64, bins),
		im:    make([]float64, bins),
		mag:   make([]float64, bins),
		pow:   make([]float64, bins),
	}, nil
}

// Config returns the effective configuration.
func (a *Analyzer) Config() Config {
	cfg := a.cfg
	cfg.Bands = append([]bank.BandSpec(nil), a.cfg.Bands...)
	return cfg
}

// BinHz returns the frequency spacing of the spectrum.
func (a *Analyzer) BinHz() float64 {
	return a.cfg.SampleRate / float64(a.cfg.FFTSize)
}

// Magnitudes returns the one-sided magnitude spectrum of the last Analyze
// call. The slice is owned by the analyzer.
func (a *Analyzer) Magnitudes() []float64 {
	return a.mag
}

// Analyze windows segment, computes its spectrum and returns the profile.
// An empty segment returns a zero profile.
func (a *Analyzer) Analyze(segment []float64) Profile {
	n := a.cfg.FFTSize
	p := Profile{
		FFTSize:    n,
		BandShares: make([]float64, len(a.cfg.Bands)),
	}

	m := min(len(segment), n)
	p.Samples = m
	if m == 0 {
		clear(a.mag)
		return p
	}

	hann(a.win[:m])
	vecmath.MulBlock(a.frame[:m], segment[:m], a.win[:m])
	for i := range m {
		a.in[i] = complex(a.frame[i], 0)
	}
	clear(a.in[m:])

	if err := a.plan.Forward(a.out, a.in); err != nil {
		clear(a.mag)
		return p
	}

	for i := range a.re {
		a.re[i] = real(a.out[i])
		a.im[i] = imag(a.out[i])
	}
	vecmath.Magnitude(a.mag, a.re, a.im)
	vecmath.Power(a.pow, a.re, a.im)

	binHz := a.BinHz()
	var sumMag, weighted float64
	peak := 0
	for i, v := range a.mag {
		sumMag += v
		weighted += v * float64(i) * binHz
		p.Energy += a.pow[i]
		if v > a.mag[peak] {
			peak = i
		}
	}
	if p.Energy < energyThreshold || sumMag == 0 {
		p.Energy = 0
		return p
	}

	p.PeakHz = float64(peak) * binHz
	p.Centroid = weighted / sumMag
	p.Rolloff = rolloff(a.pow, binHz, a.cfg.Rolloff*p.Energy)

	var inBand float64
	for i, v := range a.pow {
		f := float64(i) * binHz
		hit := false
		for b, band := range a.cfg.Bands {
			if f >= band.LowHz && f < band.HighHz {
				p.BandShares[b] += v
				hit = true
			}
		}
		if hit {
			inBand += v
		}
	}
	for b := range p.BandShares {
		p.BandShares[b] /= p.Energy
	}
	p.InBand = inBand / p.Energy

	return p
}

// Analyze is a one-shot helper. An FFTSize of zero selects the next power of
// two above the segment length.
func Analyze(segment []float64, cfg Config) (Profile, error) {
	if cfg.FFTSize == 0 {
		cfg.FFTSize = nextPowerOf2(max(len(segment), minimumFFTSize))
	}
	a, err := NewAnalyzer(cfg)
	if err != nil {
		return Profile{}, err
	}
	return a.Analyze(segment), nil
}

func rolloff(pow []float64, binHz, target float64) float64 {
	acc := 0.0
	for i, v := range pow {
		acc += v
		if acc >= target {
			return float64(i) * binHz
		}
	}
	return float64(len(pow)-1) * binHz
}

// hann fills w with a symmetric Hann window.
func hann(w []float64) {
	n := len(w)
	if n == 1 {
		w[0] = 1
		return
	}
	den := float64(n - 1)
	for i := range w {
		w[i] = 0.5 - 0.5*math.Cos(2*math.Pi*float64(i)/den)
	}
}

func nextPowerOf2(n int) int {
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}
