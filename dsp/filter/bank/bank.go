package bank

import (
	"fmt"
	"math"

	"github.com/cwbudde/algo-stepdetect/dsp/buffer"
	"github.com/cwbudde/algo-stepdetect/dsp/core"
)

// BandSpec describes one band of the bank. When Coefficients is nil the
// filter is designed from LowHz and HighHz.
type BandSpec struct {
	Name         string        `yaml:"name"`
	LowHz        float64       `yaml:"low_hz"`
	HighHz       float64       `yaml:"high_hz"`
	Coefficients *Coefficients `yaml:"coefficients,omitempty"`
}

// DefaultBands returns the four-band partition used for footfall analysis:
// fundamentals, primary impact, harmonics and surface detail.
func DefaultBands() []BandSpec {
	return []BandSpec{
		{Name: "fundamental", LowHz: 60, HighHz: 150},
		{Name: "primary", LowHz: 150, HighHz: 300},
		{Name: "harmonic", LowHz: 300, HighHz: 450},
		{Name: "detail", LowHz: 450, HighHz: 600},
	}
}

type band struct {
	spec   BandSpec
	coeffs Coefficients

	x1, x2 float64
	y1, y2 float64

	energy buffer.Ring
	sum    float64
}

// Bank is a set of band filters with per-band RMS tracking.
type Bank struct {
	bands      []band
	rms        []float64
	sampleRate float64
	window     int

	input     buffer.Ring
	inputSum  float64
	broadband float64
}

// New builds a bank for the given bands. windowSamples is the length of each
// band's energy ring and is raised to 1 if smaller.
func New(specs []BandSpec, sampleRate float64, windowSamples int) (*Bank, error) {
	b := &Bank{}
	if err := b.Configure(specs, sampleRate, windowSamples); err != nil {
		return nil, err
	}
	return b, nil
}

// Configure replaces the band set and clears all state. Ring storage is
// reused when capacity allows. On error the bank is left unchanged.
func (b *Bank) Configure(specs []BandSpec, sampleRate float64, windowSamples int) error {
	if len(specs) == 0 {
		return fmt.Errorf("%w: at least one band is required", ErrInvalidBand)
	}

	coeffs := make([]Coefficients, len(specs))
	for i, spec := range specs {
		c, err := resolveCoefficients(spec, sampleRate)
		if err != nil {
			return fmt.Errorf("band %d (%s): %w", i, spec.Name, err)
		}
		coeffs[i] = c
	}

	if windowSamples < 1 {
		windowSamples = 1
	}

	if cap(b.bands) >= len(specs) {
		b.bands = b.bands[:len(specs)]
	} else {
		bands := make([]band, len(specs))
		copy(bands, b.bands)
		b.bands = bands
	}
	if cap(b.rms) >= len(specs) {
		b.rms = b.rms[:len(specs)]
	} else {
		b.rms = make([]float64, len(specs))
	}

	for i := range b.bands {
		b.bands[i].spec = specs[i]
		b.bands[i].coeffs = coeffs[i]
		b.bands[i].energy.Resize(windowSamples)
	}
	b.input.Resize(windowSamples)

	b.sampleRate = sampleRate
	b.window = windowSamples
	b.Reset()

	return nil
}

func resolveCoefficients(spec BandSpec, sampleRate float64) (Coefficients, error) {
	if spec.Coefficients == nil {
		return DesignBandpass(spec.LowHz, spec.HighHz, sampleRate)
	}

	c := *spec.Coefficients
	for _, v := range []float64{c.A0, c.A1, c.A2, c.A3, c.A4} {
		if !core.IsFinite(v) {
			return Coefficients{}, fmt.Errorf("%w: non-finite coefficient", ErrUnstable)
		}
	}
	if !c.Stable() {
		return Coefficients{}, fmt.Errorf("%w: feedback %f, %f", ErrUnstable, c.A3, c.A4)
	}
	return c, nil
}

// Update filters one input sample through every band and returns the
// per-band RMS energies. The returned slice is owned by the bank and is
// overwritten by the next call.
func (b *Bank) Update(x float64) []float64 {
	for i := range b.bands {
		bd := &b.bands[i]
		c := &bd.coeffs

		y := c.A0*x + c.A1*bd.x1 + c.A2*bd.x2 + c.A3*bd.y1 + c.A4*bd.y2
		y = core.FlushDenormals(y)

		bd.x2, bd.x1 = bd.x1, x
		bd.y2, bd.y1 = bd.y1, y

		sq := y * y
		evicted := bd.energy.Push(sq)
		if bd.energy.Wrapped() {
			bd.sum = bd.energy.Sum()
		} else {
			bd.sum += sq - evicted
		}

		mean := bd.sum / float64(b.window)
		if mean <= 0 {
			b.rms[i] = 0
		} else {
			b.rms[i] = math.Sqrt(mean)
		}
	}

	sq := x * x
	evicted := b.input.Push(sq)
	if b.input.Wrapped() {
		b.inputSum = b.input.Sum()
	} else {
		b.inputSum += sq - evicted
	}
	if mean := b.inputSum / float64(b.window); mean > 0 {
		b.broadband = math.Sqrt(mean)
	} else {
		b.broadband = 0
	}

	return b.rms
}

// Energies returns the RMS energies from the most recent Update.
func (b *Bank) Energies() []float64 { return b.rms }

// Total returns the sum of the current band energies.
func (b *Bank) Total() float64 {
	total := 0.0
	for _, e := range b.rms {
		total += e
	}
	return total
}

// Broadband returns the RMS of the unfiltered input over the same window as
// the band energies.
func (b *Bank) Broadband() float64 { return b.broadband }

// Concentration returns Total divided by Broadband, or 0 on silence. A tone
// inside the bands scores well above 1; white noise and isolated clicks
// spread most of their energy outside the bands and score far below.
func (b *Bank) Concentration() float64 {
	if !(b.broadband > 0) {
		return 0
	}
	return b.Total() / b.broadband
}

// Reset zeroes filter memories, energy rings and reported energies.
func (b *Bank) Reset() {
	for i := range b.bands {
		bd := &b.bands[i]
		bd.x1, bd.x2, bd.y1, bd.y2 = 0, 0, 0, 0
		bd.energy.Reset()
		bd.sum = 0
	}
	for i := range b.rms {
		b.rms[i] = 0
	}
	b.input.Reset()
	b.inputSum = 0
	b.broadband = 0
}

// NumBands returns the number of bands.
func (b *Bank) NumBands() int { return len(b.bands) }

// Band returns the spec of band i.
func (b *Bank) Band(i int) BandSpec { return b.bands[i].spec }

// Coefficients returns the recursion taps in use for band i.
func (b *Bank) Coefficients(i int) Coefficients { return b.bands[i].coeffs }

// SampleRate returns the sample rate the bank was configured for.
func (b *Bank) SampleRate() float64 { return b.sampleRate }

// Window returns the energy ring length in samples.
func (b *Bank) Window() int { return b.window }
