package bank

import (
	"errors"
	"fmt"
	"math"
)

var (
	// ErrInvalidBand is returned for band edges that cannot be realized at
	// the given sample rate.
	ErrInvalidBand = errors.New("bank: invalid band")
	// ErrUnstable is returned for explicit coefficients whose poles lie on
	// or outside the unit circle.
	ErrUnstable = errors.New("bank: unstable coefficients")
)

// Coefficients holds one band's recursion taps. A0..A2 weight the current
// and two previous inputs; A3 and A4 weight the two previous outputs.
type Coefficients struct {
	A0 float64 `yaml:"a0"`
	A1 float64 `yaml:"a1"`
	A2 float64 `yaml:"a2"`
	A3 float64 `yaml:"a3"`
	A4 float64 `yaml:"a4"`
}

// DesignBandpass returns a constant 0 dB peak band-pass centred on the
// geometric mean of lowHz and highHz with Q = center/(highHz-lowHz).
func DesignBandpass(lowHz, highHz, sampleRate float64) (Coefficients, error) {
	if err := validateEdges(lowHz, highHz, sampleRate); err != nil {
		return Coefficients{}, err
	}

	center := math.Sqrt(lowHz * highHz)
	q := center / (highHz - lowHz)
	w0 := 2 * math.Pi * center / sampleRate
	cw := math.Cos(w0)
	alpha := math.Sin(w0) / (2 * q)

	a0 := 1 + alpha
	a1 := -2 * cw
	a2 := 1 - alpha

	gain := alpha / a0

	return Coefficients{
		A0: gain,
		A1: 0,
		A2: -gain,
		A3: -a1 / a0,
		A4: -a2 / a0,
	}, nil
}

// Stable reports whether both poles of the recursion lie strictly inside
// the unit circle.
func (c Coefficients) Stable() bool {
	// Characteristic polynomial z^2 - A3 z - A4 (Jury conditions).
	p1 := -c.A3
	p2 := -c.A4
	return math.Abs(p2) < 1 && math.Abs(p1) < 1+p2
}

// Response returns the complex frequency response at freqHz.
func (c Coefficients) Response(freqHz, sampleRate float64) complex128 {
	w := 2 * math.Pi * freqHz / sampleRate
	z1 := complex(math.Cos(w), -math.Sin(w))
	z2 := z1 * z1

	num := complex(c.A0, 0) + complex(c.A1, 0)*z1 + complex(c.A2, 0)*z2
	den := complex(1, 0) - complex(c.A3, 0)*z1 - complex(c.A4, 0)*z2
	return num / den
}

// Magnitude returns |H(f)|.
func (c Coefficients) Magnitude(freqHz, sampleRate float64) float64 {
	r := c.Response(freqHz, sampleRate)
	return math.Hypot(real(r), imag(r))
}

// MagnitudeDB returns 20*log10(|H(f)|).
func (c Coefficients) MagnitudeDB(freqHz, sampleRate float64) float64 {
	return 20 * math.Log10(c.Magnitude(freqHz, sampleRate))
}

func validateEdges(lowHz, highHz, sampleRate float64) error {
	if sampleRate <= 0 || math.IsNaN(sampleRate) || math.IsInf(sampleRate, 0) {
		return fmt.Errorf("%w: sample rate must be positive and finite: %f", ErrInvalidBand, sampleRate)
	}

	nyquist := sampleRate / 2
	if !(lowHz > 0) || math.IsInf(lowHz, 0) {
		return fmt.Errorf("%w: low edge must be > 0: %f", ErrInvalidBand, lowHz)
	}
	if !(highHz > lowHz) || highHz >= nyquist || math.IsInf(highHz, 0) {
		return fmt.Errorf("%w: high edge must be in (%f, %f): %f", ErrInvalidBand, lowHz, nyquist, highHz)
	}

	return nil
}
