package testutil

import (
	"math"
	"math/rand"
)

// DeterministicSine generates a deterministic sine wave.
func DeterministicSine(freqHz, sampleRate, amplitude float64, length int) []float64 {
	out := make([]float64, length)
	step := 2 * math.Pi * freqHz / sampleRate
	for i := range out {
		out[i] = amplitude * math.Sin(step*float64(i))
	}
	return out
}

// DeterministicNoise generates uniform white noise in [-amplitude, amplitude]
// with a fixed seed for reproducibility.
func DeterministicNoise(seed int64, amplitude float64, length int) []float64 {
	out := make([]float64, length)
	rng := rand.New(rand.NewSource(seed))
	for i := range out {
		out[i] = (rng.Float64()*2 - 1) * amplitude
	}
	return out
}

// HannBurst generates a sine of the given peak amplitude shaped by a Hann
// envelope spanning length samples.
func HannBurst(freqHz, sampleRate, amplitude float64, length int) []float64 {
	out := DeterministicSine(freqHz, sampleRate, amplitude, length)
	if length < 2 {
		return out
	}
	for i := range out {
		out[i] *= 0.5 - 0.5*math.Cos(2*math.Pi*float64(i)/float64(length-1))
	}
	return out
}

// Concat joins signals end to end.
func Concat(parts ...[]float64) []float64 {
	n := 0
	for _, p := range parts {
		n += len(p)
	}
	out := make([]float64, 0, n)
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

// Zeros returns length samples of silence.
func Zeros(length int) []float64 {
	return make([]float64, length)
}

// Float32 converts a float64 signal to float32.
func Float32(in []float64) []float32 {
	out := make([]float32, len(in))
	for i, v := range in {
		out[i] = float32(v)
	}
	return out
}

// RMS returns the root-mean-square of in, or 0 for an empty slice.
func RMS(in []float64) float64 {
	if len(in) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range in {
		sum += v * v
	}
	return math.Sqrt(sum / float64(len(in)))
}
