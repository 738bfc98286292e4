// Package eventspectrum measures the spectral profile of short audio
// segments, typically the few tens of milliseconds around a detected event.
//
// A segment is Hann windowed, zero padded to a power of two and transformed
// with a real-input FFT. The resulting one-sided spectrum yields the peak
// frequency, the magnitude-weighted centroid, the 85% energy rolloff and the
// share of energy inside each band of a [bank.BandSpec] partition.
package eventspectrum
