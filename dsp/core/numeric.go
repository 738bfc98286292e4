package core

import "math"

const defaultEpsilon = 1e-12

// Clamp limits value to the inclusive range [min, max].
func Clamp(value, min, max float64) float64 {
	if min > max {
		min, max = max, min
	}

	if value < min {
		return min
	}

	if value > max {
		return max
	}

	return value
}

// Clamp01 limits value to [0, 1]. NaN maps to 0.
func Clamp01(value float64) float64 {
	if value != value {
		return 0
	}

	return Clamp(value, 0, 1)
}

// NearlyEqual reports whether a and b are equal within eps, using a relative
// comparison for large magnitudes.
func NearlyEqual(a, b, eps float64) bool {
	if eps <= 0 {
		eps = defaultEpsilon
	}

	diff := math.Abs(a - b)
	if diff <= eps {
		return true
	}

	largest := math.Max(math.Abs(a), math.Abs(b))
	if largest == 0 {
		return diff <= eps
	}

	return diff/largest <= eps
}

// IsFinite reports whether v is neither NaN nor infinite.
func IsFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// FlushDenormals converts tiny denormal-like values to exact zero.
// Recursive filters ringing out into silence otherwise stall on subnormals.
func FlushDenormals(x float64) float64 {
	const epsilon = 1e-30
	if x > -epsilon && x < epsilon {
		return 0
	}

	return x
}

// MsToSamples converts a duration in milliseconds to a whole number of
// samples, rounding to nearest. Non-positive durations yield 0.
func MsToSamples(ms, sampleRate float64) int {
	if ms <= 0 || sampleRate <= 0 || !IsFinite(ms) {
		return 0
	}

	return int(math.Round(ms * sampleRate / 1000))
}

// TimeConstantCoeff returns the per-sample one-pole smoothing coefficient for
// a time constant in milliseconds: 1 - exp(-1/(t*fs)). A zero time constant
// yields 1 (no smoothing).
func TimeConstantCoeff(ms, sampleRate float64) float64 {
	seconds := ms / 1000.0
	if seconds <= 0 || sampleRate <= 0 {
		return 1
	}

	coeff := 1.0 - math.Exp(-1.0/(seconds*sampleRate))

	return Clamp(coeff, 0, 1)
}
