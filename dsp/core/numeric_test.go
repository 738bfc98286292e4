package core

import (
	"math"
	"testing"
)

func TestClamp(t *testing.T) {
	tests := []struct {
		name     string
		value    float64
		min      float64
		max      float64
		expected float64
	}{
		{name: "inside", value: 0.5, min: 0, max: 1, expected: 0.5},
		{name: "below", value: -1, min: 0, max: 1, expected: 0},
		{name: "above", value: 2, min: 0, max: 1, expected: 1},
		{name: "swapped", value: 2, min: 1, max: 0, expected: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Clamp(tt.value, tt.min, tt.max)
			if got != tt.expected {
				t.Fatalf("Clamp() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestClamp01(t *testing.T) {
	if got := Clamp01(math.NaN()); got != 0 {
		t.Fatalf("Clamp01(NaN) = %v, want 0", got)
	}
	if got := Clamp01(1.7); got != 1 {
		t.Fatalf("Clamp01(1.7) = %v, want 1", got)
	}
	if got := Clamp01(-0.2); got != 0 {
		t.Fatalf("Clamp01(-0.2) = %v, want 0", got)
	}
}

func TestNearlyEqual(t *testing.T) {
	if !NearlyEqual(1.0, 1.0+1e-13, 1e-12) {
		t.Fatal("expected values to be nearly equal")
	}
	if NearlyEqual(1.0, 1.1, 1e-3) {
		t.Fatal("expected values to differ")
	}
}

func TestIsFinite(t *testing.T) {
	for _, v := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
		if IsFinite(v) {
			t.Fatalf("IsFinite(%v) = true", v)
		}
	}
	if !IsFinite(0.25) {
		t.Fatal("IsFinite(0.25) = false")
	}
}

func TestFlushDenormals(t *testing.T) {
	if got := FlushDenormals(1e-35); got != 0 {
		t.Fatalf("FlushDenormals(1e-35) = %v, want 0", got)
	}
	if got := FlushDenormals(-1e-31); got != 0 {
		t.Fatalf("FlushDenormals(-1e-31) = %v, want 0", got)
	}
	if got := FlushDenormals(1e-20); got != 1e-20 {
		t.Fatalf("FlushDenormals(1e-20) = %v, want 1e-20", got)
	}
}

func TestMsToSamples(t *testing.T) {
	tests := []struct {
		ms, sr float64
		want   int
	}{
		{150, 44100, 6615},
		{150, 48000, 7200},
		{30, 44100, 1323},
		{0, 44100, 0},
		{-5, 44100, 0},
		{10, 0, 0},
	}

	for _, tt := range tests {
		if got := MsToSamples(tt.ms, tt.sr); got != tt.want {
			t.Fatalf("MsToSamples(%v, %v) = %d, want %d", tt.ms, tt.sr, got, tt.want)
		}
	}
}

func TestTimeConstantCoeff(t *testing.T) {
	if got := TimeConstantCoeff(0, 44100); got != 1 {
		t.Fatalf("TimeConstantCoeff(0) = %v, want 1", got)
	}

	c := TimeConstantCoeff(250, 44100)
	want := 1 - math.Exp(-1/(0.25*44100))
	if !NearlyEqual(c, want, 1e-12) {
		t.Fatalf("TimeConstantCoeff(250) = %v, want %v", c, want)
	}

	if TimeConstantCoeff(10, 44100) <= TimeConstantCoeff(100, 44100) {
		t.Fatal("shorter time constants should adapt faster")
	}
}
