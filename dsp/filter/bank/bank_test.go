package bank

import (
	"errors"
	"math"
	"testing"

	"github.com/cwbudde/algo-stepdetect/internal/testutil"
)

const testSampleRate = 44100.0

func TestDesignBandpassUnityAtCenter(t *testing.T) {
	for _, spec := range DefaultBands() {
		c, err := DesignBandpass(spec.LowHz, spec.HighHz, testSampleRate)
		if err != nil {
			t.Fatalf("%s: %v", spec.Name, err)
		}

		center := math.Sqrt(spec.LowHz * spec.HighHz)
		if mag := c.Magnitude(center, testSampleRate); math.Abs(mag-1) > 1e-9 {
			t.Errorf("%s: |H(%.1f)| = %v, want 1", spec.Name, center, mag)
		}

		if !c.Stable() {
			t.Errorf("%s: designed filter is unstable: %+v", spec.Name, c)
		}
	}
}

func TestDesignBandpassRejectsOutOfBand(t *testing.T) {
	c, err := DesignBandpass(150, 300, testSampleRate)
	if err != nil {
		t.Fatal(err)
	}

	for _, f := range []float64{20, 2000, 8000} {
		if mag := c.Magnitude(f, testSampleRate); mag > 0.1 {
			t.Errorf("|H(%.0f)| = %v, want < 0.1", f, mag)
		}
	}
}

func TestDesignBandpassValidation(t *testing.T) {
	tests := []struct {
		name      string
		low, high float64
		sr        float64
	}{
		{"zero low", 0, 300, testSampleRate},
		{"inverted", 300, 150, testSampleRate},
		{"equal", 300, 300, testSampleRate},
		{"above nyquist", 150, 30000, testSampleRate},
		{"nan low", math.NaN(), 300, testSampleRate},
		{"zero rate", 150, 300, 0},
		{"inf rate", 150, 300, math.Inf(1)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DesignBandpass(tt.low, tt.high, tt.sr)
			if !errors.Is(err, ErrInvalidBand) {
				t.Fatalf("DesignBandpass() err = %v, want ErrInvalidBand", err)
			}
		})
	}
}

func TestNewRejectsEmptyAndUnstable(t *testing.T) {
	if _, err := New(nil, testSampleRate, 16); !errors.Is(err, ErrInvalidBand) {
		t.Fatalf("New(nil) err = %v, want ErrInvalidBand", err)
	}

	unstable := []BandSpec{{Name: "runaway", Coefficients: &Coefficients{A0: 1, A3: 1.2}}}
	if _, err := New(unstable, testSampleRate, 16); !errors.Is(err, ErrUnstable) {
		t.Fatalf("New(unstable) err = %v, want ErrUnstable", err)
	}

	nan := []BandSpec{{Name: "nan", Coefficients: &Coefficients{A0: math.NaN()}}}
	if _, err := New(nan, testSampleRate, 16); !errors.Is(err, ErrUnstable) {
		t.Fatalf("New(nan) err = %v, want ErrUnstable", err)
	}
}

func TestConfigureFailureKeepsPreviousBands(t *testing.T) {
	b, err := New(DefaultBands(), testSampleRate, 64)
	if err != nil {
		t.Fatal(err)
	}

	err = b.Configure([]BandSpec{{Name: "bad", LowHz: 0, HighHz: 10}}, testSampleRate, 64)
	if err == nil {
		t.Fatal("Configure() accepted an invalid band")
	}
	if b.NumBands() != 4 || b.Band(1).Name != "primary" {
		t.Fatalf("bank changed after failed Configure: %d bands", b.NumBands())
	}
}

func TestExplicitThreeTapRecursion(t *testing.T) {
	specs := []BandSpec{{Name: "onepole", Coefficients: &Coefficients{A0: 1, A3: 0.5}}}
	b, err := New(specs, testSampleRate, 1)
	if err != nil {
		t.Fatal(err)
	}

	want := []float64{1, 0.5, 0.25, 0.125}
	for i, w := range want {
		x := 0.0
		if i == 0 {
			x = 1
		}
		got := b.Update(x)[0]
		if math.Abs(got-w) > 1e-15 {
			t.Fatalf("sample %d: rms = %v, want %v", i, got, w)
		}
	}
}

func TestSteadyToneEnergies(t *testing.T) {
	const (
		freq      = 212.0
		amplitude = 0.1
	)

	b, err := New(DefaultBands(), testSampleRate, 1323)
	if err != nil {
		t.Fatal(err)
	}

	var energies []float64
	for i := 0; i < 8820; i++ {
		energies = b.Update(amplitude * math.Sin(2*math.Pi*freq*float64(i)/testSampleRate))
	}

	for i, e := range energies {
		want := amplitude / math.Sqrt2 * b.Coefficients(i).Magnitude(freq, testSampleRate)
		if math.Abs(e-want) > 0.05*want {
			t.Errorf("band %d (%s): rms = %v, want %v +/- 5%%", i, b.Band(i).Name, e, want)
		}
	}

	if !(energies[1] > energies[0] && energies[0] > energies[2] && energies[2] > energies[3]) {
		t.Fatalf("unexpected band ordering for %v Hz: %v", freq, energies)
	}

	total := b.Total()
	if share := energies[1] / total; share < 0.45 || share > 0.6 {
		t.Fatalf("primary share = %v, want ~0.515", share)
	}
}

func TestSilenceYieldsZeroEnergy(t *testing.T) {
	b, _ := New(DefaultBands(), testSampleRate, 256)
	for i := 0; i < 1000; i++ {
		for j, e := range b.Update(0) {
			if e != 0 {
				t.Fatalf("sample %d band %d: rms = %v, want 0", i, j, e)
			}
		}
	}
}

func TestResetRestoresInitialBehavior(t *testing.T) {
	b, _ := New(DefaultBands(), testSampleRate, 128)
	input := make([]float64, 2000)
	for i := range input {
		input[i] = 0.3 * math.Sin(2*math.Pi*180*float64(i)/testSampleRate)
	}

	first := make([]float64, 0, len(input))
	for _, x := range input {
		first = append(first, b.Update(x)[1])
	}

	b.Reset()
	for i, x := range input {
		if got := b.Update(x)[1]; got != first[i] {
			t.Fatalf("sample %d after Reset: %v, want %v", i, got, first[i])
		}
	}
}

func TestRunningSumTracksExactRMS(t *testing.T) {
	const (
		window = 97
		n      = 5000
	)
	b, _ := New(DefaultBands(), testSampleRate, window)

	outputs := make([][]float64, b.NumBands())
	state := make([][4]float64, b.NumBands())
	for i := 0; i < n; i++ {
		x := 0.5 * math.Sin(2*math.Pi*233*float64(i)/testSampleRate)
		b.Update(x)

		for k := range outputs {
			c := b.Coefficients(k)
			s := &state[k]
			y := c.A0*x + c.A1*s[0] + c.A2*s[1] + c.A3*s[2] + c.A4*s[3]
			s[1], s[0] = s[0], x
			s[3], s[2] = s[2], y
			outputs[k] = append(outputs[k], y)
		}
	}

	for k, ys := range outputs {
		sum := 0.0
		for _, y := range ys[n-window:] {
			sum += y * y
		}
		want := math.Sqrt(sum / window)
		if got := b.Energies()[k]; math.Abs(got-want) > 1e-9 {
			t.Fatalf("band %d: rms = %v, want %v", k, got, want)
		}
	}
}

func TestBroadbandMatchesInputRMS(t *testing.T) {
	const window = 200
	b, _ := New(DefaultBands(), testSampleRate, window)
	input := testutil.DeterministicNoise(4, 0.3, 1000)
	for _, x := range input {
		b.Update(x)
	}

	sum := 0.0
	for _, x := range input[len(input)-window:] {
		sum += x * x
	}
	testutil.RequireNearlyEqual(t, "Broadband()", b.Broadband(), math.Sqrt(sum/window), 1e-12)

	b.Reset()
	if b.Broadband() != 0 || b.Concentration() != 0 {
		t.Fatalf("after Reset: broadband=%v concentration=%v", b.Broadband(), b.Concentration())
	}
}

func TestConcentrationSeparatesToneFromNoise(t *testing.T) {
	tone, _ := New(DefaultBands(), testSampleRate, 1323)
	for _, x := range testutil.DeterministicSine(212, testSampleRate, 0.1, 8820) {
		tone.Update(x)
	}
	if c := tone.Concentration(); c < 1.5 {
		t.Fatalf("212 Hz tone concentration = %v, want > 1.5", c)
	}

	noise, _ := New(DefaultBands(), testSampleRate, 1323)
	for _, x := range testutil.DeterministicNoise(7, 0.0866, 8820) {
		noise.Update(x)
	}
	if c := noise.Concentration(); c > 0.6 {
		t.Fatalf("white noise concentration = %v, want < 0.6", c)
	}

	click, _ := New(DefaultBands(), testSampleRate, 1323)
	click.Update(1)
	for i := 0; i < 400; i++ {
		click.Update(0)
	}
	if c := click.Concentration(); c > 0.6 {
		t.Fatalf("impulse concentration = %v, want < 0.6", c)
	}
}

func TestUpdateDoesNotAllocate(t *testing.T) {
	b, _ := New(DefaultBands(), testSampleRate, 1323)
	x := 0.0
	allocs := testing.AllocsPerRun(1000, func() {
		x += 0.01
		b.Update(math.Sin(x))
	})
	if allocs != 0 {
		t.Fatalf("Update allocated %v times per run", allocs)
	}
}
