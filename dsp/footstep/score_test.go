package footstep

import (
	"testing"

	"github.com/cwbudde/algo-stepdetect/internal/testutil"
)

func TestBandLikelihood(t *testing.T) {
	s := NewScorer(DefaultConfig())

	tests := []struct {
		name     string
		energies []float64
		want     float64
	}{
		{"silence", []float64{0, 0, 0, 0}, 0},
		// Ideal ratios, ordering and level: 0.3*share + 0.3 + 0.2 + 0.2.
		{"ideal profile", []float64{0.032, 0.04, 0.024, 0.008}, 0.3*0.04/0.104 + 0.7},
		{"primary share below gate", []float64{0.1, 0.1, 0.1, 0.1}, 0},
		{"broadband noise shape", []float64{0.0095, 0.0122, 0.0122, 0.0122}, 0},
		// P>F holds, F>H and H>=D fail: low order credit; level 2.8/0.08 clamps to 1.
		{"poor ordering", []float64{0.5, 1, 0.6, 0.7}, 0.3*1/2.8 + 0.3*0.1 + 0.2 + 0.2*(0.7+1)/2},
		// P>F and F>H hold, H<D: near order credit.
		{"near ordering", []float64{0.7, 1.2, 0.6, 0.65},
			0.3*1.2/3.15 + 0.3*0.5 + 0.2 + 0.2*((1-(0.8-0.7/1.2))+(1-(0.6-0.6/1.2)))/2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := s.BandLikelihood(tt.energies)
			testutil.RequireNearlyEqual(t, "BandLikelihood()", got, tt.want, 1e-12)
		})
	}
}

func TestBandLikelihoodLevelTerm(t *testing.T) {
	s := NewScorer(DefaultConfig())
	quiet := s.BandLikelihood([]float64{0.0032, 0.004, 0.0024, 0.0008})
	loud := s.BandLikelihood([]float64{0.032, 0.04, 0.024, 0.008})
	if !(loud > quiet) {
		t.Fatalf("loud likelihood %v not above quiet %v", loud, quiet)
	}
	testutil.RequireNearlyEqual(t, "level difference", loud-quiet, 0.2*(1-0.0104/0.08), 1e-12)
}

func TestBandLikelihoodHonorsRoles(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Roles = BandRoles{Fundamental: 3, Primary: 2, Harmonic: 1, Detail: 0}
	s := NewScorer(cfg)

	got := s.BandLikelihood([]float64{0.008, 0.024, 0.04, 0.032})
	testutil.RequireNearlyEqual(t, "BandLikelihood()", got, 0.3*0.04/0.104+0.7, 1e-12)
}

func TestNoiseFactor(t *testing.T) {
	s := NewScorer(DefaultConfig())
	tests := []struct {
		background float64
		want       float64
	}{
		{0.1, 1.5},
		{0.15, 1},
		{0.5, 0.8},
		{0.9, 0.8},
		{0, 1.5},
	}
	for _, tt := range tests {
		testutil.RequireNearlyEqual(t, "NoiseFactor()", s.NoiseFactor(tt.background), tt.want, 1e-12)
	}
}

func TestFuseWeightsAndBounds(t *testing.T) {
	s := NewScorer(DefaultConfig())

	got := s.Fuse(0.8, 0.5, 0.25, 1, 0.15)
	testutil.RequireNearlyEqual(t, "Fuse()", got, 0.5*0.8+0.2*0.5+0.2*0.25+0.1*1, 1e-12)

	if got := s.Fuse(1, 1, 1, 1, 0.1); got != 1 {
		t.Fatalf("Fuse(max, quiet background) = %v, want 1 (clamped)", got)
	}
	if got := s.Fuse(0, 0, 0, 0, 0.1); got != 0 {
		t.Fatalf("Fuse(zero) = %v, want 0", got)
	}
}

func TestScorerNormalizesWeights(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Weights = ScoreWeights{Likelihood: 1, Spectral: 1, Onset: 1, Temporal: 1}
	s := NewScorer(cfg)

	got := s.Fuse(0.4, 0.8, 0.0, 0.4, 0.15)
	testutil.RequireNearlyEqual(t, "Fuse()", got, 0.4, 1e-12)
}

func TestScoreMatchesFuse(t *testing.T) {
	s := NewScorer(DefaultConfig())
	energies := []float64{0.032, 0.04, 0.024, 0.008}
	want := s.Fuse(s.BandLikelihood(energies), 0.6, 0.3, 1, 0.2)
	if got := s.Score(energies, 0.6, 0.3, 1, 0.2); got != want {
		t.Fatalf("Score() = %v, want %v", got, want)
	}
}

func TestTemporalScorer(t *testing.T) {
	var ts TemporalScorer
	ts.Configure(DefaultConfig().Temporal, 1000) // 50 and 200 samples

	if got := ts.Update(0); got != 0 {
		t.Fatalf("inactive score = %v, want 0", got)
	}

	for i := 1; i <= 260; i++ {
		got := ts.Update(0.05)
		var want float64
		switch {
		case i < 50:
			want = 0.3
		case i <= 200:
			want = 1
		default:
			want = 0.4
		}
		if got != want {
			t.Fatalf("active sample %d: score = %v, want %v", i, got, want)
		}
	}
	if !ts.Sustained() {
		t.Fatal("expected sustained state after exceeding the step window")
	}

	if got := ts.Update(0.001); got != 0 || ts.Active() {
		t.Fatalf("score after activity ended = %v, active=%v", got, ts.Active())
	}
	if got := ts.Update(0.05); got != 0.3 {
		t.Fatalf("score on new activity = %v, want 0.3", got)
	}
}
