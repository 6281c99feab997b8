package statistics

import (
	"math"
	"testing"
)

func TestBootstrapCI_EmptyScores(t *testing.T) {
	ci := BootstrapCI(nil, 0.95)
	if ci.Mean != 0.0 || ci.Lower != 0.0 || ci.Upper != 0.0 {
		t.Errorf("expected zero CI for empty input, got %+v", ci)
	}
	if ci.NumBootstraps != 0 {
		t.Errorf("expected 0 bootstraps for empty input, got %d", ci.NumBootstraps)
	}
}

func TestBootstrapCI_SingleValue(t *testing.T) {
	ci := BootstrapCI([]float64{7.5}, 0.95)
	if ci.Mean != 7.5 || ci.Lower != 7.5 || ci.Upper != 7.5 {
		t.Errorf("expected degenerate CI for single value, got %+v", ci)
	}
}

func TestBootstrapCI_IdenticalValues(t *testing.T) {
	ci := BootstrapCIWithSeed([]float64{6, 6, 6, 6}, 0.95, 42)
	if math.Abs(ci.Lower-6) > 1e-9 || math.Abs(ci.Upper-6) > 1e-9 {
		t.Errorf("expected CI [6, 6] for identical values, got [%f, %f]", ci.Lower, ci.Upper)
	}
}

func TestBootstrapCI_ScoreTrajectory(t *testing.T) {
	scores := []float64{5.0, 6.0, 6.5, 7.5, 8.0, 8.5, 9.0, 9.5}
	ci := BootstrapCIWithSeed(scores, 0.95, 42)

	if math.Abs(ci.Mean-7.5) > 1e-9 {
		t.Errorf("expected mean 7.5, got %f", ci.Mean)
	}
	if ci.Lower >= ci.Mean {
		t.Errorf("lower bound %f should be < mean %f", ci.Lower, ci.Mean)
	}
	if ci.Upper <= ci.Mean {
		t.Errorf("upper bound %f should be > mean %f", ci.Upper, ci.Mean)
	}
	if ci.Lower < 5.0 || ci.Upper > 9.5 {
		t.Errorf("CI should stay within the observed range, got [%f, %f]", ci.Lower, ci.Upper)
	}
	if ci.NumBootstraps != DefaultBootstrapIterations {
		t.Errorf("expected %d bootstraps, got %d", DefaultBootstrapIterations, ci.NumBootstraps)
	}
	if ci.ConfidenceLevel != 0.95 {
		t.Errorf("expected confidence level 0.95, got %f", ci.ConfidenceLevel)
	}
}

func TestBootstrapCI_NarrowerAtHigherN(t *testing.T) {
	small := []float64{3, 5, 7}
	large := []float64{3, 4, 5, 6, 7, 3, 4, 5, 6, 7,
		3, 4, 5, 6, 7, 3, 4, 5, 6, 7}

	ciSmall := BootstrapCIWithSeed(small, 0.95, 42)
	ciLarge := BootstrapCIWithSeed(large, 0.95, 42)

	widthSmall := ciSmall.Upper - ciSmall.Lower
	widthLarge := ciLarge.Upper - ciLarge.Lower

	if widthLarge >= widthSmall {
		t.Errorf("larger sample should yield narrower CI: small=%f, large=%f", widthSmall, widthLarge)
	}
}

func TestBootstrapCI_Deterministic(t *testing.T) {
	scores := []float64{2, 4, 6, 8}
	ci1 := BootstrapCIWithSeed(scores, 0.95, 99)
	ci2 := BootstrapCIWithSeed(scores, 0.95, 99)

	if ci1.Lower != ci2.Lower || ci1.Upper != ci2.Upper {
		t.Errorf("same seed should produce identical CIs: %+v vs %+v", ci1, ci2)
	}
}

func TestBootstrapCI_DifferentConfidenceLevels(t *testing.T) {
	scores := []float64{1, 3, 5, 7, 9, 2, 4, 6, 8, 10}
	ci90 := BootstrapCIWithSeed(scores, 0.90, 42)
	ci99 := BootstrapCIWithSeed(scores, 0.99, 42)

	width90 := ci90.Upper - ci90.Lower
	width99 := ci99.Upper - ci99.Lower

	if width99 <= width90 {
		t.Errorf("99%% CI should be wider than 90%%: 90%%=%f, 99%%=%f", width90, width99)
	}
}

func TestNormalizedGain(t *testing.T) {
	tests := []struct {
		name      string
		pre, post float64
		want      float64
	}{
		{"basic gain", 4, 7, 0.5}, // (7-4)/(10-4)
		{"no change", 5, 5, 0.0},
		{"reaches ceiling", 5, 10, 1.0},
		{"pre at ceiling", 10, 10, 0.0},
		{"from zero", 0, 5, 0.5},
		{"high pre small gain", 8, 9, 0.5}, // (9-8)/(10-8)
		{"negative gain", 5, 3, -0.4},      // (3-5)/(10-5)
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NormalizedGain(tt.pre, tt.post, 10)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("NormalizedGain(%f, %f, 10) = %f, want %f", tt.pre, tt.post, got, tt.want)
			}
		})
	}
}

func TestMean(t *testing.T) {
	if got := Mean(nil); got != 0 {
		t.Errorf("Mean(nil) = %f, want 0", got)
	}
	if got := Mean([]float64{6, 7.5, 9}); math.Abs(got-7.5) > 1e-9 {
		t.Errorf("Mean = %f, want 7.5", got)
	}
}
