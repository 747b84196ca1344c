package analysis

import (
	"errors"
	"math"
	"testing"

	"fximpact/internal/domain/models"
)

// noisyPair builds n paired returns with y = beta*x + alpha + deterministic
// wobble so the regression has something to chew on without randomness.
func noisyPair(n int, beta, alpha float64) (y, x models.ReturnSeries) {
	xs := make([]float64, n)
	ys := make([]float64, n)
	for i := 0; i < n; i++ {
		xs[i] = 0.01 * math.Sin(float64(i)*0.7)
		ys[i] = beta*xs[i] + alpha + 0.0001*math.Cos(float64(i)*1.3)
	}
	base := daily(append([]float64{0}, xs...)...)
	x = models.Series{Dates: base.Dates[1:], Values: xs}
	y = models.Series{Dates: base.Dates[1:], Values: ys}
	return y, x
}

func TestBetaRecoversSlope(t *testing.T) {
	y, x := noisyPair(120, 0.8, 0.0002)
	res, err := Beta(y, x)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !almostEqual(res.Beta, 0.8, 0.01) {
		t.Fatalf("beta = %.4f, want ~0.8", res.Beta)
	}
	if !almostEqual(res.Alpha, 0.0002*TradingDaysPerYear, 0.01) {
		t.Fatalf("alpha = %.4f, want ~%.4f", res.Alpha, 0.0002*TradingDaysPerYear)
	}
	if res.PValue >= 0.05 || !res.Significant {
		t.Fatalf("a strong linear relation should be significant, p = %.6f", res.PValue)
	}
	if res.Observations != 120 {
		t.Fatalf("observations = %d, want 120", res.Observations)
	}
}

func TestBetaBounds(t *testing.T) {
	y, x := noisyPair(90, -1.4, 0)
	res, err := Beta(y, x)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Correlation < -1 || res.Correlation > 1 {
		t.Fatalf("correlation out of bounds: %.6f", res.Correlation)
	}
	if res.RSquared < 0 || res.RSquared > 1 {
		t.Fatalf("r_squared out of bounds: %.6f", res.RSquared)
	}
	if !almostEqual(res.RSquared, res.Correlation*res.Correlation, 1e-6) {
		t.Fatalf("r_squared %.8f != correlation^2 %.8f", res.RSquared, res.Correlation*res.Correlation)
	}
	if res.PValue < 0 || res.PValue > 1 {
		t.Fatalf("p_value out of bounds: %.6f", res.PValue)
	}
}

func TestBetaInsufficientData(t *testing.T) {
	y, x := noisyPair(MinRegressionObs-1, 1, 0)
	if _, err := Beta(y, x); !errors.Is(err, ErrInsufficientData) {
		t.Fatalf("expected ErrInsufficientData, got %v", err)
	}
}

func TestBetaInnerJoinsDates(t *testing.T) {
	y, x := noisyPair(80, 0.5, 0)
	// Knock out the first 10 dates of y; the fit must use the 70 common ones.
	y = models.Series{Dates: y.Dates[10:], Values: y.Values[10:]}
	res, err := Beta(y, x)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Observations != 70 {
		t.Fatalf("observations = %d, want 70", res.Observations)
	}
}

func TestRollingCorrelation(t *testing.T) {
	base, x := noisyPair(60, 1, 0)
	returns := map[string]models.ReturnSeries{
		"EURUSD=X": x,
		"SPY":      base,
	}
	out, err := RollingCorrelation(returns, "EURUSD=X", 20)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	spy, ok := out["SPY"]
	if !ok {
		t.Fatalf("missing SPY column")
	}
	if spy.Len() != 60-20+1 {
		t.Fatalf("rolling corr length = %d, want %d", spy.Len(), 60-20+1)
	}
	for i, v := range spy.Values {
		if v < -1-1e-9 || v > 1+1e-9 {
			t.Fatalf("correlation[%d] out of bounds: %.6f", i, v)
		}
	}
	if _, ok := out["EURUSD=X"]; ok {
		t.Fatalf("base column must not correlate with itself")
	}
}

func TestRollingCorrelationSkipsShortColumn(t *testing.T) {
	base, x := noisyPair(60, 1, 0)
	short := models.Series{Dates: base.Dates[:10], Values: base.Values[:10]}
	returns := map[string]models.ReturnSeries{
		"EURUSD=X": x,
		"SPY":      base,
		"GLD":      short,
	}
	out, err := RollingCorrelation(returns, "EURUSD=X", 20)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := out["SPY"]; !ok {
		t.Fatal("SPY dropped alongside the short column")
	}
	if _, ok := out["GLD"]; ok {
		t.Fatal("GLD has too few overlapping observations for the window")
	}
}

func TestRollingCorrelationErrors(t *testing.T) {
	_, x := noisyPair(10, 1, 0)
	returns := map[string]models.ReturnSeries{"EURUSD=X": x, "SPY": x}
	if _, err := RollingCorrelation(returns, "GLD", 5); !errors.Is(err, ErrBadData) {
		t.Fatalf("missing base: expected ErrBadData, got %v", err)
	}
	if _, err := RollingCorrelation(returns, "EURUSD=X", 30); !errors.Is(err, ErrInsufficientData) {
		t.Fatalf("window larger than data: expected ErrInsufficientData, got %v", err)
	}
}

func TestSummarizeCorrelation(t *testing.T) {
	stats := SummarizeCorrelation(daily(0.2, 0.6, -0.1, 0.3))
	if !almostEqual(stats.Mean, 0.25, 1e-9) {
		t.Fatalf("mean = %.4f, want 0.25", stats.Mean)
	}
	if !almostEqual(stats.Min, -0.1, 1e-9) || !almostEqual(stats.Max, 0.6, 1e-9) {
		t.Fatalf("min/max = %.4f/%.4f", stats.Min, stats.Max)
	}
	if !almostEqual(stats.Latest, 0.3, 1e-9) {
		t.Fatalf("latest = %.4f, want 0.3", stats.Latest)
	}
}
