package analysis

import (
	"fmt"
	"math"
	"time"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"

	"fximpact/internal/domain/models"
)

// significanceLevel is the reporting convention for flagging a slope as
// statistically significant. Results are always returned; the flag is
// attached, never gating.
const significanceLevel = 0.05

// Beta fits ordinary least squares of asset (or portfolio) returns on FX
// returns: y = alpha_daily + beta*x. The two series are inner-joined on
// their dates first; fewer than MinRegressionObs overlapping observations is
// ErrInsufficientData, not a silent fit. Alpha is annualized by 252.
func Beta(assetReturns, fxReturns models.ReturnSeries) (*models.SensitivityResult, error) {
	ys, xs := innerJoin(assetReturns, fxReturns)
	n := len(xs)
	if n < MinRegressionObs {
		return nil, fmt.Errorf("beta: %d overlapping observations, need %d: %w", n, MinRegressionObs, ErrInsufficientData)
	}

	alphaDaily, beta := stat.LinearRegression(xs, ys, nil, false)
	corr := stat.Correlation(xs, ys, nil)
	r2 := corr * corr

	pValue, err := slopePValue(xs, ys, alphaDaily, beta)
	if err != nil {
		return nil, fmt.Errorf("beta: %w", err)
	}

	return &models.SensitivityResult{
		Beta:         beta,
		Alpha:        alphaDaily * TradingDaysPerYear,
		RSquared:     r2,
		PValue:       pValue,
		Correlation:  corr,
		Observations: n,
		Significant:  pValue < significanceLevel,
	}, nil
}

// slopePValue computes the two-sided p-value of the slope differing from
// zero, via the t statistic beta/se(beta) with n-2 degrees of freedom.
func slopePValue(xs, ys []float64, alpha, beta float64) (float64, error) {
	n := len(xs)
	xMean := stat.Mean(xs, nil)
	var sse, sxx float64
	for i := range xs {
		resid := ys[i] - alpha - beta*xs[i]
		sse += resid * resid
		dx := xs[i] - xMean
		sxx += dx * dx
	}
	if sxx == 0 {
		return 0, fmt.Errorf("regressor has zero variance: %w", ErrBadData)
	}
	mse := sse / float64(n-2)
	if mse == 0 {
		// Perfect fit: slope is trivially significant.
		return 0, nil
	}
	se := math.Sqrt(mse / sxx)
	t := math.Abs(beta / se)
	dist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: float64(n - 2)}
	return 2 * (1 - dist.CDF(t)), nil
}

// Correlation returns the plain Pearson correlation of two return series
// joined on their dates.
func Correlation(a, b models.ReturnSeries) (float64, error) {
	ys, xs := innerJoin(a, b)
	if len(xs) < MinRegressionObs {
		return 0, fmt.Errorf("correlation: %d overlapping observations, need %d: %w", len(xs), MinRegressionObs, ErrInsufficientData)
	}
	return stat.Correlation(xs, ys, nil), nil
}

// RollingCorrelation computes, for every non-base column, the Pearson
// correlation against the base column over a trailing window. The leading
// window-1 undefined values are dropped per column. Columns with fewer
// overlapping observations than the window are omitted; it is an error only
// when no column qualifies.
func RollingCorrelation(returns map[string]models.ReturnSeries, base string, window int) (map[string]models.Series, error) {
	baseSeries, ok := returns[base]
	if !ok {
		return nil, fmt.Errorf("rolling correlation: base instrument %q missing: %w", base, ErrBadData)
	}
	if window <= 1 {
		return nil, fmt.Errorf("rolling correlation: window %d must exceed 1: %w", window, ErrBadData)
	}

	out := make(map[string]models.Series, len(returns)-1)
	for name, s := range returns {
		if name == base {
			continue
		}
		ys, xs := innerJoin(s, baseSeries)
		dates := joinDates(s, baseSeries)
		if len(xs) < window {
			// One short column must not drop the others.
			continue
		}
		n := len(xs) - window + 1
		outDates := make([]time.Time, n)
		outValues := make([]float64, n)
		for t := window - 1; t < len(xs); t++ {
			outDates[t-window+1] = dates[t]
			outValues[t-window+1] = stat.Correlation(xs[t-window+1:t+1], ys[t-window+1:t+1], nil)
		}
		out[name] = models.Series{Dates: outDates, Values: outValues}
	}
	if len(out) == 0 && len(returns) > 1 {
		return nil, fmt.Errorf("rolling correlation: no column has %d overlapping observations with %s: %w", window, base, ErrInsufficientData)
	}
	return out, nil
}

// SummarizeCorrelation reduces a rolling-correlation series to its summary
// stats for the overview table.
func SummarizeCorrelation(s models.Series) models.CorrelationStats {
	stats := models.CorrelationStats{Min: math.Inf(1), Max: math.Inf(-1)}
	if s.Len() == 0 {
		return models.CorrelationStats{}
	}
	for _, v := range s.Values {
		stats.Min = math.Min(stats.Min, v)
		stats.Max = math.Max(stats.Max, v)
	}
	stats.Mean = stat.Mean(s.Values, nil)
	if s.Len() > 1 {
		stats.StdDev = stat.StdDev(s.Values, nil)
	}
	stats.Latest = s.Last()
	return stats
}

// innerJoin returns the value pairs (a, b) for dates present in both series.
func innerJoin(a, b models.ReturnSeries) (as, bs []float64) {
	bIdx := make(map[time.Time]float64, b.Len())
	for i, d := range b.Dates {
		bIdx[d] = b.Values[i]
	}
	for i, d := range a.Dates {
		if bv, ok := bIdx[d]; ok {
			as = append(as, a.Values[i])
			bs = append(bs, bv)
		}
	}
	return as, bs
}

// joinDates returns the common dates of two series in a's order.
func joinDates(a, b models.ReturnSeries) []time.Time {
	bIdx := make(map[time.Time]struct{}, b.Len())
	for _, d := range b.Dates {
		bIdx[d] = struct{}{}
	}
	var dates []time.Time
	for _, d := range a.Dates {
		if _, ok := bIdx[d]; ok {
			dates = append(dates, d)
		}
	}
	return dates
}
