package analysis

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"

	"fximpact/internal/domain/models"
)

// TradingDaysPerYear is the annualization convention for daily data.
const TradingDaysPerYear = 252

// Returns derives period returns from a price series. Log method computes
// r_t = ln(p_t/p_{t-1}), simple computes r_t = p_t/p_{t-1} - 1. The output
// is one element shorter than the input; the first return is dated at the
// second price observation.
func Returns(prices models.PriceSeries, method models.ReturnMethod) (models.ReturnSeries, error) {
	if prices.Len() < 2 {
		return models.Series{}, fmt.Errorf("returns: need at least 2 prices, have %d: %w", prices.Len(), ErrNotComputable)
	}
	for i, p := range prices.Values {
		if p <= 0 || math.IsNaN(p) {
			return models.Series{}, fmt.Errorf("returns: non-positive price %.6f at %s: %w", p, prices.Dates[i].Format("2006-01-02"), ErrBadData)
		}
	}

	out := make([]float64, prices.Len()-1)
	for i := 1; i < prices.Len(); i++ {
		ratio := prices.Values[i] / prices.Values[i-1]
		switch method {
		case models.ReturnLog:
			out[i-1] = math.Log(ratio)
		case models.ReturnSimple:
			out[i-1] = ratio - 1
		default:
			return models.Series{}, fmt.Errorf("returns: unknown method %q: %w", method, ErrBadData)
		}
	}
	return models.Series{Dates: prices.Dates[1:], Values: out}, nil
}

// CumulativeIndex rebases a price series to 100 at its first observation.
func CumulativeIndex(prices models.PriceSeries) (models.Series, error) {
	if prices.Len() == 0 {
		return models.Series{}, fmt.Errorf("cumulative index: empty series: %w", ErrBadData)
	}
	base := prices.First()
	if base <= 0 {
		return models.Series{}, fmt.Errorf("cumulative index: non-positive base price %.6f: %w", base, ErrBadData)
	}
	out := make([]float64, prices.Len())
	for i, p := range prices.Values {
		out[i] = p / base * 100
	}
	return models.Series{Dates: prices.Dates, Values: out}, nil
}

// Performance computes total return, annualized volatility, and Sharpe over
// the whole series. The Sharpe here is the plain ratio of period return to
// annualized vol, matching the dashboard it feeds.
func Performance(prices models.PriceSeries, method models.ReturnMethod) (*models.PerformanceStats, error) {
	rets, err := Returns(prices, method)
	if err != nil {
		return nil, err
	}
	index, err := CumulativeIndex(prices)
	if err != nil {
		return nil, err
	}

	totalPct := (prices.Last()/prices.First() - 1) * 100
	volPct := stat.StdDev(rets.Values, nil) * math.Sqrt(TradingDaysPerYear) * 100
	sharpe := 0.0
	if volPct > 0 {
		sharpe = totalPct / volPct
	}
	return &models.PerformanceStats{
		TotalReturnPct:  totalPct,
		AnnualizedVol:   volPct,
		Sharpe:          sharpe,
		Observations:    prices.Len(),
		CumulativeIndex: index,
	}, nil
}

// AnnualizedVol returns the annualized standard deviation of a return
// series, in percent.
func AnnualizedVol(returns models.ReturnSeries) float64 {
	if returns.Len() < 2 {
		return 0
	}
	return stat.StdDev(returns.Values, nil) * math.Sqrt(TradingDaysPerYear) * 100
}
