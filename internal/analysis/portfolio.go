package analysis

import (
	"fmt"
	"time"

	"fximpact/internal/domain/models"
)

// PortfolioReturns combines per-asset return series into one weighted series.
// Only assets named in the weights participate; the sum of weights is not
// required to be 1 (a deviating total scales the result, which the caller
// warns about via Portfolio.SumWarning). All constituent series must share
// the same date index, which holds for returns derived from one aligned
// table.
func PortfolioReturns(returns map[string]models.ReturnSeries, portfolio models.Portfolio) (models.ReturnSeries, error) {
	if portfolio.IsEmpty() {
		return models.Series{}, fmt.Errorf("portfolio returns: %w", ErrNoPortfolio)
	}
	if err := portfolio.Validate(); err != nil {
		return models.Series{}, fmt.Errorf("portfolio returns: %w: %w", ErrBadData, err)
	}

	var dates []time.Time
	var acc []float64
	for ticker, w := range portfolio.Weights {
		s, ok := returns[ticker]
		if !ok {
			return models.Series{}, fmt.Errorf("portfolio returns: no return series for %s: %w", ticker, ErrBadData)
		}
		if dates == nil {
			dates = s.Dates
			acc = make([]float64, s.Len())
		} else if s.Len() != len(acc) {
			return models.Series{}, fmt.Errorf("portfolio returns: %s not aligned (%d vs %d rows): %w", ticker, s.Len(), len(acc), ErrBadData)
		}
		for i, r := range s.Values {
			acc[i] += w * r
		}
	}
	return models.Series{Dates: dates, Values: acc}, nil
}

// CompoundToLevels reconstructs a price level series from simple returns,
// starting at base on the day before the first return. The result has one
// more observation than the input, mirroring how Returns drops one. This is
// how a weighted portfolio is fed back through the decomposition engine: a
// synthetic USD price level whose EUR counterpart is level/fx.
func CompoundToLevels(returns models.ReturnSeries, firstDate time.Time, base float64) (models.PriceSeries, error) {
	if returns.Len() == 0 {
		return models.Series{}, fmt.Errorf("compound: empty return series: %w", ErrNotComputable)
	}
	if base <= 0 {
		return models.Series{}, fmt.Errorf("compound: non-positive base %.6f: %w", base, ErrBadData)
	}
	if !firstDate.Before(returns.Dates[0]) {
		return models.Series{}, fmt.Errorf("compound: base date %s not before first return date %s: %w",
			firstDate.Format("2006-01-02"), returns.Dates[0].Format("2006-01-02"), ErrBadData)
	}

	dates := make([]time.Time, returns.Len()+1)
	values := make([]float64, returns.Len()+1)
	dates[0] = firstDate
	values[0] = base
	level := base
	for i, r := range returns.Values {
		level *= 1 + r
		if level <= 0 {
			return models.Series{}, fmt.Errorf("compound: level went non-positive at %s: %w", returns.Dates[i].Format("2006-01-02"), ErrBadData)
		}
		dates[i+1] = returns.Dates[i]
		values[i+1] = level
	}
	return models.Series{Dates: dates, Values: values}, nil
}
