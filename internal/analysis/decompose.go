package analysis

import (
	"errors"
	"fmt"
	"math"
	"time"

	"fximpact/internal/domain/models"
)

// selfCheckTol is the relative tolerance for the multiplicative identity
// (1+ret_asset) * fx_start/fx_end == 1+ret_eur.
const selfCheckTol = 1e-4

// Decompose splits the Euro-denominated return of a USD asset over
// [start, end] into the asset's own return and the currency effect. The FX
// rate is the conventional EUR/USD quote (USD per EUR), so the asset price
// in EUR is price_usd / fx. The identity is exact, not a linear
// approximation; a failing self-check is a logic error, never returned
// silently.
func Decompose(assetPrices, fxRate models.PriceSeries, start, end time.Time) (*models.DecompositionResult, error) {
	asset := assetPrices.Window(start, end)
	fx := fxRate.Window(start, end)

	if asset.Len() < 2 || fx.Len() < 2 {
		return nil, fmt.Errorf("decompose: window [%s, %s] has %d asset / %d fx observations: %w",
			start.Format("2006-01-02"), end.Format("2006-01-02"), asset.Len(), fx.Len(), ErrNotComputable)
	}
	if asset.Len() != fx.Len() {
		return nil, fmt.Errorf("decompose: asset and fx not aligned (%d vs %d rows): %w", asset.Len(), fx.Len(), ErrBadData)
	}

	fxStart, fxEnd := fx.First(), fx.Last()
	if fxStart <= 0 || fxEnd <= 0 || math.IsNaN(fxStart) || math.IsNaN(fxEnd) {
		return nil, fmt.Errorf("decompose: fx rate %.6f -> %.6f is zero or missing: %w", fxStart, fxEnd, ErrBadData)
	}
	pStart, pEnd := asset.First(), asset.Last()
	if pStart <= 0 || pEnd <= 0 {
		return nil, fmt.Errorf("decompose: non-positive asset price: %w", ErrBadData)
	}

	retAsset := pEnd/pStart - 1
	fxChange := fxEnd/fxStart - 1

	// EUR return comes from realized EUR prices, not algebra, so rounding
	// does not compound.
	priceEURStart := pStart / fxStart
	priceEUREnd := pEnd / fxEnd
	retEUR := priceEUREnd/priceEURStart - 1

	derived := (1+retAsset)*(fxStart/fxEnd) - 1
	if relDiff(1+derived, 1+retEUR) > selfCheckTol {
		return nil, fmt.Errorf("decompose: derived eur return %.8f vs realized %.8f: %w", derived, retEUR, ErrInvariant)
	}

	return &models.DecompositionResult{
		Start:             asset.Dates[0],
		End:               asset.Dates[asset.Len()-1],
		Observations:      asset.Len(),
		AssetReturnPct:    retAsset * 100,
		FXChangePct:       fxChange * 100,
		FXEffectPct:       (retEUR - retAsset) * 100,
		TotalReturnEURPct: retEUR * 100,
	}, nil
}

// AnnualBreakdown re-runs Decompose once per calendar year present in the
// aligned date index, bounded by each year's first and last observation.
// Years with fewer than 2 observations are skipped, not zero-filled.
func AnnualBreakdown(assetPrices, fxRate models.PriceSeries, start, end time.Time) ([]models.AnnualDecomposition, error) {
	window := assetPrices.Window(start, end)
	if window.Len() < 2 {
		return nil, fmt.Errorf("annual breakdown: %w", ErrNotComputable)
	}

	var out []models.AnnualDecomposition
	firstYear := window.Dates[0].Year()
	lastYear := window.Dates[window.Len()-1].Year()
	for year := firstYear; year <= lastYear; year++ {
		yearStart := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
		yearEnd := time.Date(year, time.December, 31, 23, 59, 59, 0, time.UTC)
		if yearStart.Before(start) {
			yearStart = start
		}
		if yearEnd.After(end) {
			yearEnd = end
		}
		res, err := Decompose(assetPrices, fxRate, yearStart, yearEnd)
		if err != nil {
			if isSkippableYear(err) {
				continue
			}
			return nil, fmt.Errorf("annual breakdown %d: %w", year, err)
		}
		out = append(out, models.AnnualDecomposition{Year: year, DecompositionResult: *res})
	}
	return out, nil
}

// RollingImpact computes the trailing w-day FX impact for every t >= w:
// the difference between the EUR-denominated and USD-denominated w-day
// returns, in percentage points. The leading w dates carry no value and are
// dropped.
func RollingImpact(assetPrices, fxRate models.PriceSeries, window int) (models.Series, error) {
	if window <= 0 {
		return models.Series{}, fmt.Errorf("rolling impact: window %d must be positive: %w", window, ErrBadData)
	}
	if assetPrices.Len() != fxRate.Len() {
		return models.Series{}, fmt.Errorf("rolling impact: asset and fx not aligned: %w", ErrBadData)
	}
	if assetPrices.Len() <= window {
		return models.Series{}, fmt.Errorf("rolling impact: window %d >= %d observations: %w", window, assetPrices.Len(), ErrInsufficientData)
	}

	n := assetPrices.Len() - window
	dates := make([]time.Time, n)
	values := make([]float64, n)
	for t := window; t < assetPrices.Len(); t++ {
		pNow, pThen := assetPrices.Values[t], assetPrices.Values[t-window]
		fxNow, fxThen := fxRate.Values[t], fxRate.Values[t-window]
		if pThen <= 0 || fxThen <= 0 || fxNow <= 0 {
			return models.Series{}, fmt.Errorf("rolling impact: degenerate price/fx at %s: %w", assetPrices.Dates[t].Format("2006-01-02"), ErrBadData)
		}
		retUSD := pNow/pThen - 1
		retEUR := (pNow/fxNow)/(pThen/fxThen) - 1
		dates[t-window] = assetPrices.Dates[t]
		values[t-window] = (retEUR - retUSD) * 100
	}
	return models.Series{Dates: dates, Values: values}, nil
}

func isSkippableYear(err error) bool {
	// A year inside the range with too few rows is skipped; anything else
	// propagates.
	return errors.Is(err, ErrNotComputable)
}

func relDiff(a, b float64) float64 {
	denom := math.Max(math.Abs(a), math.Abs(b))
	if denom == 0 {
		return 0
	}
	return math.Abs(a-b) / denom
}
