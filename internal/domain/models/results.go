package models

import "time"

// ReturnMethod selects the period-return transform.
type ReturnMethod string

const (
	ReturnLog    ReturnMethod = "log"
	ReturnSimple ReturnMethod = "simple"
)

// DecompositionResult is the exact multiplicative split of a Euro investor's
// return on a USD asset. All fields are percentages. FXEffectPct is in
// percentage points: TotalReturnEURPct - AssetReturnPct.
type DecompositionResult struct {
	Start             time.Time `json:"start"`
	End               time.Time `json:"end"`
	Observations      int       `json:"observations"`
	AssetReturnPct    float64   `json:"asset_return_pct"`
	FXChangePct       float64   `json:"fx_change_pct"`
	FXEffectPct       float64   `json:"fx_effect_pct"`
	TotalReturnEURPct float64   `json:"total_return_eur_pct"`
}

// AnnualDecomposition is one calendar year's decomposition, bounded by the
// first and last observation inside that year.
type AnnualDecomposition struct {
	Year int `json:"year"`
	DecompositionResult
}

// SensitivityResult is the OLS fit of asset (or portfolio) returns against FX
// returns, plus the plain Pearson correlation.
type SensitivityResult struct {
	Beta         float64 `json:"beta"`
	Alpha        float64 `json:"alpha"` // daily intercept annualized by 252
	RSquared     float64 `json:"r_squared"`
	PValue       float64 `json:"p_value"`
	Correlation  float64 `json:"correlation"`
	Observations int     `json:"observations"`
	Significant  bool    `json:"significant"` // p < 0.05 reporting convention
}

// ScenarioRow projects the impact of one hypothetical FX move from a fitted
// beta. Linear extrapolation, not an exact decomposition.
type ScenarioRow struct {
	FXMovePct          float64 `json:"fx_move_pct"`
	ProjectedEffectPct float64 `json:"projected_effect_pct"`
	ProjectedTotalPct  float64 `json:"projected_total_pct"`
}

// ScenarioTable is ordered by FX move, smallest first.
type ScenarioTable []ScenarioRow

// PerformanceStats summarizes one instrument over the analysis window.
type PerformanceStats struct {
	TotalReturnPct  float64 `json:"total_return_pct"`
	AnnualizedVol   float64 `json:"annualized_vol_pct"`
	Sharpe          float64 `json:"sharpe"`
	Observations    int     `json:"observations"`
	CumulativeIndex Series  `json:"cumulative_index"`
}

// CorrelationStats summarizes a rolling-correlation series.
type CorrelationStats struct {
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"std"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Latest float64 `json:"latest"`
}
