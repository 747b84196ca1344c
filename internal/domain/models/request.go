package models

import "time"

// AnalysisRequest is the immutable description of one analysis run: date
// range, instrument set, return method, rolling window, portfolio weights,
// and scenario moves. Built once per request; the pipeline never mutates it.
type AnalysisRequest struct {
	Start   time.Time
	End     time.Time
	Assets  []string
	Method  ReturnMethod
	Window  int // rolling window in trading days
	Weights map[string]float64
	Moves   []float64 // hypothetical FX moves in percent
}

// Portfolio wraps the request weights.
func (r AnalysisRequest) Portfolio() Portfolio {
	return Portfolio{Weights: r.Weights}
}

// FXSnapshot summarizes the FX rate over the analysis window.
type FXSnapshot struct {
	Rate          float64 `json:"rate"`
	ChangePct     float64 `json:"change_pct"`
	AnnualizedVol float64 `json:"annualized_vol_pct"`
	Observations  int     `json:"observations"`
}

// AssetReport bundles every per-asset output of the pipeline.
type AssetReport struct {
	Ticker        string                `json:"ticker"`
	Decomposition *DecompositionResult  `json:"decomposition,omitempty"`
	Annual        []AnnualDecomposition `json:"annual,omitempty"`
	RollingImpact *Series               `json:"rolling_impact,omitempty"`
	Sensitivity   *SensitivityResult    `json:"sensitivity,omitempty"`
	Performance   *PerformanceStats     `json:"performance,omitempty"`
}

// PortfolioReport is the portfolio-level pass through the same pipeline.
type PortfolioReport struct {
	Weights       map[string]float64   `json:"weights"`
	WeightWarning string               `json:"weight_warning,omitempty"`
	Decomposition *DecompositionResult `json:"decomposition,omitempty"`
	Sensitivity   *SensitivityResult   `json:"sensitivity,omitempty"`
	Scenarios     ScenarioTable        `json:"scenarios,omitempty"`
}

// AnalysisReport is the full pipeline output handed to the presentation
// collaborator. Plain numbers only; formatting is not this layer's concern.
type AnalysisReport struct {
	Request      AnalysisRequestEcho          `json:"request"`
	FX           FXSnapshot                   `json:"fx"`
	Assets       []AssetReport                `json:"assets"`
	RollingCorr  map[string]Series            `json:"rolling_correlation,omitempty"`
	CorrStats    map[string]CorrelationStats  `json:"correlation_stats,omitempty"`
	Portfolio    *PortfolioReport             `json:"portfolio,omitempty"`
	Errors       map[string]string            `json:"errors,omitempty"`
	GeneratedAt  time.Time                    `json:"generated_at"`
	AlignedRows  int                          `json:"aligned_rows"`
}

// AnalysisRequestEcho mirrors the effective request back to the caller after
// defaults were applied.
type AnalysisRequestEcho struct {
	Start   string             `json:"start"`
	End     string             `json:"end"`
	Assets  []string           `json:"assets"`
	Method  ReturnMethod       `json:"method"`
	Window  int                `json:"window"`
	Weights map[string]float64 `json:"weights,omitempty"`
	Moves   []float64          `json:"moves,omitempty"`
}
