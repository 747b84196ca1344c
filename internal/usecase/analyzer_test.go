package usecase

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"
	"testing"
	"time"

	"fximpact/internal/analysis"
	"fximpact/internal/domain/models"
	"fximpact/pkg/cache"
	applogger "fximpact/pkg/logger"
)

const fxSym = "EURUSD=X"

type stubSource struct {
	mu     sync.Mutex
	calls  map[string]int
	series map[string]models.PriceSeries
	errs   map[string]error
}

func (s *stubSource) DailyCloses(_ context.Context, ticker string, _, _ time.Time) (models.PriceSeries, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.calls == nil {
		s.calls = map[string]int{}
	}
	s.calls[ticker]++
	if err, ok := s.errs[ticker]; ok {
		return models.Series{}, err
	}
	ps, ok := s.series[ticker]
	if !ok {
		return models.Series{}, fmt.Errorf("no stub series for %s", ticker)
	}
	return ps, nil
}

func (s *stubSource) callCount(ticker string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[ticker]
}

type nopMetrics struct{}

func (nopMetrics) RecordFetch(string, string)     {}
func (nopMetrics) RecordCache(string)             {}
func (nopMetrics) RecordAnalysis(string, float64) {}
func (nopMetrics) RecordError(string)             {}

// synthetic daily series: n weekdays from start, value = f(i)
func synth(start time.Time, n int, f func(i int) float64) models.PriceSeries {
	dates := make([]time.Time, 0, n)
	values := make([]float64, 0, n)
	d := start
	for len(dates) < n {
		if wd := d.Weekday(); wd != time.Saturday && wd != time.Sunday {
			dates = append(dates, d)
			values = append(values, f(len(dates)-1))
		}
		d = d.AddDate(0, 0, 1)
	}
	return models.Series{Dates: dates, Values: values}
}

func testAnalyzer(t *testing.T, src *stubSource) *Analyzer {
	t.Helper()
	l, err := applogger.New(&applogger.Config{Level: "error", Format: "json", Output: "stdout"})
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	return NewAnalyzer(src, cache.NewMemoryCache(), nopMetrics{}, l, AnalyzerConfig{
		FXSymbol: fxSym,
		CacheTTL: time.Minute,
		Timeout:  10 * time.Second,
	})
}

func baseRequest(start time.Time, n int) models.AnalysisRequest {
	return models.AnalysisRequest{
		Start:  start,
		End:    start.AddDate(0, 0, n*2),
		Assets: []string{"SPY", "GLD"},
		Method: models.ReturnSimple,
		Window: 20,
	}
}

func TestAnalyze(t *testing.T) {
	start := time.Date(2023, 1, 2, 0, 0, 0, 0, time.UTC)
	n := 120
	src := &stubSource{series: map[string]models.PriceSeries{
		"SPY": synth(start, n, func(i int) float64 { return 100 * math.Pow(1.001, float64(i)) }),
		"GLD": synth(start, n, func(i int) float64 { return 180 + 0.1*float64(i) + 2*math.Sin(float64(i)/5) }),
		fxSym: synth(start, n, func(i int) float64 { return 1.10 - 0.0005*float64(i) }),
	}}

	a := testAnalyzer(t, src)
	req := baseRequest(start, n)
	req.Weights = map[string]float64{"SPY": 0.6, "GLD": 0.4}

	report, err := a.Analyze(context.Background(), req)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}

	if report.AlignedRows != n {
		t.Fatalf("aligned rows = %d, want %d", report.AlignedRows, n)
	}
	if len(report.Assets) != 2 {
		t.Fatalf("assets = %d, want 2", len(report.Assets))
	}
	if report.Assets[0].Ticker != "SPY" || report.Assets[1].Ticker != "GLD" {
		t.Fatalf("asset order = %s, %s", report.Assets[0].Ticker, report.Assets[1].Ticker)
	}
	if report.Errors != nil {
		t.Fatalf("unexpected errors: %v", report.Errors)
	}

	// FX snapshot reflects the declining synthetic rate.
	if report.FX.Rate >= 1.10 {
		t.Fatalf("fx rate = %v, want < 1.10", report.FX.Rate)
	}
	if report.FX.ChangePct >= 0 {
		t.Fatalf("fx change = %v, want negative", report.FX.ChangePct)
	}
	fxRet, err := analysis.Returns(src.series[fxSym], req.Method)
	if err != nil {
		t.Fatalf("fx returns: %v", err)
	}
	if want := analysis.AnnualizedVol(fxRet); math.Abs(report.FX.AnnualizedVol-want) > 1e-9 {
		t.Fatalf("fx annualized vol = %v, want %v", report.FX.AnnualizedVol, want)
	}
	// AnnualizedVol is already percent; this gentle drift stays in single digits.
	if report.FX.AnnualizedVol <= 0 || report.FX.AnnualizedVol >= 100 {
		t.Fatalf("fx annualized vol = %v, want percent scale", report.FX.AnnualizedVol)
	}

	// Decomposition identity per asset: ret_eur == ret_usd + fx_effect.
	for _, ar := range report.Assets {
		if ar.Decomposition == nil {
			t.Fatalf("%s: nil decomposition", ar.Ticker)
		}
		d := ar.Decomposition
		if diff := math.Abs(d.TotalReturnEURPct - d.AssetReturnPct - d.FXEffectPct); diff > 1e-9 {
			t.Fatalf("%s: additive identity off by %v", ar.Ticker, diff)
		}
		// Euro weakened against the dollar, so the FX effect is positive
		// for a Euro investor holding USD assets.
		if d.FXEffectPct <= 0 {
			t.Fatalf("%s: fx effect = %v, want positive", ar.Ticker, d.FXEffectPct)
		}
		if ar.Sensitivity == nil || ar.Performance == nil || ar.RollingImpact == nil {
			t.Fatalf("%s: missing section", ar.Ticker)
		}
	}

	// Rolling correlation excludes the FX column itself.
	if _, ok := report.RollingCorr[fxSym]; ok {
		t.Fatal("rolling correlation includes fx base column")
	}
	if len(report.RollingCorr) != 2 {
		t.Fatalf("rolling corr columns = %d, want 2", len(report.RollingCorr))
	}
	for name, s := range report.RollingCorr {
		stats, ok := report.CorrStats[name]
		if !ok {
			t.Fatalf("no corr stats for %s", name)
		}
		if stats.Latest != s.Values[s.Len()-1] {
			t.Fatalf("%s: latest stat mismatch", name)
		}
	}

	// Portfolio section with default scenario grid.
	p := report.Portfolio
	if p == nil {
		t.Fatal("nil portfolio section")
	}
	if p.Decomposition == nil || p.Sensitivity == nil {
		t.Fatal("portfolio missing decomposition or sensitivity")
	}
	if len(p.Scenarios) != 6 {
		t.Fatalf("scenarios = %d, want default grid of 6", len(p.Scenarios))
	}
	for i := 1; i < len(p.Scenarios); i++ {
		if p.Scenarios[i].FXMovePct <= p.Scenarios[i-1].FXMovePct {
			t.Fatal("scenarios not ordered by move")
		}
	}
	if p.WeightWarning != "" {
		t.Fatalf("unexpected weight warning: %s", p.WeightWarning)
	}
}

func TestAnalyzePartialFailure(t *testing.T) {
	start := time.Date(2023, 1, 2, 0, 0, 0, 0, time.UTC)
	n := 90
	src := &stubSource{
		series: map[string]models.PriceSeries{
			"SPY": synth(start, n, func(i int) float64 { return 100 + float64(i) }),
			fxSym: synth(start, n, func(i int) float64 { return 1.08 + 0.0002*float64(i) }),
		},
		errs: map[string]error{"BAD": errors.New("upstream says no")},
	}

	a := testAnalyzer(t, src)
	req := baseRequest(start, n)
	req.Assets = []string{"SPY", "BAD"}

	report, err := a.Analyze(context.Background(), req)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if len(report.Assets) != 1 || report.Assets[0].Ticker != "SPY" {
		t.Fatalf("assets = %v", report.Assets)
	}
	if msg, ok := report.Errors["BAD"]; !ok || !strings.Contains(msg, "upstream says no") {
		t.Fatalf("errors = %v, want BAD entry", report.Errors)
	}
}

func TestPortfolioScenariosSkippedWithoutDecomposition(t *testing.T) {
	start := time.Date(2023, 1, 2, 0, 0, 0, 0, time.UTC)
	n := 60
	spy := synth(start, n, func(i int) float64 { return 100 * math.Pow(1.001, float64(i)) })
	fx := synth(start, n, func(i int) float64 { return 1.10 - 0.0005*float64(i) })
	table, err := models.Align(map[string]models.PriceSeries{"SPY": spy, fxSym: fx})
	if err != nil {
		t.Fatalf("align: %v", err)
	}

	// Request window past the data: the decomposition is not computable,
	// but the regression over the full series still fits.
	req := baseRequest(start, n)
	req.Start = start.AddDate(1, 0, 0)
	req.End = req.Start.AddDate(0, 0, 1)
	req.Weights = map[string]float64{"SPY": 1}

	a := testAnalyzer(t, &stubSource{series: map[string]models.PriceSeries{}})
	report := &models.AnalysisReport{Errors: map[string]string{}}
	a.portfolioSection(req, table, nil, fx, report)

	if report.Errors["portfolio.decomposition"] == "" {
		t.Fatalf("expected portfolio.decomposition error, got %v", report.Errors)
	}
	if report.Errors["portfolio.scenarios"] == "" {
		t.Fatalf("expected portfolio.scenarios error, got %v", report.Errors)
	}
	if report.Portfolio == nil || report.Portfolio.Sensitivity == nil {
		t.Fatal("sensitivity should still be fitted")
	}
	if len(report.Portfolio.Scenarios) != 0 {
		t.Fatalf("scenarios projected without a decomposition: %v", report.Portfolio.Scenarios)
	}
}

func TestAnalyzeFXFailureFatal(t *testing.T) {
	start := time.Date(2023, 1, 2, 0, 0, 0, 0, time.UTC)
	src := &stubSource{
		series: map[string]models.PriceSeries{
			"SPY": synth(start, 60, func(i int) float64 { return 100 + float64(i) }),
		},
		errs: map[string]error{fxSym: errors.New("fx down")},
	}

	a := testAnalyzer(t, src)
	if _, err := a.Analyze(context.Background(), baseRequest(start, 60)); err == nil {
		t.Fatal("expected error when fx series unavailable")
	}
}

func TestAnalyzeUsesCache(t *testing.T) {
	start := time.Date(2023, 1, 2, 0, 0, 0, 0, time.UTC)
	n := 90
	src := &stubSource{series: map[string]models.PriceSeries{
		"SPY": synth(start, n, func(i int) float64 { return 100 + float64(i) }),
		"GLD": synth(start, n, func(i int) float64 { return 180 + float64(i) }),
		fxSym: synth(start, n, func(i int) float64 { return 1.08 + 0.0001*float64(i) }),
	}}

	a := testAnalyzer(t, src)
	req := baseRequest(start, n)

	if _, err := a.Analyze(context.Background(), req); err != nil {
		t.Fatalf("first Analyze: %v", err)
	}
	if _, err := a.Analyze(context.Background(), req); err != nil {
		t.Fatalf("second Analyze: %v", err)
	}
	for _, ticker := range []string{"SPY", "GLD", fxSym} {
		if got := src.callCount(ticker); got != 1 {
			t.Fatalf("%s fetched %d times, want 1 (cache)", ticker, got)
		}
	}
}

func TestAnalyzeValidation(t *testing.T) {
	start := time.Date(2023, 1, 2, 0, 0, 0, 0, time.UTC)
	src := &stubSource{}
	a := testAnalyzer(t, src)

	cases := []struct {
		name string
		mod  func(*models.AnalysisRequest)
	}{
		{"end before start", func(r *models.AnalysisRequest) { r.End = r.Start.AddDate(0, 0, -1) }},
		{"no assets", func(r *models.AnalysisRequest) { r.Assets = nil }},
		{"tiny window", func(r *models.AnalysisRequest) { r.Window = 1 }},
		{"negative weight", func(r *models.AnalysisRequest) { r.Weights = map[string]float64{"SPY": -0.5} }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := baseRequest(start, 60)
			tc.mod(&req)
			if _, err := a.Analyze(context.Background(), req); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}
