package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"fximpact/internal/analysis"
	"fximpact/internal/domain/models"
	drepo "fximpact/internal/domain/repository"
	"fximpact/pkg/cache"
	applogger "fximpact/pkg/logger"
)

const dateLayout = "2006-01-02"

// AnalyzerConfig tunes one Analyzer instance.
type AnalyzerConfig struct {
	FXSymbol     string
	CacheTTL     time.Duration
	Timeout      time.Duration
	DefaultMoves []float64
}

// Analyzer runs the full impact pipeline for one request: fetch and align
// price history, decompose returns per asset, fit FX sensitivities, aggregate
// the portfolio, and project scenarios. Per-asset failures are collected in
// the report's error map; only FX fetch and alignment failures abort a run.
type Analyzer struct {
	source  drepo.PriceSource
	cache   cache.Service
	metrics drepo.Metrics
	log     *applogger.Logger
	cfg     AnalyzerConfig
}

// NewAnalyzer wires an Analyzer.
func NewAnalyzer(source drepo.PriceSource, c cache.Service, m drepo.Metrics, l *applogger.Logger, cfg AnalyzerConfig) *Analyzer {
	if cfg.FXSymbol == "" {
		cfg.FXSymbol = "EURUSD=X"
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = time.Hour
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	if len(cfg.DefaultMoves) == 0 {
		cfg.DefaultMoves = []float64{-10, -5, -2, 2, 5, 10}
	}
	return &Analyzer{source: source, cache: c, metrics: m, log: l, cfg: cfg}
}

// Analyze produces the full report for one request.
func (a *Analyzer) Analyze(ctx context.Context, req models.AnalysisRequest) (*models.AnalysisReport, error) {
	ctx, cancel := context.WithTimeout(ctx, a.cfg.Timeout)
	defer cancel()

	started := time.Now()
	defer func() {
		a.metrics.RecordAnalysis("analyze", time.Since(started).Seconds())
	}()

	if err := a.validate(req); err != nil {
		return nil, err
	}
	if len(req.Moves) == 0 {
		req.Moves = a.cfg.DefaultMoves
	}

	report := &models.AnalysisReport{
		Request:     echoRequest(req),
		Errors:      map[string]string{},
		GeneratedAt: time.Now().UTC(),
	}

	prices := a.fetchAll(ctx, req, report.Errors)

	if _, ok := prices[a.cfg.FXSymbol]; !ok {
		a.metrics.RecordError("fx_unavailable")
		return nil, fmt.Errorf("analyze: fx series %s unavailable: %s", a.cfg.FXSymbol, report.Errors[a.cfg.FXSymbol])
	}
	if len(prices) == 1 {
		return nil, fmt.Errorf("analyze: no asset series fetched: %w", analysis.ErrBadData)
	}

	table, err := models.Align(prices)
	if err != nil {
		a.metrics.RecordError("align")
		return nil, fmt.Errorf("analyze: %w: %w", analysis.ErrNotComputable, err)
	}
	if table.Len() < 2 {
		return nil, fmt.Errorf("analyze: %d aligned rows: %w", table.Len(), analysis.ErrNotComputable)
	}
	report.AlignedRows = table.Len()

	fx, _ := table.Series(a.cfg.FXSymbol)

	snapshot, err := fxSnapshot(fx, req.Method)
	if err != nil {
		return nil, fmt.Errorf("analyze: fx snapshot: %w", err)
	}
	report.FX = *snapshot

	// Per-asset returns off the aligned table, method as requested.
	returns := make(map[string]models.ReturnSeries, len(table.Columns))
	for _, name := range table.Instruments() {
		s, _ := table.Series(name)
		r, err := analysis.Returns(s, req.Method)
		if err != nil {
			report.Errors[name] = err.Error()
			continue
		}
		returns[name] = r
	}
	fxReturns, ok := returns[a.cfg.FXSymbol]
	if !ok {
		return nil, fmt.Errorf("analyze: fx returns: %w", analysis.ErrNotComputable)
	}

	report.Assets = a.assetReports(ctx, req, table, returns, fxReturns, report.Errors)

	a.rollingCorrelations(req, returns, report)
	a.portfolioSection(req, table, returns, fx, report)

	if len(report.Errors) == 0 {
		report.Errors = nil
	}
	return report, nil
}

func (a *Analyzer) validate(req models.AnalysisRequest) error {
	if !req.End.After(req.Start) {
		return fmt.Errorf("analyze: end %s not after start %s: %w",
			req.End.Format(dateLayout), req.Start.Format(dateLayout), analysis.ErrBadData)
	}
	if len(req.Assets) == 0 {
		return fmt.Errorf("analyze: no assets requested: %w", analysis.ErrBadData)
	}
	if req.Window < 2 {
		return fmt.Errorf("analyze: window %d too small: %w", req.Window, analysis.ErrBadData)
	}
	return req.Portfolio().Validate()
}

// fetchAll pulls every requested asset plus the FX series, concurrently, with
// a shared TTL cache in front of the upstream source. Failures land in errs
// keyed by ticker.
func (a *Analyzer) fetchAll(ctx context.Context, req models.AnalysisRequest, errs map[string]string) map[string]models.PriceSeries {
	tickers := make([]string, 0, len(req.Assets)+1)
	tickers = append(tickers, a.cfg.FXSymbol)
	seen := map[string]bool{a.cfg.FXSymbol: true}
	for _, t := range req.Assets {
		if !seen[t] {
			tickers = append(tickers, t)
			seen[t] = true
		}
	}

	type item struct {
		ticker string
		series models.PriceSeries
		err    error
	}
	ch := make(chan item, len(tickers))
	var wg sync.WaitGroup

	for _, t := range tickers {
		wg.Add(1)
		go func(ticker string) {
			defer wg.Done()
			s, err := a.cachedCloses(ctx, ticker, req.Start, req.End)
			ch <- item{ticker, s, err}
		}(t)
	}
	go func() { wg.Wait(); close(ch) }()

	out := make(map[string]models.PriceSeries, len(tickers))
	for it := range ch {
		if it.err != nil {
			errs[it.ticker] = it.err.Error()
			a.log.Warn("price fetch failed",
				applogger.String("ticker", it.ticker),
				applogger.Error(it.err),
			)
			continue
		}
		out[it.ticker] = it.series
	}
	return out
}

type cachedSeries struct {
	Dates  []time.Time `json:"dates"`
	Values []float64   `json:"values"`
}

// cachedCloses serves daily closes through the cache. A short lock keeps
// concurrent requests for the same key from fetching upstream twice; a loser
// that cannot take the lock polls the cache briefly before falling through to
// its own fetch.
func (a *Analyzer) cachedCloses(ctx context.Context, ticker string, start, end time.Time) (models.PriceSeries, error) {
	key := cache.HashKey(cache.GenerateKeyWithParams("prices", ticker, start.Format(dateLayout), end.Format(dateLayout)))

	var cached cachedSeries
	if err := a.cache.Get(ctx, key, &cached); err == nil {
		a.metrics.RecordCache("hit")
		return models.Series{Dates: cached.Dates, Values: cached.Values}, nil
	}
	a.metrics.RecordCache("miss")

	lockKey := key + ":lock"
	locked, err := a.cache.TryLock(ctx, lockKey, 30*time.Second)
	if err != nil {
		a.log.Debug("cache lock error", applogger.String("ticker", ticker), applogger.Error(err))
	}
	if locked {
		defer func() { _ = a.cache.Unlock(context.WithoutCancel(ctx), lockKey) }()
	} else {
		for i := 0; i < 20; i++ {
			select {
			case <-ctx.Done():
				return models.Series{}, ctx.Err()
			case <-time.After(250 * time.Millisecond):
			}
			if err := a.cache.Get(ctx, key, &cached); err == nil {
				a.metrics.RecordCache("hit")
				return models.Series{Dates: cached.Dates, Values: cached.Values}, nil
			}
		}
	}

	series, err := a.source.DailyCloses(ctx, ticker, start, end)
	if err != nil {
		return models.Series{}, err
	}
	if err := a.cache.Set(ctx, key, cachedSeries{Dates: series.Dates, Values: series.Values}, a.cfg.CacheTTL); err != nil {
		a.log.Debug("cache set failed", applogger.String("ticker", ticker), applogger.Error(err))
	}
	return series, nil
}

// assetReports fans out the per-asset pipeline: decomposition, annual
// breakdown, rolling impact, sensitivity, performance. One bad asset never
// fails the run.
func (a *Analyzer) assetReports(ctx context.Context, req models.AnalysisRequest, table *models.AlignedPriceTable, returns map[string]models.ReturnSeries, fxReturns models.ReturnSeries, errs map[string]string) []models.AssetReport {
	fx, _ := table.Series(a.cfg.FXSymbol)

	type item struct {
		ticker string
		report models.AssetReport
		errs   map[string]string
	}
	ch := make(chan item, len(req.Assets))
	var wg sync.WaitGroup

	for _, t := range req.Assets {
		if t == a.cfg.FXSymbol {
			continue
		}
		prices, ok := table.Series(t)
		if !ok {
			continue // fetch already failed, recorded in errs
		}
		wg.Add(1)
		go func(ticker string, prices models.PriceSeries) {
			defer wg.Done()
			select {
			case <-ctx.Done():
				ch <- item{ticker, models.AssetReport{Ticker: ticker}, map[string]string{ticker: ctx.Err().Error()}}
				return
			default:
			}
			r, perrs := a.assetReport(ticker, prices, fx, returns[ticker], fxReturns, req)
			ch <- item{ticker, r, perrs}
		}(t, prices)
	}
	go func() { wg.Wait(); close(ch) }()

	byTicker := make(map[string]models.AssetReport)
	for it := range ch {
		byTicker[it.ticker] = it.report
		for k, v := range it.errs {
			errs[k] = v
		}
	}

	// Preserve request order.
	out := make([]models.AssetReport, 0, len(byTicker))
	emitted := map[string]bool{}
	for _, t := range req.Assets {
		if r, ok := byTicker[t]; ok && !emitted[t] {
			out = append(out, r)
			emitted[t] = true
		}
	}
	return out
}

func (a *Analyzer) assetReport(ticker string, prices, fx models.PriceSeries, assetReturns, fxReturns models.ReturnSeries, req models.AnalysisRequest) (models.AssetReport, map[string]string) {
	report := models.AssetReport{Ticker: ticker}
	errs := map[string]string{}

	if d, err := analysis.Decompose(prices, fx, req.Start, req.End); err != nil {
		errs[ticker+".decomposition"] = err.Error()
	} else {
		report.Decomposition = d
	}

	if annual, err := analysis.AnnualBreakdown(prices, fx, req.Start, req.End); err != nil {
		errs[ticker+".annual"] = err.Error()
	} else {
		report.Annual = annual
	}

	if rolling, err := analysis.RollingImpact(prices, fx, req.Window); err != nil {
		errs[ticker+".rolling_impact"] = err.Error()
	} else {
		report.RollingImpact = &rolling
	}

	if assetReturns.Len() > 0 {
		if sens, err := analysis.Beta(assetReturns, fxReturns); err != nil {
			errs[ticker+".sensitivity"] = err.Error()
		} else {
			report.Sensitivity = sens
		}
	}

	if perf, err := analysis.Performance(prices, req.Method); err != nil {
		errs[ticker+".performance"] = err.Error()
	} else {
		report.Performance = perf
	}

	return report, errs
}

func (a *Analyzer) rollingCorrelations(req models.AnalysisRequest, returns map[string]models.ReturnSeries, report *models.AnalysisReport) {
	rolling, err := analysis.RollingCorrelation(returns, a.cfg.FXSymbol, req.Window)
	if err != nil {
		report.Errors["rolling_correlation"] = err.Error()
		return
	}
	report.RollingCorr = rolling

	stats := make(map[string]models.CorrelationStats, len(rolling))
	for name, s := range rolling {
		stats[name] = analysis.SummarizeCorrelation(s)
	}
	report.CorrStats = stats
}

// portfolioSection runs the weighted portfolio through the same decomposition
// engine. Weighted simple returns are compounded back into a synthetic USD
// price level so the multiplicative identity holds exactly; sensitivity and
// scenarios come from the same weighted series.
func (a *Analyzer) portfolioSection(req models.AnalysisRequest, table *models.AlignedPriceTable, returns map[string]models.ReturnSeries, fx models.PriceSeries, report *models.AnalysisReport) {
	portfolio := req.Portfolio()
	if portfolio.IsEmpty() {
		return
	}

	section := &models.PortfolioReport{
		Weights:       portfolio.Weights,
		WeightWarning: portfolio.SumWarning(),
	}
	report.Portfolio = section

	// Weighted aggregation is only meaningful on simple returns, regardless
	// of the requested method.
	simple := make(map[string]models.ReturnSeries, len(portfolio.Weights))
	for ticker := range portfolio.Weights {
		s, ok := table.Series(ticker)
		if !ok {
			report.Errors["portfolio"] = fmt.Sprintf("no price series for weighted asset %s", ticker)
			return
		}
		r, err := analysis.Returns(s, models.ReturnSimple)
		if err != nil {
			report.Errors["portfolio"] = fmt.Sprintf("returns for %s: %v", ticker, err)
			return
		}
		simple[ticker] = r
	}

	weighted, err := analysis.PortfolioReturns(simple, portfolio)
	if err != nil {
		report.Errors["portfolio"] = err.Error()
		return
	}

	levels, err := analysis.CompoundToLevels(weighted, table.Dates[0], 100)
	if err != nil {
		report.Errors["portfolio"] = err.Error()
		return
	}

	if d, err := analysis.Decompose(levels, fx, req.Start, req.End); err != nil {
		report.Errors["portfolio.decomposition"] = err.Error()
	} else {
		section.Decomposition = d
	}

	fxSimple, err := analysis.Returns(fx, models.ReturnSimple)
	if err != nil {
		report.Errors["portfolio.sensitivity"] = err.Error()
		return
	}
	sens, err := analysis.Beta(weighted, fxSimple)
	if err != nil {
		report.Errors["portfolio.sensitivity"] = err.Error()
		return
	}
	section.Sensitivity = sens

	// Scenarios extrapolate from the realized portfolio return; without a
	// decomposition there is nothing to project from.
	if section.Decomposition == nil {
		report.Errors["portfolio.scenarios"] = fmt.Sprintf("portfolio scenarios: no decomposition to project from: %v", analysis.ErrNotComputable)
		return
	}
	scenarios, err := analysis.ProjectScenarios(sens, section.Decomposition.AssetReturnPct, req.Moves)
	if err != nil {
		report.Errors["portfolio.scenarios"] = err.Error()
		return
	}
	section.Scenarios = scenarios
}

func fxSnapshot(fx models.PriceSeries, method models.ReturnMethod) (*models.FXSnapshot, error) {
	if fx.Len() < 2 {
		return nil, fmt.Errorf("fx snapshot: %d observations: %w", fx.Len(), analysis.ErrNotComputable)
	}
	r, err := analysis.Returns(fx, method)
	if err != nil {
		return nil, err
	}
	return &models.FXSnapshot{
		Rate:          fx.Last(),
		ChangePct:     (fx.Last()/fx.First() - 1) * 100,
		AnnualizedVol: analysis.AnnualizedVol(r),
		Observations:  fx.Len(),
	}, nil
}

func echoRequest(req models.AnalysisRequest) models.AnalysisRequestEcho {
	return models.AnalysisRequestEcho{
		Start:   req.Start.Format(dateLayout),
		End:     req.End.Format(dateLayout),
		Assets:  req.Assets,
		Method:  req.Method,
		Window:  req.Window,
		Weights: req.Weights,
		Moves:   req.Moves,
	}
}
