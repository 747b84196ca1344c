package di

import (
	"fmt"

	"fximpact/internal/domain/repository"
	"fximpact/internal/handler/api"
	"fximpact/internal/service/yahoo"
	"fximpact/internal/usecase"
	"fximpact/pkg/cache"
	"fximpact/pkg/config"
	xhttp "fximpact/pkg/http"
	applogger "fximpact/pkg/logger"
	"fximpact/pkg/metrics"
	"fximpact/pkg/server"
)

// ProvideLogger creates the application logger from config.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	l, err := applogger.New(&applogger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return l, nil
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	return metrics.New()
}

// ProvideCache builds the fetch cache: in-process memory always, layered
// over redis when configured.
func ProvideCache(cfg *config.Config) (cache.Service, error) {
	memOpts := []cache.MemoryOption{}
	if cfg.Cache.MemoryMax > 0 {
		memOpts = append(memOpts, cache.WithMemoryMaxSize(cfg.Cache.MemoryMax))
	}

	if !cfg.Cache.Redis.Enabled {
		return cache.NewMemoryCache(memOpts...), nil
	}

	rc, err := cache.NewRedisCache(
		cache.WithRedisAddr(cfg.Cache.Redis.Addr),
		cache.WithRedisPassword(cfg.Cache.Redis.Password),
		cache.WithRedisDB(cfg.Cache.Redis.DB),
	)
	if err != nil {
		return nil, fmt.Errorf("redis cache: %w", err)
	}
	return cache.NewLayeredCache(rc, memOpts...), nil
}

// ProvidePriceSource creates the Yahoo Finance client.
func ProvidePriceSource(cfg *config.Config, m repository.Metrics, l *applogger.Logger) repository.PriceSource {
	return yahoo.New(yahoo.Config{
		Hosts:       cfg.MarketData.Hosts,
		UserAgent:   cfg.MarketData.UserAgent,
		Timeout:     cfg.MarketData.Timeout.Std(),
		MaxAttempts: cfg.MarketData.MaxAttempts,
		BackoffMin:  cfg.MarketData.BackoffMin.Std(),
		BackoffMax:  cfg.MarketData.BackoffMax.Std(),
		MaxRPS:      cfg.MarketData.MaxRPS,
	}, m, l)
}

// ProvideAnalyzer creates the pipeline use case.
func ProvideAnalyzer(src repository.PriceSource, c cache.Service, m repository.Metrics, l *applogger.Logger, cfg *config.Config) *usecase.Analyzer {
	return usecase.NewAnalyzer(src, c, m, l, usecase.AnalyzerConfig{
		FXSymbol:     cfg.Analysis.FXSymbol,
		CacheTTL:     cfg.Cache.TTL.Std(),
		Timeout:      cfg.Analysis.Timeout.Std(),
		DefaultMoves: cfg.Analysis.DefaultMoves,
	})
}

// ProvideHandler creates the Echo route handler.
func ProvideHandler(l *applogger.Logger, analyzer *usecase.Analyzer, cfg *config.Config) xhttp.Handler {
	return api.NewAnalysisHandler(l, analyzer, cfg.Analysis.Assets, cfg.Analysis.FXSymbol, cfg.Analysis.Lookback.Std())
}

// ProvideApp creates the application server.
func ProvideApp(cfg *config.Config, l *applogger.Logger, handler xhttp.Handler, c cache.Service) *server.App {
	return server.New(cfg, l, handler, c)
}
