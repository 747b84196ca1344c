package repository

import (
	"context"
	"time"

	"fximpact/internal/domain/models"
)

// PriceSource fetches daily closing prices for one instrument over a closed
// date range. Implementations own retries, host failover, and rate limiting;
// the core never talks to the network.
type PriceSource interface {
	DailyCloses(ctx context.Context, ticker string, start, end time.Time) (models.PriceSeries, error)
}

// Metrics records operational counters for the pipeline.
type Metrics interface {
	RecordFetch(ticker, outcome string)
	RecordCache(outcome string) // "hit" or "miss"
	RecordAnalysis(op string, seconds float64)
	RecordError(kind string)
}
