package yahoo

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"fximpact/internal/domain/models"
	drepo "fximpact/internal/domain/repository"
	"fximpact/internal/service/ratelimit"
	applogger "fximpact/pkg/logger"
	"fximpact/pkg/util"
)

// Config holds Yahoo Finance client configuration.
type Config struct {
	Hosts       []string
	UserAgent   string
	Timeout     time.Duration
	MaxAttempts int
	BackoffMin  time.Duration
	BackoffMax  time.Duration
	MaxRPS      float64
}

// Client fetches daily close prices from the Yahoo Finance v8 chart API.
// It rotates between query hosts and retries with bounded backoff; Yahoo
// rate-limits aggressively and frequently answers with "Edge: Too Many
// Requests" bodies on a 200 status, so bodies are sniffed before decoding.
type Client struct {
	cfg     Config
	scheme  string
	http    *http.Client
	limiter *ratelimit.Limiter
	metrics drepo.Metrics
	log     *applogger.Logger
}

// New creates a Yahoo Finance PriceSource.
func New(cfg Config, metrics drepo.Metrics, log *applogger.Logger) drepo.PriceSource {
	if len(cfg.Hosts) == 0 {
		cfg.Hosts = []string{"query1.finance.yahoo.com", "query2.finance.yahoo.com"}
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.4 Safari/605.1.15"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 4
	}
	if cfg.BackoffMin <= 0 {
		cfg.BackoffMin = 200 * time.Millisecond
	}
	if cfg.BackoffMax <= 0 {
		cfg.BackoffMax = 2 * time.Second
	}
	if cfg.MaxRPS <= 0 {
		cfg.MaxRPS = 2
	}
	return &Client{
		cfg:     cfg,
		scheme:  "https",
		http:    &http.Client{Timeout: cfg.Timeout},
		limiter: ratelimit.New(),
		metrics: metrics,
		log:     log,
	}
}

type chartResponse struct {
	Chart struct {
		Result []struct {
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Close []*float64 `json:"close"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

// DailyCloses fetches daily close prices for ticker over [start, end],
// normalized to UTC midnight dates in strictly increasing order. Bars with
// null closes (holidays, half-days) are dropped.
func (c *Client) DailyCloses(ctx context.Context, ticker string, start, end time.Time) (models.PriceSeries, error) {
	if !end.After(start) {
		return models.PriceSeries{}, fmt.Errorf("yahoo: end %s not after start %s", end.Format("2006-01-02"), start.Format("2006-01-02"))
	}

	// period2 is exclusive; add a day so the end date's bar is included.
	period1 := util.DayUTC(start).Unix()
	period2 := util.DayUTC(end).Add(24 * time.Hour).Unix()

	var resp chartResponse
	var lastErr error

attempts:
	for attempt := 0; attempt < c.cfg.MaxAttempts; attempt++ {
		for _, host := range c.cfg.Hosts {
			if err := c.limiter.Wait(ctx, host, c.cfg.MaxRPS, c.cfg.MaxRPS); err != nil {
				return models.PriceSeries{}, err
			}

			body, err := c.fetch(ctx, host, ticker, period1, period2)
			if err != nil {
				lastErr = err
				c.metrics.RecordFetch(ticker, "retry")
				c.log.Debug("yahoo fetch retry",
					applogger.String("ticker", ticker),
					applogger.String("host", host),
					applogger.Error(err),
				)
				continue
			}
			if err := json.Unmarshal(body, &resp); err != nil {
				lastErr = fmt.Errorf("yahoo: parse response: %w; body: %s", err, preview(body))
				c.metrics.RecordFetch(ticker, "retry")
				continue
			}
			lastErr = nil
			break attempts
		}
		if err := sleepBackoff(ctx, c.backoff(attempt)); err != nil {
			return models.PriceSeries{}, err
		}
	}
	if lastErr != nil {
		c.metrics.RecordFetch(ticker, "error")
		return models.PriceSeries{}, lastErr
	}

	series, err := c.toSeries(ticker, &resp)
	if err != nil {
		c.metrics.RecordFetch(ticker, "error")
		return models.PriceSeries{}, err
	}
	c.metrics.RecordFetch(ticker, "ok")
	return series, nil
}

func (c *Client) fetch(ctx context.Context, host, ticker string, period1, period2 int64) ([]byte, error) {
	url := fmt.Sprintf("%s://%s/v8/finance/chart/%s?period1=%d&period2=%d&interval=1d&events=div,splits",
		c.scheme, host, ticker, period1, period2)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("yahoo: build request: %w", err)
	}
	req.Header.Set("User-Agent", c.cfg.UserAgent)
	req.Header.Set("Accept", "application/json, text/javascript, */*; q=0.01")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	req.Header.Set("Referer", fmt.Sprintf("https://finance.yahoo.com/quote/%s/chart", strings.ToUpper(ticker)))

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("yahoo: %s: %w", host, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("yahoo: read response from %s: %w", host, err)
	}

	if resp.StatusCode == http.StatusTooManyRequests || strings.HasPrefix(string(body), "Edge: Too Many Requests") {
		return nil, fmt.Errorf("yahoo: %s returned 429", host)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("yahoo: %s returned %d: %s", host, resp.StatusCode, preview(body))
	}
	if strings.HasPrefix(string(body), "<") || strings.HasPrefix(string(body), "Edge:") {
		return nil, fmt.Errorf("yahoo: %s returned non-json body: %s", host, preview(body))
	}
	return body, nil
}

func (c *Client) toSeries(ticker string, resp *chartResponse) (models.PriceSeries, error) {
	if resp.Chart.Error != nil {
		return models.PriceSeries{}, fmt.Errorf("yahoo: %s: %s (%s)", ticker, resp.Chart.Error.Description, resp.Chart.Error.Code)
	}
	if len(resp.Chart.Result) == 0 || len(resp.Chart.Result[0].Indicators.Quote) == 0 {
		return models.PriceSeries{}, fmt.Errorf("yahoo: no data for %s", ticker)
	}

	ts := resp.Chart.Result[0].Timestamp
	closes := resp.Chart.Result[0].Indicators.Quote[0].Close
	if len(ts) != len(closes) {
		return models.PriceSeries{}, fmt.Errorf("yahoo: %s: %d timestamps vs %d closes", ticker, len(ts), len(closes))
	}

	dates := make([]time.Time, 0, len(ts))
	values := make([]float64, 0, len(ts))
	for i, t := range ts {
		if closes[i] == nil || *closes[i] <= 0 {
			continue
		}
		day := util.DayUTC(time.Unix(t, 0).UTC())
		// Intraday bars for the current session collapse onto the same
		// day as the previous close; keep the latest value.
		if n := len(dates); n > 0 && dates[n-1].Equal(day) {
			values[n-1] = *closes[i]
			continue
		}
		dates = append(dates, day)
		values = append(values, *closes[i])
	}
	if len(dates) == 0 {
		return models.PriceSeries{}, fmt.Errorf("yahoo: no usable bars for %s", ticker)
	}

	return models.NewSeries(dates, values)
}

func (c *Client) backoff(attempt int) time.Duration {
	d := c.cfg.BackoffMin << uint(attempt)
	if d > c.cfg.BackoffMax {
		d = c.cfg.BackoffMax
	}
	return d
}

func sleepBackoff(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}

func preview(body []byte) string {
	s := string(body)
	if len(s) > 120 {
		s = s[:120]
	}
	return s
}
