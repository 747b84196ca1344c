package api

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"fximpact/internal/domain/models"
	"fximpact/internal/usecase"
	"fximpact/pkg/cache"
	applogger "fximpact/pkg/logger"

	"github.com/labstack/echo/v4"
)

const fxSym = "EURUSD=X"

type fixedSource struct {
	series map[string]models.PriceSeries
}

func (s *fixedSource) DailyCloses(_ context.Context, ticker string, _, _ time.Time) (models.PriceSeries, error) {
	ps, ok := s.series[ticker]
	if !ok {
		return models.Series{}, fmt.Errorf("no series for %s", ticker)
	}
	return ps, nil
}

type nopMetrics struct{}

func (nopMetrics) RecordFetch(string, string)     {}
func (nopMetrics) RecordCache(string)             {}
func (nopMetrics) RecordAnalysis(string, float64) {}
func (nopMetrics) RecordError(string)             {}

func weekdays(start time.Time, n int, f func(i int) float64) models.PriceSeries {
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

func testHandler(t *testing.T) *AnalysisHandler {
	t.Helper()
	start := time.Date(2023, 1, 2, 0, 0, 0, 0, time.UTC)
	src := &fixedSource{series: map[string]models.PriceSeries{
		"SPY": weekdays(start, 120, func(i int) float64 { return 100 * math.Pow(1.001, float64(i)) }),
		"GLD": weekdays(start, 120, func(i int) float64 { return 180 + 0.1*float64(i) }),
		fxSym: weekdays(start, 120, func(i int) float64 { return 1.10 - 0.0004*float64(i) }),
	}}
	l, err := applogger.New(&applogger.Config{Level: "error", Format: "json", Output: "stdout"})
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	analyzer := usecase.NewAnalyzer(src, cache.NewMemoryCache(), nopMetrics{}, l, usecase.AnalyzerConfig{
		FXSymbol: fxSym,
		Timeout:  10 * time.Second,
	})
	return NewAnalysisHandler(l, analyzer, []string{"SPY", "GLD"}, fxSym, 3*365*24*time.Hour)
}

func doRequest(h *AnalysisHandler, method, path, body string) *httptest.ResponseRecorder {
	e := echo.New()
	h.RegisterRoutes(e)
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func envelopeStatus(t *testing.T, rec *httptest.ResponseRecorder) (int, map[string]interface{}) {
	t.Helper()
	var resp struct {
		Status int             `json:"status"`
		Data   json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode envelope: %v; body %s", err, rec.Body.String())
	}
	var data map[string]interface{}
	// Error payloads are arrays; callers checking those only need the status.
	_ = json.Unmarshal(resp.Data, &data)
	return resp.Status, data
}

func TestAnalyzeEndpoint(t *testing.T) {
	h := testHandler(t)
	body := `{"start":"2023-01-02","end":"2023-06-30","assets":["SPY","GLD"],"method":"simple","window":20,"weights":{"SPY":0.5,"GLD":0.5}}`
	rec := doRequest(h, http.MethodPost, "/api/analysis", body)
	if rec.Code != http.StatusOK {
		t.Fatalf("code = %d, body %s", rec.Code, rec.Body.String())
	}
	status, data := envelopeStatus(t, rec)
	if status != http.StatusOK {
		t.Fatalf("envelope status = %d", status)
	}
	if _, ok := data["fx"]; !ok {
		t.Fatal("no fx snapshot in report")
	}
	assets, ok := data["assets"].([]interface{})
	if !ok || len(assets) != 2 {
		t.Fatalf("assets = %v", data["assets"])
	}
	if _, ok := data["portfolio"]; !ok {
		t.Fatal("no portfolio section")
	}
}

func TestAnalyzeEndpointDefaults(t *testing.T) {
	// No assets, method, or window: configured universe and defaults apply.
	h := testHandler(t)
	rec := doRequest(h, http.MethodPost, "/api/analysis", `{"start":"2023-01-02","end":"2023-06-30"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("code = %d, body %s", rec.Code, rec.Body.String())
	}
	_, data := envelopeStatus(t, rec)
	reqEcho, ok := data["request"].(map[string]interface{})
	if !ok {
		t.Fatalf("request echo = %v", data["request"])
	}
	if reqEcho["method"] != "log" {
		t.Fatalf("default method = %v, want log", reqEcho["method"])
	}
	if reqEcho["window"] != float64(60) {
		t.Fatalf("default window = %v, want 60", reqEcho["window"])
	}
}

func TestAnalyzeEndpointDefaultRange(t *testing.T) {
	// Omitted dates fall back to the configured lookback ending today.
	h := testHandler(t)
	rec := doRequest(h, http.MethodPost, "/api/analysis", `{"assets":["SPY"]}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("code = %d, body %s", rec.Code, rec.Body.String())
	}
	_, data := envelopeStatus(t, rec)
	reqEcho, ok := data["request"].(map[string]interface{})
	if !ok {
		t.Fatalf("request echo = %v", data["request"])
	}
	startStr, _ := reqEcho["start"].(string)
	endStr, _ := reqEcho["end"].(string)
	startTS, err := time.Parse("2006-01-02", startStr)
	if err != nil {
		t.Fatalf("start %q: %v", startStr, err)
	}
	endTS, err := time.Parse("2006-01-02", endStr)
	if err != nil {
		t.Fatalf("end %q: %v", endStr, err)
	}
	if got := endTS.Sub(startTS); got != 3*365*24*time.Hour {
		t.Fatalf("default range = %v", got)
	}
}

func TestAnalyzeEndpointValidation(t *testing.T) {
	h := testHandler(t)
	cases := []struct {
		name string
		body string
	}{
		{"bad method", `{"start":"2023-01-02","end":"2023-06-30","method":"geometric"}`},
		{"window too small", `{"start":"2023-01-02","end":"2023-06-30","window":5}`},
		{"bad date format", `{"start":"01/02/2023","end":"2023-06-30"}`},
		{"end before start", `{"start":"2023-06-30","end":"2023-01-02"}`},
		{"negative weight", `{"start":"2023-01-02","end":"2023-06-30","weights":{"SPY":-1}}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := doRequest(h, http.MethodPost, "/api/analysis", tc.body)
			status, _ := envelopeStatus(t, rec)
			if status != http.StatusBadRequest {
				t.Fatalf("envelope status = %d, want 400; body %s", status, rec.Body.String())
			}
		})
	}
}

func TestAssetsEndpoint(t *testing.T) {
	h := testHandler(t)
	rec := doRequest(h, http.MethodGet, "/api/assets", "")
	status, data := envelopeStatus(t, rec)
	if status != http.StatusOK {
		t.Fatalf("envelope status = %d", status)
	}
	if data["fx_symbol"] != fxSym {
		t.Fatalf("fx_symbol = %v", data["fx_symbol"])
	}
}

func TestHealthEndpoint(t *testing.T) {
	h := testHandler(t)
	rec := doRequest(h, http.MethodGet, "/api/health", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("code = %d", rec.Code)
	}
}
