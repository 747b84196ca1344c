package api

import (
	"errors"
	"sort"
	"time"

	"fximpact/internal/analysis"
	"fximpact/internal/domain/models"
	"fximpact/internal/usecase"
	xhttp "fximpact/pkg/http"
	xlogger "fximpact/pkg/logger"

	"github.com/labstack/echo/v4"
)

// AnalysisHandler exposes the impact pipeline over Echo.
type AnalysisHandler struct {
	logger   *xlogger.Logger
	analyzer *usecase.Analyzer
	assets   []string
	fxSymbol string
	lookback time.Duration
}

func NewAnalysisHandler(logger *xlogger.Logger, analyzer *usecase.Analyzer, defaultAssets []string, fxSymbol string, lookback time.Duration) *AnalysisHandler {
	if lookback <= 0 {
		lookback = 3 * 365 * 24 * time.Hour
	}
	return &AnalysisHandler{
		logger:   logger,
		analyzer: analyzer,
		assets:   defaultAssets,
		fxSymbol: fxSymbol,
		lookback: lookback,
	}
}

func (h *AnalysisHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.POST("/analysis", h.Analyze)
	g.GET("/assets", h.Assets)
	g.GET("/health", h.Health)
}

// Analyze runs the full pipeline for one request body.
func (h *AnalysisHandler) Analyze(c echo.Context) error {
	req := &models.AnalysisHTTPRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	domReq, appErr := h.toDomain(req)
	if appErr != nil {
		return xhttp.AppErrorResponse(c, appErr)
	}

	report, err := h.analyzer.Analyze(c.Request().Context(), domReq)
	if err != nil {
		h.logger.Error("analysis failed", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, mapAnalysisError(err))
	}
	return xhttp.SuccessResponse(c, report)
}

// Assets returns the configured default universe.
func (h *AnalysisHandler) Assets(c echo.Context) error {
	assets := append([]string(nil), h.assets...)
	sort.Strings(assets)
	return xhttp.SuccessResponse(c, map[string]interface{}{
		"assets":    assets,
		"fx_symbol": h.fxSymbol,
	})
}

// Health is the liveness probe.
func (h *AnalysisHandler) Health(c echo.Context) error {
	return xhttp.SuccessResponse(c, map[string]string{"status": "ok"})
}

func (h *AnalysisHandler) toDomain(req *models.AnalysisHTTPRequest) (models.AnalysisRequest, *xhttp.AppError) {
	end := time.Now().UTC().Truncate(24 * time.Hour)
	if req.End != "" {
		var err error
		if end, err = time.Parse("2006-01-02", req.End); err != nil {
			return models.AnalysisRequest{}, xhttp.BadRequestErrorf("end: %v", err)
		}
	}
	start := end.Add(-h.lookback)
	if req.Start != "" {
		var err error
		if start, err = time.Parse("2006-01-02", req.Start); err != nil {
			return models.AnalysisRequest{}, xhttp.BadRequestErrorf("start: %v", err)
		}
	}
	if !end.After(start) {
		return models.AnalysisRequest{}, xhttp.BadRequestError("end must be after start")
	}

	assets := req.Assets
	if len(assets) == 0 {
		assets = h.assets
	}

	return models.AnalysisRequest{
		Start:   start,
		End:     end,
		Assets:  assets,
		Method:  models.ReturnMethod(req.Method),
		Window:  req.Window,
		Weights: req.Weights,
		Moves:   req.Moves,
	}, nil
}

// mapAnalysisError translates pipeline sentinels into HTTP statuses: bad
// inputs 400, valid-but-not-computable 422, identity self-check and other
// failures 500.
func mapAnalysisError(err error) *xhttp.AppError {
	switch {
	case errors.Is(err, analysis.ErrBadData), errors.Is(err, analysis.ErrNoPortfolio):
		return xhttp.BadRequestError(err.Error())
	case errors.Is(err, analysis.ErrNotComputable),
		errors.Is(err, analysis.ErrInsufficientData),
		errors.Is(err, analysis.ErrNoBeta):
		return xhttp.UnprocessableError(err.Error())
	case errors.Is(err, analysis.ErrInvariant):
		return xhttp.InternalError(err.Error())
	default:
		return xhttp.UpstreamError(err.Error())
	}
}
