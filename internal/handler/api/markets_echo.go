package api

import (
	"errors"
	"net/http"
	"time"

	models "PendlePulse/internal/domain/models"
	domrepo "PendlePulse/internal/domain/repository"
	svcmetrics "PendlePulse/internal/service/metrics"
	"PendlePulse/internal/usecase"
	xhttp "PendlePulse/pkg/http"
	xlogger "PendlePulse/pkg/logger"

	"github.com/labstack/echo/v4"
)

// MarketsEchoHandler serves the /api market analytics routes and the legacy /tool routes.
type MarketsEchoHandler struct {
	logger   *xlogger.Logger
	markets  *usecase.MarketsUseCase
	insights *usecase.InsightsUseCase
	source   *usecase.SourceUseCase
}

func NewMarketsEchoHandler(
	logger *xlogger.Logger,
	markets *usecase.MarketsUseCase,
	insights *usecase.InsightsUseCase,
	source *usecase.SourceUseCase,
) *MarketsEchoHandler {
	svcmetrics.Register()
	return &MarketsEchoHandler{logger: logger, markets: markets, insights: insights, source: source}
}

func (h *MarketsEchoHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.GET("/markets", h.ListMarkets)
	g.GET("/markets/top", h.TopMarkets)
	g.GET("/markets/compare", h.Compare)
	g.GET("/markets/:market_id", h.Detail)
	g.GET("/markets/:market_id/history", h.History)
	g.GET("/markets/:market_id/snapshots", h.Snapshots)
	g.GET("/markets/:market_id/trend", h.Trend)
	g.GET("/markets/:market_id/price-change", h.PriceChange)
	g.GET("/summary", h.Summary)

	t := e.Group("/tool")
	t.GET("/historical/snaps", h.LegacySnapshots)
	t.GET("/insight", h.LegacyInsight)
	t.GET("/get_active_markets", h.UpstreamActiveMarkets)
	t.GET("/get_market", h.UpstreamMarket)
	t.GET("/get_yield", h.UpstreamYield)
	t.GET("/simulate_swap", h.SimulateSwap)

	e.GET("/healthz", h.Health)
}

func (h *MarketsEchoHandler) ListMarkets(c echo.Context) error {
	start := time.Now()
	res, err := h.markets.ListMarkets(c.Request().Context())
	svcmetrics.Observe("markets", start, err)
	if err != nil {
		return h.fail(c, "list markets", err)
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *MarketsEchoHandler) TopMarkets(c echo.Context) error {
	start := time.Now()
	req := &models.TopMarketsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	res, err := h.markets.TopMarkets(c.Request().Context(), req.Limit)
	svcmetrics.Observe("top_markets", start, err)
	if err != nil {
		return h.fail(c, "top markets", err)
	}
	c.Response().Header().Set(echo.HeaderCacheControl, "private, max-age=15")
	return xhttp.SuccessResponse(c, &models.TopMarketsResponse{TopMarkets: res})
}

func (h *MarketsEchoHandler) Compare(c echo.Context) error {
	start := time.Now()
	req := &models.CompareRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	res, err := h.markets.Compare(c.Request().Context(), req.MarketIDs)
	svcmetrics.Observe("compare", start, err)
	if err != nil {
		return h.fail(c, "compare", err)
	}
	return xhttp.SuccessResponse(c, &models.CompareResponse{Comparison: res})
}

func (h *MarketsEchoHandler) Detail(c echo.Context) error {
	req := &models.MarketPathRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	res, err := h.markets.Detail(c.Request().Context(), req.MarketID)
	if err != nil {
		return h.fail(c, "market detail", err)
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *MarketsEchoHandler) History(c echo.Context) error {
	start := time.Now()
	req := &models.HistoryRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	res, err := h.markets.History(c.Request().Context(), req.MarketID, req.Hours)
	svcmetrics.Observe("history", start, err)
	if err != nil {
		return h.fail(c, "history", err)
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *MarketsEchoHandler) Snapshots(c echo.Context) error {
	req := &models.SnapshotsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	res, err := h.markets.Snapshots(c.Request().Context(), req.MarketID, req.Limit)
	if err != nil {
		return h.fail(c, "snapshots", err)
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *MarketsEchoHandler) Trend(c echo.Context) error {
	start := time.Now()
	req := &models.TrendRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	res, err := h.insights.Trend(c.Request().Context(), req.MarketID, req.LookbackHours)
	svcmetrics.Observe("trend", start, err)
	if err != nil {
		return h.fail(c, "trend", err)
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *MarketsEchoHandler) PriceChange(c echo.Context) error {
	start := time.Now()
	req := &models.PriceChangeRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	res, err := h.insights.PriceChange(c.Request().Context(), req.MarketID, req.Hours)
	svcmetrics.Observe("price_change", start, err)
	if err != nil {
		return h.fail(c, "price change", err)
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *MarketsEchoHandler) Summary(c echo.Context) error {
	start := time.Now()
	res, err := h.markets.Summary(c.Request().Context())
	svcmetrics.Observe("summary", start, err)
	if err != nil {
		return h.fail(c, "summary", err)
	}
	c.Response().Header().Set(echo.HeaderCacheControl, "private, max-age=15")
	return xhttp.SuccessResponse(c, res)
}

// LegacySnapshots keeps the {market_id,count,data} body of /tool/historical/snaps.
func (h *MarketsEchoHandler) LegacySnapshots(c echo.Context) error {
	req := &models.SnapshotsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	res, err := h.markets.Snapshots(c.Request().Context(), req.MarketID, req.Limit)
	if err != nil {
		return h.fail(c, "legacy snapshots", err)
	}
	return c.JSON(http.StatusOK, res)
}

// LegacyInsight keeps the {insight} body of /tool/insight.
func (h *MarketsEchoHandler) LegacyInsight(c echo.Context) error {
	start := time.Now()
	req := &models.TrendRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	res, err := h.insights.Insight(c.Request().Context(), req.MarketID, req.LookbackHours)
	svcmetrics.Observe("insight", start, err)
	if err != nil {
		return h.fail(c, "legacy insight", err)
	}
	return c.JSON(http.StatusOK, res)
}

func (h *MarketsEchoHandler) UpstreamActiveMarkets(c echo.Context) error {
	if h.source == nil {
		return xhttp.AppErrorResponse(c, xhttp.ServiceUnavailableError("market source disabled"))
	}
	raw, err := h.source.ActiveMarkets(c.Request().Context())
	if err != nil {
		return h.fail(c, "upstream active markets", err)
	}
	return c.JSONBlob(http.StatusOK, raw)
}

func (h *MarketsEchoHandler) UpstreamMarket(c echo.Context) error {
	if h.source == nil {
		return xhttp.AppErrorResponse(c, xhttp.ServiceUnavailableError("market source disabled"))
	}
	req := &models.MarketPathRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	raw, err := h.source.Market(c.Request().Context(), req.MarketID)
	if err != nil {
		return h.fail(c, "upstream market", err)
	}
	return c.JSONBlob(http.StatusOK, raw)
}

func (h *MarketsEchoHandler) UpstreamYield(c echo.Context) error {
	if h.source == nil {
		return xhttp.AppErrorResponse(c, xhttp.ServiceUnavailableError("market source disabled"))
	}
	req := &models.YieldRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	raw, err := h.source.Yield(c.Request().Context(), req.TokenID)
	if err != nil {
		return h.fail(c, "upstream yield", err)
	}
	return c.JSONBlob(http.StatusOK, raw)
}

// SimulateSwap keeps the flat body of /tool/simulate_swap.
func (h *MarketsEchoHandler) SimulateSwap(c echo.Context) error {
	req := &models.SwapEstimateRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	res, err := h.insights.SimulateSwap(c.Request().Context(), req)
	if err != nil {
		return h.fail(c, "simulate swap", err)
	}
	return c.JSON(http.StatusOK, res)
}

func (h *MarketsEchoHandler) Health(c echo.Context) error {
	if err := h.markets.Health(c.Request().Context()); err != nil {
		h.logger.Warn("health check failed", xlogger.Error(err))
		return c.JSON(http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func (h *MarketsEchoHandler) fail(c echo.Context, op string, err error) error {
	appErr := toAppError(err)
	if appErr.Status >= http.StatusInternalServerError {
		h.logger.Error(op+" usecase error", xlogger.Error(err))
	}
	return xhttp.AppErrorResponse(c, appErr)
}

// toAppError maps domain errors onto HTTP errors.
func toAppError(err error) *xhttp.AppError {
	var appErr *xhttp.AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	var statusErr *xhttp.StatusError
	switch {
	case errors.Is(err, domrepo.ErrNotFound):
		return xhttp.NotFoundError(err.Error())
	case errors.Is(err, domrepo.ErrInvalidInput):
		return xhttp.BadRequestError(err.Error())
	case errors.As(err, &statusErr):
		return xhttp.BadGatewayError("market source request failed").WithError(err)
	default:
		return xhttp.InternalError("internal error").WithError(err)
	}
}
