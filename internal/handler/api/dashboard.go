package api

import (
	"time"

	models "BuzzRadar/internal/domain/models"
	"BuzzRadar/internal/usecase"
	xhttp "BuzzRadar/pkg/http"
	xlogger "BuzzRadar/pkg/logger"
	"BuzzRadar/pkg/util"

	"github.com/labstack/echo/v4"
)

// DashboardHandler serves the read API for aggregates, alerts and tickers.
type DashboardHandler struct {
	logger    *xlogger.Logger
	dashboard *usecase.Dashboard
}

func NewDashboardHandler(logger *xlogger.Logger, dashboard *usecase.Dashboard) *DashboardHandler {
	return &DashboardHandler{logger: logger, dashboard: dashboard}
}

func (h *DashboardHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.GET("/aggregates", h.Aggregates)
	g.GET("/alerts", h.Alerts)
	g.GET("/tickers", h.Tickers)
}

func (h *DashboardHandler) Aggregates(c echo.Context) error {
	req := &models.AggregatesRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	now := time.Now().UTC()
	from, err := util.ParseTimeDefault(req.From, now.Add(-7*24*time.Hour))
	if err != nil {
		return xhttp.BadRequestResponse(c, err.Error())
	}
	to, err := util.ParseTimeDefault(req.To, now)
	if err != nil {
		return xhttp.BadRequestResponse(c, err.Error())
	}

	rows, err := h.dashboard.Aggregates(c.Request().Context(), req.Ticker, from, to, req.Limit)
	if err != nil {
		h.logger.Error("aggregates usecase error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	c.Response().Header().Set(echo.HeaderCacheControl, "private, max-age=30")
	return xhttp.SuccessResponse(c, rows)
}

func (h *DashboardHandler) Alerts(c echo.Context) error {
	req := &models.AlertsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	rows, err := h.dashboard.Alerts(c.Request().Context(), req.Ticker, models.AlertRule(req.Rule), req.ActiveOnly, req.Limit)
	if err != nil {
		h.logger.Error("alerts usecase error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, rows)
}

func (h *DashboardHandler) Tickers(c echo.Context) error {
	req := &models.TickersRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	tickers, err := h.dashboard.ActiveTickers(c.Request().Context(), time.Duration(req.LookbackHours)*time.Hour)
	if err != nil {
		h.logger.Error("tickers usecase error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, tickers)
}
