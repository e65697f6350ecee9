package api

import (
	"KalshiPulse/internal/domain/models"
	drepo "KalshiPulse/internal/domain/repository"
	"KalshiPulse/internal/risk"
	"KalshiPulse/internal/usecase"
	xhttp "KalshiPulse/pkg/http"
	xlogger "KalshiPulse/pkg/logger"

	"github.com/labstack/echo/v4"
)

// StrategyHandler exposes the decision pipeline over HTTP: on-demand
// analysis, strategy passes, portfolio and risk views.
type StrategyHandler struct {
	logger  *xlogger.Logger
	runner  *usecase.StrategyRunner
	trader  *usecase.Trader
	monitor *risk.ExposureMonitor
	market  drepo.MarketData
}

func NewStrategyHandler(
	logger *xlogger.Logger,
	runner *usecase.StrategyRunner,
	trader *usecase.Trader,
	monitor *risk.ExposureMonitor,
	market drepo.MarketData,
) *StrategyHandler {
	return &StrategyHandler{
		logger:  logger,
		runner:  runner,
		trader:  trader,
		monitor: monitor,
		market:  market,
	}
}

func (h *StrategyHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.POST("/analyze", h.Analyze)
	g.POST("/strategy/run", h.RunStrategy)
	g.GET("/portfolio", h.Portfolio)
	g.GET("/risk/metrics", h.RiskMetrics)
	g.GET("/alerts", h.Alerts)
	g.DELETE("/alerts", h.ClearAlerts)
	g.GET("/contracts", h.Contracts)
}

// analyzeResponse pairs the generated signal with the per-method
// breakdown that produced it.
type analyzeResponse struct {
	Signal   models.Signal         `json:"signal"`
	Analysis models.AnalysisBundle `json:"analysis"`
}

func (h *StrategyHandler) Analyze(c echo.Context) error {
	req := &models.AnalyzeRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	sig, bundle, err := h.runner.Analyze(c.Request().Context(), req.ContractID)
	if err != nil {
		h.logger.Error("analyze failed",
			xlogger.String("contract_id", req.ContractID),
			xlogger.Error(err),
		)
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, analyzeResponse{Signal: sig, Analysis: bundle})
}

func (h *StrategyHandler) RunStrategy(c echo.Context) error {
	req := &models.StrategyRunRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	summary := h.runner.RunStrategy(c.Request().Context(), req.ContractIDs)
	return xhttp.SuccessResponse(c, summary)
}

type portfolioResponse struct {
	Portfolio models.PortfolioSnapshot `json:"portfolio"`
	Risk      models.RiskMetrics       `json:"risk"`
}

func (h *StrategyHandler) Portfolio(c echo.Context) error {
	ctx := c.Request().Context()
	pf, err := h.trader.Portfolio(ctx)
	if err != nil {
		h.logger.Error("portfolio fetch failed", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	rm, err := h.monitor.RiskMetrics(ctx)
	if err != nil {
		h.logger.Error("risk metrics failed", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, portfolioResponse{Portfolio: pf, Risk: rm})
}

func (h *StrategyHandler) RiskMetrics(c echo.Context) error {
	rm, err := h.monitor.RiskMetrics(c.Request().Context())
	if err != nil {
		h.logger.Error("risk metrics failed", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, rm)
}

func (h *StrategyHandler) Alerts(c echo.Context) error {
	req := &models.AlertsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	return xhttp.SuccessResponse(c, h.monitor.Alerts(req.Type))
}

func (h *StrategyHandler) ClearAlerts(c echo.Context) error {
	h.monitor.ClearAlerts()
	return xhttp.NoContentResponse(c)
}

func (h *StrategyHandler) Contracts(c echo.Context) error {
	req := &models.ContractsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	contracts, err := h.market.ListContracts(c.Request().Context(), req.SeriesID, req.Limit)
	if err != nil {
		h.logger.Error("contracts fetch failed",
			xlogger.String("series_id", req.SeriesID),
			xlogger.Error(err),
		)
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.ListResponse(c, contracts, int64(len(contracts)))
}
