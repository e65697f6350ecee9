package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"KalshiPulse/internal/domain/models"
	"KalshiPulse/internal/risk"
	"KalshiPulse/internal/services/ensemble"
	"KalshiPulse/internal/signal"
	"KalshiPulse/internal/usecase"
	"KalshiPulse/pkg/config"
	xlogger "KalshiPulse/pkg/logger"
)

type fakeMarket struct {
	contract    models.Contract
	contractErr error
	contracts   []models.Contract
	balance     float64
	positions   []models.Position
	book        models.OrderBook
}

func (f *fakeMarket) GetContract(_ context.Context, contractID string) (models.Contract, error) {
	if f.contractErr != nil {
		return models.Contract{}, f.contractErr
	}
	c := f.contract
	if c.ID == "" {
		c.ID = contractID
	}
	return c, nil
}

func (f *fakeMarket) ListContracts(_ context.Context, _ string, limit int) ([]models.Contract, error) {
	if limit < len(f.contracts) {
		return f.contracts[:limit], nil
	}
	return f.contracts, nil
}

func (f *fakeMarket) GetOrderBook(_ context.Context, _ string) (models.OrderBook, error) {
	return f.book, nil
}

func (f *fakeMarket) GetBalance(_ context.Context) (float64, error) {
	return f.balance, nil
}

func (f *fakeMarket) GetPositions(_ context.Context) ([]models.Position, error) {
	return f.positions, nil
}

func (f *fakeMarket) PlaceOrder(_ context.Context, order models.Order) (models.ExecutionResult, error) {
	return models.ExecutionResult{ContractID: order.ContractID, Status: models.ExecutionExecuted}, nil
}

type fakeReasoning struct{}

func (fakeReasoning) AnalyzeEvent(_ context.Context, _ models.Contract) (models.ReasoningResult, error) {
	return models.ReasoningResult{}, errors.New("reasoning offline")
}

func testLimits() models.RiskLimits {
	return models.RiskLimits{
		MaxPositionSize: 0.05,
		MaxDrawdown:     0.20,
		VarLimit:        0.02,
		MaxCorrelation:  0.7,
	}
}

func testEcho(t *testing.T, market *fakeMarket, limits models.RiskLimits) (*echo.Echo, *risk.ExposureMonitor) {
	t.Helper()

	log, err := xlogger.New(&xlogger.Config{Level: "error", Format: "json", Output: "stderr"})
	require.NoError(t, err)

	cfg, err := config.Default()
	require.NoError(t, err)
	trader := usecase.NewTrader(cfg, market, nil, nil)
	monitor := risk.NewExposureMonitor(limits, cfg.Strategy.MaxPositionSize, trader, nil, nil)
	analyzer := usecase.NewAnalyzer(fakeReasoning{}, ensemble.NewModel(nil), nil)
	generator := signal.NewGenerator(0.5, nil, nil)
	runner := usecase.NewStrategyRunner(market, analyzer, generator, monitor, trader, nil, nil, nil)

	h := NewStrategyHandler(log, runner, trader, monitor, market)
	e := echo.New()
	h.RegisterRoutes(e)
	return e, monitor
}

func doJSON(e *echo.Echo, method, path, body string) *httptest.ResponseRecorder {
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

func TestAnalyzeReturnsSignalAndBreakdown(t *testing.T) {
	market := &fakeMarket{
		contract: models.Contract{ID: "KX-RAIN", Title: "Rain tomorrow", CurrentPrice: 0.85},
		balance:  10000,
	}
	e, _ := testEcho(t, market, testLimits())

	rec := doJSON(e, http.MethodPost, "/api/analyze", `{"contract_id":"KX-RAIN"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Status int `json:"status"`
		Data   struct {
			Signal struct {
				ContractID string  `json:"contract_id"`
				Action     string  `json:"action"`
				Confidence float64 `json:"confidence"`
			} `json:"signal"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, http.StatusOK, resp.Status)
	assert.Equal(t, "KX-RAIN", resp.Data.Signal.ContractID)
	assert.Equal(t, "BUY", resp.Data.Signal.Action)
	assert.Greater(t, resp.Data.Signal.Confidence, 0.0)
}

func TestAnalyzeRejectsMissingContractID(t *testing.T) {
	e, _ := testEcho(t, &fakeMarket{balance: 10000}, testLimits())

	rec := doJSON(e, http.MethodPost, "/api/analyze", `{}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Status int `json:"status"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, http.StatusBadRequest, resp.Status)
}

func TestRunStrategyEndpoint(t *testing.T) {
	market := &fakeMarket{
		contract: models.Contract{CurrentPrice: 0.8},
		balance:  10000,
		book:     models.OrderBook{Asks: []models.PriceLevel{{Price: 0.81, Size: 500}}},
	}
	e, _ := testEcho(t, market, testLimits())

	rec := doJSON(e, http.MethodPost, "/api/strategy/run", `{"contract_ids":["KX-A","KX-B"]}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Data struct {
			TotalContracts int `json:"total_contracts"`
			Results        []struct {
				ContractID string `json:"contract_id"`
			} `json:"results"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.Data.TotalContracts)
	require.Len(t, resp.Data.Results, 2)
	assert.Equal(t, "KX-A", resp.Data.Results[0].ContractID)
}

func TestPortfolioEndpoint(t *testing.T) {
	market := &fakeMarket{
		balance: 7500,
		positions: []models.Position{
			{ContractID: "KX-A", Size: 300},
		},
	}
	e, _ := testEcho(t, market, testLimits())

	rec := doJSON(e, http.MethodGet, "/api/portfolio", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Data struct {
			Portfolio models.PortfolioSnapshot `json:"portfolio"`
			Risk      models.RiskMetrics       `json:"risk"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 7500.0, resp.Data.Portfolio.CashBalance)
	require.Len(t, resp.Data.Portfolio.Positions, 1)
	assert.Equal(t, 1, resp.Data.Risk.NumPositions)
}

func TestRiskMetricsEndpoint(t *testing.T) {
	e, _ := testEcho(t, &fakeMarket{balance: 10000}, testLimits())

	rec := doJSON(e, http.MethodGet, "/api/risk/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Data models.RiskMetrics `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 10000.0, resp.Data.TotalValue)
}

func TestAlertsLifecycle(t *testing.T) {
	limits := testLimits()
	limits.MaxPositionSize = 0.001
	e, monitor := testEcho(t, &fakeMarket{balance: 10000}, limits)

	// Force an alert through an oversized signal.
	sig := models.Signal{ContractID: "KX-A", Action: models.ActionBuy, Confidence: 1.0}
	monitor.CheckSignal(context.Background(), sig)

	rec := doJSON(e, http.MethodGet, "/api/alerts", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Data []models.Alert `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Data)
	assert.Equal(t, models.AlertTypeRiskLimitExceeded, resp.Data[0].Type)

	rec = doJSON(e, http.MethodDelete, "/api/alerts", "")
	require.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, monitor.Alerts(""))
}

func TestContractsEndpoint(t *testing.T) {
	market := &fakeMarket{
		balance: 10000,
		contracts: []models.Contract{
			{ID: "KX-A"}, {ID: "KX-B"}, {ID: "KX-C"},
		},
	}
	e, _ := testEcho(t, market, testLimits())

	rec := doJSON(e, http.MethodGet, "/api/contracts?limit=2", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Data struct {
			Rows  []models.Contract `json:"rows"`
			Total int64             `json:"total"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Len(t, resp.Data.Rows, 2)
	assert.Equal(t, int64(2), resp.Data.Total)
}
