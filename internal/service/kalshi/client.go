package kalshi

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"KalshiPulse/internal/domain/models"
	drepo "KalshiPulse/internal/domain/repository"
	"KalshiPulse/internal/service/ratelimit"
	"KalshiPulse/pkg/cache"
	"KalshiPulse/pkg/config"
	xhttp "KalshiPulse/pkg/http"
	"KalshiPulse/pkg/logger"
	"KalshiPulse/pkg/util"
)

const rateLimitKey = "kalshi_api"

// Client is the Kalshi REST client. Contract listings are cached with a
// short TTL; everything else goes straight to the exchange, paced by a
// shared token bucket.
type Client struct {
	baseURL   string
	apiKey    string
	rateLimit float64
	ttl       time.Duration

	client  *xhttp.Client
	limiter *ratelimit.Limiter
	cache   cache.Service
	log     *logger.Logger
}

func NewClient(cfg *config.Config, cacheSvc cache.Service, log *logger.Logger) *Client {
	return &Client{
		baseURL:   cfg.Kalshi.BaseURL,
		apiKey:    cfg.Kalshi.APIKey,
		rateLimit: float64(cfg.Kalshi.RateLimit),
		ttl:       cfg.Kalshi.ContractsTTL,
		client:    xhttp.NewClient(xhttp.WithTimeout(cfg.Kalshi.Timeout)),
		limiter:   ratelimit.New(),
		cache:     cacheSvc,
		log:       log,
	}
}

var _ drepo.MarketData = (*Client)(nil)

type contractPayload struct {
	ID             string   `json:"id"`
	Title          string   `json:"title"`
	Description    string   `json:"description"`
	CurrentPrice   float64  `json:"current_price"`
	ExpirationDate string   `json:"expiration_date"`
	Volume         float64  `json:"volume"`
	Outcomes       []string `json:"outcomes"`
}

func (p contractPayload) toModel() models.Contract {
	return models.Contract{
		ID:           p.ID,
		Title:        p.Title,
		Description:  p.Description,
		CurrentPrice: util.Clamp01(p.CurrentPrice),
		Expiration:   util.ParseTimeDefault(p.ExpirationDate, time.Time{}),
		Volume:       p.Volume,
		Outcomes:     p.Outcomes,
	}
}

type levelPayload struct {
	Price float64 `json:"price"`
	Size  float64 `json:"size"`
}

type orderBookPayload struct {
	Bids []levelPayload `json:"bids"`
	Asks []levelPayload `json:"asks"`
}

func (c *Client) GetContract(ctx context.Context, contractID string) (models.Contract, error) {
	var payload contractPayload
	if err := c.get(ctx, "/contracts/"+contractID, nil, &payload); err != nil {
		return models.Contract{}, fmt.Errorf("get contract %s: %w", contractID, err)
	}
	if payload.ID == "" {
		payload.ID = contractID
	}
	return payload.toModel(), nil
}

func (c *Client) ListContracts(ctx context.Context, seriesID string, limit int) ([]models.Contract, error) {
	key := cache.GenerateKeyWithParams("contracts", seriesID, limit)
	if c.cache != nil {
		var cached []models.Contract
		if err := c.cache.Get(ctx, key, &cached); err == nil {
			return cached, nil
		}
	}

	params := map[string][]string{"limit": {strconv.Itoa(limit)}}
	if seriesID != "" {
		params["series_id"] = []string{seriesID}
	}

	var resp struct {
		Contracts []contractPayload `json:"contracts"`
	}
	if err := c.get(ctx, "/contracts", params, &resp); err != nil {
		return nil, fmt.Errorf("list contracts: %w", err)
	}

	contracts := make([]models.Contract, 0, len(resp.Contracts))
	for _, p := range resp.Contracts {
		contracts = append(contracts, p.toModel())
	}

	if c.cache != nil {
		if err := c.cache.Set(ctx, key, contracts, c.ttl); err != nil && c.log != nil {
			c.log.Warn("contract cache write failed", logger.Error(err))
		}
	}
	return contracts, nil
}

func (c *Client) GetOrderBook(ctx context.Context, contractID string) (models.OrderBook, error) {
	var payload orderBookPayload
	if err := c.get(ctx, "/contracts/"+contractID+"/book", nil, &payload); err != nil {
		return models.OrderBook{}, fmt.Errorf("get order book %s: %w", contractID, err)
	}

	book := models.OrderBook{ContractID: contractID}
	for _, b := range payload.Bids {
		book.Bids = append(book.Bids, models.PriceLevel{Price: b.Price, Size: b.Size})
	}
	for _, a := range payload.Asks {
		book.Asks = append(book.Asks, models.PriceLevel{Price: a.Price, Size: a.Size})
	}
	return book, nil
}

func (c *Client) GetBalance(ctx context.Context) (float64, error) {
	var resp struct {
		Balance float64 `json:"balance"`
	}
	if err := c.get(ctx, "/user/balance", nil, &resp); err != nil {
		return 0, fmt.Errorf("get balance: %w", err)
	}
	return resp.Balance, nil
}

func (c *Client) GetPositions(ctx context.Context) ([]models.Position, error) {
	var resp struct {
		Positions []struct {
			ContractID   string  `json:"contract_id"`
			Size         float64 `json:"size"`
			CurrentPrice float64 `json:"current_price"`
		} `json:"positions"`
	}
	if err := c.get(ctx, "/positions", nil, &resp); err != nil {
		return nil, fmt.Errorf("get positions: %w", err)
	}

	positions := make([]models.Position, 0, len(resp.Positions))
	for _, p := range resp.Positions {
		price := p.CurrentPrice
		if price == 0 {
			price = 0.5
		}
		positions = append(positions, models.Position{
			ContractID:   p.ContractID,
			Size:         p.Size,
			CurrentPrice: price,
		})
	}
	return positions, nil
}

func (c *Client) PlaceOrder(ctx context.Context, order models.Order) (models.ExecutionResult, error) {
	if err := c.limiter.Wait(ctx, rateLimitKey, c.rateLimit, c.rateLimit); err != nil {
		return models.ExecutionResult{}, err
	}

	body := map[string]interface{}{
		"contract_id": order.ContractID,
		"action":      string(order.Action),
		"size":        order.Size,
		"price":       order.Price,
		"type":        order.Type,
	}

	var resp struct {
		OrderID     string  `json:"order_id"`
		Status      string  `json:"status"`
		FilledPrice float64 `json:"filled_price"`
		FilledSize  float64 `json:"filled_size"`
	}
	err := c.client.SendAndParse(ctx, &xhttp.RequestOptions{
		Method:  xhttp.MethodPost,
		URL:     c.baseURL + "/orders",
		Headers: c.headers(),
		Body:    body,
	}, &resp)
	if err != nil {
		return models.ExecutionResult{}, fmt.Errorf("place order: %w", err)
	}

	return models.ExecutionResult{
		Status:      models.ExecutionExecuted,
		OrderID:     resp.OrderID,
		ContractID:  order.ContractID,
		Action:      order.Action,
		Size:        order.Size,
		FilledPrice: resp.FilledPrice,
		FilledSize:  resp.FilledSize,
		Timestamp:   time.Now(),
	}, nil
}

func (c *Client) get(ctx context.Context, path string, params map[string][]string, dest interface{}) error {
	if err := c.limiter.Wait(ctx, rateLimitKey, c.rateLimit, c.rateLimit); err != nil {
		return err
	}
	return c.client.SendAndParse(ctx, &xhttp.RequestOptions{
		Method:      xhttp.MethodGet,
		URL:         c.baseURL + path,
		Headers:     c.headers(),
		QueryParams: params,
	}, dest)
}

func (c *Client) headers() map[string]string {
	h := map[string]string{"Content-Type": "application/json"}
	if c.apiKey != "" {
		h["Authorization"] = "Bearer " + c.apiKey
	}
	return h
}
