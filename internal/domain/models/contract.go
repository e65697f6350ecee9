package models

import "time"

// Contract is an immutable snapshot of a tradable event contract.
// It is fetched once per analysis cycle and never persisted locally.
type Contract struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Description  string    `json:"description,omitempty"`
	CurrentPrice float64   `json:"current_price"` // implied probability in [0,1]
	Expiration   time.Time `json:"expiration,omitempty"`
	Volume       float64   `json:"volume"`
	Outcomes     []string  `json:"outcomes,omitempty"`
}

// DaysToExpiration returns the number of days until the contract resolves.
// Returns the default horizon of 30 days when the expiration is unset.
func (c Contract) DaysToExpiration(now time.Time) float64 {
	if c.Expiration.IsZero() {
		return 30
	}
	d := c.Expiration.Sub(now).Hours() / 24
	if d < 0 {
		return 0
	}
	return d
}

// PriceLevel is one level of an order book side.
type PriceLevel struct {
	Price float64
	Size  float64
}

// OrderBook is the top-of-book view used for order pricing.
type OrderBook struct {
	ContractID string
	Bids       []PriceLevel
	Asks       []PriceLevel
}

// BestBid returns the best bid price, or the 0.5 midpoint when the side is empty.
func (b OrderBook) BestBid() float64 {
	if len(b.Bids) == 0 {
		return 0.5
	}
	return b.Bids[0].Price
}

// BestAsk returns the best ask price, or the 0.5 midpoint when the side is empty.
func (b OrderBook) BestAsk() float64 {
	if len(b.Asks) == 0 {
		return 0.5
	}
	return b.Asks[0].Price
}

// Ticker is a realtime price update from the market stream.
type Ticker struct {
	ContractID string
	Price      float64
	Volume     float64
	Timestamp  int64 // unix seconds
}
