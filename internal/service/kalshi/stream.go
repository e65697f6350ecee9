package kalshi

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"KalshiPulse/internal/domain/models"
	drepo "KalshiPulse/internal/domain/repository"
	"KalshiPulse/pkg/config"
	"KalshiPulse/pkg/logger"
)

// Stream implements a MarketStream over the Kalshi WebSocket ticker feed.
type Stream struct {
	websocketURL   string
	apiKey         string
	reconnectDelay time.Duration
	pingInterval   time.Duration
	log            *logger.Logger

	mu          sync.Mutex
	conn        *websocket.Conn
	connected   bool
	contractIDs []string

	// gorilla/websocket allows one concurrent writer; pings and
	// subscribe frames share this mutex.
	writeMu sync.Mutex
}

func NewStream(cfg *config.Config, log *logger.Logger) *Stream {
	return &Stream{
		websocketURL:   cfg.Kalshi.WebSocketURL,
		apiKey:         cfg.Kalshi.APIKey,
		reconnectDelay: cfg.Kalshi.ReconnectDelay,
		pingInterval:   cfg.Kalshi.PingInterval,
		log:            log,
	}
}

var _ drepo.MarketStream = (*Stream)(nil)

// Connect establishes the WebSocket connection.
func (s *Stream) Connect(ctx context.Context) error {
	header := map[string][]string{}
	if s.apiKey != "" {
		header["Authorization"] = []string{"Bearer " + s.apiKey}
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, s.websocketURL, header)
	if err != nil {
		return fmt.Errorf("kalshi stream connect: %w", err)
	}

	s.mu.Lock()
	s.conn = conn
	s.connected = true
	s.mu.Unlock()

	if s.log != nil {
		s.log.Info("kalshi stream connected")
	}
	return nil
}

// Subscribe subscribes to ticker updates for the given contracts. The
// set is remembered for reconnects.
func (s *Stream) Subscribe(_ context.Context, contractIDs []string) error {
	s.mu.Lock()
	conn, connected := s.conn, s.connected
	s.contractIDs = append([]string(nil), contractIDs...)
	s.mu.Unlock()

	if conn == nil || !connected {
		return fmt.Errorf("kalshi stream not connected")
	}

	msg := map[string]interface{}{
		"cmd": "subscribe",
		"params": map[string]interface{}{
			"channels":       []string{"ticker"},
			"market_tickers": contractIDs,
		},
	}
	s.writeMu.Lock()
	err := conn.WriteJSON(msg)
	s.writeMu.Unlock()
	if err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}

	if s.log != nil {
		s.log.Info("kalshi stream subscribed", logger.Int("contracts", len(contractIDs)))
	}
	return nil
}

type tickerMessage struct {
	Type string `json:"type"`
	Msg  struct {
		MarketTicker string  `json:"market_ticker"`
		Price        float64 `json:"price"`
		Volume       float64 `json:"volume"`
		Timestamp    int64   `json:"ts"`
	} `json:"msg"`
}

// Read streams ticker events and errors until the context ends or the
// connection drops. Updates are dropped on backpressure rather than
// blocking the read loop.
func (s *Stream) Read(ctx context.Context) (<-chan *models.Ticker, <-chan error) {
	tickers := make(chan *models.Ticker, 1024)
	errs := make(chan error, 1)
	done := make(chan struct{})

	// The ping loop lives exactly as long as this Read's read loop, so a
	// reconnect never leaves a second pinger writing to the new conn.
	go func() {
		ticker := time.NewTicker(s.pingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-done:
				return
			case <-ticker.C:
				s.mu.Lock()
				conn := s.conn
				s.mu.Unlock()
				if conn != nil {
					s.writeMu.Lock()
					_ = conn.WriteMessage(websocket.PingMessage, nil)
					s.writeMu.Unlock()
				}
			}
		}
	}()

	go func() {
		defer close(done)
		defer close(tickers)
		defer close(errs)
		for {
			select {
			case <-ctx.Done():
				return
			default:
			}

			s.mu.Lock()
			conn := s.conn
			s.mu.Unlock()
			if conn == nil {
				errs <- fmt.Errorf("kalshi stream conn nil")
				return
			}

			_, b, err := conn.ReadMessage()
			if err != nil {
				errs <- fmt.Errorf("kalshi stream read: %w", err)
				return
			}

			var m tickerMessage
			if err := json.Unmarshal(b, &m); err != nil {
				continue
			}
			if m.Type != "ticker" || m.Msg.MarketTicker == "" {
				continue
			}

			// Wire prices are cents; normalize to probability.
			update := &models.Ticker{
				ContractID: m.Msg.MarketTicker,
				Price:      m.Msg.Price / 100,
				Volume:     m.Msg.Volume,
				Timestamp:  m.Msg.Timestamp,
			}
			select {
			case tickers <- update:
			default:
			}
		}
	}()

	return tickers, errs
}

// Reconnect closes and reconnects, then restores the subscription set.
func (s *Stream) Reconnect(ctx context.Context) error {
	_ = s.Close()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(s.reconnectDelay):
	}

	if err := s.Connect(ctx); err != nil {
		return err
	}

	s.mu.Lock()
	ids := append([]string(nil), s.contractIDs...)
	s.mu.Unlock()
	if len(ids) == 0 {
		return nil
	}
	return s.Subscribe(ctx, ids)
}

// Close closes the connection.
func (s *Stream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.connected = false
	if s.conn != nil {
		err := s.conn.Close()
		s.conn = nil
		return err
	}
	return nil
}

// IsConnected reports connection status.
func (s *Stream) IsConnected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connected
}
