package kalshi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"KalshiPulse/pkg/config"
)

// tickerFeedServer upgrades connections to WebSocket. The first
// connection is dropped right after the subscribe frame arrives; later
// connections send one ticker, count pings, and stay open.
func tickerFeedServer(t *testing.T, pings *atomic.Int64) *httptest.Server {
	t.Helper()
	var upgrader websocket.Upgrader
	var conns atomic.Int64

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}

		if conns.Add(1) == 1 {
			_, _, _ = conn.ReadMessage()
			conn.Close()
			return
		}

		conn.SetPingHandler(func(string) error {
			pings.Add(1)
			return nil
		})
		err = conn.WriteMessage(websocket.TextMessage,
			[]byte(`{"type": "ticker", "msg": {"market_ticker": "KX-A", "price": 42, "volume": 10, "ts": 1700000000}}`))
		if err != nil {
			conn.Close()
			return
		}
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				conn.Close()
				return
			}
		}
	}))
}

func testStream(t *testing.T, wsURL string) *Stream {
	t.Helper()
	cfg, err := config.Default()
	require.NoError(t, err)
	cfg.Kalshi.WebSocketURL = wsURL
	cfg.Kalshi.ReconnectDelay = time.Millisecond
	cfg.Kalshi.PingInterval = 25 * time.Millisecond
	return NewStream(cfg, nil)
}

func TestStreamSinglePingerAfterReconnect(t *testing.T) {
	var pings atomic.Int64
	srv := tickerFeedServer(t, &pings)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	s := testStream(t, "ws"+strings.TrimPrefix(srv.URL, "http"))
	require.NoError(t, s.Connect(ctx))
	defer s.Close()
	require.NoError(t, s.Subscribe(ctx, []string{"KX-A"}))

	// First connection dies server-side; the read loop must surface it.
	_, errs := s.Read(ctx)
	select {
	case err := <-errs:
		require.Error(t, err)
	case <-ctx.Done():
		t.Fatal("no read error from dropped connection")
	}

	require.NoError(t, s.Reconnect(ctx))
	tickers, _ := s.Read(ctx)

	select {
	case update := <-tickers:
		require.NotNil(t, update)
		assert.Equal(t, "KX-A", update.ContractID)
		assert.InDelta(t, 0.42, update.Price, 1e-9)
	case <-ctx.Done():
		t.Fatal("no ticker after reconnect")
	}

	// With a 25ms interval a single ping loop lands ~12 pings in 300ms.
	// A loop leaked from the first Read would roughly double that.
	pings.Store(0)
	time.Sleep(300 * time.Millisecond)
	got := pings.Load()
	assert.GreaterOrEqual(t, got, int64(4))
	assert.LessOrEqual(t, got, int64(18))
}
