package feed

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/zhound420/sonicticker/internal/market"
)

// tradeServer upgrades any path and writes the given messages, then blocks
// until the client disconnects.
func tradeServer(t *testing.T, messages []string) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{}
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for _, msg := range messages {
			if err := conn.WriteMessage(websocket.TextMessage, []byte(msg)); err != nil {
				return
			}
		}
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
}

func wsURL(server *httptest.Server) string {
	return "ws" + strings.TrimPrefix(server.URL, "http")
}

func TestBinanceEmitsTicks(t *testing.T) {
	server := tradeServer(t, []string{`{"p":"65000.5","q":"0.25","T":1717243200000}`})
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	src := NewBinance(wsURL(server), zerolog.Nop(), WithReconnectDelay(50*time.Millisecond))
	ticks := make(chan market.PriceTick, 4)
	go func() {
		_ = src.Run(ctx, "btcusdt", ticks)
	}()

	select {
	case tk := <-ticks:
		if tk.Symbol != "btcusdt" {
			t.Fatalf("unexpected symbol %s", tk.Symbol)
		}
		if tk.Price != 65000.5 || tk.Volume != 0.25 {
			t.Fatalf("unexpected tick %+v", tk)
		}
		if !tk.Timestamp.Equal(time.UnixMilli(1717243200000).UTC()) {
			t.Fatalf("unexpected timestamp %s", tk.Timestamp)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for tick")
	}
}

func TestBinanceFieldParseFailureDegradesToZero(t *testing.T) {
	server := tradeServer(t, []string{`{"p":"not-a-number","q":"1.5","T":1717243200000}`})
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	src := NewBinance(wsURL(server), zerolog.Nop(), WithReconnectDelay(50*time.Millisecond))
	ticks := make(chan market.PriceTick, 4)
	go func() {
		_ = src.Run(ctx, "btcusdt", ticks)
	}()

	select {
	case tk := <-ticks:
		if tk.Price != 0 {
			t.Fatalf("expected zero price fallback, got %f", tk.Price)
		}
		if tk.Volume != 1.5 {
			t.Fatalf("expected volume untouched, got %f", tk.Volume)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for degraded tick")
	}
}

func TestBinanceMalformedMessageTearsDownAndReconnects(t *testing.T) {
	var conns atomic.Int32
	upgrader := websocket.Upgrader{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		if conns.Add(1) == 1 {
			_ = conn.WriteMessage(websocket.TextMessage, []byte(`{malformed`))
			return
		}
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"p":"10","q":"1","T":1717243200000}`))
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	src := NewBinance(wsURL(server), zerolog.Nop(), WithReconnectDelay(30*time.Millisecond))
	ticks := make(chan market.PriceTick, 4)
	go func() {
		_ = src.Run(ctx, "btcusdt", ticks)
	}()

	select {
	case tk := <-ticks:
		if tk.Price != 10 {
			t.Fatalf("unexpected tick after reconnect: %+v", tk)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for tick after reconnect")
	}
	if conns.Load() < 2 {
		t.Fatalf("expected a reconnect, saw %d connections", conns.Load())
	}
}

func TestBinanceConnectFailureRetriesAfterFixedDelay(t *testing.T) {
	var attempts atomic.Int32
	// Plain HTTP handler: every websocket handshake fails.
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		http.Error(w, "no", http.StatusNotFound)
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	const delay = 60 * time.Millisecond
	src := NewBinance(wsURL(server), zerolog.Nop(), WithReconnectDelay(delay))
	ticks := make(chan market.PriceTick, 4)
	go func() {
		_ = src.Run(ctx, "btcusdt", ticks)
	}()

	time.Sleep(4 * delay)
	cancel()

	if n := attempts.Load(); n < 2 {
		t.Fatalf("expected repeated connect attempts, saw %d", n)
	}
	select {
	case tk := <-ticks:
		t.Fatalf("expected no ticks while failing to connect, got %+v", tk)
	default:
	}
}

func TestBinanceStopsOnCancel(t *testing.T) {
	server := tradeServer(t, nil)
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	src := NewBinance(wsURL(server), zerolog.Nop(), WithReconnectDelay(30*time.Millisecond))
	ticks := make(chan market.PriceTick, 1)

	done := make(chan error, 1)
	go func() {
		done <- src.Run(ctx, "btcusdt", ticks)
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err == nil {
			t.Fatal("expected context error")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("source did not stop after cancel")
	}
}
