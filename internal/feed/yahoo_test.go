package feed

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/zhound420/sonicticker/internal/market"
)

const chartBody = `{"chart":{"result":[{"timestamp":[1717243140,1717243200,1717243260],
"indicators":{"quote":[{"close":[189.5,190.25,null],"volume":[1200,1500,null]}]}}]}}`

func chartServer(body string, status int) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
}

func TestYahooFetchLatestSkipsIncompleteDatapoints(t *testing.T) {
	server := chartServer(chartBody, http.StatusOK)
	defer server.Close()

	src := NewYahoo(server.URL, zerolog.Nop())
	tick, err := src.fetchLatest(context.Background(), "AAPL")
	if err != nil {
		t.Fatalf("fetchLatest returned error: %v", err)
	}

	// The newest index has nulls; the one before it is complete.
	if tick.Price != 190.25 || tick.Volume != 1500 {
		t.Fatalf("unexpected tick %+v", tick)
	}
	if !tick.Timestamp.Equal(time.Unix(1717243200, 0).UTC()) {
		t.Fatalf("unexpected timestamp %s", tick.Timestamp)
	}
}

func TestYahooFetchLatestFailures(t *testing.T) {
	cases := map[string]string{
		"empty result":      `{"chart":{"result":[]}}`,
		"missing quote":     `{"chart":{"result":[{"timestamp":[1],"indicators":{"quote":[]}}]}}`,
		"all nulls":         `{"chart":{"result":[{"timestamp":[1,2],"indicators":{"quote":[{"close":[null,null],"volume":[null,null]}]}}]}}`,
		"close without vol": `{"chart":{"result":[{"timestamp":[1],"indicators":{"quote":[{"close":[10.5],"volume":[null]}]}}]}}`,
	}
	for name, body := range cases {
		server := chartServer(body, http.StatusOK)
		src := NewYahoo(server.URL, zerolog.Nop())
		if _, err := src.fetchLatest(context.Background(), "AAPL"); err == nil {
			t.Fatalf("%s: expected fetch failure", name)
		}
		server.Close()
	}
}

func TestYahooFetchLatestBadStatus(t *testing.T) {
	server := chartServer("upstream broke", http.StatusBadGateway)
	defer server.Close()

	src := NewYahoo(server.URL, zerolog.Nop())
	if _, err := src.fetchLatest(context.Background(), "AAPL"); err == nil {
		t.Fatal("expected error for non-200 status")
	}
}

func TestYahooRunEmitsTicks(t *testing.T) {
	server := chartServer(chartBody, http.StatusOK)
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	src := NewYahoo(server.URL, zerolog.Nop(), WithPollInterval(30*time.Millisecond), WithPollBackoff(10*time.Millisecond))
	ticks := make(chan market.PriceTick, 4)
	go func() {
		_ = src.Run(ctx, "AAPL", ticks)
	}()

	for i := 0; i < 2; i++ {
		select {
		case tk := <-ticks:
			if tk.Symbol != "AAPL" {
				t.Fatalf("unexpected symbol %s", tk.Symbol)
			}
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for polled tick")
		}
	}
}

func TestYahooRunBacksOffOnFailure(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "nope", http.StatusInternalServerError)
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	src := NewYahoo(server.URL, zerolog.Nop(), WithPollInterval(25*time.Millisecond), WithPollBackoff(10*time.Millisecond))
	ticks := make(chan market.PriceTick, 4)
	done := make(chan error, 1)
	go func() {
		done <- src.Run(ctx, "AAPL", ticks)
	}()

	time.Sleep(150 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("source did not stop after cancel")
	}
	if calls.Load() < 2 {
		t.Fatalf("expected repeated polls despite failures, saw %d", calls.Load())
	}
	select {
	case tk := <-ticks:
		t.Fatalf("expected no ticks from failing upstream, got %+v", tk)
	default:
	}
}

func TestStubEmitsDeterministicTicks(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	src := NewStub(10 * time.Millisecond)
	ticks := make(chan market.PriceTick, 4)
	go func() {
		_ = src.Run(ctx, "btcusdt", ticks)
	}()

	select {
	case tk := <-ticks:
		if tk.Symbol != "btcusdt" || tk.Price <= 0 {
			t.Fatalf("unexpected stub tick %+v", tk)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for stub tick")
	}
}
