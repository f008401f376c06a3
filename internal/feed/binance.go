package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/zhound420/sonicticker/internal/market"
	"github.com/zhound420/sonicticker/internal/metrics"
)

const (
	defaultConnectTimeout   = 30 * time.Second
	defaultHeartbeatTimeout = 45 * time.Second
	defaultReconnectDelay   = 3 * time.Second
)

// binanceTrade is the @trade stream payload; price and quantity arrive as
// strings.
type binanceTrade struct {
	Price     string `json:"p"`
	Quantity  string `json:"q"`
	TradeTime int64  `json:"T"`
}

// Binance streams live trades for one symbol over a persistent websocket.
// Any connection, heartbeat, or decode failure tears the connection down and
// the full connect sequence retries after a fixed delay, forever.
type Binance struct {
	endpoint         string
	log              zerolog.Logger
	connectTimeout   time.Duration
	heartbeatTimeout time.Duration
	reconnectDelay   time.Duration
}

// BinanceOption configures Binance construction parameters.
type BinanceOption func(*Binance)

// WithConnectTimeout overrides the websocket handshake deadline.
func WithConnectTimeout(d time.Duration) BinanceOption {
	return func(b *Binance) {
		if d > 0 {
			b.connectTimeout = d
		}
	}
}

// WithHeartbeatTimeout overrides how long a connection may stay silent before
// it is treated as stalled.
func WithHeartbeatTimeout(d time.Duration) BinanceOption {
	return func(b *Binance) {
		if d > 0 {
			b.heartbeatTimeout = d
		}
	}
}

// WithReconnectDelay overrides the fixed delay between connect attempts.
func WithReconnectDelay(d time.Duration) BinanceOption {
	return func(b *Binance) {
		if d > 0 {
			b.reconnectDelay = d
		}
	}
}

// NewBinance constructs a streaming source against the given ws endpoint base
// (e.g. wss://stream.binance.com:9443).
func NewBinance(endpoint string, log zerolog.Logger, opts ...BinanceOption) *Binance {
	b := &Binance{
		endpoint:         strings.TrimSuffix(endpoint, "/"),
		log:              log,
		connectTimeout:   defaultConnectTimeout,
		heartbeatTimeout: defaultHeartbeatTimeout,
		reconnectDelay:   defaultReconnectDelay,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Run reconnects forever until ctx is done.
func (b *Binance) Run(ctx context.Context, symbol string, out chan<- market.PriceTick) error {
	for {
		if err := b.consume(ctx, symbol, out); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			b.log.Warn().Err(err).Str("symbol", symbol).
				Dur("retry_in", b.reconnectDelay).Msg("trade stream failed, reconnecting")
		}
		select {
		case <-time.After(b.reconnectDelay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (b *Binance) consume(ctx context.Context, symbol string, out chan<- market.PriceTick) error {
	url := fmt.Sprintf("%s/ws/%s@trade", b.endpoint, strings.ToLower(symbol))
	dialer := websocket.Dialer{HandshakeTimeout: b.connectTimeout}

	dialCtx, cancel := context.WithTimeout(ctx, b.connectTimeout)
	defer cancel()
	conn, resp, err := dialer.DialContext(dialCtx, url, nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", url, err)
	}
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	defer conn.Close()

	b.log.Info().Str("symbol", symbol).Str("url", url).Msg("connected trade stream")
	conn.SetReadLimit(1 << 20)

	// Unblock the blocking read when the pipeline goes away.
	watchdog := make(chan struct{})
	defer close(watchdog)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-watchdog:
		}
	}()

	for {
		// Heartbeat contract: at least one inbound message per window.
		if err := conn.SetReadDeadline(time.Now().Add(b.heartbeatTimeout)); err != nil {
			return fmt.Errorf("set read deadline: %w", err)
		}
		_, message, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("read trade: %w", err)
		}

		var trade binanceTrade
		if err := json.Unmarshal(message, &trade); err != nil {
			return fmt.Errorf("decode trade: %w", err)
		}

		// Unparseable numeric fields degrade to zero; the tick is still emitted.
		price, err := strconv.ParseFloat(trade.Price, 64)
		if err != nil {
			b.log.Warn().Str("symbol", symbol).Str("raw", trade.Price).Msg("unparseable trade price, defaulting to 0")
			price = 0
		}
		volume, err := strconv.ParseFloat(trade.Quantity, 64)
		if err != nil {
			b.log.Warn().Str("symbol", symbol).Str("raw", trade.Quantity).Msg("unparseable trade quantity, defaulting to 0")
			volume = 0
		}
		ts := time.Now().UTC()
		if trade.TradeTime > 0 {
			ts = time.UnixMilli(trade.TradeTime).UTC()
		}

		tick := market.PriceTick{Symbol: symbol, Price: price, Volume: volume, Timestamp: ts}
		select {
		case out <- tick:
			metrics.TicksTotal.WithLabelValues(symbol).Inc()
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
