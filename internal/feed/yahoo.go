package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/zhound420/sonicticker/internal/market"
	"github.com/zhound420/sonicticker/internal/metrics"
)

const (
	defaultPollInterval = 15 * time.Second
	defaultPollBackoff  = 5 * time.Second
	defaultHTTPTimeout  = 10 * time.Second
)

type chartResponse struct {
	Chart struct {
		Result []chartResult `json:"result"`
	} `json:"chart"`
}

type chartResult struct {
	Timestamp  []int64 `json:"timestamp"`
	Indicators struct {
		Quote []chartQuote `json:"quote"`
	} `json:"indicators"`
}

type chartQuote struct {
	Close  []*float64 `json:"close"`
	Volume []*float64 `json:"volume"`
}

// Yahoo polls the v8 chart API for one symbol on a fixed interval and emits
// the newest datapoint that carries both a close and a volume. Fetch failures
// back off a fixed delay; the interval timer keeps running independently, so
// a regular tick may fire right after the backoff ends.
type Yahoo struct {
	baseURL  string
	client   *http.Client
	log      zerolog.Logger
	interval time.Duration
	backoff  time.Duration
}

// YahooOption configures Yahoo construction parameters.
type YahooOption func(*Yahoo)

// WithPollInterval overrides the fixed polling cadence.
func WithPollInterval(d time.Duration) YahooOption {
	return func(y *Yahoo) {
		if d > 0 {
			y.interval = d
		}
	}
}

// WithPollBackoff overrides the fixed post-failure delay.
func WithPollBackoff(d time.Duration) YahooOption {
	return func(y *Yahoo) {
		if d > 0 {
			y.backoff = d
		}
	}
}

// NewYahoo constructs a polling source against the given chart API base
// (e.g. https://query1.finance.yahoo.com).
func NewYahoo(baseURL string, log zerolog.Logger, opts ...YahooOption) *Yahoo {
	y := &Yahoo{
		baseURL:  strings.TrimSuffix(baseURL, "/"),
		client:   &http.Client{Timeout: defaultHTTPTimeout},
		log:      log,
		interval: defaultPollInterval,
		backoff:  defaultPollBackoff,
	}
	for _, opt := range opts {
		opt(y)
	}
	return y
}

// Run polls until ctx is done.
func (y *Yahoo) Run(ctx context.Context, symbol string, out chan<- market.PriceTick) error {
	if err := y.poll(ctx, symbol, out); err != nil {
		return err
	}

	ticker := time.NewTicker(y.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
		if err := y.poll(ctx, symbol, out); err != nil {
			return err
		}
	}
}

// poll fetches once and emits. It returns non-nil only on ctx cancellation;
// fetch failures log, sleep the fixed backoff, and resume.
func (y *Yahoo) poll(ctx context.Context, symbol string, out chan<- market.PriceTick) error {
	tick, err := y.fetchLatest(ctx, symbol)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		y.log.Warn().Err(err).Str("symbol", symbol).Dur("backoff", y.backoff).Msg("chart poll failed, backing off")
		select {
		case <-time.After(y.backoff):
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	select {
	case out <- tick:
		metrics.TicksTotal.WithLabelValues(symbol).Inc()
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (y *Yahoo) fetchLatest(ctx context.Context, symbol string) (market.PriceTick, error) {
	url := fmt.Sprintf("%s/v8/finance/chart/%s?interval=1m&range=1d", y.baseURL, symbol)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return market.PriceTick{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", "sonicticker/1.0")

	resp, err := y.client.Do(req)
	if err != nil {
		return market.PriceTick{}, fmt.Errorf("http do: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return market.PriceTick{}, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var payload chartResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return market.PriceTick{}, fmt.Errorf("decode chart response: %w", err)
	}
	if len(payload.Chart.Result) == 0 {
		return market.PriceTick{}, fmt.Errorf("empty chart result")
	}
	result := payload.Chart.Result[0]
	if len(result.Indicators.Quote) == 0 {
		return market.PriceTick{}, fmt.Errorf("missing quote block")
	}
	quote := result.Indicators.Quote[0]

	// Newest to oldest, skipping any index with a missing field.
	for i := len(result.Timestamp) - 1; i >= 0; i-- {
		if i >= len(quote.Close) || i >= len(quote.Volume) {
			continue
		}
		if quote.Close[i] == nil || quote.Volume[i] == nil {
			continue
		}
		return market.PriceTick{
			Symbol:    symbol,
			Price:     *quote.Close[i],
			Volume:    *quote.Volume[i],
			Timestamp: time.Unix(result.Timestamp[i], 0).UTC(),
		}, nil
	}
	return market.PriceTick{}, fmt.Errorf("no datapoint with both close and volume")
}
