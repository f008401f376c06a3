package feed

import (
	"context"
	"math"
	"time"

	"github.com/zhound420/sonicticker/internal/market"
	"github.com/zhound420/sonicticker/internal/metrics"
)

// Stub emits deterministic synthetic ticks, useful for tests and offline work.
type Stub struct {
	Interval   time.Duration
	StartPrice float64
}

// NewStub builds a stub source ticking every interval.
func NewStub(interval time.Duration) *Stub {
	if interval <= 0 {
		interval = 500 * time.Millisecond
	}
	return &Stub{Interval: interval, StartPrice: 100}
}

// Run emits a gently oscillating price until ctx is done.
func (s *Stub) Run(ctx context.Context, symbol string, out chan<- market.PriceTick) error {
	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	px := s.StartPrice
	if px <= 0 {
		px = 100
	}
	n := 0
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ts := <-ticker.C:
			n++
			px += math.Sin(float64(n)/7) * 0.5
			tick := market.PriceTick{
				Symbol:    symbol,
				Price:     px,
				Volume:    1 + float64(n%5),
				Timestamp: ts.UTC(),
			}
			select {
			case out <- tick:
				metrics.TicksTotal.WithLabelValues(symbol).Inc()
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
}
