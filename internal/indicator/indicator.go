// Package indicator derives rolling technical metrics from a single asset's tick
// stream. One Calculator instance is owned by exactly one pipeline goroutine and
// is not safe for concurrent use.
package indicator

import (
	"math"

	"github.com/zhound420/sonicticker/internal/market"
)

const (
	// DefaultPeriod is the classic RSI lookback.
	DefaultPeriod = 14
	// DefaultMaxSamples caps each rolling window.
	DefaultMaxSamples = 512

	lossEpsilon = 1e-9
)

// Calculator maintains the rolling windows for one symbol and emits a fresh
// metrics snapshot per tick.
type Calculator struct {
	symbol     string
	period     int
	maxSamples int

	prices  []float64
	volumes []float64
	returns []float64

	lastPrice float64
	hasLast   bool
	openPrice float64
	hasOpen   bool
}

// NewCalculator builds a calculator for symbol. Non-positive period or window
// sizes fall back to the defaults.
func NewCalculator(symbol string, period, maxSamples int) *Calculator {
	if period <= 0 {
		period = DefaultPeriod
	}
	if maxSamples <= 0 {
		maxSamples = DefaultMaxSamples
	}
	return &Calculator{
		symbol:     symbol,
		period:     period,
		maxSamples: maxSamples,
		prices:     make([]float64, 0, maxSamples),
		volumes:    make([]float64, 0, maxSamples),
		returns:    make([]float64, 0, maxSamples),
	}
}

// OnTick folds one tick into the rolling state and returns the derived metrics.
func (c *Calculator) OnTick(tick market.PriceTick) market.Metrics {
	c.prices = pushSample(c.prices, c.maxSamples, tick.Price)
	c.volumes = pushSample(c.volumes, c.maxSamples, tick.Volume)

	if c.hasLast {
		r := clamp((tick.Price/c.lastPrice)-1, -1, 1)
		c.returns = pushSample(c.returns, c.maxSamples, r)
	}

	c.lastPrice = tick.Price
	c.hasLast = true
	if !c.hasOpen {
		c.openPrice = tick.Price
		c.hasOpen = true
	}

	return market.Metrics{
		Symbol:             c.symbol,
		Price:              tick.Price,
		PriceChangePercent: c.priceChangePercent(),
		Volume:             tick.Volume,
		VolumeRatio:        c.volumeRatio(),
		RSI:                c.rsi(),
		Volatility:         c.volatility(),
		TempoBias:          c.tempoBias(),
		LastUpdated:        tick.Timestamp,
	}
}

// pushSample appends value, evicting the oldest sample when the window is full.
func pushSample(window []float64, max int, value float64) []float64 {
	if len(window) == max {
		copy(window, window[1:])
		window = window[:max-1]
	}
	return append(window, value)
}

func (c *Calculator) priceChangePercent() float64 {
	if !c.hasOpen || c.openPrice <= 0 {
		return 0
	}
	return (c.lastPrice - c.openPrice) / c.openPrice * 100
}

func (c *Calculator) volumeRatio() float64 {
	if len(c.volumes) == 0 {
		return 1.0
	}
	current := c.volumes[len(c.volumes)-1]
	var sum float64
	for _, v := range c.volumes {
		sum += v
	}
	avg := sum / float64(len(c.volumes))
	if avg == 0 {
		return 1.0
	}
	return clamp(current/avg, 0.1, 3.0)
}

func (c *Calculator) rsi() float64 {
	if len(c.prices) < c.period+1 {
		return 50.0
	}

	var gains, losses float64
	start := len(c.prices) - (c.period + 1)
	for i := start + 1; i < len(c.prices); i++ {
		change := c.prices[i] - c.prices[i-1]
		if change > 0 {
			gains += change
		} else {
			losses -= change
		}
	}

	losses = math.Max(losses, lossEpsilon)
	rs := gains / losses
	return 100 - (100 / (1 + rs))
}

func (c *Calculator) volatility() float64 {
	if len(c.returns) == 0 {
		return 0
	}
	var sum float64
	for _, r := range c.returns {
		sum += r
	}
	mean := sum / float64(len(c.returns))
	var variance float64
	for _, r := range c.returns {
		variance += (r - mean) * (r - mean)
	}
	variance /= float64(len(c.returns))
	return clamp(math.Sqrt(variance)*100, 0, 10)
}

func (c *Calculator) tempoBias() float64 {
	return clamp(c.volumeRatio()-1, -0.5, 0.5)
}

func clamp(v, lo, hi float64) float64 {
	return math.Min(hi, math.Max(lo, v))
}
