// Package pipeline wires tick sources through the indicator, mapping, and
// rendering stages into the distribution hub, one supervised pipeline per
// configured asset.
package pipeline

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"github.com/zhound420/sonicticker/internal/audio"
	"github.com/zhound420/sonicticker/internal/feed"
	"github.com/zhound420/sonicticker/internal/hub"
	"github.com/zhound420/sonicticker/internal/indicator"
	"github.com/zhound420/sonicticker/internal/market"
	"github.com/zhound420/sonicticker/internal/metrics"
	"github.com/zhound420/sonicticker/internal/music"
)

const (
	// StreamBuffer is the tick transport capacity for streaming sources.
	StreamBuffer = 512
	// PollBuffer suffices for polling sources, whose production rate is capped
	// by the poll interval.
	PollBuffer = 64
)

// Options collects the orchestrator's collaborators and tuning knobs.
type Options struct {
	Registry *Registry
	Hub      *hub.Hub
	Renderer audio.Renderer
	Mapper   *music.Mapper
	Palette  music.Palette
	// Streaming serves crypto assets, Polling serves stock assets.
	Streaming feed.Source
	Polling   feed.Source
	Log       zerolog.Logger

	RSIPeriod    int
	WindowSize   int
	StreamBuffer int
	PollBuffer   int
}

// Orchestrator owns one running pipeline per configured asset and supervises
// each independently: a stuck or dead asset never takes down the others.
type Orchestrator struct {
	opts Options
}

// New validates options and applies defaults.
func New(opts Options) *Orchestrator {
	if opts.RSIPeriod <= 0 {
		opts.RSIPeriod = indicator.DefaultPeriod
	}
	if opts.WindowSize <= 0 {
		opts.WindowSize = indicator.DefaultMaxSamples
	}
	if opts.StreamBuffer <= 0 {
		opts.StreamBuffer = StreamBuffer
	}
	if opts.PollBuffer <= 0 {
		opts.PollBuffer = PollBuffer
	}
	return &Orchestrator{opts: opts}
}

// Start launches every asset pipeline. It returns immediately; pipelines run
// until ctx is canceled or their tick source is exhausted.
func (o *Orchestrator) Start(ctx context.Context) {
	for _, asset := range o.opts.Registry.Assets() {
		o.startAsset(ctx, asset)
	}
}

func (o *Orchestrator) startAsset(ctx context.Context, asset market.Asset) {
	source := o.opts.Polling
	buffer := o.opts.PollBuffer
	if asset.Category == market.CategoryCrypto {
		source = o.opts.Streaming
		buffer = o.opts.StreamBuffer
	}

	ticks := make(chan market.PriceTick, buffer)
	go func() {
		defer close(ticks)
		err := source.Run(ctx, asset.Symbol, ticks)
		if err != nil && !errors.Is(err, context.Canceled) {
			o.opts.Log.Error().Err(err).Str("symbol", asset.Symbol).Msg("tick source stopped")
		}
	}()

	go o.run(asset, ticks)
}

// run is the per-asset processing loop: strictly in arrival order, one metrics
// snapshot per tick, packet dropped on render failure, loop ends when the
// transport closes.
func (o *Orchestrator) run(asset market.Asset, ticks <-chan market.PriceTick) {
	calc := indicator.NewCalculator(asset.Symbol, o.opts.RSIPeriod, o.opts.WindowSize)
	o.opts.Log.Info().Str("symbol", asset.Symbol).Msg("pipeline started")

	for tick := range ticks {
		m := calc.OnTick(tick)
		style := o.opts.Palette.For(asset.Category, m.Volatility)
		params := o.opts.Mapper.Map(m, style)

		chunk, err := o.opts.Renderer.Render(params, style)
		if err != nil {
			metrics.RenderFailuresTotal.WithLabelValues(asset.Symbol).Inc()
			o.opts.Log.Error().Err(err).Str("symbol", asset.Symbol).Msg("render failed, dropping packet")
			continue
		}

		o.opts.Registry.UpdateMetrics(m)
		o.opts.Hub.Publish(&hub.Packet{Asset: asset.Symbol, Metrics: m, Params: params, Chunk: chunk})
		metrics.PacketsTotal.WithLabelValues(asset.Symbol).Inc()
	}

	o.opts.Log.Warn().Str("symbol", asset.Symbol).Msg("pipeline terminated")
}
