// Package feed hosts the tick source adapters that push market data into the
// pipeline. Both adapters retry transient upstream failures forever and only
// stop when the pipeline's context is canceled.
package feed

import (
	"context"

	"github.com/zhound420/sonicticker/internal/market"
)

// Source is a pluggable tick source for one symbol. Run blocks until ctx is
// done (returning ctx.Err()) or the source is permanently exhausted (returning
// nil); upstream failures are retried internally and never surface.
type Source interface {
	Run(ctx context.Context, symbol string, out chan<- market.PriceTick) error
}
