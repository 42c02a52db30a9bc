// Package feed produces the venue's synthetic market data: a bounded
// random walk per asset on a fixed cadence, and OHLC candle
// aggregation over the resulting tick window.
package feed

import (
	"math/rand"
	"sync"
	"time"

	"options_venue/models"
)

// bootstrapSpacingMs is the synthetic spacing between back-filled
// ticks when an asset has no history yet.
const bootstrapSpacingMs = 1000

// Generator owns the per-asset tick windows. The random source and
// clock are injected so tests can seed determinism and control time.
// One Generator serializes all writes; readers get copies.
type Generator struct {
	mtx       sync.RWMutex
	ticks     map[string][]models.Tick
	window    int
	bootstrap int
	now       func() time.Time
	rng       *rand.Rand
}

func NewGenerator(window, bootstrap int, now func() time.Time, rng *rand.Rand) *Generator {
	if window <= 0 {
		window = 400
	}
	if bootstrap <= 0 {
		bootstrap = window
	}
	return &Generator{
		ticks:     make(map[string][]models.Tick),
		window:    window,
		bootstrap: bootstrap,
		now:       now,
		rng:       rng,
	}
}

// Bootstrap back-fills an asset that has no history with a full
// synthetic walk ending at now, so consumers never see an empty
// series. Assets that already have ticks are left alone.
func (g *Generator) Bootstrap(asset models.Asset) {
	g.mtx.Lock()
	defer g.mtx.Unlock()

	if len(g.ticks[asset.Name]) > 0 {
		return
	}

	endTime := g.now().UnixMilli()
	startTime := endTime - int64(g.bootstrap-1)*bootstrapSpacingMs

	series := make([]models.Tick, 0, g.bootstrap)
	price := asset.InitialPrice
	for i := 0; i < g.bootstrap; i++ {
		open := price
		close := open + (g.rng.Float64()-0.5)*asset.Volatility
		if close == open {
			close += asset.Volatility * 0.01
		}
		high := maxf(open, close) + g.rng.Float64()*asset.Volatility*0.5
		low := minf(open, close) - g.rng.Float64()*asset.Volatility*0.5
		series = append(series, models.Tick{
			Time:  startTime + int64(i)*bootstrapSpacingMs,
			Open:  open,
			High:  high,
			Low:   low,
			Close: close,
		})
		price = close
	}
	g.ticks[asset.Name] = series
}

// Tick advances the asset's walk by one step: the new open is the
// previous close, and the close moves by at most half the volatility
// in either direction. The window is trimmed to its cap by dropping
// the oldest tick.
func (g *Generator) Tick(asset models.Asset) models.Tick {
	g.mtx.Lock()
	defer g.mtx.Unlock()

	series := g.ticks[asset.Name]
	var last float64
	if len(series) > 0 {
		last = series[len(series)-1].Close
	} else {
		last = asset.InitialPrice
	}

	close := last + (g.rng.Float64()-0.5)*asset.Volatility
	tick := models.Tick{
		Time:  g.now().UnixMilli(),
		Open:  last,
		High:  maxf(last, close),
		Low:   minf(last, close),
		Close: close,
	}

	series = append(series, tick)
	if len(series) > g.window {
		series = series[len(series)-g.window:]
	}
	g.ticks[asset.Name] = series

	return tick
}

// Ticks returns a copy of the asset's window, oldest first.
func (g *Generator) Ticks(assetName string) []models.Tick {
	g.mtx.RLock()
	defer g.mtx.RUnlock()

	series := g.ticks[assetName]
	out := make([]models.Tick, len(series))
	copy(out, series)
	return out
}

// LatestClose returns the last known price for the asset. Settlement
// prices come from here.
func (g *Generator) LatestClose(assetName string) (float64, bool) {
	g.mtx.RLock()
	defer g.mtx.RUnlock()

	series := g.ticks[assetName]
	if len(series) == 0 {
		return 0, false
	}
	return series[len(series)-1].Close, true
}

// Snapshot copies every tick window for persistence.
func (g *Generator) Snapshot() map[string][]models.Tick {
	g.mtx.RLock()
	defer g.mtx.RUnlock()

	out := make(map[string][]models.Tick, len(g.ticks))
	for name, series := range g.ticks {
		cp := make([]models.Tick, len(series))
		copy(cp, series)
		out[name] = cp
	}
	return out
}

// Restore replaces the tick windows with a persisted snapshot,
// re-trimming in case the configured window shrank.
func (g *Generator) Restore(ticks map[string][]models.Tick) {
	g.mtx.Lock()
	defer g.mtx.Unlock()

	g.ticks = make(map[string][]models.Tick, len(ticks))
	for name, series := range ticks {
		cp := make([]models.Tick, len(series))
		copy(cp, series)
		if len(cp) > g.window {
			cp = cp[len(cp)-g.window:]
		}
		g.ticks[name] = cp
	}
}

func maxf(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

func minf(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
