// Package symbolfilter ranks a caller-provided universe by technical
// signal every 60 seconds and exposes a Top-N list under copy-on-read
// semantics. The background cadence is driven by robfig/cron/v3's
// `@every` entry instead of a bare ticker so the schedule expression
// stays declarative.
package symbolfilter

import (
	"context"
	"sort"
	"sync"

	"github.com/robfig/cron/v3"

	"futures-trader-core/internal/features"
	"futures-trader-core/internal/indicators"
	"futures-trader-core/internal/logging"
)

// TopN is the published list size.
const TopN = 20

// KlineSource supplies cached klines for scoring; in production this is
// the trader's MarketFeed, restricted to the one read method the filter
// needs so it cannot trigger REST calls or subscriptions.
type KlineSource interface {
	GetKlines(symbol, interval string, limit int) []indicators.Kline
}

// UniverseProvider returns the current tradable universe. Re-read once
// per tick rather than frozen at construction, so the universe can grow
// or shrink between cycles.
type UniverseProvider func(ctx context.Context) []string

// Scored is one entry in the published list.
type Scored struct {
	Symbol string
	Score  int
}

// Filter is the background Top-N scorer.
type Filter struct {
	universe UniverseProvider
	klines   KlineSource
	engine   *features.Engine
	shortTF  string
	longTF   string

	mu       sync.RWMutex
	filtered []Scored

	cron *cron.Cron
	log  *logging.Logger

	running bool
	runMu   sync.Mutex
}

// New builds a Filter. shortTF/longTF are the interval strings (e.g.
// "3m", "4h") FeatureEngine needs for scoring.
func New(universe UniverseProvider, klines KlineSource, shortTF, longTF string) *Filter {
	return &Filter{
		universe: universe,
		klines:   klines,
		engine:   features.New(nil), // skip_adapter_calls=true always here
		shortTF:  shortTF,
		longTF:   longTF,
		log:      logging.WithComponent("symbolfilter"),
	}
}

// Start launches the 60-second scoring loop. Idempotent.
func (f *Filter) Start(ctx context.Context) {
	f.runMu.Lock()
	defer f.runMu.Unlock()
	if f.running {
		return
	}
	f.running = true

	c := cron.New()
	_, _ = c.AddFunc("@every 1m", func() { f.tick(ctx) })
	f.cron = c
	c.Start()

	// Run once immediately so a fresh trader doesn't wait a full minute
	// for the first publication.
	go f.tick(ctx)
}

// Stop halts the scoring loop. Idempotent.
func (f *Filter) Stop() {
	f.runMu.Lock()
	defer f.runMu.Unlock()
	if !f.running {
		return
	}
	f.running = false
	if f.cron != nil {
		<-f.cron.Stop().Done()
	}
}

func (f *Filter) tick(ctx context.Context) {
	universe := f.universe(ctx)
	scored := make([]Scored, 0, len(universe))

	for _, symbol := range universe {
		shortK := f.klines.GetKlines(symbol, f.shortTF, 200)
		longK := f.klines.GetKlines(symbol, f.longTF, 200)

		mf, ok := f.engine.Calculate(ctx, symbol, shortK, longK, true)
		if !ok {
			continue // insufficient klines, skipped silently
		}

		scored = append(scored, Scored{Symbol: symbol, Score: Score(mf)})
	}

	sort.SliceStable(scored, func(i, j int) bool { return scored[i].Score > scored[j].Score })
	if len(scored) > TopN {
		scored = scored[:TopN]
	}

	f.mu.Lock()
	f.filtered = scored
	f.mu.Unlock()

	f.log.Debug("symbol filter tick complete", "universe_size", len(universe), "published", len(scored))
}

// GetFilteredSymbols returns a copy of the current Top-N list.
func (f *Filter) GetFilteredSymbols() []Scored {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := make([]Scored, len(f.filtered))
	copy(out, f.filtered)
	return out
}

// GetFilteredSymbolNames is a convenience accessor returning just the
// symbol strings, in score order — the shape CoinPool consumes.
func (f *Filter) GetFilteredSymbolNames() []string {
	scored := f.GetFilteredSymbols()
	out := make([]string, len(scored))
	for i, s := range scored {
		out[i] = s.Symbol
	}
	return out
}

// IsRunning reports whether the background loop is active.
func (f *Filter) IsRunning() bool {
	f.runMu.Lock()
	defer f.runMu.Unlock()
	return f.running
}
