package pipeline

import (
	"context"
	"time"

	"futures-trader-core/internal/logging"
	"futures-trader-core/internal/store"
)

const (
	coinPoolSourceTag  = "ai500"
	oiTopSourceTag     = "oi_top"
	insideAISourceTag  = "inside_ai"
	defaultSymbolTag   = "default"

	symbolFilterWaitTimeout = 120 * time.Second
	symbolFilterPollEvery   = 2 * time.Second
	symbolFilterLogEvery    = 10 * time.Second

	signalFeedTimeout = 10 * time.Second
)

// CoinPoolDeps bundles CoinPool's external collaborators.
type CoinPoolDeps struct {
	Signals  SignalFeedClient
	Filter   SymbolFilterSource // nil if inside_ai disabled for this trader
	Sources  store.SignalSourceConfig
	Fallback []string // trading_coins fallback
}

// CoinPool builds candidate_symbols by unioning, in order: external
// coin-pool feed, external OI-top feed, the SymbolFilter Top-N list, and
// finally the trading_coins fallback. Deduplicates, preserving
// first-seen order with no duplicates.
func CoinPool(ctx context.Context, state *State, deps CoinPoolDeps) *State {
	log := logging.WithComponent("pipeline.coinpool").WithTraceID(state.ScanID)

	if deps.Sources.CoinPoolEnabled && deps.Signals != nil {
		symbols := deps.Signals.FetchCoinPool(ctx, deps.Sources.CoinPoolURL, signalFeedTimeout)
		for _, s := range symbols {
			state.AddCandidate(s, coinPoolSourceTag)
		}
		log.Debug("coin pool feed fetched", "count", len(symbols))
	}

	if deps.Sources.OITopEnabled && deps.Signals != nil {
		symbols, oiMap := deps.Signals.FetchOITop(ctx, deps.Sources.OITopURL, signalFeedTimeout)
		for _, s := range symbols {
			state.AddCandidate(s, oiTopSourceTag)
		}
		for symbol, entry := range oiMap {
			state.OITopData[symbol] = entry
		}
		log.Debug("OI top feed fetched", "count", len(symbols))
	}

	if deps.Sources.InsideAIEnabled && deps.Filter != nil {
		insideSymbols := waitForFilteredSymbols(ctx, deps.Filter, log)
		for _, s := range insideSymbols {
			state.AddCandidate(s, insideAISourceTag)
		}
	}

	if len(state.CandidateSymbols) == 0 {
		if len(deps.Fallback) > 0 {
			for _, s := range deps.Fallback {
				state.AddCandidate(s, defaultSymbolTag)
			}
		} else {
			state.AddCandidate("BTC/USDT", defaultSymbolTag)
		}
	}

	return state
}

// waitForFilteredSymbols blocks up to 120s if the filter is enabled but
// its published list is still empty and the background loop is running:
// poll every 2s, log every 10s, and fall through on timeout.
func waitForFilteredSymbols(ctx context.Context, filter SymbolFilterSource, log *logging.Logger) []string {
	symbols := filter.GetFilteredSymbolNames()
	if len(symbols) > 0 || !filter.IsRunning() {
		return symbols
	}

	deadline := time.Now().Add(symbolFilterWaitTimeout)
	lastLog := time.Now()

	ticker := time.NewTicker(symbolFilterPollEvery)
	defer ticker.Stop()

	for time.Now().Before(deadline) {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			symbols = filter.GetFilteredSymbolNames()
			if len(symbols) > 0 {
				return symbols
			}
			if time.Since(lastLog) >= symbolFilterLogEvery {
				log.Info("still waiting for symbol filter's first publication")
				lastLog = time.Now()
			}
		}
	}

	log.Warn("symbol filter wait timed out, falling through with no inside_ai candidates")
	return nil
}
