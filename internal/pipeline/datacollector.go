package pipeline

import (
	"context"
	"time"

	"futures-trader-core/internal/exchange"
	"futures-trader-core/internal/logging"
)

const (
	dataCollectorKlineLimit   = 200
	dataCollectorAddDeadline  = 5 * time.Second
	dataCollectorAsset        = "USDT"
)

// DataCollectorDeps bundles DataCollector's external collaborators.
type DataCollectorDeps struct {
	Adapter     exchange.Adapter // may be nil (unimplemented adapter => degraded, not failed)
	Feed        MarketFeedSource
	ShortTF     string
	LongTF      string
}

// DataCollector reads account balance/positions, forms the symbol union
// of open positions and candidates, subscribes new symbols within a
// shared 5s deadline, and populates market_data_map.
func DataCollector(ctx context.Context, state *State, deps DataCollectorDeps) *State {
	log := logging.WithComponent("pipeline.datacollector").WithTraceID(state.ScanID)

	if deps.Adapter != nil {
		if balance, err := deps.Adapter.GetBalance(ctx, dataCollectorAsset); err == nil {
			state.AccountBalance = balance
		} else {
			log.Warn("get_balance failed, treating as degraded", "error", err)
		}
		if positions, err := deps.Adapter.GetPositions(ctx); err == nil {
			state.Positions = positions
		} else {
			log.Warn("get_positions failed, treating as degraded", "error", err)
		}
	}

	allSymbols := unionSymbols(state)
	if len(allSymbols) == 0 {
		return state
	}

	if deps.Feed != nil {
		subscribeNewSymbols(ctx, deps, allSymbols, log)
	}

	isCandidate := make(map[string]bool, len(state.CandidateSymbols))
	for _, s := range state.CandidateSymbols {
		isCandidate[s] = true
	}
	isPosition := make(map[string]bool, len(state.Positions))
	for _, p := range state.Positions {
		isPosition[p.Symbol] = true
	}

	for _, symbol := range allSymbols {
		entry := MarketDataEntry{
			IsPosition:  isPosition[symbol],
			IsCandidate: isCandidate[symbol],
		}

		if deps.Feed == nil {
			entry.Error = "market feed unavailable"
			state.MarketDataMap[symbol] = entry
			continue
		}

		monitored := deps.Feed.IsMonitoring(symbol)
		shortKlines := deps.Feed.GetKlines(symbol, deps.ShortTF, dataCollectorKlineLimit)
		longKlines := deps.Feed.GetKlines(symbol, deps.LongTF, dataCollectorKlineLimit)

		if len(shortKlines) == 0 && len(longKlines) == 0 {
			entry.Error = "no kline data available"
			state.MarketDataMap[symbol] = entry
			continue
		}

		entry.KlinesShort = toIndicatorKlines(shortKlines)
		entry.KlinesLong = toIndicatorKlines(longKlines)

		if price, ok := deps.Feed.GetLatestPrice(symbol); ok {
			entry.CurrentPrice = price
		} else if len(shortKlines) > 0 {
			entry.CurrentPrice = shortKlines[len(shortKlines)-1].Close
		}

		if monitored {
			entry.Source = "stream_cache"
		} else {
			entry.Source = "rest"
		}

		state.MarketDataMap[symbol] = entry
	}

	return state
}

// unionSymbols forms all_symbols = positions ∪ candidate_symbols,
// preserving candidate order and appending any position symbols not
// already present.
func unionSymbols(state *State) []string {
	seen := make(map[string]bool, len(state.CandidateSymbols)+len(state.Positions))
	var out []string
	for _, s := range state.CandidateSymbols {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	for _, p := range state.Positions {
		if !seen[p.Symbol] {
			seen[p.Symbol] = true
			out = append(out, p.Symbol)
		}
	}
	return out
}

// subscribeNewSymbols requests MarketFeed.AddSymbol for any symbol not
// yet monitored, bounding the total wait to dataCollectorAddDeadline
// across ALL new symbols, not per-symbol.
func subscribeNewSymbols(ctx context.Context, deps DataCollectorDeps, symbols []string, log *logging.Logger) {
	var newSymbols []string
	for _, s := range symbols {
		if !deps.Feed.IsMonitoring(s) {
			newSymbols = append(newSymbols, s)
		}
	}
	if len(newSymbols) == 0 {
		return
	}

	addCtx, cancel := context.WithTimeout(ctx, dataCollectorAddDeadline)
	defer cancel()

	for _, s := range newSymbols {
		if addCtx.Err() != nil {
			log.Warn("add_symbol deadline exhausted, remaining symbols stay unmonitored this scan", "symbol", s)
			continue
		}
		if err := deps.Feed.AddSymbol(addCtx, s, []string{deps.ShortTF, deps.LongTF}); err != nil {
			log.Warn("add_symbol failed", "symbol", s, "error", err)
		}
	}
}
