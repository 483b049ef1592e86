package pipeline

import (
	"context"
	"time"

	"futures-trader-core/internal/indicators"
	"futures-trader-core/internal/llm"
	"futures-trader-core/internal/marketfeed"
	"futures-trader-core/internal/signalfeed"
	"futures-trader-core/internal/symbolfilter"
)

// MarketFeedSource is the subset of *marketfeed.MarketFeed the pipeline
// stages use. Narrowed to an interface so stage tests can fake it.
type MarketFeedSource interface {
	AddSymbol(ctx context.Context, symbol string, intervals []string) error
	GetKlines(symbol, interval string, limit int) []marketfeed.Kline
	GetLatestPrice(symbol string) (float64, bool)
	IsMonitoring(symbol string) bool
}

// SymbolFilterSource is the subset of *symbolfilter.Filter CoinPool
// consumes.
type SymbolFilterSource interface {
	GetFilteredSymbolNames() []string
	IsRunning() bool
}

// SignalFeedClient is the subset of *signalfeed.Client CoinPool consumes.
type SignalFeedClient interface {
	FetchCoinPool(ctx context.Context, url string, timeout time.Duration) []string
	FetchOITop(ctx context.Context, url string, timeout time.Duration) ([]string, map[string]signalfeed.OITopEntry)
}

// LLMClient is the subset of *llm.Client AIDecision invokes.
type LLMClient interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

var (
	_ SymbolFilterSource = (*symbolfilter.Filter)(nil)
	_ MarketFeedSource   = (*marketfeed.MarketFeed)(nil)
	_ SignalFeedClient   = (*signalfeed.Client)(nil)
	_ LLMClient          = (*llm.Client)(nil)
)

// toIndicatorKlines narrows feed klines to the OHLCV shape
// internal/indicators and internal/features operate on.
func toIndicatorKlines(klines []marketfeed.Kline) []indicators.Kline {
	out := make([]indicators.Kline, len(klines))
	for i, k := range klines {
		out[i] = indicators.Kline{
			OpenTime: k.OpenTime,
			Open:     k.Open,
			High:     k.High,
			Low:      k.Low,
			Close:    k.Close,
			Volume:   k.Volume,
		}
	}
	return out
}

