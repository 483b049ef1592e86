package pipeline

import (
	"context"
	"fmt"
	"math"

	"futures-trader-core/internal/features"
	"futures-trader-core/internal/logging"
	"futures-trader-core/internal/store"
)

const (
	liquidityThresholdNewCandidateUSD = 15_000_000.0
	liquidityThresholdHeldUSD         = 5_000_000.0
)

// SignalAnalyzerDeps bundles SignalAnalyzer's collaborators.
type SignalAnalyzerDeps struct {
	Engine *features.Engine
	Repo   *store.Repository // may be nil; performance degrades to zero
}

// SignalAnalyzer computes MarketFeatures for every symbol without a
// DataCollector error, applies the liquidity gate, stores the survivors
// in signal_data_map, and derives performance + alerts.
func SignalAnalyzer(ctx context.Context, state *State, deps SignalAnalyzerDeps) *State {
	log := logging.WithComponent("pipeline.signalanalyzer").WithTraceID(state.ScanID)

	for symbol, entry := range state.MarketDataMap {
		if entry.Error != "" {
			continue
		}

		mf, ok := deps.Engine.Calculate(ctx, symbol, entry.KlinesShort, entry.KlinesLong, false)
		if !ok {
			log.Debug("dropping symbol, insufficient klines", "symbol", symbol)
			continue
		}

		if !passesLiquidityGate(mf, entry) {
			log.Debug("dropping symbol, liquidity gate failed", "symbol", symbol)
			continue
		}

		state.SignalDataMap[symbol] = mf
	}

	if deps.Repo != nil {
		state.Performance = deps.Repo.ComputePerformance(ctx, state.TraderID)
	}

	state.Alerts = deriveAlerts(state.SignalDataMap)

	return state
}

// passesLiquidityGate computes oi_value_usd = open_interest * current_price
// and checks it against a threshold: $15M for new candidates, $5M for
// already-held symbols. Missing OI passes held symbols (to avoid spurious
// closes) but drops new candidates.
func passesLiquidityGate(mf *features.MarketFeatures, entry MarketDataEntry) bool {
	if mf.OpenInterest == nil {
		return entry.IsPosition
	}

	oiValueUSD := *mf.OpenInterest * mf.CurrentPrice
	threshold := liquidityThresholdNewCandidateUSD
	if entry.IsPosition {
		threshold = liquidityThresholdHeldUSD
	}
	return oiValueUSD >= threshold
}

// deriveAlerts derives one-off risk alerts from each symbol's features.
func deriveAlerts(signalData map[string]*features.MarketFeatures) []Alert {
	var alerts []Alert

	for symbol, mf := range signalData {
		if abs(mf.PriceChange1h) > 10 {
			alerts = append(alerts, Alert{Symbol: symbol, Severity: "high", Kind: "price_change_1h", Detail: fmt.Sprintf("%.2f%%", mf.PriceChange1h)})
		} else if abs(mf.PriceChange1h) > 5 {
			alerts = append(alerts, Alert{Symbol: symbol, Severity: "medium", Kind: "price_change_1h", Detail: fmt.Sprintf("%.2f%%", mf.PriceChange1h)})
		}

		if abs(mf.PriceChange4h) > 10 {
			alerts = append(alerts, Alert{Symbol: symbol, Severity: "medium", Kind: "price_change_4h", Detail: fmt.Sprintf("%.2f%%", mf.PriceChange4h)})
		}

		if mf.VolumeAvg4h > 0 && mf.VolumeCurrent4h/mf.VolumeAvg4h > 2.0 {
			alerts = append(alerts, Alert{Symbol: symbol, Severity: "medium", Kind: "volume_spike"})
		}

		if mf.Long.RSI14 > 80 {
			alerts = append(alerts, Alert{Symbol: symbol, Severity: "medium", Kind: "overbought"})
		} else if mf.Long.RSI14 > 0 && mf.Long.RSI14 < 20 {
			alerts = append(alerts, Alert{Symbol: symbol, Severity: "medium", Kind: "oversold"})
		}

		if signDiffers(mf.Short.MACD, mf.Long.MACD) {
			alerts = append(alerts, Alert{Symbol: symbol, Severity: "low", Kind: "macd_divergence"})
		}

		if mf.OpenInterest != nil && mf.OIAverage != nil && *mf.OIAverage > 0 && *mf.OpenInterest / *mf.OIAverage < 0.95 {
			alerts = append(alerts, Alert{Symbol: symbol, Severity: "medium", Kind: "liquidity_risk"})
		}
	}

	return alerts
}

func abs(f float64) float64 {
	if math.IsNaN(f) {
		return 0
	}
	return math.Abs(f)
}

func signDiffers(a, b float64) bool {
	if a == 0 || b == 0 {
		return false
	}
	return (a > 0) != (b > 0)
}
