package pipeline

import (
	"fmt"
	"sort"
	"strings"

	"futures-trader-core/internal/features"
)

// RenderPrompt deterministically renders the user prompt AIDecision sends
// alongside the trader's system prompt: account summary,
// performance block, positions, candidate list with sources, OI-top
// block, alerts, per-symbol features, configured leverage caps, and the
// decision-format contract. Map iteration is sorted so the same State
// always renders the same text — identical input produces identical
// output, which makes the render testable without a live LLM.
func RenderPrompt(state *State, btcEthLeverage, altcoinLeverage int) string {
	var b strings.Builder

	fmt.Fprintf(&b, "## Account\nbalance_usdt=%s\nopen_positions=%d\n\n", state.AccountBalance.String(), len(state.Positions))

	if len(state.Positions) > 0 {
		b.WriteString("## Open Positions\n")
		for _, p := range state.Positions {
			fmt.Fprintf(&b, "- %s side=%s qty=%s entry=%s leverage=%d unrealized_pnl=%s\n",
				p.Symbol, p.Side, p.Quantity.String(), p.EntryPrice.String(), p.Leverage, p.UnrealizedPnL.String())
		}
		b.WriteString("\n")
	}

	b.WriteString("## Performance (last hour)\n")
	if state.Performance.SharpeRatio != nil {
		fmt.Fprintf(&b, "sharpe_ratio=%.4f\n", *state.Performance.SharpeRatio)
	} else {
		b.WriteString("sharpe_ratio=insufficient_data\n")
	}
	fmt.Fprintf(&b, "win_rate=%.4f total_trades=%d avg_return=%.4f total_pnl=%.4f\n\n",
		state.Performance.WinRate, state.Performance.TotalTrades, state.Performance.AvgReturn, state.Performance.TotalPnL)

	b.WriteString("## Candidates\n")
	for _, symbol := range state.CandidateSymbols {
		sources := state.CoinSources[symbol]
		fmt.Fprintf(&b, "- %s sources=%s\n", symbol, strings.Join(sources, ","))
	}
	b.WriteString("\n")

	if len(state.OITopData) > 0 {
		b.WriteString("## OI Top\n")
		for _, symbol := range sortedKeys(state.OITopData) {
			e := state.OITopData[symbol]
			fmt.Fprintf(&b, "- %s oi_change=%.4f oi_change_pct=%.4f range=%s\n", symbol, e.OIChange, e.OIChangePct, e.TimeRange)
		}
		b.WriteString("\n")
	}

	if len(state.Alerts) > 0 {
		b.WriteString("## Alerts\n")
		for _, a := range state.Alerts {
			fmt.Fprintf(&b, "- [%s] %s %s %s\n", a.Severity, a.Symbol, a.Kind, a.Detail)
		}
		b.WriteString("\n")
	}

	b.WriteString("## Signals\n")
	for _, symbol := range sortedFeatureKeys(state.SignalDataMap) {
		mf := state.SignalDataMap[symbol]
		fmt.Fprintf(&b, "- %s price=%.6f chg1h=%.2f%% chg4h=%.2f%% short{ema20=%.4f macd=%.4f rsi7=%.2f rsi14=%.2f} long{ema20=%.4f ema50=%.4f macd=%.4f rsi14=%.2f atr14=%.4f atr3=%.4f} vol_cur=%.2f vol_avg=%.2f",
			symbol, mf.CurrentPrice, mf.PriceChange1h, mf.PriceChange4h,
			mf.Short.EMA20, mf.Short.MACD, mf.Short.RSI7, mf.Short.RSI14,
			mf.Long.EMA20, mf.Long.EMA50, mf.Long.MACD, mf.Long.RSI14, mf.Long.ATR14, mf.Long.ATR3,
			mf.VolumeCurrent4h, mf.VolumeAvg4h)
		if mf.OpenInterest != nil {
			fmt.Fprintf(&b, " oi=%.2f oi_avg=%.2f", *mf.OpenInterest, valueOr(mf.OIAverage, 0))
		}
		if mf.FundingRate != nil {
			fmt.Fprintf(&b, " funding=%.6f", *mf.FundingRate)
		}
		b.WriteString("\n")
	}
	b.WriteString("\n")

	fmt.Fprintf(&b, "## Leverage Caps\nbtc_eth=%d altcoin=%d\n\n", btcEthLeverage, altcoinLeverage)

	b.WriteString("## Decision Format\n")
	b.WriteString("Respond with a JSON array of decisions. Each element:\n")
	b.WriteString(`{"symbol": string, "action": "open_long"|"open_short"|"close_long"|"close_short"|"hold"|"wait", ` +
		`"leverage": int, "position_size_usd": number, "stop_loss": number, "take_profit": number, ` +
		`"risk_usd": number, "confidence": number, "reasoning": string}` + "\n")

	return b.String()
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func sortedFeatureKeys(m map[string]*features.MarketFeatures) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func valueOr(v *float64, def float64) float64 {
	if v == nil {
		return def
	}
	return *v
}
