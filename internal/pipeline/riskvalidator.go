package pipeline

import (
	"context"

	"github.com/shopspring/decimal"

	"futures-trader-core/internal/decimalx"
	"futures-trader-core/internal/logging"
	"futures-trader-core/internal/risk"
	"futures-trader-core/internal/store"
)

// RiskValidatorDeps bundles RiskValidator's collaborators.
type RiskValidatorDeps struct {
	Writer          *store.DecisionLogWriter // may be nil; write degrades to skip
	MarginUsedPct   float64
	BTCETHLeverage  int
	AltcoinLeverage int
}

// RiskValidator adapts State into a risk.Context, runs risk.Validate, and
// writes one DecisionLogRecord per surviving decision.
func RiskValidator(ctx context.Context, state *State, deps RiskValidatorDeps) *State {
	log := logging.WithComponent("pipeline.riskvalidator").WithTraceID(state.ScanID)

	riskCtx := risk.Context{
		AccountEquity:   state.AccountBalance,
		MarginUsedPct:   deps.MarginUsedPct,
		Positions:       state.Positions,
		CurrentPrices:   currentPrices(state),
		BTCETHLeverage:  deps.BTCETHLeverage,
		AltcoinLeverage: deps.AltcoinLeverage,
	}

	result := risk.Validate(state.AIDecision.Decisions, riskCtx)

	state.RiskApproved = result.RiskApproved
	for _, r := range result.Rejected {
		state.ValidationErrors[r.Symbol] = append(state.ValidationErrors[r.Symbol], r.Reason)
	}
	state.AIDecision.Decisions = result.Approved

	if deps.Writer == nil {
		return state
	}

	for _, d := range result.Approved {
		snapshot := store.StateSnapshot{
			CandidateSymbols: state.CandidateSymbols,
			Positions:        positionSymbols(state),
			AccountBalance:   state.AccountBalance,
			MarketDataKeys:   mapKeys(state.MarketDataMap),
			SignalDataKeys:   sortedFeatureKeys(state.SignalDataMap),
			CallCount:        state.CallCount,
			RuntimeMinutes:   state.RuntimeMinutes,
			RiskApproved:     state.RiskApproved,
			ValidationErrors: state.ValidationErrors[d.Symbol],
		}

		data, err := store.MarshalSnapshot(snapshot)
		if err != nil {
			log.Warn("snapshot marshal failed, skipping decision log write", "symbol", d.Symbol, "error", err)
			continue
		}

		entry := store.DecisionLogEntry{
			TraderID:       state.TraderID,
			Symbol:         d.Symbol,
			StateSnapshot:  data,
			DecisionResult: string(d.Action),
			Reasoning:      d.Reasoning,
			Confidence:     decimalx.NormalizeConfidence(d.Confidence),
		}

		if err := deps.Writer.Write(ctx, entry); err != nil {
			log.Warn("decision log write failed", "symbol", d.Symbol, "error", err)
		}
	}

	return state
}

func currentPrices(state *State) map[string]decimal.Decimal {
	prices := make(map[string]decimal.Decimal, len(state.MarketDataMap))
	for symbol, entry := range state.MarketDataMap {
		if entry.CurrentPrice > 0 {
			prices[symbol] = decimal.NewFromFloat(entry.CurrentPrice)
		}
	}
	return prices
}

func positionSymbols(state *State) []string {
	out := make([]string, len(state.Positions))
	for i, p := range state.Positions {
		out[i] = p.Symbol
	}
	return out
}

func mapKeys(m map[string]MarketDataEntry) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}
