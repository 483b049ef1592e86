package pipeline

import (
	"context"

	"github.com/shopspring/decimal"

	"futures-trader-core/internal/exchange"
	"futures-trader-core/internal/llm"
	"futures-trader-core/internal/logging"
)

// ExecutorDeps bundles Executor's collaborators.
type ExecutorDeps struct {
	Adapter exchange.Adapter // may be nil; results stay "pending"
}

// Executor hands approved decisions to the exchange adapter (section
// 4.5.6). This spec fixes only the input/output contract — real order
// placement strategy (sizing into qty, slippage handling, retry) is a
// future extension out of core scope; every
// result here starts as "pending" and is only marked otherwise once an
// adapter call actually completes.
func Executor(ctx context.Context, state *State, deps ExecutorDeps) *State {
	log := logging.WithComponent("pipeline.executor").WithTraceID(state.ScanID)

	for _, d := range state.AIDecision.Decisions {
		result := ExecutionResult{Symbol: d.Symbol, Action: d.Action, Status: "pending"}

		if deps.Adapter == nil {
			state.ExecutionResults = append(state.ExecutionResults, result)
			continue
		}

		if err := executeOne(ctx, deps.Adapter, d); err != nil {
			log.Warn("execution failed", "symbol", d.Symbol, "action", d.Action, "error", err)
			result.Status = "failed"
			result.Message = err.Error()
		} else {
			result.Status = "submitted"
		}

		state.ExecutionResults = append(state.ExecutionResults, result)
	}

	return state
}

func executeOne(ctx context.Context, adapter exchange.Adapter, d llm.Decision) error {
	qty := adapter.FormatQuantity(d.Symbol, d.PositionSizeUSD)

	switch d.Action {
	case llm.ActionOpenLong:
		if err := adapter.SetLeverage(ctx, d.Symbol, d.Leverage); err != nil {
			return err
		}
		if err := adapter.OpenLong(ctx, d.Symbol, qty, d.Leverage); err != nil {
			return err
		}
		if err := adapter.SetStopLoss(ctx, d.Symbol, d.StopLoss); err != nil {
			return err
		}
		return adapter.SetTakeProfit(ctx, d.Symbol, d.TakeProfit)
	case llm.ActionOpenShort:
		if err := adapter.SetLeverage(ctx, d.Symbol, d.Leverage); err != nil {
			return err
		}
		if err := adapter.OpenShort(ctx, d.Symbol, qty, d.Leverage); err != nil {
			return err
		}
		if err := adapter.SetStopLoss(ctx, d.Symbol, d.StopLoss); err != nil {
			return err
		}
		return adapter.SetTakeProfit(ctx, d.Symbol, d.TakeProfit)
	case llm.ActionCloseLong:
		return adapter.CloseLong(ctx, d.Symbol, decimal.Zero)
	case llm.ActionCloseShort:
		return adapter.CloseShort(ctx, d.Symbol, decimal.Zero)
	default:
		return nil // hold / wait: nothing to execute
	}
}
