package pipeline

import (
	"context"
	"time"

	"futures-trader-core/internal/logging"
)

// Deps bundles every external collaborator the six stages need. One Deps
// value is built per trader (not per scan) and reused across scans; only
// State is fresh per scan.
type Deps struct {
	CoinPool       CoinPoolDeps
	DataCollector  DataCollectorDeps
	SignalAnalyzer SignalAnalyzerDeps
	AIDecision     AIDecisionDeps
	RiskValidator  RiskValidatorDeps
	Executor       ExecutorDeps
}

// Run executes the fixed six-stage DAG once over state:
// CoinPool -> DataCollector -> SignalAnalyzer -> AIDecision ->
// RiskValidator -> Executor. No branches, no loops, single pass.
func Run(ctx context.Context, state *State, deps Deps) *State {
	log := logging.WithComponent("pipeline").WithTraceID(state.ScanID)
	started := time.Now()

	state = CoinPool(ctx, state, deps.CoinPool)
	state = DataCollector(ctx, state, deps.DataCollector)
	state = SignalAnalyzer(ctx, state, deps.SignalAnalyzer)
	state = AIDecision(ctx, state, deps.AIDecision)
	state = RiskValidator(ctx, state, deps.RiskValidator)
	state = Executor(ctx, state, deps.Executor)

	state.RuntimeMinutes = time.Since(started).Minutes()
	state.CallCount++

	log.Info("scan complete",
		"candidates", len(state.CandidateSymbols),
		"signals", len(state.SignalDataMap),
		"decisions", len(state.AIDecision.Decisions),
		"risk_approved", state.RiskApproved,
		"runtime_minutes", state.RuntimeMinutes,
	)

	return state
}
