package pipeline

import (
	"context"

	"futures-trader-core/internal/llm"
	"futures-trader-core/internal/logging"
)

// AIDecisionDeps bundles AIDecision's collaborators.
type AIDecisionDeps struct {
	Client          LLMClient
	SystemPrompt    string
	BTCETHLeverage  int
	AltcoinLeverage int
}

// AIDecision renders a deterministic prompt from State, invokes the LLM
// collaborator, and parses the response into Decision records (section
// 4.5.4). Parse failures are retried once with the relaxed (code-fence-
// stripped) pass inside llm.ParseDecisions; persistent failure stores
// {error, raw_response} and leaves Decisions empty.
func AIDecision(ctx context.Context, state *State, deps AIDecisionDeps) *State {
	log := logging.WithComponent("pipeline.aidecision").WithTraceID(state.ScanID)

	if deps.Client == nil {
		state.AIDecision.Errors = append(state.AIDecision.Errors, "no LLM client configured")
		return state
	}

	userPrompt := RenderPrompt(state, deps.BTCETHLeverage, deps.AltcoinLeverage)

	raw, err := deps.Client.Complete(ctx, deps.SystemPrompt, userPrompt)
	if err != nil {
		log.Warn("LLM completion failed", "error", err)
		state.AIDecision.Errors = append(state.AIDecision.Errors, err.Error())
		return state
	}

	result := llm.ParseDecisions(raw)
	state.AIDecision.RawResponse = result.Raw
	if result.Err != nil {
		log.Warn("LLM response parse failed after relaxed retry", "error", result.Err)
		state.AIDecision.Errors = append(state.AIDecision.Errors, result.Err.Error())
		state.AIDecision.Decisions = nil
		return state
	}

	state.AIDecision.Decisions = result.Decisions
	return state
}
