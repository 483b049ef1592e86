package llm

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Action is a decision's trading action.
type Action string

const (
	ActionOpenLong   Action = "open_long"
	ActionOpenShort  Action = "open_short"
	ActionCloseLong  Action = "close_long"
	ActionCloseShort Action = "close_short"
	ActionHold       Action = "hold"
	ActionWait       Action = "wait"
)

// ValidActions is the closed set of valid actions.
var ValidActions = map[Action]bool{
	ActionOpenLong: true, ActionOpenShort: true,
	ActionCloseLong: true, ActionCloseShort: true,
	ActionHold: true, ActionWait: true,
}

// Decision is one trade decision emitted by the LLM stage, later mutated
// only by the risk validator.
type Decision struct {
	Symbol          string          `json:"symbol"`
	Action          Action          `json:"action"`
	Leverage        int             `json:"leverage,omitempty"`
	PositionSizeUSD decimal.Decimal `json:"position_size_usd,omitempty"`
	StopLoss        decimal.Decimal `json:"stop_loss,omitempty"`
	TakeProfit      decimal.Decimal `json:"take_profit,omitempty"`
	RiskUSD         decimal.Decimal `json:"risk_usd,omitempty"`
	Confidence      decimal.Decimal `json:"confidence"`
	Reasoning       string          `json:"reasoning"`
}

// ParseResult carries the outcome of ParseDecisions: either a list of
// decisions, or an error paired with the raw response text to retain for
// the ai_decision.raw field.
type ParseResult struct {
	Decisions []Decision
	Raw       string
	Err       error
}

// ParseDecisions parses the LLM's raw text response as a JSON array of
// Decision records. On the first parse failure it attempts one relaxed
// pass that strips ```json fences.
// On persistent failure, Decisions is empty and Err/Raw are populated so
// the caller can store {error, raw_response}.
func ParseDecisions(raw string) ParseResult {
	decisions, err := tryParse(raw)
	if err == nil {
		return ParseResult{Decisions: decisions, Raw: raw}
	}

	relaxed := stripCodeFences(raw)
	decisions, relaxedErr := tryParse(relaxed)
	if relaxedErr == nil {
		return ParseResult{Decisions: decisions, Raw: raw}
	}

	return ParseResult{Decisions: nil, Raw: raw, Err: fmt.Errorf("llm: structured-output parse failed after relaxed retry: %w", err)}
}

func tryParse(text string) ([]Decision, error) {
	text = strings.TrimSpace(text)
	var decisions []Decision
	if err := json.Unmarshal([]byte(text), &decisions); err != nil {
		return nil, err
	}
	return decisions, nil
}

func stripCodeFences(text string) string {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	return strings.TrimSpace(text)
}
