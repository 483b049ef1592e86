// Package risk implements RiskValidator, the pipeline sub-node that
// applies hard constraints to each LLM-produced Decision independently,
// then an account-wide gate across the survivors. Kept as its own package
// (distinct from internal/pipeline) since it has no dependency on
// PipelineState's shape, only on the narrow inputs named below — the
// pipeline driver adapts PipelineState into a risk.Context.
package risk

import (
	"github.com/shopspring/decimal"

	"futures-trader-core/internal/decimalx"
	"futures-trader-core/internal/exchange"
	"futures-trader-core/internal/llm"
)

// Reason codes are stable strings (not free-form error.Error() text) so
// callers and tests can assert on the rejection kind.
const (
	ReasonInvalidAction             = "invalid_action"
	ReasonMissingField               = "missing_required_field"
	ReasonLeverageExceedsCap         = "leverage_exceeds_cap"
	ReasonPositionExceedsCap         = "position_size_exceeds_cap"
	ReasonStopTakeOrdering           = "stop_take_ordering_invalid"
	ReasonRiskRewardBelowMinimum     = "risk_reward_ratio_below_minimum"
	ReasonRiskUSDInvalid             = "risk_usd_invalid"
	ReasonNoMatchingPosition         = "no_matching_position"
	ReasonDirectionMismatch          = "direction mismatch"
	ReasonAccountRiskGate            = "account_risk_gate"
)

// MinRiskReward is the minimum acceptable reward/risk ratio for any
// opened position.
var MinRiskReward = decimal.NewFromInt(3)

// MaxMarginUsedPct is the account-wide gate threshold:
// margin_used_pct must stay strictly below this for any open to pass.
const MaxMarginUsedPct = 80.0

// BTCETHPositionCapMultiple and AltcoinPositionCapMultiple are the
// position-size caps expressed as a multiple of account equity.
var (
	BTCETHPositionCapMultiple   = decimal.NewFromFloat(10)
	AltcoinPositionCapMultiple  = decimal.NewFromFloat(1.5)
)

// Context carries everything RiskValidator needs beyond the decision
// itself: account state, current prices, leverage caps.
type Context struct {
	AccountEquity   decimal.Decimal
	MarginUsedPct   float64
	Positions       []exchange.Position
	CurrentPrices   map[string]decimal.Decimal
	BTCETHLeverage  int
	AltcoinLeverage int
}

// Rejection records why one decision was dropped.
type Rejection struct {
	Symbol string
	Action llm.Action
	Reason string
}

// Result is the outcome of Validate.
type Result struct {
	Approved     []llm.Decision
	Rejected     []Rejection
	RiskApproved bool
}

// Validate applies the risk rules to decisions. Order of evaluation:
// per-decision rules first, then the account-wide gate over the
// survivors (which may additionally drop all open-type decisions).
func Validate(decisions []llm.Decision, ctx Context) Result {
	var survivors []llm.Decision
	var rejected []Rejection

	for _, d := range decisions {
		if reason, ok := validateOne(d, ctx); !ok {
			rejected = append(rejected, Rejection{Symbol: d.Symbol, Action: d.Action, Reason: reason})
			continue
		}
		survivors = append(survivors, d)
	}

	hasOpen := false
	for _, d := range survivors {
		if d.Action == llm.ActionOpenLong || d.Action == llm.ActionOpenShort {
			hasOpen = true
			break
		}
	}

	if hasOpen && !accountRiskOK(ctx) {
		var kept []llm.Decision
		for _, d := range survivors {
			if d.Action == llm.ActionOpenLong || d.Action == llm.ActionOpenShort {
				rejected = append(rejected, Rejection{Symbol: d.Symbol, Action: d.Action, Reason: ReasonAccountRiskGate})
				continue
			}
			kept = append(kept, d)
		}
		survivors = kept
	}

	return Result{
		Approved:     survivors,
		Rejected:     rejected,
		RiskApproved: len(survivors) > 0,
	}
}

func accountRiskOK(ctx Context) bool {
	return decimalx.IsPositive(ctx.AccountEquity) && ctx.MarginUsedPct < MaxMarginUsedPct
}

func validateOne(d llm.Decision, ctx Context) (string, bool) {
	if !llm.ValidActions[d.Action] {
		return ReasonInvalidAction, false
	}

	switch d.Action {
	case llm.ActionOpenLong, llm.ActionOpenShort:
		return validateOpen(d, ctx)
	case llm.ActionCloseLong:
		return validateClose(d, ctx, exchange.SideLong)
	case llm.ActionCloseShort:
		return validateClose(d, ctx, exchange.SideShort)
	case llm.ActionHold, llm.ActionWait:
		return "", true
	default:
		return ReasonInvalidAction, false
	}
}

func validateOpen(d llm.Decision, ctx Context) (string, bool) {
	if d.Leverage <= 0 || !decimalx.IsPositive(d.PositionSizeUSD) || !decimalx.IsPositive(d.StopLoss) || !decimalx.IsPositive(d.TakeProfit) {
		return ReasonMissingField, false
	}

	isMajor := isBTCOrETH(d.Symbol)
	leverageCap := ctx.AltcoinLeverage
	positionCapMultiple := AltcoinPositionCapMultiple
	if isMajor {
		leverageCap = ctx.BTCETHLeverage
		positionCapMultiple = BTCETHPositionCapMultiple
	}
	if d.Leverage > leverageCap {
		return ReasonLeverageExceedsCap, false
	}

	positionCap := ctx.AccountEquity.Mul(positionCapMultiple)
	if d.PositionSizeUSD.GreaterThan(positionCap) {
		return ReasonPositionExceedsCap, false
	}

	if d.Action == llm.ActionOpenLong {
		if !d.StopLoss.LessThan(d.TakeProfit) {
			return ReasonStopTakeOrdering, false
		}
	} else {
		if !d.StopLoss.GreaterThan(d.TakeProfit) {
			return ReasonStopTakeOrdering, false
		}
	}

	price, ok := ctx.CurrentPrices[d.Symbol]
	if !ok || !decimalx.IsPositive(price) {
		return ReasonMissingField, false
	}

	var risk, reward decimal.Decimal
	if d.Action == llm.ActionOpenLong {
		risk = price.Sub(d.StopLoss)
		reward = d.TakeProfit.Sub(price)
	} else {
		risk = d.StopLoss.Sub(price)
		reward = price.Sub(d.TakeProfit)
	}

	if !decimalx.IsPositive(risk) {
		return ReasonRiskRewardBelowMinimum, false
	}
	rr := reward.Div(risk)
	if rr.LessThan(MinRiskReward) {
		return ReasonRiskRewardBelowMinimum, false
	}

	if !d.RiskUSD.IsZero() && !decimalx.IsPositive(d.RiskUSD) {
		return ReasonRiskUSDInvalid, false
	}

	return "", true
}

func validateClose(d llm.Decision, ctx Context, side exchange.Side) (string, bool) {
	for _, p := range ctx.Positions {
		if p.Symbol != d.Symbol {
			continue
		}
		if p.Side != side {
			return ReasonDirectionMismatch, false
		}
		return "", true
	}
	return ReasonNoMatchingPosition, false
}

// isBTCOrETH classifies a symbol as a major (BTC/ETH) or altcoin, reusing
// the same residue extraction the exchange package exposes for symbol
// classification.
func isBTCOrETH(symbol string) bool {
	residue := exchange.NormalizeSymbolResidue(symbol)
	return residue == "BTC" || residue == "ETH"
}
