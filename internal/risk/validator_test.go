package risk

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"futures-trader-core/internal/exchange"
	"futures-trader-core/internal/llm"
)

func dec(f float64) decimal.Decimal { return decimal.NewFromFloat(f) }

func baseContext() Context {
	return Context{
		AccountEquity:   dec(1000),
		MarginUsedPct:   10,
		BTCETHLeverage:  10,
		AltcoinLeverage: 5,
		CurrentPrices:   map[string]decimal.Decimal{"BTC/USDT": dec(100)},
	}
}

func TestValidate_LongAccepted(t *testing.T) {
	ctx := baseContext()
	d := llm.Decision{
		Symbol: "BTC/USDT", Action: llm.ActionOpenLong,
		Leverage: 5, PositionSizeUSD: dec(200),
		StopLoss: dec(95), TakeProfit: dec(115),
	}

	result := Validate([]llm.Decision{d}, ctx)

	require.True(t, result.RiskApproved)
	require.Len(t, result.Approved, 1)
	assert.Empty(t, result.Rejected)
}

func TestValidate_LongRejectedRR(t *testing.T) {
	ctx := baseContext()
	d := llm.Decision{
		Symbol: "BTC/USDT", Action: llm.ActionOpenLong,
		Leverage: 5, PositionSizeUSD: dec(200),
		StopLoss: dec(95), TakeProfit: dec(110),
	}

	result := Validate([]llm.Decision{d}, ctx)

	assert.False(t, result.RiskApproved)
	require.Len(t, result.Rejected, 1)
	assert.Equal(t, ReasonRiskRewardBelowMinimum, result.Rejected[0].Reason)
}

func TestValidate_AltcoinOverPositionCap(t *testing.T) {
	ctx := baseContext()
	ctx.CurrentPrices["DOGE/USDT"] = dec(0.1)
	d := llm.Decision{
		Symbol: "DOGE/USDT", Action: llm.ActionOpenLong,
		Leverage: 3, PositionSizeUSD: dec(2000),
		StopLoss: dec(0.08), TakeProfit: dec(0.2),
	}

	result := Validate([]llm.Decision{d}, ctx)

	assert.False(t, result.RiskApproved)
	require.Len(t, result.Rejected, 1)
	assert.Equal(t, ReasonPositionExceedsCap, result.Rejected[0].Reason)
}

func TestValidate_CloseDirectionMismatch(t *testing.T) {
	ctx := baseContext()
	ctx.Positions = []exchange.Position{{Symbol: "ETH/USDT", Side: exchange.SideShort}}
	d := llm.Decision{Symbol: "ETH/USDT", Action: llm.ActionCloseLong}

	result := Validate([]llm.Decision{d}, ctx)

	assert.False(t, result.RiskApproved)
	require.Len(t, result.Rejected, 1)
	assert.Equal(t, ReasonDirectionMismatch, result.Rejected[0].Reason)
}

func TestValidate_CloseWithMatchingPositionPasses(t *testing.T) {
	ctx := baseContext()
	ctx.Positions = []exchange.Position{{Symbol: "ETH/USDT", Side: exchange.SideShort}}
	d := llm.Decision{Symbol: "ETH/USDT", Action: llm.ActionCloseShort}

	result := Validate([]llm.Decision{d}, ctx)

	assert.True(t, result.RiskApproved)
	assert.Len(t, result.Approved, 1)
}

func TestValidate_HoldAndWaitAlwaysPass(t *testing.T) {
	ctx := baseContext()
	decisions := []llm.Decision{
		{Symbol: "BTC/USDT", Action: llm.ActionHold},
		{Symbol: "ETH/USDT", Action: llm.ActionWait},
	}

	result := Validate(decisions, ctx)

	assert.True(t, result.RiskApproved)
	assert.Len(t, result.Approved, 2)
}

func TestValidate_AccountRiskGateDropsOpens(t *testing.T) {
	ctx := baseContext()
	ctx.MarginUsedPct = 85
	decisions := []llm.Decision{
		{
			Symbol: "BTC/USDT", Action: llm.ActionOpenLong,
			Leverage: 5, PositionSizeUSD: dec(200),
			StopLoss: dec(95), TakeProfit: dec(115),
		},
	}

	result := Validate(decisions, ctx)

	assert.False(t, result.RiskApproved)
	require.Len(t, result.Rejected, 1)
	assert.Equal(t, ReasonAccountRiskGate, result.Rejected[0].Reason)
}

func TestValidate_AccountRiskGateAllowsClosesThrough(t *testing.T) {
	ctx := baseContext()
	ctx.MarginUsedPct = 85
	ctx.Positions = []exchange.Position{{Symbol: "ETH/USDT", Side: exchange.SideLong}}
	decisions := []llm.Decision{
		{Symbol: "ETH/USDT", Action: llm.ActionCloseLong},
	}

	result := Validate(decisions, ctx)

	assert.True(t, result.RiskApproved)
	assert.Len(t, result.Approved, 1)
}

func TestValidate_InvalidActionRejected(t *testing.T) {
	ctx := baseContext()
	d := llm.Decision{Symbol: "BTC/USDT", Action: "sell_all_and_yolo"}

	result := Validate([]llm.Decision{d}, ctx)

	assert.False(t, result.RiskApproved)
	require.Len(t, result.Rejected, 1)
	assert.Equal(t, ReasonInvalidAction, result.Rejected[0].Reason)
}
