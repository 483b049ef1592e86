package store

import (
	"os"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

type tradeRecordFixture struct {
	TraderID int    `yaml:"trader_id"`
	Symbol   string `yaml:"symbol"`
	Side     string `yaml:"side"`
	Notional string `yaml:"notional"`
	FilledAt string `yaml:"filled_at"`
}

func loadTradeRecordFixture(t *testing.T, name string) []TradeRecord {
	t.Helper()

	raw, err := os.ReadFile("testdata/" + name)
	require.NoError(t, err)

	var fixtures []tradeRecordFixture
	require.NoError(t, yaml.Unmarshal(raw, &fixtures))

	out := make([]TradeRecord, len(fixtures))
	for i, f := range fixtures {
		notional, err := decimal.NewFromString(f.Notional)
		require.NoError(t, err)
		out[i] = TradeRecord{
			TraderID: f.TraderID,
			Symbol:   f.Symbol,
			Side:     f.Side,
			Notional: notional,
			FilledAt: f.FilledAt,
		}
	}
	return out
}

func TestComputePerformanceFromRecords_Profitable(t *testing.T) {
	records := loadTradeRecordFixture(t, "trade_records_profitable.yaml")

	perf := computePerformanceFromRecords(records)

	require.Equal(t, 4, perf.TotalTrades)
	require.Equal(t, 0.5, perf.WinRate) // 2 sells out of 4 records count as wins
	require.Greater(t, perf.TotalPnL, 0.0)
}

func TestComputePerformanceFromRecords_Losing(t *testing.T) {
	records := loadTradeRecordFixture(t, "trade_records_losing.yaml")

	perf := computePerformanceFromRecords(records)

	require.Equal(t, 4, perf.TotalTrades)
	require.Less(t, perf.TotalPnL, 0.0)
}

func TestComputePerformanceFromRecords_Empty(t *testing.T) {
	perf := computePerformanceFromRecords(nil)

	require.Equal(t, 0, perf.TotalTrades)
	require.Equal(t, 0.0, perf.WinRate)
	require.Nil(t, perf.SharpeRatio)
}

func TestComputePerformanceFromRecords_SharpeNilBelowTwoBuckets(t *testing.T) {
	records := []TradeRecord{
		{TraderID: 1, Symbol: "BTCUSDT", Side: "buy", Notional: decimal.NewFromInt(100), FilledAt: "2026-07-31T09:00:00Z"},
		{TraderID: 1, Symbol: "BTCUSDT", Side: "sell", Notional: decimal.NewFromInt(110), FilledAt: "2026-07-31T09:01:00Z"},
	}

	perf := computePerformanceFromRecords(records)

	require.Nil(t, perf.SharpeRatio, "both fills land in the same 3-minute bucket, leaving only one non-zero bucket")
}

func TestMarshalSnapshot_RoundTrips(t *testing.T) {
	snap := StateSnapshot{
		CandidateSymbols: []string{"BTCUSDT", "ETHUSDT"},
		Positions:        []string{"BTCUSDT"},
		AccountBalance:   decimal.NewFromInt(10000),
		CallCount:        3,
		RiskApproved:     true,
	}

	data, err := MarshalSnapshot(snap)
	require.NoError(t, err)
	require.Contains(t, string(data), "BTCUSDT")
	require.Contains(t, string(data), `"risk_approved":true`)
}
