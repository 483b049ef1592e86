package features

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"futures-trader-core/internal/exchange"
	"futures-trader-core/internal/indicators"
)

func makeKlines(n int, start float64) []indicators.Kline {
	out := make([]indicators.Kline, n)
	for i := 0; i < n; i++ {
		c := start + float64(i)
		out[i] = indicators.Kline{OpenTime: int64(i) * 1000, Open: c, High: c + 1, Low: c - 1, Close: c, Volume: 10}
	}
	return out
}

func TestCalculate_BelowMinimumKlinesReturnsAbsent(t *testing.T) {
	e := New(nil)
	short := makeKlines(5, 1)
	long := makeKlines(30, 1)

	_, ok := e.Calculate(context.Background(), "BTC/USDT", short, long, true)
	require.False(t, ok, "fewer than 20 klines on either timeframe drops the symbol")
}

func TestCalculate_SkipAdapterCallsLeavesOIFieldsNil(t *testing.T) {
	e := New(nil)
	short := makeKlines(30, 100)
	long := makeKlines(60, 100)

	mf, ok := e.Calculate(context.Background(), "BTC/USDT", short, long, true)
	require.True(t, ok)
	require.Nil(t, mf.OpenInterest)
	require.Nil(t, mf.OIAverage)
	require.Nil(t, mf.FundingRate)
}

func TestCalculate_AdapterWithoutOIDataLeavesFieldsNil(t *testing.T) {
	adapter := exchange.NewMockCEXAdapter(decimal.NewFromInt(1000))
	e := New(adapter)

	// MockCEXAdapter reports ok=false for open interest and funding rate;
	// with adapter calls enabled the OI fields must still stay nil.
	short := makeKlines(30, 100)
	long := makeKlines(60, 100)

	mf, ok := e.Calculate(context.Background(), "BTC/USDT", short, long, false)
	require.True(t, ok)
	require.Nil(t, mf.OpenInterest, "mock adapter reports ok=false, so fields stay nil even with calls enabled")
}

func TestCalculate_SeriesAlignedWithInputLength(t *testing.T) {
	e := New(nil)
	short := makeKlines(30, 100)
	long := makeKlines(60, 100)

	mf, ok := e.Calculate(context.Background(), "BTC/USDT", short, long, true)
	require.True(t, ok)
	require.Len(t, mf.ShortSeries.Close, len(short))
	require.Len(t, mf.LongSeries.EMA20, len(long))
}
