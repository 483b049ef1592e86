package indicators

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func makeKlines(closes []float64) []Kline {
	out := make([]Kline, len(closes))
	for i, c := range closes {
		out[i] = Kline{OpenTime: int64(i) * 1000, Open: c, High: c + 1, Low: c - 1, Close: c, Volume: 100 + float64(i)}
	}
	return out
}

func TestEMA_BelowMinimumReturnsZero(t *testing.T) {
	k := makeKlines([]float64{1, 2, 3})
	require.Equal(t, 0.0, EMA(k, 5))
}

func TestEMA_ExactMinimumLength(t *testing.T) {
	k := makeKlines([]float64{1, 2, 3, 4, 5})
	ema := EMA(k, 5)
	require.InDelta(t, 3.0, ema, 0.0001, "5-period EMA of first 5 points equals the seeding SMA")
}

func TestRSI_BelowMinimumReturnsZero(t *testing.T) {
	k := makeKlines([]float64{1, 2, 3})
	require.Equal(t, 0.0, RSI(k, 14))
}

func TestRSI_AllGainsReturns100(t *testing.T) {
	closes := make([]float64, 15)
	for i := range closes {
		closes[i] = float64(i + 1)
	}
	k := makeKlines(closes)
	require.Equal(t, 100.0, RSI(k, 14))
}

func TestMACD_BelowMinimumReturnsZeroStruct(t *testing.T) {
	k := makeKlines([]float64{1, 2, 3})
	got := MACD(k, 12, 26, 9)
	require.Equal(t, MACDResult{}, got)
}

func TestATR_BelowMinimumReturnsZero(t *testing.T) {
	k := makeKlines([]float64{1, 2})
	require.Equal(t, 0.0, ATR(k, 14))
}

func TestEMASeries_WarmupPrefixIsNaN(t *testing.T) {
	k := makeKlines([]float64{1, 2, 3, 4, 5, 6})
	series := EMASeries(k, 5)
	require.Len(t, series, 6)
	for i := 0; i < 4; i++ {
		require.True(t, math.IsNaN(series[i]), "index %d should be NaN warm-up", i)
	}
	require.False(t, math.IsNaN(series[4]))
	require.False(t, math.IsNaN(series[5]))
}

func TestVolumeStats(t *testing.T) {
	k := makeKlines([]float64{1, 2, 3})
	current, avg := VolumeStats(k)
	require.Equal(t, 102.0, current)
	require.InDelta(t, 101.0, avg, 0.0001)
}

func TestVolumeStats_Empty(t *testing.T) {
	current, avg := VolumeStats(nil)
	require.Equal(t, 0.0, current)
	require.Equal(t, 0.0, avg)
}

func TestPctChange_ZeroFromIsZeroNotNaN(t *testing.T) {
	require.Equal(t, 0.0, PctChange(0, 10))
}
