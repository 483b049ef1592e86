package symbolfilter

import (
	"testing"

	"github.com/stretchr/testify/require"

	"futures-trader-core/internal/features"
)

func TestScore_Deterministic(t *testing.T) {
	mf := &features.MarketFeatures{
		CurrentPrice: 100,
		Short:        features.TimeframeFeatures{EMA20: 90, MACD: 1, RSI14: 50},
		Long:         features.TimeframeFeatures{EMA20: 90, MACD: 1, RSI14: 50},
	}

	want := Score(mf)
	for i := 0; i < 5; i++ {
		require.Equal(t, want, Score(mf), "identical features must yield identical score")
	}
	require.Equal(t, 100, want)
}

func TestScore_ClampedToRange(t *testing.T) {
	allBad := &features.MarketFeatures{
		CurrentPrice: 50,
		Short:        features.TimeframeFeatures{EMA20: 100, MACD: -1, RSI14: 80},
		Long:         features.TimeframeFeatures{EMA20: 100, MACD: -1, RSI14: 80},
	}
	require.Equal(t, 0, Score(allBad))
}
