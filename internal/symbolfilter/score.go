package symbolfilter

import "futures-trader-core/internal/features"

// Score computes the deterministic additive score for one symbol.
// Identical MarketFeatures input must produce an identical integer score.
func Score(mf *features.MarketFeatures) int {
	score := 50

	if mf.CurrentPrice > mf.Short.EMA20 {
		score += 10
	} else {
		score -= 10
	}

	if mf.CurrentPrice > mf.Long.EMA20 {
		score += 15
	} else {
		score -= 15
	}

	if mf.Short.MACD > 0 {
		score += 10
	} else {
		score -= 10
	}

	if mf.Long.MACD > 0 {
		score += 15
	} else {
		score -= 15
	}

	if mf.Short.RSI14 > 30 && mf.Short.RSI14 < 70 {
		score += 5
	}

	if mf.Long.RSI14 > 30 && mf.Long.RSI14 < 70 {
		score += 5
	}

	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}
	return score
}
