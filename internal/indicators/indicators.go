// Package indicators provides pure, deterministic technical-analysis
// functions over kline sequences: EMA, MACD, RSI, ATR, and volume stats,
// plus "series" variants returning NaN-padded arrays aligned to the input
// klines. On insufficient input, functions return an explicit sentinel
// (0.0, or NaN in the aligned series) rather than a neutral-looking value,
// so callers can tell "no signal" from "neutral signal".
package indicators

import "math"

// Kline is the minimal OHLCV shape indicator functions operate on. It
// mirrors marketfeed.Kline but indicators must not import marketfeed, to
// keep this package a pure, dependency-free leaf.
type Kline struct {
	OpenTime int64
	Open     float64
	High     float64
	Low      float64
	Close    float64
	Volume   float64
}

// MACDResult holds the MACD line, signal line, and histogram.
type MACDResult struct {
	MACD      float64
	Signal    float64
	Histogram float64
}

func closes(klines []Kline) []float64 {
	out := make([]float64, len(klines))
	for i, k := range klines {
		out[i] = k.Close
	}
	return out
}

func sma(values []float64, period int) float64 {
	if len(values) < period {
		return 0
	}
	sum := 0.0
	start := len(values) - period
	for i := start; i < len(values); i++ {
		sum += values[i]
	}
	return sum / float64(period)
}

// EMA returns the exponential moving average over the last `period`
// closes, seeded by the SMA of the first `period` values. Returns 0 when
// len(klines) < period.
func EMA(klines []Kline, period int) float64 {
	c := closes(klines)
	if len(c) < period {
		return 0
	}
	ema := sma(c[:period], period)
	mult := 2.0 / float64(period+1)
	for i := period; i < len(c); i++ {
		ema = (c[i] * mult) + (ema * (1 - mult))
	}
	return ema
}

// EMASeries returns EMA values aligned element-wise with klines, with the
// warm-up prefix (indices where fewer than `period` closes are available)
// padded with NaN.
func EMASeries(klines []Kline, period int) []float64 {
	c := closes(klines)
	out := make([]float64, len(c))
	if len(c) < period {
		for i := range out {
			out[i] = math.NaN()
		}
		return out
	}

	for i := 0; i < period-1; i++ {
		out[i] = math.NaN()
	}
	ema := sma(c[:period], period)
	out[period-1] = ema
	mult := 2.0 / float64(period+1)
	for i := period; i < len(c); i++ {
		ema = (c[i] * mult) + (ema * (1 - mult))
		out[i] = ema
	}
	return out
}

// RSI returns the Relative Strength Index over `period` closes. Requires
// period+1 klines; returns 0 otherwise (the "absent" sentinel, not a
// neutral 50).
func RSI(klines []Kline, period int) float64 {
	c := closes(klines)
	if len(c) < period+1 {
		return 0
	}

	gains, losses := 0.0, 0.0
	for i := len(c) - period; i < len(c); i++ {
		change := c[i] - c[i-1]
		if change > 0 {
			gains += change
		} else {
			losses += -change
		}
	}

	avgGain := gains / float64(period)
	avgLoss := losses / float64(period)
	if avgLoss == 0 {
		if avgGain == 0 {
			return 0
		}
		return 100.0
	}

	rs := avgGain / avgLoss
	return 100 - (100 / (1 + rs))
}

// RSISeries returns RSI values aligned with klines, NaN-padded below
// period+1.
func RSISeries(klines []Kline, period int) []float64 {
	c := closes(klines)
	out := make([]float64, len(c))
	for i := range out {
		if i < period {
			out[i] = math.NaN()
			continue
		}
		out[i] = RSI(klines[:i+1], period)
	}
	return out
}

// MACD computes the MACD line (fast EMA - slow EMA), a true signal line
// (EMA of the MACD series over signalPeriod, not an approximation), and
// the histogram. Requires slowPeriod+signalPeriod klines.
func MACD(klines []Kline, fastPeriod, slowPeriod, signalPeriod int) MACDResult {
	if len(klines) < slowPeriod+signalPeriod {
		return MACDResult{}
	}

	macdSeries := make([]float64, 0, len(klines)-slowPeriod+1)
	for i := slowPeriod; i <= len(klines); i++ {
		window := klines[:i]
		macdSeries = append(macdSeries, EMA(window, fastPeriod)-EMA(window, slowPeriod))
	}

	signal := emaOfSeries(macdSeries, signalPeriod)
	macd := macdSeries[len(macdSeries)-1]
	return MACDResult{MACD: macd, Signal: signal, Histogram: macd - signal}
}

// MACDSeries returns the MACD line aligned with klines, NaN-padded below
// the warm-up length (slowPeriod+signalPeriod-1).
func MACDSeries(klines []Kline, fastPeriod, slowPeriod, signalPeriod int) []float64 {
	out := make([]float64, len(klines))
	minLen := slowPeriod + signalPeriod
	for i := range out {
		if i+1 < minLen {
			out[i] = math.NaN()
			continue
		}
		out[i] = MACD(klines[:i+1], fastPeriod, slowPeriod, signalPeriod).MACD
	}
	return out
}

func emaOfSeries(values []float64, period int) float64 {
	if len(values) < period {
		return 0
	}
	sum := 0.0
	for i := 0; i < period; i++ {
		sum += values[i]
	}
	ema := sum / float64(period)
	mult := 2.0 / float64(period+1)
	for i := period; i < len(values); i++ {
		ema = (values[i] * mult) + (ema * (1 - mult))
	}
	return ema
}

// ATR returns the Average True Range over `period` bars. Requires
// period+1 klines.
func ATR(klines []Kline, period int) float64 {
	if len(klines) < period+1 {
		return 0
	}

	trueRanges := make([]float64, 0, len(klines)-1)
	for i := 1; i < len(klines); i++ {
		high, low, prevClose := klines[i].High, klines[i].Low, klines[i-1].Close
		tr := math.Max(high-low, math.Max(math.Abs(high-prevClose), math.Abs(low-prevClose)))
		trueRanges = append(trueRanges, tr)
	}

	start := len(trueRanges) - period
	sum := 0.0
	for i := start; i < len(trueRanges); i++ {
		sum += trueRanges[i]
	}
	return sum / float64(period)
}

// ATRSeries returns ATR values aligned with klines, NaN-padded below
// period+1.
func ATRSeries(klines []Kline, period int) []float64 {
	out := make([]float64, len(klines))
	for i := range out {
		if i+1 < period+1 {
			out[i] = math.NaN()
			continue
		}
		out[i] = ATR(klines[:i+1], period)
	}
	return out
}

// VolumeStats returns the current (last bar) and mean volume over the
// full input. Returns (0, 0) on empty input.
func VolumeStats(klines []Kline) (current, average float64) {
	if len(klines) == 0 {
		return 0, 0
	}
	current = klines[len(klines)-1].Volume

	sum := 0.0
	for _, k := range klines {
		sum += k.Volume
	}
	average = sum / float64(len(klines))
	return current, average
}

// PctChange returns the percent change from `from` to `to`. Returns 0 if
// `from` is zero to avoid a division-by-zero NaN leaking into features.
func PctChange(from, to float64) float64 {
	if from == 0 {
		return 0
	}
	return (to - from) / from * 100
}
