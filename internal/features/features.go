// Package features computes MarketFeatures for one symbol from two kline
// timeframes. It consumes internal/indicators for the pure math and, when
// not throughput-constrained, internal/exchange for open-interest/
// funding-rate augmentation.
package features

import (
	"context"
	"math"

	"futures-trader-core/internal/exchange"
	"futures-trader-core/internal/indicators"
)

// MinKlinesRequired is the minimum kline count required of both
// timeframes, below which the symbol is dropped from the scan.
const MinKlinesRequired = 20

// TimeframeFeatures holds the indicator values computed for one
// timeframe. EMA50/ATR14/ATR3 are only populated for the long timeframe.
type TimeframeFeatures struct {
	EMA20 float64
	EMA50 float64
	MACD  float64
	RSI7  float64
	RSI14 float64
	ATR14 float64
	ATR3  float64
}

// SeriesBlock holds NaN-padded aligned arrays for prompt rendering.
type SeriesBlock struct {
	Close []float64
	EMA20 []float64
	RSI14 []float64
	MACD  []float64
}

// MarketFeatures is the per-symbol, per-scan feature record.
type MarketFeatures struct {
	Symbol string

	CurrentPrice  float64
	PriceChange1h float64
	PriceChange4h float64

	Short TimeframeFeatures
	Long  TimeframeFeatures

	VolumeCurrent4h float64
	VolumeAvg4h     float64

	OpenInterest *float64
	OIAverage    *float64
	FundingRate  *float64

	ShortSeries SeriesBlock
	LongSeries  SeriesBlock
}

// barsPerHourShort is how many short-timeframe (3-minute) bars make up
// one hour, used for price_change_1h.
const barsPerHourShort = 20

// Engine computes MarketFeatures, optionally augmenting with an exchange
// adapter for open-interest/funding-rate.
type Engine struct {
	Adapter exchange.Adapter
}

// New builds a FeatureEngine around an (optional) exchange adapter.
func New(adapter exchange.Adapter) *Engine {
	return &Engine{Adapter: adapter}
}

// Calculate computes MarketFeatures for one symbol. Returns (nil, false)
// if either timeframe has fewer than MinKlinesRequired klines.
func (e *Engine) Calculate(ctx context.Context, symbol string, klinesShort, klinesLong []indicators.Kline, skipAdapterCalls bool) (*MarketFeatures, bool) {
	if len(klinesShort) < MinKlinesRequired || len(klinesLong) < MinKlinesRequired {
		return nil, false
	}

	mf := &MarketFeatures{Symbol: symbol}

	mf.CurrentPrice = klinesShort[len(klinesShort)-1].Close
	if mf.CurrentPrice == 0 && len(klinesLong) > 0 {
		mf.CurrentPrice = klinesLong[len(klinesLong)-1].Close
	}

	if len(klinesShort) > barsPerHourShort {
		prior := klinesShort[len(klinesShort)-1-barsPerHourShort].Close
		mf.PriceChange1h = indicators.PctChange(prior, klinesShort[len(klinesShort)-1].Close)
	}
	if len(klinesLong) > 1 {
		prior := klinesLong[len(klinesLong)-2].Close
		mf.PriceChange4h = indicators.PctChange(prior, klinesLong[len(klinesLong)-1].Close)
	}

	mf.Short = TimeframeFeatures{
		EMA20: indicators.EMA(klinesShort, 20),
		MACD:  indicators.MACD(klinesShort, 12, 26, 9).MACD,
		RSI7:  indicators.RSI(klinesShort, 7),
		RSI14: indicators.RSI(klinesShort, 14),
	}

	mf.Long = TimeframeFeatures{
		EMA20: indicators.EMA(klinesLong, 20),
		EMA50: indicators.EMA(klinesLong, 50),
		MACD:  indicators.MACD(klinesLong, 12, 26, 9).MACD,
		RSI7:  indicators.RSI(klinesLong, 7),
		RSI14: indicators.RSI(klinesLong, 14),
		ATR14: indicators.ATR(klinesLong, 14),
		ATR3:  indicators.ATR(klinesLong, 3),
	}

	mf.VolumeCurrent4h, mf.VolumeAvg4h = indicators.VolumeStats(klinesLong)

	if !skipAdapterCalls && e.Adapter != nil {
		if oi, ok := e.Adapter.GetOpenInterest(ctx, symbol); ok {
			v := oi.InexactFloat64()
			mf.OpenInterest = &v
			// oi_average is a placeholder (0.999 * current OI), not a
			// genuine rolling average.
			avg := v * 0.999
			mf.OIAverage = &avg
		}
		if fr, ok := e.Adapter.GetFundingRate(ctx, symbol); ok {
			v := fr.InexactFloat64()
			mf.FundingRate = &v
		}
	}

	mf.ShortSeries = buildSeries(klinesShort)
	mf.LongSeries = buildSeries(klinesLong)

	return mf, true
}

func buildSeries(klines []indicators.Kline) SeriesBlock {
	closeSeries := make([]float64, len(klines))
	for i, k := range klines {
		closeSeries[i] = k.Close
	}
	return SeriesBlock{
		Close: closeSeries,
		EMA20: indicators.EMASeries(klines, 20),
		RSI14: indicators.RSISeries(klines, 14),
		MACD:  indicators.MACDSeries(klines, 12, 26, 9),
	}
}

// IsAbsent reports whether v is NaN, the "absent" sentinel for series
// values; consumers must treat NaN as absent, not as a real zero.
func IsAbsent(v float64) bool { return math.IsNaN(v) }
