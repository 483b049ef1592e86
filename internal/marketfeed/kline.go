// Package marketfeed holds recent kline history and latest price for a
// dynamic set of symbols/intervals, combining a streaming subscription
// with on-demand REST backfill behind a single shared mutex and
// bounded-ring storage per symbol/interval.
package marketfeed

// Kline is one OHLCV bar. Immutable once produced.
type Kline struct {
	OpenTime    int64
	Open        float64
	High        float64
	Low         float64
	Close       float64
	Volume      float64
	CloseTime   int64
	QuoteVolume float64
	TradeCount  int64
	Closed      bool
}

// Clone returns a value copy; Kline has no reference fields so this is
// just documentation of intent at call sites that pass klines across
// goroutine boundaries.
func (k Kline) Clone() Kline { return k }
