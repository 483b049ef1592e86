package marketfeed

// RingCapacity is the fixed capacity of a KlineRing (invariant: capacity
// 1000 per symbol/interval).
const RingCapacity = 1000

// KlineRing is an ordered, bounded buffer of klines for one
// (symbol, interval) pair, keyed by open_time. Append-or-replace on the
// same open_time; evicts the oldest entry once full. Not safe for
// concurrent use on its own — callers hold MarketFeed's single shared
// mutex.
type KlineRing struct {
	buf []Kline
}

// NewKlineRing returns an empty ring.
func NewKlineRing() *KlineRing {
	return &KlineRing{buf: make([]Kline, 0, RingCapacity)}
}

// Put appends k, or replaces the last entry in place if it shares the
// same open_time. Open_times stay strictly monotonic except for the last
// entry, which may be replaced when a closing bar arrives for it.
func (r *KlineRing) Put(k Kline) {
	n := len(r.buf)
	if n > 0 && r.buf[n-1].OpenTime == k.OpenTime {
		r.buf[n-1] = k
		return
	}

	if n == RingCapacity {
		copy(r.buf, r.buf[1:])
		r.buf = r.buf[:n-1]
	}
	r.buf = append(r.buf, k)
}

// Recent returns up to limit most recent klines, oldest first, as a copy.
func (r *KlineRing) Recent(limit int) []Kline {
	n := len(r.buf)
	if limit <= 0 || limit > n {
		limit = n
	}
	out := make([]Kline, limit)
	copy(out, r.buf[n-limit:])
	return out
}

// Len returns the number of klines currently held.
func (r *KlineRing) Len() int { return len(r.buf) }
