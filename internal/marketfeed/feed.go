package marketfeed

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"futures-trader-core/internal/logging"
)

// RESTClient fetches backfill klines over HTTP. Implementations talk to a
// specific exchange; the feed itself is exchange-agnostic.
type RESTClient interface {
	FetchKlines(ctx context.Context, symbol, interval string, limit int) ([]Kline, error)
}

// StreamClient is the push side: a long-lived subscription multiplexer.
// Implemented by the gorilla/websocket-backed worker in stream.go.
type StreamClient interface {
	Start(ctx context.Context) error
	Stop() error
	Subscribe(topics []string) error
	Unsubscribe(topics []string) error
}

const (
	defaultBackfillLimit = 200
	addSymbolDeadline     = 5 * time.Second
)

type symbolKey struct {
	symbol   string
	interval string
}

// MarketFeed holds a bounded kline ring per (symbol, interval) and a
// latest-price map behind a single shared mutex; readers copy out slices
// under the lock rather than aliasing internal storage.
type MarketFeed struct {
	mu       sync.RWMutex
	rings    map[symbolKey]*KlineRing
	prices   map[string]float64
	monitors map[string]bool // symbol -> monitored

	rest   RESTClient
	stream StreamClient
	log    *logging.Logger

	stopCh  chan struct{}
	started bool
	wg      sync.WaitGroup
}

// New constructs a MarketFeed around a REST backfill client and an
// optional stream client (nil disables streaming; REST-only mode).
func New(rest RESTClient, stream StreamClient) *MarketFeed {
	return &MarketFeed{
		rings:    make(map[symbolKey]*KlineRing),
		prices:   make(map[string]float64),
		monitors: make(map[string]bool),
		rest:     rest,
		stream:   stream,
		log:      logging.WithComponent("marketfeed"),
		stopCh:   make(chan struct{}),
	}
}

// NewWithWSStream wires a WSStream whose kline/ticker callbacks feed
// straight back into this feed's ring/price cache, the normal production
// wiring for a single futures WebSocket endpoint.
func NewWithWSStream(rest RESTClient, wsURL string) *MarketFeed {
	f := New(rest, nil)
	f.stream = NewWSStream(wsURL, f.applyKline, f.applyTicker)
	return f
}

// Start launches the stream worker, if configured. Idempotent.
func (f *MarketFeed) Start(ctx context.Context) error {
	f.mu.Lock()
	if f.started {
		f.mu.Unlock()
		return nil
	}
	f.started = true
	f.stopCh = make(chan struct{})
	f.mu.Unlock()

	if f.stream == nil {
		return nil
	}
	return f.stream.Start(ctx)
}

// Stop cancels the stream worker and joins within a bounded grace period.
// Idempotent.
func (f *MarketFeed) Stop() error {
	f.mu.Lock()
	if !f.started {
		f.mu.Unlock()
		return nil
	}
	f.started = false
	close(f.stopCh)
	f.mu.Unlock()

	if f.stream == nil {
		return nil
	}

	done := make(chan error, 1)
	go func() { done <- f.stream.Stop() }()

	select {
	case err := <-done:
		return err
	case <-time.After(10 * time.Second):
		f.log.Warn("stream worker did not stop within grace period")
		return fmt.Errorf("marketfeed: stop timed out")
	}
}

// AddSymbol seeds the ring via REST and subscribes to the stream topics
// for each interval, within the given deadline. Idempotent per
// (symbol, interval): calling it twice leaves the feed in the same state
// as calling it once.
func (f *MarketFeed) AddSymbol(ctx context.Context, symbol string, intervals []string) error {
	ctx, cancel := context.WithTimeout(ctx, addSymbolDeadline)
	defer cancel()

	var topics []string
	backfillFailed := false
	for _, interval := range intervals {
		key := symbolKey{symbol: symbol, interval: interval}

		f.mu.RLock()
		_, exists := f.rings[key]
		f.mu.RUnlock()
		if exists {
			continue
		}

		if f.rest != nil {
			klines, err := f.rest.FetchKlines(ctx, symbol, interval, defaultBackfillLimit)
			if err != nil {
				f.log.Warn("REST backfill failed, symbol remains unmonitored for this interval", "symbol", symbol, "interval", interval, "error", err)
				backfillFailed = true
			} else {
				ring := NewKlineRing()
				for _, k := range klines {
					ring.Put(k)
				}
				f.mu.Lock()
				f.rings[key] = ring
				if len(klines) > 0 {
					f.prices[symbol] = klines[len(klines)-1].Close
				}
				f.mu.Unlock()
			}
		}

		topics = append(topics, streamTopic(symbol, interval), tickerTopic(symbol))
	}

	if len(topics) == 0 {
		f.mu.Lock()
		f.monitors[symbol] = !backfillFailed
		f.mu.Unlock()
		return nil
	}

	if f.stream == nil {
		f.mu.Lock()
		f.monitors[symbol] = !backfillFailed
		f.mu.Unlock()
		return nil
	}

	errCh := make(chan error, 1)
	go func() { errCh <- f.stream.Subscribe(topics) }()

	select {
	case err := <-errCh:
		if err != nil {
			f.log.Warn("subscribe failed, symbol considered not monitored", "symbol", symbol, "error", err)
			return nil
		}
		f.mu.Lock()
		f.monitors[symbol] = !backfillFailed
		f.mu.Unlock()
		return nil
	case <-ctx.Done():
		f.log.Warn("add_symbol timed out, symbol considered not monitored", "symbol", symbol)
		return nil
	}
}

// RemoveSymbol unsubscribes and drops all cache entries for symbol.
func (f *MarketFeed) RemoveSymbol(symbol string) {
	f.mu.Lock()
	var topics []string
	for key := range f.rings {
		if key.symbol == symbol {
			topics = append(topics, streamTopic(key.symbol, key.interval))
			delete(f.rings, key)
		}
	}
	delete(f.prices, symbol)
	delete(f.monitors, symbol)
	f.mu.Unlock()

	if f.stream != nil && len(topics) > 0 {
		topics = append(topics, tickerTopic(symbol))
		_ = f.stream.Unsubscribe(topics)
	}
}

// GetKlines returns up to limit most recent klines for symbol/interval,
// as a copy.
func (f *MarketFeed) GetKlines(symbol, interval string, limit int) []Kline {
	f.mu.RLock()
	defer f.mu.RUnlock()

	ring, ok := f.rings[symbolKey{symbol: symbol, interval: interval}]
	if !ok {
		return nil
	}
	return ring.Recent(limit)
}

// GetLatestPrice returns the latest known price, or (0, false) if unknown.
func (f *MarketFeed) GetLatestPrice(symbol string) (float64, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	p, ok := f.prices[symbol]
	return p, ok
}

// IsMonitoring reports whether symbol is actively subscribed.
func (f *MarketFeed) IsMonitoring(symbol string) bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.monitors[symbol]
}

// applyKline is invoked by the stream worker on each closed kline message.
// Only closed bars are applied, to avoid overwriting the
// ring with a provisional bar.
func (f *MarketFeed) applyKline(symbol, interval string, k Kline) {
	if !k.Closed {
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	key := symbolKey{symbol: symbol, interval: interval}
	ring, ok := f.rings[key]
	if !ok {
		ring = NewKlineRing()
		f.rings[key] = ring
	}
	ring.Put(k)
	f.prices[symbol] = k.Close
}

// applyTicker is invoked by the stream worker on each ticker message.
func (f *MarketFeed) applyTicker(symbol string, price float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prices[symbol] = price
}

func streamTopic(symbol, interval string) string {
	return fmt.Sprintf("%s@kline_%s", strings.ToLower(stripSeparators(symbol)), interval)
}

func tickerTopic(symbol string) string {
	return fmt.Sprintf("%s@ticker", strings.ToLower(stripSeparators(symbol)))
}

func stripSeparators(symbol string) string {
	s := strings.ReplaceAll(symbol, "/", "")
	s = strings.ReplaceAll(s, ":", "")
	return s
}
