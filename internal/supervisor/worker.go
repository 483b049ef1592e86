// Package supervisor implements TraderSupervisor/TraderWorker: lifecycle
// management of many concurrently running traders, each with its own scan
// loop running independently of the others.
package supervisor

import (
	"context"
	"errors"
	"sync"
	"time"

	"futures-trader-core/internal/logging"
	"futures-trader-core/internal/marketfeed"
	"futures-trader-core/internal/pipeline"
	"futures-trader-core/internal/store"
	"futures-trader-core/internal/symbolfilter"
)

// errScanPanicked is returned by runScan when a stage panics; the loop
// treats it like any other scan error (60s backoff, never dies).
var errScanPanicked = errors.New("supervisor: scan pass panicked")

// scanErrorBackoff is the wait applied after a failed scan before the
// loop tries again.
const scanErrorBackoff = 60 * time.Second

// shutdownGracePeriod bounds how long a worker's Stop waits for the scan
// loop to exit.
const shutdownGracePeriod = 10 * time.Second

// TraderWorker owns one trader's MarketFeed, optional SymbolFilter, and
// scan loop goroutine. Created by TraderSupervisor; lives
// until Stop.
type TraderWorker struct {
	TraderID int
	Config   store.TraderConfig

	feed   *marketfeed.MarketFeed
	filter *symbolfilter.Filter
	deps   pipeline.Deps

	scanInterval time.Duration

	mu        sync.Mutex
	isRunning bool
	scanMu    sync.Mutex // at most one in-flight scan at a time

	stopCh chan struct{}
	doneCh chan struct{}

	log *logging.Logger

	onScanComplete func(*pipeline.State) // test hook; nil in production
}

// NewTraderWorker builds a worker around its resolved dependencies. The
// caller (TraderSupervisor) is responsible for wiring feed/filter/deps
// from the trader's config before calling this.
func NewTraderWorker(cfg store.TraderConfig, feed *marketfeed.MarketFeed, filter *symbolfilter.Filter, deps pipeline.Deps) *TraderWorker {
	interval := time.Duration(cfg.ScanIntervalMinutes) * time.Minute
	if interval <= 0 {
		interval = time.Minute
	}
	return &TraderWorker{
		TraderID:     cfg.ID,
		Config:       cfg,
		feed:         feed,
		filter:       filter,
		deps:         deps,
		scanInterval: interval,
		log:          logging.WithComponent("trader").WithField("trader_id", cfg.ID),
	}
}

// Start launches the feed, optional filter, and the scan loop. Idempotent.
func (w *TraderWorker) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.isRunning {
		w.mu.Unlock()
		return nil
	}
	w.isRunning = true
	w.stopCh = make(chan struct{})
	w.doneCh = make(chan struct{})
	w.mu.Unlock()

	if err := w.feed.Start(ctx); err != nil {
		w.log.Warn("market feed start failed, continuing degraded (REST-only)", "error", err)
	}
	if w.filter != nil {
		w.filter.Start(ctx)
	}

	go w.runLoop(ctx)
	return nil
}

// Stop signals the scan loop and joins within shutdownGracePeriod.
// Idempotent — calling Stop more than once is safe.
func (w *TraderWorker) Stop() error {
	w.mu.Lock()
	if !w.isRunning {
		w.mu.Unlock()
		return nil
	}
	w.isRunning = false
	close(w.stopCh)
	done := w.doneCh
	w.mu.Unlock()

	select {
	case <-done:
	case <-time.After(shutdownGracePeriod):
		w.log.Warn("scan loop did not exit within grace period")
	}

	if w.filter != nil {
		w.filter.Stop()
	}
	return w.feed.Stop()
}

// IsRunning reports whether the worker's scan loop is active.
func (w *TraderWorker) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.isRunning
}

// runLoop is the cooperative per-trader scan loop:
// compute next_scan_time, wait for it or the stop signal, run one scan,
// back off 60s on error, reschedule.
func (w *TraderWorker) runLoop(ctx context.Context) {
	defer close(w.doneCh)

	nextScan := time.Now()
	for {
		wait := time.Until(nextScan)
		if wait < 0 {
			wait = 0
		}
		timer := time.NewTimer(wait)
		select {
		case <-w.stopCh:
			timer.Stop()
			return
		case <-timer.C:
		}

		if err := w.runScan(ctx); err != nil {
			w.log.Error("scan failed, backing off before retrying", "error", err)
			select {
			case <-w.stopCh:
				return
			case <-time.After(scanErrorBackoff):
			}
			nextScan = time.Now()
			continue
		}

		nextScan = time.Now().Add(w.scanInterval)
	}
}

// runScan executes exactly one pipeline pass over a fresh PipelineState.
// scanMu guarantees at most one in-flight scan even if runLoop were ever
// invoked concurrently, e.g. from a test.
func (w *TraderWorker) runScan(ctx context.Context) (err error) {
	w.scanMu.Lock()
	defer w.scanMu.Unlock()

	defer func() {
		if r := recover(); r != nil {
			w.log.Error("scan panicked, recovered", "panic", r)
			err = errScanPanicked
		}
	}()

	state := pipeline.NewState(w.TraderID, w.Config.Exchange, time.Now())
	state = pipeline.Run(ctx, state, w.deps)

	if w.onScanComplete != nil {
		w.onScanComplete(state)
	}
	return nil
}
