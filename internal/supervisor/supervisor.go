package supervisor

import (
	"context"
	"fmt"
	"sync"

	"github.com/shopspring/decimal"

	"futures-trader-core/internal/exchange"
	"futures-trader-core/internal/features"
	"futures-trader-core/internal/indicators"
	"futures-trader-core/internal/llm"
	"futures-trader-core/internal/logging"
	"futures-trader-core/internal/marketfeed"
	"futures-trader-core/internal/pipeline"
	"futures-trader-core/internal/signalfeed"
	"futures-trader-core/internal/store"
	"futures-trader-core/internal/symbolfilter"
)

// mockStartingBalance seeds every mock adapter's account balance so scans
// have a nonzero equity to validate risk against until a real exchange
// integration replaces it.
var mockStartingBalance = decimal.NewFromInt(10000)

// ShortTF/LongTF are the two kline timeframes every trader's MarketFeed
// and FeatureEngine operate on: 3-minute short-term bars,
// 4-hour long-term bars.
const (
	ShortTF = "3m"
	LongTF  = "4h"
)

// UniverseProvider supplies the tradable universe for a trader's
// SymbolFilter. cmd/trader backs it with the system_config default_coins
// list; the exchange adapter interface has no listing call, so the
// exchange's own perpetuals listing is not used. Re-read once per tick so
// the universe can grow or shrink between cycles.
type UniverseProvider func(ctx context.Context) []string

// TraderSupervisor creates one long-lived TraderWorker per configured
// trader; owns start/stop, scan scheduling, and graceful shutdown.
type TraderSupervisor struct {
	repo     *store.Repository
	cache    *store.ConfigCache
	signals  *signalfeed.Client
	universe UniverseProvider

	mu      sync.Mutex
	workers map[int]*TraderWorker

	log *logging.Logger
}

// New builds a TraderSupervisor around its store repository, a trader-config
// cache (degrades to repo-only reads when Redis is disabled or unhealthy),
// and the shared signal-feed HTTP client used by every trader's CoinPool
// stage.
func New(repo *store.Repository, cache *store.ConfigCache, signals *signalfeed.Client, universe UniverseProvider) *TraderSupervisor {
	return &TraderSupervisor{
		repo:     repo,
		cache:    cache,
		signals:  signals,
		universe: universe,
		workers:  make(map[int]*TraderWorker),
		log:      logging.WithComponent("supervisor"),
	}
}

// LoadAll loads every enabled TraderConfig from the store and
// instantiates (but does not start) a worker for each. A trader that
// fails to instantiate is skipped and logged;
// the rest still load.
func (s *TraderSupervisor) LoadAll(ctx context.Context) error {
	configs, err := s.repo.LoadTraderConfigs(ctx)
	if err != nil {
		return fmt.Errorf("supervisor: loading trader configs: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, cfg := range configs {
		worker, err := s.buildWorker(ctx, cfg)
		if err != nil {
			s.log.Warn("skipping trader, failed to instantiate", "trader_id", cfg.ID, "error", err)
			continue
		}
		s.workers[cfg.ID] = worker
		if s.cache != nil {
			s.cache.PutTraderConfig(ctx, cfg)
		}
	}
	return nil
}

// loadTraderConfig resolves one trader's config, preferring a cache hit
// over a full repository scan.
func (s *TraderSupervisor) loadTraderConfig(ctx context.Context, id int) (store.TraderConfig, error) {
	if s.cache != nil {
		if cfg, ok := s.cache.GetTraderConfig(ctx, id); ok {
			return cfg, nil
		}
	}

	configs, err := s.repo.LoadTraderConfigs(ctx)
	if err != nil {
		return store.TraderConfig{}, err
	}
	for _, cfg := range configs {
		if cfg.ID == id {
			if s.cache != nil {
				s.cache.PutTraderConfig(ctx, cfg)
			}
			return cfg, nil
		}
	}
	return store.TraderConfig{}, fmt.Errorf("trader %d no longer enabled", id)
}

// buildWorker resolves a TraderConfig's exchange adapter, LLM client,
// MarketFeed, optional SymbolFilter, and pipeline.Deps into one
// TraderWorker.
func (s *TraderSupervisor) buildWorker(ctx context.Context, cfg store.TraderConfig) (*TraderWorker, error) {
	if cfg.AIModel.ID == 0 {
		return nil, fmt.Errorf("missing AI model configuration")
	}
	if cfg.Exchange.ID == 0 {
		return nil, fmt.Errorf("missing exchange configuration")
	}

	adapter := buildAdapter(cfg.Exchange)

	feed := marketfeed.New(marketfeed.NewHTTPRESTClient(restBaseURLFor(cfg.Exchange)), nil)

	var filter *symbolfilter.Filter
	if s.universe != nil {
		filter = symbolfilter.New(symbolfilter.UniverseProvider(s.universe), feedKlineSource{feed}, ShortTF, LongTF)
	}

	signalSources, err := s.repo.LoadSignalSources(ctx, cfg.UserID)
	if err != nil {
		s.log.Warn("loading signal sources failed, treating as all-disabled", "trader_id", cfg.ID, "error", err)
	}

	llmClient := llm.NewClient(llm.ClientConfig{
		Provider:    llm.Provider(cfg.AIModel.Provider),
		APIKey:      cfg.AIModel.APIKey,
		Model:       cfg.AIModel.Model,
		MaxTokens:   cfg.AIModel.MaxTokens,
		Temperature: cfg.AIModel.Temperature,
	})

	deps := pipeline.Deps{
		CoinPool: pipeline.CoinPoolDeps{
			Signals:  s.signals,
			Filter:   filter,
			Sources:  signalSources,
			Fallback: cfg.TradingCoins,
		},
		DataCollector: pipeline.DataCollectorDeps{
			Adapter: adapter,
			Feed:    feed,
			ShortTF: ShortTF,
			LongTF:  LongTF,
		},
		SignalAnalyzer: pipeline.SignalAnalyzerDeps{
			Engine: features.New(adapter),
			Repo:   s.repo,
		},
		AIDecision: pipeline.AIDecisionDeps{
			Client:          llmClient,
			SystemPrompt:    cfg.PromptTemplate.SystemPrompt,
			BTCETHLeverage:  cfg.BTCETHLeverage,
			AltcoinLeverage: cfg.AltcoinLeverage,
		},
		RiskValidator: pipeline.RiskValidatorDeps{
			Writer:          store.NewDecisionLogWriter(s.repo.DB()),
			MarginUsedPct:   0,
			BTCETHLeverage:  cfg.BTCETHLeverage,
			AltcoinLeverage: cfg.AltcoinLeverage,
		},
		Executor: pipeline.ExecutorDeps{
			Adapter: adapter,
		},
	}

	return NewTraderWorker(cfg, feed, filter, deps), nil
}

// feedKlineSource adapts *marketfeed.MarketFeed to symbolfilter.KlineSource,
// converting the feed's OHLCV shape to the indicator package's.
type feedKlineSource struct {
	feed *marketfeed.MarketFeed
}

func (s feedKlineSource) GetKlines(symbol, interval string, limit int) []indicators.Kline {
	raw := s.feed.GetKlines(symbol, interval, limit)
	out := make([]indicators.Kline, len(raw))
	for i, k := range raw {
		out[i] = indicators.Kline{
			OpenTime: k.OpenTime,
			Open:     k.Open,
			High:     k.High,
			Low:      k.Low,
			Close:    k.Close,
			Volume:   k.Volume,
		}
	}
	return out
}

func buildAdapter(cfg store.ExchangeConfig) exchange.Adapter {
	if cfg.Kind == store.ExchangeKindWallet {
		return exchange.NewMockWalletAdapter(cfg.WalletAddress, mockStartingBalance)
	}
	return exchange.NewMockCEXAdapter(mockStartingBalance)
}

func restBaseURLFor(cfg store.ExchangeConfig) string {
	if cfg.Testnet {
		return "https://testnet.binancefuture.com"
	}
	return "https://fapi.binance.com"
}

// StartAll starts every loaded worker.
func (s *TraderSupervisor) StartAll(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, w := range s.workers {
		if err := w.Start(ctx); err != nil {
			s.log.Warn("trader start failed", "trader_id", id, "error", err)
			continue
		}
		s.persistRunning(ctx, id, true)
	}
}

// StopAll stops every running worker, proceeding past any that exceed
// their shutdown grace window.
func (s *TraderSupervisor) StopAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, w := range s.workers {
		if err := w.Stop(); err != nil {
			s.log.Warn("trader stop failed", "trader_id", id, "error", err)
		}
		s.persistRunning(context.Background(), id, false)
	}
}

// Start starts one trader by id.
func (s *TraderSupervisor) Start(ctx context.Context, id int) error {
	s.mu.Lock()
	w, ok := s.workers[id]
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("supervisor: unknown trader %d", id)
	}
	if err := w.Start(ctx); err != nil {
		return err
	}
	s.persistRunning(ctx, id, true)
	return nil
}

// Stop stops one trader by id.
func (s *TraderSupervisor) Stop(id int) error {
	s.mu.Lock()
	w, ok := s.workers[id]
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("supervisor: unknown trader %d", id)
	}
	if err := w.Stop(); err != nil {
		return err
	}
	s.persistRunning(context.Background(), id, false)
	return nil
}

// Status reports whether trader id's worker is currently running.
func (s *TraderSupervisor) Status(id int) (running bool, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	w, exists := s.workers[id]
	if !exists {
		return false, false
	}
	return w.IsRunning(), true
}

// Reload tears down and recreates only the named trader's worker,
// leaving every other trader untouched.
func (s *TraderSupervisor) Reload(ctx context.Context, id int) error {
	s.mu.Lock()
	existing, ok := s.workers[id]
	s.mu.Unlock()

	wasRunning := ok && existing.IsRunning()
	if ok {
		if err := existing.Stop(); err != nil {
			s.log.Warn("reload: stopping existing worker failed", "trader_id", id, "error", err)
		}
	}

	if s.cache != nil {
		s.cache.Invalidate(ctx, id)
	}

	cfg, err := s.loadTraderConfig(ctx, id)
	if err != nil {
		s.mu.Lock()
		delete(s.workers, id)
		s.mu.Unlock()
		return fmt.Errorf("supervisor: reload: %w", err)
	}

	worker, err := s.buildWorker(ctx, cfg)
	if err != nil {
		return fmt.Errorf("supervisor: reload: %w", err)
	}

	s.mu.Lock()
	s.workers[id] = worker
	s.mu.Unlock()

	if wasRunning {
		return s.Start(ctx, id)
	}
	return nil
}

func (s *TraderSupervisor) persistRunning(ctx context.Context, id int, running bool) {
	if err := s.repo.SetTraderRunning(ctx, id, running); err != nil {
		s.log.Warn("persisting is_running failed", "trader_id", id, "error", err)
	}
}
