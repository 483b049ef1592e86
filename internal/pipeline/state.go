// Package pipeline implements the six-stage DecisionPipeline DAG: CoinPool
// -> DataCollector -> SignalAnalyzer -> AIDecision -> RiskValidator ->
// Executor. The real edge set has no branches or loops, so the driver
// (Run in pipeline.go) calls the six stage functions in a fixed order,
// each taking and returning *State.
package pipeline

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"futures-trader-core/internal/exchange"
	"futures-trader-core/internal/features"
	"futures-trader-core/internal/indicators"
	"futures-trader-core/internal/llm"
	"futures-trader-core/internal/signalfeed"
	"futures-trader-core/internal/store"
)

// MarketDataEntry is one symbol's raw kline snapshot as populated by
// DataCollector.
type MarketDataEntry struct {
	KlinesShort  []indicators.Kline
	KlinesLong   []indicators.Kline
	CurrentPrice float64
	Source       string // "stream_cache" or "rest"
	IsPosition   bool
	IsCandidate  bool
	Error        string
}

// Alert is one signal-analyzer-derived alert.
type Alert struct {
	Symbol   string
	Severity string // "low", "medium", "high"
	Kind     string
	Detail   string
}

// AIDecisionBlock holds the AIDecision stage's output.
type AIDecisionBlock struct {
	Decisions   []llm.Decision
	Errors      []string
	RawResponse string
}

// ExecutionResult is one Executor output row.
type ExecutionResult struct {
	Symbol  string
	Action  llm.Action
	Status  string // "pending" (no adapter configured), "submitted", or "failed"
	Message string
}

// State is PipelineState: the single value constructed fresh
// per scan and owned exclusively by that scan's DecisionPipeline
// invocation. Never shared across scans or stages concurrently.
type State struct {
	ScanID    string
	TraderID  int
	StartedAt time.Time

	ExchangeConfig store.ExchangeConfig

	CandidateSymbols []string
	CoinSources      map[string][]string
	OITopData        map[string]signalfeed.OITopEntry

	AccountBalance decimal.Decimal
	Positions      []exchange.Position

	MarketDataMap  map[string]MarketDataEntry
	SignalDataMap  map[string]*features.MarketFeatures

	Performance store.Performance
	Alerts      []Alert

	AIDecision AIDecisionBlock

	RiskApproved     bool
	ValidationErrors map[string][]string

	ExecutionResults []ExecutionResult

	RuntimeMinutes float64
	CallCount      int
}

// NewState constructs a fresh PipelineState for one scan; never shared
// across scans. ScanID is a uuid used for trace correlation.
func NewState(traderID int, exchangeConfig store.ExchangeConfig, startedAt time.Time) *State {
	return &State{
		ScanID:           uuid.NewString(),
		TraderID:         traderID,
		StartedAt:        startedAt,
		ExchangeConfig:   exchangeConfig,
		CoinSources:      make(map[string][]string),
		OITopData:        make(map[string]signalfeed.OITopEntry),
		MarketDataMap:    make(map[string]MarketDataEntry),
		SignalDataMap:    make(map[string]*features.MarketFeatures),
		ValidationErrors: make(map[string][]string),
	}
}

// AddCandidate appends symbol to CandidateSymbols with first-seen-wins
// dedup and records the source tag.
func (s *State) AddCandidate(symbol, sourceTag string) {
	if _, exists := s.CoinSources[symbol]; !exists {
		s.CandidateSymbols = append(s.CandidateSymbols, symbol)
	}
	s.CoinSources[symbol] = append(s.CoinSources[symbol], sourceTag)
}
