package store

import "github.com/shopspring/decimal"

// ExchangeKind distinguishes CEX vs wallet-signed DEX credentials.
type ExchangeKind string

const (
	ExchangeKindCEX    ExchangeKind = "cex"
	ExchangeKindWallet ExchangeKind = "wallet"
)

// ExchangeConfig is the row a TraderWorker resolves into an
// internal/exchange.Adapter at startup.
type ExchangeConfig struct {
	ID            int
	Kind          ExchangeKind
	APIKey        string
	SecretKey     string
	WalletAddress string
	Testnet       bool
}

// AIModelConfig is the row a TraderWorker resolves into an internal/llm.Client.
type AIModelConfig struct {
	ID          int
	Provider    string
	Model       string
	APIKey      string
	MaxTokens   int
	Temperature float64
}

// SignalSourceConfig is a user's CoinPool/OITop/InsideAI source settings.
type SignalSourceConfig struct {
	ID              int
	UserID          int
	CoinPoolEnabled bool
	CoinPoolURL     string
	OITopEnabled    bool
	OITopURL        string
	InsideAIEnabled bool
}

// PromptTemplate is the system prompt a trader's AIDecision stage renders.
type PromptTemplate struct {
	ID           int
	Name         string
	SystemPrompt string
}

// TraderConfig is the full resolved configuration for one trader, the unit
// TraderSupervisor starts/stops.
type TraderConfig struct {
	ID                  int
	UserID              int
	Name                string
	AIModel             AIModelConfig
	Exchange            ExchangeConfig
	PromptTemplate      PromptTemplate
	ScanIntervalMinutes int
	BTCETHLeverage      int
	AltcoinLeverage     int
	TradingCoins        []string
	Enabled             bool
	IsRunning           bool
}

// TradeRecord is one filled order, used by the SignalAnalyzer stage's
// performance read (Repository.ComputePerformance).
type TradeRecord struct {
	ID        int
	TraderID  int
	Symbol    string
	Side      string
	Notional  decimal.Decimal
	FilledAt  string
}

// DecisionLogEntry is one audit record written per approved decision.
type DecisionLogEntry struct {
	TraderID        int
	Symbol          string
	StateSnapshot   []byte
	DecisionResult  string
	Reasoning       string
	Confidence      decimal.Decimal
}
