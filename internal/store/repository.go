package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"futures-trader-core/internal/logging"
)

// Repository is the narrow CRUD gateway TraderSupervisor and the
// pipeline's performance read use. It wraps DB with the
// specific queries the core issues; nothing beyond these.
type Repository struct {
	db  *DB
	log *logging.Logger
}

// NewRepository wraps db.
func NewRepository(db *DB) *Repository {
	return &Repository{db: db, log: logging.WithComponent("store.repository")}
}

// DB returns the underlying connection pool wrapper, for callers that need
// to build other store-layer types (e.g. a DecisionLogWriter) around the
// same connection.
func (r *Repository) DB() *DB {
	return r.db
}

// LoadTraderConfigs loads every enabled trader, joined with its AI model,
// exchange, and prompt template rows. A trader without an AI model or
// exchange row is excluded by the inner joins without a log line; a row
// that fails to scan is skipped and logged rather than aborting the
// whole load.
func (r *Repository) LoadTraderConfigs(ctx context.Context) ([]TraderConfig, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT t.id, t.user_id, t.name, t.scan_interval_minutes,
		       t.btc_eth_leverage, t.altcoin_leverage, t.trading_coins,
		       t.enabled, t.is_running,
		       m.id, m.provider, m.model, m.api_key, m.max_tokens, m.temperature,
		       e.id, e.kind, e.api_key, e.secret_key, e.wallet_address, e.testnet,
		       COALESCE(p.id, 0), COALESCE(p.name, ''), COALESCE(p.system_prompt, '')
		FROM traders t
		JOIN ai_models m ON m.id = t.ai_model_id
		JOIN exchanges e ON e.id = t.exchange_id
		LEFT JOIN prompt_templates p ON p.id = t.prompt_template_id
		WHERE t.enabled = TRUE
	`)
	if err != nil {
		return nil, fmt.Errorf("store: loading trader configs: %w", err)
	}
	defer rows.Close()

	var out []TraderConfig
	for rows.Next() {
		var tc TraderConfig
		var tradingCoins string
		if err := rows.Scan(
			&tc.ID, &tc.UserID, &tc.Name, &tc.ScanIntervalMinutes,
			&tc.BTCETHLeverage, &tc.AltcoinLeverage, &tradingCoins,
			&tc.Enabled, &tc.IsRunning,
			&tc.AIModel.ID, &tc.AIModel.Provider, &tc.AIModel.Model, &tc.AIModel.APIKey, &tc.AIModel.MaxTokens, &tc.AIModel.Temperature,
			&tc.Exchange.ID, &tc.Exchange.Kind, &tc.Exchange.APIKey, &tc.Exchange.SecretKey, &tc.Exchange.WalletAddress, &tc.Exchange.Testnet,
			&tc.PromptTemplate.ID, &tc.PromptTemplate.Name, &tc.PromptTemplate.SystemPrompt,
		); err != nil {
			r.log.Warn("skipping trader row with scan error", "error", err)
			continue
		}
		tc.TradingCoins = splitCoins(tradingCoins)
		out = append(out, tc)
	}
	return out, rows.Err()
}

// LoadSignalSources loads a user's coin-pool/OI-top/inside-AI toggles
//. Returns the zero value, not an error, if the user has
// no row configured — treated as "all sources disabled".
func (r *Repository) LoadSignalSources(ctx context.Context, userID int) (SignalSourceConfig, error) {
	var sc SignalSourceConfig
	err := r.db.Pool.QueryRow(ctx, `
		SELECT id, user_id, coin_pool_enabled, coin_pool_url,
		       oi_top_enabled, oi_top_url, inside_ai_enabled
		FROM user_signal_sources WHERE user_id = $1
	`, userID).Scan(&sc.ID, &sc.UserID, &sc.CoinPoolEnabled, &sc.CoinPoolURL,
		&sc.OITopEnabled, &sc.OITopURL, &sc.InsideAIEnabled)
	if err != nil {
		if err == pgx.ErrNoRows {
			sc.UserID = userID
			return sc, nil
		}
		return sc, fmt.Errorf("store: loading signal sources: %w", err)
	}
	return sc, nil
}

// SystemConfig holds the system-wide risk knobs read from system_config.
type SystemConfig struct {
	MaxDailyLoss       string
	MaxDrawdown        string
	StopTradingMinutes string
	DefaultCoins       []string
}

// LoadSystemConfig reads the system_config k/v rows. Missing keys are
// left at their zero value rather than erroring.
func (r *Repository) LoadSystemConfig(ctx context.Context) (SystemConfig, error) {
	rows, err := r.db.Pool.Query(ctx, `SELECT key, value FROM system_config`)
	if err != nil {
		return SystemConfig{}, fmt.Errorf("store: loading system config: %w", err)
	}
	defer rows.Close()

	var sc SystemConfig
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			continue
		}
		switch key {
		case "max_daily_loss":
			sc.MaxDailyLoss = value
		case "max_drawdown":
			sc.MaxDrawdown = value
		case "stop_trading_minutes":
			sc.StopTradingMinutes = value
		case "default_coins":
			sc.DefaultCoins = splitCoins(value)
		}
	}
	return sc, rows.Err()
}

// SetTraderRunning persists the is_running transition on the traders row.
func (r *Repository) SetTraderRunning(ctx context.Context, traderID int, running bool) error {
	_, err := r.db.Pool.Exec(ctx, `UPDATE traders SET is_running = $1, updated_at = now() WHERE id = $2`, running, traderID)
	if err != nil {
		return fmt.Errorf("store: persisting is_running: %w", err)
	}
	return nil
}

// RecentTradeRecords returns filled trade records for traderID in the
// last window, used by the performance read.
func (r *Repository) RecentTradeRecords(ctx context.Context, traderID int, windowClause string) ([]TradeRecord, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT id, trader_id, symbol, side, notional, filled_at
		FROM trade_records
		WHERE trader_id = $1 AND filled_at >= now() - $2::interval
		ORDER BY filled_at ASC
	`, traderID, windowClause)
	if err != nil {
		return nil, fmt.Errorf("store: loading trade records: %w", err)
	}
	defer rows.Close()

	var out []TradeRecord
	for rows.Next() {
		var tr TradeRecord
		var filledAt string
		if err := rows.Scan(&tr.ID, &tr.TraderID, &tr.Symbol, &tr.Side, &tr.Notional, &filledAt); err != nil {
			continue
		}
		tr.FilledAt = filledAt
		out = append(out, tr)
	}
	return out, rows.Err()
}

func splitCoins(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
