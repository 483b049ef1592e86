// Package store is the narrow CRUD gateway over Postgres: configuration
// reads (users, traders, ai_models, exchanges, user_signal_sources,
// system_config, prompt_templates) and the two writes core performs
// (decision_logs, traders.is_running).
package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"futures-trader-core/internal/config"
	"futures-trader-core/internal/logging"
)

// DB wraps the Postgres connection pool.
type DB struct {
	Pool *pgxpool.Pool
	log  *logging.Logger
}

// Open creates a connection pool per cfg. A connection failure here is a
// Fatal-kind error: the process should refuse to start, not
// degrade.
func Open(ctx context.Context, cfg config.StoreConfig) (*DB, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("store: parsing DSN: %w", err)
	}

	poolConfig.MaxConns = 25
	poolConfig.MinConns = 2
	poolConfig.MaxConnLifetime = time.Hour
	poolConfig.MaxConnIdleTime = 30 * time.Minute
	poolConfig.HealthCheckPeriod = time.Minute

	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(connectCtx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("store: creating pool: %w", err)
	}

	if err := pool.Ping(connectCtx); err != nil {
		return nil, fmt.Errorf("store: ping failed: %w", err)
	}

	return &DB{Pool: pool, log: logging.WithComponent("store")}, nil
}

// Close releases the pool.
func (db *DB) Close() {
	if db.Pool != nil {
		db.Pool.Close()
	}
}

// HealthCheck reports whether the pool can still reach Postgres.
func (db *DB) HealthCheck(ctx context.Context) error {
	return db.Pool.Ping(ctx)
}

// Migrations are the tables core reads/writes. Schema beyond
// these columns is out of core scope; this list
// only covers what the gateway itself touches.
var migrations = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id SERIAL PRIMARY KEY,
		email VARCHAR(255) NOT NULL UNIQUE,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS ai_models (
		id SERIAL PRIMARY KEY,
		provider VARCHAR(50) NOT NULL,
		model VARCHAR(100) NOT NULL,
		api_key VARCHAR(255) NOT NULL,
		max_tokens INT NOT NULL DEFAULT 2048,
		temperature DOUBLE PRECISION NOT NULL DEFAULT 0.2
	)`,
	`CREATE TABLE IF NOT EXISTS exchanges (
		id SERIAL PRIMARY KEY,
		kind VARCHAR(20) NOT NULL,
		api_key VARCHAR(255),
		secret_key VARCHAR(255),
		wallet_address VARCHAR(255),
		testnet BOOLEAN NOT NULL DEFAULT FALSE
	)`,
	`CREATE TABLE IF NOT EXISTS user_signal_sources (
		id SERIAL PRIMARY KEY,
		user_id INT NOT NULL REFERENCES users(id),
		coin_pool_enabled BOOLEAN NOT NULL DEFAULT FALSE,
		coin_pool_url VARCHAR(500),
		oi_top_enabled BOOLEAN NOT NULL DEFAULT FALSE,
		oi_top_url VARCHAR(500),
		inside_ai_enabled BOOLEAN NOT NULL DEFAULT FALSE
	)`,
	`CREATE TABLE IF NOT EXISTS prompt_templates (
		id SERIAL PRIMARY KEY,
		name VARCHAR(100) NOT NULL,
		system_prompt TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS traders (
		id SERIAL PRIMARY KEY,
		user_id INT NOT NULL REFERENCES users(id),
		name VARCHAR(100) NOT NULL,
		ai_model_id INT NOT NULL REFERENCES ai_models(id),
		exchange_id INT NOT NULL REFERENCES exchanges(id),
		prompt_template_id INT REFERENCES prompt_templates(id),
		scan_interval_minutes INT NOT NULL DEFAULT 5,
		btc_eth_leverage INT NOT NULL DEFAULT 10,
		altcoin_leverage INT NOT NULL DEFAULT 5,
		trading_coins TEXT,
		enabled BOOLEAN NOT NULL DEFAULT TRUE,
		is_running BOOLEAN NOT NULL DEFAULT FALSE,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS system_config (
		key VARCHAR(100) PRIMARY KEY,
		value TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS trade_records (
		id SERIAL PRIMARY KEY,
		trader_id INT NOT NULL REFERENCES traders(id),
		symbol VARCHAR(20) NOT NULL,
		side VARCHAR(5) NOT NULL,
		notional DECIMAL(20, 8) NOT NULL,
		filled_at TIMESTAMP NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_trade_records_trader_time ON trade_records(trader_id, filled_at)`,
	`CREATE TABLE IF NOT EXISTS decision_logs (
		id SERIAL PRIMARY KEY,
		trader_id INT NOT NULL REFERENCES traders(id),
		symbol VARCHAR(20) NOT NULL,
		state_snapshot JSONB NOT NULL,
		decision_result VARCHAR(20) NOT NULL,
		reasoning TEXT,
		confidence DECIMAL(5, 4) NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE INDEX IF NOT EXISTS idx_decision_logs_trader ON decision_logs(trader_id, created_at)`,
}

// RunMigrations applies the core's own schema subset, idempotently.
func (db *DB) RunMigrations(ctx context.Context) error {
	for _, stmt := range migrations {
		if _, err := db.Pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("store: migration failed: %w", err)
		}
	}
	db.log.Info("migrations applied", "count", len(migrations))
	return nil
}
