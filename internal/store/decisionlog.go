package store

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// DecisionLogWriter appends decision_logs rows and, independent of that
// write, emits one structured zerolog audit event per decision through a
// zerolog.Logger field distinct from the application's general logger: the
// audit trail is meant to be tailed/grepped on its own, not mixed in with
// operational noise.
type DecisionLogWriter struct {
	db     *DB
	audit  zerolog.Logger
}

// NewDecisionLogWriter builds a writer around db, with a zerolog logger
// writing JSON lines to stdout.
func NewDecisionLogWriter(db *DB) *DecisionLogWriter {
	return &DecisionLogWriter{
		db:    db,
		audit: zerolog.New(os.Stdout).With().Timestamp().Str("component", "decision_audit").Logger(),
	}
}

// Write appends one DecisionLogRecord. Confidence must
// already be normalized to [0,1] by the caller (decimalx.NormalizeConfidence).
// A store failure here degrades to "skip logging" but is
// still emitted to the audit log so the decision isn't silently lost.
func (w *DecisionLogWriter) Write(ctx context.Context, entry DecisionLogEntry) error {
	w.audit.Info().
		Int("trader_id", entry.TraderID).
		Str("symbol", entry.Symbol).
		Str("decision", entry.DecisionResult).
		Str("confidence", entry.Confidence.String()).
		Str("reasoning", entry.Reasoning).
		Msg("decision validated")

	if w.db == nil {
		return nil
	}

	_, err := w.db.Pool.Exec(ctx, `
		INSERT INTO decision_logs (trader_id, symbol, state_snapshot, decision_result, reasoning, confidence, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, now())
	`, entry.TraderID, entry.Symbol, entry.StateSnapshot, entry.DecisionResult, entry.Reasoning, entry.Confidence)
	if err != nil {
		w.audit.Warn().Err(err).Int("trader_id", entry.TraderID).Str("symbol", entry.Symbol).Msg("decision log write failed, degrading to audit-only")
		return fmt.Errorf("store: writing decision log: %w", err)
	}
	return nil
}

// StateSnapshot is the trimmed subset of PipelineState recorded per
// decision log row: candidate symbols, positions,
// account balance, the keys of the two data maps, call count, runtime,
// risk_approved, and validation errors for this symbol.
type StateSnapshot struct {
	CandidateSymbols  []string        `json:"candidate_symbols"`
	Positions         []string        `json:"positions"`
	AccountBalance    decimal.Decimal `json:"account_balance"`
	MarketDataKeys    []string        `json:"market_data_keys"`
	SignalDataKeys    []string        `json:"signal_data_keys"`
	CallCount         int             `json:"call_count"`
	RuntimeMinutes    float64         `json:"runtime_minutes"`
	RiskApproved      bool            `json:"risk_approved"`
	ValidationErrors  []string        `json:"validation_errors,omitempty"`
}

// MarshalSnapshot serializes a StateSnapshot for the state_snapshot JSONB
// column. Marshal failures are programmer errors (the type is closed and
// always serializable); returning the error lets the caller decide
// whether to skip logging rather than panicking.
func MarshalSnapshot(s StateSnapshot) ([]byte, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("store: marshaling state snapshot: %w", err)
	}
	return data, nil
}

// Performance is the result of a trader's performance read: a Sharpe-like
// ratio bucketed by period_minutes=3 over the last N=20 periods, plus a
// handful of last-hour summary stats.
type Performance struct {
	SharpeRatio *float64
	WinRate     float64
	TotalTrades int
	AvgReturn   float64
	TotalPnL    float64
}

const (
	performancePeriods       = 20
	performancePeriodMinutes = 3
)

// ComputePerformance computes the Sharpe-like ratio and summary stats
// from recent trade records. Buys subtract notional, sells add notional,
// bucketed by 3-minute period; fewer than 2 non-zero buckets yields a nil
// SharpeRatio. On a repository read error it degrades to the zero
// Performance (win_rate=0, total_trades=0) rather than propagating the
// error.
func (r *Repository) ComputePerformance(ctx context.Context, traderID int) Performance {
	records, err := r.RecentTradeRecords(ctx, traderID, fmt.Sprintf("%d minutes", performancePeriods*performancePeriodMinutes))
	if err != nil {
		r.log.Warn("performance read failed, degrading to zero performance", "trader_id", traderID, "error", err)
		return Performance{}
	}
	return computePerformanceFromRecords(records)
}

// computePerformanceFromRecords is the pure bucketing/Sharpe math behind
// ComputePerformance, split out so it can run against fixture records
// without a database.
func computePerformanceFromRecords(records []TradeRecord) Performance {
	buckets := make(map[int64]float64)
	var totalPnL float64
	var wins, total int

	for _, rec := range records {
		notional, _ := rec.Notional.Float64()
		switch rec.Side {
		case "buy", "BUY":
			notional = -notional
		case "sell", "SELL":
			wins++
		}
		total++
		totalPnL += notional

		t, err := time.Parse(time.RFC3339, rec.FilledAt)
		if err != nil {
			continue
		}
		bucket := t.Unix() / int64(performancePeriodMinutes*60)
		buckets[bucket] += notional
	}

	nonZero := make([]float64, 0, len(buckets))
	for _, v := range buckets {
		if v != 0 {
			nonZero = append(nonZero, v)
		}
	}

	perf := Performance{TotalTrades: total, TotalPnL: totalPnL}
	if total > 0 {
		perf.WinRate = float64(wins) / float64(total)
		perf.AvgReturn = totalPnL / float64(total)
	}

	if len(nonZero) < 2 {
		return perf
	}

	mean := 0.0
	for _, v := range nonZero {
		mean += v
	}
	mean /= float64(len(nonZero))

	var variance float64
	for _, v := range nonZero {
		d := v - mean
		variance += d * d
	}
	variance /= float64(len(nonZero) - 1)

	stdDev := math.Sqrt(variance)
	if stdDev == 0 {
		return perf
	}
	sharpe := mean / stdDev
	perf.SharpeRatio = &sharpe
	return perf
}
