// Package exchange defines the single adapter interface the core depends
// on plus two mock implementations exercising the CEX/DEX polymorphism
// point: a ccxt-style centralized-exchange adapter and an
// Ethereum-wallet-signed decentralized adapter. Errors cross this
// boundary as zero/empty return values, never exceptions/panics.
package exchange

import (
	"context"

	"github.com/shopspring/decimal"
)

// Side is a position direction.
type Side string

const (
	SideLong  Side = "long"
	SideShort Side = "short"
)

// Position is one open futures position.
type Position struct {
	Symbol        string
	Side          Side
	Quantity      decimal.Decimal
	EntryPrice    decimal.Decimal
	UnrealizedPnL decimal.Decimal
	Leverage      int
}

// Adapter is the single interface the core depends on for exchange
// interaction. CEX vs DEX differences — sub-accounts, contract-form
// symbols, wallet signing — live entirely behind implementations of this
// interface.
type Adapter interface {
	// ==================== ACCOUNT ====================

	GetBalance(ctx context.Context, asset string) (decimal.Decimal, error)
	GetPositions(ctx context.Context) ([]Position, error)

	// ==================== TRADING ====================

	OpenLong(ctx context.Context, symbol string, qty decimal.Decimal, leverage int) error
	OpenShort(ctx context.Context, symbol string, qty decimal.Decimal, leverage int) error
	// CloseLong/CloseShort close qty of the position; qty.IsZero() closes
	// the full position.
	CloseLong(ctx context.Context, symbol string, qty decimal.Decimal) error
	CloseShort(ctx context.Context, symbol string, qty decimal.Decimal) error

	// ==================== LEVERAGE & MARGIN ====================

	SetLeverage(ctx context.Context, symbol string, leverage int) error
	SetMarginMode(ctx context.Context, symbol string, isCross bool) error

	// ==================== MARKET DATA / ORDER MANAGEMENT ====================

	GetMarketPrice(ctx context.Context, symbol string) (decimal.Decimal, error)
	SetStopLoss(ctx context.Context, symbol string, price decimal.Decimal) error
	SetTakeProfit(ctx context.Context, symbol string, price decimal.Decimal) error
	CancelAllOrders(ctx context.Context, symbol string) error

	FormatQuantity(symbol string, qty decimal.Decimal) decimal.Decimal

	// GetOpenInterest and GetFundingRate back FeatureEngine's optional
	// adapter augmentation. A missing/unsupported
	// value is signaled by ok=false, not an error.
	GetOpenInterest(ctx context.Context, symbol string) (value decimal.Decimal, ok bool)
	GetFundingRate(ctx context.Context, symbol string) (rate decimal.Decimal, ok bool)
}
