package exchange

import (
	"context"
	"sync"

	"github.com/shopspring/decimal"
)

// MockWalletAdapter is an Ethereum-wallet-signed decentralized-venue
// stub: no sub-accounts, a single collateral balance, and positions keyed
// by the perpetual contract form BASE/QUOTE:QUOTE. Order placement is
// simulated in-memory; nothing is signed or broadcast.
type MockWalletAdapter struct {
	mu         sync.Mutex
	walletAddr string
	collateral decimal.Decimal
	positions  map[string]Position
	prices     map[string]decimal.Decimal
}

// NewMockWalletAdapter returns a MockWalletAdapter for the given wallet
// address, seeded with collateral balance.
func NewMockWalletAdapter(walletAddr string, collateral decimal.Decimal) *MockWalletAdapter {
	return &MockWalletAdapter{
		walletAddr: walletAddr,
		collateral: collateral,
		positions:  make(map[string]Position),
		prices:     make(map[string]decimal.Decimal),
	}
}

func (m *MockWalletAdapter) SetPrice(symbol string, price decimal.Decimal) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prices[symbol] = price
}

func (m *MockWalletAdapter) GetBalance(ctx context.Context, asset string) (decimal.Decimal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	// A wallet-signed DEX adapter has one collateral balance regardless
	// of the requested asset; there is no per-asset spot wallet here.
	return m.collateral, nil
}

func (m *MockWalletAdapter) GetPositions(ctx context.Context) ([]Position, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Position, 0, len(m.positions))
	for _, p := range m.positions {
		out = append(out, p)
	}
	return out, nil
}

func (m *MockWalletAdapter) OpenLong(ctx context.Context, symbol string, qty decimal.Decimal, leverage int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.positions[symbol] = Position{Symbol: symbol, Side: SideLong, Quantity: qty, Leverage: leverage}
	return nil
}

func (m *MockWalletAdapter) OpenShort(ctx context.Context, symbol string, qty decimal.Decimal, leverage int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.positions[symbol] = Position{Symbol: symbol, Side: SideShort, Quantity: qty, Leverage: leverage}
	return nil
}

func (m *MockWalletAdapter) CloseLong(ctx context.Context, symbol string, qty decimal.Decimal) error {
	return m.close(symbol, SideLong, qty)
}

func (m *MockWalletAdapter) CloseShort(ctx context.Context, symbol string, qty decimal.Decimal) error {
	return m.close(symbol, SideShort, qty)
}

func (m *MockWalletAdapter) close(symbol string, side Side, qty decimal.Decimal) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.positions[symbol]
	if !ok || p.Side != side {
		return nil
	}
	if qty.IsZero() || qty.GreaterThanOrEqual(p.Quantity) {
		delete(m.positions, symbol)
		return nil
	}
	p.Quantity = p.Quantity.Sub(qty)
	m.positions[symbol] = p
	return nil
}

func (m *MockWalletAdapter) SetLeverage(ctx context.Context, symbol string, leverage int) error {
	return nil
}

// SetMarginMode is a no-op: wallet-signed perpetual venues of this shape
// are cross-margined against the single collateral balance by design.
func (m *MockWalletAdapter) SetMarginMode(ctx context.Context, symbol string, isCross bool) error {
	return nil
}

func (m *MockWalletAdapter) GetMarketPrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.prices[symbol], nil
}

func (m *MockWalletAdapter) SetStopLoss(ctx context.Context, symbol string, price decimal.Decimal) error {
	return nil
}

func (m *MockWalletAdapter) SetTakeProfit(ctx context.Context, symbol string, price decimal.Decimal) error {
	return nil
}

func (m *MockWalletAdapter) CancelAllOrders(ctx context.Context, symbol string) error {
	return nil
}

// FormatQuantity rounds to 4 decimal places, a representative on-chain
// perpetual size step.
func (m *MockWalletAdapter) FormatQuantity(symbol string, qty decimal.Decimal) decimal.Decimal {
	return qty.Round(4)
}

func (m *MockWalletAdapter) GetOpenInterest(ctx context.Context, symbol string) (decimal.Decimal, bool) {
	return decimal.Zero, false
}

func (m *MockWalletAdapter) GetFundingRate(ctx context.Context, symbol string) (decimal.Decimal, bool) {
	return decimal.Zero, false
}
