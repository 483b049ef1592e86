package exchange

import (
	"context"
	"strings"
	"sync"

	"github.com/shopspring/decimal"
)

// MockCEXAdapter is a ccxt-style centralized-exchange stub: in-memory
// balances and positions, no real network calls. It exists so the
// adapter polymorphism point is exercised by tests even though real
// order placement is out of core scope.
type MockCEXAdapter struct {
	mu        sync.Mutex
	balances  map[string]decimal.Decimal
	positions map[string]Position
	prices    map[string]decimal.Decimal
}

// NewMockCEXAdapter returns a MockCEXAdapter seeded with USDT balance.
func NewMockCEXAdapter(usdtBalance decimal.Decimal) *MockCEXAdapter {
	return &MockCEXAdapter{
		balances:  map[string]decimal.Decimal{"USDT": usdtBalance},
		positions: make(map[string]Position),
		prices:    make(map[string]decimal.Decimal),
	}
}

// SetPrice seeds the mock market price used by GetMarketPrice.
func (m *MockCEXAdapter) SetPrice(symbol string, price decimal.Decimal) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prices[symbol] = price
}

func (m *MockCEXAdapter) GetBalance(ctx context.Context, asset string) (decimal.Decimal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.balances[asset], nil
}

func (m *MockCEXAdapter) GetPositions(ctx context.Context) ([]Position, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Position, 0, len(m.positions))
	for _, p := range m.positions {
		out = append(out, p)
	}
	return out, nil
}

func (m *MockCEXAdapter) OpenLong(ctx context.Context, symbol string, qty decimal.Decimal, leverage int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.positions[symbol] = Position{Symbol: symbol, Side: SideLong, Quantity: qty, Leverage: leverage}
	return nil
}

func (m *MockCEXAdapter) OpenShort(ctx context.Context, symbol string, qty decimal.Decimal, leverage int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.positions[symbol] = Position{Symbol: symbol, Side: SideShort, Quantity: qty, Leverage: leverage}
	return nil
}

func (m *MockCEXAdapter) CloseLong(ctx context.Context, symbol string, qty decimal.Decimal) error {
	return m.close(symbol, SideLong, qty)
}

func (m *MockCEXAdapter) CloseShort(ctx context.Context, symbol string, qty decimal.Decimal) error {
	return m.close(symbol, SideShort, qty)
}

func (m *MockCEXAdapter) close(symbol string, side Side, qty decimal.Decimal) error {
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

func (m *MockCEXAdapter) SetLeverage(ctx context.Context, symbol string, leverage int) error {
	return nil
}

func (m *MockCEXAdapter) SetMarginMode(ctx context.Context, symbol string, isCross bool) error {
	return nil
}

func (m *MockCEXAdapter) GetMarketPrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.prices[symbol], nil
}

func (m *MockCEXAdapter) SetStopLoss(ctx context.Context, symbol string, price decimal.Decimal) error {
	return nil
}

func (m *MockCEXAdapter) SetTakeProfit(ctx context.Context, symbol string, price decimal.Decimal) error {
	return nil
}

func (m *MockCEXAdapter) CancelAllOrders(ctx context.Context, symbol string) error {
	return nil
}

// FormatQuantity rounds to 3 decimal places, a representative ccxt
// precision step; real precision is venue/symbol-specific.
func (m *MockCEXAdapter) FormatQuantity(symbol string, qty decimal.Decimal) decimal.Decimal {
	return qty.Round(3)
}

func (m *MockCEXAdapter) GetOpenInterest(ctx context.Context, symbol string) (decimal.Decimal, bool) {
	return decimal.Zero, false
}

func (m *MockCEXAdapter) GetFundingRate(ctx context.Context, symbol string) (decimal.Decimal, bool) {
	return decimal.Zero, false
}

// NormalizeSymbolResidue extracts the base-asset residue used by the risk
// validator to classify BTC/ETH vs altcoin: uppercase,
// take the BASE half of BASE/QUOTE or BASE/QUOTE:QUOTE, then strip any
// remaining ":" or "USDT" noise.
func NormalizeSymbolResidue(symbol string) string {
	s := strings.ToUpper(symbol)
	if idx := strings.Index(s, "/"); idx >= 0 {
		s = s[:idx]
	}
	s = strings.ReplaceAll(s, ":", "")
	s = strings.TrimSuffix(s, "USDT")
	return s
}
