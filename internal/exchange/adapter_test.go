package exchange

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestMockCEXAdapter_OpenAndCloseRoundTrip(t *testing.T) {
	var adapter Adapter = NewMockCEXAdapter(decimal.NewFromInt(1000))
	ctx := context.Background()

	require.NoError(t, adapter.OpenLong(ctx, "BTC/USDT", decimal.NewFromInt(1), 5))
	positions, err := adapter.GetPositions(ctx)
	require.NoError(t, err)
	require.Len(t, positions, 1)
	require.Equal(t, SideLong, positions[0].Side)

	require.NoError(t, adapter.CloseLong(ctx, "BTC/USDT", decimal.Zero))
	positions, err = adapter.GetPositions(ctx)
	require.NoError(t, err)
	require.Empty(t, positions)
}

func TestMockWalletAdapter_SatisfiesAdapterInterface(t *testing.T) {
	var adapter Adapter = NewMockWalletAdapter("0xabc", decimal.NewFromInt(500))
	ctx := context.Background()

	bal, err := adapter.GetBalance(ctx, "USDC")
	require.NoError(t, err)
	require.True(t, bal.Equal(decimal.NewFromInt(500)))
}

func TestNormalizeSymbolResidue(t *testing.T) {
	cases := map[string]string{
		"BTC/USDT":      "BTC",
		"ETH/USDT:USDT": "ETH",
		"DOGE/USDT":     "DOGE",
	}
	for in, want := range cases {
		require.Equal(t, want, NormalizeSymbolResidue(in), in)
	}
}
