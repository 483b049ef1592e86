package marketfeed

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

type fakeREST struct {
	klines []Kline
	calls  int
}

func (f *fakeREST) FetchKlines(ctx context.Context, symbol, interval string, limit int) ([]Kline, error) {
	f.calls++
	return f.klines, nil
}

func TestMarketFeed_AddSymbolIdempotent(t *testing.T) {
	rest := &fakeREST{klines: []Kline{
		{OpenTime: 1, Close: 10, Closed: true},
		{OpenTime: 2, Close: 11, Closed: true},
	}}
	feed := New(rest, nil)

	require.NoError(t, feed.AddSymbol(context.Background(), "BTC/USDT", []string{"3m"}))
	require.NoError(t, feed.AddSymbol(context.Background(), "BTC/USDT", []string{"3m"}))

	require.Equal(t, 1, rest.calls, "second add_symbol call must be a no-op")
	require.True(t, feed.IsMonitoring("BTC/USDT"))

	klines := feed.GetKlines("BTC/USDT", "3m", 10)
	require.Len(t, klines, 2)

	price, ok := feed.GetLatestPrice("BTC/USDT")
	require.True(t, ok)
	require.Equal(t, 11.0, price)
}

func TestMarketFeed_RemoveSymbolClearsState(t *testing.T) {
	rest := &fakeREST{klines: []Kline{{OpenTime: 1, Close: 10, Closed: true}}}
	feed := New(rest, nil)

	require.NoError(t, feed.AddSymbol(context.Background(), "ETH/USDT", []string{"3m"}))
	feed.RemoveSymbol("ETH/USDT")

	require.False(t, feed.IsMonitoring("ETH/USDT"))
	require.Nil(t, feed.GetKlines("ETH/USDT", "3m", 10))

	_, ok := feed.GetLatestPrice("ETH/USDT")
	require.False(t, ok)
}

func TestMarketFeed_StopIdempotent(t *testing.T) {
	feed := New(&fakeREST{}, nil)
	require.NoError(t, feed.Start(context.Background()))
	require.NoError(t, feed.Stop())
	require.NoError(t, feed.Stop(), "second stop must be safe")
}
