package signalfeed

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestFetchCoinPool_BareArrayOfStrings(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`["BTC/USDT", "ETH/USDT", "BTC/USDT"]`))
	}))
	defer srv.Close()

	c := New(10, 5)
	symbols := c.FetchCoinPool(context.Background(), srv.URL, 5*time.Second)
	require.Equal(t, []string{"BTC/USDT", "ETH/USDT"}, symbols, "dedup preserving first-seen order")
}

func TestFetchCoinPool_WrappedObjectShape(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"coins": [{"symbol": "SOL/USDT"}]}`))
	}))
	defer srv.Close()

	c := New(10, 5)
	symbols := c.FetchCoinPool(context.Background(), srv.URL, 5*time.Second)
	require.Equal(t, []string{"SOL/USDT"}, symbols)
}

func TestFetchCoinPool_UnknownShapeReturnsEmpty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"unexpected": true}`))
	}))
	defer srv.Close()

	c := New(10, 5)
	symbols := c.FetchCoinPool(context.Background(), srv.URL, 5*time.Second)
	require.Empty(t, symbols)
}

func TestFetchCoinPool_EmptyURLReturnsEmpty(t *testing.T) {
	c := New(10, 5)
	require.Empty(t, c.FetchCoinPool(context.Background(), "", 5*time.Second))
}

func TestFetchOITop_ArrayShape(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"symbol":"BTC/USDT","oi_change":100,"oi_change_percent":1.2,"time_range":"1h"}]`))
	}))
	defer srv.Close()

	c := New(10, 5)
	symbols, m := c.FetchOITop(context.Background(), srv.URL, 5*time.Second)
	require.Equal(t, []string{"BTC/USDT"}, symbols)
	require.Equal(t, 100.0, m["BTC/USDT"].OIChange)
}
