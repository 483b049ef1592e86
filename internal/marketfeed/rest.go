package marketfeed

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// httpRESTClient is the RESTClient implementation backing production
// backfill: a plain signed-less GET against a futures klines endpoint,
// with the array-of-arrays response shape parsed positionally.
type httpRESTClient struct {
	baseURL string
	http    *http.Client
}

// NewHTTPRESTClient builds a RESTClient against a futures REST base URL
// (e.g. "https://fapi.binance.com").
func NewHTTPRESTClient(baseURL string) RESTClient {
	return &httpRESTClient{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

// FetchKlines implements RESTClient. The response shape mirrors the
// Binance-style futures klines endpoint: an array of
// [open_time, open, high, low, close, volume, close_time, quote_volume,
// trade_count, ...] arrays.
func (c *httpRESTClient) FetchKlines(ctx context.Context, symbol, interval string, limit int) ([]Kline, error) {
	values := url.Values{}
	values.Set("symbol", stripSeparators(symbol))
	values.Set("interval", interval)
	values.Set("limit", strconv.Itoa(limit))

	reqURL := fmt.Sprintf("%s/fapi/v1/klines?%s", c.baseURL, values.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("marketfeed: building klines request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("marketfeed: klines request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return nil, fmt.Errorf("marketfeed: klines server error %d", resp.StatusCode)
	}

	var raw [][]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("marketfeed: parsing klines response: %w", err)
	}

	klines := make([]Kline, 0, len(raw))
	for _, row := range raw {
		k, ok := parseKlineRow(row)
		if !ok {
			continue
		}
		klines = append(klines, k)
	}
	return klines, nil
}

// parseKlineRow parses one positional kline row. A closed historical bar
// returned by the REST endpoint is always treated as closed.
func parseKlineRow(row []interface{}) (Kline, bool) {
	if len(row) < 9 {
		return Kline{}, false
	}
	return Kline{
		OpenTime:    toInt64(row[0]),
		Open:        toFloat64(row[1]),
		High:        toFloat64(row[2]),
		Low:         toFloat64(row[3]),
		Close:       toFloat64(row[4]),
		Volume:      toFloat64(row[5]),
		CloseTime:   toInt64(row[6]),
		QuoteVolume: toFloat64(row[7]),
		TradeCount:  toInt64(row[8]),
		Closed:      true,
	}, true
}

func toFloat64(v interface{}) float64 {
	switch t := v.(type) {
	case float64:
		return t
	case string:
		f, _ := strconv.ParseFloat(t, 64)
		return f
	default:
		return 0
	}
}

func toInt64(v interface{}) int64 {
	switch t := v.(type) {
	case float64:
		return int64(t)
	case string:
		n, _ := strconv.ParseInt(t, 10, 64)
		return n
	default:
		return 0
	}
}
