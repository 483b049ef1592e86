// Package signalfeed implements the two external HTTP signal sources
// CoinPool consumes: the "coin pool" (ai500) feed and the "OI top" feed.
// Both are plain rate-limited GET clients; unknown response shapes
// degrade to empty rather than erroring.
package signalfeed

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"futures-trader-core/internal/logging"
)

// OITopEntry is one row of the OI-top feed response.
type OITopEntry struct {
	Symbol         string  `json:"symbol"`
	OIChange       float64 `json:"oi_change"`
	OIChangePct    float64 `json:"oi_change_percent"`
	TimeRange      string  `json:"time_range"`
}

// Client is a rate-limited HTTP client for an external signal feed.
type Client struct {
	http    *http.Client
	limiter *rate.Limiter
	log     *logging.Logger
}

// New builds a Client allowing at most `rps` requests per second
// (bursting to `burst`), per the domain-stack rate-limiting wiring.
func New(rps float64, burst int) *Client {
	return &Client{
		http:    &http.Client{Timeout: 30 * time.Second},
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
		log:     logging.WithComponent("signalfeed"),
	}
}

// FetchCoinPool fetches the ai500 coin-pool feed, returning a deduplicated
// list of symbol strings. Unknown shapes return an empty slice, not an
// error.
func (c *Client) FetchCoinPool(ctx context.Context, url string, timeout time.Duration) []string {
	if url == "" {
		return nil
	}

	body, err := c.get(ctx, url, timeout)
	if err != nil {
		c.log.Warn("coin pool feed request failed, degrading to empty", "error", err)
		return nil
	}

	return parseSymbolShape(body)
}

// FetchOITop fetches the OI-top feed, returning a map of symbol to
// OITopEntry alongside the plain symbol list.
func (c *Client) FetchOITop(ctx context.Context, url string, timeout time.Duration) ([]string, map[string]OITopEntry) {
	if url == "" {
		return nil, nil
	}

	body, err := c.get(ctx, url, timeout)
	if err != nil {
		c.log.Warn("OI top feed request failed, degrading to empty", "error", err)
		return nil, nil
	}

	var entries []OITopEntry
	if err := json.Unmarshal(body, &entries); err == nil && len(entries) > 0 {
		return buildOIMap(entries)
	}

	var wrapped struct {
		Data      []OITopEntry `json:"data"`
		Positions []OITopEntry `json:"positions"`
	}
	if err := json.Unmarshal(body, &wrapped); err == nil {
		if len(wrapped.Data) > 0 {
			return buildOIMap(wrapped.Data)
		}
		if len(wrapped.Positions) > 0 {
			return buildOIMap(wrapped.Positions)
		}
	}

	return nil, nil
}

func buildOIMap(entries []OITopEntry) ([]string, map[string]OITopEntry) {
	symbols := make([]string, 0, len(entries))
	m := make(map[string]OITopEntry, len(entries))
	for _, e := range entries {
		if e.Symbol == "" {
			continue
		}
		symbols = append(symbols, e.Symbol)
		m[e.Symbol] = e
	}
	return symbols, m
}

func (c *Client) get(ctx context.Context, url string, timeout time.Duration) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("signalfeed: rate limiter: %w", err)
	}

	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("signalfeed: building request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("signalfeed: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return nil, fmt.Errorf("signalfeed: server error %d", resp.StatusCode)
	}

	return io.ReadAll(resp.Body)
}

// parseSymbolShape handles the two documented response shapes: a bare
// JSON array of symbol strings/objects, or an object with one of
// coins|data|positions keys.
func parseSymbolShape(body []byte) []string {
	var arr []json.RawMessage
	if err := json.Unmarshal(body, &arr); err == nil {
		return extractSymbols(arr)
	}

	var wrapped struct {
		Coins     []json.RawMessage `json:"coins"`
		Data      []json.RawMessage `json:"data"`
		Positions []json.RawMessage `json:"positions"`
	}
	if err := json.Unmarshal(body, &wrapped); err == nil {
		for _, candidate := range [][]json.RawMessage{wrapped.Coins, wrapped.Data, wrapped.Positions} {
			if len(candidate) > 0 {
				return extractSymbols(candidate)
			}
		}
	}

	return nil
}

func extractSymbols(raw []json.RawMessage) []string {
	seen := make(map[string]bool, len(raw))
	out := make([]string, 0, len(raw))

	for _, item := range raw {
		var s string
		if err := json.Unmarshal(item, &s); err == nil {
			if s != "" && !seen[s] {
				seen[s] = true
				out = append(out, s)
			}
			continue
		}

		var obj struct {
			Symbol string `json:"symbol"`
		}
		if err := json.Unmarshal(item, &obj); err == nil && obj.Symbol != "" {
			if !seen[obj.Symbol] {
				seen[obj.Symbol] = true
				out = append(out, obj.Symbol)
			}
		}
	}

	return out
}
