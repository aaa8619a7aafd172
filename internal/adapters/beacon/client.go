// Package beacon fetches rounds from a drand-style public randomness chain.
//
// A round number is derived from a timestamp using the chain's genesis time
// and period, so any third party holding the same chain parameters can fetch
// the identical randomness and audit a selection.
package beacon

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Source yields the randomness bytes associated with a timestamp key.
type Source interface {
	RandomnessAt(ctx context.Context, t time.Time) ([]byte, error)
}

// Round is one beacon emission.
type Round struct {
	Round      uint64 `json:"round"`
	Randomness string `json:"randomness"`
	Signature  string `json:"signature"`
}

// Client talks to a drand HTTP endpoint.
type Client struct {
	baseURL string
	genesis time.Time
	period  time.Duration
	http    *http.Client
}

// Option applies a configuration option to the Client.
type Option func(*Client)

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		if h != nil {
			c.http = h
		}
	}
}

// NewClient creates a beacon client for one chain.
func NewClient(baseURL string, genesis time.Time, period time.Duration, opts ...Option) (*Client, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("%w: empty base url", ErrBadChain)
	}
	if period <= 0 {
		return nil, fmt.Errorf("%w: period must be positive", ErrBadChain)
	}
	c := &Client{
		baseURL: baseURL,
		genesis: genesis,
		period:  period,
		http:    &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// RoundAt returns the round number emitted at or before t. Round 1 is
// emitted at genesis.
func (c *Client) RoundAt(t time.Time) (uint64, error) {
	if t.Before(c.genesis) {
		return 0, fmt.Errorf("%w: %s precedes chain genesis", ErrBadChain, t.Format(time.RFC3339))
	}
	return uint64(t.Sub(c.genesis)/c.period) + 1, nil
}

// RandomnessAt fetches the beacon for the round covering t and decodes its
// randomness hex into bytes.
func (c *Client) RandomnessAt(ctx context.Context, t time.Time) ([]byte, error) {
	round, err := c.RoundAt(t)
	if err != nil {
		return nil, err
	}
	return c.Randomness(ctx, round)
}

// Randomness fetches one round by number.
func (c *Client) Randomness(ctx context.Context, round uint64) ([]byte, error) {
	url := fmt.Sprintf("%s/public/%d", c.baseURL, round)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFetch, err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFetch, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: round %d: status %d", ErrFetch, round, resp.StatusCode)
	}

	var r Round
	if err := json.NewDecoder(resp.Body).Decode(&r); err != nil {
		return nil, fmt.Errorf("%w: decode round %d: %w", ErrFetch, round, err)
	}
	randomness, err := hex.DecodeString(r.Randomness)
	if err != nil {
		return nil, fmt.Errorf("%w: round %d carries invalid randomness: %w", ErrFetch, round, err)
	}
	return randomness, nil
}
