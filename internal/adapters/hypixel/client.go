// Package hypixel implements the outbound game-API client that hands the
// engine raw nested profile documents. The engine itself stays ignorant of
// this package behind the app layer's Fetcher interface.
package hypixel

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/shrimple-guild/leaderboard/internal/domain/model"
	"github.com/shrimple-guild/leaderboard/pkg/metrics"
)

const (
	defaultMojangURL = "https://sessionserver.mojang.com"

	// remainingRequestsAllowable is the rate-limit headroom below which the
	// client waits for the window to reset before issuing more requests.
	remainingRequestsAllowable = 30

	defaultRetryAfter = 60 * time.Second
)

// Client fetches roster membership, display names and raw profile snapshots.
type Client struct {
	apiKey    string
	baseURL   string
	mojangURL string
	http      *http.Client

	// mu serializes API calls so rate-limit accounting is coherent.
	mu sync.Mutex
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

// WithMojangURL overrides the name-lookup endpoint.
func WithMojangURL(u string) Option {
	return func(c *Client) {
		if u != "" {
			c.mojangURL = u
		}
	}
}

// NewClient creates an API client.
func NewClient(baseURL, apiKey string, opts ...Option) *Client {
	c := &Client{
		apiKey:    apiKey,
		baseURL:   baseURL,
		mojangURL: defaultMojangURL,
		http:      &http.Client{Timeout: 15 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// RosterMembers returns the account ids currently in the guild.
func (c *Client) RosterMembers(ctx context.Context, guildID string) ([]string, error) {
	var body struct {
		Guild struct {
			Members []struct {
				UUID string `json:"uuid"`
			} `json:"members"`
		} `json:"guild"`
	}
	if err := c.get(ctx, "/guild", url.Values{"id": {guildID}}, &body); err != nil {
		return nil, fmt.Errorf("%w: guild %s: %w", ErrFetch, guildID, err)
	}
	members := make([]string, 0, len(body.Guild.Members))
	for _, m := range body.Guild.Members {
		members = append(members, m.UUID)
	}
	return members, nil
}

// Profiles returns every raw profile document for one account.
func (c *Client) Profiles(ctx context.Context, accountID string) ([]model.RawProfile, error) {
	var body struct {
		Profiles []struct {
			ProfileID string                    `json:"profile_id"`
			CuteName  string                    `json:"cute_name"`
			Members   map[string]map[string]any `json:"members"`
		} `json:"profiles"`
	}
	if err := c.get(ctx, "/skyblock/profiles", url.Values{"uuid": {accountID}}, &body); err != nil {
		return nil, fmt.Errorf("%w: profiles of %s: %w", ErrFetch, accountID, err)
	}

	profiles := make([]model.RawProfile, 0, len(body.Profiles))
	for _, p := range body.Profiles {
		member, ok := p.Members[accountID]
		if !ok {
			continue
		}
		profiles = append(profiles, model.RawProfile{
			Key: model.ProfileKey{
				AccountID: accountID,
				ProfileID: p.ProfileID,
				CuteName:  p.CuteName,
			},
			Raw: member,
		})
	}
	return profiles, nil
}

// Name resolves an account's display name.
func (c *Client) Name(ctx context.Context, accountID string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.mojangURL+"/session/minecraft/profile/"+accountID, nil)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrFetch, err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: name of %s: %w", ErrFetch, accountID, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: name of %s: status %d", ErrFetch, accountID, resp.StatusCode)
	}
	var body struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("%w: name of %s: %w", ErrFetch, accountID, err)
	}
	return body.Name, nil
}

// get performs one rate-limit-aware API request. Calls are serialized; when
// the remaining quota drops below the allowable headroom, the client sleeps
// until the window resets before returning.
func (c *Client) get(ctx context.Context, path string, params url.Values, out any) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	started := time.Now()
	defer func() {
		metrics.RecordFetchLatency(float64(time.Since(started).Milliseconds()))
	}()

	params.Set("key", c.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+params.Encode(), nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		metrics.RecordFetchError()
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		metrics.RecordFetchError()
		io.Copy(io.Discard, resp.Body) //nolint:errcheck
		if wait := headerSeconds(resp.Header, "retry-after", defaultRetryAfter); wait > 0 {
			sleepCtx(ctx, wait)
		}
		return fmt.Errorf("status %d for %s", resp.StatusCode, path)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return err
	}

	// An absent quota header means no throttling is in effect.
	if remaining := headerInt(resp.Header, "ratelimit-remaining", remainingRequestsAllowable+1); remaining <= remainingRequestsAllowable {
		sleepCtx(ctx, headerSeconds(resp.Header, "ratelimit-reset", defaultRetryAfter))
	}
	return nil
}

func headerInt(h http.Header, key string, fallback int) int {
	v := h.Get(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func headerSeconds(h http.Header, key string, fallback time.Duration) time.Duration {
	v := h.Get(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return time.Duration(n) * time.Second
}

func sleepCtx(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
