// Package store persists roster membership, profile metadata and the
// append-only metric observation history, and serves the windowed ranking
// and timeseries queries over it.
package store

import (
	"context"

	"github.com/shrimple-guild/leaderboard/internal/domain/catalog"
	"github.com/shrimple-guild/leaderboard/internal/domain/model"
)

// RankQuery parameterizes a windowed leaderboard query. Nil bounds leave
// that side of the window open; with no start, a profile's delta is its
// maximum observed value rather than max minus min.
type RankQuery struct {
	RosterIDs []string
	Metric    string
	Start     *int64
	End       *int64
}

// TimeseriesQuery parameterizes a per-profile history query.
type TimeseriesQuery struct {
	Username string
	Profile  string
	Metric   string
	Start    *int64
	End      *int64
}

// Store provides durable access to accounts, profiles and observations.
type Store interface {
	// ReplaceRoster atomically clears membership for rosterID and inserts
	// the given accounts. Accounts not reaffirmed lose membership but are
	// never deleted.
	ReplaceRoster(ctx context.Context, rosterID string, accountIDs []string) error

	// CurrentMembers returns the union of members across rosters.
	CurrentMembers(ctx context.Context, rosterIDs ...string) ([]string, error)

	// SetUsername updates an account's display name.
	SetUsername(ctx context.Context, accountID, name string) error

	// UpsertMetricDefs registers metric dimension rows by name.
	UpsertMetricDefs(ctx context.Context, defs []catalog.Metric) error

	// Record upserts the profile's metadata, then one observation row per
	// metric at the given timestamp. Re-running for the same timestamp
	// overwrites rather than duplicates.
	Record(ctx context.Context, key model.ProfileKey, timestamp int64, observations map[string]float64) error

	// ArchiveRaw keeps one raw snapshot per profile per window boundary
	// for post-hoc auditing and recomputation.
	ArchiveRaw(ctx context.Context, key model.ProfileKey, isWindowStart bool, timestamp int64, payload []byte) error

	// Rank returns the windowed-delta leaderboard for one metric. Unknown
	// metrics yield an empty result, never an error.
	Rank(ctx context.Context, q RankQuery) ([]model.RankedEntry, error)

	// Timeseries returns a profile's observations ascending by time,
	// anchored to the window start and the series minimum.
	Timeseries(ctx context.Context, q TimeseriesQuery) ([]model.TimeseriesPoint, error)

	Close() error
}
