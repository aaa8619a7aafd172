// Package model contains domain models passed between layers.
package model

// ProfileKey identifies a profile by its owning account and external id.
type ProfileKey struct {
	AccountID string // stable opaque account identifier
	ProfileID string // external profile identifier, unique per account
	CuteName  string // mutable human-readable label
}

// RawProfile is one fetched sub-identity: its key plus the raw nested
// snapshot document the compute engine extracts metrics from.
type RawProfile struct {
	Key ProfileKey
	Raw map[string]any
}

// Job is one per-account ingestion unit: fetch, compute and record every
// profile of one account at one timestamp. Jobs are independent; one unit's
// failure never aborts its siblings.
type Job struct {
	ID        string // dedupe key, accountID + timestamp
	AccountID string
	Timestamp int64 // unix milliseconds

	// WindowStart marks the cycle that opens a competitive window; raw
	// snapshots are archived for auditing on these cycles.
	WindowStart bool

	// Result receives exactly one value per job so the cycle can tally.
	Result chan<- error
}

// Tally summarizes one ingestion cycle.
type Tally struct {
	Succeeded int `json:"succeeded"`
	Total     int `json:"total"`
}

// RankedEntry is one leaderboard row: an account's best profile delta over
// the queried window, with standard competition ranking.
type RankedEntry struct {
	Rank     int     `json:"rank"`
	Username string  `json:"username"`
	Profile  string  `json:"profile"`
	Value    float64 `json:"value"`
	Metric   string  `json:"metric"`
	Counter  string  `json:"counter"`
}

// TimeseriesPoint is one observation anchored to the window: time relative
// to the window start and value relative to the series minimum.
type TimeseriesPoint struct {
	Time  int64   `json:"time"`
	Value float64 `json:"value"`
}
