package store

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/shrimple-guild/leaderboard/internal/domain/catalog"
	"github.com/shrimple-guild/leaderboard/internal/domain/model"
	"github.com/shrimple-guild/leaderboard/pkg/metrics"
)

const schema = `
CREATE TABLE IF NOT EXISTS Players (
  id TEXT PRIMARY KEY,
  username TEXT,
  guildId TEXT
);
CREATE TABLE IF NOT EXISTS Profiles (
  id INTEGER PRIMARY KEY,
  playerId TEXT NOT NULL,
  externalId TEXT NOT NULL,
  cuteName TEXT NOT NULL,
  UNIQUE (playerId, externalId),
  FOREIGN KEY (playerId) REFERENCES Players(id)
);
CREATE TABLE IF NOT EXISTS Metrics (
  id INTEGER PRIMARY KEY,
  name TEXT NOT NULL UNIQUE,
  counter TEXT
);
CREATE TABLE IF NOT EXISTS ProfileData (
  profileId INTEGER NOT NULL,
  timestamp INTEGER NOT NULL,
  metricId INTEGER NOT NULL,
  value REAL NOT NULL,
  PRIMARY KEY (profileId, timestamp, metricId),
  FOREIGN KEY (profileId) REFERENCES Profiles(id),
  FOREIGN KEY (metricId) REFERENCES Metrics(id)
);
CREATE TABLE IF NOT EXISTS RawSnapshots (
  profileId INTEGER NOT NULL,
  isWindowStart INTEGER NOT NULL,
  timestamp INTEGER NOT NULL,
  payload BLOB NOT NULL,
  PRIMARY KEY (profileId, isWindowStart),
  FOREIGN KEY (profileId) REFERENCES Profiles(id)
);
CREATE INDEX IF NOT EXISTS idx_profiledata_metric_time ON ProfileData (metricId, timestamp);
CREATE INDEX IF NOT EXISTS idx_players_guild ON Players (guildId);
`

// SQLiteStore implements Store on a single SQLite database file.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (creating if needed) the snapshot store at path.
// WAL mode keeps ranking reads concurrent with ingestion writes; a busy
// timeout covers the brief writer handoffs.
func OpenSQLite(ctx context.Context, path string) (*SQLiteStore, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: empty db path", ErrOpen)
	}
	dsn := path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrOpen, err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: %w", ErrOpen, err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) ReplaceRoster(ctx context.Context, rosterID string, accountIDs []string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("replace roster: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // rollback after commit is a no-op

	if _, err := tx.ExecContext(ctx, `UPDATE Players SET guildId = NULL WHERE guildId = ?`, rosterID); err != nil {
		return fmt.Errorf("replace roster: clear: %w", err)
	}
	upsert, err := tx.PrepareContext(ctx, `
		INSERT INTO Players (id, guildId) VALUES (?, ?)
		ON CONFLICT (id) DO UPDATE SET guildId = excluded.guildId`)
	if err != nil {
		return fmt.Errorf("replace roster: prepare: %w", err)
	}
	defer upsert.Close()
	for _, id := range accountIDs {
		if _, err := upsert.ExecContext(ctx, id, rosterID); err != nil {
			return fmt.Errorf("replace roster: insert %s: %w", id, err)
		}
	}
	return tx.Commit()
}

func (s *SQLiteStore) CurrentMembers(ctx context.Context, rosterIDs ...string) ([]string, error) {
	if len(rosterIDs) == 0 {
		return nil, nil
	}
	query := `SELECT id FROM Players WHERE guildId IN (` + placeholders(len(rosterIDs)) + `) ORDER BY id`
	rows, err := s.db.QueryContext(ctx, query, toAny(rosterIDs)...)
	if err != nil {
		return nil, fmt.Errorf("current members: %w", err)
	}
	defer rows.Close()

	var members []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("current members: scan: %w", err)
		}
		members = append(members, id)
	}
	return members, rows.Err()
}

func (s *SQLiteStore) SetUsername(ctx context.Context, accountID, name string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE Players SET username = ? WHERE id = ?`, name, accountID)
	if err != nil {
		return fmt.Errorf("set username: %w", err)
	}
	return nil
}

func (s *SQLiteStore) UpsertMetricDefs(ctx context.Context, defs []catalog.Metric) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("upsert metric defs: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO Metrics (name, counter) VALUES (?, ?)
		ON CONFLICT (name) DO UPDATE SET counter = excluded.counter`)
	if err != nil {
		return fmt.Errorf("upsert metric defs: prepare: %w", err)
	}
	defer stmt.Close()
	for _, def := range defs {
		if _, err := stmt.ExecContext(ctx, def.Name, def.Counter); err != nil {
			return fmt.Errorf("upsert metric defs: %q: %w", def.Name, err)
		}
	}
	return tx.Commit()
}

func (s *SQLiteStore) Record(ctx context.Context, key model.ProfileKey, timestamp int64, observations map[string]float64) error {
	start := time.Now()
	defer func() {
		metrics.RecordStoreWriteLatency(float64(time.Since(start).Milliseconds()))
	}()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("record: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	// Accounts are created on first observation; membership comes later
	// from roster refreshes.
	if _, err := tx.ExecContext(ctx, `INSERT INTO Players (id) VALUES (?) ON CONFLICT (id) DO NOTHING`, key.AccountID); err != nil {
		return fmt.Errorf("record: player: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO Profiles (playerId, externalId, cuteName) VALUES (?, ?, ?)
		ON CONFLICT (playerId, externalId) DO UPDATE SET cuteName = excluded.cuteName`,
		key.AccountID, key.ProfileID, key.CuteName); err != nil {
		return fmt.Errorf("record: profile: %w", err)
	}

	insert, err := tx.PrepareContext(ctx, `
		INSERT INTO ProfileData (profileId, timestamp, metricId, value)
		SELECT Profiles.id, ?, Metrics.id, ?
		FROM Profiles, Metrics
		WHERE Profiles.playerId = ? AND Profiles.externalId = ? AND Metrics.name = ?
		ON CONFLICT (profileId, timestamp, metricId) DO UPDATE SET value = excluded.value`)
	if err != nil {
		return fmt.Errorf("record: prepare: %w", err)
	}
	defer insert.Close()

	for name, value := range observations {
		if _, err := insert.ExecContext(ctx, timestamp, value, key.AccountID, key.ProfileID, name); err != nil {
			return fmt.Errorf("record: %q: %w", name, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("record: commit: %w", err)
	}
	metrics.RecordObservations(len(observations))
	return nil
}

func (s *SQLiteStore) ArchiveRaw(ctx context.Context, key model.ProfileKey, isWindowStart bool, timestamp int64, payload []byte) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO RawSnapshots (profileId, isWindowStart, timestamp, payload)
		SELECT id, ?, ?, ? FROM Profiles WHERE playerId = ? AND externalId = ?
		ON CONFLICT (profileId, isWindowStart) DO UPDATE SET
		  timestamp = excluded.timestamp, payload = excluded.payload`,
		boolToInt(isWindowStart), timestamp, payload, key.AccountID, key.ProfileID)
	if err != nil {
		return fmt.Errorf("archive raw: %w", err)
	}
	return nil
}

// Rank computes per-profile window deltas (max minus min, or plain max for
// an open start), takes each account's best profile, drops non-positive
// deltas and applies standard competition ranking. The delta is an accepted
// approximation that assumes monotone counters; a mid-window reset shows up
// as an understated or negative delta and is not corrected here.
func (s *SQLiteStore) Rank(ctx context.Context, q RankQuery) ([]model.RankedEntry, error) {
	started := time.Now()
	defer func() {
		metrics.RecordStoreQueryLatency(float64(time.Since(started).Milliseconds()))
	}()

	if len(q.RosterIDs) == 0 {
		return nil, nil
	}
	hasStart, start, end := window(q.Start, q.End)

	query := `
		WITH ProfileLeaderboard AS (
		  SELECT
		    ProfileData.profileId AS profileId,
		    MAX(value) - IIF(?, MIN(value), 0) AS profileValue
		  FROM ProfileData
		  INNER JOIN Metrics ON ProfileData.metricId = Metrics.id
		  WHERE Metrics.name = ? AND timestamp >= ? AND timestamp <= ?
		  GROUP BY ProfileData.profileId
		)
		SELECT
		  RANK() OVER (ORDER BY MAX(profileValue) DESC) AS position,
		  IFNULL(Players.username, Players.id),
		  Profiles.cuteName,
		  MAX(profileValue) AS value
		FROM ProfileLeaderboard
		INNER JOIN Profiles ON ProfileLeaderboard.profileId = Profiles.id
		INNER JOIN Players ON Profiles.playerId = Players.id
		WHERE Players.guildId IN (` + placeholders(len(q.RosterIDs)) + `)
		GROUP BY Players.id
		HAVING MAX(profileValue) > 0
		ORDER BY value DESC`

	args := append([]any{boolToInt(hasStart), q.Metric, start, end}, toAny(q.RosterIDs)...)
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("rank: %w", err)
	}
	defer rows.Close()

	var entries []model.RankedEntry
	for rows.Next() {
		var e model.RankedEntry
		if err := rows.Scan(&e.Rank, &e.Username, &e.Profile, &e.Value); err != nil {
			return nil, fmt.Errorf("rank: scan: %w", err)
		}
		e.Metric = q.Metric
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Timeseries returns observations ascending by time. Times are shifted to
// the window start and values anchored to the series minimum so overlapping
// series plot comparably regardless of absolute totals.
func (s *SQLiteStore) Timeseries(ctx context.Context, q TimeseriesQuery) ([]model.TimeseriesPoint, error) {
	started := time.Now()
	defer func() {
		metrics.RecordStoreQueryLatency(float64(time.Since(started).Milliseconds()))
	}()

	_, start, end := window(q.Start, q.End)
	rows, err := s.db.QueryContext(ctx, `
		SELECT timestamp, value
		FROM ProfileData
		INNER JOIN Metrics ON ProfileData.metricId = Metrics.id
		INNER JOIN Profiles ON ProfileData.profileId = Profiles.id
		INNER JOIN Players ON Profiles.playerId = Players.id
		WHERE Metrics.name = ? AND Players.username = ? AND Profiles.cuteName = ?
		  AND timestamp >= ? AND timestamp <= ?
		ORDER BY timestamp ASC`,
		q.Metric, q.Username, q.Profile, start, end)
	if err != nil {
		return nil, fmt.Errorf("timeseries: %w", err)
	}
	defer rows.Close()

	var points []model.TimeseriesPoint
	minValue := math.Inf(1)
	for rows.Next() {
		var p model.TimeseriesPoint
		if err := rows.Scan(&p.Time, &p.Value); err != nil {
			return nil, fmt.Errorf("timeseries: scan: %w", err)
		}
		if q.Start != nil {
			p.Time -= *q.Start
		}
		if p.Value < minValue {
			minValue = p.Value
		}
		points = append(points, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range points {
		points[i].Value -= minValue
	}
	return points, nil
}

func window(start, end *int64) (hasStart bool, lo, hi int64) {
	lo, hi = 0, math.MaxInt64
	if start != nil {
		hasStart = true
		lo = *start
	}
	if end != nil {
		hi = *end
	}
	return hasStart, lo, hi
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

func toAny(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
