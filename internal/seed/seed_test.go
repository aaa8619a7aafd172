package seed_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/shrimple-guild/leaderboard/internal/adapters/store"
	"github.com/shrimple-guild/leaderboard/internal/seed"
	"github.com/shrimple-guild/leaderboard/pkg/logger"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

func TestRunSeedsQueryableData(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "seed.db")
	start := time.UnixMilli(1_700_000_000_000)

	stats, err := seed.Run(ctx, &seed.Config{
		DBPath:   dbPath,
		RosterID: "seed-guild",
		Accounts: 5,
		Cycles:   4,
		Interval: 15 * time.Minute,
		Start:    start,
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if stats.AccountsCreated != 5 {
		t.Fatalf("AccountsCreated = %d, want 5", stats.AccountsCreated)
	}
	if stats.CyclesSeeded != 4 {
		t.Fatalf("CyclesSeeded = %d, want 4", stats.CyclesSeeded)
	}
	if stats.ObservationsWritten == 0 {
		t.Fatal("no observations written")
	}

	st, err := store.OpenSQLite(ctx, dbPath)
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	defer st.Close()

	members, err := st.CurrentMembers(ctx, "seed-guild")
	if err != nil {
		t.Fatalf("CurrentMembers: %v", err)
	}
	if len(members) != 5 {
		t.Fatalf("got %d members, want 5", len(members))
	}

	windowStart := start.UnixMilli()
	entries, err := st.Rank(ctx, store.RankQuery{
		RosterIDs: []string{"seed-guild"},
		Metric:    "Fishing XP",
		Start:     &windowStart,
	})
	if err != nil {
		t.Fatalf("Rank: %v", err)
	}
	for i := 1; i < len(entries); i++ {
		if entries[i].Value > entries[i-1].Value {
			t.Fatalf("entries not sorted descending at %d: %v > %v", i, entries[i].Value, entries[i-1].Value)
		}
	}
}
