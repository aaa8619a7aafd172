package main

import (
	"context"
	"flag"
	"os"
	"strconv"
	"time"

	"github.com/shrimple-guild/leaderboard/internal/seed"
	"github.com/shrimple-guild/leaderboard/pkg/logger"
)

// Default configuration constants.
const (
	defaultAccounts = 100
	defaultCycles   = 96
	defaultInterval = 15 * time.Minute
	defaultTimeout  = 10 * time.Minute
)

func main() {
	var (
		dbPath   = flag.String("db", "leaderboard.db", "SQLite store to populate")
		rosterID = flag.String("roster", "seed-guild", "Roster id for the synthetic accounts")
		accounts = flag.Int("accounts", defaultAccounts, "Number of accounts to create")
		cycles   = flag.Int("cycles", defaultCycles, "Number of observation timestamps per account")
		interval = flag.Duration("interval", defaultInterval, "Spacing between observation timestamps")
		start    = flag.Int64("start", 0, "Unix-millisecond timestamp of the first observation (default: now minus cycles*interval)")
	)
	flag.Parse()

	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	first := time.Now().Add(-time.Duration(*cycles) * *interval)
	if *start > 0 {
		first = time.UnixMilli(*start)
	}

	stats, err := seed.Run(ctx, &seed.Config{
		DBPath:   *dbPath,
		RosterID: *rosterID,
		Accounts: *accounts,
		Cycles:   *cycles,
		Interval: *interval,
		Start:    first,
	})
	if err != nil {
		os.Stderr.WriteString("seeding failed: " + err.Error() + "\n")
		os.Exit(1)
	}
	os.Stdout.WriteString("seeded " + strconv.Itoa(stats.AccountsCreated) + " accounts, " +
		strconv.Itoa(stats.ObservationsWritten) + " observations\n")
}
