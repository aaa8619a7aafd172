// Package seed populates a snapshot store with synthetic accounts and
// observation histories, so leaderboard and timeseries queries can be
// exercised without live API access.
package seed

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/shrimple-guild/leaderboard/internal/adapters/store"
	"github.com/shrimple-guild/leaderboard/internal/domain/catalog"
	"github.com/shrimple-guild/leaderboard/internal/domain/model"
	"github.com/shrimple-guild/leaderboard/pkg/logger"
)

// Config holds configuration for a seeding run.
type Config struct {
	DBPath   string        // SQLite store to populate
	RosterID string        // roster the synthetic accounts join
	Accounts int           // number of accounts to create
	Cycles   int           // number of observation timestamps per account
	Interval time.Duration // spacing between observation timestamps
	Start    time.Time     // timestamp of the first observation
}

// Stats holds seeding statistics.
type Stats struct {
	AccountsCreated     int
	ObservationsWritten int
	CyclesSeeded        int
	Duration            time.Duration
}

// Profile cute-name pool, mirroring the fruit naming convention of real
// profile labels.
var cuteNames = []string{
	"Apple", "Banana", "Blueberry", "Coconut", "Cucumber", "Grapes",
	"Kiwi", "Lemon", "Lime", "Mango", "Orange", "Papaya", "Peach",
	"Pear", "Pineapple", "Pomegranate", "Raspberry", "Strawberry",
	"Tomato", "Watermelon", "Zucchini",
}

// Performance tiers decide how fast a synthetic account's counters grow.
const (
	tierCount        = 4
	caseElite        = 0
	caseHigh         = 1
	caseAverage      = 2
	caseLow          = 3
	eliteRateRange   = 50_000.0
	highRateRange    = 20_000.0
	averageRateRange = 8_000.0
	lowRateRange     = 1_500.0
	baseValueRange   = 1_000_000
	randomDivisor    = 1_000_000
)

// account is one synthetic identity with a growth rate per metric.
type account struct {
	id       string
	profile  model.ProfileKey
	username string
	base     map[string]float64
	rate     map[string]float64
}

// randomFloat returns a random float64 between 0.0 and 1.0 using crypto/rand.
func randomFloat() float64 {
	n, _ := rand.Int(rand.Reader, big.NewInt(randomDivisor))
	return float64(n.Int64()) / float64(randomDivisor)
}

func randomInt(max int64) int64 {
	n, _ := rand.Int(rand.Reader, big.NewInt(max))
	return n.Int64()
}

// growthRate draws a per-cycle increment from a tiered distribution: a few
// elite accounts grow fast, most grow modestly.
func growthRate() float64 {
	switch randomInt(tierCount) {
	case caseElite:
		return randomFloat() * eliteRateRange
	case caseHigh:
		return randomFloat() * highRateRange
	case caseAverage:
		return randomFloat() * averageRateRange
	default:
		return randomFloat() * lowRateRange
	}
}

// Run seeds the store. Observations are monotonic counters: every cycle
// each metric grows by the account's drawn rate, so windowed deltas behave
// like real play activity.
func Run(ctx context.Context, cfg *Config) (Stats, error) {
	log := logger.Named("seed")
	begin := time.Now()

	if cfg.Accounts < 1 || cfg.Cycles < 1 {
		return Stats{}, fmt.Errorf("accounts and cycles must be positive")
	}

	st, err := store.OpenSQLite(ctx, cfg.DBPath)
	if err != nil {
		return Stats{}, err
	}
	defer st.Close()

	cat, err := catalog.LoadDefault("")
	if err != nil {
		return Stats{}, err
	}
	if err := st.UpsertMetricDefs(ctx, cat.Metrics()); err != nil {
		return Stats{}, err
	}
	names := cat.Names()

	accounts := makeAccounts(cfg.Accounts, names)
	ids := make([]string, len(accounts))
	for i, a := range accounts {
		ids[i] = a.id
	}
	if err := st.ReplaceRoster(ctx, cfg.RosterID, ids); err != nil {
		return Stats{}, err
	}
	for _, a := range accounts {
		if err := st.SetUsername(ctx, a.id, a.username); err != nil {
			return Stats{}, err
		}
	}
	log.Info(ctx, "roster seeded",
		logger.String("roster", cfg.RosterID),
		logger.Int("accounts", len(accounts)),
	)

	var stats Stats
	stats.AccountsCreated = len(accounts)
	for cycle := 0; cycle < cfg.Cycles; cycle++ {
		timestamp := cfg.Start.Add(time.Duration(cycle) * cfg.Interval).UnixMilli()
		for _, a := range accounts {
			observations := make(map[string]float64, len(names))
			for _, name := range names {
				observations[name] = a.base[name] + a.rate[name]*float64(cycle)
			}
			if err := st.Record(ctx, a.profile, timestamp, observations); err != nil {
				return stats, fmt.Errorf("record cycle %d: %w", cycle, err)
			}
			stats.ObservationsWritten += len(observations)
		}
		stats.CyclesSeeded++
	}

	stats.Duration = time.Since(begin)
	log.Info(ctx, "seeding done",
		logger.Int("cycles", stats.CyclesSeeded),
		logger.Int("observations", stats.ObservationsWritten),
		logger.Duration("took", stats.Duration),
	)
	return stats, nil
}

// makeAccounts draws synthetic identities with unique ids and per-metric
// growth curves.
func makeAccounts(n int, metricNames []string) []account {
	accounts := make([]account, n)
	for i := range accounts {
		id := uuid.New().String()
		a := account{
			id:       id,
			username: "seed_" + strconv.Itoa(i),
			profile: model.ProfileKey{
				AccountID: id,
				ProfileID: uuid.New().String(),
				CuteName:  cuteNames[i%len(cuteNames)],
			},
			base: make(map[string]float64, len(metricNames)),
			rate: make(map[string]float64, len(metricNames)),
		}
		for _, name := range metricNames {
			a.base[name] = float64(randomInt(baseValueRange))
			a.rate[name] = growthRate()
		}
		accounts[i] = a
	}
	return accounts
}
