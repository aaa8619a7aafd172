package service_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	service "github.com/shrimple-guild/leaderboard/internal/app"
	"github.com/shrimple-guild/leaderboard/internal/adapters/store"
	"github.com/shrimple-guild/leaderboard/internal/domain/catalog"
	"github.com/shrimple-guild/leaderboard/internal/domain/compute"
	"github.com/shrimple-guild/leaderboard/internal/domain/model"
	"github.com/shrimple-guild/leaderboard/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	// Initialize logging for tests
	err := logger.Init()
	if err != nil {
		panic(err)
	}
}

// fakeFetcher serves a fixed roster and one profile per account. Accounts
// listed in failing return a fetch error.
type fakeFetcher struct {
	roster  []string
	failing map[string]bool
}

func (f *fakeFetcher) RosterMembers(_ context.Context, _ string) ([]string, error) {
	return f.roster, nil
}

func (f *fakeFetcher) Profiles(_ context.Context, accountID string) ([]model.RawProfile, error) {
	if f.failing[accountID] {
		return nil, fmt.Errorf("unavailable: %s", accountID)
	}
	return []model.RawProfile{
		{
			Key: model.ProfileKey{AccountID: accountID, ProfileID: accountID + "-p1", CuteName: "Apple"},
			Raw: map[string]any{
				"player_data": map[string]any{
					"experience": map[string]any{"SKILL_FISHING": 1234.5},
				},
			},
		},
	}, nil
}

func (f *fakeFetcher) Name(_ context.Context, accountID string) (string, error) {
	return "name-" + accountID, nil
}

// fakeStore records calls in memory.
type fakeStore struct {
	mu        sync.Mutex
	rosters   map[string][]string
	names     map[string]string
	defs      []catalog.Metric
	recorded  map[string]map[string]float64 // profileID -> observations
	archived  int
	rankRows  []model.RankedEntry
	seriesPts []model.TimeseriesPoint
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		rosters:  make(map[string][]string),
		names:    make(map[string]string),
		recorded: make(map[string]map[string]float64),
	}
}

func (s *fakeStore) ReplaceRoster(_ context.Context, rosterID string, accountIDs []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rosters[rosterID] = accountIDs
	return nil
}

func (s *fakeStore) CurrentMembers(_ context.Context, rosterIDs ...string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []string
	for _, id := range rosterIDs {
		out = append(out, s.rosters[id]...)
	}
	return out, nil
}

func (s *fakeStore) SetUsername(_ context.Context, accountID, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.names[accountID] = name
	return nil
}

func (s *fakeStore) UpsertMetricDefs(_ context.Context, defs []catalog.Metric) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.defs = append(s.defs, defs...)
	return nil
}

func (s *fakeStore) Record(_ context.Context, key model.ProfileKey, _ int64, observations map[string]float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recorded[key.ProfileID] = observations
	return nil
}

func (s *fakeStore) ArchiveRaw(_ context.Context, _ model.ProfileKey, _ bool, _ int64, _ []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.archived++
	return nil
}

func (s *fakeStore) Rank(_ context.Context, _ store.RankQuery) ([]model.RankedEntry, error) {
	return s.rankRows, nil
}

func (s *fakeStore) Timeseries(_ context.Context, _ store.TimeseriesQuery) ([]model.TimeseriesPoint, error) {
	return s.seriesPts, nil
}

func (s *fakeStore) Close() error { return nil }

// fakeBeacon returns fixed randomness for any timestamp.
type fakeBeacon struct {
	randomness []byte
}

func (b *fakeBeacon) RandomnessAt(_ context.Context, _ time.Time) ([]byte, error) {
	return b.randomness, nil
}

func testEngine() *compute.Engine {
	cat, err := catalog.New([]catalog.Metric{
		{Name: "fishing_xp", Counter: "xp", Path: "player_data.experience.SKILL_FISHING"},
	})
	if err != nil {
		panic(err)
	}
	engine, err := compute.NewEngine(cat, nil, nil)
	if err != nil {
		panic(err)
	}
	return engine
}

func newTestService(fetcher service.Fetcher, st store.Store) *service.Service {
	return service.New(
		service.WithWorkerCount(2),
		service.WithQueueSize(100),
		service.WithDedupeSize(100),
		service.WithStore(st),
		service.WithEngine(testEngine()),
		service.WithFetcher(fetcher),
	)
}

func TestService_Start(t *testing.T) {
	Convey("Given a service missing its dependencies", t, func() {
		svc := service.New()

		Convey("Then Start should refuse to run", func() {
			So(svc.Start(context.Background()), ShouldEqual, service.ErrNotConfigured)
		})

		Convey("And stats should still report without panicking", func() {
			stats := svc.GetStats()
			So(stats["started"], ShouldEqual, false)
			So(stats, ShouldNotContainKey, "metricCount")
		})
	})

	Convey("Given a fully configured service", t, func() {
		st := newFakeStore()
		svc := newTestService(&fakeFetcher{}, st)
		ctx := context.Background()
		defer svc.Stop(ctx)

		Convey("When starting the service", func() {
			err := svc.Start(ctx)

			Convey("Then it should start and register metric definitions", func() {
				So(err, ShouldBeNil)
				So(svc.GetStats()["started"], ShouldEqual, true)
				So(len(st.defs), ShouldEqual, 1)
			})
		})
	})
}

func TestService_RunCycle(t *testing.T) {
	Convey("Given a started service with a three-member roster", t, func() {
		st := newFakeStore()
		fetcher := &fakeFetcher{roster: []string{"a", "b", "c"}}
		svc := newTestService(fetcher, st)
		ctx := context.Background()
		So(svc.Start(ctx), ShouldBeNil)
		defer svc.Stop(ctx)

		Convey("When running a cycle", func() {
			tally, err := svc.RunCycle(ctx, "guild-1", 1000, false)

			Convey("Then every unit should succeed", func() {
				So(err, ShouldBeNil)
				So(tally.Total, ShouldEqual, 3)
				So(tally.Succeeded, ShouldEqual, 3)
			})

			Convey("And each profile's observations should be recorded", func() {
				st.mu.Lock()
				defer st.mu.Unlock()
				So(len(st.recorded), ShouldEqual, 3)
				So(st.recorded["a-p1"]["fishing_xp"], ShouldEqual, 1234.5)
			})

			Convey("And the roster should be replaced", func() {
				st.mu.Lock()
				defer st.mu.Unlock()
				So(st.rosters["guild-1"], ShouldResemble, []string{"a", "b", "c"})
			})

			Convey("And re-running the same cycle should dedupe every job", func() {
				again, err := svc.RunCycle(ctx, "guild-1", 1000, false)
				So(err, ShouldBeNil)
				So(again.Total, ShouldEqual, 0)
			})

			Convey("And a later timestamp should run fresh jobs", func() {
				later, err := svc.RunCycle(ctx, "guild-1", 2000, false)
				So(err, ShouldBeNil)
				So(later.Total, ShouldEqual, 3)
			})
		})
	})

	Convey("Given a roster where one account's fetch fails", t, func() {
		st := newFakeStore()
		fetcher := &fakeFetcher{roster: []string{"a", "bad", "c"}, failing: map[string]bool{"bad": true}}
		svc := newTestService(fetcher, st)
		ctx := context.Background()
		So(svc.Start(ctx), ShouldBeNil)
		defer svc.Stop(ctx)

		Convey("When running a cycle", func() {
			tally, err := svc.RunCycle(ctx, "guild-1", 1000, false)

			Convey("Then the failure should be isolated to its unit", func() {
				So(err, ShouldBeNil)
				So(tally.Total, ShouldEqual, 3)
				So(tally.Succeeded, ShouldEqual, 2)
			})
		})
	})

	Convey("Given a cycle opening a competitive window", t, func() {
		st := newFakeStore()
		fetcher := &fakeFetcher{roster: []string{"a"}}
		svc := newTestService(fetcher, st)
		ctx := context.Background()
		So(svc.Start(ctx), ShouldBeNil)
		defer svc.Stop(ctx)

		Convey("When running the cycle with windowStart set", func() {
			_, err := svc.RunCycle(ctx, "guild-1", 1000, true)

			Convey("Then the raw snapshot should be archived", func() {
				So(err, ShouldBeNil)
				st.mu.Lock()
				defer st.mu.Unlock()
				So(st.archived, ShouldEqual, 1)
			})
		})
	})
}

func TestService_RefreshUsernames(t *testing.T) {
	Convey("Given a started service with stored members", t, func() {
		st := newFakeStore()
		fetcher := &fakeFetcher{roster: []string{"a", "b"}}
		svc := newTestService(fetcher, st)
		ctx := context.Background()
		So(svc.Start(ctx), ShouldBeNil)
		defer svc.Stop(ctx)
		_, err := svc.RunCycle(ctx, "guild-1", 1000, false)
		So(err, ShouldBeNil)

		Convey("When refreshing usernames", func() {
			So(svc.RefreshUsernames(ctx, "guild-1"), ShouldBeNil)

			Convey("Then every member's name should be updated", func() {
				st.mu.Lock()
				defer st.mu.Unlock()
				So(st.names["a"], ShouldEqual, "name-a")
				So(st.names["b"], ShouldEqual, "name-b")
			})
		})
	})
}

func TestService_Rank(t *testing.T) {
	Convey("Given a service whose store returns ranked rows", t, func() {
		st := newFakeStore()
		st.rankRows = []model.RankedEntry{
			{Rank: 1, Username: "u1", Value: 900, Metric: "fishing_xp"},
			{Rank: 2, Username: "u2", Value: 500, Metric: "fishing_xp"},
			{Rank: 3, Username: "u3", Value: 100, Metric: "fishing_xp"},
		}
		svc := newTestService(&fakeFetcher{}, st)
		ctx := context.Background()
		So(svc.Start(ctx), ShouldBeNil)
		defer svc.Stop(ctx)

		Convey("When querying with a limit", func() {
			entries, err := svc.Rank(ctx, store.RankQuery{Metric: "fishing_xp"}, 2)

			Convey("Then the result should be truncated and carry the counter label", func() {
				So(err, ShouldBeNil)
				So(len(entries), ShouldEqual, 2)
				So(entries[0].Counter, ShouldEqual, "xp")
				So(entries[1].Username, ShouldEqual, "u2")
			})
		})
	})
}

func TestService_PickEventMetric(t *testing.T) {
	Convey("Given a service with a fixed randomness source", t, func() {
		st := newFakeStore()
		svc := service.New(
			service.WithStore(st),
			service.WithEngine(testEngine()),
			service.WithFetcher(&fakeFetcher{}),
			service.WithBeacon(&fakeBeacon{randomness: []byte{0x00}}),
		)

		Convey("When picking from candidates", func() {
			picked, err := svc.PickEventMetric(context.Background(), []string{"a", "b", "c", "d"}, time.Now())

			Convey("Then the choice should be deterministic", func() {
				So(err, ShouldBeNil)
				So(picked, ShouldEqual, "a")
			})
		})
	})

	Convey("Given a service without a randomness source", t, func() {
		svc := service.New(
			service.WithStore(newFakeStore()),
			service.WithEngine(testEngine()),
			service.WithFetcher(&fakeFetcher{}),
		)

		Convey("Then picking should fail cleanly", func() {
			_, err := svc.PickEventMetric(context.Background(), []string{"a"}, time.Now())
			So(err, ShouldEqual, service.ErrNoBeacon)
		})
	})
}

func TestService_UpsertMetric(t *testing.T) {
	Convey("Given a started service", t, func() {
		st := newFakeStore()
		svc := newTestService(&fakeFetcher{}, st)
		ctx := context.Background()
		So(svc.Start(ctx), ShouldBeNil)
		defer svc.Stop(ctx)

		Convey("When upserting a path metric", func() {
			err := svc.UpsertMetric(ctx, catalog.Metric{
				Name: "mining_xp", Counter: "xp", Path: "player_data.experience.SKILL_MINING",
			})

			Convey("Then the catalog and store should both learn it", func() {
				So(err, ShouldBeNil)
				So(svc.MetricNames(), ShouldContain, "mining_xp")
			})
		})

		Convey("When upserting a metric with an unknown formula", func() {
			err := svc.UpsertMetric(ctx, catalog.Metric{
				Name: "bogus", Counter: "x", Formula: "no_such_formula",
			})

			Convey("Then it should be rejected", func() {
				So(err, ShouldNotBeNil)
			})
		})
	})
}
