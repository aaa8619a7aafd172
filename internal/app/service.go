// Package service provides the core business service that implements
// the dependencies required by the HTTP API and the scheduled update loop.
package service

import (
	"context"
	"fmt"
	"runtime"
	"strconv"
	"sync"
	"time"

	"github.com/shrimple-guild/leaderboard/internal/adapters/beacon"
	jobqueue "github.com/shrimple-guild/leaderboard/internal/adapters/mq/queue"
	workerpool "github.com/shrimple-guild/leaderboard/internal/adapters/mq/worker"
	"github.com/shrimple-guild/leaderboard/internal/adapters/store"
	"github.com/shrimple-guild/leaderboard/internal/domain/catalog"
	"github.com/shrimple-guild/leaderboard/internal/domain/compute"
	"github.com/shrimple-guild/leaderboard/internal/domain/dedupe"
	"github.com/shrimple-guild/leaderboard/internal/domain/model"
	"github.com/shrimple-guild/leaderboard/internal/domain/random"
	"github.com/shrimple-guild/leaderboard/pkg/logger"
	"github.com/shrimple-guild/leaderboard/pkg/metrics"
)

// Fetcher is the outbound game-API surface the service depends on.
type Fetcher interface {
	RosterMembers(ctx context.Context, rosterID string) ([]string, error)
	Profiles(ctx context.Context, accountID string) ([]model.RawProfile, error)
	Name(ctx context.Context, accountID string) (string, error)
}

// Service orchestrates ingestion cycles and serves ranking queries.
type Service struct {
	mu sync.RWMutex

	// Core components
	store   store.Store
	engine  *compute.Engine
	fetcher Fetcher
	beacon  beacon.Source

	deduper  dedupe.Deduper
	jobQueue jobqueue.Queue
	pool     *workerpool.Pool

	// Configuration
	workerCount int
	queueSize   int
	dedupeSize  int

	// State
	started bool

	// Logging
	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithWorkerCount sets the number of worker goroutines.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the maximum size of the job queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithDedupeSize sets the size of the deduplication cache.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.dedupeSize = size
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(logger logger.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithStore sets the observation store.
func WithStore(st store.Store) Option {
	return func(s *Service) {
		s.store = st
	}
}

// WithEngine sets the metric computation engine.
func WithEngine(e *compute.Engine) Option {
	return func(s *Service) {
		s.engine = e
	}
}

// WithFetcher sets the outbound game-API client.
func WithFetcher(f Fetcher) Option {
	return func(s *Service) {
		s.fetcher = f
	}
}

// WithBeacon sets the public randomness source used for event selection.
func WithBeacon(b beacon.Source) Option {
	return func(s *Service) {
		s.beacon = b
	}
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		workerCount: runtime.NumCPU() * 2,
		queueSize:   10000,
		dedupeSize:  50000,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Start initializes and starts the service components.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.store == nil || s.engine == nil || s.fetcher == nil {
		return ErrNotConfigured
	}

	if s.logger == nil {
		s.logger = logger.Get()
	}

	s.logger.Info(ctx, "starting leaderboard service...")

	// Metric dimension rows must exist before the first cycle records
	// observations against them.
	if err := s.store.UpsertMetricDefs(ctx, s.engine.Catalog().Metrics()); err != nil {
		return fmt.Errorf("register metrics: %w", err)
	}

	s.deduper = dedupe.NewInMemoryDeduper(
		dedupe.WithMaxSize(s.dedupeSize),
	)
	s.jobQueue = jobqueue.NewInMemoryQueue(
		jobqueue.WithCapacity(s.queueSize),
	)
	s.pool = workerpool.NewPool(s.workerCount, s.jobQueue, s.fetcher, s.engine, s.store)
	s.pool.Start(ctx)

	s.started = true
	s.logger.Info(ctx, "leaderboard service started",
		logger.Int("workers", s.workerCount),
		logger.Int("queueSize", s.queueSize),
		logger.Int("dedupeSize", s.dedupeSize),
	)

	return nil
}

// Stop gracefully shuts down the service. The store stays open; its owner
// closes it after the HTTP layer drains.
func (s *Service) Stop(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}

	s.logger.Info(ctx, "stopping leaderboard service...")

	if s.pool != nil {
		s.pool.Stop(ctx)
	}
	if q, ok := s.jobQueue.(*jobqueue.InMemoryQueue); ok {
		_ = q.Close()
	}

	s.started = false
	s.logger.Info(ctx, "leaderboard service stopped")
}

// RunCycle runs one ingestion cycle for a roster: refresh membership, fan
// one job per member out over the worker pool, and wait for every unit to
// report. Unit failures are isolated; the tally carries the outcome.
func (s *Service) RunCycle(ctx context.Context, rosterID string, timestamp int64, windowStart bool) (model.Tally, error) {
	s.mu.RLock()
	started := s.started
	s.mu.RUnlock()
	if !started {
		return model.Tally{}, ErrNotStarted
	}

	begin := time.Now()

	members, err := s.fetcher.RosterMembers(ctx, rosterID)
	if err != nil {
		return model.Tally{}, fmt.Errorf("roster %s: %w", rosterID, err)
	}
	if err := s.store.ReplaceRoster(ctx, rosterID, members); err != nil {
		return model.Tally{}, fmt.Errorf("roster %s: %w", rosterID, err)
	}
	metrics.UpdateRosterMembers(len(members))

	results := make(chan error, len(members))
	var tally model.Tally
	pending := 0
	for _, accountID := range members {
		id := accountID + "_" + strconv.FormatInt(timestamp, 10)
		if s.deduper.SeenAndRecord(ctx, id) {
			metrics.RecordDuplicateJob()
			s.logger.Debug(ctx, "duplicate job skipped", logger.String("account", accountID))
			continue
		}
		job := model.Job{
			ID:          id,
			AccountID:   accountID,
			Timestamp:   timestamp,
			WindowStart: windowStart,
			Result:      results,
		}
		tally.Total++
		if !s.jobQueue.Enqueue(ctx, job) {
			// Backpressure: forget the id so a later cycle can retry.
			s.deduper.Unrecord(ctx, id)
			s.logger.Warn(ctx, "queue full, job dropped", logger.String("account", accountID))
			continue
		}
		pending++
	}

	for i := 0; i < pending; i++ {
		select {
		case err := <-results:
			if err == nil {
				tally.Succeeded++
			}
		case <-ctx.Done():
			return tally, fmt.Errorf("cycle interrupted: %w", ctx.Err())
		}
	}

	metrics.RecordCycle(float64(time.Since(begin).Milliseconds()))
	s.logger.Info(ctx, "ingestion cycle finished",
		logger.String("roster", rosterID),
		logger.Int("succeeded", tally.Succeeded),
		logger.Int("total", tally.Total),
		logger.Duration("took", time.Since(begin)),
	)
	return tally, nil
}

// RefreshUsernames re-resolves display names for every current member of
// the given rosters. Lookup failures are logged and skipped.
func (s *Service) RefreshUsernames(ctx context.Context, rosterIDs ...string) error {
	members, err := s.store.CurrentMembers(ctx, rosterIDs...)
	if err != nil {
		return err
	}

	var wg sync.WaitGroup
	sem := make(chan struct{}, 8)
	for _, accountID := range members {
		wg.Add(1)
		sem <- struct{}{}
		go func(accountID string) {
			defer wg.Done()
			defer func() { <-sem }()
			name, err := s.fetcher.Name(ctx, accountID)
			if err != nil {
				s.logger.Warn(ctx, "name lookup failed",
					logger.String("account", accountID),
					logger.Error(err),
				)
				return
			}
			if err := s.store.SetUsername(ctx, accountID, name); err != nil {
				s.logger.Warn(ctx, "username update failed",
					logger.String("account", accountID),
					logger.Error(err),
				)
			}
		}(accountID)
	}
	wg.Wait()
	return nil
}

// Rank returns the windowed leaderboard for one metric, best profile per
// account, limited to at most limit rows. The counter label comes from the
// current catalog definition.
func (s *Service) Rank(ctx context.Context, q store.RankQuery, limit int) ([]model.RankedEntry, error) {
	entries, err := s.store.Rank(ctx, q)
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	if def, ok := s.engine.Catalog().Get(q.Metric); ok {
		for i := range entries {
			entries[i].Counter = def.Counter
		}
	}
	return entries, nil
}

// Timeseries returns one profile's anchored observation history.
func (s *Service) Timeseries(ctx context.Context, q store.TimeseriesQuery) ([]model.TimeseriesPoint, error) {
	return s.store.Timeseries(ctx, q)
}

// PickEventMetric selects one candidate metric using the public randomness
// emitted at the given time, so the choice is auditable by anyone holding
// the same chain parameters.
func (s *Service) PickEventMetric(ctx context.Context, candidates []string, at time.Time) (string, error) {
	if s.beacon == nil {
		return "", ErrNoBeacon
	}
	randomness, err := s.beacon.RandomnessAt(ctx, at)
	if err != nil {
		return "", fmt.Errorf("beacon: %w", err)
	}
	return random.Pick(candidates, randomness)
}

// UpsertMetric registers or redefines a catalog metric at runtime. Stored
// observations are never rewritten; only future computations change.
func (s *Service) UpsertMetric(ctx context.Context, def catalog.Metric) error {
	if def.Formula != "" && !s.engine.HasFormula(def.Formula) {
		return fmt.Errorf("%w: unknown formula %q", ErrBadMetricDef, def.Formula)
	}
	if err := s.engine.Catalog().Put(def); err != nil {
		return fmt.Errorf("%w: %w", ErrBadMetricDef, err)
	}
	return s.store.UpsertMetricDefs(ctx, []catalog.Metric{def})
}

// MetricNames returns the catalog's metric names, sorted.
func (s *Service) MetricNames() []string {
	return s.engine.Catalog().Names()
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx := context.Background()
	stats := map[string]any{
		"started":     s.started,
		"workerCount": s.workerCount,
		"queueSize":   s.queueSize,
		"dedupeSize":  s.dedupeSize,
	}
	if s.engine != nil {
		stats["metricCount"] = s.engine.Catalog().Len()
	}

	if s.started {
		queueLen := s.jobQueue.Len(ctx)
		stats["queueLength"] = queueLen
		stats["dedupeTracked"] = s.deduper.Size()

		metrics.UpdateQueueSize(queueLen)
		metrics.UpdateWorkerCount(s.workerCount)
	}

	return stats
}
