// Package worker runs the per-account ingestion units: fetch the account's
// raw profiles, compute the metric catalog against each, and record the
// observations. Units are independent; a failure is reported to the job's
// result channel and never cancels sibling units.
package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"runtime"
	"strconv"

	"github.com/shrimple-guild/leaderboard/internal/adapters/mq/queue"
	"github.com/shrimple-guild/leaderboard/internal/domain/compute"
	"github.com/shrimple-guild/leaderboard/internal/domain/model"
	"github.com/shrimple-guild/leaderboard/pkg/logger"
	"github.com/shrimple-guild/leaderboard/pkg/metrics"
)

// Fetcher hands back an account's raw profile documents.
type Fetcher interface {
	Profiles(ctx context.Context, accountID string) ([]model.RawProfile, error)
}

// Computer flattens one raw snapshot into named observations.
type Computer interface {
	Compute(s compute.Snapshot) map[string]float64
}

// Recorder persists one profile's observations at one timestamp.
type Recorder interface {
	Record(ctx context.Context, key model.ProfileKey, timestamp int64, observations map[string]float64) error
}

// JobSource is how workers receive jobs.
type JobSource interface {
	Dequeue(ctx context.Context) <-chan queue.Job
}

// Worker consumes jobs until its source closes or the context ends.
type Worker struct {
	source   JobSource
	fetcher  Fetcher
	computer Computer
	recorder Recorder
	name     string

	shutdown chan struct{}
	done     chan struct{}
	logger   logger.Logger
}

// Option applies a configuration option to the Worker.
type Option func(*Worker)

// WithName labels the worker in logs.
func WithName(name string) Option {
	return func(w *Worker) {
		if name != "" {
			w.name = name
		}
	}
}

// New creates a worker.
func New(source JobSource, fetcher Fetcher, computer Computer, recorder Recorder, opts ...Option) *Worker {
	w := &Worker{
		source:   source,
		fetcher:  fetcher,
		computer: computer,
		recorder: recorder,
		name:     "worker",
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	w.logger = logger.Named(w.name)
	return w
}

// Run starts the worker loop.
func (w *Worker) Run(ctx context.Context) {
	defer close(w.done)

	jobs := w.source.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case job, ok := <-jobs:
			if !ok {
				return
			}
			err := w.process(ctx, job)
			if err != nil {
				metrics.RecordUnitFailure()
				w.logger.Warn(ctx, "ingestion unit failed",
					logger.String("account", job.AccountID),
					logger.Error(err),
				)
			} else {
				metrics.RecordUnitSuccess()
			}
			if job.Result != nil {
				job.Result <- err
			}
		}
	}
}

// Shutdown stops the worker, waiting for the in-flight job.
func (w *Worker) Shutdown(ctx context.Context) error {
	close(w.shutdown)
	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("worker shutdown: %w", ctx.Err())
	}
}

// process runs one unit. A fetch failure fails the whole unit; a record
// failure for one profile is collected but does not stop its siblings.
func (w *Worker) process(ctx context.Context, job queue.Job) error {
	profiles, err := w.fetcher.Profiles(ctx, job.AccountID)
	if err != nil {
		return fmt.Errorf("fetch %s: %w", job.AccountID, err)
	}

	// Raw snapshots are archived only at window boundaries, when the
	// recorder supports it.
	archiver, canArchive := w.recorder.(interface {
		ArchiveRaw(ctx context.Context, key model.ProfileKey, isWindowStart bool, timestamp int64, payload []byte) error
	})

	var errs []error
	for _, profile := range profiles {
		observations := w.computer.Compute(compute.Snapshot(profile.Raw))
		if len(observations) == 0 {
			continue
		}
		if err := w.recorder.Record(ctx, profile.Key, job.Timestamp, observations); err != nil {
			errs = append(errs, fmt.Errorf("record %s/%s: %w", job.AccountID, profile.Key.CuteName, err))
			continue
		}
		if job.WindowStart && canArchive {
			payload, err := json.Marshal(profile.Raw)
			if err == nil {
				err = archiver.ArchiveRaw(ctx, profile.Key, true, job.Timestamp, payload)
			}
			if err != nil {
				w.logger.Warn(ctx, "raw snapshot archive failed",
					logger.String("account", job.AccountID),
					logger.String("profile", profile.Key.CuteName),
					logger.Error(err),
				)
			}
		}
	}
	return errors.Join(errs...)
}

// Pool fans jobs out over a fixed set of workers.
type Pool struct {
	workers []*Worker
	logger  logger.Logger
}

// NewPool creates and sizes a worker pool. A non-positive count defaults to
// twice the CPU count.
func NewPool(count int, source JobSource, fetcher Fetcher, computer Computer, recorder Recorder) *Pool {
	if count < 1 {
		count = runtime.NumCPU() * 2
	}
	p := &Pool{
		workers: make([]*Worker, count),
		logger:  logger.Named("worker-pool"),
	}
	for i := range p.workers {
		p.workers[i] = New(source, fetcher, computer, recorder, WithName("worker-"+strconv.Itoa(i)))
	}
	metrics.UpdateWorkerCount(count)
	return p
}

// Start launches every worker.
func (p *Pool) Start(ctx context.Context) {
	for _, w := range p.workers {
		go w.Run(ctx)
	}
	p.logger.Info(ctx, "worker pool started", logger.Int("workers", len(p.workers)))
}

// Stop shuts every worker down.
func (p *Pool) Stop(ctx context.Context) {
	for _, w := range p.workers {
		if err := w.Shutdown(ctx); err != nil {
			p.logger.Warn(ctx, "worker shutdown timed out", logger.Error(err))
		}
	}
	metrics.UpdateWorkerCount(0)
}
