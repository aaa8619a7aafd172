package worker

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/shrimple-guild/leaderboard/internal/adapters/mq/queue"
	"github.com/shrimple-guild/leaderboard/internal/domain/compute"
	"github.com/shrimple-guild/leaderboard/internal/domain/model"
	"github.com/shrimple-guild/leaderboard/pkg/logger"
)

func TestMain(m *testing.M) {
	if err := logger.Init(); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

type stubFetcher struct {
	profiles map[string][]model.RawProfile
	err      error
}

func (f *stubFetcher) Profiles(_ context.Context, accountID string) ([]model.RawProfile, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.profiles[accountID], nil
}

type stubComputer struct{}

func (stubComputer) Compute(s compute.Snapshot) map[string]float64 {
	v, ok := s.Number("xp")
	if !ok {
		return nil
	}
	return map[string]float64{"Fishing XP": v}
}

type stubRecorder struct {
	mu       sync.Mutex
	recorded map[string]map[string]float64
	archived map[string]int64
	failFor  string
}

func newStubRecorder() *stubRecorder {
	return &stubRecorder{
		recorded: make(map[string]map[string]float64),
		archived: make(map[string]int64),
	}
}

func (r *stubRecorder) Record(_ context.Context, key model.ProfileKey, _ int64, observations map[string]float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if key.ProfileID == r.failFor {
		return errors.New("disk full")
	}
	r.recorded[key.ProfileID] = observations
	return nil
}

func (r *stubRecorder) ArchiveRaw(_ context.Context, key model.ProfileKey, _ bool, timestamp int64, _ []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.archived[key.ProfileID] = timestamp
	return nil
}

func rawProfile(account, profile string, xp float64) model.RawProfile {
	return model.RawProfile{
		Key: model.ProfileKey{AccountID: account, ProfileID: profile, CuteName: profile},
		Raw: map[string]any{"xp": xp},
	}
}

func runJob(t *testing.T, w *Worker, job queue.Job) error {
	t.Helper()
	return w.process(context.Background(), job)
}

func TestProcessRecordsEveryProfile(t *testing.T) {
	fetcher := &stubFetcher{profiles: map[string][]model.RawProfile{
		"acct": {rawProfile("acct", "p1", 100), rawProfile("acct", "p2", 250)},
	}}
	recorder := newStubRecorder()
	w := New(nil, fetcher, stubComputer{}, recorder)

	if err := runJob(t, w, queue.Job{AccountID: "acct", Timestamp: 500}); err != nil {
		t.Fatalf("process: %v", err)
	}
	if len(recorder.recorded) != 2 {
		t.Fatalf("recorded %d profiles, want 2", len(recorder.recorded))
	}
	if recorder.recorded["p2"]["Fishing XP"] != 250 {
		t.Fatalf("p2 observations = %v", recorder.recorded["p2"])
	}
	if len(recorder.archived) != 0 {
		t.Fatal("archive must only happen on window-start jobs")
	}
}

func TestProcessFetchFailureFailsUnit(t *testing.T) {
	fetcher := &stubFetcher{err: errors.New("rate limited")}
	recorder := newStubRecorder()
	w := New(nil, fetcher, stubComputer{}, recorder)

	if err := runJob(t, w, queue.Job{AccountID: "acct"}); err == nil {
		t.Fatal("fetch failure must fail the unit")
	}
	if len(recorder.recorded) != 0 {
		t.Fatal("nothing should be recorded after a fetch failure")
	}
}

func TestProcessPartialRecordFailure(t *testing.T) {
	fetcher := &stubFetcher{profiles: map[string][]model.RawProfile{
		"acct": {rawProfile("acct", "p1", 100), rawProfile("acct", "p2", 250)},
	}}
	recorder := newStubRecorder()
	recorder.failFor = "p1"
	w := New(nil, fetcher, stubComputer{}, recorder)

	err := runJob(t, w, queue.Job{AccountID: "acct"})
	if err == nil {
		t.Fatal("a failed profile must surface in the unit error")
	}
	if recorder.recorded["p2"] == nil {
		t.Fatal("sibling profiles must still be recorded")
	}
}

func TestProcessSkipsEmptyObservations(t *testing.T) {
	fetcher := &stubFetcher{profiles: map[string][]model.RawProfile{
		"acct": {{
			Key: model.ProfileKey{AccountID: "acct", ProfileID: "p1", CuteName: "p1"},
			Raw: map[string]any{"unrelated": "data"},
		}},
	}}
	recorder := newStubRecorder()
	w := New(nil, fetcher, stubComputer{}, recorder)

	if err := runJob(t, w, queue.Job{AccountID: "acct"}); err != nil {
		t.Fatalf("process: %v", err)
	}
	if len(recorder.recorded) != 0 {
		t.Fatal("profiles with no observations must not produce rows")
	}
}

func TestProcessArchivesOnWindowStart(t *testing.T) {
	fetcher := &stubFetcher{profiles: map[string][]model.RawProfile{
		"acct": {rawProfile("acct", "p1", 100)},
	}}
	recorder := newStubRecorder()
	w := New(nil, fetcher, stubComputer{}, recorder)

	if err := runJob(t, w, queue.Job{AccountID: "acct", Timestamp: 700, WindowStart: true}); err != nil {
		t.Fatalf("process: %v", err)
	}
	if recorder.archived["p1"] != 700 {
		t.Fatalf("archived = %v, want p1 at 700", recorder.archived)
	}
}

func TestPoolProcessesQueuedJobs(t *testing.T) {
	ctx := context.Background()
	q := queue.NewInMemoryQueue(queue.WithCapacity(16))
	fetcher := &stubFetcher{profiles: map[string][]model.RawProfile{
		"a": {rawProfile("a", "a-p1", 10)},
		"b": {rawProfile("b", "b-p1", 20)},
	}}
	recorder := newStubRecorder()
	pool := NewPool(2, q, fetcher, stubComputer{}, recorder)
	pool.Start(ctx)

	results := make(chan error, 2)
	for _, id := range []string{"a", "b"} {
		if ok := q.Enqueue(ctx, queue.Job{ID: id, AccountID: id, Timestamp: 1, Result: results}); !ok {
			t.Fatalf("enqueue %s failed", id)
		}
	}
	for i := 0; i < 2; i++ {
		select {
		case err := <-results:
			if err != nil {
				t.Fatalf("job failed: %v", err)
			}
		case <-time.After(5 * time.Second):
			t.Fatal("timed out waiting for results")
		}
	}

	stopCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	pool.Stop(stopCtx)

	if len(recorder.recorded) != 2 {
		t.Fatalf("recorded %d profiles, want 2", len(recorder.recorded))
	}
}
