package tasks

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/lysyi3m/crowd-list/app/feed"
)

// MockTask records executions and returns scripted errors
type MockTask struct {
	Task
	errs []error
	runs atomic.Int32
	done chan struct{}
}

func newMockTask(watchName string, errs ...error) *MockTask {
	return &MockTask{
		Task: NewTask(TaskTypeIngestFilings, watchName),
		errs: errs,
		done: make(chan struct{}, 10),
	}
}

func (m *MockTask) Execute(ctx context.Context) error {
	n := int(m.runs.Add(1))
	defer func() { m.done <- struct{}{} }()
	if n <= len(m.errs) {
		return m.errs[n-1]
	}
	return nil
}

func waitForRuns(t *testing.T, task *MockTask, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		select {
		case <-task.done:
		case <-time.After(5 * time.Second):
			t.Fatalf("Timed out waiting for run %d", i+1)
		}
	}
}

func newTestConfigCache(t *testing.T, watches ...*feed.Config) *feed.ConfigCache {
	t.Helper()
	configCache := feed.NewConfigCache("")
	for _, watch := range watches {
		if err := configCache.AddConfig(watch); err != nil {
			t.Fatal(err)
		}
	}
	return configCache
}

func TestScheduler_RunsDueWatchOnStart(t *testing.T) {
	fetcher := &MockFeedFetcher{}
	pipeline := newTestPipeline(fetcher, &MockDocumentExtractor{}, NewMockOfferingRepository())
	configCache := newTestConfigCache(t, testWatch())

	scheduler := NewScheduler(configCache, pipeline, time.Hour, 1)
	scheduler.Start()

	deadline := time.Now().Add(5 * time.Second)
	for scheduler.NextRunAt("form-c").IsZero() && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	scheduler.Stop()

	if pipeline.LastResult() == nil {
		t.Fatal("Expected startup run to complete")
	}
	if fetcher.calls != 1 {
		t.Errorf("Expected 1 feed fetch, got %d", fetcher.calls)
	}
	if next := scheduler.NextRunAt("form-c"); !next.After(time.Now()) {
		t.Errorf("Expected next run to be scheduled in the future, got %v", next)
	}
}

func TestScheduler_ClaimRespectsInFlightAndNextRun(t *testing.T) {
	scheduler := NewScheduler(newTestConfigCache(t), nil, time.Hour, 1)
	now := time.Now().UTC()

	if !scheduler.claim("form-c", now) {
		t.Fatal("Expected first claim to succeed")
	}
	if scheduler.claim("form-c", now) {
		t.Error("Expected claim to fail while the watch is in flight")
	}

	scheduler.release("form-c", now.Add(time.Hour))
	if scheduler.claim("form-c", now) {
		t.Error("Expected claim to fail before the next run time")
	}
	if !scheduler.claim("form-c", now.Add(2*time.Hour)) {
		t.Error("Expected claim to succeed once due")
	}
}

func TestScheduler_RetriesFailedTask(t *testing.T) {
	scheduler := NewScheduler(newTestConfigCache(t), nil, time.Hour, 1)
	scheduler.Start()
	defer scheduler.Stop()

	task := newMockTask("form-c", errors.New("feed unavailable"))
	if err := scheduler.EnqueueTask(task); err != nil {
		t.Fatal(err)
	}

	// first attempt fails, retry fires after one second
	waitForRuns(t, task, 2)

	if task.GetRetryCount() != 1 {
		t.Errorf("Expected retry count 1, got %d", task.GetRetryCount())
	}
}

func TestScheduler_DoesNotRetryLockContention(t *testing.T) {
	scheduler := NewScheduler(newTestConfigCache(t), nil, time.Hour, 1)
	scheduler.Start()
	defer scheduler.Stop()

	task := newMockTask("form-c", ErrRunInProgress)
	if err := scheduler.EnqueueTask(task); err != nil {
		t.Fatal(err)
	}

	waitForRuns(t, task, 1)

	select {
	case <-task.done:
		t.Error("Expected no retry after lock contention")
	case <-time.After(1500 * time.Millisecond):
	}
	if task.GetRetryCount() != 0 {
		t.Errorf("Expected retry count 0, got %d", task.GetRetryCount())
	}
}
