package tasks

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/lysyi3m/crowd-list/app/feed"
)

var _ TaskSchedulerInterface = (*Scheduler)(nil)

const defaultTaskTimeout = 10 * time.Minute

type Scheduler struct {
	configCache *feed.ConfigCache
	pipeline    *Pipeline
	interval    time.Duration
	workerCount int
	ctx         context.Context
	cancel      context.CancelFunc
	wg          sync.WaitGroup
	taskQueue   chan TaskInterface

	mu        sync.Mutex
	nextRunAt map[string]time.Time
	inFlight  map[string]bool
}

func NewScheduler(configCache *feed.ConfigCache, pipeline *Pipeline, interval time.Duration, workerCount int) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())

	if workerCount < 1 {
		workerCount = 1
	}
	if interval <= 0 {
		interval = 30 * time.Second
	}

	return &Scheduler{
		configCache: configCache,
		pipeline:    pipeline,
		interval:    interval,
		workerCount: workerCount,
		ctx:         ctx,
		cancel:      cancel,
		taskQueue:   make(chan TaskInterface, 300),
		nextRunAt:   make(map[string]time.Time),
		inFlight:    make(map[string]bool),
	}
}

func (s *Scheduler) Start() {
	for i := 0; i < s.workerCount; i++ {
		s.wg.Add(1)
		go s.worker(i)
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		s.enqueueTasks()

		for {
			select {
			case <-s.ctx.Done():
				return
			case <-ticker.C:
				s.enqueueTasks()
			}
		}
	}()
}

func (s *Scheduler) Stop() {
	s.cancel()
	s.wg.Wait()
}

func (s *Scheduler) EnqueueTask(task TaskInterface) error {
	select {
	case s.taskQueue <- task:
		return nil
	case <-s.ctx.Done():
		return s.ctx.Err()
	default:
		return fmt.Errorf("task queue is full")
	}
}

// enqueueTasks queues every enabled watch that is due and not already queued
// or running.
func (s *Scheduler) enqueueTasks() {
	watchConfigs := s.configCache.GetEnabledConfigs()
	if len(watchConfigs) == 0 {
		slog.Debug("No enabled watch configurations found")
		return
	}

	now := time.Now().UTC()

	for _, watchConfig := range watchConfigs {
		if !s.claim(watchConfig.Name, now) {
			continue
		}

		task := NewIngestFilingsTask(watchConfig, s.pipeline)
		if err := s.EnqueueTask(task); err != nil {
			slog.Warn("Failed to enqueue IngestFilingsTask", "watch", watchConfig.Name, "error", err)
			s.release(watchConfig.Name, time.Time{})
		}
	}
}

func (s *Scheduler) claim(watchName string, now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.inFlight[watchName] {
		slog.Debug("Watch already queued or running", "watch", watchName)
		return false
	}
	if next, ok := s.nextRunAt[watchName]; ok && next.After(now) {
		slog.Debug("Watch not due yet", "watch", watchName, "next_run_at", next)
		return false
	}

	s.inFlight[watchName] = true
	return true
}

func (s *Scheduler) release(watchName string, nextRunAt time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.inFlight, watchName)
	if nextRunAt.IsZero() {
		delete(s.nextRunAt, watchName)
		return
	}
	s.nextRunAt[watchName] = nextRunAt
}

// NextRunAt reports when a watch is due next. The zero time means it is due
// on the next tick.
func (s *Scheduler) NextRunAt(watchName string) time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.nextRunAt[watchName]
}

func (s *Scheduler) worker(id int) {
	defer s.wg.Done()

	for {
		select {
		case task := <-s.taskQueue:
			s.executeTask(id, task)

		case <-s.ctx.Done():
			return
		}
	}
}

func (s *Scheduler) taskSettings(task TaskInterface) (time.Duration, time.Duration) {
	timeout := defaultTaskTimeout
	var refresh time.Duration

	watchConfig, err := s.configCache.GetConfig(task.GetWatchName())
	if err != nil {
		return timeout, refresh
	}
	if watchConfig.Settings.Timeout > 0 {
		timeout = time.Duration(watchConfig.Settings.Timeout) * time.Second
	}
	refresh = time.Duration(watchConfig.Settings.RefreshInterval) * time.Second
	return timeout, refresh
}

func (s *Scheduler) executeTask(workerID int, task TaskInterface) {
	task.Start()

	timeout, refresh := s.taskSettings(task)

	taskCtx, cancel := context.WithTimeout(s.ctx, timeout)
	defer cancel()

	err := task.Execute(taskCtx)

	if err == nil {
		s.release(task.GetWatchName(), time.Now().UTC().Add(refresh))
		return
	}

	if errors.Is(err, ErrRunInProgress) {
		slog.Info("Run skipped, another run holds the lock", "worker_id", workerID, "watch", task.GetWatchName())
		s.release(task.GetWatchName(), time.Time{})
		return
	}

	slog.Error("Worker task execution failed", "worker_id", workerID, "type", string(task.GetType()), "id", task.GetID(), "retry_count", task.GetRetryCount(), "error", err)

	if s.ctx.Err() != nil || !task.CanRetry() {
		if s.ctx.Err() == nil {
			slog.Error("Task failed after maximum retries", "type", string(task.GetType()), "id", task.GetID(), "retry_count", task.GetRetryCount(), "max_retries", task.GetMaxRetries(), "last_error", err)
		}
		s.release(task.GetWatchName(), time.Now().UTC().Add(refresh))
		return
	}

	task.IncrementRetryCount()
	retryDelay := time.Duration(1<<uint(task.GetRetryCount()-1)) * time.Second
	if retryDelay > 30*time.Second {
		retryDelay = 30 * time.Second
	}

	slog.Warn("Task retry scheduled", "type", string(task.GetType()), "watch", task.GetWatchName(), "retry_count", task.GetRetryCount(), "max_retries", task.GetMaxRetries(), "delay", retryDelay.String())

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		select {
		case <-time.After(retryDelay):
		case <-s.ctx.Done():
			slog.Debug("Scheduler stopped, skipping task retry", "type", string(task.GetType()), "id", task.GetID())
			return
		}

		if retryErr := s.EnqueueTask(task); retryErr != nil {
			slog.Error("Failed to re-enqueue task for retry", "type", string(task.GetType()), "id", task.GetID(), "retry_count", task.GetRetryCount(), "error", retryErr)
			s.release(task.GetWatchName(), time.Time{})
		}
	}()
}
