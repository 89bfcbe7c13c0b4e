package tasks

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

// RunLock serializes ingestion runs through an advisory file lock, across
// processes and across triggers inside one process. The duplicate check and
// the insert that follows it are not atomic against the backend, so two
// overlapping runs could both store the same offering.
type RunLock struct {
	path string
}

func NewRunLock(path string) *RunLock {
	return &RunLock{path: path}
}

// TryAcquire takes the lock without waiting. It returns ErrRunInProgress
// when someone else holds it.
func (l *RunLock) TryAcquire() (func(), error) {
	if dir := filepath.Dir(l.path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create lock directory: %w", err)
		}
	}

	// A fresh handle per attempt: flock.Flock reports success when the same
	// handle already holds the lock.
	fileLock := flock.New(l.path)
	locked, err := fileLock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("failed to acquire run lock: %w", err)
	}
	if !locked {
		return nil, ErrRunInProgress
	}

	return func() {
		if err := fileLock.Unlock(); err != nil {
			slog.Warn("Failed to release run lock", "path", l.path, "error", err)
		}
	}, nil
}
