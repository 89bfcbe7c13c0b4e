package tasks

import (
	"errors"
	"path/filepath"
	"testing"
)

func TestRunLock_ExclusiveWithinProcess(t *testing.T) {
	path := filepath.Join(t.TempDir(), "locks", "ingest.lock")
	first := NewRunLock(path)
	second := NewRunLock(path)

	release, err := first.TryAcquire()
	if err != nil {
		t.Fatalf("Expected first acquire to succeed, got: %v", err)
	}

	if _, err := second.TryAcquire(); !errors.Is(err, ErrRunInProgress) {
		t.Errorf("Expected ErrRunInProgress from second lock, got: %v", err)
	}
	if _, err := first.TryAcquire(); !errors.Is(err, ErrRunInProgress) {
		t.Errorf("Expected ErrRunInProgress when re-acquiring the same lock, got: %v", err)
	}

	release()

	releaseAgain, err := second.TryAcquire()
	if err != nil {
		t.Fatalf("Expected acquire after release to succeed, got: %v", err)
	}
	releaseAgain()
}
