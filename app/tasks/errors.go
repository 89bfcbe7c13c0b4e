package tasks

import (
	"errors"
	"fmt"
)

// ErrRunInProgress is returned when another run holds the run lock.
var ErrRunInProgress = errors.New("another ingestion run is in progress")

// BackendQueryError wraps a failed duplicate lookup. The record is skipped
// for this run and picked up again by the next one.
type BackendQueryError struct {
	CompanyCIK   string
	DeadlineDate string
	Err          error
}

func (e *BackendQueryError) Error() string {
	return fmt.Sprintf("duplicate check for CIK %s deadline %s: %v", e.CompanyCIK, e.DeadlineDate, e.Err)
}

func (e *BackendQueryError) Unwrap() error {
	return e.Err
}

// BackendWriteError wraps a failed insert of a new offering.
type BackendWriteError struct {
	CompanyCIK   string
	DeadlineDate string
	Err          error
}

func (e *BackendWriteError) Error() string {
	return fmt.Sprintf("store offering for CIK %s deadline %s: %v", e.CompanyCIK, e.DeadlineDate, e.Err)
}

func (e *BackendWriteError) Unwrap() error {
	return e.Err
}
