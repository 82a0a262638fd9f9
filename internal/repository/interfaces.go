package repository

import (
	"errors"
	"fmt"

	"trafficmonitor/internal/model"
)

// ErrStoreClosed is returned by every operation after the store is closed.
var ErrStoreClosed = errors.New("store closed")

// StoreError describes a failed store operation.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// CountRepository defines the interface for count record operations.
type CountRepository interface {
	// Insert appends rec, sets rec.ID and returns it.
	Insert(rec *model.CountRecord) (int64, error)

	// GetRecent returns at most limit records, newest first.
	GetRecent(limit int) ([]model.CountRecord, error)

	// Count returns the number of stored records.
	Count() (int, error)
}
