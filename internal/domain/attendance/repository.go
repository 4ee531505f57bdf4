package attendance

import (
	"context"
)

// RecordRepository defines data access for period records. The record is the
// unit of atomicity: Update persists the entry list, the embedded correction
// requests and all counters in one statement, and callers wrap every mutation
// (fetch, modify, update) in a single transaction.
type RecordRepository interface {
	// Create inserts a new period record. It returns ErrRecordExists when
	// the composite key already exists, so callers can treat a concurrent
	// first-check-in race as "someone else created it, retry the append".
	Create(ctx context.Context, record Record) (Record, error)

	// Get retrieves a period record, or ErrRecordNotFound.
	Get(ctx context.Context, key RecordKey) (Record, error)

	// GetForUpdate retrieves a period record with a row lock when called
	// inside a transaction, or ErrRecordNotFound.
	GetForUpdate(ctx context.Context, key RecordKey) (Record, error)

	// Update persists the record's entries, corrections and counters.
	Update(ctx context.Context, record Record) error
}
