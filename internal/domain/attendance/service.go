package attendance

import (
	"context"
)

// SessionService orchestrates the session lifecycle: check-in, check-out,
// kiosk toggle and the expiry sweep.
type SessionService interface {
	// CheckIn validates eligibility, atomically appends an entry to the
	// period record, activates the session projection and refreshes the
	// cached stats.
	CheckIn(ctx context.Context, req CheckInRequest, actor Actor) (CheckInResult, error)

	// CheckOut closes an open entry, classifies it and refolds the
	// record's counters.
	CheckOut(ctx context.Context, req CheckOutRequest, actor Actor) (CheckOutResult, error)

	// Toggle checks out when a session is active, otherwise checks in.
	Toggle(ctx context.Context, req ToggleRequest, actor Actor) (ToggleResult, error)

	// SweepExpired force-checks-out sessions past their expected check-out
	// time. Per-entity failures are collected, never fatal to the batch.
	SweepExpired(ctx context.Context, req SweepRequest) (SweepSummary, error)

	// GetRecord fetches one period record.
	GetRecord(ctx context.Context, key RecordKey) (Record, error)
}

// CorrectionService is the state machine for retroactive edits.
type CorrectionService interface {
	// Submit files a new pending correction request, creating the period
	// record first if it does not exist yet.
	Submit(ctx context.Context, req SubmitCorrectionRequest, actor Actor) (CorrectionRequest, error)

	// Review transitions pending -> approved|rejected.
	Review(ctx context.Context, req ReviewCorrectionRequest, actor Actor) (CorrectionRequest, error)

	// Apply transitions approved -> applied and mutates the target record.
	Apply(ctx context.Context, req ApplyCorrectionRequest, actor Actor) (CorrectionRequest, error)

	// List returns the record's correction requests, optionally filtered
	// by status.
	List(ctx context.Context, key RecordKey, status *CorrectionStatus) ([]CorrectionRequest, error)
}
