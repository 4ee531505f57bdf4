package attendance

import (
	"errors"
	"fmt"
	"time"
)

// Attendance domain errors
var (
	// Session lifecycle errors
	ErrAttendanceNotEnabled = errors.New("attendance tracking is not enabled for this entity")
	ErrEntityNotEligible    = errors.New("entity status does not allow checking in")
	ErrNoActiveSession      = errors.New("no active session found for this check-in")
	ErrAlreadyCheckedOut    = errors.New("this session has already been checked out")

	// Record errors
	ErrRecordNotFound  = errors.New("attendance record not found")
	ErrRecordExists    = errors.New("attendance record already exists for this period")
	ErrCheckInNotFound = errors.New("check-in entry not found in the attendance record")

	// Correction errors
	ErrCorrectionNotFound    = errors.New("correction request not found")
	ErrCorrectionNotPending  = errors.New("correction request has already been reviewed")
	ErrCorrectionNotApproved = errors.New("correction request is not approved for applying")

	ErrOperationFailed = errors.New("attendance operation failed")
)

// DuplicateCheckInError is returned when a check-in lands inside the
// duplicate-prevention window. It carries the last recorded visit and the
// earliest time a new check-in will be accepted.
type DuplicateCheckInError struct {
	LastCheckInAt time.Time
	NextAllowedAt time.Time
}

func (e *DuplicateCheckInError) Error() string {
	return fmt.Sprintf("duplicate check-in: last visit at %s, next allowed at %s",
		e.LastCheckInAt.Format(time.RFC3339), e.NextAllowedAt.Format(time.RFC3339))
}
