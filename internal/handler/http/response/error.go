package response

import (
	"errors"
	"net/http"

	"github.com/presencehq/presence-backend-go/internal/domain/attendance"
	"github.com/presencehq/presence-backend-go/internal/domain/entity"
	"github.com/presencehq/presence-backend-go/internal/pkg/validator"
)

// HandleError maps domain errors to HTTP responses
func HandleError(w http.ResponseWriter, err error) {
	// Check if it's a validation error
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		ValidationError(w, validationErrs.ToMap())
		return
	}

	// Duplicate check-in carries the retry hint for kiosks
	var duplicate *attendance.DuplicateCheckInError
	if errors.As(err, &duplicate) {
		ConflictWithData(w, err.Error(), map[string]interface{}{
			"last_check_in_at": duplicate.LastCheckInAt,
			"next_allowed_at":  duplicate.NextAllowedAt,
		})
		return
	}

	switch {
	// Entity errors
	case errors.Is(err, entity.ErrEntityNotFound):
		NotFound(w, "Entity not found")
	case errors.Is(err, entity.ErrTypeNotAllowed):
		BadRequest(w, "Entity type is not registered for attendance", nil)

	// Session errors
	case errors.Is(err, attendance.ErrAttendanceNotEnabled):
		Forbidden(w, "Attendance tracking is not enabled for this entity")
	case errors.Is(err, attendance.ErrEntityNotEligible):
		Forbidden(w, "Entity is not eligible to check in")
	case errors.Is(err, attendance.ErrNoActiveSession):
		Conflict(w, "No active session to check out")
	case errors.Is(err, attendance.ErrAlreadyCheckedOut):
		Conflict(w, "Session already checked out")

	// Record errors
	case errors.Is(err, attendance.ErrRecordNotFound):
		NotFound(w, "Period record not found")
	case errors.Is(err, attendance.ErrCheckInNotFound):
		NotFound(w, "Check-in entry not found")

	// Correction errors
	case errors.Is(err, attendance.ErrCorrectionNotFound):
		NotFound(w, "Correction request not found")
	case errors.Is(err, attendance.ErrCorrectionNotPending):
		Conflict(w, "Correction request already reviewed")
	case errors.Is(err, attendance.ErrCorrectionNotApproved):
		Conflict(w, "Correction request is not approved")

	// Default
	default:
		InternalServerError(w, "An unexpected error occurred")
	}
}
