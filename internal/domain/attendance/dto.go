package attendance

import (
	"time"

	"github.com/presencehq/presence-backend-go/internal/domain/entity"
	"github.com/presencehq/presence-backend-go/internal/pkg/validator"
)

// ========================================
// SESSION DTOs
// ========================================

type CheckInRequest struct {
	TenantID   string `json:"tenant_id"`
	EntityType string `json:"entity_type"`
	EntityID   string `json:"entity_id"`
	Method     Method `json:"method"`
	Notes      string `json:"notes,omitempty"`
}

func (r *CheckInRequest) Validate() error {
	var errs validator.ValidationErrors

	if validator.IsEmpty(r.TenantID) {
		errs = append(errs, validator.ValidationError{
			Field:   "tenant_id",
			Message: "tenant_id is required",
		})
	}
	if validator.IsEmpty(r.EntityType) {
		errs = append(errs, validator.ValidationError{
			Field:   "entity_type",
			Message: "entity_type is required",
		})
	}
	if validator.IsEmpty(r.EntityID) {
		errs = append(errs, validator.ValidationError{
			Field:   "entity_id",
			Message: "entity_id is required",
		})
	}
	if r.Method == "" {
		r.Method = MethodManual
	} else if !isValidMethod(r.Method) {
		errs = append(errs, validator.ValidationError{
			Field:   "method",
			Message: "method must be one of: manual, qr, rfid, biometric, api",
		})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

type CheckOutRequest struct {
	TenantID   string `json:"tenant_id"`
	EntityType string `json:"entity_type"`
	EntityID   string `json:"entity_id"`
	CheckInID  string `json:"check_in_id"`
	// AutoCheckedOut marks sweeper-originated check-outs.
	AutoCheckedOut bool `json:"-"`
}

func (r *CheckOutRequest) Validate() error {
	var errs validator.ValidationErrors

	if validator.IsEmpty(r.TenantID) {
		errs = append(errs, validator.ValidationError{
			Field:   "tenant_id",
			Message: "tenant_id is required",
		})
	}
	if validator.IsEmpty(r.EntityType) {
		errs = append(errs, validator.ValidationError{
			Field:   "entity_type",
			Message: "entity_type is required",
		})
	}
	if validator.IsEmpty(r.EntityID) {
		errs = append(errs, validator.ValidationError{
			Field:   "entity_id",
			Message: "entity_id is required",
		})
	}
	if validator.IsEmpty(r.CheckInID) {
		errs = append(errs, validator.ValidationError{
			Field:   "check_in_id",
			Message: "check_in_id is required",
		})
	} else if !validator.IsValidUUID(r.CheckInID) {
		errs = append(errs, validator.ValidationError{
			Field:   "check_in_id",
			Message: "check_in_id must be a valid UUID",
		})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// ToggleRequest drives single-tap kiosk devices that do not know whether the
// entity is currently checked in.
type ToggleRequest struct {
	TenantID   string `json:"tenant_id"`
	EntityType string `json:"entity_type"`
	EntityID   string `json:"entity_id"`
	Method     Method `json:"method"`
}

func (r *ToggleRequest) Validate() error {
	checkIn := CheckInRequest{
		TenantID:   r.TenantID,
		EntityType: r.EntityType,
		EntityID:   r.EntityID,
		Method:     r.Method,
	}
	if err := checkIn.Validate(); err != nil {
		return err
	}
	r.Method = checkIn.Method
	return nil
}

type CheckInResult struct {
	Entry  CheckInEntry `json:"check_in"`
	Record Record       `json:"-"`
	Stats  entity.Stats `json:"stats"`
	// Milestones crossed by this visit, if any.
	Milestones []string `json:"milestones,omitempty"`
}

type CheckOutResult struct {
	Entry           CheckInEntry `json:"check_in"`
	DurationMinutes int          `json:"duration_minutes"`
	Record          Record       `json:"-"`
}

type ToggleAction string

const (
	ToggledCheckIn  ToggleAction = "checked_in"
	ToggledCheckOut ToggleAction = "checked_out"
)

type ToggleResult struct {
	Action   ToggleAction    `json:"action"`
	CheckIn  *CheckInResult  `json:"check_in_result,omitempty"`
	CheckOut *CheckOutResult `json:"check_out_result,omitempty"`
}

// ========================================
// SWEEPER DTOs
// ========================================

// SweepRequest asks the sweeper to force-checkout sessions whose expected
// check-out time lies before Cutoff. Empty EntityTypes means all registered
// types.
type SweepRequest struct {
	TenantID    string    `json:"tenant_id"`
	Cutoff      time.Time `json:"cutoff"`
	EntityTypes []string  `json:"entity_types,omitempty"`
}

func (r *SweepRequest) Validate() error {
	var errs validator.ValidationErrors

	if validator.IsEmpty(r.TenantID) {
		errs = append(errs, validator.ValidationError{
			Field:   "tenant_id",
			Message: "tenant_id is required",
		})
	}
	if r.Cutoff.IsZero() {
		errs = append(errs, validator.ValidationError{
			Field:   "cutoff",
			Message: "cutoff is required",
		})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

type SweepFailure struct {
	EntityType string `json:"entity_type"`
	EntityID   string `json:"entity_id"`
	Reason     string `json:"reason"`
}

// SweepSummary reports a sweep batch. Individual failures never abort the
// batch; they are collected here.
type SweepSummary struct {
	Candidates int            `json:"candidates"`
	SweptCount int            `json:"swept_count"`
	Failures   []SweepFailure `json:"failures,omitempty"`
}

// ========================================
// CORRECTION DTOs
// ========================================

type SubmitCorrectionRequest struct {
	TenantID   string `json:"tenant_id"`
	EntityType string `json:"entity_type"`
	EntityID   string `json:"entity_id"`
	Year       int    `json:"year"`
	Month      int    `json:"month"`

	Type                CorrectionType     `json:"type"`
	CheckInID           *string            `json:"check_in_id,omitempty"`
	RequestedCheckInAt  *time.Time         `json:"requested_check_in_at,omitempty"`
	RequestedCheckOutAt *time.Time         `json:"requested_check_out_at,omitempty"`
	RequestedType       *Type              `json:"requested_type,omitempty"`
	Reason              string             `json:"reason"`
	Priority            CorrectionPriority `json:"priority,omitempty"`
}

func (r *SubmitCorrectionRequest) Validate() error {
	var errs validator.ValidationErrors

	if validator.IsEmpty(r.TenantID) {
		errs = append(errs, validator.ValidationError{
			Field:   "tenant_id",
			Message: "tenant_id is required",
		})
	}
	if validator.IsEmpty(r.EntityType) {
		errs = append(errs, validator.ValidationError{
			Field:   "entity_type",
			Message: "entity_type is required",
		})
	}
	if validator.IsEmpty(r.EntityID) {
		errs = append(errs, validator.ValidationError{
			Field:   "entity_id",
			Message: "entity_id is required",
		})
	}
	if !validator.IsValidYear(r.Year) {
		errs = append(errs, validator.ValidationError{
			Field:   "year",
			Message: "year is out of range",
		})
	}
	if !validator.IsValidMonth(r.Month) {
		errs = append(errs, validator.ValidationError{
			Field:   "month",
			Message: "month must be between 1 and 12",
		})
	}
	if !isValidCorrectionType(r.Type) {
		errs = append(errs, validator.ValidationError{
			Field:   "type",
			Message: "type must be one of: update_check_in_time, update_check_out_time, override_attendance_type, delete_duplicate, add_missing_attendance",
		})
	}
	if validator.IsEmpty(r.Reason) {
		errs = append(errs, validator.ValidationError{
			Field:   "reason",
			Message: "a reason is required for every correction request",
		})
	}

	switch r.Type {
	case CorrectionUpdateCheckInTime:
		if r.CheckInID == nil {
			errs = append(errs, checkInIDRequired)
		}
		if r.RequestedCheckInAt == nil {
			errs = append(errs, validator.ValidationError{
				Field:   "requested_check_in_at",
				Message: "requested_check_in_at is required",
			})
		}
	case CorrectionUpdateCheckOutTime:
		if r.CheckInID == nil {
			errs = append(errs, checkInIDRequired)
		}
		if r.RequestedCheckOutAt == nil {
			errs = append(errs, validator.ValidationError{
				Field:   "requested_check_out_at",
				Message: "requested_check_out_at is required",
			})
		}
	case CorrectionOverrideType:
		if r.CheckInID == nil {
			errs = append(errs, checkInIDRequired)
		}
		if r.RequestedType == nil {
			errs = append(errs, validator.ValidationError{
				Field:   "requested_type",
				Message: "requested_type is required",
			})
		} else if !isValidType(*r.RequestedType) {
			errs = append(errs, validator.ValidationError{
				Field:   "requested_type",
				Message: "requested_type is not a valid attendance type",
			})
		}
	case CorrectionDeleteDuplicate:
		if r.CheckInID == nil {
			errs = append(errs, checkInIDRequired)
		}
	case CorrectionAddMissing:
		if r.RequestedCheckInAt == nil {
			errs = append(errs, validator.ValidationError{
				Field:   "requested_check_in_at",
				Message: "requested_check_in_at is required",
			})
		}
		if r.RequestedCheckOutAt == nil {
			errs = append(errs, validator.ValidationError{
				Field:   "requested_check_out_at",
				Message: "requested_check_out_at is required",
			})
		} else if r.RequestedCheckInAt != nil && !r.RequestedCheckOutAt.After(*r.RequestedCheckInAt) {
			errs = append(errs, validator.ValidationError{
				Field:   "requested_check_out_at",
				Message: "requested_check_out_at must be after requested_check_in_at",
			})
		}
		if r.RequestedType != nil && !isValidType(*r.RequestedType) {
			errs = append(errs, validator.ValidationError{
				Field:   "requested_type",
				Message: "requested_type is not a valid attendance type",
			})
		}
	}

	if r.Priority == "" {
		r.Priority = PriorityNormal
	} else if !validator.IsInSlice(string(r.Priority), []string{"low", "normal", "high"}) {
		errs = append(errs, validator.ValidationError{
			Field:   "priority",
			Message: "priority must be one of: low, normal, high",
		})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

var checkInIDRequired = validator.ValidationError{
	Field:   "check_in_id",
	Message: "check_in_id is required for this correction type",
}

type ReviewCorrectionRequest struct {
	TenantID   string `json:"tenant_id"`
	EntityType string `json:"entity_type"`
	EntityID   string `json:"entity_id"`
	Year       int    `json:"year"`
	Month      int    `json:"month"`

	CorrectionID string  `json:"correction_id"`
	Approve      bool    `json:"approve"`
	Notes        *string `json:"notes,omitempty"`
}

func (r *ReviewCorrectionRequest) Validate() error {
	var errs validator.ValidationErrors

	if validator.IsEmpty(r.TenantID) {
		errs = append(errs, validator.ValidationError{
			Field:   "tenant_id",
			Message: "tenant_id is required",
		})
	}
	if validator.IsEmpty(r.EntityType) {
		errs = append(errs, validator.ValidationError{
			Field:   "entity_type",
			Message: "entity_type is required",
		})
	}
	if validator.IsEmpty(r.EntityID) {
		errs = append(errs, validator.ValidationError{
			Field:   "entity_id",
			Message: "entity_id is required",
		})
	}
	if !validator.IsValidYear(r.Year) || !validator.IsValidMonth(r.Month) {
		errs = append(errs, validator.ValidationError{
			Field:   "period",
			Message: "year and month must identify a valid period",
		})
	}
	if validator.IsEmpty(r.CorrectionID) {
		errs = append(errs, validator.ValidationError{
			Field:   "correction_id",
			Message: "correction_id is required",
		})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

type ApplyCorrectionRequest struct {
	TenantID   string `json:"tenant_id"`
	EntityType string `json:"entity_type"`
	EntityID   string `json:"entity_id"`
	Year       int    `json:"year"`
	Month      int    `json:"month"`

	CorrectionID string `json:"correction_id"`
}

func (r *ApplyCorrectionRequest) Validate() error {
	review := ReviewCorrectionRequest{
		TenantID:     r.TenantID,
		EntityType:   r.EntityType,
		EntityID:     r.EntityID,
		Year:         r.Year,
		Month:        r.Month,
		CorrectionID: r.CorrectionID,
	}
	return review.Validate()
}

func isValidMethod(m Method) bool {
	for _, v := range AllMethods() {
		if m == v {
			return true
		}
	}
	return false
}

func isValidCorrectionType(t CorrectionType) bool {
	for _, v := range AllCorrectionTypes() {
		if t == v {
			return true
		}
	}
	return false
}

func isValidType(t Type) bool {
	switch t {
	case TypeFullDay, TypeHalfDayMorning, TypeHalfDayAfternoon,
		TypeOvertime, TypePaidLeave, TypeUnpaidLeave:
		return true
	}
	return false
}
