package attendance

import "time"

// CorrectionType selects which retroactive edit a correction request applies.
type CorrectionType string

const (
	CorrectionUpdateCheckInTime  CorrectionType = "update_check_in_time"
	CorrectionUpdateCheckOutTime CorrectionType = "update_check_out_time"
	CorrectionOverrideType       CorrectionType = "override_attendance_type"
	CorrectionDeleteDuplicate    CorrectionType = "delete_duplicate"
	CorrectionAddMissing         CorrectionType = "add_missing_attendance"
)

// AllCorrectionTypes returns every supported correction type.
func AllCorrectionTypes() []CorrectionType {
	return []CorrectionType{
		CorrectionUpdateCheckInTime,
		CorrectionUpdateCheckOutTime,
		CorrectionOverrideType,
		CorrectionDeleteDuplicate,
		CorrectionAddMissing,
	}
}

// CorrectionStatus is the state of a correction request. Transitions are
// monotonic: pending -> approved|rejected, approved -> applied. Rejected and
// applied are terminal; re-transition attempts are errors, never ignored.
type CorrectionStatus string

const (
	CorrectionPending  CorrectionStatus = "pending"
	CorrectionApproved CorrectionStatus = "approved"
	CorrectionRejected CorrectionStatus = "rejected"
	CorrectionApplied  CorrectionStatus = "applied"
)

// CorrectionPriority signals review urgency. It carries no core semantics.
type CorrectionPriority string

const (
	PriorityLow    CorrectionPriority = "low"
	PriorityNormal CorrectionPriority = "normal"
	PriorityHigh   CorrectionPriority = "high"
)

// CorrectionRequest is a proposed retroactive edit to a committed check-in
// entry. Requests are embedded in the period record so an entry's edit
// history stays co-located with the data it edits.
type CorrectionRequest struct {
	ID                  string             `json:"id"`
	Type                CorrectionType     `json:"type"`
	Status              CorrectionStatus   `json:"status"`
	CheckInID           *string            `json:"check_in_id,omitempty"`
	RequestedCheckInAt  *time.Time         `json:"requested_check_in_at,omitempty"`
	RequestedCheckOutAt *time.Time         `json:"requested_check_out_at,omitempty"`
	RequestedType       *Type              `json:"requested_type,omitempty"`
	Reason              string             `json:"reason"`
	Priority            CorrectionPriority `json:"priority"`
	RequestedBy         Actor              `json:"requested_by"`
	RequestedAt         time.Time          `json:"requested_at"`
	ReviewedBy          *Actor             `json:"reviewed_by,omitempty"`
	ReviewerNotes       *string            `json:"reviewer_notes,omitempty"`
	ReviewedAt          *time.Time         `json:"reviewed_at,omitempty"`
	AppliedAt           *time.Time         `json:"applied_at,omitempty"`
}

// NeedsCheckInRef reports whether the correction type must reference an
// existing check-in entry. Only add-missing creates an entry from scratch.
func (t CorrectionType) NeedsCheckInRef() bool {
	return t != CorrectionAddMissing
}
