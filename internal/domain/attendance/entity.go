package attendance

import (
	"fmt"
	"time"
)

// Method is how a check-in was recorded.
type Method string

const (
	MethodManual    Method = "manual"
	MethodQR        Method = "qr"
	MethodRFID      Method = "rfid"
	MethodBiometric Method = "biometric"
	MethodAPI       Method = "api"
)

// AllMethods returns every supported check-in method.
func AllMethods() []Method {
	return []Method{MethodManual, MethodQR, MethodRFID, MethodBiometric, MethodAPI}
}

// Type is the classification assigned to a closed check-in entry.
type Type string

const (
	TypeFullDay          Type = "full_day"
	TypeHalfDayMorning   Type = "half_day_morning"
	TypeHalfDayAfternoon Type = "half_day_afternoon"
	TypeOvertime         Type = "overtime"
	TypePaidLeave        Type = "paid_leave"
	TypeUnpaidLeave      Type = "unpaid_leave"
)

// EntryStatus is the lifecycle status of a check-in entry.
type EntryStatus string

const (
	EntryValid     EntryStatus = "valid"
	EntryInvalid   EntryStatus = "invalid"
	EntryCorrected EntryStatus = "corrected"
	EntryDisputed  EntryStatus = "disputed"
)

// TimeSlot buckets a check-in by time of day.
type TimeSlot string

const (
	SlotEarlyMorning TimeSlot = "early_morning"
	SlotMorning      TimeSlot = "morning"
	SlotAfternoon    TimeSlot = "afternoon"
	SlotEvening      TimeSlot = "evening"
	SlotNight        TimeSlot = "night"
)

// SlotFor buckets a timestamp into a time slot by local hour.
func SlotFor(t time.Time) TimeSlot {
	switch h := t.Hour(); {
	case h >= 5 && h < 9:
		return SlotEarlyMorning
	case h >= 9 && h < 12:
		return SlotMorning
	case h >= 12 && h < 17:
		return SlotAfternoon
	case h >= 17 && h < 21:
		return SlotEvening
	default:
		return SlotNight
	}
}

// Actor identifies who performed a mutating operation. The core performs no
// authorization itself; the actor is recorded purely for audit attribution.
type Actor struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Role string `json:"role"`
}

// AuditEntry records a single field mutation applied to a check-in entry.
// Mutations append audit entries, they never overwrite silently.
type AuditEntry struct {
	Field  string    `json:"field"`
	Before string    `json:"before"`
	After  string    `json:"after"`
	Reason string    `json:"reason"`
	Actor  Actor     `json:"actor"`
	At     time.Time `json:"at"`
}

// CheckInEntry is one presence event within a period record. It is created at
// check-in with a pre-generated id (so retries are idempotent), mutated once
// at check-out, and optionally mutated again by an applied correction.
type CheckInEntry struct {
	ID                 string       `json:"id"`
	CheckInAt          time.Time    `json:"check_in_at"`
	CheckOutAt         *time.Time   `json:"check_out_at,omitempty"`
	ExpectedCheckOutAt *time.Time   `json:"expected_check_out_at,omitempty"`
	DurationMinutes    *int         `json:"duration_minutes,omitempty"`
	Type               Type         `json:"attendance_type,omitempty"`
	Method             Method       `json:"method"`
	Status             EntryStatus  `json:"status"`
	TimeSlot           TimeSlot     `json:"time_slot"`
	RecordedBy         Actor        `json:"recorded_by"`
	CheckedOutBy       *Actor       `json:"checked_out_by,omitempty"`
	AutoCheckedOut     bool         `json:"auto_checked_out,omitempty"`
	Notes              string       `json:"notes,omitempty"`
	Corrections        []AuditEntry `json:"corrections,omitempty"`
}

// Open reports whether the entry has not been checked out yet.
func (e *CheckInEntry) Open() bool {
	return e.CheckOutAt == nil
}

// RecordKey is the composite identity of a period record: one record per
// tenant, entity type, entity and calendar month.
type RecordKey struct {
	TenantID   string
	EntityType string
	EntityID   string
	Year       int
	Month      time.Month
}

// PeriodKeyFor returns the record key for the period containing t.
func PeriodKeyFor(tenantID, entityType, entityID string, t time.Time) RecordKey {
	return RecordKey{
		TenantID:   tenantID,
		EntityType: entityType,
		EntityID:   entityID,
		Year:       t.Year(),
		Month:      t.Month(),
	}
}

// Period returns the key's period formatted as "YYYY-MM".
func (k RecordKey) Period() string {
	return fmt.Sprintf("%04d-%02d", k.Year, int(k.Month))
}

// Previous returns the key of the preceding calendar month.
func (k RecordKey) Previous() RecordKey {
	t := time.Date(k.Year, k.Month, 1, 0, 0, 0, 0, time.UTC).AddDate(0, -1, 0)
	k.Year = t.Year()
	k.Month = t.Month()
	return k
}

// Record is the period record: the sole source of truth for presence history
// of one entity in one calendar month. All mutations to a record happen inside
// a single transaction so counters and the entry list are never observed in a
// partially updated state.
type Record struct {
	ID                 string
	TenantID           string
	EntityType         string
	EntityID           string
	Year               int
	Month              time.Month
	CheckIns           []CheckInEntry
	Counters           Counters
	CorrectionRequests []CorrectionRequest
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// Key returns the record's composite key.
func (r *Record) Key() RecordKey {
	return RecordKey{
		TenantID:   r.TenantID,
		EntityType: r.EntityType,
		EntityID:   r.EntityID,
		Year:       r.Year,
		Month:      r.Month,
	}
}

// NewRecord returns an empty period record for the given key.
func NewRecord(key RecordKey) Record {
	return Record{
		TenantID:   key.TenantID,
		EntityType: key.EntityType,
		EntityID:   key.EntityID,
		Year:       key.Year,
		Month:      key.Month,
		Counters:   emptyCounters(),
	}
}

// FindCheckIn returns a pointer to the entry with the given id, or nil.
func (r *Record) FindCheckIn(id string) *CheckInEntry {
	for i := range r.CheckIns {
		if r.CheckIns[i].ID == id {
			return &r.CheckIns[i]
		}
	}
	return nil
}

// FindCorrection returns a pointer to the correction request with the given
// id, or nil.
func (r *Record) FindCorrection(id string) *CorrectionRequest {
	for i := range r.CorrectionRequests {
		if r.CorrectionRequests[i].ID == id {
			return &r.CorrectionRequests[i]
		}
	}
	return nil
}

// DayKey formats a timestamp as the day-string used in the visited-days set.
func DayKey(t time.Time) string {
	return t.Format("2006-01-02")
}
