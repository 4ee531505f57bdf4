package entity

import (
	"time"
)

// Status is the lifecycle status of a tracked entity.
type Status string

const (
	StatusActive    Status = "active"
	StatusPending   Status = "pending"
	StatusSuspended Status = "suspended"
	StatusArchived  Status = "archived"
)

// EngagementLevel is the derived activity tier used for retention signaling.
type EngagementLevel string

const (
	EngagementHighlyActive EngagementLevel = "highly_active"
	EngagementActive       EngagementLevel = "active"
	EngagementRegular      EngagementLevel = "regular"
	EngagementOccasional   EngagementLevel = "occasional"
	EngagementInactive     EngagementLevel = "inactive"
	EngagementAtRisk       EngagementLevel = "at_risk"
	EngagementDormant      EngagementLevel = "dormant"
)

// Entity is the person or thing whose presence is tracked: a gym member, an
// employee, a student. It is identified by its type tag plus id within a
// tenant.
type Entity struct {
	ID                string
	TenantID          string
	Type              string
	Name              string
	Status            Status
	AttendanceEnabled bool
	Schedule          *Schedule
	Session           CurrentSession
	Stats             Stats
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// Schedule describes an entity's expected working pattern. All fields are
// optional; StandardDailyHours resolves whatever is available.
type Schedule struct {
	HoursPerDay  *float64 `json:"hours_per_day,omitempty"`
	HoursPerWeek *float64 `json:"hours_per_week,omitempty"`
	WorkingDays  []string `json:"working_days,omitempty"`
	ShiftStart   *string  `json:"shift_start,omitempty"` // "15:04"
	ShiftEnd     *string  `json:"shift_end,omitempty"`
}

// StandardDailyHours derives the standard working hours per day: explicit
// hours/day first, then hours/week divided by the working-day count, then
// shift end minus shift start, then the fallback.
func (s *Schedule) StandardDailyHours(fallback float64) float64 {
	if s == nil {
		return fallback
	}
	if s.HoursPerDay != nil && *s.HoursPerDay > 0 {
		return *s.HoursPerDay
	}
	if s.HoursPerWeek != nil && *s.HoursPerWeek > 0 && len(s.WorkingDays) > 0 {
		return *s.HoursPerWeek / float64(len(s.WorkingDays))
	}
	if s.ShiftStart != nil && s.ShiftEnd != nil {
		start, err1 := time.Parse("15:04", *s.ShiftStart)
		end, err2 := time.Parse("15:04", *s.ShiftEnd)
		if err1 == nil && err2 == nil && end.After(start) {
			return end.Sub(start).Hours()
		}
	}
	return fallback
}

// CurrentSession is the cached "am I checked in right now" projection stored
// on the entity, separate from the period record. It exists so that
// who-is-here-right-now queries avoid scanning attendance history.
//
// Invariant: IsActive implies CheckInID, CheckInAt and Method are all set;
// an inactive projection has CheckInID and CheckInAt cleared.
type CurrentSession struct {
	IsActive           bool       `json:"is_active"`
	CheckInID          *string    `json:"check_in_id,omitempty"`
	CheckInAt          *time.Time `json:"check_in_at,omitempty"`
	ExpectedCheckOutAt *time.Time `json:"expected_check_out_at,omitempty"`
	Method             *string    `json:"method,omitempty"`
}

// Stats is the cached engagement snapshot on the entity. It is entirely
// derivable from attendance history and is treated as a materialized view,
// never as a source of truth.
type Stats struct {
	TotalVisits        int             `json:"total_visits"`
	FirstVisitAt       *time.Time      `json:"first_visit_at,omitempty"`
	LastVisitAt        *time.Time      `json:"last_visit_at,omitempty"`
	CurrentStreak      int             `json:"current_streak"`
	LongestStreak      int             `json:"longest_streak"`
	MonthlyAverage     float64         `json:"monthly_average"`
	ThisMonthVisits    int             `json:"this_month_visits"`
	LastMonthVisits    int             `json:"last_month_visits"`
	EngagementLevel    EngagementLevel `json:"engagement_level"`
	DaysSinceLastVisit int             `json:"days_since_last_visit"`
	FavoriteTimeSlot   string          `json:"favorite_time_slot,omitempty"`
	LoyaltyScore       int             `json:"loyalty_score"`
	UpdatedAt          time.Time       `json:"updated_at"`
}
