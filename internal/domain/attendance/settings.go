package attendance

import "time"

// ClassifierMode selects how closed check-ins are classified.
type ClassifierMode string

const (
	// ModeScheduleAware classifies by percentage of the entity's standard
	// daily hours. Used for payroll-relevant entity types.
	ModeScheduleAware ClassifierMode = "schedule_aware"
	// ModeTimeBased counts any visit over a minimal duration as a full day.
	// Used for simple visit tracking (gyms, libraries).
	ModeTimeBased ClassifierMode = "time_based"
)

// Settings are the per-entity-type configuration for session handling and
// classification. A Settings value is immutable once built and is threaded
// through constructors; the core keeps no ambient global configuration.
type Settings struct {
	Mode ClassifierMode

	// Schedule-aware thresholds, as percentages of standard daily hours.
	OvertimePercent float64
	FullDayPercent  float64
	HalfDayPercent  float64
	// Hour-of-day cutoff splitting half days into morning/afternoon. A
	// single global cutoff on purpose, not the entity's shift midpoint.
	HalfDayCutoffHour int
	// Standard hours fallback when a schedule exists but resolves nothing.
	DefaultDailyHours float64

	// Fixed thresholds (hours) used when the entity has no schedule at all.
	FixedOvertimeHours float64
	FixedFullDayHours  float64
	FixedHalfDayHours  float64

	// Time-based mode: minimum visit length that counts as a full day.
	MinVisitMinutes int

	// Session rules.
	DuplicateWindow    time.Duration
	MaxSessionDuration time.Duration
	AutoCheckout       bool
	AutoCheckoutAfter  time.Duration

	// Entity statuses allowed to check in.
	AllowedStatuses []string

	// Milestone thresholds that trigger a milestone notification when
	// total visits or current streak reaches them.
	VisitMilestones  []int
	StreakMilestones []int
}

// DefaultSettings returns the baseline configuration for an entity type.
func DefaultSettings() Settings {
	return Settings{
		Mode:               ModeScheduleAware,
		OvertimePercent:    110,
		FullDayPercent:     75,
		HalfDayPercent:     40,
		HalfDayCutoffHour:  12,
		DefaultDailyHours:  8,
		FixedOvertimeHours: 9,
		FixedFullDayHours:  6,
		FixedHalfDayHours:  3,
		MinVisitMinutes:    20,
		DuplicateWindow:    5 * time.Minute,
		MaxSessionDuration: 12 * time.Hour,
		AutoCheckout:       true,
		AutoCheckoutAfter:  2 * time.Hour,
		AllowedStatuses:    []string{"active", "pending"},
		VisitMilestones:    []int{1, 10, 25, 50, 100, 250, 500, 1000},
		StreakMilestones:   []int{7, 30, 90, 180, 365},
	}
}

// SettingsProvider resolves the immutable settings for an entity type.
type SettingsProvider func(entityType string) Settings

// StaticSettings builds a provider from per-type overrides with a shared
// fallback.
func StaticSettings(fallback Settings, perType map[string]Settings) SettingsProvider {
	return func(entityType string) Settings {
		if s, ok := perType[entityType]; ok {
			return s
		}
		return fallback
	}
}
