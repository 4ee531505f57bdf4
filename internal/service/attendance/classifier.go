package attendance

import (
	"time"

	"github.com/presencehq/presence-backend-go/internal/domain/attendance"
	"github.com/presencehq/presence-backend-go/internal/domain/entity"
)

// Classify assigns the attendance type for a closed check-in. It is a pure
// function of its inputs: identical duration, check-in time, schedule and
// settings always yield the identical type, so re-classifying historical
// entries during corrections reproduces exactly.
func Classify(durationMinutes int, checkInAt time.Time, schedule *entity.Schedule, cfg attendance.Settings) attendance.Type {
	durationHours := float64(durationMinutes) / 60.0

	if cfg.Mode == attendance.ModeTimeBased {
		if durationMinutes >= cfg.MinVisitMinutes {
			return attendance.TypeFullDay
		}
		return attendance.TypeUnpaidLeave
	}

	if schedule == nil {
		return classifyFixed(durationHours, checkInAt, cfg)
	}

	standard := schedule.StandardDailyHours(cfg.DefaultDailyHours)
	percent := durationHours / standard * 100

	switch {
	case percent >= cfg.OvertimePercent:
		return attendance.TypeOvertime
	case percent >= cfg.FullDayPercent:
		return attendance.TypeFullDay
	case percent >= cfg.HalfDayPercent:
		return halfDayFor(checkInAt, cfg)
	default:
		return attendance.TypeUnpaidLeave
	}
}

// classifyFixed applies the fixed hour thresholds used when the entity has no
// schedule to derive standard hours from.
func classifyFixed(durationHours float64, checkInAt time.Time, cfg attendance.Settings) attendance.Type {
	switch {
	case durationHours >= cfg.FixedOvertimeHours:
		return attendance.TypeOvertime
	case durationHours >= cfg.FixedFullDayHours:
		return attendance.TypeFullDay
	case durationHours >= cfg.FixedHalfDayHours:
		return halfDayFor(checkInAt, cfg)
	default:
		return attendance.TypeUnpaidLeave
	}
}

// halfDayFor splits a half day into morning/afternoon on the configured
// hour-of-day cutoff applied to the check-in time.
func halfDayFor(checkInAt time.Time, cfg attendance.Settings) attendance.Type {
	if checkInAt.Hour() < cfg.HalfDayCutoffHour {
		return attendance.TypeHalfDayMorning
	}
	return attendance.TypeHalfDayAfternoon
}
