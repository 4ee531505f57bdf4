package attendance

import (
	"math"
	"time"

	"github.com/presencehq/presence-backend-go/internal/domain/attendance"
	"github.com/presencehq/presence-backend-go/internal/domain/entity"
)

const daysPerMonth = 30.44

// CalculateStreak reduces entries to unique calendar days and derives the
// current and longest consecutive-day streaks. A streak survives a single
// missed day: the current streak is counted from today or yesterday, and is
// zero when the most recent visit is two or more days old. The longest streak
// is the maximum historical run and is always >= the current streak.
func CalculateStreak(entries []attendance.CheckInEntry, now time.Time) (current, longest int) {
	days := attendance.UniqueDays(entries)
	if len(days) == 0 {
		return 0, 0
	}

	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	run := 1
	longest = 1
	for i := 1; i < len(days); i++ {
		if days[i-1].Sub(days[i]) == 24*time.Hour {
			run++
		} else {
			run = 1
		}
		if run > longest {
			longest = run
		}
	}

	// Days are sorted most recent first.
	if gap := int(today.Sub(days[0]).Hours() / 24); gap <= 1 {
		current = 1
		for i := 1; i < len(days); i++ {
			if days[i-1].Sub(days[i]) != 24*time.Hour {
				break
			}
			current++
		}
	}

	if current > longest {
		longest = current
	}
	return current, longest
}

// CalculateEngagementLevel derives the engagement tier. Time-based tiers take
// precedence over frequency tiers: a long absence marks the entity at-risk or
// dormant no matter how busy the month was. No last visit at all is dormant.
func CalculateEngagementLevel(thisMonthVisits int, lastVisitAt *time.Time, now time.Time) entity.EngagementLevel {
	if lastVisitAt == nil {
		return entity.EngagementDormant
	}

	switch days := int(now.Sub(*lastVisitAt).Hours() / 24); {
	case days >= 30:
		return entity.EngagementDormant
	case days >= 14:
		return entity.EngagementAtRisk
	}

	switch {
	case thisMonthVisits >= 12:
		return entity.EngagementHighlyActive
	case thisMonthVisits >= 8:
		return entity.EngagementActive
	case thisMonthVisits >= 4:
		return entity.EngagementRegular
	case thisMonthVisits >= 1:
		return entity.EngagementOccasional
	default:
		return entity.EngagementInactive
	}
}

// CalculateLoyaltyScore is a weighted 0-100 sum: visits (cap 40), current
// streak (cap 30), monthly average (cap 20) and tenure (cap 10).
func CalculateLoyaltyScore(totalVisits, currentStreak int, monthlyAverage, monthsSinceFirstVisit float64) int {
	score := math.Min(40, float64(totalVisits)/200*40) +
		math.Min(30, float64(currentStreak)/90*30) +
		math.Min(20, monthlyAverage/15*20) +
		math.Min(10, monthsSinceFirstVisit/24*10)

	rounded := int(math.Round(score))
	if rounded > 100 {
		rounded = 100
	}
	return rounded
}

// Recalculate derives the cached stats snapshot after a new visit has been
// folded into the current period record. The engagement level is computed
// from the refreshed lastVisitedAt, never from a stale value, so it can not
// lag the visit by one step. The previous month's record widens the streak
// window across the month boundary; nil means no prior history.
func Recalculate(prev entity.Stats, current attendance.Record, lastMonth *attendance.Record, now time.Time) entity.Stats {
	stats := prev
	stats.TotalVisits = prev.TotalVisits + 1
	if stats.FirstVisitAt == nil {
		first := now
		stats.FirstVisitAt = &first
	}
	last := now
	stats.LastVisitAt = &last
	stats.DaysSinceLastVisit = 0

	stats.ThisMonthVisits = current.Counters.MonthlyTotal
	stats.LastMonthVisits = 0

	entries := current.CheckIns
	if lastMonth != nil {
		stats.LastMonthVisits = lastMonth.Counters.MonthlyTotal
		entries = make([]attendance.CheckInEntry, 0, len(current.CheckIns)+len(lastMonth.CheckIns))
		entries = append(entries, current.CheckIns...)
		entries = append(entries, lastMonth.CheckIns...)
	}

	currentStreak, longestStreak := CalculateStreak(entries, now)
	stats.CurrentStreak = currentStreak
	if longestStreak > prev.LongestStreak {
		stats.LongestStreak = longestStreak
	}

	months := now.Sub(*stats.FirstVisitAt).Hours() / 24 / daysPerMonth
	if months < 1 {
		months = 1
	}
	stats.MonthlyAverage = float64(stats.TotalVisits) / months

	if favorite := current.Counters.FavoriteTimeSlot(); favorite != "" {
		stats.FavoriteTimeSlot = string(favorite)
	}

	stats.EngagementLevel = CalculateEngagementLevel(stats.ThisMonthVisits, stats.LastVisitAt, now)
	stats.LoyaltyScore = CalculateLoyaltyScore(stats.TotalVisits, stats.CurrentStreak, stats.MonthlyAverage, months)
	stats.UpdatedAt = now
	return stats
}
