package attendance

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/presencehq/presence-backend-go/internal/domain/attendance"
	"github.com/presencehq/presence-backend-go/internal/domain/entity"
)

func entryOn(day time.Time) attendance.CheckInEntry {
	return attendance.CheckInEntry{
		ID:        "e-" + day.Format("2006-01-02"),
		CheckInAt: day,
		Status:    attendance.EntryValid,
		TimeSlot:  attendance.SlotFor(day),
	}
}

func TestCalculateStreak_ConsecutiveDays(t *testing.T) {
	t.Parallel()
	now := time.Date(2026, time.March, 10, 15, 0, 0, 0, time.UTC)

	var entries []attendance.CheckInEntry
	for i := 0; i < 5; i++ {
		entries = append(entries, entryOn(now.AddDate(0, 0, -i)))
	}

	current, longest := CalculateStreak(entries, now)
	assert.Equal(t, 5, current)
	assert.Equal(t, 5, longest)
}

func TestCalculateStreak_SurvivesVisitYesterday(t *testing.T) {
	t.Parallel()
	now := time.Date(2026, time.March, 10, 9, 0, 0, 0, time.UTC)

	entries := []attendance.CheckInEntry{
		entryOn(now.AddDate(0, 0, -1)),
		entryOn(now.AddDate(0, 0, -2)),
		entryOn(now.AddDate(0, 0, -3)),
	}

	current, longest := CalculateStreak(entries, now)
	assert.Equal(t, 3, current)
	assert.Equal(t, 3, longest)
}

func TestCalculateStreak_BrokenByGap(t *testing.T) {
	t.Parallel()
	now := time.Date(2026, time.March, 10, 9, 0, 0, 0, time.UTC)

	// Last visit three days ago: current streak is gone, history remains.
	entries := []attendance.CheckInEntry{
		entryOn(now.AddDate(0, 0, -3)),
		entryOn(now.AddDate(0, 0, -4)),
		entryOn(now.AddDate(0, 0, -5)),
		entryOn(now.AddDate(0, 0, -6)),
	}

	current, longest := CalculateStreak(entries, now)
	assert.Equal(t, 0, current)
	assert.Equal(t, 4, longest)
}

func TestCalculateStreak_MultipleVisitsSameDay(t *testing.T) {
	t.Parallel()
	now := time.Date(2026, time.March, 10, 18, 0, 0, 0, time.UTC)

	entries := []attendance.CheckInEntry{
		entryOn(now),
		entryOn(now.Add(-4 * time.Hour)),
		entryOn(now.AddDate(0, 0, -1)),
	}

	current, longest := CalculateStreak(entries, now)
	assert.Equal(t, 2, current)
	assert.Equal(t, 2, longest)
}

func TestCalculateStreak_IgnoresInvalidEntries(t *testing.T) {
	t.Parallel()
	now := time.Date(2026, time.March, 10, 18, 0, 0, 0, time.UTC)

	invalid := entryOn(now)
	invalid.Status = attendance.EntryInvalid

	current, longest := CalculateStreak([]attendance.CheckInEntry{invalid}, now)
	assert.Equal(t, 0, current)
	assert.Equal(t, 0, longest)
}

func TestCalculateStreak_Empty(t *testing.T) {
	t.Parallel()
	current, longest := CalculateStreak(nil, time.Now())
	assert.Equal(t, 0, current)
	assert.Equal(t, 0, longest)
}

func TestCalculateEngagementLevel(t *testing.T) {
	t.Parallel()
	now := time.Date(2026, time.March, 10, 12, 0, 0, 0, time.UTC)
	daysAgo := func(d int) *time.Time {
		at := now.AddDate(0, 0, -d)
		return &at
	}

	tests := []struct {
		name        string
		visits      int
		lastVisitAt *time.Time
		expected    entity.EngagementLevel
	}{
		{"no visits ever is dormant", 0, nil, entity.EngagementDormant},
		{"30 days absent is dormant regardless of visits", 20, daysAgo(30), entity.EngagementDormant},
		{"14 days absent is at risk regardless of visits", 20, daysAgo(14), entity.EngagementAtRisk},
		{"12 visits this month is highly active", 12, daysAgo(1), entity.EngagementHighlyActive},
		{"8 visits this month is active", 8, daysAgo(1), entity.EngagementActive},
		{"4 visits this month is regular", 4, daysAgo(1), entity.EngagementRegular},
		{"1 visit this month is occasional", 1, daysAgo(1), entity.EngagementOccasional},
		{"recent visit but empty month is inactive", 0, daysAgo(2), entity.EngagementInactive},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := CalculateEngagementLevel(tt.visits, tt.lastVisitAt, now)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestCalculateLoyaltyScore(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 0, CalculateLoyaltyScore(0, 0, 0, 0))

	// All components at or beyond their caps.
	assert.Equal(t, 100, CalculateLoyaltyScore(200, 90, 15, 24))
	assert.Equal(t, 100, CalculateLoyaltyScore(1000, 400, 60, 120))

	// Half of each component.
	assert.Equal(t, 50, CalculateLoyaltyScore(100, 45, 7.5, 12))
}

func TestRecalculate_FirstVisit(t *testing.T) {
	t.Parallel()
	now := time.Date(2026, time.March, 10, 9, 30, 0, 0, time.UTC)

	rec := attendance.NewRecord(attendance.RecordKey{
		TenantID: "t1", EntityType: "member", EntityID: "m1",
		Year: 2026, Month: time.March,
	})
	rec.CheckIns = append(rec.CheckIns, entryOn(now))
	rec.Recount()

	stats := Recalculate(entity.Stats{}, rec, nil, now)

	assert.Equal(t, 1, stats.TotalVisits)
	assert.Equal(t, 1, stats.ThisMonthVisits)
	assert.Equal(t, 1, stats.CurrentStreak)
	assert.Equal(t, 1, stats.LongestStreak)
	assert.Equal(t, now, *stats.FirstVisitAt)
	assert.Equal(t, now, *stats.LastVisitAt)
	assert.Equal(t, 0, stats.DaysSinceLastVisit)
	assert.Equal(t, entity.EngagementOccasional, stats.EngagementLevel)
	assert.Equal(t, "morning", stats.FavoriteTimeSlot)
	assert.InDelta(t, 1.0, stats.MonthlyAverage, 0.001)
}

func TestRecalculate_StreakAcrossMonthBoundary(t *testing.T) {
	t.Parallel()
	now := time.Date(2026, time.March, 2, 9, 0, 0, 0, time.UTC)
	key := attendance.RecordKey{
		TenantID: "t1", EntityType: "member", EntityID: "m1",
		Year: 2026, Month: time.March,
	}

	current := attendance.NewRecord(key)
	current.CheckIns = []attendance.CheckInEntry{
		entryOn(now),
		entryOn(now.AddDate(0, 0, -1)),
	}
	current.Recount()

	lastMonth := attendance.NewRecord(key.Previous())
	lastMonth.CheckIns = []attendance.CheckInEntry{
		entryOn(now.AddDate(0, 0, -2)),
		entryOn(now.AddDate(0, 0, -3)),
	}
	lastMonth.Recount()

	first := now.AddDate(0, 0, -3)
	prev := entity.Stats{
		TotalVisits:   3,
		FirstVisitAt:  &first,
		CurrentStreak: 3,
		LongestStreak: 3,
	}

	stats := Recalculate(prev, current, &lastMonth, now)

	assert.Equal(t, 4, stats.TotalVisits)
	assert.Equal(t, 4, stats.CurrentStreak)
	assert.Equal(t, 4, stats.LongestStreak)
	assert.Equal(t, 2, stats.ThisMonthVisits)
	assert.Equal(t, 2, stats.LastMonthVisits)
}

func TestRecalculate_LongestStreakIsMonotonic(t *testing.T) {
	t.Parallel()
	now := time.Date(2026, time.June, 15, 9, 0, 0, 0, time.UTC)
	key := attendance.RecordKey{
		TenantID: "t1", EntityType: "member", EntityID: "m1",
		Year: 2026, Month: time.June,
	}

	current := attendance.NewRecord(key)
	current.CheckIns = []attendance.CheckInEntry{entryOn(now)}
	current.Recount()

	first := now.AddDate(0, -6, 0)
	prev := entity.Stats{
		TotalVisits:   80,
		FirstVisitAt:  &first,
		CurrentStreak: 0,
		LongestStreak: 21,
	}

	stats := Recalculate(prev, current, nil, now)

	assert.Equal(t, 1, stats.CurrentStreak)
	assert.Equal(t, 21, stats.LongestStreak)
}
