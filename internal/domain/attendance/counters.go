package attendance

import "time"

// Counters are the derived aggregates cached on a period record. They are
// always recomputed as a pure fold over the entry list, never patched
// incrementally, so corrections can never leave them stale.
type Counters struct {
	MonthlyTotal      int              `json:"monthly_total"`
	UniqueDaysVisited int              `json:"unique_days_visited"`
	VisitedDays       map[string]bool  `json:"visited_days"`
	FullDays          int              `json:"full_days"`
	HalfDays          int              `json:"half_days"`
	PaidLeaveDays     int              `json:"paid_leave_days"`
	OvertimeDays      int              `json:"overtime_days"`
	TotalWorkDays     float64          `json:"total_work_days"`
	TimeSlots         map[TimeSlot]int `json:"time_slots"`
	Weekdays          map[string]int   `json:"weekdays"`
}

func emptyCounters() Counters {
	return Counters{
		VisitedDays: map[string]bool{},
		TimeSlots:   map[TimeSlot]int{},
		Weekdays:    map[string]int{},
	}
}

// Recompute folds the full entry list into a fresh set of counters.
//
// MonthlyTotal counts every entry so that it always equals len(checkIns).
// Entries invalidated by a delete-duplicate correction are excluded from the
// visited-day set, the histograms and the work-day counters: they remain in
// the list only as audit trail.
func Recompute(entries []CheckInEntry) Counters {
	c := emptyCounters()
	c.MonthlyTotal = len(entries)

	for i := range entries {
		e := &entries[i]
		if e.Status == EntryInvalid {
			continue
		}

		c.VisitedDays[DayKey(e.CheckInAt)] = true
		c.TimeSlots[e.TimeSlot]++
		c.Weekdays[e.CheckInAt.Weekday().String()]++

		switch e.Type {
		case TypeFullDay:
			c.FullDays++
		case TypeHalfDayMorning, TypeHalfDayAfternoon:
			c.HalfDays++
		case TypePaidLeave:
			c.PaidLeaveDays++
		case TypeOvertime:
			c.OvertimeDays++
		}
	}

	c.UniqueDaysVisited = len(c.VisitedDays)
	c.TotalWorkDays = float64(c.FullDays) + float64(c.HalfDays)*0.5 +
		float64(c.PaidLeaveDays) + float64(c.OvertimeDays)
	return c
}

// Recount replaces the record's counters with a fresh fold over its entries.
func (r *Record) Recount() {
	r.Counters = Recompute(r.CheckIns)
}

// FavoriteTimeSlot returns the most frequented slot in the histogram, or ""
// when the record has no countable entries. Ties break on a fixed slot order
// so the result is deterministic.
func (c Counters) FavoriteTimeSlot() TimeSlot {
	order := []TimeSlot{SlotEarlyMorning, SlotMorning, SlotAfternoon, SlotEvening, SlotNight}
	var best TimeSlot
	max := 0
	for _, slot := range order {
		if n := c.TimeSlots[slot]; n > max {
			best = slot
			max = n
		}
	}
	return best
}

// UniqueDays reduces entries to their distinct calendar days, most recent
// first. Invalid entries are skipped.
func UniqueDays(entries []CheckInEntry) []time.Time {
	seen := map[string]bool{}
	var days []time.Time
	for i := range entries {
		e := &entries[i]
		if e.Status == EntryInvalid {
			continue
		}
		day := DayKey(e.CheckInAt)
		if seen[day] {
			continue
		}
		seen[day] = true
		days = append(days, time.Date(
			e.CheckInAt.Year(), e.CheckInAt.Month(), e.CheckInAt.Day(),
			0, 0, 0, 0, time.UTC,
		))
	}
	for i := 1; i < len(days); i++ {
		for j := i; j > 0 && days[j].After(days[j-1]); j-- {
			days[j], days[j-1] = days[j-1], days[j]
		}
	}
	return days
}
