package gamification

// StreakResult holds the derived streak values for one sorted run of completion days.
type StreakResult struct {
	Current int
	Longest int
}

// CalculateStreaks derives current and longest consecutive-day streaks by replaying
// the full completion history. dates must be sorted ascending and free of duplicates,
// which the completion ledger guarantees.
//
// The longest streak is a historical high-water mark: a pair of days extends the
// running streak when they are exactly one day apart, any larger gap closes it and
// starts a new run of length 1. The current streak is the run ending at the most
// recent completion, and it is live only while that completion is today or
// yesterday; once a full day is missed it drops to 0 while longest is retained.
//
// Replaying from scratch keeps this correct after inserts or deletes at arbitrary
// dates, not just appends of today. The cheap append-only path (user check-in
// streaks) lives in CheckIn instead.
func CalculateStreaks(dates []CalendarDate, today CalendarDate) StreakResult {
	if len(dates) == 0 {
		return StreakResult{}
	}

	longest := 1
	run := 1
	for i := 1; i < len(dates); i++ {
		if DaysBetween(dates[i-1], dates[i]) == 1 {
			run++
		} else {
			run = 1
		}
		if run > longest {
			longest = run
		}
	}

	// The final run is current only if it reaches today or yesterday.
	current := 0
	last := dates[len(dates)-1]
	if gap := DaysBetween(last, today); gap == 0 || gap == 1 {
		current = run
	}

	return StreakResult{Current: current, Longest: longest}
}

// CheckIn advances a user-level check-in streak for activity on day. It is the
// incremental counterpart of CalculateStreaks for the append-today path: a check-in
// the day after the last one extends the streak, a same-day check-in is a no-op,
// and anything later restarts at 1.
func CheckIn(s StreakResult, lastCheckIn CalendarDate, day CalendarDate) StreakResult {
	if !lastCheckIn.IsZero() && day.Equal(lastCheckIn) {
		return s
	}
	if !lastCheckIn.IsZero() && DaysBetween(lastCheckIn, day) == 1 {
		s.Current++
	} else {
		s.Current = 1
	}
	if s.Current > s.Longest {
		s.Longest = s.Current
	}
	return s
}
