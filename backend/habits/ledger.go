package habits

import (
	"fmt"
	"sort"

	"github.com/savepoint/savepoint/backend/gamification"
	"github.com/savepoint/savepoint/backend/models"
	"github.com/savepoint/savepoint/lib/errs"
)

// The completion ledger owns every mutation of a habit's completion list and
// keeps two invariants: at most one entry per calendar day, and the list stays
// sorted ascending by date. The streak calculator depends on both.

// completedOn reports whether the habit has a completion recorded for the day.
func completedOn(habit *models.Habit, date gamification.CalendarDate) bool {
	for _, c := range habit.Completions {
		if gamification.DateOf(c.Date) == date {
			return true
		}
	}
	return false
}

// recordCompletion appends a completion for the given day, keeping the ledger
// sorted. It fails with ErrAlreadyCompleted when the day already has an entry,
// and ErrInvalidDate when the day predates the habit's creation or lies in the
// future.
func recordCompletion(habit *models.Habit, date, today gamification.CalendarDate, note string, mood models.Mood, points int) error {
	if date.After(today) {
		return fmt.Errorf("%w: %s is in the future", errs.ErrInvalidDate, date)
	}
	if date.Before(gamification.DateOf(habit.CreatedAt)) {
		return fmt.Errorf("%w: %s predates the habit", errs.ErrInvalidDate, date)
	}
	if completedOn(habit, date) {
		return errs.ErrAlreadyCompleted
	}

	habit.Completions = append(habit.Completions, models.Completion{
		Date:          date.Time(),
		Note:          note,
		Mood:          mood,
		PointsAwarded: points,
	})
	sort.Slice(habit.Completions, func(i, j int) bool {
		return habit.Completions[i].Date.Before(habit.Completions[j].Date)
	})
	return nil
}

// removeCompletion removes the completion recorded for the given day and
// returns it. Fails with ErrNotCompleted when the day has no entry.
func removeCompletion(habit *models.Habit, date gamification.CalendarDate) (models.Completion, error) {
	for i, c := range habit.Completions {
		if gamification.DateOf(c.Date) == date {
			habit.Completions = append(habit.Completions[:i], habit.Completions[i+1:]...)
			return c, nil
		}
	}
	return models.Completion{}, errs.ErrNotCompleted
}

// completionDates extracts the sorted calendar days of the ledger.
func completionDates(habit *models.Habit) []gamification.CalendarDate {
	dates := make([]gamification.CalendarDate, len(habit.Completions))
	for i, c := range habit.Completions {
		dates[i] = gamification.DateOf(c.Date)
	}
	return dates
}

// refreshStats recomputes the cached habit stats from the ledger alone. The
// streaks are replayed from scratch so the cache stays correct after inserts or
// deletes at arbitrary dates, not just appends of today.
func refreshStats(habit *models.Habit, today gamification.CalendarDate) {
	dates := completionDates(habit)
	streaks := gamification.CalculateStreaks(dates, today)

	habit.Stats.TotalCompletions = len(habit.Completions)
	habit.Stats.CurrentStreak = streaks.Current
	habit.Stats.LongestStreak = streaks.Longest
	if len(habit.Completions) == 0 {
		habit.Stats.LastCompletedDate = nil
	} else {
		last := habit.Completions[len(habit.Completions)-1].Date
		habit.Stats.LastCompletedDate = &last
	}
}

// pointsFor looks up the completion entry for a day. Used by the undo path to
// deduct exactly what that completion awarded.
func pointsFor(habit *models.Habit, date gamification.CalendarDate) (int, bool) {
	for _, c := range habit.Completions {
		if gamification.DateOf(c.Date) == date {
			return c.PointsAwarded, true
		}
	}
	return 0, false
}
