package gamification

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// day builds a CalendarDate offset n days from a fixed anchor.
func day(n int) CalendarDate {
	return DateOf(time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)).AddDays(n)
}

func TestCalculateStreaksEmpty(t *testing.T) {
	result := CalculateStreaks(nil, day(10))
	assert.Equal(t, 0, result.Current)
	assert.Equal(t, 0, result.Longest)
}

func TestCalculateStreaksSingleCompletion(t *testing.T) {
	// Completed today: both values 1.
	result := CalculateStreaks([]CalendarDate{day(5)}, day(5))
	assert.Equal(t, StreakResult{Current: 1, Longest: 1}, result)

	// Completed yesterday: still live.
	result = CalculateStreaks([]CalendarDate{day(5)}, day(6))
	assert.Equal(t, StreakResult{Current: 1, Longest: 1}, result)

	// Completed two days ago: broken, longest retained.
	result = CalculateStreaks([]CalendarDate{day(5)}, day(7))
	assert.Equal(t, StreakResult{Current: 0, Longest: 1}, result)
}

func TestCalculateStreaksConsecutiveRun(t *testing.T) {
	dates := []CalendarDate{day(1), day(2), day(3)}
	result := CalculateStreaks(dates, day(3))
	assert.Equal(t, StreakResult{Current: 3, Longest: 3}, result)
}

func TestCalculateStreaksGapBreaksCurrent(t *testing.T) {
	// Days 1,2,5: longest is the 1-2 run, current run is just day 5.
	dates := []CalendarDate{day(1), day(2), day(5)}

	result := CalculateStreaks(dates, day(5))
	assert.Equal(t, StreakResult{Current: 1, Longest: 2}, result)

	// Once today moves past day 6 the final run is dead too.
	result = CalculateStreaks(dates, day(7))
	assert.Equal(t, StreakResult{Current: 0, Longest: 2}, result)
}

func TestCalculateStreaksFinalRunIsLongest(t *testing.T) {
	dates := []CalendarDate{day(1), day(2), day(4), day(5), day(6), day(7)}
	result := CalculateStreaks(dates, day(7))
	assert.Equal(t, StreakResult{Current: 4, Longest: 4}, result)
}

func TestCalculateStreaksLongestNeverDecreasesOnAdd(t *testing.T) {
	// Property from the ledger's point of view: inserting completions can only
	// grow or keep the longest streak.
	dates := []CalendarDate{day(1), day(3), day(5), day(7)}
	today := day(7)

	prev := CalculateStreaks(dates[:1], today).Longest
	for i := 2; i <= len(dates); i++ {
		longest := CalculateStreaks(dates[:i], today).Longest
		assert.GreaterOrEqual(t, longest, prev)
		prev = longest
	}

	// Filling the gap at day 2 joins runs and grows longest.
	joined := []CalendarDate{day(1), day(2), day(3), day(5), day(7)}
	assert.Equal(t, 3, CalculateStreaks(joined, today).Longest)
}

func TestCheckIn(t *testing.T) {
	var s StreakResult

	// First ever check-in starts at 1.
	s = CheckIn(s, CalendarDate{}, day(1))
	assert.Equal(t, StreakResult{Current: 1, Longest: 1}, s)

	// Next day extends.
	s = CheckIn(s, day(1), day(2))
	assert.Equal(t, StreakResult{Current: 2, Longest: 2}, s)

	// Same day is a no-op.
	s = CheckIn(s, day(2), day(2))
	assert.Equal(t, StreakResult{Current: 2, Longest: 2}, s)

	// A missed day restarts current but keeps longest.
	s = CheckIn(s, day(2), day(5))
	assert.Equal(t, StreakResult{Current: 1, Longest: 2}, s)
}
