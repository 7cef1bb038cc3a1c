package gamification

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDateOfTruncatesToCalendarDay(t *testing.T) {
	morning := time.Date(2024, 3, 15, 0, 0, 1, 0, time.UTC)
	night := time.Date(2024, 3, 15, 23, 59, 59, 0, time.UTC)
	assert.Equal(t, DateOf(morning), DateOf(night))

	// One second apart across midnight is two different days.
	beforeMidnight := time.Date(2024, 3, 15, 23, 59, 59, 0, time.UTC)
	afterMidnight := time.Date(2024, 3, 16, 0, 0, 0, 0, time.UTC)
	assert.NotEqual(t, DateOf(beforeMidnight), DateOf(afterMidnight))
	assert.Equal(t, 1, DaysBetween(DateOf(beforeMidnight), DateOf(afterMidnight)))
}

func TestDaysBetween(t *testing.T) {
	a := CalendarDate{Year: 2024, Month: time.January, Day: 30}
	b := CalendarDate{Year: 2024, Month: time.February, Day: 2}
	assert.Equal(t, 3, DaysBetween(a, b))
	assert.Equal(t, -3, DaysBetween(b, a))
	assert.Equal(t, 0, DaysBetween(a, a))

	// 2024 is a leap year.
	feb28 := CalendarDate{Year: 2024, Month: time.February, Day: 28}
	mar1 := CalendarDate{Year: 2024, Month: time.March, Day: 1}
	assert.Equal(t, 2, DaysBetween(feb28, mar1))
}

func TestAddDaysNormalizes(t *testing.T) {
	d := CalendarDate{Year: 2023, Month: time.December, Day: 31}
	assert.Equal(t, CalendarDate{Year: 2024, Month: time.January, Day: 1}, d.AddDays(1))
	assert.Equal(t, CalendarDate{Year: 2023, Month: time.December, Day: 26}, d.AddDays(-5))
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2024-07-04")
	assert.NoError(t, err)
	assert.Equal(t, CalendarDate{Year: 2024, Month: time.July, Day: 4}, d)
	assert.Equal(t, "2024-07-04", d.String())

	_, err = ParseDate("04/07/2024")
	assert.Error(t, err)
	_, err = ParseDate("")
	assert.Error(t, err)
}

func TestTimeRoundTrip(t *testing.T) {
	d := CalendarDate{Year: 2024, Month: time.May, Day: 9}
	assert.Equal(t, d, DateOf(d.Time()))
	assert.Equal(t, time.UTC, d.Time().Location())
}
