package gamification

import (
	"testing"
	"time"

	"github.com/savepoint/savepoint/backend/models"
	"github.com/stretchr/testify/assert"
)

func duePtr(t time.Time) *time.Time { return &t }

func TestScoreCompletionNoDeadline(t *testing.T) {
	now := time.Date(2024, 6, 10, 12, 0, 0, 0, time.UTC)
	score := ScoreCompletion(models.PriorityMedium, nil, now)

	assert.Equal(t, 10, score.BasePoints)
	assert.Equal(t, 0, score.DeadlineModifier)
	assert.Equal(t, 10, score.TotalPoints)
	assert.Equal(t, NoDeadline, score.Status)
}

func TestScoreCompletionOnTime(t *testing.T) {
	now := time.Date(2024, 6, 10, 9, 0, 0, 0, time.UTC)
	due := duePtr(time.Date(2024, 6, 10, 18, 0, 0, 0, time.UTC))

	score := ScoreCompletion(models.PriorityLow, due, now)
	assert.Equal(t, DeadlineOnTime, score.Status)
	assert.Equal(t, 15, score.DeadlineModifier)
	assert.Equal(t, 20, score.TotalPoints)
}

func TestScoreCompletionEarly(t *testing.T) {
	now := time.Date(2024, 6, 10, 12, 0, 0, 0, time.UTC)
	due := duePtr(now.Add(72 * time.Hour))

	// 3 days early, high priority: 20 + min(3*5, 50) = 35.
	score := ScoreCompletion(models.PriorityHigh, due, now)
	assert.Equal(t, DeadlineEarly, score.Status)
	assert.Equal(t, 3, score.DaysDifference)
	assert.Equal(t, 35, score.TotalPoints)

	// Early bonus caps at 50.
	farDue := duePtr(now.Add(30 * 24 * time.Hour))
	score = ScoreCompletion(models.PriorityHigh, farDue, now)
	assert.Equal(t, 50, score.DeadlineModifier)
	assert.Equal(t, 70, score.TotalPoints)
}

func TestScoreCompletionLate(t *testing.T) {
	now := time.Date(2024, 6, 10, 12, 0, 0, 0, time.UTC)
	due := duePtr(now.Add(-4 * 24 * time.Hour))

	// 4 days late, low priority: max(0, 5 - 4*3) = 0.
	score := ScoreCompletion(models.PriorityLow, due, now)
	assert.Equal(t, DeadlineLate, score.Status)
	assert.Equal(t, -4, score.DaysDifference)
	assert.Equal(t, -12, score.DeadlineModifier)
	assert.Equal(t, 0, score.TotalPoints)

	// A shorter delay still leaves something.
	due = duePtr(now.Add(-2 * 24 * time.Hour))
	score = ScoreCompletion(models.PriorityUrgent, due, now)
	assert.Equal(t, 24, score.TotalPoints) // 30 - 6
}

func TestScoreCompletionTruncationIsInstantBased(t *testing.T) {
	// 23 hours before the deadline floors to 0 days: on_time, not early.
	now := time.Date(2024, 6, 10, 12, 0, 0, 0, time.UTC)
	due := duePtr(now.Add(23 * time.Hour))

	score := ScoreCompletion(models.PriorityMedium, due, now)
	assert.Equal(t, DeadlineOnTime, score.Status)
	assert.Equal(t, 0, score.DaysDifference)

	// 1 hour past the deadline floors to -1 day: already a full late day.
	due = duePtr(now.Add(-1 * time.Hour))
	score = ScoreCompletion(models.PriorityMedium, due, now)
	assert.Equal(t, DeadlineLate, score.Status)
	assert.Equal(t, -1, score.DaysDifference)
	assert.Equal(t, 7, score.TotalPoints) // 10 - 3
}

func TestStartBonus(t *testing.T) {
	assert.Equal(t, 2, StartBonus(models.PriorityLow))
	assert.Equal(t, 3, StartBonus(models.PriorityMedium))
	assert.Equal(t, 5, StartBonus(models.PriorityHigh))
	assert.Equal(t, 7, StartBonus(models.PriorityUrgent))
}
