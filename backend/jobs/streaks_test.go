package jobs

import (
	"context"
	"testing"
	"time"

	"github.com/savepoint/savepoint/backend/models"
	"github.com/savepoint/savepoint/backend/queue"
	storage "github.com/savepoint/savepoint/backend/storage/persistent"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var anchor = time.Date(2024, time.June, 10, 20, 0, 0, 0, time.UTC)

func addUser(t *testing.T, mem *storage.MemoryStorage, username string, lastCheckIn time.Time, current int, confirmed bool) *models.User {
	t.Helper()
	user := &models.User{
		Username:       username,
		Email:          username + "@example.com",
		EmailConfirmed: confirmed,
		Gamification: models.Gamification{
			Level:  1,
			Streak: models.StreakState{Current: current, Longest: current},
		},
	}
	if !lastCheckIn.IsZero() {
		user.Gamification.Streak.LastCheckIn = &lastCheckIn
	}
	created, err := mem.AddUser(context.Background(), user)
	require.NoError(t, err)
	return created
}

func TestSweepResetsLapsedStreaks(t *testing.T) {
	mem := storage.NewMemoryStorage()
	lapsed := addUser(t, mem, "lapsed", anchor.AddDate(0, 0, -3), 9, true)
	fresh := addUser(t, mem, "fresh", anchor, 4, true)

	var sent []*queue.ReminderMessage
	Sweep(context.Background(), mem, func(m *queue.ReminderMessage) error {
		sent = append(sent, m)
		return nil
	}, zap.NewNop(), anchor)

	user, err := mem.FindUserByID(context.Background(), lapsed.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, user.Gamification.Streak.Current)
	assert.Equal(t, 9, user.Gamification.Streak.Longest)

	user, err = mem.FindUserByID(context.Background(), fresh.ID)
	require.NoError(t, err)
	assert.Equal(t, 4, user.Gamification.Streak.Current)

	// Neither user is one day behind, so no warnings went out.
	assert.Empty(t, sent)
}

func TestSweepWarnsStreaksAtRisk(t *testing.T) {
	mem := storage.NewMemoryStorage()
	addUser(t, mem, "atrisk", anchor.AddDate(0, 0, -1), 14, true)
	addUser(t, mem, "unconfirmed", anchor.AddDate(0, 0, -1), 14, false)

	var sent []*queue.ReminderMessage
	Sweep(context.Background(), mem, func(m *queue.ReminderMessage) error {
		sent = append(sent, m)
		return nil
	}, zap.NewNop(), anchor)

	require.Len(t, sent, 1)
	assert.Equal(t, queue.KindStreakWarning, sent[0].Kind)
	assert.Equal(t, "atrisk@example.com", sent[0].To)
	assert.Equal(t, 14, sent[0].Streak)
}

func TestSweepRemindsUnfinishedHabits(t *testing.T) {
	mem := storage.NewMemoryStorage()
	ctx := context.Background()
	user := addUser(t, mem, "builder", anchor, 5, true)

	yesterday := anchor.AddDate(0, 0, -1).Truncate(24 * time.Hour)
	today := anchor.Truncate(24 * time.Hour)

	// Long streak, not yet done today: reminded.
	_, err := mem.AddHabit(ctx, &models.Habit{
		UserID: user.ID, Title: "Morning run", Category: models.CategoryFitness,
		IsActive:    true,
		Completions: []models.Completion{{Date: yesterday}},
		Stats:       models.HabitStats{CurrentStreak: 6},
	})
	require.NoError(t, err)

	// Already done today: skipped.
	_, err = mem.AddHabit(ctx, &models.Habit{
		UserID: user.ID, Title: "Read", Category: models.CategoryLearning,
		IsActive: true, Order: 1,
		Completions: []models.Completion{{Date: today}},
		Stats:       models.HabitStats{CurrentStreak: 7},
	})
	require.NoError(t, err)

	// Streak too short to nag about: skipped.
	_, err = mem.AddHabit(ctx, &models.Habit{
		UserID: user.ID, Title: "Stretch", Category: models.CategoryHealth,
		IsActive: true, Order: 2,
		Stats:    models.HabitStats{CurrentStreak: 1},
	})
	require.NoError(t, err)

	var sent []*queue.ReminderMessage
	Sweep(ctx, mem, func(m *queue.ReminderMessage) error {
		sent = append(sent, m)
		return nil
	}, zap.NewNop(), anchor)

	require.Len(t, sent, 1)
	assert.Equal(t, queue.KindHabitReminder, sent[0].Kind)
	assert.Equal(t, "Morning run", sent[0].HabitTitle)
}

func TestSweepContinuesPastEnqueueFailures(t *testing.T) {
	mem := storage.NewMemoryStorage()
	addUser(t, mem, "first", anchor.AddDate(0, 0, -1), 5, true)
	addUser(t, mem, "second", anchor.AddDate(0, 0, -1), 8, true)

	calls := 0
	Sweep(context.Background(), mem, func(m *queue.ReminderMessage) error {
		calls++
		return assert.AnError
	}, zap.NewNop(), anchor)

	// Both users were still attempted.
	assert.Equal(t, 2, calls)
}
