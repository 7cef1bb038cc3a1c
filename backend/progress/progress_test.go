package progress

import (
	"context"
	"testing"
	"time"

	"github.com/savepoint/savepoint/backend/models"
	cache "github.com/savepoint/savepoint/backend/storage/cache"
	storage "github.com/savepoint/savepoint/backend/storage/persistent"
	"github.com/savepoint/savepoint/lib/errs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

var anchor = time.Date(2024, time.June, 10, 12, 0, 0, 0, time.UTC)

func seed(t *testing.T, mem *storage.MemoryStorage) primitive.ObjectID {
	t.Helper()
	ctx := context.Background()

	user, err := mem.AddUser(ctx, &models.User{
		Username: "tester",
		Email:    "tester@example.com",
		Gamification: models.Gamification{
			Points: 250,
			Level:  2,
			Streak: models.StreakState{Current: 3, Longest: 9},
		},
	})
	require.NoError(t, err)

	_, err = mem.AddHabit(ctx, &models.Habit{
		UserID:   user.ID,
		Title:    "Read",
		Category: models.CategoryLearning,
		IsActive: true,
		Completions: []models.Completion{
			{Date: anchor.Truncate(24 * time.Hour), PointsAwarded: 16},
		},
		Stats: models.HabitStats{TotalCompletions: 1, CurrentStreak: 1, LongestStreak: 4},
	})
	require.NoError(t, err)

	_, err = mem.AddHabit(ctx, &models.Habit{
		UserID:   user.ID,
		Title:    "Retired habit",
		Category: models.CategoryHealth,
		IsActive: false,
		Order:    1,
	})
	require.NoError(t, err)

	_, err = mem.AddTask(ctx, &models.Task{UserID: user.ID, Title: "Open", Status: models.StatusTodo})
	require.NoError(t, err)
	_, err = mem.AddTask(ctx, &models.Task{UserID: user.ID, Title: "Done", Status: models.StatusCompleted})
	require.NoError(t, err)

	return user.ID
}

func TestGetAggregatesUserState(t *testing.T) {
	mem := storage.NewMemoryStorage()
	Init(mem, nil, zap.NewNop())
	userID := seed(t, mem)

	snapshot, err := Get(context.Background(), userID, anchor)
	require.NoError(t, err)

	assert.Equal(t, 250, snapshot.Points)
	assert.Equal(t, 2, snapshot.Level)
	assert.Equal(t, 2, snapshot.LevelProgress.Level)
	assert.Equal(t, 150, snapshot.LevelProgress.PointsInLevel)
	assert.Equal(t, 3, snapshot.Streak.Current)

	assert.Equal(t, 1, snapshot.ActiveHabits)
	assert.Equal(t, 1, snapshot.CompletedToday)
	require.Len(t, snapshot.Habits, 2)
	assert.True(t, snapshot.Habits[0].CompletedToday)
	assert.False(t, snapshot.Habits[1].CompletedToday)

	assert.Equal(t, 1, snapshot.TasksOpen)
	assert.Equal(t, 1, snapshot.TasksCompleted)
}

func TestGetServesFromCacheUntilInvalidated(t *testing.T) {
	mem := storage.NewMemoryStorage()
	mc := cache.NewMemoryCache()
	Init(mem, mc, zap.NewNop())
	userID := seed(t, mem)
	ctx := context.Background()

	first, err := Get(ctx, userID, anchor)
	require.NoError(t, err)
	assert.Equal(t, 250, first.Points)

	// Mutate storage behind the cache's back; the stale snapshot is served.
	user, err := mem.FindUserByID(ctx, userID)
	require.NoError(t, err)
	user.Gamification.Points = 999
	require.NoError(t, mem.ReplaceUser(ctx, user))

	stale, err := Get(ctx, userID, anchor)
	require.NoError(t, err)
	assert.Equal(t, 250, stale.Points)

	Invalidate(ctx, userID)
	fresh, err := Get(ctx, userID, anchor)
	require.NoError(t, err)
	assert.Equal(t, 999, fresh.Points)
}

func TestGetUnknownUser(t *testing.T) {
	Init(storage.NewMemoryStorage(), nil, zap.NewNop())
	_, err := Get(context.Background(), primitive.NewObjectID(), anchor)
	assert.ErrorIs(t, err, errs.ErrNotFound)
}
