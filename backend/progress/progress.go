package progress

import (
	"context"
	"errors"
	"time"

	"github.com/savepoint/savepoint/backend/gamification"
	"github.com/savepoint/savepoint/backend/models"
	cache "github.com/savepoint/savepoint/backend/storage/cache"
	storage "github.com/savepoint/savepoint/backend/storage/persistent"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// snapshotTTL bounds how stale a cached progress snapshot may be. Mutating
// services call Invalidate, so the TTL only matters for writes that bypass them.
const snapshotTTL = 5 * time.Minute

var (
	store  storage.StorageInterface
	cach   cache.CacheInterface
	logger *zap.Logger
)

// Init sets up the progress service. The cache may be nil, in which case every
// snapshot is computed fresh.
func Init(s storage.StorageInterface, c cache.CacheInterface, l *zap.Logger) {
	store = s
	cach = c
	logger = l
}

// HabitSummary is the per-habit slice of a progress snapshot.
type HabitSummary struct {
	ID               primitive.ObjectID `json:"id"`
	Title            string             `json:"title"`
	Category         models.Category    `json:"category"`
	CurrentStreak    int                `json:"current_streak"`
	LongestStreak    int                `json:"longest_streak"`
	TotalCompletions int                `json:"total_completions"`
	CompletedToday   bool               `json:"completed_today"`
}

// Snapshot aggregates a user's full progress view: game state, level progress,
// per-habit streaks, and task counts.
type Snapshot struct {
	Points         int                        `json:"points"`
	Level          int                        `json:"level"`
	LevelProgress  gamification.LevelProgress `json:"level_progress"`
	Streak         models.StreakState         `json:"streak"`
	Badges         []models.Badge             `json:"badges"`
	ActiveHabits   int                        `json:"active_habits"`
	CompletedToday int                        `json:"completed_today"`
	Habits         []HabitSummary             `json:"habits"`
	TasksOpen      int                        `json:"tasks_open"`
	TasksCompleted int                        `json:"tasks_completed"`
	GeneratedAt    time.Time                  `json:"generated_at"`
}

func cacheKey(userID primitive.ObjectID) string {
	return "progress:" + userID.Hex()
}

// Get returns the user's progress snapshot, serving from cache when possible.
// Cache failures are logged and degrade to a fresh computation, never an error.
// A zero now means time.Now.
func Get(ctx context.Context, userID primitive.ObjectID, now time.Time) (*Snapshot, error) {
	if now.IsZero() {
		now = time.Now().UTC()
	}

	if cach != nil {
		var cached Snapshot
		err := cach.Get(ctx, cacheKey(userID), &cached)
		if err == nil {
			return &cached, nil
		}
		if !errors.Is(err, cache.ErrCacheMiss) {
			logger.Warn("progress cache read failed", zap.Error(err))
		}
	}

	snapshot, err := compute(ctx, userID, now)
	if err != nil {
		return nil, err
	}

	if cach != nil {
		if err := cach.Set(ctx, cacheKey(userID), snapshot, snapshotTTL); err != nil {
			logger.Warn("progress cache write failed", zap.Error(err))
		}
	}
	return snapshot, nil
}

// Invalidate drops the cached snapshot for a user. Called by every mutation
// that changes points, streaks, habits, or tasks.
func Invalidate(ctx context.Context, userID primitive.ObjectID) {
	if cach == nil {
		return
	}
	if err := cach.Delete(ctx, cacheKey(userID)); err != nil {
		logger.Warn("progress cache invalidation failed", zap.Error(err))
	}
}

func compute(ctx context.Context, userID primitive.ObjectID, now time.Time) (*Snapshot, error) {
	user, err := store.FindUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	habits, err := store.FindHabitsByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	tasks, err := store.FindTasksByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	today := gamification.DateOf(now)
	snapshot := &Snapshot{
		Points:        user.Gamification.Points,
		Level:         user.Gamification.Level,
		LevelProgress: gamification.ProgressToNextLevel(user.Gamification.Points),
		Streak:        user.Gamification.Streak,
		Badges:        user.Gamification.Badges,
		Habits:        make([]HabitSummary, 0, len(habits)),
		GeneratedAt:   now,
	}
	if snapshot.Badges == nil {
		snapshot.Badges = []models.Badge{}
	}

	for _, h := range habits {
		completedToday := false
		for _, c := range h.Completions {
			if gamification.DateOf(c.Date) == today {
				completedToday = true
				break
			}
		}
		if h.IsActive {
			snapshot.ActiveHabits++
			if completedToday {
				snapshot.CompletedToday++
			}
		}
		snapshot.Habits = append(snapshot.Habits, HabitSummary{
			ID:               h.ID,
			Title:            h.Title,
			Category:         h.Category,
			CurrentStreak:    h.Stats.CurrentStreak,
			LongestStreak:    h.Stats.LongestStreak,
			TotalCompletions: h.Stats.TotalCompletions,
			CompletedToday:   completedToday,
		})
	}

	for _, task := range tasks {
		if task.Status == models.StatusCompleted {
			snapshot.TasksCompleted++
		} else {
			snapshot.TasksOpen++
		}
	}

	return snapshot, nil
}
