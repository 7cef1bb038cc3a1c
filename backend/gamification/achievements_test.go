package gamification

import (
	"testing"
	"time"

	"github.com/savepoint/savepoint/backend/models"
	"github.com/stretchr/testify/assert"
)

var testNow = time.Date(2024, 6, 10, 7, 30, 0, 0, time.UTC)

func testCatalog() []models.Achievement {
	return []models.Achievement{
		{
			ID: "first_steps", Name: "First Steps", Category: "habits",
			Requirement: models.Requirement{Type: models.RequirementCount, Value: 1},
			Reward:      models.Reward{Points: 10},
		},
		{
			ID: "week_warrior", Name: "Week Warrior", Category: "streaks",
			Requirement: models.Requirement{Type: models.RequirementStreak, Value: 7},
		},
		{
			ID: "century_club", Name: "Century Club", Category: "points",
			Requirement: models.Requirement{Type: models.RequirementPoints, Value: 100},
		},
		{
			ID: "level_5", Name: "Seasoned Adventurer", Category: "levels",
			Requirement: models.Requirement{Type: models.RequirementLevel, Value: 5},
		},
		{
			ID: "early_bird", Name: "Early Bird", Category: "special",
			Requirement: models.Requirement{Type: models.RequirementCustom},
		},
		{
			ID: "perfect_day", Name: "Perfect Day", Category: "special",
			Requirement: models.Requirement{Type: models.RequirementCustom},
		},
	}
}

func activeHabits(n int) []models.Habit {
	habits := make([]models.Habit, n)
	for i := range habits {
		habits[i].IsActive = true
	}
	return habits
}

func TestEvaluateCountRequirement(t *testing.T) {
	user := &models.User{}
	awarded := Evaluate(user, activeHabits(1), Context{}, testCatalog(), testNow)

	assert.Len(t, awarded, 1)
	assert.Equal(t, "first_steps", awarded[0].ID)
	assert.Equal(t, testNow, awarded[0].EarnedAt)

	// Inactive habits do not count.
	user = &models.User{}
	habits := activeHabits(1)
	habits[0].IsActive = false
	awarded = Evaluate(user, habits, Context{}, testCatalog(), testNow)
	assert.Empty(t, awarded)
}

func TestEvaluateIsIdempotent(t *testing.T) {
	user := &models.User{}
	first := Evaluate(user, activeHabits(1), Context{}, testCatalog(), testNow)
	assert.Len(t, first, 1)

	second := Evaluate(user, activeHabits(1), Context{}, testCatalog(), testNow.Add(time.Hour))
	assert.Empty(t, second)
	assert.Len(t, user.Gamification.Badges, 1)
}

func TestEvaluateStreakUsesCurrentOrLongest(t *testing.T) {
	// A broken streak still qualifies through its historical longest.
	user := &models.User{}
	user.Gamification.Streak = models.StreakState{Current: 0, Longest: 9}

	awarded := Evaluate(user, nil, Context{}, testCatalog(), testNow)
	assert.Len(t, awarded, 1)
	assert.Equal(t, "week_warrior", awarded[0].ID)
}

func TestEvaluateRewardPointsCanCascadeIntoLevelUp(t *testing.T) {
	// 95 points + the 10-point first_steps reward crosses 100, which both
	// levels the user up and qualifies century_club in the same pass.
	user := &models.User{}
	AddPoints(&user.Gamification, 95)

	awarded := Evaluate(user, activeHabits(1), Context{}, testCatalog(), testNow)

	ids := make([]string, len(awarded))
	for i, b := range awarded {
		ids[i] = b.ID
	}
	assert.Equal(t, []string{"first_steps", "century_club"}, ids)
	assert.Equal(t, 105, user.Gamification.Points)
	assert.Equal(t, 2, user.Gamification.Level)
}

func TestEvaluateCustomFlags(t *testing.T) {
	user := &models.User{}
	awarded := Evaluate(user, nil, Context{EarlyBird: true}, testCatalog(), testNow)
	assert.Len(t, awarded, 1)
	assert.Equal(t, "early_bird", awarded[0].ID)

	awarded = Evaluate(user, nil, Context{PerfectDay: true}, testCatalog(), testNow)
	assert.Len(t, awarded, 1)
	assert.Equal(t, "perfect_day", awarded[0].ID)

	// Without flags, custom achievements never fire.
	fresh := &models.User{}
	awarded = Evaluate(fresh, nil, Context{}, testCatalog(), testNow)
	assert.Empty(t, awarded)
}

func TestEvaluateLevelRequirement(t *testing.T) {
	user := &models.User{}
	AddPoints(&user.Gamification, 1700) // level 5 starts at 1600

	awarded := Evaluate(user, nil, Context{}, testCatalog(), testNow)

	ids := make([]string, len(awarded))
	for i, b := range awarded {
		ids[i] = b.ID
	}
	assert.Contains(t, ids, "level_5")
	assert.Contains(t, ids, "century_club")
}

func TestDefaultCatalogHasUniqueIDs(t *testing.T) {
	seen := map[string]bool{}
	for _, a := range DefaultCatalog() {
		assert.False(t, seen[a.ID], "duplicate achievement id %s", a.ID)
		seen[a.ID] = true
	}
}
