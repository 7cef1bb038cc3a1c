package gamification

import (
	"math"
	"testing"

	"github.com/savepoint/savepoint/backend/models"
	"github.com/stretchr/testify/assert"
)

func TestHabitPoints(t *testing.T) {
	// No streak, default multiplier: just the base 10.
	assert.Equal(t, 10, HabitPoints(models.CategorySocial, 0))

	// Streak bonus is 2 per day.
	assert.Equal(t, 16, HabitPoints(models.CategorySocial, 3))

	// Bonus caps at 50 no matter how long the streak gets.
	assert.Equal(t, 60, HabitPoints(models.CategorySocial, 25))
	assert.Equal(t, 60, HabitPoints(models.CategorySocial, 400))

	// Category multipliers round to the nearest point.
	assert.Equal(t, 13, HabitPoints(models.CategoryLearning, 0))  // 10 * 1.3
	assert.Equal(t, 12, HabitPoints(models.CategoryFitness, 0))   // 10 * 1.2
	assert.Equal(t, 72, HabitPoints(models.CategoryFitness, 25))  // 60 * 1.2
}

func TestLevelForPoints(t *testing.T) {
	cases := map[int]int{
		0:    1,
		99:   1,
		100:  2,
		399:  2,
		400:  3,
		899:  3,
		900:  4,
		2500: 6,
	}
	for points, level := range cases {
		assert.Equal(t, level, LevelForPoints(points), "points=%d", points)
	}
}

func TestLevelMatchesFormulaForAllSmallPoints(t *testing.T) {
	for points := 0; points <= 5000; points++ {
		expected := int(math.Floor(math.Sqrt(float64(points)/100))) + 1
		assert.Equal(t, expected, LevelForPoints(points), "points=%d", points)
	}
}

func TestLevelFloor(t *testing.T) {
	assert.Equal(t, 0, LevelFloor(1))
	assert.Equal(t, 100, LevelFloor(2))
	assert.Equal(t, 400, LevelFloor(3))
	assert.Equal(t, 8100, LevelFloor(10))
}

func TestAddPointsResyncsLevel(t *testing.T) {
	g := models.Gamification{Level: 1}

	AddPoints(&g, 150)
	assert.Equal(t, 150, g.Points)
	assert.Equal(t, 2, g.Level)

	AddPoints(&g, 250)
	assert.Equal(t, 400, g.Points)
	assert.Equal(t, 3, g.Level)

	// Reversal can demote.
	AddPoints(&g, -350)
	assert.Equal(t, 50, g.Points)
	assert.Equal(t, 1, g.Level)

	// Points floor at zero.
	AddPoints(&g, -500)
	assert.Equal(t, 0, g.Points)
	assert.Equal(t, 1, g.Level)
}

func TestProgressToNextLevel(t *testing.T) {
	// 150 points: level 2 spans 100-399, so 50 in, 300 needed.
	p := ProgressToNextLevel(150)
	assert.Equal(t, 2, p.Level)
	assert.Equal(t, 50, p.PointsInLevel)
	assert.Equal(t, 300, p.PointsNeeded)
	assert.InDelta(t, 16.67, p.Percentage, 0.01)

	// Exactly at a level boundary.
	p = ProgressToNextLevel(400)
	assert.Equal(t, 3, p.Level)
	assert.Equal(t, 0, p.PointsInLevel)
	assert.Equal(t, 500, p.PointsNeeded)
	assert.Equal(t, 0.0, p.Percentage)

	// Fresh user.
	p = ProgressToNextLevel(0)
	assert.Equal(t, 1, p.Level)
	assert.Equal(t, 100, p.PointsNeeded)
}
