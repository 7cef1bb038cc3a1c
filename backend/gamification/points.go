package gamification

import (
	"math"

	"github.com/savepoint/savepoint/backend/models"
)

// streakBonusCap limits how much a long streak can inflate a single completion.
const streakBonusCap = 50

// categoryMultipliers boosts point awards for categories the app wants to
// encourage. Unlisted categories fall back to 1.0.
var categoryMultipliers = map[models.Category]float64{
	models.CategoryHealth:      1.1,
	models.CategoryFitness:     1.2,
	models.CategoryLearning:    1.3,
	models.CategoryMindfulness: 1.15,
}

// CategoryMultiplier returns the point multiplier for a habit category.
func CategoryMultiplier(c models.Category) float64 {
	if m, ok := categoryMultipliers[c]; ok {
		return m
	}
	return 1.0
}

// HabitPoints computes the award for completing a habit while on the given
// current streak: round((10 + min(streak*2, 50)) * categoryMultiplier).
// Deterministic, no randomness.
func HabitPoints(category models.Category, currentStreak int) int {
	bonus := currentStreak * 2
	if bonus > streakBonusCap {
		bonus = streakBonusCap
	}
	return int(math.Round(float64(10+bonus) * CategoryMultiplier(category)))
}

// LevelForPoints derives a level from cumulative points:
// floor(sqrt(points/100)) + 1. Level 1 spans 0-99 points, level 2 starts at 100,
// level 3 at 400, and so on.
func LevelForPoints(points int) int {
	if points < 0 {
		points = 0
	}
	return int(math.Sqrt(float64(points)/100)) + 1
}

// LevelFloor returns the cumulative points at which the given level begins:
// (level-1)^2 * 100.
func LevelFloor(level int) int {
	if level < 1 {
		level = 1
	}
	return (level - 1) * (level - 1) * 100
}

// AddPoints applies a point delta to a user's game state and unconditionally
// resyncs the level. The delta may be negative when a completion is reversed;
// points never drop below zero. Every point mutation in the system goes through
// here so level can never drift from points.
func AddPoints(g *models.Gamification, delta int) {
	g.Points += delta
	if g.Points < 0 {
		g.Points = 0
	}
	g.Level = LevelForPoints(g.Points)
}

// LevelProgress describes how far into the current level a point total sits.
type LevelProgress struct {
	Level         int     `json:"level"`
	PointsInLevel int     `json:"points_in_level"`
	PointsNeeded  int     `json:"points_needed"`
	Percentage    float64 `json:"percentage"`
}

// ProgressToNextLevel reports progress through the level that contains points.
func ProgressToNextLevel(points int) LevelProgress {
	level := LevelForPoints(points)
	floor := LevelFloor(level)
	needed := LevelFloor(level+1) - floor
	in := points - floor
	return LevelProgress{
		Level:         level,
		PointsInLevel: in,
		PointsNeeded:  needed,
		Percentage:    float64(in) / float64(needed) * 100,
	}
}
