package gamification

import (
	"math"
	"time"

	"github.com/savepoint/savepoint/backend/models"
)

// DeadlineStatus labels how a task completion related to its due date.
type DeadlineStatus string

const (
	DeadlineEarly  DeadlineStatus = "early"
	DeadlineOnTime DeadlineStatus = "on_time"
	DeadlineLate   DeadlineStatus = "late"
	NoDeadline     DeadlineStatus = "no_deadline"
)

const (
	earlyBonusPerDay  = 5
	earlyBonusCap     = 50
	onTimeBonus       = 15
	latePenaltyPerDay = 3
)

// basePoints is the completion award per priority before deadline adjustment.
var basePoints = map[models.Priority]int{
	models.PriorityLow:    5,
	models.PriorityMedium: 10,
	models.PriorityHigh:   20,
	models.PriorityUrgent: 30,
}

// startBonuses is the one-time award for moving a task from todo to in-progress.
var startBonuses = map[models.Priority]int{
	models.PriorityLow:    2,
	models.PriorityMedium: 3,
	models.PriorityHigh:   5,
	models.PriorityUrgent: 7,
}

// CompletionScore breaks down the points earned by completing a task.
type CompletionScore struct {
	BasePoints       int            `json:"base_points"`
	DeadlineModifier int            `json:"deadline_modifier"`
	TotalPoints      int            `json:"total_points"`
	DaysDifference   int            `json:"days_difference"`
	Status           DeadlineStatus `json:"status"`
}

// ScoreCompletion computes the completion award for a task: base points by
// priority plus a modifier from how the completion instant relates to the due
// date. Days early/late is floor((due - now) / 24h) over the raw instants, so
// finishing 23 hours before a deadline counts as 0 days early, not early.
//
// Early completions earn 5 points per day capped at 50, same-day completions a
// flat 15, late ones lose 3 per day. The total never goes negative.
func ScoreCompletion(priority models.Priority, dueDate *time.Time, now time.Time) CompletionScore {
	score := CompletionScore{
		BasePoints: basePoints[priority],
		Status:     NoDeadline,
	}

	if dueDate != nil {
		days := int(math.Floor(dueDate.Sub(now).Hours() / 24))
		score.DaysDifference = days
		switch {
		case days > 0:
			score.DeadlineModifier = days * earlyBonusPerDay
			if score.DeadlineModifier > earlyBonusCap {
				score.DeadlineModifier = earlyBonusCap
			}
			score.Status = DeadlineEarly
		case days == 0:
			score.DeadlineModifier = onTimeBonus
			score.Status = DeadlineOnTime
		default:
			score.DeadlineModifier = days * latePenaltyPerDay
			score.Status = DeadlineLate
		}
	}

	score.TotalPoints = score.BasePoints + score.DeadlineModifier
	if score.TotalPoints < 0 {
		score.TotalPoints = 0
	}
	return score
}

// StartBonus returns the one-time award for first moving a task into progress.
func StartBonus(priority models.Priority) int {
	return startBonuses[priority]
}
