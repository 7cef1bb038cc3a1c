package gamification

import (
	"time"

	"github.com/savepoint/savepoint/backend/models"
)

// Context carries the ad-hoc eligibility flags that custom achievements match
// against. Callers set them from checks that are outside this package's scope
// (time of day, all-habits-done-today).
type Context struct {
	EarlyBird  bool
	PerfectDay bool
}

// Evaluate scans the achievement catalog against a user's current state and
// awards every newly qualified badge exactly once, mutating the user's game
// state in place. Reward points flow through AddPoints, so a badge award can
// itself trigger a level-up. It returns the badges awarded by this call, in
// catalog order; an empty slice means nothing new unlocked.
//
// The catalog is an injected read-only slice so the arithmetic stays testable
// without a database.
func Evaluate(user *models.User, habits []models.Habit, ctx Context, catalog []models.Achievement, now time.Time) []models.Badge {
	var awarded []models.Badge

	for _, a := range catalog {
		if user.Gamification.HasBadge(a.ID) {
			continue
		}
		if !qualifies(user, habits, ctx, a) {
			continue
		}

		badge := models.Badge{
			ID:          a.ID,
			Name:        a.Name,
			Description: a.Description,
			Icon:        a.Icon,
			EarnedAt:    now,
		}
		user.Gamification.Badges = append(user.Gamification.Badges, badge)
		if a.Reward.Points > 0 {
			AddPoints(&user.Gamification, a.Reward.Points)
		}
		awarded = append(awarded, badge)
	}

	return awarded
}

func qualifies(user *models.User, habits []models.Habit, ctx Context, a models.Achievement) bool {
	switch a.Requirement.Type {
	case models.RequirementCount:
		// Count requirements are scoped to habits.
		if a.Category != "habits" {
			return false
		}
		active := 0
		for _, h := range habits {
			if h.IsActive {
				active++
			}
		}
		return active >= a.Requirement.Value
	case models.RequirementStreak:
		s := user.Gamification.Streak
		return s.Current >= a.Requirement.Value || s.Longest >= a.Requirement.Value
	case models.RequirementPoints:
		return user.Gamification.Points >= a.Requirement.Value
	case models.RequirementLevel:
		return user.Gamification.Level >= a.Requirement.Value
	case models.RequirementCustom:
		switch a.ID {
		case "early_bird":
			return ctx.EarlyBird
		case "perfect_day":
			return ctx.PerfectDay
		}
		return false
	}
	return false
}
