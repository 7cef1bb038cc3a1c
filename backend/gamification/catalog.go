package gamification

import "github.com/savepoint/savepoint/backend/models"

// DefaultCatalog returns the seeded achievement definitions. The catalog is
// static: it is written to the achievements collection at startup and treated
// as read-only afterwards.
func DefaultCatalog() []models.Achievement {
	return []models.Achievement{
		{
			ID: "first_steps", Name: "First Steps",
			Description: "Create your first habit", Category: "habits", Icon: "🌱",
			Requirement: models.Requirement{Type: models.RequirementCount, Value: 1},
			Rarity:      "common", Reward: models.Reward{Points: 10},
		},
		{
			ID: "habit_builder", Name: "Habit Builder",
			Description: "Keep five habits going at once", Category: "habits", Icon: "🏗️",
			Requirement: models.Requirement{Type: models.RequirementCount, Value: 5},
			Rarity:      "uncommon", Reward: models.Reward{Points: 25},
		},
		{
			ID: "habit_collector", Name: "Habit Collector",
			Description: "Keep ten habits going at once", Category: "habits", Icon: "📚",
			Requirement: models.Requirement{Type: models.RequirementCount, Value: 10},
			Rarity:      "rare", Reward: models.Reward{Points: 50},
		},
		{
			ID: "week_warrior", Name: "Week Warrior",
			Description: "Check in seven days in a row", Category: "streaks", Icon: "🔥",
			Requirement: models.Requirement{Type: models.RequirementStreak, Value: 7},
			Rarity:      "uncommon", Reward: models.Reward{Points: 30},
		},
		{
			ID: "fortnight_focus", Name: "Fortnight Focus",
			Description: "Check in fourteen days in a row", Category: "streaks", Icon: "⚡",
			Requirement: models.Requirement{Type: models.RequirementStreak, Value: 14},
			Rarity:      "rare", Reward: models.Reward{Points: 60},
		},
		{
			ID: "month_master", Name: "Month Master",
			Description: "Check in thirty days in a row", Category: "streaks", Icon: "🏆",
			Requirement: models.Requirement{Type: models.RequirementStreak, Value: 30},
			Rarity:      "epic", Reward: models.Reward{Points: 150},
		},
		{
			ID: "century_club", Name: "Century Club",
			Description: "Earn 100 points", Category: "points", Icon: "💯",
			Requirement: models.Requirement{Type: models.RequirementPoints, Value: 100},
			Rarity:      "common", Reward: models.Reward{Points: 15},
		},
		{
			ID: "point_hoarder", Name: "Point Hoarder",
			Description: "Earn 1,000 points", Category: "points", Icon: "💰",
			Requirement: models.Requirement{Type: models.RequirementPoints, Value: 1000},
			Rarity:      "rare", Reward: models.Reward{Points: 75},
		},
		{
			ID: "save_point_legend", Name: "Save Point Legend",
			Description: "Earn 5,000 points", Category: "points", Icon: "👑",
			Requirement: models.Requirement{Type: models.RequirementPoints, Value: 5000},
			Rarity:      "legendary", Reward: models.Reward{Points: 250},
		},
		{
			ID: "level_5", Name: "Seasoned Adventurer",
			Description: "Reach level 5", Category: "levels", Icon: "⭐",
			Requirement: models.Requirement{Type: models.RequirementLevel, Value: 5},
			Rarity:      "uncommon", Reward: models.Reward{Points: 40},
		},
		{
			ID: "level_10", Name: "Veteran Adventurer",
			Description: "Reach level 10", Category: "levels", Icon: "🌟",
			Requirement: models.Requirement{Type: models.RequirementLevel, Value: 10},
			Rarity:      "epic", Reward: models.Reward{Points: 100},
		},
		{
			ID: "early_bird", Name: "Early Bird",
			Description: "Complete a habit before 8am", Category: "special", Icon: "🐦",
			Requirement: models.Requirement{Type: models.RequirementCustom, Value: 0},
			Rarity:      "uncommon", Reward: models.Reward{Points: 20},
		},
		{
			ID: "perfect_day", Name: "Perfect Day",
			Description: "Complete every active habit in one day", Category: "special", Icon: "✨",
			Requirement: models.Requirement{Type: models.RequirementCustom, Value: 0},
			Rarity:      "rare", Reward: models.Reward{Points: 50},
		},
	}
}
