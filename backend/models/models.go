package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Category classifies a habit. The set is closed; point multipliers are keyed on it.
type Category string

const (
	CategoryHealth       Category = "health"
	CategoryFitness      Category = "fitness"
	CategoryLearning     Category = "learning"
	CategoryProductivity Category = "productivity"
	CategoryMindfulness  Category = "mindfulness"
	CategorySocial       Category = "social"
	CategoryCreative     Category = "creative"
	CategoryFinance      Category = "finance"
)

// Categories lists every valid habit category.
var Categories = []Category{
	CategoryHealth, CategoryFitness, CategoryLearning, CategoryProductivity,
	CategoryMindfulness, CategorySocial, CategoryCreative, CategoryFinance,
}

// ValidCategory reports whether c is one of the known categories.
func ValidCategory(c Category) bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// Mood records how the user felt when completing a habit.
type Mood string

const (
	MoodGreat    Mood = "great"
	MoodGood     Mood = "good"
	MoodOkay     Mood = "okay"
	MoodTired    Mood = "tired"
	MoodStressed Mood = "stressed"
)

// ValidMood reports whether m is a known mood. The empty mood is valid (mood is optional).
func ValidMood(m Mood) bool {
	switch m {
	case "", MoodGreat, MoodGood, MoodOkay, MoodTired, MoodStressed:
		return true
	}
	return false
}

// Frequency describes how often a habit is meant to be performed.
type Frequency string

const (
	FrequencyDaily  Frequency = "daily"
	FrequencyWeekly Frequency = "weekly"
	FrequencyCustom Frequency = "custom"
)

// ValidFrequency reports whether f is a known frequency.
func ValidFrequency(f Frequency) bool {
	switch f {
	case FrequencyDaily, FrequencyWeekly, FrequencyCustom:
		return true
	}
	return false
}

// Priority ranks a task. Base and start-bonus points are keyed on it.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// ValidPriority reports whether p is a known priority.
func ValidPriority(p Priority) bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

// TaskStatus is the task state machine: todo <-> in-progress -> completed,
// plus the completed -> todo toggle.
type TaskStatus string

const (
	StatusTodo       TaskStatus = "todo"
	StatusInProgress TaskStatus = "in-progress"
	StatusCompleted  TaskStatus = "completed"
)

// ValidStatus reports whether s is a known task status.
func ValidStatus(s TaskStatus) bool {
	switch s {
	case StatusTodo, StatusInProgress, StatusCompleted:
		return true
	}
	return false
}

// Completion is one entry in a habit's completion ledger. Date carries only the
// calendar day (stored at UTC midnight). PointsAwarded remembers exactly what this
// completion earned so an undo can deduct the same amount regardless of how the
// streak has moved since.
type Completion struct {
	Date          time.Time `bson:"date" json:"date"`
	Note          string    `bson:"note,omitempty" json:"note,omitempty"`
	Mood          Mood      `bson:"mood,omitempty" json:"mood,omitempty"`
	PointsAwarded int       `bson:"points_awarded" json:"points_awarded"`
}

// HabitStats caches values derivable from the completion ledger. It is recomputed
// after every ledger mutation and never trusted as a source of truth.
type HabitStats struct {
	TotalCompletions  int        `bson:"total_completions" json:"total_completions"`
	CurrentStreak     int        `bson:"current_streak" json:"current_streak"`
	LongestStreak     int        `bson:"longest_streak" json:"longest_streak"`
	LastCompletedDate *time.Time `bson:"last_completed_date,omitempty" json:"last_completed_date,omitempty"`
}

type Habit struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID      primitive.ObjectID `bson:"user_id" json:"user_id"`
	Title       string             `bson:"title" json:"title"`
	Category    Category           `bson:"category" json:"category"`
	Frequency   Frequency          `bson:"frequency" json:"frequency"`
	Icon        string             `bson:"icon,omitempty" json:"icon,omitempty"`
	Order       int                `bson:"order" json:"order"`
	IsActive    bool               `bson:"is_active" json:"is_active"`
	CreatedAt   time.Time          `bson:"created_at" json:"created_at"`
	Completions []Completion       `bson:"completions" json:"completions"`
	Stats       HabitStats         `bson:"stats" json:"stats"`
}

type Subtask struct {
	Title       string     `bson:"title" json:"title"`
	Completed   bool       `bson:"completed" json:"completed"`
	CompletedAt *time.Time `bson:"completed_at,omitempty" json:"completed_at,omitempty"`
}

// XPAwarded holds the one-way gates that keep a task from earning the same XP twice.
// Once a flag is set it is never cleared, even when the task is toggled back to todo.
type XPAwarded struct {
	Start      bool `bson:"start" json:"start"`
	Completion bool `bson:"completion" json:"completion"`
}

type Task struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID        primitive.ObjectID `bson:"user_id" json:"user_id"`
	Title         string             `bson:"title" json:"title"`
	Description   string             `bson:"description,omitempty" json:"description,omitempty"`
	Status        TaskStatus         `bson:"status" json:"status"`
	Priority      Priority           `bson:"priority" json:"priority"`
	Category      Category           `bson:"category" json:"category"`
	DueDate       *time.Time         `bson:"due_date,omitempty" json:"due_date,omitempty"`
	EstimatedTime int                `bson:"estimated_time,omitempty" json:"estimated_time,omitempty"`
	Subtasks      []Subtask          `bson:"subtasks" json:"subtasks"`
	XPAwarded     XPAwarded          `bson:"xp_awarded" json:"xp_awarded"`
	CreatedAt     time.Time          `bson:"created_at" json:"created_at"`
	CompletedAt   *time.Time         `bson:"completed_at,omitempty" json:"completed_at,omitempty"`
}

// Badge is an earned achievement, denormalized onto the user so the profile can be
// rendered without joining against the catalog.
type Badge struct {
	ID          string    `bson:"id" json:"id"`
	Name        string    `bson:"name" json:"name"`
	Description string    `bson:"description" json:"description"`
	Icon        string    `bson:"icon" json:"icon"`
	EarnedAt    time.Time `bson:"earned_at" json:"earned_at"`
}

// StreakState tracks calendar-day check-in continuity for a user, independent of
// any single habit's streak.
type StreakState struct {
	Current     int        `bson:"current" json:"current"`
	Longest     int        `bson:"longest" json:"longest"`
	LastCheckIn *time.Time `bson:"last_check_in,omitempty" json:"last_check_in,omitempty"`
}

// Gamification is a user's full game state. Level is always derived from Points;
// no code path sets it independently.
type Gamification struct {
	Points int         `bson:"points" json:"points"`
	Level  int         `bson:"level" json:"level"`
	Streak StreakState `bson:"streak" json:"streak"`
	Badges []Badge     `bson:"badges" json:"badges"`
}

// HasBadge reports whether the user already earned the badge with the given id.
func (g *Gamification) HasBadge(id string) bool {
	for _, b := range g.Badges {
		if b.ID == id {
			return true
		}
	}
	return false
}

type User struct {
	ID             primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Username       string             `bson:"username" json:"username"`
	Email          string             `bson:"email" json:"email"`
	PasswordHash   string             `bson:"password_hash" json:"-"`
	EmailConfirmed bool               `bson:"email_confirmed" json:"email_confirmed"`
	Gamification   Gamification       `bson:"gamification" json:"gamification"`
	CreatedAt      time.Time          `bson:"created_at" json:"created_at"`
}

// RequirementType selects how an achievement's threshold is checked.
type RequirementType string

const (
	RequirementCount  RequirementType = "count"
	RequirementStreak RequirementType = "streak"
	RequirementPoints RequirementType = "points"
	RequirementLevel  RequirementType = "level"
	RequirementCustom RequirementType = "custom"
)

type Requirement struct {
	Type  RequirementType `bson:"type" json:"type"`
	Value int             `bson:"value" json:"value"`
}

type Reward struct {
	Points int `bson:"points" json:"points"`
}

// Achievement is one entry of the static catalog. The catalog is seeded once and
// read-only at runtime.
type Achievement struct {
	ID          string      `bson:"_id" json:"id"`
	Name        string      `bson:"name" json:"name"`
	Description string      `bson:"description" json:"description"`
	Category    string      `bson:"category" json:"category"`
	Icon        string      `bson:"icon" json:"icon"`
	Requirement Requirement `bson:"requirement" json:"requirement"`
	Rarity      string      `bson:"rarity" json:"rarity"`
	Reward      Reward      `bson:"reward" json:"reward"`
}

type Confirmation struct {
	ID                primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID            primitive.ObjectID `bson:"user_id,omitempty" json:"user_id"`
	ConfirmationToken string             `bson:"token" json:"token"`
	ExpiresAt         time.Time          `bson:"expires_at" json:"expires_at"`
}
