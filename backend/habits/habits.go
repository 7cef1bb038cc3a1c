package habits

import (
	"context"
	"fmt"
	"time"

	"github.com/savepoint/savepoint/backend/gamification"
	"github.com/savepoint/savepoint/backend/models"
	storage "github.com/savepoint/savepoint/backend/storage/persistent"
	"github.com/savepoint/savepoint/lib/errs"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// maxNoteLength bounds the optional note attached to a completion.
const maxNoteLength = 200

// earlyBirdHour is the exclusive upper bound for the early-bird achievement.
const earlyBirdHour = 8

var (
	store   storage.StorageInterface
	logger  *zap.Logger
	catalog []models.Achievement
)

// Init sets up the habit service with its storage backend, logger, and the
// achievement catalog used after every completion. Must be called before any
// other function in this package.
func Init(s storage.StorageInterface, l *zap.Logger, c []models.Achievement) {
	store = s
	logger = l
	catalog = c
}

// CreateInput carries the caller-supplied fields of a new habit.
type CreateInput struct {
	Title     string
	Category  models.Category
	Frequency models.Frequency
	Icon      string
	Order     int
}

// UpdateInput carries the mutable habit fields. Nil pointers leave the field
// unchanged. Category and frequency are editable; the completion ledger and
// stats are not reachable from here.
type UpdateInput struct {
	Title     *string
	Category  *models.Category
	Frequency *models.Frequency
	Icon      *string
	Order     *int
	IsActive  *bool
}

// CompleteOptions carries the optional parts of a completion. A zero Date means
// today; a zero Now means time.Now. Now exists so tests can pin the clock.
type CompleteOptions struct {
	Date gamification.CalendarDate
	Note string
	Mood models.Mood
	Now  time.Time
}

// CompleteResult reports everything a single completion changed.
type CompleteResult struct {
	Habit         *models.Habit  `json:"habit"`
	PointsAwarded int            `json:"points_awarded"`
	NewBadges     []models.Badge `json:"new_badges"`
}

// UncompleteResult reports the outcome of reversing a completion.
type UncompleteResult struct {
	Habit          *models.Habit `json:"habit"`
	PointsDeducted int           `json:"points_deducted"`
}

// Create validates and stores a new habit for the user. New habits start
// active with an empty ledger.
func Create(ctx context.Context, userID primitive.ObjectID, in CreateInput) (*models.Habit, error) {
	if in.Title == "" {
		return nil, fmt.Errorf("%w: title must not be empty", errs.ErrValidation)
	}
	if !models.ValidCategory(in.Category) {
		return nil, fmt.Errorf("%w: unknown category %q", errs.ErrValidation, in.Category)
	}
	if in.Frequency == "" {
		in.Frequency = models.FrequencyDaily
	}
	if !models.ValidFrequency(in.Frequency) {
		return nil, fmt.Errorf("%w: unknown frequency %q", errs.ErrValidation, in.Frequency)
	}

	habit := &models.Habit{
		UserID:      userID,
		Title:       in.Title,
		Category:    in.Category,
		Frequency:   in.Frequency,
		Icon:        in.Icon,
		Order:       in.Order,
		IsActive:    true,
		CreatedAt:   time.Now().UTC(),
		Completions: []models.Completion{},
	}

	created, err := store.AddHabit(ctx, habit)
	if err != nil {
		return nil, err
	}
	logger.Info("habit created",
		zap.String("user_id", userID.Hex()),
		zap.String("habit_id", created.ID.Hex()),
		zap.String("category", string(created.Category)))
	return created, nil
}

// List returns the user's habits ordered by their display order.
func List(ctx context.Context, userID primitive.ObjectID) ([]models.Habit, error) {
	return store.FindHabitsByUser(ctx, userID)
}

// Get returns a single habit owned by the user.
func Get(ctx context.Context, userID, habitID primitive.ObjectID) (*models.Habit, error) {
	return store.FindHabit(ctx, habitID, userID)
}

// Update applies the non-nil fields of in to the habit.
func Update(ctx context.Context, userID, habitID primitive.ObjectID, in UpdateInput) (*models.Habit, error) {
	habit, err := store.FindHabit(ctx, habitID, userID)
	if err != nil {
		return nil, err
	}

	if in.Title != nil {
		if *in.Title == "" {
			return nil, fmt.Errorf("%w: title must not be empty", errs.ErrValidation)
		}
		habit.Title = *in.Title
	}
	if in.Category != nil {
		if !models.ValidCategory(*in.Category) {
			return nil, fmt.Errorf("%w: unknown category %q", errs.ErrValidation, *in.Category)
		}
		habit.Category = *in.Category
	}
	if in.Frequency != nil {
		if !models.ValidFrequency(*in.Frequency) {
			return nil, fmt.Errorf("%w: unknown frequency %q", errs.ErrValidation, *in.Frequency)
		}
		habit.Frequency = *in.Frequency
	}
	if in.Icon != nil {
		habit.Icon = *in.Icon
	}
	if in.Order != nil {
		habit.Order = *in.Order
	}
	if in.IsActive != nil {
		habit.IsActive = *in.IsActive
	}

	if err := store.ReplaceHabit(ctx, habit); err != nil {
		return nil, err
	}
	return habit, nil
}

// Deactivate retires a habit without touching its history. The ledger and the
// points it earned stay intact; the habit simply stops counting toward active
// habit achievements and perfect days.
func Deactivate(ctx context.Context, userID, habitID primitive.ObjectID) (*models.Habit, error) {
	inactive := false
	return Update(ctx, userID, habitID, UpdateInput{IsActive: &inactive})
}

// Delete removes a habit and its entire completion ledger. Points already
// earned from it are not clawed back.
func Delete(ctx context.Context, userID, habitID primitive.ObjectID) error {
	if err := store.DeleteHabit(ctx, habitID, userID); err != nil {
		return err
	}
	logger.Info("habit deleted",
		zap.String("user_id", userID.Hex()),
		zap.String("habit_id", habitID.Hex()))
	return nil
}

// Complete records a completion for the habit, awards points, advances the
// user's check-in streak when the completion is for today, and evaluates
// achievements. The habit and the user's game state are persisted together in
// one transaction.
//
// Points are computed against the streak as it stands after this completion is
// inserted, so back-filling a day that joins two runs pays out for the joined
// streak.
func Complete(ctx context.Context, userID, habitID primitive.ObjectID, opts CompleteOptions) (*CompleteResult, error) {
	now := opts.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}
	today := gamification.DateOf(now)
	date := opts.Date
	if date.IsZero() {
		date = today
	}

	if len(opts.Note) > maxNoteLength {
		return nil, fmt.Errorf("%w: note exceeds %d characters", errs.ErrValidation, maxNoteLength)
	}
	if !models.ValidMood(opts.Mood) {
		return nil, fmt.Errorf("%w: unknown mood %q", errs.ErrValidation, opts.Mood)
	}

	habit, err := store.FindHabit(ctx, habitID, userID)
	if err != nil {
		return nil, err
	}
	if !habit.IsActive {
		return nil, fmt.Errorf("%w: habit is inactive", errs.ErrValidation)
	}

	// Insert first with zero points, replay the streak, then price the
	// completion against the streak it produced.
	if err := recordCompletion(habit, date, today, opts.Note, opts.Mood, 0); err != nil {
		return nil, err
	}
	refreshStats(habit, today)

	points := gamification.HabitPoints(habit.Category, habit.Stats.CurrentStreak)
	for i := range habit.Completions {
		if gamification.DateOf(habit.Completions[i].Date) == date {
			habit.Completions[i].PointsAwarded = points
			break
		}
	}

	user, err := store.FindUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	gamification.AddPoints(&user.Gamification, points)

	// The user-level check-in streak only moves on real-time activity, not
	// back-filled dates.
	if date.Equal(today) {
		s := gamification.StreakResult{
			Current: user.Gamification.Streak.Current,
			Longest: user.Gamification.Streak.Longest,
		}
		var last gamification.CalendarDate
		if user.Gamification.Streak.LastCheckIn != nil {
			last = gamification.DateOf(*user.Gamification.Streak.LastCheckIn)
		}
		s = gamification.CheckIn(s, last, today)
		checkIn := today.Time()
		user.Gamification.Streak.Current = s.Current
		user.Gamification.Streak.Longest = s.Longest
		user.Gamification.Streak.LastCheckIn = &checkIn
	}

	allHabits, err := store.FindHabitsByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	for i := range allHabits {
		if allHabits[i].ID == habit.ID {
			allHabits[i] = *habit
		}
	}

	evalCtx := gamification.Context{
		EarlyBird:  date.Equal(today) && now.UTC().Hour() < earlyBirdHour,
		PerfectDay: allCompletedOn(allHabits, today),
	}
	newBadges := gamification.Evaluate(user, allHabits, evalCtx, catalog, now)

	err = store.WithTransaction(ctx, func(ctx context.Context) error {
		if err := store.ReplaceHabit(ctx, habit); err != nil {
			return err
		}
		return store.ReplaceUser(ctx, user)
	})
	if err != nil {
		return nil, err
	}

	logger.Info("habit completed",
		zap.String("user_id", userID.Hex()),
		zap.String("habit_id", habitID.Hex()),
		zap.String("date", date.String()),
		zap.Int("points", points),
		zap.Int("streak", habit.Stats.CurrentStreak),
		zap.Int("new_badges", len(newBadges)))

	return &CompleteResult{Habit: habit, PointsAwarded: points, NewBadges: newBadges}, nil
}

// Uncomplete reverses the completion recorded for the given day, deducting
// exactly the points that completion awarded and replaying the habit's streaks.
// Badges and the user check-in streak are not revoked. A zero date means today.
func Uncomplete(ctx context.Context, userID, habitID primitive.ObjectID, date gamification.CalendarDate, at time.Time) (*UncompleteResult, error) {
	if at.IsZero() {
		at = time.Now().UTC()
	}
	today := gamification.DateOf(at)
	if date.IsZero() {
		date = today
	}

	habit, err := store.FindHabit(ctx, habitID, userID)
	if err != nil {
		return nil, err
	}

	removed, err := removeCompletion(habit, date)
	if err != nil {
		return nil, err
	}
	refreshStats(habit, today)

	user, err := store.FindUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	gamification.AddPoints(&user.Gamification, -removed.PointsAwarded)

	err = store.WithTransaction(ctx, func(ctx context.Context) error {
		if err := store.ReplaceHabit(ctx, habit); err != nil {
			return err
		}
		return store.ReplaceUser(ctx, user)
	})
	if err != nil {
		return nil, err
	}

	logger.Info("habit completion reversed",
		zap.String("user_id", userID.Hex()),
		zap.String("habit_id", habitID.Hex()),
		zap.String("date", date.String()),
		zap.Int("points_deducted", removed.PointsAwarded))

	return &UncompleteResult{Habit: habit, PointsDeducted: removed.PointsAwarded}, nil
}

// allCompletedOn reports whether every active habit has a completion for the
// day. False when the user has no active habits at all.
func allCompletedOn(habits []models.Habit, date gamification.CalendarDate) bool {
	active := 0
	for i := range habits {
		if !habits[i].IsActive {
			continue
		}
		active++
		if !completedOn(&habits[i], date) {
			return false
		}
	}
	return active > 0
}
