package jobs

import (
	"context"
	"time"

	"github.com/savepoint/savepoint/backend/gamification"
	"github.com/savepoint/savepoint/backend/models"
	"github.com/savepoint/savepoint/backend/queue"
	storage "github.com/savepoint/savepoint/backend/storage/persistent"
	"go.uber.org/zap"
)

// reminderStreakFloor is the habit streak length below which no reminder is
// sent. Short streaks are cheap to rebuild; nagging about them trains users to
// ignore the email.
const reminderStreakFloor = 3

// Sweep walks every user once and performs the daily streak maintenance:
//
//   - user check-in streaks whose last check-in is more than a day old are
//     reset to zero, since the chain is already broken;
//   - users who checked in yesterday but not yet today get a streak warning
//     through the reminder queue;
//   - active habits riding a meaningful streak that are still unfinished today
//     get a habit reminder.
//
// Reminders only go to confirmed email addresses. A failure for one user is
// logged and does not stop the sweep. Meant to run in the evening, but safe to
// run at any time and more than once per day; the queue consumer's dedupe does
// not apply across runs, so scheduling stays the caller's concern.
func Sweep(ctx context.Context, store storage.StorageInterface, enqueue func(*queue.ReminderMessage) error, logger *zap.Logger, now time.Time) {
	if now.IsZero() {
		now = time.Now().UTC()
	}
	today := gamification.DateOf(now)

	users, err := store.ListUsers(ctx)
	if err != nil {
		logger.Error("streak sweep could not list users", zap.Error(err))
		return
	}

	var resets, warnings, reminders int
	for i := range users {
		user := users[i]
		r, w, rem := sweepUser(ctx, store, enqueue, logger, &user, today)
		resets += r
		warnings += w
		reminders += rem
	}

	logger.Info("streak sweep finished",
		zap.Int("users", len(users)),
		zap.Int("streaks_reset", resets),
		zap.Int("warnings_sent", warnings),
		zap.Int("habit_reminders_sent", reminders))
}

func sweepUser(ctx context.Context, store storage.StorageInterface, enqueue func(*queue.ReminderMessage) error, logger *zap.Logger, user *models.User, today gamification.CalendarDate) (resets, warnings, reminders int) {
	streak := user.Gamification.Streak
	if streak.LastCheckIn != nil && streak.Current > 0 {
		gap := gamification.DaysBetween(gamification.DateOf(*streak.LastCheckIn), today)
		switch {
		case gap > 1:
			user.Gamification.Streak.Current = 0
			if err := store.ReplaceUser(ctx, user); err != nil {
				logger.Warn("failed to reset lapsed streak",
					zap.String("user_id", user.ID.Hex()), zap.Error(err))
				return
			}
			resets++
		case gap == 1 && user.EmailConfirmed:
			message := queue.NewStreakWarning(user.Email, user.Username, streak.Current)
			if err := enqueue(message); err != nil {
				logger.Warn("failed to enqueue streak warning",
					zap.String("user_id", user.ID.Hex()), zap.Error(err))
			} else {
				warnings++
			}
		}
	}

	if !user.EmailConfirmed {
		return
	}

	habits, err := store.FindHabitsByUser(ctx, user.ID)
	if err != nil {
		logger.Warn("failed to list habits for reminder sweep",
			zap.String("user_id", user.ID.Hex()), zap.Error(err))
		return
	}

	for i := range habits {
		h := &habits[i]
		if !h.IsActive || h.Stats.CurrentStreak < reminderStreakFloor {
			continue
		}
		if completedOn(h, today) {
			continue
		}
		message := queue.NewHabitReminder(user.Email, user.Username, h.Title)
		if err := enqueue(message); err != nil {
			logger.Warn("failed to enqueue habit reminder",
				zap.String("user_id", user.ID.Hex()),
				zap.String("habit_id", h.ID.Hex()), zap.Error(err))
			continue
		}
		reminders++
	}
	return
}

func completedOn(habit *models.Habit, date gamification.CalendarDate) bool {
	for _, c := range habit.Completions {
		if gamification.DateOf(c.Date) == date {
			return true
		}
	}
	return false
}
