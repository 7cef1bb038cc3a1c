package tasks

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

var (
	store   storage.StorageInterface
	logger  *zap.Logger
	catalog []models.Achievement
)

// Init sets up the task service with its storage backend, logger, and the
// achievement catalog evaluated after task completions. Must be called before
// any other function in this package.
func Init(s storage.StorageInterface, l *zap.Logger, c []models.Achievement) {
	store = s
	logger = l
	catalog = c
}

// allowedTransitions is the task state machine. Completed tasks can only be
// reopened to todo; everything else moves freely between todo and in-progress
// and forward to completed.
var allowedTransitions = map[models.TaskStatus][]models.TaskStatus{
	models.StatusTodo:       {models.StatusInProgress, models.StatusCompleted},
	models.StatusInProgress: {models.StatusTodo, models.StatusCompleted},
	models.StatusCompleted:  {models.StatusTodo},
}

func transitionAllowed(from, to models.TaskStatus) bool {
	for _, next := range allowedTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// CreateInput carries the caller-supplied fields of a new task.
type CreateInput struct {
	Title         string
	Description   string
	Priority      models.Priority
	Category      models.Category
	DueDate       *time.Time
	EstimatedTime int
	Subtasks      []string
}

// UpdateInput carries the mutable task fields. Nil pointers leave the field
// unchanged. Status is not editable here; it only moves through Transition.
type UpdateInput struct {
	Title         *string
	Description   *string
	Priority      *models.Priority
	Category      *models.Category
	DueDate       *time.Time
	ClearDueDate  bool
	EstimatedTime *int
}

// TransitionResult reports a status change and any XP it produced.
type TransitionResult struct {
	Task          *models.Task                  `json:"task"`
	PointsAwarded int                           `json:"points_awarded"`
	Score         *gamification.CompletionScore `json:"score,omitempty"`
	NewBadges     []models.Badge                `json:"new_badges"`
}

// Create validates and stores a new task in the todo state.
func Create(ctx context.Context, userID primitive.ObjectID, in CreateInput) (*models.Task, error) {
	if in.Title == "" {
		return nil, fmt.Errorf("%w: title must not be empty", errs.ErrValidation)
	}
	if in.Priority == "" {
		in.Priority = models.PriorityMedium
	}
	if !models.ValidPriority(in.Priority) {
		return nil, fmt.Errorf("%w: unknown priority %q", errs.ErrValidation, in.Priority)
	}
	if in.Category != "" && !models.ValidCategory(in.Category) {
		return nil, fmt.Errorf("%w: unknown category %q", errs.ErrValidation, in.Category)
	}

	subtasks := make([]models.Subtask, len(in.Subtasks))
	for i, title := range in.Subtasks {
		if title == "" {
			return nil, fmt.Errorf("%w: subtask title must not be empty", errs.ErrValidation)
		}
		subtasks[i] = models.Subtask{Title: title}
	}

	task := &models.Task{
		UserID:        userID,
		Title:         in.Title,
		Description:   in.Description,
		Status:        models.StatusTodo,
		Priority:      in.Priority,
		Category:      in.Category,
		DueDate:       in.DueDate,
		EstimatedTime: in.EstimatedTime,
		Subtasks:      subtasks,
		CreatedAt:     time.Now().UTC(),
	}

	created, err := store.AddTask(ctx, task)
	if err != nil {
		return nil, err
	}
	logger.Info("task created",
		zap.String("user_id", userID.Hex()),
		zap.String("task_id", created.ID.Hex()),
		zap.String("priority", string(created.Priority)))
	return created, nil
}

// List returns the user's tasks, newest first.
func List(ctx context.Context, userID primitive.ObjectID) ([]models.Task, error) {
	return store.FindTasksByUser(ctx, userID)
}

// Get returns a single task owned by the user.
func Get(ctx context.Context, userID, taskID primitive.ObjectID) (*models.Task, error) {
	return store.FindTask(ctx, taskID, userID)
}

// Update applies the non-nil fields of in to the task.
func Update(ctx context.Context, userID, taskID primitive.ObjectID, in UpdateInput) (*models.Task, error) {
	task, err := store.FindTask(ctx, taskID, userID)
	if err != nil {
		return nil, err
	}

	if in.Title != nil {
		if *in.Title == "" {
			return nil, fmt.Errorf("%w: title must not be empty", errs.ErrValidation)
		}
		task.Title = *in.Title
	}
	if in.Description != nil {
		task.Description = *in.Description
	}
	if in.Priority != nil {
		if !models.ValidPriority(*in.Priority) {
			return nil, fmt.Errorf("%w: unknown priority %q", errs.ErrValidation, *in.Priority)
		}
		task.Priority = *in.Priority
	}
	if in.Category != nil {
		if !models.ValidCategory(*in.Category) {
			return nil, fmt.Errorf("%w: unknown category %q", errs.ErrValidation, *in.Category)
		}
		task.Category = *in.Category
	}
	if in.ClearDueDate {
		task.DueDate = nil
	} else if in.DueDate != nil {
		task.DueDate = in.DueDate
	}
	if in.EstimatedTime != nil {
		task.EstimatedTime = *in.EstimatedTime
	}

	if err := store.ReplaceTask(ctx, task); err != nil {
		return nil, err
	}
	return task, nil
}

// Delete removes a task. Points it already awarded are not clawed back.
func Delete(ctx context.Context, userID, taskID primitive.ObjectID) error {
	return store.DeleteTask(ctx, taskID, userID)
}

// SetSubtask toggles the completion flag of the subtask at index.
func SetSubtask(ctx context.Context, userID, taskID primitive.ObjectID, index int, completed bool) (*models.Task, error) {
	task, err := store.FindTask(ctx, taskID, userID)
	if err != nil {
		return nil, err
	}
	if index < 0 || index >= len(task.Subtasks) {
		return nil, fmt.Errorf("%w: no subtask at index %d", errs.ErrValidation, index)
	}

	task.Subtasks[index].Completed = completed
	if completed {
		at := time.Now().UTC()
		task.Subtasks[index].CompletedAt = &at
	} else {
		task.Subtasks[index].CompletedAt = nil
	}

	if err := store.ReplaceTask(ctx, task); err != nil {
		return nil, err
	}
	return task, nil
}

// Transition moves a task to a new status and applies the XP rules tied to the
// edge being taken. The first move into in-progress pays a small start bonus;
// the first completion pays the deadline-adjusted completion score. Both awards
// are gated by one-way flags on the task, so toggling a task back and forth
// never pays twice. Reopening a completed task clears its completion timestamp
// but deducts nothing.
//
// now exists so tests can pin the clock; zero means time.Now.
func Transition(ctx context.Context, userID, taskID primitive.ObjectID, to models.TaskStatus, now time.Time) (*TransitionResult, error) {
	if now.IsZero() {
		now = time.Now().UTC()
	}
	if !models.ValidStatus(to) {
		return nil, fmt.Errorf("%w: unknown status %q", errs.ErrValidation, to)
	}

	task, err := store.FindTask(ctx, taskID, userID)
	if err != nil {
		return nil, err
	}
	if task.Status == to {
		return nil, fmt.Errorf("%w: task is already %s", errs.ErrInvalidTransition, to)
	}
	if !transitionAllowed(task.Status, to) {
		return nil, fmt.Errorf("%w: cannot move from %s to %s", errs.ErrInvalidTransition, task.Status, to)
	}

	user, err := store.FindUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	result := &TransitionResult{Task: task}
	from := task.Status
	task.Status = to

	switch to {
	case models.StatusInProgress:
		if from == models.StatusTodo && !task.XPAwarded.Start {
			bonus := gamification.StartBonus(task.Priority)
			gamification.AddPoints(&user.Gamification, bonus)
			task.XPAwarded.Start = true
			result.PointsAwarded = bonus
		}
	case models.StatusCompleted:
		task.CompletedAt = &now
		if !task.XPAwarded.Completion {
			score := gamification.ScoreCompletion(task.Priority, task.DueDate, now)
			gamification.AddPoints(&user.Gamification, score.TotalPoints)
			task.XPAwarded.Completion = true
			result.PointsAwarded = score.TotalPoints
			result.Score = &score
		}
	case models.StatusTodo:
		task.CompletedAt = nil
	}

	if to == models.StatusCompleted {
		habits, err := store.FindHabitsByUser(ctx, userID)
		if err != nil {
			return nil, err
		}
		result.NewBadges = gamification.Evaluate(user, habits, gamification.Context{}, catalog, now)
	}

	err = store.WithTransaction(ctx, func(ctx context.Context) error {
		if err := store.ReplaceTask(ctx, task); err != nil {
			return err
		}
		return store.ReplaceUser(ctx, user)
	})
	if err != nil {
		return nil, err
	}

	logger.Info("task transitioned",
		zap.String("user_id", userID.Hex()),
		zap.String("task_id", taskID.Hex()),
		zap.String("from", string(from)),
		zap.String("to", string(to)),
		zap.Int("points", result.PointsAwarded))

	return result, nil
}
