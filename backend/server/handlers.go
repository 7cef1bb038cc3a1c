package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/savepoint/savepoint/backend/gamification"
	"github.com/savepoint/savepoint/backend/habits"
	"github.com/savepoint/savepoint/backend/models"
	"github.com/savepoint/savepoint/backend/progress"
	"github.com/savepoint/savepoint/backend/server/auth"
	"github.com/savepoint/savepoint/backend/tasks"
	"github.com/savepoint/savepoint/lib/errs"
	"github.com/savepoint/savepoint/lib/metrics"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		json.NewEncoder(w).Encode(v)
	}
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// writeError maps service errors onto HTTP statuses. Conflicting state changes
// are 409, semantically invalid dates 422, everything unexpected a logged 500.
func writeError(w http.ResponseWriter, logger *zap.Logger, err error) {
	switch {
	case errors.Is(err, errs.ErrValidation):
		writeJSONError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, errs.ErrNotAuthorized):
		writeJSONError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, errs.ErrNotFound):
		writeJSONError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, errs.ErrAlreadyCompleted),
		errors.Is(err, errs.ErrNotCompleted),
		errors.Is(err, errs.ErrInvalidTransition):
		writeJSONError(w, http.StatusConflict, err.Error())
	case errors.Is(err, errs.ErrInvalidDate):
		writeJSONError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		logger.Error("unhandled request error", zap.Error(err))
		writeJSONError(w, http.StatusInternalServerError, "internal server error")
	}
}

func pathID(r *http.Request, name string) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(mux.Vars(r)[name])
	if err != nil {
		return primitive.NilObjectID, errs.ErrNotFound
	}
	return id, nil
}

// Auth handlers.

func handleSignUp(w http.ResponseWriter, r *http.Request) {
	var req signUpRequest
	if err := decodeRequest(r, &req); err != nil {
		writeError(w, logger, err)
		return
	}
	token, refreshToken, err := auth.SignUp(r.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		writeError(w, logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{
		"token":         token,
		"refresh_token": refreshToken,
	})
}

func handleSignIn(w http.ResponseWriter, r *http.Request) {
	var req signInRequest
	if err := decodeRequest(r, &req); err != nil {
		writeError(w, logger, err)
		return
	}
	token, refreshToken, confirmed, err := auth.SignIn(r.Context(), req.Username, req.Password)
	if err != nil {
		writeError(w, logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"token":           token,
		"refresh_token":   refreshToken,
		"email_confirmed": confirmed,
	})
}

func handleRefresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := decodeRequest(r, &req); err != nil {
		writeError(w, logger, err)
		return
	}
	token, refreshToken, err := auth.RefreshToken(req.UserID, req.RefreshToken)
	if err != nil {
		writeError(w, logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"token":         token,
		"refresh_token": refreshToken,
	})
}

func handleConfirmEmail(w http.ResponseWriter, r *http.Request) {
	userID, _ := userIDFrom(r)
	var req confirmEmailRequest
	if err := decodeRequest(r, &req); err != nil {
		writeError(w, logger, err)
		return
	}
	if err := auth.ConfirmEmail(r.Context(), userID.Hex(), req.Token); err != nil {
		writeError(w, logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"email_confirmed": true})
}

// User handlers.

func handleGetMe(w http.ResponseWriter, r *http.Request) {
	userID, _ := userIDFrom(r)
	snapshot, err := progress.Get(r.Context(), userID, zeroTime)
	if err != nil {
		writeError(w, logger, err)
		return
	}
	writeJSON(w, http.StatusOK, snapshot)
}

func handleUpdateMe(w http.ResponseWriter, r *http.Request) {
	userID, _ := userIDFrom(r)
	var req updateUserRequest
	if err := decodeRequest(r, &req); err != nil {
		writeError(w, logger, err)
		return
	}
	confirmed, err := auth.UpdateUser(r.Context(), userID.Hex(), req.CurrentPassword, req.NewUsername, req.NewEmail, req.NewPassword)
	if err != nil {
		writeError(w, logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"email_confirmed": confirmed})
}

func handleDeleteMe(w http.ResponseWriter, r *http.Request) {
	userID, _ := userIDFrom(r)
	if err := auth.DeleteUser(r.Context(), userID.Hex()); err != nil {
		writeError(w, logger, err)
		return
	}
	progress.Invalidate(r.Context(), userID)
	writeJSON(w, http.StatusNoContent, nil)
}

// Habit handlers.

func handleListHabits(w http.ResponseWriter, r *http.Request) {
	userID, _ := userIDFrom(r)
	list, err := habits.List(r.Context(), userID)
	if err != nil {
		writeError(w, logger, err)
		return
	}
	if list == nil {
		list = []models.Habit{}
	}
	writeJSON(w, http.StatusOK, list)
}

func handleCreateHabit(w http.ResponseWriter, r *http.Request) {
	userID, _ := userIDFrom(r)
	var req createHabitRequest
	if err := decodeRequest(r, &req); err != nil {
		writeError(w, logger, err)
		return
	}
	habit, err := habits.Create(r.Context(), userID, habits.CreateInput{
		Title:     req.Title,
		Category:  models.Category(req.Category),
		Frequency: models.Frequency(req.Frequency),
		Icon:      req.Icon,
		Order:     req.Order,
	})
	if err != nil {
		writeError(w, logger, err)
		return
	}
	progress.Invalidate(r.Context(), userID)
	writeJSON(w, http.StatusCreated, habit)
}

func handleGetHabit(w http.ResponseWriter, r *http.Request) {
	userID, _ := userIDFrom(r)
	habitID, err := pathID(r, "id")
	if err != nil {
		writeError(w, logger, err)
		return
	}
	habit, err := habits.Get(r.Context(), userID, habitID)
	if err != nil {
		writeError(w, logger, err)
		return
	}
	writeJSON(w, http.StatusOK, habit)
}

func handleUpdateHabit(w http.ResponseWriter, r *http.Request) {
	userID, _ := userIDFrom(r)
	habitID, err := pathID(r, "id")
	if err != nil {
		writeError(w, logger, err)
		return
	}
	var req updateHabitRequest
	if err := decodeRequest(r, &req); err != nil {
		writeError(w, logger, err)
		return
	}
	in := habits.UpdateInput{
		Title:    req.Title,
		Icon:     req.Icon,
		Order:    req.Order,
		IsActive: req.IsActive,
	}
	if req.Category != nil {
		category := models.Category(*req.Category)
		in.Category = &category
	}
	if req.Frequency != nil {
		frequency := models.Frequency(*req.Frequency)
		in.Frequency = &frequency
	}
	habit, err := habits.Update(r.Context(), userID, habitID, in)
	if err != nil {
		writeError(w, logger, err)
		return
	}
	progress.Invalidate(r.Context(), userID)
	writeJSON(w, http.StatusOK, habit)
}

func handleDeleteHabit(w http.ResponseWriter, r *http.Request) {
	userID, _ := userIDFrom(r)
	habitID, err := pathID(r, "id")
	if err != nil {
		writeError(w, logger, err)
		return
	}
	if err := habits.Delete(r.Context(), userID, habitID); err != nil {
		writeError(w, logger, err)
		return
	}
	progress.Invalidate(r.Context(), userID)
	writeJSON(w, http.StatusNoContent, nil)
}

func handleCompleteHabit(w http.ResponseWriter, r *http.Request) {
	userID, _ := userIDFrom(r)
	habitID, err := pathID(r, "id")
	if err != nil {
		writeError(w, logger, err)
		return
	}
	var req completeHabitRequest
	if err := decodeRequest(r, &req); err != nil {
		writeError(w, logger, err)
		return
	}

	opts := habits.CompleteOptions{Note: req.Note, Mood: models.Mood(req.Mood)}
	if req.Date != "" {
		date, err := gamification.ParseDate(req.Date)
		if err != nil {
			writeError(w, logger, err)
			return
		}
		opts.Date = date
	}

	result, err := habits.Complete(r.Context(), userID, habitID, opts)
	if err != nil {
		writeError(w, logger, err)
		return
	}

	metrics.HabitCompletionsTotal.Inc()
	metrics.PointsAwardedTotal.Add(float64(result.PointsAwarded))
	metrics.BadgesAwardedTotal.Add(float64(len(result.NewBadges)))
	progress.Invalidate(r.Context(), userID)
	writeJSON(w, http.StatusOK, result)
}

func handleUncompleteHabit(w http.ResponseWriter, r *http.Request) {
	userID, _ := userIDFrom(r)
	habitID, err := pathID(r, "id")
	if err != nil {
		writeError(w, logger, err)
		return
	}

	var date gamification.CalendarDate
	if raw := r.URL.Query().Get("date"); raw != "" {
		date, err = gamification.ParseDate(raw)
		if err != nil {
			writeError(w, logger, err)
			return
		}
	}

	result, err := habits.Uncomplete(r.Context(), userID, habitID, date, zeroTime)
	if err != nil {
		writeError(w, logger, err)
		return
	}
	progress.Invalidate(r.Context(), userID)
	writeJSON(w, http.StatusOK, result)
}

// Task handlers.

func handleListTasks(w http.ResponseWriter, r *http.Request) {
	userID, _ := userIDFrom(r)
	list, err := tasks.List(r.Context(), userID)
	if err != nil {
		writeError(w, logger, err)
		return
	}
	if list == nil {
		list = []models.Task{}
	}
	writeJSON(w, http.StatusOK, list)
}

func handleCreateTask(w http.ResponseWriter, r *http.Request) {
	userID, _ := userIDFrom(r)
	var req createTaskRequest
	if err := decodeRequest(r, &req); err != nil {
		writeError(w, logger, err)
		return
	}
	task, err := tasks.Create(r.Context(), userID, tasks.CreateInput{
		Title:         req.Title,
		Description:   req.Description,
		Priority:      models.Priority(req.Priority),
		Category:      models.Category(req.Category),
		DueDate:       req.DueDate,
		EstimatedTime: req.EstimatedTime,
		Subtasks:      req.Subtasks,
	})
	if err != nil {
		writeError(w, logger, err)
		return
	}
	progress.Invalidate(r.Context(), userID)
	writeJSON(w, http.StatusCreated, task)
}

func handleGetTask(w http.ResponseWriter, r *http.Request) {
	userID, _ := userIDFrom(r)
	taskID, err := pathID(r, "id")
	if err != nil {
		writeError(w, logger, err)
		return
	}
	task, err := tasks.Get(r.Context(), userID, taskID)
	if err != nil {
		writeError(w, logger, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

func handleUpdateTask(w http.ResponseWriter, r *http.Request) {
	userID, _ := userIDFrom(r)
	taskID, err := pathID(r, "id")
	if err != nil {
		writeError(w, logger, err)
		return
	}
	var req updateTaskRequest
	if err := decodeRequest(r, &req); err != nil {
		writeError(w, logger, err)
		return
	}
	in := tasks.UpdateInput{
		Title:         req.Title,
		Description:   req.Description,
		DueDate:       req.DueDate,
		ClearDueDate:  req.ClearDueDate,
		EstimatedTime: req.EstimatedTime,
	}
	if req.Priority != nil {
		priority := models.Priority(*req.Priority)
		in.Priority = &priority
	}
	if req.Category != nil {
		category := models.Category(*req.Category)
		in.Category = &category
	}
	task, err := tasks.Update(r.Context(), userID, taskID, in)
	if err != nil {
		writeError(w, logger, err)
		return
	}
	progress.Invalidate(r.Context(), userID)
	writeJSON(w, http.StatusOK, task)
}

func handleDeleteTask(w http.ResponseWriter, r *http.Request) {
	userID, _ := userIDFrom(r)
	taskID, err := pathID(r, "id")
	if err != nil {
		writeError(w, logger, err)
		return
	}
	if err := tasks.Delete(r.Context(), userID, taskID); err != nil {
		writeError(w, logger, err)
		return
	}
	progress.Invalidate(r.Context(), userID)
	writeJSON(w, http.StatusNoContent, nil)
}

func handleTransitionTask(w http.ResponseWriter, r *http.Request) {
	userID, _ := userIDFrom(r)
	taskID, err := pathID(r, "id")
	if err != nil {
		writeError(w, logger, err)
		return
	}
	var req transitionTaskRequest
	if err := decodeRequest(r, &req); err != nil {
		writeError(w, logger, err)
		return
	}
	result, err := tasks.Transition(r.Context(), userID, taskID, models.TaskStatus(req.Status), zeroTime)
	if err != nil {
		writeError(w, logger, err)
		return
	}

	if result.Task.Status == models.StatusCompleted {
		metrics.TaskCompletionsTotal.Inc()
	}
	metrics.PointsAwardedTotal.Add(float64(result.PointsAwarded))
	metrics.BadgesAwardedTotal.Add(float64(len(result.NewBadges)))
	progress.Invalidate(r.Context(), userID)
	writeJSON(w, http.StatusOK, result)
}

func handleSetSubtask(w http.ResponseWriter, r *http.Request) {
	userID, _ := userIDFrom(r)
	taskID, err := pathID(r, "id")
	if err != nil {
		writeError(w, logger, err)
		return
	}
	index, err := strconv.Atoi(mux.Vars(r)["index"])
	if err != nil {
		writeError(w, logger, errs.ErrNotFound)
		return
	}
	var req setSubtaskRequest
	if err := decodeRequest(r, &req); err != nil {
		writeError(w, logger, err)
		return
	}
	task, err := tasks.SetSubtask(r.Context(), userID, taskID, index, req.Completed)
	if err != nil {
		writeError(w, logger, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

// Achievement handlers.

func handleListAchievements(w http.ResponseWriter, r *http.Request) {
	catalog, err := store.ListAchievements(r.Context())
	if err != nil {
		writeError(w, logger, err)
		return
	}
	writeJSON(w, http.StatusOK, catalog)
}

func handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
