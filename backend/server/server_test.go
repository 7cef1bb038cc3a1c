package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/savepoint/savepoint/backend/gamification"
	"github.com/savepoint/savepoint/backend/habits"
	"github.com/savepoint/savepoint/backend/models"
	"github.com/savepoint/savepoint/backend/progress"
	"github.com/savepoint/savepoint/backend/server/auth"
	"github.com/savepoint/savepoint/backend/tasks"
	cache "github.com/savepoint/savepoint/backend/storage/cache"
	storage "github.com/savepoint/savepoint/backend/storage/persistent"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// setupServer wires every service against in-memory backends and returns a
// ready router plus the backing store for direct state inspection.
func setupServer(t *testing.T) (http.Handler, *storage.MemoryStorage) {
	t.Helper()
	mem := storage.NewMemoryStorage()
	catalog := gamification.DefaultCatalog()
	require.NoError(t, mem.SeedAchievements(context.Background(), catalog))

	log := zap.NewNop()
	habits.Init(mem, log, catalog)
	tasks.Init(mem, log, catalog)
	progress.Init(mem, cache.NewMemoryCache(), log)
	auth.InitAuth(mem, "test-signing-key", nil, log)
	Init(mem, log)

	return Router(), mem
}

func doJSON(t *testing.T, router http.Handler, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var payload map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	return payload
}

func signUp(t *testing.T, router http.Handler) string {
	t.Helper()
	rec := doJSON(t, router, http.MethodPost, "/auth/signup", "", map[string]string{
		"username": "player",
		"email":    "player@example.com",
		"password": "password1",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decodeBody(t, rec)["token"].(string)
}

func TestHealthz(t *testing.T) {
	router, _ := setupServer(t)
	rec := doJSON(t, router, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	router, _ := setupServer(t)

	rec := doJSON(t, router, http.MethodGet, "/habits", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = doJSON(t, router, http.MethodGet, "/habits", "not-a-jwt", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestSignUpAndSignIn(t *testing.T) {
	router, _ := setupServer(t)
	signUp(t, router)

	rec := doJSON(t, router, http.MethodPost, "/auth/signin", "", map[string]string{
		"username": "player",
		"password": "password1",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.NotEmpty(t, body["token"])
	assert.Equal(t, false, body["email_confirmed"])

	rec = doJSON(t, router, http.MethodPost, "/auth/signin", "", map[string]string{
		"username": "player",
		"password": "wrongpass1",
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestHabitLifecycleOverHTTP(t *testing.T) {
	router, _ := setupServer(t)
	token := signUp(t, router)

	rec := doJSON(t, router, http.MethodPost, "/habits", token, map[string]interface{}{
		"title":    "Inbox zero",
		"category": "productivity",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	habitID := decodeBody(t, rec)["id"].(string)

	rec = doJSON(t, router, http.MethodPost, fmt.Sprintf("/habits/%s/complete", habitID), token, map[string]string{})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	result := decodeBody(t, rec)
	assert.Equal(t, float64(12), result["points_awarded"])

	// Completing the same day again conflicts.
	rec = doJSON(t, router, http.MethodPost, fmt.Sprintf("/habits/%s/complete", habitID), token, map[string]string{})
	assert.Equal(t, http.StatusConflict, rec.Code)

	// The profile reflects the award (cache was invalidated by the mutation).
	rec = doJSON(t, router, http.MethodGet, "/me", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	me := decodeBody(t, rec)
	assert.GreaterOrEqual(t, me["points"].(float64), float64(12))
	assert.Equal(t, float64(1), me["completed_today"])

	// Undo, then the retry succeeds.
	rec = doJSON(t, router, http.MethodDelete, fmt.Sprintf("/habits/%s/complete", habitID), token, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = doJSON(t, router, http.MethodDelete, fmt.Sprintf("/habits/%s/complete", habitID), token, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = doJSON(t, router, http.MethodGet, "/habits", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestHabitBadDateOverHTTP(t *testing.T) {
	router, _ := setupServer(t)
	token := signUp(t, router)

	rec := doJSON(t, router, http.MethodPost, "/habits", token, map[string]interface{}{
		"title":    "Journal",
		"category": "mindfulness",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	habitID := decodeBody(t, rec)["id"].(string)

	// A future date is semantically invalid, not malformed.
	rec = doJSON(t, router, http.MethodPost, fmt.Sprintf("/habits/%s/complete", habitID), token, map[string]string{
		"date": "2999-01-01",
	})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	// A malformed date fails shape validation.
	rec = doJSON(t, router, http.MethodPost, fmt.Sprintf("/habits/%s/complete", habitID), token, map[string]string{
		"date": "01/01/2024",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTaskLifecycleOverHTTP(t *testing.T) {
	router, _ := setupServer(t)
	token := signUp(t, router)

	rec := doJSON(t, router, http.MethodPost, "/tasks", token, map[string]interface{}{
		"title":    "Ship release",
		"priority": "high",
		"subtasks": []string{"tag", "announce"},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	taskID := decodeBody(t, rec)["id"].(string)

	rec = doJSON(t, router, http.MethodPatch, fmt.Sprintf("/tasks/%s/subtasks/0", taskID), token, map[string]bool{
		"completed": true,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = doJSON(t, router, http.MethodPost, fmt.Sprintf("/tasks/%s/transition", taskID), token, map[string]string{
		"status": "in-progress",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, float64(5), decodeBody(t, rec)["points_awarded"])

	rec = doJSON(t, router, http.MethodPost, fmt.Sprintf("/tasks/%s/transition", taskID), token, map[string]string{
		"status": "completed",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, float64(20), decodeBody(t, rec)["points_awarded"])

	// Already completed: the transition conflicts.
	rec = doJSON(t, router, http.MethodPost, fmt.Sprintf("/tasks/%s/transition", taskID), token, map[string]string{
		"status": "completed",
	})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestConfirmEmailOverHTTP(t *testing.T) {
	router, mem := setupServer(t)
	token := signUp(t, router)
	ctx := context.Background()

	user, err := mem.FindUserByUsername(ctx, "player")
	require.NoError(t, err)

	// Wrong-length tokens never reach the auth service.
	rec := doJSON(t, router, http.MethodPost, "/auth/confirm", token, map[string]string{
		"token": "ABCDE",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Replace the random token with a known six character one.
	confirmation, err := mem.FindConfirmationByUser(ctx, user.ID)
	require.NoError(t, err)
	hashed, err := bcrypt.GenerateFromPassword([]byte("QZ7A2B"), bcrypt.DefaultCost)
	require.NoError(t, err)
	require.NoError(t, mem.DeleteConfirmation(ctx, confirmation.ID))
	_, err = mem.AddConfirmation(ctx, &models.Confirmation{
		UserID:            user.ID,
		ConfirmationToken: string(hashed),
		ExpiresAt:         time.Now().Add(time.Hour),
	})
	require.NoError(t, err)

	rec = doJSON(t, router, http.MethodPost, "/auth/confirm", token, map[string]string{
		"token": "QZ7A2B",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, true, decodeBody(t, rec)["email_confirmed"])

	rec = doJSON(t, router, http.MethodPost, "/auth/signin", "", map[string]string{
		"username": "player",
		"password": "password1",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, decodeBody(t, rec)["email_confirmed"])
}

func TestAchievementsEndpoint(t *testing.T) {
	router, _ := setupServer(t)
	token := signUp(t, router)

	rec := doJSON(t, router, http.MethodGet, "/achievements", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var catalog []map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &catalog))
	assert.Len(t, catalog, 13)
}

func TestUnknownHabitIs404(t *testing.T) {
	router, _ := setupServer(t)
	token := signUp(t, router)

	rec := doJSON(t, router, http.MethodGet, "/habits/64a1f0c2e5b4a1d2c3b4a5f6", token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doJSON(t, router, http.MethodGet, "/habits/not-an-id", token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
