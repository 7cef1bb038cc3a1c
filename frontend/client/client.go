package client

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/form3tech-oss/jwt-go"
	"github.com/savepoint/savepoint/backend/models"
	"github.com/zalando/go-keyring"
)

// KeyringKey is used to store and retrieve the JWT token from the system keyring.
var KeyringKey string

// RefreshKeyringKey is used to store and retrieve the refresh token from the system keyring.
var RefreshKeyringKey string

// ServerURL is the URL of the server the client is connecting to.
var ServerURL string

// client is the HTTP client used to make requests to the server.
var client = &http.Client{}

// KeyringService is the name of the service in the system keyring where the tokens are stored.
const KeyringService = "SavePoint"

// ErrSessionExpired is returned when the refresh token no longer works and the
// user has to sign in again.
var ErrSessionExpired = errors.New("session expired")

// TokenResult holds the token pair returned by the auth endpoints.
type TokenResult struct {
	Token        string `json:"token"`
	RefreshToken string `json:"refresh_token"`
}

// ProgressSnapshot mirrors the payload of GET /me.
type ProgressSnapshot struct {
	Points         int                `json:"points"`
	Level          int                `json:"level"`
	LevelProgress  LevelProgress      `json:"level_progress"`
	Streak         models.StreakState `json:"streak"`
	Badges         []models.Badge     `json:"badges"`
	ActiveHabits   int                `json:"active_habits"`
	CompletedToday int                `json:"completed_today"`
	TasksOpen      int                `json:"tasks_open"`
	TasksCompleted int                `json:"tasks_completed"`
}

// LevelProgress mirrors the level progress part of GET /me.
type LevelProgress struct {
	Level         int     `json:"level"`
	PointsInLevel int     `json:"points_in_level"`
	PointsNeeded  int     `json:"points_needed"`
	Percentage    float64 `json:"percentage"`
}

// CompleteResult mirrors the payload of POST /habits/{id}/complete.
type CompleteResult struct {
	Habit         models.Habit   `json:"habit"`
	PointsAwarded int            `json:"points_awarded"`
	NewBadges     []models.Badge `json:"new_badges"`
}

// TransitionResult mirrors the payload of POST /tasks/{id}/transition.
type TransitionResult struct {
	Task          models.Task    `json:"task"`
	PointsAwarded int            `json:"points_awarded"`
	NewBadges     []models.Badge `json:"new_badges"`
}

// InitClient initializes the client's server URL and keyring keys.
// This function must be called before using any other function in the package.
func InitClient(serverURL, authToken, authTokenRefresh string) {
	ServerURL = serverURL
	KeyringKey = authToken
	RefreshKeyringKey = authTokenRefresh
}

// IsSignedIn reports whether a token is stored in the keyring.
func IsSignedIn() bool {
	_, err := keyring.Get(KeyringService, KeyringKey)
	return err == nil
}

// ClearKeyring clears the JWT token and refresh token from the system keyring atomically.
func ClearKeyring() error {
	accessToken, err := keyring.Get(KeyringService, KeyringKey)
	if err != nil {
		return errors.New("failed to retrieve access token from keyring: " + err.Error())
	}

	if err := keyring.Delete(KeyringService, KeyringKey); err != nil {
		return errors.New("failed to delete access token from keyring: " + err.Error())
	}

	if err := keyring.Delete(KeyringService, RefreshKeyringKey); err != nil {
		keyring.Set(KeyringService, KeyringKey, accessToken)
		return errors.New("failed to delete refresh token from keyring: " + err.Error())
	}

	return nil
}

// userIDFromToken extracts the user id claim from a stored token without
// verifying the signature; the server does its own verification on every call.
func userIDFromToken(tokenStr string) (string, error) {
	claims := jwt.MapClaims{}
	if _, _, err := new(jwt.Parser).ParseUnverified(tokenStr, claims); err != nil {
		return "", err
	}
	id, ok := claims["id"].(string)
	if !ok {
		return "", errors.New("token carries no user id")
	}
	return id, nil
}

// storeTokens writes a token pair to the keyring atomically.
func storeTokens(result *TokenResult) error {
	if err := keyring.Set(KeyringService, KeyringKey, result.Token); err != nil {
		return err
	}
	if result.RefreshToken != "" {
		if err := keyring.Set(KeyringService, RefreshKeyringKey, result.RefreshToken); err != nil {
			keyring.Delete(KeyringService, KeyringKey)
			return err
		}
	}
	return nil
}

// sendRequest performs one JSON request against the server. When authenticated
// is true the stored token is attached, and a 401 triggers one refresh attempt
// before the request is retried.
func sendRequest(method, path string, authenticated bool, body interface{}, out interface{}) error {
	doOnce := func(token string) (*http.Response, error) {
		var reqBody io.Reader
		if body != nil {
			marshaled, err := json.Marshal(body)
			if err != nil {
				return nil, fmt.Errorf("failed to create request: %w", err)
			}
			reqBody = bytes.NewBuffer(marshaled)
		}

		req, err := http.NewRequest(method, ServerURL+path, reqBody)
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		return client.Do(req)
	}

	var token string
	if authenticated {
		var err error
		token, err = keyring.Get(KeyringService, KeyringKey)
		if err != nil {
			return errors.New("no user is currently signed in")
		}
	}

	resp, err := doOnce(token)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}

	if authenticated && resp.StatusCode == http.StatusUnauthorized {
		resp.Body.Close()
		token, err = refreshAccessToken(token)
		if err != nil {
			return err
		}
		resp, err = doOnce(token)
		if err != nil {
			return fmt.Errorf("request failed: %w", err)
		}
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	if resp.StatusCode >= 400 {
		var errorBody struct {
			Error string `json:"error"`
		}
		if err := json.Unmarshal(bodyBytes, &errorBody); err == nil && errorBody.Error != "" {
			return errors.New(errorBody.Error)
		}
		return fmt.Errorf("server returned status %d", resp.StatusCode)
	}

	if out != nil && len(bodyBytes) > 0 {
		return json.Unmarshal(bodyBytes, out)
	}
	return nil
}

// refreshAccessToken trades the stored refresh token for a new token pair.
// When the refresh token is itself rejected, the keyring is cleared and
// ErrSessionExpired is returned.
func refreshAccessToken(oldToken string) (string, error) {
	refreshToken, err := keyring.Get(KeyringService, RefreshKeyringKey)
	if err != nil {
		return "", ErrSessionExpired
	}
	userID, err := userIDFromToken(oldToken)
	if err != nil {
		return "", ErrSessionExpired
	}

	var result TokenResult
	err = sendRequest(http.MethodPost, "/auth/refresh", false, map[string]string{
		"user_id":       userID,
		"refresh_token": refreshToken,
	}, &result)
	if err != nil {
		ClearKeyring()
		return "", ErrSessionExpired
	}

	if err := storeTokens(&result); err != nil {
		return "", err
	}
	return result.Token, nil
}

// SignUp registers a new account and stores the returned token pair.
func SignUp(username, email, password string) error {
	if IsSignedIn() {
		return errors.New("a user is already signed in")
	}

	var result TokenResult
	err := sendRequest(http.MethodPost, "/auth/signup", false, map[string]string{
		"username": username,
		"email":    email,
		"password": password,
	}, &result)
	if err != nil {
		return err
	}
	return storeTokens(&result)
}

// SignIn authenticates and stores the returned token pair. It reports whether
// the account's email is confirmed.
func SignIn(username, password string) (bool, error) {
	if IsSignedIn() {
		return false, errors.New("a user is already signed in")
	}

	var result struct {
		TokenResult
		EmailConfirmed bool `json:"email_confirmed"`
	}
	err := sendRequest(http.MethodPost, "/auth/signin", false, map[string]string{
		"username": username,
		"password": password,
	}, &result)
	if err != nil {
		return false, err
	}
	if err := storeTokens(&result.TokenResult); err != nil {
		return false, err
	}
	return result.EmailConfirmed, nil
}

// SignOut clears the stored tokens. Tokens are stateless on the server, so
// nothing else is needed.
func SignOut() error {
	if !IsSignedIn() {
		return errors.New("no user is currently signed in")
	}
	return ClearKeyring()
}

// ConfirmEmail confirms the account with the token sent by email.
func ConfirmEmail(confirmationToken string) error {
	return sendRequest(http.MethodPost, "/auth/confirm", true, map[string]string{
		"token": confirmationToken,
	}, nil)
}

// UpdateUser updates the account's username, email, or password.
func UpdateUser(currentPassword, newUsername, newEmail, newPassword string) error {
	return sendRequest(http.MethodPut, "/me", true, map[string]string{
		"current_password": currentPassword,
		"new_username":     newUsername,
		"new_email":        newEmail,
		"new_password":     newPassword,
	}, nil)
}

// DeleteUser deletes the account and clears the stored tokens.
func DeleteUser() error {
	if err := sendRequest(http.MethodDelete, "/me", true, nil, nil); err != nil {
		return err
	}
	return ClearKeyring()
}

// GetProgress fetches the user's progress snapshot.
func GetProgress() (*ProgressSnapshot, error) {
	var snapshot ProgressSnapshot
	if err := sendRequest(http.MethodGet, "/me", true, nil, &snapshot); err != nil {
		return nil, err
	}
	return &snapshot, nil
}

// ListHabits fetches the user's habits.
func ListHabits() ([]models.Habit, error) {
	var habits []models.Habit
	if err := sendRequest(http.MethodGet, "/habits", true, nil, &habits); err != nil {
		return nil, err
	}
	return habits, nil
}

// CreateHabit creates a new habit.
func CreateHabit(title, category, frequency, icon string) (*models.Habit, error) {
	var habit models.Habit
	err := sendRequest(http.MethodPost, "/habits", true, map[string]string{
		"title":     title,
		"category":  category,
		"frequency": frequency,
		"icon":      icon,
	}, &habit)
	if err != nil {
		return nil, err
	}
	return &habit, nil
}

// CompleteHabit records a completion for the habit. date may be empty for
// today; note and mood are optional.
func CompleteHabit(habitID, date, note, mood string) (*CompleteResult, error) {
	body := map[string]string{}
	if date != "" {
		body["date"] = date
	}
	if note != "" {
		body["note"] = note
	}
	if mood != "" {
		body["mood"] = mood
	}

	var result CompleteResult
	err := sendRequest(http.MethodPost, "/habits/"+habitID+"/complete", true, body, &result)
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// UncompleteHabit reverses a completion. date may be empty for today.
func UncompleteHabit(habitID, date string) error {
	path := "/habits/" + habitID + "/complete"
	if date != "" {
		path += "?date=" + date
	}
	return sendRequest(http.MethodDelete, path, true, nil, nil)
}

// DeactivateHabit retires a habit without deleting its history.
func DeactivateHabit(habitID string) error {
	return sendRequest(http.MethodPatch, "/habits/"+habitID, true, map[string]bool{
		"is_active": false,
	}, nil)
}

// DeleteHabit removes a habit and its history.
func DeleteHabit(habitID string) error {
	return sendRequest(http.MethodDelete, "/habits/"+habitID, true, nil, nil)
}

// ListTasks fetches the user's tasks.
func ListTasks() ([]models.Task, error) {
	var tasks []models.Task
	if err := sendRequest(http.MethodGet, "/tasks", true, nil, &tasks); err != nil {
		return nil, err
	}
	return tasks, nil
}

// CreateTask creates a new task.
func CreateTask(title, description, priority, category string) (*models.Task, error) {
	var task models.Task
	err := sendRequest(http.MethodPost, "/tasks", true, map[string]string{
		"title":       title,
		"description": description,
		"priority":    priority,
		"category":    category,
	}, &task)
	if err != nil {
		return nil, err
	}
	return &task, nil
}

// TransitionTask moves a task to a new status.
func TransitionTask(taskID, status string) (*TransitionResult, error) {
	var result TransitionResult
	err := sendRequest(http.MethodPost, "/tasks/"+taskID+"/transition", true, map[string]string{
		"status": status,
	}, &result)
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// DeleteTask removes a task.
func DeleteTask(taskID string) error {
	return sendRequest(http.MethodDelete, "/tasks/"+taskID, true, nil, nil)
}

// ListAchievements fetches the achievement catalog.
func ListAchievements() ([]models.Achievement, error) {
	var catalog []models.Achievement
	if err := sendRequest(http.MethodGet, "/achievements", true, nil, &catalog); err != nil {
		return nil, err
	}
	return catalog, nil
}
