package auth

import (
	"context"
	"crypto/rand"
	"encoding/base32"
	"errors"
	"fmt"
	"time"

	"github.com/form3tech-oss/jwt-go"
	"github.com/savepoint/savepoint/backend/models"
	"github.com/savepoint/savepoint/backend/queue"
	storage "github.com/savepoint/savepoint/backend/storage/persistent"
	"github.com/savepoint/savepoint/lib/errs"
	"github.com/savepoint/savepoint/lib/utils"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const (
	authTokenTTL    = 15 * time.Minute
	refreshTokenTTL = 7 * 24 * time.Hour
	confirmationTTL = 24 * time.Hour
)

// store holds the storage backend the auth system reads and writes users through.
var store storage.StorageInterface

// jwtSigningKey holds the key used for signing and verifying JWT tokens.
var jwtSigningKey string

// reminderQueue carries confirmation emails out of the signup path. May be nil
// in tests, in which case no email is sent.
var reminderQueue *queue.Queue

var logger *zap.Logger

// InitAuth initializes the authentication system with its storage backend, JWT
// signing key, reminder queue, and logger. It must be called before any other
// function in this package.
func InitAuth(s storage.StorageInterface, signingKey string, q *queue.Queue, l *zap.Logger) {
	store = s
	jwtSigningKey = signingKey
	reminderQueue = q
	logger = l
}

// CreateAuthToken creates a short-lived signed JWT carrying the user's id.
func CreateAuthToken(userId string) (string, error) {
	claims := jwt.MapClaims{
		"id":  userId,
		"exp": time.Now().Add(authTokenTTL).Unix(),
	}

	newToken := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signedToken, err := newToken.SignedString([]byte(jwtSigningKey))
	if err != nil {
		return "", errors.New("failed to create auth token")
	}

	return signedToken, nil
}

// CreateRefreshToken creates a long-lived signed JWT used only to mint new
// token pairs through RefreshToken.
func CreateRefreshToken(userId string) (string, error) {
	claims := jwt.MapClaims{
		"id":  userId,
		"exp": time.Now().Add(refreshTokenTTL).Unix(),
	}

	newToken := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signedToken, err := newToken.SignedString([]byte(jwtSigningKey))
	if err != nil {
		return "", errors.New("failed to create refresh token")
	}

	return signedToken, nil
}

// CreateTokens creates an auth token and a refresh token pair for a user.
func CreateTokens(userId string) (string, string, error) {
	authToken, err := CreateAuthToken(userId)
	if err != nil {
		return "", "", err
	}

	refreshToken, err := CreateRefreshToken(userId)
	if err != nil {
		return "", "", err
	}

	return authToken, refreshToken, nil
}

// ParseToken validates a signed JWT and returns the user id it carries.
// Expired or malformed tokens fail with ErrNotAuthorized.
func ParseToken(tokenStr string) (string, error) {
	token, err := jwt.Parse(tokenStr, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(jwtSigningKey), nil
	})
	if err != nil {
		return "", fmt.Errorf("%w: invalid token", errs.ErrNotAuthorized)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return "", fmt.Errorf("%w: invalid token claims", errs.ErrNotAuthorized)
	}

	userId, ok := claims["id"].(string)
	if !ok {
		return "", fmt.Errorf("%w: invalid token claims", errs.ErrNotAuthorized)
	}
	return userId, nil
}

// SignUp registers a new user. It validates the credentials, rejects duplicate
// emails and usernames, hashes the password, stores the user with a fresh game
// state, queues a confirmation email, and returns a token pair for the new
// account.
func SignUp(ctx context.Context, username, email, password string) (string, string, error) {
	if len(username) < 2 {
		return "", "", fmt.Errorf("%w: username must be at least 2 characters", errs.ErrValidation)
	}
	if !utils.ValidateEmail(email) {
		return "", "", fmt.Errorf("%w: invalid email format", errs.ErrValidation)
	}
	if !utils.ValidatePassword(password) {
		return "", "", fmt.Errorf("%w: password must be at least 8 characters and contain both letters and numbers", errs.ErrValidation)
	}

	if _, err := store.FindUserByEmail(ctx, email); err == nil {
		return "", "", fmt.Errorf("%w: an account with this email already exists", errs.ErrValidation)
	} else if !errors.Is(err, errs.ErrNotFound) {
		return "", "", err
	}

	if _, err := store.FindUserByUsername(ctx, username); err == nil {
		return "", "", fmt.Errorf("%w: username is taken", errs.ErrValidation)
	} else if !errors.Is(err, errs.ErrNotFound) {
		return "", "", err
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", "", err
	}

	user := &models.User{
		ID:           primitive.NewObjectID(),
		Username:     username,
		Email:        email,
		PasswordHash: string(hashedPassword),
		Gamification: models.Gamification{
			Level:  1,
			Badges: []models.Badge{},
		},
		CreatedAt: time.Now().UTC(),
	}

	if _, err := store.AddUser(ctx, user); err != nil {
		return "", "", err
	}

	if err := issueConfirmation(ctx, user); err != nil {
		return "", "", err
	}

	logger.Info("user signed up",
		zap.String("user_id", user.ID.Hex()),
		zap.String("username", username))

	return CreateTokens(user.ID.Hex())
}

// confirmationTokenLength is the exact length of a confirmation token. The
// REST layer validates incoming tokens against it.
const confirmationTokenLength = 6

// newConfirmationToken returns a random token of exactly
// confirmationTokenLength base32 characters. Four random bytes encode to 7
// unpadded base32 characters, so the trim always has enough to cut from.
func newConfirmationToken() (string, error) {
	tokenBytes := make([]byte, 4)
	if _, err := rand.Read(tokenBytes); err != nil {
		return "", err
	}
	token := base32.StdEncoding.WithPadding(base32.NoPadding).EncodeToString(tokenBytes)
	return token[:confirmationTokenLength], nil
}

// issueConfirmation generates a short confirmation token, stores its hash with
// an expiry, and queues the email carrying the cleartext token.
func issueConfirmation(ctx context.Context, user *models.User) error {
	confirmationToken, err := newConfirmationToken()
	if err != nil {
		return err
	}

	hashedToken, err := bcrypt.GenerateFromPassword([]byte(confirmationToken), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	confirmation := &models.Confirmation{
		UserID:            user.ID,
		ConfirmationToken: string(hashedToken),
		ExpiresAt:         time.Now().Add(confirmationTTL),
	}
	if _, err := store.AddConfirmation(ctx, confirmation); err != nil {
		return err
	}

	if reminderQueue != nil {
		message := queue.NewConfirmation(user.Email, confirmationToken)
		if err := queue.ProcessReminder(message, reminderQueue); err != nil {
			return err
		}
	}
	return nil
}

// SignIn authenticates a user by username and password and returns a token
// pair plus whether the account's email is confirmed. Unknown usernames and
// wrong passwords fail identically.
func SignIn(ctx context.Context, username, password string) (string, string, bool, error) {
	if len(username) < 2 {
		return "", "", false, fmt.Errorf("%w: invalid username", errs.ErrValidation)
	}

	foundUser, err := store.FindUserByUsername(ctx, username)
	if err != nil {
		return "", "", false, fmt.Errorf("%w: authentication failed", errs.ErrNotAuthorized)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(foundUser.PasswordHash), []byte(password)); err != nil {
		return "", "", false, fmt.Errorf("%w: authentication failed", errs.ErrNotAuthorized)
	}

	token, refreshToken, err := CreateTokens(foundUser.ID.Hex())
	if err != nil {
		return "", "", false, err
	}

	return token, refreshToken, foundUser.EmailConfirmed, nil
}

// RefreshToken validates a refresh token and, when it is valid and belongs to
// the given user, mints a new token pair.
func RefreshToken(userId, refreshToken string) (string, string, error) {
	tokenUserId, err := ParseToken(refreshToken)
	if err != nil {
		return "", "", err
	}
	if tokenUserId != userId {
		return "", "", fmt.Errorf("%w: invalid refresh token", errs.ErrNotAuthorized)
	}
	return CreateTokens(userId)
}

// UpdateUser updates a user's username, email, or password after verifying
// their current password. Changing the email resets its confirmed state and
// queues a fresh confirmation token. It returns whether the email is confirmed
// after the update.
func UpdateUser(ctx context.Context, userId, currentPassword, newUsername, newEmail, newPassword string) (bool, error) {
	objectID, err := primitive.ObjectIDFromHex(userId)
	if err != nil {
		return false, err
	}

	foundUser, err := store.FindUserByID(ctx, objectID)
	if err != nil {
		return false, fmt.Errorf("%w: authentication failed", errs.ErrNotAuthorized)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(foundUser.PasswordHash), []byte(currentPassword)); err != nil {
		return false, fmt.Errorf("%w: authentication failed", errs.ErrNotAuthorized)
	}

	if newUsername == "" && newEmail == "" && newPassword == "" {
		return false, fmt.Errorf("%w: nothing to update", errs.ErrValidation)
	}

	if newUsername != "" {
		if len(newUsername) < 2 {
			return false, fmt.Errorf("%w: username must be at least 2 characters", errs.ErrValidation)
		}
		if _, err := store.FindUserByUsername(ctx, newUsername); err == nil {
			return false, fmt.Errorf("%w: username already in use", errs.ErrValidation)
		} else if !errors.Is(err, errs.ErrNotFound) {
			return false, err
		}
		foundUser.Username = newUsername
	}

	emailChanged := false
	if newEmail != "" && newEmail != foundUser.Email {
		if !utils.ValidateEmail(newEmail) {
			return false, fmt.Errorf("%w: invalid email format", errs.ErrValidation)
		}
		if _, err := store.FindUserByEmail(ctx, newEmail); err == nil {
			return false, fmt.Errorf("%w: email already in use", errs.ErrValidation)
		} else if !errors.Is(err, errs.ErrNotFound) {
			return false, err
		}
		foundUser.Email = newEmail
		foundUser.EmailConfirmed = false
		emailChanged = true
	}

	if newPassword != "" {
		if !utils.ValidatePassword(newPassword) {
			return false, fmt.Errorf("%w: password must be at least 8 characters and contain both letters and numbers", errs.ErrValidation)
		}
		hashedPassword, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
		if err != nil {
			return false, err
		}
		foundUser.PasswordHash = string(hashedPassword)
	}

	if err := store.ReplaceUser(ctx, foundUser); err != nil {
		return false, err
	}

	if emailChanged {
		if err := issueConfirmation(ctx, foundUser); err != nil {
			return false, err
		}
	}

	return foundUser.EmailConfirmed, nil
}

// DeleteUser removes a user and everything they own.
func DeleteUser(ctx context.Context, userId string) error {
	objectID, err := primitive.ObjectIDFromHex(userId)
	if err != nil {
		return err
	}
	if err := store.DeleteUser(ctx, objectID); err != nil {
		return err
	}
	logger.Info("user deleted", zap.String("user_id", userId))
	return nil
}

// ConfirmEmail checks a confirmation token against the stored hash and marks
// the user's email confirmed when it matches. The confirmation record is
// removed whether or not the token was valid, so each token gets one attempt.
func ConfirmEmail(ctx context.Context, userID, confirmationToken string) error {
	var confirmError error

	objectID, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return err
	}

	foundConfirmation, err := store.FindConfirmationByUser(ctx, objectID)
	if err != nil {
		return err
	}

	if foundConfirmation.ExpiresAt.Before(time.Now()) {
		confirmError = fmt.Errorf("%w: confirmation token has expired", errs.ErrNotAuthorized)
	} else if err := bcrypt.CompareHashAndPassword([]byte(foundConfirmation.ConfirmationToken), []byte(confirmationToken)); err != nil {
		confirmError = fmt.Errorf("%w: invalid confirmation token", errs.ErrNotAuthorized)
	} else {
		user, err := store.FindUserByID(ctx, objectID)
		if err != nil {
			return err
		}
		user.EmailConfirmed = true
		if err := store.ReplaceUser(ctx, user); err != nil {
			return err
		}
	}

	if err := store.DeleteConfirmation(ctx, foundConfirmation.ID); err != nil {
		return errors.New("error removing confirmation record")
	}

	return confirmError
}
