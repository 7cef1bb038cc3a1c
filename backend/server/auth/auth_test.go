package auth

import (
	"context"
	"testing"
	"time"

	"github.com/savepoint/savepoint/backend/models"
	storage "github.com/savepoint/savepoint/backend/storage/persistent"
	"github.com/savepoint/savepoint/lib/errs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

func setupAuth(t *testing.T) *storage.MemoryStorage {
	t.Helper()
	mem := storage.NewMemoryStorage()
	InitAuth(mem, "test-signing-key", nil, zap.NewNop())
	return mem
}

func TestSignUpValidation(t *testing.T) {
	setupAuth(t)
	ctx := context.Background()

	_, _, err := SignUp(ctx, "x", "player@example.com", "password1")
	assert.ErrorIs(t, err, errs.ErrValidation)

	_, _, err = SignUp(ctx, "player", "not-an-email", "password1")
	assert.ErrorIs(t, err, errs.ErrValidation)

	_, _, err = SignUp(ctx, "player", "player@example.com", "short")
	assert.ErrorIs(t, err, errs.ErrValidation)

	_, _, err = SignUp(ctx, "player", "player@example.com", "lettersonly")
	assert.ErrorIs(t, err, errs.ErrValidation)
}

func TestSignUpCreatesUserWithFreshGameState(t *testing.T) {
	mem := setupAuth(t)
	ctx := context.Background()

	token, refresh, err := SignUp(ctx, "player", "player@example.com", "password1")
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.NotEmpty(t, refresh)

	user, err := mem.FindUserByUsername(ctx, "player")
	require.NoError(t, err)
	assert.False(t, user.EmailConfirmed)
	assert.Equal(t, 0, user.Gamification.Points)
	assert.Equal(t, 1, user.Gamification.Level)
	assert.NotEqual(t, "password1", user.PasswordHash)

	// A confirmation record exists and stores only the token's hash.
	confirmation, err := mem.FindConfirmationByUser(ctx, user.ID)
	require.NoError(t, err)
	assert.True(t, confirmation.ExpiresAt.After(time.Now()))

	// Duplicate email and username are both rejected.
	_, _, err = SignUp(ctx, "other", "player@example.com", "password1")
	assert.ErrorIs(t, err, errs.ErrValidation)
	_, _, err = SignUp(ctx, "player", "other@example.com", "password1")
	assert.ErrorIs(t, err, errs.ErrValidation)
}

func TestSignInVerifiesPassword(t *testing.T) {
	setupAuth(t)
	ctx := context.Background()

	_, _, err := SignUp(ctx, "player", "player@example.com", "password1")
	require.NoError(t, err)

	token, refresh, confirmed, err := SignIn(ctx, "player", "password1")
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.NotEmpty(t, refresh)
	assert.False(t, confirmed)

	_, _, _, err = SignIn(ctx, "player", "wrongpass1")
	assert.ErrorIs(t, err, errs.ErrNotAuthorized)

	_, _, _, err = SignIn(ctx, "nobody", "password1")
	assert.ErrorIs(t, err, errs.ErrNotAuthorized)
}

func TestTokenRoundTrip(t *testing.T) {
	setupAuth(t)

	token, err := CreateAuthToken("64a1f0c2e5b4a1d2c3b4a5f6")
	require.NoError(t, err)

	userId, err := ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, "64a1f0c2e5b4a1d2c3b4a5f6", userId)
}

func TestParseTokenRejectsTampering(t *testing.T) {
	setupAuth(t)

	token, err := CreateAuthToken("64a1f0c2e5b4a1d2c3b4a5f6")
	require.NoError(t, err)

	_, err = ParseToken(token + "x")
	assert.ErrorIs(t, err, errs.ErrNotAuthorized)

	// A token signed with a different key never verifies.
	InitAuth(storage.NewMemoryStorage(), "other-key", nil, zap.NewNop())
	_, err = ParseToken(token)
	assert.ErrorIs(t, err, errs.ErrNotAuthorized)
}

func TestRefreshTokenBelongsToUser(t *testing.T) {
	setupAuth(t)

	_, refresh, err := CreateTokens("64a1f0c2e5b4a1d2c3b4a5f6")
	require.NoError(t, err)

	newToken, newRefresh, err := RefreshToken("64a1f0c2e5b4a1d2c3b4a5f6", refresh)
	require.NoError(t, err)
	assert.NotEmpty(t, newToken)
	assert.NotEmpty(t, newRefresh)

	_, _, err = RefreshToken("000000000000000000000000", refresh)
	assert.ErrorIs(t, err, errs.ErrNotAuthorized)
}

func TestUpdateUserRequiresCurrentPassword(t *testing.T) {
	mem := setupAuth(t)
	ctx := context.Background()

	_, _, err := SignUp(ctx, "player", "player@example.com", "password1")
	require.NoError(t, err)
	user, err := mem.FindUserByUsername(ctx, "player")
	require.NoError(t, err)

	_, err = UpdateUser(ctx, user.ID.Hex(), "wrongpass1", "renamed", "", "")
	assert.ErrorIs(t, err, errs.ErrNotAuthorized)

	_, err = UpdateUser(ctx, user.ID.Hex(), "password1", "", "", "")
	assert.ErrorIs(t, err, errs.ErrValidation)

	_, err = UpdateUser(ctx, user.ID.Hex(), "password1", "renamed", "", "newpass12")
	require.NoError(t, err)

	updated, err := mem.FindUserByUsername(ctx, "renamed")
	require.NoError(t, err)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(updated.PasswordHash), []byte("newpass12")))
}

func TestUpdateEmailResetsConfirmation(t *testing.T) {
	mem := setupAuth(t)
	ctx := context.Background()

	_, _, err := SignUp(ctx, "player", "player@example.com", "password1")
	require.NoError(t, err)
	user, err := mem.FindUserByUsername(ctx, "player")
	require.NoError(t, err)

	user.EmailConfirmed = true
	require.NoError(t, mem.ReplaceUser(ctx, user))

	confirmed, err := UpdateUser(ctx, user.ID.Hex(), "password1", "", "new@example.com", "")
	require.NoError(t, err)
	assert.False(t, confirmed)

	updated, err := mem.FindUserByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "new@example.com", updated.Email)
	assert.False(t, updated.EmailConfirmed)
}

func TestConfirmationTokenIsExactlySixCharacters(t *testing.T) {
	// The REST layer validates tokens with len=6, so a generated token of any
	// other length could never be confirmed.
	for i := 0; i < 64; i++ {
		token, err := newConfirmationToken()
		require.NoError(t, err)
		assert.Len(t, token, confirmationTokenLength)
	}
}

func TestConfirmEmail(t *testing.T) {
	mem := setupAuth(t)
	ctx := context.Background()

	_, _, err := SignUp(ctx, "player", "player@example.com", "password1")
	require.NoError(t, err)
	user, err := mem.FindUserByUsername(ctx, "player")
	require.NoError(t, err)

	// Replace the random token with a known one.
	confirmation, err := mem.FindConfirmationByUser(ctx, user.ID)
	require.NoError(t, err)
	hashed, err := bcrypt.GenerateFromPassword([]byte("AB3F9X"), bcrypt.DefaultCost)
	require.NoError(t, err)
	confirmation.ConfirmationToken = string(hashed)
	require.NoError(t, mem.DeleteConfirmation(ctx, confirmation.ID))
	_, err = mem.AddConfirmation(ctx, &models.Confirmation{
		UserID:            user.ID,
		ConfirmationToken: confirmation.ConfirmationToken,
		ExpiresAt:         time.Now().Add(time.Hour),
	})
	require.NoError(t, err)

	require.NoError(t, ConfirmEmail(ctx, user.ID.Hex(), "AB3F9X"))

	confirmedUser, err := mem.FindUserByID(ctx, user.ID)
	require.NoError(t, err)
	assert.True(t, confirmedUser.EmailConfirmed)

	// The record is consumed; a second attempt has nothing to match.
	err = ConfirmEmail(ctx, user.ID.Hex(), "AB3F9X")
	assert.ErrorIs(t, err, errs.ErrNotFound)
}

func TestConfirmEmailWrongTokenConsumesRecord(t *testing.T) {
	mem := setupAuth(t)
	ctx := context.Background()

	_, _, err := SignUp(ctx, "player", "player@example.com", "password1")
	require.NoError(t, err)
	user, err := mem.FindUserByUsername(ctx, "player")
	require.NoError(t, err)

	err = ConfirmEmail(ctx, user.ID.Hex(), "WRONG0")
	assert.ErrorIs(t, err, errs.ErrNotAuthorized)

	_, err = mem.FindConfirmationByUser(ctx, user.ID)
	assert.ErrorIs(t, err, errs.ErrNotFound)
}
