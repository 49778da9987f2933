package sessions_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	sessions "github.com/goliatone/go-sessions"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type autherFixture struct {
	repo   *MockRepositoryManager
	users  *MockUsers
	ledger *MockRefreshLedger
	bridge *MockFederatedBridge
	auther *sessions.Auther
}

func newAutherFixture(t *testing.T) *autherFixture {
	t.Helper()

	f := &autherFixture{
		repo:   &MockRepositoryManager{},
		users:  &MockUsers{},
		ledger: &MockRefreshLedger{},
		bridge: &MockFederatedBridge{},
	}

	f.repo.On("Users").Return(f.users).Maybe()

	cfg := sessions.HardcodedConfig{
		SigningKey:      "test-signing-key",
		TokenExpiration: 1,
		Issuer:          "test-issuer",
	}

	f.auther = sessions.NewAuthenticator(f.repo, &MockMailer{}, cfg).
		WithLogger(testLogger{}).
		WithRefreshLedger(f.ledger).
		WithFederatedBridge(f.bridge)

	return f
}

func confirmedUser(t *testing.T, password string) *sessions.User {
	t.Helper()

	hash, err := sessions.HashPassword(password)
	require.NoError(t, err)

	return &sessions.User{
		ID:             uuid.New(),
		Username:       "bob",
		DisplayName:    "Bob",
		Email:          "bob@example.com",
		PasswordHash:   hash,
		EmailValidated: true,
	}
}

func activeRefreshToken(user *sessions.User) *sessions.RefreshToken {
	now := time.Now()
	return &sessions.RefreshToken{
		ID:        uuid.New(),
		UserID:    user.ID,
		Token:     "refresh-value",
		CreatedAt: now,
		ExpiresAt: now.Add(7 * 24 * time.Hour),
	}
}

func TestAutherLoginSuccess(t *testing.T) {
	f := newAutherFixture(t)
	user := confirmedUser(t, "password12345")
	refresh := activeRefreshToken(user)

	f.users.On("GetByEmail", mock.Anything, user.Email).Return(user, nil).Once()
	f.ledger.On("Issue", mock.Anything, user).Return(refresh, nil).Once()

	bundle, err := f.auther.Login(context.Background(), user.Email, "password12345")
	require.NoError(t, err)

	assert.Equal(t, "Bob", bundle.DisplayName)
	assert.Equal(t, "bob", bundle.Username)
	assert.NotEmpty(t, bundle.AccessToken)
	assert.Equal(t, refresh.Token, bundle.RefreshToken)
	assert.Equal(t, refresh.ExpiresAt, bundle.RefreshExpiresAt)

	claims, err := f.auther.TokenService().Validate(bundle.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, user.ID.String(), claims.UserID())
}

func TestAutherLoginUnknownEmail(t *testing.T) {
	f := newAutherFixture(t)

	f.users.On("GetByEmail", mock.Anything, "ghost@example.com").Return(nil, notFoundErr()).Once()

	_, err := f.auther.Login(context.Background(), "ghost@example.com", "whatever")
	require.Error(t, err)
	assert.ErrorIs(t, err, sessions.ErrInvalidCredentials)
	f.ledger.AssertNotCalled(t, "Issue", mock.Anything, mock.Anything)
}

func TestAutherLoginWrongPassword(t *testing.T) {
	f := newAutherFixture(t)
	user := confirmedUser(t, "password12345")

	f.users.On("GetByEmail", mock.Anything, user.Email).Return(user, nil).Once()

	_, err := f.auther.Login(context.Background(), user.Email, "wrong-password")
	require.Error(t, err)
	assert.ErrorIs(t, err, sessions.ErrInvalidCredentials)
	f.ledger.AssertNotCalled(t, "Issue", mock.Anything, mock.Anything)
}

func TestAutherLoginUnconfirmedEmail(t *testing.T) {
	f := newAutherFixture(t)
	user := confirmedUser(t, "password12345")
	user.EmailValidated = false

	f.users.On("GetByEmail", mock.Anything, user.Email).Return(user, nil).Once()

	// The correct password changes nothing; confirmation is checked first.
	_, err := f.auther.Login(context.Background(), user.Email, "password12345")
	require.Error(t, err)
	assert.ErrorIs(t, err, sessions.ErrEmailNotConfirmed)
	assert.True(t, sessions.IsUnauthorized(err))
	f.ledger.AssertNotCalled(t, "Issue", mock.Anything, mock.Anything)
}

func TestAutherRefreshSession(t *testing.T) {
	f := newAutherFixture(t)
	user := confirmedUser(t, "password12345")
	rotated := activeRefreshToken(user)
	rotated.Token = "rotated-value"

	f.users.On("GetByID", mock.Anything, user.ID.String()).Return(user, nil).Once()
	f.ledger.On("Rotate", mock.Anything, user, "presented-value").Return(rotated, nil).Once()

	bundle, err := f.auther.RefreshSession(context.Background(), user.ID.String(), "presented-value")
	require.NoError(t, err)

	assert.Equal(t, "rotated-value", bundle.RefreshToken)
	assert.NotEmpty(t, bundle.AccessToken)
	f.ledger.AssertExpectations(t)
}

func TestAutherRefreshSessionRotationFails(t *testing.T) {
	f := newAutherFixture(t)
	user := confirmedUser(t, "password12345")

	f.users.On("GetByID", mock.Anything, user.ID.String()).Return(user, nil).Once()
	f.ledger.On("Rotate", mock.Anything, user, "bad-value").
		Return(nil, sessions.ErrRefreshTokenInvalid).Once()

	_, err := f.auther.RefreshSession(context.Background(), user.ID.String(), "bad-value")
	require.Error(t, err)
	assert.ErrorIs(t, err, sessions.ErrRefreshTokenInvalid)
}

func TestAutherRefreshSessionBadUserID(t *testing.T) {
	f := newAutherFixture(t)

	_, err := f.auther.RefreshSession(context.Background(), "not-a-uuid", "whatever")
	assert.ErrorIs(t, err, sessions.ErrInvalidCredentials)
	f.users.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything)
}

func TestAutherFederatedLogin(t *testing.T) {
	f := newAutherFixture(t)
	user := confirmedUser(t, "irrelevant")
	refresh := activeRefreshToken(user)

	f.bridge.On("Authenticate", mock.Anything, "provider-token").Return(user, nil).Once()
	f.ledger.On("Issue", mock.Anything, user).Return(refresh, nil).Once()

	bundle, err := f.auther.FederatedLogin(context.Background(), "provider-token")
	require.NoError(t, err)
	assert.NotEmpty(t, bundle.AccessToken)
	assert.Equal(t, refresh.Token, bundle.RefreshToken)
}

func TestAutherFederatedLoginBridgeRejects(t *testing.T) {
	f := newAutherFixture(t)

	f.bridge.On("Authenticate", mock.Anything, "forged").
		Return(nil, sessions.ErrProviderRejected).Once()

	_, err := f.auther.FederatedLogin(context.Background(), "forged")
	require.Error(t, err)
	assert.ErrorIs(t, err, sessions.ErrProviderRejected)
	f.ledger.AssertNotCalled(t, "Issue", mock.Anything, mock.Anything)
}

func TestAutherFederatedLoginNoBridge(t *testing.T) {
	f := newAutherFixture(t)
	f.auther = f.auther.WithFederatedBridge(nil)

	_, err := f.auther.FederatedLogin(context.Background(), "token")
	assert.Error(t, err)
}

func TestAutherCurrentSession(t *testing.T) {
	f := newAutherFixture(t)
	user := confirmedUser(t, "password12345")
	user.ProfilePicture = "https://cdn.example.com/bob.png"
	refresh := activeRefreshToken(user)

	f.users.On("GetByID", mock.Anything, user.ID.String()).Return(user, nil).Once()
	f.ledger.On("Issue", mock.Anything, user).Return(refresh, nil).Once()

	bundle, err := f.auther.CurrentSession(context.Background(), user.ID.String())
	require.NoError(t, err)
	assert.Equal(t, user.ProfilePicture, bundle.AvatarURL)
}

func TestSessionBundleJSONShape(t *testing.T) {
	bundle := &sessions.SessionBundle{
		DisplayName:  "Bob",
		Username:     "bob",
		AccessToken:  "jwt-value",
		RefreshToken: "refresh-value",
	}

	raw, err := json.Marshal(bundle)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))

	assert.Equal(t, "Bob", decoded["display_name"])
	assert.Equal(t, "jwt-value", decoded["access_token"])
	// The rotating credential travels only in the cookie.
	assert.NotContains(t, decoded, "refresh_token")
	// Absent avatar is omitted, not an empty string.
	assert.NotContains(t, decoded, "avatar_url")
}
