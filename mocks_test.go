package sessions_test

import (
	"context"
	"database/sql"
	"time"

	"github.com/goliatone/go-repository-bun"
	sessions "github.com/goliatone/go-sessions"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/uptrace/bun"
)

func notFoundErr() error {
	return repository.NewRecordNotFound()
}

type testLogger struct{}

func (testLogger) Debug(string, ...any) {}
func (testLogger) Info(string, ...any)  {}
func (testLogger) Warn(string, ...any)  {}
func (testLogger) Error(string, ...any) {}

// MockUsers implements sessions.Users. The embedded interface covers the
// generic repository surface; calling an unmocked method panics.
type MockUsers struct {
	mock.Mock
	sessions.Users
}

func (m *MockUsers) GetByID(ctx context.Context, id string, criteria ...repository.SelectCriteria) (*sessions.User, error) {
	args := m.Called(ctx, id)
	user, _ := args.Get(0).(*sessions.User)
	return user, args.Error(1)
}

func (m *MockUsers) GetByEmail(ctx context.Context, email string, criteria ...repository.SelectCriteria) (*sessions.User, error) {
	args := m.Called(ctx, email)
	user, _ := args.Get(0).(*sessions.User)
	return user, args.Error(1)
}

func (m *MockUsers) GetByEmailTx(ctx context.Context, tx bun.IDB, email string, criteria ...repository.SelectCriteria) (*sessions.User, error) {
	args := m.Called(ctx, tx, email)
	user, _ := args.Get(0).(*sessions.User)
	return user, args.Error(1)
}

func (m *MockUsers) ExistsWithEmailTx(ctx context.Context, tx bun.IDB, email string) (bool, error) {
	args := m.Called(ctx, tx, email)
	return args.Bool(0), args.Error(1)
}

func (m *MockUsers) ExistsWithUsernameTx(ctx context.Context, tx bun.IDB, username string) (bool, error) {
	args := m.Called(ctx, tx, username)
	return args.Bool(0), args.Error(1)
}

// CreateTx echoes the inserted record when the expectation returns a nil
// record and no error, mirroring the real repository.
func (m *MockUsers) CreateTx(ctx context.Context, tx bun.IDB, record *sessions.User, criteria ...repository.InsertCriteria) (*sessions.User, error) {
	args := m.Called(ctx, tx, record)
	user, _ := args.Get(0).(*sessions.User)
	if user == nil && args.Error(1) == nil {
		user = record
	}
	return user, args.Error(1)
}

func (m *MockUsers) MarkEmailValidatedTx(ctx context.Context, tx bun.IDB, id uuid.UUID) error {
	args := m.Called(ctx, tx, id)
	return args.Error(0)
}

// MockRefreshTokens implements sessions.RefreshTokens.
type MockRefreshTokens struct {
	mock.Mock
	sessions.RefreshTokens
}

// CreateTx echoes the inserted record when the expectation returns a nil
// record and no error, mirroring the real repository.
func (m *MockRefreshTokens) CreateTx(ctx context.Context, tx bun.IDB, record *sessions.RefreshToken, criteria ...repository.InsertCriteria) (*sessions.RefreshToken, error) {
	args := m.Called(ctx, tx, record)
	token, _ := args.Get(0).(*sessions.RefreshToken)
	if token == nil && args.Error(1) == nil {
		token = record
	}
	return token, args.Error(1)
}

func (m *MockRefreshTokens) GetByTokenTx(ctx context.Context, tx bun.IDB, userID uuid.UUID, token string) (*sessions.RefreshToken, error) {
	args := m.Called(ctx, tx, userID, token)
	record, _ := args.Get(0).(*sessions.RefreshToken)
	return record, args.Error(1)
}

func (m *MockRefreshTokens) ListByUserTx(ctx context.Context, tx bun.IDB, userID uuid.UUID) ([]*sessions.RefreshToken, error) {
	args := m.Called(ctx, tx, userID)
	records, _ := args.Get(0).([]*sessions.RefreshToken)
	return records, args.Error(1)
}

func (m *MockRefreshTokens) RevokeTx(ctx context.Context, tx bun.IDB, id uuid.UUID, at time.Time, replacedBy *uuid.UUID) error {
	args := m.Called(ctx, tx, id, at, replacedBy)
	return args.Error(0)
}

func (m *MockRefreshTokens) RevokeSuccessorsTx(ctx context.Context, tx bun.IDB, token *sessions.RefreshToken, at time.Time) (int, error) {
	args := m.Called(ctx, tx, token, at)
	return args.Int(0), args.Error(1)
}

// MockEmailVerifications implements sessions.EmailVerifications.
type MockEmailVerifications struct {
	mock.Mock
	sessions.EmailVerifications
}

func (m *MockEmailVerifications) IssueTx(ctx context.Context, tx bun.IDB, userID uuid.UUID, lifetime time.Duration) (*sessions.EmailVerification, string, error) {
	args := m.Called(ctx, tx, userID, lifetime)
	record, _ := args.Get(0).(*sessions.EmailVerification)
	return record, args.String(1), args.Error(2)
}

func (m *MockEmailVerifications) GetCurrentTx(ctx context.Context, tx bun.IDB, userID uuid.UUID) (*sessions.EmailVerification, error) {
	args := m.Called(ctx, tx, userID)
	record, _ := args.Get(0).(*sessions.EmailVerification)
	return record, args.Error(1)
}

func (m *MockEmailVerifications) ConsumeTx(ctx context.Context, tx bun.IDB, id uuid.UUID, at time.Time) error {
	args := m.Called(ctx, tx, id, at)
	return args.Error(0)
}

// MockRepositoryManager implements sessions.RepositoryManager.
type MockRepositoryManager struct {
	mock.Mock
}

func (m *MockRepositoryManager) Validate() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockRepositoryManager) MustValidate() {
	m.Called()
}

// RunInTx forwards to the expectation. When the expectation returns nil the
// callback runs against a zero transaction and its error is returned, so
// error propagation out of the transaction body stays observable.
func (m *MockRepositoryManager) RunInTx(ctx context.Context, opts *sql.TxOptions, f func(ctx context.Context, tx bun.Tx) error) error {
	args := m.Called(ctx, opts, f)
	if args.Get(0) == nil {
		return f(ctx, bun.Tx{})
	}
	return args.Error(0)
}

func (m *MockRepositoryManager) Users() sessions.Users {
	args := m.Called()
	return args.Get(0).(sessions.Users)
}

func (m *MockRepositoryManager) RefreshTokens() sessions.RefreshTokens {
	args := m.Called()
	return args.Get(0).(sessions.RefreshTokens)
}

func (m *MockRepositoryManager) EmailVerifications() sessions.EmailVerifications {
	args := m.Called()
	return args.Get(0).(sessions.EmailVerifications)
}

// MockMailer implements sessions.Mailer.
type MockMailer struct {
	mock.Mock
}

func (m *MockMailer) Send(ctx context.Context, to, subject, htmlBody string) error {
	args := m.Called(ctx, to, subject, htmlBody)
	return args.Error(0)
}

// MockTokenService implements sessions.TokenService.
type MockTokenService struct {
	mock.Mock
}

func (m *MockTokenService) Generate(user *sessions.User) (string, error) {
	args := m.Called(user)
	return args.String(0), args.Error(1)
}

func (m *MockTokenService) SignClaims(claims *sessions.JWTClaims) (string, error) {
	args := m.Called(claims)
	return args.String(0), args.Error(1)
}

func (m *MockTokenService) Validate(raw string) (sessions.AuthClaims, error) {
	args := m.Called(raw)
	claims, _ := args.Get(0).(sessions.AuthClaims)
	return claims, args.Error(1)
}

// MockRefreshLedger implements sessions.RefreshLedger.
type MockRefreshLedger struct {
	mock.Mock
}

func (m *MockRefreshLedger) Issue(ctx context.Context, user *sessions.User) (*sessions.RefreshToken, error) {
	args := m.Called(ctx, user)
	token, _ := args.Get(0).(*sessions.RefreshToken)
	return token, args.Error(1)
}

func (m *MockRefreshLedger) Rotate(ctx context.Context, user *sessions.User, presented string) (*sessions.RefreshToken, error) {
	args := m.Called(ctx, user, presented)
	token, _ := args.Get(0).(*sessions.RefreshToken)
	return token, args.Error(1)
}

// MockSessionManager implements sessions.SessionManager.
type MockSessionManager struct {
	mock.Mock
}

func (m *MockSessionManager) Login(ctx context.Context, email, password string) (*sessions.SessionBundle, error) {
	args := m.Called(ctx, email, password)
	bundle, _ := args.Get(0).(*sessions.SessionBundle)
	return bundle, args.Error(1)
}

func (m *MockSessionManager) Register(ctx context.Context, msg sessions.RegisterUserMessage) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

func (m *MockSessionManager) ConfirmEmail(ctx context.Context, msg sessions.ConfirmEmailMessage) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

func (m *MockSessionManager) ResendVerification(ctx context.Context, msg sessions.EmailVerificationRequestMessage) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

func (m *MockSessionManager) RefreshSession(ctx context.Context, userID, presented string) (*sessions.SessionBundle, error) {
	args := m.Called(ctx, userID, presented)
	bundle, _ := args.Get(0).(*sessions.SessionBundle)
	return bundle, args.Error(1)
}

func (m *MockSessionManager) FederatedLogin(ctx context.Context, providerToken string) (*sessions.SessionBundle, error) {
	args := m.Called(ctx, providerToken)
	bundle, _ := args.Get(0).(*sessions.SessionBundle)
	return bundle, args.Error(1)
}

func (m *MockSessionManager) CurrentSession(ctx context.Context, userID string) (*sessions.SessionBundle, error) {
	args := m.Called(ctx, userID)
	bundle, _ := args.Get(0).(*sessions.SessionBundle)
	return bundle, args.Error(1)
}

func (m *MockSessionManager) TokenService() sessions.TokenService {
	args := m.Called()
	return args.Get(0).(sessions.TokenService)
}

// MockFederatedBridge implements sessions.FederatedBridge.
type MockFederatedBridge struct {
	mock.Mock
}

func (m *MockFederatedBridge) Authenticate(ctx context.Context, providerToken string) (*sessions.User, error) {
	args := m.Called(ctx, providerToken)
	user, _ := args.Get(0).(*sessions.User)
	return user, args.Error(1)
}
