package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/hostel-leave-api/internal/models"
	appErrors "github.com/noah-isme/hostel-leave-api/pkg/errors"
)

type mockAllowList struct {
	users map[string]*models.User
}

func (m *mockAllowList) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	user, ok := m.users[email]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return user, nil
}

type mockSessions struct {
	revoked   map[string]bool
	revokeErr error
}

func (m *mockSessions) Revoke(ctx context.Context, jti string, ttl time.Duration) error {
	if m.revokeErr != nil {
		return m.revokeErr
	}
	if m.revoked == nil {
		m.revoked = make(map[string]bool)
	}
	m.revoked[jti] = true
	return nil
}

func (m *mockSessions) IsRevoked(ctx context.Context, jti string) (bool, error) {
	return m.revoked[jti], nil
}

type mockAudit struct {
	entries []*models.AuditLog
}

func (m *mockAudit) Create(ctx context.Context, log *models.AuditLog) error {
	m.entries = append(m.entries, log)
	return nil
}

type stubVerifier struct {
	email string
	err   error
}

func (s *stubVerifier) Verify(idToken string) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	return s.email, nil
}

func newAuthFixture(users map[string]*models.User, verifier IdentityVerifier) (*AuthService, *mockSessions, *mockAudit) {
	sessions := &mockSessions{}
	audit := &mockAudit{}
	svc := NewAuthService(&mockAllowList{users: users}, sessions, audit, verifier,
		validator.New(), zap.NewNop(), AuthConfig{
			SessionSecret: "secret",
			SessionTTL:    2 * time.Hour,
			Issuer:        "hostel-leave-api",
			DevTokens:     map[string]string{"dev-admin": "warden@hostel.test"},
		})
	return svc, sessions, audit
}

func TestVerifyAssertionIssuesSession(t *testing.T) {
	users := map[string]*models.User{
		"priya@hostel.test": {ID: "u1", Email: "priya@hostel.test", FullName: "Priya", Role: models.RoleStudent, Active: true},
	}
	svc, _, audit := newAuthFixture(users, &stubVerifier{email: "priya@hostel.test"})

	res, err := svc.VerifyAssertion(context.Background(), models.VerifyRequest{IDToken: "google-token"})
	require.NoError(t, err)
	assert.NotEmpty(t, res.Token)
	assert.Equal(t, int64(7200), res.ExpiresIn)
	assert.Equal(t, models.RoleStudent, res.User.Role)
	require.Len(t, audit.entries, 1)
	assert.Equal(t, models.AuditActionLogin, audit.entries[0].Action)

	claims, err := svc.ValidateToken(context.Background(), res.Token)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.UserID)
	assert.NotEmpty(t, claims.ID)
}

func TestVerifyAssertionNotAllowListed(t *testing.T) {
	svc, _, _ := newAuthFixture(map[string]*models.User{}, &stubVerifier{email: "stranger@example.com"})

	_, err := svc.VerifyAssertion(context.Background(), models.VerifyRequest{IDToken: "google-token"})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrNotAllowListed.Code, appErr.Code)
	assert.Equal(t, 403, appErr.Status)
}

func TestVerifyAssertionRevokedEntry(t *testing.T) {
	users := map[string]*models.User{
		"gone@hostel.test": {ID: "u2", Email: "gone@hostel.test", Role: models.RoleStudent, Active: false},
	}
	svc, _, _ := newAuthFixture(users, &stubVerifier{email: "gone@hostel.test"})

	_, err := svc.VerifyAssertion(context.Background(), models.VerifyRequest{IDToken: "google-token"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotAllowListed.Code, appErrors.FromError(err).Code)
}

func TestVerifyAssertionInvalidToken(t *testing.T) {
	svc, _, _ := newAuthFixture(map[string]*models.User{}, &stubVerifier{err: errors.New("bad signature")})

	_, err := svc.VerifyAssertion(context.Background(), models.VerifyRequest{IDToken: "garbage"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
}

func TestVerifyAssertionDevTokenBypass(t *testing.T) {
	users := map[string]*models.User{
		"warden@hostel.test": {ID: "a1", Email: "warden@hostel.test", Role: models.RoleAdmin, Active: true},
	}
	// The verifier must never be consulted for a mapped dev token.
	svc, _, _ := newAuthFixture(users, &stubVerifier{err: errors.New("should not be called")})

	res, err := svc.VerifyAssertion(context.Background(), models.VerifyRequest{IDToken: "dev-admin"})
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, res.User.Role)
}

func TestLoginPasswordSuccess(t *testing.T) {
	hash, _ := bcrypt.GenerateFromPassword([]byte("hunter2"), bcrypt.DefaultCost)
	hashed := string(hash)
	users := map[string]*models.User{
		"warden@hostel.test": {ID: "a1", Email: "warden@hostel.test", Role: models.RoleAdmin, PasswordHash: &hashed, Active: true},
	}
	svc, _, _ := newAuthFixture(users, &stubVerifier{})

	res, err := svc.LoginPassword(context.Background(), models.PasswordLoginRequest{Email: "warden@hostel.test", Password: "hunter2"})
	require.NoError(t, err)
	assert.NotEmpty(t, res.Token)
}

func TestLoginPasswordWrongPassword(t *testing.T) {
	hash, _ := bcrypt.GenerateFromPassword([]byte("hunter2"), bcrypt.DefaultCost)
	hashed := string(hash)
	users := map[string]*models.User{
		"warden@hostel.test": {ID: "a1", Email: "warden@hostel.test", Role: models.RoleAdmin, PasswordHash: &hashed, Active: true},
	}
	svc, _, _ := newAuthFixture(users, &stubVerifier{})

	_, err := svc.LoginPassword(context.Background(), models.PasswordLoginRequest{Email: "warden@hostel.test", Password: "nope"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
}

func TestLoginPasswordNotEnabledForStudents(t *testing.T) {
	users := map[string]*models.User{
		"priya@hostel.test": {ID: "u1", Email: "priya@hostel.test", Role: models.RoleStudent, Active: true},
	}
	svc, _, _ := newAuthFixture(users, &stubVerifier{})

	_, err := svc.LoginPassword(context.Background(), models.PasswordLoginRequest{Email: "priya@hostel.test", Password: "whatever"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestLogoutRevokesSession(t *testing.T) {
	users := map[string]*models.User{
		"priya@hostel.test": {ID: "u1", Email: "priya@hostel.test", Role: models.RoleStudent, Active: true},
	}
	svc, sessions, _ := newAuthFixture(users, &stubVerifier{email: "priya@hostel.test"})

	res, err := svc.VerifyAssertion(context.Background(), models.VerifyRequest{IDToken: "google-token"})
	require.NoError(t, err)

	claims, err := svc.ValidateToken(context.Background(), res.Token)
	require.NoError(t, err)

	require.NoError(t, svc.Logout(context.Background(), claims))
	assert.True(t, sessions.revoked[claims.ID])

	_, err = svc.ValidateToken(context.Background(), res.Token)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
}

func TestValidateTokenRejectsTampering(t *testing.T) {
	users := map[string]*models.User{
		"priya@hostel.test": {ID: "u1", Email: "priya@hostel.test", Role: models.RoleStudent, Active: true},
	}
	svc, _, _ := newAuthFixture(users, &stubVerifier{email: "priya@hostel.test"})

	res, err := svc.VerifyAssertion(context.Background(), models.VerifyRequest{IDToken: "google-token"})
	require.NoError(t, err)

	_, err = svc.ValidateToken(context.Background(), res.Token+"x")
	require.Error(t, err)
}
