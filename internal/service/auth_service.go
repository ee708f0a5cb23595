package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	googleAuthIDTokenVerifier "github.com/futurenda/google-auth-id-token-verifier"
	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/hostel-leave-api/internal/models"
	appErrors "github.com/noah-isme/hostel-leave-api/pkg/errors"
)

type authUserRepository interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
}

type sessionStore interface {
	Revoke(ctx context.Context, jti string, ttl time.Duration) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

type auditStore interface {
	Create(ctx context.Context, log *models.AuditLog) error
}

// IdentityVerifier resolves an opaque identity assertion to an email
// address. The Google implementation lives below; tests substitute a stub.
type IdentityVerifier interface {
	Verify(idToken string) (email string, err error)
}

// GoogleVerifier validates Google ID tokens against the configured OAuth
// client.
type GoogleVerifier struct {
	ClientID string
}

// Verify checks the token signature and audience and extracts the email.
func (g *GoogleVerifier) Verify(idToken string) (string, error) {
	v := googleAuthIDTokenVerifier.Verifier{}
	if err := v.VerifyIDToken(idToken, []string{g.ClientID}); err != nil {
		return "", fmt.Errorf("verify google id token: %w", err)
	}
	claims, err := googleAuthIDTokenVerifier.Decode(idToken)
	if err != nil {
		return "", fmt.Errorf("decode google id token: %w", err)
	}
	if claims.Email == "" {
		return "", fmt.Errorf("google id token carries no email")
	}
	return claims.Email, nil
}

// AuthConfig defines configuration for identity resolution.
type AuthConfig struct {
	SessionSecret string
	SessionTTL    time.Duration
	Issuer        string
	// DevTokens maps fixed bypass assertions to emails. Populated only
	// outside production.
	DevTokens map[string]string
}

// AuthService resolves identity assertions against the allow-list and issues
// time-bounded session credentials. There is no refresh flow: once the
// credential expires the client must verify again, which re-reads the
// allow-list and picks up role changes.
type AuthService struct {
	repo      authUserRepository
	sessions  sessionStore
	audit     auditStore
	verifier  IdentityVerifier
	validator *validator.Validate
	logger    *zap.Logger
	config    AuthConfig
}

// NewAuthService constructs an AuthService instance.
func NewAuthService(repo authUserRepository, sessions sessionStore, audit auditStore, verifier IdentityVerifier, validate *validator.Validate, logger *zap.Logger, config AuthConfig) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if config.SessionTTL <= 0 {
		config.SessionTTL = 2 * time.Hour
	}
	return &AuthService{repo: repo, sessions: sessions, audit: audit, verifier: verifier, validator: validate, logger: logger, config: config}
}

// VerifyAssertion validates an external identity assertion, resolves the
// email against the allow-list and issues a session credential.
func (s *AuthService) VerifyAssertion(ctx context.Context, req models.VerifyRequest) (*models.SessionResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid verify payload")
	}

	email, ok := s.config.DevTokens[req.IDToken]
	if !ok {
		var err error
		email, err = s.verifier.Verify(req.IDToken)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "invalid identity token")
		}
	}

	user, err := s.resolveAllowListed(ctx, email)
	if err != nil {
		return nil, err
	}

	return s.openSession(ctx, user, req.IP, req.UserAgent)
}

// LoginPassword authenticates an admin account by password. Only entries
// provisioned with a hash can use this path.
func (s *AuthService) LoginPassword(ctx context.Context, req models.PasswordLoginRequest) (*models.SessionResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid login payload")
	}

	user, err := s.resolveAllowListed(ctx, req.Email)
	if err != nil {
		return nil, err
	}

	if user.Role != models.RoleAdmin || user.PasswordHash == nil {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "password login is not enabled for this account")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(*user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid email or password")
	}

	return s.openSession(ctx, user, req.IP, req.UserAgent)
}

// Logout denylists the session credential for its remaining lifetime.
func (s *AuthService) Logout(ctx context.Context, claims *models.JWTClaims) error {
	if claims == nil || claims.ID == "" {
		return appErrors.ErrUnauthorized
	}
	remaining := time.Until(claims.ExpiresAt.Time)
	if err := s.sessions.Revoke(ctx, claims.ID, remaining); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to revoke session")
	}
	s.recordAudit(ctx, claims.UserID, models.AuditActionLogout, "auth", claims.UserID, []byte(`{"status":"logout"}`), "", "")
	return nil
}

// ValidateToken parses and validates a session credential, including the
// revocation denylist.
func (s *AuthService) ValidateToken(ctx context.Context, tokenString string) (*models.JWTClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &models.JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.config.SessionSecret), nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, appErrors.Clone(appErrors.ErrSessionExpired, "session expired, sign in again")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "invalid token")
	}

	claims, ok := token.Claims.(*models.JWTClaims)
	if !ok || !token.Valid {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token claims")
	}

	if claims.ID != "" && s.sessions != nil {
		revoked, err := s.sessions.IsRevoked(ctx, claims.ID)
		if err != nil {
			s.logger.Warn("failed to consult session denylist", zap.Error(err))
		} else if revoked {
			return nil, appErrors.Clone(appErrors.ErrUnauthorized, "session has been revoked")
		}
	}

	return claims, nil
}

func (s *AuthService) resolveAllowListed(ctx context.Context, email string) (*models.User, error) {
	user, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotAllowListed, "access denied: email not registered")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to consult allow-list")
	}
	if !user.Active {
		return nil, appErrors.Clone(appErrors.ErrNotAllowListed, "access denied: entry revoked")
	}
	return user, nil
}

func (s *AuthService) openSession(ctx context.Context, user *models.User, ip, userAgent string) (*models.SessionResponse, error) {
	token, issuedAt, err := s.signCredential(user)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to issue session credential")
	}

	s.recordAudit(ctx, user.ID, models.AuditActionLogin, "auth", user.ID, []byte(`{"status":"success"}`), ip, userAgent)

	return &models.SessionResponse{
		Token:     token,
		ExpiresIn: int64(s.config.SessionTTL.Seconds()),
		IssuedAt:  issuedAt,
		User: models.UserInfo{
			ID:       user.ID,
			Email:    user.Email,
			FullName: user.FullName,
			Role:     user.Role,
		},
	}, nil
}

func (s *AuthService) signCredential(user *models.User) (string, time.Time, error) {
	issuedAt := time.Now().UTC()
	expiresAt := issuedAt.Add(s.config.SessionTTL)
	claims := &models.JWTClaims{
		UserID:   user.ID,
		Email:    user.Email,
		FullName: user.FullName,
		Role:     user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    s.config.Issuer,
			Subject:   user.ID,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			NotBefore: jwt.NewNumericDate(issuedAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.config.SessionSecret))
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, issuedAt, nil
}

func (s *AuthService) recordAudit(ctx context.Context, actorID, action, resource, resourceID string, values []byte, ip, userAgent string) {
	if s.audit == nil {
		return
	}
	entry := &models.AuditLog{
		ActorID:    &actorID,
		Action:     action,
		Resource:   resource,
		ResourceID: &resourceID,
		NewValues:  values,
		IPAddress:  ip,
		UserAgent:  userAgent,
	}
	if err := s.audit.Create(ctx, entry); err != nil {
		s.logger.Warn("failed to record audit log", zap.String("action", action), zap.Error(err))
	}
}
