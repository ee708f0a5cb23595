package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// SessionRepository tracks revoked session credentials in redis. Entries
// expire with the credential itself, so the denylist stays small.
type SessionRepository struct {
	client *redis.Client
}

// NewSessionRepository creates a new instance of SessionRepository.
func NewSessionRepository(client *redis.Client) *SessionRepository {
	return &SessionRepository{client: client}
}

func revocationKey(jti string) string {
	return "session:revoked:" + jti
}

// Revoke denylists a credential ID for its remaining lifetime.
func (r *SessionRepository) Revoke(ctx context.Context, jti string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	if err := r.client.Set(ctx, revocationKey(jti), "1", ttl).Err(); err != nil {
		return fmt.Errorf("revoke session: %w", err)
	}
	return nil
}

// IsRevoked reports whether a credential ID has been denylisted.
func (r *SessionRepository) IsRevoked(ctx context.Context, jti string) (bool, error) {
	n, err := r.client.Exists(ctx, revocationKey(jti)).Result()
	if err != nil {
		return false, fmt.Errorf("check session revocation: %w", err)
	}
	return n > 0, nil
}
