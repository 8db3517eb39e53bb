package auth

import (
	"context"
	"time"

	"routine/internal/domain"
)

// UserStore is the read side of the user directory the auth core depends on.
type UserStore interface {
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByID(ctx context.Context, id int64) (*domain.User, error)
}

// RefreshTokenStore persists hashed refresh secrets. Implementations own
// pruning, the per-user cap and single-use consumption.
type RefreshTokenStore interface {
	OwnerOf(ctx context.Context, tokenHash string) (int64, error)
	Issue(ctx context.Context, userID int64, tokenHash string, ttl time.Duration) (*domain.RefreshToken, error)
	Rotate(ctx context.Context, oldHash, newHash string, ttl time.Duration) (consumed, issued *domain.RefreshToken, err error)
	Revoke(ctx context.Context, tokenHash string) error
}
