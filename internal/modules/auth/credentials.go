package auth

import (
	"context"
	"errors"
	"fmt"

	"routine/internal/domain"
	"routine/internal/repository"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// CredentialVerifier checks email/password pairs. Unknown emails and wrong
// passwords take the same path through bcrypt and yield the same error.
type CredentialVerifier struct {
	users     UserStore
	dummyHash []byte
	compare   func(hash, password []byte) error
}

// NewCredentialVerifier precomputes the dummy hash with cost, which must
// match the cost stored passwords were hashed with.
func NewCredentialVerifier(users UserStore, cost int) (*CredentialVerifier, error) {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	dummy, err := bcrypt.GenerateFromPassword([]byte(uuid.NewString()), cost)
	if err != nil {
		return nil, fmt.Errorf("precompute dummy hash: %w", err)
	}
	return &CredentialVerifier{
		users:     users,
		dummyHash: dummy,
		compare:   bcrypt.CompareHashAndPassword,
	}, nil
}

func (v *CredentialVerifier) Verify(ctx context.Context, email, password string) (*domain.User, error) {
	user, err := v.users.GetByEmail(ctx, repository.NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			_ = v.compare(v.dummyHash, []byte(password))
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("lookup user: %w", err)
	}

	if err := v.compare([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}
