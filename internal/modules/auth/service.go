package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"routine/internal/domain"
	"routine/internal/repository"
)

const (
	DefaultRefreshTTL = 7 * 24 * time.Hour

	// base64url of 32 bytes is 43 chars; anything far longer is not ours.
	maxRefreshSecretLen = 512
)

type Service struct {
	users      UserStore
	tokens     RefreshTokenStore
	verifier   *CredentialVerifier
	codec      *TokenCodec
	refreshTTL time.Duration
	metrics    *Metrics
	log        *slog.Logger
}

// SessionResult is a freshly minted token pair. RefreshToken is the plaintext
// secret and is returned to the client exactly once.
type SessionResult struct {
	User             *domain.User
	AccessToken      string
	AccessExpiresAt  time.Time
	RefreshToken     string
	RefreshExpiresAt time.Time
}

func NewService(
	users UserStore,
	tokens RefreshTokenStore,
	verifier *CredentialVerifier,
	codec *TokenCodec,
	refreshTTL time.Duration,
	metrics *Metrics,
	log *slog.Logger,
) *Service {
	if refreshTTL <= 0 {
		refreshTTL = DefaultRefreshTTL
	}
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		users:      users,
		tokens:     tokens,
		verifier:   verifier,
		codec:      codec,
		refreshTTL: refreshTTL,
		metrics:    metrics,
		log:        log,
	}
}

func (s *Service) RefreshTTL() time.Duration { return s.refreshTTL }

func (s *Service) Login(ctx context.Context, email, password string) (*SessionResult, error) {
	user, err := s.verifier.Verify(ctx, email, password)
	if err != nil {
		outcome := outcomeError
		if errors.Is(err, ErrInvalidCredentials) {
			outcome = outcomeInvalid
		}
		s.metrics.login(outcome)
		return nil, err
	}

	access, accessExp, err := s.codec.MintAccessToken(user.ID, user.Email)
	if err != nil {
		s.metrics.login(outcomeError)
		return nil, fmt.Errorf("mint access token: %w", err)
	}
	secret, err := s.codec.MintRefreshSecret()
	if err != nil {
		s.metrics.login(outcomeError)
		return nil, fmt.Errorf("mint refresh secret: %w", err)
	}
	rec, err := s.tokens.Issue(ctx, user.ID, s.codec.Hash(secret), s.refreshTTL)
	if err != nil {
		s.metrics.login(outcomeError)
		return nil, fmt.Errorf("issue refresh token: %w", err)
	}

	s.metrics.login(outcomeSuccess)
	return &SessionResult{
		User:             user.Public(),
		AccessToken:      access,
		AccessExpiresAt:  accessExp,
		RefreshToken:     secret,
		RefreshExpiresAt: rec.ExpiresAt,
	}, nil
}

// Refresh trades a refresh secret for a new pair. The presented secret is
// consumed even if a concurrent call with the same secret wins instead; the
// loser gets ErrInvalidRefreshToken. The owner is loaded before the rotation
// so a failing user store never costs the caller their session.
func (s *Service) Refresh(ctx context.Context, secret string) (*SessionResult, error) {
	secret = strings.TrimSpace(secret)
	if secret == "" || len(secret) > maxRefreshSecretLen {
		s.metrics.refresh(outcomeInvalid)
		return nil, ErrInvalidRefreshToken
	}
	oldHash := s.codec.Hash(secret)

	userID, err := s.tokens.OwnerOf(ctx, oldHash)
	if err != nil {
		if errors.Is(err, repository.ErrRefreshTokenNotFound) {
			s.metrics.refresh(outcomeInvalid)
			return nil, ErrInvalidRefreshToken
		}
		s.metrics.refresh(outcomeError)
		return nil, fmt.Errorf("lookup refresh token: %w", err)
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			if rerr := s.tokens.Revoke(ctx, oldHash); rerr != nil {
				s.log.Error("revoke token of missing user", "user_id", userID, "error", rerr)
			}
			s.metrics.refresh(outcomeInvalid)
			return nil, ErrInvalidRefreshToken
		}
		s.metrics.refresh(outcomeError)
		return nil, fmt.Errorf("load user: %w", err)
	}

	next, err := s.codec.MintRefreshSecret()
	if err != nil {
		s.metrics.refresh(outcomeError)
		return nil, fmt.Errorf("mint refresh secret: %w", err)
	}

	_, issued, err := s.tokens.Rotate(ctx, oldHash, s.codec.Hash(next), s.refreshTTL)
	switch {
	case errors.Is(err, repository.ErrRefreshTokenExpired):
		s.metrics.refresh(outcomeExpired)
		s.log.Warn("expired refresh token presented", "user_id", userID)
		return nil, ErrRefreshTokenExpired
	case errors.Is(err, repository.ErrRefreshTokenNotFound):
		s.metrics.refresh(outcomeInvalid)
		return nil, ErrInvalidRefreshToken
	case err != nil:
		s.metrics.refresh(outcomeError)
		return nil, fmt.Errorf("rotate refresh token: %w", err)
	}

	access, accessExp, err := s.codec.MintAccessToken(user.ID, user.Email)
	if err != nil {
		s.metrics.refresh(outcomeError)
		return nil, fmt.Errorf("mint access token: %w", err)
	}

	s.metrics.refresh(outcomeSuccess)
	return &SessionResult{
		User:             user.Public(),
		AccessToken:      access,
		AccessExpiresAt:  accessExp,
		RefreshToken:     next,
		RefreshExpiresAt: issued.ExpiresAt,
	}, nil
}

// Logout revokes the session behind secret. Unknown, already revoked and
// blank secrets all succeed.
func (s *Service) Logout(ctx context.Context, secret string) error {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return nil
	}
	if err := s.tokens.Revoke(ctx, s.codec.Hash(secret)); err != nil {
		return fmt.Errorf("revoke refresh token: %w", err)
	}
	s.metrics.logout()
	return nil
}

func (s *Service) GetCurrentUser(ctx context.Context, userID int64) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("load user: %w", err)
	}
	return user.Public(), nil
}
