package repository

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"routine/internal/database"
	"routine/internal/domain"

	"gorm.io/gorm"
)

const DefaultMaxActiveTokens = 5

var (
	ErrRefreshTokenNotFound = errors.New("refresh token not found")
	ErrRefreshTokenExpired  = errors.New("refresh token expired")
)

// RefreshTokenRepository is the only writer of the refresh_tokens table.
// Every method runs as one transaction obtained from the Transactor.
type RefreshTokenRepository struct {
	db        *gorm.DB
	tx        database.Transactor
	maxActive int
	now       func() time.Time
	log       *slog.Logger
}

func NewRefreshTokenRepository(db *gorm.DB, tx database.Transactor, maxActive int) *RefreshTokenRepository {
	if maxActive < 1 {
		maxActive = DefaultMaxActiveTokens
	}
	return &RefreshTokenRepository{
		db:        db,
		tx:        tx,
		maxActive: maxActive,
		now:       time.Now,
		log:       slog.Default(),
	}
}

// WithClock replaces the wall clock used for expiry decisions.
func (r *RefreshTokenRepository) WithClock(now func() time.Time) *RefreshTokenRepository {
	r.now = now
	return r
}

// WithLogger sets the logger that receives prune and eviction records.
func (r *RefreshTokenRepository) WithLogger(log *slog.Logger) *RefreshTokenRepository {
	r.log = log
	return r
}

// MaxActive is the per-user cap of live refresh tokens.
func (r *RefreshTokenRepository) MaxActive() int { return r.maxActive }

// Issue stores a new token for userID. Inside one transaction it first drops
// the user's expired rows, then evicts the oldest live rows so that the new
// one fits under the cap, then inserts. Expired rows never count against the cap.
func (r *RefreshTokenRepository) Issue(ctx context.Context, userID int64, tokenHash string, ttl time.Duration) (*domain.RefreshToken, error) {
	var issued *domain.RefreshToken
	err := r.tx.InTx(ctx, sql.LevelSerializable, func(tx *gorm.DB) error {
		var err error
		issued, err = r.issueTx(tx, userID, tokenHash, ttl, r.clock())
		return err
	})
	if err != nil {
		return nil, err
	}
	return issued, nil
}

// Consume claims the token identified by tokenHash. Exactly one caller can
// claim a given token; the others get ErrRefreshTokenNotFound. An expired
// token is deleted and reported as ErrRefreshTokenExpired.
func (r *RefreshTokenRepository) Consume(ctx context.Context, tokenHash string) (*domain.RefreshToken, error) {
	var (
		consumed *domain.RefreshToken
		expired  bool
	)
	err := r.tx.InTx(ctx, sql.LevelDefault, func(tx *gorm.DB) error {
		consumed, expired = nil, false
		rec, err := r.consumeTx(tx, tokenHash, r.clock())
		if errors.Is(err, ErrRefreshTokenExpired) {
			// commit the cleanup of the dead row
			expired = true
			return nil
		}
		if err != nil {
			return err
		}
		consumed = rec
		return nil
	})
	if err != nil {
		return nil, err
	}
	if expired {
		return nil, ErrRefreshTokenExpired
	}
	return consumed, nil
}

// Rotate consumes oldHash and issues newHash for the same user in a single
// transaction: either both happen or neither does.
func (r *RefreshTokenRepository) Rotate(ctx context.Context, oldHash, newHash string, ttl time.Duration) (*domain.RefreshToken, *domain.RefreshToken, error) {
	var (
		consumed, issued *domain.RefreshToken
		expired          bool
	)
	err := r.tx.InTx(ctx, sql.LevelSerializable, func(tx *gorm.DB) error {
		consumed, issued, expired = nil, nil, false
		now := r.clock()

		rec, err := r.consumeTx(tx, oldHash, now)
		if errors.Is(err, ErrRefreshTokenExpired) {
			expired = true
			return nil
		}
		if err != nil {
			return err
		}

		next, err := r.issueTx(tx, rec.UserID, newHash, ttl, now)
		if err != nil {
			return err
		}
		consumed, issued = rec, next
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	if expired {
		return nil, nil, ErrRefreshTokenExpired
	}
	return consumed, issued, nil
}

// Revoke deletes the token if it exists. Revoking an unknown or already
// revoked token is not an error.
func (r *RefreshTokenRepository) Revoke(ctx context.Context, tokenHash string) error {
	return r.tx.InTx(ctx, sql.LevelDefault, func(tx *gorm.DB) error {
		return tx.Where("token_hash = ?", tokenHash).Delete(&domain.RefreshToken{}).Error
	})
}

// DeleteExpired removes every expired token regardless of owner. It backs the
// periodic cleanup job; correctness never depends on it running.
func (r *RefreshTokenRepository) DeleteExpired(ctx context.Context) (int64, error) {
	var deleted int64
	err := r.tx.InTx(ctx, sql.LevelDefault, func(tx *gorm.DB) error {
		res := tx.Where("expires_at <= ?", r.clock()).Delete(&domain.RefreshToken{})
		deleted = res.RowsAffected
		return res.Error
	})
	if err != nil {
		return 0, err
	}
	return deleted, nil
}

// OwnerOf returns the user holding tokenHash without claiming it. Expiry is
// not checked here; Consume and Rotate decide that.
func (r *RefreshTokenRepository) OwnerOf(ctx context.Context, tokenHash string) (int64, error) {
	var rec domain.RefreshToken
	err := r.db.WithContext(ctx).
		Select("user_id").
		Where("token_hash = ?", tokenHash).
		Take(&rec).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, ErrRefreshTokenNotFound
		}
		return 0, err
	}
	return rec.UserID, nil
}

// CountActive returns the number of unexpired tokens held by userID.
func (r *RefreshTokenRepository) CountActive(ctx context.Context, userID int64) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).
		Model(&domain.RefreshToken{}).
		Where("user_id = ? AND expires_at > ?", userID, r.clock()).
		Count(&n).Error
	return n, err
}

func (r *RefreshTokenRepository) issueTx(tx *gorm.DB, userID int64, tokenHash string, ttl time.Duration, now time.Time) (*domain.RefreshToken, error) {
	pruned := tx.Where("user_id = ? AND expires_at <= ?", userID, now).Delete(&domain.RefreshToken{})
	if pruned.Error != nil {
		return nil, pruned.Error
	}

	var active int64
	if err := tx.Model(&domain.RefreshToken{}).
		Where("user_id = ? AND expires_at > ?", userID, now).
		Count(&active).Error; err != nil {
		return nil, err
	}

	var evicted int64
	keep := int64(r.maxActive - 1)
	if active > keep {
		var ids []int64
		if err := tx.Model(&domain.RefreshToken{}).
			Where("user_id = ? AND expires_at > ?", userID, now).
			Order("created_at ASC").
			Order("id ASC").
			Limit(int(active-keep)).
			Pluck("id", &ids).Error; err != nil {
			return nil, err
		}
		res := tx.Where("id IN ?", ids).Delete(&domain.RefreshToken{})
		if res.Error != nil {
			return nil, res.Error
		}
		evicted = res.RowsAffected
	}

	rec := &domain.RefreshToken{
		UserID:    userID,
		TokenHash: tokenHash,
		ExpiresAt: now.Add(ttl),
		CreatedAt: now,
	}
	if err := tx.Create(rec).Error; err != nil {
		return nil, err
	}

	if pruned.RowsAffected > 0 || evicted > 0 {
		r.log.Debug("refresh tokens reclaimed",
			"user_id", userID,
			"pruned", pruned.RowsAffected,
			"evicted", evicted,
		)
	}
	return rec, nil
}

func (r *RefreshTokenRepository) consumeTx(tx *gorm.DB, tokenHash string, now time.Time) (*domain.RefreshToken, error) {
	var rec domain.RefreshToken
	if err := tx.Where("token_hash = ?", tokenHash).Take(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRefreshTokenNotFound
		}
		return nil, err
	}

	if rec.IsExpired(now) {
		if err := tx.Where("id = ?", rec.ID).Delete(&domain.RefreshToken{}).Error; err != nil {
			return nil, err
		}
		return nil, ErrRefreshTokenExpired
	}

	// Conditional delete: zero affected rows means a concurrent caller
	// claimed this row between our read and our delete.
	res := tx.Where("id = ? AND token_hash = ?", rec.ID, rec.TokenHash).Delete(&domain.RefreshToken{})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected != 1 {
		return nil, ErrRefreshTokenNotFound
	}
	return &rec, nil
}

func (r *RefreshTokenRepository) clock() time.Time {
	return r.now().UTC()
}
