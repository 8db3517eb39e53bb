package domain

import "time"

// RefreshToken is one live refresh session of a user.
//
// Security notes:
// - We never store the raw token in DB, only its keyed SHA-256 hash (TokenHash).
// - A row is deleted the moment it is used; the refresh issues a new one.
// - A row with ExpiresAt <= now is dead even if the sweep has not removed it yet.
type RefreshToken struct {
	ID int64 `json:"id" gorm:"primaryKey"`

	UserID int64 `json:"user_id" gorm:"index:idx_refresh_tokens_user_created,priority:1;not null"`

	TokenHash string `json:"-" gorm:"size:64;uniqueIndex;not null"`

	ExpiresAt time.Time `json:"expires_at" gorm:"index;not null"`
	CreatedAt time.Time `json:"created_at" gorm:"index:idx_refresh_tokens_user_created,priority:2;not null"`
}

func (RefreshToken) TableName() string { return "refresh_tokens" }

func (t *RefreshToken) IsExpired(now time.Time) bool {
	return !t.ExpiresAt.After(now)
}
