package auth

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"time"

	"routine/internal/pkg/jwt"
)

const refreshSecretBytes = 32

// TokenCodec mints access tokens and opaque refresh secrets. Only the
// peppered hash of a refresh secret is ever handed to storage.
type TokenCodec struct {
	access *jwt.Service
	pepper []byte
}

func NewTokenCodec(access *jwt.Service, pepper string) *TokenCodec {
	return &TokenCodec{access: access, pepper: []byte(pepper)}
}

func (c *TokenCodec) MintAccessToken(userID int64, email string) (string, time.Time, error) {
	return c.access.GenerateToken(userID, email)
}

func (c *TokenCodec) ValidateAccessToken(token string) (*jwt.Claims, error) {
	return c.access.ValidateToken(token)
}

func (c *TokenCodec) MintRefreshSecret() (string, error) {
	b := make([]byte, refreshSecretBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// Hash is deterministic for a given pepper.
func (c *TokenCodec) Hash(secret string) string {
	mac := hmac.New(sha256.New, c.pepper)
	mac.Write([]byte(secret))
	return hex.EncodeToString(mac.Sum(nil))
}
