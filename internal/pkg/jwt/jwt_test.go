package jwt

import (
	"testing"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAndValidate(t *testing.T) {
	svc := New("test-secret", 15*time.Minute)

	tok, exp, err := svc.GenerateToken(42, "a@example.com")
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(15*time.Minute), exp, 5*time.Second)

	claims, err := svc.ValidateToken(tok)
	require.NoError(t, err)
	assert.Equal(t, int64(42), claims.UserID)
	assert.Equal(t, "a@example.com", claims.Email)
	assert.NotEmpty(t, claims.ID)
}

func TestTokensHaveDistinctIDs(t *testing.T) {
	svc := New("test-secret", time.Minute)

	a, _, err := svc.GenerateToken(1, "x@example.com")
	require.NoError(t, err)
	b, _, err := svc.GenerateToken(1, "x@example.com")
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestValidate_RejectsWrongSecret(t *testing.T) {
	tok, _, err := New("one", time.Minute).GenerateToken(1, "x@example.com")
	require.NoError(t, err)

	_, err = New("two", time.Minute).ValidateToken(tok)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidate_RejectsExpired(t *testing.T) {
	svc := New("s", time.Minute)
	svc.now = func() time.Time { return time.Now().Add(-time.Hour) }
	tok, _, err := svc.GenerateToken(1, "x@example.com")
	require.NoError(t, err)

	_, err = New("s", time.Minute).ValidateToken(tok)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidate_RejectsOtherAlgorithms(t *testing.T) {
	claims := Claims{
		UserID: 1,
		RegisteredClaims: jwtlib.RegisteredClaims{
			ExpiresAt: jwtlib.NewNumericDate(time.Now().Add(time.Minute)),
		},
	}
	tok, err := jwtlib.NewWithClaims(jwtlib.SigningMethodHS512, claims).SignedString([]byte("s"))
	require.NoError(t, err)

	_, err = New("s", time.Minute).ValidateToken(tok)
	assert.ErrorIs(t, err, ErrInvalidToken)

	none, err := jwtlib.NewWithClaims(jwtlib.SigningMethodNone, claims).SignedString(jwtlib.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = New("s", time.Minute).ValidateToken(none)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidate_Garbage(t *testing.T) {
	_, err := New("s", time.Minute).ValidateToken("not.a.token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}
