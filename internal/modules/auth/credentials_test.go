package auth

import (
	"context"
	"errors"
	"testing"

	"routine/internal/domain"
	"routine/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type mockUserStore struct {
	mock.Mock
}

func (m *mockUserStore) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *mockUserStore) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

// countingVerifier records which hash every comparison ran against.
func countingVerifier(t *testing.T, users UserStore) (*CredentialVerifier, *[][]byte) {
	t.Helper()
	v, err := NewCredentialVerifier(users, bcrypt.MinCost)
	require.NoError(t, err)
	var seen [][]byte
	v.compare = func(hash, password []byte) error {
		seen = append(seen, hash)
		return bcrypt.CompareHashAndPassword(hash, password)
	}
	return v, &seen
}

func TestVerify_Success(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("pa55word"), bcrypt.MinCost)
	require.NoError(t, err)
	users := new(mockUserStore)
	users.On("GetByEmail", mock.Anything, "alice@example.com").
		Return(&domain.User{ID: 1, Email: "alice@example.com", PasswordHash: string(hash)}, nil)

	v, _ := countingVerifier(t, users)
	u, err := v.Verify(context.Background(), "  Alice@Example.com ", "pa55word")

	require.NoError(t, err)
	assert.Equal(t, int64(1), u.ID)
	users.AssertExpectations(t)
}

func TestVerify_WrongPassword(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("pa55word"), bcrypt.MinCost)
	require.NoError(t, err)
	users := new(mockUserStore)
	users.On("GetByEmail", mock.Anything, "alice@example.com").
		Return(&domain.User{ID: 1, PasswordHash: string(hash)}, nil)

	v, seen := countingVerifier(t, users)
	_, err = v.Verify(context.Background(), "alice@example.com", "nope-nope")

	assert.ErrorIs(t, err, ErrInvalidCredentials)
	assert.ErrorIs(t, err, ErrUnauthenticated)
	assert.Len(t, *seen, 1)
}

func TestVerify_UnknownUserStillComparesAgainstDummy(t *testing.T) {
	users := new(mockUserStore)
	users.On("GetByEmail", mock.Anything, "ghost@example.com").Return(nil, repository.ErrUserNotFound)

	v, seen := countingVerifier(t, users)
	_, err := v.Verify(context.Background(), "ghost@example.com", "whatever")

	assert.ErrorIs(t, err, ErrInvalidCredentials)
	require.Len(t, *seen, 1, "bcrypt must run for unknown users")
	assert.Equal(t, v.dummyHash, (*seen)[0])
}

func TestVerify_UnknownAndWrongPasswordLookAlike(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("pa55word"), bcrypt.MinCost)
	require.NoError(t, err)
	users := new(mockUserStore)
	users.On("GetByEmail", mock.Anything, "known@example.com").
		Return(&domain.User{ID: 1, PasswordHash: string(hash)}, nil)
	users.On("GetByEmail", mock.Anything, "ghost@example.com").Return(nil, repository.ErrUserNotFound)

	v, _ := countingVerifier(t, users)
	_, errKnown := v.Verify(context.Background(), "known@example.com", "bad-password")
	_, errGhost := v.Verify(context.Background(), "ghost@example.com", "bad-password")

	assert.Equal(t, errKnown, errGhost)
	assert.Equal(t, errKnown.Error(), errGhost.Error())
}

func TestVerify_StorageFailureIsInternal(t *testing.T) {
	boom := errors.New("connection reset")
	users := new(mockUserStore)
	users.On("GetByEmail", mock.Anything, "a@example.com").Return(nil, boom)

	v, seen := countingVerifier(t, users)
	_, err := v.Verify(context.Background(), "a@example.com", "whatever")

	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, ErrUnauthenticated)
	assert.Empty(t, *seen)
}

func TestVerify_EmptyStoredHash(t *testing.T) {
	users := new(mockUserStore)
	users.On("GetByEmail", mock.Anything, "a@example.com").Return(&domain.User{ID: 3}, nil)

	v, _ := countingVerifier(t, users)
	_, err := v.Verify(context.Background(), "a@example.com", "whatever")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}
