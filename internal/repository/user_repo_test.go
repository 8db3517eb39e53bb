package repository

import (
	"context"
	"testing"

	"routine/internal/database/dbtest"
	"routine/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupUserRepo(t *testing.T) *UserRepository {
	t.Helper()
	db := dbtest.Open(t)
	require.NoError(t, Migrate(db))
	return NewUserRepository(db)
}

func TestUserRepository_CreateAndLookup(t *testing.T) {
	repo := setupUserRepo(t)
	ctx := context.Background()

	u := &domain.User{Email: "  Alice@Example.COM ", PasswordHash: "$2a$hash", Name: " Alice "}
	require.NoError(t, repo.Create(ctx, u))
	assert.NotZero(t, u.ID)
	assert.Equal(t, "alice@example.com", u.Email)
	assert.Equal(t, "Alice", u.Name)

	byEmail, err := repo.GetByEmail(ctx, "ALICE@example.com")
	require.NoError(t, err)
	assert.Equal(t, u.ID, byEmail.ID)
	assert.Equal(t, "$2a$hash", byEmail.PasswordHash)

	byID, err := repo.GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", byID.Email)
}

func TestUserRepository_NotFound(t *testing.T) {
	repo := setupUserRepo(t)
	ctx := context.Background()

	_, err := repo.GetByEmail(ctx, "ghost@example.com")
	assert.ErrorIs(t, err, ErrUserNotFound)

	_, err = repo.GetByID(ctx, 4242)
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestUserRepository_EmailIsUnique(t *testing.T) {
	repo := setupUserRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, &domain.User{Email: "bob@example.com", PasswordHash: "x"}))
	err := repo.Create(ctx, &domain.User{Email: "BOB@example.com", PasswordHash: "y"})
	assert.Error(t, err)
}

func TestNormalizeEmail(t *testing.T) {
	assert.Equal(t, "a@b.c", NormalizeEmail("  A@B.c\t"))
	assert.Equal(t, "", NormalizeEmail("   "))
}
