package auth

import (
	"context"
	"sync"
	"testing"
	"time"

	"routine/internal/database"
	"routine/internal/database/dbtest"
	"routine/internal/domain"
	"routine/internal/pkg/jwt"
	"routine/internal/pkg/logging"
	"routine/internal/repository"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const testPassword = "correct-horse"

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type testEnv struct {
	db      *gorm.DB
	users   *repository.UserRepository
	tokens  *repository.RefreshTokenRepository
	codec   *TokenCodec
	metrics *Metrics
	clock   *testClock
	service *Service
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db := dbtest.Open(t)
	require.NoError(t, repository.Migrate(db))

	clock := &testClock{now: time.Now().UTC()}
	users := repository.NewUserRepository(db)
	tokens := repository.NewRefreshTokenRepository(db, database.NewTransactor(db, database.DialectSQLite, 10), 5).
		WithClock(clock.Now).
		WithLogger(logging.Discard())

	verifier, err := NewCredentialVerifier(users, bcrypt.MinCost)
	require.NoError(t, err)
	codec := NewTokenCodec(jwt.New("test-jwt-secret", 15*time.Minute), "test-pepper")
	metrics := NewMetrics(prometheus.NewRegistry())

	return &testEnv{
		db:      db,
		users:   users,
		tokens:  tokens,
		codec:   codec,
		metrics: metrics,
		clock:   clock,
		service: NewService(users, tokens, verifier, codec, time.Hour, metrics, logging.Discard()),
	}
}

func (e *testEnv) createUser(t *testing.T, email string) *domain.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(testPassword), bcrypt.MinCost)
	require.NoError(t, err)
	u := &domain.User{Email: email, PasswordHash: string(hash), Name: "Test User"}
	require.NoError(t, e.users.Create(context.Background(), u))
	return u
}
