package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"routine/internal/pkg/jwt"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type jwtValidator struct{ svc *jwt.Service }

func (v jwtValidator) ValidateAccessToken(token string) (*jwt.Claims, error) {
	return v.svc.ValidateToken(token)
}

func protectedRouter(t *testing.T, svc *jwt.Service, reached *bool) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(JWTAuth(jwtValidator{svc}))
	router.GET("/protected", func(c *gin.Context) {
		*reached = true
		c.JSON(http.StatusOK, gin.H{
			"user_id": c.GetInt64("user_id"),
			"email":   c.GetString("email"),
		})
	})
	return router
}

func TestJWTAuth_ValidToken(t *testing.T) {
	svc := jwt.New("test-secret-123", time.Hour)
	token, _, err := svc.GenerateToken(42, "me@example.com")
	require.NoError(t, err)

	var reached bool
	router := protectedRouter(t, svc, &reached)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, reached)
	assert.Contains(t, w.Body.String(), `"user_id":42`)
	assert.Contains(t, w.Body.String(), "me@example.com")
}

func TestJWTAuth_Rejections(t *testing.T) {
	svc := jwt.New("secret", time.Hour)
	foreign, _, err := jwt.New("other-secret", time.Hour).GenerateToken(1, "x@example.com")
	require.NoError(t, err)

	cases := []struct {
		name   string
		header string
		code   string
	}{
		{"missing header", "", "AUTH_HEADER_MISSING"},
		{"basic scheme", "Basic dGVzdA==", "INVALID_AUTH_FORMAT"},
		{"bearer without token", "Bearer ", "INVALID_AUTH_FORMAT"},
		{"garbage token", "Bearer invalid-jwt-here", "INVALID_TOKEN"},
		{"foreign signature", "Bearer " + foreign, "INVALID_TOKEN"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var reached bool
			router := protectedRouter(t, svc, &reached)

			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/protected", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			router.ServeHTTP(w, req)

			assert.Equal(t, http.StatusUnauthorized, w.Code)
			assert.Contains(t, w.Body.String(), tc.code)
			assert.False(t, reached)
		})
	}
}
