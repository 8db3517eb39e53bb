package auth

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"routine/internal/pkg/response"
	"routine/internal/pkg/validator"

	"github.com/gin-gonic/gin"
)

const refreshCookieName = "refresh_token"

// CookieConfig controls the HttpOnly refresh cookie.
type CookieConfig struct {
	Secure   bool
	SameSite string
	Path     string
}

type Handler struct {
	service    *Service
	cookie     CookieConfig
	refreshTTL time.Duration
	log        *slog.Logger
}

func NewHandler(service *Service, cookie CookieConfig, log *slog.Logger) *Handler {
	if cookie.Path == "" {
		cookie.Path = "/"
	}
	if log == nil {
		log = slog.Default()
	}
	return &Handler{
		service:    service,
		cookie:     cookie,
		refreshTTL: service.RefreshTTL(),
		log:        log,
	}
}

// RegisterPublicRoutes mounts /auth. guard runs before login and refresh only.
func (h *Handler) RegisterPublicRoutes(v1 *gin.RouterGroup, guard ...gin.HandlerFunc) {
	auth := v1.Group("/auth")
	auth.POST("/login", withGuard(guard, h.Login)...)
	auth.POST("/refresh", withGuard(guard, h.Refresh)...)
	auth.POST("/logout", h.Logout)
}

func (h *Handler) RegisterProtectedRoutes(protected *gin.RouterGroup) {
	protected.GET("/users/me", h.GetMe)
}

func withGuard(guard []gin.HandlerFunc, h gin.HandlerFunc) []gin.HandlerFunc {
	out := make([]gin.HandlerFunc, 0, len(guard)+1)
	out = append(out, guard...)
	return append(out, h)
}

// Login exchanges credentials for an access token and a refresh token.
// @Summary		Login
// @Tags		Auth
// @Accept		json
// @Produce		json
// @Param		body	body	LoginRequest	true	"credentials"
// @Success		200	{object}	map[string]interface{}
// @Failure		400	{object}	map[string]interface{}
// @Failure		401	{object}	map[string]interface{}
// @Router		/auth/login [post]
func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}
	req.Email = strings.TrimSpace(req.Email)
	if errs := validator.Validate(req); errs != nil {
		response.ErrorWithDetails(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body", errs)
		return
	}

	res, err := h.service.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			response.Error(c, http.StatusUnauthorized, "INVALID_CREDENTIALS", "Email or password is incorrect")
			return
		}
		h.log.Error("login failed", "error", err)
		response.Error(c, http.StatusInternalServerError, "LOGIN_FAILED", "Failed to login")
		return
	}

	h.setRefreshCookie(c, res.RefreshToken)
	response.Success(c, http.StatusOK, gin.H{
		"user":   res.User,
		"tokens": tokensFrom(res),
	})
}

// Refresh rotates the refresh token taken from the body or the cookie.
// @Summary		Refresh tokens
// @Tags		Auth
// @Produce		json
// @Success		200	{object}	map[string]interface{}
// @Failure		401	{object}	map[string]interface{}
// @Router		/auth/refresh [post]
func (h *Handler) Refresh(c *gin.Context) {
	res, err := h.service.Refresh(c.Request.Context(), refreshSecret(c))
	if err != nil {
		switch {
		case errors.Is(err, ErrRefreshTokenExpired):
			h.clearRefreshCookie(c)
			response.Error(c, http.StatusUnauthorized, "INVALID_REFRESH_TOKEN", "Refresh token expired")
		case errors.Is(err, ErrUnauthenticated):
			h.clearRefreshCookie(c)
			response.Error(c, http.StatusUnauthorized, "INVALID_REFRESH_TOKEN", "Invalid refresh token")
		default:
			h.log.Error("refresh failed", "error", err)
			response.Error(c, http.StatusInternalServerError, "REFRESH_FAILED", "Failed to refresh session")
		}
		return
	}

	h.setRefreshCookie(c, res.RefreshToken)
	response.Success(c, http.StatusOK, gin.H{
		"user":   res.User,
		"tokens": tokensFrom(res),
	})
}

// Logout revokes the refresh token and clears the cookie.
// @Summary		Logout
// @Tags		Auth
// @Success		204	"No Content"
// @Router		/auth/logout [post]
func (h *Handler) Logout(c *gin.Context) {
	if err := h.service.Logout(c.Request.Context(), refreshSecret(c)); err != nil {
		h.log.Error("logout failed", "error", err)
		response.Error(c, http.StatusInternalServerError, "LOGOUT_FAILED", "Failed to logout")
		return
	}

	h.clearRefreshCookie(c)
	c.Status(http.StatusNoContent)
}

// GetMe returns the user identified by the access token.
// @Summary		Current user
// @Tags		Users
// @Security	BearerAuth
// @Success		200	{object}	map[string]interface{}
// @Failure		401	{object}	map[string]interface{}
// @Failure		404	{object}	map[string]interface{}
// @Router		/users/me [get]
func (h *Handler) GetMe(c *gin.Context) {
	userIDAny, exists := c.Get("user_id")
	userID, ok := userIDAny.(int64)
	if !exists || !ok || userID == 0 {
		response.Error(c, http.StatusUnauthorized, "UNAUTHORIZED", "Unauthorized")
		return
	}

	user, err := h.service.GetCurrentUser(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			response.Error(c, http.StatusNotFound, "USER_NOT_FOUND", "User not found")
			return
		}
		h.log.Error("get current user failed", "user_id", userID, "error", err)
		response.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to load user")
		return
	}

	response.Success(c, http.StatusOK, gin.H{"user": user})
}

// refreshSecret prefers an explicit body value over the cookie.
func refreshSecret(c *gin.Context) string {
	if c.Request.ContentLength != 0 {
		var req RefreshRequest
		if err := c.ShouldBindJSON(&req); err == nil && strings.TrimSpace(req.RefreshToken) != "" {
			return req.RefreshToken
		}
	}
	if v, err := c.Cookie(refreshCookieName); err == nil {
		return v
	}
	return ""
}

func (h *Handler) setRefreshCookie(c *gin.Context, secret string) {
	c.SetSameSite(parseSameSite(h.cookie.SameSite))
	c.SetCookie(refreshCookieName, secret, int(h.refreshTTL/time.Second), h.cookie.Path, "", h.cookie.Secure, true)
}

func (h *Handler) clearRefreshCookie(c *gin.Context) {
	c.SetSameSite(parseSameSite(h.cookie.SameSite))
	c.SetCookie(refreshCookieName, "", -1, h.cookie.Path, "", h.cookie.Secure, true)
}

func parseSameSite(mode string) http.SameSite {
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "strict":
		return http.SameSiteStrictMode
	case "none":
		return http.SameSiteNoneMode
	default:
		return http.SameSiteLaxMode
	}
}
