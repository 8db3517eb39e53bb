package main

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"routine/internal/config"
	"routine/internal/database"
	"routine/internal/middleware"
	"routine/internal/modules/auth"
	jwtsvc "routine/internal/pkg/jwt"
	"routine/internal/pkg/response"
	"routine/internal/repository"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"
)

// newRouter wires every dependency of the HTTP surface onto db.
func newRouter(cfg *config.AuthRuntimeConfig, db *gorm.DB, log *slog.Logger) (*gin.Engine, error) {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	tx := database.NewTransactor(db, database.DialectOf(cfg.DatabaseURL), cfg.TxMaxAttempts)
	userRepo := repository.NewUserRepository(db)
	tokenRepo := repository.NewRefreshTokenRepository(db, tx, cfg.MaxActiveTokens).WithLogger(log)

	verifier, err := auth.NewCredentialVerifier(userRepo, cfg.BcryptCost)
	if err != nil {
		return nil, err
	}
	codec := auth.NewTokenCodec(jwtsvc.New(cfg.JWTSecret, cfg.JWTAccessTTL), cfg.RefreshTokenPepper)
	authService := auth.NewService(userRepo, tokenRepo, verifier, codec, cfg.RefreshTTL, auth.NewMetrics(registry), log)
	authHandler := auth.NewHandler(authService, auth.CookieConfig{
		Secure:   cfg.CookieSecure,
		SameSite: cfg.CookieSameSite,
		Path:     cfg.CookiePath,
	}, log)

	r := gin.New()
	r.Use(middleware.RequestLogger(log), middleware.CORS(cfg.CORSAllowedOrigins...))

	r.GET("/healthz", healthz(db))
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))

	limiter := middleware.NewIPRateLimiter(cfg.LoginRatePerMin)
	v1 := r.Group("/api/v1")
	{
		authHandler.RegisterPublicRoutes(v1, limiter.Middleware())

		protected := v1.Group("")
		protected.Use(middleware.JWTAuth(codec))
		{
			authHandler.RegisterProtectedRoutes(protected)
		}
	}

	return r, nil
}

func healthz(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		sqlDB, err := db.DB()
		if err == nil {
			err = sqlDB.PingContext(ctx)
		}
		if err != nil {
			response.Error(c, http.StatusServiceUnavailable, "DB_UNAVAILABLE", "Database is unreachable")
			return
		}
		response.Success(c, http.StatusOK, gin.H{"status": "ok"})
	}
}
