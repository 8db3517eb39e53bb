package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

const (
	defaultDatabaseURL        = "file:routine.db?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_txlock=immediate"
	defaultHTTPAddr           = ":8080"
	defaultLogLevel           = "info"
	defaultMaxActiveTokens    = "5"
	defaultTxMaxAttempts      = "5"
	defaultLoginRatePerMin    = "10"
	defaultBcryptCost         = "10"
	defaultJWTAccessTTL       = "15m"
	defaultRefreshTTL         = "168h"
	defaultCookieSecure       = "false"
	defaultCookieSameSite     = "Lax"
	defaultCookiePath         = "/api/v1/auth"
	defaultJWTSecret          = "change-me-jwt-secret"
	defaultRefreshTokenPepper = "change-me-refresh-pepper"
)

type AuthRuntimeConfig struct {
	AppEnv             string
	DatabaseURL        string
	HTTPAddr           string
	LogLevel           string
	MaxActiveTokens    int
	TxMaxAttempts      int
	LoginRatePerMin    int
	BcryptCost         int
	JWTSecret          string
	JWTAccessTTL       time.Duration
	RefreshTTL         time.Duration
	RefreshTokenPepper string
	CookieSecure       bool
	CookieSameSite     string
	CookiePath         string
	CORSAllowedOrigins []string
}

// source resolves a setting from the environment first, then from the
// optional TOML file, then from the built-in default.
type source struct {
	file map[string]string
}

func (s source) get(name, fallback string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	if v, ok := s.file[name]; ok && v != "" {
		return v
	}
	return fallback
}

// LoadAuthRuntimeConfig reads the process configuration. AUTH_CONFIG_FILE,
// when set, names a TOML file whose keys (case-insensitive, e.g.
// max_active_tokens) provide base values under the environment.
func LoadAuthRuntimeConfig() (*AuthRuntimeConfig, error) {
	src := source{}
	if path := strings.TrimSpace(os.Getenv("AUTH_CONFIG_FILE")); path != "" {
		file, err := readConfigFile(path)
		if err != nil {
			return nil, err
		}
		src.file = file
	}
	return load(src)
}

func load(src source) (*AuthRuntimeConfig, error) {
	cfg := &AuthRuntimeConfig{}
	appEnv := strings.TrimSpace(src.get("APP_ENV", ""))
	if appEnv == "" {
		appEnv = strings.TrimSpace(src.get("ENV", "dev"))
	}
	cfg.AppEnv = strings.ToLower(appEnv)

	cfg.DatabaseURL = strings.TrimSpace(src.get("DATABASE_URL", defaultDatabaseURL))
	cfg.HTTPAddr = strings.TrimSpace(src.get("HTTP_ADDR", defaultHTTPAddr))
	cfg.LogLevel = strings.TrimSpace(src.get("LOG_LEVEL", defaultLogLevel))
	cfg.JWTSecret = strings.TrimSpace(src.get("JWT_SECRET", defaultJWTSecret))
	cfg.RefreshTokenPepper = strings.TrimSpace(src.get("REFRESH_TOKEN_PEPPER", defaultRefreshTokenPepper))

	var err error
	if cfg.MaxActiveTokens, err = parseIntEnv(src, "MAX_ACTIVE_TOKENS", defaultMaxActiveTokens); err != nil {
		return nil, err
	}
	if cfg.TxMaxAttempts, err = parseIntEnv(src, "TX_MAX_ATTEMPTS", defaultTxMaxAttempts); err != nil {
		return nil, err
	}
	if cfg.LoginRatePerMin, err = parseIntEnv(src, "LOGIN_RATE_PER_MIN", defaultLoginRatePerMin); err != nil {
		return nil, err
	}
	if cfg.BcryptCost, err = parseIntEnv(src, "BCRYPT_COST", defaultBcryptCost); err != nil {
		return nil, err
	}
	if cfg.JWTAccessTTL, err = parseDurationEnv(src, "JWT_ACCESS_TTL", defaultJWTAccessTTL); err != nil {
		return nil, err
	}
	if cfg.RefreshTTL, err = parseDurationEnv(src, "REFRESH_TTL", defaultRefreshTTL); err != nil {
		return nil, err
	}

	cfg.CookieSecure = parseBoolEnv(src, "COOKIE_SECURE", defaultCookieSecure)
	cfg.CookieSameSite = strings.TrimSpace(src.get("COOKIE_SAMESITE", defaultCookieSameSite))
	cfg.CookiePath = strings.TrimSpace(src.get("COOKIE_PATH", defaultCookiePath))

	for _, o := range strings.Split(src.get("CORS_ALLOWED_ORIGINS", ""), ",") {
		if o = strings.TrimSpace(o); o != "" {
			cfg.CORSAllowedOrigins = append(cfg.CORSAllowedOrigins, o)
		}
	}

	if err := validateConfig(cfg); err != nil {
		return nil, err
	}

	slog.Info("auth config loaded",
		"env", cfg.AppEnv,
		"max_active_tokens", cfg.MaxActiveTokens,
		"cookie_secure", cfg.CookieSecure,
		"cookie_same_site", cfg.CookieSameSite,
		"cookie_path", cfg.CookiePath,
	)

	return cfg, nil
}

func readConfigFile(path string) (map[string]string, error) {
	raw := map[string]any{}
	if _, err := toml.DecodeFile(path, &raw); err != nil {
		return nil, fmt.Errorf("read config file %s: %w", path, err)
	}
	out := make(map[string]string, len(raw))
	for k, v := range raw {
		switch tv := v.(type) {
		case []any:
			parts := make([]string, 0, len(tv))
			for _, p := range tv {
				parts = append(parts, fmt.Sprint(p))
			}
			out[strings.ToUpper(k)] = strings.Join(parts, ",")
		case map[string]any:
			return nil, fmt.Errorf("read config file %s: nested table %q is not supported", path, k)
		default:
			out[strings.ToUpper(k)] = fmt.Sprint(tv)
		}
	}
	return out, nil
}

func validateConfig(cfg *AuthRuntimeConfig) error {
	if cfg.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL must not be empty")
	}
	if cfg.MaxActiveTokens < 1 {
		return fmt.Errorf("MAX_ACTIVE_TOKENS must be >= 1")
	}
	if cfg.TxMaxAttempts < 1 {
		return fmt.Errorf("TX_MAX_ATTEMPTS must be >= 1")
	}
	if cfg.LoginRatePerMin < 1 {
		return fmt.Errorf("LOGIN_RATE_PER_MIN must be >= 1")
	}
	if cfg.BcryptCost < 4 || cfg.BcryptCost > 31 {
		return fmt.Errorf("BCRYPT_COST must be between 4 and 31")
	}
	if cfg.JWTAccessTTL <= 0 {
		return fmt.Errorf("JWT_ACCESS_TTL must be > 0")
	}
	if cfg.RefreshTTL <= 0 {
		return fmt.Errorf("REFRESH_TTL must be > 0")
	}
	if cfg.CookiePath == "" {
		return fmt.Errorf("COOKIE_PATH must not be empty")
	}
	sameSite := strings.ToLower(cfg.CookieSameSite)
	if sameSite != "lax" && sameSite != "none" && sameSite != "strict" {
		return fmt.Errorf("COOKIE_SAMESITE must be one of: Lax, None, Strict")
	}
	if sameSite == "none" && !cfg.CookieSecure {
		return fmt.Errorf("COOKIE_SECURE must be true when COOKIE_SAMESITE=None")
	}

	if isProdLike(cfg.AppEnv) {
		if isEmptyOrDefault(cfg.JWTSecret, defaultJWTSecret) {
			return fmt.Errorf("in prod/release JWT_SECRET must be set and not default")
		}
		if isEmptyOrDefault(cfg.RefreshTokenPepper, defaultRefreshTokenPepper) {
			return fmt.Errorf("in prod/release REFRESH_TOKEN_PEPPER must be set and not default")
		}
		if !cfg.CookieSecure {
			return fmt.Errorf("in prod/release COOKIE_SECURE must be true")
		}
	}

	return nil
}

func isProdLike(env string) bool {
	env = strings.ToLower(strings.TrimSpace(env))
	return env == "prod" || env == "production" || env == "release"
}

func isEmptyOrDefault(v, def string) bool {
	trimmed := strings.TrimSpace(v)
	return trimmed == "" || trimmed == def
}

func parseDurationEnv(src source, name, fallback string) (time.Duration, error) {
	value := strings.TrimSpace(src.get(name, fallback))
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", name, value, err)
	}
	return d, nil
}

func parseIntEnv(src source, name, fallback string) (int, error) {
	value := strings.TrimSpace(src.get(name, fallback))
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", name, value, err)
	}
	return n, nil
}

func parseBoolEnv(src source, name, fallback string) bool {
	value := strings.ToLower(strings.TrimSpace(src.get(name, fallback)))
	return value == "1" || value == "true" || value == "yes" || value == "on"
}
