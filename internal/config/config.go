package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/baechuer/user-service/internal/domain"
)

type Config struct {
	//App
	Env       string // dev / staging / prod
	LogLevel  string
	LogFormat string // console / json
	SeedUsers bool

	//HTTP
	HTTPAddr         string
	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	HTTPIdleTimeout  time.Duration

	//Auth / Security
	JWTSecret  string
	JWTIssuer  string
	JWTTTL     time.Duration
	BcryptCost int

	// Rate limiting
	AuthRateLimitWindow time.Duration
	AuthRateLimitMax    int
	GlobalRateLimit     int // requests per minute per IP, 0 disables

	// Optional infrastructure; empty means in-memory / log-only.
	DBAddr         string
	DBAutoMigrate  bool
	RedisAddr      string
	RedisPassword  string
	RedisDB        int
	RabbitURL      string
	RabbitExchange string

	// One-time token flows (email verify / password reset)
	VerifyEmailBaseURL    string
	PasswordResetBaseURL  string
	VerifyEmailTokenTTL   time.Duration
	PasswordResetTokenTTL time.Duration
}

func (c *Config) IsDev() bool { return c.Env == "dev" }

// Load reads the process environment, after merging an optional .env file
// from the working directory. Any invalid value aborts startup with a
// configuration_error.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, domain.ErrConfiguration(fmt.Sprintf("read .env: %v", err))
	}

	cfg := &Config{
		Env:       getEnv("ENV", "dev"),
		HTTPAddr:  getEnv("HTTP_ADDR", ":8080"),
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "console"),
		JWTIssuer: getEnv("JWT_ISSUER", "user-service"),
	}
	var errs []string
	fail := func(err error) {
		if err != nil {
			errs = append(errs, err.Error())
		}
	}

	// required values
	cfg.JWTSecret = os.Getenv("JWT_SECRET")
	if cfg.JWTSecret == "" {
		errs = append(errs, "missing required env var: JWT_SECRET")
	}

	var err error
	cfg.JWTTTL, err = getDuration("JWT_TTL", 24*time.Hour)
	fail(err)
	cfg.BcryptCost, err = getInt("BCRYPT_COST", 12)
	fail(err)

	cfg.AuthRateLimitWindow, err = getDuration("AUTH_RATE_LIMIT_WINDOW", 15*time.Minute)
	fail(err)
	cfg.AuthRateLimitMax, err = getInt("AUTH_RATE_LIMIT_MAX", 5)
	fail(err)
	if cfg.AuthRateLimitMax <= 0 {
		errs = append(errs, "AUTH_RATE_LIMIT_MAX must be positive")
	}
	cfg.GlobalRateLimit, err = getInt("GLOBAL_RATE_LIMIT", 300)
	fail(err)

	cfg.SeedUsers, err = getBool("SEED_USERS", cfg.IsDev())
	fail(err)

	// One-time token URLs. Must include `token=` because the service appends the token.
	devBase := "http://" + cfg.HTTPAddr
	if strings.HasPrefix(cfg.HTTPAddr, ":") {
		devBase = "http://localhost" + cfg.HTTPAddr
	}
	cfg.VerifyEmailBaseURL = getEnv("VERIFY_EMAIL_BASE_URL", devDefault(cfg, devBase+"/auth/verify-email?token="))
	cfg.PasswordResetBaseURL = getEnv("PASSWORD_RESET_BASE_URL", devDefault(cfg, devBase+"/auth/reset-password?token="))
	fail(validateTokenURL("VERIFY_EMAIL_BASE_URL", cfg.VerifyEmailBaseURL))
	fail(validateTokenURL("PASSWORD_RESET_BASE_URL", cfg.PasswordResetBaseURL))

	cfg.VerifyEmailTokenTTL, err = getDuration("VERIFY_EMAIL_TOKEN_TTL", 24*time.Hour)
	fail(err)
	cfg.PasswordResetTokenTTL, err = getDuration("PASSWORD_RESET_TOKEN_TTL", 30*time.Minute)
	fail(err)

	// Optional infrastructure dependencies.
	cfg.DBAddr = os.Getenv("DB_ADDR")
	if cfg.DBAddr != "" {
		fail(validatePostgresDSN(cfg.DBAddr))
	}
	cfg.DBAutoMigrate, err = getBool("DB_AUTO_MIGRATE", true)
	fail(err)

	cfg.RedisAddr = os.Getenv("REDIS_ADDR")
	cfg.RedisPassword = os.Getenv("REDIS_PASSWORD")
	cfg.RedisDB, err = getInt("REDIS_DB", 0)
	fail(err)

	cfg.RabbitURL = os.Getenv("RABBIT_URL")
	cfg.RabbitExchange = getEnv("RABBIT_EXCHANGE", "user.events")

	//Timeout values are optional and have a default value if not
	cfg.HTTPReadTimeout, err = getDuration("HTTP_READ_TIMEOUT", 10*time.Second)
	fail(err)
	cfg.HTTPWriteTimeout, err = getDuration("HTTP_WRITE_TIMEOUT", 30*time.Second)
	fail(err)
	cfg.HTTPIdleTimeout, err = getDuration("HTTP_IDLE_TIMEOUT", time.Minute)
	fail(err)

	if len(errs) > 0 {
		return nil, domain.ErrConfiguration(strings.Join(errs, "; "))
	}
	return cfg, nil
}

// devDefault returns def only in the dev environment.
func devDefault(cfg *Config, def string) string {
	if cfg.IsDev() {
		return def
	}
	return ""
}

func validateTokenURL(key, v string) error {
	if v == "" {
		return fmt.Errorf("missing required env var: %s", key)
	}
	if !strings.Contains(v, "token=") {
		return fmt.Errorf("%s must contain `token=`", key)
	}
	return nil
}

func validatePostgresDSN(dsn string) error {
	u, err := url.Parse(dsn)
	if err != nil {
		return fmt.Errorf("invalid DB_ADDR: %w", err)
	}
	if u.Scheme != "postgres" && u.Scheme != "postgresql" {
		return fmt.Errorf("DB_ADDR must use postgres:// or postgresql://, got %q", u.Scheme)
	}
	if strings.Trim(u.Path, "/") == "" {
		return fmt.Errorf("DB_ADDR must name a database")
	}
	return nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getDuration(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}

	d, err := time.ParseDuration(v)
	if err != nil {
		return def, fmt.Errorf("invalid duration for %s: %q", key, v)
	}
	if d <= 0 {
		return def, fmt.Errorf("%s must be positive, got %q", key, v)
	}
	return d, nil
}

func getInt(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return def, fmt.Errorf("invalid integer for %s: %q", key, v)
	}
	if n < 0 {
		return def, fmt.Errorf("%s must not be negative, got %d", key, n)
	}
	return n, nil
}

func getBool(key string, def bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(strings.TrimSpace(v))
	if err != nil {
		return def, fmt.Errorf("invalid boolean for %s: %q", key, v)
	}
	return b, nil
}
