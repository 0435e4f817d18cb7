package config

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sethvargo/go-envconfig"
)

// Config is loaded once at process start and passed by reference into every
// component that needs it. Nothing mutates it after Load returns.
type Config struct {
	Env      string `env:"APP_ENV, default=development"`
	HTTPAddr string `env:"HTTP_ADDR, default=:8080"`

	DatabaseDriver string `env:"DATABASE_DRIVER, default=postgres"`
	DatabaseURL    string `env:"DATABASE_URL"`
	RedisAddr      string `env:"REDIS_ADDR"`

	AllowedEmailDomain string `env:"ALLOWED_EMAIL_DOMAIN"`

	JWTSecret       string        `env:"JWT_SECRET"`
	JWTIssuer       string        `env:"JWT_ISSUER, default=hr-api"`
	JWTAudience     string        `env:"JWT_AUDIENCE, default=hr-web"`
	TokenHashPepper string        `env:"TOKEN_HASH_PEPPER"`
	AccessTokenTTL  time.Duration `env:"ACCESS_TOKEN_TTL, default=2h"`
	RefreshTokenTTL time.Duration `env:"REFRESH_TOKEN_TTL, default=168h"`

	GoogleClientID     string        `env:"GOOGLE_CLIENT_ID"`
	GoogleClientSecret string        `env:"GOOGLE_CLIENT_SECRET"`
	GoogleRedirectURL  string        `env:"GOOGLE_REDIRECT_URL"`
	OAuthTimeout       time.Duration `env:"OAUTH_TIMEOUT, default=10s"`

	LoginRateLimitPerMinute   int `env:"LOGIN_RATE_LIMIT_PER_MINUTE, default=10"`
	RefreshRateLimitPerMinute int `env:"REFRESH_RATE_LIMIT_PER_MINUTE, default=30"`
	APIRateLimitPerMinute     int `env:"API_RATE_LIMIT_PER_MINUTE, default=300"`

	OTELEnabled              bool          `env:"OTEL_ENABLED, default=false"`
	OTELServiceName          string        `env:"OTEL_SERVICE_NAME, default=hr-api"`
	OTELExporterOTLPEndpoint string        `env:"OTEL_EXPORTER_OTLP_ENDPOINT, default=localhost:4317"`
	OTELExporterOTLPInsecure bool          `env:"OTEL_EXPORTER_OTLP_INSECURE, default=true"`
	OTELMetricsInterval      time.Duration `env:"OTEL_METRICS_INTERVAL, default=30s"`

	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT, default=15s"`
}

// Load reads the environment into a Config and validates it. Validation
// failures are fatal to startup on purpose: the token signing key and the
// hash pepper must never fall back to a guessable default.
func Load(ctx context.Context) (*Config, error) {
	var cfg Config
	if err := envconfig.Process(ctx, &cfg); err != nil {
		err = fmt.Errorf("parse environment: %w", err)
		recordConfigValidationEvent(ctx, cfg.Env, "error", classifyConfigLoadError(err))
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		err = fmt.Errorf("validate config: %w", err)
		recordConfigValidationEvent(ctx, cfg.Env, "error", classifyConfigLoadError(err))
		return nil, err
	}
	recordConfigValidationEvent(ctx, cfg.Env, "success", "none")
	return &cfg, nil
}

func (c *Config) Validate() error {
	var errs []error
	if len(c.JWTSecret) < 32 {
		errs = append(errs, errors.New("JWT_SECRET must be set and at least 32 bytes"))
	}
	if strings.TrimSpace(c.TokenHashPepper) == "" {
		errs = append(errs, errors.New("TOKEN_HASH_PEPPER is required"))
	}
	if strings.TrimSpace(c.AllowedEmailDomain) == "" {
		errs = append(errs, errors.New("ALLOWED_EMAIL_DOMAIN is required"))
	}
	if c.DatabaseDriver != "postgres" && c.DatabaseDriver != "sqlite" {
		errs = append(errs, fmt.Errorf("DATABASE_DRIVER %q is not supported", c.DatabaseDriver))
	}
	if strings.TrimSpace(c.DatabaseURL) == "" {
		errs = append(errs, errors.New("DATABASE_URL is required"))
	}
	if c.GoogleClientID == "" || c.GoogleClientSecret == "" {
		errs = append(errs, errors.New("GOOGLE_CLIENT_ID and GOOGLE_CLIENT_SECRET are required"))
	}
	if c.AccessTokenTTL <= 0 || c.RefreshTokenTTL <= 0 {
		errs = append(errs, errors.New("token TTLs must be positive"))
	}
	if c.AccessTokenTTL >= c.RefreshTokenTTL {
		errs = append(errs, errors.New("ACCESS_TOKEN_TTL must be shorter than REFRESH_TOKEN_TTL"))
	}
	if c.OAuthTimeout <= 0 {
		errs = append(errs, errors.New("OAUTH_TIMEOUT must be positive"))
	}
	return errors.Join(errs...)
}

// NormalizedEmailDomain returns the allow-listed domain in comparable form.
func (c *Config) NormalizedEmailDomain() string {
	return strings.ToLower(strings.TrimSpace(c.AllowedEmailDomain))
}
