package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/veridianhq/hr-api/internal/config"
	"github.com/veridianhq/hr-api/internal/domain"
	"github.com/veridianhq/hr-api/internal/health"
	"github.com/veridianhq/hr-api/internal/http/handler"
	"github.com/veridianhq/hr-api/internal/http/router"
	"github.com/veridianhq/hr-api/internal/observability"
	"github.com/veridianhq/hr-api/internal/ratelimit"
	"github.com/veridianhq/hr-api/internal/repository"
	"github.com/veridianhq/hr-api/internal/security"
	"github.com/veridianhq/hr-api/internal/service"
)

// App owns the wired dependency graph and the HTTP server lifecycle.
type App struct {
	Config        *config.Config
	Observability *observability.Runtime
	DB            *gorm.DB
	Redis         redis.UniversalClient
	Server        *http.Server
}

// New wires the full graph: storage, services, handlers, router. The redis
// client is optional; without it rate limits are per-process.
func New(ctx context.Context, cfg *config.Config, runtime *observability.Runtime) (*App, error) {
	db, err := OpenDatabase(cfg)
	if err != nil {
		return nil, err
	}

	var redisClient redis.UniversalClient
	if cfg.RedisAddr != "" {
		redisClient = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	}

	codec := security.NewTokenCodec(cfg.JWTIssuer, cfg.JWTAudience, cfg.JWTSecret)

	sessions := repository.NewSessionRepository(db)
	employees := repository.NewEmployeeRepository(db)
	assignments := repository.NewRoleAssignmentRepository(db)
	audits := repository.NewAuditRepository(db)

	tokens := service.NewTokenService(codec, sessions, cfg.TokenHashPepper, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)
	roles := service.NewRoleService(assignments)
	provider := service.NewGoogleOAuthProvider(cfg.GoogleClientID, cfg.GoogleClientSecret, cfg.GoogleRedirectURL)
	auth := service.NewAuthService(provider, employees, roles, tokens, audits, cfg.NormalizedEmailDomain(), cfg.OAuthTimeout)
	if redisClient != nil {
		auth.SetLoginMissCache(service.NewRedisLoginMissCache(redisClient, "hr-api:login_miss", time.Minute))
	} else {
		auth.SetLoginMissCache(service.NewInMemoryLoginMissCache(time.Minute))
	}
	sessionSvc := service.NewSessionService(sessions)

	readiness := health.NewProbeRunner(2 * time.Second)
	readiness.Register("database", func(ctx context.Context) error {
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		return sqlDB.PingContext(ctx)
	})
	if redisClient != nil {
		readiness.Register("redis", func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		})
	}

	deps := router.Dependencies{
		AuthHandler:         handler.NewAuthHandler(auth),
		MeHandler:           handler.NewMeHandler(employees, sessionSvc),
		DirectoryHandler:    handler.NewDirectoryHandler(employees, roles),
		Authenticator:       auth,
		LoginRateLimitRPM:   cfg.LoginRateLimitPerMinute,
		RefreshRateLimitRPM: cfg.RefreshRateLimitPerMinute,
		APIRateLimitRPM:     cfg.APIRateLimitPerMinute,
		Readiness:           readiness,
		EnableOTelHTTP:      cfg.OTELEnabled,
	}
	if redisClient != nil {
		deps.RateLimitBackend = ratelimit.NewRedisFixedWindowLimiter(redisClient, "hr-api:ratelimit")
	}

	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router.NewRouter(deps),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       time.Minute,
	}

	return &App{
		Config:        cfg,
		Observability: runtime,
		DB:            db,
		Redis:         redisClient,
		Server:        server,
	}, nil
}

// OpenDatabase opens the configured gorm backend. Exposed for the migrate
// subcommand, which needs the handle without the rest of the graph.
func OpenDatabase(cfg *config.Config) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.DatabaseDriver {
	case "postgres":
		dialector = postgres.Open(cfg.DatabaseURL)
	case "sqlite":
		dialector = sqlite.Open(cfg.DatabaseURL)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.DatabaseDriver)
	}
	db, err := gorm.Open(dialector, &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	return db, nil
}

// Migrate applies the schema for every persisted model.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&domain.Department{},
		&domain.Location{},
		&domain.Employee{},
		&domain.RoleAssignment{},
		&domain.Session{},
		&domain.AuditRecord{},
	)
}

// Run serves until ctx is cancelled, then drains connections within the
// configured shutdown window.
func (a *App) Run(ctx context.Context) error {
	logger := a.Observability.Logger
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("http server listening", "addr", a.Server.Addr, "env", a.Config.Env)
		if err := a.Server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down", "timeout", a.Config.ShutdownTimeout.String())
		sctx, cancel := context.WithTimeout(context.Background(), a.Config.ShutdownTimeout)
		defer cancel()
		return a.Server.Shutdown(sctx)
	})

	err := g.Wait()

	if a.Redis != nil {
		if cerr := a.Redis.Close(); cerr != nil {
			logger.Warn("redis close failed", "error", cerr.Error())
		}
	}
	if sqlDB, derr := a.DB.DB(); derr == nil {
		if cerr := sqlDB.Close(); cerr != nil {
			logger.Warn("database close failed", "error", cerr.Error())
		}
	}
	return err
}
