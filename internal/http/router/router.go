package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/veridianhq/hr-api/internal/domain"
	"github.com/veridianhq/hr-api/internal/health"
	"github.com/veridianhq/hr-api/internal/http/handler"
	"github.com/veridianhq/hr-api/internal/http/middleware"
	"github.com/veridianhq/hr-api/internal/http/response"
)

type Dependencies struct {
	AuthHandler      *handler.AuthHandler
	MeHandler        *handler.MeHandler
	DirectoryHandler *handler.DirectoryHandler
	Authenticator    middleware.Authenticator

	LoginRateLimitRPM   int
	RefreshRateLimitRPM int
	APIRateLimitRPM     int
	// RateLimitBackend overrides the in-process limiter with a shared one
	// (redis) so limits hold across replicas.
	RateLimitBackend middleware.Limiter

	Readiness      *health.ProbeRunner
	EnableOTelHTTP bool
}

func NewRouter(dep Dependencies) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.StructuredRequestLogger)
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.BodyLimit(1 << 20))
	r.Use(newLimiter(dep, dep.APIRateLimitRPM, "api"))

	loginLimiter := newLimiter(dep, dep.LoginRateLimitRPM, "login")
	refreshLimiter := newLimiter(dep, dep.RefreshRateLimitRPM, "refresh")
	requireAuth := middleware.Authenticate(dep.Authenticator)

	r.Get("/health/live", func(w http.ResponseWriter, r *http.Request) {
		response.JSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/health/ready", func(w http.ResponseWriter, r *http.Request) {
		if dep.Readiness == nil {
			response.JSON(w, r, http.StatusOK, map[string]any{"status": "ready", "checks": []any{}})
			return
		}
		ready, results := dep.Readiness.Ready(r.Context())
		if ready {
			response.JSON(w, r, http.StatusOK, map[string]any{"status": "ready", "checks": results})
			return
		}
		response.Error(w, r, http.StatusServiceUnavailable, "DEPENDENCY_UNREADY", "dependencies are not ready", map[string]any{"checks": results})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.With(loginLimiter).Get("/google/login", dep.AuthHandler.GoogleLoginURL)
			r.With(loginLimiter).Post("/login", dep.AuthHandler.Login)
			r.With(refreshLimiter).Post("/refresh", dep.AuthHandler.Refresh)
			// Logout takes the bearer token without the liveness guard so a
			// repeat call with an already-revoked token still returns 200.
			r.Post("/logout", dep.AuthHandler.Logout)
		})

		r.Group(func(r chi.Router) {
			r.Use(requireAuth)
			r.Get("/me", dep.MeHandler.Me)
			r.Get("/me/sessions", dep.MeHandler.ListSessions)
			r.Delete("/me/sessions/{sessionID}", dep.MeHandler.RevokeSession)
			r.Post("/me/sessions/revoke-others", dep.MeHandler.RevokeOtherSessions)
		})

		r.Group(func(r chi.Router) {
			r.Use(requireAuth)
			r.With(middleware.RequireRole(domain.RoleHRAdmin)).Get("/employees", dep.DirectoryHandler.ListEmployees)
			r.With(middleware.RequirePermission("roles:write")).Post("/employees/{employeeID}/roles", dep.DirectoryHandler.GrantRole)
			r.With(middleware.RequirePermission("roles:write")).Delete("/employees/{employeeID}/roles/{role}", dep.DirectoryHandler.RevokeRole)
		})
	})

	var h http.Handler = r
	if dep.EnableOTelHTTP {
		h = otelhttp.NewHandler(r, "http.server")
	}
	return h
}

func newLimiter(dep Dependencies, rpm int, scope string) func(http.Handler) http.Handler {
	if dep.RateLimitBackend != nil {
		return middleware.NewDistributedRateLimiter(dep.RateLimitBackend, rpm, time.Minute, scope, middleware.FailClosed).Middleware()
	}
	return middleware.NewRateLimiter(rpm, time.Minute, scope).Middleware()
}
