package http

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/redmonkez12/ai-data-assistant/internal/auth"
	"github.com/redmonkez12/ai-data-assistant/internal/config"
	"github.com/redmonkez12/ai-data-assistant/internal/httputil"
	"github.com/redmonkez12/ai-data-assistant/internal/logging"
	"github.com/redmonkez12/ai-data-assistant/internal/metrics"
)

// HealthCheck pings one dependency
type HealthCheck func(ctx context.Context) error

// RouterDeps are the handlers and health checks mounted by NewRouter
type RouterDeps struct {
	AuthService    *auth.Service
	AuthHandler    *auth.Handler
	AuthMiddleware *auth.Middleware
	// Registry is served on /metrics; nil disables the route
	Registry     *prometheus.Registry
	HealthChecks map[string]HealthCheck
	Logger       *logging.Logger
}

// HealthResponse is returned by /health
type HealthResponse struct {
	Status       string            `json:"status"`
	AuthProvider string            `json:"auth_provider"`
	Checks       map[string]string `json:"checks,omitempty"`
}

// NewRouter creates and configures the HTTP router
func NewRouter(cfg *config.Config, deps RouterDeps) *chi.Mux {
	r := chi.NewRouter()
	logger := deps.Logger

	// Validated by config.Load; a bad entry here trusts no proxy
	trustedProxies, err := cfg.Server.TrustedProxyPrefixes()
	if err != nil {
		logger.Warn("ignoring trusted proxies", "error", err.Error())
		trustedProxies = nil
	}

	// CORS - must be first
	if len(cfg.Server.TrustedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   cfg.Server.TrustedOrigins,
			AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Client"},
			ExposedHeaders:   []string{"Content-Length"},
			AllowCredentials: true,
			MaxAge:           300, // 5 minutes
		}))
	}

	// Global middleware
	r.Use(SecurityHeaders)               // Security headers on all responses
	r.Use(middleware.Recoverer)          // Recover from panics
	r.Use(middleware.RequestID)          // Add request ID
	r.Use(RealIP(trustedProxies))        // Forwarded headers only from trusted proxies
	r.Use(logging.RequestLogger(logger)) // Structured logging with request context
	r.Use(middleware.Compress(5))        // Compress responses

	// Public routes
	r.Get("/health", healthHandler(deps.AuthService.Mode(), deps.HealthChecks))

	if deps.Registry != nil {
		r.Method(http.MethodGet, "/metrics", metrics.Handler(deps.Registry))
	}

	// Swagger UI - only in development
	// Production builds will not have this route at all
	if cfg.Server.IsDevelopment() {
		logger.Info("swagger UI enabled at /swagger/*")
		r.Get("/swagger/*", httpSwagger.WrapHandler)
	}

	h := deps.AuthHandler

	r.Route("/auth", func(r chi.Router) {
		r.Post("/login", h.Login)
		r.Post("/logout", h.Logout)

		// Account lifecycle needs the credential store
		if deps.AuthService.SupportsAccounts() {
			r.Post("/register", h.Register)
			r.Post("/refresh", h.Refresh)
			r.Get("/verify-email", h.VerifyEmail)
			r.Post("/resend-verification", h.ResendVerificationEmail)
			r.Post("/forgot-password", h.ForgotPassword)
			r.Post("/reset-password", h.ResetPassword)
		}

		// Protected routes (require authentication)
		r.Group(func(r chi.Router) {
			r.Use(deps.AuthMiddleware.RequireAuth)
			r.Get("/me", h.Me)
		})
	})

	return r
}

// healthHandler reports the credential provider and the state of each dependency
// @Summary      Health check
// @Description  Report the active credential provider and dependency status
// @Tags         health
// @Produce      json
// @Success      200 {object} HealthResponse
// @Failure      503 {object} HealthResponse
// @Router       /health [get]
func healthHandler(mode string, checks map[string]HealthCheck) http.HandlerFunc {
	names := make([]string, 0, len(checks))
	for name := range checks {
		names = append(names, name)
	}
	sort.Strings(names)

	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		resp := HealthResponse{Status: "ok", AuthProvider: mode}
		status := http.StatusOK

		if len(names) > 0 {
			resp.Checks = make(map[string]string, len(names))
		}
		for _, name := range names {
			if err := checks[name](ctx); err != nil {
				logging.GetLoggerFromContext(r.Context()).Warn("health check failed", "check", name, "error", err.Error())
				resp.Checks[name] = "unavailable"
				resp.Status = "degraded"
				status = http.StatusServiceUnavailable
				continue
			}
			resp.Checks[name] = "ok"
		}

		httputil.RespondJSON(w, resp, status)
	}
}
