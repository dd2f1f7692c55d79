package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/prodigy2/autoRiaClone/internal/auth"
	"github.com/prodigy2/autoRiaClone/internal/domain"
	"github.com/prodigy2/autoRiaClone/internal/service"
	"github.com/prodigy2/autoRiaClone/pkg/health"
	"github.com/prodigy2/autoRiaClone/pkg/middleware"
)

// RouterConfig carries the services and settings the router wires together.
type RouterConfig struct {
	UserService     *service.UserService
	AdService       *service.AdService
	RoleService     *service.RoleService
	CarService      *service.CarCatalogService
	CurrencyService *service.CurrencyService
	JWTManager      *auth.JWTManager
	HealthHandler   *health.Handler
	AllowedOrigins  []string
	Environment     string
	RateLimitRPS    int
	RateLimitBurst  int
	Logger          *slog.Logger
}

// NewRouter creates a chi router with all routes registered.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	logger := cfg.Logger

	// Global middleware
	r.Use(middleware.Recovery(logger))
	r.Use(chimw.Compress(5))
	r.Use(chimw.Timeout(30 * time.Second))
	r.Use(middleware.CORS(middleware.CORSConfig{
		AllowedOrigins: cfg.AllowedOrigins,
		Environment:    cfg.Environment,
	}))
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.PrometheusMetrics("autoria"))
	if cfg.RateLimitRPS > 0 {
		r.Use(middleware.RateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst, logger))
	}

	// Health check endpoints
	r.Get("/health/live", cfg.HealthHandler.LivenessHandler())
	r.Get("/health/ready", cfg.HealthHandler.ReadinessHandler())
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		promhttp.Handler().ServeHTTP(w, r)
	})

	requireAuth := middleware.Auth(validateToken(cfg.JWTManager))

	authHandler := NewAuthHandler(cfg.UserService, logger)
	userHandler := NewUserHandler(cfg.UserService, logger)
	adHandler := NewAdHandler(cfg.AdService, logger)
	roleHandler := NewRoleHandler(cfg.RoleService, logger)
	carHandler := NewCarHandler(cfg.CarService, logger)
	currencyHandler := NewCurrencyHandler(cfg.CurrencyService, logger)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(ContentTypeJSON)

		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", authHandler.Register)
			r.Post("/login", authHandler.Login)
			r.Post("/refresh", authHandler.Refresh)
			r.With(requireAuth).Post("/logout", authHandler.Logout)
		})

		r.Route("/users", func(r chi.Router) {
			r.Use(requireAuth)

			r.Route("/me", func(r chi.Router) {
				r.Get("/", userHandler.Me)
				r.Put("/", userHandler.UpdateMe)
				r.Put("/password", userHandler.ChangePassword)
				r.Post("/upgrade", userHandler.Upgrade)
			})

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequirePermission(domain.PermManageUsers))
				r.Get("/", userHandler.List)
				r.Get("/{id}", userHandler.Get)
				r.Delete("/{id}", userHandler.Delete)
				r.Post("/{id}/roles", userHandler.AssignRole)
			})
		})

		r.Route("/ads", func(r chi.Router) {
			r.Get("/", adHandler.List)
			r.Get("/{id}", adHandler.Get)

			r.Group(func(r chi.Router) {
				r.Use(requireAuth)
				r.Post("/", adHandler.Create)
				r.Get("/mine", adHandler.ListMine)
				r.Put("/{id}", adHandler.Update)
				r.Delete("/{id}", adHandler.Delete)
			})
		})

		r.Route("/roles", func(r chi.Router) {
			r.Use(requireAuth)
			r.Use(middleware.RequirePermission(domain.PermManageRoles))

			r.Post("/", roleHandler.Create)
			r.Get("/", roleHandler.List)
			r.Get("/{id}", roleHandler.Get)
			r.Delete("/{id}", roleHandler.Delete)
			r.Post("/{id}/permissions", roleHandler.GrantPermission)
			r.Delete("/{id}/permissions/{name}", roleHandler.RevokePermission)
		})

		r.With(requireAuth, middleware.RequirePermission(domain.PermManageRoles)).
			Get("/permissions", roleHandler.ListPermissions)

		r.Route("/cars", func(r chi.Router) {
			r.Get("/brands", carHandler.ListBrands)
			r.Get("/brands/{brandID}/models", carHandler.ListModels)

			r.Group(func(r chi.Router) {
				r.Use(requireAuth)
				r.Use(middleware.RequirePermission(domain.PermManageSystem))
				r.Post("/brands", carHandler.CreateBrand)
				r.Post("/brands/{brandID}/models", carHandler.CreateModel)
			})
		})

		r.Route("/currency", func(r chi.Router) {
			r.Get("/rates", currencyHandler.Rates)
			r.With(requireAuth, middleware.RequirePermission(domain.PermManageSystem)).
				Post("/refresh", currencyHandler.Refresh)
		})
	})

	return r
}

// validateToken adapts the JWT manager to the auth middleware contract.
func validateToken(m *auth.JWTManager) middleware.TokenValidator {
	return func(token string) (*middleware.Claims, error) {
		claims, err := m.ValidateAccessToken(token)
		if err != nil {
			return nil, err
		}
		return &middleware.Claims{
			UserID:      claims.UserID,
			Email:       claims.Email,
			Roles:       claims.Roles,
			Permissions: claims.Permissions,
		}, nil
	}
}
