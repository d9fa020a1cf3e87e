package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/storefleet/storefleet/internal/auth"
	"github.com/storefleet/storefleet/internal/config"
	"github.com/storefleet/storefleet/internal/httputil"
	"github.com/storefleet/storefleet/internal/logging"
	"github.com/storefleet/storefleet/internal/metrics"
	"github.com/storefleet/storefleet/internal/order"
	"github.com/storefleet/storefleet/internal/product"
	"github.com/storefleet/storefleet/internal/user"
)

// Handlers bundles the per-domain HTTP handlers the router mounts.
type Handlers struct {
	Auth    *auth.Handler
	User    *user.Handler
	Product *product.Handler
	Order   *order.Handler
}

// NewRouter creates and configures the HTTP router
func NewRouter(
	cfg *config.Config,
	handlers Handlers,
	authMiddleware *auth.Middleware,
	collector *metrics.Collector,
	gatherer prometheus.Gatherer,
	logger *logging.Logger,
) *chi.Mux {
	r := chi.NewRouter()

	// CORS - must be first
	if len(cfg.Server.TrustedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   cfg.Server.TrustedOrigins,
			AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
			ExposedHeaders:   []string{"Content-Length"},
			AllowCredentials: true,
			MaxAge:           300, // 5 minutes
		}))
	}

	// Global middleware
	r.Use(SecurityHeaders)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(logging.RequestLogger(logger))
	r.Use(collector.Middleware)
	r.Use(middleware.Compress(5))

	// Ops endpoints
	r.Get("/health", handleHealth)
	r.Method(http.MethodGet, "/metrics", metrics.Handler(gatherer))

	// Swagger UI - only in development
	// Production builds will not have this route at all
	if cfg.Server.IsDevelopment() {
		logger.Info("swagger UI enabled at /swagger/*")
		r.Get("/swagger/*", httpSwagger.WrapHandler)
	}

	r.Route("/api/storefleet", func(r chi.Router) {
		r.Route("/user", func(r chi.Router) {
			// Public credential endpoints
			r.Post("/signup", handlers.Auth.Signup)
			r.Post("/login", handlers.Auth.Login)
			r.Post("/password/forget", handlers.Auth.ForgotPassword)
			r.Put("/password/reset/{token}", handlers.Auth.ResetPassword)

			// Authenticated
			r.Group(func(r chi.Router) {
				r.Use(authMiddleware.RequireAuth)
				r.Get("/logout", handlers.Auth.Logout)
				r.Get("/details", handlers.User.Details)
				r.Put("/profile/update", handlers.User.UpdateProfile)
				r.Put("/password/update", handlers.Auth.UpdatePassword)
			})

			// Admin
			r.Route("/admin", func(r chi.Router) {
				r.Use(authMiddleware.RequireAuth)
				r.Use(auth.RequireRole(user.RoleAdmin))
				r.Get("/users", handlers.User.ListUsers)
				r.Get("/users/{id}", handlers.User.GetUser)
				r.Delete("/users/{id}", handlers.User.DeleteUser)
				r.Put("/update/{id}", handlers.User.UpdateUser)
			})
		})

		r.Route("/product", func(r chi.Router) {
			// Public catalog
			r.Get("/products", handlers.Product.List)
			r.Get("/details/{id}", handlers.Product.Details)
			r.Get("/reviews/{id}", handlers.Product.Reviews)

			// Authenticated reviews
			r.Group(func(r chi.Router) {
				r.Use(authMiddleware.RequireAuth)
				r.Put("/rate/{id}", handlers.Product.Rate)
				r.Delete("/review/delete", handlers.Product.DeleteReview)
			})

			// Admin catalog management
			r.Group(func(r chi.Router) {
				r.Use(authMiddleware.RequireAuth)
				r.Use(auth.RequireRole(user.RoleAdmin))
				r.Post("/add", handlers.Product.Add)
				r.Put("/update/{id}", handlers.Product.Update)
				r.Delete("/delete/{id}", handlers.Product.Delete)
			})
		})

		r.Route("/order", func(r chi.Router) {
			r.Use(authMiddleware.RequireAuth)
			r.Post("/new", handlers.Order.Create)
			r.Get("/my", handlers.Order.History)
		})
	})

	return r
}

// handleHealth is a simple health check endpoint
// @Summary      Health check
// @Description  Check if the API is running
// @Tags         health
// @Produce      json
// @Success      200 {object} map[string]string
// @Router       /health [get]
func handleHealth(w http.ResponseWriter, r *http.Request) {
	httputil.RespondJSON(w, map[string]string{"status": "api is running"}, http.StatusOK)
}
