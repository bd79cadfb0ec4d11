package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/redmonkez12/book-catalog-api/internal/api"
	"github.com/redmonkez12/book-catalog-api/internal/auth"
	"github.com/redmonkez12/book-catalog-api/internal/config"
	"github.com/redmonkez12/book-catalog-api/internal/httputil"
	"github.com/redmonkez12/book-catalog-api/internal/logging"
	"github.com/redmonkez12/book-catalog-api/internal/metrics"
)

// Handlers groups the endpoint handlers mounted by NewRouter.
type Handlers struct {
	Auth           *auth.Handler
	Catalog        *api.CatalogHandler
	AuthMiddleware *auth.Middleware
	// Metrics is optional; without it /metrics is not mounted.
	Metrics *metrics.Metrics
}

// NewRouter creates and configures the HTTP router
func NewRouter(cfg *config.Config, h Handlers, logger *logging.Logger) *chi.Mux {
	r := chi.NewRouter()

	// CORS - must be first
	if len(cfg.Server.TrustedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   cfg.Server.TrustedOrigins,
			AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
			ExposedHeaders:   []string{"Content-Length"},
			AllowCredentials: true,
			MaxAge:           300, // 5 minutes
		}))
	}

	r.Use(SecurityHeaders(!cfg.Server.IsDevelopment()))
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(logging.RequestLogger(logger))
	if h.Metrics != nil {
		r.Use(h.Metrics.Middleware)
	}
	r.Use(middleware.Compress(5))
	// Every request gets its identity, or none, before any handler runs.
	r.Use(h.AuthMiddleware.LoadIdentity)

	r.Get("/health", handleHealth)

	if h.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", h.Metrics.Handler())
	}

	// Swagger UI - only in development
	if cfg.Server.IsDevelopment() {
		logger.Info("swagger UI enabled at /swagger/*")
		r.Get("/swagger/*", httpSwagger.WrapHandler)
	}

	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", h.Auth.Register)
		r.Post("/confirm", h.Auth.Confirm)
		r.Post("/resend-confirmation", h.Auth.ResendConfirmation)
		r.Post("/login", h.Auth.Login)
		r.Post("/logout", h.Auth.Logout)
		r.Get("/me", h.Auth.Me)
	})

	// Reads are public; writes need a session.
	r.Route("/authors", func(r chi.Router) {
		r.Get("/", h.Catalog.ListAuthors)
		r.Get("/{id}", h.Catalog.GetAuthor)

		r.Group(func(r chi.Router) {
			r.Use(h.AuthMiddleware.RequireAuth)
			r.Post("/", h.Catalog.CreateAuthor)
			r.Put("/{id}", h.Catalog.UpdateAuthor)
			r.Delete("/{id}", h.Catalog.DeleteAuthor)
		})
	})

	r.Route("/books", func(r chi.Router) {
		r.Get("/", h.Catalog.ListBooks)
		r.Get("/{id}", h.Catalog.GetBook)

		r.Group(func(r chi.Router) {
			r.Use(h.AuthMiddleware.RequireAuth)
			r.Post("/", h.Catalog.CreateBook)
			r.Put("/{id}", h.Catalog.UpdateBook)
			r.Delete("/{id}", h.Catalog.DeleteBook)
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
