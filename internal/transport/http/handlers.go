// @title TenantDesk API
// @version 1.0.0
// @description Multi-tenant project and task management with token authentication
// @termsOfService http://swagger.io/terms/

// @contact.name API Support
// @contact.url http://www.swagger.io/support
// @contact.email support@swagger.io

// @license.name Apache 2.0
// @license.url http://www.apache.org/licenses/LICENSE-2.0.html

// @host localhost:8080
// @BasePath /api

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

package http

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/swaggo/swag"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/opentrusty/tenantdesk/internal/identity"
	"github.com/opentrusty/tenantdesk/internal/project"
	"github.com/opentrusty/tenantdesk/internal/tenant"
)

// Pinger reports store health.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handler holds HTTP handlers and dependencies
type Handler struct {
	identityService *identity.Service
	tenantService   *tenant.Service
	projectService  *project.Service
	store           Pinger
}

// NewHandler creates a new HTTP handler
func NewHandler(
	identityService *identity.Service,
	tenantService *tenant.Service,
	projectService *project.Service,
	store Pinger,
) *Handler {
	return &Handler{
		identityService: identityService,
		tenantService:   tenantService,
		projectService:  projectService,
		store:           store,
	}
}

// RouterConfig selects the cross-cutting behavior of the router.
type RouterConfig struct {
	Tokens         TokenValidator
	Limiter        Limiter
	HandlerTimeout time.Duration
	Metrics        bool
}

// NewRouter creates a new HTTP router
func NewRouter(h *Handler, cfg RouterConfig) *chi.Mux {
	if cfg.HandlerTimeout <= 0 {
		cfg.HandlerTimeout = 60 * time.Second
	}

	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	if cfg.Limiter != nil {
		r.Use(RateLimitMiddleware(cfg.Limiter))
	}
	r.Use(func(handler http.Handler) http.Handler {
		return otelhttp.NewHandler(handler, "http_request",
			otelhttp.WithSpanNameFormatter(func(operation string, r *http.Request) string {
				return r.Method + " " + r.URL.Path
			}),
		)
	})
	if cfg.Metrics {
		r.Use(PrometheusMiddleware)
	}
	// identity first so the request log can name the caller
	r.Use(IdentityMiddleware(cfg.Tokens))
	r.Use(LoggingMiddleware())
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(cfg.HandlerTimeout))

	r.Get("/health", h.HealthCheck)
	if cfg.Metrics {
		r.Method(http.MethodGet, "/metrics", promhttp.Handler())
	}

	r.Route("/api", func(r chi.Router) {
		r.Get("/docs/doc.json", h.APIDoc)

		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", h.Register)
			r.Post("/login", h.Login)
			r.Post("/logout", h.Logout)
			r.With(RequireIdentity).Get("/me", h.Me)
		})

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(RequireIdentity)

			r.Route("/tenants", func(r chi.Router) {
				r.Get("/", h.ListTenants)
				r.Route("/{tenantID}", func(r chi.Router) {
					r.Get("/", h.GetTenant)
					r.Put("/", h.UpdateTenant)
					r.Post("/users", h.CreateTenantUser)
					r.Get("/users", h.ListTenantUsers)
				})
			})

			r.Route("/users", func(r chi.Router) {
				r.Get("/", h.ListUsers)
				r.Route("/{userID}", func(r chi.Router) {
					r.Get("/", h.GetUser)
					r.Put("/", h.UpdateUser)
					r.Delete("/", h.DeleteUser)
				})
			})

			r.Route("/projects", func(r chi.Router) {
				r.Post("/", h.CreateProject)
				r.Get("/", h.ListProjects)
				r.Route("/{projectID}", func(r chi.Router) {
					r.Get("/", h.GetProject)
					r.Put("/", h.UpdateProject)
					r.Delete("/", h.DeleteProject)
					r.Post("/tasks", h.CreateTask)
					r.Get("/tasks", h.ListProjectTasks)
				})
			})

			r.Route("/tasks", func(r chi.Router) {
				r.Get("/", h.ListTasks)
				r.Route("/{taskID}", func(r chi.Router) {
					r.Get("/", h.GetTask)
					r.Put("/", h.UpdateTask)
					r.Patch("/status", h.UpdateTaskStatus)
					r.Delete("/", h.DeleteTask)
				})
			})
		})
	})

	return r
}

// HealthResponse reports liveness and store reachability.
type HealthResponse struct {
	Status    string    `json:"status"`
	Store     string    `json:"store"`
	Timestamp time.Time `json:"timestamp"`
}

// HealthCheck returns the health status
// @Summary Health Check
// @Description Checks if the service and its store are reachable
// @Tags System
// @Produce json
// @Success 200 {object} HealthResponse
// @Failure 503 {object} HealthResponse
// @Router /health [get]
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{Status: "healthy", Store: "up", Timestamp: time.Now().UTC()}
	status := http.StatusOK

	if h.store != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := h.store.Ping(ctx); err != nil {
			resp.Status = "unhealthy"
			resp.Store = "down"
			status = http.StatusServiceUnavailable
		}
	}

	env := Envelope{OK: status == http.StatusOK, Data: resp}
	if !env.OK {
		env.Message = "store unavailable"
	}
	respondJSON(w, status, env)
}

// APIDoc serves the registered swagger document.
func (h *Handler) APIDoc(w http.ResponseWriter, r *http.Request) {
	doc, err := swag.ReadDoc()
	if err != nil {
		respondError(w, http.StatusNotFound, "api documentation not registered")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(doc))
}
