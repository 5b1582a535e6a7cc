// internal/adapters/in/http/router.go
package httpin

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/gigagfun/launchium-token-creator/internal/adapters/in/http/handlers"
	"github.com/gigagfun/launchium-token-creator/internal/adapters/in/http/middleware"
)

// RouterDeps collects what main.go injects into the router.
type RouterDeps struct {
	LaunchUC handlers.LaunchService
	QueryUC  handlers.QueryService

	// Metrics serves /metrics when set.
	Metrics http.Handler
	// Auth guards /api/launch* when set.
	Auth *middleware.AuthMiddleware

	CORSAllowedOrigins []string
	MaxRequestBytes    int64
}

// NewRouter sets up HTTP routing. Routes are mounted only for the usecases
// that exist.
func NewRouter(deps RouterDeps) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.CORS(deps.CORSAllowedOrigins))
	r.Use(middleware.Recover)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	if deps.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", deps.Metrics)
	}

	r.Route("/api", func(api chi.Router) {
		if deps.LaunchUC != nil {
			lh := handlers.NewLaunchHandler(deps.LaunchUC, deps.MaxRequestBytes)
			api.Group(func(g chi.Router) {
				if deps.Auth != nil {
					g.Use(deps.Auth.Handler)
				}
				g.Post("/launch", lh.Launch)
				g.Post("/launch/prepare", lh.Prepare)
				g.Post("/launch/execute", lh.Execute)
			})
		}

		if deps.QueryUC != nil {
			qh := handlers.NewQueryHandler(deps.QueryUC)
			api.Get("/tokens/{mint}/status", qh.Status)
			api.Get("/standards", qh.Standards)
			api.Get("/statistics", qh.Statistics)
		}
	})

	return r
}
