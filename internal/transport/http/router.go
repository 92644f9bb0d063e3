package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/strogmv/forge/internal/transport/ws"
)

// RouterConfig carries the transport-level knobs the router needs.
type RouterConfig struct {
	AllowedOrigins []string
	APIKeyHash     string
}

// NewRouter wires the API, the progress websocket and the operational
// endpoints into one chi router.
func NewRouter(h *Handler, wsSrv *ws.Server, cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(MetricsMiddleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/healthz", h.Health)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/orchestrations", func(r chi.Router) {
		r.With(APIKeyMiddleware(cfg.APIKeyHash)).Post("/", h.Start)
		r.Get("/{jobID}", h.Status)
		r.Get("/{jobID}/events", h.Events)
		r.Get("/{jobID}/report", h.Report)
	})

	r.Get("/ws/jobs/{jobID}", wsSrv.Serve)

	return otelhttp.NewHandler(r, "forge.http")
}
