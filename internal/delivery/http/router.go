package http

import (
	"context"
	"log/slog"
	"net/http"

	httpSwagger "github.com/swaggo/http-swagger"

	"eventmanager/internal/delivery/http/controllers"
	"eventmanager/internal/delivery/http/middleware"
	"eventmanager/internal/metrics"
	"eventmanager/internal/validation"
)

// RouterConfig holds the cross-cutting settings of the HTTP stack.
type RouterConfig struct {
	CORSOrigins []string
	RateLimit   middleware.RateLimitConfig
}

// NewRouter registers every route and wraps the mux in the middleware chain:
// metrics, logging, CORS, locale, rate limiting. ctx bounds background work of the chain.
func NewRouter(ctx context.Context, cfg RouterConfig, logger *slog.Logger, catalog *validation.Catalog,
	auth *middleware.Authenticator, events *controllers.EventController, health http.HandlerFunc) http.Handler {
	mux := http.NewServeMux()

	// Events
	mux.HandleFunc("GET /events", auth.OptionalAuth(events.ListEvents))
	mux.HandleFunc("POST /events", auth.RequireAuth(events.CreateEvent))
	mux.HandleFunc("GET /events/{eventID}", auth.OptionalAuth(events.GetEvent))
	mux.HandleFunc("PUT /events/{eventID}", auth.RequireAuth(events.UpdateEvent))
	mux.HandleFunc("PATCH /events/{eventID}", auth.RequireAuth(events.UpdateEvent))
	mux.HandleFunc("DELETE /events/{eventID}", auth.RequireAuth(events.DeleteEvent))
	mux.HandleFunc("GET /events/{eventID}/conflicts", auth.RequireAuth(events.CheckConflicts))

	// Operations
	mux.HandleFunc("GET /healthz", health)
	mux.Handle("GET /metrics", metrics.Handler())

	// Swagger
	mux.Handle("/swagger/", httpSwagger.WrapHandler)

	var handler http.Handler = mux
	handler = middleware.RateLimit(ctx, cfg.RateLimit, catalog)(handler)
	handler = middleware.Locale(catalog, handler)
	handler = middleware.CORS(cfg.CORSOrigins, handler)
	handler = middleware.Logging(logger, handler)
	handler = metrics.HTTPMiddleware(handler)
	return handler
}
