package http

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/kjstillabower/fred-dashboard-service/internal/observability"
)

// NewRouter wires routes and middleware. Dashboard routes are rate limited and carry
// the request timeout; /health and /metrics are not.
func NewRouter(h *Handler, logger *zap.Logger, limiter *rate.Limiter, requestTimeout time.Duration) *mux.Router {
	router := mux.NewRouter()
	router.Use(CorrelationIDMiddleware(logger))
	router.Use(MetricsMiddleware)
	router.HandleFunc("/health", h.GetHealth).Methods(http.MethodGet)
	router.Handle("/metrics", observability.MetricsHandler()).Methods(http.MethodGet)

	app := router.NewRoute().Subrouter()
	app.Use(RateLimitMiddleware(limiter))
	if requestTimeout > 0 {
		app.Use(TimeoutMiddleware(requestTimeout))
	}
	app.HandleFunc("/", h.Dashboard).Methods(http.MethodGet)
	app.HandleFunc("/api/indicators", h.ListIndicators).Methods(http.MethodGet)
	app.HandleFunc("/api/series/{seriesId}", h.GetSeries).Methods(http.MethodGet)
	app.HandleFunc("/api/series/{seriesId}/export", h.Export).Methods(http.MethodGet)
	app.HandleFunc("/chart/{seriesId}", h.Chart).Methods(http.MethodGet)
	return router
}
