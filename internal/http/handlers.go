package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/kjstillabower/fred-dashboard-service/internal/client"
	"github.com/kjstillabower/fred-dashboard-service/internal/dashboard"
	"github.com/kjstillabower/fred-dashboard-service/internal/export"
	"github.com/kjstillabower/fred-dashboard-service/internal/lifecycle"
	"github.com/kjstillabower/fred-dashboard-service/internal/observability"
	"github.com/kjstillabower/fred-dashboard-service/internal/render"
	"github.com/kjstillabower/fred-dashboard-service/internal/traffic"
	"github.com/kjstillabower/fred-dashboard-service/internal/validation"
)

// HealthConfig holds lifecycle thresholds for the health handler.
type HealthConfig struct {
	OverloadWindow       time.Duration
	OverloadThresholdPct int
	RateLimitRPS         int
	DegradedWindow       time.Duration
	DegradedErrorPct     int
	// CachePing, when set, is called to check cache reachability. Used when backend is memcached.
	CachePing func() error
	// CircuitOpen, when set, reports whether the FRED circuit breaker is open.
	CircuitOpen func() bool
}

// CredentialChecker reports whether FRED calls can be authenticated.
type CredentialChecker interface {
	CredentialStatus() error
}

// Handler holds dependencies for HTTP handlers.
type Handler struct {
	pipeline         *dashboard.Pipeline
	credentials      CredentialChecker
	charts           render.ChartRenderer
	healthConfig     *HealthConfig
	logger           *zap.Logger
	healthStatusMu   sync.Mutex
	healthStatusPrev string
}

// NewHandler returns a new Handler.
func NewHandler(
	pipeline *dashboard.Pipeline,
	credentials CredentialChecker,
	charts render.ChartRenderer,
	healthConfig *HealthConfig,
	logger *zap.Logger,
) *Handler {
	return &Handler{
		pipeline:     pipeline,
		credentials:  credentials,
		charts:       charts,
		healthConfig: healthConfig,
		logger:       logger,
	}
}

// Dashboard handles GET /. Every failure is rendered inline; the page itself is always 200.
func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	view := h.build(r, dashboard.Selection{Indicator: q.Get("indicator"), Start: q.Get("start"), End: q.Get("end")})

	var buf bytes.Buffer
	data := render.NewPageData(view, h.pipeline.Catalog().All(), h.charts)
	if err := render.RenderPage(&buf, data); err != nil {
		observability.LoggerFromContext(r.Context()).Error("page render failed", zap.Error(err))
		writeError(w, r, http.StatusInternalServerError, "RENDER_FAILED", "Unable to render dashboard")
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

// ListIndicators handles GET /api/indicators.
func (h *Handler) ListIndicators(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"indicators": h.pipeline.Catalog().All(),
	})
}

// GetSeries handles GET /api/series/{seriesId}. Fetch failures are 200 with messages,
// like the page; only a bad selection is an HTTP error.
func (h *Handler) GetSeries(w http.ResponseWriter, r *http.Request) {
	view, ok := h.buildForSeries(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// Export handles GET /api/series/{seriesId}/export?format=csv|json|parquet.
func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	exporter, err := export.NewExporter(r.URL.Query().Get("format"))
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "INVALID_FORMAT", err.Error())
		return
	}
	view, ok := h.buildForSeries(w, r)
	if !ok {
		return
	}
	if m, failed := fetchFailure(view); failed {
		writeError(w, r, http.StatusServiceUnavailable, "UPSTREAM_UNAVAILABLE", m.Text)
		return
	}

	var buf bytes.Buffer
	if err := exporter.Write(&buf, view.Series); err != nil {
		observability.LoggerFromContext(r.Context()).Error("export failed", zap.String("format", exporter.Extension()), zap.Error(err))
		writeError(w, r, http.StatusInternalServerError, "EXPORT_FAILED", "Unable to export series")
		return
	}
	w.Header().Set("Content-Type", exporter.ContentType())
	w.Header().Set("Content-Disposition", `attachment; filename="`+export.Filename(exporter, view.Indicator.SeriesID, view.Range)+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

// Chart handles GET /chart/{seriesId}?format=png|svg.
func (h *Handler) Chart(w http.ResponseWriter, r *http.Request) {
	format, err := render.ParseChartFormat(r.URL.Query().Get("format"))
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "INVALID_FORMAT", err.Error())
		return
	}
	view, ok := h.buildForSeries(w, r)
	if !ok {
		return
	}
	if m, failed := fetchFailure(view); failed {
		writeError(w, r, http.StatusServiceUnavailable, "UPSTREAM_UNAVAILABLE", m.Text)
		return
	}

	var buf bytes.Buffer
	err = h.charts.Render(&buf, format, view.ChartTitle, view.Indicator.Units, view.Series)
	if errors.Is(err, render.ErrInsufficientData) {
		writeError(w, r, http.StatusUnprocessableEntity, "INSUFFICIENT_DATA", "Need at least two values in range to draw a chart")
		return
	}
	if err != nil {
		observability.LoggerFromContext(r.Context()).Error("chart render failed", zap.Error(err))
		writeError(w, r, http.StatusInternalServerError, "RENDER_FAILED", "Unable to render chart")
		return
	}
	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Cache-Control", "max-age=300")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

// buildForSeries runs the pipeline for the {seriesId} route and writes 400/404 itself
// for a bad id or range. ok is false when a response has been written.
func (h *Handler) buildForSeries(w http.ResponseWriter, r *http.Request) (view dashboard.View, ok bool) {
	id, err := validation.ValidateSeriesID(mux.Vars(r)["seriesId"])
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "INVALID_SERIES_ID", err.Error())
		return view, false
	}
	q := r.URL.Query()
	view = h.build(r, dashboard.Selection{Indicator: id, Start: q.Get("start"), End: q.Get("end")})
	switch {
	case view.Has(dashboard.KindInvalidSelection):
		writeError(w, r, http.StatusNotFound, "SERIES_NOT_FOUND", "Unknown series "+id)
		return view, false
	case view.Has(dashboard.KindInvalidRange):
		writeError(w, r, http.StatusBadRequest, "INVALID_RANGE", view.Messages[0].Text)
		return view, false
	}
	return view, true
}

// build runs the pipeline and records the outcome for health reporting.
func (h *Handler) build(r *http.Request, sel dashboard.Selection) dashboard.View {
	view := h.pipeline.Build(r.Context(), sel)
	if _, failed := fetchFailure(view); failed {
		traffic.Record(traffic.Failure)
	} else {
		traffic.Record(traffic.Success)
	}
	return view
}

// fetchFailure returns the first message caused by the upstream fetch.
func fetchFailure(v dashboard.View) (dashboard.Message, bool) {
	for _, m := range v.Messages {
		switch m.Kind {
		case dashboard.KindMissingCredential, dashboard.KindInvalidCredential,
			dashboard.KindTransport, dashboard.KindHTTPStatus, dashboard.KindMalformedResponse:
			return m, true
		}
	}
	return dashboard.Message{}, false
}

// healthResult holds the computed health status and metadata for logging.
type healthResult struct {
	status     string
	statusCode int
	reason     string
}

// GetHealth handles GET /health.
func (h *Handler) GetHealth(w http.ResponseWriter, r *http.Request) {
	result := h.computeHealthStatus()

	h.healthStatusMu.Lock()
	prev := h.healthStatusPrev
	if prev != "" && prev != result.status {
		h.logger.Info("health status transition",
			zap.String("previous_status", prev),
			zap.String("current_status", result.status),
			zap.String("reason", result.reason))
	}
	h.healthStatusPrev = result.status
	h.healthStatusMu.Unlock()

	checks := map[string]string{"fredApi": "healthy", "credential": "ok"}
	if result.status == "degraded" {
		checks["fredApi"] = "unhealthy"
	}
	switch err := h.credentials.CredentialStatus(); {
	case errors.Is(err, client.ErrMissingAPIKey):
		checks["credential"] = "missing"
	case err != nil:
		checks["credential"] = "invalid"
	}
	if h.healthConfig != nil && h.healthConfig.CachePing != nil {
		if h.healthConfig.CachePing() == nil {
			checks["cache"] = "healthy"
		} else {
			checks["cache"] = "unhealthy"
		}
	}
	resp := map[string]interface{}{
		"status":    result.status,
		"service":   observability.ServiceName,
		"version":   "dev",
		"checks":    checks,
		"uptime":    lifecycle.Uptime().Round(time.Second).String(),
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}
	if result.reason != "" {
		resp["reason"] = result.reason
	}
	writeJSON(w, result.statusCode, resp)
}

// computeHealthStatus evaluates conditions in priority order:
// starting/shutting-down > credential > circuit open > overloaded > degraded > healthy.
func (h *Handler) computeHealthStatus() healthResult {
	switch lifecycle.CurrentPhase() {
	case lifecycle.Starting:
		return healthResult{"starting", http.StatusServiceUnavailable, "startup"}
	case lifecycle.Draining:
		return healthResult{"shutting-down", http.StatusServiceUnavailable, "signal"}
	}
	if err := h.credentials.CredentialStatus(); err != nil {
		reason := "api_key_invalid"
		if errors.Is(err, client.ErrMissingAPIKey) {
			reason = "api_key_missing"
		}
		return healthResult{"degraded", http.StatusServiceUnavailable, reason}
	}
	if h.healthConfig == nil {
		return healthResult{"healthy", http.StatusOK, ""}
	}
	if h.healthConfig.CircuitOpen != nil && h.healthConfig.CircuitOpen() {
		return healthResult{"degraded", http.StatusServiceUnavailable, "circuit_open"}
	}
	if h.healthConfig.RateLimitRPS > 0 && h.healthConfig.OverloadWindow > 0 {
		threshold := float64(h.healthConfig.RateLimitRPS) * h.healthConfig.OverloadWindow.Seconds() * float64(h.healthConfig.OverloadThresholdPct) / 100
		if float64(traffic.RequestCount(h.healthConfig.OverloadWindow)) > threshold {
			return healthResult{"overloaded", http.StatusServiceUnavailable, "overload_threshold"}
		}
	}
	if h.healthConfig.DegradedWindow > 0 && h.healthConfig.DegradedErrorPct > 0 {
		errs, total := traffic.ErrorRate(h.healthConfig.DegradedWindow)
		if total > 0 && float64(errs)*100/float64(total) >= float64(h.healthConfig.DegradedErrorPct) {
			return healthResult{"degraded", http.StatusServiceUnavailable, "error_rate_breach"}
		}
	}
	return healthResult{"healthy", http.StatusOK, ""}
}

// writeJSON writes v as JSON with the given status code.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes {"error": {code, message, requestId}}.
func writeError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	writeJSON(w, status, map[string]interface{}{
		"error": map[string]string{
			"code":      code,
			"message":   message,
			"requestId": observability.CorrelationIDFromContext(r.Context()),
		},
	})
}
