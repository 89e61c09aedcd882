package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/kjstillabower/fred-dashboard-service/internal/circuitbreaker"
	"github.com/kjstillabower/fred-dashboard-service/internal/models"
	"github.com/kjstillabower/fred-dashboard-service/internal/observability"
	"github.com/kjstillabower/fred-dashboard-service/internal/series"
)

// DefaultBaseURL is the FRED series observations endpoint.
const DefaultBaseURL = "https://api.stlouisfed.org/fred/series/observations"

// maxBodyBytes caps how much of a response body is read. The largest daily FRED series
// (DFF since 1954) is a few MB of JSON.
const maxBodyBytes = 32 << 20

// ObservationsClient fetches cleaned observations for one series.
type ObservationsClient interface {
	GetObservations(ctx context.Context, seriesID string, window models.DateRange) (models.ObservationSeries, error)
	CredentialStatus() error
}

var (
	ErrMissingAPIKey     = errors.New("FRED API key not configured")
	ErrInvalidAPIKey     = errors.New("invalid API key")
	ErrBadRequest        = errors.New("bad request")
	ErrSeriesNotFound    = errors.New("series not found")
	ErrRateLimited       = errors.New("rate limited")
	ErrUpstreamFailure   = errors.New("upstream failure")
	ErrTransport         = errors.New("transport failure")
	ErrMalformedResponse = errors.New("malformed response")
	ErrCircuitOpen       = errors.New("circuit breaker open")
)

// FRED API keys are 32 lower-case alphanumeric characters.
var apiKeyPattern = regexp.MustCompile(`^[a-z0-9]{32}$`)

// FREDClient calls the FRED observations endpoint. One request per call, no retries.
type FREDClient struct {
	apiKey  string
	apiURL  string
	timeout time.Duration
	client  *http.Client
	breaker *circuitbreaker.CircuitBreaker
}

// NewFREDClient returns a client. An empty apiKey is accepted: every fetch then fails
// with ErrMissingAPIKey without touching the network, so the dashboard can report it.
func NewFREDClient(apiKey, apiURL string, timeout time.Duration) (*FREDClient, error) {
	if apiURL == "" {
		apiURL = DefaultBaseURL
	}
	if _, err := url.Parse(apiURL); err != nil {
		return nil, fmt.Errorf("invalid API URL: %w", err)
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &FREDClient{
		apiKey:  strings.TrimSpace(apiKey),
		apiURL:  apiURL,
		timeout: timeout,
		client: &http.Client{
			Timeout: timeout,
		},
	}, nil
}

// SetCircuitBreaker makes upstream faults count toward cb; calls fail fast while it is open.
func (c *FREDClient) SetCircuitBreaker(cb *circuitbreaker.CircuitBreaker) {
	c.breaker = cb
}

// CredentialStatus reports whether the configured key can be used, without a network call.
func (c *FREDClient) CredentialStatus() error {
	if c.apiKey == "" {
		return ErrMissingAPIKey
	}
	if !apiKeyPattern.MatchString(c.apiKey) {
		return fmt.Errorf("%w: expected 32 lower-case alphanumeric characters", ErrInvalidAPIKey)
	}
	return nil
}

type observationsResponse struct {
	Count        int                     `json:"count"`
	Observations []series.RawObservation `json:"observations"`
}

type errorResponse struct {
	ErrorCode    int    `json:"error_code"`
	ErrorMessage string `json:"error_message"`
}

// GetObservations fetches and cleans observations for seriesID within window.
// A zero window bound is omitted from the request.
func (c *FREDClient) GetObservations(ctx context.Context, seriesID string, window models.DateRange) (models.ObservationSeries, error) {
	if err := c.CredentialStatus(); err != nil {
		observability.FREDAPIErrorsTotal.WithLabelValues(string(CategorizeError(err))).Inc()
		return models.ObservationSeries{}, err
	}

	var result models.ObservationSeries
	call := func() error {
		var err error
		result, err = c.callAPI(ctx, seriesID, window)
		return err
	}

	var err error
	if c.breaker != nil {
		var apiErr error
		err = c.breaker.Call(ctx, func() error {
			apiErr = call()
			if isUpstreamFault(apiErr) {
				return apiErr
			}
			return nil
		})
		if errors.Is(err, circuitbreaker.ErrOpen) {
			err = fmt.Errorf("%w: FRED temporarily unavailable", ErrCircuitOpen)
		} else {
			err = apiErr
		}
	} else {
		err = call()
	}
	if err != nil {
		observability.FREDAPIErrorsTotal.WithLabelValues(string(CategorizeError(err))).Inc()
		return models.ObservationSeries{}, err
	}
	return result, nil
}

func (c *FREDClient) callAPI(ctx context.Context, seriesID string, window models.DateRange) (models.ObservationSeries, error) {
	start := time.Now()

	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := c.buildRequest(reqCtx, seriesID, window)
	if err != nil {
		observability.FREDAPICallsTotal.WithLabelValues("error").Inc()
		return models.ObservationSeries{}, fmt.Errorf("build request: %w", err)
	}

	if corrID := observability.CorrelationIDFromContext(ctx); corrID != "" {
		req.Header.Set("X-Correlation-ID", corrID)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		duration := time.Since(start).Seconds()
		observability.FREDAPICallsTotal.WithLabelValues("error").Inc()
		observability.FREDAPIDuration.WithLabelValues("error").Observe(duration)
		return models.ObservationSeries{}, fmt.Errorf("%w: %w", ErrTransport, stripURL(err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	duration := time.Since(start).Seconds()
	status := statusLabel(resp.StatusCode)
	observability.FREDAPICallsTotal.WithLabelValues(status).Inc()
	observability.FREDAPIDuration.WithLabelValues(status).Observe(duration)
	if err != nil {
		return models.ObservationSeries{}, fmt.Errorf("%w: read response body: %v", ErrTransport, err)
	}

	if err := handleErrorResponse(resp.StatusCode, body); err != nil {
		return models.ObservationSeries{}, err
	}

	var apiResp observationsResponse
	if err := json.Unmarshal(body, &apiResp); err != nil {
		return models.ObservationSeries{}, fmt.Errorf("%w: parse response: %v", ErrMalformedResponse, err)
	}

	cleaned, err := series.FromRaw(seriesID, apiResp.Observations)
	if err != nil {
		return models.ObservationSeries{}, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return cleaned, nil
}

func (c *FREDClient) buildRequest(ctx context.Context, seriesID string, window models.DateRange) (*http.Request, error) {
	baseURL, err := url.Parse(c.apiURL)
	if err != nil {
		return nil, fmt.Errorf("invalid API URL: %w", err)
	}

	params := url.Values{}
	params.Set("series_id", seriesID)
	params.Set("api_key", c.apiKey)
	params.Set("file_type", "json")
	if !window.Start.IsZero() {
		params.Set("observation_start", window.Start.Format(models.DateLayout))
	}
	if !window.End.IsZero() {
		params.Set("observation_end", window.End.Format(models.DateLayout))
	}
	baseURL.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	return req, nil
}

// handleErrorResponse maps a non-2xx status to a sentinel error. FRED reports key
// problems as 400 with an error_message naming api_key.
func handleErrorResponse(statusCode int, body []byte) error {
	if statusCode >= 200 && statusCode < 300 {
		return nil
	}
	var apiErr errorResponse
	_ = json.Unmarshal(body, &apiErr)
	detail := strings.TrimSpace(apiErr.ErrorMessage)
	if detail == "" {
		detail = fmt.Sprintf("HTTP %d", statusCode)
	}

	switch {
	case statusCode == http.StatusBadRequest && strings.Contains(strings.ToLower(detail), "api_key"):
		return fmt.Errorf("%w: %s", ErrInvalidAPIKey, detail)
	case statusCode == http.StatusBadRequest:
		return fmt.Errorf("%w: %s", ErrBadRequest, detail)
	case statusCode == http.StatusUnauthorized || statusCode == http.StatusForbidden:
		return fmt.Errorf("%w: %s", ErrInvalidAPIKey, detail)
	case statusCode == http.StatusNotFound:
		return fmt.Errorf("%w: %s", ErrSeriesNotFound, detail)
	case statusCode == http.StatusTooManyRequests:
		return fmt.Errorf("%w: %s", ErrRateLimited, detail)
	default:
		return fmt.Errorf("%w: HTTP %d: %s", ErrUpstreamFailure, statusCode, detail)
	}
}

// isUpstreamFault reports errors that say something about FRED's availability,
// as opposed to a bad request or key.
func isUpstreamFault(err error) bool {
	return errors.Is(err, ErrTransport) ||
		errors.Is(err, ErrUpstreamFailure) ||
		errors.Is(err, ErrRateLimited)
}

// stripURL drops the request URL from a *url.Error so the API key never reaches logs or messages.
func stripURL(err error) error {
	var ue *url.Error
	if errors.As(err, &ue) {
		return fmt.Errorf("%s: %w", ue.Op, ue.Err)
	}
	return err
}

// IsTimeout reports whether err came from a deadline.
func IsTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return true
	}
	return strings.Contains(err.Error(), "Client.Timeout") || strings.Contains(err.Error(), "deadline exceeded")
}

func statusLabel(statusCode int) string {
	if statusCode >= 200 && statusCode < 300 {
		return "success"
	}
	if statusCode == 429 {
		return "rate_limited"
	}
	if statusCode >= 400 && statusCode < 500 {
		return "client_error"
	}
	if statusCode >= 500 {
		return "server_error"
	}
	return "error"
}
