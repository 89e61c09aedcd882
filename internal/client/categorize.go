package client

import (
	"errors"
)

// ErrorCategory is a stable label for error classification in metrics and user messages.
type ErrorCategory string

const (
	ErrorCategoryMissingAPIKey  ErrorCategory = "missing_api_key"
	ErrorCategoryInvalidAPIKey  ErrorCategory = "invalid_api_key"
	ErrorCategoryTimeout        ErrorCategory = "timeout"
	ErrorCategoryNetwork        ErrorCategory = "network"
	ErrorCategoryBadRequest     ErrorCategory = "bad_request"
	ErrorCategorySeriesNotFound ErrorCategory = "series_not_found"
	ErrorCategoryRateLimited    ErrorCategory = "rate_limited"
	ErrorCategoryUpstream       ErrorCategory = "upstream"
	ErrorCategoryCircuitOpen    ErrorCategory = "circuit_open"
	ErrorCategoryParsing        ErrorCategory = "parsing"
	ErrorCategoryUnknown        ErrorCategory = "unknown"
)

// CategorizeError maps an error returned by GetObservations to an ErrorCategory.
func CategorizeError(err error) ErrorCategory {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrMissingAPIKey):
		return ErrorCategoryMissingAPIKey
	case errors.Is(err, ErrInvalidAPIKey):
		return ErrorCategoryInvalidAPIKey
	case errors.Is(err, ErrCircuitOpen):
		return ErrorCategoryCircuitOpen
	case errors.Is(err, ErrTransport) && IsTimeout(err):
		return ErrorCategoryTimeout
	case errors.Is(err, ErrTransport):
		return ErrorCategoryNetwork
	case errors.Is(err, ErrBadRequest):
		return ErrorCategoryBadRequest
	case errors.Is(err, ErrSeriesNotFound):
		return ErrorCategorySeriesNotFound
	case errors.Is(err, ErrRateLimited):
		return ErrorCategoryRateLimited
	case errors.Is(err, ErrUpstreamFailure):
		return ErrorCategoryUpstream
	case errors.Is(err, ErrMalformedResponse):
		return ErrorCategoryParsing
	case IsTimeout(err):
		return ErrorCategoryTimeout
	}
	return ErrorCategoryUnknown
}
