package dashboard

import (
	"errors"
	"fmt"

	"github.com/kjstillabower/fred-dashboard-service/internal/client"
	"github.com/kjstillabower/fred-dashboard-service/internal/indicators"
	"github.com/kjstillabower/fred-dashboard-service/internal/validation"
)

// Level is the severity of an inline message.
type Level string

const (
	LevelError   Level = "error"
	LevelWarning Level = "warning"
)

// Kind is a stable label for what went wrong. Used in JSON responses and metrics.
type Kind string

const (
	KindMissingCredential Kind = "missing_credential"
	KindInvalidCredential Kind = "invalid_credential"
	KindTransport         Kind = "transport"
	KindHTTPStatus        Kind = "http_status"
	KindMalformedResponse Kind = "malformed_response"
	KindEmptyResult       Kind = "empty_result"
	KindEmptyRange        Kind = "empty_range"
	KindInvalidRange      Kind = "invalid_range"
	KindInvalidSelection  Kind = "invalid_selection"
)

// Message is shown inline next to the chart. The page stays usable whatever it says.
type Message struct {
	Level Level  `json:"level"`
	Kind  Kind   `json:"kind"`
	Text  string `json:"text"`
}

// Classify converts a pipeline error into a user-facing message. Error text from
// upstream is never echoed verbatim.
func Classify(err error) Message {
	switch {
	case errors.Is(err, indicators.ErrUnknownIndicator):
		return Message{LevelError, KindInvalidSelection, "Unknown indicator. Choose one of the listed series."}
	case errors.Is(err, validation.ErrInvalidDate):
		return Message{LevelError, KindInvalidRange, "Dates must be in YYYY-MM-DD format."}
	case errors.Is(err, validation.ErrRangeInverted):
		return Message{LevelError, KindInvalidRange, "Start date must be before end date."}
	}

	switch client.CategorizeError(err) {
	case client.ErrorCategoryMissingAPIKey:
		return Message{LevelError, KindMissingCredential, "FRED API key is not configured. Set FRED_API_KEY to load data."}
	case client.ErrorCategoryInvalidAPIKey:
		return Message{LevelError, KindInvalidCredential, "FRED rejected the configured API key."}
	case client.ErrorCategoryTimeout:
		return Message{LevelError, KindTransport, "FRED did not respond in time. Try again."}
	case client.ErrorCategoryNetwork:
		return Message{LevelError, KindTransport, "Could not reach FRED. Check the network connection."}
	case client.ErrorCategorySeriesNotFound:
		return Message{LevelError, KindHTTPStatus, "FRED does not have this series."}
	case client.ErrorCategoryRateLimited:
		return Message{LevelError, KindHTTPStatus, "FRED rate limit reached. Try again shortly."}
	case client.ErrorCategoryCircuitOpen:
		return Message{LevelError, KindHTTPStatus, "FRED is temporarily unavailable. Try again shortly."}
	case client.ErrorCategoryBadRequest, client.ErrorCategoryUpstream:
		return Message{LevelError, KindHTTPStatus, "FRED returned an error for this request."}
	case client.ErrorCategoryParsing:
		return Message{LevelError, KindMalformedResponse, "FRED returned data that could not be read."}
	}
	return Message{LevelError, KindTransport, "Failed to fetch data from FRED."}
}

func emptyResult(name string) Message {
	return Message{LevelWarning, KindEmptyResult, fmt.Sprintf("No observations returned for %s.", name)}
}

func emptyRange(name, start, end string) Message {
	return Message{LevelWarning, KindEmptyRange, fmt.Sprintf("No data for %s between %s and %s.", name, start, end)}
}
