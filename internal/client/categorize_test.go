package client

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestCategorizeError(t *testing.T) {
	tests := []struct {
		err  error
		want ErrorCategory
	}{
		{nil, ""},
		{ErrMissingAPIKey, ErrorCategoryMissingAPIKey},
		{fmt.Errorf("%w: bad", ErrInvalidAPIKey), ErrorCategoryInvalidAPIKey},
		{fmt.Errorf("%w: %w", ErrTransport, context.DeadlineExceeded), ErrorCategoryTimeout},
		{fmt.Errorf("%w: dial tcp: connection refused", ErrTransport), ErrorCategoryNetwork},
		{fmt.Errorf("%w: x", ErrBadRequest), ErrorCategoryBadRequest},
		{fmt.Errorf("%w: x", ErrSeriesNotFound), ErrorCategorySeriesNotFound},
		{fmt.Errorf("%w: x", ErrRateLimited), ErrorCategoryRateLimited},
		{fmt.Errorf("%w: HTTP 503", ErrUpstreamFailure), ErrorCategoryUpstream},
		{fmt.Errorf("%w: x", ErrMalformedResponse), ErrorCategoryParsing},
		{fmt.Errorf("%w: x", ErrCircuitOpen), ErrorCategoryCircuitOpen},
		{context.DeadlineExceeded, ErrorCategoryTimeout},
		{errors.New("something else"), ErrorCategoryUnknown},
	}
	for _, tt := range tests {
		if got := CategorizeError(tt.err); got != tt.want {
			t.Errorf("CategorizeError(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}
