package dashboard

import (
	"fmt"
	"strings"
	"testing"

	"github.com/kjstillabower/fred-dashboard-service/internal/client"
	"github.com/kjstillabower/fred-dashboard-service/internal/indicators"
	"github.com/kjstillabower/fred-dashboard-service/internal/validation"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		err  error
		kind Kind
	}{
		{indicators.ErrUnknownIndicator, KindInvalidSelection},
		{fmt.Errorf("start: %w", validation.ErrInvalidDate), KindInvalidRange},
		{validation.ErrRangeInverted, KindInvalidRange},
		{client.ErrMissingAPIKey, KindMissingCredential},
		{client.ErrInvalidAPIKey, KindInvalidCredential},
		{client.ErrSeriesNotFound, KindHTTPStatus},
		{client.ErrBadRequest, KindHTTPStatus},
		{client.ErrCircuitOpen, KindHTTPStatus},
		{client.ErrMalformedResponse, KindMalformedResponse},
	}
	for _, tc := range tests {
		t.Run(string(tc.kind), func(t *testing.T) {
			m := Classify(tc.err)
			if m.Kind != tc.kind {
				t.Errorf("Classify(%v).Kind = %s, want %s", tc.err, m.Kind, tc.kind)
			}
			if m.Level != LevelError || m.Text == "" {
				t.Errorf("Classify(%v) = %+v", tc.err, m)
			}
		})
	}
}

// TestClassify_DoesNotEchoUpstreamText verifies raw error detail stays out of user text.
func TestClassify_DoesNotEchoUpstreamText(t *testing.T) {
	m := Classify(fmt.Errorf("%w: HTTP 500: api_key=secret", client.ErrUpstreamFailure))
	if strings.Contains(m.Text, "secret") {
		t.Errorf("Text = %q leaks upstream detail", m.Text)
	}
}
