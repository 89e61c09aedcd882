package observability

import (
	"context"
	"testing"

	"go.uber.org/zap"
)

func TestCorrelationID_RoundTrip(t *testing.T) {
	ctx := WithCorrelationID(context.Background(), "abc")
	if got := CorrelationIDFromContext(ctx); got != "abc" {
		t.Errorf("CorrelationIDFromContext() = %q, want abc", got)
	}
	if got := CorrelationIDFromContext(context.Background()); got != "" {
		t.Errorf("CorrelationIDFromContext(empty) = %q, want empty", got)
	}
}

func TestLoggerFromContext_DefaultsToNop(t *testing.T) {
	if LoggerFromContext(context.Background()) == nil {
		t.Fatal("LoggerFromContext() returned nil")
	}
	l := zap.NewExample()
	if got := LoggerFromContext(WithLogger(context.Background(), l)); got != l {
		t.Error("LoggerFromContext() did not return stored logger")
	}
}
