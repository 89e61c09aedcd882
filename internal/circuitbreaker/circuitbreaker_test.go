package circuitbreaker

import (
	"context"
	"errors"
	"testing"
	"time"
)

var errBoom = errors.New("boom")

func TestCircuitBreaker_OpensAfterThreshold(t *testing.T) {
	cb := New(Config{FailureThreshold: 3, Timeout: time.Minute})
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		if err := cb.Call(ctx, func() error { return errBoom }); !errors.Is(err, errBoom) {
			t.Fatalf("Call() = %v, want errBoom", err)
		}
	}
	if cb.State() != StateOpen {
		t.Fatalf("State() = %v, want open", cb.State())
	}
	called := false
	if err := cb.Call(ctx, func() error { called = true; return nil }); !errors.Is(err, ErrOpen) {
		t.Errorf("Call() while open = %v, want ErrOpen", err)
	}
	if called {
		t.Error("fn ran while circuit open")
	}
}

func TestCircuitBreaker_HalfOpenRecovers(t *testing.T) {
	var transitions []string
	cb := New(Config{
		FailureThreshold: 1,
		SuccessThreshold: 2,
		Timeout:          time.Second,
		OnStateChange: func(from, to State) {
			transitions = append(transitions, from.String()+"->"+to.String())
		},
	})
	now := time.Now()
	cb.now = func() time.Time { return now }
	ctx := context.Background()

	_ = cb.Call(ctx, func() error { return errBoom })
	now = now.Add(2 * time.Second)
	_ = cb.Call(ctx, func() error { return nil })
	if cb.State() != StateHalfOpen {
		t.Fatalf("State() = %v, want half_open after first probe", cb.State())
	}
	_ = cb.Call(ctx, func() error { return nil })
	if cb.State() != StateClosed {
		t.Fatalf("State() = %v, want closed", cb.State())
	}
	want := []string{"closed->open", "open->half_open", "half_open->closed"}
	if len(transitions) != len(want) {
		t.Fatalf("transitions = %v, want %v", transitions, want)
	}
	for i := range want {
		if transitions[i] != want[i] {
			t.Errorf("transitions[%d] = %q, want %q", i, transitions[i], want[i])
		}
	}
}

func TestCircuitBreaker_HalfOpenFailureReopens(t *testing.T) {
	cb := New(Config{FailureThreshold: 1, Timeout: time.Second})
	now := time.Now()
	cb.now = func() time.Time { return now }
	ctx := context.Background()

	_ = cb.Call(ctx, func() error { return errBoom })
	now = now.Add(2 * time.Second)
	_ = cb.Call(ctx, func() error { return errBoom })
	if cb.State() != StateOpen {
		t.Errorf("State() = %v, want open", cb.State())
	}
}

func TestCircuitBreaker_CancelledContext(t *testing.T) {
	cb := New(Config{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := cb.Call(ctx, func() error { t.Error("fn ran"); return nil }); !errors.Is(err, context.Canceled) {
		t.Errorf("Call() = %v, want context.Canceled", err)
	}
}
