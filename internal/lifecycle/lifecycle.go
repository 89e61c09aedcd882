// Package lifecycle tracks the process phase for health reporting and shutdown.
package lifecycle

import (
	"sync/atomic"
	"time"
)

// Phase is where the process is in its life.
type Phase int32

const (
	// Starting: config loaded, listener not yet serving.
	Starting Phase = iota
	// Ready: serving dashboard traffic.
	Ready
	// Draining: SIGTERM/SIGINT received; finishing in-flight requests.
	Draining
)

func (p Phase) String() string {
	switch p {
	case Starting:
		return "starting"
	case Ready:
		return "ready"
	case Draining:
		return "shutting-down"
	}
	return "unknown"
}

var (
	phase     atomic.Int32
	startedAt atomic.Int64
)

func init() {
	startedAt.Store(time.Now().UnixNano())
}

// SetPhase moves the process to p. Draining is terminal unless reset by tests.
func SetPhase(p Phase) {
	phase.Store(int32(p))
}

// CurrentPhase returns the current phase.
func CurrentPhase() Phase {
	return Phase(phase.Load())
}

// SetShuttingDown marks the process as draining. Health returns 503 while true.
func SetShuttingDown(v bool) {
	if v {
		SetPhase(Draining)
		return
	}
	SetPhase(Ready)
}

// IsShuttingDown reports whether the process is draining.
func IsShuttingDown() bool {
	return CurrentPhase() == Draining
}

// Uptime returns time since process start.
func Uptime() time.Duration {
	return time.Since(time.Unix(0, startedAt.Load()))
}
