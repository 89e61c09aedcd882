package lifecycle

import "testing"

func TestPhase_String(t *testing.T) {
	tests := map[Phase]string{Starting: "starting", Ready: "ready", Draining: "shutting-down", Phase(9): "unknown"}
	for p, want := range tests {
		if got := p.String(); got != want {
			t.Errorf("Phase(%d).String() = %q, want %q", p, got, want)
		}
	}
}

func TestSetPhase(t *testing.T) {
	defer SetPhase(Starting)
	SetPhase(Ready)
	if CurrentPhase() != Ready {
		t.Errorf("CurrentPhase() = %v, want ready", CurrentPhase())
	}
	if IsShuttingDown() {
		t.Error("IsShuttingDown() = true while ready")
	}
}

func TestSetShuttingDown(t *testing.T) {
	defer SetPhase(Starting)
	SetShuttingDown(true)
	if !IsShuttingDown() || CurrentPhase() != Draining {
		t.Errorf("after SetShuttingDown(true): phase = %v", CurrentPhase())
	}
	SetShuttingDown(false)
	if IsShuttingDown() || CurrentPhase() != Ready {
		t.Errorf("after SetShuttingDown(false): phase = %v", CurrentPhase())
	}
}

func TestUptime(t *testing.T) {
	if Uptime() <= 0 {
		t.Errorf("Uptime() = %v, want positive", Uptime())
	}
}
