package gate

import (
	"sync"
	"testing"
	"time"

	"github.com/kerbside/parkd/internal/model"
)

// waitForState polls until the gate reaches want or the deadline passes.
func waitForState(t *testing.T, c *Controller, want model.GateState, deadline time.Duration) {
	t.Helper()
	end := time.Now().Add(deadline)
	for time.Now().Before(end) {
		if c.State() == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("gate did not reach %s within %v (state=%s)", want, deadline, c.State())
}

func TestController_InitialClosed(t *testing.T) {
	c := NewController(model.GateEntry, time.Second)
	if c.State() != model.GateClosed {
		t.Fatalf("new gate state = %s, want closed", c.State())
	}
}

func TestController_AutoClose(t *testing.T) {
	c := NewController(model.GateEntry, 30*time.Millisecond)
	c.Open()
	if c.State() != model.GateOpen {
		t.Fatalf("state after Open = %s", c.State())
	}
	st := c.Status()
	if st.ClosesAt == nil {
		t.Fatal("open gate should report an auto-close deadline")
	}
	waitForState(t, c, model.GateClosed, time.Second)
}

func TestController_ReopenBeatsStaleTimer(t *testing.T) {
	c := NewController(model.GateExit, 40*time.Millisecond)
	c.Open()
	time.Sleep(25 * time.Millisecond)
	// Re-open just before the first timer fires; its generation is now stale.
	c.Open()
	time.Sleep(25 * time.Millisecond)
	if c.State() != model.GateOpen {
		t.Fatal("stale timer closed a re-opened gate")
	}
	waitForState(t, c, model.GateClosed, time.Second)
}

func TestController_CloseIdempotent(t *testing.T) {
	c := NewController(model.GateEntry, time.Second)

	var mu sync.Mutex
	var transitions []model.GateState
	c.OnChange(func(_ model.GateID, s model.GateState) {
		mu.Lock()
		transitions = append(transitions, s)
		mu.Unlock()
	})

	c.Close() // already closed: no-op, no callback
	c.Open()
	c.Close()
	c.Close()

	mu.Lock()
	defer mu.Unlock()
	if len(transitions) != 2 || transitions[0] != model.GateOpen || transitions[1] != model.GateClosed {
		t.Fatalf("unexpected transitions: %v", transitions)
	}
}

func TestController_ManualCloseCancelsTimer(t *testing.T) {
	c := NewController(model.GateEntry, 30*time.Millisecond)
	c.Open()
	c.Close()
	// Re-open after the manual close; the original timer must not fire on it.
	c.Open()
	time.Sleep(10 * time.Millisecond)
	if c.State() != model.GateOpen {
		t.Fatal("cancelled timer closed the gate")
	}
}

func TestController_Hold(t *testing.T) {
	c := NewController(model.GateExit, 20*time.Millisecond)
	c.Open()
	c.SetHold(true)
	time.Sleep(60 * time.Millisecond)
	if c.State() != model.GateOpen {
		t.Fatal("held gate auto-closed")
	}
	if c.Status().ClosesAt != nil {
		t.Fatal("held gate should not report an auto-close deadline")
	}
	c.SetHold(false)
	waitForState(t, c, model.GateClosed, time.Second)
}

func TestController_HoldIgnoredWhenClosed(t *testing.T) {
	c := NewController(model.GateEntry, time.Second)
	c.SetHold(true)
	c.Open()
	// The earlier hold call must not have latched.
	if st := c.Status(); st.ClosesAt == nil {
		t.Fatal("gate opened without an auto-close deadline")
	}
}

func TestController_OpenRestartsTimer(t *testing.T) {
	c := NewController(model.GateEntry, 50*time.Millisecond)
	c.Open()
	first := c.Status().ClosesAt
	time.Sleep(20 * time.Millisecond)
	c.Open()
	second := c.Status().ClosesAt
	if first == nil || second == nil || !second.After(*first) {
		t.Fatalf("re-open did not extend deadline: first=%v second=%v", first, second)
	}
}
