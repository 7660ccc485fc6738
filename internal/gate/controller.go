// Package gate implements the per-gate barrier state machine.
//
// A Controller knows nothing about plates or payment: it only transitions
// between Closed and Open on explicit calls, and arms an auto-close timer on
// every Open. Each Open bumps a generation counter; an expiring timer closes
// the gate only if its generation still matches, so a stale timer can never
// close a gate that was re-opened for a new vehicle.
package gate

import (
	"sync"
	"time"

	"github.com/kerbside/parkd/internal/model"
)

// DefaultAutoClose is how long a gate stays open without a hold.
const DefaultAutoClose = 10 * time.Second

// Controller is the state machine for a single physical gate.
type Controller struct {
	id        model.GateID
	autoClose time.Duration

	mu       sync.Mutex
	state    model.GateState
	gen      uint64
	timer    *time.Timer
	closesAt time.Time
	hold     bool

	// onChange, when set, is called after every state transition with the
	// lock released. Used by the facility to publish gate events.
	onChange func(id model.GateID, state model.GateState)
}

// NewController returns a closed gate. autoClose <= 0 selects DefaultAutoClose.
func NewController(id model.GateID, autoClose time.Duration) *Controller {
	if autoClose <= 0 {
		autoClose = DefaultAutoClose
	}
	return &Controller{
		id:        id,
		autoClose: autoClose,
		state:     model.GateClosed,
	}
}

// OnChange registers the transition callback. Must be called before the
// controller is shared.
func (c *Controller) OnChange(fn func(id model.GateID, state model.GateState)) {
	c.onChange = fn
}

// ID returns the gate's identifier.
func (c *Controller) ID() model.GateID {
	return c.id
}

// Open transitions the gate to Open and (re)arms the auto-close timer. An
// already-open gate stays open with a fresh timer; timers never stack.
func (c *Controller) Open() {
	c.mu.Lock()
	c.gen++
	gen := c.gen
	if c.timer != nil {
		c.timer.Stop()
	}
	changed := c.state != model.GateOpen
	c.state = model.GateOpen
	c.closesAt = time.Now().Add(c.autoClose)
	c.timer = time.AfterFunc(c.autoClose, func() { c.expire(gen) })
	c.mu.Unlock()

	if changed && c.onChange != nil {
		c.onChange(c.id, model.GateOpen)
	}
}

// Close transitions the gate to Closed and cancels any pending timer.
// Closing an already-closed gate is a no-op.
func (c *Controller) Close() {
	c.mu.Lock()
	c.gen++
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	changed := c.state != model.GateClosed
	c.state = model.GateClosed
	c.hold = false
	c.mu.Unlock()

	if changed && c.onChange != nil {
		c.onChange(c.id, model.GateClosed)
	}
}

// SetHold suspends (true) or restores (false) auto-close while the gate is
// open. Releasing the hold re-arms the timer for a full interval.
func (c *Controller) SetHold(hold bool) {
	c.mu.Lock()
	if c.state != model.GateOpen {
		c.mu.Unlock()
		return
	}
	c.hold = hold
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	if !hold {
		c.gen++
		gen := c.gen
		c.closesAt = time.Now().Add(c.autoClose)
		c.timer = time.AfterFunc(c.autoClose, func() { c.expire(gen) })
	}
	c.mu.Unlock()
}

// expire fires on timer expiry. It only acts when the generation still
// matches the latest Open and no hold is active.
func (c *Controller) expire(gen uint64) {
	c.mu.Lock()
	if c.gen != gen || c.state != model.GateOpen || c.hold {
		c.mu.Unlock()
		return
	}
	c.state = model.GateClosed
	c.timer = nil
	c.mu.Unlock()

	if c.onChange != nil {
		c.onChange(c.id, model.GateClosed)
	}
}

// State returns the current gate state.
func (c *Controller) State() model.GateState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Status returns the gate state plus the pending auto-close deadline.
func (c *Controller) Status() model.GateStatus {
	c.mu.Lock()
	defer c.mu.Unlock()

	st := model.GateStatus{ID: c.id, State: c.state}
	if c.state == model.GateOpen && !c.hold && c.timer != nil {
		t := c.closesAt
		st.ClosesAt = &t
	}
	return st
}
