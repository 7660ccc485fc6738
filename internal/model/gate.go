package model

import "time"

// GateID identifies one of the facility's physical gates.
type GateID string

const (
	GateEntry GateID = "entry"
	GateExit  GateID = "exit"
)

// String returns the string representation of the gate ID.
func (g GateID) String() string {
	return string(g)
}

// IsValid checks whether the gate ID is a known value.
func (g GateID) IsValid() bool {
	switch g {
	case GateEntry, GateExit:
		return true
	}
	return false
}

// GateState is the state of a gate's barrier.
type GateState string

const (
	GateClosed GateState = "closed"
	GateOpen   GateState = "open"
)

// String returns the string representation of the gate state.
func (s GateState) String() string {
	return string(s)
}

// GateStatus is a point-in-time observation of a gate, as returned by the
// HTTP API and CLI. ClosesAt is the pending auto-close deadline, present only
// while the gate is open.
type GateStatus struct {
	ID       GateID     `json:"id"`
	State    GateState  `json:"state"`
	ClosesAt *time.Time `json:"closes_at,omitempty"`
}
