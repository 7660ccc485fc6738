// Package facility implements the parking session lifecycle: entry
// admission, fee settlement, and exit, coordinating the store, the fee
// schedule, and the physical gate controllers.
//
// All lifecycle decisions take the reference clock as an argument; the only
// timer the package owns indirectly is the gate auto-close. Entry admission
// runs under a facility-level mutex so the capacity check and the session
// insert are atomic with respect to concurrent arrivals.
package facility

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/kerbside/parkd/internal/billing"
	"github.com/kerbside/parkd/internal/events"
	"github.com/kerbside/parkd/internal/gate"
	"github.com/kerbside/parkd/internal/idgen"
	"github.com/kerbside/parkd/internal/model"
	"github.com/kerbside/parkd/internal/store"
)

// DefaultCapacity is the number of parking spaces when none is configured.
const DefaultCapacity = 100

// ErrEmptyPlate is returned when a lifecycle operation receives a plate that
// normalizes to the empty string. Transports map it to a 400.
var ErrEmptyPlate = errors.New("plate is required")

// Denial reasons carried in EntryResult and ExitResult.
const (
	ReasonBlocked       = "blocked"
	ReasonFull          = "full"
	ReasonDuplicateOpen = "duplicate_open"
	ReasonNotFound      = "not_found"
)

// Exit and settlement statuses.
const (
	StatusCompleted          = "completed"
	StatusPaymentRequired    = "payment_required"
	StatusDenied             = "denied"
	StatusAlreadyPaid        = "already_paid"
	StatusSettledExitPending = "settled_exit_pending"
)

// EntryResult is the outcome of an entry request. Admitted is false exactly
// when Reason is set; the entry gate opens only for admitted vehicles.
type EntryResult struct {
	Admitted bool           `json:"admitted"`
	Reason   string         `json:"reason,omitempty"`
	Session  *model.Session `json:"session,omitempty"`
}

// ExitResult is the outcome of an exit request. A payment_required result
// carries the fee quoted at request time; completed carries the closed
// session.
type ExitResult struct {
	Status   string         `json:"status"`
	Reason   string         `json:"reason,omitempty"`
	Session  *model.Session `json:"session,omitempty"`
	FeeCents int64          `json:"fee_cents,omitempty"`
}

// SettleResult is the outcome of a settlement request. The settled amount is
// always the fee computed at settlement time, never a client-supplied value.
type SettleResult struct {
	Status      string         `json:"status"`
	Session     *model.Session `json:"session,omitempty"`
	AmountCents int64          `json:"amount_cents,omitempty"`
}

// Options configures a Facility.
type Options struct {
	Capacity  int                  // 0 selects DefaultCapacity
	Rates     billing.RateSchedule // zero value selects billing.DefaultRates
	AutoClose time.Duration        // 0 selects gate.DefaultAutoClose
	Publisher events.Publisher     // nil selects events.NoopPublisher
}

// Facility coordinates sessions, billing, the blocklist, and the two gates.
type Facility struct {
	store     store.Store
	rates     billing.RateSchedule
	capacity  int
	publisher events.Publisher
	gates     map[model.GateID]*gate.Controller

	// admitMu serializes the capacity check with the session insert so
	// concurrent entries cannot overshoot capacity.
	admitMu sync.Mutex

	broadcast func(topic string, event any)
}

// New returns a Facility over the given store. The entry and exit gate
// controllers start closed.
func New(s store.Store, opts Options) (*Facility, error) {
	if opts.Capacity < 0 {
		return nil, fmt.Errorf("capacity must not be negative, got %d", opts.Capacity)
	}
	if opts.Capacity == 0 {
		opts.Capacity = DefaultCapacity
	}
	if opts.Rates == (billing.RateSchedule{}) {
		opts.Rates = billing.DefaultRates
	}
	if !opts.Rates.Valid() {
		return nil, fmt.Errorf("invalid rate schedule: %+v", opts.Rates)
	}
	if opts.Publisher == nil {
		opts.Publisher = &events.NoopPublisher{}
	}

	f := &Facility{
		store:     s,
		rates:     opts.Rates,
		capacity:  opts.Capacity,
		publisher: opts.Publisher,
		gates: map[model.GateID]*gate.Controller{
			model.GateEntry: gate.NewController(model.GateEntry, opts.AutoClose),
			model.GateExit:  gate.NewController(model.GateExit, opts.AutoClose),
		},
	}
	for _, c := range f.gates {
		c.OnChange(f.publishGateChange)
	}
	return f, nil
}

// OnBroadcast registers a callback invoked for every published event, used
// by the HTTP server to fan events out to SSE subscribers. Must be set
// before the facility is shared.
func (f *Facility) OnBroadcast(fn func(topic string, event any)) {
	f.broadcast = fn
}

// Rates returns the active fee schedule.
func (f *Facility) Rates() billing.RateSchedule {
	return f.rates
}

// Capacity returns the configured number of spaces.
func (f *Facility) Capacity() int {
	return f.capacity
}

// RequestEntry admits a vehicle at the entry gate. Blocked plates, a full
// facility, and plates that already have an open session are denied; the
// entry gate opens only on admission.
func (f *Facility) RequestEntry(ctx context.Context, plate string, now time.Time) (*EntryResult, error) {
	plate = model.NormalizePlate(plate)
	if plate == "" {
		return nil, ErrEmptyPlate
	}

	blocked, err := f.store.IsBlocked(ctx, plate)
	if err != nil {
		return nil, fmt.Errorf("checking blocklist: %w", err)
	}
	if blocked {
		f.recordAndPublish(ctx, events.TopicEntryDenied, "", events.EntryDenied{Plate: plate, Reason: ReasonBlocked})
		return &EntryResult{Reason: ReasonBlocked}, nil
	}

	session, denial, err := f.admit(ctx, plate, now)
	if err != nil {
		return nil, err
	}
	if denial != "" {
		f.recordAndPublish(ctx, events.TopicEntryDenied, "", events.EntryDenied{Plate: plate, Reason: denial})
		return &EntryResult{Reason: denial}, nil
	}

	f.recordAndPublish(ctx, events.TopicSessionCreated, session.ID, events.SessionCreated{Session: session})
	f.gates[model.GateEntry].Open()

	return &EntryResult{Admitted: true, Session: session}, nil
}

// admit performs the capacity check and the session insert under the
// admission lock. It returns a denial reason instead of an error for the
// expected rejections.
func (f *Facility) admit(ctx context.Context, plate string, now time.Time) (*model.Session, string, error) {
	f.admitMu.Lock()
	defer f.admitMu.Unlock()

	open, err := f.store.CountOpen(ctx)
	if err != nil {
		return nil, "", fmt.Errorf("counting open sessions: %w", err)
	}
	if open >= f.capacity {
		return nil, ReasonFull, nil
	}

	id, err := idgen.Generate()
	if err != nil {
		return nil, "", fmt.Errorf("generating session ID: %w", err)
	}

	session := &model.Session{
		ID:        id,
		Plate:     plate,
		EntryTime: now.UTC(),
	}
	if err := f.store.CreateSession(ctx, session); err != nil {
		if errors.Is(err, store.ErrDuplicateOpenSession) {
			return nil, ReasonDuplicateOpen, nil
		}
		return nil, "", fmt.Errorf("creating session: %w", err)
	}
	return session, "", nil
}

// RequestExit handles a vehicle presenting at the exit gate. An unpaid
// session gets a fee quote and the gate stays closed; a paid session is
// closed and the exit gate opens. Unknown plates are denied.
func (f *Facility) RequestExit(ctx context.Context, plate string, now time.Time) (*ExitResult, error) {
	plate = model.NormalizePlate(plate)
	if plate == "" {
		return nil, ErrEmptyPlate
	}

	session, err := f.store.FindOpenSession(ctx, plate)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			f.recordAndPublish(ctx, events.TopicExitDenied, "", events.ExitDenied{Plate: plate, Reason: ReasonNotFound})
			return &ExitResult{Status: StatusDenied, Reason: ReasonNotFound}, nil
		}
		return nil, fmt.Errorf("finding open session: %w", err)
	}

	if !session.Paid {
		fee, err := f.rates.Fee(session.EntryTime, now)
		if err != nil {
			return nil, fmt.Errorf("quoting fee: %w", err)
		}
		return &ExitResult{Status: StatusPaymentRequired, Session: session, FeeCents: fee}, nil
	}

	closed, err := f.completeExit(ctx, session.ID, now)
	if err != nil {
		return nil, err
	}
	return &ExitResult{Status: StatusCompleted, Session: closed}, nil
}

// SettlePayment computes the fee for the session at the given time, marks it
// paid, and completes the exit. The amount charged is always the fee at
// settlement time. A session that settles but fails to close is reported as
// settled_exit_pending: it stays open-and-paid, and a later RequestExit
// retries the close.
func (f *Facility) SettlePayment(ctx context.Context, sessionID string, now time.Time) (*SettleResult, error) {
	session, err := f.store.GetSession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("loading session %s: %w", sessionID, err)
	}

	fee, err := f.rates.Fee(session.EntryTime, now)
	if err != nil {
		return nil, fmt.Errorf("computing fee: %w", err)
	}

	settled, err := f.store.SettleSession(ctx, sessionID, fee, now.UTC())
	if err != nil {
		if errors.Is(err, store.ErrAlreadyPaid) {
			// Settlement is idempotent at this level: report the prior
			// payment without touching the gate again.
			return &SettleResult{Status: StatusAlreadyPaid, Session: session}, nil
		}
		return nil, fmt.Errorf("settling session %s: %w", sessionID, err)
	}

	f.recordAndPublish(ctx, events.TopicSessionSettled, settled.ID, events.SessionSettled{Session: settled, AmountCents: fee})

	closed, err := f.completeExit(ctx, settled.ID, now)
	if err != nil {
		slog.Warn("settled session failed to close", "session_id", settled.ID, "error", err)
		f.recordAndPublish(ctx, events.TopicSettlementPending, settled.ID, events.SettlementPending{Session: settled, Reason: err.Error()})
		return &SettleResult{Status: StatusSettledExitPending, Session: settled, AmountCents: fee}, nil
	}
	return &SettleResult{Status: StatusCompleted, Session: closed, AmountCents: fee}, nil
}

// completeExit closes the session and opens the exit gate. The gate opens
// only after the close commits; a failed close leaves the gate shut.
func (f *Facility) completeExit(ctx context.Context, sessionID string, now time.Time) (*model.Session, error) {
	closed, err := f.store.CloseSession(ctx, sessionID, now.UTC())
	if err != nil {
		return nil, fmt.Errorf("closing session %s: %w", sessionID, err)
	}

	f.recordAndPublish(ctx, events.TopicSessionClosed, closed.ID, events.SessionClosed{Session: closed})
	f.gates[model.GateExit].Open()
	return closed, nil
}

// QuoteFee returns the fee the session would owe at the given time, without
// mutating anything.
func (f *Facility) QuoteFee(ctx context.Context, sessionID string, now time.Time) (int64, *model.Session, error) {
	session, err := f.store.GetSession(ctx, sessionID)
	if err != nil {
		return 0, nil, fmt.Errorf("loading session %s: %w", sessionID, err)
	}
	fee, err := f.rates.Fee(session.EntryTime, now)
	if err != nil {
		return 0, nil, fmt.Errorf("computing fee: %w", err)
	}
	return fee, session, nil
}

// ToggleBlock flips blocklist membership for the plate and returns the new
// state. Existing open sessions are unaffected; the block applies to future
// entry attempts.
func (f *Facility) ToggleBlock(ctx context.Context, plate, actor string) (bool, error) {
	plate = model.NormalizePlate(plate)
	if plate == "" {
		return false, ErrEmptyPlate
	}
	blocked, err := f.store.ToggleBlock(ctx, plate)
	if err != nil {
		return false, fmt.Errorf("toggling blocklist for %s: %w", plate, err)
	}
	f.recordAndPublish(ctx, events.TopicBlocklistToggled, "", events.BlocklistToggled{Plate: plate, Blocked: blocked, Actor: actor})
	return blocked, nil
}

// ListBlocked returns the blocklisted plates in sorted order.
func (f *Facility) ListBlocked(ctx context.Context) ([]string, error) {
	return f.store.ListBlocked(ctx)
}

// ManualOpen opens a gate from the operator panel. When a plate is given,
// the open is refused for a blocked plate at the entry gate and for an
// unpaid open session at the exit gate; with no plate the open is
// unconditional.
func (f *Facility) ManualOpen(ctx context.Context, id model.GateID, plate string) (string, error) {
	c, ok := f.gates[id]
	if !ok {
		return "", fmt.Errorf("unknown gate %q", id)
	}

	if plate = model.NormalizePlate(plate); plate != "" {
		switch id {
		case model.GateEntry:
			blocked, err := f.store.IsBlocked(ctx, plate)
			if err != nil {
				return "", fmt.Errorf("checking blocklist: %w", err)
			}
			if blocked {
				return ReasonBlocked, nil
			}
		case model.GateExit:
			session, err := f.store.FindOpenSession(ctx, plate)
			if err != nil && !errors.Is(err, store.ErrNotFound) {
				return "", fmt.Errorf("finding open session: %w", err)
			}
			if session != nil && !session.Paid {
				return StatusPaymentRequired, nil
			}
		}
	}

	c.Open()
	return "", nil
}

// ManualClose closes a gate. Closing a closed gate is a no-op.
func (f *Facility) ManualClose(id model.GateID) error {
	c, ok := f.gates[id]
	if !ok {
		return fmt.Errorf("unknown gate %q", id)
	}
	c.Close()
	return nil
}

// SetGateHold suspends or restores the auto-close timer on an open gate.
func (f *Facility) SetGateHold(id model.GateID, hold bool) error {
	c, ok := f.gates[id]
	if !ok {
		return fmt.Errorf("unknown gate %q", id)
	}
	c.SetHold(hold)
	return nil
}

// GateStatus returns the state of one gate.
func (f *Facility) GateStatus(id model.GateID) (model.GateStatus, error) {
	c, ok := f.gates[id]
	if !ok {
		return model.GateStatus{}, fmt.Errorf("unknown gate %q", id)
	}
	return c.Status(), nil
}

// GateStatuses returns the state of both gates, entry first.
func (f *Facility) GateStatuses() []model.GateStatus {
	return []model.GateStatus{
		f.gates[model.GateEntry].Status(),
		f.gates[model.GateExit].Status(),
	}
}

// Stats returns the dashboard counters. Revenue covers payments made since
// the start of the day containing now, in UTC.
func (f *Facility) Stats(ctx context.Context, now time.Time) (*model.Stats, error) {
	dayStart := now.UTC().Truncate(24 * time.Hour)
	st, err := f.store.Stats(ctx, dayStart)
	if err != nil {
		return nil, fmt.Errorf("loading stats: %w", err)
	}
	st.Capacity = f.capacity
	st.AvailableSpaces = f.capacity - st.Parked
	if st.AvailableSpaces < 0 {
		st.AvailableSpaces = 0
	}
	return st, nil
}

// Sessions lists sessions matching the filter.
func (f *Facility) Sessions(ctx context.Context, filter model.SessionFilter) ([]*model.Session, int, error) {
	return f.store.ListSessions(ctx, filter)
}

// Session returns one session by ID.
func (f *Facility) Session(ctx context.Context, id string) (*model.Session, error) {
	return f.store.GetSession(ctx, id)
}

// SessionEvents returns the recorded events for a session, oldest first.
func (f *Facility) SessionEvents(ctx context.Context, sessionID string) ([]*model.Event, error) {
	return f.store.GetEvents(ctx, sessionID)
}

// publishGateChange is the gate controllers' transition callback.
func (f *Facility) publishGateChange(id model.GateID, state model.GateState) {
	topic := events.TopicGateClosed
	if state == model.GateOpen {
		topic = events.TopicGateOpened
	}
	f.recordAndPublish(context.Background(), topic, "", events.GateChanged{Gate: id, State: state})
}

// recordAndPublish persists an event to the store, publishes it to NATS, and
// hands it to the SSE broadcast hook. All three are best-effort; failures
// are logged and do not block the lifecycle operation.
func (f *Facility) recordAndPublish(ctx context.Context, topic, sessionID string, event any) {
	payload, err := json.Marshal(event)
	if err != nil {
		slog.Warn("failed to marshal event", "topic", topic, "session_id", sessionID, "error", err)
		return
	}
	if err := f.store.RecordEvent(ctx, &model.Event{
		Topic:     topic,
		SessionID: sessionID,
		Payload:   payload,
	}); err != nil {
		slog.Warn("failed to record event", "topic", topic, "session_id", sessionID, "error", err)
	}
	if err := f.publisher.Publish(ctx, topic, event); err != nil {
		slog.Warn("failed to publish event", "topic", topic, "session_id", sessionID, "error", err)
	}
	if f.broadcast != nil {
		f.broadcast(topic, event)
	}
}
