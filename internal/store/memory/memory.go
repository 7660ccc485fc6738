// Package memory implements store.Store with in-process maps guarded by a
// single mutex. It is the default backend when PARKD_DATABASE_URL is unset
// and the authoritative store in tests. Because every operation runs under
// the same lock, the duplicate-open check in CreateSession is linearizable
// with respect to all other session mutations.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/kerbside/parkd/internal/model"
	"github.com/kerbside/parkd/internal/store"
)

// MemoryStore implements store.Store backed by in-process maps.
type MemoryStore struct {
	mu          sync.Mutex
	sessions    map[string]*model.Session
	order       []string          // session IDs in creation order
	openByPlate map[string]string // normalized plate → open session ID
	blocked     map[string]struct{}
	events      []*model.Event
	nextEventID int64
}

// Compile-time check that MemoryStore implements store.Store.
var _ store.Store = (*MemoryStore)(nil)

// New returns an empty MemoryStore.
func New() *MemoryStore {
	return &MemoryStore{
		sessions:    make(map[string]*model.Session),
		openByPlate: make(map[string]string),
		blocked:     make(map[string]struct{}),
		nextEventID: 1,
	}
}

// clone returns a copy of the session so callers cannot mutate stored state.
func clone(s *model.Session) *model.Session {
	c := *s
	if s.ExitTime != nil {
		t := *s.ExitTime
		c.ExitTime = &t
	}
	if s.PaidAt != nil {
		t := *s.PaidAt
		c.PaidAt = &t
	}
	if s.AmountCents != nil {
		a := *s.AmountCents
		c.AmountCents = &a
	}
	return &c
}

func (m *MemoryStore) CreateSession(_ context.Context, session *model.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	plate := model.NormalizePlate(session.Plate)
	if _, exists := m.openByPlate[plate]; exists {
		return store.ErrDuplicateOpenSession
	}

	s := clone(session)
	s.Plate = plate
	m.sessions[s.ID] = s
	m.order = append(m.order, s.ID)
	m.openByPlate[plate] = s.ID
	return nil
}

func (m *MemoryStore) GetSession(_ context.Context, id string) (*model.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return clone(s), nil
}

func (m *MemoryStore) FindOpenSession(_ context.Context, plate string) (*model.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id, ok := m.openByPlate[model.NormalizePlate(plate)]
	if !ok {
		return nil, store.ErrNotFound
	}
	return clone(m.sessions[id]), nil
}

func (m *MemoryStore) ListSessions(_ context.Context, filter model.SessionFilter) ([]*model.Session, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	plate := model.NormalizePlate(filter.Plate)
	search := strings.ToUpper(strings.TrimSpace(filter.Search))

	var matched []*model.Session
	for _, id := range m.order {
		s := m.sessions[id]
		if filter.Open != nil && s.Open() != *filter.Open {
			continue
		}
		if filter.Unpaid && (s.Paid || !s.Open()) {
			continue
		}
		if plate != "" && s.Plate != plate {
			continue
		}
		if search != "" &&
			!strings.Contains(s.Plate, search) &&
			!strings.Contains(strings.ToUpper(s.ID), search) {
			continue
		}
		matched = append(matched, s)
	}

	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].EntryTime.Before(matched[j].EntryTime)
	})

	total := len(matched)
	if filter.Offset > 0 {
		if filter.Offset >= total {
			matched = nil
		} else {
			matched = matched[filter.Offset:]
		}
	}
	if filter.Limit > 0 && len(matched) > filter.Limit {
		matched = matched[:filter.Limit]
	}

	out := make([]*model.Session, 0, len(matched))
	for _, s := range matched {
		out = append(out, clone(s))
	}
	return out, total, nil
}

func (m *MemoryStore) CountOpen(_ context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.openByPlate), nil
}

func (m *MemoryStore) Stats(_ context.Context, since time.Time) (*model.Stats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	st := &model.Stats{Parked: len(m.openByPlate)}
	for _, s := range m.sessions {
		if s.Open() && !s.Paid {
			st.UnpaidSessions++
		}
		if s.Paid && s.AmountCents != nil && s.PaidAt != nil && !s.PaidAt.Before(since) {
			st.TodayRevenueCents += *s.AmountCents
		}
	}
	return st, nil
}

func (m *MemoryStore) SettleSession(_ context.Context, id string, amountCents int64, paidAt time.Time) (*model.Session, error) {
	if amountCents < 0 {
		return nil, store.ErrInvalidAmount
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	if s.Paid {
		return nil, store.ErrAlreadyPaid
	}

	s.Paid = true
	s.AmountCents = &amountCents
	t := paidAt
	s.PaidAt = &t
	return clone(s), nil
}

func (m *MemoryStore) CloseSession(_ context.Context, id string, exitTime time.Time) (*model.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	if s.ExitTime != nil {
		return nil, store.ErrAlreadyClosed
	}
	if exitTime.Before(s.EntryTime) {
		return nil, store.ErrExitBeforeEntry
	}

	t := exitTime
	s.ExitTime = &t
	delete(m.openByPlate, s.Plate)
	return clone(s), nil
}

func (m *MemoryStore) IsBlocked(_ context.Context, plate string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.blocked[model.NormalizePlate(plate)]
	return ok, nil
}

func (m *MemoryStore) ToggleBlock(_ context.Context, plate string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p := model.NormalizePlate(plate)
	if _, ok := m.blocked[p]; ok {
		delete(m.blocked, p)
		return false, nil
	}
	m.blocked[p] = struct{}{}
	return true, nil
}

func (m *MemoryStore) ListBlocked(_ context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	plates := make([]string, 0, len(m.blocked))
	for p := range m.blocked {
		plates = append(plates, p)
	}
	sort.Strings(plates)
	return plates, nil
}

func (m *MemoryStore) RecordEvent(_ context.Context, event *model.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	e := *event
	e.ID = m.nextEventID
	m.nextEventID++
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	m.events = append(m.events, &e)
	return nil
}

func (m *MemoryStore) GetEvents(_ context.Context, sessionID string) ([]*model.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []*model.Event
	for _, e := range m.events {
		if e.SessionID == sessionID {
			c := *e
			out = append(out, &c)
		}
	}
	return out, nil
}

// RunInTransaction calls fn with the store itself. Each operation is already
// serialized by the store mutex; cross-operation atomicity is provided by the
// facility's admission lock, not here.
func (m *MemoryStore) RunInTransaction(_ context.Context, fn func(tx store.Store) error) error {
	return fn(m)
}

func (m *MemoryStore) Close() error {
	return nil
}
