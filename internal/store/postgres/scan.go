package postgres

import (
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/kerbside/parkd/internal/model"
	"github.com/kerbside/parkd/internal/store"
)

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanSession scans a row in sessionColumns order. sql.ErrNoRows is mapped
// to store.ErrNotFound so callers never see driver errors.
func scanSession(row rowScanner) (*model.Session, error) {
	var (
		s      model.Session
		exit   sql.NullTime
		amount sql.NullInt64
		paidAt sql.NullTime
	)
	err := row.Scan(
		&s.ID, &s.Plate, &s.EntryTime, &exit, &s.Paid,
		&amount, &paidAt, &s.BlockedAtEntry,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if exit.Valid {
		t := exit.Time
		s.ExitTime = &t
	}
	if amount.Valid {
		a := amount.Int64
		s.AmountCents = &a
	}
	if paidAt.Valid {
		t := paidAt.Time
		s.PaidAt = &t
	}
	return &s, nil
}

// scanSessionWithTotal scans a leading total_count column followed by the
// standard session columns.
func scanSessionWithTotal(row rowScanner) (*model.Session, int, error) {
	var (
		total  int
		s      model.Session
		exit   sql.NullTime
		amount sql.NullInt64
		paidAt sql.NullTime
	)
	err := row.Scan(
		&total,
		&s.ID, &s.Plate, &s.EntryTime, &exit, &s.Paid,
		&amount, &paidAt, &s.BlockedAtEntry,
	)
	if err != nil {
		return nil, 0, err
	}
	if exit.Valid {
		t := exit.Time
		s.ExitTime = &t
	}
	if amount.Valid {
		a := amount.Int64
		s.AmountCents = &a
	}
	if paidAt.Valid {
		t := paidAt.Time
		s.PaidAt = &t
	}
	return &s, total, nil
}

func scanEvent(row rowScanner) (*model.Event, error) {
	var (
		e       model.Event
		payload []byte
	)
	if err := row.Scan(&e.ID, &e.Topic, &e.SessionID, &e.Actor, &payload, &e.CreatedAt); err != nil {
		return nil, err
	}
	if len(payload) > 0 {
		e.Payload = json.RawMessage(payload)
	}
	return &e, nil
}

func nullTimePtr(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func nullInt64Ptr(n *int64) sql.NullInt64 {
	if n == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *n, Valid: true}
}

// jsonbBytes converts a raw JSON payload to a driver value, mapping empty
// payloads to NULL.
func jsonbBytes(raw json.RawMessage) any {
	if len(raw) == 0 {
		return nil
	}
	return []byte(raw)
}
