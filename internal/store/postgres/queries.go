package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"time"

	"github.com/lib/pq"

	"github.com/kerbside/parkd/internal/model"
	"github.com/kerbside/parkd/internal/store"
)

// sessionColumns is the column list used for SELECT statements on the
// sessions table.
const sessionColumns = `id, plate, entry_time, exit_time, paid,
	amount_cents, paid_at, blocked_at_entry`

// uniqueViolation is the PostgreSQL error code raised when the partial
// unique index on open plates rejects a second open session.
const uniqueViolation = "23505"

// executor is the interface satisfied by both *sql.DB and *sql.Tx.
type executor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func queryCreateSession(ctx context.Context, db executor, s *model.Session) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO sessions (
			id, plate, entry_time, exit_time, paid,
			amount_cents, paid_at, blocked_at_entry
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		s.ID,
		model.NormalizePlate(s.Plate),
		s.EntryTime,
		nullTimePtr(s.ExitTime),
		s.Paid,
		nullInt64Ptr(s.AmountCents),
		nullTimePtr(s.PaidAt),
		s.BlockedAtEntry,
	)
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return store.ErrDuplicateOpenSession
	}
	return err
}

func queryGetSession(ctx context.Context, db executor, id string) (*model.Session, error) {
	row := db.QueryRowContext(ctx, `SELECT `+sessionColumns+` FROM sessions WHERE id = $1`, id)
	return scanSession(row)
}

func queryFindOpenSession(ctx context.Context, db executor, plate string) (*model.Session, error) {
	row := db.QueryRowContext(ctx,
		`SELECT `+sessionColumns+` FROM sessions WHERE plate = $1 AND exit_time IS NULL`,
		model.NormalizePlate(plate))
	return scanSession(row)
}

func queryListSessions(ctx context.Context, db executor, filter model.SessionFilter) ([]*model.Session, int, error) {
	where := []string{}
	args := []any{}
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter.Open != nil {
		if *filter.Open {
			where = append(where, "exit_time IS NULL")
		} else {
			where = append(where, "exit_time IS NOT NULL")
		}
	}
	if filter.Unpaid {
		where = append(where, "exit_time IS NULL", "NOT paid")
	}
	if p := model.NormalizePlate(filter.Plate); p != "" {
		where = append(where, "plate = "+arg(p))
	}
	if filter.Search != "" {
		p := arg("%" + filter.Search + "%")
		where = append(where, "(plate ILIKE "+p+" OR id ILIKE "+p+")")
	}

	query := `SELECT COUNT(*) OVER() AS total_count, ` + sessionColumns + ` FROM sessions`
	if len(where) > 0 {
		query += " WHERE " + joinAnd(where)
	}
	query += " ORDER BY entry_time ASC"
	if filter.Limit > 0 {
		query += " LIMIT " + arg(filter.Limit)
	}
	if filter.Offset > 0 {
		query += " OFFSET " + arg(filter.Offset)
	}

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var sessions []*model.Session
	total := 0
	for rows.Next() {
		s, n, err := scanSessionWithTotal(rows)
		if err != nil {
			return nil, 0, err
		}
		total = n
		sessions = append(sessions, s)
	}
	return sessions, total, rows.Err()
}

func queryCountOpen(ctx context.Context, db executor) (int, error) {
	var n int
	err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM sessions WHERE exit_time IS NULL`).Scan(&n)
	return n, err
}

func queryStats(ctx context.Context, db executor, since time.Time) (*model.Stats, error) {
	st := &model.Stats{}
	err := db.QueryRowContext(ctx, `
		SELECT
			COUNT(*) FILTER (WHERE exit_time IS NULL) AS parked,
			COUNT(*) FILTER (WHERE exit_time IS NULL AND NOT paid) AS unpaid,
			COALESCE(SUM(amount_cents) FILTER (WHERE paid AND paid_at >= $1), 0) AS revenue
		FROM sessions`,
		since).Scan(&st.Parked, &st.UnpaidSessions, &st.TodayRevenueCents)
	if err != nil {
		return nil, err
	}
	return st, nil
}

func querySettleSession(ctx context.Context, db executor, id string, amountCents int64, paidAt time.Time) (*model.Session, error) {
	if amountCents < 0 {
		return nil, store.ErrInvalidAmount
	}

	row := db.QueryRowContext(ctx, `
		UPDATE sessions
		SET paid = TRUE, amount_cents = $2, paid_at = $3
		WHERE id = $1 AND NOT paid
		RETURNING `+sessionColumns,
		id, amountCents, paidAt)

	s, err := scanSession(row)
	if errors.Is(err, store.ErrNotFound) {
		// No row updated: either the session is missing or already paid.
		var paid bool
		probe := db.QueryRowContext(ctx, `SELECT paid FROM sessions WHERE id = $1`, id)
		if err := probe.Scan(&paid); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, store.ErrNotFound
			}
			return nil, err
		}
		return nil, store.ErrAlreadyPaid
	}
	return s, err
}

func queryCloseSession(ctx context.Context, db executor, id string, exitTime time.Time) (*model.Session, error) {
	row := db.QueryRowContext(ctx, `
		UPDATE sessions
		SET exit_time = $2
		WHERE id = $1 AND exit_time IS NULL AND entry_time <= $2
		RETURNING `+sessionColumns,
		id, exitTime)

	s, err := scanSession(row)
	if errors.Is(err, store.ErrNotFound) {
		var entry time.Time
		var exit sql.NullTime
		probe := db.QueryRowContext(ctx, `SELECT entry_time, exit_time FROM sessions WHERE id = $1`, id)
		if err := probe.Scan(&entry, &exit); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, store.ErrNotFound
			}
			return nil, err
		}
		if exit.Valid {
			return nil, store.ErrAlreadyClosed
		}
		return nil, store.ErrExitBeforeEntry
	}
	return s, err
}

func queryIsBlocked(ctx context.Context, db executor, plate string) (bool, error) {
	var blocked bool
	err := db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM blocklist WHERE plate = $1)`,
		model.NormalizePlate(plate)).Scan(&blocked)
	return blocked, err
}

// queryToggleBlock inserts the plate, or deletes it when the insert conflicts.
// The insert-first order makes the toggle atomic without an explicit lock.
func queryToggleBlock(ctx context.Context, db executor, plate string) (bool, error) {
	p := model.NormalizePlate(plate)
	res, err := db.ExecContext(ctx,
		`INSERT INTO blocklist (plate) VALUES ($1) ON CONFLICT (plate) DO NOTHING`, p)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if n > 0 {
		return true, nil
	}
	if _, err := db.ExecContext(ctx, `DELETE FROM blocklist WHERE plate = $1`, p); err != nil {
		return false, err
	}
	return false, nil
}

func queryListBlocked(ctx context.Context, db executor) ([]string, error) {
	rows, err := db.QueryContext(ctx, `SELECT plate FROM blocklist ORDER BY plate`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var plates []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, err
		}
		plates = append(plates, p)
	}
	return plates, rows.Err()
}

func queryRecordEvent(ctx context.Context, db executor, e *model.Event) error {
	createdAt := e.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	return db.QueryRowContext(ctx, `
		INSERT INTO events (topic, session_id, actor, payload, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`,
		e.Topic, e.SessionID, e.Actor, jsonbBytes(e.Payload), createdAt,
	).Scan(&e.ID)
}

func queryGetEvents(ctx context.Context, db executor, sessionID string) ([]*model.Event, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, topic, session_id, actor, payload, created_at
		FROM events WHERE session_id = $1 ORDER BY id`,
		sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []*model.Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

func joinAnd(conds []string) string {
	out := conds[0]
	for _, c := range conds[1:] {
		out += " AND " + c
	}
	return out
}
