package postgres

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"

	"github.com/kerbside/parkd/internal/model"
	"github.com/kerbside/parkd/internal/store"
)

// newMockDB creates a sqlmock database with automatic cleanup and expectation checking.
func newMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	t.Cleanup(func() {
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("unfulfilled expectations: %v", err)
		}
		db.Close()
	})
	return db, mock
}

// sessionRowColumns is the column list for scanSession results.
var sessionRowColumns = []string{
	"id", "plate", "entry_time", "exit_time", "paid",
	"amount_cents", "paid_at", "blocked_at_entry",
}

// sessionWithTotalColumns is the column list for queryListSessions results.
var sessionWithTotalColumns = append([]string{"total_count"}, sessionRowColumns...)

func TestCreateSession(t *testing.T) {
	db, mock := newMockDB(t)
	now := time.Now().UTC()

	mock.ExpectExec("INSERT INTO sessions").
		WithArgs("pk-1", "AB12CDE", now, nil, false, nil, nil, false).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := queryCreateSession(context.Background(), db, &model.Session{
		ID: "pk-1", Plate: " ab12 cde ", EntryTime: now,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestCreateSession_DuplicateOpen(t *testing.T) {
	db, mock := newMockDB(t)
	now := time.Now().UTC()

	mock.ExpectExec("INSERT INTO sessions").
		WillReturnError(&pq.Error{Code: "23505", Constraint: "sessions_open_plate_idx"})

	err := queryCreateSession(context.Background(), db, &model.Session{
		ID: "pk-2", Plate: "AB12CDE", EntryTime: now,
	})
	if !errors.Is(err, store.ErrDuplicateOpenSession) {
		t.Fatalf("expected ErrDuplicateOpenSession, got %v", err)
	}
}

func TestFindOpenSession_NotFound(t *testing.T) {
	db, mock := newMockDB(t)

	mock.ExpectQuery("SELECT .+ FROM sessions WHERE plate = \\$1 AND exit_time IS NULL").
		WithArgs("AB12CDE").
		WillReturnError(sql.ErrNoRows)

	_, err := queryFindOpenSession(context.Background(), db, "ab12cde")
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSettleSession(t *testing.T) {
	db, mock := newMockDB(t)
	now := time.Now().UTC()

	rows := sqlmock.NewRows(sessionRowColumns).
		AddRow("pk-1", "AB12CDE", now.Add(-time.Hour), nil, true, 500, now, false)
	mock.ExpectQuery("UPDATE sessions").
		WithArgs("pk-1", int64(500), now).
		WillReturnRows(rows)

	s, err := querySettleSession(context.Background(), db, "pk-1", 500, now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !s.Paid || s.AmountCents == nil || *s.AmountCents != 500 {
		t.Fatalf("unexpected session: %+v", s)
	}
}

func TestSettleSession_AlreadyPaid(t *testing.T) {
	db, mock := newMockDB(t)
	now := time.Now().UTC()

	mock.ExpectQuery("UPDATE sessions").
		WithArgs("pk-1", int64(500), now).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery("SELECT paid FROM sessions").
		WithArgs("pk-1").
		WillReturnRows(sqlmock.NewRows([]string{"paid"}).AddRow(true))

	_, err := querySettleSession(context.Background(), db, "pk-1", 500, now)
	if !errors.Is(err, store.ErrAlreadyPaid) {
		t.Fatalf("expected ErrAlreadyPaid, got %v", err)
	}
}

func TestSettleSession_NotFound(t *testing.T) {
	db, mock := newMockDB(t)
	now := time.Now().UTC()

	mock.ExpectQuery("UPDATE sessions").
		WithArgs("missing", int64(500), now).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery("SELECT paid FROM sessions").
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := querySettleSession(context.Background(), db, "missing", 500, now)
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSettleSession_InvalidAmount(t *testing.T) {
	db, _ := newMockDB(t)

	_, err := querySettleSession(context.Background(), db, "pk-1", -1, time.Now().UTC())
	if !errors.Is(err, store.ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
}

func TestCloseSession(t *testing.T) {
	db, mock := newMockDB(t)
	entry := time.Now().UTC().Add(-time.Hour)
	exit := time.Now().UTC()

	rows := sqlmock.NewRows(sessionRowColumns).
		AddRow("pk-1", "AB12CDE", entry, exit, true, 500, exit, false)
	mock.ExpectQuery("UPDATE sessions").
		WithArgs("pk-1", exit).
		WillReturnRows(rows)

	s, err := queryCloseSession(context.Background(), db, "pk-1", exit)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.ExitTime == nil {
		t.Fatal("exit time not set")
	}
}

func TestCloseSession_AlreadyClosed(t *testing.T) {
	db, mock := newMockDB(t)
	entry := time.Now().UTC().Add(-2 * time.Hour)
	exit := time.Now().UTC().Add(-time.Hour)

	mock.ExpectQuery("UPDATE sessions").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery("SELECT entry_time, exit_time FROM sessions").
		WithArgs("pk-1").
		WillReturnRows(sqlmock.NewRows([]string{"entry_time", "exit_time"}).AddRow(entry, exit))

	_, err := queryCloseSession(context.Background(), db, "pk-1", time.Now().UTC())
	if !errors.Is(err, store.ErrAlreadyClosed) {
		t.Fatalf("expected ErrAlreadyClosed, got %v", err)
	}
}

func TestCloseSession_ExitBeforeEntry(t *testing.T) {
	db, mock := newMockDB(t)
	entry := time.Now().UTC()

	mock.ExpectQuery("UPDATE sessions").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery("SELECT entry_time, exit_time FROM sessions").
		WithArgs("pk-1").
		WillReturnRows(sqlmock.NewRows([]string{"entry_time", "exit_time"}).AddRow(entry, nil))

	_, err := queryCloseSession(context.Background(), db, "pk-1", entry.Add(-time.Minute))
	if !errors.Is(err, store.ErrExitBeforeEntry) {
		t.Fatalf("expected ErrExitBeforeEntry, got %v", err)
	}
}

func TestToggleBlock(t *testing.T) {
	db, mock := newMockDB(t)

	// First toggle inserts.
	mock.ExpectExec("INSERT INTO blocklist").
		WithArgs("TU98VWX").
		WillReturnResult(sqlmock.NewResult(0, 1))

	blocked, err := queryToggleBlock(context.Background(), db, "tu98vwx")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !blocked {
		t.Fatal("expected blocked=true after first toggle")
	}

	// Second toggle conflicts and deletes.
	mock.ExpectExec("INSERT INTO blocklist").
		WithArgs("TU98VWX").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("DELETE FROM blocklist").
		WithArgs("TU98VWX").
		WillReturnResult(sqlmock.NewResult(0, 1))

	blocked, err = queryToggleBlock(context.Background(), db, "TU98VWX")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if blocked {
		t.Fatal("expected blocked=false after second toggle")
	}
}

func TestListSessions_OpenFilter(t *testing.T) {
	db, mock := newMockDB(t)
	now := time.Now().UTC()

	rows := sqlmock.NewRows(sessionWithTotalColumns).
		AddRow(2, "pk-1", "AA11AAA", now.Add(-2*time.Hour), nil, false, nil, nil, false).
		AddRow(2, "pk-2", "BB22BBB", now.Add(-time.Hour), nil, false, nil, nil, false)
	mock.ExpectQuery("SELECT COUNT\\(\\*\\) OVER\\(\\) AS total_count, .+ FROM sessions WHERE exit_time IS NULL ORDER BY entry_time ASC").
		WillReturnRows(rows)

	open := true
	sessions, total, err := queryListSessions(context.Background(), db, model.SessionFilter{Open: &open})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if total != 2 || len(sessions) != 2 {
		t.Fatalf("expected 2 sessions, got total=%d len=%d", total, len(sessions))
	}
	if sessions[0].ID != "pk-1" {
		t.Fatalf("unexpected first session: %+v", sessions[0])
	}
}

func TestRecordEvent(t *testing.T) {
	db, mock := newMockDB(t)

	mock.ExpectQuery("INSERT INTO events").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(7))

	e := &model.Event{Topic: "parkd.session.created", SessionID: "pk-1"}
	if err := queryRecordEvent(context.Background(), db, e); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if e.ID != 7 {
		t.Fatalf("expected assigned id 7, got %d", e.ID)
	}
}
