package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/kerbside/parkd/internal/model"
	"github.com/kerbside/parkd/internal/store/memory"
)

func nonEmptyLines(s string) []string {
	var lines []string
	for _, l := range strings.Split(s, "\n") {
		if strings.TrimSpace(l) != "" {
			lines = append(lines, l)
		}
	}
	return lines
}

func TestExportJSONL_Empty(t *testing.T) {
	ms := memory.New()
	var buf bytes.Buffer
	if err := ExportJSONL(context.Background(), ms, &buf); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	lines := nonEmptyLines(buf.String())
	if len(lines) != 1 {
		t.Fatalf("expected 1 line (header only), got %d", len(lines))
	}

	var h header
	if err := json.Unmarshal([]byte(lines[0]), &h); err != nil {
		t.Fatalf("unmarshal header: %v", err)
	}
	if h.Version != "1" || h.Type != "header" || h.SessionCount != 0 || h.BlockedCount != 0 {
		t.Fatalf("unexpected header: %+v", h)
	}
}

func TestExportJSONL_SessionsAndBlocklist(t *testing.T) {
	ms := memory.New()
	ctx := context.Background()

	entry1 := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)
	entry2 := entry1.Add(time.Hour)

	// Insert out of entry order to verify ordering in the export.
	if err := ms.CreateSession(ctx, &model.Session{ID: "pk-bbb", Plate: "BBB222", EntryTime: entry2}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := ms.CreateSession(ctx, &model.Session{ID: "pk-aaa", Plate: "AAA111", EntryTime: entry1}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := ms.SettleSession(ctx, "pk-aaa", 500, entry1.Add(2*time.Hour)); err != nil {
		t.Fatalf("settle: %v", err)
	}
	if _, err := ms.CloseSession(ctx, "pk-aaa", entry1.Add(2*time.Hour)); err != nil {
		t.Fatalf("close: %v", err)
	}
	if _, err := ms.ToggleBlock(ctx, "ZZZ999"); err != nil {
		t.Fatalf("toggle: %v", err)
	}

	var buf bytes.Buffer
	if err := ExportJSONL(ctx, ms, &buf); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	lines := nonEmptyLines(buf.String())
	// 1 header + 2 sessions + 1 blocked plate = 4 lines
	if len(lines) != 4 {
		t.Fatalf("expected 4 lines, got %d:\n%s", len(lines), buf.String())
	}

	var h header
	if err := json.Unmarshal([]byte(lines[0]), &h); err != nil {
		t.Fatalf("unmarshal header: %v", err)
	}
	if h.SessionCount != 2 || h.BlockedCount != 1 {
		t.Fatalf("header counts: sessions=%d blocked=%d", h.SessionCount, h.BlockedCount)
	}

	// Sessions in entry-time order: pk-aaa first.
	var rec1 struct {
		Type string        `json:"type"`
		Data model.Session `json:"data"`
	}
	if err := json.Unmarshal([]byte(lines[1]), &rec1); err != nil {
		t.Fatalf("unmarshal line 1: %v", err)
	}
	if rec1.Type != "session" || rec1.Data.ID != "pk-aaa" {
		t.Fatalf("first record = %+v", rec1)
	}
	if !rec1.Data.Paid || rec1.Data.ExitTime == nil {
		t.Errorf("closed session exported as %+v", rec1.Data)
	}

	var rec3 record
	if err := json.Unmarshal([]byte(lines[3]), &rec3); err != nil {
		t.Fatalf("unmarshal line 3: %v", err)
	}
	if rec3.Type != "blocked_plate" || rec3.Data != "ZZZ999" {
		t.Fatalf("blocklist record = %+v", rec3)
	}
}
