package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/kerbside/parkd/internal/facility"
	"github.com/kerbside/parkd/internal/model"
	"github.com/kerbside/parkd/internal/store"
)

// plateRequest is the body shared by the entry, exit, and blocklist routes.
type plateRequest struct {
	Plate string `json:"plate"`
	Actor string `json:"actor,omitempty"`
}

// handleEntry handles POST /v1/entry.
func (s *ParkingServer) handleEntry(w http.ResponseWriter, r *http.Request) {
	var in plateRequest
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	now, ok := requestTime(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid at timestamp")
		return
	}

	res, err := s.facility.RequestEntry(r.Context(), in.Plate, now)
	if err != nil {
		if errors.Is(err, facility.ErrEmptyPlate) {
			writeError(w, http.StatusBadRequest, "plate is required")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to process entry")
		return
	}

	status := http.StatusOK
	if res.Admitted {
		status = http.StatusCreated
	}
	writeJSON(w, status, res)
}

// handleExit handles POST /v1/exit.
func (s *ParkingServer) handleExit(w http.ResponseWriter, r *http.Request) {
	var in plateRequest
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	now, ok := requestTime(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid at timestamp")
		return
	}

	res, err := s.facility.RequestExit(r.Context(), in.Plate, now)
	if err != nil {
		if errors.Is(err, facility.ErrEmptyPlate) {
			writeError(w, http.StatusBadRequest, "plate is required")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to process exit")
		return
	}

	writeJSON(w, http.StatusOK, res)
}

// handlePayment handles POST /v1/payment.
func (s *ParkingServer) handlePayment(w http.ResponseWriter, r *http.Request) {
	var in struct {
		SessionID string `json:"session_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if in.SessionID == "" {
		writeError(w, http.StatusBadRequest, "session_id is required")
		return
	}

	now, ok := requestTime(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid at timestamp")
		return
	}

	res, err := s.facility.SettlePayment(r.Context(), in.SessionID, now)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "session not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to settle payment")
		return
	}

	writeJSON(w, http.StatusOK, res)
}

// handleFee handles GET /v1/fee. The quote is taken either for an existing
// session (session_id) or for a raw entry_time; "at" defaults to now.
func (s *ParkingServer) handleFee(w http.ResponseWriter, r *http.Request) {
	now, ok := requestTime(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid at timestamp")
		return
	}

	if id := r.URL.Query().Get("session_id"); id != "" {
		fee, session, err := s.facility.QuoteFee(r.Context(), id, now)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				writeError(w, http.StatusNotFound, "session not found")
				return
			}
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"amount_cents": fee,
			"session":      session,
		})
		return
	}

	entryStr := r.URL.Query().Get("entry_time")
	if entryStr == "" {
		writeError(w, http.StatusBadRequest, "session_id or entry_time is required")
		return
	}
	entry, err := time.Parse(time.RFC3339, entryStr)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid entry_time")
		return
	}

	fee, err := s.facility.Rates().Fee(entry, now)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"amount_cents": fee})
}

// handleListSessions handles GET /v1/sessions.
func (s *ParkingServer) handleListSessions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := model.SessionFilter{
		Plate:  q.Get("plate"),
		Search: q.Get("search"),
	}

	if v := q.Get("open"); v != "" {
		open, err := strconv.ParseBool(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid open filter")
			return
		}
		filter.Open = &open
	}
	if v := q.Get("unpaid"); v != "" {
		unpaid, err := strconv.ParseBool(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid unpaid filter")
			return
		}
		filter.Unpaid = unpaid
	}
	if v := q.Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			filter.Limit = n
		}
	}
	if v := q.Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			filter.Offset = n
		}
	}

	sessions, total, err := s.facility.Sessions(r.Context(), filter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list sessions")
		return
	}

	// Ensure sessions is never null in JSON output.
	if sessions == nil {
		sessions = []*model.Session{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"sessions": sessions,
		"total":    total,
	})
}

// handleGetSession handles GET /v1/sessions/{id}.
func (s *ParkingServer) handleGetSession(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "id is required")
		return
	}

	session, err := s.facility.Session(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get session")
		return
	}

	writeJSON(w, http.StatusOK, session)
}

// handleGetSessionEvents handles GET /v1/sessions/{id}/events.
func (s *ParkingServer) handleGetSessionEvents(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "id is required")
		return
	}

	events, err := s.facility.SessionEvents(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get events")
		return
	}
	if events == nil {
		events = []*model.Event{}
	}

	writeJSON(w, http.StatusOK, map[string]any{"events": events})
}

// handleGetStats handles GET /v1/stats.
func (s *ParkingServer) handleGetStats(w http.ResponseWriter, r *http.Request) {
	now, ok := requestTime(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid at timestamp")
		return
	}

	stats, err := s.facility.Stats(r.Context(), now)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load stats")
		return
	}
	writeJSON(w, http.StatusOK, stats)
}
