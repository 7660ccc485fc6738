package server

import (
	"encoding/json"
	"net/http"
	"time"
)

// NewHTTPHandler returns an http.Handler with all routes registered.
// When authToken is non-empty, requests (except GET /v1/health) must include
// a valid Authorization: Bearer <token> header.
func (s *ParkingServer) NewHTTPHandler(authToken string) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/entry", s.handleEntry)
	mux.HandleFunc("POST /v1/exit", s.handleExit)
	mux.HandleFunc("POST /v1/payment", s.handlePayment)
	mux.HandleFunc("GET /v1/fee", s.handleFee)
	mux.HandleFunc("GET /v1/sessions", s.handleListSessions)
	mux.HandleFunc("GET /v1/sessions/{id}", s.handleGetSession)
	mux.HandleFunc("GET /v1/sessions/{id}/events", s.handleGetSessionEvents)
	mux.HandleFunc("POST /v1/blocklist/toggle", s.handleToggleBlock)
	mux.HandleFunc("GET /v1/blocklist", s.handleListBlocked)
	mux.HandleFunc("GET /v1/gates", s.handleListGates)
	mux.HandleFunc("GET /v1/gates/{id}", s.handleGetGate)
	mux.HandleFunc("POST /v1/gates/{id}/open", s.handleOpenGate)
	mux.HandleFunc("POST /v1/gates/{id}/close", s.handleCloseGate)
	mux.HandleFunc("POST /v1/gates/{id}/hold", s.handleHoldGate)
	mux.HandleFunc("GET /v1/stats", s.handleGetStats)
	mux.HandleFunc("GET /v1/events/stream", s.handleEventStream)
	mux.HandleFunc("GET /v1/health", s.handleHealth)
	return AuthMiddleware(authToken, mux)
}

// handleHealth handles GET /v1/health.
func (s *ParkingServer) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// requestTime returns the reference clock for a lifecycle request: the
// optional "at" query parameter (RFC 3339), else the current time.
func requestTime(r *http.Request) (time.Time, bool) {
	if v := r.URL.Query().Get("at"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return time.Time{}, false
		}
		return t.UTC(), true
	}
	return time.Now().UTC(), true
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
