package server

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/kerbside/parkd/internal/model"
)

// handleListGates handles GET /v1/gates.
func (s *ParkingServer) handleListGates(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"gates": s.facility.GateStatuses()})
}

// handleGetGate handles GET /v1/gates/{id}.
func (s *ParkingServer) handleGetGate(w http.ResponseWriter, r *http.Request) {
	id, ok := gateID(w, r)
	if !ok {
		return
	}
	status, err := s.facility.GateStatus(id)
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, status)
}

// handleOpenGate handles POST /v1/gates/{id}/open. An optional plate in the
// body enables the context checks: a blocked plate refuses the entry gate
// and an unpaid open session refuses the exit gate.
func (s *ParkingServer) handleOpenGate(w http.ResponseWriter, r *http.Request) {
	id, ok := gateID(w, r)
	if !ok {
		return
	}

	var in plateRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
	}

	refusal, err := s.facility.ManualOpen(r.Context(), id, in.Plate)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to open gate")
		return
	}
	if refusal != "" {
		writeJSON(w, http.StatusOK, map[string]any{
			"opened": false,
			"reason": refusal,
		})
		return
	}

	status, _ := s.facility.GateStatus(id)
	writeJSON(w, http.StatusOK, map[string]any{
		"opened": true,
		"gate":   status,
	})
}

// handleCloseGate handles POST /v1/gates/{id}/close.
func (s *ParkingServer) handleCloseGate(w http.ResponseWriter, r *http.Request) {
	id, ok := gateID(w, r)
	if !ok {
		return
	}
	if err := s.facility.ManualClose(id); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to close gate")
		return
	}
	status, _ := s.facility.GateStatus(id)
	writeJSON(w, http.StatusOK, map[string]any{"gate": status})
}

// handleHoldGate handles POST /v1/gates/{id}/hold.
func (s *ParkingServer) handleHoldGate(w http.ResponseWriter, r *http.Request) {
	id, ok := gateID(w, r)
	if !ok {
		return
	}

	var in struct {
		Hold bool `json:"hold"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	if err := s.facility.SetGateHold(id, in.Hold); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to set hold")
		return
	}
	status, _ := s.facility.GateStatus(id)
	writeJSON(w, http.StatusOK, map[string]any{"gate": status})
}

// gateID extracts and validates the {id} path segment.
func gateID(w http.ResponseWriter, r *http.Request) (model.GateID, bool) {
	id := model.GateID(strings.ToLower(r.PathValue("id")))
	if !id.IsValid() {
		writeError(w, http.StatusNotFound, "unknown gate")
		return "", false
	}
	return id, true
}
