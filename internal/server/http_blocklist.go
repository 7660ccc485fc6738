package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/kerbside/parkd/internal/facility"
	"github.com/kerbside/parkd/internal/model"
)

// handleToggleBlock handles POST /v1/blocklist/toggle.
func (s *ParkingServer) handleToggleBlock(w http.ResponseWriter, r *http.Request) {
	var in plateRequest
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	blocked, err := s.facility.ToggleBlock(r.Context(), in.Plate, in.Actor)
	if err != nil {
		if errors.Is(err, facility.ErrEmptyPlate) {
			writeError(w, http.StatusBadRequest, "plate is required")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to toggle blocklist")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"plate":   model.NormalizePlate(in.Plate),
		"blocked": blocked,
	})
}

// handleListBlocked handles GET /v1/blocklist.
func (s *ParkingServer) handleListBlocked(w http.ResponseWriter, r *http.Request) {
	plates, err := s.facility.ListBlocked(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list blocklist")
		return
	}
	if plates == nil {
		plates = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"plates": plates})
}
