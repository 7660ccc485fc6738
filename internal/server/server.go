// Package server exposes the facility lifecycle over HTTP/JSON and an SSE
// event stream.
package server

import (
	"encoding/json"
	"log/slog"

	"github.com/kerbside/parkd/internal/facility"
)

// ParkingServer holds the HTTP surface over a Facility.
type ParkingServer struct {
	facility *facility.Facility
	sseHub   *sseHub
}

// NewParkingServer returns a ParkingServer and registers itself as the
// facility's event broadcast sink.
func NewParkingServer(f *facility.Facility) *ParkingServer {
	s := &ParkingServer{
		facility: f,
		sseHub:   newSSEHub(),
	}
	f.OnBroadcast(s.broadcastEvent)
	return s
}

// broadcastEvent fans a published lifecycle event out to SSE clients.
func (s *ParkingServer) broadcastEvent(topic string, event any) {
	if s.sseHub == nil {
		return
	}
	payload, err := json.Marshal(event)
	if err != nil {
		slog.Warn("failed to marshal event for SSE broadcast", "topic", topic, "error", err)
		return
	}
	s.sseHub.broadcast(topic, payload)
}
