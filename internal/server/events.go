package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"hookrelay/internal/bridge"
	"hookrelay/internal/logging"
)

type fireEventRequest struct {
	Name    string         `json:"name"`
	Payload map[string]any `json:"payload"`
}

type fireEventResponse struct {
	OccurrenceID string `json:"occurrence_id"`
}

// handleFireEvent is the platform-facing intake: it accepts one event
// firing and enqueues the dispatch job. Delivery never happens here.
func (s *Server) handleFireEvent(w http.ResponseWriter, r *http.Request) {
	var req fireEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	occ, err := s.bridge.Handle(r.Context(), req.Name, req.Payload)
	if err != nil {
		switch {
		case errors.Is(err, bridge.ErrInvalidName):
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, bridge.ErrNotObserved), errors.Is(err, bridge.ErrDisabled):
			writeError(w, http.StatusUnprocessableEntity, err.Error())
		default:
			logging.FromContext(r.Context()).Error("failed to enqueue event",
				slog.String("code", "BROKER_ERROR"), slog.Any("error", err))
			writeError(w, http.StatusInternalServerError, "failed to enqueue event")
		}
		return
	}

	writeJSON(w, http.StatusAccepted, fireEventResponse{OccurrenceID: occ.ID})
}
