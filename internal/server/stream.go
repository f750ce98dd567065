package server

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"hookrelay/internal/events"
)

// handleStreamDeliveries tails delivery audit events as newline-delimited
// JSON until the client goes away. Filters are optional.
func (s *Server) handleStreamDeliveries(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	var serviceID int64
	if v := r.URL.Query().Get("service_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid service_id filter")
			return
		}
		serviceID = id
	}

	sub := &events.Subscriber{
		ID:        uuid.New().String(),
		ServiceID: serviceID,
		EventName: r.URL.Query().Get("event"),
		Events:    make(chan events.DeliveryEvent, 100),
	}

	s.hub.Subscribe(sub)
	defer s.hub.Unsubscribe(sub.ID)

	w.Header().Set("Content-Type", "application/x-ndjson")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	enc := json.NewEncoder(w)
	for {
		select {
		case <-r.Context().Done():
			return
		case event, ok := <-sub.Events:
			if !ok {
				return
			}
			if err := enc.Encode(event); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}
