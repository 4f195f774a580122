package api

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/inkforge/inkforge/internal/events"
)

// EventsHandler streams job progress events to clients over
// server-sent events.
type EventsHandler struct {
	broker *events.Broker
	logger *slog.Logger
}

// NewEventsHandler creates a new EventsHandler.
func NewEventsHandler(broker *events.Broker, logger *slog.Logger) *EventsHandler {
	if logger == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("logger cannot be nil for EventsHandler")
	}

	return &EventsHandler{
		broker: broker,
		logger: logger.With(slog.String("component", "events_handler")),
	}
}

// Stream handles GET /api/events requests. The connection stays open
// until the client disconnects or the broker shuts down.
func (h *EventsHandler) Stream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ch, cancel := h.broker.Subscribe()
	defer cancel()

	h.logger.Debug("event stream opened", slog.String("remote_addr", r.RemoteAddr))

	for {
		select {
		case <-r.Context().Done():
			h.logger.Debug("event stream closed by client")
			return
		case event, open := <-ch:
			if !open {
				return
			}
			payload, err := json.Marshal(event)
			if err != nil {
				h.logger.Error("failed to encode progress event", "error", err)
				continue
			}
			if _, err := fmt.Fprintf(w, "data: %s\n\n", payload); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}
