package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/presencehq/presence-backend-go/internal/handler/http/middleware"
	"github.com/presencehq/presence-backend-go/internal/pkg/sse"
)

type EventsHandler interface {
	Stream(w http.ResponseWriter, r *http.Request)
}

type eventsHandlerImpl struct {
	hub *sse.Hub
}

func NewEventsHandler(hub *sse.Hub) EventsHandler {
	return &eventsHandlerImpl{hub: hub}
}

// Stream pushes attendance events for the caller's tenant over SSE.
func (h *eventsHandlerImpl) Stream(w http.ResponseWriter, r *http.Request) {
	tenantID, _, ok := middleware.ActorFromContext(r)
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	events, cleanup := h.hub.Subscribe(tenantID)
	defer cleanup()

	fmt.Fprintf(w, "event: connected\ndata: {}\n\n")
	flusher.Flush()

	keepalive := time.NewTicker(30 * time.Second)
	defer keepalive.Stop()

	for {
		select {
		case event, open := <-events:
			if !open {
				return
			}
			payload, err := json.Marshal(event)
			if err != nil {
				continue
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event.Type, payload)
			flusher.Flush()
		case <-keepalive.C:
			fmt.Fprintf(w, ": keepalive\n\n")
			flusher.Flush()
		case <-r.Context().Done():
			return
		}
	}
}
