package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/ZBugge/nfl-playoff-predictor/internal/logger"
)

// keepaliveInterval is how often an idle SSE stream gets a comment line
var keepaliveInterval = 30 * time.Second

// EventsSSE provides Server-Sent Events for realtime updates.
// An optional ?season= filter drops events for other seasons.
func (h *APIHandlers) EventsSSE(w http.ResponseWriter, r *http.Request) {
	var season int
	if raw := r.URL.Query().Get("season"); raw != "" {
		s, err := strconv.Atoi(raw)
		if err != nil || s <= 0 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid season filter"})
			return
		}
		season = s
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")

	eventChan := h.events.Subscribe()
	defer h.events.Unsubscribe(eventChan)

	flush := func() {
		if f, ok := w.(http.Flusher); ok {
			f.Flush()
		}
	}

	fmt.Fprintf(w, "data: {\"type\":\"connected\"}\n\n")
	flush()

	keepalive := time.NewTicker(keepaliveInterval)
	defer keepalive.Stop()

	for {
		select {
		case event, ok := <-eventChan:
			if !ok {
				return
			}
			if season != 0 && event.Season != 0 && event.Season != season {
				continue
			}
			data, err := json.Marshal(event)
			if err != nil {
				logger.Warn("Failed to encode SSE event", "event_type", event.Type, "error", err)
				continue
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event.Type, data)
			flush()
		case <-r.Context().Done():
			logger.Debug("SSE client disconnected")
			return
		case <-keepalive.C:
			fmt.Fprintf(w, ": keepalive\n\n")
			flush()
		}
	}
}
