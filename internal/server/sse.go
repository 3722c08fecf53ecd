package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"
)

// invocationEvent is broadcast on the SSE stream after each completed
// tool call made through this server.
type invocationEvent struct {
	Tool   string         `json:"tool"`
	Result map[string]any `json:"result"`
}

// eventHub fans invocation events out to connected SSE clients. Slow
// clients drop events rather than stalling the publisher.
type eventHub struct {
	mu   sync.Mutex
	subs map[chan invocationEvent]struct{}
}

func newEventHub() *eventHub {
	return &eventHub{subs: make(map[chan invocationEvent]struct{})}
}

func (h *eventHub) subscribe() chan invocationEvent {
	ch := make(chan invocationEvent, 16)
	h.mu.Lock()
	h.subs[ch] = struct{}{}
	h.mu.Unlock()
	return ch
}

func (h *eventHub) unsubscribe(ch chan invocationEvent) {
	h.mu.Lock()
	delete(h.subs, ch)
	h.mu.Unlock()
}

func (h *eventHub) publish(event invocationEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subs {
		select {
		case ch <- event:
		default:
		}
	}
}

// handleSSE streams invocation events to the client until it
// disconnects. A comment heartbeat keeps intermediaries from closing
// the idle connection.
func (s *Server) handleSSE(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	fmt.Fprint(w, ": connected\n\n")
	flusher.Flush()

	events := s.hub.subscribe()
	defer s.hub.unsubscribe(events)

	heartbeat := time.NewTicker(15 * time.Second)
	defer heartbeat.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-heartbeat.C:
			fmt.Fprint(w, ": keepalive\n\n")
			flusher.Flush()
		case event := <-events:
			payload, err := json.Marshal(event)
			if err != nil {
				continue
			}
			fmt.Fprintf(w, "event: invocation\ndata: %s\n\n", payload)
			flusher.Flush()
		}
	}
}
