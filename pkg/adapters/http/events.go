package http

import (
	"fmt"
	"log/slog"
	"net/http"
	"sync"
)

// StreamManager fans out change notifications for edits made through this
// server. It backs /events when the source store cannot be watched.
type StreamManager struct {
	mu          sync.RWMutex
	subscribers map[string]map[chan<- string]struct{} // file -> set of channels, "" means every file
}

func NewStreamManager() *StreamManager {
	return &StreamManager{
		subscribers: make(map[string]map[chan<- string]struct{}),
	}
}

func (sm *StreamManager) Subscribe(file string) (chan string, func()) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	ch := make(chan string, 10)
	if _, ok := sm.subscribers[file]; !ok {
		sm.subscribers[file] = make(map[chan<- string]struct{})
	}
	sm.subscribers[file][ch] = struct{}{}

	return ch, func() {
		sm.mu.Lock()
		defer sm.mu.Unlock()
		if subs, ok := sm.subscribers[file]; ok {
			delete(subs, ch)
			close(ch)
			if len(subs) == 0 {
				delete(sm.subscribers, file)
			}
		}
	}
}

// Broadcast sends msg to the subscribers of file and to those of every file.
func (sm *StreamManager) Broadcast(file string, msg string) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	keys := []string{file}
	if file != "" {
		keys = append(keys, "")
	}
	for _, key := range keys {
		for ch := range sm.subscribers[key] {
			select {
			case ch <- msg:
			default:
				// slow client
				slog.Warn("SSE: Client buffer full, dropping message", "file", file)
			}
		}
	}
}

// SubscribeEvents handles GET /events. Each event carries the name of a
// changed source; ?file= restricts the stream to one source.
func (s *Server) SubscribeEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		slog.Error("SubscribeEvents: Streaming not supported")
		return
	}
	file := r.URL.Query().Get("file")

	var events <-chan string
	if watched, err := s.Engine.Watch(r.Context()); err == nil {
		events = watched
	} else {
		slog.Info("SSE: store is not watchable, streaming API edits only", "error", err)
		ch, cancel := s.Streams.Subscribe(file)
		defer cancel()
		events = ch
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	fmt.Fprintf(w, "event: ping\ndata: connected\n\n")
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			slog.Debug("SSE Client Disconnected")
			return
		case name, ok := <-events:
			if !ok {
				return
			}
			if file != "" && name != file {
				continue
			}
			fmt.Fprintf(w, "data: %s\n\n", name)
			flusher.Flush()
		}
	}
}
