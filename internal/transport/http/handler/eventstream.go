package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"llmcouncil/internal/debate"
)

var errStreamUnsupported = errors.New("response writer does not support streaming")

// eventWriter frames debate events onto an SSE response. The heartbeat ticker
// writes from its own goroutine, so every write goes through the mutex.
type eventWriter struct {
	mu      sync.Mutex
	w       http.ResponseWriter
	flusher http.Flusher

	stopHeartbeat chan struct{}
	heartbeatDone chan struct{}
	stopOnce      sync.Once
}

func newEventWriter(w http.ResponseWriter) (*eventWriter, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, errStreamUnsupported
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	return &eventWriter{w: w, flusher: flusher}, nil
}

// Send writes one `event:`/`data:` frame and flushes it immediately so chunks
// reach the client without buffering delay.
func (ew *eventWriter) Send(ev debate.Event) error {
	payload, err := json.Marshal(ev.Data)
	if err != nil {
		return fmt.Errorf("marshal event %q failed: %w", ev.Name, err)
	}

	ew.mu.Lock()
	defer ew.mu.Unlock()
	if _, err := fmt.Fprintf(ew.w, "event: %s\ndata: %s\n\n", ev.Name, payload); err != nil {
		return err
	}
	ew.flusher.Flush()
	return nil
}

// StartHeartbeat emits heartbeat events at the given interval until
// StopHeartbeat is called. Write failures stop the ticker silently; the main
// flow surfaces the broken connection on its next Send.
func (ew *eventWriter) StartHeartbeat(interval time.Duration) {
	ew.stopHeartbeat = make(chan struct{})
	ew.heartbeatDone = make(chan struct{})

	go func() {
		defer close(ew.heartbeatDone)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ew.stopHeartbeat:
				return
			case <-ticker.C:
				ev := debate.Event{
					Name: debate.EventHeartbeat,
					Data: debate.HeartbeatPayload{Timestamp: time.Now().UnixMilli()},
				}
				if err := ew.Send(ev); err != nil {
					return
				}
			}
		}
	}()
}

// StopHeartbeat stops the ticker and waits for the goroutine to exit, so no
// heartbeat can interleave after a terminal event.
func (ew *eventWriter) StopHeartbeat() {
	if ew.stopHeartbeat == nil {
		return
	}
	ew.stopOnce.Do(func() {
		close(ew.stopHeartbeat)
	})
	<-ew.heartbeatDone
}
