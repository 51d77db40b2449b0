package sse

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"
)

// ErrStreamingUnsupported is returned when the ResponseWriter cannot flush.
var ErrStreamingUnsupported = errors.New("streaming unsupported")

// Writer serializes SSE frames onto one response. Events and keep-alives may be
// written from different goroutines.
type Writer struct {
	mu       sync.Mutex
	w        http.ResponseWriter
	rc       *http.ResponseController
	streamID string
}

// NewWriter sets the event-stream headers, lifts the server write deadline and
// returns a writer for the response. Middleware wrappers are unwrapped to find
// the flusher.
func NewWriter(w http.ResponseWriter, streamID string) (*Writer, error) {
	rc := http.NewResponseController(w)

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	if err := rc.Flush(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStreamingUnsupported, err)
	}
	_ = rc.SetWriteDeadline(time.Time{}) // Error ignored: not every writer has deadlines

	return &Writer{w: w, rc: rc, streamID: streamID}, nil
}

// WriteEvent writes one named event. Multi-line data is split into data lines.
func (s *Writer) WriteEvent(event string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var b strings.Builder
	if event != "" {
		fmt.Fprintf(&b, "event: %s\n", event)
	}
	for _, line := range strings.Split(string(data), "\n") {
		fmt.Fprintf(&b, "data: %s\n", line)
	}
	b.WriteString("\n")

	if _, err := s.w.Write([]byte(b.String())); err != nil {
		return fmt.Errorf("write event %s on %s: %w", event, s.streamID, err)
	}
	return s.rc.Flush()
}

// WriteKeepAlive writes an SSE comment line and flushes
func (s *Writer) WriteKeepAlive() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := fmt.Fprint(s.w, ": keepalive\n\n"); err != nil {
		return fmt.Errorf("write keepalive on %s: %w", s.streamID, err)
	}
	return s.rc.Flush()
}
