package events

import (
	"context"
	"fmt"
	"net/http"
	"research/pkg/serrors"
)

// Writer streams events to an HTTP response as Server-Sent Events. Frames are
// data-only ("data: {...}\n\n", no event:/id: fields) and each frame is
// flushed immediately.
type Writer struct {
	w http.ResponseWriter
	f http.Flusher
}

// NewWriter prepares w for event streaming: it verifies the writer supports
// flushing, sets the SSE headers and commits the 200 status. After this no
// error response can be sent anymore.
func NewWriter(w http.ResponseWriter) (*Writer, error) {
	f, ok := w.(http.Flusher)
	if !ok {
		return nil, serrors.With(serrors.ErrInternal, "response writer does not support streaming")
	}

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	// disable buffering in nginx-style reverse proxies
	h.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	f.Flush()

	return &Writer{w: w, f: f}, nil
}

// Send writes one event frame and flushes it. It fails once the client has
// disconnected (ctx canceled) so the research run stops promptly.
func (sw *Writer) Send(ctx context.Context, event Event) error {
	if err := ctx.Err(); err != nil {
		return serrors.Wrap(serrors.ErrTimeout, err, "client disconnected")
	}

	frame, err := event.Encode()
	if err != nil {
		return fmt.Errorf("could not encode event: %w", err)
	}

	if _, err := fmt.Fprintf(sw.w, "data: %s\n\n", frame); err != nil {
		return fmt.Errorf("could not write event frame: %w", err)
	}
	sw.f.Flush()

	return nil
}
