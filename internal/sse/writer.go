// Package sse frames messages in the text/event-stream wire format.
package sse

import (
	"fmt"
	"io"
	"net/http"
)

// MediaType is the content type of a server-sent event stream.
const MediaType = "text/event-stream"

// Writer emits event-stream frames onto an underlying writer, flushing
// after each frame when the writer supports it. Every frame is terminated
// by a blank line. Writer is not safe for concurrent use; the synthesizer
// owns one per connection.
type Writer struct {
	w       io.Writer
	flusher http.Flusher
}

// NewWriter wraps w. If w implements http.Flusher, each frame is flushed
// immediately so clients see events as they are produced.
func NewWriter(w io.Writer) *Writer {
	sw := &Writer{w: w}
	if f, ok := w.(http.Flusher); ok {
		sw.flusher = f
	}
	return sw
}

// Data writes one `data:` frame carrying the given payload.
func (w *Writer) Data(payload []byte) error {
	if _, err := fmt.Fprintf(w.w, "data: %s\n\n", payload); err != nil {
		return err
	}
	w.flush()
	return nil
}

// Comment writes one comment frame. Comment frames are not delivered to
// EventSource listeners; they carry status/error annotations.
func (w *Writer) Comment(text string) error {
	if _, err := fmt.Fprintf(w.w, ": %s\n\n", text); err != nil {
		return err
	}
	w.flush()
	return nil
}

func (w *Writer) flush() {
	if w.flusher != nil {
		w.flusher.Flush()
	}
}
