package stream

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// Writer writes Server-Sent Events to an http.ResponseWriter.
// Call Init once before writing any records to set the required headers.
type Writer struct {
	w       http.ResponseWriter
	flusher http.Flusher
}

// NewWriter wraps w. Without http.Flusher support, writes still succeed but
// may be buffered.
func NewWriter(w http.ResponseWriter) *Writer {
	f, _ := w.(http.Flusher)
	return &Writer{w: w, flusher: f}
}

// Init sets the SSE response headers and flushes them to the client.
func (sw *Writer) Init() {
	h := sw.w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	sw.w.WriteHeader(http.StatusOK)
	sw.flush()
}

// WriteRecord writes r as one "data: {json}" frame and flushes.
func (sw *Writer) WriteRecord(r Record) error {
	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("stream: marshal record: %w", err)
	}
	if _, err := fmt.Fprintf(sw.w, "data: %s\n\n", data); err != nil {
		return fmt.Errorf("stream: write record: %w", err)
	}
	sw.flush()
	return nil
}

// WriteComment writes an SSE comment line, used as a keep-alive.
func (sw *Writer) WriteComment(text string) error {
	if _, err := fmt.Fprintf(sw.w, ": %s\n\n", text); err != nil {
		return fmt.Errorf("stream: write comment: %w", err)
	}
	sw.flush()
	return nil
}

func (sw *Writer) flush() {
	if sw.flusher != nil {
		sw.flusher.Flush()
	}
}

// ReadRecords parses SSE frames from body and delivers them on the returned
// channel. The channel is closed when the body is exhausted, a read fails or
// ctx is cancelled; body is closed when reading finishes.
//
// Comment lines and unknown fields are skipped. Multiple data lines in one
// frame are joined with newlines. A frame that is not a valid Record is
// delivered with Err set and reading continues.
func ReadRecords(ctx context.Context, body io.ReadCloser) <-chan Record {
	ch := make(chan Record)
	go func() {
		defer close(ch)
		defer body.Close()

		scanner := bufio.NewScanner(body)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		var buf strings.Builder

		flush := func() bool {
			if buf.Len() == 0 {
				return true
			}
			raw := buf.String()
			buf.Reset()
			return emit(ctx, ch, raw)
		}

		for {
			if ctx.Err() != nil {
				return
			}
			if !scanner.Scan() {
				flush()
				return
			}

			line := scanner.Text()
			switch {
			case line == "":
				if !flush() {
					return
				}
			case strings.HasPrefix(line, ":"):
			case strings.HasPrefix(line, "data:"):
				payload := strings.TrimPrefix(strings.TrimPrefix(line, "data:"), " ")
				if buf.Len() > 0 {
					buf.WriteByte('\n')
				}
				buf.WriteString(payload)
			}
		}
	}()
	return ch
}

func emit(ctx context.Context, ch chan<- Record, raw string) bool {
	var r Record
	if err := json.Unmarshal([]byte(raw), &r); err != nil {
		r = Record{Err: fmt.Errorf("stream: unmarshal record: %w", err)}
	}
	select {
	case ch <- r:
		return true
	case <-ctx.Done():
		return false
	}
}
