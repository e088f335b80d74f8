package stream

import (
	"context"
	"net/http"
	"time"

	"github.com/dusk-indust/datawizard/internal/orchestrator"
)

// Source is the part of the orchestrator the handler needs.
type Source interface {
	Subscribe(obs orchestrator.Observer) (unsubscribe func())
	Stages() []orchestrator.StageDescriptor
}

// Handler streams every event of src to the client until it disconnects.
// A "run" query parameter restricts the stream to one run.
type Handler struct {
	src       Source
	keepAlive time.Duration
	now       func() time.Time
}

// HandlerOption configures a Handler.
type HandlerOption func(*Handler)

// WithKeepAlive sets the interval of keep-alive comments. Zero disables them.
func WithKeepAlive(d time.Duration) HandlerOption {
	return func(h *Handler) { h.keepAlive = d }
}

// NewHandler creates a Handler over src.
func NewHandler(src Source, opts ...HandlerOption) *Handler {
	h := &Handler{src: src, keepAlive: 15 * time.Second, now: time.Now}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	runID := r.URL.Query().Get("run")

	rep := orchestrator.NewProgressReporter()
	unsubscribe := h.src.Subscribe(rep)
	defer func() {
		unsubscribe()
		rep.Close()
	}()

	sw := NewWriter(w)
	sw.Init()
	h.pump(r.Context(), sw, rep.Events(), runID)
}

func (h *Handler) pump(ctx context.Context, sw *Writer, events <-chan orchestrator.Event, runID string) {
	stages := h.src.Stages()

	var tick <-chan time.Time
	if h.keepAlive > 0 {
		t := time.NewTicker(h.keepAlive)
		defer t.Stop()
		tick = t.C
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-tick:
			if err := sw.WriteComment("keep-alive"); err != nil {
				return
			}
		case ev, ok := <-events:
			if !ok {
				return
			}
			if runID != "" && ev.RunID != runID {
				continue
			}
			if err := sw.WriteRecord(NewRecord(ev, stages, h.now())); err != nil {
				return
			}
		}
	}
}
