package orchestrator

import (
	"fmt"
	"strings"
	"sync"
)

// ProgressReporter is an Observer that forwards events into a buffered
// channel for consumers that prefer receiving over callbacks.
type ProgressReporter struct {
	mu     sync.Mutex
	ch     chan Event
	closed bool
}

// NewProgressReporter creates a ProgressReporter with a buffered channel of size 64.
func NewProgressReporter() *ProgressReporter {
	return &ProgressReporter{
		ch: make(chan Event, 64),
	}
}

// Notify sends an event in a non-blocking fashion.
// If the channel is full or closed, the event is silently dropped.
func (pr *ProgressReporter) Notify(ev Event) {
	pr.mu.Lock()
	defer pr.mu.Unlock()

	if pr.closed {
		return
	}
	select {
	case pr.ch <- ev:
	default:
	}
}

// Events returns a read-only channel for consuming events.
func (pr *ProgressReporter) Events() <-chan Event {
	return pr.ch
}

// Close closes the event channel. Later events are dropped.
func (pr *ProgressReporter) Close() {
	pr.mu.Lock()
	defer pr.mu.Unlock()

	if !pr.closed {
		pr.closed = true
		close(pr.ch)
	}
}

// FormatProgress formats an Event as a human-readable status line. label is
// the display name of the event's stage.
func FormatProgress(ev Event, label string) string {
	switch ev.Status {
	case StatusPending:
		return fmt.Sprintf("  ○ %s (pending)", label)
	case StatusRunning:
		return fmt.Sprintf("  ● %s...", label)
	case StatusAwaitingInput:
		var labels []string
		if cands, ok := ev.Payload.([]Candidate); ok {
			for _, c := range cands {
				labels = append(labels, c.Label)
			}
		}
		return fmt.Sprintf("  ? %s awaiting input: %s", label, strings.Join(labels, ", "))
	case StatusSucceeded:
		return fmt.Sprintf("  ✓ %s complete", label)
	case StatusFailed:
		msg := ""
		if ev.Err != nil {
			msg = ev.Err.Error()
		}
		return fmt.Sprintf("  ✗ %s failed: %s", label, msg)
	default:
		return fmt.Sprintf("  ? %s (unknown status)", label)
	}
}

// FormatStageHeader formats a stage header for display.
// Returns: "[{runID}] Stage {N}: {label}"
func FormatStageHeader(runID string, desc StageDescriptor) string {
	return fmt.Sprintf("[%s] Stage %d: %s", runID, int(desc.Index), desc.String())
}
