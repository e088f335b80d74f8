package orchestrator

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProgressReporter_NotifyAndReceive(t *testing.T) {
	pr := NewProgressReporter()
	defer pr.Close()

	want := Event{RunID: "run-1", Stage: 1, Index: 1, Status: StatusRunning}
	pr.Notify(want)

	select {
	case got := <-pr.Events():
		assert.Equal(t, want, got)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for progress event")
	}
}

func TestProgressReporter_NotifyWhenFull_DoesNotBlock(t *testing.T) {
	pr := NewProgressReporter()
	defer pr.Close()

	// The internal channel buffer is 64. Notifying 100 times must never block.
	done := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			pr.Notify(Event{Stage: 0, Status: StatusRunning})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Notify blocked when the channel was full")
	}
}

func TestProgressReporter_Close_ChannelClosed(t *testing.T) {
	pr := NewProgressReporter()

	pr.Notify(Event{Stage: 4, Status: StatusSucceeded})
	pr.Close()
	pr.Close()

	// Notifying after Close is dropped rather than panicking.
	pr.Notify(Event{Stage: 4, Status: StatusFailed})

	var received []Event
	for ev := range pr.Events() {
		received = append(received, ev)
	}
	require.Len(t, received, 1)
	assert.Equal(t, StatusSucceeded, received[0].Status)
}

func TestProgressReporter_AsObserver(t *testing.T) {
	pr := NewProgressReporter()
	o, _ := newTestOrchestrator(t, nil)
	o.Subscribe(pr)

	run, err := o.Start(context.Background(), []byte("data"))
	require.NoError(t, err)
	require.NoError(t, o.ResumeWithChoice(context.Background(), run, "Regression"))
	pr.Close()

	var last Event
	count := 0
	for ev := range pr.Events() {
		last = ev
		count++
	}
	// pending + running/succeeded for four stages + running/awaiting/succeeded for the gate.
	assert.Equal(t, 12, count)
	assert.Equal(t, Stage(4), last.Stage)
	assert.Equal(t, StatusSucceeded, last.Status)
}

func TestFormatProgress_AllStatuses(t *testing.T) {
	tests := []struct {
		name   string
		event  Event
		expect string
	}{
		{
			name:   "pending",
			event:  Event{Status: StatusPending},
			expect: "  ○ Data Cleaning (pending)",
		},
		{
			name:   "running",
			event:  Event{Status: StatusRunning},
			expect: "  ● Data Cleaning...",
		},
		{
			name: "awaiting input",
			event: Event{Status: StatusAwaitingInput, Payload: []Candidate{
				{Label: "Regression"}, {Label: "Clustering"},
			}},
			expect: "  ? Data Cleaning awaiting input: Regression, Clustering",
		},
		{
			name:   "succeeded",
			event:  Event{Status: StatusSucceeded},
			expect: "  ✓ Data Cleaning complete",
		},
		{
			name:   "failed",
			event:  Event{Status: StatusFailed, Err: errors.New("timeout")},
			expect: "  ✗ Data Cleaning failed: timeout",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FormatProgress(tt.event, "Data Cleaning")
			assert.Equal(t, tt.expect, got)
		})
	}
}

func TestFormatStageHeader(t *testing.T) {
	got := FormatStageHeader("run-1", StageDescriptor{Index: 1, Name: "explore", Label: "Exploratory Data Analysis"})
	assert.Equal(t, "[run-1] Stage 1: Exploratory Data Analysis", got)
}
