// Package stream publishes orchestrator events as Server-Sent Events and
// reads them back on the client side.
package stream

import (
	"errors"
	"time"

	"github.com/dusk-indust/datawizard/internal/orchestrator"
)

// Record is the wire form of one orchestrator event.
type Record struct {
	RunID      string   `json:"runId"`
	Stage      int      `json:"stage"`
	StageName  string   `json:"stageName,omitempty"`
	Label      string   `json:"label,omitempty"`
	Index      int      `json:"index"`
	Status     string   `json:"status"`
	Candidates []string `json:"candidates,omitempty"`
	Choice     string   `json:"choice,omitempty"`
	Error      string   `json:"error,omitempty"`
	At         string   `json:"at"`

	// Err is set on the client when a frame could not be decoded.
	Err error `json:"-"`
}

// NewRecord converts ev, naming its stage from stages.
func NewRecord(ev orchestrator.Event, stages []orchestrator.StageDescriptor, now time.Time) Record {
	r := Record{
		RunID:  ev.RunID,
		Stage:  int(ev.Stage),
		Index:  ev.Index,
		Status: string(ev.Status),
		At:     now.UTC().Format(time.RFC3339Nano),
	}
	if int(ev.Stage) < len(stages) {
		d := stages[ev.Stage]
		r.StageName, r.Label = d.Name, d.Label
	}
	switch p := ev.Payload.(type) {
	case []orchestrator.Candidate:
		for _, c := range p {
			r.Candidates = append(r.Candidates, c.Label)
		}
	case string:
		if ev.Status == orchestrator.StatusSucceeded {
			r.Choice = p
		}
	}
	if ev.Err != nil {
		r.Error = ev.Err.Error()
	}
	return r
}

// Event rebuilds an orchestrator event for display with
// orchestrator.FormatProgress. Stage results are not carried on the wire.
func (r Record) Event() orchestrator.Event {
	ev := orchestrator.Event{
		RunID:  r.RunID,
		Stage:  orchestrator.Stage(r.Stage),
		Index:  r.Index,
		Status: orchestrator.Status(r.Status),
	}
	if len(r.Candidates) > 0 {
		cands := make([]orchestrator.Candidate, 0, len(r.Candidates))
		for _, l := range r.Candidates {
			cands = append(cands, orchestrator.Candidate{Label: l})
		}
		ev.Payload = cands
	}
	if r.Error != "" {
		ev.Err = errors.New(r.Error)
	}
	return ev
}
