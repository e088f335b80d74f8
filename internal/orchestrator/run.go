package orchestrator

import (
	"context"
	"sync"
	"time"
)

// Run is one execution of the stage sequence over one input artifact. All
// mutation goes through the Orchestrator; callers read it via Snapshot.
type Run struct {
	mu sync.Mutex

	id        string
	artifact  []byte
	stages    []StageDescriptor
	startedAt time.Time

	index      int
	status     []Status
	results    Results
	choice     string
	hasChoice  bool
	candidates []Candidate
	err        error
	discarded  bool

	// in-flight bookkeeping, set while Advance or ResumeWithChoice runs
	busy   bool
	cancel context.CancelCauseFunc
	done   chan struct{}

	// set while observers are being notified of one of this run's events
	notifying bool
}

func newRun(id string, artifact []byte, stages []StageDescriptor, now time.Time) *Run {
	status := make([]Status, len(stages))
	for i := range status {
		status[i] = StatusPending
	}
	return &Run{
		id:        id,
		artifact:  append([]byte(nil), artifact...),
		stages:    stages,
		startedAt: now,
		status:    status,
		results:   make(Results, len(stages)),
	}
}

// ID returns the run identifier.
func (r *Run) ID() string {
	return r.id
}

// Snapshot returns a copy of the run state.
func (r *Run) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	return Snapshot{
		ID:         r.id,
		Index:      r.index,
		Stages:     append([]StageDescriptor(nil), r.stages...),
		Status:     append([]Status(nil), r.status...),
		Results:    r.results.clone(),
		Choice:     r.choice,
		Candidates: append([]Candidate(nil), r.candidates...),
		Err:        r.err,
		StartedAt:  r.startedAt,
		Discarded:  r.discarded,
	}
}

// idleLocked reports whether there is nothing for advance to do: the run is
// complete, failed, or suspended at a gate.
func (r *Run) idleLocked() bool {
	if r.err != nil || r.index >= len(r.stages) {
		return true
	}
	return r.status[r.index] == StatusAwaitingInput
}

func (r *Run) eventLocked(stage Stage, status Status, payload any, err error) Event {
	return Event{
		RunID:   r.id,
		Stage:   stage,
		Index:   r.index,
		Status:  status,
		Payload: payload,
		Err:     err,
	}
}

// Snapshot is a read-only copy of a Run.
type Snapshot struct {
	ID         string
	Index      int
	Stages     []StageDescriptor
	Status     []Status
	Results    Results
	Choice     string
	Candidates []Candidate
	Err        error
	StartedAt  time.Time
	Discarded  bool
}

// Complete reports whether every stage succeeded.
func (s Snapshot) Complete() bool {
	return s.Err == nil && s.Index >= len(s.Stages)
}

// Failed reports whether a stage failed.
func (s Snapshot) Failed() bool {
	return s.Err != nil
}

// Terminal reports whether the run can make no further progress.
func (s Snapshot) Terminal() bool {
	return s.Complete() || s.Failed()
}

// AwaitingInput reports whether the run is suspended at a human gate.
func (s Snapshot) AwaitingInput() bool {
	return s.Index < len(s.Status) && s.Status[s.Index] == StatusAwaitingInput
}

// Current returns the descriptor at the current index, if any.
func (s Snapshot) Current() (StageDescriptor, bool) {
	if s.Index >= len(s.Stages) {
		return StageDescriptor{}, false
	}
	return s.Stages[s.Index], true
}

// State summarizes the run as a single status: failed, succeeded once every
// stage has, otherwise the status of the current stage.
func (s Snapshot) State() Status {
	switch {
	case s.Failed():
		return StatusFailed
	case s.Complete():
		return StatusSucceeded
	case s.Index < len(s.Status):
		return s.Status[s.Index]
	}
	return StatusPending
}
