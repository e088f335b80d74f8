package orchestrator

import "context"

// Stage is the 0-based position of a stage within a pipeline.
type Stage int

// Status is the lifecycle state of one stage within a run.
type Status string

const (
	StatusPending       Status = "pending"
	StatusRunning       Status = "running"
	StatusAwaitingInput Status = "awaiting-input"
	StatusSucceeded     Status = "succeeded"
	StatusFailed        Status = "failed"
)

// StageDescriptor is the immutable metadata of one pipeline stage.
type StageDescriptor struct {
	Index     Stage
	Name      string // slug, e.g. "clean"
	Label     string // display label, e.g. "Data Cleaning"
	HumanGate bool
}

func (d StageDescriptor) String() string {
	if d.Label != "" {
		return d.Label
	}
	return d.Name
}

// Results maps a stage to the payload its executor produced.
type Results map[Stage]any

func (r Results) clone() Results {
	out := make(Results, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// StageInput is everything an executor is given for one stage. Executors
// return values; they never reach back into the run.
type StageInput struct {
	RunID    string
	Stage    Stage
	Artifact []byte
	Prior    Results

	// Choice is the human gate decision. Empty before the gate.
	Choice string
}

// StageExecutor performs the work of a single non-gate stage. Implementations
// must not retry internally; a failure is reported once and the run halts.
type StageExecutor interface {
	Execute(ctx context.Context, in StageInput) (any, error)
}

// ExecutorFunc adapts a function to the StageExecutor interface.
type ExecutorFunc func(ctx context.Context, in StageInput) (any, error)

// Execute calls f.
func (f ExecutorFunc) Execute(ctx context.Context, in StageInput) (any, error) {
	return f(ctx, in)
}

// Candidate is one labeled choice offered at a human gate.
type Candidate struct {
	Label       string
	Description string
}

// CandidateSet is implemented by stage results that feed a human gate. The
// stage immediately before a gate must produce one.
type CandidateSet interface {
	Candidates() []Candidate
}

// Event describes a single state transition of a run.
type Event struct {
	RunID string
	Stage Stage

	// Index is the run's current stage index after the transition.
	Index  int
	Status Status

	// Payload is the stage result on success, the choice when a gate
	// succeeds, or the []Candidate offered when a gate suspends.
	Payload any
	Err     error
}

// Observer receives run transitions. Notify is called synchronously on the
// goroutine driving the run, outside of any run lock, so it must not block
// for long and must not call back into the Orchestrator.
type Observer interface {
	Notify(ev Event)
}

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc func(ev Event)

// Notify calls f.
func (f ObserverFunc) Notify(ev Event) {
	f(ev)
}
