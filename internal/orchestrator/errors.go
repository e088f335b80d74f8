package orchestrator

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidInput is returned by Start for an empty artifact. No run is
	// created.
	ErrInvalidInput = errors.New("orchestrator: invalid input: artifact is empty")

	// ErrInvalidChoice is returned by ResumeWithChoice when the choice is not
	// one of the candidates offered at the gate. The run is unchanged.
	ErrInvalidChoice = errors.New("orchestrator: invalid choice")

	// ErrCancelled is the cause recorded when an in-flight stage is cancelled.
	ErrCancelled = errors.New("orchestrator: cancelled")

	// ErrNotAwaitingInput is returned by ResumeWithChoice when the run is not
	// suspended at a human gate.
	ErrNotAwaitingInput = errors.New("orchestrator: run is not awaiting input")

	// ErrRunBusy is returned when another call is already driving the run, or
	// when an Observer tries to reset the run it is being notified about.
	ErrRunBusy = errors.New("orchestrator: run is busy")

	// ErrRunDiscarded is returned for any operation on a run after Reset.
	ErrRunDiscarded = errors.New("orchestrator: run has been reset")

	// ErrNoCandidates is the cause recorded when the stage before a gate did
	// not produce a usable candidate set.
	ErrNoCandidates = errors.New("orchestrator: no candidates for human gate")
)

// ExecutionError reports that a stage failed. The run halts at Stage.
type ExecutionError struct {
	Stage Stage
	Cause error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("orchestrator: stage %d failed: %v", e.Stage, e.Cause)
}

// Unwrap returns the underlying cause.
func (e *ExecutionError) Unwrap() error {
	return e.Cause
}
