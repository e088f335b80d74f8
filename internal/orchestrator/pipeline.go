package orchestrator

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Orchestrator drives runs through a fixed, ordered list of stages. Each run
// has a single logical thread of control: stages never execute concurrently
// within one run, while independent runs share nothing but the observer set.
type Orchestrator struct {
	stages    []StageDescriptor
	executors map[Stage]StageExecutor
	observers observerSet
	newID     func() string
	now       func() time.Time

	mu     sync.Mutex
	active map[string]*Run // runs with an in-flight Advance or ResumeWithChoice
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithIDGenerator overrides the run identifier source.
func WithIDGenerator(fn func() string) Option {
	return func(o *Orchestrator) {
		o.newID = fn
	}
}

// WithObserver subscribes obs at construction time.
func WithObserver(obs Observer) Option {
	return func(o *Orchestrator) {
		o.observers.add(obs)
	}
}

// WithClock overrides the time source used for run start times.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) {
		o.now = now
	}
}

// New builds an Orchestrator over stages. Every non-gate stage must have an
// executor; gates must not.
func New(stages []StageDescriptor, executors map[Stage]StageExecutor, opts ...Option) (*Orchestrator, error) {
	if err := validateStages(stages, executors); err != nil {
		return nil, err
	}

	o := &Orchestrator{
		stages:    append([]StageDescriptor(nil), stages...),
		executors: make(map[Stage]StageExecutor, len(executors)),
		newID:     uuid.NewString,
		now:       time.Now,
		active:    make(map[string]*Run),
	}
	for stage, exec := range executors {
		o.executors[stage] = exec
	}
	for _, opt := range opts {
		opt(o)
	}
	return o, nil
}

// Stages returns the stage descriptors in order.
func (o *Orchestrator) Stages() []StageDescriptor {
	return append([]StageDescriptor(nil), o.stages...)
}

// Subscribe registers obs for every transition of every run and returns a
// function that removes it.
func (o *Orchestrator) Subscribe(obs Observer) (unsubscribe func()) {
	return o.observers.add(obs)
}

// Start creates a run over input, notifies observers of its initial state and
// advances it until it completes, fails or reaches a human gate. On a stage
// failure the run is returned together with the *ExecutionError.
func (o *Orchestrator) Start(ctx context.Context, input []byte) (*Run, error) {
	if len(bytes.TrimSpace(input)) == 0 {
		return nil, ErrInvalidInput
	}

	run := newRun(o.newID(), input, o.stages, o.now())

	run.mu.Lock()
	ev := run.eventLocked(0, StatusPending, nil, nil)
	run.mu.Unlock()
	o.emit(run, ev)

	return run, o.Advance(ctx, run)
}

// Advance executes stages in order from the run's current index. It returns
// nil without any notification when the run is complete, failed or suspended
// at a gate. A caller-supplied deadline on ctx bounds the whole call; when it
// expires the in-flight stage fails with ErrCancelled.
func (o *Orchestrator) Advance(ctx context.Context, run *Run) error {
	runCtx, release, err := o.acquire(ctx, run)
	if err != nil {
		return err
	}
	defer release()

	return o.advance(runCtx, run)
}

// ResumeWithChoice supplies the human gate decision and continues the run.
// choice must be one of the candidates offered when the run suspended.
func (o *Orchestrator) ResumeWithChoice(ctx context.Context, run *Run, choice string) error {
	runCtx, release, err := o.acquire(ctx, run)
	if err != nil {
		return err
	}
	defer release()

	run.mu.Lock()
	if run.index >= len(run.stages) || run.status[run.index] != StatusAwaitingInput {
		run.mu.Unlock()
		return ErrNotAwaitingInput
	}
	if !hasCandidate(run.candidates, choice) {
		run.mu.Unlock()
		return fmt.Errorf("%w: %q", ErrInvalidChoice, choice)
	}

	gate := Stage(run.index)
	run.choice = choice
	run.hasChoice = true
	run.results[gate] = choice
	run.status[gate] = StatusSucceeded
	run.index++
	ev := run.eventLocked(gate, StatusSucceeded, choice, nil)
	run.mu.Unlock()
	o.emit(run, ev)

	return o.advance(runCtx, run)
}

// Cancel aborts the in-flight call of the run with the given id and reports
// whether one was in flight. It waits until that call has returned. While the
// run is delivering a notification, for example when an Observer calls
// Cancel, it returns at once instead and the stage fails with ErrCancelled
// after the notification. A cancellation that lands after the last stage
// succeeded leaves the run complete.
func (o *Orchestrator) Cancel(runID string) bool {
	o.mu.Lock()
	run, ok := o.active[runID]
	o.mu.Unlock()
	if !ok {
		return false
	}

	run.mu.Lock()
	cancel, done, notifying := run.cancel, run.done, run.notifying
	run.mu.Unlock()
	if cancel == nil {
		return false
	}

	cancel(ErrCancelled)
	if !notifying {
		<-done
	}
	return true
}

// Reset discards the run. Any in-flight stage is cancelled first and its
// result dropped. Every later operation on the run returns ErrRunDiscarded;
// the next Start begins a fresh run with a new identifier. Reset returns
// ErrRunBusy while the run is delivering a notification, so an Observer
// cannot discard the run it is being notified about.
func (o *Orchestrator) Reset(run *Run) error {
	if run == nil {
		return nil
	}
	run.mu.Lock()
	notifying := run.notifying
	run.mu.Unlock()
	if notifying {
		return ErrRunBusy
	}

	o.Cancel(run.id)

	run.mu.Lock()
	run.discarded = true
	run.artifact = nil
	run.mu.Unlock()
	return nil
}

// emit delivers ev to the observers outside the run lock, flagging the run as
// notifying for the duration.
func (o *Orchestrator) emit(run *Run, ev Event) {
	run.mu.Lock()
	run.notifying = true
	run.mu.Unlock()

	defer func() {
		run.mu.Lock()
		run.notifying = false
		run.mu.Unlock()
	}()
	o.observers.notify(ev)
}

// acquire claims the run for one driving call. The returned release function
// must be called when the call ends.
func (o *Orchestrator) acquire(ctx context.Context, run *Run) (context.Context, func(), error) {
	run.mu.Lock()
	defer run.mu.Unlock()

	if run.discarded {
		return nil, nil, ErrRunDiscarded
	}
	if run.busy {
		return nil, nil, ErrRunBusy
	}

	runCtx, cancel := context.WithCancelCause(ctx)
	done := make(chan struct{})
	run.busy, run.cancel, run.done = true, cancel, done

	o.mu.Lock()
	o.active[run.id] = run
	o.mu.Unlock()

	release := func() {
		o.mu.Lock()
		delete(o.active, run.id)
		o.mu.Unlock()

		run.mu.Lock()
		run.busy, run.cancel, run.done = false, nil, nil
		run.mu.Unlock()

		cancel(context.Canceled)
		close(done)
	}
	return runCtx, release, nil
}

func (o *Orchestrator) advance(ctx context.Context, run *Run) error {
	for {
		run.mu.Lock()
		if run.discarded {
			run.mu.Unlock()
			return ErrRunDiscarded
		}
		if run.idleLocked() {
			run.mu.Unlock()
			return nil
		}

		stage := Stage(run.index)
		if ctx.Err() != nil {
			run.mu.Unlock()
			return o.fail(run, stage, cancelCause(ctx))
		}

		desc := run.stages[stage]
		run.status[stage] = StatusRunning
		ev := run.eventLocked(stage, StatusRunning, nil, nil)
		in := StageInput{
			RunID:    run.id,
			Stage:    stage,
			Artifact: bytes.Clone(run.artifact),
			Prior:    run.results.clone(),
			Choice:   run.choice,
		}
		hasChoice := run.hasChoice
		run.mu.Unlock()
		o.emit(run, ev)

		var payload any
		if desc.HumanGate {
			if !hasChoice {
				return o.suspend(run, stage, in.Prior)
			}
			payload = in.Choice
		} else {
			var err error
			payload, err = o.execute(ctx, stage, in)
			if err != nil {
				return o.fail(run, stage, err)
			}
		}

		if err := o.complete(run, stage, payload); err != nil {
			return err
		}
	}
}

// execute runs the stage executor and waits for it or for cancellation,
// whichever comes first. A result that arrives after cancellation is dropped.
func (o *Orchestrator) execute(ctx context.Context, stage Stage, in StageInput) (any, error) {
	exec := o.executors[stage]

	type outcome struct {
		payload any
		err     error
	}
	done := make(chan outcome, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- outcome{err: fmt.Errorf("executor panic: %v", r)}
			}
		}()
		payload, err := exec.Execute(ctx, in)
		done <- outcome{payload: payload, err: err}
	}()

	select {
	case out := <-done:
		if ctx.Err() != nil {
			return nil, cancelCause(ctx)
		}
		return out.payload, out.err
	case <-ctx.Done():
		return nil, cancelCause(ctx)
	}
}

func (o *Orchestrator) suspend(run *Run, stage Stage, prior Results) error {
	candidates, err := gateCandidates(prior, stage)
	if err != nil {
		return o.fail(run, stage, err)
	}

	run.mu.Lock()
	if run.discarded {
		run.mu.Unlock()
		return ErrRunDiscarded
	}
	run.status[stage] = StatusAwaitingInput
	run.candidates = candidates
	ev := run.eventLocked(stage, StatusAwaitingInput, append([]Candidate(nil), candidates...), nil)
	run.mu.Unlock()
	o.emit(run, ev)
	return nil
}

func (o *Orchestrator) complete(run *Run, stage Stage, payload any) error {
	run.mu.Lock()
	if run.discarded {
		run.mu.Unlock()
		return ErrRunDiscarded
	}
	run.results[stage] = payload
	run.status[stage] = StatusSucceeded
	run.index++
	ev := run.eventLocked(stage, StatusSucceeded, payload, nil)
	run.mu.Unlock()
	o.emit(run, ev)
	return nil
}

func (o *Orchestrator) fail(run *Run, stage Stage, cause error) error {
	run.mu.Lock()
	if run.discarded {
		run.mu.Unlock()
		return ErrRunDiscarded
	}
	execErr := &ExecutionError{Stage: stage, Cause: cause}
	run.status[stage] = StatusFailed
	run.err = execErr
	ev := run.eventLocked(stage, StatusFailed, nil, execErr)
	run.mu.Unlock()
	o.emit(run, ev)
	return execErr
}

// cancelCause converts a done context into an error matching ErrCancelled
// while keeping the original cause (deadline, parent cancellation).
func cancelCause(ctx context.Context) error {
	cause := context.Cause(ctx)
	if errors.Is(cause, ErrCancelled) {
		return cause
	}
	return fmt.Errorf("%w: %w", ErrCancelled, cause)
}
