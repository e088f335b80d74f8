package orchestrator

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// BatchJob is one input to drive through the pipeline unattended.
type BatchJob struct {
	// Name identifies the job in results, typically the source file path.
	Name  string
	Input []byte

	// Choice answers the human gate. It is matched against the offered
	// candidates with MatchCandidate.
	Choice string
}

// BatchResult holds the outcome of a single BatchJob.
type BatchResult struct {
	Name     string
	Snapshot Snapshot

	// Err is non-nil if the run could not be started, the choice was
	// rejected, or a stage failed.
	Err error
}

// FanOut drives independent runs of one Orchestrator in parallel. Runs share
// nothing, so each keeps its own sequential stage order.
type FanOut struct {
	orch     *Orchestrator
	limit    int
	failFast bool
}

// FanOutOption configures a FanOut.
type FanOutOption func(*FanOut)

// WithConcurrency caps the number of runs in flight. Zero or less means no cap.
func WithConcurrency(n int) FanOutOption {
	return func(f *FanOut) {
		f.limit = n
	}
}

// WithFailFast cancels the remaining runs once any job fails.
func WithFailFast() FanOutOption {
	return func(f *FanOut) {
		f.failFast = true
	}
}

// NewFanOut creates a FanOut over orch.
func NewFanOut(orch *Orchestrator, opts ...FanOutOption) *FanOut {
	f := &FanOut{orch: orch}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Run drives every job to completion, resolving the gate with the job's
// Choice. All results are returned in job order. The returned error is the
// first job failure when fail-fast is enabled, and nil otherwise.
func (f *FanOut) Run(ctx context.Context, jobs []BatchJob) ([]BatchResult, error) {
	results := make([]BatchResult, len(jobs))
	g, gctx := errgroup.WithContext(ctx)
	if f.limit > 0 {
		g.SetLimit(f.limit)
	}

	for i, job := range jobs {
		g.Go(func() error {
			snap, err := f.drive(gctx, job)
			results[i] = BatchResult{Name: job.Name, Snapshot: snap, Err: err}
			if err != nil && f.failFast {
				return fmt.Errorf("fanout: %s: %w", job.Name, err)
			}
			return nil
		})
	}

	err := g.Wait()
	return results, err
}

func (f *FanOut) drive(ctx context.Context, job BatchJob) (Snapshot, error) {
	run, err := f.orch.Start(ctx, job.Input)
	if run == nil {
		return Snapshot{}, err
	}
	if err != nil {
		return run.Snapshot(), err
	}

	snap := run.Snapshot()
	if !snap.AwaitingInput() {
		return snap, nil
	}

	choice, ok := MatchCandidate(snap.Candidates, job.Choice)
	if !ok {
		return snap, fmt.Errorf("%w: %q", ErrInvalidChoice, job.Choice)
	}
	err = f.orch.ResumeWithChoice(ctx, run, choice)
	return run.Snapshot(), err
}
