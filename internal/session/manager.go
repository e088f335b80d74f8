package session

import (
	"context"
	"errors"
	"time"

	"github.com/dusk-indust/datawizard/internal/orchestrator"
)

// Manager drives stored runs. With reset on failure enabled, a run whose
// stage fails is reported once and then discarded, returning the caller to
// the unstarted state.
type Manager struct {
	orch           *orchestrator.Orchestrator
	store          *Store
	resetOnFailure bool
	now            func() time.Time
}

// Option configures a Manager.
type Option func(*Manager)

// WithKeepFailed retains failed runs so they can be inspected and reset
// explicitly.
func WithKeepFailed() Option {
	return func(m *Manager) {
		m.resetOnFailure = false
	}
}

// WithStore shares an existing Store.
func WithStore(s *Store) Option {
	return func(m *Manager) {
		m.store = s
	}
}

// NewManager returns a Manager over orch.
func NewManager(orch *orchestrator.Orchestrator, opts ...Option) *Manager {
	m := &Manager{
		orch:           orch,
		store:          NewStore(),
		resetOnFailure: true,
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Orchestrator returns the underlying orchestrator.
func (m *Manager) Orchestrator() *orchestrator.Orchestrator {
	return m.orch
}

// Start begins a run over input and drives it to its gate or its end. The
// returned snapshot reflects the run even when a stage failed.
func (m *Manager) Start(ctx context.Context, name string, input []byte) (orchestrator.Snapshot, error) {
	run, err := m.orch.Start(ctx, input)
	if run == nil {
		return orchestrator.Snapshot{}, err
	}
	if addErr := m.store.Add(Entry{Name: name, Run: run, Created: m.now()}); addErr != nil {
		return run.Snapshot(), addErr
	}
	return m.settle(run, err)
}

// Get returns the snapshot of run id.
func (m *Manager) Get(id string) (orchestrator.Snapshot, error) {
	e, err := m.store.Get(id)
	if err != nil {
		return orchestrator.Snapshot{}, err
	}
	return e.Run.Snapshot(), nil
}

// Resume supplies the gate decision for run id. An invalid choice leaves the
// run suspended.
func (m *Manager) Resume(ctx context.Context, id, choice string) (orchestrator.Snapshot, error) {
	e, err := m.store.Get(id)
	if err != nil {
		return orchestrator.Snapshot{}, err
	}
	return m.settle(e.Run, m.orch.ResumeWithChoice(ctx, e.Run, choice))
}

// Advance continues run id from its current stage.
func (m *Manager) Advance(ctx context.Context, id string) (orchestrator.Snapshot, error) {
	e, err := m.store.Get(id)
	if err != nil {
		return orchestrator.Snapshot{}, err
	}
	return m.settle(e.Run, m.orch.Advance(ctx, e.Run))
}

// Cancel aborts the in-flight stage of run id. It reports whether a stage
// was in flight.
func (m *Manager) Cancel(id string) bool {
	return m.orch.Cancel(id)
}

// Reset discards run id.
func (m *Manager) Reset(id string) error {
	e, err := m.store.Get(id)
	if err != nil {
		return err
	}
	if err := m.orch.Reset(e.Run); err != nil {
		return err
	}
	m.store.Remove(id)
	return nil
}

// List pages through the stored runs.
func (m *Manager) List(req ListRequest) (*ListResponse, error) {
	return m.store.List(req)
}

func (m *Manager) settle(run *orchestrator.Run, err error) (orchestrator.Snapshot, error) {
	snap := run.Snapshot()
	var execErr *orchestrator.ExecutionError
	if m.resetOnFailure && errors.As(err, &execErr) && m.orch.Reset(run) == nil {
		m.store.Remove(run.ID())
		snap.Discarded = true
	}
	return snap, err
}

// Entry returns the stored entry of run id.
func (m *Manager) Entry(id string) (Entry, error) {
	return m.store.Get(id)
}
