package session

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dusk-indust/datawizard/internal/flows"
	"github.com/dusk-indust/datawizard/internal/orchestrator"
)

const csvInput = "a,b\n1,2\n3,4\n"

func newMockManager(t *testing.T, opts ...Option) *Manager {
	t.Helper()
	seq := 0
	orch, err := flows.NewOrchestrator(flows.Config{Mode: flows.ModeMock}, orchestrator.WithIDGenerator(func() string {
		seq++
		return fmt.Sprintf("run-%d", seq)
	}))
	require.NoError(t, err)
	return NewManager(orch, opts...)
}

func newFailingManager(t *testing.T, opts ...Option) *Manager {
	t.Helper()
	execs := flows.MockExecutors(0)
	execs[flows.StageExplore] = orchestrator.ExecutorFunc(func(context.Context, orchestrator.StageInput) (any, error) {
		return nil, errors.New("model unavailable")
	})
	orch, err := orchestrator.New(flows.Stages(), execs)
	require.NoError(t, err)
	return NewManager(orch, opts...)
}

func TestManagerStartAndResume(t *testing.T) {
	m := newMockManager(t)
	ctx := context.Background()

	snap, err := m.Start(ctx, "data.csv", []byte(csvInput))
	require.NoError(t, err)
	assert.Equal(t, "run-1", snap.ID)
	assert.True(t, snap.AwaitingInput())

	got, err := m.Get("run-1")
	require.NoError(t, err)
	assert.Equal(t, orchestrator.StatusAwaitingInput, got.State())

	snap, err = m.Resume(ctx, "run-1", "Nope")
	require.ErrorIs(t, err, orchestrator.ErrInvalidChoice)
	assert.True(t, snap.AwaitingInput())

	snap, err = m.Resume(ctx, "run-1", "Classification")
	require.NoError(t, err)
	assert.True(t, snap.Complete())
	assert.Equal(t, orchestrator.StatusSucceeded, snap.State())
}

func TestManagerInvalidInputStoresNothing(t *testing.T) {
	m := newMockManager(t)

	_, err := m.Start(context.Background(), "empty.csv", []byte("  \n"))
	require.ErrorIs(t, err, orchestrator.ErrInvalidInput)
	assert.Equal(t, 0, m.store.Len())
}

func TestManagerResetsOnFailure(t *testing.T) {
	m := newFailingManager(t)

	snap, err := m.Start(context.Background(), "data.csv", []byte(csvInput))
	var execErr *orchestrator.ExecutionError
	require.ErrorAs(t, err, &execErr)
	assert.Equal(t, flows.StageExplore, execErr.Stage)
	assert.True(t, snap.Failed())
	assert.True(t, snap.Discarded)

	_, err = m.Get(snap.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestManagerKeepFailed(t *testing.T) {
	m := newFailingManager(t, WithKeepFailed())

	snap, err := m.Start(context.Background(), "data.csv", []byte(csvInput))
	require.Error(t, err)
	assert.False(t, snap.Discarded)

	got, err := m.Get(snap.ID)
	require.NoError(t, err)
	assert.Equal(t, orchestrator.StatusFailed, got.State())

	require.NoError(t, m.Reset(snap.ID))
	_, err = m.Get(snap.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, m.Reset(snap.ID), ErrNotFound)
}

func TestManagerUnknownRun(t *testing.T) {
	m := newMockManager(t)
	ctx := context.Background()

	_, err := m.Resume(ctx, "missing", "x")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = m.Advance(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.False(t, m.Cancel("missing"))
}

func TestManagerCancelInFlight(t *testing.T) {
	started := make(chan string, 1)
	execs := flows.MockExecutors(0)
	execs[flows.StageClean] = orchestrator.ExecutorFunc(func(ctx context.Context, in orchestrator.StageInput) (any, error) {
		started <- in.RunID
		<-ctx.Done()
		return nil, ctx.Err()
	})
	orch, err := orchestrator.New(flows.Stages(), execs)
	require.NoError(t, err)
	m := NewManager(orch)

	type result struct {
		snap orchestrator.Snapshot
		err  error
	}
	done := make(chan result, 1)
	go func() {
		snap, err := m.Start(context.Background(), "data.csv", []byte(csvInput))
		done <- result{snap, err}
	}()

	id := <-started
	assert.True(t, m.Cancel(id))

	select {
	case res := <-done:
		require.ErrorIs(t, res.err, orchestrator.ErrCancelled)
		assert.True(t, res.snap.Discarded)
	case <-time.After(5 * time.Second):
		t.Fatal("start did not return after cancel")
	}
	assert.Equal(t, 0, m.store.Len())
}

func TestStoreListPagination(t *testing.T) {
	m := newMockManager(t)
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		_, err := m.Start(ctx, fmt.Sprintf("f%d.csv", i), []byte(csvInput))
		require.NoError(t, err)
	}
	_, err := m.Resume(ctx, "run-2", "Regression")
	require.NoError(t, err)

	page, err := m.List(ListRequest{PageSize: 2})
	require.NoError(t, err)
	assert.Equal(t, 5, page.TotalSize)
	require.Len(t, page.Runs, 2)
	assert.Equal(t, "run-1", page.Runs[0].ID)
	assert.Equal(t, "select", page.Runs[0].Stage)
	require.NotEmpty(t, page.NextPageToken)

	page, err = m.List(ListRequest{PageSize: 2, PageToken: page.NextPageToken})
	require.NoError(t, err)
	require.Len(t, page.Runs, 2)
	assert.Equal(t, "run-3", page.Runs[0].ID)
	assert.Equal(t, "run-4", page.Runs[1].ID)

	page, err = m.List(ListRequest{PageToken: page.NextPageToken})
	require.NoError(t, err)
	require.Len(t, page.Runs, 1)
	assert.Empty(t, page.NextPageToken)

	done, err := m.List(ListRequest{State: orchestrator.StatusSucceeded})
	require.NoError(t, err)
	require.Len(t, done.Runs, 1)
	assert.Equal(t, "f1.csv", done.Runs[0].Name)
	assert.Empty(t, done.Runs[0].Stage)

	_, err = m.List(ListRequest{PageToken: "bogus"})
	assert.Error(t, err)
}

func TestStoreListTokenSurvivesRemoval(t *testing.T) {
	m := newMockManager(t)
	ctx := context.Background()
	for i := 0; i < 4; i++ {
		_, err := m.Start(ctx, fmt.Sprintf("f%d.csv", i), []byte(csvInput))
		require.NoError(t, err)
	}

	page, err := m.List(ListRequest{PageSize: 2})
	require.NoError(t, err)
	require.Len(t, page.Runs, 2)
	assert.Equal(t, "run-2", page.Runs[1].ID)

	require.NoError(t, m.Reset("run-2"))

	page, err = m.List(ListRequest{PageSize: 2, PageToken: page.NextPageToken})
	require.NoError(t, err)
	require.Len(t, page.Runs, 2)
	assert.Equal(t, "run-3", page.Runs[0].ID)
	assert.Equal(t, "run-4", page.Runs[1].ID)
	assert.Equal(t, 3, page.TotalSize)
}

func TestStoreAddDuplicate(t *testing.T) {
	m := newMockManager(t)
	_, err := m.Start(context.Background(), "a.csv", []byte(csvInput))
	require.NoError(t, err)

	e, err := m.store.Get("run-1")
	require.NoError(t, err)
	assert.Error(t, m.store.Add(e))
	assert.True(t, m.store.Remove("run-1"))
	assert.False(t, m.store.Remove("run-1"))
}
