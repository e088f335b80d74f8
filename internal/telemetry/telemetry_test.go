package telemetry

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dusk-indust/datawizard/internal/flows"
	"github.com/dusk-indust/datawizard/internal/orchestrator"
)

const csvInput = "a,b\n1,2\n"

func TestLogObserverLevels(t *testing.T) {
	logger, hook := logtest.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)

	orch, err := flows.NewOrchestrator(flows.Config{Mode: flows.ModeMock},
		orchestrator.WithObserver(NewLogObserver(logger, flows.Stages())))
	require.NoError(t, err)

	run, err := orch.Start(context.Background(), []byte(csvInput))
	require.NoError(t, err)

	var gate *logrus.Entry
	for _, e := range hook.AllEntries() {
		assert.Equal(t, run.ID(), e.Data["run"])
		if e.Level == logrus.InfoLevel {
			gate = e
		}
	}
	require.NotNil(t, gate)
	assert.Equal(t, "select", gate.Data["stage"])
	assert.Equal(t, "awaiting-input", gate.Data["status"])
	assert.Equal(t, []string{"Regression", "Classification", "Clustering"}, gate.Data["candidates"])

	first := hook.AllEntries()[0]
	assert.Equal(t, "run started", first.Message)
	assert.Equal(t, logrus.DebugLevel, first.Level)
}

func TestLogObserverFailure(t *testing.T) {
	logger, hook := logtest.NewNullLogger()
	obs := NewLogObserver(logger, flows.Stages())

	boom := errors.New("boom")
	obs.Notify(orchestrator.Event{RunID: "r1", Stage: flows.StageExplore, Index: 1, Status: orchestrator.StatusFailed, Err: boom})

	last := hook.LastEntry()
	require.NotNil(t, last)
	assert.Equal(t, logrus.ErrorLevel, last.Level)
	assert.Equal(t, "explore", last.Data["stage"])
	assert.Equal(t, 1, last.Data["index"])
	assert.Equal(t, boom, last.Data[logrus.ErrorKey])
}

func TestMetricsCompletedRun(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := NewMetrics(reg, flows.Stages())
	require.NoError(t, err)

	orch, err := flows.NewOrchestrator(flows.Config{Mode: flows.ModeMock}, orchestrator.WithObserver(m))
	require.NoError(t, err)

	ctx := context.Background()
	run, err := orch.Start(ctx, []byte(csvInput))
	require.NoError(t, err)
	require.NoError(t, orch.ResumeWithChoice(ctx, run, "Regression"))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.runsStarted))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.runsFinished.WithLabelValues("succeeded")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.runsFinished.WithLabelValues("failed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.transitions.WithLabelValues("select", "awaiting-input")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.transitions.WithLabelValues("analyze", "succeeded")))

	// five executor stages observed, the gate is not timed
	assert.Equal(t, 5, testutil.CollectAndCount(m.stageDuration))
	assert.Empty(t, m.running)
}

func TestMetricsFailedRun(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := NewMetrics(reg, flows.Stages())
	require.NoError(t, err)

	execs := flows.MockExecutors(0)
	execs[flows.StageClean] = orchestrator.ExecutorFunc(func(context.Context, orchestrator.StageInput) (any, error) {
		return nil, errors.New("bad data")
	})
	orch, err := orchestrator.New(flows.Stages(), execs, orchestrator.WithObserver(m))
	require.NoError(t, err)

	_, err = orch.Start(context.Background(), []byte(csvInput))
	require.Error(t, err)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.runsFinished.WithLabelValues("failed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.transitions.WithLabelValues("clean", "failed")))
}

func TestMetricsDoubleRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := NewMetrics(reg, flows.Stages())
	require.NoError(t, err)
	_, err = NewMetrics(reg, flows.Stages())
	assert.Error(t, err)
}
