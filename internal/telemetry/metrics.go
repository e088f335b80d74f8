package telemetry

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/dusk-indust/datawizard/internal/orchestrator"
)

const namespace = "datawizard"

// Metrics records run transitions as Prometheus metrics.
type Metrics struct {
	runsStarted   prometheus.Counter
	runsFinished  *prometheus.CounterVec
	transitions   *prometheus.CounterVec
	stageDuration *prometheus.HistogramVec

	labels map[orchestrator.Stage]string
	last   int
	now    func() time.Time

	mu      sync.Mutex
	running map[runStage]time.Time
}

type runStage struct {
	run   string
	stage orchestrator.Stage
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer, stages []orchestrator.StageDescriptor) (*Metrics, error) {
	m := &Metrics{
		runsStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_started_total",
			Help:      "Runs started.",
		}),
		runsFinished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_finished_total",
			Help:      "Runs that reached a terminal state, by outcome.",
		}, []string{"outcome"}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stage_transitions_total",
			Help:      "Stage status transitions.",
		}, []string{"stage", "status"}),
		stageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Time from a stage starting to it succeeding or failing.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12),
		}, []string{"stage"}),
		labels:  stageNames(stages),
		last:    len(stages) - 1,
		now:     time.Now,
		running: make(map[runStage]time.Time),
	}

	for _, c := range []prometheus.Collector{m.runsStarted, m.runsFinished, m.transitions, m.stageDuration} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Notify implements orchestrator.Observer.
func (m *Metrics) Notify(ev orchestrator.Event) {
	stage := m.labels[ev.Stage]
	m.transitions.WithLabelValues(stage, string(ev.Status)).Inc()

	key := runStage{run: ev.RunID, stage: ev.Stage}
	switch ev.Status {
	case orchestrator.StatusPending:
		m.runsStarted.Inc()
	case orchestrator.StatusRunning:
		m.mu.Lock()
		m.running[key] = m.now()
		m.mu.Unlock()
	case orchestrator.StatusSucceeded, orchestrator.StatusFailed:
		m.observeDuration(key, stage)
		if ev.Status == orchestrator.StatusFailed {
			m.runsFinished.WithLabelValues("failed").Inc()
		} else if int(ev.Stage) == m.last {
			m.runsFinished.WithLabelValues("succeeded").Inc()
		}
	case orchestrator.StatusAwaitingInput:
		m.mu.Lock()
		delete(m.running, key)
		m.mu.Unlock()
	}
}

func (m *Metrics) observeDuration(key runStage, stage string) {
	m.mu.Lock()
	start, ok := m.running[key]
	delete(m.running, key)
	m.mu.Unlock()
	if ok {
		m.stageDuration.WithLabelValues(stage).Observe(m.now().Sub(start).Seconds())
	}
}
