// Package telemetry provides orchestrator observers that log transitions and
// record Prometheus metrics.
package telemetry

import (
	"github.com/sirupsen/logrus"

	"github.com/dusk-indust/datawizard/internal/orchestrator"
)

// LogObserver logs every run transition. Failures are logged at error level,
// gate suspensions at info and everything else at debug.
type LogObserver struct {
	log    logrus.FieldLogger
	labels map[orchestrator.Stage]string
}

// NewLogObserver returns a LogObserver writing to log. Stage names are taken
// from stages.
func NewLogObserver(log logrus.FieldLogger, stages []orchestrator.StageDescriptor) *LogObserver {
	return &LogObserver{log: log, labels: stageNames(stages)}
}

// Notify implements orchestrator.Observer.
func (l *LogObserver) Notify(ev orchestrator.Event) {
	entry := l.log.WithFields(logrus.Fields{
		"run":    ev.RunID,
		"stage":  l.labels[ev.Stage],
		"status": string(ev.Status),
		"index":  ev.Index,
	})

	switch ev.Status {
	case orchestrator.StatusFailed:
		entry.WithError(ev.Err).Error("stage failed")
	case orchestrator.StatusAwaitingInput:
		entry.WithField("candidates", candidateLabels(ev.Payload)).Info("awaiting input")
	case orchestrator.StatusSucceeded:
		entry.Debug("stage succeeded")
	case orchestrator.StatusRunning:
		entry.Debug("stage running")
	default:
		entry.Debug("run started")
	}
}

func candidateLabels(payload any) []string {
	cands, _ := payload.([]orchestrator.Candidate)
	out := make([]string, 0, len(cands))
	for _, c := range cands {
		out = append(out, c.Label)
	}
	return out
}

func stageNames(stages []orchestrator.StageDescriptor) map[orchestrator.Stage]string {
	out := make(map[orchestrator.Stage]string, len(stages))
	for _, d := range stages {
		out[d.Index] = d.Name
	}
	return out
}
