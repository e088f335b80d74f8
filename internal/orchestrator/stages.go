package orchestrator

import (
	"errors"
	"fmt"
)

// validateStages checks that stages form a dense, ordered sequence with at
// most one human gate, that the gate has a predecessor to supply its
// candidates, and that every other stage has an executor.
func validateStages(stages []StageDescriptor, executors map[Stage]StageExecutor) error {
	if len(stages) == 0 {
		return errors.New("orchestrator: no stages")
	}

	names := make(map[string]bool, len(stages))
	gates := 0
	for i, desc := range stages {
		if desc.Index != Stage(i) {
			return fmt.Errorf("orchestrator: stage %q has index %d, want %d", desc.Name, desc.Index, i)
		}
		if desc.Name == "" {
			return fmt.Errorf("orchestrator: stage %d has no name", i)
		}
		if names[desc.Name] {
			return fmt.Errorf("orchestrator: duplicate stage name %q", desc.Name)
		}
		names[desc.Name] = true

		_, hasExec := executors[desc.Index]
		if desc.HumanGate {
			gates++
			if i == 0 {
				return fmt.Errorf("orchestrator: human gate %q cannot be the first stage", desc.Name)
			}
			if hasExec {
				return fmt.Errorf("orchestrator: human gate %q must not have an executor", desc.Name)
			}
			continue
		}
		if !hasExec {
			return fmt.Errorf("orchestrator: no executor registered for stage %d (%s)", i, desc.Name)
		}
	}
	if gates > 1 {
		return fmt.Errorf("orchestrator: %d human gates, at most one is supported", gates)
	}

	for stage := range executors {
		if stage < 0 || int(stage) >= len(stages) {
			return fmt.Errorf("orchestrator: executor registered for unknown stage %d", stage)
		}
	}
	return nil
}
