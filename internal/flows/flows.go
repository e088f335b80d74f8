package flows

import (
	"fmt"
	"time"

	"github.com/dusk-indust/datawizard/internal/orchestrator"
)

// Mode selects the executor set.
type Mode string

const (
	ModeMock Mode = "mock"
	ModeLive Mode = "live"
)

// ParseMode validates a mode name.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeMock, ModeLive:
		return Mode(s), nil
	}
	return "", fmt.Errorf("flows: unknown executor mode %q (want %s or %s)", s, ModeMock, ModeLive)
}

// Config selects and configures an executor set.
type Config struct {
	Mode Mode

	// MockDelay is the base pause of the mock executors.
	MockDelay time.Duration

	Live LiveConfig
}

// Executors returns the executor set selected by cfg.Mode.
func Executors(cfg Config) (map[orchestrator.Stage]orchestrator.StageExecutor, error) {
	switch cfg.Mode {
	case ModeMock, "":
		return MockExecutors(cfg.MockDelay), nil
	case ModeLive:
		return LiveExecutors(cfg.Live)
	}
	return nil, fmt.Errorf("flows: unknown executor mode %q", cfg.Mode)
}

// NewOrchestrator builds an orchestrator over the wizard stages.
func NewOrchestrator(cfg Config, opts ...orchestrator.Option) (*orchestrator.Orchestrator, error) {
	execs, err := Executors(cfg)
	if err != nil {
		return nil, err
	}
	return orchestrator.New(Stages(), execs, opts...)
}
