package ai

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// RuntimeFactory builds a Runtime from the generic config below.
type RuntimeFactory func(RuntimeConfig) Runtime

// RuntimeConfig carries common knobs used by runtimes.
type RuntimeConfig struct {
	HTTPTimeout time.Duration

	// OpenRouter
	APIKey  string
	BaseURL string

	// Ollama
	Host string
}

var (
	registryMu sync.RWMutex
	registry   = map[string]RuntimeFactory{}
)

// RegisterRuntime registers a provider name with its factory.
func RegisterRuntime(name string, f RuntimeFactory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[name] = f
}

// GetRuntime creates a Runtime for the given provider if registered.
func GetRuntime(name string, cfg RuntimeConfig) (Runtime, bool) {
	registryMu.RLock()
	f, ok := registry[name]
	registryMu.RUnlock()
	if !ok {
		return nil, false
	}
	return f(cfg), true
}

// Providers lists the registered provider names in sorted order.
func Providers() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func init() {
	RegisterRuntime(ProviderOpenRouter, func(c RuntimeConfig) Runtime {
		return NewClient(c.APIKey, c.BaseURL, c.HTTPTimeout)
	})
	RegisterRuntime(ProviderOllama, func(c RuntimeConfig) Runtime {
		return NewOllamaClient(c.Host, c.HTTPTimeout)
	})
}

// ErrNoRuntime is returned by DetectProvider when no runtime is usable.
var ErrNoRuntime = errors.New("ai: no runtime available: set an api key or start ollama")

// DetectProvider picks a provider for live execution: OpenRouter when an
// API key is configured, otherwise a local Ollama if it answers within
// pingTimeout.
func DetectProvider(ctx context.Context, cfg RuntimeConfig, pingTimeout time.Duration) (string, error) {
	if cfg.APIKey != "" {
		logrus.WithField("provider", ProviderOpenRouter).Debug("ai: api key configured")
		return ProviderOpenRouter, nil
	}

	if pingTimeout <= 0 {
		pingTimeout = 500 * time.Millisecond
	}
	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	if err := NewOllamaClient(cfg.Host, pingTimeout).Ping(pingCtx); err != nil {
		logrus.WithError(err).Debug("ai: ollama ping failed")
		return "", ErrNoRuntime
	}
	logrus.WithField("provider", ProviderOllama).Debug("ai: ollama detected")
	return ProviderOllama, nil
}
