package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/dusk-indust/datawizard/internal/ai"
	"github.com/dusk-indust/datawizard/internal/config"
	"github.com/dusk-indust/datawizard/internal/dataset"
	"github.com/dusk-indust/datawizard/internal/flows"
	"github.com/dusk-indust/datawizard/internal/orchestrator"
	"github.com/dusk-indust/datawizard/internal/telemetry"
)

// app holds the process-wide state shared by the subcommands.
type app struct {
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer

	cfgFile   string
	executors string
	verbose   bool

	cfg     *config.Config
	cfgUsed string
	log     *logrus.Logger
}

func newApp(stdin io.Reader, stdout, stderr io.Writer) *app {
	return &app{stdin: stdin, stdout: stdout, stderr: stderr, log: logrus.New()}
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "datawizard",
		Short:         "Guided LLM data analysis of a tabular dataset",
		Long:          "datawizard cleans a dataset, explores it, suggests analysis types, lets you choose one, then preprocesses the data and reports the analysis.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.load(cmd)
		},
	}
	root.SetIn(a.stdin)
	root.SetOut(a.stdout)
	root.SetErr(a.stderr)

	f := root.PersistentFlags()
	f.StringVar(&a.cfgFile, "config", "", "config file (default ./datawizard.yaml or ~/.datawizard/config.yaml)")
	f.StringVar(&a.executors, "executors", "", "executor set: mock or live (overrides config)")
	f.BoolVarP(&a.verbose, "verbose", "v", false, "log every stage transition")

	root.AddCommand(
		newRunCmd(a),
		newWizardCmd(a),
		newBatchCmd(a),
		newServeCmd(a),
		newWatchCmd(a),
		newConfigCmd(a),
		newInitCmd(a),
		newVersionCmd(a),
	)
	return root
}

func (a *app) load(cmd *cobra.Command) error {
	wd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("resolve working dir: %w", err)
	}
	cfg, used, err := config.Load(a.cfgFile, wd)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("executors") {
		if _, err := flows.ParseMode(a.executors); err != nil {
			return err
		}
		cfg.Executors = a.executors
	}
	a.cfg, a.cfgUsed = cfg, used
	return a.configureLogger()
}

func (a *app) configureLogger() error {
	a.log.SetOutput(a.stderr)
	level, err := logrus.ParseLevel(a.cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("log_level: %w", err)
	}
	if a.verbose && level < logrus.DebugLevel {
		level = logrus.DebugLevel
	}
	a.log.SetLevel(level)
	if a.cfg.LogFormat == "json" {
		a.log.SetFormatter(&logrus.JSONFormatter{})
	} else {
		a.log.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})
	}
	// DetectProvider logs through the standard logger
	logrus.SetOutput(a.stderr)
	logrus.SetLevel(level)
	return nil
}

// flowsConfig resolves the executor configuration, selecting and building
// the LLM runtime in live mode.
func (a *app) flowsConfig(ctx context.Context) (flows.Config, error) {
	mode, err := flows.ParseMode(a.cfg.Executors)
	if err != nil {
		return flows.Config{}, err
	}
	fc := flows.Config{Mode: mode, MockDelay: a.cfg.MockDelay()}
	if mode != flows.ModeLive {
		return fc, nil
	}

	rc := ai.RuntimeConfig{
		HTTPTimeout: a.cfg.HTTPTimeout(),
		APIKey:      a.cfg.APIKey,
		BaseURL:     a.cfg.BaseURL,
		Host:        a.cfg.OllamaHost,
	}
	provider := a.cfg.Provider
	if provider == "auto" {
		if provider, err = ai.DetectProvider(ctx, rc, time.Second); err != nil {
			return flows.Config{}, err
		}
	}
	if provider == ai.ProviderOpenRouter && rc.APIKey == "" {
		return flows.Config{}, fmt.Errorf("live executors with %s need api_key (or %s_API_KEY)", provider, config.EnvPrefix)
	}
	rt, ok := ai.GetRuntime(provider, rc)
	if !ok {
		return flows.Config{}, fmt.Errorf("unknown provider %q (available: %s)", provider, strings.Join(ai.Providers(), ", "))
	}
	a.log.WithFields(logrus.Fields{"provider": provider, "model": a.cfg.Model}).Info("using live executors")

	fc.Live = flows.LiveConfig{
		Runtime:     rt,
		Model:       a.cfg.Model,
		MaxTokens:   a.cfg.MaxTokens,
		Temperature: a.cfg.Temperature,
		SampleBytes: a.cfg.SampleBytes,
		Profile:     dataset.DefaultOptions(),
	}
	return fc, nil
}

// newOrchestrator builds the wizard orchestrator with the logging observer
// attached.
func (a *app) newOrchestrator(ctx context.Context, opts ...orchestrator.Option) (*orchestrator.Orchestrator, error) {
	fc, err := a.flowsConfig(ctx)
	if err != nil {
		return nil, err
	}
	opts = append([]orchestrator.Option{
		orchestrator.WithObserver(telemetry.NewLogObserver(a.log, flows.Stages())),
	}, opts...)
	return flows.NewOrchestrator(fc, opts...)
}

func newVersionCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			return nil
		},
		RunE: func(*cobra.Command, []string) error {
			_, err := fmt.Fprintln(a.stdout, version)
			return err
		},
	}
}
