package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/dusk-indust/datawizard/internal/dataset"
	"github.com/dusk-indust/datawizard/internal/orchestrator"
	"github.com/dusk-indust/datawizard/internal/report"
)

type runOptions struct {
	analysis string
	format   string
	out      string
	quiet    bool
}

func newRunCmd(a *app) *cobra.Command {
	var opts runOptions
	cmd := &cobra.Command{
		Use:   "run FILE",
		Short: "Run the wizard on one dataset, asking for the analysis type on stdin",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()
			return a.runWizard(ctx, args[0], opts)
		},
	}
	cmd.Flags().StringVarP(&opts.analysis, "analysis", "a", "", "analysis type to choose at the selection (label or number); asks on stdin when empty")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "text", "report format: text, json, yaml, markdown or mermaid")
	cmd.Flags().StringVarP(&opts.out, "out", "o", "", "write the report to this file instead of stdout")
	cmd.Flags().BoolVarP(&opts.quiet, "quiet", "q", false, "do not print stage progress")
	return cmd
}

func (a *app) runWizard(ctx context.Context, path string, opts runOptions) error {
	format, err := report.ParseFormat(opts.format)
	if err != nil {
		return err
	}
	data, err := dataset.ReadUpload(path)
	if err != nil {
		return err
	}

	orch, err := a.newOrchestrator(ctx)
	if err != nil {
		return err
	}
	if !opts.quiet {
		unsubscribe := orch.Subscribe(progressPrinter(a.stderr, orch.Stages()))
		defer unsubscribe()
	}

	run, err := orch.Start(ctx, data)
	if err != nil {
		return err
	}

	if run.Snapshot().AwaitingInput() {
		if err := a.choose(ctx, orch, run, opts.analysis); err != nil {
			return err
		}
	}

	name := filepath.Base(path)
	return writeReport(a.stdout, opts.out, report.Build(name, run.Snapshot(), time.Now()), format)
}

// choose resolves the analysis type from the flag or, without one, asks on
// stdin until a valid candidate is entered.
func (a *app) choose(ctx context.Context, orch *orchestrator.Orchestrator, run *orchestrator.Run, preset string) error {
	cands := run.Snapshot().Candidates
	if preset != "" {
		choice, ok := orchestrator.MatchCandidate(cands, preset)
		if !ok {
			return fmt.Errorf("%w: %q (offered: %s)", orchestrator.ErrInvalidChoice, preset, candidateLabels(cands))
		}
		return orch.ResumeWithChoice(ctx, run, choice)
	}

	fmt.Fprintln(a.stderr, "\nSuggested analysis types:")
	for i, c := range cands {
		fmt.Fprintf(a.stderr, "  %d. %s\n", i+1, c.Label)
	}
	if len(cands) > 0 && cands[0].Description != "" {
		fmt.Fprintf(a.stderr, "\n%s\n", cands[0].Description)
	}

	in := bufio.NewReader(a.stdin)
	for {
		fmt.Fprint(a.stderr, "\nChoose an analysis type: ")
		line, readErr := in.ReadString('\n')
		answer := strings.TrimSpace(line)
		if answer != "" {
			if choice, ok := orchestrator.MatchCandidate(cands, answer); ok {
				err := orch.ResumeWithChoice(ctx, run, choice)
				if !errors.Is(err, orchestrator.ErrInvalidChoice) {
					return err
				}
			}
			fmt.Fprintf(a.stderr, "%q is not one of: %s\n", answer, candidateLabels(cands))
		}
		if readErr != nil {
			if errors.Is(readErr, io.EOF) {
				return fmt.Errorf("no analysis type chosen: %w", orchestrator.ErrInvalidChoice)
			}
			return readErr
		}
	}
}

// progressPrinter writes one line per transition.
func progressPrinter(w io.Writer, stages []orchestrator.StageDescriptor) orchestrator.Observer {
	return orchestrator.ObserverFunc(func(ev orchestrator.Event) {
		if ev.Status == orchestrator.StatusPending {
			return
		}
		label := ""
		if int(ev.Stage) < len(stages) {
			label = stages[ev.Stage].Label
		}
		fmt.Fprintln(w, orchestrator.FormatProgress(ev, label))
	})
}

func candidateLabels(cands []orchestrator.Candidate) string {
	out := make([]string, 0, len(cands))
	for _, c := range cands {
		out = append(out, c.Label)
	}
	return strings.Join(out, ", ")
}

func writeReport(stdout io.Writer, path string, r *report.Report, format report.Format) error {
	if path == "" {
		return report.Write(stdout, r, format)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := report.Write(f, r, format); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
