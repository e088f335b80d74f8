package main

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/dusk-indust/datawizard/internal/dataset"
	"github.com/dusk-indust/datawizard/internal/orchestrator"
	"github.com/dusk-indust/datawizard/internal/report"
)

type batchOptions struct {
	analysis    string
	concurrency int
	failFast    bool
	outDir      string
	format      string
}

func newBatchCmd(a *app) *cobra.Command {
	var opts batchOptions
	cmd := &cobra.Command{
		Use:   "batch FILE...",
		Short: "Run the wizard on several datasets concurrently with one analysis type",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runBatch(cmd, args, opts)
		},
	}
	f := cmd.Flags()
	f.StringVarP(&opts.analysis, "analysis", "a", "", "analysis type chosen for every dataset (label or number)")
	f.IntVarP(&opts.concurrency, "concurrency", "c", 0, "maximum datasets in flight (default from config)")
	f.BoolVar(&opts.failFast, "fail-fast", false, "cancel the remaining datasets after the first failure")
	f.StringVar(&opts.outDir, "out-dir", "", "write one report per dataset into this directory")
	f.StringVarP(&opts.format, "format", "f", "markdown", "report format for --out-dir")
	_ = cmd.MarkFlagRequired("analysis")
	return cmd
}

// expandInputs resolves globs, drops duplicates and sorts the result.
func expandInputs(args []string) ([]string, error) {
	var files []string
	seen := map[string]struct{}{}
	for _, arg := range args {
		matches, _ := filepath.Glob(arg)
		if len(matches) == 0 {
			if _, err := os.Stat(arg); err == nil {
				matches = []string{arg}
			}
		}
		for _, m := range matches {
			if _, ok := seen[m]; ok {
				continue
			}
			seen[m] = struct{}{}
			files = append(files, m)
		}
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no input files matched")
	}
	sort.Strings(files)
	return files, nil
}

func (a *app) runBatch(cmd *cobra.Command, args []string, opts batchOptions) error {
	format, err := report.ParseFormat(opts.format)
	if err != nil {
		return err
	}
	files, err := expandInputs(args)
	if err != nil {
		return err
	}

	jobs := make([]orchestrator.BatchJob, 0, len(files))
	for _, path := range files {
		data, err := dataset.ReadUpload(path)
		if err != nil {
			return err
		}
		jobs = append(jobs, orchestrator.BatchJob{Name: path, Input: data, Choice: opts.analysis})
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	orch, err := a.newOrchestrator(ctx)
	if err != nil {
		return err
	}

	limit := opts.concurrency
	if limit <= 0 {
		limit = a.cfg.BatchConcurrency
	}
	fanOpts := []orchestrator.FanOutOption{orchestrator.WithConcurrency(limit)}
	if opts.failFast {
		fanOpts = append(fanOpts, orchestrator.WithFailFast())
	}

	results, runErr := orchestrator.NewFanOut(orch, fanOpts...).Run(ctx, jobs)

	failed := 0
	now := time.Now()
	names := reportNames{}
	for _, res := range results {
		status := "ok"
		if res.Err != nil {
			failed++
			status = "FAILED: " + res.Err.Error()
		}
		fmt.Fprintf(a.stdout, "%-40s %s\n", res.Name, status)

		if opts.outDir == "" || res.Snapshot.ID == "" {
			continue
		}
		out := filepath.Join(opts.outDir, names.next(res.Name)+"."+extension(format))
		if err := writeReport(a.stdout, out, report.Build(filepath.Base(res.Name), res.Snapshot, now), format); err != nil {
			return err
		}
	}

	if runErr != nil {
		return runErr
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d datasets failed", failed, len(results))
	}
	return nil
}

// reportNames hands out report file names by input base name, adding a
// numeric suffix when two inputs share one.
type reportNames map[string]int

func (n reportNames) next(path string) string {
	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	n[base]++
	if c := n[base]; c > 1 {
		return fmt.Sprintf("%s-%d", base, c)
	}
	return base
}

func extension(f report.Format) string {
	switch f {
	case report.FormatMarkdown:
		return "md"
	case report.FormatMermaid:
		return "mmd"
	case report.FormatText:
		return "txt"
	}
	return string(f)
}
