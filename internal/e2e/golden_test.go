//go:build e2e

package e2e

import (
	"bytes"
	"context"
	"flag"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dusk-indust/datawizard/internal/flows"
	"github.com/dusk-indust/datawizard/internal/orchestrator"
	"github.com/dusk-indust/datawizard/internal/report"
)

var update = flag.Bool("update", false, "update golden files")

var goldenFiles = []struct {
	format report.Format
	golden string
}{
	{report.FormatMarkdown, "regression.md"},
	{report.FormatMermaid, "regression.mmd"},
}

// runForGolden drives the mock wizard over the customers fixture, choosing
// Regression, and returns the export structure.
func runForGolden(t *testing.T) *report.Report {
	t.Helper()

	orch, err := flows.NewOrchestrator(flows.Config{Mode: flows.ModeMock},
		orchestrator.WithIDGenerator(func() string { return "golden-run" }))
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	run, err := orch.Start(ctx, fixture(t, "customers.csv"))
	require.NoError(t, err)
	require.True(t, run.Snapshot().AwaitingInput())
	require.NoError(t, orch.ResumeWithChoice(ctx, run, "Regression"))

	snap := run.Snapshot()
	require.True(t, snap.Complete())
	return report.Build("customers.csv", snap, goldenTime)
}

// TestGolden compares exports against golden files. Missing golden files are
// skipped with a hint to run with -update.
func TestGolden(t *testing.T) {
	r := runForGolden(t)

	for _, gf := range goldenFiles {
		t.Run(gf.golden, func(t *testing.T) {
			golden, err := os.ReadFile(filepath.Join(goldenDir(), gf.golden))
			if os.IsNotExist(err) {
				t.Skipf("golden file %s not found; run with -update to generate", gf.golden)
				return
			}
			require.NoError(t, err)

			var buf bytes.Buffer
			require.NoError(t, report.Write(&buf, r, gf.format))
			assert.Equal(t, string(golden), buf.String(), "%s export does not match golden file", gf.format)
		})
	}
}

// TestUpdateGolden regenerates the golden files.
// Run with: go test -tags e2e -run TestUpdateGolden ./internal/e2e/ -update
func TestUpdateGolden(t *testing.T) {
	if !*update {
		t.Skip("skipping golden file update; run with -update flag")
	}

	r := runForGolden(t)
	require.NoError(t, os.MkdirAll(goldenDir(), 0o755))

	for _, gf := range goldenFiles {
		var buf bytes.Buffer
		require.NoError(t, report.Write(&buf, r, gf.format))
		require.NoError(t, os.WriteFile(filepath.Join(goldenDir(), gf.golden), buf.Bytes(), 0o644))
		t.Logf("updated %s", gf.golden)
	}
}
