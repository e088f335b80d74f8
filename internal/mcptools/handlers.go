package mcptools

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/dusk-indust/datawizard/internal/dataset"
	"github.com/dusk-indust/datawizard/internal/orchestrator"
	"github.com/dusk-indust/datawizard/internal/report"
	"github.com/dusk-indust/datawizard/internal/session"
)

// WizardService handles the MCP tool calls of the wizard server. Stage
// failures are reported in the output; unknown runs, bad input and invalid
// choices are tool errors.
type WizardService struct {
	mgr *session.Manager
	now func() time.Time
}

// NewWizardService returns a WizardService over mgr.
func NewWizardService(mgr *session.Manager) *WizardService {
	return &WizardService{mgr: mgr, now: time.Now}
}

// StartRun uploads a dataset and runs the wizard up to the analysis
// selection.
func (s *WizardService) StartRun(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input StartRunInput,
) (*mcp.CallToolResult, RunOutput, error) {
	var data []byte
	name := input.Name
	switch {
	case input.Path != "":
		var err error
		data, err = dataset.ReadUpload(input.Path)
		if err != nil {
			return nil, RunOutput{}, err
		}
		if name == "" {
			name = filepath.Base(input.Path)
		}
	case input.Content != "":
		data = []byte(input.Content)
		if name == "" {
			name = "inline.csv"
		}
	default:
		return nil, RunOutput{}, errors.New("either path or content is required")
	}

	snap, err := s.mgr.Start(ctx, name, data)
	if errors.Is(err, orchestrator.ErrInvalidInput) {
		return nil, RunOutput{}, err
	}
	return nil, s.runOutput(name, snap), nil
}

// GetRun reports the state and results of a run.
func (s *WizardService) GetRun(
	_ context.Context,
	_ *mcp.CallToolRequest,
	input RunIDInput,
) (*mcp.CallToolResult, RunOutput, error) {
	e, err := s.mgr.Entry(input.RunID)
	if err != nil {
		return nil, RunOutput{}, err
	}
	return nil, s.runOutput(e.Name, e.Run.Snapshot()), nil
}

// ResumeRun supplies the analysis choice and runs the remaining stages.
func (s *WizardService) ResumeRun(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input ResumeRunInput,
) (*mcp.CallToolResult, RunOutput, error) {
	e, err := s.mgr.Entry(input.RunID)
	if err != nil {
		return nil, RunOutput{}, err
	}

	snap := e.Run.Snapshot()
	choice, ok := orchestrator.MatchCandidate(snap.Candidates, input.Choice)
	if !ok {
		choice = input.Choice
	}

	snap, err = s.mgr.Resume(ctx, input.RunID, choice)
	var execErr *orchestrator.ExecutionError
	if err != nil && !errors.As(err, &execErr) {
		if errors.Is(err, orchestrator.ErrInvalidChoice) {
			return nil, RunOutput{}, fmt.Errorf("%w; choose one of: %s", err, labels(snap.Candidates))
		}
		return nil, RunOutput{}, err
	}
	return nil, s.runOutput(e.Name, snap), nil
}

// CancelRun aborts the stage a run is currently executing.
func (s *WizardService) CancelRun(
	_ context.Context,
	_ *mcp.CallToolRequest,
	input RunIDInput,
) (*mcp.CallToolResult, CancelRunOutput, error) {
	return nil, CancelRunOutput{Cancelled: s.mgr.Cancel(input.RunID)}, nil
}

// ResetRun discards a run.
func (s *WizardService) ResetRun(
	_ context.Context,
	_ *mcp.CallToolRequest,
	input RunIDInput,
) (*mcp.CallToolResult, ResetRunOutput, error) {
	if err := s.mgr.Reset(input.RunID); err != nil {
		return nil, ResetRunOutput{}, err
	}
	return nil, ResetRunOutput{Reset: true}, nil
}

// ExportRun renders a run report.
func (s *WizardService) ExportRun(
	_ context.Context,
	_ *mcp.CallToolRequest,
	input ExportRunInput,
) (*mcp.CallToolResult, ExportRunOutput, error) {
	format := report.FormatMarkdown
	if input.Format != "" {
		var err error
		if format, err = report.ParseFormat(input.Format); err != nil {
			return nil, ExportRunOutput{}, err
		}
	}
	e, err := s.mgr.Entry(input.RunID)
	if err != nil {
		return nil, ExportRunOutput{}, err
	}

	var b strings.Builder
	if err := report.Write(&b, report.Build(e.Name, e.Run.Snapshot(), s.now()), format); err != nil {
		return nil, ExportRunOutput{}, err
	}
	return nil, ExportRunOutput{Format: string(format), Content: b.String()}, nil
}

// ListRuns pages through the runs held by the server.
func (s *WizardService) ListRuns(
	_ context.Context,
	_ *mcp.CallToolRequest,
	input ListRunsInput,
) (*mcp.CallToolResult, ListRunsOutput, error) {
	resp, err := s.mgr.List(session.ListRequest{
		State:     orchestrator.Status(input.State),
		PageToken: input.PageToken,
		PageSize:  input.PageSize,
	})
	if err != nil {
		return nil, ListRunsOutput{}, err
	}

	out := ListRunsOutput{Runs: []RunSummary{}, TotalSize: resp.TotalSize, NextPageToken: resp.NextPageToken}
	for _, r := range resp.Runs {
		out.Runs = append(out.Runs, RunSummary{
			RunID:   r.ID,
			Name:    r.Name,
			State:   string(r.State),
			Stage:   r.Stage,
			Created: r.Created.UTC().Format(time.RFC3339),
		})
	}
	return nil, out, nil
}

func (s *WizardService) runOutput(name string, snap orchestrator.Snapshot) RunOutput {
	rep := report.Build(name, snap, s.now())
	out := RunOutput{
		RunID:     snap.ID,
		Name:      name,
		State:     rep.State,
		Stages:    rep.Stages,
		Choice:    snap.Choice,
		Error:     rep.Error,
		Discarded: snap.Discarded,
	}
	if d, ok := snap.Current(); ok {
		out.Stage = d.Name
	}
	if snap.AwaitingInput() {
		for i, c := range snap.Candidates {
			out.Candidates = append(out.Candidates, CandidateOutput{Number: i + 1, Label: c.Label, Description: c.Description})
		}
	}
	return out
}

func labels(cands []orchestrator.Candidate) string {
	out := make([]string, 0, len(cands))
	for _, c := range cands {
		out = append(out, c.Label)
	}
	return strings.Join(out, ", ")
}
