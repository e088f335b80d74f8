package mcptools

import "github.com/dusk-indust/datawizard/internal/report"

// StartRunInput is the input for the start_run tool.
type StartRunInput struct {
	Path    string `json:"path,omitempty" jsonschema:"path of a .csv, .xls or .xlsx file to analyze"`
	Content string `json:"content,omitempty" jsonschema:"inline CSV content, used when path is empty"`
	Name    string `json:"name,omitempty" jsonschema:"display name of the dataset (default: the file name)"`
}

// RunIDInput is the input of tools addressing one run.
type RunIDInput struct {
	RunID string `json:"runId" jsonschema:"identifier returned by start_run"`
}

// ResumeRunInput is the input for the resume_run tool.
type ResumeRunInput struct {
	RunID  string `json:"runId" jsonschema:"identifier returned by start_run"`
	Choice string `json:"choice" jsonschema:"one of the offered analysis types, by label or 1-based number"`
}

// ExportRunInput is the input for the export_run tool.
type ExportRunInput struct {
	RunID  string `json:"runId" jsonschema:"identifier returned by start_run"`
	Format string `json:"format,omitempty" jsonschema:"text, json, yaml, markdown or mermaid (default: markdown)"`
}

// ListRunsInput is the input for the list_runs tool.
type ListRunsInput struct {
	State     string `json:"state,omitempty" jsonschema:"only runs in this state (pending, running, awaiting-input, succeeded, failed)"`
	PageToken string `json:"pageToken,omitempty" jsonschema:"nextPageToken of the previous page"`
	PageSize  int    `json:"pageSize,omitempty" jsonschema:"maximum number of runs to return (default: all)"`
}

// CandidateOutput is one option offered at the analysis selection.
type CandidateOutput struct {
	Number      int    `json:"number"`
	Label       string `json:"label"`
	Description string `json:"description,omitempty"`
}

// RunOutput describes a run after a tool call.
type RunOutput struct {
	RunID      string               `json:"runId"`
	Name       string               `json:"name,omitempty"`
	State      string               `json:"state"`
	Stage      string               `json:"stage,omitempty"`
	Stages     []report.StageReport `json:"stages"`
	Candidates []CandidateOutput    `json:"candidates,omitempty"`
	Choice     string               `json:"choice,omitempty"`
	Error      string               `json:"error,omitempty"`

	// Discarded is set when a failed run was reset and must be started again.
	Discarded bool `json:"discarded,omitempty"`
}

// CancelRunOutput is the result of the cancel_run tool.
type CancelRunOutput struct {
	Cancelled bool `json:"cancelled"`
}

// ResetRunOutput is the result of the reset_run tool.
type ResetRunOutput struct {
	Reset bool `json:"reset"`
}

// ExportRunOutput is the result of the export_run tool.
type ExportRunOutput struct {
	Format  string `json:"format"`
	Content string `json:"content"`
}

// RunSummary is one entry of list_runs.
type RunSummary struct {
	RunID   string `json:"runId"`
	Name    string `json:"name,omitempty"`
	State   string `json:"state"`
	Stage   string `json:"stage,omitempty"`
	Created string `json:"created"`
}

// ListRunsOutput is the result of the list_runs tool.
type ListRunsOutput struct {
	Runs          []RunSummary `json:"runs"`
	TotalSize     int          `json:"totalSize"`
	NextPageToken string       `json:"nextPageToken,omitempty"`
}
