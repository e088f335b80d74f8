// Package report exports wizard runs as text, JSON, YAML, Markdown or a
// Mermaid stage diagram.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/dusk-indust/datawizard/internal/flows"
	"github.com/dusk-indust/datawizard/internal/orchestrator"
)

// Format is an export format.
type Format string

const (
	FormatText     Format = "text"
	FormatJSON     Format = "json"
	FormatYAML     Format = "yaml"
	FormatMarkdown Format = "markdown"
	FormatMermaid  Format = "mermaid"
)

// Formats lists the supported formats.
var Formats = []Format{FormatText, FormatJSON, FormatYAML, FormatMarkdown, FormatMermaid}

// ParseFormat validates a format name. "md" is accepted for markdown.
func ParseFormat(s string) (Format, error) {
	if s == "md" {
		return FormatMarkdown, nil
	}
	for _, f := range Formats {
		if string(f) == s {
			return f, nil
		}
	}
	return "", fmt.Errorf("report: unknown format %q", s)
}

// Report is the export structure of one run.
type Report struct {
	RunID      string        `json:"runId" yaml:"run_id"`
	Name       string        `json:"name,omitempty" yaml:"name,omitempty"`
	ExportedAt string        `json:"exportedAt" yaml:"exported_at"`
	State      string        `json:"state" yaml:"state"`
	Choice     string        `json:"choice,omitempty" yaml:"choice,omitempty"`
	Error      string        `json:"error,omitempty" yaml:"error,omitempty"`
	Stages     []StageReport `json:"stages" yaml:"stages"`
}

// StageReport describes one stage of the run.
type StageReport struct {
	Stage  int    `json:"stage" yaml:"stage"`
	Name   string `json:"name" yaml:"name"`
	Label  string `json:"label" yaml:"label"`
	Status string `json:"status" yaml:"status"`
	Gate   bool   `json:"gate,omitempty" yaml:"gate,omitempty"`
	Result any    `json:"result,omitempty" yaml:"result,omitempty"`
}

// Build converts a snapshot into a Report.
func Build(name string, snap orchestrator.Snapshot, now time.Time) *Report {
	r := &Report{
		RunID:      snap.ID,
		Name:       name,
		ExportedAt: now.UTC().Format(time.RFC3339),
		State:      string(snap.State()),
		Choice:     snap.Choice,
	}
	if snap.Err != nil {
		r.Error = snap.Err.Error()
	}
	for i, d := range snap.Stages {
		sr := StageReport{
			Stage:  int(d.Index),
			Name:   d.Name,
			Label:  d.Label,
			Status: string(orchestrator.StatusPending),
			Gate:   d.HumanGate,
		}
		if i < len(snap.Status) {
			sr.Status = string(snap.Status[i])
		}
		if res, ok := snap.Results[d.Index]; ok {
			sr.Result = res
		}
		r.Stages = append(r.Stages, sr)
	}
	return r
}

// Write renders r to w in format f.
func Write(w io.Writer, r *Report, f Format) error {
	switch f {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(r)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(r); err != nil {
			return fmt.Errorf("report: encode yaml: %w", err)
		}
		return enc.Close()
	case FormatMarkdown:
		_, err := io.WriteString(w, Markdown(r))
		return err
	case FormatMermaid:
		_, err := io.WriteString(w, Mermaid(r))
		return err
	case FormatText, "":
		_, err := io.WriteString(w, Text(r))
		return err
	}
	return fmt.Errorf("report: unknown format %q", f)
}

// Card is one titled block of a stage result, as shown to the user.
type Card struct {
	Title string
	Body  string
}

// Cards splits a stage result into display cards.
func Cards(result any) []Card {
	switch v := result.(type) {
	case flows.CleaningResult:
		return []Card{{"Cleaning Report", v.Report}, {"Cleaned Dataset", v.CleanedDataset}}
	case flows.EDAResult:
		return []Card{{"EDA Report", v.Report}}
	case flows.Suggestions:
		var b strings.Builder
		for _, t := range v.Types {
			fmt.Fprintf(&b, "- %s\n", t)
		}
		return []Card{{"Suggested Analysis Types", strings.TrimRight(b.String(), "\n")}, {"Reasoning", v.Reasoning}}
	case flows.PreprocessingResult:
		return []Card{{"Preprocessing Steps", v.Steps}}
	case flows.AnalysisResult:
		return []Card{{"Analysis Results", v.Results}, {"Visualization", v.Visualization}}
	case string:
		return []Card{{"Selected Analysis", v}}
	case nil:
		return nil
	}
	return []Card{{"Result", fmt.Sprint(result)}}
}

// Text renders r as plain text.
func Text(r *Report) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Run %s (%s)\n", r.RunID, r.State)
	if r.Name != "" {
		fmt.Fprintf(&b, "Input: %s\n", r.Name)
	}
	if r.Error != "" {
		fmt.Fprintf(&b, "Error: %s\n", r.Error)
	}
	for _, s := range r.Stages {
		fmt.Fprintf(&b, "\n[%d] %s: %s\n", s.Stage+1, s.Label, s.Status)
		for _, c := range Cards(s.Result) {
			fmt.Fprintf(&b, "  %s:\n", c.Title)
			for _, line := range strings.Split(c.Body, "\n") {
				fmt.Fprintf(&b, "    %s\n", line)
			}
		}
	}
	return b.String()
}

// Markdown renders r as a Markdown document.
func Markdown(r *Report) string {
	var b strings.Builder
	title := r.Name
	if title == "" {
		title = r.RunID
	}
	fmt.Fprintf(&b, "# Analysis of %s\n\n", title)
	fmt.Fprintf(&b, "- Run: `%s`\n- State: %s\n- Exported: %s\n", r.RunID, r.State, r.ExportedAt)
	if r.Choice != "" {
		fmt.Fprintf(&b, "- Analysis type: %s\n", r.Choice)
	}
	if r.Error != "" {
		fmt.Fprintf(&b, "- Error: %s\n", r.Error)
	}

	b.WriteString("\n| # | Stage | Status |\n|---|---|---|\n")
	for _, s := range r.Stages {
		fmt.Fprintf(&b, "| %d | %s | %s |\n", s.Stage+1, s.Label, s.Status)
	}

	for _, s := range r.Stages {
		cards := Cards(s.Result)
		if len(cards) == 0 {
			continue
		}
		fmt.Fprintf(&b, "\n## %d. %s\n", s.Stage+1, s.Label)
		for _, c := range cards {
			fmt.Fprintf(&b, "\n### %s\n\n%s\n", c.Title, c.Body)
		}
	}
	return b.String()
}
