package report

import (
	"fmt"
	"strings"
)

var mermaidClasses = map[string]string{
	"succeeded":      "fill:#d4edda,stroke:#28a745",
	"failed":         "fill:#f8d7da,stroke:#dc3545",
	"running":        "fill:#fff3cd,stroke:#ffc107",
	"awaiting-input": "fill:#cce5ff,stroke:#007bff",
}

// Mermaid renders the stages of r as a left-to-right Mermaid flowchart. Each
// stage is styled by its status; the gate is drawn as a decision node that
// carries the chosen analysis on its outgoing edge.
func Mermaid(r *Report) string {
	var sb strings.Builder
	sb.WriteString("graph LR\n")

	used := make(map[string]bool)
	for i, s := range r.Stages {
		id := fmt.Sprintf("S%d", s.Stage)
		label := escapeMermaid(s.Label)
		if s.Gate {
			sb.WriteString(fmt.Sprintf("  %s{\"%s\"}\n", id, label))
		} else {
			sb.WriteString(fmt.Sprintf("  %s[\"%s\"]\n", id, label))
		}
		if i > 0 {
			prev := fmt.Sprintf("S%d", r.Stages[i-1].Stage)
			if choice, ok := r.Stages[i-1].Result.(string); ok && r.Stages[i-1].Gate {
				sb.WriteString(fmt.Sprintf("  %s -->|%s| %s\n", prev, escapeMermaid(choice), id))
			} else {
				sb.WriteString(fmt.Sprintf("  %s --> %s\n", prev, id))
			}
		}
		if _, ok := mermaidClasses[s.Status]; ok {
			sb.WriteString(fmt.Sprintf("  class %s %s\n", id, className(s.Status)))
			used[s.Status] = true
		}
	}

	for _, status := range []string{"succeeded", "failed", "running", "awaiting-input"} {
		if used[status] {
			sb.WriteString(fmt.Sprintf("  classDef %s %s\n", className(status), mermaidClasses[status]))
		}
	}
	return sb.String()
}

func className(status string) string {
	return strings.ReplaceAll(status, "-", "_")
}

func escapeMermaid(s string) string {
	s = strings.ReplaceAll(s, `"`, "'")
	s = strings.ReplaceAll(s, "|", "/")
	return strings.ReplaceAll(s, "&", "and")
}
