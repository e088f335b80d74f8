package orchestrator

import (
	"fmt"
	"strings"
)

// gateCandidates extracts the candidate set for the gate at stage from the
// result of the stage before it.
func gateCandidates(prior Results, stage Stage) ([]Candidate, error) {
	src, ok := prior[stage-1].(CandidateSet)
	if !ok {
		return nil, fmt.Errorf("%w: stage %d result does not offer candidates", ErrNoCandidates, stage-1)
	}

	raw := src.Candidates()
	seen := make(map[string]bool, len(raw))
	out := make([]Candidate, 0, len(raw))
	for _, c := range raw {
		label := strings.TrimSpace(c.Label)
		if label == "" || seen[label] {
			continue
		}
		seen[label] = true
		out = append(out, Candidate{Label: label, Description: c.Description})
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: stage %d offered an empty set", ErrNoCandidates, stage-1)
	}
	return out, nil
}

func hasCandidate(candidates []Candidate, choice string) bool {
	for _, c := range candidates {
		if c.Label == choice {
			return true
		}
	}
	return false
}

// MatchCandidate resolves free-form user input to a candidate label. It
// accepts an exact label, a case-insensitive label, or a 1-based position.
func MatchCandidate(candidates []Candidate, input string) (string, bool) {
	input = strings.TrimSpace(input)
	if input == "" {
		return "", false
	}
	for _, c := range candidates {
		if c.Label == input {
			return c.Label, true
		}
	}
	for _, c := range candidates {
		if strings.EqualFold(c.Label, input) {
			return c.Label, true
		}
	}
	var n int
	if _, err := fmt.Sscanf(input, "%d", &n); err == nil && fmt.Sprint(n) == input {
		if n >= 1 && n <= len(candidates) {
			return candidates[n-1].Label, true
		}
	}
	return "", false
}
