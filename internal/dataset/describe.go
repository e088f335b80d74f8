package dataset

import (
	"bytes"
	"fmt"
	"strings"
	"unicode/utf8"
)

// Describe renders the profile as compact text for prompts.
func (p *Profile) Describe() string {
	var b strings.Builder
	b.WriteString("[DATASET SUMMARY]\n")
	if p.Name != "" {
		fmt.Fprintf(&b, "File: %s\n", p.Name)
	}
	if p.Processed > 0 && p.Processed < p.Rows {
		fmt.Fprintf(&b, "Rows: ~%d (processed %d)\n", p.Rows, p.Processed)
	} else {
		fmt.Fprintf(&b, "Rows: %d\n", p.Rows)
	}
	fmt.Fprintf(&b, "Columns: %d\n", len(p.Cols))
	fmt.Fprintf(&b, "Duplicate rows: %d\n", p.Duplicates)
	fmt.Fprintf(&b, "Missing cells: %d\n\n", p.MissingCells())

	b.WriteString("[SCHEMA]\n")
	for _, c := range p.Cols {
		total := c.NonNull + c.Missing
		missPct := 0.0
		if total > 0 {
			missPct = float64(c.Missing) * 100.0 / float64(total)
		}
		fmt.Fprintf(&b, "- %s: %s (non-null %d, missing %.1f%%)", safeVal(c.Name), c.Kind, c.NonNull, missPct)
		switch c.Kind {
		case KindNumeric:
			fmt.Fprintf(&b, "; min %.4g, max %.4g, mean %.4g, std %.4g", c.Min, c.Max, c.Mean, c.Std)
		case KindCategorical:
			if len(c.TopValues) > 0 {
				b.WriteString("; top: ")
				for i, kv := range c.TopValues {
					if i > 0 {
						b.WriteString(", ")
					}
					fmt.Fprintf(&b, "%s(%d)", safeVal(kv.Value), kv.Count)
				}
				if c.Unique > len(c.TopValues) {
					fmt.Fprintf(&b, "; unique=%d", c.Unique)
				}
			}
		}
		b.WriteString("\n")
	}

	if len(p.Corr) > 0 {
		b.WriteString("\n[CORRELATIONS]\n")
		for i, pc := range p.Corr {
			if i == 5 {
				break
			}
			fmt.Fprintf(&b, "- %s ~ %s: r=%.2f\n", safeVal(pc.A), safeVal(pc.B), pc.R)
		}
	}

	for _, w := range p.Warnings {
		fmt.Fprintf(&b, "\nWarning: %s\n", w)
	}
	return b.String()
}

// Describe profiles data and renders it, falling back to a minimal
// description when the content is not delimited text.
func Describe(name string, data []byte, opt Options) string {
	p, err := Analyze(name, data, opt)
	if err != nil {
		if name == "" {
			name = "upload"
		}
		return fmt.Sprintf("[DATASET SUMMARY]\nFile: %s\nSize: %d bytes\nThe content could not be profiled as delimited text (%v).\n", name, len(data), err)
	}
	return p.Describe()
}

// Sample returns the leading part of data, at most maxBytes long, cut at the
// last complete line. A single line longer than maxBytes is cut at the last
// rune boundary within maxBytes.
// maxBytes <= 0 returns data unchanged.
func Sample(data []byte, maxBytes int) string {
	if maxBytes <= 0 || len(data) <= maxBytes {
		return string(data)
	}
	head := data[:maxBytes]
	if i := bytes.LastIndexByte(head, '\n'); i > 0 {
		return string(head[:i+1])
	}
	n := maxBytes
	for n > 0 && !utf8.RuneStart(data[n]) {
		n--
	}
	return string(data[:n])
}

// SampleRows returns the header plus up to n data lines.
func SampleRows(data []byte, n int) string {
	lines := bytes.SplitAfterN(data, []byte("\n"), n+2)
	if len(lines) > n+1 {
		lines = lines[:n+1]
	}
	return string(bytes.Join(lines, nil))
}

func safeVal(s string) string {
	return strings.ReplaceAll(strings.ReplaceAll(s, "\n", " "), "|", "/")
}
