// Package violation provides the canonical violation records the engine
// emits, per-file scan results, and run-level aggregation: deduplication,
// stable ordering, and severity summaries.
package violation

import (
	"sort"

	"github.com/cwarden/cwarden/rules"
	"github.com/cwarden/cwarden/tree"
)

// Violation is one rule deviation at a precise source position. Violations
// are immutable once created and always reference a rule that exists in
// the set used for the scan.
type Violation struct {
	RuleID    string         `json:"rule_id"`
	Severity  rules.Severity `json:"severity"`
	File      string         `json:"file"`
	Line      int            `json:"line"`
	Column    int            `json:"column"`
	Snippet   string         `json:"snippet,omitempty"`
	Message   string         `json:"message"`
	Guidance  string         `json:"guidance,omitempty"`
	Reference string         `json:"reference,omitempty"`
}

// ScanResult is the outcome of scanning one file. When Failed is set the
// file could not be analyzed and Diagnostic explains why; Violations is
// then empty. Structural warnings are recorded but never count as
// violations.
type ScanResult struct {
	File       string         `json:"file"`
	Violations []Violation    `json:"violations"`
	Warnings   []tree.Warning `json:"warnings,omitempty"`
	Failed     bool           `json:"failed,omitempty"`
	Diagnostic string         `json:"diagnostic,omitempty"`
}

// FailedResult builds the ScanResult for a file that could not be analyzed.
func FailedResult(file, diagnostic string) ScanResult {
	return ScanResult{File: file, Failed: true, Diagnostic: diagnostic}
}

// Normalize deduplicates and orders violations. Two violations are
// identical when they share (ruleId, file, line, column); duplicates
// collapse to one. The result is ascending by (file, line, column, ruleId).
func Normalize(vs []Violation) []Violation {
	type key struct {
		rule string
		file string
		line int
		col  int
	}
	seen := make(map[key]bool, len(vs))
	out := make([]Violation, 0, len(vs))
	for _, v := range vs {
		k := key{v.RuleID, v.File, v.Line, v.Column}
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, v)
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.File != b.File {
			return a.File < b.File
		}
		if a.Line != b.Line {
			return a.Line < b.Line
		}
		if a.Column != b.Column {
			return a.Column < b.Column
		}
		return a.RuleID < b.RuleID
	})
	return out
}

// Summary is read-only derived data computed once per completed scan:
// violation counts per severity level and per rule id.
type Summary struct {
	Files       int                    `json:"files"`
	FailedFiles int                    `json:"failed_files"`
	Total       int                    `json:"total"`
	BySeverity  map[rules.Severity]int `json:"by_severity"`
	ByRule      map[string]int         `json:"by_rule"`
}

// Summarize computes the severity summary across per-file results.
func Summarize(results []ScanResult) Summary {
	s := Summary{
		BySeverity: make(map[rules.Severity]int),
		ByRule:     make(map[string]int),
	}
	for _, res := range results {
		s.Files++
		if res.Failed {
			s.FailedFiles++
			continue
		}
		for _, v := range res.Violations {
			s.Total++
			s.BySeverity[v.Severity]++
			s.ByRule[v.RuleID]++
		}
	}
	return s
}

// Actionable returns the number of critical and major violations, the
// count exit-status policy is based on.
func (s Summary) Actionable() int {
	return s.BySeverity[rules.SeverityCritical] + s.BySeverity[rules.SeverityMajor]
}
