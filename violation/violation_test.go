package violation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cwarden/cwarden/rules"
)

func v(rule, file string, line, col int, sev rules.Severity) Violation {
	return Violation{RuleID: rule, File: file, Line: line, Column: col, Severity: sev}
}

func TestNormalize_DeduplicatesByIdentity(t *testing.T) {
	in := []Violation{
		v("R1", "a.c", 10, 1, rules.SeverityMajor),
		v("R1", "a.c", 10, 1, rules.SeverityMajor),
		v("R1", "a.c", 10, 2, rules.SeverityMajor), // different column survives
		v("R2", "a.c", 10, 1, rules.SeverityMinor), // different rule survives
	}

	out := Normalize(in)
	assert.Len(t, out, 3)
}

func TestNormalize_OrdersByFileLineColumnRule(t *testing.T) {
	in := []Violation{
		v("R2", "b.c", 1, 1, rules.SeverityMinor),
		v("R9", "a.c", 20, 1, rules.SeverityMinor),
		v("R1", "a.c", 5, 9, rules.SeverityMinor),
		v("R1", "a.c", 5, 2, rules.SeverityMinor),
		v("R5", "a.c", 5, 2, rules.SeverityMinor),
	}

	out := Normalize(in)
	require.Len(t, out, 5)

	type pos struct {
		rule string
		file string
		line int
		col  int
	}
	var got []pos
	for _, x := range out {
		got = append(got, pos{x.RuleID, x.File, x.Line, x.Column})
	}
	assert.Equal(t, []pos{
		{"R1", "a.c", 5, 2},
		{"R5", "a.c", 5, 2},
		{"R1", "a.c", 5, 9},
		{"R9", "a.c", 20, 1},
		{"R2", "b.c", 1, 1},
	}, got)
}

func TestNormalize_Empty(t *testing.T) {
	assert.Empty(t, Normalize(nil))
}

func TestSummarize_CountsBySeverityAndRule(t *testing.T) {
	results := []ScanResult{
		{File: "a.c", Violations: []Violation{
			v("R1", "a.c", 1, 1, rules.SeverityCritical),
			v("R1", "a.c", 2, 1, rules.SeverityCritical),
			v("R2", "a.c", 3, 1, rules.SeverityMinor),
		}},
		{File: "b.c", Violations: []Violation{
			v("R3", "b.c", 1, 1, rules.SeverityMajor),
		}},
		FailedResult("c.c", "parse error"),
	}

	s := Summarize(results)
	assert.Equal(t, 3, s.Files)
	assert.Equal(t, 1, s.FailedFiles)
	assert.Equal(t, 4, s.Total)
	assert.Equal(t, 2, s.BySeverity[rules.SeverityCritical])
	assert.Equal(t, 1, s.BySeverity[rules.SeverityMajor])
	assert.Equal(t, 1, s.BySeverity[rules.SeverityMinor])
	assert.Equal(t, 2, s.ByRule["R1"])
	assert.Equal(t, 1, s.ByRule["R2"])
	assert.Equal(t, 1, s.ByRule["R3"])
}

func TestSummary_ActionableIgnoresMinor(t *testing.T) {
	s := Summarize([]ScanResult{{File: "a.c", Violations: []Violation{
		v("R1", "a.c", 1, 1, rules.SeverityCritical),
		v("R2", "a.c", 2, 1, rules.SeverityMajor),
		v("R3", "a.c", 3, 1, rules.SeverityMinor),
		v("R3", "a.c", 4, 1, rules.SeverityMinor),
	}}})

	assert.Equal(t, 2, s.Actionable())
}

func TestSummarize_CleanRun(t *testing.T) {
	s := Summarize([]ScanResult{{File: "a.c"}, {File: "b.c"}})
	assert.Equal(t, 2, s.Files)
	assert.Equal(t, 0, s.Total)
	assert.Equal(t, 0, s.Actionable())
}

func TestFailedResult(t *testing.T) {
	r := FailedResult("x.c", "unreadable")
	assert.True(t, r.Failed)
	assert.Equal(t, "x.c", r.File)
	assert.Equal(t, "unreadable", r.Diagnostic)
	assert.Empty(t, r.Violations)
}
