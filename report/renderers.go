package report

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"html/template"
	"io"
	"strconv"
	"strings"

	"github.com/cwarden/cwarden/rules"
)

// JSONRenderer writes the report as indented JSON.
type JSONRenderer struct{}

func (*JSONRenderer) Format() string    { return "json" }
func (*JSONRenderer) Extension() string { return ".json" }

func (*JSONRenderer) Render(w io.Writer, r *Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}

// MarkdownRenderer writes per-file violation tables and a summary section.
type MarkdownRenderer struct{}

func (*MarkdownRenderer) Format() string    { return "markdown" }
func (*MarkdownRenderer) Extension() string { return ".md" }

func (*MarkdownRenderer) Render(w io.Writer, r *Report) error {
	var b strings.Builder
	b.WriteString("# Coding Guideline Report\n\n")
	fmt.Fprintf(&b, "Run `%s`, generated %s.\n\n", r.RunID, r.GeneratedAt.Format("2006-01-02 15:04:05 MST"))

	b.WriteString("## Summary\n\n")
	fmt.Fprintf(&b, "| Files | Failed | Violations | Critical | Major | Minor |\n")
	b.WriteString("|---|---|---|---|---|---|\n")
	fmt.Fprintf(&b, "| %d | %d | %d | %d | %d | %d |\n\n",
		r.Summary.Files, r.Summary.FailedFiles, r.Summary.Total,
		r.Summary.BySeverity[rules.SeverityCritical],
		r.Summary.BySeverity[rules.SeverityMajor],
		r.Summary.BySeverity[rules.SeverityMinor])

	for _, res := range r.Results {
		fmt.Fprintf(&b, "## %s\n\n", res.File)
		if res.Failed {
			fmt.Fprintf(&b, "Not analyzed: %s\n\n", escapePipes(res.Diagnostic))
			continue
		}
		if len(res.Violations) == 0 {
			b.WriteString("No violations.\n\n")
			continue
		}
		b.WriteString("| Line | Rule | Severity | Message | Reference |\n")
		b.WriteString("|---|---|---|---|---|\n")
		for _, v := range res.Violations {
			fmt.Fprintf(&b, "| %d | %s | %s | %s | %s |\n",
				v.Line, v.RuleID, v.Severity, escapePipes(v.Message), escapePipes(v.Reference))
		}
		b.WriteString("\n")
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func escapePipes(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}

// CSVRenderer writes one row per violation.
type CSVRenderer struct{}

func (*CSVRenderer) Format() string    { return "csv" }
func (*CSVRenderer) Extension() string { return ".csv" }

func (*CSVRenderer) Render(w io.Writer, r *Report) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"file", "line", "column", "rule_id", "severity", "message", "guidance", "reference"}); err != nil {
		return err
	}
	for _, res := range r.Results {
		for _, v := range res.Violations {
			row := []string{
				v.File,
				strconv.Itoa(v.Line),
				strconv.Itoa(v.Column),
				v.RuleID,
				string(v.Severity),
				v.Message,
				v.Guidance,
				v.Reference,
			}
			if err := cw.Write(row); err != nil {
				return err
			}
		}
	}
	cw.Flush()
	return cw.Error()
}

// HTMLRenderer writes a self-contained HTML page.
type HTMLRenderer struct{}

func (*HTMLRenderer) Format() string    { return "html" }
func (*HTMLRenderer) Extension() string { return ".html" }

var htmlTemplate = template.Must(template.New("report").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="UTF-8">
<title>Coding Guideline Report</title>
<style>
body { font-family: Arial, sans-serif; margin: 20px; }
h1, h2 { color: #333; }
table { border-collapse: collapse; margin-bottom: 20px; width: 100%; }
th, td { border: 1px solid #ccc; padding: 6px 8px; font-size: 14px; }
th { background-color: #f2f2f2; }
.severity-critical { color: #b30000; font-weight: bold; }
.severity-major { color: #cc6600; font-weight: bold; }
.severity-minor { color: #666600; }
.file-header { background: #e9f0fb; padding: 8px; margin-top: 20px; border-left: 4px solid #4a78c2; }
.failed { color: #b30000; }
</style>
</head>
<body>
<h1>Coding Guideline Report</h1>
<p>Run {{.RunID}}, generated {{.GeneratedAt.Format "2006-01-02 15:04:05 MST"}}.</p>

<h2>Summary</h2>
<table>
<tr><th>Total files</th><td>{{.Summary.Files}}</td></tr>
<tr><th>Failed files</th><td>{{.Summary.FailedFiles}}</td></tr>
<tr><th>Total violations</th><td>{{.Summary.Total}}</td></tr>
{{range $sev, $count := .Summary.BySeverity -}}
<tr><th class="severity-{{$sev}}">{{$sev}}</th><td>{{$count}}</td></tr>
{{end -}}
</table>

{{range .Results}}
<div class="file-header"><h2>{{.File}}</h2></div>
{{if .Failed -}}
<p class="failed">Not analyzed: {{.Diagnostic}}</p>
{{else if not .Violations -}}
<p>No violations.</p>
{{else -}}
<table>
<tr><th>Line</th><th>Column</th><th>Rule</th><th>Severity</th><th>Message</th><th>Snippet</th><th>Reference</th></tr>
{{range .Violations -}}
<tr>
<td>{{.Line}}</td>
<td>{{.Column}}</td>
<td>{{.RuleID}}</td>
<td class="severity-{{.Severity}}">{{.Severity}}</td>
<td>{{.Message}}</td>
<td><code>{{.Snippet}}</code></td>
<td>{{.Reference}}</td>
</tr>
{{end -}}
</table>
{{end -}}
{{end}}
</body>
</html>
`))

func (*HTMLRenderer) Render(w io.Writer, r *Report) error {
	return htmlTemplate.Execute(w, r)
}
