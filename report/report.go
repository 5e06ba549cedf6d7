// Package report renders completed scan runs. The Report type is the
// format-agnostic data contract between the scanner and the renderers;
// every renderer consumes this same shape.
package report

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/cwarden/cwarden/violation"
)

// Report is the ordered scan-result list plus the run-level severity
// summary.
type Report struct {
	RunID       string                 `json:"run_id"`
	GeneratedAt time.Time              `json:"generated_at"`
	Results     []violation.ScanResult `json:"files"`
	Summary     violation.Summary      `json:"summary"`
}

// New assembles a report for a completed run. The summary is computed once
// here, after the per-file join, so it reflects the whole run.
func New(results []violation.ScanResult) *Report {
	return &Report{
		RunID:       uuid.NewString(),
		GeneratedAt: time.Now().UTC(),
		Results:     results,
		Summary:     violation.Summarize(results),
	}
}

// Renderer writes a report in one output format.
type Renderer interface {
	// Render writes the report to w.
	Render(w io.Writer, r *Report) error

	// Format returns the format name used for selection (e.g. "json").
	Format() string

	// Extension returns the conventional file extension, dot included.
	Extension() string
}

// Registry manages report renderers, keyed by format name.
type Registry struct {
	mu        sync.RWMutex
	renderers map[string]Renderer
}

// DefaultRegistry is the global renderer registry with default renderers.
var DefaultRegistry = NewRegistry()

// NewRegistry creates a registry with the built-in renderers.
func NewRegistry() *Registry {
	r := &Registry{renderers: make(map[string]Renderer)}
	r.Register(&JSONRenderer{})
	r.Register(&MarkdownRenderer{})
	r.Register(&CSVRenderer{})
	r.Register(&HTMLRenderer{})
	return r
}

// Register adds a renderer to the registry.
func (r *Registry) Register(renderer Renderer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.renderers[renderer.Format()] = renderer
}

// Get returns the renderer for a format name.
func (r *Registry) Get(format string) (Renderer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	renderer, ok := r.renderers[format]
	if !ok {
		return nil, fmt.Errorf("no renderer for format %q", format)
	}
	return renderer, nil
}

// Formats returns the registered format names.
func (r *Registry) Formats() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	formats := make([]string, 0, len(r.renderers))
	for f := range r.renderers {
		formats = append(formats, f)
	}
	return formats
}
