// Package scan runs the rule engine across many files. Scanning is
// embarrassingly parallel: each file's tree is independent and the rule
// set is immutable, so a fixed pool of workers processes files
// concurrently without locking.
package scan

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/cwarden/cwarden/engine"
	"github.com/cwarden/cwarden/tree"
	"github.com/cwarden/cwarden/violation"
)

// Producer is the tree-producer contract the runner consumes: given a file
// path, return a translation unit or a structured parse error.
type Producer interface {
	Produce(ctx context.Context, path string) (*tree.Unit, error)
}

// Runner scans a set of files with a worker pool and aggregates the
// per-file results.
type Runner struct {
	engine   *engine.Engine
	producer Producer
	workers  int
	timeout  time.Duration
	logger   *slog.Logger
}

// Option configures a Runner.
type Option func(*Runner)

// WithWorkers sets the worker pool size. Values below one fall back to
// GOMAXPROCS.
func WithWorkers(n int) Option {
	return func(r *Runner) {
		if n > 0 {
			r.workers = n
		}
	}
}

// WithTimeout sets the per-file scan timeout. Zero disables timeouts. A
// timed-out file becomes a failed ScanResult, never a process-wide abort.
func WithTimeout(d time.Duration) Option {
	return func(r *Runner) { r.timeout = d }
}

// WithLogger sets the runner's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// NewRunner creates a multi-file runner for a rule engine and a tree
// producer.
func NewRunner(eng *engine.Engine, producer Producer, opts ...Option) *Runner {
	r := &Runner{
		engine:   eng,
		producer: producer,
		workers:  runtime.GOMAXPROCS(0),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run scans every file and returns one ScanResult per file, ordered by
// file path. Per-file failures (parse errors, timeouts) are captured in
// that file's result; the run itself only errors when the surrounding
// context is cancelled before all files were dispatched. Results for files
// completed before cancellation remain valid.
func (r *Runner) Run(ctx context.Context, paths []string) ([]violation.ScanResult, error) {
	results := make([]violation.ScanResult, len(paths))

	g, groupCtx := errgroup.WithContext(ctx)
	g.SetLimit(r.workers)

	for i, path := range paths {
		// Stop dispatching once cancelled; in-flight scans finish on
		// their own.
		if err := groupCtx.Err(); err != nil {
			results[i] = violation.FailedResult(path, fmt.Sprintf("not scanned: %v", err))
			continue
		}
		i, path := i, path
		g.Go(func() error {
			results[i] = r.scanFile(groupCtx, path)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return results, err
	}
	sort.Slice(results, func(i, j int) bool { return results[i].File < results[j].File })
	return results, ctx.Err()
}

func (r *Runner) scanFile(ctx context.Context, path string) violation.ScanResult {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	start := time.Now()
	unit, err := r.producer.Produce(ctx, path)
	if err != nil {
		r.logger.Warn("parse failure", slog.String("file", path), slog.String("error", err.Error()))
		return violation.FailedResult(path, err.Error())
	}

	result := r.engine.Scan(ctx, unit)
	r.logger.Debug("scanned file",
		slog.String("file", path),
		slog.Int("violations", len(result.Violations)),
		slog.Duration("elapsed", time.Since(start)))
	return result
}
