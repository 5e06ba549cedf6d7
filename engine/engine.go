// Package engine evaluates a validated rule set against the syntax tree of
// one translation unit. Each rule kind dispatches to a metric calculator,
// a naming matcher, or a safety detector; results are wrapped into
// violations carrying the owning rule's severity, guidance, and reference.
package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/looplab/fsm"

	"github.com/cwarden/cwarden/rules"
	"github.com/cwarden/cwarden/tree"
	"github.com/cwarden/cwarden/violation"
)

// Scan lifecycle states. Failed is terminal and reachable from any other
// state on an unrecoverable error.
const (
	StateIdle       = "idle"
	StateTreeLoaded = "tree_loaded"
	StateEvaluating = "evaluating"
	StateAggregated = "aggregated"
	StateDone       = "done"
	StateFailed     = "failed"
)

// Engine runs one rule set against translation units. The rule set is
// immutable after construction, so a single Engine is safe for concurrent
// scans.
type Engine struct {
	set    *rules.Set
	logger *slog.Logger
}

// New creates an engine for a validated rule set.
func New(set *rules.Set, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{set: set, logger: logger}
}

func newScanFSM() *fsm.FSM {
	return fsm.NewFSM(
		StateIdle,
		fsm.Events{
			{Name: "load", Src: []string{StateIdle}, Dst: StateTreeLoaded},
			{Name: "evaluate", Src: []string{StateTreeLoaded}, Dst: StateEvaluating},
			{Name: "aggregate", Src: []string{StateEvaluating}, Dst: StateAggregated},
			{Name: "finish", Src: []string{StateAggregated}, Dst: StateDone},
			{Name: "fail", Src: []string{StateIdle, StateTreeLoaded, StateEvaluating, StateAggregated}, Dst: StateFailed},
		},
		fsm.Callbacks{},
	)
}

// Scan evaluates every rule in order against the unit and returns the
// file's result. Cancellation between rules produces a failed result;
// per-rule evaluation itself is pure in-memory computation and never
// blocks.
func (e *Engine) Scan(ctx context.Context, unit *tree.Unit) violation.ScanResult {
	machine := newScanFSM()

	// Captured up front: fail must work for the nil unit it reports on.
	var path string
	if unit != nil {
		path = unit.Path
	}
	fail := func(diagnostic string) violation.ScanResult {
		_ = machine.Event(ctx, "fail")
		e.logger.Warn("scan failed", slog.String("file", path), slog.String("diagnostic", diagnostic))
		return violation.FailedResult(path, diagnostic)
	}

	if unit == nil || unit.Root == nil {
		return fail("no syntax tree")
	}
	if err := machine.Event(ctx, "load"); err != nil {
		return fail(fmt.Sprintf("state machine: %v", err))
	}

	// One pass dedicated to structural warnings so malformed subtrees are
	// reported exactly once per file, not once per rule.
	warnWalker := tree.NewWalker()
	warnWalker.Walk(unit.Root, func(*tree.Node, tree.ScopeChain) bool { return true })

	if err := machine.Event(ctx, "evaluate"); err != nil {
		return fail(fmt.Sprintf("state machine: %v", err))
	}

	var collected []violation.Violation
	for i := range e.set.Rules {
		if err := ctx.Err(); err != nil {
			return fail(fmt.Sprintf("scan interrupted: %v", err))
		}
		rule := &e.set.Rules[i]
		for _, f := range e.evaluate(unit, rule) {
			collected = append(collected, e.wrap(unit, rule, f))
		}
	}

	if err := machine.Event(ctx, "aggregate"); err != nil {
		return fail(fmt.Sprintf("state machine: %v", err))
	}
	result := violation.ScanResult{
		File:       unit.Path,
		Violations: violation.Normalize(collected),
		Warnings:   warnWalker.Warnings(),
	}
	if err := machine.Event(ctx, "finish"); err != nil {
		return fail(fmt.Sprintf("state machine: %v", err))
	}
	return result
}

// evaluate dispatches one rule to its component. The rule kind set is
// closed; an unknown kind cannot survive validation.
func (e *Engine) evaluate(unit *tree.Unit, rule *rules.Rule) []finding {
	switch rule.Kind {
	case rules.KindNaming:
		return e.evaluateNaming(unit, rule)
	case rules.KindMetric:
		return e.evaluateMetric(unit, rule)
	case rules.KindForbiddenCall:
		return detectForbiddenCalls(unit.Root, rule.Forbidden)
	case rules.KindStructuralSafety:
		return e.evaluateStructural(unit, rule)
	}
	return nil
}

func (e *Engine) evaluateStructural(unit *tree.Unit, rule *rules.Rule) []finding {
	switch rule.Check {
	case rules.CheckRecursion:
		return detectRecursion(unit.Root)
	case rules.CheckInfiniteLoop:
		return detectInfiniteLoops(unit.Root)
	case rules.CheckMissingFinalElse:
		return detectMissingFinalElse(unit.Root)
	case rules.CheckMagicNumber:
		return detectMagicNumbers(unit.Root, e.set.MagicAllowFor(rule))
	case rules.CheckUnguardedArrayWrite:
		return detectUnguardedArrayWrites(unit.Root)
	case rules.CheckGoto:
		return detectGotos(unit.Root)
	case rules.CheckFileHeader:
		return checkFileHeader(unit, rule.Required)
	}
	return nil
}

// evaluateMetric fires when a calculator's value exceeds the rule's
// threshold; the violation is reported at the function's declaration line.
func (e *Engine) evaluateMetric(unit *tree.Unit, rule *rules.Rule) []finding {
	var out []finding
	for _, fn := range tree.Collect(unit.Root, func(n *tree.Node) bool { return n.Kind == tree.KindFunctionDecl }) {
		var value int
		var label string
		switch rule.Metric {
		case rules.MetricCyclomaticComplexity:
			value, label = CyclomaticComplexity(fn), "cyclomatic complexity"
		case rules.MetricNestingDepth:
			value, label = NestingDepth(fn), "nesting depth"
		case rules.MetricFunctionLength:
			value, label = FunctionLength(fn), "statement count"
		case rules.MetricParameterCount:
			value, label = ParameterCount(fn), "parameter count"
		default:
			return nil
		}
		if value > rule.Threshold {
			out = append(out, finding{
				node:    fn,
				message: fmt.Sprintf("function %q has %s %d (max %d)", fn.Name, label, value, rule.Threshold),
			})
		}
	}
	return out
}

func (e *Engine) wrap(unit *tree.Unit, rule *rules.Rule, f finding) violation.Violation {
	line, column := f.line, 1
	if f.node != nil {
		line, column = f.node.Loc.Line, f.node.Loc.Column
	}
	return violation.Violation{
		RuleID:    rule.ID,
		Severity:  rule.Severity,
		File:      unit.Path,
		Line:      line,
		Column:    column,
		Snippet:   unit.Snippet(line),
		Message:   f.message,
		Guidance:  rule.Guidance,
		Reference: rule.Reference,
	}
}
