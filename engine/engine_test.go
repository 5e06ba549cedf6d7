package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cwarden/cwarden/rules"
	"github.com/cwarden/cwarden/tree"
)

func TestEngine_Scan_DispatchesEveryRuleKind(t *testing.T) {
	set := validatedSet(t,
		rules.Rule{
			ID:       "NAMING_FUNC_001",
			Scope:    rules.ScopeFunction,
			Kind:     rules.KindNaming,
			Pattern:  `[a-z][a-z0-9_]*`,
			Severity: rules.SeverityMinor,
		},
		rules.Rule{
			ID:        "MEM_DYN_001",
			Scope:     rules.ScopeAny,
			Kind:      rules.KindForbiddenCall,
			Forbidden: []string{"malloc", "free"},
			Severity:  rules.SeverityCritical,
		},
		rules.Rule{
			ID:        "FUNC_PARAMS_001",
			Scope:     rules.ScopeFunction,
			Kind:      rules.KindMetric,
			Metric:    rules.MetricParameterCount,
			Threshold: 2,
			Severity:  rules.SeverityMajor,
		},
		rules.Rule{
			ID:       "CTRL_RECURSION_001",
			Scope:    rules.ScopeFunction,
			Kind:     rules.KindStructuralSafety,
			Check:    rules.CheckRecursion,
			Severity: rules.SeverityCritical,
		})
	e := New(set, nil)

	fn := named(tree.KindFunctionDecl, "BadName", 3,
		named(tree.KindParmDecl, "a", 3),
		named(tree.KindParmDecl, "b", 3),
		named(tree.KindParmDecl, "c", 3),
		newNode(tree.KindCompoundStmt, 4,
			newNode(tree.KindExprStmt, 5, call("malloc", 5)),
			newNode(tree.KindExprStmt, 6, call("BadName", 6))))
	unit := fileUnit(fn)

	result := e.Scan(context.Background(), unit)
	require.False(t, result.Failed)

	var ids []string
	for _, v := range result.Violations {
		ids = append(ids, v.RuleID)
	}
	assert.Equal(t, []string{
		"CTRL_RECURSION_001", // line 3
		"FUNC_PARAMS_001",    // line 3
		"NAMING_FUNC_001",    // line 3
		"MEM_DYN_001",        // line 5
	}, ids)
}

func TestEngine_Scan_MetricFiresAboveThresholdOnly(t *testing.T) {
	set := validatedSet(t, rules.Rule{
		ID:        "FUNC_PARAMS_001",
		Scope:     rules.ScopeFunction,
		Kind:      rules.KindMetric,
		Metric:    rules.MetricParameterCount,
		Threshold: 7,
		Severity:  rules.SeverityMajor,
	})
	e := New(set, nil)

	withParams := func(name string, line, count int) *tree.Node {
		fn := named(tree.KindFunctionDecl, name, line)
		for i := 0; i < count; i++ {
			fn.AddChild(named(tree.KindParmDecl, "p", line))
		}
		fn.AddChild(newNode(tree.KindCompoundStmt, line+1))
		return fn
	}

	result := e.Scan(context.Background(), fileUnit(
		withParams("at_limit", 1, 7),
		withParams("over_limit", 5, 8)))

	require.Len(t, result.Violations, 1)
	v := result.Violations[0]
	assert.Equal(t, 5, v.Line)
	assert.Contains(t, v.Message, `"over_limit"`)
	assert.Contains(t, v.Message, "parameter count 8 (max 7)")
}

func TestEngine_Scan_NestingThresholdBoundary(t *testing.T) {
	deepFn := func(name string, line, depth int) *tree.Node {
		stmt := newNode(tree.KindExprStmt, line+depth)
		body := stmt
		for i := depth; i >= 1; i-- {
			body = ifStmt(line+i-1, body)
		}
		return function(name, line, body)
	}

	set := validatedSet(t, rules.Rule{
		ID:        "CTRL_NEST_001",
		Scope:     rules.ScopeFunction,
		Kind:      rules.KindMetric,
		Metric:    rules.MetricNestingDepth,
		Threshold: 4,
		Severity:  rules.SeverityMajor,
	})
	e := New(set, nil)

	result := e.Scan(context.Background(), fileUnit(
		deepFn("four_deep", 1, 4),
		deepFn("five_deep", 20, 5)))

	require.Len(t, result.Violations, 1)
	assert.Equal(t, 20, result.Violations[0].Line)
	assert.Contains(t, result.Violations[0].Message, "nesting depth 5 (max 4)")
}

func TestEngine_Scan_DeterministicAcrossRuns(t *testing.T) {
	set := validatedSet(t,
		rules.Rule{
			ID:       "CTRL_RECURSION_001",
			Scope:    rules.ScopeFunction,
			Kind:     rules.KindStructuralSafety,
			Check:    rules.CheckRecursion,
			Severity: rules.SeverityCritical,
		},
		rules.Rule{
			ID:        "MEM_DYN_001",
			Scope:     rules.ScopeAny,
			Kind:      rules.KindForbiddenCall,
			Forbidden: []string{"malloc"},
			Severity:  rules.SeverityCritical,
		})
	e := New(set, nil)

	unit := fileUnit(
		function("ping", 1, newNode(tree.KindExprStmt, 2, call("pong", 2))),
		function("pong", 4, newNode(tree.KindExprStmt, 5, call("ping", 5))),
		function("alloc", 7, newNode(tree.KindExprStmt, 8, call("malloc", 8))))

	first := e.Scan(context.Background(), unit)
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, e.Scan(context.Background(), unit))
	}
}

func TestEngine_Scan_NilTreeFails(t *testing.T) {
	e := New(validatedSet(t), nil)

	result := e.Scan(context.Background(), &tree.Unit{Path: "broken.c"})
	assert.True(t, result.Failed)
	assert.Equal(t, "broken.c", result.File)
	assert.Equal(t, "no syntax tree", result.Diagnostic)
	assert.Empty(t, result.Violations)
}

func TestEngine_Scan_NilUnitFails(t *testing.T) {
	e := New(validatedSet(t), nil)

	result := e.Scan(context.Background(), nil)
	assert.True(t, result.Failed)
	assert.Equal(t, "", result.File)
	assert.Equal(t, "no syntax tree", result.Diagnostic)
	assert.Empty(t, result.Violations)
}

func TestEngine_Scan_CancelledContextFails(t *testing.T) {
	set := validatedSet(t, rules.Rule{
		ID:        "MEM_DYN_001",
		Scope:     rules.ScopeAny,
		Kind:      rules.KindForbiddenCall,
		Forbidden: []string{"malloc"},
		Severity:  rules.SeverityCritical,
	})
	e := New(set, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result := e.Scan(ctx, fileUnit(function("f", 1)))
	assert.True(t, result.Failed)
	assert.Empty(t, result.Violations)
}

func TestEngine_Scan_RecordsMalformedSubtreeWarnings(t *testing.T) {
	e := New(validatedSet(t), nil)

	// An if with a condition but no body is malformed; the subtree is
	// skipped and reported as a warning, never as a violation.
	brokenIf := newNode(tree.KindIfStmt, 3, literal("1", 3))
	result := e.Scan(context.Background(), fileUnit(function("f", 1, brokenIf)))

	require.False(t, result.Failed)
	require.Len(t, result.Warnings, 1)
	assert.Equal(t, 3, result.Warnings[0].Loc.Line)
	assert.Contains(t, result.Warnings[0].Message, "if statement")
	assert.Empty(t, result.Violations)
}

func TestEngine_Scan_SnippetFromSourceLines(t *testing.T) {
	set := validatedSet(t, rules.Rule{
		ID:        "MEM_DYN_001",
		Scope:     rules.ScopeAny,
		Kind:      rules.KindForbiddenCall,
		Forbidden: []string{"malloc"},
		Severity:  rules.SeverityCritical,
		Guidance:  "use a static pool",
		Reference: "MEM-3",
	})
	e := New(set, nil)

	unit := fileUnit(function("f", 1, newNode(tree.KindExprStmt, 3, call("malloc", 3))))
	unit.Lines = []string{
		"void f(void) {",
		"{",
		"    p = malloc(64);",
	}

	result := e.Scan(context.Background(), unit)
	require.Len(t, result.Violations, 1)
	v := result.Violations[0]
	assert.Equal(t, "p = malloc(64);", v.Snippet)
	assert.Equal(t, "use a static pool", v.Guidance)
	assert.Equal(t, "MEM-3", v.Reference)
	assert.Equal(t, rules.SeverityCritical, v.Severity)
}
