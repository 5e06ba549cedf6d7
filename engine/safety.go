package engine

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/cwarden/cwarden/tree"
)

// finding is a detector hit before it is wrapped into a Violation with the
// owning rule's severity, guidance, and reference.
type finding struct {
	node    *tree.Node
	line    int // overrides node location when node is nil (file-level hits)
	message string
}

// detectForbiddenCalls fires on every CallExpr whose callee identifier is
// in the rule's forbidden list. Matching is case-sensitive and exact.
func detectForbiddenCalls(root *tree.Node, forbidden []string) []finding {
	banned := make(map[string]bool, len(forbidden))
	for _, name := range forbidden {
		banned[name] = true
	}
	var out []finding
	for _, call := range tree.Collect(root, func(n *tree.Node) bool { return n.Kind == tree.KindCallExpr }) {
		if call.Name != "" && banned[call.Name] {
			out = append(out, finding{
				node:    call,
				message: fmt.Sprintf("call to forbidden function %q", call.Name),
			})
		}
	}
	return out
}

// detectRecursion builds the per-unit call graph (edges between functions
// defined in the same unit) and fires once, at its declaration line, for
// every function participating in a cycle, including self-recursion.
//
// The graph is a derived adjacency map, discarded after detection. Cycle
// membership is computed with an iterative Tarjan strongly-connected
// components pass so pathological inputs cannot exhaust the call stack.
func detectRecursion(root *tree.Node) []finding {
	decls := make(map[string]*tree.Node)
	for _, fn := range tree.Collect(root, func(n *tree.Node) bool { return n.Kind == tree.KindFunctionDecl }) {
		if _, dup := decls[fn.Name]; !dup {
			decls[fn.Name] = fn
		}
	}

	adjacency := make(map[string][]string, len(decls))
	for name, fn := range decls {
		callees := make(map[string]bool)
		walkWithin(fn, func(n *tree.Node) {
			if n.Kind == tree.KindCallExpr && n.Name != "" {
				if _, defined := decls[n.Name]; defined {
					callees[n.Name] = true
				}
			}
		})
		edges := make([]string, 0, len(callees))
		for callee := range callees {
			edges = append(edges, callee)
		}
		sort.Strings(edges)
		adjacency[name] = edges
	}

	names := make([]string, 0, len(decls))
	for name := range decls {
		names = append(names, name)
	}
	sort.Strings(names)

	var out []finding
	for _, name := range cyclicFunctions(names, adjacency) {
		fn := decls[name]
		out = append(out, finding{
			node:    fn,
			message: fmt.Sprintf("function %q participates in a recursion cycle", name),
		})
	}
	return out
}

// cyclicFunctions returns, sorted, every node that lies on a call-graph
// cycle: members of strongly connected components of size greater than one,
// plus self-edges.
func cyclicFunctions(names []string, adjacency map[string][]string) []string {
	const unvisited = -1

	index := make(map[string]int, len(names))
	lowlink := make(map[string]int, len(names))
	onStack := make(map[string]bool, len(names))
	for _, n := range names {
		index[n] = unvisited
	}

	var stack []string
	next := 0
	cyclic := make(map[string]bool)

	type frame struct {
		name string
		edge int
	}

	for _, start := range names {
		if index[start] != unvisited {
			continue
		}
		frames := []frame{{name: start}}
		index[start] = next
		lowlink[start] = next
		next++
		stack = append(stack, start)
		onStack[start] = true

		for len(frames) > 0 {
			f := &frames[len(frames)-1]
			edges := adjacency[f.name]
			if f.edge < len(edges) {
				callee := edges[f.edge]
				f.edge++
				if index[callee] == unvisited {
					index[callee] = next
					lowlink[callee] = next
					next++
					stack = append(stack, callee)
					onStack[callee] = true
					frames = append(frames, frame{name: callee})
				} else if onStack[callee] {
					if lowlink[f.name] > index[callee] {
						lowlink[f.name] = index[callee]
					}
				}
				continue
			}

			// Frame exhausted: close the component if this is its root.
			if lowlink[f.name] == index[f.name] {
				var component []string
				for {
					top := stack[len(stack)-1]
					stack = stack[:len(stack)-1]
					onStack[top] = false
					component = append(component, top)
					if top == f.name {
						break
					}
				}
				if len(component) > 1 {
					for _, member := range component {
						cyclic[member] = true
					}
				} else if hasSelfEdge(component[0], adjacency) {
					cyclic[component[0]] = true
				}
			}

			done := f.name
			frames = frames[:len(frames)-1]
			if len(frames) > 0 {
				parent := &frames[len(frames)-1]
				if lowlink[parent.name] > lowlink[done] {
					lowlink[parent.name] = lowlink[done]
				}
			}
		}
	}

	result := make([]string, 0, len(cyclic))
	for name := range cyclic {
		result = append(result, name)
	}
	sort.Strings(result)
	return result
}

func hasSelfEdge(name string, adjacency map[string][]string) bool {
	for _, callee := range adjacency[name] {
		if callee == name {
			return true
		}
	}
	return false
}

// detectInfiniteLoops fires on while loops whose condition is a nonzero
// constant and on for loops whose initializer, condition, and increment
// are all empty.
func detectInfiniteLoops(root *tree.Node) []finding {
	var out []finding
	tree.NewWalker().Walk(root, func(n *tree.Node, _ tree.ScopeChain) bool {
		switch n.Kind {
		case tree.KindWhileStmt:
			cond := n.Children[0]
			if cond.Kind == tree.KindLiteral {
				if value, ok := numericValue(cond.Value); ok && value != 0 {
					out = append(out, finding{node: n, message: fmt.Sprintf("infinite loop shape: while (%s)", cond.Value)})
				}
			}
		case tree.KindForStmt:
			// The producer appends header clauses before the body, so a
			// bare body means for (;;).
			if len(n.Children) == 1 {
				out = append(out, finding{node: n, message: "infinite loop shape: for (;;)"})
			}
		}
		return true
	})
	return out
}

// detectMissingFinalElse fires at the head of every if/else-if chain that
// terminates without an unconditional else.
func detectMissingFinalElse(root *tree.Node) []finding {
	var out []finding
	tree.NewWalker().Walk(root, func(n *tree.Node, _ tree.ScopeChain) bool {
		if n.Kind != tree.KindIfStmt || isElseIfTarget(n) {
			return true
		}
		chained := false
		cur := n
		for {
			alt := elseClause(cur)
			if alt == nil {
				if chained {
					out = append(out, finding{node: n, message: "if/else-if chain has no final else"})
				}
				break
			}
			if next := elseIfOf(alt); next != nil {
				chained = true
				cur = next
				continue
			}
			// Unconditional final else.
			break
		}
		return true
	})
	return out
}

func isElseIfTarget(n *tree.Node) bool {
	return n.Parent() != nil && n.Parent().Kind == tree.KindElseClause
}

func elseClause(ifStmt *tree.Node) *tree.Node {
	for _, child := range ifStmt.Children {
		if child.Kind == tree.KindElseClause {
			return child
		}
	}
	return nil
}

func elseIfOf(alt *tree.Node) *tree.Node {
	if len(alt.Children) == 1 && alt.Children[0].Kind == tree.KindIfStmt {
		return alt.Children[0]
	}
	return nil
}

// detectMagicNumbers fires on numeric literals used directly in
// expressions. Literals bound to a named declaration (variable
// initializers, macro values, enum constants, array sizes) are exempt, as
// are values on the allow-list.
func detectMagicNumbers(root *tree.Node, allow []float64) []finding {
	allowed := make(map[float64]bool, len(allow))
	for _, v := range allow {
		allowed[v] = true
	}
	var out []finding
	tree.NewWalker().Walk(root, func(n *tree.Node, _ tree.ScopeChain) bool {
		if n.Kind != tree.KindLiteral {
			return true
		}
		value, ok := numericValue(n.Value)
		if !ok {
			return true
		}
		if parent := n.Parent(); parent != nil && parent.Kind == tree.KindUnaryOp && parent.Value == "-" {
			value = -value
		}
		if allowed[value] || boundToName(n) {
			return true
		}
		out = append(out, finding{node: n, message: fmt.Sprintf("magic number %s; bind it to a named constant", n.Value)})
		return true
	})
	return out
}

// boundToName reports whether a literal's ancestor chain reaches a named
// declaration before leaving declaration context, i.e. the literal is an
// initializer rather than a bare expression operand.
func boundToName(lit *tree.Node) bool {
	for cur := lit.Parent(); cur != nil; cur = cur.Parent() {
		switch cur.Kind {
		case tree.KindVarDecl, tree.KindMacroDef, tree.KindEnumDecl,
			tree.KindEnumConstant, tree.KindParmDecl:
			return cur.Name != "" || cur.Kind == tree.KindEnumDecl
		case tree.KindCompoundStmt, tree.KindExprStmt, tree.KindFunctionDecl,
			tree.KindFileScope, tree.KindCallExpr, tree.KindReturnStmt:
			return false
		}
	}
	return false
}

// detectUnguardedArrayWrites flags assignments through an array subscript
// when no enclosing control-structure condition in the same function
// mentions the subscript index in a comparison.
//
// The heuristic is deliberately conservative:
//   - only subscripts whose index is a plain identifier are considered;
//   - the array must have a declared bound somewhere in the unit, otherwise
//     the precondition is unmet and nothing fires;
//   - any comparison operator applied to the index inside an enclosing if,
//     for, or while header counts as a guard. This checks for the textual
//     presence of a bounds check, not dataflow-proven safety.
func detectUnguardedArrayWrites(root *tree.Node) []finding {
	bounds := arrayBounds(root)
	var out []finding
	tree.NewWalker().Walk(root, func(n *tree.Node, scope tree.ScopeChain) bool {
		if n.Kind != tree.KindAssignExpr || len(n.Children) == 0 {
			return true
		}
		lhs := n.Children[0]
		if lhs.Kind != tree.KindSubscriptExpr || len(lhs.Children) < 2 {
			return true
		}
		array, idx := lhs.Children[0], lhs.Children[1]
		if array.Kind != tree.KindIdentifier || idx.Kind != tree.KindIdentifier {
			return true
		}
		if _, declared := bounds[array.Name]; !declared {
			return true // precondition miss: no declared bound to guard against
		}
		if scope.Function() == nil {
			return true
		}
		if indexGuarded(n, idx.Name) {
			return true
		}
		out = append(out, finding{
			node:    n,
			message: fmt.Sprintf("write to %s[%s] without an enclosing bounds check on %q", array.Name, idx.Name, idx.Name),
		})
		return true
	})
	return out
}

// arrayBounds maps array names to their declared element counts.
func arrayBounds(root *tree.Node) map[string]int {
	bounds := make(map[string]int)
	for _, decl := range tree.Collect(root, func(n *tree.Node) bool { return n.Kind == tree.KindVarDecl }) {
		if decl.Name == "" || decl.Value == "" {
			continue
		}
		if size, err := strconv.Atoi(decl.Value); err == nil && size > 0 {
			bounds[decl.Name] = size
		}
	}
	return bounds
}

// indexGuarded walks from the assignment toward the enclosing function,
// looking for a control-statement header that compares the index.
func indexGuarded(assign *tree.Node, index string) bool {
	for cur := assign.Parent(); cur != nil; cur = cur.Parent() {
		switch cur.Kind {
		case tree.KindFunctionDecl:
			return false
		case tree.KindIfStmt, tree.KindWhileStmt:
			if comparesIdentifier(cur.Children[0], index) {
				return true
			}
		case tree.KindForStmt:
			// Every child before the body is a header clause.
			for _, clause := range cur.Children[:len(cur.Children)-1] {
				if comparesIdentifier(clause, index) {
					return true
				}
			}
		}
	}
	return false
}

func comparesIdentifier(expr *tree.Node, name string) bool {
	matched := false
	tree.NewWalker().Walk(expr, func(n *tree.Node, _ tree.ScopeChain) bool {
		if matched {
			return false
		}
		if n.Kind == tree.KindBinaryOp && isComparison(n.Value) {
			for _, operand := range n.Children {
				if operand.Kind == tree.KindIdentifier && operand.Name == name {
					matched = true
					return false
				}
			}
		}
		return true
	})
	return matched
}

func isComparison(op string) bool {
	switch op {
	case "<", "<=", ">", ">=", "==", "!=":
		return true
	}
	return false
}

// detectGotos fires on every goto statement.
func detectGotos(root *tree.Node) []finding {
	var out []finding
	for _, n := range tree.Collect(root, func(n *tree.Node) bool { return n.Kind == tree.KindGotoStmt }) {
		msg := "goto statement"
		if n.Name != "" {
			msg = fmt.Sprintf("goto statement to label %q", n.Name)
		}
		out = append(out, finding{node: n, message: msg})
	}
	return out
}

// checkFileHeader fires once, at line 1, when any required header entry is
// missing from the first 20 lines of the file.
func checkFileHeader(unit *tree.Unit, required []string) []finding {
	head := unit.Lines
	if len(head) > 20 {
		head = head[:20]
	}
	var missing []string
	for _, want := range required {
		found := false
		for _, line := range head {
			if strings.Contains(line, want) {
				found = true
				break
			}
		}
		if !found {
			missing = append(missing, want)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	return []finding{{
		line:    1,
		message: fmt.Sprintf("file header is missing required entries: %s", strings.Join(missing, ", ")),
	}}
}

// numericValue parses a C numeric literal, normalizing integer suffixes
// (u, U, l, L), float suffixes (f, F), and hex, octal, and binary forms.
func numericValue(text string) (float64, bool) {
	s := strings.TrimRight(text, "uUlL")
	if s == "" {
		return 0, false
	}

	if strings.ContainsAny(s, ".eEpP") && !strings.HasPrefix(s, "0x") && !strings.HasPrefix(s, "0X") {
		s = strings.TrimRight(s, "fF")
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false
		}
		return f, true
	}

	base := 10
	switch {
	case strings.HasPrefix(s, "0x"), strings.HasPrefix(s, "0X"):
		base, s = 16, s[2:]
	case strings.HasPrefix(s, "0b"), strings.HasPrefix(s, "0B"):
		base, s = 2, s[2:]
	case len(s) > 1 && s[0] == '0':
		base, s = 8, s[1:]
	}
	v, err := strconv.ParseUint(s, base, 64)
	if err != nil {
		return 0, false
	}
	return float64(v), true
}
