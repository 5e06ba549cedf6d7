package engine

import "github.com/cwarden/cwarden/tree"

// Metric calculators are pure functions over a FunctionDecl subtree. None
// of them crosses into nested FunctionDecl boundaries.

// CyclomaticComplexity returns 1 plus the number of decision points inside
// fn: if/for/while statements, case labels, logical-AND/OR operators, and
// ternary operators.
func CyclomaticComplexity(fn *tree.Node) int {
	cc := 1
	walkWithin(fn, func(n *tree.Node) {
		switch n.Kind {
		case tree.KindIfStmt, tree.KindForStmt, tree.KindWhileStmt, tree.KindCaseStmt:
			cc++
		case tree.KindBinaryOp:
			if n.Value == "&&" || n.Value == "||" {
				cc++
			}
		case tree.KindTernaryOp:
			cc++
		}
	})
	return cc
}

// NestingDepth returns the maximum depth of directly-nested control
// structure bodies inside fn, with the function body itself at depth 0.
func NestingDepth(fn *tree.Node) int {
	var max int
	var descend func(n *tree.Node, depth int)
	descend = func(n *tree.Node, depth int) {
		for _, child := range n.Children {
			if child.Kind == tree.KindFunctionDecl {
				continue
			}
			d := depth
			if isControl(child) {
				d++
				if d > max {
					max = d
				}
			}
			descend(child, d)
		}
	}
	descend(fn, 0)
	return max
}

func isControl(n *tree.Node) bool {
	switch n.Kind {
	case tree.KindIfStmt, tree.KindForStmt, tree.KindWhileStmt, tree.KindSwitchStmt:
		return true
	}
	return false
}

// FunctionLength returns the number of statement nodes in fn's body. Line
// counts would vary with formatting; statement counts stay whitespace
// agnostic.
func FunctionLength(fn *tree.Node) int {
	var count int
	walkWithin(fn, func(n *tree.Node) {
		if n.IsStatement() {
			count++
		}
	})
	return count
}

// ParameterCount returns the number of ParmDecl children of fn.
func ParameterCount(fn *tree.Node) int {
	var count int
	for _, child := range fn.Children {
		if child.Kind == tree.KindParmDecl {
			count++
		}
	}
	return count
}

// walkWithin visits every descendant of fn without descending into nested
// function declarations.
func walkWithin(fn *tree.Node, visit func(*tree.Node)) {
	var descend func(n *tree.Node)
	descend = func(n *tree.Node) {
		for _, child := range n.Children {
			if child.Kind == tree.KindFunctionDecl {
				continue
			}
			visit(child)
			descend(child)
		}
	}
	descend(fn)
}
