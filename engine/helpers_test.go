package engine

import (
	"github.com/cwarden/cwarden/tree"
)

// Test tree builders. Every node gets a distinct line so ordering and
// dedupe assertions stay unambiguous.

func at(line int) tree.Location {
	return tree.Location{File: "test.c", Line: line, Column: 1}
}

func newNode(kind tree.Kind, line int, children ...*tree.Node) *tree.Node {
	n := tree.NewNode(kind, at(line))
	for _, child := range children {
		n.AddChild(child)
	}
	return n
}

func named(kind tree.Kind, name string, line int, children ...*tree.Node) *tree.Node {
	n := newNode(kind, line, children...)
	n.Name = name
	return n
}

func valued(kind tree.Kind, value string, line int, children ...*tree.Node) *tree.Node {
	n := newNode(kind, line, children...)
	n.Value = value
	return n
}

func file(children ...*tree.Node) *tree.Node {
	return newNode(tree.KindFileScope, 1, children...)
}

func fileUnit(children ...*tree.Node) *tree.Unit {
	return &tree.Unit{Path: "test.c", Root: file(children...)}
}

// function builds a named FunctionDecl whose body is a CompoundStmt at the
// following line.
func function(name string, line int, body ...*tree.Node) *tree.Node {
	return named(tree.KindFunctionDecl, name, line,
		newNode(tree.KindCompoundStmt, line+1, body...))
}

func ident(name string, line int) *tree.Node {
	return named(tree.KindIdentifier, name, line)
}

func literal(value string, line int) *tree.Node {
	return valued(tree.KindLiteral, value, line)
}

func call(callee string, line int) *tree.Node {
	return named(tree.KindCallExpr, callee, line)
}

// ifStmt builds a well-formed if with a boolean condition and a compound
// body.
func ifStmt(line int, body ...*tree.Node) *tree.Node {
	return newNode(tree.KindIfStmt, line,
		valued(tree.KindBinaryOp, ">", line, ident("a", line), literal("5", line)),
		newNode(tree.KindCompoundStmt, line, body...))
}

func withElse(stmt *tree.Node, clause *tree.Node) *tree.Node {
	elseNode := newNode(tree.KindElseClause, clause.Loc.Line, clause)
	stmt.AddChild(elseNode)
	return stmt
}
