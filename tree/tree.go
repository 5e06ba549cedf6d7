// Package tree provides the language-agnostic syntax tree model that the
// rule engine evaluates. A tree is built once per translation unit by a
// producer (see the parser package) and is read-only for the duration of
// one scan.
package tree

import (
	"fmt"
	"strings"
)

// Kind identifies the syntactic category of a node.
type Kind string

const (
	KindFileScope     Kind = "FileScope"
	KindFunctionDecl  Kind = "FunctionDecl"
	KindVarDecl       Kind = "VarDecl"
	KindParmDecl      Kind = "ParmDecl"
	KindTypedefDecl   Kind = "TypedefDecl"
	KindEnumDecl      Kind = "EnumDecl"
	KindEnumConstant  Kind = "EnumConstant"
	KindMacroDef      Kind = "MacroDef"
	KindIfStmt        Kind = "IfStmt"
	KindElseClause    Kind = "ElseClause"
	KindForStmt       Kind = "ForStmt"
	KindWhileStmt     Kind = "WhileStmt"
	KindDoStmt        Kind = "DoStmt"
	KindSwitchStmt    Kind = "SwitchStmt"
	KindCaseStmt      Kind = "CaseStmt"
	KindCompoundStmt  Kind = "CompoundStmt"
	KindExprStmt      Kind = "ExprStmt"
	KindReturnStmt    Kind = "ReturnStmt"
	KindBreakStmt     Kind = "BreakStmt"
	KindContinueStmt  Kind = "ContinueStmt"
	KindGotoStmt      Kind = "GotoStmt"
	KindLabelStmt     Kind = "LabelStmt"
	KindCallExpr      Kind = "CallExpr"
	KindBinaryOp      Kind = "BinaryOp"
	KindUnaryOp       Kind = "UnaryOp"
	KindAssignExpr    Kind = "AssignExpr"
	KindTernaryOp     Kind = "TernaryOp"
	KindSubscriptExpr Kind = "SubscriptExpr"
	KindIdentifier    Kind = "Identifier"
	KindLiteral       Kind = "Literal"
)

// Location is a position in a source file. Line and Column are 1-based.
type Location struct {
	File   string
	Line   int
	Column int
}

func (l Location) String() string {
	return fmt.Sprintf("%s:%d:%d", l.File, l.Line, l.Column)
}

// Node is a single syntax tree node. Children are owned exclusively by the
// node; the parent pointer is a non-owning back-reference used for scope
// walks only.
type Node struct {
	// Kind is the syntactic category.
	Kind Kind

	// Name is the declared or referenced identifier, when the node has one.
	Name string

	// Value carries kind-specific text: the literal token for Literal nodes,
	// the operator for BinaryOp/UnaryOp/AssignExpr nodes, and the declared
	// element count for array VarDecl nodes.
	Value string

	// Qualifiers holds storage-class qualifiers such as "static" or "extern".
	Qualifiers []string

	// Loc is the node's source position.
	Loc Location

	// Children is the ordered sequence of child nodes.
	Children []*Node

	parent *Node
}

// NewNode creates a node with the given kind and location.
func NewNode(kind Kind, loc Location) *Node {
	return &Node{Kind: kind, Loc: loc}
}

// AddChild appends child to n and records n as its parent.
func (n *Node) AddChild(child *Node) {
	if child == nil {
		return
	}
	child.parent = n
	n.Children = append(n.Children, child)
}

// Parent returns the node's parent, or nil for the root.
func (n *Node) Parent() *Node { return n.parent }

// Root walks the parent chain up to the translation unit root.
func (n *Node) Root() *Node {
	cur := n
	for cur.parent != nil {
		cur = cur.parent
	}
	return cur
}

// HasQualifier reports whether the node carries the given storage qualifier.
func (n *Node) HasQualifier(q string) bool {
	for _, have := range n.Qualifiers {
		if have == q {
			return true
		}
	}
	return false
}

// IsScope reports whether the node introduces a new lexical scope.
func (n *Node) IsScope() bool {
	switch n.Kind {
	case KindFunctionDecl, KindCompoundStmt, KindSwitchStmt:
		return true
	}
	return false
}

// IsStatement reports whether the node counts as a statement for the
// function-length metric.
func (n *Node) IsStatement() bool {
	switch n.Kind {
	case KindExprStmt, KindIfStmt, KindForStmt, KindWhileStmt, KindDoStmt,
		KindSwitchStmt, KindCaseStmt, KindReturnStmt, KindBreakStmt,
		KindContinueStmt, KindGotoStmt, KindLabelStmt, KindVarDecl:
		return true
	}
	return false
}

// EnclosingFunction returns the nearest FunctionDecl ancestor, or nil when
// the node is not inside a function body.
func (n *Node) EnclosingFunction() *Node {
	for cur := n.parent; cur != nil; cur = cur.parent {
		if cur.Kind == KindFunctionDecl {
			return cur
		}
	}
	return nil
}

// AtFileScope reports whether the node is a direct child of the translation
// unit root.
func (n *Node) AtFileScope() bool {
	return n.parent != nil && n.parent.Kind == KindFileScope
}

// Unit is one parsed translation unit: the tree root plus the raw source
// lines needed for snippets and file-header checks. A Unit is immutable
// once built.
type Unit struct {
	Path  string
	Root  *Node
	Lines []string
}

// Snippet returns the trimmed source text of the given 1-based line, or an
// empty string when the line is out of range.
func (u *Unit) Snippet(line int) string {
	if u == nil || line < 1 || line > len(u.Lines) {
		return ""
	}
	return strings.TrimSpace(u.Lines[line-1])
}
