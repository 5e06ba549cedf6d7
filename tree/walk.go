package tree

import "fmt"

// ScopeChain is the ordered list of ancestor nodes that introduce a lexical
// scope, outermost first.
type ScopeChain []*Node

// Function returns the innermost FunctionDecl in the chain, or nil.
func (c ScopeChain) Function() *Node {
	for i := len(c) - 1; i >= 0; i-- {
		if c[i].Kind == KindFunctionDecl {
			return c[i]
		}
	}
	return nil
}

// Warning records a malformed subtree encountered mid-traversal. Warnings
// are non-fatal: the offending subtree is skipped and the walk continues.
type Warning struct {
	Loc     Location
	Message string
}

func (w Warning) String() string {
	return fmt.Sprintf("%s: %s", w.Loc, w.Message)
}

// VisitFunc is called for every node in pre-order. Returning false skips the
// node's subtree.
type VisitFunc func(n *Node, scope ScopeChain) bool

// Walker performs depth-first pre-order traversals of a tree, tracking the
// enclosing scope chain. A fresh Walker is used per rule evaluation; the
// walk never mutates the tree.
type Walker struct {
	warnings []Warning
}

// NewWalker creates a restartable traversal object.
func NewWalker() *Walker {
	return &Walker{}
}

// Warnings returns the structural warnings recorded so far.
func (w *Walker) Warnings() []Warning {
	return w.warnings
}

// Walk visits root and its descendants in depth-first pre-order. Malformed
// nodes are recorded as warnings and their subtrees skipped.
func (w *Walker) Walk(root *Node, visit VisitFunc) {
	if root == nil {
		return
	}
	w.walk(root, nil, visit)
}

func (w *Walker) walk(n *Node, scope ScopeChain, visit VisitFunc) {
	if msg, ok := malformed(n); ok {
		w.warnings = append(w.warnings, Warning{Loc: n.Loc, Message: msg})
		return
	}
	if !visit(n, scope) {
		return
	}
	childScope := scope
	if n.IsScope() {
		childScope = append(childScope[:len(childScope):len(childScope)], n)
	}
	for _, child := range n.Children {
		w.walk(child, childScope, visit)
	}
}

// malformed reports structural defects that make a subtree unanalyzable.
func malformed(n *Node) (string, bool) {
	switch n.Kind {
	case KindIfStmt:
		if len(n.Children) < 2 {
			return "if statement is missing its condition or body", true
		}
	case KindWhileStmt, KindSwitchStmt:
		if len(n.Children) < 2 {
			return fmt.Sprintf("%s is missing its condition or body", n.Kind), true
		}
	case KindForStmt, KindDoStmt:
		if len(n.Children) == 0 {
			return fmt.Sprintf("%s is missing its body", n.Kind), true
		}
	case KindFunctionDecl:
		if n.Name == "" {
			return "function declaration without a name", true
		}
	}
	return "", false
}

// Collect walks root and returns every node for which keep returns true,
// in pre-order.
func Collect(root *Node, keep func(*Node) bool) []*Node {
	var out []*Node
	NewWalker().Walk(root, func(n *Node, _ ScopeChain) bool {
		if keep(n) {
			out = append(out, n)
		}
		return true
	})
	return out
}
