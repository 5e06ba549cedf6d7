package engine

import (
	"fmt"

	"github.com/cwarden/cwarden/rules"
	"github.com/cwarden/cwarden/tree"
)

// selectDeclarations returns the declaration nodes a naming rule's scope
// applies to, in pre-order.
func selectDeclarations(root *tree.Node, scope rules.Scope) []*tree.Node {
	return tree.Collect(root, func(n *tree.Node) bool {
		switch scope {
		case rules.ScopeFunction:
			return n.Kind == tree.KindFunctionDecl
		case rules.ScopeVariable:
			return n.Kind == tree.KindVarDecl
		case rules.ScopeStatic:
			return n.Kind == tree.KindVarDecl && n.HasQualifier("static")
		case rules.ScopeGlobal:
			return n.Kind == tree.KindVarDecl && n.AtFileScope() && !n.HasQualifier("static")
		case rules.ScopeMacro:
			return n.Kind == tree.KindMacroDef
		case rules.ScopeAny:
			switch n.Kind {
			case tree.KindFunctionDecl, tree.KindVarDecl, tree.KindTypedefDecl,
				tree.KindEnumDecl, tree.KindEnumConstant, tree.KindMacroDef:
				return true
			}
		}
		return false
	})
}

// evaluateNaming fires a violation for every selected declaration whose
// identifier does not fully match the rule's anchored pattern.
func (e *Engine) evaluateNaming(unit *tree.Unit, rule *rules.Rule) []finding {
	var out []finding
	for _, decl := range selectDeclarations(unit.Root, rule.Scope) {
		if decl.Name == "" {
			continue
		}
		if rule.Regexp().MatchString(decl.Name) {
			continue
		}
		out = append(out, finding{
			node:    decl,
			message: fmt.Sprintf("name %q does not match pattern %q", decl.Name, rule.Pattern),
		})
	}
	return out
}
