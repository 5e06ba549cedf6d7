// Package parser produces the normalized tree model for C translation
// units using the tree-sitter C grammar. It is the concrete tree producer
// behind the engine's producer contract: the engine never constructs trees
// itself.
package parser

import (
	"context"
	"fmt"
	"os"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/c"

	"github.com/cwarden/cwarden/tree"
)

// ParseError is the structured error returned when a file cannot be built
// into a tree.
type ParseError struct {
	Path   string
	Line   int
	Column int
	Detail string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s:%d:%d: %s", e.Path, e.Line, e.Column, e.Detail)
}

// Parser builds tree.Unit values from C source files.
type Parser struct{}

// NewParser creates a C tree producer. A Parser is safe for concurrent
// use; the underlying tree-sitter parser is created per call because it
// is not.
func NewParser() *Parser {
	return &Parser{}
}

// Produce parses the file at path into an immutable translation unit.
func (p *Parser) Produce(ctx context.Context, path string) (*tree.Unit, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	return p.ProduceSource(ctx, path, content)
}

// ProduceSource parses in-memory source. Used directly by tests and by the
// watch loop, which re-reads changed files itself.
func (p *Parser) ProduceSource(ctx context.Context, path string, content []byte) (*tree.Unit, error) {
	tsParser := sitter.NewParser()
	tsParser.SetLanguage(c.GetLanguage())

	tsTree, err := tsParser.ParseCtx(ctx, nil, content)
	if err != nil {
		return nil, fmt.Errorf("parse file: %w", err)
	}
	defer tsTree.Close()

	rootNode := tsTree.RootNode()
	if rootNode.HasError() {
		if bad := firstErrorNode(rootNode); bad != nil {
			return nil, &ParseError{
				Path:   path,
				Line:   int(bad.StartPoint().Row) + 1,
				Column: int(bad.StartPoint().Column) + 1,
				Detail: "syntax error",
			}
		}
		return nil, &ParseError{Path: path, Line: 1, Column: 1, Detail: "syntax error"}
	}

	b := &builder{src: content, path: path}
	root := tree.NewNode(tree.KindFileScope, b.loc(rootNode))
	b.visitChildren(rootNode, root)

	return &tree.Unit{
		Path:  path,
		Root:  root,
		Lines: strings.Split(string(content), "\n"),
	}, nil
}

func firstErrorNode(n *sitter.Node) *sitter.Node {
	if n.IsError() {
		return n
	}
	for i := 0; i < int(n.ChildCount()); i++ {
		child := n.Child(i)
		if !child.HasError() {
			continue
		}
		if found := firstErrorNode(child); found != nil {
			return found
		}
	}
	return nil
}

// builder converts tree-sitter nodes into the engine's tree model. Grammar
// constructs without a modeled kind are transparent: their children attach
// to the nearest modeled ancestor so containment is preserved.
type builder struct {
	src  []byte
	path string
}

func (b *builder) loc(n *sitter.Node) tree.Location {
	return tree.Location{
		File:   b.path,
		Line:   int(n.StartPoint().Row) + 1,
		Column: int(n.StartPoint().Column) + 1,
	}
}

func (b *builder) text(n *sitter.Node) string {
	if n == nil {
		return ""
	}
	return string(b.src[n.StartByte():n.EndByte()])
}

func (b *builder) visitChildren(n *sitter.Node, dst *tree.Node) {
	for i := 0; i < int(n.NamedChildCount()); i++ {
		b.visit(n.NamedChild(i), dst)
	}
}

func (b *builder) visit(n *sitter.Node, dst *tree.Node) {
	switch n.Type() {
	case "function_definition":
		b.functionDefinition(n, dst)

	case "declaration":
		b.declaration(n, dst)

	case "type_definition":
		node := tree.NewNode(tree.KindTypedefDecl, b.loc(n))
		node.Name = b.declaredName(n.ChildByFieldName("declarator"))
		dst.AddChild(node)

	case "enum_specifier":
		node := tree.NewNode(tree.KindEnumDecl, b.loc(n))
		node.Name = b.text(n.ChildByFieldName("name"))
		if body := n.ChildByFieldName("body"); body != nil {
			b.visitChildren(body, node)
		}
		dst.AddChild(node)

	case "enumerator":
		node := tree.NewNode(tree.KindEnumConstant, b.loc(n))
		node.Name = b.text(n.ChildByFieldName("name"))
		if value := n.ChildByFieldName("value"); value != nil {
			b.visit(value, node)
		}
		dst.AddChild(node)

	case "preproc_def", "preproc_function_def":
		node := tree.NewNode(tree.KindMacroDef, b.loc(n))
		node.Name = b.text(n.ChildByFieldName("name"))
		dst.AddChild(node)

	case "preproc_if", "preproc_ifdef", "preproc_elif", "preproc_else":
		b.visitChildren(n, dst)

	case "if_statement":
		node := tree.NewNode(tree.KindIfStmt, b.loc(n))
		b.visitField(n, "condition", node)
		b.visitField(n, "consequence", node)
		if alt := n.ChildByFieldName("alternative"); alt != nil {
			elseNode := tree.NewNode(tree.KindElseClause, b.loc(alt))
			if alt.Type() == "else_clause" {
				b.visitChildren(alt, elseNode)
			} else {
				b.visit(alt, elseNode)
			}
			node.AddChild(elseNode)
		}
		dst.AddChild(node)

	case "while_statement":
		node := tree.NewNode(tree.KindWhileStmt, b.loc(n))
		b.visitField(n, "condition", node)
		b.visitField(n, "body", node)
		dst.AddChild(node)

	case "do_statement":
		node := tree.NewNode(tree.KindDoStmt, b.loc(n))
		b.visitField(n, "body", node)
		b.visitField(n, "condition", node)
		dst.AddChild(node)

	case "for_statement":
		// Header clauses precede the body, so detectors can tell a bare
		// body, for (;;), from a populated header.
		node := tree.NewNode(tree.KindForStmt, b.loc(n))
		b.visitField(n, "initializer", node)
		b.visitField(n, "condition", node)
		b.visitField(n, "update", node)
		b.visitField(n, "body", node)
		dst.AddChild(node)

	case "switch_statement":
		node := tree.NewNode(tree.KindSwitchStmt, b.loc(n))
		b.visitField(n, "condition", node)
		b.visitField(n, "body", node)
		dst.AddChild(node)

	case "case_statement":
		node := tree.NewNode(tree.KindCaseStmt, b.loc(n))
		value := n.ChildByFieldName("value")
		if value != nil {
			b.visit(value, node)
		}
		for i := 0; i < int(n.NamedChildCount()); i++ {
			child := n.NamedChild(i)
			if value != nil && child.Equal(value) {
				continue
			}
			b.visit(child, node)
		}
		dst.AddChild(node)

	case "compound_statement":
		node := tree.NewNode(tree.KindCompoundStmt, b.loc(n))
		b.visitChildren(n, node)
		dst.AddChild(node)

	case "expression_statement":
		node := tree.NewNode(tree.KindExprStmt, b.loc(n))
		b.visitChildren(n, node)
		dst.AddChild(node)

	case "return_statement":
		node := tree.NewNode(tree.KindReturnStmt, b.loc(n))
		b.visitChildren(n, node)
		dst.AddChild(node)

	case "break_statement":
		dst.AddChild(tree.NewNode(tree.KindBreakStmt, b.loc(n)))

	case "continue_statement":
		dst.AddChild(tree.NewNode(tree.KindContinueStmt, b.loc(n)))

	case "goto_statement":
		node := tree.NewNode(tree.KindGotoStmt, b.loc(n))
		node.Name = b.text(n.ChildByFieldName("label"))
		dst.AddChild(node)

	case "labeled_statement":
		node := tree.NewNode(tree.KindLabelStmt, b.loc(n))
		node.Name = b.text(n.ChildByFieldName("label"))
		for i := 0; i < int(n.NamedChildCount()); i++ {
			child := n.NamedChild(i)
			if child.Type() == "statement_identifier" {
				continue
			}
			b.visit(child, node)
		}
		dst.AddChild(node)

	case "call_expression":
		node := tree.NewNode(tree.KindCallExpr, b.loc(n))
		if callee := n.ChildByFieldName("function"); callee != nil && callee.Type() == "identifier" {
			node.Name = b.text(callee)
		}
		b.visitField(n, "arguments", node)
		dst.AddChild(node)

	case "binary_expression":
		node := tree.NewNode(tree.KindBinaryOp, b.loc(n))
		node.Value = b.text(n.ChildByFieldName("operator"))
		b.visitField(n, "left", node)
		b.visitField(n, "right", node)
		dst.AddChild(node)

	case "unary_expression":
		node := tree.NewNode(tree.KindUnaryOp, b.loc(n))
		node.Value = b.text(n.ChildByFieldName("operator"))
		b.visitField(n, "argument", node)
		dst.AddChild(node)

	case "update_expression":
		node := tree.NewNode(tree.KindUnaryOp, b.loc(n))
		node.Value = b.text(n.ChildByFieldName("operator"))
		b.visitField(n, "argument", node)
		dst.AddChild(node)

	case "assignment_expression":
		node := tree.NewNode(tree.KindAssignExpr, b.loc(n))
		node.Value = b.text(n.ChildByFieldName("operator"))
		b.visitField(n, "left", node)
		b.visitField(n, "right", node)
		dst.AddChild(node)

	case "conditional_expression":
		node := tree.NewNode(tree.KindTernaryOp, b.loc(n))
		b.visitField(n, "condition", node)
		b.visitField(n, "consequence", node)
		b.visitField(n, "alternative", node)
		dst.AddChild(node)

	case "subscript_expression":
		node := tree.NewNode(tree.KindSubscriptExpr, b.loc(n))
		b.visitField(n, "argument", node)
		b.visitField(n, "index", node)
		dst.AddChild(node)

	case "identifier":
		node := tree.NewNode(tree.KindIdentifier, b.loc(n))
		node.Name = b.text(n)
		dst.AddChild(node)

	case "number_literal", "char_literal":
		node := tree.NewNode(tree.KindLiteral, b.loc(n))
		node.Value = b.text(n)
		dst.AddChild(node)

	case "string_literal", "comment", "preproc_include":
		// Not modeled.

	default:
		// Transparent: preserve containment without a node of its own.
		b.visitChildren(n, dst)
	}
}

func (b *builder) visitField(n *sitter.Node, field string, dst *tree.Node) {
	if child := n.ChildByFieldName(field); child != nil {
		b.visit(child, dst)
	}
}

// functionDefinition builds a FunctionDecl with ParmDecl children followed
// by the body.
func (b *builder) functionDefinition(n *sitter.Node, dst *tree.Node) {
	fnDeclarator := unwrapTo(n.ChildByFieldName("declarator"), "function_declarator")
	node := tree.NewNode(tree.KindFunctionDecl, b.loc(n))
	if fnDeclarator != nil {
		node.Name = b.declaredName(fnDeclarator.ChildByFieldName("declarator"))
		if params := fnDeclarator.ChildByFieldName("parameters"); params != nil {
			for i := 0; i < int(params.NamedChildCount()); i++ {
				param := params.NamedChild(i)
				if param.Type() != "parameter_declaration" {
					continue
				}
				name := b.declaredName(param.ChildByFieldName("declarator"))
				if name == "" {
					continue // void parameter list or abstract declarator
				}
				parm := tree.NewNode(tree.KindParmDecl, b.loc(param))
				parm.Name = name
				node.AddChild(parm)
			}
		}
	}
	b.visitField(n, "body", node)
	dst.AddChild(node)
}

// declaration builds one VarDecl per declarator. Function prototypes are
// not variables and are skipped.
func (b *builder) declaration(n *sitter.Node, dst *tree.Node) {
	var qualifiers []string
	for i := 0; i < int(n.ChildCount()); i++ {
		child := n.Child(i)
		if child.Type() == "storage_class_specifier" {
			qualifiers = append(qualifiers, b.text(child))
		}
	}

	for i := 0; i < int(n.ChildCount()); i++ {
		if n.FieldNameForChild(i) != "declarator" {
			continue
		}
		declarator := n.Child(i)

		var initValue *sitter.Node
		if declarator.Type() == "init_declarator" {
			initValue = declarator.ChildByFieldName("value")
			declarator = declarator.ChildByFieldName("declarator")
		}
		if unwrapTo(declarator, "function_declarator") != nil {
			continue // prototype
		}

		node := tree.NewNode(tree.KindVarDecl, b.loc(n))
		node.Name = b.declaredName(declarator)
		node.Qualifiers = qualifiers
		if arr := unwrapTo(declarator, "array_declarator"); arr != nil {
			node.Value = b.text(arr.ChildByFieldName("size"))
		}
		if initValue != nil {
			b.visit(initValue, node)
		}
		dst.AddChild(node)
	}
}

// declaredName unwraps pointer, array, and parenthesized declarators down
// to the declared identifier.
func (b *builder) declaredName(declarator *sitter.Node) string {
	for declarator != nil {
		switch declarator.Type() {
		case "identifier", "field_identifier", "type_identifier":
			return b.text(declarator)
		case "pointer_declarator", "array_declarator", "function_declarator",
			"parenthesized_declarator", "init_declarator":
			next := declarator.ChildByFieldName("declarator")
			if next == nil && declarator.NamedChildCount() > 0 {
				next = declarator.NamedChild(0)
			}
			declarator = next
		default:
			return ""
		}
	}
	return ""
}

// unwrapTo walks a declarator chain looking for a node of the given type.
func unwrapTo(declarator *sitter.Node, nodeType string) *sitter.Node {
	for declarator != nil {
		if declarator.Type() == nodeType {
			return declarator
		}
		switch declarator.Type() {
		case "pointer_declarator", "array_declarator", "function_declarator",
			"parenthesized_declarator", "init_declarator":
			declarator = declarator.ChildByFieldName("declarator")
		default:
			return nil
		}
	}
	return nil
}
