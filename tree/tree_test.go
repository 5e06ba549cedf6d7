package tree

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loc(line int) Location {
	return Location{File: "test.c", Line: line, Column: 1}
}

func TestNode_AddChildSetsParent(t *testing.T) {
	root := NewNode(KindFileScope, loc(1))
	fn := NewNode(KindFunctionDecl, loc(2))
	body := NewNode(KindCompoundStmt, loc(3))

	root.AddChild(fn)
	fn.AddChild(body)

	require.Len(t, root.Children, 1)
	assert.Same(t, root, fn.Parent())
	assert.Same(t, fn, body.Parent())
	assert.Nil(t, root.Parent())
	assert.Same(t, root, body.Root())
}

func TestNode_AddChildIgnoresNil(t *testing.T) {
	root := NewNode(KindFileScope, loc(1))
	root.AddChild(nil)
	assert.Empty(t, root.Children)
}

func TestNode_EnclosingFunction(t *testing.T) {
	root := NewNode(KindFileScope, loc(1))
	fn := NewNode(KindFunctionDecl, loc(2))
	fn.Name = "f"
	body := NewNode(KindCompoundStmt, loc(3))
	stmt := NewNode(KindExprStmt, loc(4))
	root.AddChild(fn)
	fn.AddChild(body)
	body.AddChild(stmt)

	assert.Same(t, fn, stmt.EnclosingFunction())
	assert.Nil(t, fn.EnclosingFunction())
	assert.Nil(t, root.EnclosingFunction())
}

func TestNode_AtFileScope(t *testing.T) {
	root := NewNode(KindFileScope, loc(1))
	global := NewNode(KindVarDecl, loc(2))
	fn := NewNode(KindFunctionDecl, loc(3))
	body := NewNode(KindCompoundStmt, loc(4))
	local := NewNode(KindVarDecl, loc(5))
	root.AddChild(global)
	root.AddChild(fn)
	fn.AddChild(body)
	body.AddChild(local)

	assert.True(t, global.AtFileScope())
	assert.False(t, local.AtFileScope())
	assert.False(t, root.AtFileScope())
}

func TestNode_HasQualifier(t *testing.T) {
	n := NewNode(KindVarDecl, loc(1))
	n.Qualifiers = []string{"static"}
	assert.True(t, n.HasQualifier("static"))
	assert.False(t, n.HasQualifier("extern"))
}

func TestNode_IsScope(t *testing.T) {
	assert.True(t, NewNode(KindFunctionDecl, loc(1)).IsScope())
	assert.True(t, NewNode(KindCompoundStmt, loc(1)).IsScope())
	assert.True(t, NewNode(KindSwitchStmt, loc(1)).IsScope())
	assert.False(t, NewNode(KindIfStmt, loc(1)).IsScope())
	assert.False(t, NewNode(KindVarDecl, loc(1)).IsScope())
}

func TestLocation_String(t *testing.T) {
	assert.Equal(t, "test.c:4:7", Location{File: "test.c", Line: 4, Column: 7}.String())
}

func TestUnit_Snippet(t *testing.T) {
	u := &Unit{
		Path:  "test.c",
		Lines: []string{"int main(void) {", "    return 0;", "}"},
	}

	assert.Equal(t, "return 0;", u.Snippet(2))
	assert.Equal(t, "", u.Snippet(0))
	assert.Equal(t, "", u.Snippet(4))

	var nilUnit *Unit
	assert.Equal(t, "", nilUnit.Snippet(1))
}
