package semgrex

import (
	"testing"

	"github.com/2x3systems/semgrex/semgraph"
	"github.com/stretchr/testify/assert"
)

func TestVariableStrings(t *testing.T) {
	vs := NewVariableStrings()
	vs.Set("stem", "jump")
	vs.Set("stem", "jump")
	vs.Set("x", "y")
	assert.Equal(t, []string{"stem", "x"}, vs.Names())

	vs.Unset("stem")
	val, ok := vs.String("stem")
	assert.True(t, ok)
	assert.Equal(t, "jump", val)

	vs.Unset("stem")
	_, ok = vs.String("stem")
	assert.False(t, ok)
	assert.Equal(t, 1, vs.Len())

	assert.Panics(t, func() { vs.Set("x", "z") })
}

func TestBindingsRollback(t *testing.T) {
	env := newBindings()
	a := semgraph.NewNode(1, "a")
	b := semgraph.NewNode(2, "b")

	env.bindNode("a", a)
	mark := env.checkpoint()
	env.bindNode("b", b)
	env.bindNode("a", b) // already bound: no change, nothing logged
	env.bindReln("r", "nsubj")
	env.bindVar("v", "x")
	assert.Equal(t, []string{"a", "b"}, env.nodeNames())

	env.rollback(mark)
	n, _ := env.node("a")
	assert.Equal(t, a, n)
	_, ok := env.node("b")
	assert.False(t, ok)
	assert.Empty(t, env.relnNames())
	assert.Equal(t, 0, env.vars.Len())

	env.rollback(0)
	assert.Empty(t, env.nodeNames())
}
