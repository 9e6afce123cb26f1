package depgraph

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTopologicalSortOrdersDependenciesFirst(t *testing.T) {
	g := New()
	g.AddEdge("child", "parent")

	order, err := g.TopologicalSort()
	require.NoError(t, err)
	assert.Equal(t, []string{"parent", "child"}, order)
}

func TestTopologicalSortBreaksTiesAscending(t *testing.T) {
	g := New()
	g.AddNode("zeta")
	g.AddNode("alpha")
	g.AddNode("mu")

	order, err := g.TopologicalSort()
	require.NoError(t, err)
	assert.Equal(t, []string{"alpha", "mu", "zeta"}, order)
}

func TestTopologicalSortDetectsCycle(t *testing.T) {
	g := New()
	g.AddEdge("a", "b")
	g.AddEdge("b", "a")

	_, err := g.TopologicalSort()
	require.Error(t, err)
	var cycleErr *CycleError
	require.True(t, errors.As(err, &cycleErr))
	assert.Equal(t, []string{"a", "b", "a"}, cycleErr.Cycle)
}

func TestTopologicalSortChain(t *testing.T) {
	g := New()
	g.AddEdge("c", "b")
	g.AddEdge("b", "a")

	order, err := g.TopologicalSort()
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, order)
}
