package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNode_LeafChildrenSerializeAsArray(t *testing.T) {
	n := Node{Role: "Button", Name: "OK", Children: []Node{}}
	data, err := json.Marshal(n)
	require.NoError(t, err)
	assert.JSONEq(t, `{"role":"Button","name":"OK","children":[]}`, string(data))
}

func TestNode_CountAndWalk(t *testing.T) {
	tree := sampleTree()[0]
	assert.Equal(t, 5, tree.Count())

	var seen []string
	tree.Walk(func(n *Node) bool {
		seen = append(seen, n.Role)
		return n.Role != "Group"
	})
	assert.Equal(t, []string{"Window", "Group"}, seen)
}

func TestBoolPtr(t *testing.T) {
	p := BoolPtr(true)
	require.NotNil(t, p)
	assert.True(t, *p)
}
