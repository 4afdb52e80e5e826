package model

import (
	"encoding/json"
	"strings"
	"testing"
)

func flattenSampleTree() *Node {
	return &Node{
		Role: "Window", Name: "Editor", Children: []Node{
			{Role: "Pane", Children: []Node{
				{Role: "Button", Name: "Save", NativeID: "save", Children: []Node{}},
			}},
			{Role: "Document", Value: "hello", Children: []Node{}},
		},
	}
}

func TestFlatten_Paths(t *testing.T) {
	flat := Flatten(flattenSampleTree())
	if len(flat) != 4 {
		t.Fatalf("expected 4 nodes, got %d", len(flat))
	}
	want := []string{"Window", "Window > Pane", "Window > Pane > Button", "Window > Document"}
	for i, w := range want {
		if flat[i].Path != w {
			t.Errorf("flat[%d].Path = %q, want %q", i, flat[i].Path, w)
		}
	}
	if flat[2].Identity() != "native:save" {
		t.Errorf("identity = %q", flat[2].Identity())
	}
}

func TestFlatten_Nil(t *testing.T) {
	if got := Flatten(nil); len(got) != 0 {
		t.Errorf("expected empty result, got %d", len(got))
	}
}

func TestNode_JSONShape(t *testing.T) {
	n := Node{Role: "Button", Bounds: &Rect{1, 2, 3, 4}, Enabled: BoolPtr(true), Children: []Node{}}
	data, err := json.Marshal(n)
	if err != nil {
		t.Fatal(err)
	}
	s := string(data)
	for _, want := range []string{`"role":"Button"`, `"bounds":{"x":1,"y":2,"w":3,"h":4}`, `"enabled":true`, `"children":[]`} {
		if !strings.Contains(s, want) {
			t.Errorf("json %s missing %s", s, want)
		}
	}
	if strings.Contains(s, "name") || strings.Contains(s, "native_id") {
		t.Errorf("empty optional fields must be omitted: %s", s)
	}
}

func TestNode_CountAndWalkFlattenTree(t *testing.T) {
	tree := flattenSampleTree()
	if tree.Count() != 4 {
		t.Errorf("Count() = %d, want 4", tree.Count())
	}
	var seen []string
	tree.Walk(func(n *Node) bool {
		seen = append(seen, n.Role)
		return n.Role != "Button"
	})
	if strings.Join(seen, ",") != "Window,Pane,Button" {
		t.Errorf("walk stopped at wrong place: %v", seen)
	}
}
