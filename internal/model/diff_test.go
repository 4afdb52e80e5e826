package model

import "testing"

func TestDiffNodes_NoChanges(t *testing.T) {
	nodes := []FlatNode{
		{Role: "Button", Name: "OK", Bounds: &Rect{10, 20, 100, 30}, Path: "Window > Button"},
	}
	if changes := DiffNodes(nodes, nodes); len(changes) != 0 {
		t.Errorf("expected no changes, got %d", len(changes))
	}
}

func TestDiffNodes_AddedAndRemoved(t *testing.T) {
	prev := []FlatNode{
		{Role: "Button", Name: "OK", Path: "Window > Button"},
		{Role: "Text", Name: "Loading...", Path: "Window > Text"},
	}
	curr := []FlatNode{
		{Role: "Button", Name: "OK", Path: "Window > Button"},
		{Role: "Button", Name: "Cancel", Path: "Window > Button"},
	}
	changes := DiffNodes(prev, curr)
	if len(changes) != 2 {
		t.Fatalf("expected 2 changes, got %d: %+v", len(changes), changes)
	}
	if changes[0].Type != ChangeAdded || changes[0].Node.Name != "Cancel" {
		t.Errorf("expected Cancel to be added, got %+v", changes[0])
	}
	if changes[1].Type != ChangeRemoved || changes[1].Node.Name != "Loading..." {
		t.Errorf("expected Loading... to be removed, got %+v", changes[1])
	}
}

func TestDiffNodes_ChangedByNativeID(t *testing.T) {
	prev := []FlatNode{{Role: "Edit", NativeID: "email", Value: "", Path: "Window > Edit"}}
	curr := []FlatNode{{Role: "Edit", NativeID: "email", Value: "a@b.c", Path: "Window > Edit"}}
	changes := DiffNodes(prev, curr)
	if len(changes) != 1 || changes[0].Type != ChangeChanged {
		t.Fatalf("expected one change, got %+v", changes)
	}
	if got := changes[0].Changes["value"]; got != [2]string{"", "a@b.c"} {
		t.Errorf("value diff = %v", got)
	}
}

func TestDiffNodes_DuplicateIdentities(t *testing.T) {
	prev := []FlatNode{
		{Role: "ListItem", Name: "row", Path: "List > ListItem"},
		{Role: "ListItem", Name: "row", Path: "List > ListItem"},
	}
	curr := prev[:1]
	changes := DiffNodes(prev, curr)
	if len(changes) != 1 || changes[0].Type != ChangeRemoved {
		t.Fatalf("expected the second duplicate to be removed, got %+v", changes)
	}
}
