package model

// Rect is a screen rectangle in snapshot form.
type Rect struct {
	X int `json:"x" yaml:"x"`
	Y int `json:"y" yaml:"y"`
	W int `json:"w" yaml:"w"`
	H int `json:"h" yaml:"h"`
}

// Node is one element of a serializable window-tree snapshot.
// Children is always emitted, as [] for leaves.
type Node struct {
	Role      string `json:"role"                 yaml:"role"`
	Name      string `json:"name,omitempty"       yaml:"name,omitempty"`
	ID        string `json:"id,omitempty"         yaml:"id,omitempty"`
	NativeID  string `json:"native_id,omitempty"  yaml:"native_id,omitempty"`
	ClassName string `json:"class_name,omitempty" yaml:"class_name,omitempty"`
	Bounds    *Rect  `json:"bounds,omitempty"     yaml:"bounds,omitempty"`
	Enabled   *bool  `json:"enabled,omitempty"    yaml:"enabled,omitempty"`
	Visible   *bool  `json:"visible,omitempty"    yaml:"visible,omitempty"`
	Value     string `json:"value,omitempty"      yaml:"value,omitempty"`
	Children  []Node `json:"children"             yaml:"children"`
}

// Count returns the number of nodes in the subtree including n.
func (n *Node) Count() int {
	total := 1
	for i := range n.Children {
		total += n.Children[i].Count()
	}
	return total
}

// Walk visits n and its descendants in pre-order until fn returns false.
func (n *Node) Walk(fn func(*Node) bool) bool {
	if !fn(n) {
		return false
	}
	for i := range n.Children {
		if !n.Children[i].Walk(fn) {
			return false
		}
	}
	return true
}

// BoolPtr returns a pointer to b.
func BoolPtr(b bool) *bool {
	return &b
}
