package model

import "fmt"

// FlatNode is a snapshot node with a path breadcrumb instead of children.
type FlatNode struct {
	Role      string `yaml:"role"                 json:"role"`
	Name      string `yaml:"name,omitempty"       json:"name,omitempty"`
	ID        string `yaml:"id,omitempty"         json:"id,omitempty"`
	NativeID  string `yaml:"native_id,omitempty"  json:"native_id,omitempty"`
	ClassName string `yaml:"class_name,omitempty" json:"class_name,omitempty"`
	Bounds    *Rect  `yaml:"bounds,omitempty"     json:"bounds,omitempty"`
	Enabled   *bool  `yaml:"enabled,omitempty"    json:"enabled,omitempty"`
	Visible   *bool  `yaml:"visible,omitempty"    json:"visible,omitempty"`
	Value     string `yaml:"value,omitempty"      json:"value,omitempty"`
	Path      string `yaml:"path"                 json:"path"`
}

// Flatten converts a snapshot tree into a pre-order list. Each node gets a
// path of roles joined with " > ".
func Flatten(root *Node) []FlatNode {
	var result []FlatNode
	if root != nil {
		flattenRecursive(root, "", &result)
	}
	return result
}

func flattenRecursive(n *Node, parentPath string, result *[]FlatNode) {
	currentPath := n.Role
	if parentPath != "" {
		currentPath = parentPath + " > " + n.Role
	}

	*result = append(*result, FlatNode{
		Role:      n.Role,
		Name:      n.Name,
		ID:        n.ID,
		NativeID:  n.NativeID,
		ClassName: n.ClassName,
		Bounds:    n.Bounds,
		Enabled:   n.Enabled,
		Visible:   n.Visible,
		Value:     n.Value,
		Path:      currentPath,
	})

	for i := range n.Children {
		flattenRecursive(&n.Children[i], currentPath, result)
	}
}

// Identity returns a key that stays the same for an element across two
// snapshots: the platform id when present, else native id, else its path
// and name.
func (f FlatNode) Identity() string {
	switch {
	case f.ID != "":
		return "id:" + f.ID
	case f.NativeID != "":
		return "native:" + f.NativeID
	default:
		return fmt.Sprintf("path:%s|%s", f.Path, f.Name)
	}
}
