package model

import (
	"fmt"
	"time"
)

// ChangeType represents the kind of UI change detected.
type ChangeType string

const (
	ChangeAdded   ChangeType = "added"
	ChangeRemoved ChangeType = "removed"
	ChangeChanged ChangeType = "changed"
)

// UIChange represents a single change between two snapshots.
type UIChange struct {
	Type    ChangeType           `json:"type"              yaml:"type"`
	TS      int64                `json:"ts"                yaml:"ts"`
	Node    *FlatNode            `json:"node,omitempty"    yaml:"node,omitempty"`
	Key     string               `json:"key"               yaml:"key"`
	Changes map[string][2]string `json:"changes,omitempty" yaml:"changes,omitempty"`
}

// DiffNodes compares two flat snapshots. Nodes are matched by Identity;
// repeated identities are disambiguated by occurrence order.
func DiffNodes(prev, curr []FlatNode) []UIChange {
	prevKeys := identities(prev)
	currKeys := identities(curr)

	prevMap := make(map[string]FlatNode, len(prev))
	for i, n := range prev {
		prevMap[prevKeys[i]] = n
	}
	currSet := make(map[string]bool, len(curr))
	for _, k := range currKeys {
		currSet[k] = true
	}

	var changes []UIChange
	now := time.Now().Unix()

	for i, n := range curr {
		key := currKeys[i]
		old, existed := prevMap[key]
		if !existed {
			node := n
			changes = append(changes, UIChange{Type: ChangeAdded, TS: now, Node: &node, Key: key})
			continue
		}
		if diffs := diffProperties(old, n); len(diffs) > 0 {
			changes = append(changes, UIChange{Type: ChangeChanged, TS: now, Key: key, Changes: diffs})
		}
	}

	for i, n := range prev {
		if !currSet[prevKeys[i]] {
			node := n
			changes = append(changes, UIChange{Type: ChangeRemoved, TS: now, Node: &node, Key: prevKeys[i]})
		}
	}
	return changes
}

func identities(nodes []FlatNode) []string {
	seen := make(map[string]int, len(nodes))
	keys := make([]string, len(nodes))
	for i, n := range nodes {
		k := n.Identity()
		if c := seen[k]; c > 0 {
			keys[i] = fmt.Sprintf("%s#%d", k, c)
		} else {
			keys[i] = k
		}
		seen[k]++
	}
	return keys
}

// diffProperties compares two nodes and returns changed fields.
func diffProperties(prev, curr FlatNode) map[string][2]string {
	diffs := make(map[string][2]string)

	if prev.Name != curr.Name {
		diffs["name"] = [2]string{prev.Name, curr.Name}
	}
	if prev.Value != curr.Value {
		diffs["value"] = [2]string{prev.Value, curr.Value}
	}
	if prev.Role != curr.Role {
		diffs["role"] = [2]string{prev.Role, curr.Role}
	}
	if p, c := rectString(prev.Bounds), rectString(curr.Bounds); p != c {
		diffs["bounds"] = [2]string{p, c}
	}
	if p, c := boolString(prev.Enabled), boolString(curr.Enabled); p != c {
		diffs["enabled"] = [2]string{p, c}
	}
	if p, c := boolString(prev.Visible), boolString(curr.Visible); p != c {
		diffs["visible"] = [2]string{p, c}
	}

	if len(diffs) == 0 {
		return nil
	}
	return diffs
}

func rectString(r *Rect) string {
	if r == nil {
		return ""
	}
	return fmt.Sprintf("%d,%d,%d,%d", r.X, r.Y, r.W, r.H)
}

func boolString(b *bool) string {
	if b == nil {
		return ""
	}
	return fmt.Sprintf("%v", *b)
}
