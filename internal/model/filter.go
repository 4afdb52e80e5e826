package model

import "strings"

// Filter selects snapshot nodes. Zero fields match everything.
type Filter struct {
	// Roles are normalized role names, compared case-insensitively.
	Roles []string
	// BBox keeps nodes whose bounds intersect it.
	BBox *Rect
	// Text keeps nodes whose name or value contains it, case-insensitively.
	Text string
	// PruneEmpty drops anonymous Group and Pane nodes, promoting their children.
	PruneEmpty bool
}

func (f Filter) empty() bool {
	return len(f.Roles) == 0 && f.BBox == nil && f.Text == "" && !f.PruneEmpty
}

// FilterNodes returns the nodes of list that match f. A node that does not
// match is replaced by its matching descendants, so ancestry collapses but
// order is kept. Text matching keeps the ancestors of a match.
func FilterNodes(list []Node, f Filter) []Node {
	if f.empty() {
		return list
	}
	text := strings.ToLower(f.Text)
	roles := make(map[string]bool, len(f.Roles))
	for _, r := range f.Roles {
		roles[strings.ToLower(r)] = true
	}
	return filterNodes(list, f, roles, text)
}

func filterNodes(list []Node, f Filter, roles map[string]bool, text string) []Node {
	result := []Node{}
	for _, n := range list {
		kids := filterNodes(n.Children, f, roles, text)

		keep := (len(roles) == 0 || roles[strings.ToLower(n.Role)]) &&
			(f.BBox == nil || (n.Bounds != nil && intersects(*n.Bounds, *f.BBox))) &&
			(text == "" || textMatches(n, text) || len(kids) > 0)
		if keep && f.PruneEmpty && isEmptyGroup(n) {
			keep = false
		}
		if keep {
			n.Children = kids
			result = append(result, n)
		} else {
			result = append(result, kids...)
		}
	}
	return result
}

func textMatches(n Node, text string) bool {
	return strings.Contains(strings.ToLower(n.Name), text) ||
		strings.Contains(strings.ToLower(n.Value), text)
}

// isEmptyGroup reports a structural container with nothing to read.
func isEmptyGroup(n Node) bool {
	return (n.Role == "Group" || n.Role == "Pane" || n.Role == "Custom") &&
		n.Name == "" && n.Value == "" && n.ID == ""
}

func intersects(a, b Rect) bool {
	return a.X < b.X+b.W && a.X+a.W > b.X && a.Y < b.Y+b.H && a.Y+a.H > b.Y
}
