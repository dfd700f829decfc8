package category

import (
	"sort"
	"strings"
	"time"
)

// Node is one category in the assembled forest. Children are owned copies,
// never pointers back into the flat rows.
type Node struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	ParentID  *string   `json:"parentId"`
	CreatedAt time.Time `json:"createdAt"`
	Children  []Node    `json:"children"`
}

type Forest struct {
	Tree []Node     `json:"categories"`
	Flat []Category `json:"flat"`
}

// SortByName orders rows case-insensitively by name, then by id so equal
// names keep a deterministic order.
func SortByName(rows []Category) {
	sort.SliceStable(rows, func(i, j int) bool {
		a, b := strings.ToLower(rows[i].Name), strings.ToLower(rows[j].Name)
		if a != b {
			return a < b
		}
		return rows[i].ID < rows[j].ID
	})
}

// BuildTree assembles a snapshot forest from flat rows. Rows whose parent is
// nil or unknown become roots. The input slice is not modified.
func BuildTree(rows []Category) Forest {
	flat := make([]Category, len(rows))
	copy(flat, rows)
	SortByName(flat)

	known := make(map[string]struct{}, len(flat))
	for _, c := range flat {
		known[c.ID] = struct{}{}
	}

	children := make(map[string][]int, len(flat))
	var roots []int
	for i, c := range flat {
		if c.ParentID == nil {
			roots = append(roots, i)
			continue
		}
		if _, ok := known[*c.ParentID]; !ok {
			roots = append(roots, i)
			continue
		}
		children[*c.ParentID] = append(children[*c.ParentID], i)
	}

	visited := make(map[string]bool, len(flat))

	var build func(i int) Node
	build = func(i int) Node {
		c := flat[i]
		visited[c.ID] = true

		n := Node{
			ID:        c.ID,
			Name:      c.Name,
			ParentID:  copyID(c.ParentID),
			CreatedAt: c.CreatedAt,
			Children:  []Node{},
		}
		for _, ci := range children[c.ID] {
			if visited[flat[ci].ID] {
				continue
			}
			n.Children = append(n.Children, build(ci))
		}
		return n
	}

	tree := make([]Node, 0, len(roots))
	for _, i := range roots {
		tree = append(tree, build(i))
	}

	// rows on a stored cycle are unreachable from any root
	for i, c := range flat {
		if !visited[c.ID] {
			tree = append(tree, build(i))
		}
	}

	for i := range flat {
		flat[i].ParentID = copyID(flat[i].ParentID)
	}

	return Forest{Tree: tree, Flat: flat}
}

// Flatten walks a forest depth-first.
func Flatten(tree []Node) []Node {
	var out []Node
	var walk func(ns []Node)
	walk = func(ns []Node) {
		for _, n := range ns {
			out = append(out, n)
			walk(n.Children)
		}
	}
	walk(tree)
	return out
}

func copyID(p *string) *string {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
