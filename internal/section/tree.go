// Package section parses raw content into a SectionTree: a flat arena of
// classified nodes (chapters, subchapters, captions, list items, ...) whose
// levels always satisfy child.level == parent.level + 1.
package section

import "fmt"

// Kind classifies what a section node is.
type Kind string

const (
	KindChapter       Kind = "chapter"
	KindSubchapter    Kind = "subchapter"
	KindSubsubchapter Kind = "subsubchapter"
	KindParagraph     Kind = "paragraph"
	KindListItem      Kind = "list-item"
	KindTableCaption  Kind = "table-caption"
	KindFigureCaption Kind = "figure-caption"
	KindEquation      Kind = "equation"
	KindBibliography  Kind = "bibliography-entry"
	KindAppendix      Kind = "appendix"
)

// Node is one entry in the arena. Parent is an arena index, -1 for roots.
// No node ever points at a child; the tree cannot form cycles.
type Node struct {
	Title      string
	Level      int
	Kind       Kind
	Confidence float64
	Parent     int
	Paragraphs []string
}

// Tree is the section arena. Sibling order is insertion order and is the
// only meaningful ordering; nothing ever re-sorts nodes.
type Tree struct {
	Nodes    []Node
	Warnings []string
}

// Add appends a node under parent (-1 for a root) and returns its index.
// The level is derived from the parent so the level invariant holds by
// construction.
func (t *Tree) Add(parent int, n Node) int {
	if parent < 0 {
		n.Level = 0
		n.Parent = -1
	} else {
		n.Level = t.Nodes[parent].Level + 1
		n.Parent = parent
	}
	t.Nodes = append(t.Nodes, n)
	return len(t.Nodes) - 1
}

// Roots returns the indices of all top-level nodes in order.
func (t *Tree) Roots() []int {
	var out []int
	for i, n := range t.Nodes {
		if n.Parent < 0 {
			out = append(out, i)
		}
	}
	return out
}

// Children returns the indices of node i's children in order.
func (t *Tree) Children(i int) []int {
	var out []int
	for j, n := range t.Nodes {
		if n.Parent == i {
			out = append(out, j)
		}
	}
	return out
}

// Warn records a tree-level advisory, e.g. a low-confidence classification.
func (t *Tree) Warn(format string, args ...any) {
	t.Warnings = append(t.Warnings, fmt.Sprintf(format, args...))
}

// MaxDepth returns the deepest level present, or -1 for an empty tree.
func (t *Tree) MaxDepth() int {
	max := -1
	for _, n := range t.Nodes {
		if n.Level > max {
			max = n.Level
		}
	}
	return max
}
