package tree

import (
	"sort"
	"strings"
)

// Walk visits n and every descendant, parents before children.
func (n *Node) Walk(fn func(*Node)) {
	fn(n)
	for _, e := range n.Children {
		e.Node.Walk(fn)
	}
}

// Nodes returns every node of the subtree sorted by ascending id.
func (n *Node) Nodes() []*Node {
	var nodes []*Node
	n.Walk(func(m *Node) { nodes = append(nodes, m) })
	sort.SliceStable(nodes, func(i, j int) bool { return nodes[i].ID < nodes[j].ID })
	return nodes
}

// Format linearizes the subtree: forms joined by single spaces in
// ascending id order.
func (n *Node) Format() string {
	nodes := n.Nodes()
	forms := make([]string, 0, len(nodes))
	for _, m := range nodes {
		if m.Form != "" {
			forms = append(forms, m.Form)
		}
	}
	return strings.Join(forms, " ")
}

// Min is the smallest id in the subtree.
func (n *Node) Min() int {
	lo := n.ID
	n.Walk(func(m *Node) {
		if m.ID < lo {
			lo = m.ID
		}
	})
	return lo
}

// Max is the largest id in the subtree.
func (n *Node) Max() int {
	hi := n.ID
	n.Walk(func(m *Node) {
		if m.ID > hi {
			hi = m.ID
		}
	})
	return hi
}

// Size is the node count of the subtree.
func (n *Node) Size() int {
	size := 0
	n.Walk(func(*Node) { size++ })
	return size
}

// Renumber shifts every id >= threshold by delta, in place.
func (n *Node) Renumber(delta, threshold int) {
	n.Walk(func(m *Node) {
		if m.ID >= threshold {
			m.ID += delta
		}
	})
}

// Compact renumbers the subtree in place so its ids become start,
// start+1, ... keeping their relative order.
func (n *Node) Compact(start int) {
	for i, m := range n.Nodes() {
		m.ID = start + i
	}
}

// Copy returns a deep copy of the subtree.
func (n *Node) Copy() *Node {
	c := &Node{Attributes: n.Attributes.copy()}
	if len(n.Children) > 0 {
		c.Children = make([]Edge, len(n.Children))
		for i, e := range n.Children {
			c.Children[i] = Edge{Label: e.Label, Node: e.Node.Copy()}
		}
	}
	return c
}

func (t *Tree) Format() string { return t.Root.Format() }
func (t *Tree) Min() int       { return t.Root.Min() }
func (t *Tree) Max() int       { return t.Root.Max() }
func (t *Tree) Size() int      { return t.Root.Size() }

// Copy returns a deep copy of the tree.
func (t *Tree) Copy() *Tree {
	return &Tree{Label: t.Label, Root: t.Root.Copy()}
}

// Branch locates one subtree inside a tree. Parent is nil for the
// top-level branch (the root itself); otherwise Index is the position of
// the edge inside Parent.Children. Branches compare by node identity, so
// two structurally equal subtrees are never confused.
type Branch struct {
	Node   *Node
	Parent *Node
	Label  string
	Index  int
}

// TopLevel reports whether the branch is the tree root.
func (b Branch) TopLevel() bool { return b.Parent == nil }

// Lookup resolves a path of keys (top-level label first, then relation
// labels) to a branch of t.
func (t *Tree) Lookup(keys ...string) (Branch, error) {
	if len(keys) == 0 || keys[0] != t.Label {
		seg := ""
		if len(keys) > 0 {
			seg = keys[0]
		}
		return Branch{}, &LookupError{Path: keys, Segment: seg}
	}
	b := Branch{Node: t.Root, Label: t.Label, Index: -1}
	for _, key := range keys[1:] {
		child, idx, ok := b.Node.Child(key)
		if !ok {
			return Branch{}, &LookupError{Path: keys, Segment: key}
		}
		b = Branch{Node: child, Parent: b.Node, Label: b.Node.Children[idx].Label, Index: idx}
	}
	return b, nil
}

// DeepReplace returns a copy of t where the branch b is replaced by a
// copy of replacement and every other id >= threshold is shifted by
// delta. t is not modified.
//
// Callers keep ids contiguous by compacting replacement to start at
// b.Node.Min(), passing threshold = b.Node.Max()+1 and
// delta = replacement.Size() - b.Node.Size().
func (t *Tree) DeepReplace(b Branch, replacement *Node, delta, threshold int) *Tree {
	if b.TopLevel() {
		return &Tree{Label: t.Label, Root: replacement.Copy()}
	}
	var splice func(n *Node) *Node
	splice = func(n *Node) *Node {
		c := &Node{Attributes: n.Attributes.copy()}
		if c.ID >= threshold {
			c.ID += delta
		}
		if len(n.Children) == 0 {
			return c
		}
		c.Children = make([]Edge, len(n.Children))
		for i, e := range n.Children {
			if n == b.Parent && i == b.Index {
				c.Children[i] = Edge{Label: e.Label, Node: replacement.Copy()}
				continue
			}
			c.Children[i] = Edge{Label: e.Label, Node: splice(e.Node)}
		}
		return c
	}
	return &Tree{Label: t.Label, Root: splice(t.Root)}
}
