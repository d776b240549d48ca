package tree

import (
	"sort"
	"strconv"
	"strings"
)

// Attribute keys as they appear in patterns, templates and JSON.
const (
	KeyID    = "id"
	KeyForm  = "form"
	KeyLemma = "lemma"
	KeyUPOS  = "upostag"
	KeyXPOS  = "xpostag"
	KeyFeats = "feats"
	KeyDeps  = "deps"
	KeyMisc  = "misc"
)

// Unset is the CoNLL placeholder for a missing field. Fields holding it
// are omitted, never stored.
const Unset = "_"

// ordinalSep separates a relation label from its 1-based ordinal among
// siblings sharing that label ("amod#2").
const ordinalSep = "#"

var attributeKeys = map[string]bool{
	KeyID:    true,
	KeyForm:  true,
	KeyLemma: true,
	KeyUPOS:  true,
	KeyXPOS:  true,
	KeyFeats: true,
	KeyDeps:  true,
	KeyMisc:  true,
}

// IsAttribute reports whether key names a node attribute rather than a
// relation label.
func IsAttribute(key string) bool {
	return attributeKeys[key]
}

// Attributes is the attribute set of a Node. Empty strings (and a nil
// Feats) mean "absent".
type Attributes struct {
	ID    int
	Form  string
	Lemma string
	UPOS  string
	XPOS  string
	Feats map[string]string
	Deps  string
	Misc  string
}

func (a Attributes) copy() Attributes {
	c := a
	if a.Feats != nil {
		c.Feats = make(map[string]string, len(a.Feats))
		for k, v := range a.Feats {
			c.Feats[k] = v
		}
	}
	return c
}

// FormatFeats renders features in CoNLL style ("Gender=Fem|Number=Sing"),
// sorted by feature name.
func FormatFeats(feats map[string]string) string {
	if len(feats) == 0 {
		return ""
	}
	names := make([]string, 0, len(feats))
	for name := range feats {
		names = append(names, name)
	}
	sort.Strings(names)
	parts := make([]string, len(names))
	for i, name := range names {
		parts[i] = name + "=" + feats[name]
	}
	return strings.Join(parts, "|")
}

// Edge is a labeled link from a parent to one child.
type Edge struct {
	Label string
	Node  *Node
}

// Node is a tree vertex: an attribute set plus ordered labeled children.
type Node struct {
	Attributes
	Children []Edge
}

// Add appends a child under label. Existing children with the same label
// are kept.
func (n *Node) Add(label string, child *Node) {
	n.Children = append(n.Children, Edge{Label: label, Node: child})
}

// Attr returns the textual value of an attribute and whether it is set.
func (n *Node) Attr(key string) (string, bool) {
	var v string
	switch key {
	case KeyID:
		if n.ID == 0 {
			return "", false
		}
		return strconv.Itoa(n.ID), true
	case KeyForm:
		v = n.Form
	case KeyLemma:
		v = n.Lemma
	case KeyUPOS:
		v = n.UPOS
	case KeyXPOS:
		v = n.XPOS
	case KeyFeats:
		v = FormatFeats(n.Feats)
	case KeyDeps:
		v = n.Deps
	case KeyMisc:
		v = n.Misc
	default:
		return "", false
	}
	return v, v != ""
}

// SplitOrdinal splits "label#n" into its label and 1-based ordinal. A key
// without a valid ordinal suffix is returned whole with ordinal 1.
func SplitOrdinal(key string) (string, int) {
	i := strings.LastIndex(key, ordinalSep)
	if i <= 0 {
		return key, 1
	}
	n, err := strconv.Atoi(key[i+1:])
	if err != nil || n < 1 {
		return key, 1
	}
	return key[:i], n
}

// Child finds the child addressed by key ("obj" or "obj#2") and returns it
// with its position in Children.
func (n *Node) Child(key string) (*Node, int, bool) {
	label, ordinal := SplitOrdinal(key)
	seen := 0
	for i, e := range n.Children {
		if e.Label != label {
			continue
		}
		seen++
		if seen == ordinal {
			return e.Node, i, true
		}
	}
	return nil, -1, false
}

// keys returns the address of every child, in order, using ordinals for
// repeated labels.
func (n *Node) keys() []string {
	counts := make(map[string]int, len(n.Children))
	keys := make([]string, len(n.Children))
	for i, e := range n.Children {
		counts[e.Label]++
		if c := counts[e.Label]; c > 1 {
			keys[i] = e.Label + ordinalSep + strconv.Itoa(c)
		} else {
			keys[i] = e.Label
		}
	}
	return keys
}

// Tree is a top-level relation label bound to the root node.
type Tree struct {
	Label string
	Root  *Node
}

// New makes a tree with the given top-level label.
func New(label string, root *Node) *Tree {
	return &Tree{Label: label, Root: root}
}
