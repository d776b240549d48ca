package tree

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
)

// MarshalJSON writes the tree as {"<label>": <node>}.
func (t *Tree) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]*Node{t.Label: t.Root})
}

// UnmarshalJSON reads a tree written by MarshalJSON.
func (t *Tree) UnmarshalJSON(data []byte) error {
	var raw map[string]*Node
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if len(raw) != 1 {
		return fmt.Errorf("tree: want exactly one top-level label, got %d", len(raw))
	}
	for label, root := range raw {
		if root == nil {
			return fmt.Errorf("tree: %s is null", label)
		}
		t.Label, t.Root = label, root
	}
	return nil
}

// MarshalJSON writes attributes and children side by side. Repeated
// labels are written as label#2, label#3...
func (n *Node) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(n.Children)+8)
	if n.ID != 0 {
		out[KeyID] = n.ID
	}
	for _, key := range []string{KeyForm, KeyLemma, KeyUPOS, KeyXPOS, KeyDeps, KeyMisc} {
		if v, ok := n.Attr(key); ok {
			out[key] = v
		}
	}
	if len(n.Feats) > 0 {
		out[KeyFeats] = n.Feats
	}
	for i, key := range n.keys() {
		out[key] = n.Children[i].Node
	}
	return json.Marshal(out)
}

// UnmarshalJSON reads a node written by MarshalJSON. Children are ordered
// by their smallest id.
func (n *Node) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*n = Node{}
	for key, value := range raw {
		value = bytes.TrimSpace(value)
		switch key {
		case KeyID:
			id, err := parseID(value)
			if err != nil {
				return err
			}
			n.ID = id
		case KeyFeats:
			if err := json.Unmarshal(value, &n.Feats); err != nil {
				return fmt.Errorf("feats: %w", err)
			}
		case KeyForm, KeyLemma, KeyUPOS, KeyXPOS, KeyDeps, KeyMisc:
			var s string
			if err := json.Unmarshal(value, &s); err != nil {
				return fmt.Errorf("%s: %w", key, err)
			}
			n.setAttr(key, clean(s))
		default:
			child := &Node{}
			if err := json.Unmarshal(value, child); err != nil {
				return fmt.Errorf("%s: %w", key, err)
			}
			label, _ := SplitOrdinal(key)
			n.Add(label, child)
		}
	}
	sort.SliceStable(n.Children, func(i, j int) bool {
		return n.Children[i].Node.Min() < n.Children[j].Node.Min()
	})
	return nil
}

func parseID(value json.RawMessage) (int, error) {
	var v any
	if err := json.Unmarshal(value, &v); err != nil {
		return 0, err
	}
	switch x := v.(type) {
	case float64:
		return int(x), nil
	case string:
		id, err := strconv.Atoi(x)
		if err != nil {
			return 0, fmt.Errorf("id: %w", err)
		}
		return id, nil
	default:
		return 0, fmt.Errorf("id: unsupported value %s", value)
	}
}

func (n *Node) setAttr(key, v string) {
	switch key {
	case KeyForm:
		n.Form = v
	case KeyLemma:
		n.Lemma = v
	case KeyUPOS:
		n.UPOS = v
	case KeyXPOS:
		n.XPOS = v
	case KeyDeps:
		n.Deps = v
	case KeyMisc:
		n.Misc = v
	}
}
