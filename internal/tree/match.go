package tree

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	"golang.org/x/text/unicode/norm"
)

// Pattern markers for textual attributes.
const (
	MarkAny     = "*"
	MarkSimilar = "~"
)

// Pattern is a partial tree used as the left-hand side of a trick. Keys
// that name attributes constrain the node; any other key is a relation
// label whose child must match the nested pattern.
type Pattern struct {
	Attrs    map[string]string
	Feats    map[string]string
	Children map[string]*Pattern
}

// Empty reports whether the pattern has no constraints.
func (p *Pattern) Empty() bool {
	return p == nil || len(p.Attrs)+len(p.Feats)+len(p.Children) == 0
}

// UnmarshalJSON decodes the document form of a pattern:
// {"form": "repite", "obj": {"form": "*algo"}}.
func (p *Pattern) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*p = Pattern{}
	for key, value := range raw {
		value = bytes.TrimSpace(value)
		if len(value) == 0 {
			continue
		}
		switch {
		case key == KeyFeats && value[0] == '{':
			var feats map[string]string
			if err := json.Unmarshal(value, &feats); err != nil {
				return fmt.Errorf("pattern %s: %w", key, err)
			}
			p.Feats = feats
		case value[0] == '{':
			child := &Pattern{}
			if err := child.UnmarshalJSON(value); err != nil {
				return fmt.Errorf("pattern %s: %w", key, err)
			}
			if p.Children == nil {
				p.Children = make(map[string]*Pattern)
			}
			p.Children[key] = child
		default:
			s, err := scalarString(value)
			if err != nil {
				return fmt.Errorf("pattern %s: %w", key, err)
			}
			if p.Attrs == nil {
				p.Attrs = make(map[string]string)
			}
			p.Attrs[key] = s
		}
	}
	return nil
}

func scalarString(value json.RawMessage) (string, error) {
	var v any
	if err := json.Unmarshal(value, &v); err != nil {
		return "", err
	}
	switch x := v.(type) {
	case string:
		return x, nil
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64), nil
	case bool:
		return strconv.FormatBool(x), nil
	default:
		return "", fmt.Errorf("unsupported value %s", value)
	}
}

// MarshalJSON writes the pattern back in its document form.
func (p *Pattern) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(p.Attrs)+len(p.Children)+1)
	for k, v := range p.Attrs {
		out[k] = v
	}
	if len(p.Feats) > 0 {
		out[KeyFeats] = p.Feats
	}
	for k, c := range p.Children {
		out[k] = c
	}
	return json.Marshal(out)
}

// Matches reports whether t satisfies p. Top-level keys of p must be the
// tree's label; an empty pattern matches any tree.
func (t *Tree) Matches(p *Pattern) bool {
	if p == nil {
		return true
	}
	if len(p.Attrs) > 0 || len(p.Feats) > 0 {
		return false
	}
	for key, child := range p.Children {
		if key != t.Label || !t.Root.Matches(child) {
			return false
		}
	}
	return true
}

// Matches reports whether the subtree rooted at n satisfies p. Every key
// of p must hold: a missing attribute or relation label fails the match.
func (n *Node) Matches(p *Pattern) bool {
	if p == nil {
		return true
	}
	for key, want := range p.Attrs {
		have, ok := n.Attr(key)
		if !ok || !matchAttr(key, have, want) {
			return false
		}
	}
	for name, want := range p.Feats {
		have, ok := n.Feats[name]
		if !ok || !matchText(have, want) {
			return false
		}
	}
	for key, child := range p.Children {
		if !n.matchChild(key, child) {
			return false
		}
	}
	return true
}

func (n *Node) matchChild(key string, p *Pattern) bool {
	label, _ := SplitOrdinal(key)
	if label != key {
		c, _, ok := n.Child(key)
		return ok && c.Matches(p)
	}
	for _, e := range n.Children {
		if e.Label == label && e.Node.Matches(p) {
			return true
		}
	}
	return false
}

func matchAttr(key, have, want string) bool {
	switch key {
	case KeyForm, KeyLemma, KeyUPOS, KeyXPOS:
		return matchText(have, want)
	default:
		return have == want
	}
}

// matchText applies the three-way rule: "*..." matches anything, "~x"
// matches x, anything else must be equal.
func matchText(have, want string) bool {
	switch {
	case len(want) > 0 && want[:1] == MarkAny:
		return true
	case len(want) > 0 && want[:1] == MarkSimilar:
		return norm.NFC.String(have) == norm.NFC.String(want[1:])
	default:
		return norm.NFC.String(have) == norm.NFC.String(want)
	}
}
