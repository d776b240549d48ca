package template

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/ohler55/ojg/jp"

	"github.com/roach88/concha/internal/tree"
)

// Resolve walks p through ctx and returns the value it names.
func Resolve(ctx Context, p Path) (any, error) {
	v, ok := ctx[p.Name]
	if !ok {
		return nil, fmt.Errorf("%w %q", ErrUnknownName, p.Name)
	}
	keys := p.Keys
	for len(keys) > 0 {
		key := keys[0]
		switch cur := v.(type) {
		case *tree.Tree:
			if cur == nil {
				return nil, fmt.Errorf("%w: %s is empty", ErrNotFound, p.Name)
			}
			if key != cur.Label {
				return nil, fmt.Errorf("%w: top-level label %q", ErrNotFound, key)
			}
			v = cur.Root
		case *tree.Node:
			next, err := nodeKey(cur, key, len(keys) == 1)
			if err != nil {
				return nil, err
			}
			v = next
		case map[string]string:
			s, ok := cur[key]
			if !ok {
				return nil, fmt.Errorf("%w: feature %q", ErrNotFound, key)
			}
			v = s
		default:
			return jsonPath(cur, keys)
		}
		keys = keys[1:]
	}
	return v, nil
}

func nodeKey(n *tree.Node, key string, last bool) (any, error) {
	if key == tree.KeyFeats {
		if n.Feats == nil {
			return nil, fmt.Errorf("%w: attribute %q", ErrNotFound, key)
		}
		return n.Feats, nil
	}
	if tree.IsAttribute(key) {
		if !last {
			return nil, fmt.Errorf("%w: attribute %q has no keys", ErrNotFound, key)
		}
		s, ok := n.Attr(key)
		if !ok {
			return nil, fmt.Errorf("%w: attribute %q", ErrNotFound, key)
		}
		return s, nil
	}
	child, _, ok := n.Child(key)
	if !ok {
		return nil, fmt.Errorf("%w: label %q", ErrNotFound, key)
	}
	return child, nil
}

// jsonPath resolves the remaining keys inside a decoded JSON value.
// Integer keys index arrays; any other key selects an object member.
func jsonPath(data any, keys []string) (any, error) {
	full := jp.R()
	cur := data
	for _, k := range keys {
		step := jp.R()
		if i, err := strconv.Atoi(k); err == nil {
			if _, isArray := cur.([]any); isArray {
				step = step.N(i)
				full = full.N(i)
			}
		}
		if len(step) == 1 {
			step = step.C(k)
			full = full.C(k)
		}
		got := step.Get(cur)
		if len(got) == 0 {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, full.String())
		}
		cur = got[0]
	}
	return cur, nil
}

// Text renders a resolved value as template output.
func Text(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case *tree.Tree:
		if x == nil {
			return ""
		}
		return x.Format()
	case *tree.Node:
		if x == nil {
			return ""
		}
		return x.Format()
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case bool:
		return strconv.FormatBool(x)
	case json.Number:
		return x.String()
	case map[string]string:
		return tree.FormatFeats(x)
	default:
		data, err := json.Marshal(x)
		if err != nil {
			return fmt.Sprint(x)
		}
		return string(data)
	}
}
