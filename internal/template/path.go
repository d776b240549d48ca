package template

import (
	"fmt"
	"strings"
)

// Context names.
const (
	Source = "d"
	Result = "r"
)

// Path is a parsed placeholder: a context name plus the keys walked from
// it.
type Path struct {
	Name string
	Keys []string
}

// String renders the path without braces: d[root][obj].
func (p Path) String() string {
	var b strings.Builder
	b.WriteString(p.Name)
	for _, k := range p.Keys {
		b.WriteString("[" + k + "]")
	}
	return b.String()
}

// Placeholder renders the path with braces: {d[root][obj]}.
func (p Path) Placeholder() string {
	return "{" + p.String() + "}"
}

// ParsePath parses "d[root][obj]" or "{d[root][obj]}".
func ParsePath(s string) (Path, error) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "{") && strings.HasSuffix(s, "}") {
		s = s[1 : len(s)-1]
	}
	i := strings.IndexByte(s, '[')
	if i < 0 {
		i = len(s)
	}
	p := Path{Name: s[:i]}
	if !validName(p.Name) {
		return Path{}, fmt.Errorf("%w: bad name %q", ErrSyntax, p.Name)
	}
	rest := s[i:]
	for rest != "" {
		if rest[0] != '[' {
			return Path{}, fmt.Errorf("%w: unexpected %q in %q", ErrSyntax, rest[:1], s)
		}
		end := strings.IndexByte(rest, ']')
		if end < 0 {
			return Path{}, fmt.Errorf("%w: unclosed [ in %q", ErrSyntax, s)
		}
		key := rest[1:end]
		if key == "" || strings.ContainsAny(key, "[{}") {
			return Path{}, fmt.Errorf("%w: bad key %q in %q", ErrSyntax, key, s)
		}
		p.Keys = append(p.Keys, key)
		rest = rest[end+1:]
	}
	return p, nil
}

func validName(name string) bool {
	if name == "" {
		return false
	}
	for i, r := range name {
		switch {
		case r == '_', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case i > 0 && r >= '0' && r <= '9':
		default:
			return false
		}
	}
	return true
}
