package template

import (
	"fmt"
	"strings"
)

// Context maps placeholder names to values: *tree.Tree, *tree.Node, or
// decoded JSON.
type Context map[string]any

type part struct {
	text string
	path *Path
}

// Template is a parsed template.
type Template struct {
	src   string
	parts []part
}

// Parse scans src into literal text and placeholders.
func Parse(src string) (*Template, error) {
	t := &Template{src: src}
	var lit strings.Builder
	for i := 0; i < len(src); i++ {
		c := src[i]
		switch {
		case c == '{' && i+1 < len(src) && src[i+1] == '{':
			lit.WriteByte('{')
			i++
		case c == '}' && i+1 < len(src) && src[i+1] == '}':
			lit.WriteByte('}')
			i++
		case c == '}':
			return nil, &Error{Template: src, Err: fmt.Errorf("%w: single } at %d", ErrSyntax, i)}
		case c == '{':
			end := strings.IndexByte(src[i:], '}')
			if end < 0 {
				return nil, &Error{Template: src, Err: fmt.Errorf("%w: unclosed { at %d", ErrSyntax, i)}
			}
			raw := src[i : i+end+1]
			p, err := ParsePath(raw)
			if err != nil {
				return nil, &Error{Template: src, Placeholder: raw, Err: err}
			}
			if lit.Len() > 0 {
				t.parts = append(t.parts, part{text: lit.String()})
				lit.Reset()
			}
			t.parts = append(t.parts, part{path: &p})
			i += end
		default:
			lit.WriteByte(c)
		}
	}
	if lit.Len() > 0 {
		t.parts = append(t.parts, part{text: lit.String()})
	}
	return t, nil
}

// MustParse is Parse that panics on error. For tests and constants.
func MustParse(src string) *Template {
	t, err := Parse(src)
	if err != nil {
		panic(err)
	}
	return t
}

func (t *Template) String() string { return t.src }

// Placeholders lists every placeholder in order of appearance.
func (t *Template) Placeholders() []Path {
	var paths []Path
	for _, p := range t.parts {
		if p.path != nil {
			paths = append(paths, *p.path)
		}
	}
	return paths
}

// SinglePath reports whether the template, ignoring surrounding
// whitespace, is exactly one placeholder.
func (t *Template) SinglePath() (Path, bool) {
	var found *Path
	for _, p := range t.parts {
		switch {
		case p.path != nil && found == nil:
			found = p.path
		case p.path != nil:
			return Path{}, false
		case strings.TrimSpace(p.text) != "":
			return Path{}, false
		}
	}
	if found == nil {
		return Path{}, false
	}
	return *found, true
}

// Render substitutes every placeholder with the text of its value in ctx.
func (t *Template) Render(ctx Context) (string, error) {
	var b strings.Builder
	for _, p := range t.parts {
		if p.path == nil {
			b.WriteString(p.text)
			continue
		}
		v, err := Resolve(ctx, *p.path)
		if err != nil {
			return "", &Error{Template: t.src, Placeholder: p.path.Placeholder(), Err: err}
		}
		b.WriteString(Text(v))
	}
	return b.String(), nil
}

// Render parses and renders src in one step.
func Render(src string, ctx Context) (string, error) {
	t, err := Parse(src)
	if err != nil {
		return "", err
	}
	return t.Render(ctx)
}
