package trick

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"

	"github.com/roach88/concha/internal/template"
	"github.com/roach88/concha/internal/tree"
)

// Validation error codes (E200-E299)
const (
	ErrSchema         = "E201" // document does not fit the trick schema
	ErrGiven          = "E202" // given is missing or malformed
	ErrThen           = "E203" // then is missing or empty
	ErrMethod         = "E204" // unknown when.method
	ErrURI            = "E205" // missing or malformed when.uri
	ErrTemplateSyntax = "E206" // template does not parse
	ErrUnresolvedPath = "E207" // d path not covered by the given pattern
	ErrUnknownName    = "E208" // placeholder name is neither d nor r
	ErrStatusKey      = "E209" // then key is not a 3-digit status code
)

// ValidationError is one problem found in a trick document.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// ValidationErrors is every problem found in one document.
type ValidationErrors []ValidationError

func (es ValidationErrors) Error() string {
	msgs := make([]string, len(es))
	for i, e := range es {
		msgs[i] = e.Error()
	}
	return strings.Join(msgs, "; ")
}

// IsValidationError reports whether err carries validation problems.
func IsValidationError(err error) bool {
	var es ValidationErrors
	var e ValidationError
	return errors.As(err, &es) || errors.As(err, &e)
}

//go:embed schema.cue
var schemaSource string

var (
	schemaMu  sync.Mutex
	schemaCtx *cue.Context
	schemaDef cue.Value
)

// checkSchema unifies the raw document with #Trick.
func checkSchema(data []byte) ValidationErrors {
	schemaMu.Lock()
	defer schemaMu.Unlock()
	if schemaCtx == nil {
		schemaCtx = cuecontext.New()
		schemaDef = schemaCtx.CompileString(schemaSource).LookupPath(cue.ParsePath("#Trick"))
	}
	doc := schemaCtx.CompileBytes(data)
	if err := doc.Err(); err != nil {
		return ValidationErrors{{Field: "document", Code: ErrSchema, Message: err.Error()}}
	}
	err := schemaDef.Unify(doc).Validate(cue.Concrete(true))
	if err == nil {
		return nil
	}
	var errs ValidationErrors
	for _, e := range cueerrors.Errors(err) {
		field := strings.Join(e.Path(), ".")
		if field == "" {
			field = "document"
		}
		format, args := e.Msg()
		errs = append(errs, ValidationError{Field: field, Code: ErrSchema, Message: fmt.Sprintf(format, args...)})
	}
	if len(errs) == 0 {
		errs = ValidationErrors{{Field: "document", Code: ErrSchema, Message: err.Error()}}
	}
	return errs
}

// Parse decodes and validates one trick document. A returned error is
// ValidationErrors.
func Parse(data []byte) (*Trick, error) {
	data = bytes.TrimSpace(data)
	if !json.Valid(data) {
		return nil, ValidationErrors{{Field: "document", Code: ErrSchema, Message: "not a JSON document"}}
	}
	if errs := checkSchema(data); len(errs) > 0 {
		return nil, errs
	}
	var t Trick
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, ValidationErrors{{Field: "document", Code: ErrSchema, Message: err.Error()}}
	}
	if errs := Validate(&t); len(errs) > 0 {
		return nil, ValidationErrors(errs)
	}
	return &t, nil
}

var statusKey = regexp.MustCompile(`^[0-9]{3}$`)

// Validate checks a decoded trick. Returns all errors found (does not
// fail-fast).
func Validate(t *Trick) []ValidationError {
	var errs []ValidationError

	// E202: given maps top-level labels to patterns
	if t.Given == nil {
		errs = append(errs, ValidationError{Field: "given", Code: ErrGiven, Message: "given is required"})
	} else if len(t.Given.Attrs) > 0 || len(t.Given.Feats) > 0 {
		errs = append(errs, ValidationError{Field: "given", Code: ErrGiven, Message: "given must map a relation label to a pattern"})
	}

	// E203/E209: then
	if len(t.Then) == 0 {
		errs = append(errs, ValidationError{Field: "then", Code: ErrThen, Message: "then needs at least one status entry"})
	}
	for _, status := range sortedKeys(t.Then) {
		if !statusKey.MatchString(status) {
			errs = append(errs, ValidationError{Field: "then." + status, Code: ErrStatusKey, Message: "status must be a 3-digit code"})
			continue
		}
		errs = append(errs, checkTemplate(t, "then."+status, t.Then[status], true)...)
	}

	// E204/E205: when
	if t.When != nil {
		errs = append(errs, validateWhen(t)...)
	}
	return errs
}

func validateWhen(t *Trick) []ValidationError {
	w := t.When
	switch w.Method {
	case MethodGet, MethodPost, MethodPut, MethodDelete:
		if strings.TrimSpace(w.URI) == "" {
			return []ValidationError{{Field: "when.uri", Code: ErrURI, Message: w.Method + " needs a uri"}}
		}
		return checkTemplate(t, "when.uri", w.URI, false)
	case MethodTreat:
		tpl, err := template.Parse(w.URI)
		if err != nil {
			return []ValidationError{{Field: "when.uri", Code: ErrTemplateSyntax, Message: err.Error()}}
		}
		p, ok := tpl.SinglePath()
		if !ok || p.Name != template.Source || len(p.Keys) == 0 {
			return []ValidationError{{Field: "when.uri", Code: ErrURI, Message: "TREAT uri must be a single {d[...]} branch"}}
		}
		for _, key := range p.Keys {
			if tree.IsAttribute(key) {
				return []ValidationError{{Field: "when.uri", Code: ErrURI, Message: fmt.Sprintf("%s: TREAT needs a branch, not the attribute %q", p.Placeholder(), key)}}
			}
		}
		return checkPath(t, "when.uri", p)
	case MethodError:
		return nil
	default:
		return []ValidationError{{Field: "when.method", Code: ErrMethod, Message: fmt.Sprintf("unknown method %q", w.Method)}}
	}
}

func checkTemplate(t *Trick, field, src string, isThen bool) []ValidationError {
	tpl, err := template.Parse(src)
	if err != nil {
		return []ValidationError{{Field: field, Code: ErrTemplateSyntax, Message: err.Error()}}
	}
	var errs []ValidationError
	for _, p := range tpl.Placeholders() {
		switch {
		case p.Name == template.Source:
			errs = append(errs, checkPath(t, field, p)...)
		case p.Name == template.Result && isThen:
			errs = append(errs, checkResult(t, field, p)...)
		case p.Name == template.Result:
			errs = append(errs, ValidationError{Field: field, Code: ErrUnknownName, Message: p.Placeholder() + ": r is only defined in then templates"})
		default:
			errs = append(errs, ValidationError{Field: field, Code: ErrUnknownName, Message: fmt.Sprintf("%s: unknown name %q", p.Placeholder(), p.Name)})
		}
	}
	return errs
}

// checkResult checks an r path against what the method puts in r: a
// remote call leaves {"body": ...}, a TREAT leaves the answer sentence.
func checkResult(t *Trick, field string, p template.Path) []ValidationError {
	fail := func(code, msg string) []ValidationError {
		return []ValidationError{{Field: field, Code: code, Message: p.Placeholder() + ": " + msg}}
	}
	switch t.Method() {
	case MethodGet, MethodPost, MethodPut, MethodDelete:
		if len(p.Keys) == 0 || p.Keys[0] != "body" {
			return fail(ErrUnresolvedPath, "the response is only reachable as r[body]")
		}
	case MethodTreat:
		if len(p.Keys) > 0 && tree.IsAttribute(p.Keys[0]) {
			return fail(ErrUnresolvedPath, "r starts at the top-level label of the answer")
		}
	default:
		return fail(ErrUnknownName, "r is only defined for remote and TREAT tricks")
	}
	return nil
}

// checkPath walks a d path through the given pattern: relation labels
// must appear in the pattern, and an attribute may only end the path
// (feats may be followed by one feature name).
func checkPath(t *Trick, field string, p template.Path) []ValidationError {
	fail := func(msg string) []ValidationError {
		return []ValidationError{{Field: field, Code: ErrUnresolvedPath, Message: p.Placeholder() + ": " + msg}}
	}
	if len(p.Keys) == 0 {
		return nil
	}
	if t.Given == nil {
		return fail("no given pattern")
	}
	cur, ok := t.Given.Children[p.Keys[0]]
	if !ok {
		return fail(fmt.Sprintf("given has no top-level %q", p.Keys[0]))
	}
	for i := 1; i < len(p.Keys); i++ {
		key := p.Keys[i]
		rest := len(p.Keys) - i - 1
		switch {
		case key == tree.KeyFeats:
			if rest > 1 {
				return fail("feats takes at most one feature name")
			}
			return nil
		case tree.IsAttribute(key):
			if rest > 0 {
				return fail(fmt.Sprintf("attribute %q has no keys", key))
			}
			return nil
		}
		next, ok := cur.Children[key]
		if !ok {
			return fail(fmt.Sprintf("given has no %q here", key))
		}
		cur = next
	}
	return nil
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
