package loader

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"
	"github.com/bmatcuk/doublestar/v4"
	"gopkg.in/yaml.v3"

	"github.com/roach88/concha/internal/trick"
)

// Pattern selects rule files below the rules directory.
const Pattern = "**/*.{json,yaml,yml,cue}"

// Error code constants.
const (
	ErrCodeGeneric     = "E001" // Generic/unknown error
	ErrCodeScanError   = "E002" // Directory scan error
	ErrCodeNoFiles     = "E003" // No rule files found
	ErrCodeLoadFailed  = "E004" // File unreadable or not decodable
	ErrCodeNotFound    = "E005" // Path not found
	ErrCodeBuildFailed = "E006" // CUE build failed
)

// LoadMode controls how errors are handled during loading.
type LoadMode int

const (
	// LoadModeFailFast stops on the first error encountered.
	LoadModeFailFast LoadMode = iota
	// LoadModeCollectAll collects all errors before returning.
	LoadModeCollectAll
)

// Entry is one trick read from a rules file.
type Entry struct {
	File     string // path relative to the rules directory
	Index    int    // position within the file, 0 for single-trick files
	Document []byte // normalized JSON
	Trick    *trick.Trick
}

// LoadResult contains the tricks loaded from a directory.
type LoadResult struct {
	Entries   []Entry
	FileCount int
}

// Tricks returns the loaded tricks in load order.
func (r *LoadResult) Tricks() []*trick.Trick {
	out := make([]*trick.Trick, len(r.Entries))
	for i, e := range r.Entries {
		out[i] = e.Trick
	}
	return out
}

// LoadError represents an error that occurred while loading rules.
type LoadError struct {
	Code    string
	Message string
	File    string
	Index   int
	Pos     token.Pos // CUE position if available
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	if e.File == "" {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("%s[%d]: %s: %s", e.File, e.Index, e.Code, e.Message)
}

// Load reads every rule file below dir.
// If mode is LoadModeFailFast, returns on first error.
// If mode is LoadModeCollectAll, collects all errors.
func Load(dir string, mode LoadMode) (*LoadResult, []error) {
	info, err := os.Stat(dir)
	if os.IsNotExist(err) {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("rules directory not found: %s", dir)}}
	}
	if err != nil {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("error accessing rules directory: %v", err)}}
	}
	if !info.IsDir() {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("not a directory: %s", dir)}}
	}

	files, err := FindRuleFiles(dir)
	if err != nil {
		return nil, []error{&LoadError{Code: ErrCodeScanError, Message: fmt.Sprintf("error scanning directory: %v", err)}}
	}
	if len(files) == 0 {
		return nil, []error{&LoadError{Code: ErrCodeNoFiles, Message: fmt.Sprintf("no rule files found in %s", dir)}}
	}

	result := &LoadResult{FileCount: len(files)}
	var errs []error
	for _, rel := range files {
		docs, err := readFile(dir, rel)
		if err != nil {
			errs = append(errs, err)
			if mode == LoadModeFailFast {
				return result, errs
			}
			continue
		}
		for i, doc := range docs {
			t, err := trick.Parse(doc)
			if err != nil {
				errs = append(errs, convertParseError(err, rel, i)...)
				if mode == LoadModeFailFast {
					return result, errs
				}
				continue
			}
			result.Entries = append(result.Entries, Entry{File: rel, Index: i, Document: doc, Trick: t})
		}
	}
	return result, errs
}

// FindRuleFiles returns the rule files below dir, relative to dir, in
// lexical order.
func FindRuleFiles(dir string) ([]string, error) {
	files, err := doublestar.Glob(os.DirFS(dir), Pattern, doublestar.WithFilesOnly())
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}

// IsRuleFile reports whether name has a rule file extension.
func IsRuleFile(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".json", ".yaml", ".yml", ".cue":
		return true
	}
	return false
}

// readFile decodes a rule file into one normalized JSON document per
// trick.
func readFile(dir, rel string) ([][]byte, error) {
	path := filepath.Join(dir, filepath.FromSlash(rel))
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &LoadError{Code: ErrCodeLoadFailed, File: rel, Message: err.Error()}
	}

	var value any
	switch strings.ToLower(filepath.Ext(rel)) {
	case ".json":
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.UseNumber()
		if err := dec.Decode(&value); err != nil {
			return nil, &LoadError{Code: ErrCodeLoadFailed, File: rel, Message: fmt.Sprintf("invalid json: %v", err)}
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &value); err != nil {
			return nil, &LoadError{Code: ErrCodeLoadFailed, File: rel, Message: fmt.Sprintf("invalid yaml: %v", err)}
		}
		value = normalizeYAML(value)
	case ".cue":
		v, err := decodeCUE(path, data)
		if err != nil {
			return nil, err
		}
		value = v
	}

	var items []any
	switch v := value.(type) {
	case []any:
		items = v
	case nil:
		return nil, &LoadError{Code: ErrCodeLoadFailed, File: rel, Message: "empty file"}
	default:
		items = []any{v}
	}

	docs := make([][]byte, 0, len(items))
	for i, item := range items {
		doc, err := json.Marshal(item)
		if err != nil {
			return nil, &LoadError{Code: ErrCodeLoadFailed, File: rel, Index: i, Message: err.Error()}
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

// decodeCUE evaluates a CUE rule file. The file's value (or its list) is
// the trick document.
func decodeCUE(path string, data []byte) (any, error) {
	ctx := cuecontext.New()
	v := ctx.CompileBytes(data, cue.Filename(path))
	if err := v.Err(); err != nil {
		return nil, cueLoadError(ErrCodeBuildFailed, path, err)
	}
	raw, err := v.MarshalJSON()
	if err != nil {
		return nil, cueLoadError(ErrCodeBuildFailed, path, err)
	}
	var out any
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&out); err != nil {
		return nil, &LoadError{Code: ErrCodeLoadFailed, File: path, Message: err.Error()}
	}
	return out, nil
}

func cueLoadError(code, path string, err error) *LoadError {
	le := &LoadError{Code: code, File: path, Message: err.Error()}
	if list := cueerrors.Errors(err); len(list) > 0 {
		le.Pos = list[0].Position()
		format, args := list[0].Msg()
		le.Message = fmt.Sprintf(format, args...)
	}
	return le
}

// Document encodes a decoded YAML or JSON value as a trick document.
func Document(v any) ([]byte, error) {
	return json.Marshal(normalizeYAML(v))
}

// normalizeYAML turns map[any]any (non-string keys such as status codes
// written as 200:) into map[string]any so the value can be encoded as
// JSON.
func normalizeYAML(v any) any {
	switch v := v.(type) {
	case map[string]any:
		for k, x := range v {
			v[k] = normalizeYAML(x)
		}
		return v
	case map[any]any:
		out := make(map[string]any, len(v))
		for k, x := range v {
			out[fmt.Sprint(k)] = normalizeYAML(x)
		}
		return out
	case []any:
		for i, x := range v {
			v[i] = normalizeYAML(x)
		}
		return v
	default:
		return v
	}
}

// convertParseError converts trick validation problems to LoadErrors.
func convertParseError(err error, file string, index int) []error {
	var verrs trick.ValidationErrors
	if !errors.As(err, &verrs) {
		return []error{&LoadError{Code: ErrCodeGeneric, File: file, Index: index, Message: err.Error()}}
	}
	out := make([]error, len(verrs))
	for i, ve := range verrs {
		out[i] = &LoadError{Code: ve.Code, File: file, Index: index, Message: fmt.Sprintf("%s: %s", ve.Field, ve.Message)}
	}
	return out
}
