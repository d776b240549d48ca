package tree

import (
	"fmt"
	"strconv"
	"strings"
)

const conlluFields = 10

// ParseConllu builds a tree from the first sentence of CoNLL-U text.
// Comment lines are skipped, as are multiword ranges (1-2) and empty
// nodes (1.1). A token whose head is 0 is always labeled root.
func ParseConllu(text string) (*Tree, error) {
	var tokens []Token
	for lineNo, line := range strings.Split(text, "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" {
			if len(tokens) > 0 {
				break
			}
			continue
		}
		if strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Split(line, "\t")
		if len(fields) != conlluFields {
			return nil, &ParseError{Input: text, Message: fmt.Sprintf("line %d: %d fields, want %d", lineNo+1, len(fields), conlluFields)}
		}
		if strings.ContainsAny(fields[0], "-.") {
			continue
		}
		id, err := strconv.Atoi(fields[0])
		if err != nil {
			return nil, &ParseError{Input: text, Message: fmt.Sprintf("line %d: bad id %q", lineNo+1, fields[0])}
		}
		head, err := strconv.Atoi(fields[6])
		if err != nil {
			return nil, &ParseError{Input: text, Message: fmt.Sprintf("line %d: bad head %q", lineNo+1, fields[6])}
		}
		feats, err := ParseFeats(fields[5])
		if err != nil {
			return nil, &ParseError{Input: text, Message: fmt.Sprintf("line %d: %v", lineNo+1, err)}
		}
		label := fields[7]
		if head == 0 {
			label = RootLabel
		}
		tokens = append(tokens, Token{
			ID:    id,
			Form:  fields[1],
			Lemma: fields[2],
			UPOS:  fields[3],
			XPOS:  fields[4],
			Feats: feats,
			Head:  head,
			Label: label,
			Deps:  fields[8],
			Misc:  fields[9],
		})
	}
	sortTokens(tokens)
	return Build(tokens, text)
}

// ParseFeats parses a CoNLL feature column ("Gender=Fem|Number=Sing").
func ParseFeats(s string) (map[string]string, error) {
	if s == "" || s == Unset {
		return nil, nil
	}
	feats := make(map[string]string)
	for _, pair := range strings.Split(s, "|") {
		name, value, ok := strings.Cut(pair, "=")
		if !ok || name == "" {
			return nil, fmt.Errorf("bad feature %q", pair)
		}
		feats[name] = value
	}
	return feats, nil
}
