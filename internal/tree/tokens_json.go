package tree

import (
	"encoding/json"
	"fmt"
	"strings"
)

type syntaxResponse struct {
	Tokens []syntaxToken `json:"tokens"`
}

type syntaxToken struct {
	Text struct {
		Content string `json:"content"`
	} `json:"text"`
	PartOfSpeech   map[string]string `json:"partOfSpeech"`
	DependencyEdge struct {
		HeadTokenIndex *int   `json:"headTokenIndex"`
		Label          string `json:"label"`
	} `json:"dependencyEdge"`
	Lemma string `json:"lemma"`
}

// ParseTokensJSON builds a tree from a syntax-analysis response
// ({"tokens": [...]}) where each token names its head by 0-based index
// and the root points at itself. Token ids become index+1 and labels are
// lower-cased.
func ParseTokensJSON(data []byte) (*Tree, error) {
	var resp syntaxResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, &ParseError{Input: string(data), Message: fmt.Sprintf("invalid json: %v", err)}
	}
	tokens := make([]Token, len(resp.Tokens))
	for i, st := range resp.Tokens {
		head := 0
		if h := st.DependencyEdge.HeadTokenIndex; h != nil {
			head = *h
		}
		tok := Token{
			ID:    i + 1,
			Form:  st.Text.Content,
			Lemma: st.Lemma,
			Label: strings.ToLower(st.DependencyEdge.Label),
			Head:  head + 1,
		}
		if head == i {
			tok.Head = 0
		}
		if head < 0 || head >= len(resp.Tokens) {
			return nil, &ParseError{Input: string(data), Message: fmt.Sprintf("token %d: head index %d out of range", i, head)}
		}
		if pos, ok := st.PartOfSpeech["fPOS"]; ok {
			tok.UPOS = strings.TrimRight(pos, "+")
		} else if tag, ok := st.PartOfSpeech["tag"]; ok {
			tok.UPOS = tag
		}
		if len(st.PartOfSpeech) > 0 {
			tok.Feats = st.PartOfSpeech
		}
		tokens[i] = tok
	}
	return Build(tokens, string(data))
}
