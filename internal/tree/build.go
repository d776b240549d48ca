package tree

import (
	"fmt"
	"sort"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// RootLabel is the relation label of the sentence root.
const RootLabel = "root"

// Token is one head-indexed record of parser output. Head is the id of the
// syntactic head, 0 for the sentence root.
type Token struct {
	ID    int
	Form  string
	Lemma string
	UPOS  string
	XPOS  string
	Feats map[string]string
	Head  int
	Label string
	Deps  string
	Misc  string
}

func clean(s string) string {
	if s == Unset {
		return ""
	}
	return norm.NFC.String(s)
}

// Build assembles a tree from tokens whose ids run 1..len(tokens). raw is
// the parser output the tokens came from and is only used for errors.
func Build(tokens []Token, raw string) (*Tree, error) {
	n := len(tokens)
	if n == 0 {
		return nil, &ParseError{Input: raw, Message: "no tokens"}
	}
	children := make([][]int, n)
	root := -1
	for i, tok := range tokens {
		if tok.ID != i+1 {
			return nil, &ParseError{Input: raw, Message: fmt.Sprintf("token %d has id %d", i+1, tok.ID)}
		}
		switch {
		case tok.Head < 0 || tok.Head > n:
			return nil, &ParseError{Input: raw, Message: fmt.Sprintf("token %d: head %d out of range", tok.ID, tok.Head)}
		case tok.Head == tok.ID:
			return nil, &ParseError{Input: raw, Message: fmt.Sprintf("token %d is its own head", tok.ID)}
		case tok.Head == 0:
			if root >= 0 {
				return nil, &ParseError{Input: raw, Message: fmt.Sprintf("tokens %d and %d are both roots", root+1, tok.ID)}
			}
			root = i
		default:
			children[tok.Head-1] = append(children[tok.Head-1], i)
		}
	}
	if root < 0 {
		return nil, &ParseError{Input: raw, Message: "no root token"}
	}

	built := 0
	var fill func(i int) *Node
	fill = func(i int) *Node {
		built++
		tok := tokens[i]
		node := &Node{Attributes: Attributes{
			ID:    tok.ID,
			Form:  clean(tok.Form),
			Lemma: clean(tok.Lemma),
			UPOS:  clean(tok.UPOS),
			XPOS:  clean(tok.XPOS),
			Deps:  clean(tok.Deps),
			Misc:  clean(tok.Misc),
		}}
		if len(tok.Feats) > 0 {
			node.Feats = make(map[string]string, len(tok.Feats))
			for k, v := range tok.Feats {
				node.Feats[k] = v
			}
		}
		for _, c := range children[i] {
			node.Add(tokens[c].Label, fill(c))
		}
		return node
	}
	rootNode := fill(root)
	if built != n {
		return nil, &ParseError{Input: raw, Message: fmt.Sprintf("%d tokens are not reachable from the root", n-built)}
	}
	label := tokens[root].Label
	if label == "" {
		label = RootLabel
	}
	return New(label, rootNode), nil
}

// Tokens flattens t back into head-indexed tokens ordered by id.
func (t *Tree) Tokens() []Token {
	heads := make(map[*Node]int)
	labels := map[*Node]string{t.Root: t.Label}
	t.Root.Walk(func(n *Node) {
		for _, e := range n.Children {
			heads[e.Node] = n.ID
			labels[e.Node] = e.Label
		}
	})
	nodes := t.Root.Nodes()
	tokens := make([]Token, len(nodes))
	for i, n := range nodes {
		tokens[i] = Token{
			ID:    n.ID,
			Form:  n.Form,
			Lemma: n.Lemma,
			UPOS:  n.UPOS,
			XPOS:  n.XPOS,
			Feats: n.Attributes.copy().Feats,
			Head:  heads[n],
			Label: labels[n],
			Deps:  n.Deps,
			Misc:  n.Misc,
		}
	}
	return tokens
}

// Conllu renders t as CoNLL-U lines terminated by a blank line.
func (t *Tree) Conllu() string {
	var b strings.Builder
	for _, tok := range t.Tokens() {
		fields := []string{
			fmt.Sprint(tok.ID), or(tok.Form), or(tok.Lemma), or(tok.UPOS), or(tok.XPOS),
			or(FormatFeats(tok.Feats)), fmt.Sprint(tok.Head), or(tok.Label), or(tok.Deps), or(tok.Misc),
		}
		b.WriteString(strings.Join(fields, "\t"))
		b.WriteByte('\n')
	}
	b.WriteByte('\n')
	return b.String()
}

func or(s string) string {
	if s == "" {
		return Unset
	}
	return s
}

// sortTokens orders tokens by id. Parsers are not required to emit them
// in order.
func sortTokens(tokens []Token) {
	sort.SliceStable(tokens, func(i, j int) bool { return tokens[i].ID < tokens[j].ID })
}
