package engine

import (
	"context"
	"errors"
	"log/slog"
	"strconv"

	"github.com/roach88/concha/internal/template"
	"github.com/roach88/concha/internal/trick"
	"github.com/roach88/concha/internal/tree"
)

// run is the state of one resolution: the snapshot every nested call
// reads and the token its log records carry.
type run struct {
	e     *Engine
	snap  *trick.Snapshot
	token string
	log   *slog.Logger
}

// candidateQueue keeps trick ids in discovery order and never holds the
// same id twice.
type candidateQueue struct {
	ids  []int
	seen map[int]bool
}

func newCandidateQueue(ids []int) *candidateQueue {
	q := &candidateQueue{seen: make(map[int]bool, len(ids))}
	q.push(ids)
	return q
}

func (q *candidateQueue) push(ids []int) (added int) {
	for _, id := range ids {
		if !q.seen[id] {
			q.seen[id] = true
			q.ids = append(q.ids, id)
			added++
		}
	}
	return added
}

func (r *run) link(ctx context.Context, src *tree.Tree, dom *trick.Domain, depth int) (Artifact, error) {
	if depth > r.e.maxDepth {
		return Artifact{}, &LimitError{Kind: LimitDepth, Limit: r.e.maxDepth, Token: r.token}
	}

	var artifacts []Artifact
	queue := newCandidateQueue(dom.Match(src))
	switch {
	case len(queue.ids) > 0:
		quota := NewQuotaEnforcer(r.e.maxIterations)
		for i := 0; i < len(queue.ids); i++ {
			if err := ctx.Err(); err != nil {
				return Artifact{}, err
			}
			if err := quota.Check(r.token); err != nil {
				return Artifact{}, err
			}
			id := queue.ids[i]
			t, _ := dom.Get(id)
			art, err := r.compile(ctx, src, id, t, dom, depth)
			if err != nil {
				return Artifact{}, err
			}
			artifacts = append(artifacts, art)
			if art.Tree != nil {
				if n := queue.push(dom.Match(art.Tree)); n > 0 {
					r.log.Debug("candidates discovered", "after", id, "added", n, "depth", depth)
				}
			}
		}
	case r.snap.Errors.Len() > 0:
		r.log.Debug("no candidates, trying error tricks", "depth", depth, "count", r.snap.Errors.Len())
		for _, entry := range r.snap.Errors.Entries() {
			if err := ctx.Err(); err != nil {
				return Artifact{}, err
			}
			art, err := r.compile(ctx, src, entry.ID, entry.Trick, r.snap.Errors, depth)
			if err != nil {
				return Artifact{}, err
			}
			artifacts = append(artifacts, art)
		}
	default:
		artifacts = append(artifacts, NoTrick())
	}

	chosen := Resolve(artifacts, r.e.pick)
	if r.e.observer != nil {
		r.e.observer.Linked(depth, chosen.Status)
	}
	r.log.Debug("link chose artifact", "depth", depth, "artifacts", len(artifacts), "status", chosen.Status, "used", chosen.Used)
	return chosen, nil
}

// compile applies trick id to src. It returns an error only when ctx
// ends; every other failure is an artifact status.
func (r *run) compile(ctx context.Context, src *tree.Tree, id int, t *trick.Trick, dom *trick.Domain, depth int) (Artifact, error) {
	var (
		art Artifact
		err error
	)
	switch t.Method() {
	case trick.MethodTreat:
		art, err = r.treat(ctx, src, id, t, dom, depth)
	default:
		art, err = r.apply(ctx, src, id, t)
	}
	if err != nil {
		return Artifact{}, err
	}
	if r.e.observer != nil {
		r.e.observer.Compiled(id, t.Method(), art.Status)
	}
	r.log.Debug("trick compiled", "trick", id, "method", t.Method(), "status", art.Status, "depth", depth)
	return art, nil
}

// apply handles every method except TREAT: run the side effect, then
// answer with then[status].
func (r *run) apply(ctx context.Context, src *tree.Tree, id int, t *trick.Trick) (Artifact, error) {
	tctx := template.Context{template.Source: src}
	status := StatusOK

	switch method := t.Method(); method {
	case "":
	case trick.MethodGet, trick.MethodPost, trick.MethodPut, trick.MethodDelete:
		if r.e.caller == nil {
			r.log.Warn("no remote caller configured", "trick", id, "method", method)
			return failed(id, StatusNotImplemented), nil
		}
		uri, err := template.Render(t.When.URI, tctx)
		if err != nil {
			r.log.Warn("uri template failed", "trick", id, "error", err)
			return failed(id, StatusFailed), nil
		}
		var body any
		if method == trick.MethodPost || method == trick.MethodPut {
			body = t.When.Body
		}
		resp, err := r.e.caller.Call(ctx, method, uri, body)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return Artifact{}, ctxErr
			}
			r.log.Warn("remote call failed", "trick", id, "method", method, "uri", uri, "error", err)
			return failed(id, StatusNotImplemented), nil
		}
		status = strconv.Itoa(resp.StatusCode)
		tctx[template.Result] = map[string]any{"body": resp.Body}
	default:
		status = StatusNotImplemented
	}

	src0, ok := t.Then[status]
	if !ok {
		return failed(id, StatusNotImplemented), nil
	}
	out, err := r.answer(ctx, id, src0, tctx)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Artifact{}, ctxErr
		}
		return failed(id, StatusFailed), nil
	}
	return Artifact{Tree: out, Used: []int{id}, Status: status}, nil
}

// answer renders a then template and parses the text into a tree.
func (r *run) answer(ctx context.Context, id int, src string, tctx template.Context) (*tree.Tree, error) {
	text, err := template.Render(src, tctx)
	if err != nil {
		r.log.Warn("then template failed", "trick", id, "error", err)
		return nil, err
	}
	out, err := r.e.parser.Parse(ctx, text)
	if err != nil {
		r.log.Warn("answer did not parse", "trick", id, "text", text, "error", err)
		return nil, err
	}
	return out, nil
}

// treat resolves the branch named by when.uri on its own, splices the
// answer back into src, and links the result.
func (r *run) treat(ctx context.Context, src *tree.Tree, id int, t *trick.Trick, dom *trick.Domain, depth int) (Artifact, error) {
	path, err := template.ParsePath(t.When.URI)
	if err != nil || path.Name != template.Source {
		r.log.Warn("treat uri is not a source path", "trick", id, "uri", t.When.URI)
		return failed(id, StatusFailed), nil
	}
	branch, err := src.Lookup(path.Keys...)
	if err != nil {
		r.log.Warn("treat branch not found", "trick", id, "error", err)
		return failed(id, StatusFailed), nil
	}
	sub, err := r.e.parser.Parse(ctx, branch.Node.Format())
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Artifact{}, ctxErr
		}
		r.log.Warn("treat branch did not parse", "trick", id, "error", err)
		return failed(id, StatusFailed), nil
	}

	subArt, err := r.link(ctx, sub, dom, depth+1)
	if err != nil {
		if IsLimitError(err) {
			r.log.Warn("treat sub-resolution exhausted a limit", "trick", id, "error", err)
			return Artifact{Tree: sub, Used: []int{id}, Status: StatusLimit}, nil
		}
		return Artifact{}, err
	}
	used := append([]int{id}, subArt.Used...)

	thenSrc, ok := t.Then[subArt.Status]
	if !ok {
		return Artifact{Tree: sub, Used: used, Status: StatusNotImplemented}, nil
	}
	tctx := template.Context{template.Source: src, template.Result: subArt.Tree}
	repl, err := r.replacement(ctx, id, thenSrc, tctx)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Artifact{}, ctxErr
		}
		return Artifact{Used: used, Status: StatusFailed}, nil
	}

	repl.Compact(branch.Node.Min())
	treated := src.DeepReplace(branch, repl, repl.Size()-branch.Node.Size(), branch.Node.Max()+1)
	r.log.Debug("branch treated", "trick", id, "branch", path.String(), "text", treated.Format())

	final, err := r.link(ctx, treated, dom, depth+1)
	if err != nil {
		if IsLimitError(err) {
			r.log.Warn("treated sentence exhausted a limit", "trick", id, "error", err)
			return Artifact{Tree: treated, Used: used, Status: StatusLimit}, nil
		}
		return Artifact{}, err
	}
	return Artifact{Tree: final.Tree, Used: append(used, final.Used...), Status: final.Status}, nil
}

// replacement builds the subtree spliced in by a TREAT. A template that
// is a single placeholder naming a tree or node yields a copy of it;
// anything else is rendered and parsed.
func (r *run) replacement(ctx context.Context, id int, src string, tctx template.Context) (*tree.Node, error) {
	tpl, err := template.Parse(src)
	if err != nil {
		r.log.Warn("then template failed", "trick", id, "error", err)
		return nil, err
	}
	if p, ok := tpl.SinglePath(); ok {
		v, err := template.Resolve(tctx, p)
		if err != nil {
			r.log.Warn("then template failed", "trick", id, "error", err)
			return nil, err
		}
		switch x := v.(type) {
		case *tree.Tree:
			if x == nil {
				return nil, errEmptyResult
			}
			return x.Root.Copy(), nil
		case *tree.Node:
			return x.Copy(), nil
		}
	}
	out, err := r.answer(ctx, id, src, tctx)
	if err != nil {
		return nil, err
	}
	return out.Root, nil
}

var errEmptyResult = errors.New("sub-resolution produced no tree")
