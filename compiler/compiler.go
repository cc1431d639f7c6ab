// Package compiler turns an editable dialog graph into a runtime tree.
//
// A pass walks the graph from its root, compiles every reachable node once,
// and installs the resulting tree on the asset. Diagnostics are recorded in
// a compilelog.Log and never returned as errors; only a missing root or a
// cycle stop a pass, in which case the previously installed tree stays live.
package compiler

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/meikuraledutech/dialog"
	"github.com/meikuraledutech/dialog/compilelog"
	"github.com/meikuraledutech/dialog/internal/ctxlog"
	"github.com/meikuraledutech/dialog/runtime"
	"github.com/meikuraledutech/dialog/script"
)

const (
	EventName = "Compile"

	msgCompile      = "Compile dialog"
	msgNoRoot       = "Root node not found"
	msgMixedSources = "Invalid graph: Phrase cannot simultaneously refer to phrases of different types"
)

// Compiler compiles the graph of one asset. A Compiler keeps its cache
// between passes and must not run two passes at once.
type Compiler struct {
	asset   *Asset
	cache   *Cache
	scripts *script.Compiler
}

// Option configures a Compiler.
type Option func(*Compiler)

// WithCache shares an existing cache with the compiler.
func WithCache(c *Cache) Option {
	return func(cc *Compiler) { cc.cache = c }
}

// WithScripts sets the compiler used for actions and predicates.
func WithScripts(s *script.Compiler) Option {
	return func(cc *Compiler) { cc.scripts = s }
}

// New returns a compiler that installs its trees on asset.
func New(asset *Asset, opts ...Option) *Compiler {
	c := &Compiler{asset: asset}
	for _, opt := range opts {
		opt(c)
	}
	if c.cache == nil {
		c.cache = NewCache()
	}
	if c.scripts == nil {
		c.scripts = script.NewCompiler(nil)
	}
	return c
}

// Asset returns the asset the compiler installs trees on.
func (c *Compiler) Asset() *Asset { return c.asset }

// Cache returns the compiler's cache.
func (c *Compiler) Cache() *Cache { return c.cache }

// ScriptParams holds the resolved parameters of a node's script entries,
// aligned with the entries of the graph node. A nil element marks an entry
// that failed to compile.
type ScriptParams struct {
	Actions    [][]string
	Predicates [][]string
	Conditions [][]string
}

// Result describes one compile pass.
type Result struct {
	// Tree is the compiled tree, nil when the pass was aborted.
	Tree      *runtime.Tree
	Installed bool
	// NeedsRefresh is set when at least one script entry resolved to
	// parameters different from the stored ones. Refresh lists the
	// affected node identities and Params their resolved parameters.
	NeedsRefresh bool
	Refresh      []string
	Params       map[string]ScriptParams
	Log          *compilelog.Log
}

// Compile runs one pass over g and installs the result on the asset.
func (c *Compiler) Compile(ctx context.Context, g *dialog.Graph) *Result {
	logger := ctxlog.FromContext(ctx).With("asset", c.asset.ID)
	log := compilelog.New(logger)
	res := &Result{Log: log, Params: make(map[string]ScriptParams)}

	log.BeginEvent(EventName)
	defer log.EndEvent()
	log.SetSourcePath(c.asset.Path)
	log.Note(msgCompile)

	idx := dialog.NewIndex(g)
	roots := idx.Roots()
	if len(roots) == 0 {
		log.Error(msgNoRoot)
		return res
	}
	root := roots[0]
	if len(roots) > 1 {
		log.Warning(fmt.Sprintf("Multiple root nodes found, using %s", root.ID), roots[1].ID)
	}

	if path := idx.FindCycle(root.ID); path != nil {
		log.Error("Invalid graph: cycle detected: "+strings.Join(path, " -> "), path[0])
		return res
	}

	c.cache.Invalidate(root.ID, idx.ChildIDs)

	p := &pass{
		c:      c,
		idx:    idx,
		tree:   runtime.NewTree(c.asset.ID),
		log:    log,
		res:    res,
		logger: logger,
	}
	p.tree.Root = p.compile(root)

	c.asset.Install(p.tree)
	res.Tree = p.tree
	res.Installed = true
	res.NeedsRefresh = len(res.Refresh) > 0

	logger.Debug("dialog compiled",
		"nodes", p.tree.Len(),
		"errors", log.NumErrors(),
		"warnings", log.NumWarnings())
	return res
}

type pass struct {
	c      *Compiler
	idx    *dialog.Index
	tree   *runtime.Tree
	log    *compilelog.Log
	res    *Result
	logger *slog.Logger
}

func (p *pass) compile(n *dialog.Node) runtime.Handle {
	if e, ok := p.c.cache.Get(n.ID); ok {
		if e.Tree == p.tree {
			return e.Handle
		}
		if e.Tree != nil && e.Tree.Valid(e.Handle) {
			p.logger.Debug("reusing compiled subtree", "node_id", n.ID)
			return p.tree.Graft(e.Tree, e.Handle, p.current, p.remember)
		}
	}

	rn, params := p.instantiate(n)
	h := p.tree.Add(rn)
	// Cached before the children so a node reached twice compiles once.
	p.remember(n.ID, h)
	if params != nil {
		p.res.Refresh = append(p.res.Refresh, n.ID)
		p.res.Params[n.ID] = *params
	}

	children := p.idx.Children(n.ID)
	p.checkSources(children)
	for _, child := range children {
		ch := p.compile(child)
		p.tree.AppendChild(h, ch)
	}
	return h
}

func (p *pass) current(id string) (runtime.Handle, bool) {
	e, ok := p.c.cache.Get(id)
	if !ok || e.Tree != p.tree {
		return runtime.NoHandle, false
	}
	return e.Handle, true
}

func (p *pass) remember(id string, h runtime.Handle) {
	p.c.cache.Put(id, Entry{Tree: p.tree, Handle: h})
}

// instantiate builds the runtime node for n. The returned params are non-nil
// when a script entry of n needs its stored parameters refreshed.
func (p *pass) instantiate(n *dialog.Node) (runtime.Node, *ScriptParams) {
	rn := runtime.Node{Kind: n.Kind, SourceID: n.ID}

	switch n.Kind {
	case dialog.KindRoot:
		return rn, nil

	case dialog.KindPhrase:
		var data dialog.Phrase
		if n.Phrase != nil {
			data = *n.Phrase
		}
		rp := &runtime.Phrase{
			UID:    n.ID,
			Text:   data.Text,
			Source: sourceOf(n),
			Owner:  p.c.asset.ID,
		}
		var params ScriptParams
		var refresh bool
		params.Actions, rp.Actions, refresh = compileEntries(p, n, data.Actions, p.c.scripts.CompileAction)
		var r bool
		params.Predicates, rp.Predicates, r = compileEntries(p, n, data.Predicates, p.c.scripts.CompilePredicate)
		refresh = refresh || r
		rn.Phrase = rp
		if refresh {
			return rn, &params
		}
		return rn, nil

	case dialog.KindElseIf:
		var conds []dialog.Script
		if n.ElseIf != nil {
			conds = n.ElseIf.Conditions
		}
		re := &runtime.ElseIf{}
		var params ScriptParams
		var refresh bool
		params.Conditions, re.Conditions, refresh = compileEntries(p, n, conds, p.c.scripts.CompilePredicate)
		rn.ElseIf = re
		if refresh {
			return rn, &params
		}
		return rn, nil

	case dialog.KindSubGraph:
		var target string
		if n.SubGraph != nil {
			target = n.SubGraph.Target
		}
		rn.SubGraph = &runtime.SubGraph{Target: target}
		return rn, nil
	}

	panic(fmt.Sprintf("compiler: no runtime mapping for node kind %q", n.Kind))
}

// compileEntries compiles every entry independently. Failing entries are
// logged and left out of the compiled list.
func compileEntries[T any](p *pass, n *dialog.Node, entries []dialog.Script, fn func(dialog.Script, string) (T, bool, error)) ([][]string, []T, bool) {
	var (
		params   = make([][]string, len(entries))
		compiled []T
		refresh  bool
	)
	for i, entry := range entries {
		out, r, err := fn(entry, n.ID)
		if err != nil {
			p.log.Error(fmt.Sprintf("%s\tIn node %q", err.Error(), n.Label()), n.ID)
			continue
		}
		compiled = append(compiled, out)
		params[i] = paramsOf(out)
		refresh = refresh || r
	}
	return params, compiled, refresh
}

func paramsOf(v any) []string {
	switch s := v.(type) {
	case *script.Action:
		return s.Params
	case *script.Predicate:
		return s.Params
	}
	return nil
}

// checkSources reports every phrase child whose speaker differs from the
// first phrase child.
func (p *pass) checkSources(children []*dialog.Node) {
	var expected dialog.Source
	for _, child := range children {
		if child.Kind != dialog.KindPhrase {
			continue
		}
		src := sourceOf(child)
		if expected == "" {
			expected = src
			continue
		}
		if src != expected {
			p.log.Error(msgMixedSources, child.ID)
		}
	}
}

// sourceOf returns the canonical speaker of n. An unknown spelling is kept
// as is so it never matches a known speaker.
func sourceOf(n *dialog.Node) dialog.Source {
	if n.Phrase == nil {
		return dialog.SourceNPC
	}
	src, err := dialog.ParseSource(string(n.Phrase.Source))
	if err != nil {
		return n.Phrase.Source
	}
	return src
}
