// Package editor is the headless editing surface over stored dialog graphs.
//
// A Workspace keeps one Session per graph. The session owns the compiled
// asset, the compile cache and the results listing of that graph. Every
// mutation goes through the store and invalidates the cache entries it
// touches; with auto-compile enabled the graph is recompiled right after.
package editor

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/meikuraledutech/dialog"
	"github.com/meikuraledutech/dialog/compilelog"
	"github.com/meikuraledutech/dialog/compiler"
	"github.com/meikuraledutech/dialog/exchange"
	"github.com/meikuraledutech/dialog/internal/ctxlog"
	"github.com/meikuraledutech/dialog/runtime"
	"github.com/meikuraledutech/dialog/script"
)

// ErrInvalidDocument wraps every failure to decode an imported document.
var ErrInvalidDocument = errors.New("editor: invalid document")

// Workspace edits and compiles the graphs of a store.
type Workspace struct {
	store       dialog.Store
	scripts     *script.Compiler
	autoCompile bool
	assetPath   func(graphID string) string

	mu       sync.Mutex
	sessions map[string]*Session
}

// Option configures a Workspace.
type Option func(*Workspace)

// WithAutoCompile recompiles a graph after every mutation.
func WithAutoCompile(on bool) Option {
	return func(w *Workspace) { w.autoCompile = on }
}

// WithScope sets the symbols scripts may refer to.
func WithScope(s *script.Scope) Option {
	return func(w *Workspace) { w.scripts = script.NewCompiler(s) }
}

// WithAssetPath sets how a graph id maps to the asset path shown in
// diagnostics.
func WithAssetPath(fn func(graphID string) string) Option {
	return func(w *Workspace) { w.assetPath = fn }
}

// New returns a workspace over store.
func New(store dialog.Store, opts ...Option) *Workspace {
	w := &Workspace{
		store:     store,
		sessions:  make(map[string]*Session),
		assetPath: func(id string) string { return "/dialogs/" + id },
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.scripts == nil {
		w.scripts = script.NewCompiler(nil)
	}
	return w
}

// Store returns the underlying store.
func (w *Workspace) Store() dialog.Store { return w.store }

// AutoCompile reports whether mutations trigger a compile.
func (w *Workspace) AutoCompile() bool { return w.autoCompile }

// Session returns the session of graphID, creating it on first use.
func (w *Workspace) Session(graphID string) *Session {
	w.mu.Lock()
	defer w.mu.Unlock()
	s, ok := w.sessions[graphID]
	if !ok {
		s = newSession(graphID, w.assetPath(graphID), w.scripts)
		w.sessions[graphID] = s
	}
	return s
}

func (w *Workspace) dropSession(graphID string) {
	w.mu.Lock()
	delete(w.sessions, graphID)
	w.mu.Unlock()
}

// Tree returns the live compiled tree of graphID, or nil.
func (w *Workspace) Tree(graphID string) *runtime.Tree {
	return w.Session(graphID).Asset().Tree()
}

// Messages returns the results listing of the last compile of graphID.
func (w *Workspace) Messages(graphID string) []compilelog.Message {
	return w.Session(graphID).Listing().Messages()
}

// Compile compiles the stored graph and installs the result. Diagnostics go
// to the session listing; the error reports storage failures only.
func (w *Workspace) Compile(ctx context.Context, graphID string) (*compiler.Result, error) {
	s := w.Session(graphID)
	s.mu.Lock()
	defer s.mu.Unlock()
	return w.compile(ctx, s)
}

func (w *Workspace) compile(ctx context.Context, s *Session) (*compiler.Result, error) {
	g, err := w.store.GetGraph(ctx, s.GraphID)
	if err != nil {
		return nil, fmt.Errorf("editor: load graph %s: %w", s.GraphID, err)
	}

	res := s.compiler.Compile(ctx, g)
	s.listing.Clear()
	s.listing.AddMessages(res.Log.Messages()...)

	if res.NeedsRefresh {
		if err := w.refreshParams(ctx, g, res); err != nil {
			return res, err
		}
	}
	return res, nil
}

// refreshParams stores the resolved script parameters reported by a pass.
func (w *Workspace) refreshParams(ctx context.Context, g *dialog.Graph, res *compiler.Result) error {
	idx := dialog.NewIndex(g)
	for _, id := range res.Refresh {
		n, ok := idx.Node(id)
		if !ok {
			continue
		}
		p := res.Params[id]
		updated := n.Clone()
		switch {
		case updated.Phrase != nil:
			setParams(updated.Phrase.Actions, p.Actions)
			setParams(updated.Phrase.Predicates, p.Predicates)
		case updated.ElseIf != nil:
			setParams(updated.ElseIf.Conditions, p.Conditions)
		}
		if err := w.store.UpdateNode(ctx, &updated); err != nil {
			return fmt.Errorf("editor: refresh params of %s: %w", id, err)
		}
	}
	ctxlog.FromContext(ctx).Debug("script params refreshed", "graph", g.ID, "nodes", len(res.Refresh))
	return nil
}

func setParams(entries []dialog.Script, params [][]string) {
	for i := range entries {
		if i < len(params) && params[i] != nil {
			entries[i].Params = params[i]
		}
	}
}

// mutate runs fn under the session lock and recompiles afterwards when
// auto-compile is on.
func (w *Workspace) mutate(ctx context.Context, graphID string, fn func(s *Session) error) error {
	s := w.Session(graphID)
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := fn(s); err != nil {
		return err
	}
	if !w.autoCompile {
		return nil
	}
	if _, err := w.compile(ctx, s); err != nil && !errors.Is(err, dialog.ErrGraphNotFound) {
		return err
	}
	return nil
}

// invalidate clears the cache entries of ids and of everything below them.
func (w *Workspace) invalidate(ctx context.Context, s *Session, ids ...string) error {
	g, err := w.store.GetGraph(ctx, s.GraphID)
	if errors.Is(err, dialog.ErrGraphNotFound) {
		s.compiler.Cache().Clear()
		return nil
	}
	if err != nil {
		return fmt.Errorf("editor: load graph %s: %w", s.GraphID, err)
	}
	s.invalidate(dialog.NewIndex(g), ids...)
	return nil
}

// SaveGraph stores g, replacing the previous version, and drops every
// compiled entry of the graph.
func (w *Workspace) SaveGraph(ctx context.Context, g *dialog.Graph) (*dialog.Graph, error) {
	if g.ID == "" {
		g.ID = uuid.NewString()
	}
	var saved *dialog.Graph
	err := w.mutate(ctx, g.ID, func(s *Session) error {
		var err error
		saved, err = w.store.SaveGraph(ctx, g)
		if err != nil {
			return err
		}
		s.compiler.Cache().Clear()
		return nil
	})
	return saved, err
}

// GetGraph loads the stored graph.
func (w *Workspace) GetGraph(ctx context.Context, graphID string) (*dialog.Graph, error) {
	return w.store.GetGraph(ctx, graphID)
}

// DeleteGraph removes the graph and its session.
func (w *Workspace) DeleteGraph(ctx context.Context, graphID string) error {
	if err := w.store.DeleteGraph(ctx, graphID); err != nil {
		return err
	}
	w.dropSession(graphID)
	return nil
}

// AddNode stores a new node. It is unreachable until linked, so nothing is
// invalidated.
func (w *Workspace) AddNode(ctx context.Context, graphID string, n *dialog.Node) (string, error) {
	var id string
	err := w.mutate(ctx, graphID, func(*Session) error {
		var err error
		id, err = w.store.AddNode(ctx, graphID, n)
		return err
	})
	return id, err
}

// UpdateNode stores the new node data and invalidates the node. A node of
// another graph is reported as ErrNodeNotFound.
func (w *Workspace) UpdateNode(ctx context.Context, graphID string, n *dialog.Node) error {
	return w.mutate(ctx, graphID, func(s *Session) error {
		idx, err := w.index(ctx, graphID)
		if err != nil {
			return err
		}
		if _, ok := idx.Node(n.ID); !ok {
			return fmt.Errorf("editor: node %s in graph %s: %w", n.ID, graphID, dialog.ErrNodeNotFound)
		}
		if err := w.store.UpdateNode(ctx, n); err != nil {
			return err
		}
		s.invalidate(idx, n.ID)
		return nil
	})
}

// DeleteNode removes the node with its links and invalidates its parents.
// Nodes outside the graph are left alone.
func (w *Workspace) DeleteNode(ctx context.Context, graphID, nodeID string) error {
	return w.mutate(ctx, graphID, func(s *Session) error {
		idx, err := w.index(ctx, graphID)
		if errors.Is(err, dialog.ErrNodeNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		if _, ok := idx.Node(nodeID); !ok {
			return nil
		}
		s.invalidate(idx, append([]string{nodeID}, idx.Parents(nodeID)...)...)
		return w.store.DeleteNode(ctx, nodeID)
	})
}

// AddEdge links a child and invalidates the parent.
func (w *Workspace) AddEdge(ctx context.Context, graphID string, e *dialog.Edge) (string, error) {
	var id string
	err := w.mutate(ctx, graphID, func(s *Session) error {
		var err error
		if id, err = w.store.AddEdge(ctx, graphID, e); err != nil {
			return err
		}
		return w.invalidate(ctx, s, e.FromNodeID)
	})
	return id, err
}

// UpdateEdge relinks or reorders a child and invalidates the old and the
// new parent. An edge of another graph is reported as ErrEdgeNotFound.
func (w *Workspace) UpdateEdge(ctx context.Context, graphID string, e *dialog.Edge) error {
	return w.mutate(ctx, graphID, func(s *Session) error {
		old, err := w.edgeOf(ctx, graphID, e.ID)
		if err != nil {
			return err
		}
		if err := w.invalidate(ctx, s, old.FromNodeID); err != nil {
			return err
		}
		if err := w.store.UpdateEdge(ctx, e); err != nil {
			return err
		}
		return w.invalidate(ctx, s, e.FromNodeID)
	})
}

// DeleteEdge unlinks a child and invalidates the parent. Edges outside the
// graph are left alone.
func (w *Workspace) DeleteEdge(ctx context.Context, graphID, edgeID string) error {
	return w.mutate(ctx, graphID, func(s *Session) error {
		old, err := w.edgeOf(ctx, graphID, edgeID)
		if errors.Is(err, dialog.ErrEdgeNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		if err := w.invalidate(ctx, s, old.FromNodeID); err != nil {
			return err
		}
		return w.store.DeleteEdge(ctx, edgeID)
	})
}

// index loads the stored graph. A missing graph holds no nodes, so it is
// reported as ErrNodeNotFound.
func (w *Workspace) index(ctx context.Context, graphID string) (*dialog.Index, error) {
	g, err := w.store.GetGraph(ctx, graphID)
	if errors.Is(err, dialog.ErrGraphNotFound) {
		return nil, fmt.Errorf("editor: graph %s: %w", graphID, dialog.ErrNodeNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("editor: load graph %s: %w", graphID, err)
	}
	return dialog.NewIndex(g), nil
}

// edgeOf returns the stored edge if it belongs to graphID.
func (w *Workspace) edgeOf(ctx context.Context, graphID, edgeID string) (*dialog.Edge, error) {
	edges, err := w.store.ListEdges(ctx, graphID)
	if err != nil {
		return nil, fmt.Errorf("editor: list edges of %s: %w", graphID, err)
	}
	for i := range edges {
		if edges[i].ID == edgeID {
			return &edges[i], nil
		}
	}
	return nil, fmt.Errorf("editor: edge %s in graph %s: %w", edgeID, graphID, dialog.ErrEdgeNotFound)
}

// Duplicate copies the selected nodes under new identities, together with
// the links between them. Compiled state is never copied: the copies are
// compiled from scratch once linked.
func (w *Workspace) Duplicate(ctx context.Context, graphID string, ids []string) ([]dialog.Node, error) {
	var nodes []dialog.Node
	err := w.mutate(ctx, graphID, func(*Session) error {
		g, err := w.store.GetGraph(ctx, graphID)
		if err != nil {
			return err
		}
		var edges []dialog.Edge
		nodes, edges, _, err = dialog.Duplicate(g, ids)
		if err != nil {
			return err
		}
		for i := range nodes {
			if _, err := w.store.AddNode(ctx, graphID, &nodes[i]); err != nil {
				return err
			}
		}
		for i := range edges {
			if _, err := w.store.AddEdge(ctx, graphID, &edges[i]); err != nil {
				return err
			}
		}
		return nil
	})
	return nodes, err
}

// Import replaces the graph with the decoded document. A document with no
// usable entries leaves the graph untouched.
func (w *Workspace) Import(ctx context.Context, graphID, format string, data []byte) (*dialog.Graph, error) {
	codec, err := exchange.ForFormat(format)
	if err != nil {
		return nil, err
	}
	g, err := codec.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidDocument, err)
	}
	g.ID = graphID
	return w.SaveGraph(ctx, g)
}

// Export encodes the stored graph.
func (w *Workspace) Export(ctx context.Context, graphID, format string) ([]byte, error) {
	codec, err := exchange.ForFormat(format)
	if err != nil {
		return nil, err
	}
	g, err := w.store.GetGraph(ctx, graphID)
	if err != nil {
		return nil, err
	}
	return codec.Encode(g)
}
