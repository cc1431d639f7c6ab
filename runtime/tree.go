// Package runtime holds the compiled, playback-ready form of a dialog graph.
//
// A Tree is an arena: nodes live in one slice and refer to each other by
// Handle. A graph node shared by several parents compiles to one Node whose
// handle appears in each parent's child list. Back-references (the owning
// dialog asset, the phrase that owns a script) are identities, not pointers.
//
// Trees are built by the compiler and must be treated as immutable once
// installed on an asset.
package runtime

import (
	"fmt"

	"github.com/meikuraledutech/dialog"
	"github.com/meikuraledutech/dialog/script"
)

// Handle addresses a node inside a Tree.
type Handle int

// NoHandle is the zero value for "no node".
const NoHandle Handle = -1

// Node is one compiled dialog node.
type Node struct {
	Kind     dialog.Kind `json:"kind"`
	SourceID string      `json:"source_id"`
	Children []Handle    `json:"children"`
	Phrase   *Phrase     `json:"phrase,omitempty"`
	SubGraph *SubGraph   `json:"sub_graph,omitempty"`
	ElseIf   *ElseIf     `json:"else_if,omitempty"`
}

// Phrase is a compiled phrase.
type Phrase struct {
	UID    string        `json:"uid"`
	Text   string        `json:"text"`
	Source dialog.Source `json:"source"`
	// Owner is the identity of the dialog asset the phrase was compiled for.
	Owner      string              `json:"owner"`
	Actions    []*script.Action    `json:"actions"`
	Predicates []*script.Predicate `json:"predicates"`
}

// SubGraph splices another dialog asset in at playback.
type SubGraph struct {
	Target string `json:"target"`
}

// ElseIf holds compiled branch conditions.
type ElseIf struct {
	Conditions []*script.Predicate `json:"conditions"`
}

// Tree is the compiled dialog.
type Tree struct {
	AssetID string `json:"asset_id"`
	Root    Handle `json:"root"`
	Nodes   []Node `json:"nodes"`

	bySource map[string]Handle
}

// NewTree returns an empty tree for the given asset.
func NewTree(assetID string) *Tree {
	return &Tree{AssetID: assetID, Root: NoHandle, bySource: make(map[string]Handle)}
}

// Add appends a node and returns its handle.
func (t *Tree) Add(n Node) Handle {
	h := Handle(len(t.Nodes))
	t.Nodes = append(t.Nodes, n)
	if n.SourceID != "" {
		if t.bySource == nil {
			t.bySource = make(map[string]Handle)
		}
		t.bySource[n.SourceID] = h
	}
	return h
}

// AppendChild links child under parent.
func (t *Tree) AppendChild(parent, child Handle) {
	t.Nodes[parent].Children = append(t.Nodes[parent].Children, child)
}

// Len returns the number of nodes.
func (t *Tree) Len() int { return len(t.Nodes) }

// Valid reports whether h addresses a node of t.
func (t *Tree) Valid(h Handle) bool {
	return h >= 0 && int(h) < len(t.Nodes)
}

// Node returns the node at h.
func (t *Tree) Node(h Handle) *Node {
	if !t.Valid(h) {
		panic(fmt.Sprintf("runtime: invalid handle %d", h))
	}
	return &t.Nodes[h]
}

// RootNode returns the root node, or nil for an empty tree.
func (t *Tree) RootNode() *Node {
	if !t.Valid(t.Root) {
		return nil
	}
	return &t.Nodes[t.Root]
}

// Children returns the ordered child handles of h.
func (t *Tree) Children(h Handle) []Handle {
	return t.Node(h).Children
}

// Lookup finds the node compiled from the given graph node.
func (t *Tree) Lookup(sourceID string) (Handle, bool) {
	if t.bySource != nil {
		h, ok := t.bySource[sourceID]
		return h, ok
	}
	// Decoded trees carry no index.
	for i, n := range t.Nodes {
		if n.SourceID == sourceID {
			return Handle(i), true
		}
	}
	return NoHandle, false
}

// Walk visits every node reachable from the root once, depth first, parents
// before children. Returning false from fn stops the walk.
func (t *Tree) Walk(fn func(h Handle, n *Node) bool) {
	if !t.Valid(t.Root) {
		return
	}
	seen := make(map[Handle]bool, len(t.Nodes))
	var visit func(h Handle) bool
	visit = func(h Handle) bool {
		if seen[h] {
			return true
		}
		seen[h] = true
		if !fn(h, &t.Nodes[h]) {
			return false
		}
		for _, c := range t.Nodes[h].Children {
			if !visit(c) {
				return false
			}
		}
		return true
	}
	visit(t.Root)
}

// Graft copies the subtree rooted at h in src into t and returns the new
// handle. Nodes shared inside the subtree stay shared. When reuse reports a
// handle for a node's source identity that node is linked instead of copied;
// onCopy is called for each node actually copied. Both callbacks may be nil.
func (t *Tree) Graft(src *Tree, h Handle, reuse func(sourceID string) (Handle, bool), onCopy func(sourceID string, nh Handle)) Handle {
	copied := make(map[Handle]Handle)
	var graft func(h Handle) Handle
	graft = func(h Handle) Handle {
		if nh, ok := copied[h]; ok {
			return nh
		}
		n := src.Nodes[h]
		if reuse != nil && n.SourceID != "" {
			if nh, ok := reuse(n.SourceID); ok {
				copied[h] = nh
				return nh
			}
		}
		children := n.Children
		n.Children = nil
		nh := t.Add(n)
		copied[h] = nh
		if onCopy != nil {
			onCopy(n.SourceID, nh)
		}
		for _, c := range children {
			t.AppendChild(nh, graft(c))
		}
		return nh
	}
	return graft(h)
}
