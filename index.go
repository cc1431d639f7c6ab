package dialog

import (
	"fmt"
	"sort"

	"github.com/google/uuid"
)

// Index is a read-only lookup view over a Graph. It is rebuilt whenever the
// graph changes; it does not observe later mutations.
type Index struct {
	graph    *Graph
	byID     map[string]*Node
	children map[string][]Edge
	parents  map[string][]string
}

// NewIndex builds an index over g. Edges whose endpoints are missing are ignored.
func NewIndex(g *Graph) *Index {
	idx := &Index{
		graph:    g,
		byID:     make(map[string]*Node, len(g.Nodes)),
		children: make(map[string][]Edge),
		parents:  make(map[string][]string),
	}
	for i := range g.Nodes {
		idx.byID[g.Nodes[i].ID] = &g.Nodes[i]
	}
	for _, e := range g.Edges {
		if idx.byID[e.FromNodeID] == nil || idx.byID[e.ToNodeID] == nil {
			continue
		}
		idx.children[e.FromNodeID] = append(idx.children[e.FromNodeID], e)
		idx.parents[e.ToNodeID] = append(idx.parents[e.ToNodeID], e.FromNodeID)
	}
	// Ascending order key; ties keep insertion order.
	for id := range idx.children {
		edges := idx.children[id]
		sort.SliceStable(edges, func(i, j int) bool { return edges[i].Order < edges[j].Order })
	}
	return idx
}

// Graph returns the indexed graph.
func (idx *Index) Graph() *Graph { return idx.graph }

// Node looks a node up by identity.
func (idx *Index) Node(id string) (*Node, bool) {
	n, ok := idx.byID[id]
	return n, ok
}

// Roots returns every root node in graph order.
func (idx *Index) Roots() []*Node {
	var roots []*Node
	for i := range idx.graph.Nodes {
		if idx.graph.Nodes[i].Kind == KindRoot {
			roots = append(roots, &idx.graph.Nodes[i])
		}
	}
	return roots
}

// Children returns the children of id sorted by order key.
func (idx *Index) Children(id string) []*Node {
	edges := idx.children[id]
	out := make([]*Node, 0, len(edges))
	for _, e := range edges {
		out = append(out, idx.byID[e.ToNodeID])
	}
	return out
}

// ChildIDs returns the child identities of id sorted by order key.
func (idx *Index) ChildIDs(id string) []string {
	edges := idx.children[id]
	out := make([]string, 0, len(edges))
	for _, e := range edges {
		out = append(out, e.ToNodeID)
	}
	return out
}

// Parents returns the identities of every node linking to id.
func (idx *Index) Parents(id string) []string {
	return idx.parents[id]
}

// FindCycle searches the part of the graph reachable from start and returns
// the first cycle found as a closed path (first == last), or nil.
func (idx *Index) FindCycle(start string) []string {
	const (
		unvisited = 0
		visiting  = 1
		visited   = 2
	)

	state := make(map[string]int)
	var stack []string

	var dfs func(id string) []string
	dfs = func(id string) []string {
		state[id] = visiting
		stack = append(stack, id)
		for _, next := range idx.ChildIDs(id) {
			switch state[next] {
			case visiting:
				for i, s := range stack {
					if s == next {
						path := append([]string(nil), stack[i:]...)
						return append(path, next)
					}
				}
			case unvisited:
				if path := dfs(next); path != nil {
					return path
				}
			}
		}
		stack = stack[:len(stack)-1]
		state[id] = visited
		return nil
	}
	return dfs(start)
}

// ValidateAcyclic checks that the edges don't form a cycle using DFS.
func ValidateAcyclic(nodes []Node, edges []Edge) error {
	adj := make(map[string][]string)
	for _, e := range edges {
		adj[e.FromNodeID] = append(adj[e.FromNodeID], e.ToNodeID)
	}

	const (
		unvisited = 0
		visiting  = 1
		visited   = 2
	)

	state := make(map[string]int)
	for _, n := range nodes {
		state[n.ID] = unvisited
	}
	// Also include nodes referenced only in edges.
	for _, e := range edges {
		if _, ok := state[e.FromNodeID]; !ok {
			state[e.FromNodeID] = unvisited
		}
		if _, ok := state[e.ToNodeID]; !ok {
			state[e.ToNodeID] = unvisited
		}
	}

	var dfs func(id string) bool
	dfs = func(id string) bool {
		state[id] = visiting
		for _, next := range adj[id] {
			switch state[next] {
			case visiting:
				return true
			case unvisited:
				if dfs(next) {
					return true
				}
			}
		}
		state[id] = visited
		return false
	}

	for id, s := range state {
		if s == unvisited {
			if dfs(id) {
				return ErrCycleDetected
			}
		}
	}

	return nil
}

// DuplicateOffset is added to the position of duplicated nodes.
var DuplicateOffset = Position{X: 40, Y: 40}

// Duplicate copies the selected nodes with fresh identities. Edges between two
// selected nodes are copied too; edges leaving the selection are not. Root
// nodes are never duplicated. It returns the new nodes, the new edges and the
// old → new identity mapping.
func Duplicate(g *Graph, ids []string) ([]Node, []Edge, map[string]string, error) {
	idx := NewIndex(g)
	mapping := make(map[string]string, len(ids))
	var nodes []Node
	for _, id := range ids {
		n, ok := idx.Node(id)
		if !ok {
			return nil, nil, nil, fmt.Errorf("dialog: duplicate %s: %w", id, ErrNodeNotFound)
		}
		if n.Kind == KindRoot {
			continue
		}
		if _, seen := mapping[id]; seen {
			continue
		}
		c := n.Clone()
		c.ID = uuid.NewString()
		c.Ref = ""
		c.Position.X += DuplicateOffset.X
		c.Position.Y += DuplicateOffset.Y
		mapping[id] = c.ID
		nodes = append(nodes, c)
	}

	var edges []Edge
	for _, e := range g.Edges {
		from, okFrom := mapping[e.FromNodeID]
		to, okTo := mapping[e.ToNodeID]
		if !okFrom || !okTo {
			continue
		}
		edges = append(edges, Edge{ID: uuid.NewString(), FromNodeID: from, ToNodeID: to, Order: e.Order})
	}
	return nodes, edges, mapping, nil
}
