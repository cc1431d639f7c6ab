// Package memory implements dialog.Store in process memory. It backs the
// editor when no database is configured and serves as a test double.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/meikuraledutech/dialog"
)

type nodeRow struct {
	graphID string
	node    dialog.Node
}

type edgeRow struct {
	graphID string
	edge    dialog.Edge
}

// Store keeps rows in slices guarded by a mutex, in insertion order.
type Store struct {
	mu    sync.RWMutex
	nodes []nodeRow
	edges []edgeRow
}

var _ dialog.Store = (*Store)(nil)

// New returns an empty store.
func New() *Store {
	return &Store{}
}

func (s *Store) CreateSchema(context.Context) error { return nil }

// DropSchema drops every stored graph.
func (s *Store) DropSchema(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nodes = nil
	s.edges = nil
	return nil
}

// SaveGraph replaces whatever was stored under g.ID.
func (s *Store) SaveGraph(_ context.Context, g *dialog.Graph) (*dialog.Graph, error) {
	if err := dialog.PrepareSave(g); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	ids := make(map[string]bool, len(g.Nodes))
	for _, n := range g.Nodes {
		if ids[n.ID] {
			return nil, fmt.Errorf("dialog: duplicate node id %s", n.ID)
		}
		ids[n.ID] = true
		if i := s.nodeIndex(n.ID); i >= 0 && s.nodes[i].graphID != g.ID {
			return nil, fmt.Errorf("dialog: node %s belongs to graph %s", n.ID, s.nodes[i].graphID)
		}
	}
	for _, e := range g.Edges {
		if !ids[e.FromNodeID] || !ids[e.ToNodeID] {
			return nil, fmt.Errorf("dialog: edge %s: %w", e.ID, dialog.ErrNodeNotFound)
		}
	}

	dialog.ClearRefs(g)
	s.deleteGraph(g.ID)
	for _, n := range g.Nodes {
		s.nodes = append(s.nodes, nodeRow{graphID: g.ID, node: n.Clone()})
	}
	for _, e := range g.Edges {
		s.edges = append(s.edges, edgeRow{graphID: g.ID, edge: e})
	}
	return g, nil
}

// GetGraph returns a copy of the stored graph.
func (s *Store) GetGraph(_ context.Context, graphID string) (*dialog.Graph, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	g := &dialog.Graph{ID: graphID, Nodes: s.listNodes(graphID), Edges: s.listEdges(graphID)}
	if len(g.Nodes) == 0 {
		return nil, dialog.ErrGraphNotFound
	}
	return g, nil
}

func (s *Store) DeleteGraph(_ context.Context, graphID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleteGraph(graphID)
	return nil
}

func (s *Store) deleteGraph(graphID string) {
	s.nodes = filter(s.nodes, func(r nodeRow) bool { return r.graphID != graphID })
	s.edges = filter(s.edges, func(r edgeRow) bool { return r.graphID != graphID })
}

func (s *Store) AddNode(_ context.Context, graphID string, node *dialog.Node) (string, error) {
	if node.ID == "" {
		node.ID = uuid.NewString()
	}
	if err := node.Validate(); err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.nodeIndex(node.ID) >= 0 {
		return "", fmt.Errorf("dialog: node %s already exists", node.ID)
	}
	c := node.Clone()
	c.Ref = ""
	s.nodes = append(s.nodes, nodeRow{graphID: graphID, node: c})
	return node.ID, nil
}

func (s *Store) GetNode(_ context.Context, nodeID string) (*dialog.Node, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i := s.nodeIndex(nodeID)
	if i < 0 {
		return nil, dialog.ErrNodeNotFound
	}
	n := s.nodes[i].node.Clone()
	return &n, nil
}

func (s *Store) UpdateNode(_ context.Context, node *dialog.Node) error {
	if err := node.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.nodeIndex(node.ID)
	if i < 0 {
		return dialog.ErrNodeNotFound
	}
	c := node.Clone()
	c.Ref = ""
	s.nodes[i].node = c
	return nil
}

// DeleteNode removes the node and every edge touching it.
func (s *Store) DeleteNode(_ context.Context, nodeID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nodes = filter(s.nodes, func(r nodeRow) bool { return r.node.ID != nodeID })
	s.edges = filter(s.edges, func(r edgeRow) bool {
		return r.edge.FromNodeID != nodeID && r.edge.ToNodeID != nodeID
	})
	return nil
}

func (s *Store) ListNodes(_ context.Context, graphID string) ([]dialog.Node, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.listNodes(graphID), nil
}

func (s *Store) listNodes(graphID string) []dialog.Node {
	nodes := []dialog.Node{}
	for _, r := range s.nodes {
		if r.graphID == graphID {
			nodes = append(nodes, r.node.Clone())
		}
	}
	return nodes
}

func (s *Store) AddEdge(_ context.Context, graphID string, edge *dialog.Edge) (string, error) {
	if edge.ID == "" {
		edge.ID = uuid.NewString()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkEdge(graphID, *edge); err != nil {
		return "", err
	}
	edges := append(s.listEdges(graphID), *edge)
	if err := dialog.ValidateAcyclic(s.listNodes(graphID), edges); err != nil {
		return "", err
	}
	s.edges = append(s.edges, edgeRow{graphID: graphID, edge: dialog.Edge{ID: edge.ID, FromNodeID: edge.FromNodeID, ToNodeID: edge.ToNodeID, Order: edge.Order}})
	return edge.ID, nil
}

func (s *Store) GetEdge(_ context.Context, edgeID string) (*dialog.Edge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i := s.edgeIndex(edgeID)
	if i < 0 {
		return nil, dialog.ErrEdgeNotFound
	}
	e := s.edges[i].edge
	return &e, nil
}

func (s *Store) UpdateEdge(_ context.Context, edge *dialog.Edge) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.edgeIndex(edge.ID)
	if i < 0 {
		return dialog.ErrEdgeNotFound
	}
	graphID := s.edges[i].graphID
	if err := s.checkEdge(graphID, *edge); err != nil {
		return err
	}

	edges := s.listEdges(graphID)
	for j := range edges {
		if edges[j].ID == edge.ID {
			edges[j] = *edge
		}
	}
	if err := dialog.ValidateAcyclic(s.listNodes(graphID), edges); err != nil {
		return err
	}
	s.edges[i].edge = dialog.Edge{ID: edge.ID, FromNodeID: edge.FromNodeID, ToNodeID: edge.ToNodeID, Order: edge.Order}
	return nil
}

func (s *Store) DeleteEdge(_ context.Context, edgeID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.edges = filter(s.edges, func(r edgeRow) bool { return r.edge.ID != edgeID })
	return nil
}

func (s *Store) ListEdges(_ context.Context, graphID string) ([]dialog.Edge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.listEdges(graphID), nil
}

func (s *Store) listEdges(graphID string) []dialog.Edge {
	edges := []dialog.Edge{}
	for _, r := range s.edges {
		if r.graphID == graphID {
			edges = append(edges, r.edge)
		}
	}
	return edges
}

// checkEdge mirrors the foreign keys of the SQL schema.
func (s *Store) checkEdge(graphID string, e dialog.Edge) error {
	for _, id := range []string{e.FromNodeID, e.ToNodeID} {
		i := s.nodeIndex(id)
		if i < 0 || s.nodes[i].graphID != graphID {
			return fmt.Errorf("dialog: edge %s: node %s: %w", e.ID, id, dialog.ErrNodeNotFound)
		}
	}
	return nil
}

func (s *Store) nodeIndex(id string) int {
	for i, r := range s.nodes {
		if r.node.ID == id {
			return i
		}
	}
	return -1
}

func (s *Store) edgeIndex(id string) int {
	for i, r := range s.edges {
		if r.edge.ID == id {
			return i
		}
	}
	return -1
}

func filter[T any](rows []T, keep func(T) bool) []T {
	out := rows[:0]
	for _, r := range rows {
		if keep(r) {
			out = append(out, r)
		}
	}
	return out
}
