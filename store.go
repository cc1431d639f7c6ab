package dialog

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

var (
	ErrCycleDetected = errors.New("dialog: cycle detected, graph is not acyclic")
	ErrNodeNotFound  = errors.New("dialog: node not found")
	ErrEdgeNotFound  = errors.New("dialog: edge not found")
	ErrGraphNotFound = errors.New("dialog: graph not found")
	ErrInvalidNode   = errors.New("dialog: invalid node")
	ErrUnknownRef    = errors.New("dialog: unknown node ref")
)

// Store defines the contract for persisting and retrieving dialog graphs.
// Lookups of missing graphs, nodes and edges return ErrGraphNotFound,
// ErrNodeNotFound and ErrEdgeNotFound. Deleting something that does not
// exist is not an error. Edge writes that would close a cycle fail with
// ErrCycleDetected.
type Store interface {
	// Schema
	CreateSchema(ctx context.Context) error
	DropSchema(ctx context.Context) error

	// Graph (bulk operations)
	SaveGraph(ctx context.Context, g *Graph) (*Graph, error)
	GetGraph(ctx context.Context, graphID string) (*Graph, error)
	DeleteGraph(ctx context.Context, graphID string) error

	// Nodes
	AddNode(ctx context.Context, graphID string, node *Node) (string, error)
	GetNode(ctx context.Context, nodeID string) (*Node, error)
	UpdateNode(ctx context.Context, node *Node) error
	DeleteNode(ctx context.Context, nodeID string) error
	ListNodes(ctx context.Context, graphID string) ([]Node, error)

	// Edges
	AddEdge(ctx context.Context, graphID string, edge *Edge) (string, error)
	GetEdge(ctx context.Context, edgeID string) (*Edge, error)
	UpdateEdge(ctx context.Context, edge *Edge) error
	DeleteEdge(ctx context.Context, edgeID string) error
	ListEdges(ctx context.Context, graphID string) ([]Edge, error)
}

// PrepareSave fills in missing node and edge IDs, resolves edge refs
// (FromNodeRef/ToNodeRef) to node IDs and checks that the result is acyclic.
// Stores call it before persisting a graph with SaveGraph.
func PrepareSave(g *Graph) error {
	refMap := make(map[string]string)
	for i := range g.Nodes {
		n := &g.Nodes[i]
		if n.ID == "" {
			n.ID = uuid.NewString()
		}
		if n.Ref != "" {
			refMap[n.Ref] = n.ID
		}
		if err := n.Validate(); err != nil {
			return err
		}
	}

	for i := range g.Edges {
		e := &g.Edges[i]
		if e.ID == "" {
			e.ID = uuid.NewString()
		}
		if e.FromNodeRef != "" {
			id, ok := refMap[e.FromNodeRef]
			if !ok {
				return fmt.Errorf("%w: from_node_ref %q", ErrUnknownRef, e.FromNodeRef)
			}
			e.FromNodeID = id
		}
		if e.ToNodeRef != "" {
			id, ok := refMap[e.ToNodeRef]
			if !ok {
				return fmt.Errorf("%w: to_node_ref %q", ErrUnknownRef, e.ToNodeRef)
			}
			e.ToNodeID = id
		}
	}

	return ValidateAcyclic(g.Nodes, g.Edges)
}

// ClearRefs drops the temporary wiring keys after a save.
func ClearRefs(g *Graph) {
	for i := range g.Nodes {
		g.Nodes[i].Ref = ""
	}
	for i := range g.Edges {
		g.Edges[i].FromNodeRef = ""
		g.Edges[i].ToNodeRef = ""
	}
}
