package postgres

import (
	"context"
	"fmt"

	"github.com/meikuraledutech/dialog"
)

// SaveGraph saves a full graph (nodes + edges) in one transaction, replacing
// whatever was stored under g.ID.
// Nodes/edges without IDs get auto-generated UUIDs.
// Edge refs (FromNodeRef/ToNodeRef) are resolved to real node IDs.
// Returns the graph with all IDs filled in.
func (s *PGStore) SaveGraph(ctx context.Context, g *dialog.Graph) (*dialog.Graph, error) {
	if err := dialog.PrepareSave(g); err != nil {
		return nil, err
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("dialog: begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM dialog_edges WHERE graph_id = $1`, g.ID); err != nil {
		return nil, fmt.Errorf("dialog: delete edges: %w", err)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM dialog_nodes WHERE graph_id = $1`, g.ID); err != nil {
		return nil, fmt.Errorf("dialog: delete nodes: %w", err)
	}

	for i := range g.Nodes {
		n := &g.Nodes[i]
		if _, err := tx.Exec(ctx, insertNodeSQL,
			n.ID, g.ID, string(n.Kind), n.Position.X, n.Position.Y, dataOf(n),
		); err != nil {
			return nil, fmt.Errorf("dialog: insert node %s: %w", n.ID, err)
		}
	}

	for _, e := range g.Edges {
		if _, err := tx.Exec(ctx, insertEdgeSQL,
			e.ID, g.ID, e.FromNodeID, e.ToNodeID, e.Order,
		); err != nil {
			return nil, fmt.Errorf("dialog: insert edge %s: %w", e.ID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("dialog: commit: %w", err)
	}

	dialog.ClearRefs(g)
	return g, nil
}

// GetGraph retrieves a full graph (nodes + edges) by its ID.
// Returns ErrGraphNotFound if no nodes exist for the graphID.
func (s *PGStore) GetGraph(ctx context.Context, graphID string) (*dialog.Graph, error) {
	nodes, err := s.ListNodes(ctx, graphID)
	if err != nil {
		return nil, err
	}
	if len(nodes) == 0 {
		return nil, dialog.ErrGraphNotFound
	}

	edges, err := s.ListEdges(ctx, graphID)
	if err != nil {
		return nil, err
	}

	return &dialog.Graph{ID: graphID, Nodes: nodes, Edges: edges}, nil
}

// DeleteGraph removes all nodes and edges for a graphID.
// No error if the graphID doesn't exist.
func (s *PGStore) DeleteGraph(ctx context.Context, graphID string) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("dialog: begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM dialog_edges WHERE graph_id = $1`, graphID); err != nil {
		return fmt.Errorf("dialog: delete edges: %w", err)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM dialog_nodes WHERE graph_id = $1`, graphID); err != nil {
		return fmt.Errorf("dialog: delete nodes: %w", err)
	}

	return tx.Commit(ctx)
}
