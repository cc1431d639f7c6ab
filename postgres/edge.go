package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/meikuraledutech/dialog"
)

const (
	insertEdgeSQL = `INSERT INTO dialog_edges (id, graph_id, from_node_id, to_node_id, sort_order) VALUES ($1, $2, $3, $4, $5)`
	selectEdgeSQL = `SELECT id, from_node_id, to_node_id, sort_order FROM dialog_edges`
)

func scanEdge(row pgx.Row) (dialog.Edge, error) {
	var e dialog.Edge
	err := row.Scan(&e.ID, &e.FromNodeID, &e.ToNodeID, &e.Order)
	return e, err
}

// AddEdge inserts a single edge into a graph.
// If edge.ID is empty, a UUID is auto-generated.
// Validates that adding this edge does not create a cycle.
// Returns the edge ID (generated or provided).
func (s *PGStore) AddEdge(ctx context.Context, graphID string, edge *dialog.Edge) (string, error) {
	if edge.ID == "" {
		edge.ID = uuid.NewString()
	}

	nodes, err := s.ListNodes(ctx, graphID)
	if err != nil {
		return "", err
	}
	edges, err := s.ListEdges(ctx, graphID)
	if err != nil {
		return "", err
	}

	edges = append(edges, *edge)
	if err := dialog.ValidateAcyclic(nodes, edges); err != nil {
		return "", err
	}

	_, err = s.db.Exec(ctx, insertEdgeSQL,
		edge.ID, graphID, edge.FromNodeID, edge.ToNodeID, edge.Order,
	)
	if err != nil {
		return "", fmt.Errorf("dialog: insert edge: %w", err)
	}

	return edge.ID, nil
}

// GetEdge fetches a single edge by its ID.
func (s *PGStore) GetEdge(ctx context.Context, edgeID string) (*dialog.Edge, error) {
	e, err := scanEdge(s.db.QueryRow(ctx, selectEdgeSQL+` WHERE id = $1`, edgeID))
	if err != nil {
		if isNoRows(err) {
			return nil, dialog.ErrEdgeNotFound
		}
		return nil, fmt.Errorf("dialog: get edge: %w", err)
	}
	return &e, nil
}

// UpdateEdge updates an existing edge's endpoints and order.
// Validates that the update does not create a cycle.
// Returns ErrEdgeNotFound if the edge doesn't exist.
func (s *PGStore) UpdateEdge(ctx context.Context, edge *dialog.Edge) error {
	var graphID string
	err := s.db.QueryRow(ctx,
		`SELECT graph_id FROM dialog_edges WHERE id = $1`, edge.ID,
	).Scan(&graphID)
	if err != nil {
		if isNoRows(err) {
			return dialog.ErrEdgeNotFound
		}
		return fmt.Errorf("dialog: find edge: %w", err)
	}

	nodes, err := s.ListNodes(ctx, graphID)
	if err != nil {
		return err
	}
	edges, err := s.ListEdges(ctx, graphID)
	if err != nil {
		return err
	}

	for i, e := range edges {
		if e.ID == edge.ID {
			edges[i].FromNodeID = edge.FromNodeID
			edges[i].ToNodeID = edge.ToNodeID
			break
		}
	}

	if err := dialog.ValidateAcyclic(nodes, edges); err != nil {
		return err
	}

	ct, err := s.db.Exec(ctx,
		`UPDATE dialog_edges SET from_node_id = $1, to_node_id = $2, sort_order = $3 WHERE id = $4`,
		edge.FromNodeID, edge.ToNodeID, edge.Order, edge.ID,
	)
	if err != nil {
		return fmt.Errorf("dialog: update edge: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return dialog.ErrEdgeNotFound
	}
	return nil
}

// DeleteEdge deletes an edge by its ID.
// No error if the edge doesn't exist.
func (s *PGStore) DeleteEdge(ctx context.Context, edgeID string) error {
	_, err := s.db.Exec(ctx, `DELETE FROM dialog_edges WHERE id = $1`, edgeID)
	if err != nil {
		return fmt.Errorf("dialog: delete edge: %w", err)
	}
	return nil
}

// ListEdges returns all edges for a graphID in insertion order.
// Returns an empty slice (not nil) if none found.
func (s *PGStore) ListEdges(ctx context.Context, graphID string) ([]dialog.Edge, error) {
	rows, err := s.db.Query(ctx, selectEdgeSQL+` WHERE graph_id = $1 ORDER BY seq`, graphID)
	if err != nil {
		return nil, fmt.Errorf("dialog: list edges: %w", err)
	}
	defer rows.Close()

	edges := []dialog.Edge{}
	for rows.Next() {
		e, err := scanEdge(rows)
		if err != nil {
			return nil, fmt.Errorf("dialog: scan edge: %w", err)
		}
		edges = append(edges, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("dialog: rows edges: %w", err)
	}

	return edges, nil
}
