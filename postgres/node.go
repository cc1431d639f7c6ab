package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/meikuraledutech/dialog"
)

const (
	insertNodeSQL = `INSERT INTO dialog_nodes (id, graph_id, kind, pos_x, pos_y, data) VALUES ($1, $2, $3, $4, $5, $6)`
	selectNodeSQL = `SELECT id, kind, pos_x, pos_y, data FROM dialog_nodes`
)

func scanNode(row pgx.Row) (dialog.Node, error) {
	var (
		n    dialog.Node
		kind string
		data nodeData
	)
	if err := row.Scan(&n.ID, &kind, &n.Position.X, &n.Position.Y, &data); err != nil {
		return n, err
	}
	n.Kind = dialog.Kind(kind)
	data.apply(&n)
	return n, nil
}

// AddNode inserts a single node into a graph.
// If node.ID is empty, a UUID is auto-generated.
// Returns the node ID (generated or provided).
func (s *PGStore) AddNode(ctx context.Context, graphID string, node *dialog.Node) (string, error) {
	if node.ID == "" {
		node.ID = uuid.NewString()
	}
	if err := node.Validate(); err != nil {
		return "", err
	}

	_, err := s.db.Exec(ctx, insertNodeSQL,
		node.ID, graphID, string(node.Kind), node.Position.X, node.Position.Y, dataOf(node),
	)
	if err != nil {
		return "", fmt.Errorf("dialog: insert node: %w", err)
	}

	return node.ID, nil
}

// GetNode fetches a single node by its ID.
func (s *PGStore) GetNode(ctx context.Context, nodeID string) (*dialog.Node, error) {
	n, err := scanNode(s.db.QueryRow(ctx, selectNodeSQL+` WHERE id = $1`, nodeID))
	if err != nil {
		if isNoRows(err) {
			return nil, dialog.ErrNodeNotFound
		}
		return nil, fmt.Errorf("dialog: get node: %w", err)
	}
	return &n, nil
}

// UpdateNode replaces the kind, position and payload of an existing node.
// Returns ErrNodeNotFound if the node doesn't exist.
func (s *PGStore) UpdateNode(ctx context.Context, node *dialog.Node) error {
	if err := node.Validate(); err != nil {
		return err
	}
	ct, err := s.db.Exec(ctx,
		`UPDATE dialog_nodes SET kind = $1, pos_x = $2, pos_y = $3, data = $4 WHERE id = $5`,
		string(node.Kind), node.Position.X, node.Position.Y, dataOf(node), node.ID,
	)
	if err != nil {
		return fmt.Errorf("dialog: update node: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return dialog.ErrNodeNotFound
	}
	return nil
}

// DeleteNode deletes a node by its ID.
// Associated edges are cascade-deleted by the DB.
// No error if the node doesn't exist.
func (s *PGStore) DeleteNode(ctx context.Context, nodeID string) error {
	_, err := s.db.Exec(ctx, `DELETE FROM dialog_nodes WHERE id = $1`, nodeID)
	if err != nil {
		return fmt.Errorf("dialog: delete node: %w", err)
	}
	return nil
}

// ListNodes returns all nodes for a graphID in insertion order.
// Returns an empty slice (not nil) if none found.
func (s *PGStore) ListNodes(ctx context.Context, graphID string) ([]dialog.Node, error) {
	rows, err := s.db.Query(ctx, selectNodeSQL+` WHERE graph_id = $1 ORDER BY seq`, graphID)
	if err != nil {
		return nil, fmt.Errorf("dialog: list nodes: %w", err)
	}
	defer rows.Close()

	nodes := []dialog.Node{}
	for rows.Next() {
		n, err := scanNode(rows)
		if err != nil {
			return nil, fmt.Errorf("dialog: scan node: %w", err)
		}
		nodes = append(nodes, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("dialog: rows nodes: %w", err)
	}

	return nodes, nil
}
