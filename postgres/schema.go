package postgres

import "context"

// seq keeps rows in insertion order; created_at is shared by every row of
// one transaction.
const schemaSQL = `
CREATE TABLE IF NOT EXISTS dialog_nodes (
    id         TEXT PRIMARY KEY,
    graph_id   TEXT NOT NULL,
    seq        BIGSERIAL,
    kind       TEXT NOT NULL,
    pos_x      DOUBLE PRECISION NOT NULL DEFAULT 0,
    pos_y      DOUBLE PRECISION NOT NULL DEFAULT 0,
    data       JSONB NOT NULL DEFAULT '{}',
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS dialog_edges (
    id           TEXT PRIMARY KEY,
    graph_id     TEXT NOT NULL,
    seq          BIGSERIAL,
    from_node_id TEXT NOT NULL REFERENCES dialog_nodes(id) ON DELETE CASCADE,
    to_node_id   TEXT NOT NULL REFERENCES dialog_nodes(id) ON DELETE CASCADE,
    sort_order   INTEGER NOT NULL DEFAULT 0,
    created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_dialog_nodes_graph_id ON dialog_nodes(graph_id);
CREATE INDEX IF NOT EXISTS idx_dialog_edges_graph_id ON dialog_edges(graph_id);
CREATE INDEX IF NOT EXISTS idx_dialog_edges_from     ON dialog_edges(from_node_id);
CREATE INDEX IF NOT EXISTS idx_dialog_edges_to       ON dialog_edges(to_node_id);
`

// CreateSchema creates the dialog_nodes and dialog_edges tables if they don't exist.
func (s *PGStore) CreateSchema(ctx context.Context) error {
	_, err := s.db.Exec(ctx, schemaSQL)
	return err
}

// DropSchema drops the dialog_edges and dialog_nodes tables.
func (s *PGStore) DropSchema(ctx context.Context) error {
	_, err := s.db.Exec(ctx, `DROP TABLE IF EXISTS dialog_edges, dialog_nodes CASCADE;`)
	return err
}
