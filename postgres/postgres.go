// Package postgres implements dialog.Store on PostgreSQL using pgx.
package postgres

import (
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meikuraledutech/dialog"
)

// PGStore implements dialog.Store using PostgreSQL via pgx.
type PGStore struct {
	db *pgxpool.Pool
}

var _ dialog.Store = (*PGStore)(nil)

// New creates a new PGStore backed by the given pgx connection pool.
func New(db *pgxpool.Pool) *PGStore {
	return &PGStore{db: db}
}

// nodeData is the JSONB payload of a node row.
type nodeData struct {
	Phrase   *dialog.Phrase   `json:"phrase,omitempty"`
	ElseIf   *dialog.ElseIf   `json:"else_if,omitempty"`
	SubGraph *dialog.SubGraph `json:"sub_graph,omitempty"`
}

func dataOf(n *dialog.Node) nodeData {
	return nodeData{Phrase: n.Phrase, ElseIf: n.ElseIf, SubGraph: n.SubGraph}
}

func (d nodeData) apply(n *dialog.Node) {
	n.Phrase = d.Phrase
	n.ElseIf = d.ElseIf
	n.SubGraph = d.SubGraph
}

func isNoRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}
