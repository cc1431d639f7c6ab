// Package memgraph implements dialog.Store on Memgraph (or any Bolt/Cypher
// graph database). Nodes are :DialogNode vertices and child links are
// [:CHILD {order}] relationships.
package memgraph

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/meikuraledutech/dialog"
	"github.com/meikuraledutech/dialog/internal/ctxlog"
)

// Store implements dialog.Store over a Driver.
type Store struct {
	driver Driver
}

var _ dialog.Store = (*Store)(nil)

// New returns a store that runs its queries on d.
func New(d Driver) *Store {
	return &Store{driver: d}
}

type nodeData struct {
	Phrase   *dialog.Phrase   `json:"phrase,omitempty"`
	ElseIf   *dialog.ElseIf   `json:"else_if,omitempty"`
	SubGraph *dialog.SubGraph `json:"sub_graph,omitempty"`
}

func encodeData(n *dialog.Node) (string, error) {
	b, err := json.Marshal(nodeData{Phrase: n.Phrase, ElseIf: n.ElseIf, SubGraph: n.SubGraph})
	if err != nil {
		return "", fmt.Errorf("dialog: encode node %s: %w", n.ID, err)
	}
	return string(b), nil
}

func nodeParams(n *dialog.Node) (map[string]any, error) {
	data, err := encodeData(n)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"id":    n.ID,
		"kind":  string(n.Kind),
		"pos_x": n.Position.X,
		"pos_y": n.Position.Y,
		"data":  data,
	}, nil
}

// CreateSchema creates the lookup indices. Failures are logged and ignored
// since Memgraph reports an error for indices that already exist.
func (s *Store) CreateSchema(ctx context.Context) error {
	logger := ctxlog.FromContext(ctx)
	for _, q := range indexQueries {
		if _, err := s.driver.ExecuteQuery(ctx, q, nil); err != nil {
			logger.Warn("failed to create index", "query", q, "error", err)
		}
	}
	return nil
}

// DropSchema deletes every dialog vertex and its relationships.
func (s *Store) DropSchema(ctx context.Context) error {
	_, err := s.driver.ExecuteQuery(ctx, dropAllQuery, nil)
	return err
}

// SaveGraph replaces whatever was stored under g.ID.
func (s *Store) SaveGraph(ctx context.Context, g *dialog.Graph) (*dialog.Graph, error) {
	if err := dialog.PrepareSave(g); err != nil {
		return nil, err
	}

	nodes := make([]any, 0, len(g.Nodes))
	for i := range g.Nodes {
		p, err := nodeParams(&g.Nodes[i])
		if err != nil {
			return nil, err
		}
		p["seq"] = int64(i)
		nodes = append(nodes, p)
	}
	edges := make([]any, 0, len(g.Edges))
	for i, e := range g.Edges {
		edges = append(edges, map[string]any{
			"id":    e.ID,
			"from":  e.FromNodeID,
			"to":    e.ToNodeID,
			"order": int64(e.Order),
			"seq":   int64(i),
		})
	}

	if _, err := s.driver.ExecuteQuery(ctx, deleteGraphQuery, map[string]any{"graph_id": g.ID}); err != nil {
		return nil, fmt.Errorf("dialog: delete graph: %w", err)
	}
	if _, err := s.driver.ExecuteQuery(ctx, createNodesQuery, map[string]any{"graph_id": g.ID, "nodes": nodes}); err != nil {
		return nil, fmt.Errorf("dialog: insert nodes: %w", err)
	}
	if len(edges) > 0 {
		if _, err := s.driver.ExecuteQuery(ctx, createEdgesQuery, map[string]any{"graph_id": g.ID, "edges": edges}); err != nil {
			return nil, fmt.Errorf("dialog: insert edges: %w", err)
		}
	}

	dialog.ClearRefs(g)
	return g, nil
}

// GetGraph returns ErrGraphNotFound when no vertex carries graphID.
func (s *Store) GetGraph(ctx context.Context, graphID string) (*dialog.Graph, error) {
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

func (s *Store) DeleteGraph(ctx context.Context, graphID string) error {
	if _, err := s.driver.ExecuteQuery(ctx, deleteGraphQuery, map[string]any{"graph_id": graphID}); err != nil {
		return fmt.Errorf("dialog: delete graph: %w", err)
	}
	return nil
}

func (s *Store) AddNode(ctx context.Context, graphID string, node *dialog.Node) (string, error) {
	if node.ID == "" {
		node.ID = uuid.NewString()
	}
	if err := node.Validate(); err != nil {
		return "", err
	}
	params, err := nodeParams(node)
	if err != nil {
		return "", err
	}
	params["graph_id"] = graphID
	if _, err := s.driver.ExecuteQuery(ctx, addNodeQuery, params); err != nil {
		return "", fmt.Errorf("dialog: insert node: %w", err)
	}
	return node.ID, nil
}

func (s *Store) GetNode(ctx context.Context, nodeID string) (*dialog.Node, error) {
	res, err := s.driver.ExecuteQuery(ctx, getNodeQuery, map[string]any{"id": nodeID})
	if err != nil {
		return nil, fmt.Errorf("dialog: get node: %w", err)
	}
	if len(res.Records) == 0 {
		return nil, dialog.ErrNodeNotFound
	}
	n, err := recordNode(res.Records[0])
	if err != nil {
		return nil, err
	}
	return &n, nil
}

func (s *Store) UpdateNode(ctx context.Context, node *dialog.Node) error {
	if err := node.Validate(); err != nil {
		return err
	}
	params, err := nodeParams(node)
	if err != nil {
		return err
	}
	res, err := s.driver.ExecuteQuery(ctx, updateNodeQuery, params)
	if err != nil {
		return fmt.Errorf("dialog: update node: %w", err)
	}
	if len(res.Records) == 0 {
		return dialog.ErrNodeNotFound
	}
	return nil
}

// DeleteNode removes the vertex together with its CHILD relationships.
func (s *Store) DeleteNode(ctx context.Context, nodeID string) error {
	if _, err := s.driver.ExecuteQuery(ctx, deleteNodeQuery, map[string]any{"id": nodeID}); err != nil {
		return fmt.Errorf("dialog: delete node: %w", err)
	}
	return nil
}

func (s *Store) ListNodes(ctx context.Context, graphID string) ([]dialog.Node, error) {
	res, err := s.driver.ExecuteQuery(ctx, listNodesQuery, map[string]any{"graph_id": graphID})
	if err != nil {
		return nil, fmt.Errorf("dialog: list nodes: %w", err)
	}
	nodes := []dialog.Node{}
	for _, rec := range res.Records {
		n, err := recordNode(rec)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, n)
	}
	return nodes, nil
}

func (s *Store) AddEdge(ctx context.Context, graphID string, edge *dialog.Edge) (string, error) {
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
	seq := int64(len(edges))
	edges = append(edges, *edge)
	if err := dialog.ValidateAcyclic(nodes, edges); err != nil {
		return "", err
	}

	res, err := s.driver.ExecuteQuery(ctx, addEdgeQuery, map[string]any{
		"id":       edge.ID,
		"graph_id": graphID,
		"from":     edge.FromNodeID,
		"to":       edge.ToNodeID,
		"order":    int64(edge.Order),
		"seq":      seq,
	})
	if err != nil {
		return "", fmt.Errorf("dialog: insert edge: %w", err)
	}
	if len(res.Records) == 0 {
		return "", fmt.Errorf("dialog: insert edge %s: %w", edge.ID, dialog.ErrNodeNotFound)
	}
	return edge.ID, nil
}

func (s *Store) GetEdge(ctx context.Context, edgeID string) (*dialog.Edge, error) {
	e, _, err := s.getEdge(ctx, edgeID)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (s *Store) getEdge(ctx context.Context, edgeID string) (dialog.Edge, string, error) {
	res, err := s.driver.ExecuteQuery(ctx, getEdgeQuery, map[string]any{"id": edgeID})
	if err != nil {
		return dialog.Edge{}, "", fmt.Errorf("dialog: get edge: %w", err)
	}
	if len(res.Records) == 0 {
		return dialog.Edge{}, "", dialog.ErrEdgeNotFound
	}
	return recordEdge(res.Records[0])
}

func (s *Store) UpdateEdge(ctx context.Context, edge *dialog.Edge) error {
	_, graphID, err := s.getEdge(ctx, edge.ID)
	if err != nil {
		return err
	}

	nodes, err := s.ListNodes(ctx, graphID)
	if err != nil {
		return err
	}
	edges, err := s.ListEdges(ctx, graphID)
	if err != nil {
		return err
	}
	for i := range edges {
		if edges[i].ID == edge.ID {
			edges[i].FromNodeID = edge.FromNodeID
			edges[i].ToNodeID = edge.ToNodeID
		}
	}
	if err := dialog.ValidateAcyclic(nodes, edges); err != nil {
		return err
	}

	res, err := s.driver.ExecuteQuery(ctx, updateEdgeQuery, map[string]any{
		"id":    edge.ID,
		"from":  edge.FromNodeID,
		"to":    edge.ToNodeID,
		"order": int64(edge.Order),
	})
	if err != nil {
		return fmt.Errorf("dialog: update edge: %w", err)
	}
	if len(res.Records) == 0 {
		return fmt.Errorf("dialog: update edge %s: %w", edge.ID, dialog.ErrNodeNotFound)
	}
	return nil
}

func (s *Store) DeleteEdge(ctx context.Context, edgeID string) error {
	if _, err := s.driver.ExecuteQuery(ctx, deleteEdgeQuery, map[string]any{"id": edgeID}); err != nil {
		return fmt.Errorf("dialog: delete edge: %w", err)
	}
	return nil
}

func (s *Store) ListEdges(ctx context.Context, graphID string) ([]dialog.Edge, error) {
	res, err := s.driver.ExecuteQuery(ctx, listEdgesQuery, map[string]any{"graph_id": graphID})
	if err != nil {
		return nil, fmt.Errorf("dialog: list edges: %w", err)
	}
	edges := []dialog.Edge{}
	for _, rec := range res.Records {
		e, _, err := recordEdge(rec)
		if err != nil {
			return nil, err
		}
		edges = append(edges, e)
	}
	return edges, nil
}

func recordNode(rec *neo4j.Record) (dialog.Node, error) {
	var n dialog.Node
	n.ID = str(rec, "id")
	n.Kind = dialog.Kind(str(rec, "kind"))
	n.Position = dialog.Position{X: num(rec, "pos_x"), Y: num(rec, "pos_y")}

	var data nodeData
	if raw := str(rec, "data"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &data); err != nil {
			return n, fmt.Errorf("dialog: decode node %s: %w", n.ID, err)
		}
	}
	n.Phrase, n.ElseIf, n.SubGraph = data.Phrase, data.ElseIf, data.SubGraph
	return n, nil
}

func recordEdge(rec *neo4j.Record) (dialog.Edge, string, error) {
	e := dialog.Edge{
		ID:         str(rec, "id"),
		FromNodeID: str(rec, "from"),
		ToNodeID:   str(rec, "to"),
		Order:      int(num(rec, "order")),
	}
	if e.ID == "" {
		return e, "", errors.New("dialog: edge record without id")
	}
	return e, str(rec, "graph_id"), nil
}

func str(rec *neo4j.Record, key string) string {
	v, _ := rec.Get(key)
	s, _ := v.(string)
	return s
}

func num(rec *neo4j.Record, key string) float64 {
	v, _ := rec.Get(key)
	switch n := v.(type) {
	case int64:
		return float64(n)
	case float64:
		return n
	}
	return 0
}
