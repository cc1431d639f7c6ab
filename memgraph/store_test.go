package memgraph

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meikuraledutech/dialog"
	"github.com/meikuraledutech/dialog/internal/storetest"
)

type call struct {
	query  string
	params map[string]any
}

// mockDriver records every query and answers from a queue of results.
type mockDriver struct {
	calls   []call
	results []neo4j.EagerResult
	err     error
}

func (m *mockDriver) ExecuteQuery(_ context.Context, query string, params map[string]any) (neo4j.EagerResult, error) {
	m.calls = append(m.calls, call{query, params})
	if m.err != nil {
		return neo4j.EagerResult{}, m.err
	}
	if len(m.results) == 0 {
		return neo4j.EagerResult{}, nil
	}
	res := m.results[0]
	m.results = m.results[1:]
	return res, nil
}

func (m *mockDriver) Close(context.Context) error { return nil }

func records(keys []string, rows ...[]any) neo4j.EagerResult {
	res := neo4j.EagerResult{Keys: keys}
	for _, r := range rows {
		res.Records = append(res.Records, &neo4j.Record{Keys: keys, Values: r})
	}
	return res
}

var (
	nodeKeys = []string{"id", "kind", "pos_x", "pos_y", "data"}
	edgeKeys = []string{"id", "from", "to", "order", "graph_id"}
)

func TestStore_GetNode(t *testing.T) {
	d := &mockDriver{results: []neo4j.EagerResult{
		records(nodeKeys, []any{"n1", "phrase", 12.5, int64(4), `{"phrase":{"text":"Hi","source":"player"}}`}),
	}}
	s := New(d)

	n, err := s.GetNode(context.Background(), "n1")
	require.NoError(t, err)
	assert.Equal(t, dialog.KindPhrase, n.Kind)
	assert.Equal(t, dialog.Position{X: 12.5, Y: 4}, n.Position)
	assert.Equal(t, "Hi", n.Phrase.Text)
	assert.Equal(t, dialog.SourcePlayer, n.Phrase.Source)
	assert.Equal(t, "n1", d.calls[0].params["id"])

	_, err = s.GetNode(context.Background(), "missing")
	assert.ErrorIs(t, err, dialog.ErrNodeNotFound)
}

func TestStore_SaveGraph(t *testing.T) {
	d := &mockDriver{}
	s := New(d)

	g := &dialog.Graph{
		ID: "intro",
		Nodes: []dialog.Node{
			{Ref: "root", Kind: dialog.KindRoot},
			{Ref: "hi", Kind: dialog.KindPhrase, Phrase: &dialog.Phrase{Text: "Hi"}},
		},
		Edges: []dialog.Edge{{FromNodeRef: "root", ToNodeRef: "hi", Order: 3}},
	}
	saved, err := s.SaveGraph(context.Background(), g)
	require.NoError(t, err)
	require.Len(t, d.calls, 3)

	assert.Equal(t, deleteGraphQuery, d.calls[0].query)
	assert.Equal(t, createNodesQuery, d.calls[1].query)
	nodes := d.calls[1].params["nodes"].([]any)
	require.Len(t, nodes, 2)
	assert.Equal(t, saved.Nodes[1].ID, nodes[1].(map[string]any)["id"])
	assert.Equal(t, int64(1), nodes[1].(map[string]any)["seq"])

	edges := d.calls[2].params["edges"].([]any)
	edge := edges[0].(map[string]any)
	assert.Equal(t, saved.Nodes[0].ID, edge["from"])
	assert.Equal(t, saved.Nodes[1].ID, edge["to"])
	assert.Equal(t, int64(3), edge["order"])
	assert.Empty(t, saved.Edges[0].FromNodeRef)
}

func TestStore_AddEdgeRejectsCycles(t *testing.T) {
	d := &mockDriver{results: []neo4j.EagerResult{
		records(nodeKeys,
			[]any{"a", "phrase", 0.0, 0.0, `{"phrase":{"text":"A"}}`},
			[]any{"b", "phrase", 0.0, 0.0, `{"phrase":{"text":"B"}}`}),
		records(edgeKeys, []any{"e1", "a", "b", int64(0), "g"}),
	}}
	s := New(d)

	_, err := s.AddEdge(context.Background(), "g", &dialog.Edge{FromNodeID: "b", ToNodeID: "a"})
	assert.ErrorIs(t, err, dialog.ErrCycleDetected)
	assert.Len(t, d.calls, 2, "no write after a failed check")
}

func TestStore_AddEdgeMissingEndpoint(t *testing.T) {
	d := &mockDriver{results: []neo4j.EagerResult{
		records(nodeKeys, []any{"a", "root", 0.0, 0.0, `{}`}),
		records(edgeKeys),
		{},
	}}
	_, err := New(d).AddEdge(context.Background(), "g", &dialog.Edge{FromNodeID: "a", ToNodeID: "ghost"})
	assert.ErrorIs(t, err, dialog.ErrNodeNotFound)
	assert.Equal(t, int64(0), d.calls[2].params["seq"])
}

func TestStore_ListEdges(t *testing.T) {
	d := &mockDriver{results: []neo4j.EagerResult{
		records(edgeKeys,
			[]any{"e1", "a", "b", int64(2), "g"},
			[]any{"e2", "a", "c", int64(1), "g"}),
	}}
	edges, err := New(d).ListEdges(context.Background(), "g")
	require.NoError(t, err)
	require.Len(t, edges, 2)
	assert.Equal(t, dialog.Edge{ID: "e1", FromNodeID: "a", ToNodeID: "b", Order: 2}, edges[0])
}

func TestStore_UpdateEdgeMissing(t *testing.T) {
	d := &mockDriver{}
	err := New(d).UpdateEdge(context.Background(), &dialog.Edge{ID: "nope"})
	assert.ErrorIs(t, err, dialog.ErrEdgeNotFound)
}

func TestStore_DriverErrors(t *testing.T) {
	boom := errors.New("connection refused")
	s := New(&mockDriver{err: boom})

	_, err := s.GetGraph(context.Background(), "g")
	assert.ErrorIs(t, err, boom)
	assert.NoError(t, s.CreateSchema(context.Background()), "index failures are only logged")
}

// Set DIALOG_TEST_MEMGRAPH_URI to run against a scratch Memgraph. All
// :DialogNode vertices are deleted first.
func TestStore_Memgraph(t *testing.T) {
	uri := os.Getenv("DIALOG_TEST_MEMGRAPH_URI")
	if uri == "" {
		t.Skip("DIALOG_TEST_MEMGRAPH_URI not set")
	}
	ctx := context.Background()
	d, err := Connect(ctx, uri, os.Getenv("DIALOG_TEST_MEMGRAPH_USER"), os.Getenv("DIALOG_TEST_MEMGRAPH_PASSWORD"))
	require.NoError(t, err)
	t.Cleanup(func() { d.Close(ctx) })

	s := New(d)
	require.NoError(t, s.DropSchema(ctx))
	storetest.Run(t, s)
}
