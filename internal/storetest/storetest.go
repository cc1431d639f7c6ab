// Package storetest holds behavior tests shared by every dialog.Store.
package storetest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meikuraledutech/dialog"
)

// Run exercises s. The store must be empty.
func Run(t *testing.T, s dialog.Store) {
	ctx := context.Background()
	require.NoError(t, s.CreateSchema(ctx))

	t.Run("SaveGraphResolvesRefs", func(t *testing.T) {
		g := sample("save")
		saved, err := s.SaveGraph(ctx, g)
		require.NoError(t, err)

		for _, n := range saved.Nodes {
			assert.NotEmpty(t, n.ID)
			assert.Empty(t, n.Ref)
		}
		for _, e := range saved.Edges {
			assert.NotEmpty(t, e.ID)
			assert.NotEmpty(t, e.FromNodeID)
			assert.Empty(t, e.FromNodeRef)
		}

		got, err := s.GetGraph(ctx, "save")
		require.NoError(t, err)
		require.Len(t, got.Nodes, 3)
		require.Len(t, got.Edges, 2)
		assert.Equal(t, dialog.KindRoot, got.Nodes[0].Kind)
		assert.Equal(t, "Hello", got.Nodes[1].Phrase.Text)
		assert.Equal(t, []string{"has_item()"}, got.Nodes[1].Phrase.Predicates[0].Params)
		assert.Equal(t, dialog.Position{X: 10, Y: 20}, got.Nodes[1].Position)
		assert.Equal(t, 1, got.Edges[1].Order)

		// Wiring refs are never persisted.
		for _, n := range got.Nodes {
			assert.Empty(t, n.Ref)
		}
		for _, e := range got.Edges {
			assert.Empty(t, e.FromNodeRef)
			assert.Empty(t, e.ToNodeRef)
		}
	})

	t.Run("SpeakerSpellingsStoredCanonical", func(t *testing.T) {
		g := sample("speakers")
		g.Nodes[1].Phrase.Source = "NPC"
		g.Nodes[2].Phrase.Source = "Player"
		_, err := s.SaveGraph(ctx, g)
		require.NoError(t, err)

		got, err := s.GetGraph(ctx, "speakers")
		require.NoError(t, err)
		assert.Equal(t, dialog.SourceNPC, got.Nodes[1].Phrase.Source)
		assert.Equal(t, dialog.SourcePlayer, got.Nodes[2].Phrase.Source)

		n := &dialog.Node{Kind: dialog.KindPhrase, Phrase: &dialog.Phrase{Text: "Hm", Source: "Player"}}
		id, err := s.AddNode(ctx, "speakers", n)
		require.NoError(t, err)
		stored, err := s.GetNode(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, dialog.SourcePlayer, stored.Phrase.Source)

		stored.Phrase.Source = ""
		require.NoError(t, s.UpdateNode(ctx, stored))
		stored, err = s.GetNode(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, dialog.SourceNPC, stored.Phrase.Source)
	})

	t.Run("SaveGraphReplaces", func(t *testing.T) {
		_, err := s.SaveGraph(ctx, sample("replace"))
		require.NoError(t, err)

		g := &dialog.Graph{ID: "replace", Nodes: []dialog.Node{{Kind: dialog.KindRoot}}}
		_, err = s.SaveGraph(ctx, g)
		require.NoError(t, err)

		got, err := s.GetGraph(ctx, "replace")
		require.NoError(t, err)
		assert.Len(t, got.Nodes, 1)
		assert.Empty(t, got.Edges)
	})

	t.Run("SaveGraphRejectsCycles", func(t *testing.T) {
		g := sample("cycle")
		g.Edges = append(g.Edges, dialog.Edge{FromNodeRef: "bye", ToNodeRef: "hello"})
		_, err := s.SaveGraph(ctx, g)
		assert.ErrorIs(t, err, dialog.ErrCycleDetected)
	})

	t.Run("GetGraphMissing", func(t *testing.T) {
		_, err := s.GetGraph(ctx, "nope")
		assert.ErrorIs(t, err, dialog.ErrGraphNotFound)
	})

	t.Run("NodeCRUD", func(t *testing.T) {
		n := &dialog.Node{Kind: dialog.KindPhrase, Phrase: &dialog.Phrase{Text: "Hi", Source: dialog.SourcePlayer}}
		id, err := s.AddNode(ctx, "nodes", n)
		require.NoError(t, err)
		require.NotEmpty(t, id)

		got, err := s.GetNode(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, dialog.SourcePlayer, got.Phrase.Source)

		got.Phrase.Text = "Hey"
		require.NoError(t, s.UpdateNode(ctx, got))
		got, err = s.GetNode(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, "Hey", got.Phrase.Text)

		list, err := s.ListNodes(ctx, "nodes")
		require.NoError(t, err)
		assert.Len(t, list, 1)

		require.NoError(t, s.DeleteNode(ctx, id))
		_, err = s.GetNode(ctx, id)
		assert.ErrorIs(t, err, dialog.ErrNodeNotFound)
		assert.ErrorIs(t, s.UpdateNode(ctx, got), dialog.ErrNodeNotFound)
		require.NoError(t, s.DeleteNode(ctx, id))

		list, err = s.ListNodes(ctx, "nodes")
		require.NoError(t, err)
		assert.NotNil(t, list)
		assert.Empty(t, list)
	})

	t.Run("EdgeCRUD", func(t *testing.T) {
		saved, err := s.SaveGraph(ctx, sample("edges"))
		require.NoError(t, err)
		root, hello, bye := saved.Nodes[0].ID, saved.Nodes[1].ID, saved.Nodes[2].ID

		_, err = s.AddEdge(ctx, "edges", &dialog.Edge{FromNodeID: bye, ToNodeID: root})
		assert.ErrorIs(t, err, dialog.ErrCycleDetected)

		id, err := s.AddEdge(ctx, "edges", &dialog.Edge{FromNodeID: root, ToNodeID: bye, Order: 5})
		require.NoError(t, err)

		e, err := s.GetEdge(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, 5, e.Order)

		e.Order = 2
		require.NoError(t, s.UpdateEdge(ctx, e))
		e, err = s.GetEdge(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, 2, e.Order)

		e.FromNodeID, e.ToNodeID = bye, hello
		assert.ErrorIs(t, s.UpdateEdge(ctx, e), dialog.ErrCycleDetected)
		assert.ErrorIs(t, s.UpdateEdge(ctx, &dialog.Edge{ID: "missing"}), dialog.ErrEdgeNotFound)

		require.NoError(t, s.DeleteEdge(ctx, id))
		_, err = s.GetEdge(ctx, id)
		assert.ErrorIs(t, err, dialog.ErrEdgeNotFound)

		// Deleting a node drops its edges.
		require.NoError(t, s.DeleteNode(ctx, hello))
		edges, err := s.ListEdges(ctx, "edges")
		require.NoError(t, err)
		assert.Empty(t, edges)
	})

	t.Run("DeleteGraph", func(t *testing.T) {
		_, err := s.SaveGraph(ctx, sample("gone"))
		require.NoError(t, err)
		require.NoError(t, s.DeleteGraph(ctx, "gone"))
		_, err = s.GetGraph(ctx, "gone")
		assert.ErrorIs(t, err, dialog.ErrGraphNotFound)
		require.NoError(t, s.DeleteGraph(ctx, "gone"))
	})
}

// sample is root → hello → bye wired by refs.
func sample(id string) *dialog.Graph {
	return &dialog.Graph{
		ID: id,
		Nodes: []dialog.Node{
			{Ref: "root", Kind: dialog.KindRoot},
			{Ref: "hello", Kind: dialog.KindPhrase, Position: dialog.Position{X: 10, Y: 20}, Phrase: &dialog.Phrase{
				Text:       "Hello",
				Source:     dialog.SourceNPC,
				Predicates: []dialog.Script{{Source: `has_item("map")`, Params: []string{"has_item()"}}},
			}},
			{Ref: "bye", Kind: dialog.KindPhrase, Phrase: &dialog.Phrase{Text: "Bye", Source: dialog.SourcePlayer}},
		},
		Edges: []dialog.Edge{
			{FromNodeRef: "root", ToNodeRef: "hello"},
			{FromNodeRef: "hello", ToNodeRef: "bye", Order: 1},
		},
	}
}
