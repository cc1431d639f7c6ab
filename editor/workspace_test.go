package editor

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meikuraledutech/dialog"
	"github.com/meikuraledutech/dialog/compilelog"
	"github.com/meikuraledutech/dialog/exchange"
	"github.com/meikuraledutech/dialog/memory"
	"github.com/meikuraledutech/dialog/runtime"
)

// seed stores root → greet → {yes, no} and returns the saved graph.
func seed(t *testing.T, w *Workspace) *dialog.Graph {
	t.Helper()
	g := &dialog.Graph{
		ID: "intro",
		Nodes: []dialog.Node{
			{Ref: "root", Kind: dialog.KindRoot},
			{Ref: "greet", Kind: dialog.KindPhrase, Phrase: &dialog.Phrase{
				Text:       "Need a map?",
				Source:     dialog.SourceNPC,
				Predicates: []dialog.Script{{Source: `!has_item("map")`}},
			}},
			{Ref: "yes", Kind: dialog.KindPhrase, Phrase: &dialog.Phrase{
				Text:    "Yes please",
				Source:  dialog.SourcePlayer,
				Actions: []dialog.Script{{Source: `give_item("map", 1)`}},
			}},
			{Ref: "no", Kind: dialog.KindPhrase, Phrase: &dialog.Phrase{Text: "No thanks", Source: dialog.SourcePlayer}},
		},
		Edges: []dialog.Edge{
			{FromNodeRef: "root", ToNodeRef: "greet"},
			{FromNodeRef: "greet", ToNodeRef: "yes", Order: 0},
			{FromNodeRef: "greet", ToNodeRef: "no", Order: 1},
		},
	}
	saved, err := w.SaveGraph(context.Background(), g)
	require.NoError(t, err)
	return saved
}

func childTexts(tree *runtime.Tree, sourceID string) []string {
	h, ok := tree.Lookup(sourceID)
	if !ok {
		return nil
	}
	var out []string
	for _, c := range tree.Children(h) {
		out = append(out, tree.Node(c).Phrase.Text)
	}
	return out
}

func hasError(msgs []compilelog.Message) bool {
	for _, m := range msgs {
		if m.Severity == compilelog.Error {
			return true
		}
	}
	return false
}

func TestWorkspace_AutoCompileOnSave(t *testing.T) {
	w := New(memory.New(), WithAutoCompile(true))
	g := seed(t, w)

	tree := w.Tree("intro")
	require.NotNil(t, tree)
	assert.Equal(t, []string{"Yes please", "No thanks"}, childTexts(tree, g.Nodes[1].ID))

	msgs := w.Messages("intro")
	require.NotEmpty(t, msgs)
	assert.Equal(t, "Compile dialog", msgs[0].Text)
	assert.False(t, hasError(msgs))
	assert.Equal(t, compilelog.ListingName, w.Session("intro").Listing().Name)
}

func TestWorkspace_ManualCompile(t *testing.T) {
	w := New(memory.New())
	seed(t, w)
	assert.Nil(t, w.Tree("intro"))

	res, err := w.Compile(context.Background(), "intro")
	require.NoError(t, err)
	assert.True(t, res.Installed)
	assert.Same(t, res.Tree, w.Tree("intro"))

	_, err = w.Compile(context.Background(), "missing")
	assert.ErrorIs(t, err, dialog.ErrGraphNotFound)
}

func TestWorkspace_WritesBackResolvedParams(t *testing.T) {
	ctx := context.Background()
	w := New(memory.New())
	g := seed(t, w)

	res, err := w.Compile(ctx, "intro")
	require.NoError(t, err)
	assert.True(t, res.NeedsRefresh)

	greet, err := w.Store().GetNode(ctx, g.Nodes[1].ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"has_item()"}, greet.Phrase.Predicates[0].Params)

	yes, err := w.Store().GetNode(ctx, g.Nodes[2].ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"item", "count"}, yes.Phrase.Actions[0].Params)

	res, err = w.Compile(ctx, "intro")
	require.NoError(t, err)
	assert.False(t, res.NeedsRefresh)
}

func TestWorkspace_UpdateNodeRecompiles(t *testing.T) {
	ctx := context.Background()
	w := New(memory.New(), WithAutoCompile(true))
	g := seed(t, w)

	no, err := w.Store().GetNode(ctx, g.Nodes[3].ID)
	require.NoError(t, err)
	no.Phrase.Text = "Maybe later"
	require.NoError(t, w.UpdateNode(ctx, "intro", no))

	assert.Equal(t, []string{"Yes please", "Maybe later"}, childTexts(w.Tree("intro"), g.Nodes[1].ID))
}

func TestWorkspace_EdgeEdits(t *testing.T) {
	ctx := context.Background()
	w := New(memory.New(), WithAutoCompile(true))
	g := seed(t, w)
	greet := g.Nodes[1].ID

	// Reorder: "no" first.
	e := g.Edges[2]
	e.Order = -1
	require.NoError(t, w.UpdateEdge(ctx, "intro", &e))
	assert.Equal(t, []string{"No thanks", "Yes please"}, childTexts(w.Tree("intro"), greet))

	require.NoError(t, w.DeleteEdge(ctx, "intro", e.ID))
	assert.Equal(t, []string{"Yes please"}, childTexts(w.Tree("intro"), greet))
	require.NoError(t, w.DeleteEdge(ctx, "intro", e.ID), "deleting twice is a no-op")

	_, err := w.AddEdge(ctx, "intro", &dialog.Edge{FromNodeID: greet, ToNodeID: g.Nodes[3].ID, Order: 5})
	require.NoError(t, err)
	assert.Equal(t, []string{"Yes please", "No thanks"}, childTexts(w.Tree("intro"), greet))

	_, err = w.AddEdge(ctx, "intro", &dialog.Edge{FromNodeID: g.Nodes[3].ID, ToNodeID: greet})
	assert.ErrorIs(t, err, dialog.ErrCycleDetected)
}

func TestWorkspace_MixedSourcesReported(t *testing.T) {
	ctx := context.Background()
	w := New(memory.New(), WithAutoCompile(true))
	g := seed(t, w)

	id, err := w.AddNode(ctx, "intro", &dialog.Node{Kind: dialog.KindPhrase, Phrase: &dialog.Phrase{Text: "Hmm", Source: dialog.SourceNPC}})
	require.NoError(t, err)
	_, err = w.AddEdge(ctx, "intro", &dialog.Edge{FromNodeID: g.Nodes[1].ID, ToNodeID: id, Order: 2})
	require.NoError(t, err)

	assert.True(t, hasError(w.Messages("intro")))
	assert.Len(t, childTexts(w.Tree("intro"), g.Nodes[1].ID), 3)
}

func TestWorkspace_DeleteNode(t *testing.T) {
	ctx := context.Background()
	w := New(memory.New(), WithAutoCompile(true))
	g := seed(t, w)

	require.NoError(t, w.DeleteNode(ctx, "intro", g.Nodes[2].ID))
	tree := w.Tree("intro")
	assert.Equal(t, []string{"No thanks"}, childTexts(tree, g.Nodes[1].ID))
	_, ok := tree.Lookup(g.Nodes[2].ID)
	assert.False(t, ok)
	assert.False(t, w.Session("intro").Cached(g.Nodes[2].ID))
}

func TestWorkspace_DeleteRootKeepsPreviousTree(t *testing.T) {
	ctx := context.Background()
	w := New(memory.New(), WithAutoCompile(true))
	g := seed(t, w)
	before := w.Tree("intro")

	require.NoError(t, w.DeleteNode(ctx, "intro", g.Nodes[0].ID))
	assert.Same(t, before, w.Tree("intro"))

	msgs := w.Messages("intro")
	require.True(t, hasError(msgs))
	assert.Equal(t, "Root node not found", msgs[len(msgs)-1].Text)
}

func TestWorkspace_Duplicate(t *testing.T) {
	ctx := context.Background()
	w := New(memory.New(), WithAutoCompile(true))
	g := seed(t, w)

	copies, err := w.Duplicate(ctx, "intro", []string{g.Nodes[0].ID, g.Nodes[1].ID, g.Nodes[2].ID})
	require.NoError(t, err)
	require.Len(t, copies, 2, "roots are not duplicated")

	greetCopy := copies[0]
	assert.NotEqual(t, g.Nodes[1].ID, greetCopy.ID)
	assert.Equal(t, g.Nodes[1].Position.X+dialog.DuplicateOffset.X, greetCopy.Position.X)
	assert.False(t, w.Session("intro").Cached(greetCopy.ID))

	edges, err := w.Store().ListEdges(ctx, "intro")
	require.NoError(t, err)
	var internal int
	for _, e := range edges {
		if e.FromNodeID == greetCopy.ID && e.ToNodeID == copies[1].ID {
			internal++
		}
	}
	assert.Equal(t, 1, internal)

	// Linking the copy compiles it as its own node.
	_, err = w.AddEdge(ctx, "intro", &dialog.Edge{FromNodeID: g.Nodes[0].ID, ToNodeID: greetCopy.ID, Order: 1})
	require.NoError(t, err)
	tree := w.Tree("intro")
	orig, _ := tree.Lookup(g.Nodes[1].ID)
	dup, ok := tree.Lookup(greetCopy.ID)
	require.True(t, ok)
	assert.NotEqual(t, orig, dup)
	assert.Equal(t, []string{"Yes please"}, childTexts(tree, greetCopy.ID))
}

func TestWorkspace_ImportExport(t *testing.T) {
	ctx := context.Background()
	w := New(memory.New(), WithAutoCompile(true))
	seed(t, w)
	before := w.Tree("intro")

	_, err := w.Import(ctx, "intro", "xml", []byte(`<nodes></nodes>`))
	assert.ErrorIs(t, err, exchange.ErrEmptyDocument)
	assert.ErrorIs(t, err, ErrInvalidDocument)
	assert.Same(t, before, w.Tree("intro"))

	doc, err := w.Export(ctx, "intro", "hcl")
	require.NoError(t, err)

	// Identities survive the round trip, so the import replaces the graph
	// in place.
	g, err := w.Import(ctx, "intro", "hcl", doc)
	require.NoError(t, err)
	assert.Equal(t, "intro", g.ID)

	tree := w.Tree("intro")
	require.NotNil(t, tree)
	assert.NotSame(t, before, tree)
	assert.Equal(t, before.Len(), tree.Len())
	assert.Equal(t, before.RootNode().SourceID, tree.RootNode().SourceID)

	_, err = w.Export(ctx, "intro", "yaml")
	assert.Error(t, err)
}

func TestWorkspace_DeleteGraph(t *testing.T) {
	ctx := context.Background()
	w := New(memory.New(), WithAutoCompile(true))
	seed(t, w)

	require.NoError(t, w.DeleteGraph(ctx, "intro"))
	assert.Nil(t, w.Tree("intro"))
	_, err := w.GetGraph(ctx, "intro")
	assert.ErrorIs(t, err, dialog.ErrGraphNotFound)
}

func TestWorkspace_ConcurrentCompiles(t *testing.T) {
	ctx := context.Background()
	w := New(memory.New())
	seed(t, w)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := w.Compile(ctx, "intro")
			assert.NoError(t, err)
			assert.True(t, res.Installed)
			_ = w.Tree("intro").Len()
			_ = w.Messages("intro")
		}()
	}
	wg.Wait()
	assert.Equal(t, 4, w.Tree("intro").Len())
}

func TestWorkspace_EditsStayInsideTheirGraph(t *testing.T) {
	ctx := context.Background()
	w := New(memory.New(), WithAutoCompile(true))
	g := seed(t, w)
	other, err := w.SaveGraph(ctx, &dialog.Graph{ID: "other", Nodes: []dialog.Node{{Kind: dialog.KindRoot}}})
	require.NoError(t, err)
	require.NotNil(t, w.Tree("other"))

	// A node of "intro" addressed through "other" is not found there.
	no, err := w.Store().GetNode(ctx, g.Nodes[3].ID)
	require.NoError(t, err)
	no.Phrase.Text = "Hijacked"
	assert.ErrorIs(t, w.UpdateNode(ctx, "other", no), dialog.ErrNodeNotFound)
	stored, err := w.Store().GetNode(ctx, no.ID)
	require.NoError(t, err)
	assert.Equal(t, "No thanks", stored.Phrase.Text)

	require.NoError(t, w.DeleteNode(ctx, "other", no.ID))
	_, err = w.Store().GetNode(ctx, no.ID)
	assert.NoError(t, err, "the node of intro survives")

	e := g.Edges[2]
	e.Order = -1
	assert.ErrorIs(t, w.UpdateEdge(ctx, "other", &e), dialog.ErrEdgeNotFound)
	require.NoError(t, w.DeleteEdge(ctx, "other", e.ID))
	_, err = w.Store().GetEdge(ctx, e.ID)
	assert.NoError(t, err, "the edge of intro survives")

	assert.Equal(t, []string{"Yes please", "No thanks"}, childTexts(w.Tree("intro"), g.Nodes[1].ID))
	assert.Equal(t, 1, w.Tree("other").Len())
	assert.Equal(t, other.Nodes[0].ID, w.Tree("other").RootNode().SourceID)
}
