package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meikuraledutech/dialog"
	"github.com/meikuraledutech/dialog/internal/storetest"
)

func TestStore(t *testing.T) {
	storetest.Run(t, New())
}

func TestStore_EdgesStayInsideTheirGraph(t *testing.T) {
	ctx := context.Background()
	s := New()

	a, err := s.AddNode(ctx, "one", &dialog.Node{Kind: dialog.KindRoot})
	require.NoError(t, err)
	b, err := s.AddNode(ctx, "two", &dialog.Node{Kind: dialog.KindPhrase, Phrase: &dialog.Phrase{Text: "x"}})
	require.NoError(t, err)

	_, err = s.AddEdge(ctx, "one", &dialog.Edge{FromNodeID: a, ToNodeID: b})
	assert.ErrorIs(t, err, dialog.ErrNodeNotFound)
}

func TestStore_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	s := New()

	id, err := s.AddNode(ctx, "g", &dialog.Node{Kind: dialog.KindPhrase, Phrase: &dialog.Phrase{Text: "before"}})
	require.NoError(t, err)

	n, err := s.GetNode(ctx, id)
	require.NoError(t, err)
	n.Phrase.Text = "after"

	again, err := s.GetNode(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "before", again.Phrase.Text)
}

func TestStore_RejectsInvalidNodes(t *testing.T) {
	_, err := New().AddNode(context.Background(), "g", &dialog.Node{Kind: dialog.KindPhrase})
	assert.Error(t, err)
}
