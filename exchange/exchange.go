// Package exchange reads and writes dialog graphs as text documents.
//
// Every format lists one entry per node carrying its class, its identity
// and its kind fields. Children are referenced by identity, so an entry may
// name a child whose own entry comes later in the document.
package exchange

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/meikuraledutech/dialog"
)

// ErrEmptyDocument is returned when a document holds no usable node entry.
var ErrEmptyDocument = errors.New("exchange: document has no nodes")

// ErrUnknownFormat is returned by ForFormat for formats without a codec.
var ErrUnknownFormat = errors.New("exchange: unknown format")

// Codec converts between a graph and one document format.
type Codec interface {
	Name() string
	Encode(g *dialog.Graph) ([]byte, error)
	Decode(data []byte) (*dialog.Graph, error)
}

// ForFormat returns the codec registered under name.
func ForFormat(name string) (Codec, error) {
	switch strings.ToLower(strings.TrimPrefix(name, ".")) {
	case "xml":
		return XML{}, nil
	case "hcl":
		return HCL{}, nil
	}
	return nil, fmt.Errorf("%w %q", ErrUnknownFormat, name)
}

// className is the class tag written for k.
func className(k dialog.Kind) string {
	switch k {
	case dialog.KindRoot:
		return "Root"
	case dialog.KindPhrase:
		return "Phrase"
	case dialog.KindElseIf:
		return "ElseIf"
	case dialog.KindSubGraph:
		return "SubGraphRef"
	}
	return string(k)
}

type childRef struct {
	id    string
	order int
}

// entry is one decoded node before its children are linked.
type entry struct {
	node     dialog.Node
	children []childRef
}

// assemble links the decoded entries into a graph. All entries exist before
// any child reference is resolved.
func assemble(entries []entry) (*dialog.Graph, error) {
	if len(entries) == 0 {
		return nil, ErrEmptyDocument
	}

	g := &dialog.Graph{Nodes: make([]dialog.Node, 0, len(entries))}
	byID := make(map[string]bool, len(entries))
	for _, e := range entries {
		if byID[e.node.ID] {
			return nil, fmt.Errorf("exchange: duplicate node id %q", e.node.ID)
		}
		byID[e.node.ID] = true
		g.Nodes = append(g.Nodes, e.node)
	}

	for _, e := range entries {
		for _, c := range e.children {
			if !byID[c.id] {
				return nil, fmt.Errorf("exchange: node %q: child %q: %w", e.node.ID, c.id, dialog.ErrNodeNotFound)
			}
			g.Edges = append(g.Edges, dialog.Edge{
				ID:         uuid.NewString(),
				FromNodeID: e.node.ID,
				ToNodeID:   c.id,
				Order:      c.order,
			})
		}
	}

	if err := dialog.ValidateAcyclic(g.Nodes, g.Edges); err != nil {
		return nil, fmt.Errorf("exchange: %w", err)
	}
	return g, nil
}

// newNode builds a node of the given class with an empty kind payload.
func newNode(id, class string) (dialog.Node, error) {
	kind, err := dialog.ParseKind(class)
	if err != nil {
		return dialog.Node{}, err
	}
	n := dialog.Node{ID: id, Kind: kind}
	switch kind {
	case dialog.KindPhrase:
		n.Phrase = &dialog.Phrase{Source: dialog.SourceNPC}
	case dialog.KindElseIf:
		n.ElseIf = &dialog.ElseIf{}
	case dialog.KindSubGraph:
		n.SubGraph = &dialog.SubGraph{}
	}
	return n, nil
}

// childrenOf groups the edges by parent in graph order.
func childrenOf(g *dialog.Graph) map[string][]dialog.Edge {
	out := make(map[string][]dialog.Edge)
	for _, e := range g.Edges {
		out[e.FromNodeID] = append(out[e.FromNodeID], e)
	}
	return out
}
