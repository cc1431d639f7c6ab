package dialog

import "fmt"

// Kind is the behavioral category of a graph node.
type Kind string

const (
	KindRoot     Kind = "root"
	KindPhrase   Kind = "phrase"
	KindElseIf   Kind = "else_if"
	KindSubGraph Kind = "sub_graph"
)

// Kinds lists every supported kind in a stable order.
var Kinds = []Kind{KindRoot, KindPhrase, KindElseIf, KindSubGraph}

// Valid reports whether k is one of the known kinds.
func (k Kind) Valid() bool {
	switch k {
	case KindRoot, KindPhrase, KindElseIf, KindSubGraph:
		return true
	}
	return false
}

// ParseKind accepts both the wire form ("else_if") and the class names used by
// exported documents ("ElseIf", "SubGraphRef").
func ParseKind(s string) (Kind, error) {
	switch s {
	case "root", "Root":
		return KindRoot, nil
	case "phrase", "Phrase":
		return KindPhrase, nil
	case "else_if", "ElseIf":
		return KindElseIf, nil
	case "sub_graph", "SubGraph", "SubGraphRef":
		return KindSubGraph, nil
	}
	return "", fmt.Errorf("dialog: unknown node kind %q", s)
}

// Source is the speaker of a phrase.
type Source string

const (
	SourceNPC    Source = "npc"
	SourcePlayer Source = "player"
)

// ParseSource maps a speaker name to a Source. Empty means NPC.
func ParseSource(s string) (Source, error) {
	switch s {
	case "", "npc", "NPC":
		return SourceNPC, nil
	case "player", "Player":
		return SourcePlayer, nil
	}
	return "", fmt.Errorf("dialog: unknown phrase source %q", s)
}

// Graph is the editable graph of one dialog asset.
type Graph struct {
	ID    string `json:"id"`
	Nodes []Node `json:"nodes"`
	Edges []Edge `json:"edges"`
}

// Position is the editor layout coordinate. The compiler ignores it.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Node represents a vertex in the dialog graph.
// Ref is a temporary key used only during SaveGraph for edge wiring; it is never persisted.
// Exactly one of Phrase, ElseIf and SubGraph is set, matching Kind; root nodes carry none.
type Node struct {
	ID       string    `json:"id,omitempty"`
	Ref      string    `json:"ref,omitempty"`
	Kind     Kind      `json:"kind"`
	Position Position  `json:"position"`
	Phrase   *Phrase   `json:"phrase,omitempty"`
	ElseIf   *ElseIf   `json:"else_if,omitempty"`
	SubGraph *SubGraph `json:"sub_graph,omitempty"`
}

// Phrase is the payload of a phrase node.
type Phrase struct {
	Text       string   `json:"text"`
	Source     Source   `json:"source"`
	Actions    []Script `json:"actions,omitempty"`
	Predicates []Script `json:"predicates,omitempty"`
}

// ElseIf is the payload of a branching node.
type ElseIf struct {
	Conditions []Script `json:"conditions,omitempty"`
}

// SubGraph references another dialog asset to splice in.
type SubGraph struct {
	Target string `json:"target"`
}

// Script is a scripted predicate or action attached to a node.
// Params is the resolved signature last reported by the compiler.
type Script struct {
	Source string   `json:"source"`
	Params []string `json:"params,omitempty"`
}

// Edge is an ordered parent → child link.
// FromNodeRef / ToNodeRef are temporary keys used only during SaveGraph; they are never persisted.
type Edge struct {
	ID          string `json:"id,omitempty"`
	FromNodeID  string `json:"from_node_id,omitempty"`
	ToNodeID    string `json:"to_node_id,omitempty"`
	FromNodeRef string `json:"from_node_ref,omitempty"`
	ToNodeRef   string `json:"to_node_ref,omitempty"`
	Order       int    `json:"order"`
}

// Validate checks that the payload matches the kind and rewrites the phrase
// speaker to its canonical spelling.
func (n *Node) Validate() error {
	if !n.Kind.Valid() {
		return fmt.Errorf("%w: node %s: unknown kind %q", ErrInvalidNode, n.ID, n.Kind)
	}
	switch n.Kind {
	case KindPhrase:
		if n.Phrase == nil {
			return fmt.Errorf("%w: phrase node %s has no phrase data", ErrInvalidNode, n.ID)
		}
		src, err := ParseSource(string(n.Phrase.Source))
		if err != nil {
			return fmt.Errorf("%w: node %s: %v", ErrInvalidNode, n.ID, err)
		}
		n.Phrase.Source = src
	case KindElseIf:
		if n.ElseIf == nil {
			return fmt.Errorf("%w: else-if node %s has no conditions", ErrInvalidNode, n.ID)
		}
	case KindSubGraph:
		if n.SubGraph == nil {
			return fmt.Errorf("%w: sub-graph node %s has no target", ErrInvalidNode, n.ID)
		}
	}
	return nil
}

// Label is a short human description used in diagnostics.
func (n *Node) Label() string {
	if n.Phrase != nil && n.Phrase.Text != "" {
		return n.Phrase.Text
	}
	return fmt.Sprintf("%s %s", n.Kind, n.ID)
}

// Clone returns a deep copy of the node.
func (n Node) Clone() Node {
	out := n
	if n.Phrase != nil {
		p := *n.Phrase
		p.Actions = cloneScripts(n.Phrase.Actions)
		p.Predicates = cloneScripts(n.Phrase.Predicates)
		out.Phrase = &p
	}
	if n.ElseIf != nil {
		e := ElseIf{Conditions: cloneScripts(n.ElseIf.Conditions)}
		out.ElseIf = &e
	}
	if n.SubGraph != nil {
		s := *n.SubGraph
		out.SubGraph = &s
	}
	return out
}

func cloneScripts(in []Script) []Script {
	if in == nil {
		return nil
	}
	out := make([]Script, len(in))
	for i, s := range in {
		out[i] = Script{Source: s.Source, Params: append([]string(nil), s.Params...)}
	}
	return out
}
