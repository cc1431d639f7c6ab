package exchange

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"strings"

	"github.com/meikuraledutech/dialog"
)

// XML is the <nodes><node>…</node></nodes> document format.
type XML struct{}

func (XML) Name() string { return "xml" }

type xmlDocument struct {
	XMLName xml.Name  `xml:"nodes"`
	Nodes   []xmlNode `xml:"node"`
}

type xmlNode struct {
	Class      string      `xml:"class"`
	ID         string      `xml:"id"`
	X          float64     `xml:"x,omitempty"`
	Y          float64     `xml:"y,omitempty"`
	Text       string      `xml:"text,omitempty"`
	Source     string      `xml:"source,omitempty"`
	Target     string      `xml:"target,omitempty"`
	Actions    []xmlScript `xml:"action"`
	Predicates []xmlScript `xml:"predicate"`
	Conditions []xmlScript `xml:"condition"`
	Children   []xmlChild  `xml:"child"`
}

type xmlScript struct {
	Params string `xml:"params,attr,omitempty"`
	Source string `xml:",chardata"`
}

type xmlChild struct {
	Order int    `xml:"order,attr"`
	ID    string `xml:",chardata"`
}

// Encode writes one node entry per graph node, in graph order.
func (XML) Encode(g *dialog.Graph) ([]byte, error) {
	children := childrenOf(g)
	doc := xmlDocument{Nodes: make([]xmlNode, 0, len(g.Nodes))}
	for _, n := range g.Nodes {
		xn := xmlNode{
			Class: className(n.Kind),
			ID:    n.ID,
			X:     n.Position.X,
			Y:     n.Position.Y,
		}
		switch {
		case n.Phrase != nil:
			xn.Text = n.Phrase.Text
			xn.Source = string(n.Phrase.Source)
			xn.Actions = toXMLScripts(n.Phrase.Actions)
			xn.Predicates = toXMLScripts(n.Phrase.Predicates)
		case n.ElseIf != nil:
			xn.Conditions = toXMLScripts(n.ElseIf.Conditions)
		case n.SubGraph != nil:
			xn.Target = n.SubGraph.Target
		}
		for _, e := range children[n.ID] {
			xn.Children = append(xn.Children, xmlChild{Order: e.Order, ID: e.ToNodeID})
		}
		doc.Nodes = append(doc.Nodes, xn)
	}

	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	enc := xml.NewEncoder(&buf)
	enc.Indent("", "\t")
	if err := enc.Encode(doc); err != nil {
		return nil, fmt.Errorf("exchange: encode xml: %w", err)
	}
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}

// Decode reads a document. Entries without an id or a class are skipped.
func (XML) Decode(data []byte) (*dialog.Graph, error) {
	var doc xmlDocument
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("exchange: decode xml: %w", err)
	}

	entries := make([]entry, 0, len(doc.Nodes))
	for _, xn := range doc.Nodes {
		id, class := strings.TrimSpace(xn.ID), strings.TrimSpace(xn.Class)
		if id == "" || class == "" {
			continue
		}
		n, err := newNode(id, class)
		if err != nil {
			return nil, fmt.Errorf("exchange: node %q: %w", id, err)
		}
		n.Position = dialog.Position{X: xn.X, Y: xn.Y}
		switch n.Kind {
		case dialog.KindPhrase:
			src, err := dialog.ParseSource(strings.TrimSpace(xn.Source))
			if err != nil {
				return nil, fmt.Errorf("exchange: node %q: %w", id, err)
			}
			n.Phrase.Text = xn.Text
			n.Phrase.Source = src
			n.Phrase.Actions = fromXMLScripts(xn.Actions)
			n.Phrase.Predicates = fromXMLScripts(xn.Predicates)
		case dialog.KindElseIf:
			n.ElseIf.Conditions = fromXMLScripts(xn.Conditions)
		case dialog.KindSubGraph:
			n.SubGraph.Target = strings.TrimSpace(xn.Target)
		}

		e := entry{node: n}
		for _, c := range xn.Children {
			e.children = append(e.children, childRef{id: strings.TrimSpace(c.ID), order: c.Order})
		}
		entries = append(entries, e)
	}
	return assemble(entries)
}

func toXMLScripts(in []dialog.Script) []xmlScript {
	out := make([]xmlScript, 0, len(in))
	for _, s := range in {
		out = append(out, xmlScript{Source: s.Source, Params: strings.Join(s.Params, ",")})
	}
	return out
}

func fromXMLScripts(in []xmlScript) []dialog.Script {
	var out []dialog.Script
	for _, s := range in {
		sc := dialog.Script{Source: strings.TrimSpace(s.Source)}
		if s.Params != "" {
			sc.Params = strings.Split(s.Params, ",")
		}
		out = append(out, sc)
	}
	return out
}
