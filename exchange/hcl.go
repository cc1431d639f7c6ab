package exchange

import (
	"fmt"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/hashicorp/hcl/v2/hclwrite"
	"github.com/zclconf/go-cty/cty"

	"github.com/meikuraledutech/dialog"
)

// HCL is the block document format:
//
//	node "Phrase" "<id>" {
//	  text   = "Hello"
//	  source = "npc"
//	  predicate {
//	    source = "has_item(\"key\")"
//	  }
//	  child "<id>" {
//	    order = 0
//	  }
//	}
type HCL struct{}

func (HCL) Name() string { return "hcl" }

type hclDocument struct {
	Nodes []*hclNode `hcl:"node,block"`
}

type hclNode struct {
	Class      string       `hcl:"class,label"`
	ID         string       `hcl:"id,label"`
	X          float64      `hcl:"x,optional"`
	Y          float64      `hcl:"y,optional"`
	Text       string       `hcl:"text,optional"`
	Source     string       `hcl:"source,optional"`
	Target     string       `hcl:"target,optional"`
	Actions    []*hclScript `hcl:"action,block"`
	Predicates []*hclScript `hcl:"predicate,block"`
	Conditions []*hclScript `hcl:"condition,block"`
	Children   []*hclChild  `hcl:"child,block"`
}

type hclScript struct {
	Source string   `hcl:"source"`
	Params []string `hcl:"params,optional"`
}

type hclChild struct {
	ID    string `hcl:"id,label"`
	Order int    `hcl:"order,optional"`
}

// Encode writes one node block per graph node, in graph order.
func (HCL) Encode(g *dialog.Graph) ([]byte, error) {
	children := childrenOf(g)
	f := hclwrite.NewEmptyFile()
	root := f.Body()

	for i, n := range g.Nodes {
		if i > 0 {
			root.AppendNewline()
		}
		body := root.AppendNewBlock("node", []string{className(n.Kind), n.ID}).Body()
		if n.Position.X != 0 || n.Position.Y != 0 {
			body.SetAttributeValue("x", cty.NumberFloatVal(n.Position.X))
			body.SetAttributeValue("y", cty.NumberFloatVal(n.Position.Y))
		}
		switch {
		case n.Phrase != nil:
			body.SetAttributeValue("text", cty.StringVal(n.Phrase.Text))
			body.SetAttributeValue("source", cty.StringVal(string(n.Phrase.Source)))
			appendScripts(body, "action", n.Phrase.Actions)
			appendScripts(body, "predicate", n.Phrase.Predicates)
		case n.ElseIf != nil:
			appendScripts(body, "condition", n.ElseIf.Conditions)
		case n.SubGraph != nil:
			body.SetAttributeValue("target", cty.StringVal(n.SubGraph.Target))
		}
		for _, e := range children[n.ID] {
			child := body.AppendNewBlock("child", []string{e.ToNodeID}).Body()
			child.SetAttributeValue("order", cty.NumberIntVal(int64(e.Order)))
		}
	}
	return f.Bytes(), nil
}

func appendScripts(body *hclwrite.Body, name string, scripts []dialog.Script) {
	for _, s := range scripts {
		b := body.AppendNewBlock(name, nil).Body()
		b.SetAttributeValue("source", cty.StringVal(s.Source))
		if len(s.Params) > 0 {
			vals := make([]cty.Value, 0, len(s.Params))
			for _, p := range s.Params {
				vals = append(vals, cty.StringVal(p))
			}
			b.SetAttributeValue("params", cty.ListVal(vals))
		}
	}
}

// Decode reads a document of node blocks.
func (HCL) Decode(data []byte) (*dialog.Graph, error) {
	file, diags := hclparse.NewParser().ParseHCL(data, "dialog.hcl")
	if diags.HasErrors() {
		return nil, fmt.Errorf("exchange: parse hcl: %w", diags)
	}
	var doc hclDocument
	if diags := gohcl.DecodeBody(file.Body, nil, &doc); diags.HasErrors() {
		return nil, fmt.Errorf("exchange: decode hcl: %w", diags)
	}

	entries := make([]entry, 0, len(doc.Nodes))
	for _, hn := range doc.Nodes {
		n, err := newNode(hn.ID, hn.Class)
		if err != nil {
			return nil, fmt.Errorf("exchange: node %q: %w", hn.ID, err)
		}
		n.Position = dialog.Position{X: hn.X, Y: hn.Y}
		switch n.Kind {
		case dialog.KindPhrase:
			src, err := dialog.ParseSource(hn.Source)
			if err != nil {
				return nil, fmt.Errorf("exchange: node %q: %w", hn.ID, err)
			}
			n.Phrase.Text = hn.Text
			n.Phrase.Source = src
			n.Phrase.Actions = fromHCLScripts(hn.Actions)
			n.Phrase.Predicates = fromHCLScripts(hn.Predicates)
		case dialog.KindElseIf:
			n.ElseIf.Conditions = fromHCLScripts(hn.Conditions)
		case dialog.KindSubGraph:
			n.SubGraph.Target = hn.Target
		}

		e := entry{node: n}
		for _, c := range hn.Children {
			e.children = append(e.children, childRef{id: c.ID, order: c.Order})
		}
		entries = append(entries, e)
	}
	return assemble(entries)
}

func fromHCLScripts(in []*hclScript) []dialog.Script {
	var out []dialog.Script
	for _, s := range in {
		out = append(out, dialog.Script{Source: s.Source, Params: s.Params})
	}
	return out
}
