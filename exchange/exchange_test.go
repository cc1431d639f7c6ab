package exchange

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meikuraledutech/dialog"
)

const forwardRefs = `<?xml version="1.0" encoding="UTF-8"?>
<nodes>
	<node>
		<class>Root</class>
		<id>root</id>
		<child order="0">hello</child>
	</node>
	<node>
		<id>orphan</id>
	</node>
	<node>
		<class>Phrase</class>
		<id>hello</id>
		<text>Hello, traveller</text>
		<source>NPC</source>
		<predicate params="has_item()">has_item("map")</predicate>
		<action>give_item("coin", 1)</action>
		<child order="1">later</child>
		<child order="0">sub</child>
	</node>
	<node>
		<class>SubGraphRef</class>
		<id>sub</id>
		<target>epilogue</target>
	</node>
	<node>
		<class>ElseIf</class>
		<id>later</id>
		<condition>vars.mood == "happy"</condition>
	</node>
</nodes>`

func TestXML_DecodeResolvesForwardReferences(t *testing.T) {
	g, err := XML{}.Decode([]byte(forwardRefs))
	require.NoError(t, err)

	require.Len(t, g.Nodes, 4, "the entry without class is skipped")
	idx := dialog.NewIndex(g)

	hello, ok := idx.Node("hello")
	require.True(t, ok)
	assert.Equal(t, dialog.KindPhrase, hello.Kind)
	assert.Equal(t, "Hello, traveller", hello.Phrase.Text)
	assert.Equal(t, dialog.SourceNPC, hello.Phrase.Source)
	require.Len(t, hello.Phrase.Predicates, 1)
	assert.Equal(t, `has_item("map")`, hello.Phrase.Predicates[0].Source)
	assert.Equal(t, []string{"has_item()"}, hello.Phrase.Predicates[0].Params)
	assert.Len(t, hello.Phrase.Actions, 1)

	assert.Equal(t, []string{"hello"}, idx.ChildIDs("root"))
	assert.Equal(t, []string{"sub", "later"}, idx.ChildIDs("hello"))

	sub, _ := idx.Node("sub")
	assert.Equal(t, "epilogue", sub.SubGraph.Target)
	later, _ := idx.Node("later")
	assert.Len(t, later.ElseIf.Conditions, 1)
}

func TestXML_DecodeErrors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want error
	}{
		{"empty", `<nodes></nodes>`, ErrEmptyDocument},
		{"only incomplete entries", `<nodes><node><id>a</id></node></nodes>`, ErrEmptyDocument},
		{"unknown child", `<nodes><node><class>Root</class><id>r</id><child>ghost</child></node></nodes>`, dialog.ErrNodeNotFound},
		{"cycle", `<nodes>
			<node><class>Phrase</class><id>a</id><child>b</child></node>
			<node><class>Phrase</class><id>b</id><child>a</child></node>
		</nodes>`, dialog.ErrCycleDetected},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := XML{}.Decode([]byte(tt.doc))
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.want), err)
		})
	}

	_, err := XML{}.Decode([]byte(`<nodes><node><class>Choice</class><id>a</id></node></nodes>`))
	assert.ErrorContains(t, err, "unknown node kind")

	_, err = XML{}.Decode([]byte(`not xml`))
	assert.Error(t, err)
}

func TestXML_EncodeKeepsGraphOrder(t *testing.T) {
	g, err := XML{}.Decode([]byte(forwardRefs))
	require.NoError(t, err)

	out, err := XML{}.Encode(g)
	require.NoError(t, err)

	again, err := XML{}.Decode(out)
	require.NoError(t, err)

	var ids []string
	for _, n := range again.Nodes {
		ids = append(ids, n.ID)
	}
	assert.Equal(t, []string{"root", "hello", "sub", "later"}, ids)
	assert.Equal(t, []string{"sub", "later"}, dialog.NewIndex(again).ChildIDs("hello"))
	assert.Contains(t, string(out), "<class>SubGraphRef</class>")
}

func TestHCL_EncodeDecode(t *testing.T) {
	g, err := XML{}.Decode([]byte(forwardRefs))
	require.NoError(t, err)
	g.Nodes[1].Position = dialog.Position{X: 120, Y: 40}

	out, err := HCL{}.Encode(g)
	require.NoError(t, err)
	assert.Contains(t, string(out), `node "Phrase" "hello"`)

	back, err := HCL{}.Decode(out)
	require.NoError(t, err)
	require.Len(t, back.Nodes, len(g.Nodes))

	idx := dialog.NewIndex(back)
	hello, _ := idx.Node("hello")
	assert.Equal(t, g.Nodes[1].Phrase.Text, hello.Phrase.Text)
	assert.Equal(t, dialog.Position{X: 120, Y: 40}, hello.Position)
	assert.Equal(t, []string{"has_item()"}, hello.Phrase.Predicates[0].Params)
	assert.Equal(t, []string{"sub", "later"}, idx.ChildIDs("hello"))
}

func TestHCL_DecodeErrors(t *testing.T) {
	_, err := HCL{}.Decode([]byte(``))
	assert.ErrorIs(t, err, ErrEmptyDocument)

	_, err = HCL{}.Decode([]byte(`node "Phrase" {}`))
	assert.Error(t, err)
}

func TestForFormat(t *testing.T) {
	c, err := ForFormat(".XML")
	require.NoError(t, err)
	assert.Equal(t, "xml", c.Name())

	c, err = ForFormat("hcl")
	require.NoError(t, err)
	assert.Equal(t, "hcl", c.Name())

	_, err = ForFormat("yaml")
	assert.ErrorIs(t, err, ErrUnknownFormat)
}
