package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"log/slog"
	"os"

	"github.com/meikuraledutech/dialog"
	"github.com/meikuraledutech/dialog/editor"
	"github.com/meikuraledutech/dialog/internal/ctxlog"
	"github.com/meikuraledutech/dialog/memory"
	"github.com/meikuraledutech/dialog/runtime"
	"github.com/meikuraledutech/dialog/script"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	ctx := ctxlog.WithLogger(context.Background(), logger)

	bb := script.NewBlackboard()
	bb.SetParticipants("Ayla", "Old Fisher")

	// Wire up the in-memory store behind a workspace that compiles on save.
	ws := editor.New(memory.New(),
		editor.WithAutoCompile(true),
		editor.WithScope(bb.Scope()))

	// ── Bulk insert using refs ────────────────────────────────────────
	intro := &dialog.Graph{
		ID: "fisher-intro",
		Nodes: []dialog.Node{
			{Ref: "root", Kind: dialog.KindRoot},
			{Ref: "greet", Kind: dialog.KindPhrase, Phrase: &dialog.Phrase{
				Text:   "Morning. Lost your way?",
				Source: dialog.SourceNPC,
			}},
			{Ref: "ask", Kind: dialog.KindPhrase, Phrase: &dialog.Phrase{
				Text:       "Could I borrow a rod?",
				Source:     dialog.SourcePlayer,
				Predicates: []dialog.Script{{Source: `!has_item("rod")`}},
				Actions:    []dialog.Script{{Source: `give_item("rod", 1)`}},
			}},
			{Ref: "leave", Kind: dialog.KindPhrase, Phrase: &dialog.Phrase{
				Text:   "Just passing by.",
				Source: dialog.SourcePlayer,
			}},
			{Ref: "bye", Kind: dialog.KindPhrase, Phrase: &dialog.Phrase{
				Text:   "Good luck out there.",
				Source: dialog.SourceNPC,
			}},
		},
		Edges: []dialog.Edge{
			{FromNodeRef: "root", ToNodeRef: "greet"},
			{FromNodeRef: "greet", ToNodeRef: "ask", Order: 0},
			{FromNodeRef: "greet", ToNodeRef: "leave", Order: 1},
			// bye is shared by both answers and compiles once.
			{FromNodeRef: "ask", ToNodeRef: "bye"},
			{FromNodeRef: "leave", ToNodeRef: "bye"},
		},
	}
	if _, err := ws.SaveGraph(ctx, intro); err != nil {
		log.Fatalf("save graph: %v", err)
	}

	fmt.Println("compile results:")
	for _, m := range ws.Messages(intro.ID) {
		fmt.Println(" ", m)
	}

	tree := ws.Tree(intro.ID)
	fmt.Printf("\ncompiled tree (%d nodes):\n", tree.Len())
	printJSON(tree)

	// ── Play the dialog once ──────────────────────────────────────────
	fmt.Println("\nplayback:")
	if err := play(tree, bb); err != nil {
		log.Fatalf("play: %v", err)
	}
	fmt.Printf("rods in inventory: %d\n", bb.Items("rod"))

	// ── Granular edit: reword the farewell ────────────────────────────
	g, err := ws.GetGraph(ctx, intro.ID)
	if err != nil {
		log.Fatalf("get graph: %v", err)
	}
	bye := g.Nodes[4]
	bye.Phrase.Text = "Tight lines!"
	if err := ws.UpdateNode(ctx, intro.ID, &bye); err != nil {
		log.Fatalf("update node: %v", err)
	}
	h, _ := ws.Tree(intro.ID).Lookup(bye.ID)
	fmt.Printf("\nrecompiled farewell: %q\n", ws.Tree(intro.ID).Node(h).Phrase.Text)

	// ── Export ────────────────────────────────────────────────────────
	doc, err := ws.Export(ctx, intro.ID, "hcl")
	if err != nil {
		log.Fatalf("export: %v", err)
	}
	fmt.Printf("\nexported document:\n%s", doc)
}

// play follows the first child whose predicates hold, running the actions of
// every phrase on the way.
func play(tree *runtime.Tree, bb *script.Blackboard) error {
	h := tree.Root
	for h != runtime.NoHandle {
		n := tree.Node(h)
		if n.Phrase != nil {
			fmt.Printf("  %s: %s\n", n.Phrase.Source, n.Phrase.Text)
			for _, a := range n.Phrase.Actions {
				if _, err := a.Exec(bb.Context()); err != nil {
					return err
				}
			}
		}
		next := runtime.NoHandle
		for _, c := range tree.Children(h) {
			ok, err := admissible(tree.Node(c), bb)
			if err != nil {
				return err
			}
			if ok {
				next = c
				break
			}
		}
		h = next
	}
	return nil
}

func admissible(n *runtime.Node, bb *script.Blackboard) (bool, error) {
	if n.Phrase == nil {
		return true, nil
	}
	for _, p := range n.Phrase.Predicates {
		ok, err := p.Eval(bb.Context())
		if err != nil || !ok {
			return false, err
		}
	}
	return true, nil
}

func printJSON(v any) {
	out, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(out))
}
