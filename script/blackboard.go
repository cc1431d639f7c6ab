package script

import (
	"sync"

	"github.com/hashicorp/hcl/v2"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/function"
	"github.com/zclconf/go-cty/cty/gocty"
)

// Blackboard is the mutable game state dialog scripts read and write during
// playback: the inventory, dialog variables, quest states and emitted events.
type Blackboard struct {
	mu     sync.Mutex
	player string
	npc    string
	items  map[string]int
	vars   map[string]string
	quests map[string]string
	events []string
}

// NewBlackboard returns an empty blackboard.
func NewBlackboard() *Blackboard {
	return &Blackboard{
		items:  make(map[string]int),
		vars:   make(map[string]string),
		quests: make(map[string]string),
	}
}

// SetParticipants names the player and the npc of the conversation.
func (b *Blackboard) SetParticipants(player, npc string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.player, b.npc = player, npc
}

// Items returns the count of an inventory item.
func (b *Blackboard) Items(name string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.items[name]
}

// Var returns a dialog variable.
func (b *Blackboard) Var(name string) string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.vars[name]
}

// Quest returns the state of a quest.
func (b *Blackboard) Quest(name string) string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.quests[name]
}

// Events returns the emitted events in order.
func (b *Blackboard) Events() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.events...)
}

// Variables snapshots the blackboard as script variables.
func (b *Blackboard) Variables() map[string]cty.Value {
	b.mu.Lock()
	defer b.mu.Unlock()

	vars := cty.MapValEmpty(cty.String)
	if len(b.vars) > 0 {
		m := make(map[string]cty.Value, len(b.vars))
		for k, v := range b.vars {
			m[k] = cty.StringVal(v)
		}
		vars = cty.MapVal(m)
	}
	return map[string]cty.Value{
		"player": cty.ObjectVal(map[string]cty.Value{"name": cty.StringVal(b.player)}),
		"npc":    cty.ObjectVal(map[string]cty.Value{"name": cty.StringVal(b.npc)}),
		"vars":   vars,
	}
}

// Scope returns a scope whose functions act on this blackboard.
func (b *Blackboard) Scope() *Scope {
	s := NewScope()
	s.Declare("player", cty.UnknownVal(Character))
	s.Declare("npc", cty.UnknownVal(Character))
	s.Declare("vars", cty.UnknownVal(cty.Map(cty.String)))

	s.DeclareFunc("has_item", function.New(&function.Spec{
		Params: []function.Parameter{{Name: "item", Type: cty.String}},
		Type:   function.StaticReturnType(cty.Bool),
		Impl: func(args []cty.Value, _ cty.Type) (cty.Value, error) {
			return cty.BoolVal(b.Items(args[0].AsString()) > 0), nil
		},
	}))
	s.DeclareFunc("give_item", function.New(&function.Spec{
		Params: []function.Parameter{
			{Name: "item", Type: cty.String},
			{Name: "count", Type: cty.Number},
		},
		Type: function.StaticReturnType(cty.Number),
		Impl: func(args []cty.Value, _ cty.Type) (cty.Value, error) {
			var n int
			if err := gocty.FromCtyValue(args[1], &n); err != nil {
				return cty.NilVal, function.NewArgError(1, err)
			}
			b.mu.Lock()
			defer b.mu.Unlock()
			b.items[args[0].AsString()] += n
			return cty.NumberIntVal(int64(b.items[args[0].AsString()])), nil
		},
	}))
	s.DeclareFunc("take_item", function.New(&function.Spec{
		Params: []function.Parameter{
			{Name: "item", Type: cty.String},
			{Name: "count", Type: cty.Number},
		},
		Type: function.StaticReturnType(cty.Bool),
		Impl: func(args []cty.Value, _ cty.Type) (cty.Value, error) {
			var n int
			if err := gocty.FromCtyValue(args[1], &n); err != nil {
				return cty.NilVal, function.NewArgError(1, err)
			}
			b.mu.Lock()
			defer b.mu.Unlock()
			name := args[0].AsString()
			if b.items[name] < n {
				return cty.False, nil
			}
			b.items[name] -= n
			return cty.True, nil
		},
	}))
	s.DeclareFunc("get_var", function.New(&function.Spec{
		Params: []function.Parameter{{Name: "name", Type: cty.String}},
		Type:   function.StaticReturnType(cty.String),
		Impl: func(args []cty.Value, _ cty.Type) (cty.Value, error) {
			return cty.StringVal(b.Var(args[0].AsString())), nil
		},
	}))
	s.DeclareFunc("set_var", function.New(&function.Spec{
		Params: []function.Parameter{
			{Name: "name", Type: cty.String},
			{Name: "value", Type: cty.String},
		},
		Type: function.StaticReturnType(cty.String),
		Impl: func(args []cty.Value, _ cty.Type) (cty.Value, error) {
			b.mu.Lock()
			defer b.mu.Unlock()
			b.vars[args[0].AsString()] = args[1].AsString()
			return args[1], nil
		},
	}))
	s.DeclareFunc("quest_state", function.New(&function.Spec{
		Params: []function.Parameter{{Name: "quest", Type: cty.String}},
		Type:   function.StaticReturnType(cty.String),
		Impl: func(args []cty.Value, _ cty.Type) (cty.Value, error) {
			return cty.StringVal(b.Quest(args[0].AsString())), nil
		},
	}))
	s.DeclareFunc("set_quest_state", function.New(&function.Spec{
		Params: []function.Parameter{
			{Name: "quest", Type: cty.String},
			{Name: "state", Type: cty.String},
		},
		Type: function.StaticReturnType(cty.String),
		Impl: func(args []cty.Value, _ cty.Type) (cty.Value, error) {
			b.mu.Lock()
			defer b.mu.Unlock()
			b.quests[args[0].AsString()] = args[1].AsString()
			return args[1], nil
		},
	}))
	s.DeclareFunc("emit", function.New(&function.Spec{
		Params: []function.Parameter{{Name: "event", Type: cty.String}},
		Type:   function.StaticReturnType(cty.String),
		Impl: func(args []cty.Value, _ cty.Type) (cty.Value, error) {
			b.mu.Lock()
			defer b.mu.Unlock()
			b.events = append(b.events, args[0].AsString())
			return args[0], nil
		},
	}))

	declareStdlib(s)
	return s
}

// Context returns an evaluation context bound to the current blackboard state.
func (b *Blackboard) Context() *hcl.EvalContext {
	return b.Scope().EvalContext(b.Variables())
}
