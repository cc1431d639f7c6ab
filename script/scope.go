// Package script compiles the scripted predicates and actions attached to
// dialog nodes. Scripts are HCL expressions evaluated with go-cty values;
// compiling one checks every referenced symbol against a Scope and dry-runs
// the expression against signature-only functions, so a script that compiles
// cleanly can only fail at playback because of runtime values.
package script

import (
	"sort"

	"github.com/hashicorp/hcl/v2"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/function"
	"github.com/zclconf/go-cty/cty/function/stdlib"
)

// Scope is the set of symbols a script may reference.
type Scope struct {
	Variables map[string]cty.Value
	Functions map[string]function.Function
}

// NewScope returns an empty scope.
func NewScope() *Scope {
	return &Scope{
		Variables: make(map[string]cty.Value),
		Functions: make(map[string]function.Function),
	}
}

// Declare adds or replaces a variable. Only its type matters at compile time.
func (s *Scope) Declare(name string, v cty.Value) {
	s.Variables[name] = v
}

// DeclareFunc adds or replaces a function.
func (s *Scope) DeclareFunc(name string, f function.Function) {
	s.Functions[name] = f
}

// Clone returns a shallow copy that can be extended independently.
func (s *Scope) Clone() *Scope {
	out := NewScope()
	for k, v := range s.Variables {
		out.Variables[k] = v
	}
	for k, f := range s.Functions {
		out.Functions[k] = f
	}
	return out
}

// VariableNames returns the declared variable names, sorted.
func (s *Scope) VariableNames() []string {
	names := make([]string, 0, len(s.Variables))
	for k := range s.Variables {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// EvalContext builds an evaluation context from the scope. Bindings override
// declared variable values.
func (s *Scope) EvalContext(bindings map[string]cty.Value) *hcl.EvalContext {
	vars := make(map[string]cty.Value, len(s.Variables)+len(bindings))
	for k, v := range s.Variables {
		vars[k] = v
	}
	for k, v := range bindings {
		vars[k] = v
	}
	funcs := make(map[string]function.Function, len(s.Functions))
	for k, f := range s.Functions {
		funcs[k] = f
	}
	return &hcl.EvalContext{Variables: vars, Functions: funcs}
}

// checkContext mirrors the scope with unknown values of the declared types and
// functions that compute return types without running their implementations.
func (s *Scope) checkContext() *hcl.EvalContext {
	vars := make(map[string]cty.Value, len(s.Variables))
	for k, v := range s.Variables {
		vars[k] = cty.UnknownVal(v.Type())
	}
	funcs := make(map[string]function.Function, len(s.Functions))
	for k, f := range s.Functions {
		funcs[k] = signatureOnly(f)
	}
	return &hcl.EvalContext{Variables: vars, Functions: funcs}
}

func signatureOnly(f function.Function) function.Function {
	return function.New(&function.Spec{
		Params:   f.Params(),
		VarParam: f.VarParam(),
		Type: func(args []cty.Value) (cty.Type, error) {
			return f.ReturnTypeForValues(args)
		},
		Impl: func(args []cty.Value, retType cty.Type) (cty.Value, error) {
			return cty.UnknownVal(retType), nil
		},
	})
}

// Character is the shape of the player and npc variables.
var Character = cty.Object(map[string]cty.Type{
	"name": cty.String,
})

// DefaultScope declares the dialog symbols backed by a fresh Blackboard.
func DefaultScope() *Scope {
	return NewBlackboard().Scope()
}

func declareStdlib(s *Scope) {
	s.DeclareFunc("upper", stdlib.UpperFunc)
	s.DeclareFunc("lower", stdlib.LowerFunc)
	s.DeclareFunc("strlen", stdlib.StrlenFunc)
	s.DeclareFunc("min", stdlib.MinFunc)
	s.DeclareFunc("max", stdlib.MaxFunc)
	s.DeclareFunc("abs", stdlib.AbsoluteFunc)
}
