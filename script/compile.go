package script

import (
	"fmt"
	"slices"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/zclconf/go-cty/cty"

	"github.com/meikuraledutech/dialog"
)

// Compiler turns script entries into executable predicates and actions.
// It is safe for concurrent use once constructed.
type Compiler struct {
	scope *Scope
	check *hcl.EvalContext
}

// NewCompiler returns a compiler that resolves symbols against scope. A nil
// scope means DefaultScope.
func NewCompiler(scope *Scope) *Compiler {
	if scope == nil {
		scope = DefaultScope()
	}
	return &Compiler{scope: scope, check: scope.checkContext()}
}

// Scope returns the compiler's symbol scope.
func (c *Compiler) Scope() *Scope { return c.scope }

// CompilePredicate compiles a boolean condition owned by ownerNode. The bool
// result reports that the resolved parameters differ from the entry's, so an
// inspector showing the entry must be refreshed.
func (c *Compiler) CompilePredicate(entry dialog.Script, ownerNode string) (*Predicate, bool, error) {
	expr, err := c.parse(entry.Source, "predicate")
	if err != nil {
		return nil, false, err
	}
	syms := analyze(expr)
	if err := c.resolve(entry.Source, syms); err != nil {
		return nil, false, err
	}

	v, diags := expr.Value(c.check)
	if diags.HasErrors() {
		return nil, false, &Error{Source: entry.Source, Message: diagMessage(diags)}
	}
	if ty := v.Type(); ty != cty.DynamicPseudoType && !ty.Equals(cty.Bool) {
		return nil, false, &Error{
			Source:  entry.Source,
			Message: fmt.Sprintf("predicate must evaluate to bool, got %s", ty.FriendlyName()),
		}
	}

	params := make([]string, 0, len(syms.Variables)+len(syms.Functions))
	params = append(params, syms.Variables...)
	for _, f := range syms.Functions {
		params = append(params, f+"()")
	}

	p := &Predicate{
		Source:    entry.Source,
		Params:    params,
		OwnerNode: ownerNode,
		expr:      expr,
	}
	return p, !slices.Equal(params, entry.Params), nil
}

// CompileAction compiles a side-effecting statement owned by ownerNode. An
// action must be a single function call.
func (c *Compiler) CompileAction(entry dialog.Script, ownerNode string) (*Action, bool, error) {
	expr, err := c.parse(entry.Source, "action")
	if err != nil {
		return nil, false, err
	}
	call, ok := expr.(*hclsyntax.FunctionCallExpr)
	if !ok {
		return nil, false, &Error{Source: entry.Source, Message: "action must be a function call"}
	}
	if err := c.resolve(entry.Source, analyze(expr)); err != nil {
		return nil, false, err
	}
	if _, diags := expr.Value(c.check); diags.HasErrors() {
		return nil, false, &Error{Source: entry.Source, Message: diagMessage(diags)}
	}

	fn := c.scope.Functions[call.Name]
	var params []string
	for _, p := range fn.Params() {
		params = append(params, p.Name)
	}
	if vp := fn.VarParam(); vp != nil {
		params = append(params, "..."+vp.Name)
	}

	a := &Action{
		Source:    entry.Source,
		Function:  call.Name,
		Params:    params,
		OwnerNode: ownerNode,
		expr:      expr,
	}
	return a, !slices.Equal(params, entry.Params), nil
}

func (c *Compiler) parse(src, kind string) (hclsyntax.Expression, error) {
	if strings.TrimSpace(src) == "" {
		return nil, &Error{Source: src, Message: fmt.Sprintf("empty %s", kind)}
	}
	expr, diags := hclsyntax.ParseExpression([]byte(src), kind, hcl.Pos{Line: 1, Column: 1, Byte: 0})
	if diags.HasErrors() {
		return nil, &Error{Source: src, Message: diagMessage(diags)}
	}
	return expr, nil
}

func (c *Compiler) resolve(src string, syms Symbols) error {
	for _, v := range syms.Variables {
		if _, ok := c.scope.Variables[v]; !ok {
			return &Error{Source: src, Message: fmt.Sprintf("undefined variable %q (declared: %s)", v, strings.Join(c.scope.VariableNames(), ", "))}
		}
	}
	for _, f := range syms.Functions {
		if _, ok := c.scope.Functions[f]; !ok {
			return &Error{Source: src, Message: fmt.Sprintf("call to undefined function %q", f)}
		}
	}
	return nil
}
