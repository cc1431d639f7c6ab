package script

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
)

// Predicate is a compiled boolean condition.
type Predicate struct {
	Source string
	Params []string
	// OwnerNode is the identity of the node the predicate belongs to.
	OwnerNode string

	expr hcl.Expression
}

// Eval evaluates the predicate. An unknown or null result is an error.
func (p *Predicate) Eval(ctx *hcl.EvalContext) (bool, error) {
	v, diags := p.expr.Value(ctx)
	if diags.HasErrors() {
		return false, &Error{Source: p.Source, Message: diagMessage(diags)}
	}
	v, err := convert.Convert(v, cty.Bool)
	if err != nil {
		return false, &Error{Source: p.Source, Message: fmt.Sprintf("predicate must evaluate to bool: %s", err)}
	}
	if !v.IsKnown() || v.IsNull() {
		return false, &Error{Source: p.Source, Message: "predicate result is not known"}
	}
	return v.True(), nil
}

// MarshalJSON renders the predicate as its source and resolved parameters.
func (p *Predicate) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Source    string   `json:"source"`
		Params    []string `json:"params,omitempty"`
		OwnerNode string   `json:"owner_node,omitempty"`
	}{p.Source, p.Params, p.OwnerNode})
}

// Action is a compiled side-effecting call.
type Action struct {
	Source   string
	Function string
	Params   []string
	// OwnerNode is the identity of the node the action belongs to.
	OwnerNode string

	expr hcl.Expression
}

// Exec runs the action and returns the call result.
func (a *Action) Exec(ctx *hcl.EvalContext) (cty.Value, error) {
	v, diags := a.expr.Value(ctx)
	if diags.HasErrors() {
		return cty.NilVal, &Error{Source: a.Source, Message: diagMessage(diags)}
	}
	return v, nil
}

// MarshalJSON renders the action as its source and resolved signature.
func (a *Action) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Source    string   `json:"source"`
		Function  string   `json:"function"`
		Params    []string `json:"params,omitempty"`
		OwnerNode string   `json:"owner_node,omitempty"`
	}{a.Source, a.Function, a.Params, a.OwnerNode})
}

// Error is a script compile or evaluation failure.
type Error struct {
	Source  string
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %q", e.Message, e.Source)
}

// IsScriptError reports whether err is a script failure.
func IsScriptError(err error) bool {
	var se *Error
	return errors.As(err, &se)
}

func diagMessage(diags hcl.Diagnostics) string {
	for _, d := range diags {
		if d.Severity != hcl.DiagError {
			continue
		}
		if d.Detail != "" {
			return fmt.Sprintf("%s: %s", d.Summary, d.Detail)
		}
		return d.Summary
	}
	return diags.Error()
}
