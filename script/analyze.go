package script

import (
	"sort"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
)

// Symbols is the set of names an expression refers to.
type Symbols struct {
	Variables []string
	Functions []string
}

// analyze collects the unique root variable names and called functions of
// expr. Both slices are sorted for deterministic output.
func analyze(expr hcl.Expression) Symbols {
	vars := make(map[string]struct{})
	for _, t := range expr.Variables() {
		vars[t.RootName()] = struct{}{}
	}

	funcs := make(map[string]struct{})
	if syntaxExpr, ok := expr.(hclsyntax.Expression); ok {
		hclsyntax.VisitAll(syntaxExpr, func(n hclsyntax.Node) hcl.Diagnostics {
			if call, ok := n.(*hclsyntax.FunctionCallExpr); ok {
				funcs[call.Name] = struct{}{}
			}
			return nil
		})
	}

	return Symbols{Variables: sortedKeys(vars), Functions: sortedKeys(funcs)}
}

func sortedKeys(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
