// Package formula analyzes the condition and operation strings of agent
// templates before instantiation. Expressions are parsed with the HCL
// expression grammar, which covers the arithmetic and comparison syntax
// templates use, and every root symbol that is not a declared role is
// reported so typos surface as warnings instead of silently surviving
// substitution.
package formula

import (
	"fmt"
	"sort"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
)

// Markers are the functions the instantiator itself understands.
var Markers = []string{"SUM", "AVG", "LIST"}

// Analysis holds the sorted unique symbols and function calls of one expression.
type Analysis struct {
	Symbols   []string
	Functions []string
}

// Analyze parses src as an expression.
func Analyze(src string) (*Analysis, error) {
	expr, diags := hclsyntax.ParseExpression([]byte(src), "expression", hcl.InitialPos)
	if diags.HasErrors() {
		return nil, fmt.Errorf("cannot parse %q: %s", src, diags.Error())
	}

	symbols := make(map[string]struct{})
	for _, traversal := range expr.Variables() {
		symbols[traversal.RootName()] = struct{}{}
	}
	functions := make(map[string]struct{})
	collectCalls(expr, functions)

	return &Analysis{Symbols: sortedKeys(symbols), Functions: sortedKeys(functions)}, nil
}

// Finding is one unknown symbol in one template expression.
type Finding struct {
	Path   string
	Expr   string
	Symbol string
}

func (f Finding) String() string {
	return fmt.Sprintf("%s: %q references unknown symbol %s", f.Path, f.Expr, f.Symbol)
}

// Lint walks the expression fields of tmpl and reports root symbols that are
// not in known. Expressions that do not parse are reported with an empty Symbol.
func Lint(tmpl any, fields []string, known []string) []Finding {
	fieldSet := toSet(fields)
	knownSet := toSet(known)

	var findings []Finding
	var visit func(v any, path string, expr bool)
	visit = func(v any, path string, expr bool) {
		switch t := v.(type) {
		case map[string]any:
			keys := make([]string, 0, len(t))
			for k := range t {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, k := range keys {
				_, isExpr := fieldSet[k]
				visit(t[k], joinPath(path, k), expr || isExpr)
			}
		case []any:
			for i, child := range t {
				visit(child, fmt.Sprintf("%s[%d]", path, i), expr)
			}
		case string:
			if !expr || strings.TrimSpace(t) == "" {
				return
			}
			a, err := Analyze(t)
			if err != nil {
				findings = append(findings, Finding{Path: path, Expr: t})
				return
			}
			for _, s := range a.Symbols {
				if _, ok := knownSet[s]; !ok {
					findings = append(findings, Finding{Path: path, Expr: t, Symbol: s})
				}
			}
		}
	}
	visit(tmpl, "", false)
	return findings
}

// collectCalls walks the syntax tree for function calls, which Variables()
// does not report.
func collectCalls(expr hclsyntax.Expression, functions map[string]struct{}) {
	if expr == nil {
		return
	}
	switch e := expr.(type) {
	case *hclsyntax.FunctionCallExpr:
		functions[e.Name] = struct{}{}
		for _, arg := range e.Args {
			collectCalls(arg, functions)
		}
	case *hclsyntax.BinaryOpExpr:
		collectCalls(e.LHS, functions)
		collectCalls(e.RHS, functions)
	case *hclsyntax.ConditionalExpr:
		collectCalls(e.Condition, functions)
		collectCalls(e.TrueResult, functions)
		collectCalls(e.FalseResult, functions)
	case *hclsyntax.UnaryOpExpr:
		collectCalls(e.Val, functions)
	case *hclsyntax.TupleConsExpr:
		for _, item := range e.Exprs {
			collectCalls(item, functions)
		}
	case *hclsyntax.IndexExpr:
		collectCalls(e.Collection, functions)
		collectCalls(e.Key, functions)
	case *hclsyntax.ParenthesesExpr:
		collectCalls(e.Expression, functions)
	}
}

func sortedKeys(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func toSet(items []string) map[string]struct{} {
	s := make(map[string]struct{}, len(items))
	for _, i := range items {
		s[i] = struct{}{}
	}
	return s
}

func joinPath(path, key string) string {
	if path == "" {
		return key
	}
	return path + "." + key
}
