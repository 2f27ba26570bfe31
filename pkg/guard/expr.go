package guard

import (
	"fmt"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/getmockd/rxmux/pkg/flow"
)

// Env is the environment expressions are evaluated against.
type Env struct {
	Method  string            `expr:"method"`
	Path    string            `expr:"path"`
	Params  map[string]string `expr:"params"`
	Query   map[string]string `expr:"query"`
	Headers map[string]string `expr:"headers"`
	Ext     map[string]any    `expr:"ext"`
}

// EnvOf builds the expression environment of a packet. Only the first value
// of repeated query params and headers is kept.
func EnvOf(p *flow.Packet) Env {
	query := make(map[string]string)
	for k, v := range p.Req.URL.Query() {
		if len(v) > 0 {
			query[k] = v[0]
		}
	}
	headers := make(map[string]string)
	for k, v := range p.Req.Header {
		if len(v) > 0 {
			headers[k] = v[0]
		}
	}
	return Env{
		Method:  p.Req.Method,
		Path:    p.Req.URL.Path,
		Params:  p.Req.Params(),
		Query:   query,
		Headers: headers,
		Ext:     p.Ext().Snapshot(),
	}
}

// Expr compiles a boolean expr-lang expression into a predicate, e.g.
// `params.id != "0" && query.debug != "true"`. Header names are canonical
// (headers["X-Api-Key"]).
func Expr(src string) (flow.Predicate, error) {
	program, err := expr.Compile(src, expr.Env(Env{}), expr.AsBool())
	if err != nil {
		return nil, fmt.Errorf("compile %q: %w", src, err)
	}
	return exprPredicate(src, program), nil
}

// MustExpr is Expr that panics on a compile error.
func MustExpr(src string) flow.Predicate {
	pred, err := Expr(src)
	if err != nil {
		panic(err)
	}
	return pred
}

func exprPredicate(src string, program *vm.Program) flow.Predicate {
	return func(p *flow.Packet) (bool, error) {
		out, err := expr.Run(program, EnvOf(p))
		if err != nil {
			return false, fmt.Errorf("eval %q: %w", src, err)
		}
		ok, _ := out.(bool)
		return ok, nil
	}
}
