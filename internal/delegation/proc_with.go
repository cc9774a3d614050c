package delegation

import "github.com/roach88/delegation/internal/ir"

// processWith rewrites With({name: value, ...}, body). Each binding is
// rewritten and materialized on its own; a delegable table bound to a name
// is held locally and therefore limited like any other local copy. The body
// is rewritten with the bindings in scope and stays inside the With.
func processWith(r *rewriter, call *ir.Call, ctx Context) *RetVal {
	rec, ok1 := call.Arg(0).(*ir.Record)
	body, ok2 := call.Arg(1).(*ir.Lambda)
	if len(call.Args) != 2 || !ok1 || !ok2 {
		return r.visitOther(call, ctx)
	}

	values := make([]ir.Node, len(rec.Fields))
	for i, f := range rec.Fields {
		rv := r.visit(f.Value, ctx)
		if rv.IsDelegating() && !rv.IsBounded() {
			r.warn(Warning{Key: WarnRowLimit, Span: call.Span, Args: []any{call.Func, rv.MaxRows()}})
		}
		values[i] = r.materialize(rv)
	}
	newRec := ir.WithChildren(rec, values)

	inner := r.materialize(r.visit(body.Body, ctx.WithBindings(body.Scope, nil)))
	newBody := ir.WithChildren(body, []ir.Node{inner})
	return NonDelegating(ir.WithChildren(call, []ir.Node{newRec, newBody}))
}
