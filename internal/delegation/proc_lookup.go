package delegation

import "github.com/roach88/delegation/internal/ir"

// processLookUp delegates LookUp(table, cond[, reduction]).
//
// A condition that pins the primary key (and the partition key of an
// elastic table) becomes a direct key retrieval. Any other delegable
// condition becomes a filtered query capped at one row. With a reduction
// the capped query is returned as a table and LookUp stays in place to
// apply the reduction locally.
func processLookUp(r *rewriter, call *ir.Call, table *RetVal, ctx Context) *RetVal {
	if len(call.Args) < 2 || len(call.Args) > 3 {
		return r.abandon(call, table, ctx, nil)
	}
	if len(call.Args) == 2 {
		if node, ok := r.lookUpByKey(call, table, ctx); ok {
			r.delegated = true
			return NonDelegating(node)
		}
	}

	caps := table.Metadata().Capabilities
	if !caps.Filter {
		return r.abandon(call, table, ctx, capabilityMissing("filter"))
	}
	if !caps.Top {
		return r.abandon(call, table, ctx, capabilityMissing("top"))
	}
	filtered, ab := r.applyConditions(call, table, call.Args[1:2], ctx)
	if ab != nil {
		return r.abandon(call, table, ctx, ab)
	}
	first, ok := filtered.AddTopCount(ir.Lit(ir.Number(1)))
	if !ok {
		return r.abandon(call, table, ctx, nil)
	}
	if len(call.Args) == 2 {
		return r.materializeAs(first, ModeSingle)
	}

	r.rewind()
	args := []ir.Node{
		r.materialize(first),
		r.materialize(r.visit(call.Args[1], ctx)),
		r.materialize(r.visit(call.Args[2], ctx)),
	}
	return NonDelegating(ir.WithChildren(call, args))
}

// lookUpByKey recognizes "Key = value" and, for elastic tables,
// "And(Key = value, Partition = value)" in either order.
func (r *rewriter) lookUpByKey(call *ir.Call, table *RetVal, ctx Context) (ir.Node, bool) {
	if !table.isProjectionOnly() {
		return nil, false
	}
	lambda, ok := call.Args[1].(*ir.Lambda)
	if !ok {
		return nil, false
	}
	pk, ok := table.PrimaryKeyFieldName()
	if !ok {
		return nil, false
	}
	inner := ctx.WithCaller(call, table, lambda.Scope)
	if scanPredicate(lambda.Body, inner) != nil {
		return nil, false
	}

	if !table.IsElasticTable() {
		field, value, ok := keyEquality(lambda.Body, inner)
		if !ok || field != pk {
			return nil, false
		}
		return r.hooks.MakeRetrieveByID(table, r.rewriteValue(value, inner)), true
	}

	and, ok := lambda.Body.(*ir.Call)
	if !ok || and.Func != fnAnd || len(and.Args) != 2 {
		return nil, false
	}
	values := make(map[string]ir.Node, 2)
	for _, term := range and.Args {
		field, value, ok := keyEquality(term, inner)
		if !ok {
			return nil, false
		}
		values[field] = value
	}
	id, okID := values[pk]
	partition, okPart := values[table.Metadata().PartitionKey]
	if !okID || !okPart {
		return nil, false
	}
	return r.hooks.MakeRetrieveElastic(table, r.rewriteValue(id, inner), r.rewriteValue(partition, inner)), true
}

// keyEquality matches "field = value" where field is a plain column of the
// current row and value does not depend on the row.
func keyEquality(n ir.Node, ctx Context) (string, ir.Node, bool) {
	b, ok := n.(*ir.Binary)
	if !ok || b.Op != ir.OpEq {
		return "", nil, false
	}
	for _, side := range [][2]ir.Node{{b.Left, b.Right}, {b.Right, b.Left}} {
		ref, ok := side[0].(*ir.ScopeRef)
		if !ok {
			continue
		}
		field, ok := rowField(ref, ctx)
		if !ok {
			continue
		}
		value := side[1]
		if ir.IsBlankLiteral(value) || ir.ReferencesScope(value, ctx.rowScope) {
			return "", nil, false
		}
		return field, value, true
	}
	return "", nil, false
}

// processFirst delegates First(table) as a one-row query.
func processFirst(r *rewriter, call *ir.Call, table *RetVal, ctx Context) *RetVal {
	if len(call.Args) != 1 {
		return r.abandon(call, table, ctx, nil)
	}
	if !table.Metadata().Capabilities.Top {
		return r.abandon(call, table, ctx, capabilityMissing("top"))
	}
	first, ok := table.AddTopCount(ir.Lit(ir.Number(1)))
	if !ok {
		return r.abandon(call, table, ctx, nil)
	}
	return r.materializeAs(first, ModeSingle)
}

// processFirstN delegates FirstN(table[, n]); n defaults to 1.
func processFirstN(r *rewriter, call *ir.Call, table *RetVal, ctx Context) *RetVal {
	if len(call.Args) > 2 {
		return r.abandon(call, table, ctx, nil)
	}
	if !table.Metadata().Capabilities.Top {
		return r.abandon(call, table, ctx, capabilityMissing("top"))
	}
	var n ir.Node = ir.Lit(ir.Number(1))
	if len(call.Args) == 2 {
		n = r.materialize(r.visit(call.Args[1], ctx))
	}
	out, ok := table.AddTopCount(n)
	if !ok {
		return r.abandon(call, table, ctx, nil)
	}
	return out
}
