package delegation

import "github.com/roach88/delegation/internal/ir"

// processFilter delegates Filter(table, cond1, cond2, ...). Several
// conditions are conjoined.
func processFilter(r *rewriter, call *ir.Call, table *RetVal, ctx Context) *RetVal {
	if !table.Metadata().Capabilities.Filter {
		return r.abandon(call, table, ctx, capabilityMissing("filter"))
	}
	out, ab := r.applyConditions(call, table, call.Args[1:], ctx)
	if ab != nil {
		return r.abandon(call, table, ctx, ab)
	}
	return out
}

// processCountIf delegates CountIf(table, cond...) as a filtered count.
func processCountIf(r *rewriter, call *ir.Call, table *RetVal, ctx Context) *RetVal {
	caps := table.Metadata().Capabilities
	if !caps.Filter {
		return r.abandon(call, table, ctx, capabilityMissing("filter"))
	}
	if !caps.Count {
		return r.abandon(call, table, ctx, capabilityMissing("count"))
	}
	filtered, ab := r.applyConditions(call, table, call.Args[1:], ctx)
	if ab != nil {
		return r.abandon(call, table, ctx, ab)
	}
	counted, ok := filtered.TryAddReturnRowCount()
	if !ok {
		return r.abandon(call, table, ctx, nil)
	}
	return r.materializeAs(counted, ModeCount)
}

// processCountRows delegates CountRows(table).
func processCountRows(r *rewriter, call *ir.Call, table *RetVal, ctx Context) *RetVal {
	if len(call.Args) != 1 {
		return r.abandon(call, table, ctx, nil)
	}
	if !table.Metadata().Capabilities.Count {
		return r.abandon(call, table, ctx, capabilityMissing("count"))
	}
	counted, ok := table.TryAddReturnRowCount()
	if !ok {
		if table.IsBounded() {
			// Counting a capped query locally is exact.
			return NonDelegating(r.rebuildCall(call, table, ctx))
		}
		return r.abandon(call, table, ctx, nil)
	}
	return r.materializeAs(counted, ModeCount)
}

// applyConditions translates each condition lambda and adds it to table.
func (r *rewriter) applyConditions(call *ir.Call, table *RetVal, conds []ir.Node, ctx Context) (*RetVal, *abandonment) {
	if len(conds) == 0 {
		return nil, notDelegable()
	}
	out := table
	for _, cond := range conds {
		pred, ab := r.translatePredicateArg(call, table, cond, ctx)
		if ab != nil {
			return nil, ab
		}
		if pred == nil {
			continue
		}
		next, ok := out.AddFilter(pred)
		if !ok {
			return nil, notDelegable()
		}
		out = next
	}
	return out, nil
}
