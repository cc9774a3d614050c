package delegation

import (
	"github.com/roach88/delegation/internal/ir"
	"github.com/roach88/delegation/internal/metadata"
)

var aggregateFunctions = map[string]metadata.AggregateKind{
	fnSum:       metadata.AggSum,
	fnAverage:   metadata.AggAverage,
	fnMin:       metadata.AggMin,
	fnMax:       metadata.AggMax,
	fnCountA:    metadata.AggCount,
	fnCountRows: metadata.AggCountRows,
}

// processSummarize delegates
//
//	Summarize(table, "Group", ..., Sum(ThisGroup, Amount) As Total, ...)
//
// Plain text arguments are group keys; aliased arguments are aggregates
// over the ThisGroup table of the group.
func processSummarize(r *rewriter, call *ir.Call, table *RetVal, ctx Context) *RetVal {
	md := table.Metadata()
	if !md.Capabilities.Summarize {
		return r.abandon(call, table, ctx, capabilityMissing("summarize"))
	}
	var groups []ColumnInfo
	var aggs []AggregateExpression
	for _, arg := range call.Args[1:] {
		if name, ok := ir.StringLiteral(arg); ok {
			field, ok := table.SourceName(name)
			if !ok {
				return r.abandon(call, table, ctx, &abandonment{key: WarnUnknownColumn, args: []any{name}})
			}
			if !md.SupportsGroupBy(field) {
				return r.abandon(call, table, ctx, capabilityMissing("group by "+name))
			}
			groups = append(groups, ColumnInfo{Name: name, Source: field})
			continue
		}
		alias, ok := arg.(*ir.Alias)
		if !ok {
			return r.abandon(call, table, ctx, nil)
		}
		agg, ab := aggregateOf(alias, table)
		if ab != nil {
			return r.abandon(call, table, ctx, ab)
		}
		aggs = append(aggs, agg)
	}
	g, ok := NewGroupByNode(groups, aggs)
	if !ok {
		return r.abandon(call, table, ctx, nil)
	}
	out, ok := table.AddGroupBy(g)
	if !ok {
		return r.abandon(call, table, ctx, nil)
	}
	return out
}

// aggregateOf reads "Agg(ThisGroup, Column) As Name" or
// "CountRows(ThisGroup) As Name".
func aggregateOf(alias *ir.Alias, table *RetVal) (AggregateExpression, *abandonment) {
	body := alias.Value
	var groupScope ir.ScopeID
	if lambda, ok := body.(*ir.Lambda); ok {
		body, groupScope = lambda.Body, lambda.Scope
	}
	call, ok := body.(*ir.Call)
	if !ok {
		return AggregateExpression{}, notDelegable()
	}
	kind, ok := aggregateFunctions[call.Func]
	if !ok || len(call.Args) == 0 {
		return AggregateExpression{}, notDelegable()
	}
	group, ok := call.Args[0].(*ir.ScopeRef)
	if !ok || group.Field != thisGroup || (groupScope != 0 && group.Scope != groupScope) {
		return AggregateExpression{}, notDelegable()
	}

	if kind == metadata.AggCountRows {
		if len(call.Args) != 1 {
			return AggregateExpression{}, notDelegable()
		}
		return AggregateExpression{Kind: kind, Alias: alias.Name}, nil
	}

	if len(call.Args) != 2 {
		return AggregateExpression{}, notDelegable()
	}
	col, ok := call.Args[1].(*ir.Lambda)
	if !ok {
		return AggregateExpression{}, notDelegable()
	}
	ref, ok := col.Body.(*ir.ScopeRef)
	if !ok || ref.Scope != col.Scope || ref.IsWholeRecord() {
		return AggregateExpression{}, notDelegable()
	}
	field, ok := table.SourceName(ref.Field)
	if !ok {
		return AggregateExpression{}, &abandonment{key: WarnUnknownColumn, args: []any{ref.Field}}
	}
	if !table.Metadata().SupportsAggregate(field, kind) {
		return AggregateExpression{}, capabilityMissing(string(kind) + " of " + ref.Field)
	}
	return AggregateExpression{Source: field, Kind: kind, Alias: alias.Name}, nil
}
