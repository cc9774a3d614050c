package delegation

import "github.com/roach88/delegation/internal/ir"

// processSort delegates Sort(table, key[, order]) where key is a column of
// the current row.
func processSort(r *rewriter, call *ir.Call, table *RetVal, ctx Context) *RetVal {
	if len(call.Args) < 2 || len(call.Args) > 3 {
		return r.abandon(call, table, ctx, nil)
	}
	if !table.Metadata().Capabilities.Sort {
		return r.abandon(call, table, ctx, capabilityMissing("sort"))
	}
	lambda, ok := call.Args[1].(*ir.Lambda)
	if !ok {
		return r.abandon(call, table, ctx, nil)
	}
	ref, ok := lambda.Body.(*ir.ScopeRef)
	if !ok {
		return r.abandon(call, table, ctx, nil)
	}
	field, ok := rowField(ref, ctx.WithCaller(call, table, lambda.Scope))
	if !ok {
		return r.abandon(call, table, ctx, nil)
	}
	if !table.Metadata().SupportsSort(field) {
		return r.abandon(call, table, ctx, capabilityMissing("sort"))
	}
	descending := false
	if len(call.Args) == 3 {
		if descending, ok = parseSortOrder(call.Args[2]); !ok {
			return r.abandon(call, table, ctx, nil)
		}
	}
	out, ok := table.AddOrderBy([]OrderItem{{Field: field, Descending: descending}})
	if !ok {
		return r.abandon(call, table, ctx, nil)
	}
	return out
}

// processSortByColumns delegates SortByColumns(table, "col"[, order], ...).
func processSortByColumns(r *rewriter, call *ir.Call, table *RetVal, ctx Context) *RetVal {
	if len(call.Args) < 2 {
		return r.abandon(call, table, ctx, nil)
	}
	if !table.Metadata().Capabilities.Sort {
		return r.abandon(call, table, ctx, capabilityMissing("sort"))
	}
	var items []OrderItem
	args := call.Args[1:]
	for i := 0; i < len(args); i++ {
		name, ok := ir.StringLiteral(args[i])
		if !ok {
			return r.abandon(call, table, ctx, nil)
		}
		field, ok := table.SourceName(name)
		if !ok {
			return r.abandon(call, table, ctx, &abandonment{key: WarnUnknownColumn, args: []any{name}})
		}
		if !table.Metadata().SupportsSort(field) {
			return r.abandon(call, table, ctx, capabilityMissing("sort"))
		}
		item := OrderItem{Field: field}
		if i+1 < len(args) {
			if desc, ok := parseSortOrder(args[i+1]); ok {
				item.Descending = desc
				i++
			}
		}
		items = append(items, item)
	}
	out, ok := table.AddOrderBy(items)
	if !ok {
		return r.abandon(call, table, ctx, nil)
	}
	return out
}

// parseSortOrder accepts "Ascending" and "Descending" as text or as
// SortOrder enum members.
func parseSortOrder(n ir.Node) (descending bool, ok bool) {
	text, ok := enumText(n)
	if !ok {
		return false, false
	}
	switch normalizeEnumName(text, "SortOrder") {
	case "ascending":
		return false, true
	case "descending":
		return true, true
	}
	return false, false
}

// enumText returns the text of a string literal or the name of an enum
// member symbol.
func enumText(n ir.Node) (string, bool) {
	if s, ok := ir.StringLiteral(n); ok {
		return s, true
	}
	if sym, ok := n.(*ir.Symbol); ok && sym.Kind == ir.SymbolEnum {
		return sym.Name, true
	}
	return "", false
}
