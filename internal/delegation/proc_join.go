package delegation

import (
	"slices"

	"github.com/roach88/delegation/internal/ir"
)

// processJoin delegates
//
//	Join(Left, Right, LeftRecord.Key = RightRecord.Key[, JoinType.Kind][, RightRecord.Col As Name, ...])
//
// Both tables must be bare, live in the same data source and declare the
// join capability, and one side of the equality must be that side's single
// primary key. The output has every left column plus the aliased right
// columns.
func processJoin(r *rewriter, call *ir.Call, table *RetVal, ctx Context) *RetVal {
	if len(call.Args) < 3 {
		return r.abandon(call, table, ctx, nil)
	}
	foreign := r.visit(call.Args[1], ctx)
	r.begin()
	fail := func(ab *abandonment) *RetVal {
		return r.abandonJoin(call, table, foreign, ctx, ab)
	}
	if !foreign.IsDelegating() || !table.IsBare() || !foreign.IsBare() {
		return fail(nil)
	}
	lmd, fmd := table.Metadata(), foreign.Metadata()
	if !lmd.Capabilities.Join || !fmd.Capabilities.Join {
		return fail(capabilityMissing("join"))
	}
	if lmd.Source != fmd.Source {
		return fail(nil)
	}

	pred, ok := call.Args[2].(*ir.Lambda)
	if !ok {
		return fail(nil)
	}
	eq, ok := pred.Body.(*ir.Binary)
	if !ok || eq.Op != ir.OpEq {
		return fail(nil)
	}
	keys := map[string]string{}
	for _, side := range []ir.Node{eq.Left, eq.Right} {
		rec, col, ok := joinSide(side, pred.Scope)
		if !ok {
			return fail(nil)
		}
		keys[rec] = col
	}
	leftKey, okL := keys[leftRecord]
	rightKey, okR := keys[rightRecord]
	if !okL || !okR {
		return fail(nil)
	}
	if _, ok := lmd.Column(leftKey); !ok {
		return fail(&abandonment{key: WarnUnknownColumn, args: []any{leftKey}})
	}
	if _, ok := fmd.Column(rightKey); !ok {
		return fail(&abandonment{key: WarnUnknownColumn, args: []any{rightKey}})
	}
	if !isSingleKey(lmd.PrimaryKey, leftKey) && !isSingleKey(fmd.PrimaryKey, rightKey) {
		return fail(nil)
	}

	kind := JoinInner
	rest := call.Args[3:]
	if len(rest) > 0 {
		if text, ok := enumText(rest[0]); ok {
			if kind, ok = ParseJoinKind(text); !ok {
				return fail(nil)
			}
			rest = rest[1:]
		}
	}

	var foreignCols []ColumnInfo
	names := table.TableType().FieldNames()
	for _, arg := range rest {
		alias, ok := arg.(*ir.Alias)
		if !ok {
			return fail(nil)
		}
		value := alias.Value
		scope := pred.Scope
		if lambda, ok := value.(*ir.Lambda); ok {
			value, scope = lambda.Body, lambda.Scope
		}
		rec, col, ok := joinSide(value, scope)
		if !ok {
			return fail(nil)
		}
		if rec == leftRecord {
			// Left columns are always part of the output.
			if col != alias.Name {
				return fail(nil)
			}
			continue
		}
		if _, ok := fmd.Column(col); !ok {
			return fail(&abandonment{key: WarnUnknownColumn, args: []any{col}})
		}
		if slices.Contains(names, alias.Name) {
			return fail(&abandonment{key: WarnDuplicateColumn, args: []any{alias.Name}})
		}
		names = append(names, alias.Name)
		foreignCols = append(foreignCols, ColumnInfo{Name: alias.Name, Source: col})
	}

	j := NewJoinNode(lmd.Name, fmd.Name, []string{leftKey}, []string{rightKey}, kind, foreign.OriginalNode(), foreignCols)
	out, ok := table.AddJoin(j, foreign)
	if !ok {
		return fail(nil)
	}
	return out
}

// joinSide matches LeftRecord.Col or RightRecord.Col read from scope.
func joinSide(n ir.Node, scope ir.ScopeID) (string, string, bool) {
	fa, ok := n.(*ir.FieldAccess)
	if !ok {
		return "", "", false
	}
	ref, ok := fa.From.(*ir.ScopeRef)
	if !ok || ref.Scope != scope || (ref.Field != leftRecord && ref.Field != rightRecord) {
		return "", "", false
	}
	return ref.Field, fa.Field, true
}

func isSingleKey(pk []string, col string) bool {
	return len(pk) == 1 && pk[0] == col
}

// abandonJoin falls back with both already visited table arguments
// materialized.
func (r *rewriter) abandonJoin(call *ir.Call, table, foreign *RetVal, ctx Context, ab *abandonment) *RetVal {
	r.report(call, table, ab)
	args := make([]ir.Node, len(call.Args))
	args[0] = r.materialize(table)
	args[1] = r.materialize(foreign)
	for i := 2; i < len(call.Args); i++ {
		args[i] = r.materialize(r.visit(call.Args[i], ctx))
	}
	return NonDelegating(ir.WithChildren(call, args))
}
