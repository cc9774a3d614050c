package delegation

import (
	"github.com/roach88/delegation/internal/ir"
	"github.com/roach88/delegation/internal/metadata"
)

type resolveOptions struct {
	// foldForeignKey resolves Nav.TargetKey to the local foreign-key column.
	// Only valid for equality tests, where the two are interchangeable.
	foldForeignKey bool

	// navigationAsKey resolves a bare lookup column to its local foreign-key
	// column. Only valid for blank checks.
	navigationAsKey bool
}

// resolveField decides whether n denotes a remotely filterable field of the
// caller table's current row. Resolution fails silently; the caller decides
// which diagnostic to report.
//
// Accepted shapes, outermost first:
//   - coercions with an inverse, recorded so the value side can be converted
//   - one date-part function such as Year(field)
//   - a field of the caller's row, mapped through the column projection
//   - one navigation hop over a lookup column, Nav.Field
func resolveField(n ir.Node, ctx Context, opts resolveOptions) (FieldRef, bool) {
	table := ctx.callerTable
	if table == nil || !table.IsDelegating() || n == nil {
		return FieldRef{}, false
	}
	var ref FieldRef
	n, ok := stripCoercions(n, &ref.Coercions)
	if !ok {
		return FieldRef{}, false
	}
	if call, isCall := n.(*ir.Call); isCall && metadata.IsDatePart(call.Func) && len(call.Args) == 1 {
		ref.Function = call.Func
		if n, ok = stripCoercions(call.Args[0], &ref.Coercions); !ok {
			return FieldRef{}, false
		}
	}
	plain := ref.Function == "" && len(ref.Coercions) == 0
	md := table.Metadata()

	switch node := n.(type) {
	case *ir.ScopeRef:
		name, ok := rowField(node, ctx)
		if !ok {
			return FieldRef{}, false
		}
		col, ok := md.Column(name)
		if !ok || !col.Filterable {
			return FieldRef{}, false
		}
		if col.Kind == ir.KindRecord {
			if !opts.navigationAsKey || !plain {
				return FieldRef{}, false
			}
			return localKeyRef(md, name)
		}
		if ref.Function != "" && !md.SupportsFunction(name, ref.Function) {
			return FieldRef{}, false
		}
		ref.Name, ref.Kind = name, col.Kind
		return ref, true

	case *ir.FieldAccess:
		from, ok := node.From.(*ir.ScopeRef)
		if !ok {
			return FieldRef{}, false
		}
		nav, ok := rowField(from, ctx)
		if !ok {
			return FieldRef{}, false
		}
		rel, ok := md.Relationship(nav)
		if !ok {
			return FieldRef{}, false
		}
		if opts.foldForeignKey && plain && node.Field == rel.TargetKey {
			if folded, ok := localKeyRef(md, nav); ok {
				return folded, true
			}
		}
		target := rel.TargetTable()
		if target == nil || !target.Capabilities.Filter {
			return FieldRef{}, false
		}
		col, ok := target.Column(node.Field)
		if !ok || !col.Filterable || col.Kind == ir.KindRecord {
			return FieldRef{}, false
		}
		if ref.Function != "" && !target.SupportsFunction(node.Field, ref.Function) {
			return FieldRef{}, false
		}
		ref.Name, ref.Kind = node.Field, col.Kind
		ref.Relation = &Relation{Field: nav, Target: rel.Target, Polymorphic: rel.Polymorphic}
		return ref, true
	}
	return FieldRef{}, false
}

// rowField maps a reference to the caller's current row to a source column.
func rowField(ref *ir.ScopeRef, ctx Context) (string, bool) {
	if ref.IsWholeRecord() || ref.Scope != ctx.rowScope {
		return "", false
	}
	f, ok := ctx.lookup(ref.Scope)
	if !ok || f.kind != frameRow {
		return "", false
	}
	return ctx.callerTable.SourceName(ref.Field)
}

func localKeyRef(md *metadata.Table, nav string) (FieldRef, bool) {
	rel, ok := md.Relationship(nav)
	if !ok {
		return FieldRef{}, false
	}
	local, ok := md.Column(rel.LocalKey)
	if !ok || !local.Filterable {
		return FieldRef{}, false
	}
	return FieldRef{Name: rel.LocalKey, Kind: local.Kind}, true
}

// stripCoercions removes implicit coercions around a field reference and
// appends the inverse of each to inverses. A coercion without an inverse
// cannot be undone on the value side and fails the resolution.
func stripCoercions(n ir.Node, inverses *[]ir.UnaryOp) (ir.Node, bool) {
	for {
		u, ok := n.(*ir.Unary)
		if !ok || !u.Op.IsCoercion() {
			return n, true
		}
		inv, ok := u.Op.Inverse()
		if !ok {
			return nil, false
		}
		*inverses = append(*inverses, inv)
		n = u.Operand
	}
}

// applyCoercions wraps value in the recorded inverse coercions.
func applyCoercions(value ir.Node, ops []ir.UnaryOp) ir.Node {
	for _, op := range ops {
		value = &ir.Unary{Meta: ir.Meta{Span: value.Info().Span, Type: coercedType(op)}, Op: op, Operand: value}
	}
	return value
}

func coercedType(op ir.UnaryOp) ir.Type {
	switch op {
	case ir.OpNumberToDate:
		return ir.TypeDate
	case ir.OpNumberToDateTime:
		return ir.TypeDateTime
	default:
		return ir.TypeNumber
	}
}
