package delegation

import (
	"github.com/roach88/delegation/internal/ir"
	"github.com/roach88/delegation/internal/metadata"
)

// translatePredicateArg translates the lambda argument of a filtering call.
// A nil node with a nil abandonment means the condition is always true.
func (r *rewriter) translatePredicateArg(call *ir.Call, table *RetVal, arg ir.Node, ctx Context) (ir.Node, *abandonment) {
	lambda, ok := arg.(*ir.Lambda)
	if !ok {
		return nil, notDelegable()
	}
	inner := ctx.WithCaller(call, table, lambda.Scope)
	if ab := scanPredicate(lambda.Body, inner); ab != nil {
		return nil, ab
	}
	return r.translatePredicate(lambda.Body, inner)
}

// scanPredicate rejects predicates that can never run remotely whatever
// their shape: side effects and references to the whole current record.
func scanPredicate(body ir.Node, ctx Context) *abandonment {
	var ab *abandonment
	ir.Walk(body, func(n ir.Node) bool {
		if ab != nil {
			return false
		}
		switch node := n.(type) {
		case *ir.Call:
			if isBehaviorFunction(node.Func) {
				ab = &abandonment{key: WarnBehaviorFunction, args: []any{node.Func}}
			}
		case *ir.ScopeRef:
			if node.IsWholeRecord() && node.Scope == ctx.rowScope {
				ab = &abandonment{key: WarnThisRecord}
			}
		}
		return true
	})
	return ab
}

func (r *rewriter) translatePredicate(n ir.Node, ctx Context) (ir.Node, *abandonment) {
	switch node := n.(type) {
	case *ir.Literal:
		if b, ok := node.Value.(ir.Bool); ok && bool(b) {
			return nil, nil
		}
		return nil, notDelegable()
	case *ir.Binary:
		if node.Op.IsComparison() {
			return r.translateComparison(node, ctx)
		}
		return nil, notDelegable()
	case *ir.Call:
		switch node.Func {
		case fnAnd, fnOr:
			return r.translateLogical(node, ctx)
		case fnNot:
			return r.translateNot(node, ctx)
		case fnIsBlank:
			if len(node.Args) != 1 {
				return nil, notDelegable()
			}
			return r.translateBlank(node.Args[0], ctx)
		case fnStartsWith, fnEndsWith:
			return r.translateTextMatch(node, ctx)
		case fnWith:
			return r.translateWith(node, ctx)
		}
	}

	// A boolean field on its own is a test against true.
	if ref, ok := resolveField(n, ctx, resolveOptions{}); ok &&
		ref.Kind == ir.KindBoolean && ref.Function == "" && len(ref.Coercions) == 0 {
		return r.compare(ir.OpEq, ref, ir.Lit(ir.Bool(true)), ctx)
	}
	return nil, notDelegable()
}

func (r *rewriter) translateComparison(b *ir.Binary, ctx Context) (ir.Node, *abandonment) {
	opts := resolveOptions{foldForeignKey: b.Op == ir.OpEq || b.Op == ir.OpNotEq}
	lref, lok := resolveField(b.Left, ctx, opts)
	rref, rok := resolveField(b.Right, ctx, opts)
	switch {
	case lok && rok:
		ab := &abandonment{key: WarnFieldComparison}
		if b.Op == ir.OpEq && sameField(lref, rref) {
			ab.extra = append(ab.extra, Warning{Key: WarnLikelyTypo, Span: b.Span, Args: []any{lref.Name}})
		}
		return nil, ab
	case !lok && !rok:
		return nil, notDelegable()
	}

	op, ref, value := b.Op, lref, b.Right
	if rok {
		op, ref, value = b.Op.Mirror(), rref, b.Left
	}
	if ir.ReferencesScope(value, ctx.rowScope) {
		return nil, &abandonment{key: WarnFieldComparison}
	}

	if ir.IsBlankLiteral(value) {
		if ref.Function != "" {
			return nil, notDelegable()
		}
		ref.Coercions = nil
		switch op {
		case ir.OpEq:
			return r.blankCheck(ref, ctx)
		case ir.OpNotEq:
			check, ab := r.blankCheck(ref, ctx)
			if ab != nil {
				return nil, ab
			}
			return r.not(check, ctx)
		default:
			return nil, notDelegable()
		}
	}

	return r.compare(op, ref, applyCoercions(r.rewriteValue(value, ctx), ref.Coercions), ctx)
}

func sameField(a, b FieldRef) bool {
	if a.Name != b.Name || a.Function != b.Function {
		return false
	}
	if a.Relation == nil || b.Relation == nil {
		return a.Relation == nil && b.Relation == nil
	}
	return *a.Relation == *b.Relation
}

func (r *rewriter) translateLogical(call *ir.Call, ctx Context) (ir.Node, *abandonment) {
	fop := metadata.OpAnd
	if call.Func == fnOr {
		fop = metadata.OpOr
	}
	if !ctx.callerTable.Metadata().Capabilities.SupportsOperator(fop) {
		return nil, capabilityMissing(string(fop))
	}
	terms := make([]ir.Node, 0, len(call.Args))
	alwaysTrue := false
	for _, arg := range call.Args {
		term, ab := r.translatePredicate(arg, ctx)
		if ab != nil {
			return nil, ab
		}
		if term == nil {
			alwaysTrue = true
			continue
		}
		terms = append(terms, term)
	}
	if fop == metadata.OpOr && alwaysTrue {
		return nil, nil
	}
	switch len(terms) {
	case 0:
		return nil, nil
	case 1:
		return terms[0], nil
	}
	if fop == metadata.OpOr {
		return r.hooks.MakeOr(terms...), nil
	}
	return r.hooks.MakeAnd(terms...), nil
}

// translateNot only accepts Not(IsBlank(field)). Negating other conditions
// is not equivalent remotely because blank fields compare differently.
func (r *rewriter) translateNot(call *ir.Call, ctx Context) (ir.Node, *abandonment) {
	inner, ok := call.Arg(0).(*ir.Call)
	if len(call.Args) != 1 || !ok || inner.Func != fnIsBlank || len(inner.Args) != 1 {
		return nil, notDelegable()
	}
	check, ab := r.translateBlank(inner.Args[0], ctx)
	if ab != nil {
		return nil, ab
	}
	return r.not(check, ctx)
}

func (r *rewriter) translateBlank(arg ir.Node, ctx Context) (ir.Node, *abandonment) {
	ref, ok := resolveField(arg, ctx, resolveOptions{navigationAsKey: true})
	if !ok || ref.Function != "" {
		return nil, notDelegable()
	}
	ref.Coercions = nil
	return r.blankCheck(ref, ctx)
}

func (r *rewriter) blankCheck(ref FieldRef, ctx Context) (ir.Node, *abandonment) {
	if !conditionTable(ref, ctx).SupportsFilter(ref.Name, metadata.OpNull) {
		return nil, capabilityMissing(string(metadata.OpNull))
	}
	return r.hooks.MakeBlankCheck(ref), nil
}

func (r *rewriter) not(term ir.Node, ctx Context) (ir.Node, *abandonment) {
	if !ctx.callerTable.Metadata().Capabilities.SupportsOperator(metadata.OpNot) {
		return nil, capabilityMissing(string(metadata.OpNot))
	}
	return r.hooks.MakeNot(term), nil
}

func (r *rewriter) translateTextMatch(call *ir.Call, ctx Context) (ir.Node, *abandonment) {
	if len(call.Args) != 2 {
		return nil, notDelegable()
	}
	ref, ok := resolveField(call.Args[0], ctx, resolveOptions{})
	if !ok || ref.Function != "" || len(ref.Coercions) > 0 || ref.Kind != ir.KindString {
		return nil, notDelegable()
	}
	value := call.Args[1]
	if ir.ReferencesScope(value, ctx.rowScope) {
		return nil, &abandonment{key: WarnFieldComparison}
	}
	fop := metadata.OpStartsWith
	if call.Func == fnEndsWith {
		fop = metadata.OpEndsWith
	}
	table := conditionTable(ref, ctx)
	if !table.SupportsFilter(ref.Name, fop) || !table.SupportsFunction(ref.Name, call.Func) {
		return nil, capabilityMissing(string(fop))
	}
	rewritten := r.rewriteValue(value, ctx)
	if fop == metadata.OpEndsWith {
		return r.hooks.MakeEndsWith(ref, rewritten), nil
	}
	return r.hooks.MakeStartsWith(ref, rewritten), nil
}

// translateWith handles With inside a predicate. Each binding is rewritten
// on its own and then inlined wherever the body's remote conditions use it.
func (r *rewriter) translateWith(call *ir.Call, ctx Context) (ir.Node, *abandonment) {
	rec, ok1 := call.Arg(0).(*ir.Record)
	body, ok2 := call.Arg(1).(*ir.Lambda)
	if len(call.Args) != 2 || !ok1 || !ok2 {
		return nil, notDelegable()
	}
	if ir.ReferencesScope(rec, ctx.rowScope) {
		return nil, notDelegable()
	}
	wholeRecord := ir.Any(body.Body, func(n ir.Node) bool {
		ref, ok := n.(*ir.ScopeRef)
		return ok && ref.Scope == body.Scope && ref.IsWholeRecord()
	})
	if wholeRecord {
		return nil, notDelegable()
	}
	values := make(map[string]ir.Node, len(rec.Fields))
	for _, f := range rec.Fields {
		values[f.Name] = r.rewriteValue(f.Value, ctx)
	}
	return r.translatePredicate(body.Body, ctx.WithBindings(body.Scope, values))
}

func (r *rewriter) compare(op ir.BinaryOp, ref FieldRef, value ir.Node, ctx Context) (ir.Node, *abandonment) {
	fop, ok := metadata.FilterOpFor(op)
	if !ok {
		return nil, notDelegable()
	}
	if !conditionTable(ref, ctx).SupportsFilter(ref.Name, fop) {
		return nil, capabilityMissing(string(fop))
	}
	return r.hooks.MakeCompare(op, ref, value), nil
}

// conditionTable is the table a resolved field belongs to.
func conditionTable(ref FieldRef, ctx Context) *metadata.Table {
	md := ctx.callerTable.Metadata()
	if ref.Relation != nil {
		if rel, ok := md.Relationship(ref.Relation.Field); ok && rel.TargetTable() != nil {
			return rel.TargetTable()
		}
	}
	return md
}

// rewriteValue rewrites the value side of a remote condition as an ordinary
// expression, then inlines bindings of enclosing predicate-level Withs.
func (r *rewriter) rewriteValue(value ir.Node, ctx Context) ir.Node {
	rewritten := r.materialize(r.visit(value, ctx.WithoutCaller()))
	return substituteBindings(rewritten, ctx)
}

func substituteBindings(n ir.Node, ctx Context) ir.Node {
	if ref, ok := n.(*ir.ScopeRef); ok {
		if v, ok := ctx.binding(ref.Scope, ref.Field); ok {
			return v
		}
		return n
	}
	children := ir.Children(n)
	if len(children) == 0 {
		return n
	}
	out := make([]ir.Node, len(children))
	for i, c := range children {
		out[i] = substituteBindings(c, ctx)
	}
	return ir.WithChildren(n, out)
}
