// Package querybuild implements delegation.Hooks by encoding remote queries
// as reserved queryir function calls.
package querybuild

import (
	"github.com/roach88/delegation/internal/delegation"
	"github.com/roach88/delegation/internal/ir"
	"github.com/roach88/delegation/internal/metadata"
	"github.com/roach88/delegation/internal/queryir"
)

// Builder builds queryir nodes for tables of one catalog.
// It holds no mutable state and is safe for concurrent use.
type Builder struct {
	catalog *metadata.Catalog
}

var _ delegation.Hooks = (*Builder)(nil)

// New creates a builder over cat.
func New(cat *metadata.Catalog) *Builder {
	return &Builder{catalog: cat}
}

// Catalog returns the catalog the builder resolves tables in.
func (b *Builder) Catalog() *metadata.Catalog { return b.catalog }

// IsDelegableTable implements delegation.Hooks.
func (b *Builder) IsDelegableTable(sym *ir.Symbol) (*metadata.Table, bool) {
	t, ok := b.catalog.Lookup(sym.Name)
	if !ok || !t.Capabilities.Any() {
		return nil, false
	}
	return t, true
}

var compareOps = map[ir.BinaryOp]queryir.Op{
	ir.OpEq:    queryir.OpEq,
	ir.OpNotEq: queryir.OpNe,
	ir.OpLt:    queryir.OpLt,
	ir.OpLe:    queryir.OpLe,
	ir.OpGt:    queryir.OpGt,
	ir.OpGe:    queryir.OpGe,
}

// MakeCompare implements delegation.Hooks.
func (b *Builder) MakeCompare(op ir.BinaryOp, field delegation.FieldRef, value ir.Node) ir.Node {
	return predicate(queryir.CompareFunc(compareOps[op]), fieldLiteral(field), value)
}

// MakeAnd implements delegation.Hooks. Nested conjunctions are flattened.
func (b *Builder) MakeAnd(terms ...ir.Node) ir.Node {
	return predicate(queryir.FuncAnd, flatten(queryir.FuncAnd, terms)...)
}

// MakeOr implements delegation.Hooks. Nested disjunctions are flattened.
func (b *Builder) MakeOr(terms ...ir.Node) ir.Node {
	return predicate(queryir.FuncOr, flatten(queryir.FuncOr, terms)...)
}

// MakeNot implements delegation.Hooks.
func (b *Builder) MakeNot(term ir.Node) ir.Node {
	return predicate(queryir.FuncNot, term)
}

// MakeStartsWith implements delegation.Hooks.
func (b *Builder) MakeStartsWith(field delegation.FieldRef, value ir.Node) ir.Node {
	return predicate(queryir.FuncStartsWith, fieldLiteral(field), value)
}

// MakeEndsWith implements delegation.Hooks.
func (b *Builder) MakeEndsWith(field delegation.FieldRef, value ir.Node) ir.Node {
	return predicate(queryir.FuncEndsWith, fieldLiteral(field), value)
}

// MakeBlankCheck implements delegation.Hooks.
func (b *Builder) MakeBlankCheck(field delegation.FieldRef) ir.Node {
	return predicate(queryir.FuncIsNull, fieldLiteral(field))
}

// MakeRetrieveByID implements delegation.Hooks.
func (b *Builder) MakeRetrieveByID(rv *delegation.RetVal, id ir.Node) ir.Node {
	return &ir.Call{
		Meta: ir.Meta{Span: rv.SourceTableNode().Info().Span, Type: rv.TableType().ToRecord()},
		Func: queryir.FuncRetrieveGUID,
		Args: []ir.Node{rv.SourceTableNode(), id, descriptorLiteral(rv)},
	}
}

// MakeRetrieveElastic implements delegation.Hooks.
func (b *Builder) MakeRetrieveElastic(rv *delegation.RetVal, id, partition ir.Node) ir.Node {
	return &ir.Call{
		Meta: ir.Meta{Span: rv.SourceTableNode().Info().Span, Type: rv.TableType().ToRecord()},
		Func: queryir.FuncRetrieveElastic,
		Args: []ir.Node{rv.SourceTableNode(), id, partition, descriptorLiteral(rv)},
	}
}

// MakeQueryExecNode implements delegation.Hooks.
func (b *Builder) MakeQueryExecNode(rv *delegation.RetVal, mode delegation.ResultMode) ir.Node {
	typ := rv.TableType()
	qmode := queryir.ModeRows
	switch mode {
	case delegation.ModeSingle:
		typ, qmode = typ.ToRecord(), queryir.ModeSingle
	case delegation.ModeCount:
		typ, qmode = ir.TypeNumber, queryir.ModeCount
	}
	var filter ir.Node = blank()
	if f := rv.Filter(); f != nil {
		filter = f
	}
	var top ir.Node = blank()
	if t := rv.TopCount(); t != nil {
		top = t
	}
	return &ir.Call{
		Meta: ir.Meta{Span: rv.SourceTableNode().Info().Span, Type: typ},
		Func: queryir.FuncFor(qmode),
		Args: []ir.Node{rv.SourceTableNode(), filter, top, descriptorLiteral(rv)},
	}
}

// Descriptor converts the non-expression parts of an accumulator.
func Descriptor(rv *delegation.RetVal) queryir.Descriptor {
	d := queryir.Descriptor{MaxRows: rv.MaxRows()}
	for _, o := range rv.OrderBy() {
		d.OrderBy = append(d.OrderBy, queryir.Order{Field: o.Field, Descending: o.Descending})
	}
	d.Columns = convertColumns(rv.Columns().Columns())
	if g := rv.GroupBy(); g != nil {
		group := &queryir.GroupBy{}
		renamed := false
		for _, c := range g.GroupFields {
			group.GroupFields = append(group.GroupFields, c.Source)
			group.Names = append(group.Names, c.Name)
			renamed = renamed || c.Name != c.Source
		}
		if !renamed {
			group.Names = nil
		}
		for _, a := range g.Aggregates {
			group.Aggregates = append(group.Aggregates, queryir.Aggregate{Source: a.Source, Kind: string(a.Kind), Alias: a.Alias})
		}
		d.GroupBy = group
	}
	if j := rv.Join(); j != nil {
		d.Join = &queryir.Join{
			ForeignTable:     j.ForeignTable,
			SourceAttribute:  j.SourceAttribute,
			ForeignAttribute: j.ForeignAttribute,
			Kind:             string(j.Kind),
			ForeignAlias:     j.ForeignAlias,
			ForeignColumns:   convertColumns(j.ForeignColumns),
		}
	}
	return d
}

func convertColumns(cols []delegation.ColumnInfo) []queryir.Column {
	if len(cols) == 0 {
		return nil
	}
	out := make([]queryir.Column, len(cols))
	for i, c := range cols {
		out[i] = queryir.Column{Name: c.Name, Source: c.Source, Distinct: c.Distinct}
	}
	return out
}

func descriptorLiteral(rv *delegation.RetVal) ir.Node {
	return ir.Lit(ir.String(Descriptor(rv).MustEncode()))
}

// FieldSpec converts a resolved field reference.
func FieldSpec(f delegation.FieldRef) queryir.FieldSpec {
	spec := queryir.FieldSpec{Name: f.Name, Function: f.Function}
	if f.Relation != nil {
		spec.Relation = &queryir.Relation{Field: f.Relation.Field, Target: f.Relation.Target, Polymorphic: f.Relation.Polymorphic}
	}
	return spec
}

func fieldLiteral(f delegation.FieldRef) ir.Node {
	return ir.Lit(ir.String(queryir.EncodeFieldSpec(FieldSpec(f))))
}

func predicate(fn string, args ...ir.Node) ir.Node {
	return &ir.Call{Meta: ir.Meta{Type: ir.TypeBoolean}, Func: fn, Args: args}
}

func flatten(fn string, terms []ir.Node) []ir.Node {
	out := make([]ir.Node, 0, len(terms))
	for _, t := range terms {
		if c, ok := t.(*ir.Call); ok && c.Func == fn {
			out = append(out, c.Args...)
			continue
		}
		out = append(out, t)
	}
	return out
}

func blank() ir.Node { return ir.Lit(ir.Blank{}) }
