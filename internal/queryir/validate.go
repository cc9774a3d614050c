package queryir

import (
	"fmt"

	"github.com/roach88/delegation/internal/ir"
	"github.com/roach88/delegation/internal/metadata"
)

// ValidationResult contains the capability analysis of a query.
type ValidationResult struct {
	// IsValid indicates that every part of the query uses only operations
	// the catalog declares for the tables and columns involved.
	IsValid bool

	// Problems lists each undeclared operation. Empty when IsValid is true.
	Problems []string
}

// Validate checks a decoded query against the capability catalog.
//
// A query emitted by the delegation rewriter is always valid against the
// catalog it was compiled with; Validate exists so backends and tests can
// verify that nothing undeclared reaches a data source:
//  1. The table and every referenced column exist
//  2. Filter operators, field functions and relations are declared
//  3. Sort, top, distinct, group-by and join are enabled for the table
//  4. Aggregates are declared for their columns
//
// Validate is a pure function with no side effects.
func Validate(q Query, cat *metadata.Catalog) ValidationResult {
	v := &validator{cat: cat, problems: []string{}}
	v.validateQuery(q)
	return ValidationResult{
		IsValid:  len(v.problems) == 0,
		Problems: v.problems,
	}
}

// validator accumulates problems during traversal.
type validator struct {
	cat      *metadata.Catalog
	problems []string
}

func (v *validator) addProblem(format string, args ...any) {
	v.problems = append(v.problems, fmt.Sprintf(format, args...))
}

func (v *validator) validateQuery(q Query) {
	if q == nil {
		v.addProblem("nil query")
		return
	}
	table, ok := v.cat.Lookup(q.TableName())
	if !ok {
		v.addProblem("unknown table %q", q.TableName())
		return
	}

	switch query := q.(type) {
	case *Retrieve:
		if query.Filter != nil {
			if !table.Capabilities.Filter {
				v.addProblem("table %q does not support filter", table.Name)
			}
			v.validatePredicate(table, query.Filter)
		}
		if query.Top != nil {
			if !table.Capabilities.Top {
				v.addProblem("table %q does not support top", table.Name)
			}
			if n, ok := ir.NumberLiteral(query.Top); ok && n < 0 {
				v.addProblem("negative top count %v", n)
			}
		}
		if query.Mode == ModeCount && !table.Capabilities.Count {
			v.addProblem("table %q does not support count", table.Name)
		}
		v.validateDescriptor(table, query.Descriptor)
	case *RetrieveByKey:
		if _, ok := table.SinglePrimaryKey(); !ok {
			v.addProblem("table %q has no single-column primary key", table.Name)
		}
		if (query.Partition != nil) != table.IsElastic() {
			v.addProblem("table %q: partition key mismatch", table.Name)
		}
		v.validateDescriptor(table, query.Descriptor)
	default:
		v.addProblem("unknown query type %T", q)
	}
}

func (v *validator) validateDescriptor(table *metadata.Table, d Descriptor) {
	for _, o := range d.OrderBy {
		if !table.SupportsSort(o.Field) {
			v.addProblem("column %s.%s is not sortable", table.Name, o.Field)
		}
	}
	distinct := 0
	for _, c := range d.Columns {
		if _, ok := table.Column(c.Source); !ok {
			v.addProblem("unknown column %s.%s", table.Name, c.Source)
		}
		if c.Distinct {
			distinct++
		}
	}
	if distinct > 0 && !table.Capabilities.Distinct {
		v.addProblem("table %q does not support distinct", table.Name)
	}
	if distinct > 1 {
		v.addProblem("more than one distinct column")
	}
	if g := d.GroupBy; g != nil {
		if len(g.Names) > 0 && len(g.Names) != len(g.GroupFields) {
			v.addProblem("%d group names for %d group fields", len(g.Names), len(g.GroupFields))
		}
		for _, f := range g.GroupFields {
			if !table.SupportsGroupBy(f) {
				v.addProblem("column %s.%s is not groupable", table.Name, f)
			}
		}
		for _, a := range g.Aggregates {
			if !table.SupportsAggregate(a.Source, metadata.AggregateKind(a.Kind)) {
				v.addProblem("aggregate %s of %s.%s is not supported", a.Kind, table.Name, a.Source)
			}
		}
	}
	if j := d.Join; j != nil {
		v.validateJoin(table, j)
	}
}

func (v *validator) validateJoin(table *metadata.Table, j *Join) {
	foreign, ok := v.cat.Lookup(j.ForeignTable)
	if !ok {
		v.addProblem("unknown join table %q", j.ForeignTable)
		return
	}
	if !table.Capabilities.Join || !foreign.Capabilities.Join {
		v.addProblem("join of %q and %q is not supported", table.Name, foreign.Name)
	}
	if table.Source != foreign.Source {
		v.addProblem("join across data sources %q and %q", table.Source, foreign.Source)
	}
	if _, ok := table.Column(j.SourceAttribute); !ok {
		v.addProblem("unknown column %s.%s", table.Name, j.SourceAttribute)
	}
	if _, ok := foreign.Column(j.ForeignAttribute); !ok {
		v.addProblem("unknown column %s.%s", foreign.Name, j.ForeignAttribute)
	}
	for _, c := range j.ForeignColumns {
		if _, ok := foreign.Column(c.Source); !ok {
			v.addProblem("unknown column %s.%s", foreign.Name, c.Source)
		}
	}
}

func (v *validator) validatePredicate(table *metadata.Table, p Predicate) {
	switch pred := p.(type) {
	case *Compare:
		v.validateField(table, pred.Field, metadata.FilterOp(pred.Op))
	case *IsNull:
		v.validateField(table, pred.Field, metadata.OpNull)
	case *TextMatch:
		op, fn := metadata.OpStartsWith, metadata.FuncStartsWith
		if pred.Suffix {
			op, fn = metadata.OpEndsWith, metadata.FuncEndsWith
		}
		v.validateField(table, FieldSpec{Name: pred.Field.Name, Function: fn, Relation: pred.Field.Relation}, op)
	case *And:
		v.validateConnective(table, metadata.OpAnd, pred.Predicates)
	case *Or:
		v.validateConnective(table, metadata.OpOr, pred.Predicates)
	case *Not:
		if !table.Capabilities.SupportsOperator(metadata.OpNot) {
			v.addProblem("table %q does not support not", table.Name)
		}
		v.validatePredicate(table, pred.Predicate)
	default:
		v.addProblem("unknown predicate type %T", p)
	}
}

func (v *validator) validateConnective(table *metadata.Table, op metadata.FilterOp, preds []Predicate) {
	if !table.Capabilities.SupportsOperator(op) {
		v.addProblem("table %q does not support %s", table.Name, op)
	}
	for _, p := range preds {
		v.validatePredicate(table, p)
	}
}

func (v *validator) validateField(table *metadata.Table, f FieldSpec, op metadata.FilterOp) {
	target := table
	if f.Relation != nil {
		rel, ok := table.Relationship(f.Relation.Field)
		if !ok || rel.TargetTable() == nil {
			v.addProblem("unknown relationship %s.%s", table.Name, f.Relation.Field)
			return
		}
		target = rel.TargetTable()
	}
	if !target.SupportsFilter(f.Name, op) {
		v.addProblem("filter %s on %s.%s is not supported", op, target.Name, f.Name)
	}
	if f.Function != "" && !target.SupportsFunction(f.Name, f.Function) {
		v.addProblem("function %s on %s.%s is not supported", f.Function, target.Name, f.Name)
	}
}
