package delegation

import (
	"math"

	"github.com/roach88/delegation/internal/ir"
	"github.com/roach88/delegation/internal/metadata"
)

// OrderItem is one sort key of a remote query.
type OrderItem struct {
	// Field is the source column name.
	Field      string `json:"field"`
	Descending bool   `json:"descending,omitempty"`
}

// RetVal is the result of visiting a node: either a plain rewritten node
// (non-delegating) or an accumulated remote query over a delegable table.
//
// RetVal is immutable. Every Add* method returns a new value and leaves the
// receiver untouched, so a processor can try a composition and fall back to
// the original accumulator when the composition is rejected.
type RetVal struct {
	delegating bool
	node       ir.Node
	hooks      Hooks

	table     *metadata.Table
	tableType ir.Type
	maxRows   int

	filter    ir.Node
	orderBy   []OrderItem
	top       ir.Node
	columns   *ColumnMap
	groupBy   *GroupByNode
	join      *JoinNode
	countOnly bool
}

// NonDelegating wraps a rewritten node that is evaluated locally.
func NonDelegating(node ir.Node) *RetVal {
	return &RetVal{node: node}
}

// New creates a bare delegating accumulator for the table denoted by node.
// The effective row limit is the table's own limit when it declares one.
func New(node ir.Node, table *metadata.Table, hooks Hooks, maxRows int) *RetVal {
	if table.MaxRows > 0 {
		maxRows = table.MaxRows
	}
	return &RetVal{
		delegating: true,
		node:       node,
		hooks:      hooks,
		table:      table,
		tableType:  table.Type(),
		maxRows:    maxRows,
	}
}

// IsDelegating reports whether the value is an accumulated remote query.
func (rv *RetVal) IsDelegating() bool { return rv.delegating }

// OriginalNode returns the node this value was built from. For a
// non-delegating value it is the rewritten node itself.
func (rv *RetVal) OriginalNode() ir.Node { return rv.node }

// SourceTableNode returns the node denoting the remote table.
func (rv *RetVal) SourceTableNode() ir.Node {
	if !rv.delegating {
		return nil
	}
	return rv.node
}

// Metadata returns the remote table's metadata.
func (rv *RetVal) Metadata() *metadata.Table { return rv.table }

// TableType returns the schema of the rows the query produces.
func (rv *RetVal) TableType() ir.Type { return rv.tableType }

// MaxRows returns the row limit applied when the query is unbounded.
func (rv *RetVal) MaxRows() int { return rv.maxRows }

// Filter returns the accumulated remote predicate, or nil.
func (rv *RetVal) Filter() ir.Node { return rv.filter }

// OrderBy returns the sort keys, most significant first.
func (rv *RetVal) OrderBy() []OrderItem { return append([]OrderItem(nil), rv.orderBy...) }

// TopCount returns the row cap node, or nil.
func (rv *RetVal) TopCount() ir.Node { return rv.top }

// Columns returns the projection, or nil when every column is returned.
func (rv *RetVal) Columns() *ColumnMap { return rv.columns }

// GroupBy returns the grouping descriptor, or nil.
func (rv *RetVal) GroupBy() *GroupByNode { return rv.groupBy }

// Join returns the join descriptor, or nil.
func (rv *RetVal) Join() *JoinNode { return rv.join }

// ReturnsRowCount reports whether the query was reduced to a row count.
func (rv *RetVal) ReturnsRowCount() bool { return rv.countOnly }

// IsElasticTable reports whether rows are addressed by id and partition.
func (rv *RetVal) IsElasticTable() bool { return rv.table != nil && rv.table.IsElastic() }

// PrimaryKeyFieldName returns the single-column primary key.
func (rv *RetVal) PrimaryKeyFieldName() (string, bool) {
	if rv.table == nil {
		return "", false
	}
	return rv.table.SinglePrimaryKey()
}

// IsBare reports whether nothing has been accumulated yet.
func (rv *RetVal) IsBare() bool {
	return rv.delegating && rv.filter == nil && len(rv.orderBy) == 0 && rv.top == nil &&
		rv.columns == nil && rv.groupBy == nil && rv.join == nil && !rv.countOnly
}

// isProjectionOnly reports whether at most a plain column projection has
// been accumulated, so a row fetched by key still matches the query.
func (rv *RetVal) isProjectionOnly() bool {
	return rv.delegating && rv.filter == nil && len(rv.orderBy) == 0 && rv.top == nil &&
		rv.groupBy == nil && rv.join == nil && !rv.countOnly && !rv.hasDistinct()
}

// IsBounded reports whether materializing the query cannot exceed the row
// limit: it returns a count or a literal top count within the limit.
func (rv *RetVal) IsBounded() bool {
	if rv.countOnly {
		return true
	}
	n, ok := ir.NumberLiteral(rv.top)
	return ok && n <= float64(rv.maxRows)
}

func (rv *RetVal) hasDistinct() bool { return rv.columns.HasDistinct() }

// SourceName maps an output column name to its source column. Distinct
// columns and names the query does not expose have no source.
func (rv *RetVal) SourceName(name string) (string, bool) {
	if rv.groupBy != nil || rv.join != nil {
		return "", false
	}
	if rv.columns == nil {
		if _, ok := rv.tableType.FieldByName(name); !ok {
			return "", false
		}
		return name, true
	}
	col, ok := rv.columns.Lookup(name)
	if !ok || col.Distinct {
		return "", false
	}
	return col.Source, true
}

func (rv *RetVal) clone() *RetVal {
	cp := *rv
	return &cp
}

// AddFilter conjoins pred with the existing filter. A filter cannot follow a
// row cap, a distinct projection, a grouping or a join.
func (rv *RetVal) AddFilter(pred ir.Node) (*RetVal, bool) {
	if !rv.delegating || rv.countOnly || rv.top != nil || rv.hasDistinct() || rv.groupBy != nil || rv.join != nil {
		return rv, false
	}
	out := rv.clone()
	if rv.filter == nil {
		out.filter = pred
	} else {
		if !rv.table.Capabilities.SupportsOperator(metadata.OpAnd) {
			return rv, false
		}
		out.filter = rv.hooks.MakeAnd(rv.filter, pred)
	}
	return out, true
}

// AddOrderBy makes items the most significant sort keys. Existing keys on
// the same fields are dropped, so re-sorting by a column moves it first.
func (rv *RetVal) AddOrderBy(items []OrderItem) (*RetVal, bool) {
	if !rv.delegating || rv.countOnly || rv.top != nil || rv.hasDistinct() || rv.groupBy != nil || rv.join != nil || len(items) == 0 {
		return rv, false
	}
	out := rv.clone()
	merged := append([]OrderItem(nil), items...)
	for _, old := range rv.orderBy {
		dup := false
		for _, it := range items {
			if it.Field == old.Field {
				dup = true
				break
			}
		}
		if !dup {
			merged = append(merged, old)
		}
	}
	out.orderBy = merged
	return out, true
}

// AddTopCount caps the number of rows. A literal cap must be a
// non-negative whole number. Two literal caps combine to the smaller one; a
// computed cap cannot be combined with an existing one.
func (rv *RetVal) AddTopCount(n ir.Node) (*RetVal, bool) {
	if !rv.delegating || rv.countOnly || rv.groupBy != nil {
		return rv, false
	}
	next, literal := ir.NumberLiteral(n)
	if literal && (next < 0 || next != math.Trunc(next)) {
		return rv, false
	}
	out := rv.clone()
	if rv.top == nil {
		out.top = n
		return out, true
	}
	prev, ok := ir.NumberLiteral(rv.top)
	if !ok || !literal {
		return rv, false
	}
	if next < prev {
		out.top = n
	}
	return out, true
}

// AddColumns composes a projection over the current output columns.
func (rv *RetVal) AddColumns(cols *ColumnMap) (*RetVal, bool) {
	if !rv.delegating || rv.countOnly || rv.groupBy != nil || rv.join != nil || cols == nil {
		return rv, false
	}
	for _, c := range cols.Columns() {
		if _, ok := rv.tableType.FieldByName(c.Source); !ok {
			return rv, false
		}
	}
	out := rv.clone()
	out.columns = rv.columns.Merge(cols)
	out.tableType = projectType(rv.tableType, cols)
	return out, true
}

// AddDistinct reduces the rows to the distinct values of the output column
// field, exposed as the single column "Value".
func (rv *RetVal) AddDistinct(field string) (*RetVal, bool) {
	if !rv.delegating || rv.countOnly || rv.top != nil || len(rv.orderBy) > 0 || rv.hasDistinct() || rv.groupBy != nil || rv.join != nil {
		return rv, false
	}
	if _, ok := rv.SourceName(field); !ok {
		return rv, false
	}
	cols, _ := NewColumnMap(ColumnInfo{Name: DistinctColumn, Source: field, Distinct: true})
	return rv.AddColumns(cols)
}

// AddGroupBy turns the query into a grouped aggregation. Group key sources
// and aggregate fields must already be source names.
func (rv *RetVal) AddGroupBy(g *GroupByNode) (*RetVal, bool) {
	if !rv.delegating || rv.countOnly || rv.groupBy != nil || len(rv.orderBy) > 0 || rv.top != nil || rv.hasDistinct() || rv.join != nil {
		return rv, false
	}
	out := rv.clone()
	out.groupBy = g
	out.columns = nil
	out.tableType = groupType(rv.table, g)
	return out, true
}

// AddJoin joins the bare accumulator with a bare foreign accumulator.
func (rv *RetVal) AddJoin(j *JoinNode, foreign *RetVal) (*RetVal, bool) {
	if !rv.IsBare() || !foreign.IsBare() {
		return rv, false
	}
	out := rv.clone()
	out.join = j
	fields := append([]ir.Field(nil), rv.tableType.Fields...)
	for _, c := range j.ForeignColumns {
		f, _ := foreign.tableType.FieldByName(c.Source)
		fields = append(fields, ir.Field{Name: c.Name, Type: f.Type})
	}
	out.tableType = ir.TableOf(fields...)
	return out, true
}

// TryAddReturnRowCount reduces the query to a count of its rows. Column
// projections do not affect the count and are dropped.
func (rv *RetVal) TryAddReturnRowCount() (*RetVal, bool) {
	if !rv.delegating || rv.countOnly || rv.top != nil || rv.hasDistinct() || rv.groupBy != nil || rv.join != nil {
		return rv, false
	}
	out := rv.clone()
	out.countOnly = true
	out.columns = nil
	out.orderBy = nil
	out.tableType = ir.TypeNumber
	return out, true
}

// DistinctColumn is the output column of a distinct projection.
const DistinctColumn = "Value"

func projectType(t ir.Type, cols *ColumnMap) ir.Type {
	fields := make([]ir.Field, 0, cols.Len())
	for _, c := range cols.Columns() {
		f, _ := t.FieldByName(c.Source)
		fields = append(fields, ir.Field{Name: c.Name, Type: f.Type})
	}
	return ir.TableOf(fields...)
}

func groupType(table *metadata.Table, g *GroupByNode) ir.Type {
	full := table.Type()
	fields := make([]ir.Field, 0, len(g.GroupFields)+len(g.Aggregates))
	for _, c := range g.GroupFields {
		f, _ := full.FieldByName(c.Source)
		fields = append(fields, ir.Field{Name: c.Name, Type: f.Type})
	}
	for _, a := range g.Aggregates {
		typ := ir.TypeNumber
		if a.Kind == metadata.AggMin || a.Kind == metadata.AggMax {
			if f, ok := full.FieldByName(a.Source); ok {
				typ = f.Type
			}
		}
		fields = append(fields, ir.Field{Name: a.Alias, Type: typ})
	}
	return ir.TableOf(fields...)
}
