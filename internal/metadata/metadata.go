// Package metadata describes remote tables and what each of them can
// evaluate on the server side.
//
// The delegation compiler never talks to a data source; it only asks the
// questions in this package ("is this column filterable", "does this table
// have a single-column primary key", "where does this lookup field point").
// A Catalog is built once (usually by internal/compiler from CUE specs) and
// is read-only afterwards, so it may be shared between concurrent compiles.
package metadata

import (
	"fmt"
	"slices"

	"github.com/roach88/delegation/internal/ir"
)

// Field-level functions a column may support remotely.
const (
	FuncStartsWith = "StartsWith"
	FuncEndsWith   = "EndsWith"
	FuncYear       = "Year"
	FuncMonth      = "Month"
	FuncDay        = "Day"
	FuncHour       = "Hour"
	FuncMinute     = "Minute"
	FuncSecond     = "Second"
)

// FieldFunctions is the closed set of recognised field-level functions.
var FieldFunctions = []string{
	FuncStartsWith, FuncEndsWith,
	FuncYear, FuncMonth, FuncDay, FuncHour, FuncMinute, FuncSecond,
}

// IsDatePart reports whether fn extracts a component of a date or time.
func IsDatePart(fn string) bool {
	switch fn {
	case FuncYear, FuncMonth, FuncDay, FuncHour, FuncMinute, FuncSecond:
		return true
	}
	return false
}

// FilterOp names a remotely evaluable filter operator.
type FilterOp string

const (
	OpEq         FilterOp = "eq"
	OpNe         FilterOp = "ne"
	OpLt         FilterOp = "lt"
	OpLe         FilterOp = "le"
	OpGt         FilterOp = "gt"
	OpGe         FilterOp = "ge"
	OpAnd        FilterOp = "and"
	OpOr         FilterOp = "or"
	OpNot        FilterOp = "not"
	OpNull       FilterOp = "null"
	OpStartsWith FilterOp = "startswith"
	OpEndsWith   FilterOp = "endswith"
)

// AllFilterOps lists every filter operator in canonical order.
var AllFilterOps = []FilterOp{
	OpEq, OpNe, OpLt, OpLe, OpGt, OpGe, OpAnd, OpOr, OpNot, OpNull, OpStartsWith, OpEndsWith,
}

// FilterOpFor maps a comparison operator to its filter capability name.
func FilterOpFor(op ir.BinaryOp) (FilterOp, bool) {
	switch op {
	case ir.OpEq:
		return OpEq, true
	case ir.OpNotEq:
		return OpNe, true
	case ir.OpLt:
		return OpLt, true
	case ir.OpLe:
		return OpLe, true
	case ir.OpGt:
		return OpGt, true
	case ir.OpGe:
		return OpGe, true
	}
	return "", false
}

// AggregateKind names a server-side aggregation.
type AggregateKind string

const (
	AggSum       AggregateKind = "sum"
	AggAverage   AggregateKind = "average"
	AggMin       AggregateKind = "min"
	AggMax       AggregateKind = "max"
	AggCount     AggregateKind = "count"
	AggCountRows AggregateKind = "countrows"
)

// Capabilities are the table-level delegation switches.
type Capabilities struct {
	Filter          bool
	Sort            bool
	Top             bool
	Count           bool
	Distinct        bool
	Summarize       bool
	Join            bool
	FilterOperators []FilterOp
}

// Any reports whether at least one operation can run remotely.
func (c Capabilities) Any() bool {
	return c.Filter || c.Sort || c.Top || c.Count || c.Distinct || c.Summarize || c.Join
}

// SupportsOperator reports whether op may appear in a remote filter.
func (c Capabilities) SupportsOperator(op FilterOp) bool {
	return c.Filter && slices.Contains(c.FilterOperators, op)
}

// Column describes one remote column and its per-field capabilities.
type Column struct {
	Name       string
	Kind       ir.Kind
	Filterable bool
	Sortable   bool
	Groupable  bool
	Aggregates []AggregateKind
	Functions  []string
}

// Relationship is a one-hop foreign-key navigation from a lookup column.
type Relationship struct {
	// Field is the navigation column on the source table.
	Field string
	// Target is the referenced table's name.
	Target string
	// TargetKey is the referenced column, normally the target's primary key.
	TargetKey string
	// LocalKey is the foreign-key attribute stored on the source table.
	LocalKey string
	// Polymorphic marks navigations that may point at several tables.
	Polymorphic bool

	target *Table
}

// TargetTable returns the linked target table, or nil before Catalog.Link.
func (r Relationship) TargetTable() *Table { return r.target }

// Table is the metadata of one remote table.
type Table struct {
	Name          string
	Source        string
	Columns       []Column
	PrimaryKey    []string
	PartitionKey  string
	MaxRows       int
	Capabilities  Capabilities
	Relationships []Relationship
}

// Column returns the column with the given name.
func (t *Table) Column(name string) (Column, bool) {
	for _, c := range t.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return Column{}, false
}

// Relationship returns the navigation metadata of a lookup column.
func (t *Table) Relationship(field string) (Relationship, bool) {
	for _, r := range t.Relationships {
		if r.Field == field {
			return r, true
		}
	}
	return Relationship{}, false
}

// IsElastic reports whether rows are addressed by (id, partition).
func (t *Table) IsElastic() bool { return t.PartitionKey != "" }

// RowKey returns the columns that identify a row: the primary key, then
// the partition key of an elastic table.
func (t *Table) RowKey() []string {
	key := append([]string(nil), t.PrimaryKey...)
	if t.IsElastic() && !slices.Contains(key, t.PartitionKey) {
		key = append(key, t.PartitionKey)
	}
	return key
}

// SinglePrimaryKey returns the primary key column when the key has exactly
// one column.
func (t *Table) SinglePrimaryKey() (string, bool) {
	if len(t.PrimaryKey) != 1 {
		return "", false
	}
	return t.PrimaryKey[0], true
}

// SupportsFilter reports whether column field may be compared with op.
func (t *Table) SupportsFilter(field string, op FilterOp) bool {
	col, ok := t.Column(field)
	if !ok || !col.Filterable {
		return false
	}
	return t.Capabilities.SupportsOperator(op)
}

// SupportsSort reports whether column field may be ordered remotely.
func (t *Table) SupportsSort(field string) bool {
	if !t.Capabilities.Sort {
		return false
	}
	col, ok := t.Column(field)
	return ok && col.Sortable
}

// SupportsFunction reports whether fn may be applied to field remotely.
func (t *Table) SupportsFunction(field, fn string) bool {
	col, ok := t.Column(field)
	if !ok || !col.Filterable {
		return false
	}
	return slices.Contains(col.Functions, fn)
}

// SupportsGroupBy reports whether field may be a grouping key.
func (t *Table) SupportsGroupBy(field string) bool {
	if !t.Capabilities.Summarize {
		return false
	}
	col, ok := t.Column(field)
	return ok && col.Groupable
}

// SupportsAggregate reports whether kind may be computed over field.
func (t *Table) SupportsAggregate(field string, kind AggregateKind) bool {
	if !t.Capabilities.Summarize {
		return false
	}
	if kind == AggCountRows {
		return true
	}
	col, ok := t.Column(field)
	return ok && slices.Contains(col.Aggregates, kind)
}

// Type returns the exposed schema of the table as an IR table type.
// Lookup columns are typed as records of their target's columns once the
// catalog is linked.
func (t *Table) Type() ir.Type {
	return t.typeAtDepth(1)
}

func (t *Table) typeAtDepth(depth int) ir.Type {
	fields := make([]ir.Field, 0, len(t.Columns))
	for _, c := range t.Columns {
		ft := ir.Type{Kind: c.Kind}
		if c.Kind == ir.KindRecord {
			ft = ir.RecordOf()
			if rel, ok := t.Relationship(c.Name); ok && rel.target != nil && depth > 0 {
				ft = rel.target.typeAtDepth(depth - 1).ToRecord()
			}
		}
		fields = append(fields, ir.Field{Name: c.Name, Type: ft})
	}
	return ir.TableOf(fields...)
}

// Catalog is a registry of tables keyed by name.
type Catalog struct {
	tables map[string]*Table
	order  []string
}

// NewCatalog creates a catalog from tables. Duplicate names are an error.
func NewCatalog(tables ...*Table) (*Catalog, error) {
	c := &Catalog{tables: make(map[string]*Table, len(tables))}
	for _, t := range tables {
		if err := c.Add(t); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Add registers a table.
func (c *Catalog) Add(t *Table) error {
	if t == nil || t.Name == "" {
		return fmt.Errorf("table name is required")
	}
	if _, exists := c.tables[t.Name]; exists {
		return fmt.Errorf("duplicate table %q", t.Name)
	}
	c.tables[t.Name] = t
	c.order = append(c.order, t.Name)
	return nil
}

// Lookup returns the table with the given name.
func (c *Catalog) Lookup(name string) (*Table, bool) {
	if c == nil {
		return nil, false
	}
	t, ok := c.tables[name]
	return t, ok
}

// Tables returns all tables in registration order.
func (c *Catalog) Tables() []*Table {
	out := make([]*Table, 0, len(c.order))
	for _, name := range c.order {
		out = append(out, c.tables[name])
	}
	return out
}

// Link resolves every relationship's target table. It must be called once
// after all tables are added and before the catalog is used.
func (c *Catalog) Link() error {
	for _, name := range c.order {
		t := c.tables[name]
		for i := range t.Relationships {
			rel := &t.Relationships[i]
			target, ok := c.tables[rel.Target]
			if !ok {
				return fmt.Errorf("table %q: relationship %q targets unknown table %q", t.Name, rel.Field, rel.Target)
			}
			rel.target = target
		}
	}
	return nil
}
