package queryir

import "github.com/roach88/delegation/internal/ir"

// Query represents a decoded remote query.
//
// This is a sealed interface - only types in this package implement it.
// The marker method pattern prevents external implementations and enables
// exhaustive type switches in backend compilers.
//
// Query types:
//   - Retrieve: filtered, ordered, capped, projected, grouped or joined rows
//   - RetrieveByKey: one row addressed by primary key (and partition)
type Query interface {
	queryNode() // Marker method - seals interface to this package
	TableName() string
}

// Predicate represents a remote filter condition.
//
// This is a sealed interface - only types in this package implement it.
//
// Predicate types:
//   - Compare: field op value
//   - IsNull: field is blank
//   - TextMatch: field starts or ends with value
//   - And, Or: n-ary connectives
//   - Not: negation (the rewriter only negates IsNull)
type Predicate interface {
	predicateNode() // Marker method - seals interface to this package
}

// Mode selects what a Retrieve returns.
type Mode string

const (
	ModeRows   Mode = "rows"
	ModeSingle Mode = "single"
	ModeCount  Mode = "count"
)

// Retrieve is an accumulated query over one remote table.
//
// Semantics:
//
//	SELECT <columns | group fields, aggregates> FROM <table> [JOIN <foreign>]
//	WHERE <filter> ORDER BY <order> LIMIT <top | max rows>
//
// Example:
//
//	Retrieve{
//	  Table:  "Accounts",
//	  Mode:   ModeRows,
//	  Filter: &Compare{Op: OpGt, Field: FieldSpec{Name: "Revenue"}, Value: <100>},
//	  Descriptor: Descriptor{OrderBy: []Order{{Field: "Name"}}, MaxRows: 500},
//	}
//
// Translates to SQL:
//
//	SELECT * FROM Accounts WHERE Revenue > ? ORDER BY Name LIMIT 500
//
// Top is a value expression (a literal or a local variable); nil means the
// MaxRows limit applies.
type Retrieve struct {
	Table  string
	Mode   Mode
	Filter Predicate
	Top    ir.Node
	Descriptor
}

func (*Retrieve) queryNode() {}

// TableName returns the queried table.
func (q *Retrieve) TableName() string { return q.Table }

// RetrieveByKey fetches one row by primary key. Partition is set for
// elastic tables, whose rows are addressed by (id, partition).
type RetrieveByKey struct {
	Table     string
	ID        ir.Node
	Partition ir.Node
	Descriptor
}

func (*RetrieveByKey) queryNode() {}

// TableName returns the queried table.
func (q *RetrieveByKey) TableName() string { return q.Table }

// Op is a comparison operator.
type Op string

const (
	OpEq Op = "eq"
	OpNe Op = "ne"
	OpLt Op = "lt"
	OpLe Op = "le"
	OpGt Op = "gt"
	OpGe Op = "ge"
)

// Relation names the navigation a condition is evaluated through.
type Relation struct {
	Field       string `json:"field"`
	Target      string `json:"target"`
	Polymorphic bool   `json:"polymorphic,omitempty"`
}

// FieldSpec identifies the column a condition tests.
//
// Function applies a field-level function (Year, Month, ...) before the
// test. Relation is set when the column lives on the table reached through
// a lookup navigation; Name is then a column of Relation.Target.
type FieldSpec struct {
	Name     string    `json:"name"`
	Function string    `json:"function,omitempty"`
	Relation *Relation `json:"relation,omitempty"`
}

// Compare represents "field op value".
//
// Value is a local expression evaluated once before the query runs:
// a literal, a variable, a coercion of either, or a nested query node.
type Compare struct {
	Op    Op
	Field FieldSpec
	Value ir.Node
}

func (*Compare) predicateNode() {}

// IsNull represents "field is blank".
type IsNull struct {
	Field FieldSpec
}

func (*IsNull) predicateNode() {}

// TextMatch represents StartsWith (Suffix false) or EndsWith (Suffix true).
type TextMatch struct {
	Field  FieldSpec
	Value  ir.Node
	Suffix bool
}

func (*TextMatch) predicateNode() {}

// And is a conjunction.
type And struct {
	Predicates []Predicate
}

func (*And) predicateNode() {}

// Or is a disjunction.
type Or struct {
	Predicates []Predicate
}

func (*Or) predicateNode() {}

// Not negates a predicate.
type Not struct {
	Predicate Predicate
}

func (*Not) predicateNode() {}
