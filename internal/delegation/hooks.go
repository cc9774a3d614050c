package delegation

import (
	"github.com/roach88/delegation/internal/ir"
	"github.com/roach88/delegation/internal/metadata"
)

// ResultMode selects what a materialized remote query returns.
type ResultMode int

const (
	// ModeTable returns the matching rows.
	ModeTable ResultMode = iota
	// ModeSingle returns the first matching row as a record, or blank.
	ModeSingle
	// ModeCount returns the number of matching rows.
	ModeCount
)

func (m ResultMode) String() string {
	switch m {
	case ModeSingle:
		return "single"
	case ModeCount:
		return "count"
	default:
		return "table"
	}
}

// Relation describes a condition evaluated on a table reached through a
// one-hop lookup navigation.
type Relation struct {
	// Field is the navigation column on the filtered table.
	Field string `json:"field"`
	// Target is the table the navigation points at.
	Target string `json:"target"`
	// Polymorphic is set when the navigation may point at several tables.
	Polymorphic bool `json:"polymorphic,omitempty"`
}

// FieldRef is a successfully resolved field reference.
type FieldRef struct {
	// Name is the source column name on the table the condition runs on:
	// the filtered table, or the relation's target when Relation is set.
	Name string

	// Function is a field-level function applied remotely before comparing,
	// e.g. Year. Empty when none.
	Function string

	// Coercions are the inverse coercions to apply to the value side, in
	// application order.
	Coercions []ir.UnaryOp

	// Relation is non-nil for conditions on a related table.
	Relation *Relation

	// Kind is the column's value kind.
	Kind ir.Kind
}

// Hooks builds backend-specific query nodes. The delegation core decides
// what can be pushed down; Hooks decides how that looks in the tree. Every
// Make* method returns a node the host runtime can evaluate.
//
// Implementations must be safe for concurrent use when the same Hooks value
// is shared between concurrent Compile calls.
type Hooks interface {
	// IsDelegableTable reports whether sym denotes a remote table with at
	// least one delegation capability and returns its metadata.
	IsDelegableTable(sym *ir.Symbol) (*metadata.Table, bool)

	// MakeCompare builds "field op value".
	MakeCompare(op ir.BinaryOp, field FieldRef, value ir.Node) ir.Node

	// MakeAnd and MakeOr build n-ary conjunctions and disjunctions.
	MakeAnd(terms ...ir.Node) ir.Node
	MakeOr(terms ...ir.Node) ir.Node

	// MakeNot negates a condition.
	MakeNot(term ir.Node) ir.Node

	// MakeStartsWith and MakeEndsWith build text prefix and suffix tests.
	MakeStartsWith(field FieldRef, value ir.Node) ir.Node
	MakeEndsWith(field FieldRef, value ir.Node) ir.Node

	// MakeBlankCheck builds "field is blank".
	MakeBlankCheck(field FieldRef) ir.Node

	// MakeRetrieveByID fetches one row by its single-column primary key.
	MakeRetrieveByID(rv *RetVal, id ir.Node) ir.Node

	// MakeRetrieveElastic fetches one row by primary key and partition key.
	MakeRetrieveElastic(rv *RetVal, id, partition ir.Node) ir.Node

	// MakeQueryExecNode turns an accumulated query into an executable node.
	MakeQueryExecNode(rv *RetVal, mode ResultMode) ir.Node
}
