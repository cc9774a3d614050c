package delegation

import "github.com/roach88/delegation/internal/ir"

// Materialize turns a visit result into a node. A non-delegating value is
// its node; a delegating accumulator with nothing accumulated is the table
// reference itself; anything else becomes a remote query node returning
// rows.
func Materialize(rv *RetVal) ir.Node {
	if !rv.IsDelegating() || rv.IsBare() {
		return rv.OriginalNode()
	}
	mode := ModeTable
	if rv.ReturnsRowCount() {
		mode = ModeCount
	}
	return rv.hooks.MakeQueryExecNode(rv, mode)
}

func (r *rewriter) materialize(rv *RetVal) ir.Node {
	if rv.IsDelegating() && !rv.IsBare() {
		r.delegated = true
	}
	return Materialize(rv)
}

// materializeAs builds a query node in the given mode and returns it as a
// non-delegating value; the result is a record or a number, not a table.
func (r *rewriter) materializeAs(rv *RetVal, mode ResultMode) *RetVal {
	r.delegated = true
	return NonDelegating(rv.hooks.MakeQueryExecNode(rv, mode))
}
