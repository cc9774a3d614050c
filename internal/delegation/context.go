package delegation

import "github.com/roach88/delegation/internal/ir"

type frameKind int

const (
	frameRow frameKind = iota
	frameBinding
)

// scopeFrame is one entry of the persistent scope chain. Frames are never
// mutated after creation, so contexts that share a tail stay independent.
type scopeFrame struct {
	id    ir.ScopeID
	kind  frameKind
	table *RetVal
	// values holds With bindings already rewritten into local nodes. Only
	// bindings of a With nested inside a predicate are recorded; they are
	// inlined into the value side of remote conditions.
	values map[string]ir.Node
	next   *scopeFrame
}

// Context carries what the visitor knows about the enclosing call while it
// walks a subtree: the table-consuming call whose predicate is being
// translated, the accumulator of its table argument, the lambda scope that
// binds the table's rows, and the chain of enclosing scopes.
//
// Context is a value; With* methods return an extended copy.
type Context struct {
	caller      *ir.Call
	callerTable *RetVal
	rowScope    ir.ScopeID
	scopes      *scopeFrame
	suppress    bool
}

// Caller returns the call whose arguments are being translated.
func (c Context) Caller() *ir.Call { return c.caller }

// CallerTable returns the accumulator of the caller's table argument.
func (c Context) CallerTable() *RetVal { return c.callerTable }

// RowScope returns the scope whose record is the caller table's row.
func (c Context) RowScope() ir.ScopeID { return c.rowScope }

// Suppressed reports whether delegation is disabled for this subtree.
func (c Context) Suppressed() bool { return c.suppress }

// WithCaller enters the predicate of call, whose rows of table are bound
// to scope.
func (c Context) WithCaller(call *ir.Call, table *RetVal, scope ir.ScopeID) Context {
	c.caller = call
	c.callerTable = table
	c.rowScope = scope
	c.scopes = &scopeFrame{id: scope, kind: frameRow, table: table, next: c.scopes}
	return c
}

// WithBindings enters the body of a With whose bindings are bound to scope.
// values is nil when the bindings stay in place and are not inlined.
func (c Context) WithBindings(scope ir.ScopeID, values map[string]ir.Node) Context {
	c.scopes = &scopeFrame{id: scope, kind: frameBinding, values: values, next: c.scopes}
	return c
}

// WithoutCaller leaves predicate translation, e.g. to rewrite the value side
// of a comparison as an ordinary expression. Enclosing scopes stay visible.
func (c Context) WithoutCaller() Context {
	c.caller = nil
	c.callerTable = nil
	c.rowScope = 0
	return c
}

// Suppress disables delegation for the subtree, used for the target of a
// mutation function.
func (c Context) Suppress() Context {
	c.suppress = true
	return c
}

func (c Context) lookup(id ir.ScopeID) (*scopeFrame, bool) {
	for f := c.scopes; f != nil; f = f.next {
		if f.id == id {
			return f, true
		}
	}
	return nil, false
}

// binding returns the rewritten node bound to name in With scope id.
func (c Context) binding(id ir.ScopeID, name string) (ir.Node, bool) {
	f, ok := c.lookup(id)
	if !ok || f.kind != frameBinding {
		return nil, false
	}
	v, ok := f.values[name]
	return v, ok
}
