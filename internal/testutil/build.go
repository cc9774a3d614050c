package testutil

import (
	"time"

	"github.com/roach88/delegation/internal/ir"
)

// Table returns a data-source symbol.
func Table(name string) *ir.Symbol {
	return &ir.Symbol{Name: name, Kind: ir.SymbolDataSource}
}

// Var returns a variable symbol.
func Var(name string) *ir.Symbol {
	return &ir.Symbol{Name: name, Kind: ir.SymbolVariable}
}

// Enum returns an enum member symbol such as "SortOrder.Descending".
func Enum(name string) *ir.Symbol {
	return &ir.Symbol{Name: name, Kind: ir.SymbolEnum}
}

// Str returns a string literal.
func Str(s string) *ir.Literal { return ir.Lit(ir.String(s)) }

// Num returns a number literal.
func Num(f float64) *ir.Literal { return ir.Lit(ir.Number(f)) }

// Bool returns a boolean literal.
func Bool(b bool) *ir.Literal { return ir.Lit(ir.Bool(b)) }

// Blank returns the Blank() literal.
func Blank() *ir.Literal { return ir.Lit(ir.Blank{}) }

// Date returns a date literal.
func Date(year int, month time.Month, day int) *ir.Literal {
	return ir.Lit(ir.NewDate(year, month, day))
}

// Call returns a function call.
func Call(fn string, args ...ir.Node) *ir.Call {
	return &ir.Call{Func: fn, Args: args}
}

// Lambda returns a lambda introducing scope.
func Lambda(scope ir.ScopeID, body ir.Node) *ir.Lambda {
	return &ir.Lambda{Scope: scope, Body: body}
}

// Field returns a reference to a field of the record bound by scope.
func Field(scope ir.ScopeID, name string) *ir.ScopeRef {
	return &ir.ScopeRef{Scope: scope, Field: name}
}

// ThisRecord returns a reference to the whole record bound by scope.
func ThisRecord(scope ir.ScopeID) *ir.ScopeRef {
	return &ir.ScopeRef{Scope: scope}
}

// Access returns from.field.
func Access(from ir.Node, field string) *ir.FieldAccess {
	return &ir.FieldAccess{From: from, Field: field}
}

// Bin returns a binary operator application.
func Bin(op ir.BinaryOp, left, right ir.Node) *ir.Binary {
	return &ir.Binary{Meta: ir.Meta{Type: ir.TypeBoolean}, Op: op, Left: left, Right: right}
}

// Eq returns left = right.
func Eq(left, right ir.Node) *ir.Binary { return Bin(ir.OpEq, left, right) }

// Ne returns left <> right.
func Ne(left, right ir.Node) *ir.Binary { return Bin(ir.OpNotEq, left, right) }

// Lt returns left < right.
func Lt(left, right ir.Node) *ir.Binary { return Bin(ir.OpLt, left, right) }

// Gt returns left > right.
func Gt(left, right ir.Node) *ir.Binary { return Bin(ir.OpGt, left, right) }

// Ge returns left >= right.
func Ge(left, right ir.Node) *ir.Binary { return Bin(ir.OpGe, left, right) }

// Coerce wraps n in a unary operator.
func Coerce(op ir.UnaryOp, n ir.Node) *ir.Unary {
	return &ir.Unary{Op: op, Operand: n}
}

// Named returns one record literal field.
func Named(name string, value ir.Node) ir.NamedNode {
	return ir.NamedNode{Name: name, Value: value}
}

// Rec returns a record literal.
func Rec(fields ...ir.NamedNode) *ir.Record {
	return &ir.Record{Fields: fields}
}

// As returns "value As name".
func As(value ir.Node, name string) *ir.Alias {
	return &ir.Alias{Value: value, Name: name}
}

// At sets the span of a call and returns it.
func At(c *ir.Call, start, end int) *ir.Call {
	c.Span = ir.Span{Start: start, End: end}
	return c
}
