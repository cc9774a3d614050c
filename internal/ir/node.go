package ir

import "fmt"

// Span is a half-open byte range [Start, End) in the formula source text.
type Span struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// String renders the span as "start:end".
func (s Span) String() string {
	return fmt.Sprintf("%d:%d", s.Start, s.End)
}

// Meta holds the binder-assigned facts shared by every node.
type Meta struct {
	Span Span
	Type Type
}

// Info returns the node's span and type.
func (m Meta) Info() Meta { return m }

// Node is a sealed interface representing one IR node.
//
// This is a closed tagged variant - only types in this package implement it.
// The marker method pattern prevents external implementations and enables
// exhaustive type switches in rewriters and backends:
//
//	switch n := node.(type) {
//	case *Literal:
//	case *Symbol:
//	case *ScopeRef:
//	case *FieldAccess:
//	case *Call:
//	case *Lambda:
//	case *Binary:
//	case *Unary:
//	case *Record:
//	case *Alias:
//	}
type Node interface {
	irNode() // Marker method - seals interface to this package
	Info() Meta
}

// ScopeID identifies a row or binding scope introduced by a Lambda.
// Zero means "no scope".
type ScopeID int

// SymbolKind classifies what a resolved global symbol denotes.
type SymbolKind int

const (
	// SymbolDataSource is a connected remote table.
	SymbolDataSource SymbolKind = iota
	// SymbolVariable is a global variable or collection holding a local value,
	// possibly a precomputed copy of a remote table.
	SymbolVariable
	// SymbolEnum is an enumeration member such as SortOrder.Ascending.
	SymbolEnum
)

func (k SymbolKind) String() string {
	switch k {
	case SymbolDataSource:
		return "datasource"
	case SymbolVariable:
		return "variable"
	case SymbolEnum:
		return "enum"
	default:
		return fmt.Sprintf("symbol(%d)", int(k))
	}
}

// Literal is a constant value.
type Literal struct {
	Meta
	Value Value
}

func (*Literal) irNode() {}

// Symbol is a reference to a resolved global name.
type Symbol struct {
	Meta
	Name string
	Kind SymbolKind
}

func (*Symbol) irNode() {}

// ScopeRef references a field of the record bound by the Lambda with the
// same Scope. An empty Field denotes the whole record (ThisRecord).
type ScopeRef struct {
	Meta
	Scope ScopeID
	Field string
}

func (*ScopeRef) irNode() {}

// IsWholeRecord reports whether the reference denotes the current record
// itself rather than one of its fields.
func (s *ScopeRef) IsWholeRecord() bool { return s.Field == "" }

// FieldAccess reads a named field of a record-valued expression.
type FieldAccess struct {
	Meta
	From  Node
	Field string
}

func (*FieldAccess) irNode() {}

// Call is a function invocation. Arguments evaluated per row are wrapped in
// a Lambda.
type Call struct {
	Meta
	Func string
	Args []Node
}

func (*Call) irNode() {}

// Arg returns the i-th argument or nil.
func (c *Call) Arg(i int) Node {
	if i < 0 || i >= len(c.Args) {
		return nil
	}
	return c.Args[i]
}

// Lambda is a lazily evaluated argument with its own scope.
type Lambda struct {
	Meta
	Scope ScopeID
	Body  Node
}

func (*Lambda) irNode() {}

// Binary is a binary operator application.
type Binary struct {
	Meta
	Op    BinaryOp
	Left  Node
	Right Node
}

func (*Binary) irNode() {}

// Unary is a unary operator or implicit coercion.
type Unary struct {
	Meta
	Op      UnaryOp
	Operand Node
}

func (*Unary) irNode() {}

// NamedNode is one field of a record literal.
type NamedNode struct {
	Name  string
	Value Node
}

// Record is a record literal; field order is significant.
type Record struct {
	Meta
	Fields []NamedNode
}

func (*Record) irNode() {}

// Field returns the value bound to name.
func (r *Record) Field(name string) (Node, bool) {
	for _, f := range r.Fields {
		if f.Name == name {
			return f.Value, true
		}
	}
	return nil, false
}

// Alias names the result of an expression ("expr As Name").
type Alias struct {
	Meta
	Value Node
	Name  string
}

func (*Alias) irNode() {}

// Lit builds a literal node whose type is derived from the value.
func Lit(v Value) *Literal {
	return &Literal{Meta: Meta{Type: Type{Kind: v.Kind()}}, Value: v}
}

// IsBlankLiteral reports whether n is the Blank() literal.
func IsBlankLiteral(n Node) bool {
	lit, ok := n.(*Literal)
	if !ok {
		return false
	}
	_, blank := lit.Value.(Blank)
	return blank
}

// StringLiteral returns the text of a string literal.
func StringLiteral(n Node) (string, bool) {
	lit, ok := n.(*Literal)
	if !ok {
		return "", false
	}
	s, ok := lit.Value.(String)
	return string(s), ok
}

// NumberLiteral returns the value of a number literal.
func NumberLiteral(n Node) (float64, bool) {
	lit, ok := n.(*Literal)
	if !ok {
		return 0, false
	}
	f, ok := lit.Value.(Number)
	return float64(f), ok
}
