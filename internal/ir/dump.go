package ir

import "fmt"

// ToMap converts a node into the generic map form used by canonical JSON
// dumps. The shape is stable and is what golden files record:
//
//	{"call":"Filter","args":[{"table":"Accounts"},{"lambda":1,"body":...}]}
func ToMap(n Node) map[string]any {
	switch node := n.(type) {
	case nil:
		return map[string]any{"missing": true}
	case *Literal:
		m := map[string]any{"literal": ValueToAny(node.Value)}
		if node.Value.Kind() != KindString && node.Value.Kind() != KindNumber && node.Value.Kind() != KindBoolean {
			m["kind"] = node.Value.Kind().String()
		}
		return m
	case *Symbol:
		key := "symbol"
		switch node.Kind {
		case SymbolDataSource:
			key = "table"
		case SymbolEnum:
			key = "enum"
		}
		return map[string]any{key: node.Name}
	case *ScopeRef:
		if node.IsWholeRecord() {
			return map[string]any{"record": int(node.Scope)}
		}
		return map[string]any{"field": node.Field, "scope": int(node.Scope)}
	case *FieldAccess:
		return map[string]any{"access": node.Field, "from": ToMap(node.From)}
	case *Call:
		args := make([]any, len(node.Args))
		for i, a := range node.Args {
			args[i] = ToMap(a)
		}
		return map[string]any{"call": node.Func, "args": args}
	case *Lambda:
		return map[string]any{"lambda": int(node.Scope), "body": ToMap(node.Body)}
	case *Binary:
		return map[string]any{"binary": node.Op.String(), "left": ToMap(node.Left), "right": ToMap(node.Right)}
	case *Unary:
		return map[string]any{"unary": node.Op.String(), "operand": ToMap(node.Operand)}
	case *Record:
		fields := make([]any, len(node.Fields))
		for i, f := range node.Fields {
			fields[i] = map[string]any{"name": f.Name, "value": ToMap(f.Value)}
		}
		return map[string]any{"record_of": fields}
	case *Alias:
		return map[string]any{"alias": node.Name, "value": ToMap(node.Value)}
	default:
		panic(fmt.Sprintf("ir: unknown node type %T", n))
	}
}

// MarshalNode returns the canonical JSON dump of a node.
func MarshalNode(n Node) ([]byte, error) {
	return MarshalCanonical(ToMap(n))
}

// Format renders a node as compact formula-like text for diagnostics, e.g.
// Filter(Accounts, Revenue > 100).
func Format(n Node) string {
	switch node := n.(type) {
	case nil:
		return "<nil>"
	case *Literal:
		return FormatValue(node.Value)
	case *Symbol:
		return node.Name
	case *ScopeRef:
		if node.IsWholeRecord() {
			return "ThisRecord"
		}
		return node.Field
	case *FieldAccess:
		return Format(node.From) + "." + node.Field
	case *Call:
		s := node.Func + "("
		for i, a := range node.Args {
			if i > 0 {
				s += ", "
			}
			s += Format(a)
		}
		return s + ")"
	case *Lambda:
		return Format(node.Body)
	case *Binary:
		return Format(node.Left) + " " + binarySymbols[node.Op] + " " + Format(node.Right)
	case *Unary:
		if node.Op == OpNegate {
			return "-" + Format(node.Operand)
		}
		return Format(node.Operand)
	case *Record:
		s := "{"
		for i, f := range node.Fields {
			if i > 0 {
				s += ", "
			}
			s += f.Name + ": " + Format(f.Value)
		}
		return s + "}"
	case *Alias:
		return Format(node.Value) + " As " + node.Name
	default:
		return fmt.Sprintf("<%T>", n)
	}
}

var binarySymbols = map[BinaryOp]string{
	OpEq:     "=",
	OpNotEq:  "<>",
	OpLt:     "<",
	OpLe:     "<=",
	OpGt:     ">",
	OpGe:     ">=",
	OpAdd:    "+",
	OpSub:    "-",
	OpMul:    "*",
	OpDiv:    "/",
	OpConcat: "&",
}
