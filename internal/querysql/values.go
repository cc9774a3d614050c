package querysql

import (
	"fmt"

	"github.com/roach88/delegation/internal/ir"
)

// evalValue evaluates the value side of a condition to an SQL parameter.
// Supported: literals, bound variables and enum members, unary operators
// and coercions over those. Anything else must be evaluated by the host
// before the query is compiled.
func (c *SQLCompiler) evalValue(n ir.Node) (any, error) {
	v, err := c.eval(n)
	if err != nil {
		return nil, err
	}
	return ToParam(v), nil
}

func (c *SQLCompiler) eval(n ir.Node) (ir.Value, error) {
	switch node := n.(type) {
	case *ir.Literal:
		return node.Value, nil
	case *ir.Symbol:
		if node.Kind == ir.SymbolEnum {
			return ir.String(node.Name), nil
		}
		raw, ok := c.BoundValues[node.Name]
		if !ok {
			return nil, fmt.Errorf("unbound variable %q", node.Name)
		}
		return FromParam(raw)
	case *ir.Unary:
		inner, err := c.eval(node.Operand)
		if err != nil {
			return nil, err
		}
		return ir.ApplyUnary(node.Op, inner)
	default:
		return nil, fmt.Errorf("value %s must be evaluated before compilation", ir.Format(n))
	}
}

// ToParam converts a value to an SQLite parameter. Booleans are stored as
// 0 and 1; dates as ISO 8601 text.
func ToParam(v ir.Value) any {
	if b, ok := v.(ir.Bool); ok {
		if b {
			return int64(1)
		}
		return int64(0)
	}
	return ir.ValueToAny(v)
}

// FromParam converts a plain Go value (as found in BoundValues or YAML
// fixtures) to a value.
func FromParam(raw any) (ir.Value, error) {
	switch v := raw.(type) {
	case nil:
		return ir.Blank{}, nil
	case ir.Value:
		return v, nil
	case string:
		return ir.String(v), nil
	case bool:
		return ir.Bool(v), nil
	case int:
		return ir.Number(v), nil
	case int64:
		return ir.Number(v), nil
	case float64:
		return ir.Number(v), nil
	default:
		return nil, fmt.Errorf("unsupported bound value type %T", raw)
	}
}
