package ir

import (
	"fmt"
	"time"
)

// BinaryOp enumerates binary operators.
type BinaryOp int

const (
	OpEq BinaryOp = iota
	OpNotEq
	OpLt
	OpLe
	OpGt
	OpGe
	OpAdd
	OpSub
	OpMul
	OpDiv
	OpConcat
)

var binaryOpNames = [...]string{
	OpEq:     "Eq",
	OpNotEq:  "NotEq",
	OpLt:     "Lt",
	OpLe:     "Le",
	OpGt:     "Gt",
	OpGe:     "Ge",
	OpAdd:    "Add",
	OpSub:    "Sub",
	OpMul:    "Mul",
	OpDiv:    "Div",
	OpConcat: "Concat",
}

func (op BinaryOp) String() string {
	if int(op) >= 0 && int(op) < len(binaryOpNames) {
		return binaryOpNames[op]
	}
	return fmt.Sprintf("BinaryOp(%d)", int(op))
}

// ParseBinaryOp maps an operator name back to its value.
func ParseBinaryOp(name string) (BinaryOp, bool) {
	for i, n := range binaryOpNames {
		if n == name {
			return BinaryOp(i), true
		}
	}
	return 0, false
}

// IsComparison reports whether the operator yields a boolean comparison.
func (op BinaryOp) IsComparison() bool {
	return op >= OpEq && op <= OpGe
}

// Mirror returns the operator obtained by swapping operands,
// e.g. "5 > x" is "x < 5". Non-comparison operators mirror to themselves.
func (op BinaryOp) Mirror() BinaryOp {
	switch op {
	case OpLt:
		return OpGt
	case OpLe:
		return OpGe
	case OpGt:
		return OpLt
	case OpGe:
		return OpLe
	default:
		return op
	}
}

// UnaryOp enumerates unary operators and implicit coercions.
type UnaryOp int

const (
	OpNegate UnaryOp = iota
	OpDateToNumber
	OpDateTimeToNumber
	OpNumberToDate
	OpNumberToDateTime
	OpBlankToZero
	OpBlankToEmpty
)

var unaryOpNames = [...]string{
	OpNegate:           "Negate",
	OpDateToNumber:     "DateToNumber",
	OpDateTimeToNumber: "DateTimeToNumber",
	OpNumberToDate:     "NumberToDate",
	OpNumberToDateTime: "NumberToDateTime",
	OpBlankToZero:      "BlankToZero",
	OpBlankToEmpty:     "BlankToEmpty",
}

func (op UnaryOp) String() string {
	if int(op) >= 0 && int(op) < len(unaryOpNames) {
		return unaryOpNames[op]
	}
	return fmt.Sprintf("UnaryOp(%d)", int(op))
}

// ParseUnaryOp maps an operator name back to its value.
func ParseUnaryOp(name string) (UnaryOp, bool) {
	for i, n := range unaryOpNames {
		if n == name {
			return UnaryOp(i), true
		}
	}
	return 0, false
}

// IsCoercion reports whether the operator is an implicit, identity-preserving
// conversion inserted by the binder.
func (op UnaryOp) IsCoercion() bool {
	return op != OpNegate
}

// Inverse returns the coercion that undoes op, if one exists.
// Blank coercions have no inverse.
func (op UnaryOp) Inverse() (UnaryOp, bool) {
	switch op {
	case OpDateToNumber:
		return OpNumberToDate, true
	case OpDateTimeToNumber:
		return OpNumberToDateTime, true
	case OpNumberToDate:
		return OpDateToNumber, true
	case OpNumberToDateTime:
		return OpDateTimeToNumber, true
	default:
		return 0, false
	}
}

// ApplyUnary evaluates op on a constant. Dates convert to and from
// milliseconds since the Unix epoch (UTC); blank stays blank except under
// the blank coercions.
func ApplyUnary(op UnaryOp, v Value) (Value, error) {
	if _, blank := v.(Blank); blank {
		switch op {
		case OpBlankToZero:
			return Number(0), nil
		case OpBlankToEmpty:
			return String(""), nil
		}
		return v, nil
	}
	switch op {
	case OpNegate:
		if n, ok := v.(Number); ok {
			return -n, nil
		}
	case OpDateToNumber:
		if d, ok := v.(Date); ok {
			return Number(time.Time(d).UnixMilli()), nil
		}
	case OpDateTimeToNumber:
		if d, ok := v.(DateTime); ok {
			return Number(time.Time(d).UnixMilli()), nil
		}
	case OpNumberToDate:
		if n, ok := v.(Number); ok {
			t := time.UnixMilli(int64(n)).UTC()
			return NewDate(t.Year(), t.Month(), t.Day()), nil
		}
	case OpNumberToDateTime:
		if n, ok := v.(Number); ok {
			return DateTime(time.UnixMilli(int64(n)).UTC()), nil
		}
	case OpBlankToZero, OpBlankToEmpty:
		return v, nil
	}
	return nil, fmt.Errorf("cannot apply %s to %s", op, v.Kind())
}
