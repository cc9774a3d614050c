package queryir

import (
	"fmt"

	"github.com/roach88/delegation/internal/ir"
)

// DecodeError reports a malformed query node.
type DecodeError struct {
	Func    string
	Span    ir.Span
	Message string
}

// Error implements the error interface.
func (e *DecodeError) Error() string {
	return fmt.Sprintf("%s at %s: %s", e.Func, e.Span, e.Message)
}

func decodeErr(call *ir.Call, format string, args ...any) error {
	return &DecodeError{Func: call.Func, Span: call.Span, Message: fmt.Sprintf(format, args...)}
}

// FromNode decodes a query node.
//
// Layouts:
//
//	__retrieveMultiple(table, filter|Blank, top|Blank, descriptor)
//	__retrieveSingle(table, filter|Blank, top|Blank, descriptor)
//	__countRows(table, filter|Blank, top|Blank, descriptor)
//	__retrieveGUID(table, id, descriptor)
//	__retrieveElastic(table, id, partition, descriptor)
func FromNode(n ir.Node) (Query, error) {
	call, ok := n.(*ir.Call)
	if !ok || !IsQueryFunc(call.Func) {
		return nil, fmt.Errorf("not a query node: %s", ir.Format(n))
	}
	table, ok := call.Arg(0).(*ir.Symbol)
	if !ok {
		return nil, decodeErr(call, "first argument must be a table symbol")
	}

	switch call.Func {
	case FuncRetrieveMultiple, FuncRetrieveSingle, FuncCountRows:
		if len(call.Args) != 4 {
			return nil, decodeErr(call, "expected 4 arguments, got %d", len(call.Args))
		}
		desc, err := descriptorArg(call, 3)
		if err != nil {
			return nil, err
		}
		q := &Retrieve{Table: table.Name, Mode: modeOf(call.Func), Descriptor: desc}
		if !ir.IsBlankLiteral(call.Args[1]) {
			if q.Filter, err = PredicateFromNode(call.Args[1]); err != nil {
				return nil, err
			}
		}
		if !ir.IsBlankLiteral(call.Args[2]) {
			q.Top = call.Args[2]
		}
		return q, nil

	case FuncRetrieveGUID:
		if len(call.Args) != 3 {
			return nil, decodeErr(call, "expected 3 arguments, got %d", len(call.Args))
		}
		desc, err := descriptorArg(call, 2)
		if err != nil {
			return nil, err
		}
		return &RetrieveByKey{Table: table.Name, ID: call.Args[1], Descriptor: desc}, nil

	default: // FuncRetrieveElastic
		if len(call.Args) != 4 {
			return nil, decodeErr(call, "expected 4 arguments, got %d", len(call.Args))
		}
		desc, err := descriptorArg(call, 3)
		if err != nil {
			return nil, err
		}
		return &RetrieveByKey{Table: table.Name, ID: call.Args[1], Partition: call.Args[2], Descriptor: desc}, nil
	}
}

// FuncFor returns the node function for a retrieve mode.
func FuncFor(mode Mode) string {
	switch mode {
	case ModeSingle:
		return FuncRetrieveSingle
	case ModeCount:
		return FuncCountRows
	default:
		return FuncRetrieveMultiple
	}
}

func modeOf(fn string) Mode {
	switch fn {
	case FuncRetrieveSingle:
		return ModeSingle
	case FuncCountRows:
		return ModeCount
	default:
		return ModeRows
	}
}

func descriptorArg(call *ir.Call, i int) (Descriptor, error) {
	text, ok := ir.StringLiteral(call.Arg(i))
	if !ok {
		return Descriptor{}, decodeErr(call, "argument %d must be a descriptor string", i)
	}
	d, err := DecodeDescriptor(text)
	if err != nil {
		return Descriptor{}, decodeErr(call, "%v", err)
	}
	return d, nil
}

var compareOps = map[string]Op{
	FuncEq: OpEq,
	FuncNe: OpNe,
	FuncLt: OpLt,
	FuncLe: OpLe,
	FuncGt: OpGt,
	FuncGe: OpGe,
}

// CompareFunc returns the node function for a comparison operator.
func CompareFunc(op Op) string {
	for fn, o := range compareOps {
		if o == op {
			return fn
		}
	}
	return ""
}

// PredicateFromNode decodes a predicate node.
func PredicateFromNode(n ir.Node) (Predicate, error) {
	call, ok := n.(*ir.Call)
	if !ok {
		return nil, fmt.Errorf("not a predicate node: %s", ir.Format(n))
	}
	if op, ok := compareOps[call.Func]; ok {
		if len(call.Args) != 2 {
			return nil, decodeErr(call, "expected 2 arguments, got %d", len(call.Args))
		}
		field, err := fieldArg(call)
		if err != nil {
			return nil, err
		}
		return &Compare{Op: op, Field: field, Value: call.Args[1]}, nil
	}

	switch call.Func {
	case FuncIsNull:
		if len(call.Args) != 1 {
			return nil, decodeErr(call, "expected 1 argument, got %d", len(call.Args))
		}
		field, err := fieldArg(call)
		if err != nil {
			return nil, err
		}
		return &IsNull{Field: field}, nil

	case FuncStartsWith, FuncEndsWith:
		if len(call.Args) != 2 {
			return nil, decodeErr(call, "expected 2 arguments, got %d", len(call.Args))
		}
		field, err := fieldArg(call)
		if err != nil {
			return nil, err
		}
		return &TextMatch{Field: field, Value: call.Args[1], Suffix: call.Func == FuncEndsWith}, nil

	case FuncAnd, FuncOr:
		preds := make([]Predicate, 0, len(call.Args))
		for _, a := range call.Args {
			p, err := PredicateFromNode(a)
			if err != nil {
				return nil, err
			}
			preds = append(preds, p)
		}
		if call.Func == FuncAnd {
			return &And{Predicates: preds}, nil
		}
		return &Or{Predicates: preds}, nil

	case FuncNot:
		if len(call.Args) != 1 {
			return nil, decodeErr(call, "expected 1 argument, got %d", len(call.Args))
		}
		inner, err := PredicateFromNode(call.Args[0])
		if err != nil {
			return nil, err
		}
		return &Not{Predicate: inner}, nil
	}
	return nil, decodeErr(call, "unknown predicate function")
}

func fieldArg(call *ir.Call) (FieldSpec, error) {
	text, ok := ir.StringLiteral(call.Arg(0))
	if !ok {
		return FieldSpec{}, decodeErr(call, "first argument must be a field spec string")
	}
	f, err := DecodeFieldSpec(text)
	if err != nil {
		return FieldSpec{}, decodeErr(call, "%v", err)
	}
	return f, nil
}

// Collect returns every query node in n in pre-order, including queries
// nested in the value side of another query's conditions.
func Collect(n ir.Node) []*ir.Call {
	var out []*ir.Call
	ir.Walk(n, func(c ir.Node) bool {
		if call, ok := c.(*ir.Call); ok && IsQueryFunc(call.Func) {
			out = append(out, call)
		}
		return true
	})
	return out
}
