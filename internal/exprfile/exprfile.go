// Package exprfile reads bound formula trees from YAML.
//
// The file format is the canonical dump shape produced by ir.ToMap, so the
// output of "delegate compile --format json" can be fed back in unchanged.
// Every node is a mapping with exactly one head key:
//
//	literal    {literal: 100} or {literal: "2024-01-31", kind: date}
//	table      {table: Accounts}
//	symbol     {symbol: threshold}
//	enum       {enum: SortOrder.Descending}
//	record     {record: 1}                       ThisRecord of scope 1
//	field      {field: Revenue, scope: 1}
//	access     {access: City, from: {...}}
//	call       {call: Filter, args: [...], span: [0, 40]}
//	lambda     {lambda: 1, body: {...}}
//	binary     {binary: Gt, left: {...}, right: {...}}
//	unary      {unary: BlankToZero, operand: {...}}
//	record_of  {record_of: [{name: Total, value: {...}}]}
//	alias      {alias: Total, value: {...}}
//
// Any node may carry span: [start, end].
package exprfile

import (
	"errors"
	"fmt"
	"os"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/roach88/delegation/internal/ir"
)

// Error reports a malformed node with its position in the YAML source.
type Error struct {
	Line    int
	Column  int
	Message string
}

func (e *Error) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("line %d:%d: %s", e.Line, e.Column, e.Message)
	}
	return e.Message
}

func errorAt(n *yaml.Node, format string, args ...any) error {
	return &Error{Line: n.Line, Column: n.Column, Message: fmt.Sprintf(format, args...)}
}

var headKeys = []string{
	"literal", "table", "symbol", "enum", "record", "field", "access",
	"call", "lambda", "binary", "unary", "record_of", "alias",
}

// allowed lists the keys each head accepts besides itself and span.
var allowed = map[string][]string{
	"literal":   {"kind"},
	"field":     {"scope"},
	"access":    {"from"},
	"call":      {"args"},
	"lambda":    {"body"},
	"binary":    {"left", "right"},
	"unary":     {"operand"},
	"record_of": nil,
	"alias":     {"value"},
}

type nodeDoc struct {
	Literal  yaml.Node   `yaml:"literal"`
	Kind     string      `yaml:"kind"`
	Table    string      `yaml:"table"`
	Symbol   string      `yaml:"symbol"`
	Enum     string      `yaml:"enum"`
	Record   int         `yaml:"record"`
	Field    string      `yaml:"field"`
	Scope    int         `yaml:"scope"`
	Access   string      `yaml:"access"`
	From     yaml.Node   `yaml:"from"`
	Call     string      `yaml:"call"`
	Args     []yaml.Node `yaml:"args"`
	Lambda   int         `yaml:"lambda"`
	Body     yaml.Node   `yaml:"body"`
	Binary   string      `yaml:"binary"`
	Left     yaml.Node   `yaml:"left"`
	Right    yaml.Node   `yaml:"right"`
	Unary    string      `yaml:"unary"`
	Operand  yaml.Node   `yaml:"operand"`
	RecordOf []namedDoc  `yaml:"record_of"`
	Alias    string      `yaml:"alias"`
	Value    yaml.Node   `yaml:"value"`
	Span     []int       `yaml:"span"`
}

type namedDoc struct {
	Name  string    `yaml:"name"`
	Value yaml.Node `yaml:"value"`
}

// Load reads one expression from a YAML or JSON file.
func Load(path string) (ir.Node, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read expression: %w", err)
	}
	n, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return n, nil
}

// Parse decodes one expression document.
func Parse(data []byte) (ir.Node, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("parse expression: %w", err)
	}
	if root.Kind != yaml.DocumentNode || len(root.Content) == 0 {
		return nil, errors.New("empty expression document")
	}
	return Decode(root.Content[0])
}

// Decode converts a YAML node, typically embedded in a larger document,
// into an IR node.
func Decode(y *yaml.Node) (ir.Node, error) {
	if y == nil || y.Kind == 0 {
		return nil, errors.New("missing expression")
	}
	if y.Kind == yaml.AliasNode {
		return Decode(y.Alias)
	}
	if y.Kind != yaml.MappingNode {
		return nil, errorAt(y, "expression node must be a mapping")
	}

	head, err := headOf(y)
	if err != nil {
		return nil, err
	}
	var doc nodeDoc
	if err := y.Decode(&doc); err != nil {
		return nil, errorAt(y, "%v", err)
	}

	n, err := decodeHead(y, head, &doc)
	if err != nil {
		return nil, err
	}
	if doc.Span != nil {
		if len(doc.Span) != 2 || doc.Span[0] > doc.Span[1] {
			return nil, errorAt(y, "span must be [start, end]")
		}
		setSpan(n, ir.Span{Start: doc.Span[0], End: doc.Span[1]})
	}
	return n, nil
}

func headOf(y *yaml.Node) (string, error) {
	var head string
	var keys []string
	for i := 0; i+1 < len(y.Content); i += 2 {
		k := y.Content[i].Value
		keys = append(keys, k)
		if slices.Contains(headKeys, k) {
			if head != "" {
				return "", errorAt(y.Content[i], "node has both %q and %q", head, k)
			}
			head = k
		}
	}
	if head == "" {
		return "", errorAt(y, "node needs one of %v", headKeys)
	}
	for i, k := range keys {
		if k != head && k != "span" && !slices.Contains(allowed[head], k) {
			return "", errorAt(y.Content[2*i], "unknown key %q for %s node", k, head)
		}
	}
	return head, nil
}

func decodeHead(y *yaml.Node, head string, doc *nodeDoc) (ir.Node, error) {
	switch head {
	case "literal":
		v, err := literalValue(&doc.Literal, doc.Kind)
		if err != nil {
			return nil, err
		}
		return ir.Lit(v), nil

	case "table":
		return &ir.Symbol{Name: doc.Table, Kind: ir.SymbolDataSource}, nil
	case "symbol":
		return &ir.Symbol{Name: doc.Symbol, Kind: ir.SymbolVariable}, nil
	case "enum":
		return &ir.Symbol{Name: doc.Enum, Kind: ir.SymbolEnum}, nil

	case "record":
		return &ir.ScopeRef{Scope: ir.ScopeID(doc.Record)}, nil
	case "field":
		if doc.Scope == 0 {
			return nil, errorAt(y, "field %q needs a scope", doc.Field)
		}
		return &ir.ScopeRef{Scope: ir.ScopeID(doc.Scope), Field: doc.Field}, nil

	case "access":
		from, err := Decode(&doc.From)
		if err != nil {
			return nil, fmt.Errorf("access %s: %w", doc.Access, err)
		}
		return &ir.FieldAccess{From: from, Field: doc.Access}, nil

	case "call":
		call := &ir.Call{Func: doc.Call, Args: make([]ir.Node, 0, len(doc.Args))}
		for i := range doc.Args {
			arg, err := Decode(&doc.Args[i])
			if err != nil {
				return nil, fmt.Errorf("%s argument %d: %w", doc.Call, i, err)
			}
			call.Args = append(call.Args, arg)
		}
		return call, nil

	case "lambda":
		body, err := Decode(&doc.Body)
		if err != nil {
			return nil, fmt.Errorf("lambda %d: %w", doc.Lambda, err)
		}
		return &ir.Lambda{Scope: ir.ScopeID(doc.Lambda), Body: body}, nil

	case "binary":
		op, ok := ir.ParseBinaryOp(doc.Binary)
		if !ok {
			return nil, errorAt(y, "unknown binary operator %q", doc.Binary)
		}
		left, err := Decode(&doc.Left)
		if err != nil {
			return nil, fmt.Errorf("%s left: %w", doc.Binary, err)
		}
		right, err := Decode(&doc.Right)
		if err != nil {
			return nil, fmt.Errorf("%s right: %w", doc.Binary, err)
		}
		b := &ir.Binary{Op: op, Left: left, Right: right}
		if op.IsComparison() {
			b.Type = ir.TypeBoolean
		}
		return b, nil

	case "unary":
		op, ok := ir.ParseUnaryOp(doc.Unary)
		if !ok {
			return nil, errorAt(y, "unknown unary operator %q", doc.Unary)
		}
		operand, err := Decode(&doc.Operand)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", doc.Unary, err)
		}
		return &ir.Unary{Op: op, Operand: operand}, nil

	case "record_of":
		rec := &ir.Record{}
		for _, f := range doc.RecordOf {
			v, err := Decode(&f.Value)
			if err != nil {
				return nil, fmt.Errorf("record field %s: %w", f.Name, err)
			}
			rec.Fields = append(rec.Fields, ir.NamedNode{Name: f.Name, Value: v})
		}
		return rec, nil

	default: // alias
		v, err := Decode(&doc.Value)
		if err != nil {
			return nil, fmt.Errorf("alias %s: %w", doc.Alias, err)
		}
		return &ir.Alias{Value: v, Name: doc.Alias}, nil
	}
}

func literalValue(y *yaml.Node, kindName string) (ir.Value, error) {
	if kindName != "" {
		kind, ok := ir.ParseKind(kindName)
		if !ok {
			return nil, errorAt(y, "unknown literal kind %q", kindName)
		}
		if kind == ir.KindBlank {
			return ir.Blank{}, nil
		}
		v, err := ir.ParseValue(kind, y.Value)
		if err != nil {
			return nil, errorAt(y, "%v", err)
		}
		return v, nil
	}

	switch y.ShortTag() {
	case "!!null":
		return ir.Blank{}, nil
	case "!!int", "!!float":
		var f float64
		if err := y.Decode(&f); err != nil {
			return nil, errorAt(y, "%v", err)
		}
		return ir.Number(f), nil
	case "!!bool":
		var b bool
		if err := y.Decode(&b); err != nil {
			return nil, errorAt(y, "%v", err)
		}
		return ir.Bool(b), nil
	case "!!str":
		return ir.String(y.Value), nil
	case "!!timestamp":
		kind := ir.KindDateTime
		if len(y.Value) == len("2006-01-02") {
			kind = ir.KindDate
		}
		v, err := ir.ParseValue(kind, y.Value)
		if err != nil {
			return nil, errorAt(y, "%v", err)
		}
		return v, nil
	}
	return nil, errorAt(y, "literal must be a scalar")
}

func setSpan(n ir.Node, s ir.Span) {
	switch node := n.(type) {
	case *ir.Literal:
		node.Span = s
	case *ir.Symbol:
		node.Span = s
	case *ir.ScopeRef:
		node.Span = s
	case *ir.FieldAccess:
		node.Span = s
	case *ir.Call:
		node.Span = s
	case *ir.Lambda:
		node.Span = s
	case *ir.Binary:
		node.Span = s
	case *ir.Unary:
		node.Span = s
	case *ir.Record:
		node.Span = s
	case *ir.Alias:
		node.Span = s
	}
}
