package exprfile

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/delegation/internal/ir"
	. "github.com/roach88/delegation/internal/testutil"
)

func TestParseFilter(t *testing.T) {
	n, err := Parse([]byte(`
call: Filter
span: [0, 34]
args:
  - table: Accounts
  - lambda: 1
    body:
      binary: Gt
      left: {field: Revenue, scope: 1}
      right: {literal: 100}
`))
	require.NoError(t, err)

	call, ok := n.(*ir.Call)
	require.True(t, ok)
	assert.Equal(t, "Filter", call.Func)
	assert.Equal(t, ir.Span{Start: 0, End: 34}, call.Span)
	require.Len(t, call.Args, 2)

	sym := call.Args[0].(*ir.Symbol)
	assert.Equal(t, ir.SymbolDataSource, sym.Kind)

	lambda := call.Args[1].(*ir.Lambda)
	assert.Equal(t, ir.ScopeID(1), lambda.Scope)
	bin := lambda.Body.(*ir.Binary)
	assert.Equal(t, ir.OpGt, bin.Op)
	assert.Equal(t, ir.TypeBoolean, bin.Type)
	assert.Equal(t, "Filter(Accounts, Revenue > 100)", ir.Format(n))
}

func TestParseLiterals(t *testing.T) {
	tests := []struct {
		src  string
		want ir.Value
	}{
		{`{literal: 42}`, ir.Number(42)},
		{`{literal: 1.5}`, ir.Number(1.5)},
		{`{literal: true}`, ir.Bool(true)},
		{`{literal: "Seattle"}`, ir.String("Seattle")},
		{`{literal: null}`, ir.Blank{}},
		{`{literal: null, kind: blank}`, ir.Blank{}},
		{`{literal: "2024-01-31", kind: date}`, ir.NewDate(2024, time.January, 31)},
		{`{literal: 2024-01-31}`, ir.NewDate(2024, time.January, 31)},
		{`{literal: "7", kind: number}`, ir.Number(7)},
		{`{literal: "a1b2", kind: guid}`, ir.Guid("a1b2")},
	}

	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			n, err := Parse([]byte(tt.src))
			require.NoError(t, err)
			lit, ok := n.(*ir.Literal)
			require.True(t, ok)
			assert.Equal(t, tt.want, lit.Value)
			assert.Equal(t, tt.want.Kind(), lit.Type.Kind)
		})
	}
}

func TestParseSymbols(t *testing.T) {
	n, err := Parse([]byte(`
call: Sort
args:
  - symbol: cachedAccounts
  - lambda: 1
    body: {record: 1}
  - enum: SortOrder.Descending
`))
	require.NoError(t, err)
	call := n.(*ir.Call)

	assert.Equal(t, ir.SymbolVariable, call.Args[0].(*ir.Symbol).Kind)
	ref := call.Args[1].(*ir.Lambda).Body.(*ir.ScopeRef)
	assert.True(t, ref.IsWholeRecord())
	assert.Equal(t, ir.SymbolEnum, call.Args[2].(*ir.Symbol).Kind)
}

func TestRoundTripsCanonicalDump(t *testing.T) {
	nodes := []ir.Node{
		Call("Filter", Table(Accounts), Lambda(1, Ge(Field(1, "Created"), Date(2024, time.March, 1)))),
		Call("ShowColumns", Call("FirstN", Table(Accounts), Num(10)), Str("Name"), Str("City")),
		Call("Filter", Table(Accounts), Lambda(1, Eq(Coerce(ir.OpBlankToEmpty, Field(1, "City")), Blank()))),
		Call("Summarize", Table(Accounts), Str("City"), Lambda(1, As(Call("Sum", Var("rows"), Field(1, "Revenue")), "Total"))),
		Call("Patch", Table(Accounts), Rec(Named("Name", Str("x")), Named("Owner", Access(ThisRecord(1), "Name")))),
		Call("Sort", Table(Accounts), Lambda(1, Field(1, "Name")), Enum("SortOrder.Descending")),
	}

	for _, n := range nodes {
		t.Run(ir.Format(n), func(t *testing.T) {
			data, err := ir.MarshalNode(n)
			require.NoError(t, err)

			back, err := Parse(data)
			require.NoError(t, err)
			assert.Equal(t, ir.ToMap(n), ir.ToMap(back))
		})
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name    string
		src     string
		wantErr string
	}{
		{"scalar root", `42`, "must be a mapping"},
		{"no head", `{args: []}`, "node needs one of"},
		{"two heads", `{call: Filter, table: Accounts}`, "node has both"},
		{"unknown key", `{call: Filter, argz: []}`, `unknown key "argz"`},
		{"key from another head", `{table: Accounts, body: {literal: 1}}`, `unknown key "body"`},
		{"field without scope", `{field: Revenue}`, "needs a scope"},
		{"bad binary op", `{binary: Like, left: {literal: 1}, right: {literal: 2}}`, "unknown binary operator"},
		{"bad unary op", `{unary: Lower, operand: {literal: "a"}}`, "unknown unary operator"},
		{"bad literal kind", `{literal: "x", kind: money}`, "unknown literal kind"},
		{"bad date", `{literal: "31/01/2024", kind: date}`, "parse date"},
		{"bad span", `{literal: 1, span: [5, 2]}`, "span must be"},
		{"missing lambda body", `{lambda: 1}`, "missing expression"},
		{"bad nested argument", "call: Filter\nargs:\n  - table: Accounts\n  - 7\n", "Filter argument 1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.src))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestErrorCarriesLine(t *testing.T) {
	_, err := Parse([]byte("call: Filter\nargs:\n  - table: Accounts\n  - lambda: 1\n    body: {binary: Nope, left: {literal: 1}, right: {literal: 1}}\n"))
	require.Error(t, err)

	var exprErr *Error
	require.ErrorAs(t, err, &exprErr)
	assert.Equal(t, 5, exprErr.Line)
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "expr.yaml")
	require.NoError(t, os.WriteFile(path, []byte("call: CountRows\nargs:\n  - table: Accounts\n"), 0o644))

	n, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "CountRows(Accounts)", ir.Format(n))

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read expression")
}
