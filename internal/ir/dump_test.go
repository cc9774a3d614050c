package ir

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToMap(t *testing.T) {
	tests := []struct {
		name string
		node Node
		want map[string]any
	}{
		{"number literal", Lit(Number(100)), map[string]any{"literal": float64(100)}},
		{"string literal", Lit(String("Seattle")), map[string]any{"literal": "Seattle"}},
		{"date literal", Lit(NewDate(2024, time.January, 31)), map[string]any{"literal": "2024-01-31", "kind": "date"}},
		{"blank literal", Lit(Blank{}), map[string]any{"literal": nil, "kind": "blank"}},
		{"table", &Symbol{Name: "Accounts", Kind: SymbolDataSource}, map[string]any{"table": "Accounts"}},
		{"variable", &Symbol{Name: "threshold", Kind: SymbolVariable}, map[string]any{"symbol": "threshold"}},
		{"enum", &Symbol{Name: "SortOrder.Descending", Kind: SymbolEnum}, map[string]any{"enum": "SortOrder.Descending"}},
		{"this record", &ScopeRef{Scope: 2}, map[string]any{"record": 2}},
		{"field", &ScopeRef{Scope: 1, Field: "City"}, map[string]any{"field": "City", "scope": 1}},
		{"nil", nil, map[string]any{"missing": true}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ToMap(tt.node))
		})
	}
}

func TestMarshalNode(t *testing.T) {
	data, err := MarshalNode(revenueFilter(100, Span{Start: 0, End: 34}))
	require.NoError(t, err)
	assert.Equal(t,
		`{"args":[{"table":"Accounts"},{"body":{"binary":"Gt","left":{"field":"Revenue","scope":1},"right":{"literal":100}},"lambda":1}],"call":"Filter"}`,
		string(data))
}

func TestFormat(t *testing.T) {
	total := &Alias{
		Name: "Total",
		Value: &Call{Func: "Sum", Args: []Node{
			&Symbol{Name: "Orders", Kind: SymbolDataSource},
			&Lambda{Scope: 1, Body: &ScopeRef{Scope: 1, Field: "Amount"}},
		}},
	}
	tests := []struct {
		name string
		node Node
		want string
	}{
		{"filter", revenueFilter(100, Span{}), "Filter(Accounts, Revenue > 100)"},
		{"string literal", Lit(String("Seattle")), `"Seattle"`},
		{"this record", &ScopeRef{Scope: 1}, "ThisRecord"},
		{"access", &FieldAccess{From: &ScopeRef{Scope: 1, Field: "PrimaryContact"}, Field: "FullName"}, "PrimaryContact.FullName"},
		{"negate", &Unary{Op: OpNegate, Operand: Lit(Number(3))}, "-3"},
		{"coercion is invisible", &Unary{Op: OpBlankToZero, Operand: &ScopeRef{Scope: 1, Field: "Age"}}, "Age"},
		{"record", &Record{Fields: []NamedNode{{Name: "City", Value: Lit(String("Oslo"))}}}, `{City: "Oslo"}`},
		{"alias", total, "Sum(Orders, Amount) As Total"},
		{"not equal", &Binary{Op: OpNotEq, Left: Lit(Number(1)), Right: Lit(Number(2))}, "1 <> 2"},
		{"nil", nil, "<nil>"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Format(tt.node))
		})
	}
}

func TestSpanString(t *testing.T) {
	assert.Equal(t, "10:42", Span{Start: 10, End: 42}.String())
}
