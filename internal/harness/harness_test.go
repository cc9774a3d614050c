package harness

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/roach88/delegation/internal/ir"
	"github.com/roach88/delegation/internal/testutil"
)

// expression parses an exprfile snippet into the node a scenario holds.
func expression(t *testing.T, src string) yaml.Node {
	t.Helper()
	var doc yaml.Node
	require.NoError(t, yaml.Unmarshal([]byte(src), &doc))
	require.NotEmpty(t, doc.Content)
	return *doc.Content[0]
}

const revenueFilter = `
call: Filter
span: [0, 34]
args:
  - table: Accounts
  - lambda: 1
    body: {binary: Gt, left: {field: Revenue, scope: 1}, right: {literal: 100}}
`

func accountRows() map[string][]map[string]any {
	return map[string][]map[string]any{
		"Accounts": {
			{"AccountId": "a1", "Name": "Contoso", "City": "Seattle", "Revenue": 250},
			{"AccountId": "a2", "Name": "Fabrikam", "City": "Portland", "Revenue": 80},
			{"AccountId": "a3", "Name": "Northwind", "City": "Boston", "Revenue": 120.5},
		},
	}
}

func boolPtr(b bool) *bool { return &b }
func intPtr(n int) *int    { return &n }

func TestRunWithCatalog_FilterPushdown(t *testing.T) {
	scenario := &Scenario{
		Name:       "filter",
		Expression: expression(t, revenueFilter),
		Rows:       accountRows(),
		Assertions: []Assertion{
			{Type: AssertDelegated, Value: boolPtr(true)},
			{Type: AssertQuery, Table: "Accounts", SQLContains: `t."Revenue" > ?`, RowCount: intPtr(2)},
			{Type: AssertValid},
		},
	}

	result, err := RunWithCatalog(scenario, testutil.SampleCatalog())
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)

	require.Len(t, result.Queries, 1)
	q := result.Queries[0]
	assert.Empty(t, q.Error)
	assert.Equal(t, "Accounts", q.Table)
	assert.Equal(t, []any{float64(100)}, q.Params)
	require.Len(t, q.Rows, 2)
	assert.Equal(t, ir.Guid("a1"), q.Rows[0]["AccountId"])
	assert.Equal(t, ir.Guid("a3"), q.Rows[1]["AccountId"])
	assert.Equal(t, "filter", result.Compile.ID)
}

func TestRunWithCatalog_FailedAssertions(t *testing.T) {
	scenario := &Scenario{
		Name:       "failing",
		Expression: expression(t, revenueFilter),
		Rows:       accountRows(),
		Assertions: []Assertion{
			{Type: AssertDelegated, Value: boolPtr(false)},
			{Type: AssertWarningCount, Count: 1},
			{Type: AssertQuery, Index: 0, RowCount: intPtr(3)},
			{Type: AssertQuery, Index: 4, Table: "Accounts"},
		},
	}

	result, err := RunWithCatalog(scenario, testutil.SampleCatalog())
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 4)
	assert.Contains(t, result.Errors[0], "assertions[0]:")
	assert.Contains(t, result.Errors[0], "delegated = false")
	assert.Contains(t, result.Errors[1], "1 warnings")
	assert.Contains(t, result.Errors[2], "to return 3 rows")
	assert.Contains(t, result.Errors[3], "query at index 4")
}

func TestRunWithCatalog_NotDelegated(t *testing.T) {
	scenario := &Scenario{
		Name: "sort",
		Expression: expression(t, `
call: Sort
span: [0, 22]
args:
  - table: Products
  - lambda: 1
    body: {field: Title, scope: 1}
`),
		Assertions: []Assertion{
			{Type: AssertDelegated, Value: boolPtr(false)},
			{Type: AssertWarning, Key: "WrnDelegationCapability", Args: []any{"Sort", "sort", 100}},
			{Type: AssertQueryCount, Count: 0},
		},
	}

	result, err := RunWithCatalog(scenario, testutil.SampleCatalog())
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
	assert.Empty(t, result.Queries)
	require.Len(t, result.Warnings(), 1)
	assert.Equal(t, ir.Span{Start: 0, End: 22}, result.Warnings()[0].Span)
}

func TestRunWithCatalog_Bindings(t *testing.T) {
	scenario := &Scenario{
		Name: "bound",
		Expression: expression(t, `
call: Filter
args:
  - table: Accounts
  - lambda: 1
    body: {binary: Gt, left: {field: Revenue, scope: 1}, right: {symbol: threshold}}
`),
		Rows:     accountRows(),
		Bindings: map[string]any{"threshold": 200},
		Assertions: []Assertion{
			{Type: AssertQuery, Table: "Accounts", RowCount: intPtr(1)},
		},
	}

	result, err := RunWithCatalog(scenario, testutil.SampleCatalog())
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
}

func TestRunWithCatalog_UnboundVariableIsRecorded(t *testing.T) {
	scenario := &Scenario{
		Name: "unbound",
		Expression: expression(t, `
call: Filter
args:
  - table: Accounts
  - lambda: 1
    body: {binary: Gt, left: {field: Revenue, scope: 1}, right: {symbol: threshold}}
`),
		Assertions: []Assertion{{Type: AssertQueryCount, Count: 1}},
	}

	result, err := RunWithCatalog(scenario, testutil.SampleCatalog())
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
	require.Len(t, result.Queries, 1)
	assert.Contains(t, result.Queries[0].Error, `unbound variable "threshold"`)
}

func TestRunWithCatalog_FixtureErrors(t *testing.T) {
	tests := []struct {
		name    string
		rows    map[string][]map[string]any
		wantErr string
	}{
		{
			name:    "unknown table",
			rows:    map[string][]map[string]any{"Leads": {{"Id": "x"}}},
			wantErr: `rows for unknown table "Leads"`,
		},
		{
			name:    "unknown column",
			rows:    map[string][]map[string]any{"Accounts": {{"AccountId": "a1", "Revenu": 10}}},
			wantErr: `Accounts row 0: unknown column "Revenu"`,
		},
		{
			name:    "wrong kind",
			rows:    map[string][]map[string]any{"Accounts": {{"AccountId": "a1", "Revenue": true}}},
			wantErr: "Accounts row 0 column Revenue: expected number, got boolean",
		},
		{
			name:    "unparseable text",
			rows:    map[string][]map[string]any{"Accounts": {{"AccountId": "a1", "Created": "yesterday"}}},
			wantErr: "Accounts row 0 column Created",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			scenario := &Scenario{
				Name:       "fixtures",
				Expression: expression(t, `{table: Accounts}`),
				Rows:       tt.rows,
				Assertions: []Assertion{{Type: AssertValid}},
			}
			_, err := RunWithCatalog(scenario, testutil.SampleCatalog())
			require.Error(t, err)
			assert.Contains(t, err.Error(), "failed to insert fixtures")
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestRunWithCatalog_BadExpression(t *testing.T) {
	scenario := &Scenario{
		Name:       "bad",
		Expression: expression(t, `{call: Filter, table: Accounts}`),
		Assertions: []Assertion{{Type: AssertValid}},
	}

	_, err := RunWithCatalog(scenario, testutil.SampleCatalog())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to decode expression")
}

func TestRun_MissingCatalog(t *testing.T) {
	scenario := &Scenario{
		Name:       "missing",
		Catalog:    filepath.Join(t.TempDir(), "none.cue"),
		Expression: expression(t, `{table: Accounts}`),
		Assertions: []Assertion{{Type: AssertValid}},
	}

	_, err := Run(scenario)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load catalog")
}

func TestRun_Scenarios(t *testing.T) {
	files, err := FindScenarios("testdata/scenarios")
	require.NoError(t, err)
	require.NotEmpty(t, files)

	for _, path := range files {
		t.Run(filepath.Base(path), func(t *testing.T) {
			scenario, err := LoadScenario(path)
			require.NoError(t, err)

			result, err := Run(scenario)
			require.NoError(t, err)
			assert.True(t, result.Pass, "errors: %v", result.Errors)
		})
	}
}

func TestFixtureValue(t *testing.T) {
	tests := []struct {
		name string
		kind ir.Kind
		raw  any
		want ir.Value
	}{
		{"nil is blank", ir.KindNumber, nil, ir.Blank{}},
		{"int", ir.KindNumber, 7, ir.Number(7)},
		{"float", ir.KindNumber, 1.5, ir.Number(1.5)},
		{"bool", ir.KindBoolean, true, ir.Bool(true)},
		{"string", ir.KindString, "Seattle", ir.String("Seattle")},
		{"guid from string", ir.KindGuid, "a1", ir.Guid("a1")},
		{"number from string", ir.KindNumber, "42", ir.Number(42)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := fixtureValue(tt.kind, tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
