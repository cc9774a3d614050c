package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeCatalog creates a one-table catalog file for testing.
func writeCatalog(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "catalog.cue")
	content := `
table: Accounts: {
	primary_key: ["AccountId"]
	capabilities: filter: true
	columns: {
		AccountId: {type: "guid", filterable: true}
		Revenue: {type: "number", filterable: true}
	}
}
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func writeScenario(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "test.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadScenario_ValidFile(t *testing.T) {
	dir := t.TempDir()
	writeCatalog(t, dir)
	path := writeScenario(t, dir, `
name: test_scenario
description: "Test scenario for validation"
catalog: catalog.cue
max_rows: 50
expression:
  call: Filter
  args:
    - table: Accounts
    - lambda: 1
      body: {binary: Gt, left: {field: Revenue, scope: 1}, right: {literal: 100}}
rows:
  Accounts:
    - {AccountId: a1, Revenue: 250}
assertions:
  - type: delegated
    value: true
  - type: query
    table: Accounts
    row_count: 1
`)

	scenario, err := LoadScenario(path)
	require.NoError(t, err)

	assert.Equal(t, "test_scenario", scenario.Name)
	assert.Equal(t, "Test scenario for validation", scenario.Description)
	assert.Equal(t, filepath.Join(dir, "catalog.cue"), scenario.Catalog)
	assert.Equal(t, 50, scenario.MaxRows)
	assert.NotZero(t, scenario.Expression.Kind)
	require.Len(t, scenario.Rows["Accounts"], 1)
	assert.Equal(t, "a1", scenario.Rows["Accounts"][0]["AccountId"])
	require.Len(t, scenario.Assertions, 2)
	require.NotNil(t, scenario.Assertions[0].Value)
	assert.True(t, *scenario.Assertions[0].Value)
	require.NotNil(t, scenario.Assertions[1].RowCount)
	assert.Equal(t, 1, *scenario.Assertions[1].RowCount)
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario("/nonexistent/scenario.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read scenario file")
}

func TestLoadScenario_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			name: "missing name",
			content: `
description: "Missing name"
catalog: catalog.cue
expression: {table: Accounts}
assertions:
  - type: valid
`,
			wantErr: "name is required",
		},
		{
			name: "missing description",
			content: `
name: test
catalog: catalog.cue
expression: {table: Accounts}
assertions:
  - type: valid
`,
			wantErr: "description is required",
		},
		{
			name: "missing catalog",
			content: `
name: test
description: "No catalog"
expression: {table: Accounts}
assertions:
  - type: valid
`,
			wantErr: "catalog is required",
		},
		{
			name: "catalog not found",
			content: `
name: test
description: "Wrong catalog"
catalog: missing.cue
expression: {table: Accounts}
assertions:
  - type: valid
`,
			wantErr: "catalog not found",
		},
		{
			name: "missing expression",
			content: `
name: test
description: "No expression"
catalog: catalog.cue
assertions:
  - type: valid
`,
			wantErr: "expression is required",
		},
		{
			name: "negative max rows",
			content: `
name: test
description: "Bad limit"
catalog: catalog.cue
max_rows: -1
expression: {table: Accounts}
assertions:
  - type: valid
`,
			wantErr: "max_rows must be non-negative",
		},
		{
			name: "no assertions",
			content: `
name: test
description: "Nothing to check"
catalog: catalog.cue
expression: {table: Accounts}
`,
			wantErr: "assertions list is required and must be non-empty",
		},
		{
			name: "unknown field",
			content: `
name: test
description: "Typo"
catalog: catalog.cue
expression: {table: Accounts}
assertion:
  - type: valid
`,
			wantErr: "failed to parse YAML",
		},
		{
			name: "unknown assertion type",
			content: `
name: test
description: "Bad type"
catalog: catalog.cue
expression: {table: Accounts}
assertions:
  - type: trace_contains
`,
			wantErr: `assertions[0]: unknown assertion type "trace_contains"`,
		},
		{
			name: "delegated without value",
			content: `
name: test
description: "No value"
catalog: catalog.cue
expression: {table: Accounts}
assertions:
  - type: delegated
`,
			wantErr: "assertions[0]: value is required for delegated",
		},
		{
			name: "warning without key",
			content: `
name: test
description: "No key"
catalog: catalog.cue
expression: {table: Accounts}
assertions:
  - type: valid
  - type: warning
`,
			wantErr: "assertions[1]: key is required for warning",
		},
		{
			name: "empty query assertion",
			content: `
name: test
description: "Nothing on the query"
catalog: catalog.cue
expression: {table: Accounts}
assertions:
  - type: query
    index: 0
`,
			wantErr: "query needs table, sql_contains or row_count",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			writeCatalog(t, dir)
			path := writeScenario(t, dir, tt.content)

			_, err := LoadScenario(path)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestFindScenarios(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "nested"), 0755))
	for _, name := range []string{"b.yaml", "a.yml", "notes.txt", "nested/c.yaml"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), nil, 0644))
	}

	files, err := FindScenarios(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "a.yml"),
		filepath.Join(dir, "b.yaml"),
		filepath.Join(dir, "nested", "c.yaml"),
	}, files)
}

func TestLoadScenario_Testdata(t *testing.T) {
	files, err := FindScenarios("testdata/scenarios")
	require.NoError(t, err)
	require.NotEmpty(t, files)

	for _, path := range files {
		t.Run(filepath.Base(path), func(t *testing.T) {
			_, err := LoadScenario(path)
			require.NoError(t, err)
		})
	}
}
