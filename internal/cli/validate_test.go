package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/delegation/internal/metadata"
	"github.com/roach88/delegation/internal/testutil"
)

func TestValidateCatalog(t *testing.T) {
	cmd := NewValidateCommand(&RootOptions{Format: "text"})
	output, err := execute(t, cmd, testCatalog)
	require.NoError(t, err)

	assert.Contains(t, output, "✓ Catalog valid: 5 table(s)")
	assert.Contains(t, output, "Accounts (crm): 9 column(s), capabilities [filter sort top count distinct summarize join]")
	assert.Contains(t, output, "Notes (crm): 2 column(s), capabilities []")
	assert.Contains(t, output, "Products (erp): 3 column(s), capabilities [filter top join]")
}

func TestValidateCatalogJSON(t *testing.T) {
	cmd := NewValidateCommand(&RootOptions{Format: "json"})
	output, err := execute(t, cmd, testCatalog)
	require.NoError(t, err)

	var resp struct {
		Status string           `json:"status"`
		Data   ValidationResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(output), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.True(t, resp.Data.Valid)
	require.Len(t, resp.Data.Tables, 5)
	assert.Empty(t, resp.Data.Errors)
}

func TestValidateTableFilter(t *testing.T) {
	cmd := NewValidateCommand(&RootOptions{Format: "json"})
	output, err := execute(t, cmd, testCatalog, "--table", "products")
	require.NoError(t, err)

	var resp struct {
		Data ValidationResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(output), &resp))
	require.Len(t, resp.Data.Tables, 1)
	assert.Equal(t, TableSummary{
		Name:         "Products",
		Source:       "erp",
		Columns:      3,
		Capabilities: []string{"filter", "top", "join"},
		MaxRows:      100,
	}, resp.Data.Tables[0])
}

func TestValidateUnknownTable(t *testing.T) {
	cmd := NewValidateCommand(&RootOptions{Format: "text"})
	output, err := execute(t, cmd, testCatalog, "--table", "Leads")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, output, `table "Leads" not in catalog`)
}

func TestValidateNonExistentPath(t *testing.T) {
	cmd := NewValidateCommand(&RootOptions{Format: "text"})
	output, err := execute(t, cmd, "/nonexistent/directory/path")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "E005") // ErrCodeNotFound
	assert.Contains(t, output, "not found")
}

func TestValidateEmptyDirectory(t *testing.T) {
	cmd := NewValidateCommand(&RootOptions{Format: "text"})
	output, err := execute(t, cmd, t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "E003")
	assert.Contains(t, output, "no CUE files found")
}

func TestValidateDirectory(t *testing.T) {
	dir := t.TempDir()
	data, err := os.ReadFile(testCatalog)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "catalog.cue"), data, 0644))

	cmd := NewValidateCommand(&RootOptions{Format: "text"})
	output, err := execute(t, cmd, dir)
	require.NoError(t, err)
	assert.Contains(t, output, "✓ Catalog valid: 5 table(s)")
}

func TestValidateInvalidCatalog(t *testing.T) {
	cmd := NewValidateCommand(&RootOptions{Format: "text"})
	output, err := execute(t, cmd, invalidCatalog)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, err.Error(), "validation failed with 2 error(s)")

	assert.Contains(t, output, "✗ Validation failed")
	assert.Contains(t, output, "table.Leads.primary_key")
	assert.Contains(t, output, `E102: primary key column "LeadId" is not declared`)
	assert.Contains(t, output, "table.Leads.columns.Topic.functions")
	assert.Contains(t, output, "E105:")
}

func TestValidateInvalidCatalogJSON(t *testing.T) {
	cmd := NewValidateCommand(&RootOptions{Format: "json"})
	output, err := execute(t, cmd, invalidCatalog)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var resp struct {
		Status string           `json:"status"`
		Data   ValidationResult `json:"data"`
		Error  *CLIError        `json:"error"`
	}
	require.NoError(t, json.Unmarshal([]byte(output), &resp))
	assert.Equal(t, "error", resp.Status)
	assert.False(t, resp.Data.Valid)
	require.Len(t, resp.Data.Errors, 2)
	require.NotNil(t, resp.Error)

	codes := []string{resp.Data.Errors[0].Code, resp.Data.Errors[1].Code}
	assert.ElementsMatch(t, []string{"E102", "E105"}, codes)
}

func TestValidateMissingTables(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.cue")
	require.NoError(t, os.WriteFile(path, []byte("version: 1\n"), 0644))

	cmd := NewValidateCommand(&RootOptions{Format: "json"})
	output, err := execute(t, cmd, path)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(output), &resp))
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeMissingTable, resp.Error.Code)
	assert.Contains(t, resp.Error.Message, "at least one table is required")
}

func TestValidateSyntaxError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.cue")
	require.NoError(t, os.WriteFile(path, []byte("table: Accounts: {\n"), 0644))

	cmd := NewValidateCommand(&RootOptions{Format: "text"})
	output, err := execute(t, cmd, path)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, output, "Error [")
}

func TestSummarizeTable(t *testing.T) {
	cat := testutil.SampleCatalog()
	orders, ok := cat.Lookup("Orders")
	require.True(t, ok)

	s := summarizeTable(orders)
	assert.Equal(t, "Orders", s.Name)
	assert.Equal(t, []string{"filter", "sort", "top", "count"}, s.Capabilities)

	bare := summarizeTable(&metadata.Table{Name: "Empty"})
	assert.Equal(t, []string{}, bare.Capabilities)
}

func TestFindTable(t *testing.T) {
	cat := testutil.SampleCatalog()

	for _, name := range []string{"Accounts", "accounts", "ACCOUNTS"} {
		tbl, ok := FindTable(cat, name)
		require.True(t, ok, name)
		assert.Equal(t, "Accounts", tbl.Name)
	}

	_, ok := FindTable(cat, "Leads")
	assert.False(t, ok)
}
