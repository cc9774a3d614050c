package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/delegation/internal/ir"
	"github.com/roach88/delegation/internal/metadata"
	"github.com/roach88/delegation/internal/testutil"
)

// createTestStore creates a store in a temporary directory.
// The store is closed automatically when the test ends.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	st, err := Open(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st
}

// createSeededStore creates a store holding the sample catalog's tables
// with a few accounts and orders.
func createSeededStore(t *testing.T) (*Store, *metadata.Catalog) {
	t.Helper()
	ctx := context.Background()
	st := createTestStore(t)
	cat := testutil.SampleCatalog()
	require.NoError(t, st.CreateTables(ctx, cat))

	accounts, _ := cat.Lookup(testutil.Accounts)
	require.NoError(t, st.Insert(ctx, accounts, []map[string]ir.Value{
		{"AccountId": ir.Guid("a1"), "Name": ir.String("Contoso"), "City": ir.String("Seattle"), "Revenue": ir.Number(500), "Active": ir.Bool(true), "Created": ir.NewDate(2023, 1, 15), "PrimaryContactId": ir.Guid("c1")},
		{"AccountId": ir.Guid("a2"), "Name": ir.String("Fabrikam"), "City": ir.String("Seattle"), "Revenue": ir.Number(50), "Active": ir.Bool(false), "Created": ir.NewDate(2024, 6, 1)},
		{"AccountId": ir.Guid("a3"), "Name": ir.String("Northwind"), "City": ir.String("Portland"), "Revenue": ir.Number(250), "Active": ir.Bool(true), "Created": ir.NewDate(2024, 2, 29), "PrimaryContactId": ir.Guid("c2")},
	}))

	contacts, _ := cat.Lookup(testutil.Contacts)
	require.NoError(t, st.Insert(ctx, contacts, []map[string]ir.Value{
		{"ContactId": ir.Guid("c1"), "FullName": ir.String("Ada Lovelace"), "Age": ir.Number(36)},
		{"ContactId": ir.Guid("c2"), "FullName": ir.String("Alan Turing"), "Age": ir.Number(41)},
	}))

	orders, _ := cat.Lookup(testutil.Orders)
	require.NoError(t, st.Insert(ctx, orders, []map[string]ir.Value{
		{"OrderId": ir.String("o1"), "Region": ir.String("eu"), "Amount": ir.Number(10), "AccountId": ir.Guid("a1")},
		{"OrderId": ir.String("o1"), "Region": ir.String("us"), "Amount": ir.Number(20), "AccountId": ir.Guid("a2")},
		{"OrderId": ir.String("o2"), "Region": ir.String("us"), "Amount": ir.Number(30), "AccountId": ir.Guid("a1")},
	}))
	return st, cat
}
