package metadata_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/delegation/internal/ir"
	"github.com/roach88/delegation/internal/metadata"
	"github.com/roach88/delegation/internal/testutil"
)

func lookup(t *testing.T, cat *metadata.Catalog, name string) *metadata.Table {
	t.Helper()
	tbl, ok := cat.Lookup(name)
	require.True(t, ok, name)
	return tbl
}

func TestFilterOpFor(t *testing.T) {
	tests := []struct {
		op     ir.BinaryOp
		want   metadata.FilterOp
		wantOK bool
	}{
		{ir.OpEq, metadata.OpEq, true},
		{ir.OpNotEq, metadata.OpNe, true},
		{ir.OpLt, metadata.OpLt, true},
		{ir.OpLe, metadata.OpLe, true},
		{ir.OpGt, metadata.OpGt, true},
		{ir.OpGe, metadata.OpGe, true},
		{ir.OpAdd, "", false},
		{ir.OpConcat, "", false},
	}

	for _, tt := range tests {
		got, ok := metadata.FilterOpFor(tt.op)
		assert.Equal(t, tt.wantOK, ok, tt.op.String())
		assert.Equal(t, tt.want, got, tt.op.String())
	}
}

func TestIsDatePart(t *testing.T) {
	for _, fn := range []string{"Year", "Month", "Day", "Hour", "Minute", "Second"} {
		assert.True(t, metadata.IsDatePart(fn), fn)
	}
	assert.False(t, metadata.IsDatePart(metadata.FuncStartsWith))
	assert.False(t, metadata.IsDatePart("year"))
	assert.Len(t, metadata.FieldFunctions, 8)
}

func TestCapabilities(t *testing.T) {
	assert.False(t, metadata.Capabilities{}.Any())
	assert.True(t, metadata.Capabilities{Join: true}.Any())

	// Operators are meaningless without the filter switch.
	noFilter := metadata.Capabilities{FilterOperators: metadata.AllFilterOps}
	assert.False(t, noFilter.SupportsOperator(metadata.OpEq))

	eqOnly := metadata.Capabilities{Filter: true, FilterOperators: []metadata.FilterOp{metadata.OpEq}}
	assert.True(t, eqOnly.SupportsOperator(metadata.OpEq))
	assert.False(t, eqOnly.SupportsOperator(metadata.OpGt))
}

func TestTableSupportsFilter(t *testing.T) {
	cat := testutil.SampleCatalog()
	accounts := lookup(t, cat, testutil.Accounts)
	products := lookup(t, cat, testutil.Products)
	notes := lookup(t, cat, testutil.Notes)

	assert.True(t, accounts.SupportsFilter("Revenue", metadata.OpGt))
	assert.False(t, accounts.SupportsFilter("Notes", metadata.OpEq), "column is not filterable")
	assert.False(t, accounts.SupportsFilter("Missing", metadata.OpEq))

	assert.True(t, products.SupportsFilter("Price", metadata.OpEq))
	assert.False(t, products.SupportsFilter("Price", metadata.OpGt))

	assert.False(t, notes.SupportsFilter("Text", metadata.OpEq))
}

func TestTableSupportsSortAndFunction(t *testing.T) {
	cat := testutil.SampleCatalog()
	accounts := lookup(t, cat, testutil.Accounts)
	products := lookup(t, cat, testutil.Products)

	assert.True(t, accounts.SupportsSort("Name"))
	assert.False(t, accounts.SupportsSort("Active"))
	assert.False(t, products.SupportsSort("Title"), "table has no sort capability")

	assert.True(t, accounts.SupportsFunction("Name", metadata.FuncStartsWith))
	assert.True(t, accounts.SupportsFunction("Created", metadata.FuncYear))
	assert.False(t, accounts.SupportsFunction("Created", metadata.FuncHour))
	assert.False(t, accounts.SupportsFunction("City", metadata.FuncStartsWith))
}

func TestTableSupportsSummarize(t *testing.T) {
	cat := testutil.SampleCatalog()
	accounts := lookup(t, cat, testutil.Accounts)
	orders := lookup(t, cat, testutil.Orders)

	assert.True(t, accounts.SupportsGroupBy("City"))
	assert.False(t, accounts.SupportsGroupBy("Revenue"))
	assert.False(t, orders.SupportsGroupBy("Region"))

	assert.True(t, accounts.SupportsAggregate("Revenue", metadata.AggSum))
	assert.False(t, accounts.SupportsAggregate("City", metadata.AggSum))
	assert.True(t, accounts.SupportsAggregate("", metadata.AggCountRows), "row count needs no column")
	assert.False(t, orders.SupportsAggregate("", metadata.AggCountRows))
}

func TestTableKeys(t *testing.T) {
	cat := testutil.SampleCatalog()

	key, ok := lookup(t, cat, testutil.Accounts).SinglePrimaryKey()
	require.True(t, ok)
	assert.Equal(t, "AccountId", key)
	assert.False(t, lookup(t, cat, testutil.Accounts).IsElastic())

	orders := lookup(t, cat, testutil.Orders)
	assert.True(t, orders.IsElastic())

	assert.Equal(t, []string{"OrderId", "Region"}, orders.RowKey())
	assert.Equal(t, []string{"OrderId"}, orders.PrimaryKey, "row key does not alias the primary key")
	assert.Equal(t, []string{"AccountId"}, lookup(t, cat, testutil.Accounts).RowKey())

	composite := &metadata.Table{Name: "Lines", PrimaryKey: []string{"OrderId", "Line"}}
	_, ok = composite.SinglePrimaryKey()
	assert.False(t, ok)

	partitioned := &metadata.Table{Name: "Lines", PrimaryKey: []string{"Region", "Line"}, PartitionKey: "Region"}
	assert.Equal(t, []string{"Region", "Line"}, partitioned.RowKey())
}

func TestTableType(t *testing.T) {
	cat := testutil.SampleCatalog()
	accounts := lookup(t, cat, testutil.Accounts)

	typ := accounts.Type()
	require.True(t, typ.IsTable())
	assert.Len(t, typ.Fields, 9)

	contact, ok := typ.FieldByName("PrimaryContact")
	require.True(t, ok)
	assert.True(t, contact.Type.IsRecord())
	assert.Equal(t, []string{"ContactId", "FullName", "Email", "AccountId", "Age"}, contact.Type.FieldNames())

	rel, ok := accounts.Relationship("PrimaryContact")
	require.True(t, ok)
	assert.Same(t, lookup(t, cat, testutil.Contacts), rel.TargetTable())

	_, ok = accounts.Relationship("City")
	assert.False(t, ok)
}

func TestTableTypeUnlinked(t *testing.T) {
	tbl := &metadata.Table{
		Name: "Leads",
		Columns: []metadata.Column{
			{Name: "LeadId", Kind: ir.KindGuid},
			{Name: "Owner", Kind: ir.KindRecord},
		},
		Relationships: []metadata.Relationship{{Field: "Owner", Target: "Users"}},
	}
	assert.Equal(t, "table{LeadId:guid,Owner:record{}}", tbl.Type().String())
}

func TestCatalog(t *testing.T) {
	a := &metadata.Table{Name: "B"}
	b := &metadata.Table{Name: "A"}
	cat, err := metadata.NewCatalog(a, b)
	require.NoError(t, err)

	tables := cat.Tables()
	require.Len(t, tables, 2)
	assert.Equal(t, "B", tables[0].Name, "registration order is kept")
	assert.Equal(t, "A", tables[1].Name)

	_, ok := cat.Lookup("b")
	assert.False(t, ok, "lookup is exact")

	var nilCat *metadata.Catalog
	_, ok = nilCat.Lookup("A")
	assert.False(t, ok)
}

func TestCatalogErrors(t *testing.T) {
	_, err := metadata.NewCatalog(&metadata.Table{Name: "A"}, &metadata.Table{Name: "A"})
	require.Error(t, err)
	assert.Equal(t, `duplicate table "A"`, err.Error())

	cat, err := metadata.NewCatalog()
	require.NoError(t, err)
	assert.EqualError(t, cat.Add(&metadata.Table{}), "table name is required")
	assert.EqualError(t, cat.Add(nil), "table name is required")

	require.NoError(t, cat.Add(&metadata.Table{
		Name:          "Leads",
		Relationships: []metadata.Relationship{{Field: "Owner", Target: "Users"}},
	}))
	assert.EqualError(t, cat.Link(), `table "Leads": relationship "Owner" targets unknown table "Users"`)
}
