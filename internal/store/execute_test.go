package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/delegation/internal/ir"
	"github.com/roach88/delegation/internal/queryir"
	"github.com/roach88/delegation/internal/querysql"
	"github.com/roach88/delegation/internal/testutil"
)

func TestExecute_FilterAndOrder(t *testing.T) {
	ctx := context.Background()
	st, cat := createSeededStore(t)
	c := querysql.NewSQLCompiler(cat)

	q := &queryir.Retrieve{
		Table:  testutil.Accounts,
		Mode:   queryir.ModeRows,
		Filter: &queryir.Compare{Op: queryir.OpGt, Field: queryir.FieldSpec{Name: "Revenue"}, Value: testutil.Num(100)},
		Descriptor: queryir.Descriptor{
			OrderBy: []queryir.Order{{Field: "Revenue", Descending: true}},
			Columns: []queryir.Column{{Name: "Name", Source: "Name"}, {Name: "Amount", Source: "Revenue"}},
		},
	}
	res, err := st.Execute(ctx, c, q)
	require.NoError(t, err)

	assert.Equal(t, []string{"Name", "Amount"}, res.Columns)
	assert.Equal(t, [][]ir.Value{
		{ir.String("Contoso"), ir.Number(500)},
		{ir.String("Northwind"), ir.Number(250)},
	}, res.Rows)
}

func TestExecute_TypedValues(t *testing.T) {
	ctx := context.Background()
	st, cat := createSeededStore(t)
	c := querysql.NewSQLCompiler(cat)

	q := &queryir.RetrieveByKey{Table: testutil.Accounts, ID: ir.Lit(ir.Guid("a2"))}
	res, err := st.Execute(ctx, c, q)
	require.NoError(t, err)
	require.Len(t, res.Rows, 1)

	rec := res.Records()[0]
	assert.Equal(t, ir.Guid("a2"), rec["AccountId"])
	assert.Equal(t, ir.Bool(false), rec["Active"])
	assert.Equal(t, ir.NewDate(2024, 6, 1), rec["Created"])
	assert.Equal(t, ir.Blank{}, rec["PrimaryContactId"])
	assert.NotContains(t, rec, "PrimaryContact")
}

func TestExecute_Count(t *testing.T) {
	ctx := context.Background()
	st, cat := createSeededStore(t)
	c := querysql.NewSQLCompiler(cat)

	q := &queryir.Retrieve{
		Table:  testutil.Accounts,
		Mode:   queryir.ModeCount,
		Filter: &queryir.Compare{Op: queryir.OpEq, Field: queryir.FieldSpec{Name: "City"}, Value: testutil.Str("Seattle")},
	}
	res, err := st.Execute(ctx, c, q)
	require.NoError(t, err)

	n, ok := res.Count()
	require.True(t, ok)
	assert.Equal(t, 2, n)
}

func TestExecute_ElasticKey(t *testing.T) {
	ctx := context.Background()
	st, cat := createSeededStore(t)
	c := querysql.NewSQLCompiler(cat)

	q := &queryir.RetrieveByKey{Table: testutil.Orders, ID: testutil.Str("o1"), Partition: testutil.Str("us")}
	res, err := st.Execute(ctx, c, q)
	require.NoError(t, err)
	require.Len(t, res.Rows, 1)
	assert.Equal(t, ir.Number(20), res.Records()[0]["Amount"])
}

func TestExecute_RelationPredicate(t *testing.T) {
	ctx := context.Background()
	st, cat := createSeededStore(t)
	c := querysql.NewSQLCompiler(cat)

	q := &queryir.Retrieve{
		Table: testutil.Accounts,
		Mode:  queryir.ModeRows,
		Filter: &queryir.TextMatch{
			Field: queryir.FieldSpec{Name: "FullName", Relation: &queryir.Relation{Field: "PrimaryContact", Target: testutil.Contacts}},
			Value: testutil.Str("Alan"),
		},
		Descriptor: queryir.Descriptor{Columns: []queryir.Column{{Name: "Name", Source: "Name"}}},
	}
	res, err := st.Execute(ctx, c, q)
	require.NoError(t, err)
	assert.Equal(t, [][]ir.Value{{ir.String("Northwind")}}, res.Rows)
}

func TestExecute_GroupBy(t *testing.T) {
	ctx := context.Background()
	st, cat := createSeededStore(t)
	c := querysql.NewSQLCompiler(cat)

	q := &queryir.Retrieve{
		Table: testutil.Accounts,
		Mode:  queryir.ModeRows,
		Descriptor: queryir.Descriptor{GroupBy: &queryir.GroupBy{
			GroupFields: []string{"City"},
			Aggregates: []queryir.Aggregate{
				{Source: "Revenue", Kind: "sum", Alias: "Total"},
				{Kind: "countrows", Alias: "Accounts"},
			},
		}},
	}
	res, err := st.Execute(ctx, c, q)
	require.NoError(t, err)
	assert.Equal(t, []string{"City", "Total", "Accounts"}, res.Columns)
	assert.Equal(t, [][]ir.Value{
		{ir.String("Portland"), ir.Number(250), ir.Number(1)},
		{ir.String("Seattle"), ir.Number(550), ir.Number(2)},
	}, res.Rows)
}

func TestExecute_GroupByRenamedKey(t *testing.T) {
	ctx := context.Background()
	st, cat := createSeededStore(t)
	c := querysql.NewSQLCompiler(cat)

	q := &queryir.Retrieve{
		Table: testutil.Accounts,
		Mode:  queryir.ModeRows,
		Descriptor: queryir.Descriptor{GroupBy: &queryir.GroupBy{
			GroupFields: []string{"City"},
			Names:       []string{"Town"},
			Aggregates:  []queryir.Aggregate{{Source: "Revenue", Kind: "sum", Alias: "Total"}},
		}},
	}
	res, err := st.Execute(ctx, c, q)
	require.NoError(t, err)
	assert.Equal(t, []string{"Town", "Total"}, res.Columns)
	assert.Equal(t, []ir.Value{ir.String("Portland"), ir.Number(250)}, res.Rows[0])
}

func TestExecute_TopCountIsClamped(t *testing.T) {
	ctx := context.Background()
	st, cat := createSeededStore(t)
	c := querysql.NewSQLCompiler(cat)

	testCases := []struct {
		name    string
		top     float64
		maxRows int
		want    int
	}{
		{"negative returns nothing", -1, 500, 0},
		{"above max rows", 1000, 2, 2},
		{"within max rows", 1, 500, 1},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			res, err := st.Execute(ctx, c, &queryir.Retrieve{
				Table:      testutil.Accounts,
				Mode:       queryir.ModeRows,
				Top:        testutil.Num(tc.top),
				Descriptor: queryir.Descriptor{MaxRows: tc.maxRows},
			})
			require.NoError(t, err)
			assert.Len(t, res.Rows, tc.want)
		})
	}
}

func TestExecute_StatementCacheAndLog(t *testing.T) {
	ctx := context.Background()
	st, cat := createSeededStore(t)
	c := querysql.NewSQLCompiler(cat)
	c.BoundValues["minRevenue"] = 100

	q := &queryir.Retrieve{
		Table:  testutil.Accounts,
		Mode:   queryir.ModeRows,
		Filter: &queryir.Compare{Op: queryir.OpGe, Field: queryir.FieldSpec{Name: "Revenue"}, Value: testutil.Var("minRevenue")},
	}
	_, err := st.Execute(ctx, c, q)
	require.NoError(t, err)

	c.BoundValues["minRevenue"] = 300
	res, err := st.Execute(ctx, c, q)
	require.NoError(t, err)
	assert.Len(t, res.Rows, 1)

	assert.Equal(t, 1, st.CachedStatements(), "same SQL must reuse the prepared statement")

	log, err := st.QueryLog(ctx)
	require.NoError(t, err)
	require.Len(t, log, 2)
	assert.Equal(t, int64(1), log[0].Seq)
	assert.Equal(t, log[0].Fingerprint, log[1].Fingerprint)
	assert.Equal(t, testutil.Accounts, log[1].Table)
	assert.Equal(t, 2, log[0].RowCount)
	assert.Equal(t, 1, log[1].RowCount)
	assert.Equal(t, "[300]", log[1].Params)
}

func TestExecuteNode_NotAQuery(t *testing.T) {
	st, cat := createSeededStore(t)
	_, err := st.ExecuteNode(context.Background(), querysql.NewSQLCompiler(cat), testutil.Num(1))
	require.Error(t, err)
}

func TestFromSQL(t *testing.T) {
	tests := []struct {
		name string
		raw  any
		kind ir.Kind
		want ir.Value
	}{
		{"nil", nil, ir.KindString, ir.Blank{}},
		{"bool", int64(1), ir.KindBoolean, ir.Bool(true)},
		{"int number", int64(3), ir.KindNumber, ir.Number(3)},
		{"float number", 2.5, ir.KindNumber, ir.Number(2.5)},
		{"bytes", []byte("x"), ir.KindString, ir.String("x")},
		{"guid", "g", ir.KindGuid, ir.Guid("g")},
		{"date", "2024-02-29", ir.KindDate, ir.NewDate(2024, 2, 29)},
		{"unknown kind", int64(7), ir.KindUnknown, ir.Number(7)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := fromSQL(tt.raw, tt.kind)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
