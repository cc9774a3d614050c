package querybuild_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/delegation/internal/delegation"
	"github.com/roach88/delegation/internal/ir"
	"github.com/roach88/delegation/internal/metadata"
	"github.com/roach88/delegation/internal/querybuild"
	"github.com/roach88/delegation/internal/queryir"
	. "github.com/roach88/delegation/internal/testutil"
)

func setup(t *testing.T, table string) (*querybuild.Builder, *delegation.RetVal) {
	t.Helper()
	cat := SampleCatalog()
	b := querybuild.New(cat)
	tbl, ok := cat.Lookup(table)
	require.True(t, ok)
	sym := Table(table)
	sym.Span = ir.Span{Start: 7, End: 15}
	return b, delegation.New(sym, tbl, b, 500)
}

func TestIsDelegableTable(t *testing.T) {
	b := querybuild.New(SampleCatalog())

	tbl, ok := b.IsDelegableTable(Table(Accounts))
	require.True(t, ok)
	assert.Equal(t, Accounts, tbl.Name)

	_, ok = b.IsDelegableTable(Table(Notes))
	assert.False(t, ok, "a table without capabilities is local")

	_, ok = b.IsDelegableTable(Table("Leads"))
	assert.False(t, ok)

	assert.NotNil(t, b.Catalog())
}

func TestMakePredicates(t *testing.T) {
	b := querybuild.New(SampleCatalog())
	revenue := delegation.FieldRef{Name: "Revenue", Kind: ir.KindNumber}
	name := delegation.FieldRef{Name: "Name", Kind: ir.KindString}

	gt := b.MakeCompare(ir.OpGt, revenue, Num(100))
	assert.Equal(t, `__gt("{\"name\":\"Revenue\"}", 100)`, ir.Format(gt))
	assert.Equal(t, ir.TypeBoolean, gt.Info().Type)

	ne := b.MakeCompare(ir.OpNotEq, revenue, Num(0))
	assert.Equal(t, queryir.FuncNe, ne.(*ir.Call).Func)

	assert.Equal(t, `__startsWith("{\"name\":\"Name\"}", "A")`, ir.Format(b.MakeStartsWith(name, Str("A"))))
	assert.Equal(t, `__endsWith("{\"name\":\"Name\"}", "z")`, ir.Format(b.MakeEndsWith(name, Str("z"))))
	assert.Equal(t, `__not(__null("{\"name\":\"Name\"}"))`, ir.Format(b.MakeNot(b.MakeBlankCheck(name))))
}

func TestMakeConnectivesFlatten(t *testing.T) {
	b := querybuild.New(SampleCatalog())
	x := delegation.FieldRef{Name: "Revenue"}
	p1 := b.MakeCompare(ir.OpGt, x, Num(1))
	p2 := b.MakeCompare(ir.OpLt, x, Num(9))
	p3 := b.MakeCompare(ir.OpEq, x, Num(5))

	and := b.MakeAnd(b.MakeAnd(p1, p2), p3).(*ir.Call)
	assert.Equal(t, queryir.FuncAnd, and.Func)
	assert.Equal(t, []ir.Node{p1, p2, p3}, and.Args)

	// Different connectives do not merge.
	or := b.MakeOr(b.MakeAnd(p1, p2), p3).(*ir.Call)
	require.Len(t, or.Args, 2)
	assert.Equal(t, queryir.FuncAnd, or.Args[0].(*ir.Call).Func)
}

func TestFieldSpec(t *testing.T) {
	spec := querybuild.FieldSpec(delegation.FieldRef{
		Name:      "Created",
		Function:  metadata.FuncYear,
		Coercions: []ir.UnaryOp{ir.OpDateToNumber},
		Relation:  &delegation.Relation{Field: "PrimaryContact", Target: Contacts, Polymorphic: true},
	})
	assert.Equal(t, queryir.FieldSpec{
		Name:     "Created",
		Function: "Year",
		Relation: &queryir.Relation{Field: "PrimaryContact", Target: Contacts, Polymorphic: true},
	}, spec)
}

func TestMakeQueryExecNode(t *testing.T) {
	b, rv := setup(t, Accounts)
	rv, ok := rv.AddFilter(b.MakeCompare(ir.OpGt, delegation.FieldRef{Name: "Revenue"}, Num(100)))
	require.True(t, ok)
	rv, ok = rv.AddOrderBy([]delegation.OrderItem{{Field: "Name", Descending: true}})
	require.True(t, ok)
	rv, ok = rv.AddTopCount(Num(10))
	require.True(t, ok)

	n := b.MakeQueryExecNode(rv, delegation.ModeTable)
	call := n.(*ir.Call)
	assert.Equal(t, queryir.FuncRetrieveMultiple, call.Func)
	assert.Equal(t, ir.Span{Start: 7, End: 15}, call.Span)
	assert.True(t, call.Type.IsTable())

	desc, ok := ir.StringLiteral(call.Args[3])
	require.True(t, ok)
	assert.Equal(t, `{"max_rows":500,"order_by":[{"descending":true,"field":"Name"}]}`, desc)

	q, err := queryir.FromNode(n)
	require.NoError(t, err)
	r := q.(*queryir.Retrieve)
	assert.Equal(t, "10", ir.Format(r.Top))
	assert.IsType(t, &queryir.Compare{}, r.Filter)
}

func TestMakeQueryExecNodeModes(t *testing.T) {
	b, rv := setup(t, Accounts)

	single := b.MakeQueryExecNode(rv, delegation.ModeSingle).(*ir.Call)
	assert.Equal(t, queryir.FuncRetrieveSingle, single.Func)
	assert.True(t, single.Type.IsRecord())
	assert.True(t, ir.IsBlankLiteral(single.Args[1]))
	assert.True(t, ir.IsBlankLiteral(single.Args[2]))

	count := b.MakeQueryExecNode(rv, delegation.ModeCount).(*ir.Call)
	assert.Equal(t, queryir.FuncCountRows, count.Func)
	assert.Equal(t, ir.TypeNumber, count.Type)
}

func TestMakeRetrieveByKey(t *testing.T) {
	b, rv := setup(t, Accounts)
	byID := b.MakeRetrieveByID(rv, Var("id")).(*ir.Call)
	assert.Equal(t, queryir.FuncRetrieveGUID, byID.Func)
	assert.True(t, byID.Type.IsRecord())
	require.Len(t, byID.Args, 3)

	b, rv = setup(t, Orders)
	elastic := b.MakeRetrieveElastic(rv, Str("o1"), Str("west")).(*ir.Call)
	assert.Equal(t, queryir.FuncRetrieveElastic, elastic.Func)

	q, err := queryir.FromNode(elastic)
	require.NoError(t, err)
	k := q.(*queryir.RetrieveByKey)
	assert.Equal(t, Orders, k.Table)
	assert.Equal(t, 500, k.MaxRows)
}

func TestDescriptorGroupAndJoin(t *testing.T) {
	_, rv := setup(t, Accounts)
	g, ok := delegation.NewGroupByNode(delegation.GroupKeys("City"), []delegation.AggregateExpression{
		{Source: "Revenue", Kind: metadata.AggSum, Alias: "Total"},
		{Kind: metadata.AggCountRows, Alias: "N"},
	})
	require.True(t, ok)
	grouped, ok := rv.AddGroupBy(g)
	require.True(t, ok)

	d := querybuild.Descriptor(grouped)
	assert.Nil(t, d.Columns)
	assert.Equal(t, &queryir.GroupBy{
		GroupFields: []string{"City"},
		Aggregates: []queryir.Aggregate{
			{Source: "Revenue", Kind: "sum", Alias: "Total"},
			{Kind: "countrows", Alias: "N"},
		},
	}, d.GroupBy)

	renamed, ok := delegation.NewGroupByNode([]delegation.ColumnInfo{{Name: "Town", Source: "City"}}, nil)
	require.True(t, ok)
	d = querybuild.Descriptor(must(t)(rv.AddGroupBy(renamed)))
	assert.Equal(t, []string{"City"}, d.GroupBy.GroupFields)
	assert.Equal(t, []string{"Town"}, d.GroupBy.Names)
	assert.Equal(t, "Town", d.GroupBy.OutputName(0))

	b, contacts := setup(t, Contacts)
	_, accounts := setup(t, Accounts)
	joined, ok := accounts.AddJoin(&delegation.JoinNode{
		SourceTable:      Accounts,
		ForeignTable:     Contacts,
		SourceAttribute:  "PrimaryContactId",
		ForeignAttribute: "ContactId",
		Kind:             delegation.JoinLeft,
		ForeignAlias:     "c",
		ForeignColumns:   []delegation.ColumnInfo{{Name: "ContactName", Source: "FullName"}},
	}, contacts)
	require.True(t, ok)

	d = querybuild.Descriptor(joined)
	require.NotNil(t, d.Join)
	assert.Equal(t, queryir.Join{
		ForeignTable:     Contacts,
		SourceAttribute:  "PrimaryContactId",
		ForeignAttribute: "ContactId",
		Kind:             "left",
		ForeignAlias:     "c",
		ForeignColumns:   []queryir.Column{{Name: "ContactName", Source: "FullName"}},
	}, *d.Join)

	v := queryir.Validate(mustDecode(t, b.MakeQueryExecNode(joined, delegation.ModeTable)), SampleCatalog())
	assert.True(t, v.IsValid, "%v", v.Problems)
}

func must(t *testing.T) func(*delegation.RetVal, bool) *delegation.RetVal {
	t.Helper()
	return func(rv *delegation.RetVal, ok bool) *delegation.RetVal {
		t.Helper()
		require.True(t, ok)
		return rv
	}
}

func mustDecode(t *testing.T, n ir.Node) queryir.Query {
	t.Helper()
	q, err := queryir.FromNode(n)
	require.NoError(t, err)
	return q
}
