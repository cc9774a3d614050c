package delegation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/delegation/internal/ir"
	"github.com/roach88/delegation/internal/testutil"
)

func bare(h *fakeHooks, name string) *RetVal {
	return New(testutil.Table(name), h.table(name), h, DefaultMaxRows)
}

// must returns a checker for the (*RetVal, bool) result of an Add* call,
// used as must(t)(rv.AddFilter(p)).
func must(t *testing.T) func(*RetVal, bool) *RetVal {
	t.Helper()
	return func(rv *RetVal, ok bool) *RetVal {
		t.Helper()
		require.True(t, ok)
		return rv
	}
}

func TestNew_MaxRows(t *testing.T) {
	h := newFakeHooks()

	assert.Equal(t, DefaultMaxRows, bare(h, testutil.Accounts).MaxRows())
	assert.Equal(t, 100, bare(h, testutil.Products).MaxRows(), "table limit wins")
}

func TestNonDelegating(t *testing.T) {
	n := testutil.Num(1)
	rv := NonDelegating(n)

	assert.False(t, rv.IsDelegating())
	assert.False(t, rv.IsBare())
	assert.Nil(t, rv.SourceTableNode())
	assert.Same(t, n, Materialize(rv))

	_, ok := rv.AddFilter(testutil.Bool(true))
	assert.False(t, ok)
}

func TestAddFilter_Conjoins(t *testing.T) {
	h := newFakeHooks()
	rv := bare(h, testutil.Accounts)

	a := must(t)(rv.AddFilter(testutil.Call("p1")))
	b := must(t)(a.AddFilter(testutil.Call("p2")))

	assert.Equal(t, "p1()", ir.Format(a.Filter()))
	assert.Equal(t, "and(p1(), p2())", ir.Format(b.Filter()))
	assert.True(t, rv.IsBare(), "receiver must stay untouched")
}

func TestAddFilter_RequiresAndOperator(t *testing.T) {
	h := newFakeHooks()
	products := bare(h, testutil.Products)

	filtered := must(t)(products.AddFilter(testutil.Call("p1")))
	_, ok := filtered.AddFilter(testutil.Call("p2"))
	assert.False(t, ok, "Products declares only eq")
}

func TestConflictRules(t *testing.T) {
	h := newFakeHooks()
	base := bare(h, testutil.Accounts)
	top := must(t)(base.AddTopCount(testutil.Num(5)))
	ordered := must(t)(base.AddOrderBy([]OrderItem{{Field: "Name"}}))
	distinct := must(t)(base.AddDistinct("City"))
	groups, _ := NewGroupByNode(GroupKeys("City"), nil)
	grouped := must(t)(base.AddGroupBy(groups))
	counted := must(t)(base.TryAddReturnRowCount())
	joined := must(t)(base.AddJoin(
		NewJoinNode(testutil.Accounts, testutil.Contacts, []string{"PrimaryContactId"}, []string{"ContactId"}, JoinInner, testutil.Table(testutil.Contacts), nil),
		bare(h, testutil.Contacts),
	))
	cols, _ := IdentityColumns("Name")

	tests := []struct {
		name     string
		op       func(*RetVal) bool
		rejected []*RetVal
		accepted []*RetVal
	}{
		{
			name:     "filter",
			op:       func(rv *RetVal) bool { _, ok := rv.AddFilter(testutil.Call("p")); return ok },
			rejected: []*RetVal{top, distinct, grouped, counted, joined},
			accepted: []*RetVal{base, ordered},
		},
		{
			name:     "order by",
			op:       func(rv *RetVal) bool { _, ok := rv.AddOrderBy([]OrderItem{{Field: "City"}}); return ok },
			rejected: []*RetVal{top, distinct, grouped, counted, joined},
			accepted: []*RetVal{base, ordered},
		},
		{
			name:     "top",
			op:       func(rv *RetVal) bool { _, ok := rv.AddTopCount(testutil.Num(3)); return ok },
			rejected: []*RetVal{grouped, counted},
			accepted: []*RetVal{base, top, ordered, distinct, joined},
		},
		{
			name:     "columns",
			op:       func(rv *RetVal) bool { _, ok := rv.AddColumns(cols); return ok },
			rejected: []*RetVal{grouped, counted, joined},
			accepted: []*RetVal{base, top, ordered},
		},
		{
			name:     "distinct",
			op:       func(rv *RetVal) bool { _, ok := rv.AddDistinct("Name"); return ok },
			rejected: []*RetVal{top, ordered, distinct, grouped, counted, joined},
			accepted: []*RetVal{base},
		},
		{
			name:     "group by",
			op:       func(rv *RetVal) bool { _, ok := rv.AddGroupBy(groups); return ok },
			rejected: []*RetVal{top, ordered, distinct, grouped, counted, joined},
			accepted: []*RetVal{base},
		},
		{
			name:     "count",
			op:       func(rv *RetVal) bool { _, ok := rv.TryAddReturnRowCount(); return ok },
			rejected: []*RetVal{top, distinct, grouped, counted, joined},
			accepted: []*RetVal{base, ordered},
		},
		{
			name:     "join",
			op:       func(rv *RetVal) bool { _, ok := rv.AddJoin(joined.Join(), bare(h, testutil.Contacts)); return ok },
			rejected: []*RetVal{top, ordered, distinct, grouped, counted, joined},
			accepted: []*RetVal{base},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for i, rv := range tt.rejected {
				assert.False(t, tt.op(rv), "rejected[%d]", i)
			}
			for i, rv := range tt.accepted {
				assert.True(t, tt.op(rv), "accepted[%d]", i)
			}
		})
	}
}

func TestAddOrderBy_LaterKeysFirst(t *testing.T) {
	h := newFakeHooks()
	rv := must(t)(bare(h, testutil.Accounts).AddOrderBy([]OrderItem{{Field: "Name"}, {Field: "City"}}))
	rv = must(t)(rv.AddOrderBy([]OrderItem{{Field: "City", Descending: true}}))

	assert.Equal(t, []OrderItem{{Field: "City", Descending: true}, {Field: "Name"}}, rv.OrderBy())
}

func TestAddTopCount_Combine(t *testing.T) {
	h := newFakeHooks()
	rv := must(t)(bare(h, testutil.Accounts).AddTopCount(testutil.Num(10)))

	smaller := must(t)(rv.AddTopCount(testutil.Num(3)))
	assert.Equal(t, "3", ir.Format(smaller.TopCount()))

	larger := must(t)(rv.AddTopCount(testutil.Num(30)))
	assert.Equal(t, "10", ir.Format(larger.TopCount()))

	_, ok := rv.AddTopCount(testutil.Var("n"))
	assert.False(t, ok, "computed caps cannot be combined")
}

func TestAddTopCount_RejectsInvalidLiterals(t *testing.T) {
	h := newFakeHooks()
	base := bare(h, testutil.Accounts)

	for _, n := range []float64{-1, 2.5} {
		_, ok := base.AddTopCount(testutil.Num(n))
		assert.False(t, ok, "%v", n)
	}
	zero := must(t)(base.AddTopCount(testutil.Num(0)))
	assert.Equal(t, "0", ir.Format(zero.TopCount()))
}

func TestIsBounded(t *testing.T) {
	h := newFakeHooks()
	base := bare(h, testutil.Accounts)

	assert.False(t, base.IsBounded())
	assert.True(t, must(t)(base.AddTopCount(testutil.Num(5))).IsBounded())
	assert.False(t, must(t)(base.AddTopCount(testutil.Num(5000))).IsBounded())
	assert.False(t, must(t)(base.AddTopCount(testutil.Var("n"))).IsBounded())
	assert.True(t, must(t)(base.TryAddReturnRowCount()).IsBounded())
}

func TestAddColumns_ProjectsType(t *testing.T) {
	h := newFakeHooks()
	renamed, _ := NewColumnMap(ColumnInfo{Name: "Title", Source: "Name"}, ColumnInfo{Name: "Revenue", Source: "Revenue"})
	rv := must(t)(bare(h, testutil.Accounts).AddColumns(renamed))

	assert.Equal(t, []string{"Title", "Revenue"}, rv.TableType().FieldNames())
	f, _ := rv.TableType().FieldByName("Revenue")
	assert.Equal(t, ir.KindNumber, f.Type.Kind)

	src, ok := rv.SourceName("Title")
	require.True(t, ok)
	assert.Equal(t, "Name", src)
	_, ok = rv.SourceName("Name")
	assert.False(t, ok, "renamed column is no longer exposed")

	unknown, _ := IdentityColumns("Name")
	_, ok = rv.AddColumns(unknown)
	assert.False(t, ok)
}

func TestAddDistinct(t *testing.T) {
	h := newFakeHooks()
	rv := must(t)(bare(h, testutil.Accounts).AddDistinct("City"))

	assert.Equal(t, []string{DistinctColumn}, rv.TableType().FieldNames())
	_, ok := rv.SourceName(DistinctColumn)
	assert.False(t, ok, "distinct columns never resolve")

	_, ok = bare(h, testutil.Accounts).AddDistinct("Nope")
	assert.False(t, ok)
}

func TestAddGroupBy_Type(t *testing.T) {
	h := newFakeHooks()
	g, _ := NewGroupByNode(GroupKeys("City"), []AggregateExpression{
		{Source: "Revenue", Kind: "sum", Alias: "Total"},
		{Source: "Created", Kind: "max", Alias: "Latest"},
	})
	rv := must(t)(bare(h, testutil.Accounts).AddGroupBy(g))

	assert.Equal(t, []string{"City", "Total", "Latest"}, rv.TableType().FieldNames())
	latest, _ := rv.TableType().FieldByName("Latest")
	assert.Equal(t, ir.KindDate, latest.Type.Kind)
	_, ok := rv.SourceName("City")
	assert.False(t, ok)
}

func TestAddGroupBy_RenamedKey(t *testing.T) {
	h := newFakeHooks()
	g, _ := NewGroupByNode([]ColumnInfo{{Name: "Town", Source: "City"}}, nil)
	rv := must(t)(bare(h, testutil.Accounts).AddGroupBy(g))

	assert.Equal(t, []string{"Town"}, rv.TableType().FieldNames())
	town, _ := rv.TableType().FieldByName("Town")
	assert.Equal(t, ir.KindString, town.Type.Kind)
}

func TestTryAddReturnRowCount_DropsShape(t *testing.T) {
	h := newFakeHooks()
	cols, _ := IdentityColumns("Name")
	rv := must(t)(bare(h, testutil.Accounts).AddColumns(cols))
	rv = must(t)(rv.AddOrderBy([]OrderItem{{Field: "Name"}}))
	rv = must(t)(rv.TryAddReturnRowCount())

	assert.True(t, rv.ReturnsRowCount())
	assert.Nil(t, rv.Columns())
	assert.Empty(t, rv.OrderBy())
	assert.Equal(t, ir.KindNumber, rv.TableType().Kind)
}

func TestMaterialize(t *testing.T) {
	h := newFakeHooks()
	base := bare(h, testutil.Accounts)

	assert.Same(t, base.OriginalNode(), Materialize(base), "bare query is the table itself")

	top := must(t)(base.AddTopCount(testutil.Num(1)))
	assert.Equal(t, `query(Accounts, "table")`, ir.Format(Materialize(top)))

	counted := must(t)(base.TryAddReturnRowCount())
	assert.Equal(t, `query(Accounts, "count")`, ir.Format(Materialize(counted)))
}

func TestDerivedFacts(t *testing.T) {
	h := newFakeHooks()

	orders := bare(h, testutil.Orders)
	assert.True(t, orders.IsElasticTable())
	pk, ok := orders.PrimaryKeyFieldName()
	require.True(t, ok)
	assert.Equal(t, "OrderId", pk)

	assert.False(t, bare(h, testutil.Accounts).IsElasticTable())
	assert.False(t, NonDelegating(testutil.Num(1)).IsElasticTable())
}
