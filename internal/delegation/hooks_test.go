package delegation

import (
	"github.com/roach88/delegation/internal/ir"
	"github.com/roach88/delegation/internal/metadata"
	"github.com/roach88/delegation/internal/testutil"
)

// fakeHooks renders remote conditions as plain calls so internal tests can
// inspect them with ir.Format.
type fakeHooks struct {
	cat *metadata.Catalog
}

func newFakeHooks() *fakeHooks { return &fakeHooks{cat: testutil.SampleCatalog()} }

func (h *fakeHooks) table(name string) *metadata.Table {
	t, ok := h.cat.Lookup(name)
	if !ok {
		panic("unknown table " + name)
	}
	return t
}

func (h *fakeHooks) IsDelegableTable(sym *ir.Symbol) (*metadata.Table, bool) {
	t, ok := h.cat.Lookup(sym.Name)
	if !ok || !t.Capabilities.Any() {
		return nil, false
	}
	return t, true
}

func (h *fakeHooks) MakeCompare(op ir.BinaryOp, field FieldRef, value ir.Node) ir.Node {
	return testutil.Call("cmp", testutil.Str(op.String()), testutil.Str(field.Name), value)
}

func (h *fakeHooks) MakeAnd(terms ...ir.Node) ir.Node { return testutil.Call("and", terms...) }
func (h *fakeHooks) MakeOr(terms ...ir.Node) ir.Node  { return testutil.Call("or", terms...) }
func (h *fakeHooks) MakeNot(term ir.Node) ir.Node     { return testutil.Call("not", term) }

func (h *fakeHooks) MakeStartsWith(field FieldRef, value ir.Node) ir.Node {
	return testutil.Call("prefix", testutil.Str(field.Name), value)
}

func (h *fakeHooks) MakeEndsWith(field FieldRef, value ir.Node) ir.Node {
	return testutil.Call("suffix", testutil.Str(field.Name), value)
}

func (h *fakeHooks) MakeBlankCheck(field FieldRef) ir.Node {
	return testutil.Call("blank", testutil.Str(field.Name))
}

func (h *fakeHooks) MakeRetrieveByID(rv *RetVal, id ir.Node) ir.Node {
	return testutil.Call("byid", rv.SourceTableNode(), id)
}

func (h *fakeHooks) MakeRetrieveElastic(rv *RetVal, id, partition ir.Node) ir.Node {
	return testutil.Call("byidp", rv.SourceTableNode(), id, partition)
}

func (h *fakeHooks) MakeQueryExecNode(rv *RetVal, mode ResultMode) ir.Node {
	return testutil.Call("query", rv.SourceTableNode(), testutil.Str(mode.String()))
}
