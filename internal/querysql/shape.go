package querysql

import (
	"github.com/roach88/delegation/internal/ir"
	"github.com/roach88/delegation/internal/metadata"
	"github.com/roach88/delegation/internal/queryir"
)

// CountColumn is the result column name of count queries.
const CountColumn = "Count"

// OutputKinds returns the kind of every result column of q, keyed by the
// column name the compiled SQL selects. Backends use it to turn raw driver
// values back into typed values.
func (c *SQLCompiler) OutputKinds(q queryir.Query) map[string]ir.Kind {
	table, ok := c.Catalog.Lookup(q.TableName())
	if !ok {
		return nil
	}
	var d queryir.Descriptor
	switch query := q.(type) {
	case *queryir.Retrieve:
		if query.Mode == queryir.ModeCount {
			return map[string]ir.Kind{CountColumn: ir.KindNumber}
		}
		d = query.Descriptor
	case *queryir.RetrieveByKey:
		d = query.Descriptor
	}

	kinds := make(map[string]ir.Kind)
	switch {
	case d.GroupBy != nil:
		for i, g := range d.GroupBy.GroupFields {
			kinds[d.GroupBy.OutputName(i)] = columnKind(table, g)
		}
		for _, a := range d.GroupBy.Aggregates {
			switch metadata.AggregateKind(a.Kind) {
			case metadata.AggMin, metadata.AggMax:
				kinds[a.Alias] = columnKind(table, a.Source)
			default:
				kinds[a.Alias] = ir.KindNumber
			}
		}
		return kinds
	case len(d.Columns) > 0:
		for _, col := range d.Columns {
			if k := columnKind(table, col.Source); k != ir.KindRecord {
				kinds[col.Name] = k
			}
		}
	default:
		for _, name := range StoredColumns(table) {
			kinds[name] = columnKind(table, name)
		}
	}
	if j := d.Join; j != nil {
		if foreign, ok := c.Catalog.Lookup(j.ForeignTable); ok {
			for _, col := range j.ForeignColumns {
				kinds[col.Name] = columnKind(foreign, col.Source)
			}
		}
	}
	return kinds
}

func columnKind(table *metadata.Table, name string) ir.Kind {
	if col, ok := table.Column(name); ok {
		return col.Kind
	}
	return ir.KindUnknown
}
