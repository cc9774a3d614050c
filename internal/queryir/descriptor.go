package queryir

import (
	"encoding/json"
	"fmt"

	"github.com/roach88/delegation/internal/ir"
)

// Order is one sort key.
type Order struct {
	Field      string `json:"field"`
	Descending bool   `json:"descending,omitempty"`
}

// Column is one projected column.
type Column struct {
	Name     string `json:"name"`
	Source   string `json:"source"`
	Distinct bool   `json:"distinct,omitempty"`
}

// Aggregate is one grouped aggregate. Source is empty for countrows.
type Aggregate struct {
	Source string `json:"source,omitempty"`
	Kind   string `json:"kind"`
	Alias  string `json:"alias"`
}

// GroupBy is a grouping with aggregates. Names holds the output name of
// each group field and is omitted when every field keeps its own name.
type GroupBy struct {
	GroupFields []string    `json:"group_fields"`
	Names       []string    `json:"names,omitempty"`
	Aggregates  []Aggregate `json:"aggregates,omitempty"`
}

// OutputName returns the output name of group field i.
func (g *GroupBy) OutputName(i int) string {
	if len(g.Names) == len(g.GroupFields) {
		return g.Names[i]
	}
	return g.GroupFields[i]
}

// Join is a single-key equi-join with the foreign table's aliased columns.
type Join struct {
	ForeignTable     string   `json:"foreign_table"`
	SourceAttribute  string   `json:"source_attribute"`
	ForeignAttribute string   `json:"foreign_attribute"`
	Kind             string   `json:"kind"`
	ForeignAlias     string   `json:"foreign_alias"`
	ForeignColumns   []Column `json:"foreign_columns,omitempty"`
}

// Descriptor carries the non-expression parts of a query. It is encoded
// into a string literal argument of every query node.
type Descriptor struct {
	OrderBy []Order  `json:"order_by,omitempty"`
	Columns []Column `json:"columns,omitempty"`
	GroupBy *GroupBy `json:"group_by,omitempty"`
	Join    *Join    `json:"join,omitempty"`
	MaxRows int      `json:"max_rows,omitempty"`
}

// Encode returns the canonical JSON text of d.
func (d Descriptor) Encode() (string, error) {
	b, err := ir.MarshalCanonical(d.toMap())
	if err != nil {
		return "", fmt.Errorf("encode descriptor: %w", err)
	}
	return string(b), nil
}

// MustEncode is like Encode but panics on error. Descriptors only hold
// strings, booleans and integers, so encoding cannot fail.
func (d Descriptor) MustEncode() string {
	s, err := d.Encode()
	if err != nil {
		panic(err)
	}
	return s
}

// DecodeDescriptor parses a descriptor string.
func DecodeDescriptor(s string) (Descriptor, error) {
	var d Descriptor
	if s == "" {
		return d, nil
	}
	if err := json.Unmarshal([]byte(s), &d); err != nil {
		return Descriptor{}, fmt.Errorf("decode descriptor: %w", err)
	}
	return d, nil
}

// toMap converts d to the generic form MarshalCanonical accepts. Empty
// parts are omitted so equal queries encode identically.
func (d Descriptor) toMap() map[string]any {
	m := map[string]any{}
	if len(d.OrderBy) > 0 {
		order := make([]any, len(d.OrderBy))
		for i, o := range d.OrderBy {
			item := map[string]any{"field": o.Field}
			if o.Descending {
				item["descending"] = true
			}
			order[i] = item
		}
		m["order_by"] = order
	}
	if len(d.Columns) > 0 {
		m["columns"] = columnsToAny(d.Columns)
	}
	if g := d.GroupBy; g != nil {
		group := map[string]any{"group_fields": g.GroupFields}
		if len(g.Names) > 0 {
			group["names"] = g.Names
		}
		if len(g.Aggregates) > 0 {
			aggs := make([]any, len(g.Aggregates))
			for i, a := range g.Aggregates {
				agg := map[string]any{"kind": a.Kind, "alias": a.Alias}
				if a.Source != "" {
					agg["source"] = a.Source
				}
				aggs[i] = agg
			}
			group["aggregates"] = aggs
		}
		m["group_by"] = group
	}
	if j := d.Join; j != nil {
		join := map[string]any{
			"foreign_table":     j.ForeignTable,
			"source_attribute":  j.SourceAttribute,
			"foreign_attribute": j.ForeignAttribute,
			"kind":              j.Kind,
			"foreign_alias":     j.ForeignAlias,
		}
		if len(j.ForeignColumns) > 0 {
			join["foreign_columns"] = columnsToAny(j.ForeignColumns)
		}
		m["join"] = join
	}
	if d.MaxRows > 0 {
		m["max_rows"] = d.MaxRows
	}
	return m
}

func columnsToAny(cols []Column) []any {
	out := make([]any, len(cols))
	for i, c := range cols {
		col := map[string]any{"name": c.Name, "source": c.Source}
		if c.Distinct {
			col["distinct"] = true
		}
		out[i] = col
	}
	return out
}

// EncodeFieldSpec returns the canonical JSON text of f.
func EncodeFieldSpec(f FieldSpec) string {
	m := map[string]any{"name": f.Name}
	if f.Function != "" {
		m["function"] = f.Function
	}
	if r := f.Relation; r != nil {
		rel := map[string]any{"field": r.Field, "target": r.Target}
		if r.Polymorphic {
			rel["polymorphic"] = true
		}
		m["relation"] = rel
	}
	b, err := ir.MarshalCanonical(m)
	if err != nil {
		panic(fmt.Sprintf("queryir: encode field spec: %v", err))
	}
	return string(b)
}

// DecodeFieldSpec parses a field spec string.
func DecodeFieldSpec(s string) (FieldSpec, error) {
	var f FieldSpec
	if err := json.Unmarshal([]byte(s), &f); err != nil {
		return FieldSpec{}, fmt.Errorf("decode field spec: %w", err)
	}
	if f.Name == "" {
		return FieldSpec{}, fmt.Errorf("decode field spec: missing name")
	}
	return f, nil
}
