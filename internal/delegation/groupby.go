package delegation

import "github.com/roach88/delegation/internal/metadata"

// AggregateExpression is one server-side aggregate of a grouped query.
type AggregateExpression struct {
	// Source is the aggregated source column; empty for countrows.
	Source string `json:"source,omitempty"`
	// Kind is the aggregation.
	Kind metadata.AggregateKind `json:"kind"`
	// Alias is the output column name.
	Alias string `json:"alias"`
}

// GroupByNode is a grouping descriptor: group keys plus aggregates.
// Each group key groups by its Source column and is output under its Name.
type GroupByNode struct {
	GroupFields []ColumnInfo          `json:"group_fields"`
	Aggregates  []AggregateExpression `json:"aggregates,omitempty"`
}

// GroupKeys returns identity group keys for source columns that keep their
// names.
func GroupKeys(names ...string) []ColumnInfo {
	out := make([]ColumnInfo, len(names))
	for i, n := range names {
		out[i] = ColumnInfo{Name: n, Source: n}
	}
	return out
}

// NewGroupByNode creates a grouping descriptor. It returns false when two
// outputs share a name, a key groups by a distinct column or nothing is
// grouped.
func NewGroupByNode(groups []ColumnInfo, aggs []AggregateExpression) (*GroupByNode, bool) {
	if len(groups) == 0 {
		return nil, false
	}
	seen := make(map[string]bool, len(groups)+len(aggs))
	for _, g := range groups {
		if seen[g.Name] || g.Distinct {
			return nil, false
		}
		seen[g.Name] = true
	}
	for _, a := range aggs {
		if seen[a.Alias] {
			return nil, false
		}
		seen[a.Alias] = true
	}
	return &GroupByNode{
		GroupFields: append([]ColumnInfo(nil), groups...),
		Aggregates:  append([]AggregateExpression(nil), aggs...),
	}, true
}

// OutputNames returns group keys followed by aggregate aliases.
func (g *GroupByNode) OutputNames() []string {
	out := make([]string, 0, len(g.GroupFields)+len(g.Aggregates))
	for _, c := range g.GroupFields {
		out = append(out, c.Name)
	}
	for _, a := range g.Aggregates {
		out = append(out, a.Alias)
	}
	return out
}
