package delegation

// ColumnInfo maps one output column to its source column.
type ColumnInfo struct {
	// Name is the column name exposed to the formula.
	Name string `json:"name"`
	// Source is the column name on the remote table.
	Source string `json:"source"`
	// Distinct marks the column as the subject of a distinct projection.
	Distinct bool `json:"distinct,omitempty"`
}

// ColumnMap is an ordered projection from output names to source columns.
// It is immutable; Merge returns a new map.
type ColumnMap struct {
	cols []ColumnInfo
}

// NewColumnMap creates a column map. Duplicate output names return false.
func NewColumnMap(cols ...ColumnInfo) (*ColumnMap, bool) {
	seen := make(map[string]bool, len(cols))
	for _, c := range cols {
		if seen[c.Name] {
			return nil, false
		}
		seen[c.Name] = true
	}
	return &ColumnMap{cols: append([]ColumnInfo(nil), cols...)}, true
}

// IdentityColumns maps each name to itself.
func IdentityColumns(names ...string) (*ColumnMap, bool) {
	cols := make([]ColumnInfo, len(names))
	for i, n := range names {
		cols[i] = ColumnInfo{Name: n, Source: n}
	}
	return NewColumnMap(cols...)
}

// Len returns the number of columns; a nil map has none.
func (m *ColumnMap) Len() int {
	if m == nil {
		return 0
	}
	return len(m.cols)
}

// Columns returns a copy of the projected columns in order.
func (m *ColumnMap) Columns() []ColumnInfo {
	if m == nil {
		return nil
	}
	return append([]ColumnInfo(nil), m.cols...)
}

// Names returns the output names in order.
func (m *ColumnMap) Names() []string {
	if m == nil {
		return nil
	}
	out := make([]string, len(m.cols))
	for i, c := range m.cols {
		out[i] = c.Name
	}
	return out
}

// Lookup returns the column exposed under name.
func (m *ColumnMap) Lookup(name string) (ColumnInfo, bool) {
	if m == nil {
		return ColumnInfo{}, false
	}
	for _, c := range m.cols {
		if c.Name == name {
			return c, true
		}
	}
	return ColumnInfo{}, false
}

// HasDistinct reports whether any column is a distinct projection.
func (m *ColumnMap) HasDistinct() bool {
	if m == nil {
		return false
	}
	for _, c := range m.cols {
		if c.Distinct {
			return true
		}
	}
	return false
}

// Merge composes an outer projection onto m. The outer map's Source names
// refer to m's output names; the result maps the outer output names
// straight to m's sources. A nil receiver returns outer unchanged.
//
// Merge panics with an InvariantError when outer references a column m
// does not expose or when the result would repeat an output name; callers
// validate projections before merging.
func (m *ColumnMap) Merge(outer *ColumnMap) *ColumnMap {
	if m == nil {
		return outer
	}
	if outer == nil {
		return m
	}
	merged := make([]ColumnInfo, 0, len(outer.cols))
	seen := make(map[string]bool, len(outer.cols))
	for _, oc := range outer.cols {
		inner, ok := m.Lookup(oc.Source)
		if !ok {
			violate("column-source-exists", "projection references unknown column %q", oc.Source)
		}
		if seen[oc.Name] {
			violate("column-alias-unique", "column %q projected twice", oc.Name)
		}
		seen[oc.Name] = true
		merged = append(merged, ColumnInfo{
			Name:     oc.Name,
			Source:   inner.Source,
			Distinct: inner.Distinct || oc.Distinct,
		})
	}
	return &ColumnMap{cols: merged}
}
