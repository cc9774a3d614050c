package compiler

import (
	_ "embed"
	"fmt"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/roach88/delegation/internal/ir"
	"github.com/roach88/delegation/internal/metadata"
)

//go:embed schema.cue
var schemaSource string

// tableSpec mirrors #Table in schema.cue. Columns and relationships are read
// with Fields so declaration order is kept; the maps only carry the values.
type tableSpec struct {
	Source        string                      `json:"source"`
	PrimaryKey    []string                    `json:"primary_key"`
	PartitionKey  string                      `json:"partition_key"`
	MaxRows       int                         `json:"max_rows"`
	Capabilities  capabilitiesSpec            `json:"capabilities"`
	Columns       map[string]columnSpec       `json:"columns"`
	Relationships map[string]relationshipSpec `json:"relationships"`
}

type capabilitiesSpec struct {
	Filter          bool     `json:"filter"`
	Sort            bool     `json:"sort"`
	Top             bool     `json:"top"`
	Count           bool     `json:"count"`
	Distinct        bool     `json:"distinct"`
	Summarize       bool     `json:"summarize"`
	Join            bool     `json:"join"`
	FilterOperators []string `json:"filter_operators"`
}

type columnSpec struct {
	Type       string   `json:"type"`
	Filterable bool     `json:"filterable"`
	Sortable   bool     `json:"sortable"`
	Groupable  bool     `json:"groupable"`
	Aggregates []string `json:"aggregates"`
	Functions  []string `json:"functions"`
}

type relationshipSpec struct {
	Target      string `json:"target"`
	TargetKey   string `json:"target_key"`
	LocalKey    string `json:"local_key"`
	Polymorphic bool   `json:"polymorphic"`
}

// CompileTable parses a CUE value into table metadata.
// Uses CUE SDK's Go API directly (not CLI subprocess).
//
// The CUE value should be the table struct itself, e.g.:
//
//	ctx := cuecontext.New()
//	v := ctx.CompileString(`table: Accounts: { primary_key: ["AccountId"], columns: {...} }`)
//	t, err := CompileTable(v.LookupPath(cue.ParsePath("table.Accounts")))
//
// The value is unified with the #Table schema first, so unknown fields,
// unknown column types and misspelled operators fail here with a CUE
// position. Cross-field rules are checked by Validate.
func CompileTable(v cue.Value) (*metadata.Table, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	t := &metadata.Table{Name: labelOf(v)}
	if t.Name == "" {
		return nil, &CompileError{Field: "table", Message: "table name is required", Pos: v.Pos()}
	}

	schema := v.Context().CompileString(schemaSource, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return nil, fmt.Errorf("compile table schema: %w", err)
	}
	unified := schema.LookupPath(cue.ParsePath("#Table")).Unify(v)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return nil, formatCUEError(err)
	}

	var spec tableSpec
	if err := unified.Decode(&spec); err != nil {
		return nil, formatCUEError(err)
	}
	t.Source = spec.Source
	t.PrimaryKey = spec.PrimaryKey
	t.PartitionKey = spec.PartitionKey
	t.MaxRows = spec.MaxRows
	t.Capabilities = spec.Capabilities.toMetadata()

	columnsVal := v.LookupPath(cue.ParsePath("columns"))
	if !columnsVal.Exists() {
		return nil, &CompileError{
			Field:   "columns",
			Message: fmt.Sprintf("table %s: columns are required", t.Name),
			Pos:     v.Pos(),
		}
	}
	iter, err := columnsVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}
	for iter.Next() {
		name := strings.Trim(iter.Label(), `"`)
		col, err := spec.Columns[name].toMetadata(name)
		if err != nil {
			pos := iter.Value().LookupPath(cue.ParsePath("type")).Pos()
			if !pos.IsValid() {
				pos = iter.Value().Pos()
			}
			return nil, &CompileError{
				Field:   fmt.Sprintf("columns.%s.type", name),
				Message: err.Error(),
				Pos:     pos,
			}
		}
		t.Columns = append(t.Columns, col)
	}

	relsVal := v.LookupPath(cue.ParsePath("relationships"))
	if relsVal.Exists() {
		iter, err := relsVal.Fields()
		if err != nil {
			return nil, formatCUEError(err)
		}
		for iter.Next() {
			field := strings.Trim(iter.Label(), `"`)
			rel := spec.Relationships[field]
			t.Relationships = append(t.Relationships, metadata.Relationship{
				Field:       field,
				Target:      rel.Target,
				TargetKey:   rel.TargetKey,
				LocalKey:    rel.LocalKey,
				Polymorphic: rel.Polymorphic,
			})
		}
	}

	return t, nil
}

// CompileTables compiles every entry of the top-level "table" struct, in
// declaration order. It stops at the first table that fails to compile.
func CompileTables(v cue.Value) ([]*metadata.Table, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	tablesVal := v.LookupPath(cue.ParsePath("table"))
	if !tablesVal.Exists() {
		return nil, &CompileError{Field: "table", Message: "at least one table is required", Pos: v.Pos()}
	}
	iter, err := tablesVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}
	var tables []*metadata.Table
	for iter.Next() {
		t, err := CompileTable(iter.Value())
		if err != nil {
			return nil, err
		}
		tables = append(tables, t)
	}
	if len(tables) == 0 {
		return nil, &CompileError{Field: "table", Message: "at least one table is required", Pos: tablesVal.Pos()}
	}
	return tables, nil
}

// CompileCatalog compiles, validates and links a whole catalog document.
// Validation failures are returned as ValidationErrors.
func CompileCatalog(v cue.Value) (*metadata.Catalog, error) {
	tables, err := CompileTables(v)
	if err != nil {
		return nil, err
	}
	if errs := ValidateCatalog(tables); len(errs) > 0 {
		return nil, ValidationErrors(errs)
	}
	cat, err := metadata.NewCatalog(tables...)
	if err != nil {
		return nil, fmt.Errorf("build catalog: %w", err)
	}
	if err := cat.Link(); err != nil {
		return nil, fmt.Errorf("link catalog: %w", err)
	}
	return cat, nil
}

func (c capabilitiesSpec) toMetadata() metadata.Capabilities {
	caps := metadata.Capabilities{
		Filter:    c.Filter,
		Sort:      c.Sort,
		Top:       c.Top,
		Count:     c.Count,
		Distinct:  c.Distinct,
		Summarize: c.Summarize,
		Join:      c.Join,
	}
	// A filterable table without an operator list supports every operator.
	if c.Filter && c.FilterOperators == nil {
		caps.FilterOperators = append([]metadata.FilterOp(nil), metadata.AllFilterOps...)
		return caps
	}
	for _, op := range c.FilterOperators {
		caps.FilterOperators = append(caps.FilterOperators, metadata.FilterOp(op))
	}
	return caps
}

func (c columnSpec) toMetadata(name string) (metadata.Column, error) {
	kind, ok := ir.ParseKind(c.Type)
	if !ok {
		return metadata.Column{}, fmt.Errorf("unknown column type %q", c.Type)
	}
	col := metadata.Column{
		Name:       name,
		Kind:       kind,
		Filterable: c.Filterable,
		Sortable:   c.Sortable,
		Groupable:  c.Groupable,
		Functions:  append([]string(nil), c.Functions...),
	}
	for _, a := range c.Aggregates {
		col.Aggregates = append(col.Aggregates, metadata.AggregateKind(a))
	}
	return col, nil
}

// labelOf returns the last path selector, e.g. "Accounts" for table.Accounts.
func labelOf(v cue.Value) string {
	sels := v.Path().Selectors()
	if len(sels) == 0 {
		return ""
	}
	return strings.Trim(sels[len(sels)-1].String(), `"`)
}

// CompileError represents a compilation error with source position.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	// CUE errors may contain multiple errors
	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	// Return first error with position info
	firstErr := errs[0]
	positions := errors.Positions(firstErr)
	if len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: firstErr.Error(),
			Pos:     positions[0],
		}
	}

	return err
}
