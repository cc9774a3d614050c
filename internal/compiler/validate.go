package compiler

import (
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/delegation/internal/ir"
	"github.com/roach88/delegation/internal/metadata"
)

// Validation error codes (E100-E199)
const (
	ErrTableNameEmpty      = "E100" // table name is required
	ErrNoPrimaryKey        = "E101" // at least one primary key column
	ErrUnknownKeyColumn    = "E102" // primary or partition key names no column
	ErrDuplicateColumn     = "E103" // column declared twice
	ErrInvalidColumnKind   = "E104" // column kind is not a value or lookup kind
	ErrInvalidFunction     = "E105" // field function does not apply to the column
	ErrInvalidAggregate    = "E106" // aggregate does not apply to the column
	ErrInvalidRelationship = "E107" // navigation or local key mismatch
	ErrUnknownTarget       = "E108" // relationship target or target key missing
	ErrNegativeMaxRows     = "E109" // max_rows must not be negative
	ErrUnknownOperator     = "E110" // filter operator not recognised
	ErrDuplicateTable      = "E111" // table declared twice
)

// ValidationError represents a catalog validation error.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
	Line    int    `json:"line,omitempty"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("[%s] line %d: %s: %s", e.Code, e.Line, e.Field, e.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// ValidationErrors is returned by CompileCatalog when validation fails.
type ValidationErrors []ValidationError

// Error implements the error interface.
func (errs ValidationErrors) Error() string {
	msgs := make([]string, len(errs))
	for i, e := range errs {
		msgs[i] = e.Error()
	}
	return fmt.Sprintf("%d validation error(s): %s", len(errs), strings.Join(msgs, "; "))
}

// Validate checks one table on its own. Returns all errors found (does not
// fail-fast). Relationship targets are only checked by ValidateCatalog.
func Validate(t *metadata.Table) []ValidationError {
	var errs []ValidationError
	add := func(field, code, format string, args ...any) {
		errs = append(errs, ValidationError{
			Field:   "table." + t.Name + field,
			Message: fmt.Sprintf(format, args...),
			Code:    code,
		})
	}

	if strings.TrimSpace(t.Name) == "" {
		errs = append(errs, ValidationError{Field: "table", Message: "table name is required", Code: ErrTableNameEmpty})
	}

	// E103, E104, E105, E106
	seen := make(map[string]bool, len(t.Columns))
	for _, c := range t.Columns {
		path := ".columns." + c.Name
		if seen[c.Name] {
			add(path, ErrDuplicateColumn, "duplicate column %q", c.Name)
		}
		seen[c.Name] = true

		if !c.Kind.IsPrimitive() && c.Kind != ir.KindRecord {
			add(path+".type", ErrInvalidColumnKind, "column %q has unsupported kind %s", c.Name, c.Kind)
		}
		for _, fn := range c.Functions {
			if !functionApplies(fn, c.Kind) {
				add(path+".functions", ErrInvalidFunction, "function %s does not apply to %s column %q", fn, c.Kind, c.Name)
			}
		}
		for _, agg := range c.Aggregates {
			if !aggregateApplies(agg, c.Kind) {
				add(path+".aggregates", ErrInvalidAggregate, "aggregate %s does not apply to %s column %q", agg, c.Kind, c.Name)
			}
		}
	}

	// E101, E102
	if len(t.PrimaryKey) == 0 {
		add(".primary_key", ErrNoPrimaryKey, "at least one primary key column is required")
	}
	for _, k := range t.PrimaryKey {
		if !seen[k] {
			add(".primary_key", ErrUnknownKeyColumn, "primary key column %q is not declared", k)
		}
	}
	if t.PartitionKey != "" && !seen[t.PartitionKey] {
		add(".partition_key", ErrUnknownKeyColumn, "partition key column %q is not declared", t.PartitionKey)
	}

	// E109
	if t.MaxRows < 0 {
		add(".max_rows", ErrNegativeMaxRows, "max_rows must not be negative, got %d", t.MaxRows)
	}

	// E110
	for _, op := range t.Capabilities.FilterOperators {
		if !slices.Contains(metadata.AllFilterOps, op) {
			add(".capabilities.filter_operators", ErrUnknownOperator, "unknown filter operator %q", op)
		}
	}

	// E107: every lookup column has exactly one relationship and vice versa.
	for _, rel := range t.Relationships {
		path := ".relationships." + rel.Field
		col, ok := t.Column(rel.Field)
		if !ok || col.Kind != ir.KindRecord {
			add(path, ErrInvalidRelationship, "relationship field %q must be a record column", rel.Field)
		}
		if _, ok := t.Column(rel.LocalKey); !ok {
			add(path+".local_key", ErrInvalidRelationship, "local key column %q is not declared", rel.LocalKey)
		}
	}
	for _, c := range t.Columns {
		if c.Kind == ir.KindRecord {
			if _, ok := t.Relationship(c.Name); !ok {
				add(".columns."+c.Name, ErrInvalidRelationship, "record column %q has no relationship", c.Name)
			}
		}
	}

	return errs
}

// ValidateCatalog checks every table and the relationships between them.
// The tables need not be linked yet.
func ValidateCatalog(tables []*metadata.Table) []ValidationError {
	var errs []ValidationError
	byName := make(map[string]*metadata.Table, len(tables))
	for _, t := range tables {
		if _, dup := byName[t.Name]; dup {
			errs = append(errs, ValidationError{
				Field:   "table." + t.Name,
				Message: fmt.Sprintf("duplicate table %q", t.Name),
				Code:    ErrDuplicateTable,
			})
			continue
		}
		byName[t.Name] = t
	}

	for _, t := range tables {
		errs = append(errs, Validate(t)...)

		// E108
		for _, rel := range t.Relationships {
			path := "table." + t.Name + ".relationships." + rel.Field
			target, ok := byName[rel.Target]
			if !ok {
				errs = append(errs, ValidationError{
					Field:   path + ".target",
					Message: fmt.Sprintf("relationship targets unknown table %q", rel.Target),
					Code:    ErrUnknownTarget,
				})
				continue
			}
			if _, ok := target.Column(rel.TargetKey); !ok {
				errs = append(errs, ValidationError{
					Field:   path + ".target_key",
					Message: fmt.Sprintf("target key %q is not a column of %s", rel.TargetKey, rel.Target),
					Code:    ErrUnknownTarget,
				})
			}
		}
	}
	return errs
}

func functionApplies(fn string, kind ir.Kind) bool {
	switch fn {
	case metadata.FuncStartsWith, metadata.FuncEndsWith:
		return kind == ir.KindString
	case metadata.FuncYear, metadata.FuncMonth, metadata.FuncDay:
		return kind == ir.KindDate || kind == ir.KindDateTime
	case metadata.FuncHour, metadata.FuncMinute, metadata.FuncSecond:
		return kind == ir.KindDateTime
	}
	return false
}

func aggregateApplies(agg metadata.AggregateKind, kind ir.Kind) bool {
	switch agg {
	case metadata.AggSum, metadata.AggAverage:
		return kind == ir.KindNumber
	case metadata.AggMin, metadata.AggMax:
		return kind == ir.KindNumber || kind == ir.KindDate || kind == ir.KindDateTime
	case metadata.AggCount:
		return kind.IsPrimitive()
	}
	return false
}
