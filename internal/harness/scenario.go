package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Scenario defines one delegation conformance case: a catalog, a bound
// expression, optional fixture rows for the stand-in data source, and the
// assertions the compile and execution results must satisfy.
type Scenario struct {
	// Name uniquely identifies this scenario. It also names the golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Catalog is the path of the CUE catalog (file or directory).
	// Relative paths are resolved against the scenario file's directory.
	Catalog string `yaml:"catalog"`

	// MaxRows overrides the default row limit. Zero keeps the default.
	MaxRows int `yaml:"max_rows,omitempty"`

	// Expression is the bound formula in exprfile form.
	Expression yaml.Node `yaml:"expression"`

	// Rows holds fixture rows per table, inserted before any query runs.
	// Values are converted with the column kind from the catalog.
	Rows map[string][]map[string]any `yaml:"rows,omitempty"`

	// Bindings supplies values for variables referenced by emitted queries.
	Bindings map[string]any `yaml:"bindings,omitempty"`

	// Assertions validate the compile result and the executed queries.
	Assertions []Assertion `yaml:"assertions"`
}

// Assertion validates one aspect of a scenario run.
type Assertion struct {
	// Type selects the check:
	// - "delegated": the compile emitted at least one query (Value)
	// - "warning": a warning with Key (and Args, when given) was reported
	// - "warning_count": exactly Count warnings were reported
	// - "query_count": exactly Count query nodes were emitted
	// - "query": the query at Index targets Table, its SQL contains
	//   SQLContains and it returned RowCount rows
	// - "valid": every emitted query uses only declared capabilities
	Type string `yaml:"type"`

	// Value is the expected delegated flag (used by delegated).
	Value *bool `yaml:"value,omitempty"`

	// Key is the warning resource key (used by warning).
	Key string `yaml:"key,omitempty"`

	// Args are the expected warning arguments (used by warning).
	Args []any `yaml:"args,omitempty"`

	// Count is the expected number (used by warning_count and query_count).
	Count int `yaml:"count,omitempty"`

	// Index selects the emitted query, in pre-order (used by query).
	Index int `yaml:"index,omitempty"`

	// Table is the expected query table (used by query).
	Table string `yaml:"table,omitempty"`

	// SQLContains must appear in the compiled SQL (used by query).
	SQLContains string `yaml:"sql_contains,omitempty"`

	// RowCount is the expected number of returned rows (used by query).
	RowCount *int `yaml:"row_count,omitempty"`
}

// Assertion type constants.
const (
	AssertDelegated    = "delegated"
	AssertWarning      = "warning"
	AssertWarningCount = "warning_count"
	AssertQueryCount   = "query_count"
	AssertQuery        = "query"
	AssertValid        = "valid"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
// The catalog path is resolved relative to the scenario file.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	// Strict field validation catches typos like "assertion:" vs "assertions:"
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if scenario.Catalog != "" && !filepath.IsAbs(scenario.Catalog) {
		scenario.Catalog = filepath.Join(filepath.Dir(path), scenario.Catalog)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// FindScenarios returns every .yaml and .yml file under dir, in lexical
// order.
func FindScenarios(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if ext := filepath.Ext(path); ext == ".yaml" || ext == ".yml" {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if s.Catalog == "" {
		return fmt.Errorf("catalog is required")
	}
	if _, err := os.Stat(s.Catalog); os.IsNotExist(err) {
		return fmt.Errorf("catalog not found: %s", s.Catalog)
	}

	if s.Expression.Kind == 0 {
		return fmt.Errorf("expression is required")
	}

	if s.MaxRows < 0 {
		return fmt.Errorf("max_rows must be non-negative")
	}

	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}

	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertDelegated:
		if a.Value == nil {
			return fmt.Errorf("assertions[%d]: value is required for delegated", index)
		}
	case AssertWarning:
		if a.Key == "" {
			return fmt.Errorf("assertions[%d]: key is required for warning", index)
		}
	case AssertWarningCount, AssertQueryCount:
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for %s", index, a.Type)
		}
	case AssertQuery:
		if a.Index < 0 {
			return fmt.Errorf("assertions[%d]: index must be non-negative for query", index)
		}
		if a.Table == "" && a.SQLContains == "" && a.RowCount == nil {
			return fmt.Errorf("assertions[%d]: query needs table, sql_contains or row_count", index)
		}
	case AssertValid:
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}
