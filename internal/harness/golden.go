package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/delegation/internal/ir"
)

// Snapshot renders the observable outcome of a run as canonical JSON: the
// delegated flag, every warning with its message and span, and every query
// with its SQL, parameters and row count. Row contents are left out so
// golden files stay small; assert on them with a query assertion.
func Snapshot(scenarioName string, result *Result) ([]byte, error) {
	warnings := []any{}
	for _, w := range result.Warnings() {
		entry := map[string]any{
			"key":     string(w.Key),
			"message": w.Message(),
			"span":    w.Span.String(),
		}
		if len(w.Args) > 0 {
			entry["args"] = append([]any{}, w.Args...)
		}
		warnings = append(warnings, entry)
	}

	queries := []any{}
	for _, q := range result.Queries {
		entry := map[string]any{"table": q.Table}
		if q.Error != "" {
			entry["error"] = q.Error
		} else {
			entry["sql"] = q.SQL
			entry["params"] = append([]any{}, q.Params...)
			entry["row_count"] = len(q.Rows)
		}
		queries = append(queries, entry)
	}

	delegated := result.Compile != nil && result.Compile.Delegated
	return ir.MarshalCanonical(map[string]any{
		"scenario":  scenarioName,
		"delegated": delegated,
		"warnings":  warnings,
		"queries":   queries,
	})
}

// RunWithGolden executes a scenario and compares its snapshot against a
// golden file stored in testdata/golden/{scenario.Name}.golden
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns error if scenario execution fails.
// Test failure (via goldie) occurs if the snapshot doesn't match.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}
	if err := AssertGolden(t, scenario.Name, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares an existing result against a golden file without
// re-running the scenario.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	snapshot, err := Snapshot(scenarioName, result)
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, snapshot)

	return nil
}
