package harness

import (
	"fmt"
	"strings"

	"github.com/roach88/delegation/internal/metadata"
	"github.com/roach88/delegation/internal/queryir"
)

// AssertionError is returned when an assertion fails.
// It includes the warnings and queries of the run to help debug the failure.
type AssertionError struct {
	Type     string   // Assertion type for categorization
	Expected string   // Human-readable expected outcome
	Actual   string   // Human-readable actual outcome
	Context  []string // Warnings and queries of the run
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Context) > 0 {
		fmt.Fprintf(&buf, "\nRun:\n")
		for i, line := range e.Context {
			fmt.Fprintf(&buf, "  [%d] %s\n", i+1, line)
		}
	}

	return buf.String()
}

// EvaluateAssertions checks every assertion against a run and returns the
// failure messages. An empty slice means every assertion held.
func EvaluateAssertions(result *Result, assertions []Assertion, cat *metadata.Catalog) []string {
	failures := []string{}
	for i, a := range assertions {
		var err error
		switch a.Type {
		case AssertDelegated:
			err = assertDelegated(result, a)
		case AssertWarning:
			err = assertWarning(result, a)
		case AssertWarningCount:
			err = assertWarningCount(result, a)
		case AssertQueryCount:
			err = assertQueryCount(result, a)
		case AssertQuery:
			err = assertQuery(result, a)
		case AssertValid:
			err = assertValid(result, cat)
		default:
			err = fmt.Errorf("unknown assertion type %q", a.Type)
		}
		if err != nil {
			failures = append(failures, fmt.Sprintf("assertions[%d]: %v", i, err))
		}
	}
	return failures
}

func runContext(result *Result) []string {
	var lines []string
	for _, w := range result.Warnings() {
		lines = append(lines, "warning "+w.String())
	}
	for _, q := range result.Queries {
		if q.Error != "" {
			lines = append(lines, fmt.Sprintf("query %s: error: %s", q.Table, q.Error))
			continue
		}
		lines = append(lines, fmt.Sprintf("query %s: %s (%d rows)", q.Table, q.SQL, len(q.Rows)))
	}
	return lines
}

func assertDelegated(result *Result, a Assertion) error {
	got := result.Compile != nil && result.Compile.Delegated
	if got == *a.Value {
		return nil
	}
	return &AssertionError{
		Type:     AssertDelegated,
		Expected: fmt.Sprintf("delegated = %t", *a.Value),
		Actual:   fmt.Sprintf("delegated = %t", got),
		Context:  runContext(result),
	}
}

// assertWarning checks that a warning with the key was reported. When Args
// are given they must match the warning arguments in order; numbers are
// compared by their printed form so YAML ints match Go ints.
func assertWarning(result *Result, a Assertion) error {
	for _, w := range result.Warnings() {
		if string(w.Key) != a.Key {
			continue
		}
		if a.Args == nil || sameArgs(w.Args, a.Args) {
			return nil
		}
	}
	expected := a.Key
	if a.Args != nil {
		expected = fmt.Sprintf("%s with args %v", a.Key, a.Args)
	}
	return &AssertionError{
		Type:     AssertWarning,
		Expected: expected,
		Actual:   "not reported",
		Context:  runContext(result),
	}
}

func sameArgs(got, want []any) bool {
	if len(got) != len(want) {
		return false
	}
	for i := range got {
		if fmt.Sprint(got[i]) != fmt.Sprint(want[i]) {
			return false
		}
	}
	return true
}

func assertWarningCount(result *Result, a Assertion) error {
	if n := len(result.Warnings()); n != a.Count {
		return &AssertionError{
			Type:     AssertWarningCount,
			Expected: fmt.Sprintf("%d warnings", a.Count),
			Actual:   fmt.Sprintf("%d warnings", n),
			Context:  runContext(result),
		}
	}
	return nil
}

func assertQueryCount(result *Result, a Assertion) error {
	if n := len(result.Queries); n != a.Count {
		return &AssertionError{
			Type:     AssertQueryCount,
			Expected: fmt.Sprintf("%d queries", a.Count),
			Actual:   fmt.Sprintf("%d queries", n),
			Context:  runContext(result),
		}
	}
	return nil
}

func assertQuery(result *Result, a Assertion) error {
	if a.Index >= len(result.Queries) {
		return &AssertionError{
			Type:     AssertQuery,
			Expected: fmt.Sprintf("query at index %d", a.Index),
			Actual:   fmt.Sprintf("%d queries", len(result.Queries)),
			Context:  runContext(result),
		}
	}
	q := result.Queries[a.Index]
	fail := func(expected, actual string) error {
		return &AssertionError{
			Type:     AssertQuery,
			Expected: fmt.Sprintf("query %d %s", a.Index, expected),
			Actual:   actual,
			Context:  runContext(result),
		}
	}

	if a.Table != "" && q.Table != a.Table {
		return fail("on table "+a.Table, "table "+q.Table)
	}
	if a.SQLContains != "" && !strings.Contains(q.SQL, a.SQLContains) {
		return fail(fmt.Sprintf("SQL containing %q", a.SQLContains), q.SQL)
	}
	if a.RowCount != nil {
		if q.Error != "" {
			return fail(fmt.Sprintf("to return %d rows", *a.RowCount), "error: "+q.Error)
		}
		if len(q.Rows) != *a.RowCount {
			return fail(fmt.Sprintf("to return %d rows", *a.RowCount), fmt.Sprintf("%d rows", len(q.Rows)))
		}
	}
	return nil
}

// assertValid re-checks every emitted query against the catalog's declared
// capabilities.
func assertValid(result *Result, cat *metadata.Catalog) error {
	for i, q := range result.Queries {
		decoded, err := queryir.FromNode(q.Node)
		if err != nil {
			return fmt.Errorf("query %d: %w", i, err)
		}
		if v := queryir.Validate(decoded, cat); !v.IsValid {
			return &AssertionError{
				Type:     AssertValid,
				Expected: fmt.Sprintf("query %d uses declared capabilities only", i),
				Actual:   strings.Join(v.Problems, "; "),
				Context:  runContext(result),
			}
		}
	}
	return nil
}
