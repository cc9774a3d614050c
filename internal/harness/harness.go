package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"time"

	"github.com/roach88/delegation/internal/compiler"
	"github.com/roach88/delegation/internal/delegation"
	"github.com/roach88/delegation/internal/exprfile"
	"github.com/roach88/delegation/internal/ir"
	"github.com/roach88/delegation/internal/metadata"
	"github.com/roach88/delegation/internal/querybuild"
	"github.com/roach88/delegation/internal/queryir"
	"github.com/roach88/delegation/internal/querysql"
	"github.com/roach88/delegation/internal/store"
	"github.com/roach88/delegation/internal/testutil"
)

// Harness is the scenario execution engine.
// It compiles one expression and runs every emitted query against a fresh
// in-memory SQLite store holding the scenario's fixture rows.
type Harness struct {
	store    *store.Store
	catalog  *metadata.Catalog
	compiler *querysql.SQLCompiler
	ids      *testutil.FixedIDGenerator
	logger   *slog.Logger
}

// Run executes a test scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database for isolation, and the
// compile id is fixed to the scenario name so runs are reproducible.
//
// Execution flow:
// 1. Load and link the catalog
// 2. Decode the expression
// 3. Create the tables and insert fixture rows
// 4. Compile the expression with the query builder hooks
// 5. Compile and execute every emitted query
// 6. Evaluate assertions
func Run(scenario *Scenario) (*Result, error) {
	cat, err := compiler.LoadCatalog(scenario.Catalog)
	if err != nil {
		return nil, fmt.Errorf("failed to load catalog: %w", err)
	}
	return RunWithCatalog(scenario, cat)
}

// RunWithCatalog is Run with an already loaded catalog. The scenario's
// Catalog path is ignored.
func RunWithCatalog(scenario *Scenario, cat *metadata.Catalog) (*Result, error) {
	node, err := exprfile.Decode(&scenario.Expression)
	if err != nil {
		return nil, fmt.Errorf("failed to decode expression: %w", err)
	}

	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	sqlc := querysql.NewSQLCompiler(cat)
	for name, v := range scenario.Bindings {
		sqlc.BoundValues[name] = v
	}

	h := &Harness{
		store:    st,
		catalog:  cat,
		compiler: sqlc,
		ids:      testutil.NewFixedIDGenerator(scenario.Name),
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)), // Suppress logs in tests
	}

	ctx := context.Background()
	if err := st.CreateTables(ctx, cat); err != nil {
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	if err := h.insertFixtures(ctx, scenario.Rows); err != nil {
		return nil, fmt.Errorf("failed to insert fixtures: %w", err)
	}

	compiled, err := delegation.Compile(node, delegation.Options{
		Hooks:   querybuild.New(cat),
		MaxRows: scenario.MaxRows,
		Logger:  h.logger,
		IDs:     h.ids,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to compile expression: %w", err)
	}

	result := NewResult()
	result.Compile = compiled
	for _, call := range queryir.Collect(compiled.Node) {
		result.Queries = append(result.Queries, h.execute(ctx, call))
	}

	for _, errMsg := range EvaluateAssertions(result, scenario.Assertions, cat) {
		result.AddError(errMsg)
	}

	return result, nil
}

// execute compiles and runs one query node. Failures are recorded on the
// run rather than returned, so later queries still execute.
func (h *Harness) execute(ctx context.Context, call *ir.Call) QueryRun {
	run := QueryRun{Node: call}
	q, err := queryir.FromNode(call)
	if err != nil {
		run.Error = err.Error()
		return run
	}
	run.Table = q.TableName()

	text, params, err := h.compiler.Compile(q)
	if err != nil {
		run.Error = err.Error()
		return run
	}
	run.SQL, run.Params = text, params

	res, err := h.store.Execute(ctx, h.compiler, q)
	if err != nil {
		run.Error = err.Error()
		return run
	}
	run.Rows = res.Records()
	return run
}

// insertFixtures writes the fixture rows table by table, in name order.
func (h *Harness) insertFixtures(ctx context.Context, rows map[string][]map[string]any) error {
	names := make([]string, 0, len(rows))
	for name := range rows {
		names = append(names, name)
	}
	slices.Sort(names)

	for _, name := range names {
		table, ok := h.catalog.Lookup(name)
		if !ok {
			return fmt.Errorf("rows for unknown table %q", name)
		}
		converted, err := FixtureRows(table, rows[name])
		if err != nil {
			return fmt.Errorf("%s %w", name, err)
		}
		if err := h.store.Insert(ctx, table, converted); err != nil {
			return err
		}
	}
	return nil
}

// FixtureRows converts rows decoded from YAML to values of the column kinds
// of t. Strings are parsed with the column kind, so guids, dates and
// numbers may be written as text.
func FixtureRows(t *metadata.Table, raw []map[string]any) ([]map[string]ir.Value, error) {
	converted := make([]map[string]ir.Value, len(raw))
	for i, r := range raw {
		row := make(map[string]ir.Value, len(r))
		for col, v := range r {
			c, ok := t.Column(col)
			if !ok {
				return nil, fmt.Errorf("row %d: unknown column %q", i, col)
			}
			val, err := fixtureValue(c.Kind, v)
			if err != nil {
				return nil, fmt.Errorf("row %d column %s: %w", i, col, err)
			}
			row[col] = val
		}
		converted[i] = row
	}
	return converted, nil
}

// fixtureValue converts a decoded YAML scalar to a value of the column kind.
func fixtureValue(kind ir.Kind, raw any) (ir.Value, error) {
	switch v := raw.(type) {
	case nil:
		return ir.Blank{}, nil
	case time.Time:
		if kind == ir.KindDate {
			return ir.NewDate(v.Year(), v.Month(), v.Day()), nil
		}
		return ir.DateTime(v.UTC()), nil
	case string:
		return ir.ParseValue(kind, v)
	}

	val, err := querysql.FromParam(raw)
	if err != nil {
		return nil, err
	}
	if val.Kind() != kind {
		return nil, fmt.Errorf("expected %s, got %s", kind, val.Kind())
	}
	return val, nil
}
