package cli

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/roach88/delegation/internal/harness"
	"github.com/roach88/delegation/internal/ir"
	"github.com/roach88/delegation/internal/metadata"
	"github.com/roach88/delegation/internal/querysql"
	"github.com/roach88/delegation/internal/store"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	CompileOptions
	Database string
	Seed     string            // YAML file of rows per table
	Bindings map[string]string // variable values, name=value
}

// QueryOutput is one executed remote query.
type QueryOutput struct {
	Index int              `json:"index"`
	Table string           `json:"table"`
	SQL   string           `json:"sql"`
	Rows  []map[string]any `json:"rows"`
}

// RunOutput is the JSON payload of the run command.
type RunOutput struct {
	Source   string          `json:"source"`
	Queries  []QueryOutput   `json:"queries"`
	Warnings []WarningOutput `json:"warnings"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{CompileOptions: CompileOptions{RootOptions: rootOpts}}

	cmd := &cobra.Command{
		Use:   "run <expression.yaml>",
		Short: "Execute the remote queries against a SQLite store",
		Long: `Compile an expression and execute every remote query it produces
against a SQLite database that stands in for the data sources.

Tables of the catalog are created on first use. --seed inserts rows from a
YAML document mapping table names (matched case-insensitively) to lists of
rows. Every executed query is recorded in the database's query log; see
"delegate log".

Examples:
  delegate run --catalog ./catalog.cue --db ./crm.db filter.yaml
  delegate run --catalog ./catalog.cue --db ./crm.db --seed rows.yaml filter.yaml
  delegate run --catalog ./catalog.cue --db ./crm.db lookup.yaml --bind id=a1`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQueries(opts, args[0], cmd)
		},
	}

	addCompileFlags(cmd, &opts.CompileOptions)
	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.Seed, "seed", "", "YAML file of rows to insert before running")
	cmd.Flags().StringToStringVar(&opts.Bindings, "bind", nil, "variable value for queries (name=value, repeatable)")

	return cmd
}

func runQueries(opts *RunOptions, exprPath string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)
	logger := newLogger(opts.RootOptions, cmd.ErrOrStderr())

	session, err := compileExpression(&opts.CompileOptions, exprPath, formatter, logger)
	if err != nil {
		return err
	}

	// Use command's context if available (for testing), otherwise create one
	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, stop := signal.NotifyContext(parentCtx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Debug("opening database", "path", opts.Database)
	st, err := store.Open(opts.Database)
	if err != nil {
		return reportError(formatter, ErrCodeDatabase, fmt.Sprintf("failed to open database: %v", err))
	}
	defer func() {
		if closeErr := st.Close(); closeErr != nil {
			logger.Error("error closing database", "error", closeErr)
		}
	}()

	if err := st.CreateTables(ctx, session.catalog); err != nil {
		return reportError(formatter, ErrCodeDatabase, fmt.Sprintf("failed to create tables: %v", err))
	}
	if opts.Seed != "" {
		n, err := seedStore(ctx, st, session.catalog, opts.Seed)
		if err != nil {
			return reportError(formatter, ErrCodeDatabase, fmt.Sprintf("failed to seed database: %v", err))
		}
		formatter.VerboseLog("Inserted %d row(s) from %s", n, opts.Seed)
	}

	sqlc := querysql.NewSQLCompiler(session.catalog)
	for name, v := range parseBindings(opts.Bindings) {
		sqlc.BoundValues[name] = v
	}

	outputs := []QueryOutput{}
	for i, call := range session.queries() {
		res, err := st.ExecuteNode(ctx, sqlc, call)
		if err != nil {
			return reportError(formatter, ErrCodeDatabase, fmt.Sprintf("query %d: %v", i, err))
		}
		out := QueryOutput{Index: i, Rows: []map[string]any{}}
		plan := planQuery(sqlc, session, i, call)
		out.Table, out.SQL = plan.Table, plan.SQL
		for _, rec := range res.Records() {
			row := make(map[string]any, len(rec))
			for k, v := range rec {
				row[k] = ir.ValueToAny(v)
			}
			out.Rows = append(out.Rows, row)
		}
		outputs = append(outputs, out)
	}

	if formatter.Format == "json" {
		return formatter.SuccessWithID(session.result.ID, RunOutput{
			Source:   ir.Format(session.source),
			Queries:  outputs,
			Warnings: warningsJSON(session.result.Warnings),
		})
	}

	w := formatter.Writer
	if len(outputs) == 0 {
		fmt.Fprintln(w, "No remote queries; the expression is evaluated locally.")
	}
	for _, q := range outputs {
		fmt.Fprintf(w, "[%d] %s: %d row(s)\n", q.Index, q.Table, len(q.Rows))
		for _, row := range q.Rows {
			data, err := ir.MarshalCanonical(row)
			if err != nil {
				return err
			}
			fmt.Fprintf(w, "    %s\n", data)
		}
	}
	if len(session.result.Warnings) > 0 {
		fmt.Fprintln(w)
		formatter.PrintWarnings(session.result.Warnings)
	}
	return nil
}

// seedStore inserts the rows of a seed document and returns how many were
// written. Tables are seeded in catalog order.
func seedStore(ctx context.Context, st *store.Store, cat *metadata.Catalog, path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("read seed file: %w", err)
	}
	var doc map[string][]map[string]any
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	if err := decoder.Decode(&doc); err != nil {
		return 0, fmt.Errorf("parse seed file: %w", err)
	}

	byTable := make(map[*metadata.Table][]map[string]any, len(doc))
	for name, rows := range doc {
		t, ok := FindTable(cat, name)
		if !ok {
			return 0, fmt.Errorf("seed rows for unknown table %q", name)
		}
		byTable[t] = append(byTable[t], rows...)
	}

	total := 0
	for _, t := range cat.Tables() {
		raw, ok := byTable[t]
		if !ok {
			continue
		}
		rows, err := harness.FixtureRows(t, raw)
		if err != nil {
			return 0, fmt.Errorf("%s %w", t.Name, err)
		}
		if err := st.Insert(ctx, t, rows); err != nil {
			return 0, err
		}
		total += len(rows)
	}
	return total, nil
}
