package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"golang.org/x/text/cases"

	"github.com/roach88/delegation/internal/store"
)

// LogOptions holds flags for the log command.
type LogOptions struct {
	*RootOptions
	Database string
	Table    string // optional - filter to one table, case-insensitive
}

// LogEntry is one executed query in the log output.
type LogEntry struct {
	Seq         int64  `json:"seq"`
	Table       string `json:"table"`
	SQL         string `json:"sql"`
	Params      []any  `json:"params"`
	RowCount    int    `json:"row_count"`
	Fingerprint string `json:"fingerprint"`
}

// LogResult holds the complete log output.
type LogResult struct {
	Entries []LogEntry `json:"entries"`
	Stats   LogStats   `json:"stats"`
}

// LogStats holds summary statistics for the log.
type LogStats struct {
	Queries    int `json:"queries"`
	Statements int `json:"statements"` // distinct SQL texts
	Rows       int `json:"rows"`
}

// NewLogCommand creates the log command.
func NewLogCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &LogOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "log",
		Short: "Show the queries executed against a store",
		Long: `Show every remote query "delegate run" executed against a SQLite
store, in execution order, with its parameters and row count.

Examples:
  delegate log --db ./crm.db
  delegate log --db ./crm.db --table accounts
  delegate log --db ./crm.db --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLog(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.Table, "table", "", "only show queries on this table")

	return cmd
}

func runLog(opts *LogOptions, cmd *cobra.Command) error {
	ctx := context.Background()

	st, err := store.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	logged, err := st.QueryLog(ctx)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read query log", err)
	}

	result, err := buildLog(logged, opts.Table)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to decode query log", err)
	}

	if opts.Format == "json" {
		encoder := json.NewEncoder(cmd.OutOrStdout())
		encoder.SetIndent("", "  ")
		return encoder.Encode(CLIResponse{Status: "ok", Data: result})
	}
	outputLogText(cmd.OutOrStdout(), result, opts.Verbose)
	return nil
}

// buildLog converts logged queries to log entries, keeping only those on
// table when it is set.
func buildLog(logged []store.LoggedQuery, table string) (LogResult, error) {
	fold := cases.Fold()
	want := fold.String(table)

	result := LogResult{Entries: []LogEntry{}}
	statements := map[string]bool{}
	for _, q := range logged {
		if table != "" && fold.String(q.Table) != want {
			continue
		}
		var params []any
		if err := json.Unmarshal([]byte(q.Params), &params); err != nil {
			return LogResult{}, fmt.Errorf("query %d params: %w", q.Seq, err)
		}
		if params == nil {
			params = []any{}
		}
		result.Entries = append(result.Entries, LogEntry{
			Seq:         q.Seq,
			Table:       q.Table,
			SQL:         q.SQL,
			Params:      params,
			RowCount:    q.RowCount,
			Fingerprint: q.Fingerprint,
		})
		statements[q.Fingerprint] = true
		result.Stats.Rows += q.RowCount
	}
	result.Stats.Queries = len(result.Entries)
	result.Stats.Statements = len(statements)
	return result, nil
}

// outputLogText outputs the log as text.
func outputLogText(w io.Writer, result LogResult, verbose bool) {
	fmt.Fprintln(w, "=== Queries ===")
	if len(result.Entries) == 0 {
		fmt.Fprintln(w, "  (no queries)")
	}
	for _, e := range result.Entries {
		fmt.Fprintf(w, "  [%d] %s: %d row(s)\n", e.Seq, e.Table, e.RowCount)
		fmt.Fprintf(w, "       %s\n", e.SQL)
		if len(e.Params) > 0 {
			fmt.Fprintf(w, "       Params: %v\n", e.Params)
		}
		if verbose {
			fmt.Fprintf(w, "       Fingerprint: %s\n", truncateID(e.Fingerprint))
		}
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "=== Stats ===")
	fmt.Fprintf(w, "  Queries:    %d\n", result.Stats.Queries)
	fmt.Fprintf(w, "  Statements: %d\n", result.Stats.Statements)
	fmt.Fprintf(w, "  Rows:       %d\n", result.Stats.Rows)
}

// truncateID truncates a long ID for display.
func truncateID(id string) string {
	if len(id) <= 16 {
		return id
	}
	return id[:8] + "..." + id[len(id)-8:]
}
