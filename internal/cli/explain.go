package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/roach88/delegation/internal/ir"
	"github.com/roach88/delegation/internal/queryir"
	"github.com/roach88/delegation/internal/querysql"
)

// ExplainOptions holds flags for the explain command.
type ExplainOptions struct {
	CompileOptions
	Bindings map[string]string // variable values, name=value
}

// QueryPlan describes one remote query of a rewritten expression.
type QueryPlan struct {
	Index    int      `json:"index"`
	Func     string   `json:"func"`
	Table    string   `json:"table"`
	SQL      string   `json:"sql,omitempty"`
	Params   []any    `json:"params,omitempty"`
	Problems []string `json:"problems,omitempty"`
	Error    string   `json:"error,omitempty"`
}

// ExplainOutput is the JSON payload of the explain command.
type ExplainOutput struct {
	Source   string          `json:"source"`
	Queries  []QueryPlan     `json:"queries"`
	Warnings []WarningOutput `json:"warnings"`
}

// NewExplainCommand creates the explain command.
func NewExplainCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ExplainOptions{CompileOptions: CompileOptions{RootOptions: rootOpts}}

	cmd := &cobra.Command{
		Use:   "explain <expression.yaml>",
		Short: "Show the SQL of every remote query",
		Long: `Compile an expression and print, for every remote query node of the
rewritten tree, the SQLite statement the reference store would run and
any capability the query uses that its table does not declare.

Variables referenced by queries are bound with --bind; numbers and
true/false are recognised, anything else is a string.

Examples:
  delegate explain --catalog ./catalog.cue filter.yaml
  delegate explain --catalog ./catalog.cue lookup.yaml --bind id=a1
  delegate explain --catalog ./catalog.cue filter.yaml --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExplain(opts, args[0], cmd)
		},
	}

	addCompileFlags(cmd, &opts.CompileOptions)
	cmd.Flags().StringToStringVar(&opts.Bindings, "bind", nil, "variable value for queries (name=value, repeatable)")

	return cmd
}

func runExplain(opts *ExplainOptions, exprPath string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)
	logger := newLogger(opts.RootOptions, cmd.ErrOrStderr())

	session, err := compileExpression(&opts.CompileOptions, exprPath, formatter, logger)
	if err != nil {
		return err
	}

	sqlc := querysql.NewSQLCompiler(session.catalog)
	for name, v := range parseBindings(opts.Bindings) {
		sqlc.BoundValues[name] = v
	}

	plans := []QueryPlan{}
	for i, call := range session.queries() {
		plans = append(plans, planQuery(sqlc, session, i, call))
	}

	if formatter.Format == "json" {
		return formatter.SuccessWithID(session.result.ID, ExplainOutput{
			Source:   ir.Format(session.source),
			Queries:  plans,
			Warnings: warningsJSON(session.result.Warnings),
		})
	}

	w := formatter.Writer
	if len(plans) == 0 {
		fmt.Fprintln(w, "No remote queries; the expression is evaluated locally.")
	}
	for _, p := range plans {
		fmt.Fprintf(w, "[%d] %s on %s\n", p.Index, p.Func, p.Table)
		if p.Error != "" {
			fmt.Fprintf(w, "    error: %s\n", p.Error)
			continue
		}
		fmt.Fprintf(w, "    %s\n", p.SQL)
		if len(p.Params) > 0 {
			fmt.Fprintf(w, "    params: %v\n", p.Params)
		}
		for _, problem := range p.Problems {
			fmt.Fprintf(w, "    problem: %s\n", problem)
		}
	}
	if len(session.result.Warnings) > 0 {
		fmt.Fprintln(w)
		formatter.PrintWarnings(session.result.Warnings)
	}
	return nil
}

func planQuery(sqlc *querysql.SQLCompiler, session *compileSession, index int, call *ir.Call) QueryPlan {
	plan := QueryPlan{Index: index, Func: call.Func}
	q, err := queryir.FromNode(call)
	if err != nil {
		plan.Error = err.Error()
		return plan
	}
	plan.Table = q.TableName()
	if v := queryir.Validate(q, session.catalog); !v.IsValid {
		plan.Problems = v.Problems
	}
	text, params, err := sqlc.Compile(q)
	if err != nil {
		plan.Error = err.Error()
		return plan
	}
	plan.SQL, plan.Params = text, params
	return plan
}

// parseBindings converts command-line variable values: numbers and
// booleans keep their type, everything else is a string.
func parseBindings(raw map[string]string) map[string]any {
	out := make(map[string]any, len(raw))
	for name, s := range raw {
		if s == "true" || s == "false" {
			out[name] = s == "true"
			continue
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			out[name] = f
			continue
		}
		out[name] = s
	}
	return out
}
