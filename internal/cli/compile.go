package cli

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/delegation/internal/compiler"
	"github.com/roach88/delegation/internal/delegation"
	"github.com/roach88/delegation/internal/ir"
	"github.com/roach88/delegation/internal/metadata"
	"github.com/roach88/delegation/internal/querybuild"
	"github.com/roach88/delegation/internal/queryir"
)

// CompileOptions holds flags shared by every command that compiles an
// expression.
type CompileOptions struct {
	*RootOptions
	Catalog string // catalog file or directory
	MaxRows int    // row limit; zero means the default
	Output  string // output file path (compile only)
	Strict  bool   // fail when any warning is reported (compile only)

	// IDs overrides the compile id generator (for testing).
	IDs delegation.IDGenerator
}

// CompileOutput is the JSON payload of the compile command.
type CompileOutput struct {
	Source      string          `json:"source"`
	Delegated   bool            `json:"delegated"`
	Queries     int             `json:"queries"`
	IRVersion   string          `json:"ir_version"`
	Fingerprint string          `json:"fingerprint"`
	Node        map[string]any  `json:"node"`
	Warnings    []WarningOutput `json:"warnings"`
}

// NewCompileCommand creates the compile command.
func NewCompileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compile <expression.yaml>",
		Short: "Rewrite an expression for delegation",
		Long: `Compile a bound expression against a table catalog.

The parts of the expression the data sources can evaluate are replaced by
remote query nodes; everything else stays local and is reported as a
warning. The rewritten tree is printed as formula text, or in canonical
dump form with --format json.

Examples:
  delegate compile --catalog ./catalog.cue filter.yaml
  delegate compile --catalog ./catalog --max-rows 2000 filter.yaml
  delegate compile --catalog ./catalog.cue filter.yaml -o rewritten.json
  delegate compile --catalog ./catalog.cue filter.yaml --strict`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors - we handle our own error output
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(opts, args[0], cmd)
		},
	}

	addCompileFlags(cmd, opts)
	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "write the rewritten tree as canonical JSON to this file")
	cmd.Flags().BoolVar(&opts.Strict, "strict", false, "exit with status 1 when any warning is reported")

	return cmd
}

// addCompileFlags registers the catalog and row limit flags.
func addCompileFlags(cmd *cobra.Command, opts *CompileOptions) {
	cmd.Flags().StringVar(&opts.Catalog, "catalog", "", "path to the CUE catalog file or directory (required)")
	_ = cmd.MarkFlagRequired("catalog")
	cmd.Flags().IntVar(&opts.MaxRows, "max-rows", 0, fmt.Sprintf("row limit for unbounded queries (default %d)", delegation.DefaultMaxRows))
}

// compileSession is a loaded catalog and a compiled expression.
type compileSession struct {
	catalog *metadata.Catalog
	source  ir.Node
	result  *delegation.Result
}

// queries returns the remote query nodes of the rewritten tree.
func (s *compileSession) queries() []*ir.Call {
	return queryir.Collect(s.result.Node)
}

// compileExpression loads the catalog and the expression and compiles
// them. Failures are reported through formatter and returned as
// ExitErrors.
func compileExpression(opts *CompileOptions, exprPath string, formatter *OutputFormatter, logger *slog.Logger) (*compileSession, error) {
	if opts.MaxRows < 0 {
		return nil, reportError(formatter, ErrCodeGeneric, "--max-rows must not be negative")
	}

	cat, loadErrs := LoadCatalog(opts.Catalog)
	if len(loadErrs) > 0 {
		return nil, reportLoadErrors(formatter, loadErrs)
	}
	formatter.VerboseLog("Loaded %d table(s) from %s", len(cat.Tables()), opts.Catalog)

	node, err := LoadExpression(exprPath)
	if err != nil {
		return nil, reportLoadErrors(formatter, []error{err})
	}
	formatter.VerboseLog("Compiling %s", ir.Format(node))

	res, err := delegation.Compile(node, delegation.Options{
		Hooks:   querybuild.New(cat),
		MaxRows: opts.MaxRows,
		Logger:  logger,
		IDs:     opts.IDs,
	})
	if err != nil {
		return nil, reportError(formatter, ErrCodeGeneric, fmt.Sprintf("compile failed: %v", err))
	}
	logger.Info("compiled expression",
		"compile_id", res.ID,
		"delegated", res.Delegated,
		"warnings", len(res.Warnings),
	)

	return &compileSession{catalog: cat, source: node, result: res}, nil
}

func runCompile(opts *CompileOptions, exprPath string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)
	logger := newLogger(opts.RootOptions, cmd.ErrOrStderr())

	session, err := compileExpression(opts, exprPath, formatter, logger)
	if err != nil {
		return err
	}
	res := session.result

	if opts.Output != "" {
		if err := writeNodeToFile(res.Node, opts.Output); err != nil {
			return reportError(formatter, ErrCodeWriteFailed, fmt.Sprintf("writing output file: %v", err))
		}
	}

	if formatter.Format == "json" {
		fp, err := ir.Fingerprint(res.Node)
		if err != nil {
			return reportError(formatter, ErrCodeGeneric, fmt.Sprintf("fingerprint: %v", err))
		}
		out := CompileOutput{
			Source:      ir.Format(session.source),
			Delegated:   res.Delegated,
			Queries:     len(session.queries()),
			IRVersion:   ir.IRVersion,
			Fingerprint: fp,
			Node:        ir.ToMap(res.Node),
			Warnings:    warningsJSON(res.Warnings),
		}
		if err := formatter.SuccessWithID(res.ID, out); err != nil {
			return err
		}
	} else {
		outputCompileText(formatter, session, opts.Output)
	}

	if opts.Strict && len(res.Warnings) > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d delegation warning(s)", len(res.Warnings)))
	}
	return nil
}

// outputCompileText prints the rewritten tree and its warnings.
func outputCompileText(formatter *OutputFormatter, session *compileSession, outputFile string) {
	w := formatter.Writer
	res := session.result

	n := len(session.queries())
	mark(w, res.Delegated, "Compiled %s", ir.Format(session.source))
	fmt.Fprintf(w, "  compile id: %s\n", res.ID)
	fmt.Fprintf(w, "  remote queries: %d\n\n", n)
	fmt.Fprintln(w, ir.Format(res.Node))

	if len(res.Warnings) > 0 {
		fmt.Fprintln(w)
		formatter.PrintWarnings(res.Warnings)
	}
	if outputFile != "" {
		fmt.Fprintf(w, "\nWrote rewritten tree to %s\n", outputFile)
	}
}

// writeNodeToFile writes the canonical JSON dump of n.
func writeNodeToFile(n ir.Node, filename string) error {
	data, err := ir.MarshalNode(n)
	if err != nil {
		return fmt.Errorf("marshaling node: %w", err)
	}
	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("writing file: %w", err)
	}
	return nil
}

// reportError outputs a single command error (exit code 2).
func reportError(formatter *OutputFormatter, code, message string) error {
	_ = formatter.Error(code, message, nil)
	return NewExitError(ExitCommandError, fmt.Sprintf("%s: %s", code, message))
}

// reportLoadErrors outputs catalog or expression load errors.
func reportLoadErrors(formatter *OutputFormatter, errs []error) error {
	if len(errs) == 1 {
		code, message := parseLoadError(errs[0])
		var loadErr *LoadError
		if errors.As(errs[0], &loadErr) && loadErr.Pos.IsValid() {
			message = fmt.Sprintf("%s:%d:%d: %s", loadErr.Pos.Filename(), loadErr.Pos.Line(), loadErr.Pos.Column(), message)
		}
		return reportError(formatter, code, message)
	}

	details := make([]CLIError, len(errs))
	for i, err := range errs {
		code, message := parseLoadError(err)
		details[i] = CLIError{Code: code, Message: message}
	}
	if formatter.Format == "json" {
		_ = formatter.Error(details[0].Code, fmt.Sprintf("catalog has %d error(s)", len(errs)), details)
	} else {
		mark(formatter.Writer, false, "Catalog has %d error(s)", len(errs))
		fmt.Fprintln(formatter.Writer)
		for _, d := range details {
			fmt.Fprintf(formatter.Writer, "  %s: %s\n", d.Code, d.Message)
		}
	}
	return NewExitError(ExitCommandError, fmt.Sprintf("catalog has %d error(s)", len(errs)))
}

// parseLoadError extracts error code and message from an error.
func parseLoadError(err error) (string, string) {
	var loadErr *LoadError
	if errors.As(err, &loadErr) {
		return loadErr.Code, loadErr.Message
	}
	var verr compiler.ValidationError
	if errors.As(err, &verr) {
		return verr.Code, fmt.Sprintf("%s: %s", verr.Field, verr.Message)
	}
	return ErrCodeGeneric, err.Error()
}
