package cli

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/delegation/internal/compiler"
	"github.com/roach88/delegation/internal/metadata"
)

// ValidateOptions holds flags for the validate command.
type ValidateOptions struct {
	*RootOptions
	Table string // optional - report on one table only
}

// TableSummary describes one validated table.
type TableSummary struct {
	Name         string   `json:"name"`
	Source       string   `json:"source"`
	Columns      int      `json:"columns"`
	Capabilities []string `json:"capabilities"`
	MaxRows      int      `json:"max_rows,omitempty"`
}

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid  bool                       `json:"valid"`
	Tables []TableSummary             `json:"tables,omitempty"`
	Errors []compiler.ValidationError `json:"errors,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ValidateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "validate <catalog>",
		Short: "Validate a table catalog",
		Long: `Validate a CUE table catalog without compiling any expression.

Performs schema checking, then the catalog checks: primary and partition
keys name columns, field functions and aggregates fit their column kinds,
and every relationship points at an existing table and key.

Examples:
  delegate validate ./catalog.cue
  delegate validate ./catalog --table accounts`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Table, "table", "", "only report on this table (case-insensitive)")

	return cmd
}

func runValidate(opts *ValidateOptions, catalogPath string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	cat, loadErrs := LoadCatalog(catalogPath)
	if len(loadErrs) > 0 {
		if verrs := validationErrorsOf(loadErrs); verrs != nil {
			return outputValidationErrors(formatter, verrs)
		}
		return reportLoadErrors(formatter, loadErrs)
	}

	tables := cat.Tables()
	if opts.Table != "" {
		t, ok := FindTable(cat, opts.Table)
		if !ok {
			return reportError(formatter, ErrCodeNotFound, fmt.Sprintf("table %q not in catalog", opts.Table))
		}
		tables = []*metadata.Table{t}
	}

	summaries := make([]TableSummary, len(tables))
	for i, t := range tables {
		formatter.VerboseLog("Validated table: %s", t.Name)
		summaries[i] = summarizeTable(t)
	}

	if formatter.Format == "json" {
		return formatter.Success(ValidationResult{Valid: true, Tables: summaries})
	}

	mark(formatter.Writer, true, "Catalog valid: %d table(s)", len(cat.Tables()))
	for _, s := range summaries {
		fmt.Fprintf(formatter.Writer, "  %s (%s): %d column(s), capabilities %v\n", s.Name, s.Source, s.Columns, s.Capabilities)
	}
	return nil
}

// validationErrorsOf recovers the catalog validation errors from the
// loader's errors. It returns nil when any error is not a validation error
// (schema or load failures).
func validationErrorsOf(errs []error) []compiler.ValidationError {
	out := make([]compiler.ValidationError, 0, len(errs))
	for _, err := range errs {
		var verr compiler.ValidationError
		if !errors.As(err, &verr) {
			return nil
		}
		out = append(out, verr)
	}
	return out
}

func summarizeTable(t *metadata.Table) TableSummary {
	caps := []string{}
	c := t.Capabilities
	for _, named := range []struct {
		on   bool
		name string
	}{
		{c.Filter, "filter"},
		{c.Sort, "sort"},
		{c.Top, "top"},
		{c.Count, "count"},
		{c.Distinct, "distinct"},
		{c.Summarize, "summarize"},
		{c.Join, "join"},
	} {
		if named.on {
			caps = append(caps, named.name)
		}
	}
	return TableSummary{
		Name:         t.Name,
		Source:       t.Source,
		Columns:      len(t.Columns),
		Capabilities: caps,
		MaxRows:      t.MaxRows,
	}
}

// outputValidationErrors outputs multiple validation errors.
func outputValidationErrors(formatter *OutputFormatter, errs []compiler.ValidationError) error {
	if formatter.Format == "json" {
		result := ValidationResult{
			Valid:  false,
			Errors: errs,
		}

		response := CLIResponse{
			Status: "error",
			Data:   result,
			Error: &CLIError{
				Code:    errs[0].Code,
				Message: errs[0].Message,
			},
		}

		encoder := json.NewEncoder(formatter.Writer)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(response); err != nil {
			return err
		}

		// Validation failures = exit code 1 (test/validation failure)
		return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))
	}

	mark(formatter.Writer, false, "Validation failed")
	fmt.Fprintln(formatter.Writer)

	for _, err := range errs {
		fmt.Fprintf(formatter.Writer, "%s\n", err.Field)
		fmt.Fprintf(formatter.Writer, "  %s: %s\n\n", err.Code, err.Message)
	}

	// Validation failures = exit code 1 (test/validation failure)
	return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))
}
