package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/fatih/color"

	"github.com/roach88/delegation/internal/delegation"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0 // Successful execution
	ExitFailure      = 1 // Validation or scenario failure, or warnings under --strict
	ExitCommandError = 2 // Command error (invalid paths, bad catalog, database not found, etc.)
)

// ExitError represents an error with a specific exit code.
// Use this to return errors with meaningful exit codes from CLI commands.
type ExitError struct {
	Code    int    // Exit code (use ExitFailure or ExitCommandError)
	Message string // Error message
	Err     error  // Underlying error (optional)
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// NewExitError creates a new ExitError with the given code and message.
func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

// WrapExitError wraps an existing error with an exit code.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode extracts the exit code from an error.
// Returns ExitFailure (1) if the error is not an ExitError.
func GetExitCode(err error) int {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// OutputFormatter handles JSON vs text output for CLI commands.
type OutputFormatter struct {
	Format    string
	Writer    io.Writer
	ErrWriter io.Writer // Separate writer for verbose/diagnostic output (defaults to Writer)
	Verbose   bool
}

// CLIResponse is the standard JSON response format for CLI output.
type CLIResponse struct {
	Status    string    `json:"status"`               // "ok" or "error"
	Data      any       `json:"data,omitempty"`       // success payload
	Error     *CLIError `json:"error,omitempty"`      // error details
	CompileID string    `json:"compile_id,omitempty"` // id of the compile pass, when there is one
}

// CLIError is the error structure for CLI responses.
type CLIError struct {
	Code    string `json:"code"`              // "E001", "E101", etc.
	Message string `json:"message"`           // human-readable message
	Details any    `json:"details,omitempty"` // additional context
}

// Success outputs a successful result in the configured format.
func (f *OutputFormatter) Success(data any) error {
	return f.SuccessWithID("", data)
}

// SuccessWithID is Success tagged with the compile id in JSON output.
func (f *OutputFormatter) SuccessWithID(compileID string, data any) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(CLIResponse{
			Status:    "ok",
			Data:      data,
			CompileID: compileID,
		})
	}

	fmt.Fprintln(f.Writer, data)
	return nil
}

// Error outputs an error in the configured format.
func (f *OutputFormatter) Error(code, message string, details any) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(CLIResponse{
			Status: "error",
			Error: &CLIError{
				Code:    code,
				Message: message,
				Details: details,
			},
		})
	}

	fmt.Fprintf(f.Writer, "Error [%s]: %s\n", code, message)
	if f.Verbose && details != nil {
		fmt.Fprintf(f.Writer, "Details: %v\n", details)
	}
	return nil
}

// VerboseLog outputs a message only if verbose mode is enabled.
// When format is JSON, verbose logs go to ErrWriter to avoid corrupting JSON output.
func (f *OutputFormatter) VerboseLog(format string, args ...any) {
	if !f.Verbose {
		return
	}
	fmt.Fprintf(f.GetErrWriter(), format+"\n", args...)
}

// GetErrWriter returns the appropriate writer for diagnostic output.
// Returns ErrWriter if set, otherwise Writer.
func (f *OutputFormatter) GetErrWriter() io.Writer {
	if f.ErrWriter != nil {
		return f.ErrWriter
	}
	return f.Writer
}

var (
	warnKey  = color.New(color.FgYellow, color.Bold)
	warnSpan = color.New(color.FgCyan)
	okMark   = color.New(color.FgGreen)
	failMark = color.New(color.FgRed)
)

// PrintWarnings writes one line per warning in text form:
//
//	warning WrnDelegationCapability at 0:22: Sort cannot be delegated: ...
//
// Colors are dropped automatically when the output is not a terminal.
func (f *OutputFormatter) PrintWarnings(warnings []delegation.Warning) {
	for _, w := range warnings {
		fmt.Fprint(f.Writer, "warning ")
		warnKey.Fprint(f.Writer, string(w.Key))
		fmt.Fprint(f.Writer, " at ")
		warnSpan.Fprint(f.Writer, w.Span.String())
		fmt.Fprintf(f.Writer, ": %s\n", w.Message())
	}
}

// warningsJSON converts warnings to their JSON output shape.
func warningsJSON(warnings []delegation.Warning) []WarningOutput {
	out := make([]WarningOutput, len(warnings))
	for i, w := range warnings {
		out[i] = WarningOutput{
			Key:     string(w.Key),
			Span:    w.Span.String(),
			Message: w.Message(),
			Args:    w.Args,
		}
	}
	return out
}

// WarningOutput is a warning as it appears in JSON output.
type WarningOutput struct {
	Key     string `json:"key"`
	Span    string `json:"span"`
	Message string `json:"message"`
	Args    []any  `json:"args,omitempty"`
}

// mark writes a colored ✓ or ✗ followed by the message.
func mark(w io.Writer, ok bool, format string, args ...any) {
	if ok {
		okMark.Fprint(w, "✓ ")
	} else {
		failMark.Fprint(w, "✗ ")
	}
	fmt.Fprintf(w, format+"\n", args...)
}
