package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue/token"
	"golang.org/x/text/cases"

	"github.com/roach88/delegation/internal/compiler"
	"github.com/roach88/delegation/internal/exprfile"
	"github.com/roach88/delegation/internal/ir"
	"github.com/roach88/delegation/internal/metadata"
)

// LoadError represents an error that occurred while loading a catalog or
// an expression document.
type LoadError struct {
	Code    string
	Message string
	Pos     token.Pos // CUE position if available
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Error code constants - unified across all CLI commands.
// Catalog validation uses the compiler's E1xx codes.
const (
	ErrCodeGeneric      = "E001" // Generic/unknown error
	ErrCodeScanError    = "E002" // Directory scan error
	ErrCodeNoFiles      = "E003" // No CUE files found
	ErrCodeLoadFailed   = "E004" // CUE load failed
	ErrCodeNotFound     = "E005" // Path not found
	ErrCodeBuildFailed  = "E006" // CUE build or schema check failed
	ErrCodeWriteFailed  = "E007" // File write error
	ErrCodeExpression   = "E008" // Expression document malformed
	ErrCodeDatabase     = "E009" // Database open, seed or query failed
	ErrCodeMissingTable = "E010" // Catalog declares no tables or a table has no columns
)

// LoadCatalog loads, compiles, validates and links the catalog at path
// (a .cue file or a directory). Validation failures are returned as one
// compiler.ValidationError per problem; any other failure yields a single
// LoadError.
func LoadCatalog(path string) (*metadata.Catalog, []error) {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("catalog not found: %s", path)}}
	}
	if err != nil {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("error accessing catalog: %v", err)}}
	}
	if info.IsDir() {
		files, err := FindCUEFiles(path)
		if err != nil {
			return nil, []error{&LoadError{Code: ErrCodeScanError, Message: fmt.Sprintf("error scanning directory: %v", err)}}
		}
		if len(files) == 0 {
			return nil, []error{&LoadError{Code: ErrCodeNoFiles, Message: fmt.Sprintf("no CUE files found in %s", path)}}
		}
	}

	value, err := compiler.Load(path)
	if err != nil {
		return nil, []error{convertCompileError(err, ErrCodeLoadFailed)}
	}
	cat, err := compiler.CompileCatalog(value)
	if err != nil {
		var verrs compiler.ValidationErrors
		if errors.As(err, &verrs) {
			out := make([]error, len(verrs))
			for i, v := range verrs {
				out[i] = v
			}
			return nil, out
		}
		return nil, []error{convertCompileError(err, ErrCodeGeneric)}
	}
	return cat, nil
}

// LoadExpression reads a bound expression document.
func LoadExpression(path string) (ir.Node, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("expression not found: %s", path)}
	}
	n, err := exprfile.Load(path)
	if err != nil {
		return nil, &LoadError{Code: ErrCodeExpression, Message: err.Error()}
	}
	return n, nil
}

// FindCUEFiles walks the directory and returns all .cue file paths.
func FindCUEFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() && filepath.Ext(path) == ".cue" {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}

// FindTable looks a table up by name, ignoring case, so command-line
// arguments like "accounts" resolve to the catalog's "Accounts". An exact
// match always wins.
func FindTable(cat *metadata.Catalog, name string) (*metadata.Table, bool) {
	if t, ok := cat.Lookup(name); ok {
		return t, true
	}
	fold := cases.Fold()
	want := fold.String(name)
	for _, t := range cat.Tables() {
		if fold.String(t.Name) == want {
			return t, true
		}
	}
	return nil, false
}

// convertCompileError converts a compiler error to a LoadError with position info.
func convertCompileError(err error, fallback string) *LoadError {
	var compileErr *compiler.CompileError
	if errors.As(err, &compileErr) {
		return &LoadError{
			Code:    MapFieldToErrorCode(compileErr.Field),
			Message: compileErr.Message,
			Pos:     compileErr.Pos,
		}
	}
	return &LoadError{Code: fallback, Message: err.Error()}
}

// MapFieldToErrorCode maps a compiler error field to an error code.
func MapFieldToErrorCode(field string) string {
	switch {
	case field == "cue":
		return ErrCodeBuildFailed
	case field == "table", field == "columns":
		return ErrCodeMissingTable
	case strings.HasSuffix(field, ".type"):
		return compiler.ErrInvalidColumnKind
	default:
		return ErrCodeGeneric
	}
}
