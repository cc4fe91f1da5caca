package cli

import (
	"errors"
	"fmt"
	"io"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/token"
	"github.com/spf13/cobra"

	"github.com/roach88/dataservice/internal/compiler"
	"github.com/roach88/dataservice/internal/ir"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid  bool                       `json:"valid"`
	Errors []compiler.ValidationError `json:"errors,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <specs-dir>",
		Short: "Validate specs without full compilation",
		Long: `Validate CUE service and named query declarations without writing output.

Reports every problem found: unusable column layouts, colliding service
or table names, and named queries whose clauses do not parse against
their service.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, specsDir string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	loadResult, loadErrors := LoadSpecs(specsDir, LoadModeFailFast)

	// Directory not found, no files, etc.
	if loadResult == nil && len(loadErrors) > 0 {
		var loadErr *LoadError
		if errors.As(loadErrors[0], &loadErr) {
			return outputValidateError(formatter, loadErr.Code, loadErr.Message, nil)
		}
		return outputValidateError(formatter, ErrCodeGeneric, loadErrors[0].Error(), nil)
	}

	formatter.VerboseLog("Found %d CUE file(s) in %s", loadResult.FileCount, specsDir)

	validationErrors := validateAll(loadResult.CUEValue, formatter)
	if len(validationErrors) > 0 {
		return outputValidationErrors(formatter, validationErrors)
	}

	return outputValidateSuccess(formatter)
}

// validateAll compiles every service and query in the CUE value and runs
// the cross-spec checks over whatever compiled. Unlike LoadSpecs it never
// stops early.
func validateAll(value cue.Value, formatter *OutputFormatter) []compiler.ValidationError {
	var allErrors []compiler.ValidationError
	var services []ir.ServiceSpec
	var queries []ir.QuerySpec

	var iterErrs []error
	eachField(value, "service", func(label string, v cue.Value) bool {
		formatter.VerboseLog("Validating service: %s", label)
		spec, err := compiler.CompileService(v)
		if err != nil {
			allErrors = append(allErrors, compileValidationError("service."+label, err))
			return false
		}
		services = append(services, *spec)
		return false
	}, &iterErrs)

	eachField(value, "query", func(label string, v cue.Value) bool {
		formatter.VerboseLog("Validating query: %s", label)
		q, err := compiler.CompileQuery(v)
		if err != nil {
			allErrors = append(allErrors, compileValidationError("query."+label, err))
			return false
		}
		queries = append(queries, *q)
		return false
	}, &iterErrs)

	for _, err := range iterErrs {
		allErrors = append(allErrors, compiler.ValidationError{
			Field:   "specs",
			Message: err.Error(),
			Code:    ErrCodeGeneric,
		})
	}

	allErrors = append(allErrors, compiler.ValidateAll(services, queries)...)

	if len(services) == 0 && len(allErrors) == 0 {
		allErrors = append(allErrors, compiler.ValidationError{
			Field:   "specs",
			Message: "no services found in specs",
			Code:    ErrCodeGeneric,
		})
	}

	return allErrors
}

// compileValidationError reports a CUE compile failure in the same shape
// as a semantic validation failure.
func compileValidationError(context string, err error) compiler.ValidationError {
	var cErr *compiler.CompileError
	if errors.As(err, &cErr) {
		return compiler.ValidationError{
			Field:   context + "." + cErr.Field,
			Message: cErr.Message,
			Code:    MapFieldToErrorCode(cErr.Field),
			Line:    lineOf(cErr.Pos),
		}
	}
	return compiler.ValidationError{
		Field:   context,
		Message: err.Error(),
		Code:    ErrCodeGeneric,
	}
}

// lineOf extracts the line number from a CUE position.
func lineOf(pos token.Pos) int {
	if pos.IsValid() {
		return pos.Line()
	}
	return 0
}

// outputValidateSuccess outputs successful validation results.
func outputValidateSuccess(formatter *OutputFormatter) error {
	if formatter.Format == "json" {
		return formatter.Success(ValidationResult{Valid: true})
	}

	fmt.Fprintln(formatter.Writer, "✓ All specs valid")
	return nil
}

// outputValidateError outputs a single validation error.
func outputValidateError(formatter *OutputFormatter, code, message string, details any) error {
	_ = formatter.Error(code, message, details)
	// Unreadable specs are command-level errors (exit code 2)
	return NewExitError(ExitCommandError, fmt.Sprintf("%s: %s", code, message))
}

// outputValidationErrors outputs multiple validation errors.
func outputValidationErrors(formatter *OutputFormatter, errs []compiler.ValidationError) error {
	// Validation failures = exit code 1 (test/validation failure)
	failed := NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))

	if formatter.Format == "json" {
		if err := formatter.Encode(CLIResponse{
			Status: "error",
			Data:   ValidationResult{Valid: false, Errors: errs},
			Error: &CLIError{
				Code:    errs[0].Code,
				Message: errs[0].Message,
			},
		}); err != nil {
			return err
		}
		return failed
	}

	fmt.Fprintln(formatter.Writer, "✗ Validation failed")
	fmt.Fprintln(formatter.Writer)

	for _, err := range errs {
		if err.Line > 0 {
			fmt.Fprintf(formatter.Writer, "line %d\n", err.Line)
		}
		fmt.Fprintf(formatter.Writer, "  %s: %s: %s\n\n", err.Code, err.Field, err.Message)
	}

	return failed
}

// ValidateSpecsDir validates all specs in a directory.
// This is a helper function for external callers.
func ValidateSpecsDir(specsDir string) ([]compiler.ValidationError, error) {
	loadResult, loadErrors := LoadSpecs(specsDir, LoadModeFailFast)
	if loadResult == nil && len(loadErrors) > 0 {
		return nil, loadErrors[0]
	}

	silent := &OutputFormatter{Format: "text", Writer: io.Discard}
	return validateAll(loadResult.CUEValue, silent), nil
}
