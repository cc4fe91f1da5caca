package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/dataservice/internal/compiler"
	"github.com/roach88/dataservice/internal/ir"
)

// CompileOptions holds flags for the compile command.
type CompileOptions struct {
	*RootOptions
	Output string // output file path
}

// CompilationResult holds the compiled services and named queries.
type CompilationResult struct {
	Services []ir.ServiceSpec `json:"services"`
	Queries  []ir.QuerySpec   `json:"queries"`
}

// ToIR projects the result onto IR values for canonical output.
func (r *CompilationResult) ToIR() ir.IRObject {
	services := make(ir.IRArray, len(r.Services))
	for i, s := range r.Services {
		columns := make(ir.IRArray, len(s.Columns))
		for j, c := range s.Columns {
			columns[j] = ir.IRObject{
				"name": ir.IRString(c.Name),
				"type": ir.IRString(string(c.Type)),
			}
		}
		obj := ir.IRObject{
			"name":    ir.IRString(s.Name),
			"table":   ir.IRString(s.TableName()),
			"columns": columns,
		}
		if s.Purpose != "" {
			obj["purpose"] = ir.IRString(s.Purpose)
		}
		services[i] = obj
	}

	queries := make(ir.IRArray, len(r.Queries))
	for i, q := range r.Queries {
		obj := ir.IRObject{
			"name":    ir.IRString(q.Name),
			"service": ir.IRString(q.Service),
			"fields":  ir.IRString(q.Fields),
			"sql":     ir.IRString(q.SQL()),
		}
		if q.Where != "" {
			obj["where"] = ir.IRString(q.Where)
		}
		queries[i] = obj
	}

	return ir.IRObject{"services": services, "queries": queries}
}

// CompilationStats holds summary statistics.
type CompilationStats struct {
	ServiceCount int
	QueryCount   int
	TotalColumns int
}

// NewCompileCommand creates the compile command.
func NewCompileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compile <specs-dir>",
		Short: "Compile CUE service specs to canonical JSON",
		Long: `Compile CUE service and named query declarations to canonical JSON.

Every service is checked for a usable column layout and every named
query is parsed against its service before anything is written.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors - we handle our own error output
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "output file path")

	return cmd
}

func runCompile(opts *CompileOptions, specsDir string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	loadResult, loadErrors := LoadSpecs(specsDir, LoadModeCollectAll)

	// Directory not found, no files, etc.
	if loadResult == nil && len(loadErrors) > 0 {
		var loadErr *LoadError
		if errors.As(loadErrors[0], &loadErr) {
			return outputCompileError(formatter, loadErr.Code, loadErr.Message, nil)
		}
		return outputCompileError(formatter, ErrCodeGeneric, loadErrors[0].Error(), nil)
	}

	formatter.VerboseLog("Found %d CUE file(s) in %s", loadResult.FileCount, specsDir)
	for _, s := range loadResult.Services {
		formatter.VerboseLog("Compiling service: %s", s.Name)
	}
	for _, q := range loadResult.Queries {
		formatter.VerboseLog("Compiling query: %s", q.Name)
	}

	if len(loadErrors) > 0 {
		return outputCompileErrors(formatter, loadErrors)
	}

	// Queries only compile against a consistent set of services.
	if verrs := compiler.ValidateAll(loadResult.Services, loadResult.Queries); len(verrs) > 0 {
		errs := make([]error, len(verrs))
		for i, v := range verrs {
			errs[i] = &LoadError{Code: v.Code, Message: fmt.Sprintf("%s: %s", v.Field, v.Message)}
		}
		return outputCompileErrors(formatter, errs)
	}

	result := &CompilationResult{
		Services: loadResult.Services,
		Queries:  loadResult.Queries,
	}
	if result.Queries == nil {
		result.Queries = []ir.QuerySpec{}
	}
	stats := calculateStats(result)

	if opts.Output != "" {
		if err := writeIRToFile(result, opts.Output); err != nil {
			return outputCompileError(formatter, ErrCodeWriteFailed, fmt.Sprintf("writing output file: %v", err), nil)
		}
	}

	return outputCompileSuccess(formatter, result, stats, opts.Output)
}

// calculateStats computes summary statistics from compilation result.
func calculateStats(result *CompilationResult) CompilationStats {
	stats := CompilationStats{
		ServiceCount: len(result.Services),
		QueryCount:   len(result.Queries),
	}
	for _, s := range result.Services {
		stats.TotalColumns += len(s.Columns)
	}
	return stats
}

// outputCompileSuccess outputs successful compilation results.
func outputCompileSuccess(formatter *OutputFormatter, result *CompilationResult, stats CompilationStats, outputFile string) error {
	if formatter.Format == "json" {
		return formatter.Success(result)
	}

	w := formatter.Writer
	fmt.Fprintf(w, "✓ Compiled %d service(s), %d query(ies)\n\n", stats.ServiceCount, stats.QueryCount)

	if len(result.Services) > 0 {
		fmt.Fprintln(w, "Services:")
		for _, s := range result.Services {
			fmt.Fprintf(w, "  %s: %d column(s), table %s\n", s.Name, len(s.Columns), s.TableName())
		}
		fmt.Fprintln(w)
	}

	if len(result.Queries) > 0 {
		fmt.Fprintln(w, "Queries:")
		for _, q := range result.Queries {
			fmt.Fprintf(w, "  %s: %s\n", q.Name, q.SQL())
		}
		fmt.Fprintln(w)
	}

	if outputFile != "" {
		fmt.Fprintf(w, "Wrote canonical JSON to %s\n", outputFile)
	}

	return nil
}

// outputCompileError outputs a single compilation error.
func outputCompileError(formatter *OutputFormatter, code, message string, details any) error {
	_ = formatter.Error(code, message, details)
	// Compilation errors are command-level errors (exit code 2)
	return WrapExitError(ExitCommandError, fmt.Sprintf("%s: %s", code, message), nil)
}

// outputCompileErrors outputs multiple compilation errors.
func outputCompileErrors(formatter *OutputFormatter, errs []error) error {
	failed := NewExitError(ExitCommandError, fmt.Sprintf("compilation failed with %d error(s)", len(errs)))

	if formatter.Format == "json" {
		cliErrors := make([]CLIError, len(errs))
		for i, err := range errs {
			code, message := parseCompileError(err)
			cliErrors[i] = CLIError{Code: code, Message: message}
		}

		if err := formatter.Encode(CLIResponse{
			Status: "error",
			Error:  &cliErrors[0],
			Data:   cliErrors, // Include all errors in data
		}); err != nil {
			return err
		}
		return failed
	}

	fmt.Fprintln(formatter.Writer, "✗ Compilation failed")
	fmt.Fprintln(formatter.Writer)

	for _, err := range errs {
		code, message := parseCompileError(err)
		var loadErr *LoadError
		if errors.As(err, &loadErr) && loadErr.Pos.IsValid() {
			fmt.Fprintf(formatter.Writer, "%s:%d:%d\n",
				loadErr.Pos.Filename(),
				loadErr.Pos.Line(),
				loadErr.Pos.Column())
		}
		fmt.Fprintf(formatter.Writer, "  %s: %s\n\n", code, message)
	}

	return failed
}

// parseCompileError extracts error code and message from an error.
func parseCompileError(err error) (string, string) {
	var loadErr *LoadError
	if errors.As(err, &loadErr) {
		return loadErr.Code, loadErr.Message
	}
	var compileErr *compiler.CompileError
	if errors.As(err, &compileErr) {
		return MapFieldToErrorCode(compileErr.Field), compileErr.Message
	}
	return ErrCodeGeneric, err.Error()
}

// writeIRToFile writes the compilation result to a file in canonical JSON
// format, so two compiles of the same specs produce identical bytes.
func writeIRToFile(result *CompilationResult, filename string) error {
	data, err := ir.MarshalCanonical(result.ToIR())
	if err != nil {
		return fmt.Errorf("marshaling IR: %w", err)
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("writing file: %w", err)
	}

	return nil
}
