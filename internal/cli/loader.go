package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/load"
	"cuelang.org/go/cue/token"

	"github.com/roach88/dataservice/internal/compiler"
	"github.com/roach88/dataservice/internal/ir"
)

// LoadMode controls how errors are handled during spec loading.
type LoadMode int

const (
	// LoadModeFailFast stops on the first error encountered.
	LoadModeFailFast LoadMode = iota
	// LoadModeCollectAll collects all errors before returning.
	LoadModeCollectAll
)

// LoadResult contains the results of loading specs from a directory.
type LoadResult struct {
	Services  []ir.ServiceSpec
	Queries   []ir.QuerySpec
	CUEValue  cue.Value // The raw CUE value for additional processing
	FileCount int       // Number of CUE files found
}

// LoadError represents an error that occurred during spec loading.
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

// LoadSpecs loads and compiles the CUE service and query declarations of a
// directory.
// If mode is LoadModeFailFast, returns on first error.
// If mode is LoadModeCollectAll, collects all errors.
func LoadSpecs(dir string, mode LoadMode) (*LoadResult, []error) {
	var errs []error

	info, err := os.Stat(dir)
	if os.IsNotExist(err) {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("specs directory not found: %s", dir)}}
	}
	if err != nil {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("error accessing specs directory: %v", err)}}
	}
	if !info.IsDir() {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("not a directory: %s", dir)}}
	}

	cueFiles, err := FindCUEFiles(dir)
	if err != nil {
		return nil, []error{&LoadError{Code: ErrCodeScanError, Message: fmt.Sprintf("error scanning directory: %v", err)}}
	}
	if len(cueFiles) == 0 {
		return nil, []error{&LoadError{Code: ErrCodeNoFiles, Message: fmt.Sprintf("no CUE files found in %s", dir)}}
	}

	ctx := cuecontext.New()
	instances := load.Instances([]string{"."}, &load.Config{Dir: dir})
	if len(instances) == 0 {
		return nil, []error{&LoadError{Code: ErrCodeLoadFailed, Message: "no CUE instances loaded"}}
	}

	inst := instances[0]
	if inst.Err != nil {
		return nil, []error{&LoadError{Code: ErrCodeLoadFailed, Message: fmt.Sprintf("loading CUE files: %v", inst.Err)}}
	}

	value := ctx.BuildInstance(inst)
	if err := value.Err(); err != nil {
		return nil, []error{&LoadError{Code: ErrCodeBuildFailed, Message: fmt.Sprintf("building CUE value: %v", err)}}
	}

	result := &LoadResult{
		CUEValue:  value,
		FileCount: len(cueFiles),
	}

	stop := eachField(value, "service", func(label string, v cue.Value) bool {
		spec, compileErr := compiler.CompileService(v)
		if compileErr != nil {
			errs = append(errs, convertCompileError(compileErr, "service."+label))
			return mode == LoadModeFailFast
		}
		result.Services = append(result.Services, *spec)
		return false
	}, &errs)
	if stop {
		return result, errs
	}

	stop = eachField(value, "query", func(label string, v cue.Value) bool {
		q, compileErr := compiler.CompileQuery(v)
		if compileErr != nil {
			errs = append(errs, convertCompileError(compileErr, "query."+label))
			return mode == LoadModeFailFast
		}
		result.Queries = append(result.Queries, *q)
		return false
	}, &errs)
	if stop {
		return result, errs
	}

	if len(result.Services) == 0 && len(errs) == 0 {
		errs = append(errs, &LoadError{Code: ErrCodeGeneric, Message: "no services found in specs"})
	}

	return result, errs
}

// eachField calls fn for every field of the struct at path. fn returns true
// to stop early; eachField reports whether it stopped.
func eachField(value cue.Value, path string, fn func(label string, v cue.Value) bool, errs *[]error) bool {
	v := value.LookupPath(cue.ParsePath(path))
	if !v.Exists() {
		return false
	}
	iter, err := v.Fields()
	if err != nil {
		*errs = append(*errs, &LoadError{Code: ErrCodeGeneric, Message: fmt.Sprintf("iterating %s: %v", path, err)})
		return true
	}
	for iter.Next() {
		if fn(iter.Label(), iter.Value()) {
			return true
		}
	}
	return false
}

// FindCUEFiles walks the directory and returns all .cue file paths.
func FindCUEFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && filepath.Ext(path) == ".cue" {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}

// convertCompileError converts a compiler error to a LoadError with position info.
func convertCompileError(err error, context string) *LoadError {
	var compileErr *compiler.CompileError
	if errors.As(err, &compileErr) {
		return &LoadError{
			Code:    MapFieldToErrorCode(compileErr.Field),
			Message: fmt.Sprintf("%s: %s", context, compileErr.Message),
			Pos:     compileErr.Pos,
		}
	}
	return &LoadError{
		Code:    ErrCodeGeneric,
		Message: fmt.Sprintf("%s: %v", context, err),
	}
}

// Error code constants - unified across all CLI commands.
const (
	ErrCodeGeneric     = "E001" // Generic/unknown error
	ErrCodeScanError   = "E002" // Directory scan error
	ErrCodeNoFiles     = "E003" // No CUE files found
	ErrCodeLoadFailed  = "E004" // CUE load failed
	ErrCodeNotFound    = "E005" // Path not found
	ErrCodeBuildFailed = "E006" // CUE build failed
	ErrCodeWriteFailed = "E007" // File write error
	ErrCodeQueryFailed = "E008" // Query or load rejected by the engine
	ErrCodeBadInput    = "E009" // Unreadable rows file or SQL text
)

// MapFieldToErrorCode maps a compiler error field to an error code. The
// codes are shared with compiler.Validate so one field always reports the
// same code.
func MapFieldToErrorCode(field string) string {
	switch {
	case field == "columns":
		return compiler.ErrServiceNoColumns
	case strings.HasPrefix(field, "columns."), field == "type":
		return compiler.ErrInvalidColumnType
	case field == "service":
		return compiler.ErrQueryUnknownService
	case field == "fields":
		return compiler.ErrQueryInvalidFields
	case field == "where":
		return compiler.ErrQueryInvalidWhere
	default:
		return ErrCodeGeneric
	}
}
