package compiler

import (
	"fmt"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/roach88/dataservice/internal/ir"
)

// CompileService parses a CUE value into a ServiceSpec.
// Uses CUE SDK's Go API directly (not CLI subprocess).
//
// The CUE value should be the service struct itself, e.g.:
//
//	ctx := cuecontext.New()
//	v := ctx.CompileString(`service: Sales: { columns: { Category: "string" } }`)
//	spec, err := CompileService(v.LookupPath(cue.ParsePath("service.Sales")))
//
// Columns keep their declaration order, which becomes the row layout.
func CompileService(v cue.Value) (*ir.ServiceSpec, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	spec := &ir.ServiceSpec{}

	// Service name comes from the struct label
	labels := v.Path().Selectors()
	if len(labels) > 0 {
		spec.Name = strings.Trim(labels[len(labels)-1].String(), `"`)
	}

	var err error
	if spec.Table, err = optionalString(v, "table"); err != nil {
		return nil, err
	}
	if spec.Purpose, err = optionalString(v, "purpose"); err != nil {
		return nil, err
	}

	spec.Columns, err = parseColumns(v)
	if err != nil {
		return nil, err
	}
	if len(spec.Columns) == 0 {
		return nil, &CompileError{
			Field:   "columns",
			Message: "at least one column is required",
			Pos:     v.Pos(),
		}
	}

	return spec, nil
}

// parseColumns extracts the column layout in declaration order.
func parseColumns(v cue.Value) ([]ir.Column, error) {
	columnsVal := v.LookupPath(cue.ParsePath("columns"))
	if !columnsVal.Exists() {
		return nil, &CompileError{
			Field:   "columns",
			Message: "columns are required",
			Pos:     v.Pos(),
		}
	}

	iter, err := columnsVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var columns []ir.Column
	for iter.Next() {
		name := iter.Label()
		typ, err := extractColumnType(name, iter.Value())
		if err != nil {
			return nil, err
		}
		columns = append(columns, ir.Column{
			Name:  name,
			Type:  typ,
			Index: len(columns),
		})
	}

	return columns, nil
}

// extractColumnType reads a column's type. A concrete string names the type
// ("integer", "number", "date", ...); a bare CUE type maps by kind.
func extractColumnType(column string, v cue.Value) (ir.ValueType, error) {
	if name, err := v.String(); err == nil {
		t, err := ir.ParseValueType(name)
		if err != nil {
			return ir.TypeNone, &CompileError{
				Field:   "columns." + column,
				Message: err.Error(),
				Pos:     v.Pos(),
			}
		}
		return t, nil
	}

	switch v.IncompleteKind() {
	case cue.StringKind:
		return ir.TypeString, nil
	case cue.IntKind:
		return ir.TypeInteger, nil
	case cue.FloatKind, cue.NumberKind:
		return ir.TypeNumber, nil
	case cue.BoolKind:
		return ir.TypeBoolean, nil
	case cue.BytesKind:
		return ir.TypeBinary, nil
	default:
		return ir.TypeNone, &CompileError{
			Field:   "columns." + column,
			Message: fmt.Sprintf("unsupported type kind: %v", v.IncompleteKind()),
			Pos:     v.Pos(),
		}
	}
}

// optionalString reads a string field that may be absent.
func optionalString(v cue.Value, field string) (string, error) {
	fv := v.LookupPath(cue.ParsePath(field))
	if !fv.Exists() {
		return "", nil
	}
	s, err := fv.String()
	if err != nil {
		return "", formatCUEError(err)
	}
	return s, nil
}

// CompileError represents a compilation error with source position.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	// CUE errors may contain multiple errors
	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	firstErr := errs[0]
	positions := errors.Positions(firstErr)
	if len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: firstErr.Error(),
			Pos:     positions[0],
		}
	}

	return err
}
