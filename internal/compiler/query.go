package compiler

import (
	"strings"

	"cuelang.org/go/cue"

	"github.com/roach88/dataservice/internal/ir"
)

// CompileQuery parses a CUE value into a QuerySpec.
//
// The CUE value should be the query struct itself, e.g.:
//
//	query: spain_sales: {
//		service: "Sales"
//		fields:  "Category, SUM(sales_amount) AS total"
//		where:   "Country = 'Spain'"
//	}
//
// Clause text is kept as written; Validate checks it against the service.
func CompileQuery(v cue.Value) (*ir.QuerySpec, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	q := &ir.QuerySpec{}

	labels := v.Path().Selectors()
	if len(labels) > 0 {
		q.Name = strings.Trim(labels[len(labels)-1].String(), `"`)
	}

	var err error
	if q.Service, err = requiredString(v, "service"); err != nil {
		return nil, err
	}
	if q.Fields, err = requiredString(v, "fields"); err != nil {
		return nil, err
	}
	if q.Where, err = optionalString(v, "where"); err != nil {
		return nil, err
	}

	return q, nil
}

// requiredString reads a string field that must be present and non-blank.
func requiredString(v cue.Value, field string) (string, error) {
	fv := v.LookupPath(cue.ParsePath(field))
	if !fv.Exists() {
		return "", &CompileError{
			Field:   field,
			Message: field + " is required",
			Pos:     v.Pos(),
		}
	}
	s, err := fv.String()
	if err != nil {
		return "", formatCUEError(err)
	}
	if strings.TrimSpace(s) == "" {
		return "", &CompileError{
			Field:   field,
			Message: field + " must be non-empty",
			Pos:     fv.Pos(),
		}
	}
	return s, nil
}
