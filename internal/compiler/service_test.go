package compiler

import (
	"errors"
	"testing"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/dataservice/internal/ir"
)

func TestCompileServiceBasic(t *testing.T) {
	ctx := cuecontext.New()
	v := ctx.CompileString(`
		service: Sales: {
			table:   "sales"
			purpose: "Sales per category and country"
			columns: {
				Category:      "string"
				Country:       "string"
				products_sold: "integer"
				sales_amount:  "number"
			}
		}
	`)

	require.NoError(t, v.Err())
	spec, err := CompileService(v.LookupPath(cue.ParsePath("service.Sales")))
	require.NoError(t, err)

	assert.Equal(t, "Sales", spec.Name)
	assert.Equal(t, "sales", spec.Table)
	assert.Equal(t, "Sales per category and country", spec.Purpose)
	assert.Equal(t, []ir.Column{
		{Name: "Category", Type: ir.TypeString, Index: 0},
		{Name: "Country", Type: ir.TypeString, Index: 1},
		{Name: "products_sold", Type: ir.TypeInteger, Index: 2},
		{Name: "sales_amount", Type: ir.TypeNumber, Index: 3},
	}, spec.Columns)
}

func TestCompileServiceDeclarationOrder(t *testing.T) {
	ctx := cuecontext.New()
	v := ctx.CompileString(`
		service: Service: columns: {
			D: "integer"
			A: "string"
			C: "string"
			B: "integer"
		}
	`)

	require.NoError(t, v.Err())
	spec, err := CompileService(v.LookupPath(cue.ParsePath("service.Service")))
	require.NoError(t, err)

	names := make([]string, len(spec.Columns))
	for i, c := range spec.Columns {
		names[i] = c.Name
	}
	assert.Equal(t, []string{"D", "A", "C", "B"}, names)
	assert.Equal(t, "Service", spec.TableName())
}

func TestCompileServiceKindTypes(t *testing.T) {
	ctx := cuecontext.New()
	v := ctx.CompileString(`
		service: Kinds: columns: {
			s: string
			i: int
			n: number
			f: float
			b: bool
			x: bytes
			d: "date"
			big: "BigNumber"
		}
	`)

	require.NoError(t, v.Err())
	spec, err := CompileService(v.LookupPath(cue.ParsePath("service.Kinds")))
	require.NoError(t, err)

	got := make(map[string]ir.ValueType, len(spec.Columns))
	for _, c := range spec.Columns {
		got[c.Name] = c.Type
	}
	assert.Equal(t, map[string]ir.ValueType{
		"s":   ir.TypeString,
		"i":   ir.TypeInteger,
		"n":   ir.TypeNumber,
		"f":   ir.TypeNumber,
		"b":   ir.TypeBoolean,
		"x":   ir.TypeBinary,
		"d":   ir.TypeDate,
		"big": ir.TypeBigNumber,
	}, got)
}

func TestCompileServiceQuotedColumn(t *testing.T) {
	ctx := cuecontext.New()
	v := ctx.CompileString(`
		service: Orders: columns: {
			"order date": "date"
			total:        "number"
		}
	`)

	require.NoError(t, v.Err())
	spec, err := CompileService(v.LookupPath(cue.ParsePath("service.Orders")))
	require.NoError(t, err)
	require.Len(t, spec.Columns, 2)
	assert.Equal(t, "order date", spec.Columns[0].Name)
}

func TestCompileServiceMissingColumns(t *testing.T) {
	ctx := cuecontext.New()
	v := ctx.CompileString(`
		service: Empty: {
			purpose: "Has nothing"
		}
	`)

	require.NoError(t, v.Err())
	_, err := CompileService(v.LookupPath(cue.ParsePath("service.Empty")))

	require.Error(t, err)
	var compileErr *CompileError
	require.True(t, errors.As(err, &compileErr))
	assert.Equal(t, "columns", compileErr.Field)
	assert.Contains(t, err.Error(), "required")
}

func TestCompileServiceEmptyColumns(t *testing.T) {
	ctx := cuecontext.New()
	v := ctx.CompileString(`
		service: Empty: columns: {}
	`)

	require.NoError(t, v.Err())
	_, err := CompileService(v.LookupPath(cue.ParsePath("service.Empty")))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "at least one column")
}

func TestCompileServiceUnknownType(t *testing.T) {
	ctx := cuecontext.New()
	v := ctx.CompileString(`
		service: Bad: columns: {
			A: "varchar"
		}
	`)

	require.NoError(t, v.Err())
	_, err := CompileService(v.LookupPath(cue.ParsePath("service.Bad")))

	require.Error(t, err)
	var compileErr *CompileError
	require.True(t, errors.As(err, &compileErr))
	assert.Equal(t, "columns.A", compileErr.Field)
	assert.Contains(t, compileErr.Message, `unknown value type "varchar"`)
}

func TestCompileServiceUnsupportedKind(t *testing.T) {
	ctx := cuecontext.New()
	v := ctx.CompileString(`
		service: Bad: columns: {
			A: [1, 2]
		}
	`)

	require.NoError(t, v.Err())
	_, err := CompileService(v.LookupPath(cue.ParsePath("service.Bad")))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported type kind")
}

func TestCompileServiceWrongPurposeType(t *testing.T) {
	ctx := cuecontext.New()
	v := ctx.CompileString(`
		service: Bad: {
			purpose: 42
			columns: A: "string"
		}
	`)

	require.NoError(t, v.Err())
	_, err := CompileService(v.LookupPath(cue.ParsePath("service.Bad")))
	assert.Error(t, err)
}

func TestCompileErrorFormat(t *testing.T) {
	err := &CompileError{Field: "columns", Message: "columns are required"}
	assert.Equal(t, "columns: columns are required", err.Error())
}

func TestFormatCUEErrorPosition(t *testing.T) {
	ctx := cuecontext.New()
	v := ctx.CompileString(`
		service: Bad: {
			table: "a" & "b"
			columns: A: "string"
		}
	`, cue.Filename("bad.cue"))

	_, err := CompileService(v.LookupPath(cue.ParsePath("service.Bad")))
	require.Error(t, err)

	var compileErr *CompileError
	require.True(t, errors.As(err, &compileErr))
	assert.Equal(t, "cue", compileErr.Field)
	assert.True(t, compileErr.Pos.IsValid())
	assert.Contains(t, err.Error(), "bad.cue:")
}

func TestFormatCUEErrorNil(t *testing.T) {
	assert.NoError(t, formatCUEError(nil))
}
