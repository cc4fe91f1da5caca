package sqlparse

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/dataservice/internal/ir"
	"github.com/roach88/dataservice/internal/queryir"
	"github.com/roach88/dataservice/internal/testutil"
)

func parseField(t *testing.T, clause string) *queryir.Field {
	t.Helper()
	f, err := ParseField("Service", clause, testutil.Test4Schema())
	require.NoError(t, err)
	require.NotNil(t, f)
	return f
}

func TestParseField_Columns(t *testing.T) {
	tests := []struct {
		clause string
		name   string
		alias  string
		typ    ir.ValueType
		index  int
	}{
		{"A", "A", "", ir.TypeString, 0},
		{"A as foo", "A", "foo", ir.TypeString, 0},
		{"A AS \"foo\"", "A", "foo", ir.TypeString, 0},
		{"A foo", "A", "foo", ir.TypeString, 0},
		{`"A" "foo"`, "A", "foo", ir.TypeString, 0},
		{"Service.A", "A", "", ir.TypeString, 0},
		{`"Service".A`, "A", "", ir.TypeString, 0},
		{`"Service"."A"`, "A", "", ir.TypeString, 0},
		{`"Service"."D" as "Last"`, "D", "Last", ir.TypeInteger, 3},
	}

	for _, tt := range tests {
		t.Run(tt.clause, func(t *testing.T) {
			f := parseField(t, tt.clause)
			assert.Equal(t, tt.name, f.Name())
			assert.Equal(t, tt.alias, f.Alias)
			assert.Equal(t, queryir.AggNone, f.Aggregation)
			require.NotNil(t, f.Resolved)
			assert.Equal(t, tt.typ, f.Resolved.Type)
			assert.Equal(t, tt.index, f.Resolved.Index)
			assert.False(t, f.IsConstant())
			assert.Equal(t, tt.clause, f.Clause)
		})
	}
}

func TestParseField_UnknownColumn(t *testing.T) {
	f := parseField(t, "Missing")
	assert.Equal(t, "Missing", f.Name())
	assert.Nil(t, f.Resolved)
}

func TestParseField_Aggregates(t *testing.T) {
	tests := []struct {
		clause string
		agg    queryir.Aggregation
		name   string
		alias  string
	}{
		{"SUM(B)", queryir.AggSum, "B", ""},
		{`SUM( Service."B" ) as total`, queryir.AggSum, "B", "total"},
		{"sum(B) total", queryir.AggSum, "", ""},
		{"avg(D)", queryir.AggAvg, "D", ""},
		{"MIN(A) as lo", queryir.AggMin, "A", "lo"},
		{"Max( \"Service\".\"D\" )", queryir.AggMax, "D", ""},
		{"COUNT(A)", queryir.AggCount, "A", ""},
	}

	for _, tt := range tests {
		t.Run(tt.clause, func(t *testing.T) {
			f := parseField(t, tt.clause)
			if tt.name == "" {
				// A call followed by a bare word is not an implicit alias.
				assert.Equal(t, tt.clause, f.Expression)
				return
			}
			assert.Equal(t, tt.agg, f.Aggregation)
			assert.Equal(t, tt.name, f.Name())
			assert.Equal(t, tt.alias, f.Alias)
			require.NotNil(t, f.Resolved)
			assert.False(t, f.CountStar)
		})
	}
}

func TestParseField_CountStar(t *testing.T) {
	for _, clause := range []string{"COUNT(*)", "count( * )", "COUNT(Service.*)", `COUNT("Service".*)`} {
		t.Run(clause, func(t *testing.T) {
			f := parseField(t, clause)
			assert.Equal(t, queryir.AggCount, f.Aggregation)
			assert.True(t, f.CountStar)
			assert.Equal(t, "*", f.Name())
			assert.Equal(t, clause, f.Alias)
			assert.Nil(t, f.Resolved)
		})
	}

	f := parseField(t, "COUNT(*) as n")
	assert.True(t, f.CountStar)
	assert.Equal(t, "n", f.Alias)
}

func TestParseField_CountDistinct(t *testing.T) {
	f := parseField(t, `COUNT(DISTINCT A) as "Number of customers"`)
	assert.Equal(t, queryir.AggCount, f.Aggregation)
	assert.True(t, f.CountDistinct)
	assert.False(t, f.CountStar)
	assert.Equal(t, "Number of customers", f.Alias)
	assert.Equal(t, "A", f.Name())
	require.NotNil(t, f.Resolved)
	assert.Equal(t, ir.TypeString, f.Resolved.Type)

	f = parseField(t, "count(distinct D)")
	assert.True(t, f.CountDistinct)
	assert.Equal(t, ir.TypeInteger, f.Resolved.Type)
}

func TestParseField_Constants(t *testing.T) {
	f := parseField(t, "1")
	assert.Equal(t, "1", f.Name())
	assert.Empty(t, f.Alias)
	require.True(t, f.IsConstant())
	assert.Equal(t, ir.TypeInteger, f.Resolved.Type)
	assert.Equal(t, ir.IRInt(1), f.Resolved.Value)

	f = parseField(t, "COUNT(1)")
	assert.Equal(t, "1", f.Name())
	assert.Equal(t, "COUNT(1)", f.Alias)
	assert.Equal(t, queryir.AggCount, f.Aggregation)
	require.True(t, f.IsConstant())
	assert.Equal(t, ir.IRInt(1), f.Resolved.Value)

	f = parseField(t, "2.50 as price")
	assert.Equal(t, "price", f.Alias)
	assert.Equal(t, ir.TypeNumber, f.Resolved.Type)
	assert.True(t, ir.Equal(ir.MustIRDecimal("2.5"), f.Resolved.Value))

	f = parseField(t, "'Big'")
	assert.Equal(t, ir.TypeString, f.Resolved.Type)
	assert.Equal(t, ir.IRString("Big"), f.Resolved.Value)

	f = parseField(t, "NULL")
	assert.Equal(t, ir.IRNull{}, f.Resolved.Value)
}

func TestParseField_IIF(t *testing.T) {
	f := parseField(t, "IIF( B>5000, 'Big', 'Small' ) as size")
	assert.Equal(t, "IIF( B>5000, 'Big', 'Small' )", f.Name())
	assert.Equal(t, "size", f.Alias)
	assert.Empty(t, f.ColumnName)
	assert.Nil(t, f.Resolved)
	require.NotNil(t, f.Conditional)

	c := f.Conditional
	requireLeaf(t, c.Guard, "B", ">", "5000")
	assert.Equal(t, "B>5000", c.GuardClause)
	assert.Equal(t, ir.IRString("Big"), c.WhenTrue.Resolved.Value)
	assert.Equal(t, ir.IRString("Small"), c.WhenFalse.Resolved.Value)

	f = parseField(t, "iif(A IS NULL, B, D)")
	require.NotNil(t, f.Conditional)
	assert.Equal(t, "B", f.Conditional.WhenTrue.Name())
	assert.Equal(t, ir.TypeInteger, f.Conditional.WhenTrue.Resolved.Type)
	assert.Equal(t, "D", f.Conditional.WhenFalse.Name())
}

func TestParseField_Case(t *testing.T) {
	schema := testutil.SalesSchema()
	clause := `CASE WHEN "Service"."Category" IS NULL THEN 1 ELSE 0 END`

	f, err := ParseField("Service", clause, schema)
	require.NoError(t, err)
	assert.Equal(t, clause, f.Name())
	assert.Empty(t, f.Alias)
	require.NotNil(t, f.Conditional)

	c := f.Conditional
	assert.Equal(t, `"Service"."Category" IS NULL`, c.GuardClause)
	requireLeaf(t, c.Guard, "Category", "IS NULL", "")
	assert.Equal(t, ir.IRInt(1), c.WhenTrue.Resolved.Value)
	assert.Equal(t, ir.IRInt(0), c.WhenFalse.Resolved.Value)

	f, err = ParseField("Service", "case when Country = 'BE' then 'yes' end as flag", schema)
	require.NoError(t, err)
	assert.Equal(t, "flag", f.Alias)
	assert.Nil(t, f.Conditional.WhenFalse)
	assert.Equal(t, ir.IRString("yes"), f.Conditional.WhenTrue.Resolved.Value)
}

func TestParseField_AggregatedConditional(t *testing.T) {
	f := parseField(t, "SUM(IIF(B>1, 1, 0)) AS s")
	assert.Equal(t, queryir.AggSum, f.Aggregation)
	assert.Equal(t, "s", f.Alias)
	assert.Empty(t, f.ColumnName)
	assert.Nil(t, f.Resolved)
	require.NotNil(t, f.Conditional)
	requireLeaf(t, f.Conditional.Guard, "B", ">", "1")
	assert.Equal(t, ir.IRInt(1), f.Conditional.WhenTrue.Resolved.Value)
	assert.Equal(t, ir.IRInt(0), f.Conditional.WhenFalse.Resolved.Value)

	f = parseField(t, "count(CASE WHEN A = 'x' THEN D END)")
	assert.Equal(t, queryir.AggCount, f.Aggregation)
	assert.Equal(t, "count(CASE WHEN A = 'x' THEN D END)", f.OutputName())
	require.NotNil(t, f.Conditional)
	assert.Equal(t, "D", f.Conditional.WhenTrue.Name())
	assert.Nil(t, f.Conditional.WhenFalse)
}

func TestParseField_Errors(t *testing.T) {
	tests := []struct {
		name    string
		clause  string
		message string
	}{
		{"empty", "  ", "empty field"},
		{"alias without expression", "AS x y", "malformed alias"},
		{"alias keyword first", "AS foo", "malformed alias"},
		{"alias keyword last", "A AS", "malformed alias"},
		{"alias twice", "A AS x AS y", "malformed alias"},
		{"alias with trailing words", "SUM(B) AS x y", "malformed alias"},
		{"nested aggregate", "SUM(MAX(B))", "nested aggregate MAX inside SUM"},
		{"constant out of range", "1e400000000", "out of range"},
		{"aggregated constant out of range", "SUM(-1e-9999)", "out of range"},
		{"aggregated iif bad guard", "SUM(IIF(B ?? 1, 1, 0))", "unrecognized operator"},
		{"iif arity", "IIF(A = 'x', 1)", "IIF requires 3 arguments, got 2"},
		{"iif bad guard", "IIF(A ?? 1, 1, 0)", "unrecognized operator"},
		{"iif empty branch", "IIF(A = 'x', , 0)", "empty branch"},
		{"unbalanced aggregate", "SUM(B", "unbalanced parentheses"},
		{"empty aggregate", "SUM( )", "SUM requires an argument"},
		{"count distinct star", "COUNT(DISTINCT *)", "not supported"},
		{"case without end", "CASE WHEN A IS NULL THEN 1", "must end with END"},
		{"case without then", "CASE WHEN A IS NULL END", "without THEN"},
		{"case two branches", "CASE WHEN A IS NULL THEN 1 WHEN B = 1 THEN 2 END", "single WHEN"},
		{"case without when", "CASE A END", "must start with WHEN"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseField("Service", tt.clause, testutil.Test4Schema())
			if tt.message == "" {
				// Only required not to panic.
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.message)
			assert.True(t, errors.Is(err, ErrParse))
		})
	}
}

func TestParseFields(t *testing.T) {
	fields, err := ParseFields("Service", "A, SUM(B) as total, IIF(D > 1, 'x', 'y') as flag, COUNT(*),", testutil.Test4Schema())
	require.NoError(t, err)
	require.Len(t, fields, 4)
	assert.Equal(t, []string{"A", "total", "flag", "COUNT(*)"}, fields.Names())
	assert.True(t, fields.HasAggregates())

	fields, err = ParseFields("Service", "f(a, b) as x, g as y", nil)
	require.NoError(t, err)
	require.Len(t, fields, 2)
	assert.Equal(t, "x", fields[0].Alias)
	assert.Equal(t, "f(a, b)", fields[0].Expression)
	assert.Equal(t, "y", fields[1].Alias)

	fields, err = ParseFields("Service", "A, A", testutil.Test4Schema())
	require.NoError(t, err)
	assert.Len(t, fields, 2)
	assert.False(t, queryir.ValidateFields(fields).Valid)
}

func TestParseFieldsErrors(t *testing.T) {
	_, err := ParseFields("Service", "", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty field list")

	_, err = ParseFields("Service", " , ,", nil)
	require.Error(t, err)

	_, err = ParseFields("Service", "A, SUM(B", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "field 2:")
	assert.True(t, errors.Is(err, ErrParse))
}
