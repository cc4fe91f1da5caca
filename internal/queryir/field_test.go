package queryir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/dataservice/internal/ir"
)

func TestParseAggregation(t *testing.T) {
	for _, name := range []string{"sum", "AVG", "Count", "min", "MAX"} {
		_, ok := ParseAggregation(name)
		assert.True(t, ok, name)
	}
	_, ok := ParseAggregation("NONE")
	assert.False(t, ok)
	_, ok = ParseAggregation("IIF")
	assert.False(t, ok)

	agg, _ := ParseAggregation(" sum ")
	assert.Equal(t, AggSum, agg)
	assert.Equal(t, "SUM", agg.String())
}

func TestFieldNames(t *testing.T) {
	column := &Field{Clause: "A as foo", Expression: "A", ColumnName: "A", Alias: "foo"}
	assert.Equal(t, "A", column.Name())
	assert.Equal(t, "foo", column.OutputName())

	iif := &Field{
		Clause:      "IIF( B>5000, 'Big', 'Small' ) as size",
		Expression:  "IIF( B>5000, 'Big', 'Small' )",
		Alias:       "size",
		Conditional: &Conditional{GuardClause: "B>5000"},
	}
	assert.Equal(t, "IIF( B>5000, 'Big', 'Small' )", iif.Name())
	assert.True(t, iif.IsConditional())

	constant := &Field{
		Clause:     "1",
		Expression: "1",
		ColumnName: "1",
		Resolved:   &Resolved{Type: ir.TypeInteger, Index: -1, Value: ir.IRInt(1)},
	}
	assert.True(t, constant.IsConstant())
	assert.Equal(t, "1", constant.OutputName())
}

func TestFieldsLookups(t *testing.T) {
	fields := Fields{
		{Clause: "A", Expression: "A", ColumnName: "A"},
		{Clause: "SUM(B) as total", Expression: "SUM(B)", ColumnName: "B", Alias: "total", Aggregation: AggSum},
	}

	f, ok := fields.FindByAlias("total")
	require.True(t, ok)
	assert.Equal(t, "B", f.Name())

	_, ok = fields.FindByAlias("")
	assert.False(t, ok)

	f, ok = fields.FindByName("A")
	require.True(t, ok)
	assert.Equal(t, "A", f.Clause)

	assert.Equal(t, []string{"A", "total"}, fields.Names())
	assert.True(t, fields.HasAggregates())
	assert.False(t, fields[:1].HasAggregates())
}

func TestFieldToIR(t *testing.T) {
	f := &Field{
		Clause:      "CASE WHEN C IS NULL THEN 1 ELSE 0 END",
		Expression:  "CASE WHEN C IS NULL THEN 1 ELSE 0 END",
		Conditional: &Conditional{
			Guard:       NewNullTest("C", false),
			GuardClause: "C IS NULL",
			WhenTrue: &Field{Clause: "1", Expression: "1", ColumnName: "1",
				Resolved: &Resolved{Type: ir.TypeInteger, Index: -1, Value: ir.IRInt(1)}},
		},
	}

	obj := f.ToIR()
	assert.Equal(t, ir.IRString(f.Expression), obj["name"])
	_, hasAlias := obj["alias"]
	assert.False(t, hasAlias)

	cond, ok := obj["conditional"].(ir.IRObject)
	require.True(t, ok)
	assert.Equal(t, ir.IRString("C IS NULL"), cond["guard_clause"])
	_, hasFalse := cond["when_false"]
	assert.False(t, hasFalse)

	whenTrue, ok := cond["when_true"].(ir.IRObject)
	require.True(t, ok)
	assert.Equal(t, ir.IRInt(1), whenTrue["value"])
}

func TestConditionToIR(t *testing.T) {
	tree := Fold(JoinAnd, []*Condition{
		NewComparison("A", FuncEqual, "1"),
		NewColumnComparison("B", FuncLarger, "D"),
	})
	tree.Child(1).Negated = true

	data, err := ir.MarshalCanonical(tree.ToIR())
	require.NoError(t, err)
	assert.Equal(t,
		`{"children":[{"function":"=","left":"A","right":"1"},{"function":">","join":"AND","left":"B","negated":true,"right_column":"D"}]}`,
		string(data))
}
