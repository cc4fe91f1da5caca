package queryir

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConditionString(t *testing.T) {
	negated := NewComparison("A", FuncEqual, "1")
	negated.Negated = true

	orGroup := Fold(JoinOr, []*Condition{
		NewComparison("B", FuncLike, "15%"),
		NewNullTest("C", false),
	})
	negatedGroup := Fold(JoinOr, []*Condition{
		NewComparison("B", FuncEqual, "x"),
		NewComparison("C", FuncEqual, "y"),
	})
	negatedGroup.Negated = true

	tests := []struct {
		name string
		cond *Condition
		want string
	}{
		{"comparison", NewComparison("A", FuncEqual, "1"), "A = '1'"},
		{"quote doubling", NewComparison("A", FuncEqual, "it's"), "A = 'it''s'"},
		{"column comparison", NewColumnComparison("A", FuncLarger, "B"), "A > B"},
		{"null test", NewNullTest("C", true), "C IS NOT NULL"},
		{"in list", NewInList("A", []string{"x;y", "it's"}), "A IN ('x;y', 'it''s')"},
		{"parameter", NewParameter("param", "FOO"), "PARAMETER('param') = 'FOO'"},
		{"negated leaf", negated, "NOT (A = '1')"},
		{"spaced identifier", NewComparison("My Col", FuncEqual, "1"), `"My Col" = '1'`},
		{"verbatim identifier", NewNullTest(`sum("Service"."sales_amount")`, false), `sum("Service"."sales_amount") IS NULL`},
		{
			"bracketed group",
			Fold(JoinAnd, []*Condition{NewComparison("A", FuncLike, "%AL%"), Bracket(orGroup)}),
			"A LIKE '%AL%' AND (B LIKE '15%' OR C IS NULL)",
		},
		{"negated group", negatedGroup, "NOT (B = 'x' OR C = 'y')"},
		{"nil", nil, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.cond.String())
		})
	}
}

func TestQuoteIdentifier(t *testing.T) {
	assert.Equal(t, "A", QuoteIdentifier("A"))
	assert.Equal(t, "Service.A", QuoteIdentifier("Service.A"))
	assert.Equal(t, `"1st"`, QuoteIdentifier("1st"))
	assert.Equal(t, `"GETTING_STARTED"."CUSTOMERNAME"`, QuoteIdentifier(`"GETTING_STARTED"."CUSTOMERNAME"`))
}
