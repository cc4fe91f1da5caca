package sqlparse

import (
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/require"

	"github.com/roach88/dataservice/internal/ir"
	"github.com/roach88/dataservice/internal/testutil"
)

func newGoldie(t *testing.T) *goldie.Goldie {
	return goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
}

func TestConditionGolden(t *testing.T) {
	tests := []struct {
		name  string
		where string
	}{
		{"condition_precedence", "A='Foo' OR B>5 AND C='foo' OR D=123"},
		{"condition_bracket", "A LIKE '%AL%' AND ( B LIKE '15%' OR C IS NULL )"},
		{"condition_negated_group", "A='Foo' AND NOT ( B>5 OR C='AAA' )"},
		{"condition_in_list", "A IN (''';''', 'Toys ''R'' us' )"},
		{"condition_parameter", "B > D OR PARAMETER('par')='foo'"},
	}

	g := newGoldie(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cond, err := ParseCondition("Service", tt.where, testutil.Test4Schema(), nil)
			require.NoError(t, err)
			data, err := ir.MarshalCanonical(cond.ToIR())
			require.NoError(t, err)
			g.Assert(t, tt.name, data)
		})
	}
}

func TestFieldsGolden(t *testing.T) {
	fields, err := ParseFields("Service",
		"A, SUM(B) as total, COUNT(*), IIF( B>5000, 'Big', 'Small' ) as size",
		testutil.Test4Schema())
	require.NoError(t, err)

	data, err := ir.MarshalCanonical(fields.ToIR())
	require.NoError(t, err)
	newGoldie(t).Assert(t, "fields_mixed", data)
}
