package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/dataservice/internal/ir"
	"github.com/roach88/dataservice/internal/testutil"
)

func TestMarshalSpec_Canonical(t *testing.T) {
	specJSON, hash, err := marshalSpec(testutil.Test4Service())
	require.NoError(t, err)

	assert.Equal(t,
		`{"columns":[{"name":"A","type":"string"},{"name":"B","type":"integer"},{"name":"C","type":"string"},{"name":"D","type":"integer"}],"name":"Service","purpose":"parser fixture with two string and two integer columns","table":"Service"}`,
		specJSON)
	assert.Len(t, hash, 64)

	spec, err := unmarshalSpec(specJSON)
	require.NoError(t, err)
	assert.Equal(t, testutil.Test4Schema().Columns(), spec.Columns)
}

func TestUnmarshalSpec_Invalid(t *testing.T) {
	_, err := unmarshalSpec("{")
	assert.Error(t, err)
}

func TestColumnAffinity(t *testing.T) {
	tests := map[ir.ValueType]string{
		ir.TypeInteger:   "INTEGER",
		ir.TypeBoolean:   "INTEGER",
		ir.TypeNumber:    "NUMERIC",
		ir.TypeBigNumber: "NUMERIC",
		ir.TypeBinary:    "BLOB",
		ir.TypeString:    "TEXT",
		ir.TypeDate:      "TEXT",
		ir.TypeNone:      "TEXT",
	}
	for typ, want := range tests {
		assert.Equal(t, want, columnAffinity(typ), "type %q", typ)
	}
}

func TestToDriverValue(t *testing.T) {
	tests := []struct {
		name string
		in   ir.IRValue
		typ  ir.ValueType
		want any
	}{
		{"nil", nil, ir.TypeString, nil},
		{"null", ir.IRNull{}, ir.TypeInteger, nil},
		{"int", ir.IRInt(7), ir.TypeInteger, int64(7)},
		{"decimal", ir.MustIRDecimal("12.50"), ir.TypeNumber, "12.5"},
		{"true", ir.IRBool(true), ir.TypeBoolean, int64(1)},
		{"false", ir.IRBool(false), ir.TypeBoolean, int64(0)},
		{"string", ir.IRString("x"), ir.TypeString, "x"},
		{"binary", ir.IRString("x"), ir.TypeBinary, []byte("x")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := toDriverValue(tt.in, tt.typ)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := toDriverValue(ir.IRObject{}, ir.TypeString)
	assert.Error(t, err)
}

func TestFromDriverValue(t *testing.T) {
	ts := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		name string
		in   any
		typ  ir.ValueType
		want ir.IRValue
	}{
		{"null", nil, ir.TypeString, ir.IRNull{}},
		{"int", int64(3), ir.TypeInteger, ir.IRInt(3)},
		{"untyped int", int64(3), ir.TypeNone, ir.IRInt(3)},
		{"bool from int", int64(1), ir.TypeBoolean, ir.IRBool(true)},
		{"number from int", int64(800), ir.TypeNumber, ir.MustIRDecimal("800")},
		{"float", 2.5, ir.TypeNone, ir.MustIRDecimal("2.5")},
		{"bytes", []byte("abc"), ir.TypeString, ir.IRString("abc")},
		{"numeric text", "12.50", ir.TypeNumber, ir.MustIRDecimal("12.5")},
		{"text", "12.50", ir.TypeString, ir.IRString("12.50")},
		{"time", ts, ir.TypeTimestamp, ir.IRString("2024-03-01T12:00:00Z")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := fromDriverValue(tt.in, tt.typ)
			assert.True(t, ir.Equal(tt.want, got), "got %s, want %s", ir.String(got), ir.String(tt.want))
		})
	}
}
