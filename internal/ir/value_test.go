package ir

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnmarshalIRValue(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  IRValue
	}{
		{"string", `"x"`, IRString("x")},
		{"int", `42`, IRInt(42)},
		{"decimal", `1.25`, MustIRDecimal("1.25")},
		{"exponent", `1e2`, MustIRDecimal("100")},
		{"bool", `true`, IRBool(true)},
		{"null", `null`, IRNull{}},
		{"array", `[1,"a"]`, IRArray{IRInt(1), IRString("a")}},
		{"object", `{"a":1}`, IRObject{"a": IRInt(1)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := UnmarshalIRValue([]byte(tt.input))
			require.NoError(t, err)
			assert.True(t, Equal(tt.want, got), "want %v, got %v", tt.want, got)
		})
	}
}

func TestUnmarshalIRValueInvalid(t *testing.T) {
	_, err := UnmarshalIRValue([]byte(`{`))
	assert.Error(t, err)

	_, err = UnmarshalIRValue([]byte(`99999999999999999999`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "out of int64 range")
}

func TestMarshalIRValueRoundTrip(t *testing.T) {
	obj := IRObject{
		"b": IRArray{IRInt(1), MustIRDecimal("2.5")},
		"a": IRString("x"),
		"n": IRNull{},
	}
	data, err := json.Marshal(obj)
	require.NoError(t, err)
	assert.Equal(t, `{"a":"x","b":[1,2.5],"n":null}`, string(data))

	back, err := UnmarshalIRValue(data)
	require.NoError(t, err)
	assert.True(t, Equal(obj, back))
}

func TestEqual(t *testing.T) {
	assert.True(t, Equal(MustIRDecimal("1.50"), MustIRDecimal("1.5")))
	assert.False(t, Equal(IRInt(1), MustIRDecimal("1")), "types must match")
	assert.False(t, Equal(IRString("1"), IRInt(1)))
	assert.True(t, Equal(IRNull{}, IRNull{}))
	assert.False(t, Equal(IRArray{IRInt(1)}, IRArray{IRInt(1), IRInt(2)}))
	assert.False(t, Equal(IRObject{"a": IRInt(1)}, IRObject{"b": IRInt(1)}))
}

func TestParseDecimalExponentLimit(t *testing.T) {
	for _, s := range []string{"1e4096", "1e-4096", "123.456", "-0.5"} {
		_, err := ParseDecimal(s)
		assert.NoError(t, err, s)
	}
	for _, s := range []string{"1e4097", "1e-5000", "1e400000000"} {
		_, err := ParseDecimal(s)
		require.Error(t, err, s)
		assert.Contains(t, err.Error(), "out of range")
	}

	_, err := UnmarshalIRValue([]byte("1e400000000"))
	assert.Error(t, err)
}

func TestString(t *testing.T) {
	assert.Equal(t, "'Toys ''R'' us'", String(IRString("Toys 'R' us")))
	assert.Equal(t, "42", String(IRInt(42)))
	assert.Equal(t, "0.5", String(MustIRDecimal("0.50")))
	assert.Equal(t, "TRUE", String(IRBool(true)))
	assert.Equal(t, "NULL", String(IRNull{}))
	assert.Equal(t, "NULL", String(nil))
}

func TestFromGo(t *testing.T) {
	v, err := FromGo(map[string]any{"qty": 3, "price": 2.5, "name": "x", "gone": nil})
	require.NoError(t, err)
	obj := v.(IRObject)
	assert.Equal(t, IRInt(3), obj["qty"])
	assert.True(t, Equal(MustIRDecimal("2.5"), obj["price"]))
	assert.Equal(t, IRString("x"), obj["name"])
	assert.Equal(t, IRNull{}, obj["gone"])

	_, err = FromGo(struct{}{})
	assert.Error(t, err)
}

func TestFromGo_Time(t *testing.T) {
	day, err := FromGo(time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, IRString("2024-01-15"), day)

	ts, err := FromGo(time.Date(2024, 1, 15, 9, 30, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, IRString("2024-01-15T09:30:00Z"), ts)
}
