package store

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/roach88/dataservice/internal/ir"
)

// marshalSpec converts a service definition to canonical JSON TEXT for the
// registry, together with its content hash.
func marshalSpec(spec ir.ServiceSpec) (string, string, error) {
	data, err := ir.MarshalCanonical(ir.ServiceToIR(spec))
	if err != nil {
		return "", "", fmt.Errorf("marshal service %q: %w", spec.Name, err)
	}
	hash, err := ir.ServiceHash(spec)
	if err != nil {
		return "", "", fmt.Errorf("marshal service %q: %w", spec.Name, err)
	}
	return string(data), hash, nil
}

// unmarshalSpec parses registry JSON back into a service definition.
// Column indexes are reassigned from position.
func unmarshalSpec(data string) (ir.ServiceSpec, error) {
	var spec ir.ServiceSpec
	if err := json.Unmarshal([]byte(data), &spec); err != nil {
		return ir.ServiceSpec{}, fmt.Errorf("unmarshal service: %w", err)
	}
	for i := range spec.Columns {
		spec.Columns[i].Index = i
	}
	return spec, nil
}

// columnAffinity maps a semantic type to the SQLite column type used for
// the service table. Numbers use NUMERIC so decimal text compares by value.
func columnAffinity(t ir.ValueType) string {
	switch t {
	case ir.TypeInteger, ir.TypeBoolean:
		return "INTEGER"
	case ir.TypeNumber, ir.TypeBigNumber:
		return "NUMERIC"
	case ir.TypeBinary:
		return "BLOB"
	default:
		return "TEXT"
	}
}

// toDriverValue converts a row value to what go-sqlite3 binds for a column
// of the given type.
func toDriverValue(v ir.IRValue, t ir.ValueType) (any, error) {
	switch val := v.(type) {
	case nil, ir.IRNull:
		return nil, nil
	case ir.IRInt:
		return int64(val), nil
	case ir.IRDecimal:
		return val.Decimal.String(), nil
	case ir.IRBool:
		if val {
			return int64(1), nil
		}
		return int64(0), nil
	case ir.IRString:
		if t == ir.TypeBinary {
			return []byte(val), nil
		}
		return string(val), nil
	default:
		return nil, fmt.Errorf("unsupported value %T for a %s column", v, t)
	}
}

// fromDriverValue converts a scanned SQLite value back into an IRValue.
// The type hint comes from the selected column; TypeNone leaves the
// driver's own typing in place.
func fromDriverValue(v any, t ir.ValueType) ir.IRValue {
	switch val := v.(type) {
	case nil:
		return ir.IRNull{}
	case int64:
		switch t {
		case ir.TypeBoolean:
			return ir.IRBool(val != 0)
		case ir.TypeNumber, ir.TypeBigNumber:
			return ir.IRDecimal{Decimal: decimal.NewFromInt(val)}
		}
		return ir.IRInt(val)
	case float64:
		return ir.IRDecimal{Decimal: decimal.NewFromFloat(val)}
	case bool:
		return ir.IRBool(val)
	case []byte:
		return ir.IRString(string(val))
	case string:
		if t.IsNumeric() {
			if d, err := decimal.NewFromString(strings.TrimSpace(val)); err == nil {
				return ir.IRDecimal{Decimal: d}
			}
		}
		return ir.IRString(val)
	case time.Time:
		return ir.IRString(val.UTC().Format(time.RFC3339Nano))
	default:
		return ir.IRString(fmt.Sprint(val))
	}
}
