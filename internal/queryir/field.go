package queryir

import (
	"strings"

	"github.com/roach88/dataservice/internal/ir"
)

// Aggregation is the aggregate function applied to a SELECT-list field.
type Aggregation int

const (
	AggNone Aggregation = iota
	AggSum
	AggAvg
	AggCount
	AggMin
	AggMax
)

var aggregationNames = [...]string{
	AggNone:  "NONE",
	AggSum:   "SUM",
	AggAvg:   "AVG",
	AggCount: "COUNT",
	AggMin:   "MIN",
	AggMax:   "MAX",
}

// String returns the upper-case SQL name, or "NONE".
func (a Aggregation) String() string {
	if a < 0 || int(a) >= len(aggregationNames) {
		return "NONE"
	}
	return aggregationNames[a]
}

// ParseAggregation maps a function name (case-insensitive) to its
// aggregation. NONE is not a valid function name.
func ParseAggregation(name string) (Aggregation, bool) {
	upper := strings.ToUpper(strings.TrimSpace(name))
	for i, n := range aggregationNames {
		if i != int(AggNone) && n == upper {
			return Aggregation(i), true
		}
	}
	return AggNone, false
}

// Resolved is the schema or constant resolution of a field.
//
// For a column reference, Index is the column's position in the row schema
// and Value is nil. For a constant, Index is -1 and Value holds the typed
// value.
type Resolved struct {
	Type  ir.ValueType
	Index int
	Value ir.IRValue
}

// IsConstant reports whether the resolution is a literal constant.
func (r *Resolved) IsConstant() bool {
	return r != nil && r.Value != nil
}

// Conditional is the payload of an IIF(...) or CASE WHEN ... END field.
type Conditional struct {
	Guard       *Condition
	GuardClause string
	WhenTrue    *Field
	WhenFalse   *Field // nil when a CASE has no ELSE
}

// Field is one item of a SELECT list.
type Field struct {
	// Clause is the full trimmed source text, alias included.
	Clause string

	// Expression is Clause without its alias.
	Expression string

	// ColumnName is the bare referenced column, or the constant's source
	// text. It is empty for conditional fields.
	ColumnName string

	// Alias is the explicit or synthesized output name, or "".
	Alias string

	Aggregation   Aggregation
	CountStar     bool
	CountDistinct bool

	// Resolved is nil when the column is unknown to the schema or the field
	// is conditional.
	Resolved *Resolved

	// Conditional is set for IIF and CASE fields, also when an aggregate
	// wraps one.
	Conditional *Conditional
}

// Name returns the referenced column name, or for a conditional field the
// expression text without its alias.
func (f *Field) Name() string {
	if f.ColumnName != "" || f.Conditional == nil {
		return f.ColumnName
	}
	return f.Expression
}

// OutputName returns the alias when present, otherwise Name.
func (f *Field) OutputName() string {
	if f.Alias != "" {
		return f.Alias
	}
	return f.Name()
}

// IsConstant reports whether the field is a literal constant.
func (f *Field) IsConstant() bool {
	return f.Resolved.IsConstant()
}

// IsConditional reports whether the field is an IIF or CASE expression.
func (f *Field) IsConditional() bool {
	return f.Conditional != nil
}

// Fields is an ordered SELECT list.
type Fields []*Field

// FindByAlias returns the first field whose alias equals alias.
func (fs Fields) FindByAlias(alias string) (*Field, bool) {
	for _, f := range fs {
		if f.Alias != "" && f.Alias == alias {
			return f, true
		}
	}
	return nil, false
}

// FindByName returns the first field whose Name equals name.
func (fs Fields) FindByName(name string) (*Field, bool) {
	for _, f := range fs {
		if f.Name() == name {
			return f, true
		}
	}
	return nil, false
}

// Names returns the output names in list order.
func (fs Fields) Names() []string {
	names := make([]string, len(fs))
	for i, f := range fs {
		names[i] = f.OutputName()
	}
	return names
}

// HasAggregates reports whether any field is aggregated.
func (fs Fields) HasAggregates() bool {
	for _, f := range fs {
		if f.Aggregation != AggNone {
			return true
		}
	}
	return false
}
