package ir

import (
	"fmt"
	"strings"
)

// ValueType is the semantic type of a service column or constant.
type ValueType string

// Semantic types understood by the data service.
const (
	TypeNone      ValueType = ""
	TypeInteger   ValueType = "integer"
	TypeNumber    ValueType = "number"
	TypeBigNumber ValueType = "bignumber"
	TypeString    ValueType = "string"
	TypeDate      ValueType = "date"
	TypeTimestamp ValueType = "timestamp"
	TypeBoolean   ValueType = "boolean"
	TypeBinary    ValueType = "binary"
)

// ValidValueTypes defines the allowed column types.
var ValidValueTypes = map[ValueType]bool{
	TypeInteger:   true,
	TypeNumber:    true,
	TypeBigNumber: true,
	TypeString:    true,
	TypeDate:      true,
	TypeTimestamp: true,
	TypeBoolean:   true,
	TypeBinary:    true,
}

// ParseValueType maps a type name (case-insensitive) to a ValueType.
func ParseValueType(name string) (ValueType, error) {
	t := ValueType(strings.ToLower(strings.TrimSpace(name)))
	if !ValidValueTypes[t] {
		return TypeNone, fmt.Errorf("unknown value type %q", name)
	}
	return t, nil
}

// IsNumeric reports whether values of this type compare numerically.
func (t ValueType) IsNumeric() bool {
	return t == TypeInteger || t == TypeNumber || t == TypeBigNumber
}

// Column is one entry of a service's row layout.
type Column struct {
	Name  string    `json:"name"`
	Type  ValueType `json:"type"`
	Index int       `json:"index"` // position in the row, assigned by NewRowSchema
}

// RowSchema is the ordered column layout of a service.
// Lookups are exact and case-sensitive; no case folding is performed.
type RowSchema struct {
	columns []Column
	index   map[string]int
}

// NewRowSchema builds a schema from columns in row order.
// Column indexes are assigned from the argument order. A duplicated name
// keeps the first occurrence for lookups.
func NewRowSchema(columns ...Column) *RowSchema {
	s := &RowSchema{
		columns: make([]Column, len(columns)),
		index:   make(map[string]int, len(columns)),
	}
	for i, c := range columns {
		c.Index = i
		s.columns[i] = c
		if _, exists := s.index[c.Name]; !exists {
			s.index[c.Name] = i
		}
	}
	return s
}

// Column looks up a column by exact name.
func (s *RowSchema) Column(name string) (Column, bool) {
	if s == nil {
		return Column{}, false
	}
	i, ok := s.index[name]
	if !ok {
		return Column{}, false
	}
	return s.columns[i], true
}

// Columns returns the columns in row order.
func (s *RowSchema) Columns() []Column {
	if s == nil {
		return nil
	}
	out := make([]Column, len(s.columns))
	copy(out, s.columns)
	return out
}

// Len returns the number of columns.
func (s *RowSchema) Len() int {
	if s == nil {
		return 0
	}
	return len(s.columns)
}

// ServiceSpec describes a named virtual table exposed by the data service.
type ServiceSpec struct {
	Name    string   `json:"name"`            // service name used in FROM and as qualifier
	Table   string   `json:"table,omitempty"` // backing table, defaults to Name
	Purpose string   `json:"purpose,omitempty"`
	Columns []Column `json:"columns"`
}

// TableName returns the backing table name.
func (s ServiceSpec) TableName() string {
	if s.Table != "" {
		return s.Table
	}
	return s.Name
}

// Schema returns the row layout of the service.
func (s ServiceSpec) Schema() *RowSchema {
	return NewRowSchema(s.Columns...)
}

// QuerySpec is a named query declared next to the services it reads.
// Fields and Where hold clause text exactly as it would appear after
// SELECT and WHERE; an empty Where selects every row.
type QuerySpec struct {
	Name    string `json:"name"`
	Service string `json:"service"`
	Fields  string `json:"fields"`
	Where   string `json:"where,omitempty"`
}

// SQL renders the query as a SELECT statement.
func (q QuerySpec) SQL() string {
	stmt := "SELECT " + q.Fields + " FROM " + q.Service
	if strings.TrimSpace(q.Where) != "" {
		stmt += " WHERE " + q.Where
	}
	return stmt
}
