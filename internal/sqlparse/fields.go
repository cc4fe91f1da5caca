package sqlparse

import (
	"fmt"
	"strings"

	"github.com/roach88/dataservice/internal/queryir"
)

// ParseFields parses a comma-separated SELECT list, preserving order.
// Empty segments left by stray commas are dropped. Duplicate output names
// are not rejected here; queryir.ValidateFields reports them.
func ParseFields(table, clause string, schema Schema) (queryir.Fields, error) {
	if strings.TrimSpace(clause) == "" {
		return nil, newParseError(clause, 0, "empty field list")
	}

	var fields queryir.Fields
	for _, segment := range SplitTopLevel(clause, ',') {
		segment = strings.TrimSpace(segment)
		if segment == "" {
			continue
		}
		f, err := ParseField(table, segment, schema)
		if err != nil {
			return nil, fmt.Errorf("field %d: %w", len(fields)+1, err)
		}
		fields = append(fields, f)
	}
	if len(fields) == 0 {
		return nil, newParseError(clause, 0, "empty field list")
	}
	return fields, nil
}
