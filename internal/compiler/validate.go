package compiler

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/roach88/dataservice/internal/ir"
	"github.com/roach88/dataservice/internal/queryir"
	"github.com/roach88/dataservice/internal/querysql"
	"github.com/roach88/dataservice/internal/sqlparse"
)

// Validation error codes (E100-E199)
const (
	// General validation errors (E100)
	ErrUnsupportedIRType = "E100" // unsupported IR type for validation

	// ServiceSpec errors (E101-E109)
	ErrServiceName       = "E101" // service name is not a plain identifier
	ErrServiceNoColumns  = "E102" // at least one column required
	ErrInvalidColumnType = "E103" // unknown column type
	ErrDuplicateColumn   = "E104" // column names collide (case-insensitive)
	ErrReservedColumn    = "E105" // column shadows a SQLite row alias
	ErrDuplicateTable    = "E106" // two services share a backing table
	ErrDuplicateService  = "E107" // service declared twice

	// QuerySpec errors (E110-E119)
	ErrQueryUnknownService = "E110" // query names an undeclared service
	ErrQueryInvalidFields  = "E111" // field list does not parse
	ErrQueryInvalidWhere   = "E112" // where clause does not parse
	ErrQueryNotCompilable  = "E113" // parsed query has no SQL rendering
	ErrDuplicateQuery      = "E114" // query declared twice
)

// serviceNamePattern is what the FROM clause accepts without quoting.
var serviceNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// reservedColumns are SQLite's implicit row id aliases.
var reservedColumns = map[string]bool{"rowid": true, "oid": true, "_rowid_": true}

// ValidationError represents a schema validation error.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
	Line    int    `json:"line,omitempty"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("[%s] line %d: %s: %s", e.Code, e.Line, e.Field, e.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// Validate validates a single compiled service definition.
// Returns all errors found (does not fail-fast).
func Validate(v any) []ValidationError {
	switch spec := v.(type) {
	case *ir.ServiceSpec:
		return validateServiceSpec(spec)
	case ir.ServiceSpec:
		return validateServiceSpec(&spec)
	default:
		return []ValidationError{{
			Field:   "type",
			Message: fmt.Sprintf("unsupported IR type: %T", v),
			Code:    ErrUnsupportedIRType,
		}}
	}
}

// ValidateAll validates services and queries together: each service on its
// own, then cross-service collisions, then every query against the service
// it reads.
func ValidateAll(services []ir.ServiceSpec, queries []ir.QuerySpec) []ValidationError {
	var errs []ValidationError

	byName := make(map[string]ir.ServiceSpec, len(services))
	tables := make(map[string]string, len(services))
	for i := range services {
		spec := services[i]
		errs = append(errs, prefixed(fmt.Sprintf("service.%s", spec.Name), validateServiceSpec(&spec))...)

		if _, dup := byName[spec.Name]; dup {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("service.%s", spec.Name),
				Message: fmt.Sprintf("duplicate service name: %q", spec.Name),
				Code:    ErrDuplicateService,
			})
			continue
		}
		byName[spec.Name] = spec

		// SQLite table names are case-insensitive
		table := strings.ToLower(spec.TableName())
		if other, taken := tables[table]; taken {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("service.%s.table", spec.Name),
				Message: fmt.Sprintf("table %q is already used by service %q", spec.TableName(), other),
				Code:    ErrDuplicateTable,
			})
		}
		tables[table] = spec.Name
	}

	seen := make(map[string]bool, len(queries))
	for _, q := range queries {
		if seen[q.Name] {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("query.%s", q.Name),
				Message: fmt.Sprintf("duplicate query name: %q", q.Name),
				Code:    ErrDuplicateQuery,
			})
			continue
		}
		seen[q.Name] = true
		errs = append(errs, validateQuerySpec(q, byName)...)
	}

	return errs
}

// validateServiceSpec validates a service definition.
func validateServiceSpec(spec *ir.ServiceSpec) []ValidationError {
	var errs []ValidationError

	// E101: the name is used unquoted in FROM clauses
	if !serviceNamePattern.MatchString(spec.Name) {
		errs = append(errs, ValidationError{
			Field:   "name",
			Message: fmt.Sprintf("service name %q must be a plain identifier", spec.Name),
			Code:    ErrServiceName,
		})
	}

	// E102: at least one column
	if len(spec.Columns) == 0 {
		errs = append(errs, ValidationError{
			Field:   "columns",
			Message: "at least one column is required",
			Code:    ErrServiceNoColumns,
		})
	}

	names := make(map[string]string, len(spec.Columns))
	for i, col := range spec.Columns {
		path := fmt.Sprintf("columns[%d]", i)

		// E103: known type
		if !ir.ValidValueTypes[col.Type] {
			errs = append(errs, ValidationError{
				Field:   path + ".type",
				Message: fmt.Sprintf("invalid type %q for column %q", col.Type, col.Name),
				Code:    ErrInvalidColumnType,
			})
		}

		folded := strings.ToLower(col.Name)

		// E105: rowid and friends
		if reservedColumns[folded] {
			errs = append(errs, ValidationError{
				Field:   path + ".name",
				Message: fmt.Sprintf("column name %q is reserved", col.Name),
				Code:    ErrReservedColumn,
			})
		}

		// E104: SQLite column names are case-insensitive
		if prev, dup := names[folded]; dup {
			errs = append(errs, ValidationError{
				Field:   path + ".name",
				Message: fmt.Sprintf("column %q collides with column %q", col.Name, prev),
				Code:    ErrDuplicateColumn,
			})
			continue
		}
		names[folded] = col.Name
	}

	return errs
}

// validateQuerySpec parses and compiles a query against its service.
func validateQuerySpec(q ir.QuerySpec, services map[string]ir.ServiceSpec) []ValidationError {
	field := fmt.Sprintf("query.%s", q.Name)

	spec, ok := services[q.Service]
	if !ok {
		return []ValidationError{{
			Field:   field + ".service",
			Message: fmt.Sprintf("unknown service %q", q.Service),
			Code:    ErrQueryUnknownService,
		}}
	}
	schema := spec.Schema()

	fields, err := sqlparse.ParseFields(spec.Name, q.Fields, schema)
	if err != nil {
		return []ValidationError{{
			Field:   field + ".fields",
			Message: err.Error(),
			Code:    ErrQueryInvalidFields,
		}}
	}

	var errs []ValidationError
	for _, w := range queryir.ValidateFields(fields).Warnings {
		errs = append(errs, ValidationError{Field: field + ".fields", Message: w, Code: ErrQueryInvalidFields})
	}

	var cond *queryir.Condition
	if strings.TrimSpace(q.Where) != "" {
		cond, err = sqlparse.ParseCondition(spec.Name, q.Where, schema, fields)
		if err != nil {
			return append(errs, ValidationError{
				Field:   field + ".where",
				Message: err.Error(),
				Code:    ErrQueryInvalidWhere,
			})
		}
	}
	if _, err := querysql.NewSQLCompiler().Compile(spec, fields, cond); err != nil {
		errs = append(errs, ValidationError{Field: field, Message: err.Error(), Code: ErrQueryNotCompilable})
	}
	return errs
}

// prefixed qualifies each error's field with the owning declaration.
func prefixed(prefix string, errs []ValidationError) []ValidationError {
	for i := range errs {
		errs[i].Field = prefix + "." + errs[i].Field
	}
	return errs
}
