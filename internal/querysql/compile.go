package querysql

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/roach88/dataservice/internal/ir"
	"github.com/roach88/dataservice/internal/queryir"
)

// Compiled is a parameterized SQLite statement ready to run.
type Compiled struct {
	SQL    string
	Params []any

	// Columns are the output names, in SELECT-list order.
	Columns []string

	// Types holds the semantic type of each output column, TypeNone when
	// it cannot be known before the query runs.
	Types []ir.ValueType

	// Parameters holds the PARAMETER('name') = 'value' bindings found in
	// the WHERE clause. They do not filter rows.
	Parameters map[string]string
}

// SQLCompiler compiles parsed SELECT lists and WHERE trees to
// parameterized SQL for SQLite.
//
// All values are parameterized, never interpolated. Every non-aggregate
// query is ordered by rowid so results are deterministic.
type SQLCompiler struct{}

// NewSQLCompiler creates a new SQLCompiler.
func NewSQLCompiler() *SQLCompiler {
	return &SQLCompiler{}
}

// Compile converts a field list and an optional condition over service into
// a statement. cond may be nil.
func (c *SQLCompiler) Compile(service ir.ServiceSpec, fields queryir.Fields, cond *queryir.Condition) (*Compiled, error) {
	if len(fields) == 0 {
		return nil, fmt.Errorf("cannot compile an empty field list")
	}

	s := &compileState{
		schema: service.Schema(),
		fields: fields,
		out: &Compiled{
			Parameters: map[string]string{},
		},
	}

	selectClause, err := s.compileSelectList()
	if err != nil {
		return nil, err
	}

	var whereClause string
	if cond != nil {
		where, err := s.compileCondition(cond)
		if err != nil {
			return nil, fmt.Errorf("compile where: %w", err)
		}
		whereClause = " WHERE " + where
	}

	var orderByClause string
	if !fields.HasAggregates() {
		orderByClause = " ORDER BY rowid ASC"
	}

	s.out.SQL = fmt.Sprintf("SELECT %s FROM %s%s%s",
		selectClause,
		quoteIdent(service.TableName()),
		whereClause,
		orderByClause)
	return s.out, nil
}

// compileState carries one compilation.
type compileState struct {
	schema *ir.RowSchema
	fields queryir.Fields
	out    *Compiled
}

func (s *compileState) addParam(v any) string {
	s.out.Params = append(s.out.Params, v)
	return "?"
}

func (s *compileState) compileSelectList() (string, error) {
	aggregated := s.fields.HasAggregates()

	var parts []string
	for _, f := range s.fields {
		if f.ColumnName == "*" && f.Aggregation == queryir.AggNone {
			for _, col := range s.schema.Columns() {
				parts = append(parts, quoteIdent(col.Name))
				s.out.Columns = append(s.out.Columns, col.Name)
				s.out.Types = append(s.out.Types, col.Type)
			}
			continue
		}
		if aggregated && f.Aggregation == queryir.AggNone && !f.IsConstant() {
			return "", fmt.Errorf("field %q mixes with aggregates and needs GROUP BY, which is not supported", f.Clause)
		}

		expr, err := s.compileField(f)
		if err != nil {
			return "", fmt.Errorf("compile field %q: %w", f.Clause, err)
		}
		name := f.OutputName()
		parts = append(parts, expr+" AS "+quoteIdent(name))
		s.out.Columns = append(s.out.Columns, name)
		s.out.Types = append(s.out.Types, outputType(f))
	}
	return strings.Join(parts, ", "), nil
}

// outputType is the semantic type a field produces. COUNT is always an
// integer and AVG always a number; other aggregates keep their argument's
// type. A conditional takes the type of its first typed branch.
func outputType(f *queryir.Field) ir.ValueType {
	switch {
	case f.Aggregation == queryir.AggCount:
		return ir.TypeInteger
	case f.Aggregation == queryir.AggAvg:
		return ir.TypeNumber
	case f.Conditional != nil:
		if t := outputType(f.Conditional.WhenTrue); t != ir.TypeNone || f.Conditional.WhenFalse == nil {
			return t
		}
		return outputType(f.Conditional.WhenFalse)
	case f.Resolved != nil:
		return f.Resolved.Type
	default:
		return ir.TypeNone
	}
}

// compileField renders a field expression without its alias.
func (s *compileState) compileField(f *queryir.Field) (string, error) {
	var inner string
	switch {
	case f.CountStar:
		return "COUNT(*)", nil
	case f.Conditional != nil:
		expr, err := s.compileConditional(f.Conditional)
		if err != nil {
			return "", err
		}
		inner = expr
	case f.IsConstant():
		param, err := irValueToParam(f.Resolved.Value)
		if err != nil {
			return "", err
		}
		inner = s.addParam(param)
	case f.Resolved != nil:
		inner = quoteIdent(f.ColumnName)
	default:
		return "", fmt.Errorf("unknown column %q", f.ColumnName)
	}

	switch {
	case f.Aggregation == queryir.AggNone:
		return inner, nil
	case f.CountDistinct:
		return "COUNT(DISTINCT " + inner + ")", nil
	default:
		return f.Aggregation.String() + "(" + inner + ")", nil
	}
}

func (s *compileState) compileConditional(c *queryir.Conditional) (string, error) {
	guard, err := s.compileCondition(c.Guard)
	if err != nil {
		return "", fmt.Errorf("guard: %w", err)
	}
	whenTrue, err := s.compileField(c.WhenTrue)
	if err != nil {
		return "", err
	}
	if c.WhenFalse == nil {
		return fmt.Sprintf("CASE WHEN %s THEN %s END", guard, whenTrue), nil
	}
	whenFalse, err := s.compileField(c.WhenFalse)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("CASE WHEN %s THEN %s ELSE %s END", guard, whenTrue, whenFalse), nil
}

// compileCondition renders a condition tree. Groups are always
// parenthesized so mixed joins keep their meaning.
func (s *compileState) compileCondition(cond *queryir.Condition) (string, error) {
	if cond == nil {
		return "1 = 1", nil
	}

	var sql string
	switch n := cond.Node.(type) {
	case *queryir.Leaf:
		leaf, err := s.compileLeaf(n)
		if err != nil {
			return "", err
		}
		sql = leaf
	case *queryir.Group:
		if len(n.Children) == 0 {
			return "", fmt.Errorf("group has no children")
		}
		var b strings.Builder
		b.WriteByte('(')
		for i, child := range n.Children {
			part, err := s.compileCondition(child)
			if err != nil {
				return "", err
			}
			if i > 0 {
				b.WriteString(" " + joinKeyword(child.Join) + " ")
			}
			b.WriteString(part)
		}
		b.WriteByte(')')
		sql = b.String()
	default:
		return "", fmt.Errorf("unsupported condition node: %T", cond.Node)
	}

	if cond.Negated {
		return "NOT (" + sql + ")", nil
	}
	return sql, nil
}

func joinKeyword(j queryir.Join) string {
	if j == queryir.JoinOr {
		return "OR"
	}
	return "AND"
}

func (s *compileState) compileLeaf(l *queryir.Leaf) (string, error) {
	if l.Function == queryir.FuncTrue {
		s.out.Parameters[l.Left] = l.Right
		return "1 = 1", nil
	}

	left, typ, err := s.resolveOperand(l.Left)
	if err != nil {
		return "", err
	}

	switch l.Function {
	case queryir.FuncIsNull:
		return left + " IS NULL", nil
	case queryir.FuncIsNotNull:
		return left + " IS NOT NULL", nil
	case queryir.FuncInList:
		elements := queryir.DecodeInList(l.Right)
		placeholders := make([]string, len(elements))
		for i, e := range elements {
			param, err := toParam(typ, e)
			if err != nil {
				return "", fmt.Errorf("IN element for %q: %w", l.Left, err)
			}
			placeholders[i] = s.addParam(param)
		}
		return left + " IN (" + strings.Join(placeholders, ", ") + ")", nil
	case queryir.FuncLike, queryir.FuncRegexp:
		if l.RightColumn != "" {
			right, _, err := s.resolveOperand(l.RightColumn)
			if err != nil {
				return "", err
			}
			return left + " " + l.Function.Description() + " " + right, nil
		}
		return left + " " + l.Function.Description() + " " + s.addParam(l.Right), nil
	}

	if !l.Function.IsComparison() {
		return "", fmt.Errorf("unsupported function %s", l.Function)
	}
	if l.RightColumn != "" {
		right, _, err := s.resolveOperand(l.RightColumn)
		if err != nil {
			return "", err
		}
		return left + " " + l.Function.Description() + " " + right, nil
	}
	param, err := toParam(typ, l.Right)
	if err != nil {
		return "", fmt.Errorf("operand for %q: %w", l.Left, err)
	}
	return left + " " + l.Function.Description() + " " + s.addParam(param), nil
}

// resolveOperand maps a condition operand to SQL. Schema columns win over
// SELECT-list aliases; an alias compiles to the aliased expression.
func (s *compileState) resolveOperand(name string) (string, ir.ValueType, error) {
	if col, ok := s.schema.Column(name); ok {
		return quoteIdent(col.Name), col.Type, nil
	}
	if f, ok := s.fields.FindByAlias(name); ok {
		if f.Aggregation != queryir.AggNone {
			return "", "", fmt.Errorf("aggregate %q cannot be filtered without HAVING, which is not supported", name)
		}
		expr, err := s.compileField(f)
		if err != nil {
			return "", "", err
		}
		var typ ir.ValueType
		if f.Resolved != nil {
			typ = f.Resolved.Type
		}
		return "(" + expr + ")", typ, nil
	}
	return "", "", fmt.Errorf("unknown column %q", name)
}

// toParam converts a literal operand to a parameter typed by the column it
// is compared with.
func toParam(t ir.ValueType, literal string) (any, error) {
	switch t {
	case ir.TypeInteger:
		n, err := strconv.ParseInt(strings.TrimSpace(literal), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%q is not an integer", literal)
		}
		return n, nil
	case ir.TypeNumber, ir.TypeBigNumber:
		d, err := decimal.NewFromString(strings.TrimSpace(literal))
		if err != nil {
			return nil, fmt.Errorf("%q is not a number", literal)
		}
		if err := ir.CheckDecimalRange(d); err != nil {
			return nil, fmt.Errorf("number %q: %w", literal, err)
		}
		return d.String(), nil
	case ir.TypeBoolean:
		switch strings.ToUpper(strings.TrimSpace(literal)) {
		case "TRUE", "Y", "1":
			return true, nil
		case "FALSE", "N", "0":
			return false, nil
		}
		return nil, fmt.Errorf("%q is not a boolean", literal)
	default:
		return literal, nil
	}
}

// irValueToParam converts an ir.IRValue to a Go native type for an SQL
// parameter. Decimals travel as their exact string form.
func irValueToParam(v ir.IRValue) (any, error) {
	switch val := v.(type) {
	case ir.IRString:
		return string(val), nil
	case ir.IRInt:
		return int64(val), nil
	case ir.IRDecimal:
		if err := ir.CheckDecimalRange(val.Decimal); err != nil {
			return nil, err
		}
		return val.String(), nil
	case ir.IRBool:
		return bool(val), nil
	case ir.IRNull:
		return nil, nil
	case ir.IRArray:
		return nil, fmt.Errorf("IRArray cannot be used as SQL parameter directly")
	case ir.IRObject:
		return nil, fmt.Errorf("IRObject cannot be used as SQL parameter directly")
	default:
		return nil, fmt.Errorf("unsupported IRValue type for SQL parameter: %T", v)
	}
}

// quoteIdent double-quotes an identifier, doubling embedded quotes.
func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
