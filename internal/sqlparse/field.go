package sqlparse

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/roach88/dataservice/internal/ir"
	"github.com/roach88/dataservice/internal/queryir"
)

var functionName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// ParseField parses one SELECT-list item.
//
// Unknown column names are not an error: the field is returned without a
// resolution and the consumer decides. Malformed aggregate, IIF or CASE
// syntax is.
func ParseField(table, clause string, schema Schema) (*queryir.Field, error) {
	clause = strings.TrimSpace(clause)
	if clause == "" {
		return nil, newParseError(clause, 0, "empty field")
	}

	expr, alias, err := splitAlias(clause)
	if err != nil {
		return nil, err
	}
	f := &queryir.Field{
		Clause:     clause,
		Expression: expr,
		Alias:      alias,
	}
	fp := fieldParser{table: table, schema: schema, clause: clause}
	if err := fp.parseExpression(f, expr); err != nil {
		return nil, err
	}
	return f, nil
}

// splitAlias separates a trailing alias from the expression. "expr AS name"
// always carries an alias. Two tokens without AS carry one only when the
// first is a plain identifier, so "A foo" aliases A but "COUNT(A) foo" does
// not. A top-level AS anywhere but second to last is malformed.
func splitAlias(clause string) (string, string, error) {
	spans := topLevelSpans(clause)
	n := len(spans)
	token := func(i int) string { return clause[spans[i].start:spans[i].end] }

	as := -1
	for i := range spans {
		if !strings.EqualFold(token(i), "AS") {
			continue
		}
		if as >= 0 || i == 0 || i != n-2 {
			return "", "", newParseError(clause, spans[i].start, "malformed alias in field %q", clause)
		}
		as = i
	}
	if as >= 0 {
		return strings.TrimSpace(clause[:spans[as].start]), StripIdentifierQuoting(token(n - 1)), nil
	}
	if n == 2 && isIdentifierToken(token(0)) && isAliasToken(token(1)) {
		return token(0), StripIdentifierQuoting(token(1)), nil
	}
	return clause, "", nil
}

func isAliasToken(token string) bool {
	if isKeyword(token) {
		return false
	}
	return bareIdentifier.MatchString(token) || quotedIdentifier.MatchString(token)
}

func isKeyword(token string) bool {
	switch strings.ToUpper(token) {
	case "AS", "AND", "OR", "NOT", "CASE", "WHEN", "THEN", "ELSE", "END", "DISTINCT", "FROM", "WHERE":
		return true
	}
	return false
}

type fieldParser struct {
	table  string
	schema Schema
	clause string
}

func (fp fieldParser) parseExpression(f *queryir.Field, expr string) error {
	if name, args, ok, err := fp.splitCall(expr); err != nil {
		return err
	} else if ok {
		if strings.EqualFold(name, "IIF") {
			return fp.parseIIF(f, args)
		}
		if agg, ok := queryir.ParseAggregation(name); ok {
			return fp.parseAggregate(f, agg, args)
		}
	}

	if tokens := TopLevelTokens(expr); len(tokens) > 0 && strings.EqualFold(tokens[0], "CASE") {
		return fp.parseCase(f, expr)
	}

	return fp.resolve(f, expr)
}

// splitCall recognizes name(args) spanning the whole expression.
func (fp fieldParser) splitCall(expr string) (string, string, bool, error) {
	open := strings.IndexByte(expr, '(')
	if open <= 0 {
		return "", "", false, nil
	}
	name := strings.TrimSpace(expr[:open])
	if !functionName.MatchString(name) {
		return "", "", false, nil
	}
	end, err := FindMatchingClose(expr, open)
	if err != nil {
		return "", "", false, fp.errorf(expr, "unbalanced parentheses in %q", expr)
	}
	if end != len(expr)-1 {
		return "", "", false, nil
	}
	return name, expr[open+1 : end], true, nil
}

func (fp fieldParser) parseAggregate(f *queryir.Field, agg queryir.Aggregation, args string) error {
	f.Aggregation = agg
	inner := strings.TrimSpace(args)

	if agg == queryir.AggCount {
		if hasKeywordAt(inner, 0, "DISTINCT") {
			f.CountDistinct = true
			inner = strings.TrimSpace(inner[len("DISTINCT"):])
		}
		if StripTableQualifier(inner, fp.table) == "*" || inner == "*" {
			if f.CountDistinct {
				return fp.errorf(inner, "COUNT(DISTINCT *) is not supported")
			}
			f.CountStar = true
			f.ColumnName = "*"
			if f.Alias == "" {
				f.Alias = f.Expression
			}
			return nil
		}
	}
	if inner == "" {
		return fp.errorf(f.Expression, "%s requires an argument", agg)
	}

	// The argument is itself a column, constant, IIF or CASE expression.
	arg := &queryir.Field{Clause: inner, Expression: inner}
	if err := fp.parseExpression(arg, inner); err != nil {
		return err
	}
	if arg.Aggregation != queryir.AggNone {
		return fp.errorf(inner, "nested aggregate %s inside %s is not supported", arg.Aggregation, agg)
	}
	f.ColumnName, f.Resolved, f.Conditional = arg.ColumnName, arg.Resolved, arg.Conditional
	if agg == queryir.AggCount && f.IsConstant() && f.Alias == "" {
		f.Alias = f.Expression
	}
	return nil
}

func (fp fieldParser) parseIIF(f *queryir.Field, args string) error {
	parts := SplitTopLevel(args, ',')
	if len(parts) != 3 {
		return fp.errorf(f.Expression, "IIF requires 3 arguments, got %d", len(parts))
	}
	return fp.setConditional(f, parts[0], parts[1], parts[2], true)
}

// parseCase handles CASE WHEN guard THEN value [ELSE value] END with a
// single WHEN branch.
func (fp fieldParser) parseCase(f *queryir.Field, expr string) error {
	end := lastKeyword(expr, "END")
	if end < 0 || strings.TrimSpace(expr[end+len("END"):]) != "" {
		return fp.errorf(expr, "CASE expression must end with END")
	}
	body := expr[len("CASE"):end]

	when := IndexKeyword(body, "WHEN")
	if when < 0 || strings.TrimSpace(body[:when]) != "" {
		return fp.errorf(expr, "CASE expression must start with WHEN")
	}
	afterWhen := when + len("WHEN")
	then := indexKeywordFrom(body, "THEN", afterWhen)
	if then < 0 {
		return fp.errorf(expr, "CASE WHEN without THEN")
	}
	afterThen := then + len("THEN")
	if indexKeywordFrom(body, "WHEN", afterThen) >= 0 {
		return fp.errorf(expr, "CASE supports a single WHEN branch")
	}

	guard := body[afterWhen:then]
	whenTrue, whenFalse, hasElse := body[afterThen:], "", false
	if els := indexKeywordFrom(body, "ELSE", afterThen); els >= 0 {
		whenTrue, whenFalse, hasElse = body[afterThen:els], body[els+len("ELSE"):], true
	}
	return fp.setConditional(f, guard, whenTrue, whenFalse, hasElse)
}

func (fp fieldParser) setConditional(f *queryir.Field, guard, whenTrue, whenFalse string, hasElse bool) error {
	guard = strings.TrimSpace(guard)
	if guard == "" {
		return fp.errorf(f.Expression, "conditional expression has an empty guard")
	}
	cond, err := ParseCondition(fp.table, guard, fp.schema, nil)
	if err != nil {
		return err
	}

	c := &queryir.Conditional{Guard: cond, GuardClause: guard}
	if c.WhenTrue, err = fp.parseBranch(f, whenTrue); err != nil {
		return err
	}
	if hasElse {
		if c.WhenFalse, err = fp.parseBranch(f, whenFalse); err != nil {
			return err
		}
	}
	f.Conditional = c
	return nil
}

func (fp fieldParser) parseBranch(f *queryir.Field, text string) (*queryir.Field, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fp.errorf(f.Expression, "conditional expression has an empty branch")
	}
	branch := &queryir.Field{Clause: text, Expression: text}
	if err := fp.parseExpression(branch, text); err != nil {
		return nil, err
	}
	return branch, nil
}

// resolve fills in the column name and resolution of a plain column or
// constant expression.
func (fp fieldParser) resolve(f *queryir.Field, text string) error {
	t := strings.TrimSpace(text)

	switch {
	case IsQuotedLiteral(t):
		f.ColumnName = t
		f.Resolved = constant(ir.TypeString, ir.IRString(DecodeLiteral(t)))
		return nil
	case strings.EqualFold(t, "NULL"):
		f.ColumnName = t
		f.Resolved = constant(ir.TypeNone, ir.IRNull{})
		return nil
	}

	name := StripIdentifierQuoting(StripTableQualifier(t, fp.table))
	f.ColumnName = name
	if fp.schema != nil {
		if col, ok := fp.schema.Column(name); ok {
			f.Resolved = &queryir.Resolved{Type: col.Type, Index: col.Index}
			return nil
		}
	}
	if IsNumericLiteral(t) {
		r, err := numericConstant(t)
		if err != nil {
			return fp.errorf(t, "%s", err)
		}
		f.Resolved = r
	}
	return nil
}

func constant(t ir.ValueType, v ir.IRValue) *queryir.Resolved {
	return &queryir.Resolved{Type: t, Index: -1, Value: v}
}

// numericConstant types an integer literal as INTEGER and anything with a
// fraction or exponent, or too large for int64, as NUMBER.
func numericConstant(text string) (*queryir.Resolved, error) {
	if n, err := strconv.ParseInt(strings.TrimPrefix(text, "+"), 10, 64); err == nil {
		return constant(ir.TypeInteger, ir.IRInt(n)), nil
	}
	if err := checkNumericRange(text); err != nil {
		return nil, err
	}
	return constant(ir.TypeNumber, ir.MustIRDecimal(text)), nil
}

func (fp fieldParser) errorf(fragment, format string, args ...any) *ParseError {
	pos := strings.Index(fp.clause, fragment)
	if pos < 0 {
		pos = 0
	}
	return newParseError(fp.clause, pos, format, args...)
}

// indexKeywordFrom is IndexKeyword starting at a top-level offset.
func indexKeywordFrom(text, kw string, from int) int {
	i := IndexKeyword(text[from:], kw)
	if i < 0 {
		return -1
	}
	return i + from
}

// lastKeyword returns the offset of the last top-level occurrence of kw.
func lastKeyword(text, kw string) int {
	last := -1
	for from := 0; from < len(text); {
		i := indexKeywordFrom(text, kw, from)
		if i < 0 {
			break
		}
		last = i
		from = i + len(kw)
	}
	return last
}
