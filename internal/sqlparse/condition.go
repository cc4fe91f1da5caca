package sqlparse

import (
	"errors"
	"strings"

	"github.com/roach88/dataservice/internal/ir"
	"github.com/roach88/dataservice/internal/queryir"
)

// Schema resolves column names of a service. *ir.RowSchema implements it.
type Schema interface {
	Column(name string) (ir.Column, bool)
}

// ParseCondition parses a WHERE clause into a condition tree.
//
// table is the service name (or its alias) used to strip qualifiers from
// identifiers. schema and fields decide whether a bare identifier on the
// right-hand side of a comparison is a column reference; either may be nil.
// Names on the left are never checked against the schema.
func ParseCondition(table, where string, schema Schema, fields queryir.Fields) (*queryir.Condition, error) {
	if strings.TrimSpace(where) == "" {
		return nil, newParseError(where, 0, "empty condition")
	}
	p := &conditionParser{
		table:  table,
		schema: schema,
		fields: fields,
		clause: where,
	}
	return p.parseClause(where, 0)
}

// conditionParser is a recursive-descent parser over one WHERE clause.
// Parenthesized groups are parsed by recursing on the inner text, so text
// and pos always describe the innermost group and base is its offset within
// clause.
type conditionParser struct {
	table  string
	schema Schema
	fields queryir.Fields

	clause string
	text   string
	pos    int
	base   int
}

// parseClause parses text as a complete orExpr. The parser's cursor state is
// restored afterwards so groups can nest.
func (p *conditionParser) parseClause(text string, base int) (*queryir.Condition, error) {
	savedText, savedPos, savedBase := p.text, p.pos, p.base
	defer func() {
		p.text, p.pos, p.base = savedText, savedPos, savedBase
	}()
	p.text, p.pos, p.base = text, 0, base

	cond, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	p.skipSpace()
	if !p.atEnd() {
		return nil, p.errorf("unexpected %q", p.rest())
	}
	return cond, nil
}

func (p *conditionParser) parseOr() (*queryir.Condition, error) {
	first, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	items := []*queryir.Condition{first}
	for {
		p.skipSpace()
		if !p.acceptKeyword("OR") {
			break
		}
		next, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		items = append(items, next)
	}
	return queryir.Fold(queryir.JoinOr, items), nil
}

func (p *conditionParser) parseAnd() (*queryir.Condition, error) {
	first, err := p.parseNot()
	if err != nil {
		return nil, err
	}
	items := []*queryir.Condition{first}
	for {
		p.skipSpace()
		if !p.acceptKeyword("AND") {
			break
		}
		next, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		items = append(items, next)
	}
	return queryir.Fold(queryir.JoinAnd, items), nil
}

func (p *conditionParser) parseNot() (*queryir.Condition, error) {
	negate := false
	for {
		p.skipSpace()
		if !p.acceptKeyword("NOT") {
			break
		}
		negate = !negate
	}
	return p.parsePrimary(negate)
}

func (p *conditionParser) parsePrimary(negate bool) (*queryir.Condition, error) {
	p.skipSpace()
	if p.atEnd() {
		return nil, p.errorf("missing condition")
	}

	if p.peek() == '(' {
		end, err := FindMatchingClose(p.text, p.pos)
		if err != nil {
			return nil, p.wrapLexError(err)
		}
		inner := p.text[p.pos+1 : end]
		if strings.TrimSpace(inner) == "" {
			return nil, p.errorf("empty parentheses")
		}
		cond, err := p.parseClause(inner, p.base+p.pos+1)
		if err != nil {
			return nil, err
		}
		p.pos = end + 1
		return bracket(cond, negate), nil
	}

	leaf, err := p.parseComparison()
	if err != nil {
		return nil, err
	}
	if negate {
		leaf.Negated = !leaf.Negated
	}
	return leaf, nil
}

// bracket applies the shape rules for a parenthesized condition. A leaf
// loses its parentheses. A composite is kept as a one-child group holding
// it, and NOT applies to the composite inside that group.
func bracket(cond *queryir.Condition, negate bool) *queryir.Condition {
	if cond.IsAtomic() {
		if negate {
			cond.Negated = !cond.Negated
		}
		return cond
	}
	if negate {
		cond.Negated = !cond.Negated
	}
	if cond.IsBracket() {
		return cond
	}
	return queryir.Bracket(cond)
}

func (p *conditionParser) parseComparison() (*queryir.Condition, error) {
	start := p.pos
	if p.peekKeyword("PARAMETER") {
		save := p.pos
		p.pos += len("PARAMETER")
		p.skipSpace()
		if p.peek() == '(' {
			return p.parseParameter(start)
		}
		p.pos = save
	}

	left, literal, err := p.scanOperand()
	if err != nil {
		return nil, err
	}
	if left == "" {
		return nil, p.errorf("missing operand")
	}
	leftName := p.resolveLeft(left, literal)

	p.skipSpace()
	if p.atEnd() {
		return nil, p.errorfAt(start, "missing operator after %q", left)
	}

	if op := p.scanSymbol(); op != "" {
		fn, ok := queryir.ParseFunction(op)
		if !ok || !fn.IsComparison() {
			return nil, p.errorfAt(p.pos-len(op), "unrecognized operator %q", op)
		}
		return p.parseRight(leftName, fn)
	}

	negated := p.acceptKeyword("NOT")
	if negated {
		p.skipSpace()
	}

	var cond *queryir.Condition
	switch {
	case p.acceptKeyword("LIKE"):
		cond, err = p.parseRight(leftName, queryir.FuncLike)
	case p.acceptKeyword("REGEXP"), p.acceptKeyword("REGEX"):
		cond, err = p.parseRight(leftName, queryir.FuncRegexp)
	case p.acceptKeyword("IN"):
		cond, err = p.parseInList(leftName)
	case !negated && p.acceptKeyword("IS"):
		p.skipSpace()
		notNull := p.acceptKeyword("NOT")
		p.skipSpace()
		if !p.acceptKeyword("NULL") {
			return nil, p.errorf("expected NULL after IS")
		}
		return queryir.NewNullTest(leftName, notNull), nil
	default:
		return nil, p.errorf("unrecognized operator %q", p.nextWord())
	}
	if err != nil {
		return nil, err
	}
	cond.Negated = negated
	return cond, nil
}

// parseRight reads the right-hand operand of a binary predicate.
func (p *conditionParser) parseRight(left string, fn queryir.Function) (*queryir.Condition, error) {
	p.skipSpace()
	start := p.pos
	right, literal, err := p.scanOperand()
	if err != nil {
		return nil, err
	}
	if right == "" {
		return nil, p.errorfAt(start, "missing right operand for %s", fn.Description())
	}
	if literal {
		return queryir.NewComparison(left, fn, DecodeLiteral(right)), nil
	}
	if IsNumericLiteral(right) {
		if err := checkNumericRange(right); err != nil {
			return nil, p.errorfAt(start, "%s", err)
		}
		return queryir.NewComparison(left, fn, right), nil
	}
	name := p.resolveIdentifier(right)
	if p.isKnownColumn(name) {
		return queryir.NewColumnComparison(left, fn, name), nil
	}
	return queryir.NewComparison(left, fn, right), nil
}

func (p *conditionParser) parseInList(left string) (*queryir.Condition, error) {
	p.skipSpace()
	if p.peek() != '(' {
		return nil, p.errorf("IN requires a parenthesized list")
	}
	end, err := FindMatchingClose(p.text, p.pos)
	if err != nil {
		return nil, p.wrapLexError(err)
	}
	inner := p.text[p.pos+1 : end]
	if strings.TrimSpace(inner) == "" {
		return nil, p.errorf("IN list is empty")
	}

	var elements []string
	for _, raw := range SplitTopLevel(inner, ',') {
		element := strings.TrimSpace(raw)
		if element == "" {
			return nil, p.errorf("empty element in IN list (%s)", strings.TrimSpace(inner))
		}
		elements = append(elements, DecodeLiteral(element))
	}
	p.pos = end + 1
	return queryir.NewInList(left, elements), nil
}

// parseParameter reads PARAMETER('name') op 'value'. The cursor sits on the
// opening parenthesis.
func (p *conditionParser) parseParameter(start int) (*queryir.Condition, error) {
	end, err := FindMatchingClose(p.text, p.pos)
	if err != nil {
		return nil, p.wrapLexError(err)
	}
	name := DecodeLiteral(strings.TrimSpace(p.text[p.pos+1 : end]))
	if strings.TrimSpace(name) == "" {
		return nil, p.errorfAt(start, "A parameter name cannot be empty")
	}
	p.pos = end + 1

	p.skipSpace()
	op := p.scanSymbol()
	if fn, ok := queryir.ParseFunction(op); !ok || !fn.IsComparison() {
		return nil, p.errorfAt(start, "parameter %q must be followed by a comparison operator", name)
	}

	p.skipSpace()
	raw, literal, err := p.scanOperand()
	if err != nil {
		return nil, err
	}
	value := raw
	if literal {
		value = DecodeLiteral(raw)
	}
	if value == "" {
		return nil, p.errorfAt(start, "A parameter value cannot be empty")
	}
	return queryir.NewParameter(name, value), nil
}

// scanOperand reads one operand: a quoted literal, a quoted or bare
// identifier, or a call such as sum("x"). literal is set for single-quoted
// text.
func (p *conditionParser) scanOperand() (string, bool, error) {
	start := p.pos
	if p.peek() == '\'' {
		end := skipQuoted(p.text, p.pos)
		if end < 0 {
			return "", false, p.errorf("unterminated literal")
		}
		p.pos = end + 1
		return p.text[start:p.pos], true, nil
	}

	for !p.atEnd() {
		c := p.peek()
		switch {
		case isSpace(c), strings.IndexByte("=<>!,)", c) >= 0:
			return p.text[start:p.pos], false, nil
		case c == '"':
			end := skipQuoted(p.text, p.pos)
			if end < 0 {
				return "", false, p.errorf("unterminated identifier")
			}
			p.pos = end + 1
		case c == '(':
			if p.pos == start {
				return "", false, nil
			}
			end, err := FindMatchingClose(p.text, p.pos)
			if err != nil {
				return "", false, p.wrapLexError(err)
			}
			p.pos = end + 1
		default:
			p.pos++
		}
	}
	return p.text[start:p.pos], false, nil
}

// scanSymbol reads a run of operator characters.
func (p *conditionParser) scanSymbol() string {
	start := p.pos
	for !p.atEnd() && strings.IndexByte("=<>!", p.peek()) >= 0 {
		p.pos++
	}
	return p.text[start:p.pos]
}

// resolveLeft maps a left operand to the name stored in the leaf.
func (p *conditionParser) resolveLeft(operand string, literal bool) string {
	if literal {
		return DecodeLiteral(operand)
	}
	return p.resolveIdentifier(operand)
}

// resolveIdentifier strips a matching service qualifier, then the quoting.
func (p *conditionParser) resolveIdentifier(name string) string {
	return StripIdentifierQuoting(StripTableQualifier(name, p.table))
}

func (p *conditionParser) isKnownColumn(name string) bool {
	if p.schema != nil {
		if _, ok := p.schema.Column(name); ok {
			return true
		}
	}
	_, ok := p.fields.FindByAlias(name)
	return ok
}

func (p *conditionParser) atEnd() bool {
	return p.pos >= len(p.text)
}

func (p *conditionParser) peek() byte {
	if p.atEnd() {
		return 0
	}
	return p.text[p.pos]
}

func (p *conditionParser) rest() string {
	return p.text[p.pos:]
}

func (p *conditionParser) skipSpace() {
	for !p.atEnd() && isSpace(p.peek()) {
		p.pos++
	}
}

func (p *conditionParser) peekKeyword(kw string) bool {
	return hasKeywordAt(p.text, p.pos, kw)
}

// acceptKeyword consumes kw if it is the next word.
func (p *conditionParser) acceptKeyword(kw string) bool {
	if !p.peekKeyword(kw) {
		return false
	}
	p.pos += len(kw)
	return true
}

// nextWord returns the upcoming whitespace-delimited word, for messages.
func (p *conditionParser) nextWord() string {
	rest := p.rest()
	if i := strings.IndexAny(rest, " \t\r\n"); i >= 0 {
		return rest[:i]
	}
	return rest
}

func (p *conditionParser) errorf(format string, args ...any) *ParseError {
	return p.errorfAt(p.pos, format, args...)
}

func (p *conditionParser) errorfAt(pos int, format string, args ...any) *ParseError {
	return newParseError(p.clause, p.base+pos, format, args...)
}

// wrapLexError rebases a lexer error onto the whole clause.
func (p *conditionParser) wrapLexError(err error) error {
	var pe *ParseError
	if errors.As(err, &pe) {
		return newParseError(p.clause, p.base+pe.Pos, "%s", pe.Message)
	}
	return err
}
