package sqlparse

import (
	"strings"
)

// Statement is a SELECT statement split into its clauses. The clause texts
// are not parsed yet.
type Statement struct {
	Fields       string
	Service      string
	ServiceAlias string
	Where        string
}

// Qualifier returns the name that qualifies columns in the statement's
// clauses: the alias when one is given, the service name otherwise.
func (s *Statement) Qualifier() string {
	if s.ServiceAlias != "" {
		return s.ServiceAlias
	}
	return s.Service
}

// unsupportedClauses are rejected where they start a clause. GROUP and
// ORDER count only before BY; the others only right after a complete
// operand. Elsewhere the words are column names.
var unsupportedClauses = []struct {
	keyword string
	name    string
	needsBy bool
}{
	{"JOIN", "JOIN", false},
	{"GROUP", "GROUP BY", true},
	{"HAVING", "HAVING", false},
	{"ORDER", "ORDER BY", true},
	{"LIMIT", "LIMIT", false},
	{"UNION", "UNION", false},
}

// findUnsupportedClause returns the name and offset of the first clause
// keyword in text that sits in clause position.
func findUnsupportedClause(text string) (string, int, bool) {
	spans := topLevelSpans(text)
	token := func(i int) string { return text[spans[i].start:spans[i].end] }

	for i := range spans {
		for _, u := range unsupportedClauses {
			if !strings.EqualFold(token(i), u.keyword) {
				continue
			}
			if u.needsBy {
				if i+1 < len(spans) && strings.EqualFold(token(i+1), "BY") {
					return u.name, spans[i].start, true
				}
				continue
			}
			if i > 0 && endsOperand(token(i-1)) {
				return u.name, spans[i].start, true
			}
		}
	}
	return "", 0, false
}

// endsOperand reports whether token can close an operand, so that the next
// token starts a new clause rather than continuing an expression.
func endsOperand(token string) bool {
	switch strings.ToUpper(token) {
	case "AND", "OR", "NOT", "IS", "IN", "LIKE", "REGEXP", "AS", "FROM", "WHERE":
		return false
	}
	return !strings.ContainsRune("=<>!,", rune(token[len(token)-1]))
}

// ParseSelect splits SELECT fields FROM service [[AS] alias] [WHERE cond].
func ParseSelect(sql string) (*Statement, error) {
	text := strings.TrimSpace(sql)
	text = strings.TrimSpace(strings.TrimSuffix(text, ";"))
	if text == "" {
		return nil, newParseError(sql, 0, "empty statement")
	}
	if IndexKeyword(text, "SELECT") != 0 {
		return nil, newParseError(text, 0, "statement must start with SELECT")
	}
	body := text[len("SELECT"):]
	if i := IndexKeyword(body, "DISTINCT"); i >= 0 && strings.TrimSpace(body[:i]) == "" {
		return nil, newParseError(text, len("SELECT")+i, "SELECT DISTINCT is not supported")
	}

	from := IndexKeyword(body, "FROM")
	if from < 0 {
		return nil, newParseError(text, len(text), "missing FROM clause")
	}
	if name, i, ok := findUnsupportedClause(body[from:]); ok {
		return nil, newParseError(text, len("SELECT")+from+i, "%s is not supported", name)
	}
	stmt := &Statement{Fields: strings.TrimSpace(body[:from])}
	if stmt.Fields == "" {
		return nil, newParseError(text, len("SELECT"), "missing field list")
	}

	rest := body[from+len("FROM"):]
	source := rest
	if where := IndexKeyword(rest, "WHERE"); where >= 0 {
		source = rest[:where]
		stmt.Where = strings.TrimSpace(rest[where+len("WHERE"):])
		if stmt.Where == "" {
			return nil, newParseError(text, len(text), "empty WHERE clause")
		}
	}

	tokens := TopLevelTokens(source)
	switch {
	case len(tokens) == 1:
	case len(tokens) == 2:
		stmt.ServiceAlias = StripIdentifierQuoting(tokens[1])
	case len(tokens) == 3 && strings.EqualFold(tokens[1], "AS"):
		stmt.ServiceAlias = StripIdentifierQuoting(tokens[2])
	case len(tokens) == 0:
		return nil, newParseError(text, len("SELECT")+from, "missing service name after FROM")
	default:
		return nil, newParseError(text, len("SELECT")+from, "malformed FROM clause %q", strings.TrimSpace(source))
	}
	stmt.Service = StripIdentifierQuoting(tokens[0])
	return stmt, nil
}
