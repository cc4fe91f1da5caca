package sqlparse

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/roach88/dataservice/internal/ir"
)

var (
	bareIdentifier   = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
	quotedIdentifier = regexp.MustCompile(`^"[^"]*"$`)
)

// FindMatchingClose returns the index of the bracket closing the one at
// open. Both "(" and "[" are accepted as openers. Single-quoted literals and
// double-quoted identifiers are opaque: brackets inside them are not
// counted, and a doubled quote does not end them.
func FindMatchingClose(text string, open int) (int, error) {
	if open < 0 || open >= len(text) {
		return -1, newParseError(text, open, "no opening bracket at offset %d", open)
	}
	opener := text[open]
	var closer byte
	switch opener {
	case '(':
		closer = ')'
	case '[':
		closer = ']'
	default:
		return -1, newParseError(text, open, "no opening bracket at offset %d", open)
	}

	depth := 0
	for i := open; i < len(text); i++ {
		switch c := text[i]; c {
		case '\'', '"':
			end := skipQuoted(text, i)
			if end < 0 {
				return -1, newParseError(text, i, "unterminated quote")
			}
			i = end
		case opener:
			depth++
		case closer:
			depth--
			if depth == 0 {
				return i, nil
			}
		}
	}
	return -1, newParseError(text, open, "unbalanced parentheses")
}

// skipQuoted returns the index of the quote closing the one at start, or -1.
// A doubled quote inside the run is an escaped quote.
func skipQuoted(text string, start int) int {
	q := text[start]
	for j := start + 1; j < len(text); j++ {
		if text[j] != q {
			continue
		}
		if j+1 < len(text) && text[j+1] == q {
			j++
			continue
		}
		return j
	}
	return -1
}

// SplitTopLevel splits text on sep, ignoring separators nested in brackets
// or inside quotes. Segments are returned untrimmed.
func SplitTopLevel(text string, sep byte) []string {
	var parts []string
	depth, start := 0, 0
	for i := 0; i < len(text); i++ {
		switch c := text[i]; {
		case c == '\'' || c == '"':
			end := skipQuoted(text, i)
			if end < 0 {
				i = len(text)
				continue
			}
			i = end
		case c == '(' || c == '[':
			depth++
		case c == ')' || c == ']':
			if depth > 0 {
				depth--
			}
		case c == sep && depth == 0:
			parts = append(parts, text[start:i])
			start = i + 1
		}
	}
	return append(parts, text[start:])
}

// span is a half-open byte range.
type span struct {
	start, end int
}

// topLevelSpans splits text on whitespace outside brackets and quotes.
func topLevelSpans(text string) []span {
	var spans []span
	depth, start := 0, -1
	for i := 0; i < len(text); i++ {
		c := text[i]
		if isSpace(c) && depth == 0 {
			if start >= 0 {
				spans = append(spans, span{start, i})
				start = -1
			}
			continue
		}
		if start < 0 {
			start = i
		}
		switch c {
		case '\'', '"':
			end := skipQuoted(text, i)
			if end < 0 {
				i = len(text) - 1
				continue
			}
			i = end
		case '(', '[':
			depth++
		case ')', ']':
			if depth > 0 {
				depth--
			}
		}
	}
	if start >= 0 {
		spans = append(spans, span{start, len(text)})
	}
	return spans
}

// TopLevelTokens splits text on whitespace, keeping bracketed groups and
// quoted runs whole.
func TopLevelTokens(text string) []string {
	spans := topLevelSpans(text)
	tokens := make([]string, len(spans))
	for i, s := range spans {
		tokens[i] = text[s.start:s.end]
	}
	return tokens
}

// IndexKeyword returns the offset of the first occurrence of the keyword kw
// that sits outside brackets and quotes and is bounded by non-word
// characters, or -1. Matching is case-insensitive.
func IndexKeyword(text, kw string) int {
	depth := 0
	for i := 0; i < len(text); i++ {
		switch c := text[i]; c {
		case '\'', '"':
			end := skipQuoted(text, i)
			if end < 0 {
				return -1
			}
			i = end
			continue
		case '(', '[':
			depth++
			continue
		case ')', ']':
			if depth > 0 {
				depth--
			}
			continue
		}
		if depth == 0 && hasKeywordAt(text, i, kw) {
			return i
		}
	}
	return -1
}

// hasKeywordAt reports whether kw starts at text[i] as a whole word.
func hasKeywordAt(text string, i int, kw string) bool {
	if i+len(kw) > len(text) || !strings.EqualFold(text[i:i+len(kw)], kw) {
		return false
	}
	if i > 0 && isWordByte(text[i-1]) {
		return false
	}
	return i+len(kw) == len(text) || !isWordByte(text[i+len(kw)])
}

// DecodeLiteral strips the quotes of a single-quoted literal and collapses
// every doubled quote. Text that is not one quoted literal is returned
// unchanged.
func DecodeLiteral(text string) string {
	t := strings.TrimSpace(text)
	if !IsQuotedLiteral(t) {
		return text
	}
	return strings.ReplaceAll(t[1:len(t)-1], "''", "'")
}

// IsQuotedLiteral reports whether text is exactly one single-quoted literal.
func IsQuotedLiteral(text string) bool {
	if len(text) < 2 || text[0] != '\'' {
		return false
	}
	return skipQuoted(text, 0) == len(text)-1
}

// IsNumericLiteral reports whether text is a decimal number.
func IsNumericLiteral(text string) bool {
	if text == "" {
		return false
	}
	switch c := text[0]; {
	case c >= '0' && c <= '9', c == '-', c == '+', c == '.':
	default:
		return false
	}
	_, err := decimal.NewFromString(text)
	return err == nil
}

// checkNumericRange rejects a numeric literal whose exponent is outside
// ±ir.MaxDecimalExponent.
func checkNumericRange(text string) error {
	if _, err := ir.ParseDecimal(text); err != nil {
		return fmt.Errorf("numeric literal %s is out of range", text)
	}
	return nil
}

// StripIdentifierQuoting removes the double quotes around a single quoted
// identifier. Anything else, including a quoted qualified name such as
// "A"."B", is returned unchanged.
func StripIdentifierQuoting(text string) string {
	if quotedIdentifier.MatchString(text) {
		return text[1 : len(text)-1]
	}
	return text
}

// StripTableQualifier removes a leading "table." or "\"table\"." from
// identifier. The table name is matched case-insensitively.
func StripTableQualifier(identifier, table string) string {
	if table == "" {
		return identifier
	}
	for _, prefix := range []string{table + ".", `"` + table + `".`} {
		if len(identifier) > len(prefix) && strings.EqualFold(identifier[:len(prefix)], prefix) {
			return identifier[len(prefix):]
		}
	}
	return identifier
}

// isIdentifierToken reports whether token names a column: bare, quoted or
// qualified, but not a call, literal or number.
func isIdentifierToken(token string) bool {
	if token == "" || IsQuotedLiteral(token) || IsNumericLiteral(token) {
		return false
	}
	if strings.ContainsAny(token, "()'") {
		return false
	}
	for _, part := range splitQualified(token) {
		if !bareIdentifier.MatchString(part) && !quotedIdentifier.MatchString(part) {
			return false
		}
	}
	return true
}

// splitQualified splits a dotted name on dots outside double quotes.
func splitQualified(name string) []string {
	var parts []string
	start := 0
	for i := 0; i < len(name); i++ {
		switch name[i] {
		case '"':
			end := skipQuoted(name, i)
			if end < 0 {
				return append(parts, name[start:])
			}
			i = end
		case '.':
			parts = append(parts, name[start:i])
			start = i + 1
		}
	}
	return append(parts, name[start:])
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}

func isWordByte(c byte) bool {
	return c == '_' || c >= '0' && c <= '9' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z'
}
