package queryir

import (
	"regexp"
	"strings"
)

var simpleIdentifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_.]*$`)

// String renders the condition as WHERE-clause text that re-parses to an
// equal tree.
func (c *Condition) String() string {
	if c == nil {
		return ""
	}
	var b strings.Builder
	writeCondition(&b, c)
	return b.String()
}

func writeCondition(b *strings.Builder, c *Condition) {
	switch n := c.Node.(type) {
	case *Leaf:
		if c.Negated {
			b.WriteString("NOT (")
			writeLeaf(b, n)
			b.WriteByte(')')
			return
		}
		writeLeaf(b, n)
	case *Group:
		if c.Negated {
			b.WriteString("NOT (")
			writeGroupBody(b, n)
			b.WriteByte(')')
			return
		}
		writeGroupBody(b, n)
	}
}

// writeGroupBody renders a one-child group as a parenthesized bracket and
// anything longer as its joined children.
func writeGroupBody(b *strings.Builder, g *Group) {
	if len(g.Children) == 1 {
		b.WriteByte('(')
		writeCondition(b, g.Children[0])
		b.WriteByte(')')
		return
	}
	for i, child := range g.Children {
		if i > 0 {
			b.WriteByte(' ')
			b.WriteString(child.Join.String())
			b.WriteByte(' ')
		}
		writeCondition(b, child)
	}
}

func writeLeaf(b *strings.Builder, l *Leaf) {
	switch l.Function {
	case FuncTrue:
		b.WriteString("PARAMETER(")
		b.WriteString(QuoteLiteral(l.Left))
		b.WriteString(") = ")
		b.WriteString(QuoteLiteral(l.Right))
		return
	case FuncIsNull, FuncIsNotNull:
		b.WriteString(QuoteIdentifier(l.Left))
		b.WriteByte(' ')
		b.WriteString(l.Function.Description())
		return
	}

	b.WriteString(QuoteIdentifier(l.Left))
	b.WriteByte(' ')
	b.WriteString(l.Function.Description())
	b.WriteByte(' ')

	switch {
	case l.Function == FuncInList:
		elements := DecodeInList(l.Right)
		b.WriteByte('(')
		for i, e := range elements {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(QuoteLiteral(e))
		}
		b.WriteByte(')')
	case l.RightColumn != "":
		b.WriteString(QuoteIdentifier(l.RightColumn))
	default:
		b.WriteString(QuoteLiteral(l.Right))
	}
}

// QuoteLiteral renders s as a single-quoted SQL literal, doubling embedded
// quotes.
func QuoteLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// QuoteIdentifier renders an operand name. Simple identifiers stay bare;
// names that already carry quoting or a call expression are emitted
// verbatim; anything else is double-quoted.
func QuoteIdentifier(name string) string {
	switch {
	case simpleIdentifier.MatchString(name):
		return name
	case strings.ContainsAny(name, `"(`):
		return name
	default:
		return `"` + name + `"`
	}
}
