package queryir

import "strings"

// Join is the logical operator relating a condition to its previous sibling.
type Join int

const (
	JoinNone Join = iota // first child of a group, or a root
	JoinAnd
	JoinOr
)

// String returns "", "AND" or "OR".
func (j Join) String() string {
	switch j {
	case JoinAnd:
		return "AND"
	case JoinOr:
		return "OR"
	default:
		return ""
	}
}

// Function is the predicate applied by a leaf condition.
type Function int

const (
	FuncEqual Function = iota
	FuncNotEqual
	FuncLarger
	FuncLargerEqual
	FuncSmaller
	FuncSmallerEqual
	FuncLike
	FuncRegexp
	FuncInList
	FuncIsNull
	FuncIsNotNull
	FuncTrue // parameter binding: Left is the name, Right the value
)

var functionDescriptions = [...]string{
	FuncEqual:        "=",
	FuncNotEqual:     "<>",
	FuncLarger:       ">",
	FuncLargerEqual:  ">=",
	FuncSmaller:      "<",
	FuncSmallerEqual: "<=",
	FuncLike:         "LIKE",
	FuncRegexp:       "REGEXP",
	FuncInList:       "IN",
	FuncIsNull:       "IS NULL",
	FuncIsNotNull:    "IS NOT NULL",
	FuncTrue:         "TRUE",
}

// Description returns the canonical SQL spelling of the function.
func (f Function) Description() string {
	if f < 0 || int(f) >= len(functionDescriptions) {
		return "?"
	}
	return functionDescriptions[f]
}

// String implements fmt.Stringer.
func (f Function) String() string {
	return f.Description()
}

// IsComparison reports whether f is one of the six binary comparisons.
func (f Function) IsComparison() bool {
	return f >= FuncEqual && f <= FuncSmallerEqual
}

// functionSpellings maps every accepted operator spelling to its function.
var functionSpellings = map[string]Function{
	"=":           FuncEqual,
	"<>":          FuncNotEqual,
	"!=":          FuncNotEqual,
	">":           FuncLarger,
	">=":          FuncLargerEqual,
	"=>":          FuncLargerEqual,
	"<":           FuncSmaller,
	"<=":          FuncSmallerEqual,
	"=<":          FuncSmallerEqual,
	"LIKE":        FuncLike,
	"REGEX":       FuncRegexp,
	"REGEXP":      FuncRegexp,
	"IN":          FuncInList,
	"IS NULL":     FuncIsNull,
	"IS NOT NULL": FuncIsNotNull,
	"TRUE":        FuncTrue,
}

// ParseFunction maps an operator spelling (case-insensitive, inner
// whitespace collapsed) to its Function.
func ParseFunction(spelling string) (Function, bool) {
	key := strings.ToUpper(strings.Join(strings.Fields(spelling), " "))
	f, ok := functionSpellings[key]
	return f, ok
}

// Node is the payload of a Condition.
//
// This is a sealed interface - only *Leaf and *Group implement it.
type Node interface {
	conditionNode()
}

// Leaf is an atomic predicate.
//
// Right holds a literal operand (already decoded), and is only meaningful
// when HasRight is set. RightColumn holds a column reference when the
// right-hand side is an identifier rather than a literal. IS NULL and
// IS NOT NULL have neither.
type Leaf struct {
	Left        string
	Function    Function
	Right       string
	HasRight    bool
	RightColumn string
}

func (*Leaf) conditionNode() {}

// Group is an ordered list of child conditions.
type Group struct {
	Children []*Condition
}

func (*Group) conditionNode() {}

// Condition is one node of a WHERE-clause tree.
type Condition struct {
	Join    Join
	Negated bool
	Node    Node
}

// NewComparison builds a leaf comparing a column with a literal.
func NewComparison(left string, fn Function, right string) *Condition {
	return &Condition{Node: &Leaf{Left: left, Function: fn, Right: right, HasRight: true}}
}

// NewColumnComparison builds a leaf comparing two columns.
func NewColumnComparison(left string, fn Function, rightColumn string) *Condition {
	return &Condition{Node: &Leaf{Left: left, Function: fn, RightColumn: rightColumn}}
}

// NewNullTest builds an IS NULL or IS NOT NULL leaf.
func NewNullTest(left string, notNull bool) *Condition {
	fn := FuncIsNull
	if notNull {
		fn = FuncIsNotNull
	}
	return &Condition{Node: &Leaf{Left: left, Function: fn}}
}

// NewInList builds an IN_LIST leaf from decoded elements.
func NewInList(left string, elements []string) *Condition {
	return NewComparison(left, FuncInList, EncodeInList(elements))
}

// NewParameter builds the TRUE leaf that binds a query parameter.
func NewParameter(name, value string) *Condition {
	return NewComparison(name, FuncTrue, value)
}

// Fold combines conditions joined by the same operator into one node.
//
// A single condition is returned as is; a single comparison never gains a
// wrapper. Two or more become one flat Group whose first child carries
// JoinNone and whose later children carry join.
func Fold(join Join, items []*Condition) *Condition {
	if len(items) == 1 {
		return items[0]
	}
	children := make([]*Condition, len(items))
	for i, item := range items {
		if i == 0 {
			item.Join = JoinNone
		} else {
			item.Join = join
		}
		children[i] = item
	}
	return &Condition{Node: &Group{Children: children}}
}

// Bracket wraps a composite condition in a one-child group, the shape a
// parenthesized composite takes inside its parent.
func Bracket(inner *Condition) *Condition {
	inner.Join = JoinNone
	return &Condition{Node: &Group{Children: []*Condition{inner}}}
}

// IsAtomic reports whether the condition is a leaf.
func (c *Condition) IsAtomic() bool {
	_, ok := c.Node.(*Leaf)
	return ok
}

// IsBracket reports whether the condition is a non-negated one-child group.
func (c *Condition) IsBracket() bool {
	g, ok := c.Node.(*Group)
	return ok && !c.Negated && len(g.Children) == 1
}

// AsLeaf returns the leaf payload, if any.
func (c *Condition) AsLeaf() (*Leaf, bool) {
	l, ok := c.Node.(*Leaf)
	return l, ok
}

// AsGroup returns the group payload, if any.
func (c *Condition) AsGroup() (*Group, bool) {
	g, ok := c.Node.(*Group)
	return g, ok
}

// Children returns the child conditions, or nil for a leaf.
func (c *Condition) Children() []*Condition {
	if g, ok := c.Node.(*Group); ok {
		return g.Children
	}
	return nil
}

// Child returns the i-th child. It panics when i is out of range or the
// condition is a leaf.
func (c *Condition) Child(i int) *Condition {
	return c.Children()[i]
}

// LeftOperand returns the leaf's left operand, or "" for a group.
func (c *Condition) LeftOperand() string {
	if l, ok := c.Node.(*Leaf); ok {
		return l.Left
	}
	return ""
}

// FunctionDescription returns the leaf's operator spelling, or "" for a group.
func (c *Condition) FunctionDescription() string {
	if l, ok := c.Node.(*Leaf); ok {
		return l.Function.Description()
	}
	return ""
}

// RightExact returns the leaf's literal right operand.
func (c *Condition) RightExact() (string, bool) {
	if l, ok := c.Node.(*Leaf); ok && l.HasRight {
		return l.Right, true
	}
	return "", false
}

// Walk visits the condition and its descendants depth-first, parents before
// children. Returning false from fn skips the node's children.
func (c *Condition) Walk(fn func(*Condition) bool) {
	if c == nil || !fn(c) {
		return
	}
	for _, child := range c.Children() {
		child.Walk(fn)
	}
}

// EncodeInList joins IN-list elements with ";", escaping a literal ";"
// inside an element as "\;".
func EncodeInList(elements []string) string {
	escaped := make([]string, len(elements))
	for i, e := range elements {
		escaped[i] = strings.ReplaceAll(e, ";", `\;`)
	}
	return strings.Join(escaped, ";")
}

// DecodeInList splits an encoded IN list on unescaped ";" and turns every
// "\;" back into ";".
func DecodeInList(encoded string) []string {
	var elements []string
	var cur strings.Builder
	for i := 0; i < len(encoded); i++ {
		switch {
		case encoded[i] == '\\' && i+1 < len(encoded) && encoded[i+1] == ';':
			cur.WriteByte(';')
			i++
		case encoded[i] == ';':
			elements = append(elements, cur.String())
			cur.Reset()
		default:
			cur.WriteByte(encoded[i])
		}
	}
	return append(elements, cur.String())
}
