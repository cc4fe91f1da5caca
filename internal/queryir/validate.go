package queryir

import (
	"fmt"
	"regexp"
)

// ValidationResult contains the structural analysis of a condition tree or
// a SELECT list.
type ValidationResult struct {
	// Valid is true when no warnings were raised.
	Valid bool

	// Warnings lists every broken invariant, in traversal order.
	Warnings []string
}

// Validate checks that a condition tree honours the shape invariants:
//  1. Every node is either a leaf or a group, never neither
//  2. Groups have at least one child
//  3. The first child of a group carries JoinNone, later children AND or OR
//  4. Leaves carry the operands their function requires
//  5. REGEXP patterns compile
//
// Parsers only produce valid trees; Validate exists for trees built by hand
// and for trees decoded from external input.
//
// Validate is a pure function with no side effects.
func Validate(cond *Condition) ValidationResult {
	v := &validator{
		warnings: []string{},
	}
	if cond != nil && cond.Join != JoinNone {
		v.addWarning("root condition carries join %s", cond.Join)
	}
	v.validateCondition(cond, "root")

	return ValidationResult{
		Valid:    len(v.warnings) == 0,
		Warnings: v.warnings,
	}
}

// ValidateFields checks a SELECT list for duplicate output names and
// malformed conditional fields.
func ValidateFields(fields Fields) ValidationResult {
	v := &validator{
		warnings: []string{},
	}
	seen := make(map[string]int, len(fields))
	for i, f := range fields {
		if f == nil {
			v.addWarning("field %d is nil", i)
			continue
		}
		name := f.OutputName()
		if prev, ok := seen[name]; ok {
			v.addWarning("field %d duplicates output name %q of field %d", i, name, prev)
		} else {
			seen[name] = i
		}
		if c := f.Conditional; c != nil {
			if c.Guard == nil {
				v.addWarning("field %d: conditional has no guard", i)
			} else {
				v.validateCondition(c.Guard, fmt.Sprintf("field %d guard", i))
			}
			if c.WhenTrue == nil {
				v.addWarning("field %d: conditional has no true branch", i)
			}
		}
		if f.CountStar && f.Aggregation != AggCount {
			v.addWarning("field %d: count-star set on %s", i, f.Aggregation)
		}
	}

	return ValidationResult{
		Valid:    len(v.warnings) == 0,
		Warnings: v.warnings,
	}
}

// validator accumulates warnings during traversal.
type validator struct {
	warnings []string
}

// addWarning appends a warning message.
func (v *validator) addWarning(format string, args ...any) {
	v.warnings = append(v.warnings, fmt.Sprintf(format, args...))
}

func (v *validator) validateCondition(c *Condition, path string) {
	if c == nil {
		v.addWarning("%s: nil condition", path)
		return
	}

	switch n := c.Node.(type) {
	case *Leaf:
		v.validateLeaf(n, path)
	case *Group:
		v.validateGroup(n, path)
	case nil:
		v.addWarning("%s: condition has neither operands nor children", path)
	default:
		v.addWarning("%s: unknown node type %T", path, n)
	}
}

func (v *validator) validateGroup(g *Group, path string) {
	if len(g.Children) == 0 {
		v.addWarning("%s: group has no children", path)
		return
	}
	for i, child := range g.Children {
		childPath := fmt.Sprintf("%s.%d", path, i)
		if child == nil {
			v.addWarning("%s: nil condition", childPath)
			continue
		}
		switch {
		case i == 0 && child.Join != JoinNone:
			v.addWarning("%s: first child carries join %s", childPath, child.Join)
		case i > 0 && child.Join != JoinAnd && child.Join != JoinOr:
			v.addWarning("%s: child carries no join", childPath)
		}
		v.validateCondition(child, childPath)
	}
}

func (v *validator) validateLeaf(l *Leaf, path string) {
	if l.Left == "" {
		v.addWarning("%s: %s has an empty left operand", path, l.Function)
	}

	switch {
	case l.Function == FuncIsNull || l.Function == FuncIsNotNull:
		if l.HasRight || l.RightColumn != "" {
			v.addWarning("%s: %s takes no right operand", path, l.Function)
		}
	case l.Function == FuncInList:
		if !l.HasRight || l.Right == "" {
			v.addWarning("%s: IN list is empty", path)
		}
	case l.Function == FuncTrue:
		if !l.HasRight || l.Right == "" {
			v.addWarning("%s: parameter %q has no value", path, l.Left)
		}
	case l.HasRight && l.RightColumn != "":
		v.addWarning("%s: %s has both a literal and a column on the right", path, l.Function)
	case !l.HasRight && l.RightColumn == "":
		v.addWarning("%s: %s has no right operand", path, l.Function)
	}

	if l.Function == FuncRegexp && l.HasRight {
		if _, err := regexp.Compile(l.Right); err != nil {
			v.addWarning("%s: REGEXP pattern %q does not compile: %v", path, l.Right, err)
		}
	}
}
