package queryir

import "github.com/roach88/dataservice/internal/ir"

// ToIR projects the condition onto ir values for canonical JSON.
//
// Leaves carry "left", "function" and, when present, "right" or
// "right_column". Groups carry "children". "join" and "negated" are only
// emitted when they differ from their zero values.
func (c *Condition) ToIR() ir.IRObject {
	obj := ir.IRObject{}
	if c.Join != JoinNone {
		obj["join"] = ir.IRString(c.Join.String())
	}
	if c.Negated {
		obj["negated"] = ir.IRBool(true)
	}
	switch n := c.Node.(type) {
	case *Leaf:
		obj["left"] = ir.IRString(n.Left)
		obj["function"] = ir.IRString(n.Function.Description())
		if n.HasRight {
			obj["right"] = ir.IRString(n.Right)
		}
		if n.RightColumn != "" {
			obj["right_column"] = ir.IRString(n.RightColumn)
		}
	case *Group:
		children := make(ir.IRArray, len(n.Children))
		for i, child := range n.Children {
			children[i] = child.ToIR()
		}
		obj["children"] = children
	}
	return obj
}

// ToIR projects the field onto ir values for canonical JSON.
func (f *Field) ToIR() ir.IRObject {
	obj := ir.IRObject{
		"clause": ir.IRString(f.Clause),
		"name":   ir.IRString(f.Name()),
	}
	if f.Alias != "" {
		obj["alias"] = ir.IRString(f.Alias)
	}
	if f.Aggregation != AggNone {
		obj["aggregation"] = ir.IRString(f.Aggregation.String())
	}
	if f.CountStar {
		obj["count_star"] = ir.IRBool(true)
	}
	if f.CountDistinct {
		obj["count_distinct"] = ir.IRBool(true)
	}
	if f.Resolved != nil {
		obj["type"] = ir.IRString(f.Resolved.Type)
		if f.Resolved.Value != nil {
			obj["value"] = f.Resolved.Value
		} else {
			obj["index"] = ir.IRInt(f.Resolved.Index)
		}
	}
	if c := f.Conditional; c != nil {
		cond := ir.IRObject{"guard_clause": ir.IRString(c.GuardClause)}
		if c.Guard != nil {
			cond["guard"] = c.Guard.ToIR()
		}
		if c.WhenTrue != nil {
			cond["when_true"] = c.WhenTrue.ToIR()
		}
		if c.WhenFalse != nil {
			cond["when_false"] = c.WhenFalse.ToIR()
		}
		obj["conditional"] = cond
	}
	return obj
}

// ToIR projects the list onto an ir array, preserving order.
func (fs Fields) ToIR() ir.IRArray {
	arr := make(ir.IRArray, len(fs))
	for i, f := range fs {
		arr[i] = f.ToIR()
	}
	return arr
}
