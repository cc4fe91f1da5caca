package harness

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/roach88/dataservice/internal/engine"
	"github.com/roach88/dataservice/internal/ir"
)

// Assertion types.
const (
	AssertRowCount     = "row_count"
	AssertContainsRow  = "contains_row"
	AssertPathEquals   = "path_equals"
	AssertParameter    = "parameter"
	AssertHistoryCount = "history_count"
)

// Assertion is a check evaluated after every step has run.
//
//   - row_count: step produced exactly Count rows
//   - contains_row: some row of step matches Row on the named columns
//   - path_equals: the value at Path in the step output equals Value
//   - parameter: the step's WHERE clause bound parameter Name to Value
//   - history_count: the query log holds Count entries for Service
type Assertion struct {
	Type    string         `yaml:"type"`
	Step    int            `yaml:"step,omitempty"`
	Count   int            `yaml:"count,omitempty"`
	Row     map[string]any `yaml:"row,omitempty"`
	Path    string         `yaml:"path,omitempty"`
	Name    string         `yaml:"name,omitempty"`
	Value   any            `yaml:"value,omitempty"`
	Service string         `yaml:"service,omitempty"`
}

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string // Assertion type for categorization
	Expected string // Human-readable expected outcome
	Actual   string // Human-readable actual outcome
	Input    string // Step input, empty for store-level assertions
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)
	if e.Input != "" {
		fmt.Fprintf(&buf, "  Step: %s\n", e.Input)
	}
	return buf.String()
}

// AssertionContext provides context for evaluating assertions.
type AssertionContext struct {
	Engine *engine.Engine
	Ctx    context.Context
}

// EvaluateAssertions evaluates all assertions against the result.
// Returns a slice of error messages for failed assertions.
// The actx parameter provides engine access for history_count assertions.
func EvaluateAssertions(result *Result, assertions []Assertion, actx *AssertionContext) []string {
	var errors []string

	for i, assertion := range assertions {
		var err error

		switch assertion.Type {
		case AssertRowCount:
			err = assertRowCount(result, assertion)
		case AssertContainsRow:
			err = assertContainsRow(result, assertion)
		case AssertPathEquals:
			err = assertPathEquals(result, assertion)
		case AssertParameter:
			err = assertParameter(result, assertion)
		case AssertHistoryCount:
			if actx == nil || actx.Engine == nil {
				err = fmt.Errorf("assertion[%d]: history_count requires an engine", i)
			} else {
				err = assertHistoryCount(actx.Ctx, actx.Engine, assertion)
			}
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
		}

		if err != nil {
			errors = append(errors, err.Error())
		}
	}

	return errors
}

// stepOutput fetches the output an assertion refers to. A failed step
// fails every assertion on it.
func stepOutput(result *Result, a Assertion) (StepOutput, error) {
	out, ok := result.Output(a.Step)
	if !ok {
		return StepOutput{}, &AssertionError{
			Type:     a.Type,
			Expected: fmt.Sprintf("output for step %d", a.Step),
			Actual:   fmt.Sprintf("%d steps ran", len(result.Outputs)),
		}
	}
	if out.Error != "" {
		return out, &AssertionError{
			Type:     a.Type,
			Expected: "step to succeed",
			Actual:   out.Error,
			Input:    out.Input,
		}
	}
	return out, nil
}

// resultRows returns the step's rows keyed by column name.
func resultRows(out StepOutput) []map[string]ir.IRValue {
	columns, _ := out.Output["columns"].(ir.IRArray)
	rows, _ := out.Output["rows"].(ir.IRArray)

	keyed := make([]map[string]ir.IRValue, 0, len(rows))
	for _, r := range rows {
		row, _ := r.(ir.IRArray)
		m := make(map[string]ir.IRValue, len(columns))
		for i, c := range columns {
			name, _ := c.(ir.IRString)
			if i < len(row) {
				m[string(name)] = row[i]
			}
		}
		keyed = append(keyed, m)
	}
	return keyed
}

func assertRowCount(result *Result, a Assertion) error {
	out, err := stepOutput(result, a)
	if err != nil {
		return err
	}
	rows, ok := out.Output["rows"].(ir.IRArray)
	if !ok {
		return &AssertionError{
			Type:     AssertRowCount,
			Expected: fmt.Sprintf("%d rows", a.Count),
			Actual:   "step produced no rows",
			Input:    out.Input,
		}
	}
	if len(rows) != a.Count {
		return &AssertionError{
			Type:     AssertRowCount,
			Expected: fmt.Sprintf("%d rows", a.Count),
			Actual:   fmt.Sprintf("%d rows", len(rows)),
			Input:    out.Input,
		}
	}
	return nil
}

// assertContainsRow uses subset semantics: columns not named in the
// assertion are ignored.
func assertContainsRow(result *Result, a Assertion) error {
	out, err := stepOutput(result, a)
	if err != nil {
		return err
	}

	want := make(map[string]ir.IRValue, len(a.Row))
	for k, v := range a.Row {
		irVal, err := ir.FromGo(v)
		if err != nil {
			return fmt.Errorf("contains_row: column %q: %w", k, err)
		}
		want[k] = irVal
	}

	rows := resultRows(out)
	for _, row := range rows {
		if rowMatches(row, want) {
			return nil
		}
	}
	return &AssertionError{
		Type:     AssertContainsRow,
		Expected: fmt.Sprintf("a row matching %s", render(ir.IRObject(want))),
		Actual:   fmt.Sprintf("no match among %d rows", len(rows)),
		Input:    out.Input,
	}
}

func rowMatches(row, want map[string]ir.IRValue) bool {
	for k, v := range want {
		got, exists := row[k]
		if !exists || !valuesMatch(v, got) {
			return false
		}
	}
	return true
}

func assertPathEquals(result *Result, a Assertion) error {
	out, err := stepOutput(result, a)
	if err != nil {
		return err
	}
	want, err := ir.FromGo(a.Value)
	if err != nil {
		return fmt.Errorf("path_equals: %w", err)
	}

	got, err := Lookup(out.Output, a.Path)
	if err != nil {
		return &AssertionError{
			Type:     AssertPathEquals,
			Expected: fmt.Sprintf("%s = %s", a.Path, render(want)),
			Actual:   err.Error(),
			Input:    out.Input,
		}
	}
	if !valuesMatch(want, got) {
		return &AssertionError{
			Type:     AssertPathEquals,
			Expected: fmt.Sprintf("%s = %s", a.Path, render(want)),
			Actual:   fmt.Sprintf("%s = %s", a.Path, render(got)),
			Input:    out.Input,
		}
	}
	return nil
}

func assertParameter(result *Result, a Assertion) error {
	out, err := stepOutput(result, a)
	if err != nil {
		return err
	}
	params, _ := out.Output["parameters"].(ir.IRObject)
	got, ok := params[a.Name]
	want := ir.IRString(fmt.Sprint(a.Value))
	if !ok {
		return &AssertionError{
			Type:     AssertParameter,
			Expected: fmt.Sprintf("parameter %q = %q", a.Name, string(want)),
			Actual:   "parameter not bound",
			Input:    out.Input,
		}
	}
	if !valuesMatch(want, got) {
		return &AssertionError{
			Type:     AssertParameter,
			Expected: fmt.Sprintf("parameter %q = %q", a.Name, string(want)),
			Actual:   fmt.Sprintf("parameter %q = %s", a.Name, render(got)),
			Input:    out.Input,
		}
	}
	return nil
}

func assertHistoryCount(ctx context.Context, eng *engine.Engine, a Assertion) error {
	records, err := eng.History(ctx, a.Service)
	if err != nil {
		return fmt.Errorf("history_count: %w", err)
	}
	if len(records) != a.Count {
		return &AssertionError{
			Type:     AssertHistoryCount,
			Expected: fmt.Sprintf("%d logged queries for %s", a.Count, a.Service),
			Actual:   fmt.Sprintf("%d logged queries", len(records)),
		}
	}
	return nil
}

// Lookup walks a dot-separated path through objects and arrays. Numeric
// segments index arrays.
//
//	Lookup(tree, "condition.children.1.function")
func Lookup(v ir.IRValue, path string) (ir.IRValue, error) {
	cur := v
	walked := ""
	for _, seg := range strings.Split(path, ".") {
		switch node := cur.(type) {
		case ir.IRObject:
			next, ok := node[seg]
			if !ok {
				return nil, fmt.Errorf("no key %q at %q", seg, walked)
			}
			cur = next
		case ir.IRArray:
			i, err := strconv.Atoi(seg)
			if err != nil {
				return nil, fmt.Errorf("non-numeric index %q at %q", seg, walked)
			}
			if i < 0 || i >= len(node) {
				return nil, fmt.Errorf("index %d out of range at %q (len %d)", i, walked, len(node))
			}
			cur = node[i]
		default:
			return nil, fmt.Errorf("cannot descend into %s at %q", render(cur), walked)
		}
		if walked == "" {
			walked = seg
		} else {
			walked += "." + seg
		}
	}
	return cur, nil
}

// valuesMatch is ir.Equal except that integers and decimals compare by
// value: a number column hands back 800 as a decimal while YAML decodes
// it as an integer.
func valuesMatch(expected, actual ir.IRValue) bool {
	if expected == nil || actual == nil {
		return expected == nil && actual == nil
	}
	if e, ok := asDecimal(expected); ok {
		if a, ok := asDecimal(actual); ok {
			return e.Equal(a.Decimal)
		}
		return false
	}
	switch exp := expected.(type) {
	case ir.IRArray:
		act, ok := actual.(ir.IRArray)
		if !ok || len(exp) != len(act) {
			return false
		}
		for i := range exp {
			if !valuesMatch(exp[i], act[i]) {
				return false
			}
		}
		return true
	case ir.IRObject:
		act, ok := actual.(ir.IRObject)
		if !ok || len(exp) != len(act) {
			return false
		}
		for k, v := range exp {
			other, exists := act[k]
			if !exists || !valuesMatch(v, other) {
				return false
			}
		}
		return true
	}
	return ir.Equal(expected, actual)
}

func asDecimal(v ir.IRValue) (ir.IRDecimal, bool) {
	switch n := v.(type) {
	case ir.IRDecimal:
		return n, true
	case ir.IRInt:
		return ir.MustIRDecimal(strconv.FormatInt(int64(n), 10)), true
	}
	return ir.IRDecimal{}, false
}

// render formats a value as canonical JSON for failure messages.
func render(v ir.IRValue) string {
	if v == nil {
		return "<missing>"
	}
	data, err := ir.MarshalCanonical(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(data)
}
