package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/roach88/dataservice/internal/ir"
	"github.com/roach88/dataservice/internal/testutil"
)

// Scenario is one conformance test: the services it needs, the rows loaded
// into them, the steps run against them and the assertions checked after.
type Scenario struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`

	// IDPrefix prefixes the sequential query ids ("<prefix>-0001").
	// Defaults to the scenario name.
	IDPrefix string `yaml:"id_prefix,omitempty"`

	Services   []ServiceDef                `yaml:"services"`
	Queries    []QueryDef                  `yaml:"queries,omitempty"`
	Rows       map[string][]map[string]any `yaml:"rows,omitempty"`
	Steps      []Step                      `yaml:"steps"`
	Assertions []Assertion                 `yaml:"assertions,omitempty"`
}

// ServiceDef names a fixture service or defines one inline.
type ServiceDef struct {
	Fixture string      `yaml:"fixture,omitempty"`
	Name    string      `yaml:"name,omitempty"`
	Table   string      `yaml:"table,omitempty"`
	Columns []ColumnDef `yaml:"columns,omitempty"`
}

// ColumnDef is one inline column.
type ColumnDef struct {
	Name string `yaml:"name"`
	Type string `yaml:"type"`
}

// QueryDef is a named query registered before the steps run.
type QueryDef struct {
	Name    string `yaml:"name"`
	Service string `yaml:"service"`
	Fields  string `yaml:"fields"`
	Where   string `yaml:"where,omitempty"`
}

// Step is exactly one of a SELECT statement, a named query or a parse of
// bare clauses.
type Step struct {
	Query  string     `yaml:"query,omitempty"`
	Run    string     `yaml:"run,omitempty"`
	Parse  *ParseStep `yaml:"parse,omitempty"`
	Expect *Expect    `yaml:"expect,omitempty"`
}

// ParseStep parses a field list and/or WHERE clause against a service
// without executing anything.
type ParseStep struct {
	Service string `yaml:"service"`
	Fields  string `yaml:"fields,omitempty"`
	Where   string `yaml:"where,omitempty"`
}

// Expect is checked against the step's output as soon as the step runs.
type Expect struct {
	// Error is a substring the step's error must contain. A step with no
	// Error expectation must succeed.
	Error string `yaml:"error,omitempty"`

	Columns  []string `yaml:"columns,omitempty"`
	Rows     [][]any  `yaml:"rows,omitempty"`
	RowCount *int     `yaml:"row_count,omitempty"`

	// Where is the re-rendered text of a parsed condition.
	Where string `yaml:"where,omitempty"`
}

// Kind returns "query", "run" or "parse".
func (s Step) Kind() string {
	switch {
	case s.Query != "":
		return "query"
	case s.Run != "":
		return "run"
	default:
		return "parse"
	}
}

// Spec resolves the definition to a service spec.
func (d ServiceDef) Spec() (ir.ServiceSpec, error) {
	if d.Fixture != "" {
		spec, ok := testutil.Fixture(d.Fixture)
		if !ok {
			return ir.ServiceSpec{}, fmt.Errorf("unknown fixture %q", d.Fixture)
		}
		return spec, nil
	}

	spec := ir.ServiceSpec{Name: d.Name, Table: d.Table}
	for _, c := range d.Columns {
		t, err := ir.ParseValueType(c.Type)
		if err != nil {
			return ir.ServiceSpec{}, fmt.Errorf("column %s: %w", c.Name, err)
		}
		spec.Columns = append(spec.Columns, ir.Column{Name: c.Name, Type: t})
	}
	return spec, nil
}

// Spec converts the definition to a query spec.
func (d QueryDef) Spec() ir.QuerySpec {
	return ir.QuerySpec{Name: d.Name, Service: d.Service, Fields: d.Fields, Where: d.Where}
}

// LoadScenario loads and validates a test scenario from a YAML file.
//
// Returns error if:
//   - File cannot be read
//   - YAML is invalid or contains unknown fields
//   - Required fields are missing
//   - A step or assertion is malformed
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario decodes and validates scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // catches typos
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	for i, def := range s.Services {
		if def.Fixture != "" {
			if def.Name != "" || def.Table != "" || len(def.Columns) > 0 {
				return fmt.Errorf("services[%d]: fixture cannot be combined with an inline definition", i)
			}
			continue
		}
		if def.Name == "" {
			return fmt.Errorf("services[%d]: name or fixture is required", i)
		}
		if len(def.Columns) == 0 {
			return fmt.Errorf("services[%d]: columns are required", i)
		}
	}

	for i, q := range s.Queries {
		if q.Name == "" || q.Service == "" || q.Fields == "" {
			return fmt.Errorf("queries[%d]: name, service and fields are required", i)
		}
	}

	for i, step := range s.Steps {
		if err := validateStep(i, &step); err != nil {
			return err
		}
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion, len(s.Steps)); err != nil {
			return err
		}
	}

	return nil
}

// validateStep checks that a step has exactly one action.
func validateStep(index int, s *Step) error {
	actions := 0
	if s.Query != "" {
		actions++
	}
	if s.Run != "" {
		actions++
	}
	if s.Parse != nil {
		actions++
		if s.Parse.Service == "" {
			return fmt.Errorf("steps[%d].parse: service is required", index)
		}
		if s.Parse.Fields == "" && s.Parse.Where == "" {
			return fmt.Errorf("steps[%d].parse: fields or where is required", index)
		}
	}
	if actions != 1 {
		return fmt.Errorf("steps[%d]: exactly one of query, run or parse is required", index)
	}
	if s.Expect != nil && s.Expect.RowCount != nil && *s.Expect.RowCount < 0 {
		return fmt.Errorf("steps[%d].expect: row_count must be non-negative", index)
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion, steps int) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	stepRef := func() error {
		if a.Step < 0 || a.Step >= steps {
			return fmt.Errorf("assertions[%d]: step %d out of range", index, a.Step)
		}
		return nil
	}

	switch a.Type {
	case AssertRowCount:
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for row_count", index)
		}
		return stepRef()
	case AssertContainsRow:
		if len(a.Row) == 0 {
			return fmt.Errorf("assertions[%d]: row is required for contains_row", index)
		}
		return stepRef()
	case AssertPathEquals:
		if a.Path == "" {
			return fmt.Errorf("assertions[%d]: path is required for path_equals", index)
		}
		return stepRef()
	case AssertParameter:
		if a.Name == "" {
			return fmt.Errorf("assertions[%d]: name is required for parameter", index)
		}
		return stepRef()
	case AssertHistoryCount:
		if a.Service == "" {
			return fmt.Errorf("assertions[%d]: service is required for history_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for history_count", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}
