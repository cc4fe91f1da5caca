package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/dataservice/internal/ir"
)

func writeScenario(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scenario.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadScenario_ValidFile(t *testing.T) {
	path := writeScenario(t, `
name: test_scenario
description: "Test scenario for validation"
services:
  - fixture: sales
  - name: Orders
    columns:
      - {name: id, type: integer}
queries:
  - {name: all_orders, service: Orders, fields: "id"}
rows:
  Orders:
    - {id: 1}
steps:
  - query: "SELECT id FROM Orders"
    expect:
      rows: [[1]]
  - run: all_orders
  - parse: {service: Orders, where: "id > 0"}
assertions:
  - {type: row_count, step: 0, count: 1}
`)

	scenario, err := LoadScenario(path)
	require.NoError(t, err)

	assert.Equal(t, "test_scenario", scenario.Name)
	assert.Equal(t, "Test scenario for validation", scenario.Description)
	assert.Len(t, scenario.Services, 2)
	assert.Len(t, scenario.Queries, 1)
	assert.Len(t, scenario.Steps, 3)
	assert.Len(t, scenario.Assertions, 1)
	assert.Equal(t, "query", scenario.Steps[0].Kind())
	assert.Equal(t, "run", scenario.Steps[1].Kind())
	assert.Equal(t, "parse", scenario.Steps[2].Kind())
	assert.Equal(t, 1, scenario.Rows["Orders"][0]["id"])
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read scenario file")
}

func TestParseScenario_UnknownField(t *testing.T) {
	_, err := ParseScenario([]byte(`
name: typo
description: "has a typo"
stepz:
  - query: "SELECT A FROM Service"
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse YAML")
}

func TestParseScenario_Invalid(t *testing.T) {
	tests := []struct {
		name   string
		yaml   string
		errMsg string
	}{
		{
			name:   "missing name",
			yaml:   "description: d\nsteps: [{query: 'SELECT A FROM S'}]",
			errMsg: "name is required",
		},
		{
			name:   "missing description",
			yaml:   "name: n\nsteps: [{query: 'SELECT A FROM S'}]",
			errMsg: "description is required",
		},
		{
			name:   "no steps",
			yaml:   "name: n\ndescription: d",
			errMsg: "steps list is required",
		},
		{
			name:   "two actions in one step",
			yaml:   "name: n\ndescription: d\nsteps: [{query: 'SELECT A FROM S', run: q}]",
			errMsg: "steps[0]: exactly one of query, run or parse is required",
		},
		{
			name:   "empty step",
			yaml:   "name: n\ndescription: d\nsteps: [{expect: {row_count: 1}}]",
			errMsg: "steps[0]: exactly one of query, run or parse is required",
		},
		{
			name:   "parse without service",
			yaml:   "name: n\ndescription: d\nsteps: [{parse: {where: 'A = 1'}}]",
			errMsg: "steps[0].parse: service is required",
		},
		{
			name:   "parse without clauses",
			yaml:   "name: n\ndescription: d\nsteps: [{parse: {service: S}}]",
			errMsg: "steps[0].parse: fields or where is required",
		},
		{
			name:   "negative row count",
			yaml:   "name: n\ndescription: d\nsteps: [{query: 'SELECT A FROM S', expect: {row_count: -1}}]",
			errMsg: "row_count must be non-negative",
		},
		{
			name:   "fixture with columns",
			yaml:   "name: n\ndescription: d\nservices: [{fixture: sales, name: X}]\nsteps: [{query: 'SELECT A FROM S'}]",
			errMsg: "fixture cannot be combined",
		},
		{
			name:   "inline service without columns",
			yaml:   "name: n\ndescription: d\nservices: [{name: X}]\nsteps: [{query: 'SELECT A FROM S'}]",
			errMsg: "services[0]: columns are required",
		},
		{
			name:   "query without fields",
			yaml:   "name: n\ndescription: d\nqueries: [{name: q, service: S}]\nsteps: [{run: q}]",
			errMsg: "queries[0]: name, service and fields are required",
		},
		{
			name:   "unknown assertion type",
			yaml:   "name: n\ndescription: d\nsteps: [{run: q}]\nassertions: [{type: bogus}]",
			errMsg: `unknown assertion type "bogus"`,
		},
		{
			name:   "assertion step out of range",
			yaml:   "name: n\ndescription: d\nsteps: [{run: q}]\nassertions: [{type: row_count, step: 3, count: 1}]",
			errMsg: "step 3 out of range",
		},
		{
			name:   "contains_row without row",
			yaml:   "name: n\ndescription: d\nsteps: [{run: q}]\nassertions: [{type: contains_row}]",
			errMsg: "row is required",
		},
		{
			name:   "path_equals without path",
			yaml:   "name: n\ndescription: d\nsteps: [{run: q}]\nassertions: [{type: path_equals, value: 1}]",
			errMsg: "path is required",
		},
		{
			name:   "history_count without service",
			yaml:   "name: n\ndescription: d\nsteps: [{run: q}]\nassertions: [{type: history_count, count: 1}]",
			errMsg: "service is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseScenario([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestServiceDef_Spec(t *testing.T) {
	t.Run("fixture", func(t *testing.T) {
		spec, err := ServiceDef{Fixture: "customers"}.Spec()
		require.NoError(t, err)
		assert.Equal(t, "GETTING_STARTED", spec.Name)
	})

	t.Run("inline", func(t *testing.T) {
		spec, err := ServiceDef{
			Name:  "Orders",
			Table: "orders",
			Columns: []ColumnDef{
				{Name: "id", Type: "Integer"},
				{Name: "total", Type: "number"},
			},
		}.Spec()
		require.NoError(t, err)
		assert.Equal(t, "orders", spec.TableName())
		assert.Equal(t, []ir.Column{
			{Name: "id", Type: ir.TypeInteger},
			{Name: "total", Type: ir.TypeNumber},
		}, spec.Columns)
	})

	t.Run("bad type", func(t *testing.T) {
		_, err := ServiceDef{Name: "X", Columns: []ColumnDef{{Name: "a", Type: "float"}}}.Spec()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "column a")
	})
}

func TestScenarioFiles(t *testing.T) {
	files, err := FindScenarioFiles("testdata/scenarios", "")
	require.NoError(t, err)
	require.NotEmpty(t, files)

	for _, path := range files {
		t.Run(filepath.Base(path), func(t *testing.T) {
			scenario, err := LoadScenario(path)
			require.NoError(t, err)

			result, err := Run(scenario)
			require.NoError(t, err)
			assert.True(t, result.Pass, "scenario %s failed: %v", scenario.Name, result.Errors)
			assert.Len(t, result.Outputs, len(scenario.Steps))
		})
	}
}
