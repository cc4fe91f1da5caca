package cli

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseText(t *testing.T) {
	out, err := execute(t, NewParseCommand(&RootOptions{Format: "text"}),
		"--specs", specsDir,
		"SELECT COUNT(Category), SUM(sales_amount) AS total FROM Sales WHERE Country = 'Spain' AND (products_sold > 5 OR Category IS NULL)")
	require.NoError(t, err)

	assert.Contains(t, out, "Service: Sales\n")
	assert.Contains(t, out, "Fields:\n  COUNT(Category) [COUNT]\n")
	assert.Contains(t, out, "SUM(sales_amount) AS total [SUM]")
	assert.Contains(t, out, "Where: Country = 'Spain' AND (products_sold > '5' OR Category IS NULL)\n")
	assert.Contains(t, out, "AND (\n")
	assert.Contains(t, out, "OR Category IS NULL\n")
	assert.Contains(t, out, "SQL: SELECT")
	assert.NotContains(t, out, "Parameter ")
}

func TestParseNegatedCondition(t *testing.T) {
	out, err := execute(t, NewParseCommand(&RootOptions{Format: "text"}),
		"--specs", specsDir, "SELECT Category FROM Sales WHERE NOT (Country = 'Spain')")
	require.NoError(t, err)
	assert.Contains(t, out, "Fields:\n  Category\n")
	assert.Contains(t, out, "NOT ")
	assert.Contains(t, out, "Country = 'Spain'")
}

func TestParseParameters(t *testing.T) {
	out, err := execute(t, NewParseCommand(&RootOptions{Format: "text"}),
		"--specs", specsDir,
		"SELECT Category FROM Sales WHERE PARAMETER('year') = '2024' AND PARAMETER('region') = 'EU'")
	require.NoError(t, err)

	// Parameters print in name order.
	assert.Contains(t, out, "Parameter region = EU\nParameter year = 2024\n")
}

func TestParseJSON(t *testing.T) {
	out, err := execute(t, NewParseCommand(&RootOptions{Format: "json"}),
		"--specs", specsDir, "SELECT COUNT(*) FROM Sales WHERE Country = 'Spain'")
	require.NoError(t, err)

	var resp struct {
		Status string `json:"status"`
		Data   struct {
			Service   string           `json:"service"`
			Fields    []map[string]any `json:"fields"`
			Condition map[string]any   `json:"condition"`
			Where     string           `json:"where"`
			SQL       string           `json:"sql"`
			Params    []any            `json:"params"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp), out)
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "Sales", resp.Data.Service)
	require.Len(t, resp.Data.Fields, 1)
	assert.Equal(t, true, resp.Data.Fields[0]["count_star"])
	assert.Equal(t, "Country = 'Spain'", resp.Data.Where)
	assert.NotEmpty(t, resp.Data.Condition)
	assert.Contains(t, resp.Data.SQL, "COUNT(*)")
	assert.Equal(t, []any{"Spain"}, resp.Data.Params)
}

func TestParseWithoutWhere(t *testing.T) {
	out, err := execute(t, NewParseCommand(&RootOptions{Format: "json"}),
		"--specs", specsDir, "SELECT Category FROM Sales")
	require.NoError(t, err)

	var resp map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	data, ok := resp["data"].(map[string]any)
	require.True(t, ok)
	assert.NotContains(t, data, "condition")
	assert.NotContains(t, data, "where")
	assert.Equal(t, []any{}, data["params"])
}

func TestParseFromDatabase(t *testing.T) {
	// Services restored from a database need no --specs.
	dbPath := seedDB(t)

	out, err := execute(t, NewParseCommand(&RootOptions{Format: "text"}),
		"--db", dbPath, "SELECT CUSTOMERNAME FROM Customers WHERE STATE IN ('NY', 'NJ')")
	require.NoError(t, err)
	assert.Contains(t, out, "Service: Customers")
	assert.Contains(t, out, "Where: STATE IN ('NY', 'NJ')")
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		wantCode string
		wantMsg  string
	}{
		{"unknown service", []string{"--specs", specsDir, "SELECT x FROM Inventory"}, ErrCodeNotFound, "UNKNOWN_SERVICE"},
		{"bad where", []string{"--specs", specsDir, "SELECT Category FROM Sales WHERE Country ="}, ErrCodeBadInput, "PARSE_FAILED"},
		{"not a select", []string{"--specs", specsDir, "DELETE FROM Sales"}, ErrCodeBadInput, "PARSE_FAILED"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := execute(t, NewParseCommand(&RootOptions{Format: "text"}), tt.args...)
			require.Error(t, err)
			assert.Equal(t, ExitCommandError, GetExitCode(err))
			assert.Contains(t, out, "Error ["+tt.wantCode+"]")
			assert.Contains(t, out, tt.wantMsg)
		})
	}
}

func TestParseRequiresSource(t *testing.T) {
	_, err := execute(t, NewParseCommand(&RootOptions{Format: "text"}), "SELECT Category FROM Sales")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "one of --specs or --db is required")
}
