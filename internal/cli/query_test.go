package cli

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/dataservice/internal/engine"
	"github.com/roach88/dataservice/internal/ir"
)

// queryResponse mirrors QueryOutput with rows decoded as plain JSON values.
type queryResponse struct {
	Status string `json:"status"`
	Data   struct {
		QueryID    string            `json:"query_id"`
		Seq        int64             `json:"seq"`
		Service    string            `json:"service"`
		Columns    []string          `json:"columns"`
		Rows       [][]any           `json:"rows"`
		Parameters map[string]string `json:"parameters"`
	} `json:"data"`
}

func decodeQueryResponse(t *testing.T, out string) queryResponse {
	t.Helper()
	var resp queryResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp), out)
	return resp
}

func TestQueryText(t *testing.T) {
	dbPath := seedDB(t)

	buf := &bytes.Buffer{}
	cmd := &cobra.Command{}
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	opts := &QueryOptions{
		RootOptions: &RootOptions{Format: "text"},
		Database:    dbPath,
		IDGenerator: engine.NewFixedGenerator("query-1"),
	}

	err := runQuery(opts, "SELECT Category, sales_amount FROM Sales WHERE Country = 'Spain'", cmd)
	require.NoError(t, err)

	want := "Category  sales_amount\n" +
		"Helmets   800\n" +
		"Bikes     450.25\n" +
		"(2 row(s), query query-1)\n"
	assert.Equal(t, want, buf.String())
}

func TestQueryJSON(t *testing.T) {
	dbPath := seedDB(t)

	out, err := execute(t, NewQueryCommand(&RootOptions{Format: "json"}),
		"--db", dbPath,
		"SELECT Category, sales_amount AS amount FROM Sales WHERE products_sold >= 10 AND PARAMETER('region') = 'EU'")
	require.NoError(t, err)

	resp := decodeQueryResponse(t, out)
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "Sales", resp.Data.Service)
	assert.Equal(t, []string{"Category", "amount"}, resp.Data.Columns)
	assert.Equal(t, map[string]string{"region": "EU"}, resp.Data.Parameters)
	assert.Equal(t, int64(1), resp.Data.Seq)
	assert.NotEmpty(t, resp.Data.QueryID)

	require.Len(t, resp.Data.Rows, 3)
	assert.Equal(t, []any{"Bikes", 1500.5}, resp.Data.Rows[0])
	assert.Equal(t, []any{"Gloves", nil}, resp.Data.Rows[2])
}

func TestQueryDecimalsStayNumbers(t *testing.T) {
	dbPath := seedDB(t)

	out, err := execute(t, NewQueryCommand(&RootOptions{Format: "json"}),
		"--db", dbPath, "SELECT sales_amount FROM Sales WHERE Category = 'Bikes' AND Country = 'France'")
	require.NoError(t, err)
	assert.Contains(t, out, `"rows":[[1500.5]]`)
}

func TestQueryNullCells(t *testing.T) {
	dbPath := seedDB(t)

	out, err := execute(t, NewQueryCommand(&RootOptions{Format: "text"}),
		"--db", dbPath, "SELECT Category, sales_amount FROM Sales WHERE sales_amount IS NULL")
	require.NoError(t, err)
	assert.Contains(t, out, "Gloves    NULL")
	assert.Contains(t, out, "(1 row(s), query ")
}

func TestQueryNamed(t *testing.T) {
	dbPath := seedDB(t)

	out, err := execute(t, NewQueryCommand(&RootOptions{Format: "json"}),
		"--db", dbPath, "--specs", specsDir, "--name", "spain_sales")
	require.NoError(t, err)

	resp := decodeQueryResponse(t, out)
	assert.Equal(t, []string{"Category", "amount"}, resp.Data.Columns)
	assert.Equal(t, [][]any{{"Helmets", 800.0}, {"Bikes", 450.25}}, resp.Data.Rows)
}

func TestQuerySeqContinuesAcrossRuns(t *testing.T) {
	dbPath := seedDB(t)

	for want := int64(1); want <= 3; want++ {
		out, err := execute(t, NewQueryCommand(&RootOptions{Format: "json"}),
			"--db", dbPath, "SELECT COUNT(*) FROM Sales")
		require.NoError(t, err)

		assert.Equal(t, want, decodeQueryResponse(t, out).Data.Seq)
	}
}

func TestQueryArgumentErrors(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "data.db")

	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{"neither sql nor name", []string{"--db", dbPath}, "exactly one of a SQL argument or --name is required"},
		{"both sql and name", []string{"--db", dbPath, "--specs", specsDir, "--name", "spain_sales", "SELECT Category FROM Sales"}, "exactly one of"},
		{"name without specs", []string{"--db", dbPath, "--name", "spain_sales"}, "--name requires --specs"},
		{"missing db", []string{"SELECT Category FROM Sales"}, "db"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := execute(t, NewQueryCommand(&RootOptions{Format: "text"}), tt.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestQueryFailures(t *testing.T) {
	dbPath := seedDB(t)

	tests := []struct {
		name    string
		args    []string
		wantMsg string
	}{
		{"unknown service", []string{"SELECT x FROM Inventory"}, "UNKNOWN_SERVICE"},
		{"bad where", []string{"SELECT Category FROM Sales WHERE Country = 'Spain' AND"}, "PARSE_FAILED"},
		{"unknown named query", []string{"--specs", specsDir, "--name", "nope"}, "UNKNOWN_QUERY"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := append([]string{"--db", dbPath}, tt.args...)
			out, err := execute(t, NewQueryCommand(&RootOptions{Format: "text"}), args...)
			require.Error(t, err)
			assert.Equal(t, ExitCommandError, GetExitCode(err))
			assert.Contains(t, out, "Error ["+ErrCodeQueryFailed+"]")
			assert.Contains(t, out, tt.wantMsg)
		})
	}
}

func TestQueryBadSpecsDir(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "data.db")

	_, err := execute(t, NewQueryCommand(&RootOptions{Format: "text"}),
		"--db", dbPath, "--specs", "/nonexistent/specs", "SELECT Category FROM Sales")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load specs")
	assert.Contains(t, err.Error(), "E005")
}

func TestCellText(t *testing.T) {
	tests := []struct {
		value ir.IRValue
		want  string
	}{
		{nil, "NULL"},
		{ir.IRNull{}, "NULL"},
		{ir.IRString("O'Brien"), "O'Brien"},
		{ir.IRInt(42), "42"},
		{ir.IRBool(true), "TRUE"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, cellText(tt.value))
	}
}
