package cli

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/dataservice/internal/engine"
	"github.com/roach88/dataservice/internal/ir"
	"github.com/roach88/dataservice/internal/queryir"
)

// ParseOptions holds flags for the parse command.
type ParseOptions struct {
	*RootOptions
	Database string
	SpecsDir string
}

// ParseResult is the parsed and compiled form of one statement.
type ParseResult struct {
	Service    string            `json:"service"`
	Fields     ir.IRArray        `json:"fields"`
	Condition  ir.IRObject       `json:"condition,omitempty"`
	Where      string            `json:"where,omitempty"`
	SQL        string            `json:"sql"`
	Params     []any             `json:"params"`
	Parameters map[string]string `json:"parameters,omitempty"`
}

// NewParseCommand creates the parse command.
func NewParseCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ParseOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "parse <sql>",
		Short: "Show how a statement parses",
		Long: `Parse a SELECT statement against its service without running it.

Shows the field list, the condition tree of the WHERE clause, and the
parameterized SQL the statement compiles to. The service comes from a
CUE specs directory, a database registry, or both.

Examples:
  dataservice parse --specs ./specs "SELECT Category FROM Sales WHERE NOT (Country = 'Spain')"
  dataservice parse --db ./data.db --format json "SELECT COUNT(*) FROM Sales"`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runParse(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database holding the service registry")
	cmd.Flags().StringVar(&opts.SpecsDir, "specs", "", "CUE specs directory declaring the services")

	return cmd
}

func runParse(opts *ParseOptions, sqlText string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	if opts.Database == "" && opts.SpecsDir == "" {
		return NewExitError(ExitCommandError, "one of --specs or --db is required")
	}

	// Without a database the registry lives in a throwaway in-memory store.
	dbPath := opts.Database
	if dbPath == "" {
		dbPath = ":memory:"
	}

	ctx, cancel := signalContext(cmd)
	defer cancel()

	logger := newLogger(opts.RootOptions, formatter.GetErrWriter())
	eng, closeStore, err := openEngine(ctx, dbPath, opts.SpecsDir, logger, nil)
	if err != nil {
		return err
	}
	defer closeStore()

	plan, err := eng.Plan(sqlText)
	if err != nil {
		code := ErrCodeBadInput
		if engine.HasCode(err, engine.ErrCodeUnknownService) {
			code = ErrCodeNotFound
		}
		_ = formatter.Error(code, err.Error(), nil)
		return WrapExitError(ExitCommandError, "parse failed", err)
	}

	result := newParseResult(plan)
	if formatter.Format == "json" {
		return formatter.Success(result)
	}
	return outputParseText(formatter, plan)
}

func newParseResult(plan *engine.Plan) ParseResult {
	result := ParseResult{
		Service:    plan.Service.Name,
		Fields:     plan.Fields.ToIR(),
		SQL:        plan.Compiled.SQL,
		Params:     plan.Compiled.Params,
		Parameters: plan.Compiled.Parameters,
	}
	if result.Params == nil {
		result.Params = []any{}
	}
	if plan.Condition != nil {
		result.Condition = plan.Condition.ToIR()
		result.Where = plan.Condition.String()
	}
	return result
}

// outputParseText prints the field list and an indented condition tree.
func outputParseText(formatter *OutputFormatter, plan *engine.Plan) error {
	w := formatter.Writer

	fmt.Fprintf(w, "Service: %s\n\n", plan.Service.Name)

	fmt.Fprintln(w, "Fields:")
	for _, f := range plan.Fields {
		fmt.Fprintf(w, "  %s\n", describeField(f))
	}
	fmt.Fprintln(w)

	if plan.Condition != nil {
		fmt.Fprintf(w, "Where: %s\n", plan.Condition.String())
		writeConditionTree(formatter, plan.Condition, 1)
		fmt.Fprintln(w)
	}

	fmt.Fprintf(w, "SQL: %s\n", plan.Compiled.SQL)
	if formatter.Verbose && len(plan.Compiled.Params) > 0 {
		fmt.Fprintf(w, "Params: %v\n", plan.Compiled.Params)
	}
	for _, name := range slices.Sorted(maps.Keys(plan.Compiled.Parameters)) {
		fmt.Fprintf(w, "Parameter %s = %s\n", name, plan.Compiled.Parameters[name])
	}
	return nil
}

func describeField(f *queryir.Field) string {
	var b strings.Builder
	b.WriteString(f.Clause)
	if f.Aggregation != queryir.AggNone {
		fmt.Fprintf(&b, " [%s]", f.Aggregation)
	}
	if f.Resolved == nil && f.Conditional == nil && !f.CountStar {
		b.WriteString(" (unresolved)")
	}
	return b.String()
}

// writeConditionTree prints one line per node, children indented under
// their parent.
func writeConditionTree(formatter *OutputFormatter, c *queryir.Condition, depth int) {
	indent := strings.Repeat("  ", depth)
	prefix := indent
	if c.Join != queryir.JoinNone {
		prefix += c.Join.String() + " "
	}
	if c.Negated {
		prefix += "NOT "
	}

	if c.IsAtomic() {
		leaf := &queryir.Condition{Node: c.Node}
		fmt.Fprintf(formatter.Writer, "%s%s\n", prefix, leaf.String())
		return
	}
	fmt.Fprintf(formatter.Writer, "%s(\n", prefix)
	for _, child := range c.Children() {
		writeConditionTree(formatter, child, depth+1)
	}
	fmt.Fprintf(formatter.Writer, "%s)\n", indent)
}
