package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/roach88/dataservice/internal/engine"
	"github.com/roach88/dataservice/internal/ir"
	"github.com/roach88/dataservice/internal/store"
)

// QueryOptions holds flags for the query command.
type QueryOptions struct {
	*RootOptions
	Database string
	SpecsDir string
	Name     string // named query to run instead of SQL text

	// IDGenerator allows overriding the query id source (for testing).
	// If nil, defaults to UUIDv7Generator.
	IDGenerator engine.QueryIDGenerator
}

// QueryOutput is the JSON payload of a successful query.
type QueryOutput struct {
	QueryID    string            `json:"query_id"`
	Seq        int64             `json:"seq"`
	Service    string            `json:"service"`
	Columns    []string          `json:"columns"`
	Rows       []ir.IRArray      `json:"rows"` // IRArray keeps decimals as JSON numbers
	Parameters map[string]string `json:"parameters,omitempty"`
}

// NewQueryCommand creates the query command.
func NewQueryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &QueryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "query [sql]",
		Short: "Run a SELECT statement against a service",
		Long: `Run a SELECT statement, or a named query, against the database.

Services registered by earlier runs are restored from the database.
--specs additionally registers the services and named queries declared
in a CUE directory; named queries exist only for the duration of the run.

Example:
  dataservice query --db ./data.db "SELECT Category FROM Sales WHERE Country = 'Spain'"
  dataservice query --db ./data.db --specs ./specs --name spain_sales
  dataservice query --db ./data.db --format json "SELECT COUNT(*) FROM Sales"`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			var sqlText string
			if len(args) == 1 {
				sqlText = args[0]
			}
			return runQuery(opts, sqlText, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.SpecsDir, "specs", "", "CUE specs directory to register before running")
	cmd.Flags().StringVar(&opts.Name, "name", "", "run the named query instead of SQL text")

	return cmd
}

func runQuery(opts *QueryOptions, sqlText string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	if (sqlText == "") == (opts.Name == "") {
		return NewExitError(ExitCommandError, "exactly one of a SQL argument or --name is required")
	}
	if opts.Name != "" && opts.SpecsDir == "" {
		return NewExitError(ExitCommandError, "--name requires --specs")
	}

	ctx, cancel := signalContext(cmd)
	defer cancel()

	logger := newLogger(opts.RootOptions, formatter.GetErrWriter()).With("trace_id", formatter.TraceID)
	eng, closeStore, err := openEngine(ctx, opts.Database, opts.SpecsDir, logger, opts.IDGenerator)
	if err != nil {
		return err
	}
	defer closeStore()

	var res *engine.Result
	if opts.Name != "" {
		res, err = eng.ExecuteNamed(ctx, opts.Name)
	} else {
		res, err = eng.Execute(ctx, sqlText)
	}
	if err != nil {
		_ = formatter.Error(ErrCodeQueryFailed, err.Error(), nil)
		return WrapExitError(ExitCommandError, "query failed", err)
	}

	if formatter.Format == "json" {
		rows := make([]ir.IRArray, len(res.Rows))
		for i, row := range res.Rows {
			rows[i] = ir.IRArray(row)
		}
		return formatter.Success(QueryOutput{
			QueryID:    res.QueryID,
			Seq:        res.Seq,
			Service:    res.Service,
			Columns:    res.Columns,
			Rows:       rows,
			Parameters: res.Parameters,
		})
	}
	return writeTable(formatter.Writer, res)
}

// openEngine opens the database, restores the registry it holds, and
// registers the services and named queries of specsDir when one is given.
// The returned func closes the store.
func openEngine(ctx context.Context, dbPath, specsDir string, logger *slog.Logger, ids engine.QueryIDGenerator) (*engine.Engine, func(), error) {
	var loaded *LoadResult
	if specsDir != "" {
		var loadErrs []error
		loaded, loadErrs = LoadSpecs(specsDir, LoadModeFailFast)
		if len(loadErrs) > 0 {
			return nil, nil, WrapExitError(ExitCommandError, "failed to load specs", loadErrs[0])
		}
		logger.Info("specs loaded", "dir", specsDir, "services", len(loaded.Services), "queries", len(loaded.Queries))
	}

	st, err := store.Open(dbPath, store.WithLogger(logger))
	if err != nil {
		return nil, nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}
	closeStore := func() {
		if closeErr := st.Close(); closeErr != nil {
			logger.Error("error closing database", "error", closeErr)
		}
	}

	engineOpts := []engine.Option{engine.WithLogger(logger)}
	if ids != nil {
		engineOpts = append(engineOpts, engine.WithIDGenerator(ids))
	}
	eng := engine.New(st, engineOpts...)

	if err := eng.Restore(ctx); err != nil {
		closeStore()
		return nil, nil, WrapExitError(ExitCommandError, "failed to restore services", err)
	}

	if loaded != nil {
		for _, spec := range loaded.Services {
			if err := eng.Register(ctx, spec); err != nil {
				closeStore()
				return nil, nil, WrapExitError(ExitCommandError, fmt.Sprintf("failed to register service %s", spec.Name), err)
			}
		}
		for _, q := range loaded.Queries {
			if err := eng.RegisterQuery(q); err != nil {
				closeStore()
				return nil, nil, WrapExitError(ExitCommandError, fmt.Sprintf("failed to register query %s", q.Name), err)
			}
		}
	}

	return eng, closeStore, nil
}

// signalContext derives a context from the command's that is cancelled on
// SIGINT or SIGTERM.
func signalContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

// writeTable renders a result as aligned columns followed by a row count.
func writeTable(w io.Writer, res *engine.Result) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(res.Columns, "\t"))
	for _, row := range res.Rows {
		cells := make([]string, len(row))
		for i, v := range row {
			cells[i] = cellText(v)
		}
		fmt.Fprintln(tw, strings.Join(cells, "\t"))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(w, "(%d row(s), query %s)\n", len(res.Rows), res.QueryID)
	return nil
}

// cellText prints strings bare and other values as SQL constants.
func cellText(v ir.IRValue) string {
	switch val := v.(type) {
	case nil, ir.IRNull:
		return "NULL"
	case ir.IRString:
		return string(val)
	default:
		return ir.String(v)
	}
}
