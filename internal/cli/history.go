package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/dataservice/internal/store"
)

// HistoryOptions holds flags for the history command.
type HistoryOptions struct {
	*RootOptions
	Database string
}

// HistoryEntry is one logged query.
type HistoryEntry struct {
	Seq        int64  `json:"seq"`
	QueryID    string `json:"query_id"`
	ClauseHash string `json:"clause_hash"`
	SQL        string `json:"sql"`
	RowCount   int64  `json:"row_count"`
}

// ServiceHistory holds the logged queries of one service in seq order.
type ServiceHistory struct {
	Service string         `json:"service"`
	Queries []HistoryEntry `json:"queries"`
}

// HistoryResult holds the overall history output.
type HistoryResult struct {
	Services     []ServiceHistory `json:"services"`
	TotalQueries int              `json:"total_queries"`
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HistoryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "history [service]",
		Short: "Show the query log",
		Long: `Show the queries executed against one service, or against every
registered service, in the order they ran.

Each entry carries the clause hash shared by every query that reads the
same service with the same clauses, and the SQL that ran against SQLite.

Examples:
  dataservice history --db ./data.db
  dataservice history --db ./data.db Sales
  dataservice history --db ./data.db --format json`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			var service string
			if len(args) == 1 {
				service = args[0]
			}
			return runHistory(opts, service, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func runHistory(opts *HistoryOptions, service string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)
	ctx := cmd.Context()

	logger := newLogger(opts.RootOptions, formatter.GetErrWriter())
	eng, closeStore, err := openEngine(ctx, opts.Database, "", logger, nil)
	if err != nil {
		return err
	}
	defer closeStore()

	var names []string
	if service != "" {
		if _, ok := eng.Service(service); !ok {
			msg := fmt.Sprintf("no service named %q", service)
			_ = formatter.Error(ErrCodeNotFound, msg, nil)
			return NewExitError(ExitCommandError, msg)
		}
		names = []string{service}
	} else {
		names = eng.ServiceNames()
	}

	result := HistoryResult{Services: make([]ServiceHistory, 0, len(names))}
	for _, name := range names {
		records, err := eng.History(ctx, name)
		if err != nil {
			return WrapExitError(ExitCommandError, fmt.Sprintf("failed to read history of %s", name), err)
		}
		result.Services = append(result.Services, ServiceHistory{
			Service: name,
			Queries: historyEntries(records),
		})
		result.TotalQueries += len(records)
	}

	if formatter.Format == "json" {
		return formatter.Success(result)
	}
	return outputHistoryText(formatter, result)
}

func historyEntries(records []store.QueryRecord) []HistoryEntry {
	entries := make([]HistoryEntry, len(records))
	for i, r := range records {
		entries[i] = HistoryEntry{
			Seq:        r.Seq,
			QueryID:    r.ID,
			ClauseHash: r.ClauseHash,
			SQL:        r.SQL,
			RowCount:   r.RowCount,
		}
	}
	return entries
}

// outputHistoryText outputs the history as text.
func outputHistoryText(formatter *OutputFormatter, result HistoryResult) error {
	w := formatter.Writer

	if len(result.Services) == 0 {
		fmt.Fprintln(w, "No services found in database.")
		return nil
	}

	fmt.Fprintf(w, "History: %d quer(ies) across %d service(s)\n\n", result.TotalQueries, len(result.Services))

	for _, s := range result.Services {
		fmt.Fprintf(w, "%s (%d)\n", s.Service, len(s.Queries))
		for _, q := range s.Queries {
			fmt.Fprintf(w, "  [%d] %s rows=%d\n", q.Seq, q.QueryID, q.RowCount)
			if formatter.Verbose {
				fmt.Fprintf(w, "      hash: %s\n", q.ClauseHash)
				fmt.Fprintf(w, "      sql:  %s\n", q.SQL)
			}
		}
		fmt.Fprintln(w)
	}
	return nil
}
