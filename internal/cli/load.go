package cli

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/roach88/dataservice/internal/ir"
)

// LoadOptions holds flags for the load command.
type LoadOptions struct {
	*RootOptions
	Database string
	SpecsDir string
}

// LoadOutput is the JSON payload of a successful load.
type LoadOutput struct {
	Service string `json:"service"`
	Rows    int    `json:"rows"`
}

// NewLoadCommand creates the load command.
func NewLoadCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &LoadOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "load <service> <rows-file>",
		Short: "Append rows to a service",
		Long: `Append rows to a registered service.

The rows file is a YAML or JSON list of objects keyed by column name.
Columns a row omits are stored as NULL; unknown keys are rejected.
Use "-" to read rows from stdin.

Example:
  dataservice load --db ./data.db --specs ./specs Sales rows.yaml
  cat rows.json | dataservice load --db ./data.db Sales -`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLoad(opts, args[0], args[1], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.SpecsDir, "specs", "", "CUE specs directory to register before loading")

	return cmd
}

func runLoad(opts *LoadOptions, service, rowsFile string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	data, err := readRowsFile(rowsFile, cmd.InOrStdin())
	if err != nil {
		_ = formatter.Error(ErrCodeNotFound, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to read rows", err)
	}
	rows, err := decodeRows(data)
	if err != nil {
		_ = formatter.Error(ErrCodeBadInput, err.Error(), nil)
		return WrapExitError(ExitCommandError, "invalid rows file", err)
	}

	ctx, cancel := signalContext(cmd)
	defer cancel()

	logger := newLogger(opts.RootOptions, formatter.GetErrWriter()).With("trace_id", formatter.TraceID)
	eng, closeStore, err := openEngine(ctx, opts.Database, opts.SpecsDir, logger, nil)
	if err != nil {
		return err
	}
	defer closeStore()

	n, err := eng.Load(ctx, service, rows)
	if err != nil {
		_ = formatter.Error(ErrCodeQueryFailed, err.Error(), nil)
		return WrapExitError(ExitCommandError, "load failed", err)
	}

	if formatter.Format == "json" {
		return formatter.Success(LoadOutput{Service: service, Rows: n})
	}
	fmt.Fprintf(formatter.Writer, "✓ Loaded %d row(s) into %s\n", n, service)
	return nil
}

func readRowsFile(path string, stdin io.Reader) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(stdin)
	}
	return os.ReadFile(path)
}

// decodeRows parses a YAML (or JSON) list of row objects. Whole numbers
// become integers and everything else fractional becomes an exact decimal.
func decodeRows(data []byte) ([]ir.IRObject, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, errors.New("rows file is empty")
	}

	var raw []map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse rows: %w", err)
	}

	rows := make([]ir.IRObject, len(raw))
	for i, r := range raw {
		v, err := ir.FromGo(r)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		rows[i] = v.(ir.IRObject)
	}
	return rows, nil
}
