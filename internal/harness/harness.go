package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"slices"
	"strings"

	"github.com/roach88/dataservice/internal/engine"
	"github.com/roach88/dataservice/internal/ir"
	"github.com/roach88/dataservice/internal/queryir"
	"github.com/roach88/dataservice/internal/sqlparse"
	"github.com/roach88/dataservice/internal/store"
	"github.com/roach88/dataservice/internal/testutil"
)

// Harness is the test execution engine.
// It runs scenarios against a fresh store with sequential query ids.
type Harness struct {
	store  *store.Store
	engine *engine.Engine
	logger *slog.Logger
}

// RunOption configures Run.
type RunOption func(*runConfig)

type runConfig struct {
	services []ir.ServiceSpec
	queries  []ir.QuerySpec
	logger   *slog.Logger
}

// WithServices registers services before the scenario's own.
func WithServices(specs ...ir.ServiceSpec) RunOption {
	return func(c *runConfig) {
		c.services = append(c.services, specs...)
	}
}

// WithQueries registers named queries before the scenario's own.
func WithQueries(queries ...ir.QuerySpec) RunOption {
	return func(c *runConfig) {
		c.queries = append(c.queries, queries...)
	}
}

// WithLogger routes engine logs to logger. Logs are discarded by default.
func WithLogger(logger *slog.Logger) RunOption {
	return func(c *runConfig) {
		c.logger = logger
	}
}

// Run executes a test scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database for isolation.
//
// Execution flow:
//  1. Register services and named queries
//  2. Load rows
//  3. Run steps, checking each expect clause
//  4. Evaluate assertions
//
// A returned error means the scenario could not be set up. Step failures
// and failed assertions are reported through Result.
func Run(scenario *Scenario, opts ...RunOption) (*Result, error) {
	cfg := runConfig{logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
	for _, opt := range opts {
		opt(&cfg)
	}

	st, err := store.Open(":memory:", store.WithLogger(cfg.logger))
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	prefix := scenario.IDPrefix
	if prefix == "" {
		prefix = scenario.Name
	}
	h := &Harness{
		store: st,
		engine: engine.New(st,
			engine.WithIDGenerator(testutil.NewSequentialIDGenerator(prefix)),
			engine.WithLogger(cfg.logger),
		),
		logger: cfg.logger,
	}

	ctx := context.Background()
	if err := h.setup(ctx, scenario, cfg); err != nil {
		return nil, fmt.Errorf("failed to execute setup: %w", err)
	}

	result := NewResult()
	for i, step := range scenario.Steps {
		out := h.executeStep(ctx, i, step)
		result.Outputs = append(result.Outputs, out)
		for _, msg := range checkExpect(out, step.Expect) {
			result.AddError(fmt.Sprintf("steps[%d]: %s", i, msg))
		}
	}

	actx := &AssertionContext{
		Engine: h.engine,
		Ctx:    ctx,
	}
	for _, msg := range EvaluateAssertions(result, scenario.Assertions, actx) {
		result.AddError(msg)
	}

	return result, nil
}

// setup registers services and queries and loads rows.
func (h *Harness) setup(ctx context.Context, scenario *Scenario, cfg runConfig) error {
	specs := slices.Clone(cfg.services)
	for i, def := range scenario.Services {
		spec, err := def.Spec()
		if err != nil {
			return fmt.Errorf("services[%d]: %w", i, err)
		}
		specs = append(specs, spec)
	}
	for _, spec := range specs {
		if err := h.engine.Register(ctx, spec); err != nil {
			return err
		}
	}

	queries := slices.Clone(cfg.queries)
	for _, def := range scenario.Queries {
		queries = append(queries, def.Spec())
	}
	for _, q := range queries {
		if err := h.engine.RegisterQuery(q); err != nil {
			return fmt.Errorf("query %s: %w", q.Name, err)
		}
	}

	for _, service := range slices.Sorted(maps.Keys(scenario.Rows)) {
		rows, err := convertRows(scenario.Rows[service])
		if err != nil {
			return fmt.Errorf("rows for %s: %w", service, err)
		}
		if _, err := h.engine.Load(ctx, service, rows); err != nil {
			return err
		}
	}
	return nil
}

// executeStep runs one step. It never fails: errors are captured in the
// output so that expect clauses can match them.
func (h *Harness) executeStep(ctx context.Context, i int, step Step) StepOutput {
	out := StepOutput{Step: i, Kind: step.Kind()}

	var (
		obj ir.IRObject
		err error
	)
	switch out.Kind {
	case "query":
		out.Input = step.Query
		var res *engine.Result
		if res, err = h.engine.Execute(ctx, step.Query); err == nil {
			obj = res.ToIR()
		}
	case "run":
		out.Input = step.Run
		var res *engine.Result
		if res, err = h.engine.ExecuteNamed(ctx, step.Run); err == nil {
			obj = res.ToIR()
		}
	default:
		out.Input = parseInput(step.Parse)
		obj, err = h.parse(step.Parse)
	}

	if err != nil {
		out.Error = err.Error()
		h.logger.Debug("step failed", "step", i, "kind", out.Kind, "error", err)
		return out
	}
	out.Output = obj
	return out
}

// parse parses a field list and WHERE clause against a registered service.
// Aliases from the field list are visible to the WHERE clause.
func (h *Harness) parse(p *ParseStep) (ir.IRObject, error) {
	spec, ok := h.engine.Service(p.Service)
	if !ok {
		return nil, fmt.Errorf("unknown service %q", p.Service)
	}
	schema := spec.Schema()

	obj := ir.IRObject{}
	var fields queryir.Fields
	if p.Fields != "" {
		var err error
		fields, err = sqlparse.ParseFields(spec.Name, p.Fields, schema)
		if err != nil {
			return nil, err
		}
		obj["fields"] = fields.ToIR()
	}
	if p.Where != "" {
		cond, err := sqlparse.ParseCondition(spec.Name, p.Where, schema, fields)
		if err != nil {
			return nil, err
		}
		obj["condition"] = cond.ToIR()
		obj["where"] = ir.IRString(cond.String())
	}
	return obj, nil
}

func parseInput(p *ParseStep) string {
	var parts []string
	if p.Fields != "" {
		parts = append(parts, "SELECT "+p.Fields)
	}
	if p.Where != "" {
		parts = append(parts, "WHERE "+p.Where)
	}
	return strings.Join(parts, " ")
}

// checkExpect compares a step output with its expect clause.
func checkExpect(out StepOutput, exp *Expect) []string {
	if exp == nil {
		if out.Error != "" {
			return []string{fmt.Sprintf("unexpected error: %s", out.Error)}
		}
		return nil
	}

	if exp.Error != "" {
		if out.Error == "" {
			return []string{fmt.Sprintf("expected error containing %q, step succeeded", exp.Error)}
		}
		if !strings.Contains(out.Error, exp.Error) {
			return []string{fmt.Sprintf("expected error containing %q, got %q", exp.Error, out.Error)}
		}
		return nil
	}
	if out.Error != "" {
		return []string{fmt.Sprintf("unexpected error: %s", out.Error)}
	}

	var errs []string
	if exp.Columns != nil {
		want := make(ir.IRArray, len(exp.Columns))
		for i, c := range exp.Columns {
			want[i] = ir.IRString(c)
		}
		if got := out.Output["columns"]; !valuesMatch(want, got) {
			errs = append(errs, fmt.Sprintf("columns: expected %s, got %s", render(want), render(got)))
		}
	}
	if exp.Rows != nil {
		want, err := ir.FromGo(toAnySlice(exp.Rows))
		if err != nil {
			errs = append(errs, fmt.Sprintf("rows: %v", err))
		} else if got := out.Output["rows"]; !valuesMatch(want, got) {
			errs = append(errs, fmt.Sprintf("rows: expected %s, got %s", render(want), render(got)))
		}
	}
	if exp.RowCount != nil {
		rows, _ := out.Output["rows"].(ir.IRArray)
		if len(rows) != *exp.RowCount {
			errs = append(errs, fmt.Sprintf("row_count: expected %d, got %d", *exp.RowCount, len(rows)))
		}
	}
	if exp.Where != "" {
		if got := out.Output["where"]; !valuesMatch(ir.IRString(exp.Where), got) {
			errs = append(errs, fmt.Sprintf("where: expected %q, got %s", exp.Where, render(got)))
		}
	}
	return errs
}

// convertRows converts decoded YAML rows to IR objects.
func convertRows(rows []map[string]any) ([]ir.IRObject, error) {
	out := make([]ir.IRObject, len(rows))
	for i, row := range rows {
		obj := make(ir.IRObject, len(row))
		for k, v := range row {
			irVal, err := ir.FromGo(v)
			if err != nil {
				return nil, fmt.Errorf("row %d: key %q: %w", i, k, err)
			}
			obj[k] = irVal
		}
		out[i] = obj
	}
	return out, nil
}

func toAnySlice(rows [][]any) []any {
	out := make([]any, len(rows))
	for i, row := range rows {
		out[i] = row
	}
	return out
}
