package engine

import (
	"context"
	"fmt"
	"maps"

	"github.com/roach88/dataservice/internal/ir"
	"github.com/roach88/dataservice/internal/store"
)

// Result is the outcome of one executed query.
type Result struct {
	QueryID string
	Seq     int64
	Service string
	Columns []string
	Rows    [][]ir.IRValue

	// Parameters are the PARAMETER('name') = 'value' bindings of the
	// WHERE clause.
	Parameters map[string]string
}

// Execute plans a SELECT statement, runs it against the store and records
// it in the query log.
func (e *Engine) Execute(ctx context.Context, sqlText string) (*Result, error) {
	plan, err := e.Plan(sqlText)
	if err != nil {
		return nil, err
	}

	compiled := plan.Compiled
	rs, err := e.store.QueryRows(ctx, compiled.SQL, compiled.Types, compiled.Params...)
	if err != nil {
		return nil, fmt.Errorf("execute on %s: %w", plan.Service.Name, err)
	}

	res := &Result{
		QueryID:    e.ids.Generate(),
		Seq:        e.clock.Next(),
		Service:    plan.Service.Name,
		Columns:    compiled.Columns,
		Rows:       rs.Rows,
		Parameters: maps.Clone(compiled.Parameters),
	}

	err = e.store.RecordQuery(ctx, store.QueryRecord{
		ID:         res.QueryID,
		Service:    res.Service,
		ClauseHash: plan.Key,
		SQL:        compiled.SQL,
		RowCount:   int64(len(res.Rows)),
		Seq:        res.Seq,
	})
	if err != nil {
		return nil, err
	}

	e.logger.Info("query executed",
		"service", res.Service,
		"query_id", res.QueryID,
		"seq", res.Seq,
		"rows", len(res.Rows))
	return res, nil
}

// ExecuteNamed runs a registered named query.
func (e *Engine) ExecuteNamed(ctx context.Context, name string) (*Result, error) {
	e.mu.RLock()
	q, ok := e.queries[name]
	e.mu.RUnlock()
	if !ok {
		return nil, &RuntimeError{
			Code:    ErrCodeUnknownQuery,
			Message: fmt.Sprintf("no query named %q", name),
		}
	}
	return e.Execute(ctx, q.SQL())
}

// ToIR projects the result onto an IRObject for canonical output.
// Rows become arrays in column order.
func (r *Result) ToIR() ir.IRObject {
	columns := make(ir.IRArray, len(r.Columns))
	for i, c := range r.Columns {
		columns[i] = ir.IRString(c)
	}
	rows := make(ir.IRArray, len(r.Rows))
	for i, row := range r.Rows {
		rows[i] = ir.IRArray(row)
	}
	params := make(ir.IRObject, len(r.Parameters))
	for k, v := range r.Parameters {
		params[k] = ir.IRString(v)
	}
	return ir.IRObject{
		"query_id":   ir.IRString(r.QueryID),
		"seq":        ir.IRInt(r.Seq),
		"service":    ir.IRString(r.Service),
		"columns":    columns,
		"rows":       rows,
		"parameters": params,
	}
}
