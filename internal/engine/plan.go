package engine

import (
	"fmt"
	"strings"

	"github.com/roach88/dataservice/internal/ir"
	"github.com/roach88/dataservice/internal/queryir"
	"github.com/roach88/dataservice/internal/querysql"
	"github.com/roach88/dataservice/internal/sqlparse"
)

// Plan is a parsed and compiled statement. Plans are immutable once built
// and shared between executions of the same statement text.
type Plan struct {
	// Key is the plan cache key, an ir.ClauseHash of the statement clauses.
	Key string

	Service   ir.ServiceSpec
	Statement *sqlparse.Statement
	Fields    queryir.Fields
	Condition *queryir.Condition // nil when the statement has no WHERE
	Compiled  *querysql.Compiled
}

// Plan parses and compiles a SELECT statement, consulting the plan cache
// first.
func (e *Engine) Plan(sqlText string) (*Plan, error) {
	stmt, err := sqlparse.ParseSelect(sqlText)
	if err != nil {
		return nil, newParseError("", "statement", err)
	}

	key, err := ir.ClauseHash(fromClause(stmt), stmt.Fields, stmt.Where)
	if err != nil {
		return nil, fmt.Errorf("plan key: %w", err)
	}

	e.mu.RLock()
	cached, hit := e.plans[key]
	spec, known := e.services[stmt.Service]
	e.mu.RUnlock()

	if hit {
		e.logger.Debug("plan cache hit", "service", stmt.Service, "key", key[:12])
		return cached, nil
	}
	if !known {
		return nil, newUnknownServiceError(stmt.Service)
	}

	plan, err := e.buildPlan(key, spec, stmt)
	if err != nil {
		return nil, err
	}
	e.storePlan(plan)
	return plan, nil
}

func (e *Engine) buildPlan(key string, spec ir.ServiceSpec, stmt *sqlparse.Statement) (*Plan, error) {
	schema := spec.Schema()
	qualifier := stmt.Qualifier()

	fields, err := sqlparse.ParseFields(qualifier, stmt.Fields, schema)
	if err != nil {
		return nil, newParseError(spec.Name, "field list", err)
	}

	var cond *queryir.Condition
	if stmt.Where != "" {
		cond, err = sqlparse.ParseCondition(qualifier, stmt.Where, schema, fields)
		if err != nil {
			return nil, newParseError(spec.Name, "WHERE", err)
		}
	}

	compiled, err := e.compiler.Compile(spec, fields, cond)
	if err != nil {
		return nil, &RuntimeError{
			Code:    ErrCodeCompileFailed,
			Message: "query cannot run on this service",
			Service: spec.Name,
			Err:     err,
		}
	}

	e.logger.Debug("query parsed",
		"service", spec.Name,
		"fields", len(fields),
		"where", cond != nil,
		"params", len(compiled.Params))

	return &Plan{
		Key:       key,
		Service:   spec,
		Statement: stmt,
		Fields:    fields,
		Condition: cond,
		Compiled:  compiled,
	}, nil
}

func (e *Engine) storePlan(plan *Plan) {
	if e.maxPlans < 1 {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.plans) >= e.maxPlans {
		e.plans = make(map[string]*Plan)
	}
	e.plans[plan.Key] = plan
}

// fromClause is the FROM clause as the cache sees it: the alias changes
// how columns are qualified, so it is part of the key.
func fromClause(stmt *sqlparse.Statement) string {
	if stmt.ServiceAlias == "" {
		return stmt.Service
	}
	return strings.Join([]string{stmt.Service, "AS", stmt.ServiceAlias}, " ")
}
