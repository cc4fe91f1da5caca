package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/roach88/dataservice/internal/ir"
)

// ResultSet is the materialized result of a query.
type ResultSet struct {
	Columns []string
	Rows    [][]ir.IRValue
}

// Service retrieves a registered service definition by name.
// Returns sql.ErrNoRows if not found.
func (s *Store) Service(ctx context.Context, name string) (ir.ServiceSpec, error) {
	var specJSON string
	err := s.db.QueryRowContext(ctx, `
		SELECT spec_json FROM services WHERE name = ?
	`, name).Scan(&specJSON)
	if err != nil {
		return ir.ServiceSpec{}, err
	}
	return unmarshalSpec(specJSON)
}

// Services returns every registered service ordered by name.
func (s *Store) Services(ctx context.Context) ([]ir.ServiceSpec, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT spec_json FROM services
		ORDER BY name COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query services: %w", err)
	}
	defer rows.Close()

	specs := []ir.ServiceSpec{}
	for rows.Next() {
		var specJSON string
		if err := rows.Scan(&specJSON); err != nil {
			return nil, fmt.Errorf("scan service: %w", err)
		}
		spec, err := unmarshalSpec(specJSON)
		if err != nil {
			return nil, err
		}
		specs = append(specs, spec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate services: %w", err)
	}
	return specs, nil
}

// QueryRows runs a query and materializes every row as IR values.
// types gives the semantic type of each selected column by position; it may
// be shorter than the column list or nil.
func (s *Store) QueryRows(ctx context.Context, query string, types []ir.ValueType, args ...any) (*ResultSet, error) {
	rows, err := s.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query rows: %w", err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("query rows: %w", err)
	}

	result := &ResultSet{Columns: columns, Rows: [][]ir.IRValue{}}
	for rows.Next() {
		raw := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range raw {
			ptrs[i] = &raw[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		row := make([]ir.IRValue, len(columns))
		for i, v := range raw {
			t := ir.TypeNone
			if i < len(types) {
				t = types[i]
			}
			row[i] = fromDriverValue(v, t)
		}
		result.Rows = append(result.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return result, nil
}

// ReadQueries returns the query log for a service with deterministic
// ordering: seq ASC, id ASC.
func (s *Store) ReadQueries(ctx context.Context, service string) ([]QueryRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, service, clause_hash, sql_text, row_count, seq
		FROM queries
		WHERE service = ?
		ORDER BY seq ASC, id COLLATE BINARY ASC
	`, service)
	if err != nil {
		return nil, fmt.Errorf("query log: %w", err)
	}
	defer rows.Close()

	records := []QueryRecord{}
	for rows.Next() {
		rec, err := scanQueryRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate query log: %w", err)
	}
	return records, nil
}

// LastSeq returns the highest seq recorded in the query log, or 0.
// Used to resume the logical clock when a store is reopened.
func (s *Store) LastSeq(ctx context.Context) (int64, error) {
	var seq int64
	err := s.db.QueryRowContext(ctx, `SELECT COALESCE(MAX(seq), 0) FROM queries`).Scan(&seq)
	if err != nil {
		return 0, fmt.Errorf("get last seq: %w", err)
	}
	return seq, nil
}

func scanQueryRecord(rows *sql.Rows) (QueryRecord, error) {
	var rec QueryRecord
	if err := rows.Scan(&rec.ID, &rec.Service, &rec.ClauseHash, &rec.SQL, &rec.RowCount, &rec.Seq); err != nil {
		return QueryRecord{}, fmt.Errorf("scan query record: %w", err)
	}
	return rec, nil
}
