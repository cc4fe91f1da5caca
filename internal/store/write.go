package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/roach88/dataservice/internal/ir"
)

// ErrServiceConflict is returned when a service name is registered twice
// with different definitions.
var ErrServiceConflict = errors.New("service already registered with a different definition")

// QueryRecord is one entry of the query log.
type QueryRecord struct {
	ID         string
	Service    string
	ClauseHash string
	SQL        string
	RowCount   int64
	Seq        int64
}

// RegisterService creates the backing table for a service and records its
// definition in the registry.
//
// Registering the same definition again is a no-op. Registering a different
// definition under an existing name returns ErrServiceConflict.
func (s *Store) RegisterService(ctx context.Context, spec ir.ServiceSpec) error {
	if spec.Name == "" {
		return fmt.Errorf("register service: empty service name")
	}
	if len(spec.Columns) == 0 {
		return fmt.Errorf("register service %q: no columns", spec.Name)
	}

	specJSON, hash, err := marshalSpec(spec)
	if err != nil {
		return fmt.Errorf("register service: %w", err)
	}

	var existing string
	err = s.db.QueryRowContext(ctx, `SELECT spec_hash FROM services WHERE name = ?`, spec.Name).Scan(&existing)
	switch {
	case err == nil:
		if existing != hash {
			return fmt.Errorf("register service %q: %w", spec.Name, ErrServiceConflict)
		}
		return nil
	case !errors.Is(err, sql.ErrNoRows):
		return fmt.Errorf("register service %q: %w", spec.Name, err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("register service %q: %w", spec.Name, err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, createTableSQL(spec)); err != nil {
		return fmt.Errorf("register service %q: create table: %w", spec.Name, err)
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO services (name, table_name, spec_json, spec_hash)
		VALUES (?, ?, ?, ?)
	`, spec.Name, spec.TableName(), specJSON, hash)
	if err != nil {
		return fmt.Errorf("register service %q: %w", spec.Name, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("register service %q: %w", spec.Name, err)
	}
	s.logger.Debug("service registered", "service", spec.Name, "table", spec.TableName())
	return nil
}

// InsertRows appends rows to a registered service's table in one
// transaction. Each row maps column names to values; absent columns are
// stored as NULL and unknown columns are an error. Returns the number of
// rows written.
func (s *Store) InsertRows(ctx context.Context, spec ir.ServiceSpec, rows []ir.IRObject) (int, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	schema := spec.Schema()
	columns := schema.Columns()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("insert rows into %q: %w", spec.Name, err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, insertSQL(spec))
	if err != nil {
		return 0, fmt.Errorf("insert rows into %q: %w", spec.Name, err)
	}
	defer stmt.Close()

	for i, row := range rows {
		for _, key := range row.SortedKeys() {
			if _, ok := schema.Column(key); !ok {
				return 0, fmt.Errorf("insert rows into %q: row %d: unknown column %q", spec.Name, i, key)
			}
		}
		args := make([]any, len(columns))
		for j, col := range columns {
			v, err := toDriverValue(row[col.Name], col.Type)
			if err != nil {
				return 0, fmt.Errorf("insert rows into %q: row %d: column %q: %w", spec.Name, i, col.Name, err)
			}
			args[j] = v
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return 0, fmt.Errorf("insert rows into %q: row %d: %w", spec.Name, i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("insert rows into %q: %w", spec.Name, err)
	}
	s.logger.Debug("rows inserted", "service", spec.Name, "rows", len(rows))
	return len(rows), nil
}

// RecordQuery appends an executed query to the log.
// Uses ON CONFLICT(id) DO NOTHING so a retried write is harmless.
func (s *Store) RecordQuery(ctx context.Context, rec QueryRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO queries (id, service, clause_hash, sql_text, row_count, seq)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`, rec.ID, rec.Service, rec.ClauseHash, rec.SQL, rec.RowCount, rec.Seq)
	if err != nil {
		return fmt.Errorf("record query: %w", err)
	}
	return nil
}

func createTableSQL(spec ir.ServiceSpec) string {
	defs := make([]string, len(spec.Columns))
	for i, c := range spec.Columns {
		defs[i] = quoteIdentifier(c.Name) + " " + columnAffinity(c.Type)
	}
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)",
		quoteIdentifier(spec.TableName()), strings.Join(defs, ", "))
}

func insertSQL(spec ir.ServiceSpec) string {
	names := make([]string, len(spec.Columns))
	marks := make([]string, len(spec.Columns))
	for i, c := range spec.Columns {
		names[i] = quoteIdentifier(c.Name)
		marks[i] = "?"
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		quoteIdentifier(spec.TableName()), strings.Join(names, ", "), strings.Join(marks, ", "))
}

// quoteIdentifier double-quotes a SQLite identifier, doubling embedded quotes.
func quoteIdentifier(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
