package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"
	"strings"

	sqlite3 "github.com/mattn/go-sqlite3"
)

// ErrReadOnly is returned by Query for statements that would modify the
// snapshot.
var ErrReadOnly = errors.New("snapshot is read-only")

// Row is one result row of Query keyed by column name. Values are int64,
// float64, string or nil.
type Row map[string]any

// Tables returns the names of the snapshot tables, sorted.
func Tables() []string {
	out := append([]string{"metadata"}, tables...)
	slices.Sort(out)
	return out
}

// Query runs a SELECT (or WITH ... SELECT) against the snapshot. The
// statement runs in its own transaction on a connection switched to
// query_only, so anything that would write fails with ErrReadOnly and the
// snapshot is left untouched.
func (s *Store) Query(ctx context.Context, query string, args ...any) ([]Row, error) {
	head := strings.ToUpper(strings.TrimSpace(query))
	if !strings.HasPrefix(head, "SELECT") && !strings.HasPrefix(head, "WITH") {
		return nil, fmt.Errorf("query: %w: only SELECT statements are allowed", ErrReadOnly)
	}

	conn, err := s.db.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer conn.Close()
	if _, err := conn.ExecContext(ctx, "PRAGMA query_only = ON"); err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer conn.ExecContext(context.Background(), "PRAGMA query_only = OFF")

	tx, err := conn.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return nil, fmt.Errorf("query: begin: %w", err)
	}
	defer tx.Rollback()

	rows, err := tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, queryErr(err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("query: columns: %w", err)
	}
	out := []Row{}
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("query: scan: %w", err)
		}
		row := make(Row, len(cols))
		for i, col := range cols {
			if b, ok := values[i].([]byte); ok {
				values[i] = string(b)
			}
			row[col] = values[i]
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, queryErr(err)
	}
	return out, nil
}

func queryErr(err error) error {
	var serr sqlite3.Error
	if errors.As(err, &serr) && serr.Code == sqlite3.ErrReadonly {
		return fmt.Errorf("query: %w", ErrReadOnly)
	}
	return fmt.Errorf("query: %w", err)
}
