package store

import (
	"context"
	"fmt"

	"github.com/roach88/delegation/internal/ir"
)

// LoggedQuery is one executed remote query.
type LoggedQuery struct {
	Seq         int64
	Fingerprint string
	Table       string
	SQL         string
	Params      string
	RowCount    int
}

func (s *Store) logQuery(ctx context.Context, fp, table, text string, params []any, rowCount int) error {
	encoded, err := ir.MarshalCanonical(append([]any{}, params...))
	if err != nil {
		return fmt.Errorf("encode params: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO _query_log (fingerprint, table_name, sql_text, params, row_count)
		VALUES (?, ?, ?, ?, ?)
	`, fp, table, text, string(encoded), rowCount)
	if err != nil {
		return fmt.Errorf("log query: %w", err)
	}
	return nil
}

// QueryLog returns every executed query in execution order.
// Results are ordered by seq ASC for deterministic replay.
func (s *Store) QueryLog(ctx context.Context) ([]LoggedQuery, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT seq, fingerprint, table_name, sql_text, params, row_count
		FROM _query_log
		ORDER BY seq ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query log: %w", err)
	}
	defer rows.Close()

	var out []LoggedQuery
	for rows.Next() {
		var q LoggedQuery
		if err := rows.Scan(&q.Seq, &q.Fingerprint, &q.Table, &q.SQL, &q.Params, &q.RowCount); err != nil {
			return nil, fmt.Errorf("scan query log: %w", err)
		}
		out = append(out, q)
	}
	return out, rows.Err()
}
