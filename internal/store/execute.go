package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/roach88/delegation/internal/ir"
	"github.com/roach88/delegation/internal/queryir"
	"github.com/roach88/delegation/internal/querysql"
)

// Result holds the rows returned by one remote query, with columns in
// select-list order.
type Result struct {
	Columns []string
	Rows    [][]ir.Value
}

// Records returns the rows as column-name maps.
func (r *Result) Records() []map[string]ir.Value {
	out := make([]map[string]ir.Value, len(r.Rows))
	for i, row := range r.Rows {
		rec := make(map[string]ir.Value, len(r.Columns))
		for j, c := range r.Columns {
			rec[c] = row[j]
		}
		out[i] = rec
	}
	return out
}

// Count returns the value of a count query.
func (r *Result) Count() (int, bool) {
	if len(r.Rows) != 1 || len(r.Rows[0]) != 1 {
		return 0, false
	}
	n, ok := r.Rows[0][0].(ir.Number)
	return int(n), ok
}

// ExecuteNode decodes a query node and executes it.
func (s *Store) ExecuteNode(ctx context.Context, c *querysql.SQLCompiler, n ir.Node) (*Result, error) {
	q, err := queryir.FromNode(n)
	if err != nil {
		return nil, err
	}
	return s.Execute(ctx, c, q)
}

// Execute compiles q with c and runs it. The statement is prepared once
// per distinct SQL text and reused. Every execution is appended to the
// query log.
func (s *Store) Execute(ctx context.Context, c *querysql.SQLCompiler, q queryir.Query) (*Result, error) {
	text, params, err := c.Compile(q)
	if err != nil {
		return nil, fmt.Errorf("compile query: %w", err)
	}
	fp, err := ir.FingerprintDocument(map[string]any{"sql": text})
	if err != nil {
		return nil, err
	}
	stmt, err := s.prepare(ctx, fp, text)
	if err != nil {
		return nil, err
	}

	rows, err := stmt.QueryContext(ctx, params...)
	if err != nil {
		return nil, fmt.Errorf("execute query on %q: %w", q.TableName(), err)
	}
	res, err := scanRows(rows, c.OutputKinds(q))
	if err != nil {
		return nil, err
	}

	if err := s.logQuery(ctx, fp, q.TableName(), text, params, len(res.Rows)); err != nil {
		return nil, err
	}
	return res, nil
}

// prepare returns the cached statement for fp, preparing it on first use.
func (s *Store) prepare(ctx context.Context, fp, text string) (*sql.Stmt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if stmt, ok := s.stmts[fp]; ok {
		return stmt, nil
	}
	stmt, err := s.db.PrepareContext(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("prepare %q: %w", text, err)
	}
	s.stmts[fp] = stmt
	return stmt, nil
}

// CachedStatements returns the number of prepared statements held.
func (s *Store) CachedStatements() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.stmts)
}

func scanRows(rows *sql.Rows, kinds map[string]ir.Kind) (*Result, error) {
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("read columns: %w", err)
	}
	res := &Result{Columns: cols, Rows: [][]ir.Value{}}
	for rows.Next() {
		raw := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range raw {
			ptrs[i] = &raw[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		row := make([]ir.Value, len(cols))
		for i, c := range cols {
			v, err := fromSQL(raw[i], kinds[c])
			if err != nil {
				return nil, fmt.Errorf("column %q: %w", c, err)
			}
			row[i] = v
		}
		res.Rows = append(res.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return res, nil
}

// fromSQL converts a raw driver value to a value of the given kind.
// Unknown kinds fall back to the natural mapping of the driver type.
func fromSQL(raw any, kind ir.Kind) (ir.Value, error) {
	if raw == nil {
		return ir.Blank{}, nil
	}
	if b, ok := raw.([]byte); ok {
		raw = string(b)
	}
	switch kind {
	case ir.KindBoolean:
		switch v := raw.(type) {
		case int64:
			return ir.Bool(v != 0), nil
		case bool:
			return ir.Bool(v), nil
		}
	case ir.KindDate, ir.KindDateTime:
		switch v := raw.(type) {
		case string:
			if kind == ir.KindDate && len(v) > len("2006-01-02") {
				v = v[:len("2006-01-02")]
			}
			return ir.ParseValue(kind, v)
		case time.Time:
			if kind == ir.KindDate {
				return ir.NewDate(v.Year(), v.Month(), v.Day()), nil
			}
			return ir.DateTime(v.UTC()), nil
		}
	case ir.KindGuid:
		if v, ok := raw.(string); ok {
			return ir.Guid(v), nil
		}
	}

	switch v := raw.(type) {
	case int64:
		return ir.Number(v), nil
	case float64:
		return ir.Number(v), nil
	case string:
		return ir.String(v), nil
	case bool:
		return ir.Bool(v), nil
	default:
		return nil, fmt.Errorf("unsupported driver value %T", raw)
	}
}
