package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/roach88/delegation/internal/ir"
	"github.com/roach88/delegation/internal/metadata"
	"github.com/roach88/delegation/internal/querysql"
)

// sqlTypes maps column kinds to SQLite declared types. Dates are TEXT so
// the driver hands them back as strings, never as time.Time.
var sqlTypes = map[ir.Kind]string{
	ir.KindBoolean:  "INTEGER",
	ir.KindNumber:   "REAL",
	ir.KindString:   "TEXT",
	ir.KindDate:     "TEXT",
	ir.KindDateTime: "TEXT",
	ir.KindGuid:     "TEXT",
}

// CreateTables creates a SQLite table for every table of cat.
func (s *Store) CreateTables(ctx context.Context, cat *metadata.Catalog) error {
	for _, t := range cat.Tables() {
		if err := s.CreateTable(ctx, t); err != nil {
			return err
		}
	}
	return nil
}

// CreateTable creates the SQLite table backing t and records its spec
// hash. Calling it again for an unchanged table is a no-op; a changed
// definition under the same name is an error.
func (s *Store) CreateTable(ctx context.Context, t *metadata.Table) error {
	hash, err := specHash(t)
	if err != nil {
		return err
	}

	var existing string
	err = s.db.QueryRowContext(ctx, "SELECT spec_hash FROM _tables WHERE name = ?", t.Name).Scan(&existing)
	switch {
	case err == nil:
		if existing != hash {
			return fmt.Errorf("table %q already exists with a different definition", t.Name)
		}
		return nil
	case !errors.Is(err, sql.ErrNoRows):
		return fmt.Errorf("look up table %q: %w", t.Name, err)
	}

	var defs []string
	for _, name := range querysql.StoredColumns(t) {
		col, _ := t.Column(name)
		typ, ok := sqlTypes[col.Kind]
		if !ok {
			return fmt.Errorf("column %s.%s: kind %s has no storage", t.Name, name, col.Kind)
		}
		defs = append(defs, fmt.Sprintf("%s %s", querysql.QuoteIdent(name), typ))
	}
	if rowKey := t.RowKey(); len(rowKey) > 0 {
		keys := make([]string, len(rowKey))
		for i, k := range rowKey {
			keys[i] = querysql.QuoteIdent(k)
		}
		defs = append(defs, fmt.Sprintf("PRIMARY KEY (%s)", strings.Join(keys, ", ")))
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	ddl := fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", querysql.QuoteIdent(t.Name), strings.Join(defs, ", "))
	if _, err := tx.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("create table %q: %w", t.Name, err)
	}
	if _, err := tx.ExecContext(ctx, "INSERT INTO _tables (name, spec_hash) VALUES (?, ?)", t.Name, hash); err != nil {
		return fmt.Errorf("record table %q: %w", t.Name, err)
	}
	return tx.Commit()
}

// Insert writes rows into table in one transaction. Each row maps column
// names to values; missing columns are stored as NULL.
func (s *Store) Insert(ctx context.Context, t *metadata.Table, rows []map[string]ir.Value) error {
	cols := querysql.StoredColumns(t)
	quoted := make([]string, len(cols))
	marks := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = querysql.QuoteIdent(c)
		marks[i] = "?"
	}
	stmt := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		querysql.QuoteIdent(t.Name), strings.Join(quoted, ", "), strings.Join(marks, ", "))

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	for i, row := range rows {
		for name := range row {
			if col, ok := t.Column(name); !ok || col.Kind == ir.KindRecord {
				return fmt.Errorf("row %d: %s has no stored column %q", i, t.Name, name)
			}
		}
		args := make([]any, len(cols))
		for j, c := range cols {
			v, ok := row[c]
			if !ok {
				v = ir.Blank{}
			}
			args[j] = querysql.ToParam(v)
		}
		if _, err := tx.ExecContext(ctx, stmt, args...); err != nil {
			return fmt.Errorf("insert row %d into %q: %w", i, t.Name, err)
		}
	}
	return tx.Commit()
}

// specHash fingerprints the storage-relevant part of a table definition.
func specHash(t *metadata.Table) (string, error) {
	var cols []any
	for _, name := range querysql.StoredColumns(t) {
		col, _ := t.Column(name)
		cols = append(cols, map[string]any{"name": name, "kind": col.Kind.String()})
	}
	doc := map[string]any{
		"name":        t.Name,
		"columns":     cols,
		"primary_key": t.RowKey(),
	}
	hash, err := ir.FingerprintDocument(doc)
	if err != nil {
		return "", fmt.Errorf("hash table %q: %w", t.Name, err)
	}
	return hash, nil
}
