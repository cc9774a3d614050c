// Package store is a SQLite-backed reference data source for delegated
// queries.
//
// It plays the remote side of delegation in tests, golden scenarios and the
// CLI: catalog tables are created as SQLite tables, fixtures are inserted,
// and decoded queries are compiled by internal/querysql and executed here.
// Every executed query is appended to a query log so callers can assert what
// actually ran remotely.
//
// # Critical Patterns
//
// Deterministic results:
//   - Row queries always end with ORDER BY on the primary key
//   - Query log reads use ORDER BY seq ASC
//
// Statement reuse:
//   - Prepared statements are cached by the fingerprint of their SQL text
//   - Fingerprints use ir.FingerprintDocument (RFC 8785 + SHA-256)
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
