// Package harness provides conformance testing for delegation.
//
// A scenario names a catalog, gives one bound expression, and lists what
// the compile must produce. The harness compiles the expression with the
// query builder hooks, then executes every emitted query against an
// in-memory SQLite store seeded with the scenario's fixture rows.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: filter_pushdown
//	description: "Revenue filter runs on the data source"
//	catalog: ../catalog.cue
//	max_rows: 500
//	expression:
//	  call: Filter
//	  args:
//	    - table: Accounts
//	    - lambda: 1
//	      body: {binary: Gt, left: {field: Revenue, scope: 1}, right: {literal: 100}}
//	rows:
//	  Accounts:
//	    - {AccountId: a1, Name: Contoso, Revenue: 250}
//	assertions:
//	  - type: delegated
//	    value: true
//	  - type: query
//	    index: 0
//	    table: Accounts
//	    sql_contains: 't."Revenue" > ?'
//	    row_count: 1
//
// The expression uses the exprfile format (the canonical dump shape).
//
// # Assertion Types
//
//   - delegated: the compile emitted at least one query, or none
//   - warning: a warning with the key (and arguments) was reported
//   - warning_count: exactly N warnings were reported
//   - query_count: exactly N query nodes were emitted
//   - query: the N-th query's table, SQL text and row count
//   - valid: every query uses only capabilities the catalog declares
//
// # Deterministic Testing
//
// The compile id is fixed to the scenario name, each run gets a fresh
// in-memory database, and SQL row queries always end with a primary-key
// ORDER BY, so snapshots are reproducible for golden file comparison.
package harness
