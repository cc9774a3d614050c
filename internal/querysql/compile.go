package querysql

import (
	"fmt"
	"strings"

	"github.com/roach88/delegation/internal/ir"
	"github.com/roach88/delegation/internal/metadata"
	"github.com/roach88/delegation/internal/queryir"
)

// SQLCompiler compiles decoded remote queries to parameterized SQL for
// SQLite.
//
// CRITICAL: Row queries end with ORDER BY on the primary key after any
// requested sort keys, so results are deterministic.
// CRITICAL: All values are parameterized (never interpolated).
type SQLCompiler struct {
	// Catalog resolves tables, relationships and column kinds.
	Catalog *metadata.Catalog

	// BoundValues holds the values of variables referenced by conditions,
	// keyed by symbol name. Must be set before compilation when the query
	// uses variables.
	BoundValues map[string]any
}

// NewSQLCompiler creates a new SQLCompiler over cat.
func NewSQLCompiler(cat *metadata.Catalog) *SQLCompiler {
	return &SQLCompiler{
		Catalog:     cat,
		BoundValues: make(map[string]any),
	}
}

const mainAlias = "t"

// Compile converts a query to parameterized SQL.
// Returns (sql, params, error) tuple.
func (c *SQLCompiler) Compile(q queryir.Query) (string, []any, error) {
	if q == nil {
		return "", nil, fmt.Errorf("cannot compile nil query")
	}
	table, ok := c.Catalog.Lookup(q.TableName())
	if !ok {
		return "", nil, fmt.Errorf("unknown table %q", q.TableName())
	}

	switch query := q.(type) {
	case *queryir.Retrieve:
		return c.compileRetrieve(table, query)
	case *queryir.RetrieveByKey:
		return c.compileByKey(table, query)
	default:
		return "", nil, fmt.Errorf("unsupported query type: %T", q)
	}
}

func (c *SQLCompiler) compileRetrieve(table *metadata.Table, q *queryir.Retrieve) (string, []any, error) {
	var params []any
	from := fmt.Sprintf("%s AS %s", quoteIdent(table.Name), mainAlias)
	if q.Join != nil {
		joinSQL, err := c.compileJoin(q.Join)
		if err != nil {
			return "", nil, err
		}
		from += joinSQL
	}

	var where string
	if q.Filter != nil {
		filterSQL, filterParams, err := c.compilePredicate(table, q.Filter)
		if err != nil {
			return "", nil, fmt.Errorf("compile filter: %w", err)
		}
		where = " WHERE " + filterSQL
		params = append(params, filterParams...)
	}

	if q.Mode == queryir.ModeCount {
		return fmt.Sprintf("SELECT COUNT(*) AS %s FROM %s%s", quoteIdent(CountColumn), from, where), params, nil
	}

	selectClause, orderKeys := c.compileSelectList(table, q.Descriptor)

	var order []string
	for _, o := range q.OrderBy {
		order = append(order, orderTerm(column(o.Field), o.Descending))
	}
	order = append(order, orderKeys...)

	limit, limitParams, err := c.compileLimit(q)
	if err != nil {
		return "", nil, err
	}
	params = append(params, limitParams...)

	sql := fmt.Sprintf("SELECT %s FROM %s%s", selectClause, from, where)
	if q.GroupBy != nil {
		groups := make([]string, len(q.GroupBy.GroupFields))
		for i, g := range q.GroupBy.GroupFields {
			groups[i] = column(g)
		}
		sql += " GROUP BY " + strings.Join(groups, ", ")
	}
	if len(order) > 0 {
		sql += " ORDER BY " + strings.Join(order, ", ")
	}
	return sql + limit, params, nil
}

// compileSelectList returns the select list and the deterministic
// tiebreaker sort keys for the query's output shape.
func (c *SQLCompiler) compileSelectList(table *metadata.Table, d queryir.Descriptor) (string, []string) {
	switch {
	case d.GroupBy != nil:
		var parts, keys []string
		for i, g := range d.GroupBy.GroupFields {
			parts = append(parts, fmt.Sprintf("%s AS %s", column(g), quoteIdent(d.GroupBy.OutputName(i))))
			keys = append(keys, orderTerm(column(g), false))
		}
		for _, a := range d.GroupBy.Aggregates {
			parts = append(parts, fmt.Sprintf("%s AS %s", aggregateSQL(a), quoteIdent(a.Alias)))
		}
		return strings.Join(parts, ", "), keys

	case hasDistinct(d.Columns):
		var parts, keys []string
		for _, col := range d.Columns {
			parts = append(parts, fmt.Sprintf("%s AS %s", column(col.Source), quoteIdent(col.Name)))
			keys = append(keys, orderTerm(quoteIdent(col.Name), false))
		}
		return "DISTINCT " + strings.Join(parts, ", "), keys
	}

	var parts []string
	if len(d.Columns) > 0 {
		for _, col := range d.Columns {
			// Navigation columns are virtual.
			if c, ok := table.Column(col.Source); ok && c.Kind == ir.KindRecord {
				continue
			}
			parts = append(parts, fmt.Sprintf("%s AS %s", column(col.Source), quoteIdent(col.Name)))
		}
	} else {
		for _, name := range StoredColumns(table) {
			parts = append(parts, fmt.Sprintf("%s AS %s", column(name), quoteIdent(name)))
		}
	}
	if j := d.Join; j != nil {
		for _, col := range j.ForeignColumns {
			parts = append(parts, fmt.Sprintf("%s.%s AS %s", quoteIdent(j.ForeignAlias), quoteIdent(col.Source), quoteIdent(col.Name)))
		}
	}
	var keys []string
	for _, k := range table.RowKey() {
		keys = append(keys, orderTerm(column(k), false))
	}
	return strings.Join(parts, ", "), keys
}

func (c *SQLCompiler) compileJoin(j *queryir.Join) (string, error) {
	foreign, ok := c.Catalog.Lookup(j.ForeignTable)
	if !ok {
		return "", fmt.Errorf("unknown join table %q", j.ForeignTable)
	}
	kind := map[string]string{"inner": "INNER", "left": "LEFT", "right": "RIGHT", "full": "FULL"}[j.Kind]
	if kind == "" {
		return "", fmt.Errorf("unsupported join kind %q", j.Kind)
	}
	return fmt.Sprintf(" %s JOIN %s AS %s ON %s = %s.%s",
		kind,
		quoteIdent(foreign.Name),
		quoteIdent(j.ForeignAlias),
		column(j.SourceAttribute),
		quoteIdent(j.ForeignAlias),
		quoteIdent(j.ForeignAttribute),
	), nil
}

// compileLimit caps row queries at the smaller of the top count and the
// row limit. A negative top count returns no rows; a fractional one is
// truncated.
func (c *SQLCompiler) compileLimit(q *queryir.Retrieve) (string, []any, error) {
	if q.Mode == queryir.ModeSingle {
		return " LIMIT 1", nil, nil
	}
	if q.Top != nil {
		v, err := c.eval(q.Top)
		if err != nil {
			return "", nil, fmt.Errorf("compile top: %w", err)
		}
		n, ok := v.(ir.Number)
		if !ok {
			return "", nil, fmt.Errorf("compile top: %s is not a number", ir.Format(q.Top))
		}
		top := max(int64(n), 0)
		if q.MaxRows > 0 {
			top = min(top, int64(q.MaxRows))
		}
		return " LIMIT ?", []any{top}, nil
	}
	if q.MaxRows > 0 {
		return fmt.Sprintf(" LIMIT %d", q.MaxRows), nil, nil
	}
	return "", nil, nil
}

func (c *SQLCompiler) compileByKey(table *metadata.Table, q *queryir.RetrieveByKey) (string, []any, error) {
	pk, ok := table.SinglePrimaryKey()
	if !ok {
		return "", nil, fmt.Errorf("table %q has no single-column primary key", table.Name)
	}
	id, err := c.evalValue(q.ID)
	if err != nil {
		return "", nil, fmt.Errorf("compile id: %w", err)
	}
	params := []any{id}
	where := fmt.Sprintf("%s = ?", column(pk))
	if q.Partition != nil {
		if !table.IsElastic() {
			return "", nil, fmt.Errorf("table %q has no partition key", table.Name)
		}
		part, err := c.evalValue(q.Partition)
		if err != nil {
			return "", nil, fmt.Errorf("compile partition: %w", err)
		}
		where += fmt.Sprintf(" AND %s = ?", column(table.PartitionKey))
		params = append(params, part)
	}
	selectClause, _ := c.compileSelectList(table, q.Descriptor)
	return fmt.Sprintf("SELECT %s FROM %s AS %s WHERE %s LIMIT 1",
		selectClause, quoteIdent(table.Name), mainAlias, where), params, nil
}

// compilePredicate compiles a predicate to a WHERE clause fragment.
// CRITICAL: Values NEVER interpolated - always use ? placeholders.
func (c *SQLCompiler) compilePredicate(table *metadata.Table, p queryir.Predicate) (string, []any, error) {
	switch pred := p.(type) {
	case *queryir.Compare:
		return c.onField(table, pred.Field, func(col string, kind ir.Kind) (string, []any, error) {
			v, err := c.evalValue(pred.Value)
			if err != nil {
				return "", nil, err
			}
			expr := fieldExpr(col, pred.Field.Function)
			if pred.Op == queryir.OpNe {
				// Blank is unequal to every value.
				return fmt.Sprintf("(%s <> ? OR %s IS NULL)", expr, col), []any{v}, nil
			}
			return fmt.Sprintf("%s %s ?", expr, sqlOps[pred.Op]), []any{v}, nil
		})
	case *queryir.IsNull:
		return c.onField(table, pred.Field, func(col string, kind ir.Kind) (string, []any, error) {
			if kind == ir.KindString {
				return fmt.Sprintf("(%s IS NULL OR %s = '')", col, col), nil, nil
			}
			return fmt.Sprintf("%s IS NULL", col), nil, nil
		})
	case *queryir.TextMatch:
		return c.onField(table, pred.Field, func(col string, kind ir.Kind) (string, []any, error) {
			v, err := c.evalValue(pred.Value)
			if err != nil {
				return "", nil, err
			}
			text, _ := v.(string)
			pattern := escapeLike(text) + "%"
			if pred.Suffix {
				pattern = "%" + escapeLike(text)
			}
			return fmt.Sprintf("%s LIKE ? ESCAPE '\\'", col), []any{pattern}, nil
		})
	case *queryir.And:
		return c.compileConnective(table, " AND ", "1 = 1", pred.Predicates)
	case *queryir.Or:
		return c.compileConnective(table, " OR ", "1 = 0", pred.Predicates)
	case *queryir.Not:
		inner, params, err := c.compilePredicate(table, pred.Predicate)
		if err != nil {
			return "", nil, err
		}
		return "NOT (" + inner + ")", params, nil
	default:
		return "", nil, fmt.Errorf("unsupported predicate type: %T", p)
	}
}

func (c *SQLCompiler) compileConnective(table *metadata.Table, sep, empty string, preds []queryir.Predicate) (string, []any, error) {
	if len(preds) == 0 {
		return empty, nil, nil
	}
	var parts []string
	var params []any
	for _, p := range preds {
		sql, ps, err := c.compilePredicate(table, p)
		if err != nil {
			return "", nil, err
		}
		parts = append(parts, sql)
		params = append(params, ps...)
	}
	return "(" + strings.Join(parts, sep) + ")", params, nil
}

// onField resolves the column a condition tests and wraps the condition in
// an EXISTS over the target table when the field is reached through a
// relationship.
func (c *SQLCompiler) onField(table *metadata.Table, f queryir.FieldSpec, cond func(col string, kind ir.Kind) (string, []any, error)) (string, []any, error) {
	if f.Relation == nil {
		col, ok := table.Column(f.Name)
		if !ok {
			return "", nil, fmt.Errorf("unknown column %s.%s", table.Name, f.Name)
		}
		return cond(column(f.Name), col.Kind)
	}

	rel, ok := table.Relationship(f.Relation.Field)
	if !ok || rel.TargetTable() == nil {
		return "", nil, fmt.Errorf("unknown relationship %s.%s", table.Name, f.Relation.Field)
	}
	target := rel.TargetTable()
	col, ok := target.Column(f.Name)
	if !ok {
		return "", nil, fmt.Errorf("unknown column %s.%s", target.Name, f.Name)
	}
	alias := "r_" + f.Relation.Field
	inner, params, err := cond(fmt.Sprintf("%s.%s", quoteIdent(alias), quoteIdent(f.Name)), col.Kind)
	if err != nil {
		return "", nil, err
	}
	return fmt.Sprintf("EXISTS (SELECT 1 FROM %s AS %s WHERE %s.%s = %s AND %s)",
		quoteIdent(target.Name), quoteIdent(alias),
		quoteIdent(alias), quoteIdent(rel.TargetKey), column(rel.LocalKey),
		inner), params, nil
}

var sqlOps = map[queryir.Op]string{
	queryir.OpEq: "=",
	queryir.OpNe: "<>",
	queryir.OpLt: "<",
	queryir.OpLe: "<=",
	queryir.OpGt: ">",
	queryir.OpGe: ">=",
}

var datePartFormats = map[string]string{
	metadata.FuncYear:   "%Y",
	metadata.FuncMonth:  "%m",
	metadata.FuncDay:    "%d",
	metadata.FuncHour:   "%H",
	metadata.FuncMinute: "%M",
	metadata.FuncSecond: "%S",
}

func fieldExpr(col, function string) string {
	if format, ok := datePartFormats[function]; ok {
		return fmt.Sprintf("CAST(strftime('%s', %s) AS INTEGER)", format, col)
	}
	return col
}

func aggregateSQL(a queryir.Aggregate) string {
	switch metadata.AggregateKind(a.Kind) {
	case metadata.AggSum:
		return "SUM(" + column(a.Source) + ")"
	case metadata.AggAverage:
		return "AVG(" + column(a.Source) + ")"
	case metadata.AggMin:
		return "MIN(" + column(a.Source) + ")"
	case metadata.AggMax:
		return "MAX(" + column(a.Source) + ")"
	case metadata.AggCount:
		return "COUNT(" + column(a.Source) + ")"
	default:
		return "COUNT(*)"
	}
}

// StoredColumns lists the columns of table that have storage. Lookup
// navigation columns are virtual; their foreign keys are stored columns of
// their own.
func StoredColumns(table *metadata.Table) []string {
	var out []string
	for _, col := range table.Columns {
		if col.Kind != ir.KindRecord {
			out = append(out, col.Name)
		}
	}
	return out
}

func hasDistinct(cols []queryir.Column) bool {
	for _, c := range cols {
		if c.Distinct {
			return true
		}
	}
	return false
}

// orderTerm renders one ORDER BY term. COLLATE BINARY keeps text ordering
// stable across SQLite versions.
func orderTerm(expr string, descending bool) string {
	if descending {
		return expr + " COLLATE BINARY DESC"
	}
	return expr + " COLLATE BINARY ASC"
}

func column(name string) string {
	return mainAlias + "." + quoteIdent(name)
}

// QuoteIdent quotes an SQL identifier.
func QuoteIdent(name string) string { return quoteIdent(name) }

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
