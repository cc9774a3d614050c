package delegation

import (
	"slices"

	"github.com/roach88/delegation/internal/ir"
)

// processShowColumns delegates ShowColumns(table, "col", ...) as a
// projection.
func processShowColumns(r *rewriter, call *ir.Call, table *RetVal, ctx Context) *RetVal {
	names, ab := columnNameArgs(call.Args[1:], table)
	if ab != nil {
		return r.abandon(call, table, ctx, ab)
	}
	cols, ok := IdentityColumns(names...)
	if !ok {
		return r.abandon(call, table, ctx, nil)
	}
	return r.project(call, table, ctx, cols)
}

// processDropColumns delegates DropColumns(table, "col", ...) as a
// projection of the remaining columns.
func processDropColumns(r *rewriter, call *ir.Call, table *RetVal, ctx Context) *RetVal {
	dropped, ab := columnNameArgs(call.Args[1:], table)
	if ab != nil {
		return r.abandon(call, table, ctx, ab)
	}
	var keep []string
	for _, name := range table.TableType().FieldNames() {
		if !slices.Contains(dropped, name) {
			keep = append(keep, name)
		}
	}
	cols, ok := IdentityColumns(keep...)
	if !ok {
		return r.abandon(call, table, ctx, nil)
	}
	return r.project(call, table, ctx, cols)
}

// processRenameColumns delegates RenameColumns(table, "old", "new", ...).
// Renamed columns keep their position.
func processRenameColumns(r *rewriter, call *ir.Call, table *RetVal, ctx Context) *RetVal {
	args := call.Args[1:]
	if len(args) == 0 || len(args)%2 != 0 {
		return r.abandon(call, table, ctx, nil)
	}
	renames := make(map[string]string, len(args)/2)
	for i := 0; i < len(args); i += 2 {
		oldName, ok1 := ir.StringLiteral(args[i])
		newName, ok2 := ir.StringLiteral(args[i+1])
		if !ok1 || !ok2 {
			return r.abandon(call, table, ctx, nil)
		}
		if _, ok := table.TableType().FieldByName(oldName); !ok {
			return r.abandon(call, table, ctx, &abandonment{key: WarnUnknownColumn, args: []any{oldName}})
		}
		if _, dup := renames[oldName]; dup {
			return r.abandon(call, table, ctx, &abandonment{key: WarnDuplicateColumn, args: []any{oldName}})
		}
		renames[oldName] = newName
	}

	names := table.TableType().FieldNames()
	cols := make([]ColumnInfo, 0, len(names))
	seen := make(map[string]bool, len(names))
	for _, name := range names {
		out := name
		if renamed, ok := renames[name]; ok {
			out = renamed
		}
		if seen[out] {
			return r.abandon(call, table, ctx, &abandonment{key: WarnDuplicateColumn, args: []any{out}})
		}
		seen[out] = true
		cols = append(cols, ColumnInfo{Name: out, Source: name})
	}
	cm, _ := NewColumnMap(cols...)
	return r.project(call, table, ctx, cm)
}

// processDistinct delegates Distinct(table, column).
func processDistinct(r *rewriter, call *ir.Call, table *RetVal, ctx Context) *RetVal {
	if len(call.Args) != 2 {
		return r.abandon(call, table, ctx, nil)
	}
	if !table.Metadata().Capabilities.Distinct {
		return r.abandon(call, table, ctx, capabilityMissing("distinct"))
	}
	lambda, ok := call.Args[1].(*ir.Lambda)
	if !ok {
		return r.abandon(call, table, ctx, nil)
	}
	ref, ok := lambda.Body.(*ir.ScopeRef)
	if !ok || ref.Scope != lambda.Scope || ref.IsWholeRecord() {
		return r.abandon(call, table, ctx, nil)
	}
	field, ok := table.TableType().FieldByName(ref.Field)
	if !ok || !field.Type.Kind.IsPrimitive() {
		return r.abandon(call, table, ctx, nil)
	}
	out, ok := table.AddDistinct(ref.Field)
	if !ok {
		return r.abandon(call, table, ctx, nil)
	}
	return out
}

func (r *rewriter) project(call *ir.Call, table *RetVal, ctx Context, cols *ColumnMap) *RetVal {
	out, ok := table.AddColumns(cols)
	if !ok {
		return r.abandon(call, table, ctx, nil)
	}
	return out
}

// columnNameArgs reads literal column names that must all exist in the
// table's current schema and be distinct.
func columnNameArgs(args []ir.Node, table *RetVal) ([]string, *abandonment) {
	if len(args) == 0 {
		return nil, notDelegable()
	}
	names := make([]string, 0, len(args))
	for _, a := range args {
		name, ok := ir.StringLiteral(a)
		if !ok {
			return nil, notDelegable()
		}
		if _, ok := table.TableType().FieldByName(name); !ok {
			return nil, &abandonment{key: WarnUnknownColumn, args: []any{name}}
		}
		if slices.Contains(names, name) {
			return nil, &abandonment{key: WarnDuplicateColumn, args: []any{name}}
		}
		names = append(names, name)
	}
	return names, nil
}
