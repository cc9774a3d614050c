package queryir

import "strings"

// ReservedPrefix marks function names that only the query builder emits.
// Formula authors cannot call them.
const ReservedPrefix = "__"

// Query node functions.
const (
	FuncRetrieveMultiple = "__retrieveMultiple"
	FuncRetrieveSingle   = "__retrieveSingle"
	FuncCountRows        = "__countRows"
	FuncRetrieveGUID     = "__retrieveGUID"
	FuncRetrieveElastic  = "__retrieveElastic"
)

// Predicate node functions.
const (
	FuncEq         = "__eq"
	FuncNe         = "__ne"
	FuncLt         = "__lt"
	FuncLe         = "__le"
	FuncGt         = "__gt"
	FuncGe         = "__ge"
	FuncAnd        = "__and"
	FuncOr         = "__or"
	FuncNot        = "__not"
	FuncIsNull     = "__null"
	FuncStartsWith = "__startsWith"
	FuncEndsWith   = "__endsWith"
)

// IsReserved reports whether name belongs to the query builder.
func IsReserved(name string) bool {
	return strings.HasPrefix(name, ReservedPrefix)
}

// IsQueryFunc reports whether name denotes a query node.
func IsQueryFunc(name string) bool {
	switch name {
	case FuncRetrieveMultiple, FuncRetrieveSingle, FuncCountRows, FuncRetrieveGUID, FuncRetrieveElastic:
		return true
	}
	return false
}
