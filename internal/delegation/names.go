package delegation

import "strings"

// Function names the rewriter recognizes.
const (
	fnFilter        = "Filter"
	fnLookUp        = "LookUp"
	fnFirst         = "First"
	fnFirstN        = "FirstN"
	fnSort          = "Sort"
	fnSortByColumns = "SortByColumns"
	fnShowColumns   = "ShowColumns"
	fnRenameColumns = "RenameColumns"
	fnDropColumns   = "DropColumns"
	fnDistinct      = "Distinct"
	fnSummarize     = "Summarize"
	fnJoin          = "Join"
	fnCountRows     = "CountRows"
	fnCountIf       = "CountIf"
	fnWith          = "With"

	fnAnd        = "And"
	fnOr         = "Or"
	fnNot        = "Not"
	fnIsBlank    = "IsBlank"
	fnStartsWith = "StartsWith"
	fnEndsWith   = "EndsWith"

	fnSum     = "Sum"
	fnAverage = "Average"
	fnMin     = "Min"
	fnMax     = "Max"
	fnCountA  = "CountA"
)

// Names of the fields a Summarize or Join lambda reads from its record.
const (
	thisGroup   = "ThisGroup"
	leftRecord  = "LeftRecord"
	rightRecord = "RightRecord"
)

// mutationFunctions modify their first argument; that argument names the
// target data source and must not be turned into a query.
var mutationFunctions = map[string]bool{
	"Patch":        true,
	"Collect":      true,
	"ClearCollect": true,
	"Clear":        true,
	"Remove":       true,
	"RemoveIf":     true,
	"UpdateIf":     true,
}

// behaviorFunctions have side effects and can never run remotely.
var behaviorFunctions = map[string]bool{
	"Set":           true,
	"UpdateContext": true,
	"Navigate":      true,
	"Notify":        true,
	"Refresh":       true,
	"Launch":        true,
	"Reset":         true,
	"SubmitForm":    true,
}

func isBehaviorFunction(name string) bool {
	return behaviorFunctions[name] || mutationFunctions[name]
}

// normalizeEnumName lowercases s and strips an "Enum." prefix.
func normalizeEnumName(s, enum string) string {
	s = strings.TrimPrefix(s, enum+".")
	return strings.ToLower(s)
}
