package delegation

import (
	"fmt"

	"github.com/roach88/delegation/internal/ir"
)

// WarningKey is the resource key of a delegation diagnostic. Keys are stable
// identifiers; hosts localize them, Message renders the English text.
type WarningKey string

const (
	// WarnNotDelegable: an operation over a delegable table could not be
	// translated and will run locally. Args: function, max rows.
	WarnNotDelegable WarningKey = "WrnDelegationNotSupported"

	// WarnCapability: the table does not declare the capability the operation
	// needs. Args: function, capability, max rows.
	WarnCapability WarningKey = "WrnDelegationCapability"

	// WarnRowLimit: a delegable table is pulled into memory by a function that
	// cannot be delegated; only the first rows are seen. Args: function, max rows.
	WarnRowLimit WarningKey = "WrnDelegationRowLimit"

	// WarnBehaviorFunction: the predicate calls a side-effecting function.
	// Args: function, behavior function.
	WarnBehaviorFunction WarningKey = "WrnDelegationBehaviorFunction"

	// WarnThisRecord: the predicate references the whole current record.
	// Args: function.
	WarnThisRecord WarningKey = "WrnDelegationThisRecord"

	// WarnFieldComparison: the predicate compares a field with another field
	// or an expression over fields of the same row. Args: function.
	WarnFieldComparison WarningKey = "WrnDelegationFieldComparison"

	// WarnLikelyTypo: a field is compared with itself, e.g. Id = Id.
	// Args: field.
	WarnLikelyTypo WarningKey = "WrnDelegationLikelyTypo"

	// WarnDuplicateColumn: a projection names the same output column twice.
	// Args: function, column.
	WarnDuplicateColumn WarningKey = "WrnDelegationDuplicateColumn"

	// WarnUnknownColumn: a projection names a column the table does not have.
	// Args: function, column.
	WarnUnknownColumn WarningKey = "WrnDelegationUnknownColumn"
)

var warningTemplates = map[WarningKey]string{
	WarnNotDelegable:     "%s cannot be delegated; it will be evaluated locally over at most %d rows",
	WarnCapability:       "%s cannot be delegated: the table does not support %s; it will be evaluated locally over at most %d rows",
	WarnRowLimit:         "%s is not delegable; only the first %d rows of the data source are used",
	WarnBehaviorFunction: "%s cannot be delegated: the condition calls %s, which has side effects",
	WarnThisRecord:       "%s cannot be delegated: the condition references ThisRecord",
	WarnFieldComparison:  "%s cannot be delegated: the condition compares fields of the same row",
	WarnLikelyTypo:       "%s is compared with itself; did you mean to compare it with a variable?",
	WarnDuplicateColumn:  "%s cannot be delegated: column %q is named more than once",
	WarnUnknownColumn:    "%s cannot be delegated: column %q does not exist",
}

// Warning is a warning-level diagnostic recorded wherever delegation was
// attempted and abandoned. Warnings never abort compilation.
type Warning struct {
	Key  WarningKey `json:"key"`
	Span ir.Span    `json:"span"`
	Args []any      `json:"args,omitempty"`
}

// Message renders the English text of the warning.
func (w Warning) Message() string {
	tmpl, ok := warningTemplates[w.Key]
	if !ok {
		return fmt.Sprintf("%s %v", w.Key, w.Args)
	}
	return fmt.Sprintf(tmpl, w.Args...)
}

// String renders "key@start:end: message".
func (w Warning) String() string {
	return fmt.Sprintf("%s@%s: %s", w.Key, w.Span, w.Message())
}

// abandonment explains why a predicate could not be translated.
// The zero value means "not delegable" without a more specific reason.
type abandonment struct {
	key   WarningKey
	args  []any
	extra []Warning
}

func notDelegable() *abandonment { return &abandonment{key: WarnNotDelegable} }

func capabilityMissing(capability string) *abandonment {
	return &abandonment{key: WarnCapability, args: []any{capability}}
}
