package delegation

import (
	"errors"
	"fmt"
)

// InvariantError reports a bug in the rewriter itself, such as a column map
// composition that produced a duplicate alias or a composite join key
// reaching the join descriptor. It is raised with panic inside the walk and
// converted to an ordinary error by Compile; it is never a user-facing
// diagnostic.
type InvariantError struct {
	// Invariant names the violated rule, e.g. "column-alias-unique".
	Invariant string

	// Message is a human-readable description.
	Message string
}

// Error implements the error interface.
func (e *InvariantError) Error() string {
	return fmt.Sprintf("delegation invariant %s violated: %s", e.Invariant, e.Message)
}

// IsInvariantError returns true if err is or wraps an InvariantError.
func IsInvariantError(err error) bool {
	var ie *InvariantError
	return errors.As(err, &ie)
}

// violate panics with an InvariantError.
func violate(invariant, format string, args ...any) {
	panic(&InvariantError{Invariant: invariant, Message: fmt.Sprintf(format, args...)})
}
