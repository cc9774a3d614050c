// Package delegation rewrites a bound formula tree so that the work a remote
// data source can do itself is pushed down to it.
//
// Compile walks the tree bottom-up. Every reference to a table the Hooks
// report as delegable starts an accumulator (RetVal). Table-consuming calls
// such as Filter, Sort, FirstN, ShowColumns, Summarize or Join try to fold
// themselves into the accumulator of their first argument; when a call
// cannot be folded, the accumulated query is materialized through
// Hooks.MakeQueryExecNode and the call stays in the tree to run locally
// over the materialized rows.
//
// Example:
//
//	Filter(Sort(Accounts, Name), Revenue > 100)
//
// becomes one remote query that filters on Revenue and orders by Name.
// Swapping the two calls the other way round gives the same query, because
// a filter may follow a sort.
//
// DIAGNOSTICS:
//
// Every abandoned opportunity is recorded as a Warning with a stable
// WarningKey, the span of the call and the arguments of the message. An
// untranslatable formula is never an error. Compile only fails for invalid
// options or when an InvariantError is raised by the rewriter itself.
//
// CRITICAL: RetVal is immutable. Processors try a composition and keep the
// original accumulator when the composition is rejected, so Add* methods
// must never modify their receiver.
package delegation
