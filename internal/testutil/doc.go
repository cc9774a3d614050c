// Package testutil provides IR construction helpers, a sample catalog and
// deterministic id generators for tests.
package testutil
