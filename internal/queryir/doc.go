// Package queryir is the decoded form of the remote-query nodes the
// delegation rewriter leaves in a formula tree.
//
// The rewriter itself only sees Hooks; internal/querybuild encodes remote
// queries as ordinary ir.Call nodes with reserved "__" function names so the
// rewritten tree stays a plain IR tree:
//
//	__retrieveMultiple(Accounts, __gt("{\"name\":\"Revenue\"}", 100), Blank(), "{\"max_rows\":500}")
//
// This package defines those names, the canonical JSON descriptor carried by
// every query node, and FromNode, which decodes a query node into typed
// Query and Predicate values that backends (internal/querysql) compile.
//
// ARCHITECTURE:
//
//	[formula IR] -> delegation.Compile -> [IR with __ nodes] -> FromNode -> [Query] -> querysql
//
// SEALED INTERFACES:
//
// Query and Predicate are sealed interfaces using the marker method pattern.
// Only types in this package implement them, so backends can switch
// exhaustively:
//
//	switch q := query.(type) {
//	case *Retrieve:
//	case *RetrieveByKey:
//	}
//
// DETERMINISM:
//
// Descriptors are encoded with ir.MarshalCanonical, so two structurally
// equal queries produce byte-identical nodes and the same fingerprint.
// Backends cache prepared statements by that fingerprint.
package queryir
