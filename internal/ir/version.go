package ir

// Version constants for the IR dump format and the compiler.
const (
	// IRVersion is the version of the canonical node dump format.
	IRVersion = "1"

	// CompilerVersion is the delegation compiler version.
	CompilerVersion = "0.1.0"
)
