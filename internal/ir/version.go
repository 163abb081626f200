package ir

// Version constants stamped into every document.
const (
	// IRVersion is the IR schema version.
	IRVersion = "1"

	// ToolchainVersion is the ontogen toolchain version.
	ToolchainVersion = "0.1.0"
)
