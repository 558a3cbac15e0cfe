package ir

// Version constants for the canonical encoding and the explorer.
const (
	// IRVersion is the canonical encoding version.
	IRVersion = "1"

	// EngineVersion is the explorer version recorded with persisted sessions.
	EngineVersion = "0.1.0"
)
