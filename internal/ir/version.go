package ir

// Version constants for the IR encoding and the service engine.
const (
	// IRVersion is the parse-tree encoding version embedded in fingerprints.
	IRVersion = "1"

	// EngineVersion is the data service engine version.
	EngineVersion = "0.1.0"
)
