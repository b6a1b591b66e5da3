package ir

// Version constants for recorded layouts.
const (
	// SchemaVersion is the version of the layout JSON schema.
	SchemaVersion = "1"

	// ToolVersion is the sollayout release version.
	ToolVersion = "0.1.0"
)
