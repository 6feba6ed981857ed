package logger

// Fields is an alias for map[string]interface{} for convenience.
type Fields map[string]interface{}

// ============================================
// Tracing fields (context level)
// Propagated through the call chain
// ============================================

const (
	// FieldRequestID is the HTTP request ID (UUID)
	FieldRequestID = "request_id"

	// FieldDatasetID is the dataset a log line is about
	FieldDatasetID = "dataset_id"

	// FieldComponent is the component/module name
	FieldComponent = "component"

	// FieldSource is the dataset source identifier (builtin, manifest, database)
	FieldSource = "source"

	// FieldVersion is the store event version
	FieldVersion = "version"
)

// ============================================
// Metric fields (Entry level)
// ============================================

const (
	// FieldDurationMs is the execution duration in milliseconds
	FieldDurationMs = "duration_ms"

	// FieldCount is a generic count field
	FieldCount = "count"

	// FieldSize is the data size in bytes
	FieldSize = "size"

	// FieldStatus is the operation or dataset status
	FieldStatus = "status"
)
