package log

// Common field names for structured logging.
const (
	FieldComponent  = "component"
	FieldRequestID  = "request_id"
	FieldClientIP   = "client_ip"
	FieldMethod     = "method"
	FieldPath       = "path"
	FieldStatusCode = "status_code"
	FieldDuration   = "duration_ms"
	FieldSuccess    = "success"
	FieldError      = "error"
	FieldOperation  = "operation"
	FieldCharacter  = "character"
	FieldItemName   = "item_name"
	FieldQuantity   = "quantity"
	FieldValue      = "value_gp"
	FieldBatch      = "batch"
	FieldAttempt    = "attempt"
	FieldAttempted  = "attempted"
	FieldSaved      = "saved"
	FieldSnapshot   = "snapshot_version"
	FieldBackend    = "backend"
)

// Components defines standard component names.
const (
	ComponentApp      = "app"
	ComponentHTTP     = "http"
	ComponentStorage  = "storage"
	ComponentSync     = "sync"
	ComponentUploader = "uploader"
	ComponentAMQP     = "amqp"
	ComponentWorker   = "worker"
	ComponentRemote   = "remote"
	ComponentPrices   = "prices"
	ComponentBackup   = "backup"
	ComponentMetrics  = "metrics"
)

// Operations defines standard operation names.
const (
	OpSave     = "save"
	OpLoad     = "load"
	OpUpload   = "upload"
	OpSnapshot = "snapshot"
	OpRestore  = "restore"
	OpImport   = "import"
	OpExport   = "export"
	OpRefresh  = "refresh"
	OpValidate = "validate"
	OpStartup  = "startup"
	OpShutdown = "shutdown"
)
