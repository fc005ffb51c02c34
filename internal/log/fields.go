package log

// Common field names for structured logging
const (
	FieldComponent  = "component"
	FieldRequestID  = "request_id"
	FieldClientIP   = "client_ip"
	FieldMethod     = "method"
	FieldPath       = "path"
	FieldStatusCode = "status_code"
	FieldDuration   = "duration_ms"
	FieldUserAgent  = "user_agent"
	FieldError      = "error"
	FieldOperation  = "operation"

	FieldBatchID      = "batch_id"
	FieldPhone        = "phone"
	FieldAmountCents  = "amount_cents"
	FieldTransferDate = "transfer_date"
	FieldAccepted     = "accepted"
	FieldDropped      = "dropped"
	FieldObjectKey    = "object_key"
)

// Components defines standard component names
const (
	ComponentApp     = "app"
	ComponentHTTP    = "http"
	ComponentIngest  = "ingest"
	ComponentStorage = "storage"
	ComponentAMQP    = "amqp"
	ComponentWorker  = "worker"
	ComponentMirror  = "mirror"
)

// Operations defines standard operation names
const (
	OpAppend   = "append"
	OpIngest   = "ingest"
	OpFilter   = "filter"
	OpExport   = "export"
	OpSync     = "sync"
	OpRestore  = "restore"
	OpValidate = "validate"
	OpShutdown = "shutdown"
	OpStartup  = "startup"
)
