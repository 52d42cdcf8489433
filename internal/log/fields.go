package log

// Common field names for structured logging
const (
	FieldComponent     = "component"
	FieldError         = "error"
	FieldOperation     = "operation"
	FieldDuration      = "duration_ms"
	FieldUserID        = "user_id"
	FieldItemID        = "item_id"
	FieldAccountID     = "account_id"
	FieldTransactionID = "transaction_id"
	FieldCategoryID    = "category_id"
	FieldInstitution   = "institution"
	FieldAmountCents   = "amount_cents"
	FieldPatternValue  = "pattern_value"
	FieldConfidence    = "confidence"
	FieldSource        = "source"
	FieldReason        = "reason"
	FieldAdded         = "added"
	FieldModified      = "modified"
	FieldRemoved       = "removed"
	FieldSkipped       = "skipped"
	FieldErrors        = "errors"
)

// Components defines standard component names
const (
	ComponentApp         = "app"
	ComponentStorage     = "storage"
	ComponentCategorizer = "categorizer"
	ComponentSync        = "sync"
	ComponentItems       = "items"
	ComponentProvider    = "provider"
	ComponentAMQP        = "amqp"
	ComponentWorker      = "worker"
	ComponentCache       = "cache"
	ComponentMetrics     = "metrics"
)

// Operations defines standard operation names
const (
	OpCreate   = "create"
	OpRead     = "read"
	OpUpdate   = "update"
	OpDelete   = "delete"
	OpList     = "list"
	OpSync     = "sync"
	OpLink     = "link"
	OpResolve  = "resolve"
	OpLearn    = "learn"
	OpValidate = "validate"
	OpShutdown = "shutdown"
	OpStartup  = "startup"
)
