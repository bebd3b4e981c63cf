package log

// Common field names for structured logging
const (
	FieldComponent     = "component"
	FieldRequestID     = "request_id"
	FieldClientIP      = "client_ip"
	FieldMethod        = "method"
	FieldPath          = "path"
	FieldStatusCode    = "status_code"
	FieldDuration      = "duration_ms"
	FieldSuccess       = "success"
	FieldError         = "error"
	FieldOperation     = "operation"
	FieldUserID        = "user_id"
	FieldAccountID     = "account_id"
	FieldTransactionID = "transaction_id"
	FieldBudgetID      = "budget_id"
	FieldAmount        = "amount"
	FieldCategory      = "category"
	FieldInterval      = "recurring_interval"
)

// Components defines standard component names
const (
	ComponentApp       = "app"
	ComponentHTTP      = "http"
	ComponentStorage   = "storage"
	ComponentAMQP      = "amqp"
	ComponentRecurring = "recurring"
	ComponentAlerts    = "budget_alerts"
	ComponentReports   = "monthly_reports"
	ComponentMail      = "mail"
	ComponentInsights  = "insights"
	ComponentRateLimit = "rate_limit"
)

// Operations defines standard operation names
const (
	OpCreate   = "create"
	OpRead     = "read"
	OpUpdate   = "update"
	OpDelete   = "delete"
	OpList     = "list"
	OpProcess  = "process"
	OpFanOut   = "fan_out"
	OpDispatch = "dispatch"
	OpValidate = "validate"
	OpShutdown = "shutdown"
	OpStartup  = "startup"
)
