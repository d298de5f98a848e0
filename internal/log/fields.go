package log

// Common field names for structured logging
const (
	FieldComponent     = "component"
	FieldRequestID     = "request_id"
	FieldOwnerID       = "owner_id"
	FieldMethod        = "method"
	FieldPath          = "path"
	FieldStatusCode    = "status_code"
	FieldDuration      = "duration_ms"
	FieldError         = "error"
	FieldAccountID     = "account_id"
	FieldBudgetID      = "budget_id"
	FieldGoalID        = "goal_id"
	FieldTransactionID = "transaction_id"
	FieldAmountCents   = "amount_cents"
	FieldAlertType     = "alert_type"
	FieldThreshold     = "threshold"
)

// Components defines standard component names
const (
	ComponentApp     = "app"
	ComponentHTTP    = "http"
	ComponentStorage = "storage"
	ComponentAMQP    = "amqp"
	ComponentBalance = "balance"
	ComponentBudget  = "budget"
	ComponentSummary = "summary"
	ComponentAlerts  = "alerts"
	ComponentWorker  = "worker"
	ComponentCache   = "cache"
)
