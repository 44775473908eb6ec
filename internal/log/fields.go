package log

// Common field names for structured logging
const (
	FieldComponent = "component"
	FieldRequestID = "request_id"
	FieldClientIP  = "client_ip"
	FieldMethod    = "method"
	FieldPath      = "path"
	FieldStatus    = "status"
	FieldDuration  = "duration_ms"
	FieldError     = "error"
	FieldRevision  = "revision"
	FieldProfile   = "profile"
	FieldTab       = "tab"
	FieldSlot      = "slot"
	FieldGoalID    = "goal_id"
	FieldGoalName  = "goal_name"
	FieldAmount    = "amount_cents"
)

// Components defines standard component names
const (
	ComponentApp     = "app"
	ComponentHTTP    = "http"
	ComponentState   = "state"
	ComponentAdvisor = "advisor"
	ComponentCharts  = "charts"
	ComponentView    = "view"
	ComponentPlugin  = "plugin"
	ComponentStorage = "storage"
	ComponentAMQP    = "amqp"
	ComponentWorker  = "worker"
	ComponentExport  = "export"
	ComponentCache   = "cache"
)
