package log

// Common field names for structured logging
const (
	FieldComponent   = "component"
	FieldRequestID   = "request_id"
	FieldClientIP    = "client_ip"
	FieldMethod      = "method"
	FieldPath        = "path"
	FieldStatusCode  = "status_code"
	FieldDuration    = "duration_ms"
	FieldSuccess     = "success"
	FieldError       = "error"
	FieldOperation   = "operation"
	FieldWarning     = "warning"
	FieldOwner       = "owner_id"
	FieldTxID        = "transaction_id"
	FieldAmountCents = "amount_cents"
	FieldLookupKind  = "lookup_kind"
	FieldLookupID    = "lookup_id"
	FieldView        = "view"
	FieldGeneration  = "generation"
	FieldBucketCount = "bucket_count"
	FieldRecordCount = "record_count"
	FieldSubscribers = "subscribers"
	FieldPhase       = "phase"
)

// Components defines standard component names
const (
	ComponentApp       = "app"
	ComponentHTTP      = "http"
	ComponentBus       = "bus"
	ComponentSummary   = "summary"
	ComponentAggregate = "aggregate"
	ComponentStore     = "store"
	ComponentService   = "service"
	ComponentAMQP      = "amqp"
	ComponentCache     = "cache"
	ComponentCharts    = "charts"
	ComponentBackend   = "backend"
)

// Operations defines standard operation names
const (
	OpCreate    = "create"
	OpRead      = "read"
	OpUpdate    = "update"
	OpDelete    = "delete"
	OpQuery     = "query"
	OpPublish   = "publish"
	OpNotify    = "notify"
	OpRecompute = "recompute"
	OpShutdown  = "shutdown"
	OpStartup   = "startup"
)

// Warning kinds that degrade silently instead of failing the caller
const (
	WarningDataQuality     = "data_quality"
	WarningSubscriberFault = "subscriber_fault"
)

// LogFields provides a builder pattern for structured log fields
type LogFields map[string]any

// NewFields creates a new LogFields instance
func NewFields() LogFields {
	return make(LogFields)
}

// WithComponent adds component field
func (f LogFields) WithComponent(component string) LogFields {
	f[FieldComponent] = component
	return f
}

// WithError adds error field
func (f LogFields) WithError(err error) LogFields {
	if err != nil {
		f[FieldError] = err.Error()
	}
	return f
}

// WithOperation adds operation field
func (f LogFields) WithOperation(op string) LogFields {
	f[FieldOperation] = op
	return f
}

// WithOwner adds the owner scope
func (f LogFields) WithOwner(owner string) LogFields {
	f[FieldOwner] = owner
	return f
}

// WithTransaction adds transaction fields
func (f LogFields) WithTransaction(id string, amountCents int64) LogFields {
	f[FieldTxID] = id
	f[FieldAmountCents] = amountCents
	return f
}

// WithView adds summary view fields
func (f LogFields) WithView(view string, generation uint64) LogFields {
	f[FieldView] = view
	f[FieldGeneration] = generation
	return f
}

// WithHTTPResponse adds HTTP response fields
func (f LogFields) WithHTTPResponse(statusCode int, durationMs int64, success bool) LogFields {
	f[FieldStatusCode] = statusCode
	f[FieldDuration] = durationMs
	f[FieldSuccess] = success
	return f
}

// ToSlice converts LogFields to a slice for slog
func (f LogFields) ToSlice() []any {
	slice := make([]any, 0, len(f)*2)
	for k, v := range f {
		slice = append(slice, k, v)
	}
	return slice
}
