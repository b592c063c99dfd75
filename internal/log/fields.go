package log

// Common field names for structured logging
const (
	FieldComponent  = "component"
	FieldRequestID  = "request_id"
	FieldClientIP   = "client_ip"
	FieldMethod     = "method"
	FieldPath       = "path"
	FieldQuery      = "query"
	FieldStatusCode = "status_code"
	FieldDuration   = "duration_ms"
	FieldSuccess    = "success"
	FieldError      = "error"
	FieldOperation  = "operation"
	FieldYear       = "year"
	FieldMonth      = "month"
	FieldCurrency   = "currency"
	FieldTarget     = "target_currency"
	FieldAmount     = "amount"
	FieldEntryKind  = "entry_kind"
	FieldEntryID    = "entry_id"
	FieldRateCount  = "rate_count"
	FieldUnknown    = "unknown_currencies"
)

// Components defines standard component names
const (
	ComponentApp       = "app"
	ComponentHTTP      = "http"
	ComponentRates     = "rates"
	ComponentReports   = "reports"
	ComponentEntries   = "entries"
	ComponentStorage   = "storage"
	ComponentAMQP      = "amqp"
	ComponentWorker    = "worker"
	ComponentSheets    = "sheets"
	ComponentAuth      = "auth"
	ComponentSecurity  = "security"
	ComponentRateLimit = "rate_limit"
	ComponentSeed      = "seed"
)

// Operations defines standard operation names
const (
	OpCreate   = "create"
	OpRead     = "read"
	OpUpdate   = "update"
	OpDelete   = "delete"
	OpList     = "list"
	OpRefresh  = "refresh"
	OpReport   = "report"
	OpExport   = "export"
	OpShutdown = "shutdown"
	OpStartup  = "startup"
)

// Fields provides a builder pattern for structured log fields
type Fields map[string]any

// NewFields creates a new Fields instance
func NewFields() Fields {
	return make(Fields)
}

func (f Fields) WithComponent(component string) Fields {
	f[FieldComponent] = component
	return f
}

func (f Fields) WithRequestID(requestID string) Fields {
	f[FieldRequestID] = requestID
	return f
}

func (f Fields) WithClientIP(ip string) Fields {
	f[FieldClientIP] = ip
	return f
}

// WithError adds the error field when err is not nil.
func (f Fields) WithError(err error) Fields {
	if err != nil {
		f[FieldError] = err.Error()
	}
	return f
}

func (f Fields) WithOperation(op string) Fields {
	f[FieldOperation] = op
	return f
}

// WithPeriod adds year and month.
func (f Fields) WithPeriod(year, month int) Fields {
	f[FieldYear] = year
	f[FieldMonth] = month
	return f
}

// WithEntry describes an earning or spending row.
func (f Fields) WithEntry(kind string, id int64, amount string, currency string) Fields {
	f[FieldEntryKind] = kind
	f[FieldEntryID] = id
	f[FieldAmount] = amount
	f[FieldCurrency] = currency
	return f
}

// WithHTTPRequest adds HTTP request fields
func (f Fields) WithHTTPRequest(method, path, query string) Fields {
	f[FieldMethod] = method
	f[FieldPath] = path
	f[FieldQuery] = query
	return f
}

// WithHTTPResponse adds HTTP response fields
func (f Fields) WithHTTPResponse(statusCode int, durationMs int64) Fields {
	f[FieldStatusCode] = statusCode
	f[FieldDuration] = durationMs
	f[FieldSuccess] = statusCode < 400
	return f
}

// ToSlice converts Fields to a slice for slog
func (f Fields) ToSlice() []any {
	slice := make([]any, 0, len(f)*2)
	for k, v := range f {
		slice = append(slice, k, v)
	}
	return slice
}
