package action

// Error codes, verbatim from the error taxonomy.
const (
	ErrAuthRequired     = "AUTH_REQUIRED"
	ErrAuthInvalid      = "AUTH_INVALID"
	ErrMissingRequestID = "MISSING_REQUEST_ID"
	ErrUnknownAction    = "UNKNOWN_ACTION"
	ErrBadArgs          = "BAD_ARGS"
	ErrAgentNotFound    = "AGENT_NOT_FOUND"
	ErrAgentBanned      = "AGENT_BANNED"
	ErrInvalidStatus    = "INVALID_STATUS"
	ErrAgentBusy        = "AGENT_BUSY"
	ErrPreconditionFail = "PRECONDITION_FAILED"
	ErrInsufficientFunds = "INSUFFICIENT_FUNDS"
	ErrInsufficientInv  = "INSUFFICIENT_INVENTORY"
	ErrDuplicateInFlight = "DUPLICATE_REQUEST_IN_PROGRESS"
	ErrRateLimited      = "RATE_LIMITED"
	ErrInternal         = "INTERNAL_ERROR"
)

// Error is the deterministic, storable failure a handler returns. Any
// other error type bubbling out of a handler is treated as transient
// (INTERNAL_ERROR) and its ActionLock reservation is released instead
// of stored, per the propagation policy.
type Error struct {
	Code    string
	Message string
}

func (e *Error) Error() string { return e.Code + ": " + e.Message }

func Fail(code, message string) *Error { return &Error{Code: code, Message: message} }

func IsDeterministic(err error) (*Error, bool) {
	e, ok := err.(*Error)
	return e, ok
}
