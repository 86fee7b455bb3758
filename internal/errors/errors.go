package errors

import "fmt"

// ErrorKind is the string tag carried by every failure surfaced by the façade.
type ErrorKind string

const (
	ErrNotSupported               ErrorKind = "NOT_SUPPORTED"                // 501
	ErrInvalidParam               ErrorKind = "INVALID_PARAM"                // 400
	ErrSameContext                ErrorKind = "SAME_CONTEXT"                 // 409
	ErrNetworkFailure             ErrorKind = "NETWORK_FAILURE"              // 502
	ErrUserInput                  ErrorKind = "USER_INPUT"                   // 422
	ErrPendingRequest             ErrorKind = "PENDING_REQUEST"              // 409
	ErrClientUnsupportedOperation ErrorKind = "CLIENT_UNSUPPORTED_OPERATION" // 501
	ErrClientRequiresUpdate       ErrorKind = "CLIENT_REQUIRES_UPDATE"       // 426
	ErrInvalidOperation           ErrorKind = "INVALID_OPERATION"            // 409
	ErrLeaderboardNotFound        ErrorKind = "LEADERBOARD_NOT_FOUND"        // 404
	ErrLeaderboardWrongContext    ErrorKind = "LEADERBOARD_WRONG_CONTEXT"    // 409
	ErrRateLimited                ErrorKind = "RATE_LIMITED"                 // 429
	ErrRethrowFromPlatform        ErrorKind = "RETHROW_FROM_PLATFORM"        // 502
)

// statusByKind maps each kind to the status code used by the HTTP and MCP surfaces.
var statusByKind = map[ErrorKind]int{
	ErrNotSupported:               501,
	ErrInvalidParam:               400,
	ErrSameContext:                409,
	ErrNetworkFailure:             502,
	ErrUserInput:                  422,
	ErrPendingRequest:             409,
	ErrClientUnsupportedOperation: 501,
	ErrClientRequiresUpdate:       426,
	ErrInvalidOperation:           409,
	ErrLeaderboardNotFound:        404,
	ErrLeaderboardWrongContext:    409,
	ErrRateLimited:                429,
	ErrRethrowFromPlatform:        502,
}

// Kinds returns every known error kind.
func Kinds() []ErrorKind {
	return []ErrorKind{
		ErrNotSupported,
		ErrInvalidParam,
		ErrSameContext,
		ErrNetworkFailure,
		ErrUserInput,
		ErrPendingRequest,
		ErrClientUnsupportedOperation,
		ErrClientRequiresUpdate,
		ErrInvalidOperation,
		ErrLeaderboardNotFound,
		ErrLeaderboardWrongContext,
		ErrRateLimited,
		ErrRethrowFromPlatform,
	}
}

// ParseKind reports whether s is one of the known kind tags.
func ParseKind(s string) (ErrorKind, bool) {
	k := ErrorKind(s)
	_, ok := statusByKind[k]
	return k, ok
}

// StatusFor returns the status code for a kind, 502 for unknown kinds.
func StatusFor(kind ErrorKind) int {
	if s, ok := statusByKind[kind]; ok {
		return s
	}
	return 502
}

// WortalError is the ErrorMessage value handed back to callers.
type WortalError struct {
	Code    ErrorKind
	Status  int
	Message string
	Details map[string]any
}

// Error implements the error interface.
func (e *WortalError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// New creates an error of the given kind.
func New(kind ErrorKind, msg string) *WortalError {
	return &WortalError{
		Code:    kind,
		Status:  StatusFor(kind),
		Message: msg,
	}
}

// NewInvalidParam creates a 400 error naming the offending field.
func NewInvalidParam(field, msg string) *WortalError {
	return &WortalError{
		Code:    ErrInvalidParam,
		Status:  400,
		Message: fmt.Sprintf("%s: %s", field, msg),
		Details: map[string]any{"field": field},
	}
}

// NewPendingRequest creates a 409 error for a capability class that already has a call in flight.
func NewPendingRequest(class string) *WortalError {
	return &WortalError{
		Code:    ErrPendingRequest,
		Status:  409,
		Message: fmt.Sprintf("a %s request is already pending", class),
		Details: map[string]any{"class": class},
	}
}

// NewSameContext creates a 409 error for a switch into the active context.
func NewSameContext(contextID string) *WortalError {
	return &WortalError{
		Code:    ErrSameContext,
		Status:  409,
		Message: fmt.Sprintf("already in context %q", contextID),
		Details: map[string]any{"context_id": contextID},
	}
}

// NewNotSupported creates a 501 error for a capability the current platform lacks.
func NewNotSupported(op string) *WortalError {
	return &WortalError{
		Code:    ErrNotSupported,
		Status:  501,
		Message: fmt.Sprintf("%s is not supported on this platform", op),
		Details: map[string]any{"operation": op},
	}
}

// NewLeaderboardNotFound creates a 404 error for an unknown leaderboard.
func NewLeaderboardNotFound(name string) *WortalError {
	return &WortalError{
		Code:    ErrLeaderboardNotFound,
		Status:  404,
		Message: fmt.Sprintf("leaderboard not found: %s", name),
		Details: map[string]any{"name": name},
	}
}

// NewLeaderboardWrongContext creates a 409 error for a context-bound leaderboard used elsewhere.
func NewLeaderboardWrongContext(name, contextID string) *WortalError {
	return &WortalError{
		Code:    ErrLeaderboardWrongContext,
		Status:  409,
		Message: fmt.Sprintf("leaderboard %q belongs to context %q", name, contextID),
		Details: map[string]any{"name": name, "context_id": contextID},
	}
}

// NewRethrow wraps an unmapped platform failure, keeping its message verbatim.
func NewRethrow(msg string) *WortalError {
	return &WortalError{
		Code:    ErrRethrowFromPlatform,
		Status:  502,
		Message: msg,
	}
}

// Is checks if an error is a WortalError with the given kind.
func Is(err error, kind ErrorKind) bool {
	if wErr, ok := err.(*WortalError); ok {
		return wErr.Code == kind
	}
	return false
}

// KindOf returns the kind of err, or "" when err is not a WortalError.
func KindOf(err error) ErrorKind {
	if wErr, ok := err.(*WortalError); ok {
		return wErr.Code
	}
	return ""
}
