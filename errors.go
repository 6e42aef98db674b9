package resourcecache

// Code is a machine-readable error code.
type Code string

const (
	// CodeUnknown represents an unknown error.
	CodeUnknown Code = "UNKNOWN"

	// Bridge errors
	CodeRegistryMiss          Code = "REGISTRY_MISS"
	CodeReadyPrecondition     Code = "READY_PRECONDITION"
	CodeAlreadyRegistered     Code = "ALREADY_REGISTERED"
	CodeUnguardedPrereadyCall Code = "UNGUARDED_PREREADY_CALL"

	// Runtime errors
	CodeRuntimeClosed     Code = "RUNTIME_CLOSED"
	CodeScriptNotFound    Code = "SCRIPT_NOT_FOUND"
	CodeEngineUnsupported Code = "ENGINE_UNSUPPORTED"

	// Configuration errors
	CodeInvalidConfig Code = "INVALID_CONFIG"
)

// Sentinels for errors.Is; matching is by code only.
var (
	ErrRegistryMiss          = &Error{Code: CodeRegistryMiss}
	ErrReadyPrecondition     = &Error{Code: CodeReadyPrecondition}
	ErrAlreadyRegistered     = &Error{Code: CodeAlreadyRegistered}
	ErrUnguardedPrereadyCall = &Error{Code: CodeUnguardedPrereadyCall}
	ErrRuntimeClosed         = &Error{Code: CodeRuntimeClosed}
	ErrScriptNotFound        = &Error{Code: CodeScriptNotFound}
	ErrEngineUnsupported     = &Error{Code: CodeEngineUnsupported}
	ErrInvalidConfig         = &Error{Code: CodeInvalidConfig}
)

// Error is the domain error type with structured metadata.
type Error struct {
	Code     Code              // Machine-readable error code
	Message  string            // Human-readable message, also shown to scripts
	Metadata map[string]string // Additional context (handles, paths)
	Cause    error             // Wrapped underlying error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Message == "" {
		return string(e.Code)
	}
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

// Unwrap returns the underlying cause for error chain traversal.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error by code.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Code == t.Code
	}
	return false
}

// NewError creates a simple domain error with a code and message.
func NewError(code Code, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
	}
}

// WithMetadata creates a domain error with metadata attached.
func WithMetadata(code Code, message string, metadata map[string]string) *Error {
	return &Error{
		Code:     code,
		Message:  message,
		Metadata: metadata,
	}
}

// Wrap creates a domain error that wraps an underlying cause.
func Wrap(code Code, message string, cause error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}
