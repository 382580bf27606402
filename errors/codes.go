package errors

// ErrorCode represents a machine-readable error code.
type ErrorCode string

// Input errors (never retried)
const (
	// ErrCodeInvalidInput indicates the audio or options supplied are unusable.
	ErrCodeInvalidInput ErrorCode = "INVALID_INPUT"
	// ErrCodeUnsupported indicates the backend does not implement the requested capability.
	ErrCodeUnsupported ErrorCode = "UNSUPPORTED_OPERATION"
	// ErrCodeNotFound indicates a named resource (backend, model file) does not exist.
	ErrCodeNotFound ErrorCode = "NOT_FOUND"
)

// Backend errors
const (
	// ErrCodeConnectionFailed indicates a backend connection could not be established.
	ErrCodeConnectionFailed ErrorCode = "CONNECTION_FAILED"
	// ErrCodeTimeout indicates the backend did not answer in time.
	ErrCodeTimeout ErrorCode = "TIMEOUT"
	// ErrCodeExternalService indicates the backend reported a failure.
	ErrCodeExternalService ErrorCode = "EXTERNAL_SERVICE_ERROR"
	// ErrCodeCanceled indicates the caller canceled the operation.
	ErrCodeCanceled ErrorCode = "CANCELED"
	// ErrCodeInternal indicates a failure inside this library.
	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
)

var retryableCodes = map[ErrorCode]bool{
	ErrCodeConnectionFailed: true,
	ErrCodeTimeout:          true,
	ErrCodeExternalService:  true,
}

// IsRetryableCode returns true if the error code indicates a retryable error.
func IsRetryableCode(code ErrorCode) bool {
	return retryableCodes[code]
}
