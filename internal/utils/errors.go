package utils

import "net/http"

type AppError struct {
	Code    string
	Message string
	Origin  error // Original error that caused this error, if any
}

func (appErr *AppError) Error() string {
	if appErr.Origin != nil {
		return appErr.Message + ": " + appErr.Origin.Error()
	}
	return appErr.Message
}

// Standard error codes for the application
const (
	// Input errors
	ErrValidation    = "VALIDATION"
	ErrDuplicateUser = "DUPLICATE_USER"

	// Authentication errors. The message for invalid credentials is
	// deliberately identical whether the username or the password was wrong.
	ErrInvalidCredentials = "INVALID_CREDENTIALS"

	// Resource errors
	ErrNotFound = "NOT_FOUND"

	// Durable state errors. Logged and absorbed: a failed load degrades to
	// the empty collection, a failed save keeps the in-memory state.
	ErrStorage = "STORAGE"

	// Actor communication errors
	ErrActorTimeout = "ACTOR_TIMEOUT"
)

// InvalidCredentialsMessage is the single message used for every credential
// failure, so a caller cannot enumerate usernames.
const InvalidCredentialsMessage = "invalid username or password"

func NewAppError(code string, message string, originalErr error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Origin:  originalErr,
	}
}

func NewValidationError(message string) *AppError {
	return &AppError{Code: ErrValidation, Message: message}
}

func NewDuplicateUserError(username string) *AppError {
	return &AppError{Code: ErrDuplicateUser, Message: "username already taken: " + username}
}

func NewInvalidCredentialsError() *AppError {
	return &AppError{Code: ErrInvalidCredentials, Message: InvalidCredentialsMessage}
}

func NewStorageError(message string, originalErr error) *AppError {
	return &AppError{Code: ErrStorage, Message: message, Origin: originalErr}
}

func NewActorTimeoutError(actorName string) *AppError {
	return &AppError{Code: ErrActorTimeout, Message: "actor communication timeout: " + actorName}
}

// IsErrorCode reports whether err is an AppError with the given code.
func IsErrorCode(err error, code string) bool {
	if appErr, ok := err.(*AppError); ok {
		return appErr.Code == code
	}
	return false
}

// AppErrorToHTTPStatus converts an AppError code to an HTTP status code.
func AppErrorToHTTPStatus(errorCode string) int {
	switch errorCode {
	case ErrValidation, ErrDuplicateUser:
		return http.StatusBadRequest
	case ErrInvalidCredentials:
		return http.StatusUnauthorized
	case ErrNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
