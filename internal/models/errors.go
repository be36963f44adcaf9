package models

import (
	"errors"
	"fmt"
	"net/http"
)

// Error categories
const (
	CategoryValidation = "validation"
	CategoryConflict   = "conflict"
	CategoryNotFound   = "not_found"
	CategoryAuth       = "auth"
	CategoryDependency = "dependency"
	CategoryInvariant  = "invariant"
)

// APIError is a domain failure carrying the reason code, the message shown to
// the client and the HTTP status it maps to. Err holds the internal cause and
// is never serialized.
type APIError struct {
	Code     string
	Message  string
	Category string
	Status   int
	Err      error
}

// Error implements the error interface
func (e *APIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the internal cause
func (e *APIError) Unwrap() error {
	return e.Err
}

// Is matches any APIError with the same code, so wrapped copies still satisfy errors.Is.
func (e *APIError) Is(target error) bool {
	t, ok := target.(*APIError)
	return ok && t.Code == e.Code
}

// Wrap returns a copy of e with err attached as the cause
func (e *APIError) Wrap(err error) *APIError {
	cp := *e
	cp.Err = err
	return &cp
}

// WithMessage returns a copy of e with a different client message
func (e *APIError) WithMessage(msg string) *APIError {
	cp := *e
	cp.Message = msg
	return &cp
}

var (
	ErrDuplicateEmail = &APIError{
		Code: "DUPLICATE_EMAIL", Message: "User already exists",
		Category: CategoryConflict, Status: http.StatusBadRequest,
	}
	ErrEmailDeliveryFailed = &APIError{
		Code: "EMAIL_DELIVERY_FAILED", Message: "Failed to send verification email",
		Category: CategoryDependency, Status: http.StatusInternalServerError,
	}
	ErrInvalidToken = &APIError{
		Code: "INVALID_TOKEN", Message: "Invalid verification token",
		Category: CategoryAuth, Status: http.StatusBadRequest,
	}
	// ErrInvalidCredentials covers both an unknown email and a wrong password.
	ErrInvalidCredentials = &APIError{
		Code: "INVALID_CREDENTIALS", Message: "The email or password is wrong",
		Category: CategoryAuth, Status: http.StatusBadRequest,
	}
	ErrNotVerified = &APIError{
		Code: "NOT_VERIFIED", Message: "User is not verified",
		Category: CategoryAuth, Status: http.StatusForbidden,
	}
	ErrUnauthorized = &APIError{
		Code: "UNAUTHORIZED", Message: "Not authorized",
		Category: CategoryAuth, Status: http.StatusUnauthorized,
	}
	ErrAlreadyPaired = &APIError{
		Code: "ALREADY_PAIRED", Message: "You are already in a couple",
		Category: CategoryConflict, Status: http.StatusBadRequest,
	}
	ErrInvalidCode = &APIError{
		Code: "INVALID_CODE", Message: "Invalid invite code",
		Category: CategoryValidation, Status: http.StatusBadRequest,
	}
	ErrSelfRedemption = &APIError{
		Code: "SELF_REDEMPTION", Message: "You cannot use your own invite code",
		Category: CategoryValidation, Status: http.StatusBadRequest,
	}
	ErrNotPaired = &APIError{
		Code: "NOT_PAIRED", Message: "Must be in a couple",
		Category: CategoryValidation, Status: http.StatusBadRequest,
	}
	ErrInvalidQuestion = &APIError{
		Code: "INVALID_QUESTION", Message: "Invalid question",
		Category: CategoryValidation, Status: http.StatusBadRequest,
	}
	ErrNoActiveQuestions = &APIError{
		Code: "NO_ACTIVE_QUESTIONS", Message: "No active questions found",
		Category: CategoryNotFound, Status: http.StatusNotFound,
	}
	ErrNoPartner = &APIError{
		Code: "NO_PARTNER", Message: "No partner found",
		Category: CategoryNotFound, Status: http.StatusNotFound,
	}
	ErrMoodNotSetToday = &APIError{
		Code: "MOOD_NOT_SET_TODAY", Message: "Partner hasn't set a mood today",
		Category: CategoryNotFound, Status: http.StatusNotFound,
	}
	ErrNotAnsweredToday = &APIError{
		Code: "NOT_ANSWERED_TODAY", Message: "Partner hasn't answered a question today",
		Category: CategoryNotFound, Status: http.StatusNotFound,
	}
	// ErrMemoryNotFound is returned both for missing memories and for memories owned by someone else.
	ErrMemoryNotFound = &APIError{
		Code: "MEMORY_NOT_FOUND", Message: "Memory not found or you don't have permission to delete it",
		Category: CategoryNotFound, Status: http.StatusNotFound,
	}
	ErrUserNotFound = &APIError{
		Code: "USER_NOT_FOUND", Message: "User not found",
		Category: CategoryNotFound, Status: http.StatusNotFound,
	}
	ErrValidation = &APIError{
		Code: "VALIDATION_FAILED", Message: "Invalid request",
		Category: CategoryValidation, Status: http.StatusBadRequest,
	}
	ErrPairingInvariant = &APIError{
		Code: "PAIRING_INVARIANT", Message: "Couple state is inconsistent",
		Category: CategoryInvariant, Status: http.StatusInternalServerError,
	}
	ErrRateLimited = &APIError{
		Code: "RATE_LIMITED", Message: "Too many requests, try again later",
		Category: CategoryValidation, Status: http.StatusTooManyRequests,
	}
	ErrPhotoUploadsDisabled = &APIError{
		Code: "PHOTO_UPLOADS_DISABLED", Message: "Photo uploads are not configured",
		Category: CategoryDependency, Status: http.StatusServiceUnavailable,
	}
	ErrInternal = &APIError{
		Code: "INTERNAL_ERROR", Message: "Internal server error",
		Category: CategoryDependency, Status: http.StatusInternalServerError,
	}
)

// NewValidationError returns a VALIDATION_FAILED error with the given message
func NewValidationError(msg string) *APIError {
	return ErrValidation.WithMessage(msg)
}

// AsAPIError extracts the outermost APIError from an error chain
func AsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

// ErrorBody is the JSON error envelope returned to clients
type ErrorBody struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail is the client-visible part of an APIError
type ErrorDetail struct {
	Code     string `json:"code"`
	Message  string `json:"message"`
	Category string `json:"category"`
}

// Body returns the client-visible envelope. The wrapped cause is left out.
func (e *APIError) Body() ErrorBody {
	return ErrorBody{Error: ErrorDetail{Code: e.Code, Message: e.Message, Category: e.Category}}
}
