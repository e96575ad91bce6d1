package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorCode represents application-specific error codes
type ErrorCode string

const (
	// Validation errors
	ErrCodeValidation   ErrorCode = "VALIDATION_ERROR"
	ErrCodeInvalidInput ErrorCode = "INVALID_INPUT"
	ErrCodeMissingField ErrorCode = "MISSING_FIELD"

	// Authentication errors
	ErrCodeUnauthorized ErrorCode = "UNAUTHORIZED"
	ErrCodeInvalidToken ErrorCode = "INVALID_TOKEN"

	// Room lifecycle errors
	ErrCodeRoomNotFound  ErrorCode = "ROOM_NOT_FOUND"
	ErrCodeRoomNotActive ErrorCode = "ROOM_NOT_ACTIVE"
	ErrCodeNotHost       ErrorCode = "NOT_HOST"

	// ErrCodeRoomEmpty is an internal signal consumed by the coordinator
	// (host reassignment or room teardown); it is never returned to callers.
	ErrCodeRoomEmpty ErrorCode = "ROOM_EMPTY"

	// Roster errors
	ErrCodeDuplicateParticipant ErrorCode = "PARTICIPANT_EXISTS"
	ErrCodeParticipantNotFound  ErrorCode = "PARTICIPANT_NOT_FOUND"
	ErrCodeUnknownSender        ErrorCode = "UNKNOWN_SENDER"

	// Media errors
	ErrCodeScreenShareConflict ErrorCode = "SCREEN_SHARE_CONFLICT"
	ErrCodeMediaTimeout        ErrorCode = "MEDIA_ACQUISITION_TIMEOUT"
	ErrCodeInvalidMediaKind    ErrorCode = "INVALID_MEDIA_KIND"

	// Internal errors
	ErrCodeInternal       ErrorCode = "INTERNAL_ERROR"
	ErrCodeDatabase       ErrorCode = "DATABASE_ERROR"
	ErrCodeServiceUnavail ErrorCode = "SERVICE_UNAVAILABLE"
)

// AppError represents a structured application error with code, message, and HTTP status
type AppError struct {
	Code       ErrorCode `json:"code"`
	Message    string    `json:"message"`
	StatusCode int       `json:"-"`
	Details    any       `json:"details,omitempty"`
	Err        error     `json:"-"`
}

// Error implements the error interface, returning a formatted error message
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError with the given code and message
// The status code defaults to 500 Internal Server Error
func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		StatusCode: http.StatusInternalServerError,
	}
}

// NewWithStatus creates a new AppError with a specific HTTP status code
func NewWithStatus(code ErrorCode, message string, statusCode int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		StatusCode: statusCode,
	}
}

// Wrap wraps an existing error with an AppError, preserving the original error
// The status code defaults to 500 Internal Server Error
func Wrap(code ErrorCode, message string, err error) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		StatusCode: http.StatusInternalServerError,
		Err:        err,
	}
}

// WrapWithStatus wraps an existing error with an AppError and specific status code
func WrapWithStatus(code ErrorCode, message string, statusCode int, err error) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		StatusCode: statusCode,
		Err:        err,
	}
}

// WithDetails adds additional details to an AppError for debugging
func (e *AppError) WithDetails(details any) *AppError {
	e.Details = details
	return e
}

// Validation errors
func ValidationError(message string) *AppError {
	return NewWithStatus(ErrCodeValidation, message, http.StatusBadRequest)
}

func InvalidInputError(message string) *AppError {
	return NewWithStatus(ErrCodeInvalidInput, message, http.StatusBadRequest)
}

func MissingFieldError(field string) *AppError {
	return NewWithStatus(ErrCodeMissingField, fmt.Sprintf("Missing required field: %s", field), http.StatusBadRequest)
}

// Authentication errors
func UnauthorizedError(message string) *AppError {
	return NewWithStatus(ErrCodeUnauthorized, message, http.StatusUnauthorized)
}

func InvalidTokenError(message string) *AppError {
	return NewWithStatus(ErrCodeInvalidToken, message, http.StatusUnauthorized)
}

// Room lifecycle errors
func RoomNotFoundError() *AppError {
	return NewWithStatus(ErrCodeRoomNotFound, "Meeting room not found", http.StatusNotFound)
}

func RoomNotActiveError(state string) *AppError {
	return NewWithStatus(ErrCodeRoomNotActive, fmt.Sprintf("Meeting room is %s and no longer accepts this operation", state), http.StatusConflict)
}

func NotHostError() *AppError {
	return NewWithStatus(ErrCodeNotHost, "Only the meeting host may perform this operation", http.StatusForbidden)
}

// RoomEmptySignal marks a roster that has run out of participants.
// It is handled inside the coordinator and must not escape to the HTTP layer.
func RoomEmptySignal() *AppError {
	return NewWithStatus(ErrCodeRoomEmpty, "No participants remain in the room", http.StatusConflict)
}

// Roster errors
func DuplicateParticipantError(id string) *AppError {
	return NewWithStatus(ErrCodeDuplicateParticipant, fmt.Sprintf("Participant %s is already in the room", id), http.StatusConflict)
}

func ParticipantNotFoundError(id string) *AppError {
	return NewWithStatus(ErrCodeParticipantNotFound, fmt.Sprintf("Participant %s is not in the room", id), http.StatusNotFound)
}

func UnknownSenderError(id string) *AppError {
	return NewWithStatus(ErrCodeUnknownSender, fmt.Sprintf("Sender %s was never a participant of this room", id), http.StatusUnprocessableEntity)
}

// Media errors
func ScreenShareConflictError() *AppError {
	return NewWithStatus(ErrCodeScreenShareConflict, "Another participant is already sharing their screen", http.StatusConflict)
}

func MediaTimeoutError(kind string) *AppError {
	return NewWithStatus(ErrCodeMediaTimeout, fmt.Sprintf("Timed out acquiring %s stream", kind), http.StatusGatewayTimeout)
}

func InvalidMediaKindError(kind string) *AppError {
	return NewWithStatus(ErrCodeInvalidMediaKind, fmt.Sprintf("Unknown media kind: %s", kind), http.StatusBadRequest)
}

// Internal errors
func InternalError(message string) *AppError {
	return NewWithStatus(ErrCodeInternal, message, http.StatusInternalServerError)
}

func DatabaseError(err error) *AppError {
	return WrapWithStatus(ErrCodeDatabase, "Database error", http.StatusInternalServerError, err)
}

func ServiceUnavailableError(message string) *AppError {
	return NewWithStatus(ErrCodeServiceUnavail, message, http.StatusServiceUnavailable)
}

// IsAppError checks if an error is an AppError type
func IsAppError(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr)
}

// GetAppError extracts AppError from an error, wrapping non-AppErrors as InternalError
func GetAppError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return InternalError(err.Error())
}

// IsCode reports whether err carries the given application error code
func IsCode(err error, code ErrorCode) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}
