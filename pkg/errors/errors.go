package errors

import (
	"fmt"
	"net/http"
)

// ErrorCode represents a unique error code
type ErrorCode int

// AppError represents an application error
type AppError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Err     error     `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Is reports whether target carries the same code, so wrapped instances
// match the package sentinels below.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// StatusCode maps the error code onto an HTTP status.
func (e *AppError) StatusCode() int {
	switch e.Code {
	case ErrNotFound:
		return http.StatusNotFound
	case ErrBadRequest, ErrInvalidTimeFormat, ErrInvalidRecurrencePattern:
		return http.StatusBadRequest
	case ErrUnauthorized:
		return http.StatusUnauthorized
	case ErrForbidden:
		return http.StatusForbidden
	case ErrOverlappingShift, ErrBreakOutOfRange, ErrInvalidTimeRange:
		return http.StatusUnprocessableEntity
	case ErrSlotTaken, ErrSlotUnavailable, ErrInvalidStatusTransition:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// Common error codes
const (
	ErrNotFound ErrorCode = iota + 1000
	ErrBadRequest
	ErrUnauthorized
	ErrForbidden
	ErrInternal
)

// Scheduling error codes
const (
	ErrInvalidTimeFormat ErrorCode = iota + 2000
	ErrOverlappingShift
	ErrBreakOutOfRange
	ErrInvalidTimeRange
	ErrSlotTaken
	ErrSlotUnavailable
	ErrInvalidStatusTransition
	ErrInvalidRecurrencePattern
)

// Sentinels for errors.Is comparisons.
var (
	NotFoundError                 = &AppError{Code: ErrNotFound, Message: "not found"}
	InvalidTimeFormatError        = &AppError{Code: ErrInvalidTimeFormat, Message: "invalid time format"}
	OverlappingShiftError         = &AppError{Code: ErrOverlappingShift, Message: "overlapping shift"}
	BreakOutOfRangeError          = &AppError{Code: ErrBreakOutOfRange, Message: "break out of range"}
	InvalidTimeRangeError         = &AppError{Code: ErrInvalidTimeRange, Message: "invalid time range"}
	SlotTakenError                = &AppError{Code: ErrSlotTaken, Message: "slot taken"}
	SlotUnavailableError          = &AppError{Code: ErrSlotUnavailable, Message: "slot unavailable"}
	InvalidStatusTransitionError  = &AppError{Code: ErrInvalidStatusTransition, Message: "invalid status transition"}
	InvalidRecurrencePatternError = &AppError{Code: ErrInvalidRecurrencePattern, Message: "invalid recurrence pattern"}
)

// New builds an AppError with an arbitrary code.
func New(code ErrorCode, message string, err error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Error constructors
func NewNotFound(resource string, err error) *AppError {
	return &AppError{
		Code:    ErrNotFound,
		Message: fmt.Sprintf("%s not found", resource),
		Err:     err,
	}
}

func NewBadRequest(message string, err error) *AppError {
	return &AppError{
		Code:    ErrBadRequest,
		Message: message,
		Err:     err,
	}
}

func NewInternal(err error) *AppError {
	return &AppError{
		Code:    ErrInternal,
		Message: "internal server error",
		Err:     err,
	}
}

func NewInvalidTimeFormat(value string) *AppError {
	return &AppError{
		Code:    ErrInvalidTimeFormat,
		Message: fmt.Sprintf("invalid time %q, expected HH:mm", value),
	}
}

func NewOverlappingShift(message string) *AppError {
	return &AppError{Code: ErrOverlappingShift, Message: message}
}

func NewBreakOutOfRange(message string) *AppError {
	return &AppError{Code: ErrBreakOutOfRange, Message: message}
}

func NewInvalidTimeRange(message string) *AppError {
	return &AppError{Code: ErrInvalidTimeRange, Message: message}
}

func NewSlotTaken(err error) *AppError {
	return &AppError{
		Code:    ErrSlotTaken,
		Message: "requested slot overlaps an existing appointment",
		Err:     err,
	}
}

func NewSlotUnavailable(message string, err error) *AppError {
	return &AppError{
		Code:    ErrSlotUnavailable,
		Message: message,
		Err:     err,
	}
}

func NewInvalidStatusTransition(from, to string) *AppError {
	return &AppError{
		Code:    ErrInvalidStatusTransition,
		Message: fmt.Sprintf("cannot move appointment from %s to %s", from, to),
	}
}

func NewInvalidRecurrencePattern(message string, err error) *AppError {
	return &AppError{
		Code:    ErrInvalidRecurrencePattern,
		Message: message,
		Err:     err,
	}
}

func Unauthorized(err error) *AppError {
	return &AppError{
		Code:    ErrUnauthorized,
		Message: "unauthorized",
		Err:     err,
	}
}

func Forbidden(message string) *AppError {
	return &AppError{
		Code:    ErrForbidden,
		Message: message,
	}
}
