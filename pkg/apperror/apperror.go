package apperror

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
)

// Ledger error taxonomy. Every rejected ledger operation unwraps to exactly one of these.
var (
	ErrNotFound          = errors.New("not found")
	ErrDuplicateIdentity = errors.New("duplicate identity")
	ErrOutOfRange        = errors.New("out of range")
	ErrInvalidState      = errors.New("invalid state")
	ErrNotEligible       = errors.New("not eligible")
	ErrAlreadyAssigned   = errors.New("already assigned")
	ErrFundsMismatch     = errors.New("funds mismatch")
	ErrAlreadyRated      = errors.New("already rated")
)

var (
	ErrPermission   = errors.New("permission denied")
	ErrInvalidInput = errors.New("invalid input")
	ErrInternal     = errors.New("internal server error")
	ErrUnauthorized = errors.New("unauthorized")
)

type AppError struct {
	BaseError error
	Message   string
	Details   string
	Err       error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (Details: %s, Cause: %v)", e.BaseError.Error(), e.Message, e.Details, e.Err)
	}
	return fmt.Sprintf("%s: %s (Details: %s)", e.BaseError.Error(), e.Message, e.Details)
}

func (e *AppError) Unwrap() error {
	return e.BaseError
}

func NewAppError(base error, msg, details string, err error) *AppError {
	return &AppError{BaseError: base, Message: msg, Details: details, Err: err}
}

func NewNotFound(resource, identifier string) *AppError {
	msg := fmt.Sprintf("%s not found", resource)
	details := fmt.Sprintf("%s with identifier '%s' was not found", resource, identifier)
	return NewAppError(ErrNotFound, msg, details, nil)
}

func NewDuplicateIdentity(address string) *AppError {
	return NewAppError(ErrDuplicateIdentity, "Identity already registered",
		fmt.Sprintf("address '%s' already owns a profile", address), nil)
}

func NewOutOfRange(resource string, id uint64, count uint64) *AppError {
	return NewAppError(ErrOutOfRange, fmt.Sprintf("%s id out of range", resource),
		fmt.Sprintf("%s id %d is not below count %d", resource, id, count), nil)
}

func NewInvalidState(details string) *AppError {
	return NewAppError(ErrInvalidState, "Operation not allowed in current state", details, nil)
}

func NewNotEligible(details string) *AppError {
	return NewAppError(ErrNotEligible, "Not eligible", details, nil)
}

func NewAlreadyAssigned(jobID uint64) *AppError {
	return NewAppError(ErrAlreadyAssigned, "Job already assigned",
		fmt.Sprintf("job %d already has a freelancer", jobID), nil)
}

func NewFundsMismatch(expected, got string) *AppError {
	return NewAppError(ErrFundsMismatch, "Attached funds do not match the requested payment",
		fmt.Sprintf("expected %s, got %s", expected, got), nil)
}

func NewAlreadyRated(jobID uint64) *AppError {
	return NewAppError(ErrAlreadyRated, "Job already rated",
		fmt.Sprintf("job %d already has a rating", jobID), nil)
}

func NewInvalidInput(details string, err error) *AppError {
	return NewAppError(ErrInvalidInput, "Invalid input provided", details, err)
}

func NewInternal(details string, err error) *AppError {
	return NewAppError(ErrInternal, "An internal server error occurred", details, err)
}

func NewUnauthorized(details string, err error) *AppError {
	return NewAppError(ErrUnauthorized, "Invalid credentials", details, err)
}

func NewPermissionDenied(details string) *AppError {
	return NewAppError(ErrPermission, "Permission denied", details, nil)
}

func ToHTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrInvalidInput), errors.Is(err, ErrOutOfRange):
		return http.StatusBadRequest
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, ErrPermission):
		return http.StatusForbidden
	case errors.Is(err, ErrDuplicateIdentity),
		errors.Is(err, ErrInvalidState),
		errors.Is(err, ErrAlreadyAssigned),
		errors.Is(err, ErrAlreadyRated):
		return http.StatusConflict
	case errors.Is(err, ErrNotEligible), errors.Is(err, ErrFundsMismatch):
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

func (e *AppError) ToJSON() gin.H {
	return gin.H{
		"error":   e.BaseError.Error(),
		"message": e.Message,
		"details": e.Details,
	}
}
