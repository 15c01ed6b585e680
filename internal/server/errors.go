// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/pdiddy/sciqa/internal/archive"
	"github.com/pdiddy/sciqa/internal/model"
	"github.com/pdiddy/sciqa/internal/qa"
)

// ErrorCategory classifies errors for logging and response.
type ErrorCategory string

const (
	ErrCatValidation       ErrorCategory = "validation"
	ErrCatRateLimit        ErrorCategory = "rate_limit"
	ErrCatTimeout          ErrorCategory = "timeout"
	ErrCatModelUnavailable ErrorCategory = "model_unavailable"
	ErrCatNotFound         ErrorCategory = "not_found"
	ErrCatUnknown          ErrorCategory = "unknown"
)

// AppError wraps an error with a category and HTTP status code.
type AppError struct {
	Category   ErrorCategory
	Message    string
	StatusCode int
	Err        error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Category, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Category, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func NewValidationError(msg string) *AppError {
	return &AppError{Category: ErrCatValidation, Message: msg, StatusCode: http.StatusBadRequest}
}

func NewNotFoundError(msg string) *AppError {
	return &AppError{Category: ErrCatNotFound, Message: msg, StatusCode: http.StatusNotFound}
}

func NewTimeoutError(err error) *AppError {
	return &AppError{
		Category:   ErrCatTimeout,
		Message:    "request timed out",
		StatusCode: http.StatusGatewayTimeout,
		Err:        err,
	}
}

func NewModelUnavailableError(err error) *AppError {
	return &AppError{
		Category:   ErrCatModelUnavailable,
		Message:    "language model unavailable",
		StatusCode: http.StatusBadGateway,
		Err:        err,
	}
}

func NewInternalError(msg string, err error) *AppError {
	return &AppError{
		Category:   ErrCatUnknown,
		Message:    msg,
		StatusCode: http.StatusInternalServerError,
		Err:        err,
	}
}

// classify maps an error from the service layer to an AppError. A deadline
// takes precedence over model unavailability since backends wrap the
// context error.
func classify(err error) *AppError {
	var appErr *AppError
	switch {
	case errors.As(err, &appErr):
		return appErr
	case errors.Is(err, context.DeadlineExceeded):
		return NewTimeoutError(err)
	case errors.Is(err, qa.ErrEmptyQuestion):
		return NewValidationError(err.Error())
	case errors.Is(err, archive.ErrNotFound):
		return NewNotFoundError(err.Error())
	case errors.Is(err, model.ErrUnavailable):
		return NewModelUnavailableError(err)
	default:
		return NewInternalError("internal server error", err)
	}
}
