package dto

import (
	"errors"
	"net/http"

	domainerr "github.com/Giftbit/internal-rothschild-sub003/internal/domain/error"
)

// ErrorResponse represents a standardized error response for the API
type ErrorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// NewErrorResponse builds the wire representation of a domain error
func NewErrorResponse(err error) ErrorResponse {
	return ErrorResponse{
		Code:    domainerr.ErrorCode(err),
		Message: err.Error(),
	}
}

// HTTPStatus maps a domain error to its HTTP status code
func HTTPStatus(err error) int {
	switch {
	case domainerr.IsNotFoundError(err):
		return http.StatusNotFound
	case errors.Is(err, domainerr.ErrTransactionExists),
		errors.Is(err, domainerr.ErrValueAlreadyAttached),
		errors.Is(err, domainerr.ErrValueCodeExists),
		errors.Is(err, domainerr.ErrTransactionNotReversible),
		errors.Is(err, domainerr.ErrTransactionNotPending),
		errors.Is(err, domainerr.ErrPendingExpired),
		errors.Is(err, domainerr.ErrConflict):
		return http.StatusConflict
	case domainerr.IsInsufficientError(err):
		return http.StatusConflict
	case errors.Is(err, domainerr.ErrInvalidCurrency),
		errors.Is(err, domainerr.ErrInvalidTransactionID),
		errors.Is(err, domainerr.ErrInvalidValueState),
		errors.Is(err, domainerr.ErrValueNotUsable),
		errors.Is(err, domainerr.ErrRuleSyntax):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domainerr.ErrProcessor):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
