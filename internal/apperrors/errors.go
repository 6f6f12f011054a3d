package apperrors

import (
	"errors"
	"net/http"
)

// Error taxonomy shared by the cooking core. Wrap with fmt.Errorf("...: %w", err)
// and match with errors.Is.
var (
	ErrNotFound               = errors.New("not found")
	ErrInvalidSelection       = errors.New("invalid selection")
	ErrInvalidQuantity        = errors.New("invalid quantity")
	ErrSessionAlreadyResolved = errors.New("session already resolved")
	ErrConflict               = errors.New("concurrent modification")
	ErrUnavailable            = errors.New("feature not configured")
)

// Machine readable codes returned in API error bodies.
const (
	CodeNotFound               = "NOT_FOUND"
	CodeInvalidSelection       = "INVALID_SELECTION"
	CodeInvalidQuantity        = "INVALID_QUANTITY"
	CodeSessionAlreadyResolved = "SESSION_ALREADY_RESOLVED"
	CodeConflict               = "CONFLICT"
	CodeUnavailable            = "UNAVAILABLE"
	CodeInternal               = "INTERNAL_ERROR"
)

type mapping struct {
	err    error
	code   string
	status int
}

var mappings = []mapping{
	{ErrNotFound, CodeNotFound, http.StatusNotFound},
	{ErrInvalidSelection, CodeInvalidSelection, http.StatusUnprocessableEntity},
	{ErrInvalidQuantity, CodeInvalidQuantity, http.StatusUnprocessableEntity},
	{ErrSessionAlreadyResolved, CodeSessionAlreadyResolved, http.StatusConflict},
	{ErrConflict, CodeConflict, http.StatusConflict},
	{ErrUnavailable, CodeUnavailable, http.StatusServiceUnavailable},
}

// HTTPStatus returns the status code a transport should answer with for err.
func HTTPStatus(err error) int {
	for _, m := range mappings {
		if errors.Is(err, m.err) {
			return m.status
		}
	}
	return http.StatusInternalServerError
}

// Code returns the stable error code for err.
func Code(err error) string {
	for _, m := range mappings {
		if errors.Is(err, m.err) {
			return m.code
		}
	}
	return CodeInternal
}
