// Package errors defines the sentinel errors shared across layers. Services
// return these wrapped with context; the API layer checks them with
// errors.Is and maps them to HTTP status codes in one place.
package errors

import "errors"

var (
	// ErrNotFound signifies that a requested resource could not be located.
	ErrNotFound = errors.New("resource not found")

	// ErrValidation signifies that client input failed validation.
	ErrValidation = errors.New("validation failed")

	// ErrInternal signifies an unexpected server-side error, kept generic
	// so implementation details never leak to the client.
	ErrInternal = errors.New("internal server error")
)
