// Package common defines sentinel errors and small helpers shared by the
// Kumo client packages. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Store-level errors.
	ErrNotAuthenticated = errors.New("no user logged in")
	ErrStoreClosed      = errors.New("store disposed")

	// Lookup errors.
	ErrNotFound = errors.New("not found")

	// Input validation errors; wrapped with a field-specific message.
	ErrValidation = errors.New("validation error")

	// Connectivity errors.
	ErrUnavailable = errors.New("backend unavailable")

	// Local session vault errors.
	ErrVaultLocked = errors.New("session vault cannot be opened")
)
