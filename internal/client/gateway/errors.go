package gateway

import "errors"

// AuthError reports a failed auth call: bad credentials, a rejected sign-up
// or a network failure while talking to the auth service.
type AuthError struct {
	Message string
	Err     error
}

func (e *AuthError) Error() string { return e.Message }
func (e *AuthError) Unwrap() error { return e.Err }

// QueryError reports a failed row operation, including backend validation
// failures, which surface as generic messages.
type QueryError struct {
	Message string
	Err     error
}

func (e *QueryError) Error() string { return e.Message }
func (e *QueryError) Unwrap() error { return e.Err }

// NewAuthError builds an AuthError from a message and an optional cause.
func NewAuthError(msg string, err error) *AuthError {
	if msg == "" && err != nil {
		msg = err.Error()
	}
	return &AuthError{Message: msg, Err: err}
}

// NewQueryError builds a QueryError from a message and an optional cause.
func NewQueryError(msg string, err error) *QueryError {
	if msg == "" && err != nil {
		msg = err.Error()
	}
	return &QueryError{Message: msg, Err: err}
}

// IsAuthError reports whether err is or wraps an *AuthError.
func IsAuthError(err error) bool {
	var ae *AuthError
	return errors.As(err, &ae)
}

// IsQueryError reports whether err is or wraps a *QueryError.
func IsQueryError(err error) bool {
	var qe *QueryError
	return errors.As(err, &qe)
}
