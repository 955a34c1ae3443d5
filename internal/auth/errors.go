package auth

import "errors"

var (
	// ErrNotFound reports row absence at the store boundary. Services
	// translate it into the externally visible taxonomy below.
	ErrNotFound = errors.New("auth: not found")

	ErrDuplicateAccount = errors.New("auth: account already registered")
	ErrPasswordMismatch = errors.New("auth: password confirmation does not match")
	ErrAccountNotFound  = errors.New("auth: account not found")
	ErrUnauthorized     = errors.New("auth: unauthorized")
	ErrBadRequest       = errors.New("auth: bad request")
)

// ErrInvalidToken indicates the token failed codec validation. It never
// leaves the token service; callers observe ErrUnauthorized instead.
var ErrInvalidToken = errors.New("auth: invalid token")
