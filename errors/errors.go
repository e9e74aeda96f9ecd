// Package errors holds the sentinel error values shared across layers.
// Handlers map them to HTTP statuses; the sync engine maps statuses back.
package errors

import "fmt"

var (
	ErrChatNotFound       = fmt.Errorf("chat not found")
	ErrUserNotFound       = fmt.Errorf("user not found")
	ErrUserAlreadyExists  = fmt.Errorf("user with this email already exists")
	ErrInvalidCredentials = fmt.Errorf("invalid credentials")
	ErrInvalidPassword    = fmt.Errorf("password does not meet complexity requirements")
	ErrTokenGeneration    = fmt.Errorf("token generation failed")
	ErrValidation         = fmt.Errorf("validation failed")
)
