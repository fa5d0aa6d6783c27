package service

import "errors"

// Sentinel errors shared across services. Handlers map these onto the API
// error codes with errors.Is.
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrEmailTaken         = errors.New("email already registered")
	ErrUserNotFound       = errors.New("user not found")

	ErrExamNotFound    = errors.New("exam not found")
	ErrExamUnavailable = errors.New("exam is not available")

	ErrAlreadyCompleted = errors.New("exam already completed")
	ErrNoActiveSession  = errors.New("no active exam session")
)
